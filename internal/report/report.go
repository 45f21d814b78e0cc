// Package report renders probe results as a sectioned text report or as
// JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/EnesKeremAYDIN/postgresql-connection-tester/internal/dburl"
	"github.com/EnesKeremAYDIN/postgresql-connection-tester/internal/probe"
)

const divider = "================================================================================"

// Report bundles everything a single run produces.
type Report struct {
	ConnectionInfo *dburl.ConnInfo `json:"connection_info"`
	TestResults    *probe.Result   `json:"test_results"`
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteText writes the full human-readable report.
func WriteText(w io.Writer, r *Report) {
	writeConnectionInfo(w, r.ConnectionInfo)
	writeTestResults(w, r.TestResults)
}

func section(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s\n%s\n%s\n", divider, title, divider)
}

func field(w io.Writer, name, format string, args ...interface{}) {
	fmt.Fprintf(w, "  %-32s %s\n", name+":", fmt.Sprintf(format, args...))
}

func writeConnectionInfo(w io.Writer, info *dburl.ConnInfo) {
	section(w, "POSTGRESQL CONNECTION INFORMATION")

	field(w, "Host", "%s", info.Host)
	field(w, "Port", "%d", info.Port)
	field(w, "Database", "%s", orNA(info.Database))
	field(w, "Username", "%s", orNA(info.User))
	field(w, "Password", "%s", info.MaskedPassword())
	field(w, "SSL Mode", "%s", info.SSLMode)
	field(w, "Parse Time", "%s", info.ParsedAt.Format(time.RFC3339))

	if len(info.Params) > 0 {
		fmt.Fprintf(w, "  Query Parameters:\n")
		keys := make([]string, 0, len(info.Params))
		for k := range info.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "      %s: %s\n", k, strings.Join(info.Params[k], ", "))
		}
	}

	field(w, "Original URL", "%s", info.Redacted())
}

func writeTestResults(w io.Writer, result *probe.Result) {
	section(w, "CONNECTION TEST RESULTS")

	if !result.ConnectionSuccessful {
		fmt.Fprintf(w, "  Connection failed!\n")
		field(w, "Host Reachable", "%s", yesNo(result.HostReachable))
		field(w, "Error", "%s", result.ErrorMessage)
		return
	}

	fmt.Fprintf(w, "  Connection successful!\n")

	if m := result.Timings; m != nil {
		fmt.Fprintf(w, "\n  Performance Metrics:\n")
		field(w, "  Connection Time", "%.3f seconds", m.ConnectTime)
		field(w, "  Query Time", "%.3f seconds", m.QueryTime)
		field(w, "  Total Time", "%.3f seconds", m.TotalTime)
	}

	d := result.Diagnostics
	if d == nil {
		return
	}

	fmt.Fprintf(w, "\n  Server Information:\n")
	field(w, "  Version", "%s", orNA(d.Version))
	field(w, "  Server IP", "%s", orNA(d.ServerIP))
	if d.ServerPort > 0 {
		field(w, "  Server Port", "%d", d.ServerPort)
	} else {
		field(w, "  Server Port", "N/A")
	}
	field(w, "  Start Time", "%s", formatTime(d.ServerStartTime))
	field(w, "  Current Time", "%s", formatTime(d.CurrentTime))
	if !d.ServerStartTime.IsZero() && !d.CurrentTime.IsZero() {
		field(w, "  Uptime", "%s", humanize.RelTime(d.ServerStartTime, d.CurrentTime, "", ""))
	}

	fmt.Fprintf(w, "\n  Database Information:\n")
	field(w, "  Database", "%s", orNA(d.Database))
	field(w, "  Active User", "%s", orNA(d.User))
	field(w, "  Schema", "%s", orNA(d.Schema))
	field(w, "  Size", "%s", databaseSize(d))
	field(w, "  System Catalog Size", "%s", orNA(d.SystemCatalogSize))

	fmt.Fprintf(w, "\n  Connection Information:\n")
	field(w, "  Active Connections", "%d", d.ActiveConnections)
	field(w, "  Max Connections", "%s", orNA(d.Settings.MaxConnections))
	field(w, "  Connection Usage", "%s", connectionUsage(d))

	fmt.Fprintf(w, "\n  Performance Settings:\n")
	field(w, "  Shared Buffers", "%s", memorySetting(d.Settings.SharedBuffers, blockSize))
	field(w, "  Effective Cache Size", "%s", memorySetting(d.Settings.EffectiveCacheSize, blockSize))
	field(w, "  Work Memory", "%s", memorySetting(d.Settings.WorkMem, kilobyte))
	field(w, "  Maintenance Work Memory", "%s", memorySetting(d.Settings.MaintenanceWorkMem, kilobyte))
	field(w, "  WAL Buffers", "%s", memorySetting(d.Settings.WALBuffers, blockSize))
	field(w, "  Checkpoint Completion Target", "%s", orNA(d.Settings.CheckpointCompletionTarget))
	field(w, "  Default Statistics Target", "%s", orNA(d.Settings.DefaultStatisticsTarget))

	fmt.Fprintf(w, "\n  Database Statistics:\n")
	field(w, "  Public Tables", "%d", d.PublicTables)
	field(w, "  Total Tables", "%d", d.TotalTables)
	field(w, "  Schema Count", "%d", d.Schemas)
	field(w, "  User Count", "%d", d.Users)
	field(w, "  Database Count", "%d", d.Databases)

	if d.Err != "" {
		fmt.Fprintf(w, "\n  Warning: diagnostics incomplete: %s\n", d.Err)
	}
}

// databaseSize prefers the server-rendered pretty size and falls back to
// formatting the raw byte count locally.
func databaseSize(d *probe.Diagnostics) string {
	if d.DatabaseSizePretty != "" {
		return fmt.Sprintf("%s (%s bytes)", d.DatabaseSizePretty, humanize.Comma(d.DatabaseSizeBytes))
	}
	if d.DatabaseSizeBytes > 0 {
		return humanize.IBytes(uint64(d.DatabaseSizeBytes))
	}
	return "N/A"
}

// Units of the memory settings as pg_settings reports them:
// shared_buffers, effective_cache_size, and wal_buffers are counted in
// 8 kB blocks; work_mem and maintenance_work_mem in kB.
const (
	blockSize = 8192
	kilobyte  = 1024
)

// memorySetting annotates a numeric pg_settings value with its byte size.
// Non-numeric values are passed through untouched.
func memorySetting(value string, unitBytes int64) string {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n < 0 {
		return orNA(value)
	}
	return fmt.Sprintf("%s (%s)", value, humanize.IBytes(uint64(n)*uint64(unitBytes)))
}

// connectionUsage renders active/max as a percentage.
func connectionUsage(d *probe.Diagnostics) string {
	maxConns, err := strconv.Atoi(d.Settings.MaxConnections)
	if err != nil || maxConns <= 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.1f%%", float64(d.ActiveConnections)/float64(maxConns)*100)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Format(time.RFC3339)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
