// Package probe implements the connection test: reachability check,
// connection attempt, diagnostic collection, and timing.
package probe

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"net"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/EnesKeremAYDIN/postgresql-connection-tester/internal/dburl"
	"github.com/EnesKeremAYDIN/postgresql-connection-tester/internal/logger"
	"github.com/EnesKeremAYDIN/postgresql-connection-tester/internal/metrics"
)

const component = "probe"

// DefaultDialTimeout bounds the TCP reachability check.
const DefaultDialTimeout = 5 * time.Second

// DefaultConnectTimeout bounds the PostgreSQL handshake.
const DefaultConnectTimeout = 10 * time.Second

// Options configures a Prober.
type Options struct {
	DialTimeout    time.Duration
	ConnectTimeout time.Duration
}

// Timings reports how long each phase of the probe took, in seconds
// rounded to millisecond precision.
type Timings struct {
	ConnectTime float64 `json:"connection_time"`
	QueryTime   float64 `json:"query_time"`
	TotalTime   float64 `json:"total_time"`
}

// Result is the outcome of a single probe.
type Result struct {
	ConnectionSuccessful bool         `json:"connection_successful"`
	HostReachable        bool         `json:"host_reachable"`
	ErrorMessage         string       `json:"error_message,omitempty"`
	Diagnostics          *Diagnostics `json:"detailed_info,omitempty"`
	Timings              *Timings     `json:"performance_metrics,omitempty"`
}

// Prober runs connection tests against a PostgreSQL server.
type Prober struct {
	opts Options

	// OpenDB opens the database handle for a DSN. Tests replace it to
	// avoid needing a live server.
	OpenDB func(dsn string) (*sql.DB, error)
}

// NewProber creates a Prober, applying default timeouts for any that are
// unset.
func NewProber(opts Options) *Prober {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = DefaultDialTimeout
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	return &Prober{
		opts: opts,
		OpenDB: func(dsn string) (*sql.DB, error) {
			return sql.Open("pgx", dsn)
		},
	}
}

// CheckReachable reports whether a TCP connection to addr succeeds within
// the dial timeout.
func (p *Prober) CheckReachable(ctx context.Context, addr string) bool {
	d := net.Dialer{Timeout: p.opts.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		logger.Debug(component, "dial %s failed: %v", addr, err)
		return false
	}
	_ = conn.Close()
	return true
}

// Run performs the full connection test and never returns a nil Result.
// Connection failures are reported on the Result, not as an error.
func (p *Prober) Run(ctx context.Context, info *dburl.ConnInfo) *Result {
	start := time.Now()
	result := &Result{}

	logger.Debug(component, "checking reachability of %s", info.Addr())
	if !p.CheckReachable(ctx, info.Addr()) {
		result.ErrorMessage = fmt.Sprintf("host %s is not reachable", info.Addr())
		p.record(result, nil)
		return result
	}
	result.HostReachable = true

	connStart := time.Now()
	db, err := p.OpenDB(info.DSN(p.opts.ConnectTimeout))
	if err != nil {
		result.ErrorMessage = describeError(err)
		p.record(result, nil)
		return result
	}
	defer func() { _ = db.Close() }()

	pingCtx, cancel := context.WithTimeout(ctx, p.opts.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		result.ErrorMessage = describeError(err)
		p.record(result, nil)
		return result
	}
	connectTime := time.Since(connStart)
	logger.Debug(component, "connected to %s in %s", info.Addr(), connectTime.Round(time.Millisecond))

	queryStart := time.Now()
	result.Diagnostics = Collect(ctx, db)
	queryTime := time.Since(queryStart)

	result.ConnectionSuccessful = true
	result.Timings = &Timings{
		ConnectTime: roundSeconds(connectTime),
		QueryTime:   roundSeconds(queryTime),
		TotalTime:   roundSeconds(time.Since(start)),
	}

	if result.Diagnostics.Err != "" {
		logger.Warn(component, "diagnostics incomplete: %s", result.Diagnostics.Err)
	}

	p.record(result, result.Timings)
	return result
}

// record updates Prometheus metrics for a finished probe.
func (p *Prober) record(result *Result, timings *Timings) {
	switch {
	case result.ConnectionSuccessful:
		metrics.ProbesTotal.WithLabelValues("success").Inc()
		metrics.Up.Set(1)
	case !result.HostReachable:
		metrics.ProbesTotal.WithLabelValues("unreachable").Inc()
		metrics.Up.Set(0)
	default:
		metrics.ProbesTotal.WithLabelValues("failure").Inc()
		metrics.Up.Set(0)
	}

	if timings != nil {
		metrics.ProbeDuration.WithLabelValues("connect").Observe(timings.ConnectTime)
		metrics.ProbeDuration.WithLabelValues("query").Observe(timings.QueryTime)
		metrics.ProbeDuration.WithLabelValues("total").Observe(timings.TotalTime)
	}

	if d := result.Diagnostics; d != nil && d.Err == "" {
		metrics.ActiveConnections.Set(float64(d.ActiveConnections))
		if maxConns, err := strconv.Atoi(d.Settings.MaxConnections); err == nil {
			metrics.MaxConnections.Set(float64(maxConns))
		}
		metrics.DatabaseSizeBytes.Set(float64(d.DatabaseSizeBytes))
	}
}

// describeError distinguishes server-reported errors from transport ones.
func describeError(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Sprintf("PostgreSQL error %s: %s", pgErr.Code, pgErr.Message)
	}
	return fmt.Sprintf("connection error: %v", err)
}

func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*1000) / 1000
}
