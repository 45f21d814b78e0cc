package probe

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Diagnostics holds everything gathered from the server through read-only
// queries. Err carries the first collection error; fields gathered before
// the failure are still populated.
type Diagnostics struct {
	Version string `json:"version,omitempty"`

	Database string `json:"database,omitempty"`
	User     string `json:"user,omitempty"`
	Schema   string `json:"schema,omitempty"`

	ServerIP   string `json:"server_ip,omitempty"`
	ServerPort int    `json:"server_port,omitempty"`

	DatabaseSizeBytes  int64  `json:"database_size"`
	DatabaseSizePretty string `json:"database_size_pretty,omitempty"`
	SystemCatalogSize  string `json:"system_catalog_size,omitempty"`

	ActiveConnections int `json:"active_connections"`

	Settings Settings `json:"settings"`

	PublicTables int `json:"public_tables_count"`
	TotalTables  int `json:"total_tables_count"`
	Schemas      int `json:"schemas_count"`
	Users        int `json:"users_count"`
	Databases    int `json:"databases_count"`

	ServerStartTime time.Time `json:"server_start_time"`
	CurrentTime     time.Time `json:"current_time"`

	Err string `json:"error,omitempty"`
}

// Settings holds the pg_settings values the report displays. Values are
// kept as the raw setting strings since units differ per parameter.
type Settings struct {
	MaxConnections             string `json:"max_connections"`
	SharedBuffers              string `json:"shared_buffers"`
	EffectiveCacheSize         string `json:"effective_cache_size"`
	WorkMem                    string `json:"work_mem"`
	MaintenanceWorkMem         string `json:"maintenance_work_mem"`
	CheckpointCompletionTarget string `json:"checkpoint_completion_target"`
	WALBuffers                 string `json:"wal_buffers"`
	DefaultStatisticsTarget    string `json:"default_statistics_target"`
}

const settingQuery = `SELECT setting FROM pg_settings WHERE name = $1`

// Collect runs the diagnostic queries against an open connection. A query
// failure stops collection; the error is recorded on the returned
// Diagnostics rather than failing the whole probe.
func Collect(ctx context.Context, db *sql.DB) *Diagnostics {
	d := &Diagnostics{}
	if err := d.collect(ctx, db); err != nil {
		d.Err = err.Error()
	}
	return d
}

func (d *Diagnostics) collect(ctx context.Context, db *sql.DB) error {
	if err := db.QueryRowContext(ctx, `SELECT version()`).Scan(&d.Version); err != nil {
		return fmt.Errorf("version: %w", err)
	}

	err := db.QueryRowContext(ctx, `SELECT current_database(), current_user, current_schema()`).
		Scan(&d.Database, &d.User, &d.Schema)
	if err != nil {
		return fmt.Errorf("current database: %w", err)
	}

	// Both are NULL over unix-domain sockets
	var serverIP sql.NullString
	var serverPort sql.NullInt64
	err = db.QueryRowContext(ctx, `SELECT inet_server_addr()::text, inet_server_port()`).
		Scan(&serverIP, &serverPort)
	if err != nil {
		return fmt.Errorf("server address: %w", err)
	}
	d.ServerIP = serverIP.String
	d.ServerPort = int(serverPort.Int64)

	err = db.QueryRowContext(ctx, `SELECT pg_database_size(current_database())`).
		Scan(&d.DatabaseSizeBytes)
	if err != nil {
		return fmt.Errorf("database size: %w", err)
	}

	err = db.QueryRowContext(ctx, `SELECT pg_size_pretty(pg_database_size(current_database()))`).
		Scan(&d.DatabaseSizePretty)
	if err != nil {
		return fmt.Errorf("database size pretty: %w", err)
	}

	err = db.QueryRowContext(ctx, `SELECT pg_size_pretty(pg_total_relation_size('pg_class'))`).
		Scan(&d.SystemCatalogSize)
	if err != nil {
		return fmt.Errorf("system catalog size: %w", err)
	}

	err = db.QueryRowContext(ctx, `SELECT count(*) FROM pg_stat_activity`).
		Scan(&d.ActiveConnections)
	if err != nil {
		return fmt.Errorf("active connections: %w", err)
	}

	settings := []struct {
		name string
		dest *string
	}{
		{"max_connections", &d.Settings.MaxConnections},
		{"shared_buffers", &d.Settings.SharedBuffers},
		{"effective_cache_size", &d.Settings.EffectiveCacheSize},
		{"work_mem", &d.Settings.WorkMem},
		{"maintenance_work_mem", &d.Settings.MaintenanceWorkMem},
		{"checkpoint_completion_target", &d.Settings.CheckpointCompletionTarget},
		{"wal_buffers", &d.Settings.WALBuffers},
		{"default_statistics_target", &d.Settings.DefaultStatisticsTarget},
	}
	for _, s := range settings {
		if err := db.QueryRowContext(ctx, settingQuery, s.name).Scan(s.dest); err != nil {
			return fmt.Errorf("setting %s: %w", s.name, err)
		}
	}

	counts := []struct {
		query string
		label string
		dest  *int
	}{
		{`SELECT count(*) FROM information_schema.tables WHERE table_schema = 'public'`, "public tables", &d.PublicTables},
		{`SELECT count(*) FROM information_schema.tables`, "total tables", &d.TotalTables},
		{`SELECT count(*) FROM information_schema.schemata`, "schemas", &d.Schemas},
		{`SELECT count(*) FROM pg_user`, "users", &d.Users},
		{`SELECT count(*) FROM pg_database`, "databases", &d.Databases},
	}
	for _, c := range counts {
		if err := db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return fmt.Errorf("%s count: %w", c.label, err)
		}
	}

	err = db.QueryRowContext(ctx, `SELECT pg_postmaster_start_time()`).
		Scan(&d.ServerStartTime)
	if err != nil {
		return fmt.Errorf("server start time: %w", err)
	}

	err = db.QueryRowContext(ctx, `SELECT now()`).Scan(&d.CurrentTime)
	if err != nil {
		return fmt.Errorf("current time: %w", err)
	}

	return nil
}
