package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Database.Host != "localhost" {
		t.Errorf("expected default host localhost, got %s", config.Database.Host)
	}
	if config.Database.Port != 5432 {
		t.Errorf("expected default port 5432, got %d", config.Database.Port)
	}
	if config.Database.SSLMode != "prefer" {
		t.Errorf("expected default sslmode prefer, got %s", config.Database.SSLMode)
	}
	if config.Probe.DialTimeoutSeconds != 5 {
		t.Errorf("expected dial timeout 5, got %d", config.Probe.DialTimeoutSeconds)
	}
	if config.Server.HealthPort != 8080 {
		t.Errorf("expected health port 8080, got %d", config.Server.HealthPort)
	}
}

func TestLoadFromFile(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		validate func(*testing.T, *Config)
		wantErr  bool
	}{
		{
			name: "valid config",
			content: `{
				"database": {
					"host": "db.example.com",
					"port": 5433,
					"database": "testdb",
					"user": "testuser",
					"password": "dbpass",
					"sslmode": "require"
				},
				"probe": {
					"dial_timeout_seconds": 3,
					"connect_timeout_seconds": 15,
					"interval_seconds": 60
				},
				"server": {
					"health_port": 9090
				}
			}`,
			validate: func(t *testing.T, c *Config) {
				if c.Database.Host != "db.example.com" {
					t.Errorf("expected host db.example.com, got %s", c.Database.Host)
				}
				if c.Database.Port != 5433 {
					t.Errorf("expected port 5433, got %d", c.Database.Port)
				}
				if c.Database.SSLMode != "require" {
					t.Errorf("expected sslmode require, got %s", c.Database.SSLMode)
				}
				if c.Probe.IntervalSeconds != 60 {
					t.Errorf("expected interval 60, got %d", c.Probe.IntervalSeconds)
				}
				if c.Server.HealthPort != 9090 {
					t.Errorf("expected health port 9090, got %d", c.Server.HealthPort)
				}
			},
		},
		{
			name: "partial config keeps defaults",
			content: `{
				"database": {
					"host": "partial.example.com"
				}
			}`,
			validate: func(t *testing.T, c *Config) {
				if c.Database.Host != "partial.example.com" {
					t.Errorf("expected host partial.example.com, got %s", c.Database.Host)
				}
				if c.Database.Port != 5432 {
					t.Errorf("expected default port 5432, got %d", c.Database.Port)
				}
				if c.Probe.ConnectTimeoutSeconds != 10 {
					t.Errorf("expected default connect timeout 10, got %d", c.Probe.ConnectTimeoutSeconds)
				}
			},
		},
		{
			name:    "invalid JSON",
			content: `{not json`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatalf("failed to write config file: %v", err)
			}

			config, err := LoadFromFile(path)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.validate(t, config)
		})
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PGTEST_DB_HOST", "env.example.com")
	t.Setenv("PGTEST_DB_PORT", "6432")
	t.Setenv("PGTEST_DB_USER", "envuser")
	t.Setenv("PGTEST_DB_SSLMODE", "disable")

	config := DefaultConfig()
	config.ApplyEnv()

	if config.Database.Host != "env.example.com" {
		t.Errorf("expected host env.example.com, got %s", config.Database.Host)
	}
	if config.Database.Port != 6432 {
		t.Errorf("expected port 6432, got %d", config.Database.Port)
	}
	if config.Database.User != "envuser" {
		t.Errorf("expected user envuser, got %s", config.Database.User)
	}
	if config.Database.SSLMode != "disable" {
		t.Errorf("expected sslmode disable, got %s", config.Database.SSLMode)
	}
}

func TestApplyEnvInvalidPort(t *testing.T) {
	t.Setenv("PGTEST_DB_PORT", "not-a-port")

	config := DefaultConfig()
	config.ApplyEnv()

	if config.Database.Port != 5432 {
		t.Errorf("expected port to stay 5432, got %d", config.Database.Port)
	}
}

func TestMergeWithFlags(t *testing.T) {
	config := DefaultConfig()
	config.MergeWithFlags("flag.example.com", 5433, "flagdb", "flaguser", "flagpass", "verify-full", 9191)

	if config.Database.Host != "flag.example.com" {
		t.Errorf("expected host flag.example.com, got %s", config.Database.Host)
	}
	if config.Database.Port != 5433 {
		t.Errorf("expected port 5433, got %d", config.Database.Port)
	}
	if config.Database.Database != "flagdb" {
		t.Errorf("expected database flagdb, got %s", config.Database.Database)
	}
	if config.Server.HealthPort != 9191 {
		t.Errorf("expected health port 9191, got %d", config.Server.HealthPort)
	}

	// Empty flag values do not overwrite
	config.MergeWithFlags("", 0, "", "", "", "", 0)
	if config.Database.Host != "flag.example.com" {
		t.Errorf("expected host to stay flag.example.com, got %s", config.Database.Host)
	}
}

func TestURL(t *testing.T) {
	config := DefaultConfig()
	config.Database.Host = "db.example.com"
	config.Database.Port = 5433
	config.Database.Database = "orders"
	config.Database.User = "alice"
	config.Database.Password = "pw"
	config.Database.SSLMode = "require"

	got := config.URL()
	want := "postgresql://alice:pw@db.example.com:5433/orders?sslmode=require"
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestURLNoCredentials(t *testing.T) {
	config := DefaultConfig()

	got := config.URL()
	want := "postgresql://localhost:5432?sslmode=prefer"
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"empty host", func(c *Config) { c.Database.Host = "" }, true},
		{"zero port", func(c *Config) { c.Database.Port = 0 }, true},
		{"port too large", func(c *Config) { c.Database.Port = 70000 }, true},
		{"zero dial timeout", func(c *Config) { c.Probe.DialTimeoutSeconds = 0 }, true},
		{"zero connect timeout", func(c *Config) { c.Probe.ConnectTimeoutSeconds = 0 }, true},
		{"zero interval", func(c *Config) { c.Probe.IntervalSeconds = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
