package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/EnesKeremAYDIN/postgresql-connection-tester/internal/logger"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig `json:"database"`
	Probe    ProbeConfig    `json:"probe"`
	Server   ServerConfig   `json:"server"`
}

// DatabaseConfig contains PostgreSQL connection settings used when no
// connection URL is given on the command line
type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	User     string `json:"user"`
	Password string `json:"password,omitempty"`
	SSLMode  string `json:"sslmode"`
}

// ProbeConfig contains probe timing settings
type ProbeConfig struct {
	DialTimeoutSeconds    int `json:"dial_timeout_seconds"`
	ConnectTimeoutSeconds int `json:"connect_timeout_seconds"`
	IntervalSeconds       int `json:"interval_seconds"`
}

// ServerConfig contains settings for serve mode
type ServerConfig struct {
	HealthPort int `json:"health_port"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			SSLMode: "prefer",
		},
		Probe: ProbeConfig{
			DialTimeoutSeconds:    5,
			ConnectTimeoutSeconds: 10,
			IntervalSeconds:       30,
		},
		Server: ServerConfig{
			HealthPort: 8080,
		},
	}
}

// LoadFromFile loads configuration from a JSON file on top of the
// defaults
func LoadFromFile(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Warn("config", "failed to close config file: %v", err)
		}
	}()

	config := DefaultConfig()
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// ApplyEnv loads a .env file when present and overlays PGTEST_*
// environment variables onto the configuration
func (c *Config) ApplyEnv() {
	// A missing .env file is not an error
	if err := godotenv.Load(); err != nil {
		logger.Debug("config", "no .env file loaded: %v", err)
	}

	if v := os.Getenv("PGTEST_DB_HOST"); v != "" {
		c.Database.Host = v
	}
	if v := os.Getenv("PGTEST_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Database.Port = port
		} else {
			logger.Warn("config", "ignoring invalid PGTEST_DB_PORT %q", v)
		}
	}
	if v := os.Getenv("PGTEST_DB_NAME"); v != "" {
		c.Database.Database = v
	}
	if v := os.Getenv("PGTEST_DB_USER"); v != "" {
		c.Database.User = v
	}
	if v := os.Getenv("PGTEST_DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("PGTEST_DB_SSLMODE"); v != "" {
		c.Database.SSLMode = v
	}
}

// MergeWithFlags merges command-line flag values into the configuration.
// Command-line flags take precedence over config file and env values
func (c *Config) MergeWithFlags(dbHost string, dbPort int, dbName, dbUser, dbPass, sslMode string, healthPort int) {
	if dbHost != "" {
		c.Database.Host = dbHost
	}
	if dbPort > 0 {
		c.Database.Port = dbPort
	}
	if dbName != "" {
		c.Database.Database = dbName
	}
	if dbUser != "" {
		c.Database.User = dbUser
	}
	if dbPass != "" {
		c.Database.Password = dbPass
	}
	if sslMode != "" {
		c.Database.SSLMode = sslMode
	}
	if healthPort > 0 {
		c.Server.HealthPort = healthPort
	}
}

// URL assembles a connection URL from the database settings
func (c *Config) URL() string {
	u := url.URL{
		Scheme: "postgresql",
		Host:   fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
	}
	if c.Database.User != "" {
		if c.Database.Password != "" {
			u.User = url.UserPassword(c.Database.User, c.Database.Password)
		} else {
			u.User = url.User(c.Database.User)
		}
	}
	if c.Database.Database != "" {
		u.Path = "/" + c.Database.Database
	}
	if c.Database.SSLMode != "" {
		q := url.Values{}
		q.Set("sslmode", c.Database.SSLMode)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("database port must be between 1 and 65535")
	}
	if c.Probe.DialTimeoutSeconds <= 0 {
		return fmt.Errorf("dial timeout must be positive")
	}
	if c.Probe.ConnectTimeoutSeconds <= 0 {
		return fmt.Errorf("connect timeout must be positive")
	}
	if c.Probe.IntervalSeconds <= 0 {
		return fmt.Errorf("probe interval must be positive")
	}
	return nil
}
