// Package dburl parses PostgreSQL connection URLs into their component
// parts so they can be displayed, validated, and turned back into a DSN
// for the pgx driver.
package dburl

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultPort is used when the URL does not carry an explicit port.
const DefaultPort = 5432

// DefaultSSLMode matches libpq's default negotiation behavior.
const DefaultSSLMode = "prefer"

// ConnInfo holds the parsed components of a PostgreSQL connection URL.
type ConnInfo struct {
	Host        string     `json:"host"`
	Port        int        `json:"port"`
	Database    string     `json:"database"`
	User        string     `json:"username"`
	Password    string     `json:"-"`
	HasPassword bool       `json:"has_password"`
	SSLMode     string     `json:"ssl_mode"`
	Params      url.Values `json:"query_params,omitempty"`
	Raw         string     `json:"-"`
	ParsedAt    time.Time  `json:"parsed_at"`
}

// ParseURL parses a postgres:// or postgresql:// URL into a ConnInfo.
func ParseURL(raw string) (*ConnInfo, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("connection URL is empty")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	switch u.Scheme {
	case "postgres", "postgresql":
	default:
		return nil, fmt.Errorf("unsupported scheme %q: expected postgres:// or postgresql://", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("URL has no host")
	}

	port := DefaultPort
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil || port <= 0 || port > 65535 {
			return nil, fmt.Errorf("invalid port %q", p)
		}
	}

	info := &ConnInfo{
		Host:     host,
		Port:     port,
		Database: strings.TrimPrefix(u.Path, "/"),
		SSLMode:  DefaultSSLMode,
		Params:   u.Query(),
		Raw:      raw,
		ParsedAt: time.Now(),
	}

	if u.User != nil {
		info.User = u.User.Username()
		info.Password, info.HasPassword = u.User.Password()
	}

	if mode := info.Params.Get("sslmode"); mode != "" {
		info.SSLMode = mode
	}

	return info, nil
}

// DSN renders the connection info as a keyword/value string for the pgx
// stdlib driver. The connect timeout is rounded up to whole seconds since
// that is the granularity libpq-style connect_timeout understands.
func (c *ConnInfo) DSN(connectTimeout time.Duration) string {
	parts := []string{
		fmt.Sprintf("host=%s", quoteValue(c.Host)),
		fmt.Sprintf("port=%d", c.Port),
	}
	if c.User != "" {
		parts = append(parts, fmt.Sprintf("user=%s", quoteValue(c.User)))
	}
	if c.HasPassword {
		parts = append(parts, fmt.Sprintf("password=%s", quoteValue(c.Password)))
	}
	if c.Database != "" {
		parts = append(parts, fmt.Sprintf("dbname=%s", quoteValue(c.Database)))
	}
	parts = append(parts, fmt.Sprintf("sslmode=%s", quoteValue(c.SSLMode)))
	if connectTimeout > 0 {
		secs := int((connectTimeout + time.Second - 1) / time.Second)
		parts = append(parts, fmt.Sprintf("connect_timeout=%d", secs))
	}
	return strings.Join(parts, " ")
}

// quoteValue quotes a keyword/value DSN value per libpq rules: values
// containing spaces, single quotes, or backslashes (and empty values)
// must be wrapped in single quotes, with backslash and quote escaped.
func quoteValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v)
	return "'" + escaped + "'"
}

// MaskedPassword returns the password replaced by asterisks of equal
// length, or "None" when the URL carried no password.
func (c *ConnInfo) MaskedPassword() string {
	if !c.HasPassword || c.Password == "" {
		return "None"
	}
	return strings.Repeat("*", len(c.Password))
}

// Redacted returns the original URL with the password masked so it is
// safe to log or print.
func (c *ConnInfo) Redacted() string {
	if !c.HasPassword || c.Password == "" {
		return c.Raw
	}

	u, err := url.Parse(c.Raw)
	if err != nil || u.User == nil {
		return c.Raw
	}
	u.User = url.UserPassword(u.User.Username(), strings.Repeat("*", len(c.Password)))
	return u.String()
}

// Addr returns host:port for dial attempts.
func (c *ConnInfo) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
