// Package config loads the domsync server configuration from YAML.
package config

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/domsync/horosafe"
)

// Config is the top-level domsync configuration.
type Config struct {
	Server   ServerConfig  `yaml:"server"`
	Session  SessionConfig `yaml:"session"`
	Journal  JournalConfig `yaml:"journal"`
	MCP      MCPConfig     `yaml:"mcp"`
	LogLevel string        `yaml:"log_level"` // debug | info | warn | error
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr          string        `yaml:"addr"`
	MaxBody       int64         `yaml:"max_body"`
	SecureCookies bool          `yaml:"secure_cookies"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`
	PingPeriod    time.Duration `yaml:"ping_period"`
}

// SessionConfig controls connections, documents and their collection.
type SessionConfig struct {
	CollectInterval time.Duration `yaml:"collect_interval"`
	Expiration      time.Duration `yaml:"expiration"`
	KeepAlive       time.Duration `yaml:"keep_alive"`
	CookieLifetime  time.Duration `yaml:"cookie_lifetime"`
	CookieSecret    string        `yaml:"cookie_secret"`
}

// JournalConfig controls the lifecycle journal. An empty Path disables it.
type JournalConfig struct {
	Path            string        `yaml:"path"`
	RetentionDays   int           `yaml:"retention_days"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// MCPConfig controls the admin tools. They are served only when Token is
// set, and every request must carry it as a bearer token.
type MCPConfig struct {
	Path  string `yaml:"path"`
	Token string `yaml:"token"`
}

// Enabled reports whether the MCP endpoint is mounted.
func (m MCPConfig) Enabled() bool { return m.Token != "" }

// Default returns the configuration used when no file is given.
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

// LoadFile reads a YAML configuration file and fills in defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.MaxBody <= 0 {
		c.Server.MaxBody = 1 << 20
	}
	if c.Server.WriteTimeout <= 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Server.PingPeriod <= 0 {
		c.Server.PingPeriod = 30 * time.Second
	}
	if c.Session.CollectInterval <= 0 {
		c.Session.CollectInterval = 5 * time.Minute
	}
	if c.Session.Expiration <= 0 {
		c.Session.Expiration = 4 * time.Hour
	}
	if c.Session.KeepAlive <= 0 {
		c.Session.KeepAlive = 3 * time.Minute
	}
	if c.Session.CookieLifetime <= 0 {
		c.Session.CookieLifetime = 24 * time.Hour
	}
	if c.Journal.RetentionDays <= 0 {
		c.Journal.RetentionDays = 7
	}
	if c.Journal.CleanupInterval <= 0 {
		c.Journal.CleanupInterval = time.Hour
	}
	if c.MCP.Path == "" {
		c.MCP.Path = "/_mcp"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks values that have no sensible default.
func (c *Config) Validate() error {
	if c.Session.CookieSecret != "" {
		if err := horosafe.ValidateSecret([]byte(c.Session.CookieSecret)); err != nil {
			return fmt.Errorf("config: session.cookie_secret: %w", err)
		}
	}
	if c.Session.KeepAlive >= c.Session.Expiration {
		return fmt.Errorf("config: session.keep_alive (%s) must be shorter than session.expiration (%s)",
			c.Session.KeepAlive, c.Session.Expiration)
	}
	if c.MCP.Token != "" {
		if err := horosafe.ValidateSecret([]byte(c.MCP.Token)); err != nil {
			return fmt.Errorf("config: mcp.token: %w", err)
		}
	}
	if !strings.HasPrefix(c.MCP.Path, "/") {
		return fmt.Errorf("config: mcp.path %q must start with /", c.MCP.Path)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Secret returns the configured cookie secret, or a fresh random one. A
// random secret invalidates every cookie when the process restarts.
func (c *Config) Secret() ([]byte, error) {
	if c.Session.CookieSecret != "" {
		return []byte(c.Session.CookieSecret), nil
	}
	b := make([]byte, horosafe.MinSecretLen)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("config: generate secret: %w", err)
	}
	return b, nil
}

// Retention is the journal retention as a duration.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Journal.RetentionDays) * 24 * time.Hour
}

// ParseLevel maps a log_level value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("config: unknown log level %q", s)
}
