package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "domsync.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
	if cfg.Session.Expiration != 4*time.Hour || cfg.Session.CollectInterval != 5*time.Minute {
		t.Errorf("session defaults = %+v", cfg.Session)
	}
	if cfg.MCP.Enabled() {
		t.Error("MCP must be off without a token")
	}
	if cfg.Retention() != 7*24*time.Hour {
		t.Errorf("Retention = %s", cfg.Retention())
	}
	secret, err := cfg.Secret()
	if err != nil || len(secret) != 32 {
		t.Fatalf("generated secret: %d bytes, %v", len(secret), err)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: "127.0.0.1:9090"
  secure_cookies: true
session:
  expiration: 1h
  keep_alive: 30s
  cookie_secret: "0123456789abcdef0123456789abcdef"
journal:
  path: /tmp/journal.db
  retention_days: 3
log_level: debug
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != "127.0.0.1:9090" || !cfg.Server.SecureCookies {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Session.Expiration != time.Hour || cfg.Session.KeepAlive != 30*time.Second {
		t.Errorf("session = %+v", cfg.Session)
	}
	if cfg.Session.CollectInterval != 5*time.Minute {
		t.Errorf("CollectInterval default not applied: %s", cfg.Session.CollectInterval)
	}
	if cfg.Journal.Path != "/tmp/journal.db" || cfg.Journal.RetentionDays != 3 {
		t.Errorf("journal = %+v", cfg.Journal)
	}
	if cfg.MCP.Path != "/_mcp" {
		t.Errorf("mcp.path = %q", cfg.MCP.Path)
	}
	secret, _ := cfg.Secret()
	if string(secret) != "0123456789abcdef0123456789abcdef" {
		t.Errorf("secret = %q", secret)
	}
}

func TestLoadFileRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"short secret", "session:\n  cookie_secret: short\n"},
		{"keep-alive too long", "session:\n  keep_alive: 5h\n  expiration: 1h\n"},
		{"bad level", "log_level: loud\n"},
		{"bad mcp path", "mcp:\n  path: mcp\n"},
		{"short mcp token", "mcp:\n  token: short\n"},
		{"bad yaml", "server: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadFile(writeConfig(t, tt.body)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("missing file accepted")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
}
