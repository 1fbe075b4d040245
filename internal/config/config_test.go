package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

// clearEnv unsets every variable overlayEnv reads so host settings do not
// leak into the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "JWT_SECRET", "TOKEN_TTL",
		"DB_HOST", "DB_PORT", "DB_NAME", "DB_USER", "DB_PASSWORD", "DB_SSLMODE",
		"DB_MAX_CONNS", "DB_MIN_CONNS",
		"REDIS_ADDR", "REDIS_PASSWORD",
		"ARBITER_ADDRESSES", "FAUCET_ENABLED", "FAUCET_LIMIT",
		"ALERTS_CONCURRENCY", "LOG_LEVEL",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)
	t.Setenv("TEST_JWT_SECRET", "0123456789abcdef-secret")

	path := writeTempFile(t, `
server:
  port: 9000
auth:
  jwt_secret: ${TEST_JWT_SECRET}
  token_ttl: 2h
database:
  host: localhost
  name: resale
  user: market
market:
  arbiters: ["0xabc"]
  faucet_enabled: true
`)
	cfg, err := LoadAndValidate(path)
	if err != nil {
		t.Fatalf("LoadAndValidate: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Auth.JWTSecret != "0123456789abcdef-secret" {
		t.Errorf("Auth.JWTSecret = %q", cfg.Auth.JWTSecret)
	}
	if cfg.Auth.TokenTTL != 2*time.Hour {
		t.Errorf("Auth.TokenTTL = %s", cfg.Auth.TokenTTL)
	}
	if cfg.Database.Port != DefaultDBPort || cfg.Database.MaxConns != DefaultMaxConns {
		t.Errorf("database defaults not applied: %+v", cfg.Database)
	}
	if !cfg.Market.FaucetEnabled || len(cfg.Market.Arbiters) != 1 {
		t.Errorf("market = %+v", cfg.Market)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "7070")
	t.Setenv("JWT_SECRET", "env-secret-0123456789")
	t.Setenv("ARBITER_ADDRESSES", " 0xAA, ,0xbb ")
	t.Setenv("FAUCET_ENABLED", "true")
	t.Setenv("TOKEN_TTL", "30m")

	path := writeTempFile(t, `
server:
  port: 9000
auth:
  jwt_secret: file-secret-0123456789
`)
	cfg, err := LoadAndValidate(path)
	if err != nil {
		t.Fatalf("LoadAndValidate: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.Auth.JWTSecret != "env-secret-0123456789" {
		t.Errorf("Auth.JWTSecret = %q", cfg.Auth.JWTSecret)
	}
	if got := strings.Join(cfg.Market.Arbiters, ","); got != "0xaa,0xbb" {
		t.Errorf("Arbiters = %q", got)
	}
	if cfg.Auth.TokenTTL != 30*time.Minute {
		t.Errorf("TokenTTL = %s", cfg.Auth.TokenTTL)
	}
}

func TestEnvOnly(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "env-secret-0123456789")

	cfg, err := LoadAndValidate("")
	if err != nil {
		t.Fatalf("LoadAndValidate: %v", err)
	}
	if cfg.Database.Enabled() || cfg.Redis.Enabled() {
		t.Errorf("expected in-memory config, got db=%v redis=%v", cfg.Database.Enabled(), cfg.Redis.Enabled())
	}
	if cfg.Server.Port != DefaultPort || cfg.Log.Level != DefaultLogLevel {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoadBadEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "eighty")
	if _, err := Load(""); err == nil || !strings.Contains(err.Error(), "PORT") {
		t.Fatalf("expected PORT parse error, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := &Config{Auth: AuthConfig{JWTSecret: "0123456789abcdef"}}
		c.applyDefaults()
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing secret", func(c *Config) { c.Auth.JWTSecret = "" }, "auth.jwt_secret is required"},
		{"short secret", func(c *Config) { c.Auth.JWTSecret = "short" }, "at least 16"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"db without name", func(c *Config) {
			c.Database = DBConfig{Host: "db", User: "u", MaxConns: 1}
		}, "database.name is required"},
		{"db min over max", func(c *Config) {
			c.Database = DBConfig{Host: "db", Name: "n", User: "u", MaxConns: 1, MinConns: 2}
		}, "cannot exceed"},
		{"bad arbiter", func(c *Config) { c.Market.Arbiters = []string{"alice"} }, "market.arbiters[0]"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"zero batch", func(c *Config) { c.Journal.BatchSize = 0 }, "journal.batch_size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
