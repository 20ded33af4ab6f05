package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// helper to build a minimal valid config that can be tweaked in tests.
func validBaseConfig() *Config {
	cfg := DefaultConfig()
	cfg.RateLimiting.Enabled = true
	cfg.RateLimiting.HTTP.RequestsPerSecond = 10
	cfg.RateLimiting.HTTP.Burst = 20
	cfg.RateLimiting.HTTP.MaxConcurrent = 5
	cfg.RateLimiting.WebSocket.ConnectionsPerMinute = 60
	cfg.RateLimiting.WebSocket.EventsPerSecond = 50
	cfg.RateLimiting.WebSocket.Burst = 100
	cfg.RateLimiting.WebSocket.MaxConcurrent = 10
	return cfg
}

func TestDefaultConfig_IsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("expected default config to be valid, got: %v", err)
	}
}

func TestValidate_RateLimitingDisabled_AllowsZeroValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.HTTP.RequestsPerSecond = 0
	cfg.RateLimiting.HTTP.Burst = 0
	cfg.RateLimiting.WebSocket.ConnectionsPerMinute = 0
	cfg.RateLimiting.WebSocket.EventsPerSecond = 0
	cfg.RateLimiting.WebSocket.Burst = 0

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected config to be valid when rate limiting disabled, got error: %v", err)
	}
}

func TestValidate_InvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"http rps must be > 0", func(c *Config) { c.RateLimiting.HTTP.RequestsPerSecond = 0 }},
		{"http burst must be > 0", func(c *Config) { c.RateLimiting.HTTP.Burst = 0 }},
		{"ws events per second must be > 0", func(c *Config) { c.RateLimiting.WebSocket.EventsPerSecond = 0 }},
		{"ws max concurrent must be >= 0", func(c *Config) { c.RateLimiting.WebSocket.MaxConcurrent = -1 }},
		{"pong timeout must exceed ping interval", func(c *Config) { c.Realtime.PongTimeout = c.Realtime.PingInterval }},
		{"send buffer must be > 0", func(c *Config) { c.Realtime.SendBuffer = 0 }},
		{"auth timeout must be > 0", func(c *Config) { c.Realtime.AuthTimeout = 0 }},
		{"unknown database driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"postgres needs dsn", func(c *Config) { c.Database.Driver = "postgres"; c.Database.DSN = "" }},
		{"backplane needs redis", func(c *Config) { c.Backplane.Enabled = true; c.Redis.Enabled = false }},
		{"backplane retry attempts", func(c *Config) {
			c.Redis.Enabled = true
			c.Backplane.Enabled = true
			c.Backplane.PublishRetry.MaxAttempts = 0
		}},
		{"breaker open timeout", func(c *Config) {
			c.Redis.Enabled = true
			c.Backplane.Enabled = true
			c.Backplane.CircuitBreaker.OpenTimeout = 0
		}},
		{"presence needs redis", func(c *Config) { c.Presence.Enabled = true; c.Redis.Enabled = false }},
		{"tracing sample rate range", func(c *Config) { c.Tracing.Enabled = true; c.Tracing.SampleRate = 2 }},
		{"jwt secret required", func(c *Config) { c.Auth.JWTSecret = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validBaseConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error for case %q, got nil", tc.name)
			}
		})
	}
}

func TestValidate_BackplaneWithRedis(t *testing.T) {
	cfg := validBaseConfig()
	cfg.Redis.Enabled = true
	cfg.Backplane.Enabled = true
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got: %v", err)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Address != ":8080" {
		t.Fatalf("expected default address, got %s", cfg.Server.Address)
	}
}

func TestLoad_YAMLAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
server:
  address: ":9000"
realtime:
  ping_interval: 10s
  pong_timeout: 30s
logging:
  level: debug
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("EXPHUB_JWT_SECRET", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Address != ":9000" {
		t.Errorf("expected :9000, got %s", cfg.Server.Address)
	}
	if cfg.Realtime.PingInterval != 10*time.Second {
		t.Errorf("expected 10s ping interval, got %v", cfg.Realtime.PingInterval)
	}
	if cfg.Auth.JWTSecret != "from-env" {
		t.Errorf("expected env override for jwt secret, got %s", cfg.Auth.JWTSecret)
	}
	if cfg.Realtime.SendBuffer != 256 {
		t.Errorf("expected default send buffer to survive partial yaml, got %d", cfg.Realtime.SendBuffer)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}

func TestLoadFirst_SkipsMissingPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "etc", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	content := []byte("server:\n  address: \":7000\"\nrealtime:\n  auth_timeout: 2s\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, used, err := LoadFirst(filepath.Join(dir, "a.yaml"), filepath.Join(dir, "b.yaml"), path, filepath.Join(dir, "c.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if used != path {
		t.Errorf("expected %s to be used, got %q", path, used)
	}
	if cfg.Server.Address != ":7000" {
		t.Errorf("expected :7000, got %s", cfg.Server.Address)
	}
	if cfg.Realtime.AuthTimeout != 2*time.Second {
		t.Errorf("expected 2s auth timeout, got %v", cfg.Realtime.AuthTimeout)
	}
}

func TestLoadFirst_InvalidFileIsAnError(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(bad, []byte("database:\n  driver: mysql\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, used, err := LoadFirst(bad, filepath.Join(dir, "missing.yaml"))
	if err == nil {
		t.Fatal("expected an invalid existing file to fail instead of falling through")
	}
	if used != bad {
		t.Errorf("expected failing path %s, got %q", bad, used)
	}
}

func TestLoadFirst_NoFileAppliesEnvOverrides(t *testing.T) {
	t.Setenv("EXPHUB_JWT_SECRET", "from-env")
	t.Setenv("EXPHUB_SERVER_ADDRESS", ":6000")

	cfg, used, err := LoadFirst(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if used != "" {
		t.Errorf("expected no file, got %q", used)
	}
	if cfg.Auth.JWTSecret != "from-env" || cfg.Server.Address != ":6000" {
		t.Errorf("expected env overrides, got secret=%q address=%q", cfg.Auth.JWTSecret, cfg.Server.Address)
	}
	if cfg.Realtime.AuthTimeout != 5*time.Second {
		t.Errorf("expected default auth timeout, got %v", cfg.Realtime.AuthTimeout)
	}
}
