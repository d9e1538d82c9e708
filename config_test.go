package goWarden

import (
	"testing"
	"time"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Store.PoolSize != 5 || cfg.Store.PoolTimeout != time.Second || cfg.Store.ReconnectAttempts != 1 {
		t.Fatalf("unexpected store defaults: %+v", cfg.Store)
	}
	if cfg.Tokens.AccessTokenLength != 20 || cfg.Tokens.RefreshTokenLength != 30 {
		t.Fatalf("unexpected token defaults: %+v", cfg.Tokens)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "pool size zero",
			mutate:    func(c *Config) { c.Store.PoolSize = 0 },
			wantValid: false,
		},
		{
			name:      "pool timeout zero",
			mutate:    func(c *Config) { c.Store.PoolTimeout = 0 },
			wantValid: false,
		},
		{
			name:      "negative network timeout",
			mutate:    func(c *Config) { c.Store.NetworkTimeout = -time.Second },
			wantValid: false,
		},
		{
			name:      "negative reconnect attempts",
			mutate:    func(c *Config) { c.Store.ReconnectAttempts = -1 },
			wantValid: false,
		},
		{
			name:      "namespace with space",
			mutate:    func(c *Config) { c.Store.Namespace = "my app" },
			wantValid: false,
		},
		{
			name:      "namespace valid",
			mutate:    func(c *Config) { c.Store.Namespace = "myapp" },
			wantValid: true,
		},
		{
			name:      "short access token",
			mutate:    func(c *Config) { c.Tokens.AccessTokenLength = 4 },
			wantValid: false,
		},
		{
			name:      "audit enabled without buffer",
			mutate:    func(c *Config) { c.Audit.Enabled = true; c.Audit.BufferSize = 0 },
			wantValid: false,
		},
		{
			name:      "histograms without metrics",
			mutate:    func(c *Config) { c.Metrics.EnableLatencyHistograms = true },
			wantValid: false,
		},
		{
			name:      "log format console",
			mutate:    func(c *Config) { c.Log.Format = "console" },
			wantValid: true,
		},
		{
			name:      "log format xml",
			mutate:    func(c *Config) { c.Log.Format = "xml" },
			wantValid: false,
		},
		{
			name:      "log level bogus",
			mutate:    func(c *Config) { c.Log.Level = "loud" },
			wantValid: false,
		},
		{
			name:      "log level debug",
			mutate:    func(c *Config) { c.Log.Level = "DEBUG" },
			wantValid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store.PoolSize = 0
	if _, err := New().WithConfig(cfg).WithTokenStore(newStubStore()).Build(); err == nil {
		t.Fatal("expected Build to reject invalid config")
	}
}

func TestBuilderSingleUse(t *testing.T) {
	b := New().WithTokenStore(newStubStore()).WithRegistry(NewRegistry(nopLogger()))
	if _, err := b.Build(); err != nil {
		t.Fatalf("first Build: %v", err)
	}
	if _, err := b.Build(); err == nil {
		t.Fatal("second Build must fail")
	}
}

func TestBuildResolvesRedisURLFromEnv(t *testing.T) {
	mr, _ := newTestRedis(t)
	env := map[string]string{
		"REDIS_PROVIDER": "MY_REDIS",
		"MY_REDIS":       "redis://" + mr.Addr() + "/0",
	}

	engine, err := New().
		WithEnv(func(k string) string { return env[k] }).
		WithRegistry(NewRegistry(nopLogger())).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer engine.Close()

	if _, err := engine.Ping(t.Context()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestBuildWithoutRedisURL(t *testing.T) {
	_, err := New().WithEnv(func(string) string { return "" }).Build()
	if err == nil {
		t.Fatal("expected Build to fail without a Redis URL")
	}
}
