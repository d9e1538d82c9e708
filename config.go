package goWarden

import (
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/goWarden/store"
)

// Config is the engine configuration.
//
// Config values are copied into the engine at Build time and treated as
// immutable afterwards.
type Config struct {
	Store   StoreConfig   `yaml:"store"`
	Tokens  TokenConfig   `yaml:"tokens"`
	Audit   AuditConfig   `yaml:"audit"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreConfig configures the Redis connection factory. It is only consulted
// when the builder is not handed a client or a TokenStore.
type StoreConfig struct {
	// URL is the Redis URL. When empty it is resolved from the environment
	// through ProviderEnv (default REDIS_PROVIDER) and then REDIS_URL.
	URL         string `yaml:"url"`
	ProviderEnv string `yaml:"provider_env"`
	// Namespace prefixes every key as "namespace:key".
	Namespace         string        `yaml:"namespace"`
	PoolSize          int           `yaml:"pool_size"`
	PoolTimeout       time.Duration `yaml:"pool_timeout"`
	NetworkTimeout    time.Duration `yaml:"network_timeout"`
	ReconnectAttempts int           `yaml:"reconnect_attempts"`
	// OperationTimeout bounds store calls whose context carries no deadline.
	OperationTimeout time.Duration `yaml:"operation_timeout"`
}

func (c StoreConfig) options() store.Options {
	return store.Options{
		URL:               c.URL,
		ProviderEnv:       c.ProviderEnv,
		Namespace:         c.Namespace,
		PoolSize:          c.PoolSize,
		PoolTimeout:       c.PoolTimeout,
		NetworkTimeout:    c.NetworkTimeout,
		ReconnectAttempts: c.ReconnectAttempts,
		OperationTimeout:  c.OperationTimeout,
	}
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig sets the length of minted tokens in characters.
type TokenConfig struct {
	AccessTokenLength  int `yaml:"access_token_length"`
	RefreshTokenLength int `yaml:"refresh_token_length"`
}

/*
====================================
AUDIT / METRICS / LOG CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

// MetricsConfig controls in-process counters and the authenticate latency
// histogram.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

// LogConfig configures the zerolog logger built by NewLogger.
type LogConfig struct {
	// Level is a zerolog level name: trace, debug, info, warn, error, disabled.
	Level string `yaml:"level"`
	// Format is "json" or "console".
	Format string `yaml:"format"`
	// File, when set, routes output through a rotating file.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Store: StoreConfig{
			ProviderEnv:       store.DefaultProviderEnv,
			PoolSize:          store.DefaultPoolSize,
			PoolTimeout:       store.DefaultPoolTimeout,
			ReconnectAttempts: store.DefaultReconnectAttempts,
		},
		Tokens: TokenConfig{
			AccessTokenLength:  20,
			RefreshTokenLength: 30,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Validate reports the first invalid field of c.
func (c *Config) Validate() error {
	// Store
	if c.Store.PoolSize <= 0 {
		return errors.New("Store PoolSize must be > 0")
	}
	if c.Store.PoolTimeout <= 0 {
		return errors.New("Store PoolTimeout must be > 0")
	}
	if c.Store.NetworkTimeout < 0 {
		return errors.New("Store NetworkTimeout must be >= 0")
	}
	if c.Store.ReconnectAttempts < 0 {
		return errors.New("Store ReconnectAttempts must be >= 0")
	}
	if c.Store.OperationTimeout < 0 {
		return errors.New("Store OperationTimeout must be >= 0")
	}
	if strings.ContainsAny(c.Store.Namespace, " \t\r\n") {
		return errors.New("Store Namespace must not contain whitespace")
	}

	// Tokens
	if c.Tokens.AccessTokenLength < 8 {
		return errors.New("Tokens AccessTokenLength must be >= 8")
	}
	if c.Tokens.RefreshTokenLength < 8 {
		return errors.New("Tokens RefreshTokenLength must be >= 8")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	// Log
	switch strings.ToLower(c.Log.Format) {
	case "", "json", "console":
	default:
		return errors.New("Log Format must be 'json' or 'console'")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return errors.New("Log Level is invalid")
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		return errors.New("Log rotation limits must be >= 0")
	}

	return nil
}
