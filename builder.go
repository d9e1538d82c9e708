package goWarden

import (
	"errors"
	"os"

	"github.com/MrEthical07/goWarden/store"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Builder assembles an Engine.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config

	redis  *redis.Client
	tokens TokenStore
	lookup func(string) string

	registry  *Registry
	logger    *zerolog.Logger
	auditSink AuditSink

	built bool
}

// New describes the new operation and its observable behavior.
//
// New returns a builder seeded with DefaultConfig, the default registry and
// a no-op logger. Nothing is connected until Build.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
		lookup: os.Getenv,
	}
}

// WithConfig replaces the builder configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis makes the engine wrap client in a failover-aware store instead of
// opening one from Config.Store. The caller keeps ownership of client and
// Engine.Close leaves it open.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithTokenStore uses tokens directly, bypassing Redis configuration.
func (b *Builder) WithTokenStore(tokens TokenStore) *Builder {
	b.tokens = tokens
	return b
}

// WithEnv sets the environment lookup used to resolve the Redis URL when
// neither a client nor a URL is configured.
func (b *Builder) WithEnv(lookup func(string) string) *Builder {
	b.lookup = lookup
	return b
}

// WithRegistry sets the registry scopes are resolved from. Defaults to
// DefaultRegistry.
func (b *Builder) WithRegistry(r *Registry) *Builder {
	b.registry = r
	return b
}

// WithLogger sets the engine logger. Defaults to a disabled logger.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = &logger
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink sets the destination of audit events. The sink only receives
// events when Audit.Enabled is set. Delivery is asynchronous; on a full queue
// events are dropped when Audit.DropIfFull is set and the caller waits
// otherwise.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the authenticate latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when the configuration is invalid or the Redis
// client cannot be configured. A builder can be used once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := zerolog.Nop()
	if b.logger != nil {
		logger = *b.logger
	}

	registry := b.registry
	if registry == nil {
		registry = DefaultRegistry
	}

	engine := &Engine{
		config:   cfg,
		registry: registry,
		logger:   logger,
		metrics:  NewMetrics(cfg.Metrics),
	}

	storeOpts := []store.Option{
		store.WithLogger(logger.With().Str("component", "store").Logger()),
		store.WithOperationTimeout(cfg.Store.OperationTimeout),
	}

	switch {
	case b.tokens != nil:
		engine.store = b.tokens
		if s, ok := b.tokens.(*store.Store); ok {
			engine.backend = s
		}
	case b.redis != nil:
		s := store.NewStore(b.redis, cfg.Store.Namespace, storeOpts...)
		engine.store, engine.backend = s, s
	default:
		s, err := store.Open(cfg.Store.options(), b.lookup, storeOpts...)
		if err != nil {
			return nil, err
		}
		engine.store, engine.backend, engine.owned = s, s, true
	}

	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink, logger)

	b.built = true

	logger.Debug().
		Str("namespace", cfg.Store.Namespace).
		Bool("metrics", cfg.Metrics.Enabled).
		Bool("audit", cfg.Audit.Enabled).
		Msg("warden engine built")

	return engine, nil
}
