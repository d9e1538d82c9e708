package goWarden

import (
	"context"
	"time"

	"github.com/MrEthical07/goWarden/store"
	"github.com/rs/zerolog"
)

// Engine ties a scope registry to a token store and carries the ambient
// metrics, audit and logging plumbing.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config   Config
	registry *Registry
	store    TokenStore
	backend  *store.Store
	owned    bool
	logger   zerolog.Logger
	metrics  *Metrics
	audit    *auditDispatcher
}

// Close describes the close operation and its observable behavior.
//
// Close flushes pending audit events and, when the engine opened its own
// Redis client from configuration, closes that client.
func (e *Engine) Close() error {
	if e == nil {
		return nil
	}
	if e.audit != nil {
		e.audit.Close()
	}
	if e.owned && e.backend != nil {
		return e.backend.Close()
	}
	return nil
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return e.config
}

// Registry returns the scope registry the engine resolves names against.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Logger returns the engine logger.
func (e *Engine) Logger() zerolog.Logger {
	return e.logger
}

// Store returns the token store backing the engine.
func (e *Engine) Store() TokenStore {
	return e.store
}

// Register describes the register operation and its observable behavior.
//
// Register adds a scope to the engine's registry. It may return
// ErrDuplicateScope or ErrInvalidScopeName.
func (e *Engine) Register(name string, cfg ScopeConfig) (*Scope, error) {
	if e == nil || e.registry == nil {
		return nil, ErrEngineNotReady
	}
	return e.registry.Register(name, cfg)
}

// Scope describes the scope operation and its observable behavior.
//
// Scope looks name up in the engine's registry and returns the registered
// scope. It returns ErrScopeNotFound when name is not registered and
// ErrEngineNotReady on an engine that was not built.
func (e *Engine) Scope(name string) (*Scope, error) {
	if e == nil || e.registry == nil {
		return nil, ErrEngineNotReady
	}
	return e.registry.MustFind(name)
}

// Ping reports store round-trip latency. Stores that cannot be pinged report
// zero.
func (e *Engine) Ping(ctx context.Context) (time.Duration, error) {
	if e == nil || e.store == nil {
		return 0, ErrEngineNotReady
	}
	p, ok := e.store.(interface {
		Ping(ctx context.Context) (time.Duration, error)
	})
	if !ok {
		return 0, nil
	}
	return p.Ping(ctx)
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped returns the number of audit events discarded because the
// dispatcher queue was full. It is zero when auditing is disabled.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot returns a copy of the engine counters and latency
// histograms. Store reconnects (read-only failovers and network retries) and
// pool exhaustion counters are read from the backing store at snapshot time.
// A disabled metrics layer yields empty maps.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	snap := e.metrics.Snapshot()
	if e.metrics.Enabled() && e.backend != nil {
		stats := e.backend.Stats()
		snap.Counters[MetricStoreReconnect] += stats.Reconnects + stats.Retries
		snap.Counters[MetricStorePoolExhausted] += stats.PoolExhausted
	}
	return snap
}
