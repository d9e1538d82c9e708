package goWarden

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// Registry maps canonical scope names to scopes.
//
// Lookups are safe under concurrent use. Register and Remove are expected at
// startup, shutdown or test teardown; callers mutating a registry during live
// traffic must serialize those calls themselves.
type Registry struct {
	mu     sync.RWMutex
	scopes map[string]*Scope
	logger zerolog.Logger
}

// NewRegistry returns an empty registry that logs registrations to logger.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		scopes: make(map[string]*Scope),
		logger: logger,
	}
}

// DefaultRegistry is the process-wide registry used by the package-level
// Register, RemoveScope and FindScope functions.
var DefaultRegistry = NewRegistry(zerolog.Nop())

// Register builds a scope from cfg and stores it under its canonical name.
//
// Register returns ErrDuplicateScope when the canonical name is taken and
// ErrInvalidScopeName when name does not canonicalize to a usable name.
func (r *Registry) Register(name string, cfg ScopeConfig) (*Scope, error) {
	scope, err := NewScope(name, cfg)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.scopes[scope.name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateScope, scope.name)
	}
	r.scopes[scope.name] = scope

	r.logger.Info().
		Str("scope", scope.name).
		Bool("refresh_token", !scope.cfg.DisableRefreshToken).
		Dur("access_ttl", scope.cfg.AccessTokenTTL).
		Dur("refresh_ttl", scope.cfg.RefreshTokenTTL).
		Msg("scope registered")

	return scope, nil
}

// Remove deletes the scope registered under name and reports whether one
// existed.
func (r *Registry) Remove(name string) bool {
	canonical := CanonicalScopeName(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.scopes[canonical]; !ok {
		return false
	}
	delete(r.scopes, canonical)
	r.logger.Info().Str("scope", canonical).Msg("scope removed")
	return true
}

// Find returns the scope registered under name.
func (r *Registry) Find(name string) (*Scope, bool) {
	canonical := CanonicalScopeName(name)

	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.scopes[canonical]
	return s, ok
}

// MustFind is like Find but returns ErrScopeNotFound for unknown names.
func (r *Registry) MustFind(name string) (*Scope, error) {
	s, ok := r.Find(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrScopeNotFound, CanonicalScopeName(name))
	}
	return s, nil
}

// Names returns the registered canonical names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.scopes))
	for name := range r.scopes {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Len returns the number of registered scopes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.scopes)
}

// Register adds a scope to DefaultRegistry.
func Register(name string, cfg ScopeConfig) (*Scope, error) {
	return DefaultRegistry.Register(name, cfg)
}

// RemoveScope removes a scope from DefaultRegistry.
func RemoveScope(name string) bool {
	return DefaultRegistry.Remove(name)
}

// FindScope looks up a scope in DefaultRegistry.
func FindScope(name string) (*Scope, bool) {
	return DefaultRegistry.Find(name)
}
