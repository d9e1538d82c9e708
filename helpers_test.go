package goWarden

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func newTestRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

// newTestEngine builds an engine over miniredis with a private registry and
// metrics turned on.
func newTestEngine(t testing.TB) (*Engine, *miniredis.Miniredis) {
	t.Helper()

	mr, rdb := newTestRedis(t)
	engine, err := New().
		WithRedis(rdb).
		WithRegistry(NewRegistry(zerolog.Nop())).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(func() { _ = engine.Close() })
	return engine, mr
}

func mustRegister(t testing.TB, e *Engine, name string, cfg ScopeConfig) *Scope {
	t.Helper()
	scope, err := e.Register(name, cfg)
	if err != nil {
		t.Fatalf("register %q: %v", name, err)
	}
	return scope
}

// stubStore is an in-memory TokenStore that counts calls and can fail on
// demand.
type stubStore struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration

	gets          int
	getAndDeletes int
	deletes       int
	sets          int

	err error
	// setErr fails every Set from the failSetFrom-th call on.
	setErr      error
	failSetFrom int
}

func newStubStore() *stubStore {
	return &stubStore{
		data: make(map[string]string),
		ttls: make(map[string]time.Duration),
	}
}

func (s *stubStore) failWith(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *stubStore) failSetsFrom(n int, err error) {
	s.mu.Lock()
	s.failSetFrom, s.setErr = n, err
	s.mu.Unlock()
}

func (s *stubStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if s.err != nil {
		return "", false, s.err
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *stubStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets++
	if s.err != nil {
		return s.err
	}
	if s.setErr != nil && s.sets >= s.failSetFrom {
		return s.setErr
	}
	s.data[key] = value
	s.ttls[key] = ttl
	return nil
}

func (s *stubStore) SetTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.Set(ctx, key, value, ttl)
}

func (s *stubStore) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	if s.err != nil {
		return false, s.err
	}
	_, ok := s.data[key]
	delete(s.data, key)
	delete(s.ttls, key)
	return ok, nil
}

func (s *stubStore) GetAndDelete(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getAndDeletes++
	if s.err != nil {
		return "", false, s.err
	}
	v, ok := s.data[key]
	delete(s.data, key)
	delete(s.ttls, key)
	return v, ok, nil
}

func (s *stubStore) TTL(_ context.Context, key string) (time.Duration, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, false, s.err
	}
	ttl, ok := s.ttls[key]
	return ttl, ok, nil
}

func (s *stubStore) counts() (gets, getAndDeletes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets, s.getAndDeletes
}

func newStubEngine(t *testing.T) (*Engine, *stubStore) {
	t.Helper()

	stub := newStubStore()
	engine, err := New().
		WithTokenStore(stub).
		WithRegistry(NewRegistry(zerolog.Nop())).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(func() { _ = engine.Close() })
	return engine, stub
}

func nopLogger() zerolog.Logger { return zerolog.Nop() }
