package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const getAndDeleteScript = `
local value = redis.call("GET", KEYS[1])
if value then
  redis.call("DEL", KEYS[1])
end
return value
`

var getAndDeleteLua = redis.NewScript(getAndDeleteScript)

// ConnFunc runs commands on a single pooled connection.
type ConnFunc func(ctx context.Context, conn *redis.Conn) error

// Stats reports failover and pool counters accumulated by a [Store].
type Stats struct {
	Reconnects    uint64
	Retries       uint64
	PoolExhausted uint64
	Failures      uint64
}

// Store is a pooled, failover-aware key/value store with per-key TTL.
//
// A Store is safe for concurrent use.
type Store struct {
	client    *redis.Client
	namespace string
	timeout   time.Duration
	attempts  int
	logger    zerolog.Logger

	reconnects    atomic.Uint64
	retries       atomic.Uint64
	poolExhausted atomic.Uint64
	failures      atomic.Uint64
}

// Option customizes a [Store].
type Option func(*Store)

// WithLogger sets the logger used for failover and pool diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithOperationTimeout bounds every operation whose context carries no
// deadline of its own.
func WithOperationTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.timeout = d
	}
}

// WithReconnectAttempts sets how many times an operation that failed with a
// network error is re-run on a fresh connection. Zero disables the retry.
func WithReconnectAttempts(n int) Option {
	return func(s *Store) {
		if n < 0 {
			n = 0
		}
		s.attempts = n
	}
}

// NewStore wraps client. namespace, when non-empty, prefixes every key as
// "namespace:key".
func NewStore(client *redis.Client, namespace string, opts ...Option) *Store {
	s := &Store{
		client:    client,
		namespace: namespace,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Open builds a client from o and wraps it in a Store.
func Open(o Options, lookup func(string) string, opts ...Option) (*Store, error) {
	client, err := NewClient(o, lookup)
	if err != nil {
		return nil, err
	}
	o = o.WithDefaults()
	opts = append([]Option{WithReconnectAttempts(o.ReconnectAttempts)}, opts...)
	if o.OperationTimeout > 0 {
		opts = append([]Option{WithOperationTimeout(o.OperationTimeout)}, opts...)
	}
	return NewStore(client, o.Namespace, opts...), nil
}

// Client returns the underlying go-redis client.
func (s *Store) Client() *redis.Client {
	return s.client
}

// Namespace returns the key prefix applied by this store.
func (s *Store) Namespace() string {
	return s.namespace
}

// Key returns the physical Redis key for key.
func (s *Store) Key(key string) string {
	if s.namespace == "" {
		return key
	}
	return s.namespace + ":" + key
}

// Stats returns a point-in-time copy of the store counters.
func (s *Store) Stats() Stats {
	return Stats{
		Reconnects:    s.reconnects.Load(),
		Retries:       s.retries.Load(),
		PoolExhausted: s.poolExhausted.Load(),
		Failures:      s.failures.Load(),
	}
}

// WithConnection acquires a pooled connection, runs fn on it and releases the
// connection on every exit path, including a panic in fn.
//
// When fn fails with a READONLY reply the connection is dropped, a fresh one
// is acquired and fn runs one more time. A second READONLY is returned wrapped
// in ErrStoreUnavailable. A network error (broken or refused connection) is
// retried on a fresh connection up to the configured reconnect attempts. Pool
// wait timeouts are returned as ErrPoolExhausted without a retry. Other errors
// from fn are returned unchanged.
func (s *Store) WithConnection(ctx context.Context, fn ConnFunc) error {
	if fn == nil {
		return errors.New("store: nil connection func")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, cancel := s.operationContext(ctx)
	defer cancel()

	retryable := true
	attempts := s.attempts
	for {
		err := s.run(ctx, fn)
		if err == nil {
			return nil
		}

		if IsReadOnly(err) {
			if retryable {
				retryable = false
				s.reconnects.Add(1)
				s.logger.Warn().Err(err).Msg("store: connection bound to read-only replica, reconnecting")
				continue
			}
			s.failures.Add(1)
			s.logger.Error().Err(err).Msg("store: read-only reply persisted after reconnect")
			return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}

		if errors.Is(err, redis.ErrPoolTimeout) {
			s.poolExhausted.Add(1)
			s.logger.Warn().Err(err).Msg("store: connection pool exhausted")
			return fmt.Errorf("%w: %v", ErrPoolExhausted, err)
		}

		if attempts > 0 && ctx.Err() == nil && isNetworkError(err) {
			attempts--
			s.retries.Add(1)
			s.logger.Warn().Err(err).Msg("store: network error, retrying on a fresh connection")
			continue
		}

		return err
	}
}

// isNetworkError reports whether err came from the transport rather than from
// a server reply, a deadline or the pool.
func isNetworkError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, redis.ErrPoolTimeout) {
		return false
	}
	var reply redis.Error
	if errors.As(err, &reply) {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return !nerr.Timeout()
	}
	return false
}

func (s *Store) run(ctx context.Context, fn ConnFunc) error {
	conn := s.client.Conn()
	defer conn.Close()

	return fn(ctx, conn)
}

func (s *Store) operationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Get returns the value stored at key. found is false when the key does not
// exist or has expired.
func (s *Store) Get(ctx context.Context, key string) (value string, found bool, err error) {
	err = s.WithConnection(ctx, func(ctx context.Context, conn *redis.Conn) error {
		v, err := conn.Get(ctx, s.Key(key)).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return nil
			}
			return err
		}
		value, found = v, true
		return nil
	})
	if err != nil {
		return "", false, s.unavailable(err)
	}
	return value, found, nil
}

// Set writes value at key with the given TTL.
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	err := s.WithConnection(ctx, func(ctx context.Context, conn *redis.Conn) error {
		return conn.Set(ctx, s.Key(key), value, ttl).Err()
	})
	return s.unavailable(err)
}

// SetTTL rewrites key with value and a new TTL. It is a plain SET with
// expiry; the previous TTL is discarded.
func (s *Store) SetTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.Set(ctx, key, value, ttl)
}

// Delete removes key and reports whether it existed. Deleting a missing key
// is not an error.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	var removed int64
	err := s.WithConnection(ctx, func(ctx context.Context, conn *redis.Conn) error {
		n, err := conn.Del(ctx, s.Key(key)).Result()
		removed = n
		return err
	})
	if err != nil {
		return false, s.unavailable(err)
	}
	return removed > 0, nil
}

// GetAndDelete atomically reads and removes key. Of any number of concurrent
// callers for the same key at most one observes found == true.
func (s *Store) GetAndDelete(ctx context.Context, key string) (value string, found bool, err error) {
	err = s.WithConnection(ctx, func(ctx context.Context, conn *redis.Conn) error {
		v, err := getAndDeleteLua.Run(ctx, conn, []string{s.Key(key)}).Text()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return nil
			}
			return err
		}
		value, found = v, true
		return nil
	})
	if err != nil {
		return "", false, s.unavailable(err)
	}
	return value, found, nil
}

// TTL returns the remaining lifetime of key. found is false when the key does
// not exist. A key without expiry reports a zero duration.
func (s *Store) TTL(ctx context.Context, key string) (ttl time.Duration, found bool, err error) {
	err = s.WithConnection(ctx, func(ctx context.Context, conn *redis.Conn) error {
		d, err := conn.TTL(ctx, s.Key(key)).Result()
		if err != nil {
			return err
		}
		switch d {
		case -2:
			return nil
		case -1:
			ttl, found = 0, true
		default:
			ttl, found = d, true
		}
		return nil
	})
	if err != nil {
		return 0, false, s.unavailable(err)
	}
	return ttl, found, nil
}

// Ping checks Redis availability and returns the round-trip latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	err := s.WithConnection(ctx, func(ctx context.Context, conn *redis.Conn) error {
		return conn.Ping(ctx).Err()
	})
	return time.Since(start), s.unavailable(err)
}

// Close closes the underlying client and its pool.
func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *Store) unavailable(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrPoolExhausted) || errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	s.failures.Add(1)
	s.logger.Debug().Err(err).Msg("store: command failed")
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
