package store

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultPoolSize is the number of pooled connections per client.
	DefaultPoolSize = 5
	// DefaultPoolTimeout bounds the wait for a free pooled connection.
	DefaultPoolTimeout = time.Second
	// DefaultReconnectAttempts is the number of times a Store re-runs an
	// operation that failed with a network error. Driver retries are off so a
	// pool wait is never repeated.
	DefaultReconnectAttempts = 1
	// DefaultProviderEnv names the variable that, when set, holds the name of
	// the variable carrying the Redis URL.
	DefaultProviderEnv = "REDIS_PROVIDER"
	// DefaultURLEnv is the variable read when no provider is configured.
	DefaultURLEnv = "REDIS_URL"
)

// ErrNoURL is returned when no Redis URL was configured or resolvable.
var ErrNoURL = errors.New("redis url not configured")

// Options configures the Redis client backing a [Store].
//
// Zero values fall back to the package defaults.
type Options struct {
	URL               string
	ProviderEnv       string
	Namespace         string
	PoolSize          int
	PoolTimeout       time.Duration
	NetworkTimeout    time.Duration
	ReconnectAttempts int
	OperationTimeout  time.Duration
}

// WithDefaults returns a copy of o with zero fields replaced by defaults.
func (o Options) WithDefaults() Options {
	if o.ProviderEnv == "" {
		o.ProviderEnv = DefaultProviderEnv
	}
	if o.PoolSize <= 0 {
		o.PoolSize = DefaultPoolSize
	}
	if o.PoolTimeout <= 0 {
		o.PoolTimeout = DefaultPoolTimeout
	}
	if o.ReconnectAttempts <= 0 {
		o.ReconnectAttempts = DefaultReconnectAttempts
	}
	return o
}

// ResolveURL finds the Redis URL through the provider indirection: the
// variable named by providerEnv (default REDIS_PROVIDER) holds the name of the
// variable that carries the URL; without it REDIS_URL is read directly.
// lookup defaults to os.Getenv.
func ResolveURL(providerEnv string, lookup func(string) string) string {
	if lookup == nil {
		lookup = os.Getenv
	}
	if providerEnv == "" {
		providerEnv = DefaultProviderEnv
	}

	name := strings.TrimSpace(lookup(providerEnv))
	if name == "" {
		name = DefaultURLEnv
	}
	return strings.TrimSpace(lookup(name))
}

// ClientOptions translates o into go-redis options. The URL is taken from o.URL
// or, when empty, resolved through [ResolveURL].
func (o Options) ClientOptions(lookup func(string) string) (*redis.Options, error) {
	o = o.WithDefaults()

	url := o.URL
	if url == "" {
		url = ResolveURL(o.ProviderEnv, lookup)
	}
	if url == "" {
		return nil, ErrNoURL
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opts.PoolSize = o.PoolSize
	opts.PoolTimeout = o.PoolTimeout
	opts.MaxRetries = -1
	if o.NetworkTimeout > 0 {
		opts.ReadTimeout = o.NetworkTimeout
		opts.WriteTimeout = o.NetworkTimeout
	}

	return opts, nil
}

// NewClient builds a go-redis client from o.
func NewClient(o Options, lookup func(string) string) (*redis.Client, error) {
	opts, err := o.ClientOptions(lookup)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opts), nil
}
