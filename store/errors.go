package store

import (
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrPoolExhausted is returned when no pooled connection became available
	// within the configured pool timeout.
	ErrPoolExhausted = errors.New("store connection pool exhausted")
	// ErrStoreUnavailable wraps every other Redis or network failure,
	// including a READONLY reply that persisted across the failover retry.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrInvalidTTL is returned when a write is attempted without a positive TTL.
	ErrInvalidTTL = errors.New("store ttl must be > 0")
)

// IsReadOnly reports whether err is a Redis READONLY reply, i.e. the
// connection is talking to a replica.
func IsReadOnly(err error) bool {
	if err == nil {
		return false
	}
	var rerr redis.Error
	if !errors.As(err, &rerr) {
		return false
	}
	return strings.HasPrefix(rerr.Error(), "READONLY")
}
