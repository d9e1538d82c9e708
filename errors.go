package goWarden

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/goWarden/store"
)

var (
	// ErrAuthenticationFailed is returned when an access or refresh token is
	// missing, empty, unknown or expired.
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrInvalidState is returned when a TTL operation is attempted before
	// authentication resolved to success.
	ErrInvalidState = errors.New("authentication not established")
	// ErrDuplicateScope is returned when a scope with the same canonical name is
	// already registered.
	ErrDuplicateScope = errors.New("scope already registered")
	// ErrInvalidScopeName is returned when a scope name is empty after
	// canonicalization.
	ErrInvalidScopeName = errors.New("invalid scope name")
	// ErrScopeNotFound is returned when a scope lookup by name fails.
	ErrScopeNotFound = errors.New("scope not found")
	// ErrMisconfiguredScope is returned when a code path needs a hook or option
	// the scope does not configure.
	ErrMisconfiguredScope = errors.New("scope misconfigured")
	// ErrRefreshTokenDisabled is returned by refresh-token operations on a scope
	// that disables refresh tokens. It matches ErrMisconfiguredScope.
	ErrRefreshTokenDisabled = fmt.Errorf("%w: refresh tokens disabled", ErrMisconfiguredScope)
	// ErrEngineNotReady is returned when the engine or one of its dependencies
	// is nil.
	ErrEngineNotReady = errors.New("engine not initialized")

	// ErrPoolExhausted is returned when no store connection became available in
	// time.
	ErrPoolExhausted = store.ErrPoolExhausted
	// ErrStoreUnavailable wraps any other store failure.
	ErrStoreUnavailable = store.ErrStoreUnavailable
)

// IsInfrastructureError reports whether err came from the token store rather
// than from invalid credentials.
func IsInfrastructureError(err error) bool {
	return errors.Is(err, ErrPoolExhausted) || errors.Is(err, ErrStoreUnavailable)
}
