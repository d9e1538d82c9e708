// Package goWarden provides scoped, opaque-token authentication backed by
// Redis.
//
// A scope ("user", "admin", ...) is registered once with its token lifetimes
// and hooks. Issuing a token stores a record under
// "{scope}_{id}_access_token_{token}" (or "_refresh_token_") with the scope's
// TTL; authenticating a request is a single lookup of that key. Refresh
// tokens are consumed atomically on first use.
//
// # Architecture boundaries
//
// [Engine] owns the token store, metrics and audit plumbing and is safe for
// concurrent use after [Builder.Build]. [Registry] maps scope names to
// immutable [Scope] values. [Authentication] is request scoped: it memoizes
// the access and refresh decisions for one request and must not be shared
// between goroutines.
//
// The store layer lives in the store sub-package, token minting in token, and
// net/http integration in middleware.
//
// # Errors
//
// Invalid credentials surface as [ErrAuthenticationFailed]. Store faults
// surface as [ErrPoolExhausted] or [ErrStoreUnavailable] and never resolve an
// Authentication, so a retry on the same instance reaches the store again.
package goWarden
