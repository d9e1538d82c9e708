package goWarden

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// TokenStore is the subset of store operations the authentication state
// machine and token issuance need. *store.Store satisfies it.
type TokenStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) (bool, error)
	GetAndDelete(ctx context.Context, key string) (string, bool, error)
	TTL(ctx context.Context, key string) (time.Duration, bool, error)
	SetTTL(ctx context.Context, key, value string, ttl time.Duration) error
}

type resolution uint8

const (
	unresolved resolution = iota
	resolvedTrue
	resolvedFalse
)

// Authentication is the per-request view of one scope's credentials.
//
// The access path and the refresh path each resolve at most once per
// instance. A store failure leaves the path unresolved so a later call
// retries. An Authentication must not be shared between goroutines.
type Authentication struct {
	scope  *Scope
	source CredentialSource
	store  TokenStore
	engine *Engine

	authenticated resolution
	refreshable   resolution

	id                   string
	accessToken          string
	accessTokenKey       string
	valueForAccessToken  string
	valueForRefreshToken string

	owner       any
	ownerLoaded bool
}

// NewAuthentication binds scope and source to tokens. Most callers use
// Engine.NewAuthentication or Engine.AuthenticationFor instead.
func NewAuthentication(scope *Scope, source CredentialSource, tokens TokenStore) *Authentication {
	if source == nil {
		source = StaticCredentials{}
	}
	return &Authentication{
		scope:  scope,
		source: source,
		store:  tokens,
	}
}

// NewAuthentication returns an Authentication backed by the engine's store.
func (e *Engine) NewAuthentication(scope *Scope, source CredentialSource) *Authentication {
	a := NewAuthentication(scope, source, e.store)
	a.engine = e
	return a
}

// AuthenticationFor builds an Authentication over the credentials r carries
// for scope, using the scope's CredentialsFactory.
func (e *Engine) AuthenticationFor(scope *Scope, r *http.Request) *Authentication {
	return e.NewAuthentication(scope, scope.Credentials(r))
}

// Current returns the Authentication for scope memoized in r's context, or
// builds one. The result is memoized only when the context was prepared with
// WithAuthentications, as the middleware package does.
func (e *Engine) Current(r *http.Request, scope *Scope) *Authentication {
	if auth, ok := AuthenticationFromContext(r.Context(), scope.name); ok {
		return auth
	}
	auth := e.AuthenticationFor(scope, r)
	storeAuthentication(r.Context(), auth)
	return auth
}

// Scope returns the scope this authentication is bound to.
func (a *Authentication) Scope() *Scope { return a.scope }

// Credentials returns the bound credential source.
func (a *Authentication) Credentials() CredentialSource { return a.source }

// AccessTokenKey returns the store key derived during Authenticate, or "" if
// the access path has not run.
func (a *Authentication) AccessTokenKey() string { return a.accessTokenKey }

// Authenticate resolves the access path. It returns ErrAuthenticationFailed
// when the access token is missing, empty, unknown or expired. Store failures
// are returned unchanged and leave the result unresolved.
func (a *Authentication) Authenticate(ctx context.Context) error {
	switch a.authenticated {
	case resolvedTrue:
		return nil
	case resolvedFalse:
		return ErrAuthenticationFailed
	}
	if a.store == nil || a.scope == nil {
		return ErrEngineNotReady
	}

	start := time.Now()
	id, accessToken := a.source.RetrieveID(), a.source.RetrieveAccessToken()
	key := a.scope.KeyForAccessToken(id, accessToken)

	var (
		value string
		found bool
	)
	if accessToken != "" {
		v, ok, err := a.store.Get(ctx, key)
		if err != nil {
			a.engine.storeFailure(ctx, a.scope, "authenticate", err)
			return err
		}
		value, found = v, ok
	}
	a.accessTokenKey = key
	a.engine.metricObserve(MetricAuthenticateLatency, time.Since(start))

	if !found {
		a.authenticated = resolvedFalse
		a.engine.metricInc(MetricAuthenticateFailure)
		a.engine.emitAudit(ctx, auditEventAuthenticateFailure, a.scope.name, id, false, ErrAuthenticationFailed, nil)
		return ErrAuthenticationFailed
	}

	a.authenticated = resolvedTrue
	a.id = id
	a.accessToken = accessToken
	a.valueForAccessToken = value
	a.engine.metricInc(MetricAuthenticateSuccess)
	a.engine.emitAudit(ctx, auditEventAuthenticateSuccess, a.scope.name, id, true, nil, nil)
	return nil
}

// TryAuthenticate runs Authenticate and swallows ErrAuthenticationFailed,
// returning the receiver for inspection. Store failures are still returned.
func (a *Authentication) TryAuthenticate(ctx context.Context) (*Authentication, error) {
	if err := a.Authenticate(ctx); err != nil && !errors.Is(err, ErrAuthenticationFailed) {
		return a, err
	}
	return a, nil
}

// Authenticated reports whether the access path resolved to success.
func (a *Authentication) Authenticated(ctx context.Context) (bool, error) {
	if _, err := a.TryAuthenticate(ctx); err != nil {
		return false, err
	}
	return a.authenticated == resolvedTrue, nil
}

// ValidateRefreshToken resolves the refresh path. The refresh record is
// consumed by this call: a refresh token validates at most once across all
// instances and processes, whatever the caller does next.
//
// On a scope that disables refresh tokens it returns ErrRefreshTokenDisabled
// without touching the store.
func (a *Authentication) ValidateRefreshToken(ctx context.Context) error {
	if a.scope != nil && a.scope.cfg.DisableRefreshToken {
		return ErrRefreshTokenDisabled
	}
	switch a.refreshable {
	case resolvedTrue:
		return nil
	case resolvedFalse:
		return ErrAuthenticationFailed
	}
	if a.store == nil || a.scope == nil {
		return ErrEngineNotReady
	}

	id, refreshToken := a.source.RetrieveID(), a.source.RetrieveRefreshToken()
	key := a.scope.KeyForRefreshToken(id, refreshToken)

	var (
		value string
		found bool
	)
	if refreshToken != "" {
		v, ok, err := a.store.GetAndDelete(ctx, key)
		if err != nil {
			a.engine.storeFailure(ctx, a.scope, "validate_refresh_token", err)
			return err
		}
		value, found = v, ok
	}

	if !found {
		a.refreshable = resolvedFalse
		a.engine.metricInc(MetricRefreshFailure)
		a.engine.emitAudit(ctx, auditEventRefreshFailure, a.scope.name, id, false, ErrAuthenticationFailed, nil)
		return ErrAuthenticationFailed
	}

	a.refreshable = resolvedTrue
	a.id = id
	a.valueForRefreshToken = value
	a.engine.metricInc(MetricRefreshSuccess)
	a.engine.emitAudit(ctx, auditEventRefreshSuccess, a.scope.name, id, true, nil, nil)
	return nil
}

// TryValidateRefreshToken runs ValidateRefreshToken and swallows
// ErrAuthenticationFailed.
func (a *Authentication) TryValidateRefreshToken(ctx context.Context) (*Authentication, error) {
	if err := a.ValidateRefreshToken(ctx); err != nil && !errors.Is(err, ErrAuthenticationFailed) {
		return a, err
	}
	return a, nil
}

// Refreshable reports whether the refresh path resolved to success.
func (a *Authentication) Refreshable(ctx context.Context) (bool, error) {
	if _, err := a.TryValidateRefreshToken(ctx); err != nil {
		return false, err
	}
	return a.refreshable == resolvedTrue, nil
}

// ID returns the authenticated id. When the access path fails it falls back
// to the refresh path, which consumes the presented refresh token.
func (a *Authentication) ID(ctx context.Context) (string, error) {
	ok, err := a.Authenticated(ctx)
	if err != nil {
		return "", err
	}
	if ok {
		return a.id, nil
	}
	if a.scope.cfg.DisableRefreshToken {
		return "", ErrAuthenticationFailed
	}

	ok, err = a.Refreshable(ctx)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrAuthenticationFailed
	}
	return a.id, nil
}

// ValueForAccessToken returns the value stored with the presented access
// token.
func (a *Authentication) ValueForAccessToken(ctx context.Context) (string, error) {
	if err := a.Authenticate(ctx); err != nil {
		return "", err
	}
	return a.valueForAccessToken, nil
}

// ValueForRefreshToken returns the value that was stored with the presented
// refresh token.
func (a *Authentication) ValueForRefreshToken(ctx context.Context) (string, error) {
	if err := a.ValidateRefreshToken(ctx); err != nil {
		return "", err
	}
	return a.valueForRefreshToken, nil
}

// SignOut deletes the access token record of an authenticated session. It is
// a no-op when the session is not authenticated or the record is already
// gone. The paired refresh token, if any, stays valid until used or expired.
func (a *Authentication) SignOut(ctx context.Context) error {
	ok, err := a.Authenticated(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	if _, err := a.store.Delete(ctx, a.accessTokenKey); err != nil {
		a.engine.storeFailure(ctx, a.scope, "sign_out", err)
		return err
	}
	a.engine.metricInc(MetricSignOut)
	a.engine.emitAudit(ctx, auditEventSignOut, a.scope.name, a.id, true, nil, nil)
	return nil
}

// TTLForAccessToken returns the remaining lifetime of the access token
// record. It requires a resolved, successful Authenticate and returns
// ErrInvalidState otherwise. A record that vanished since authentication
// reports ErrAuthenticationFailed.
func (a *Authentication) TTLForAccessToken(ctx context.Context) (time.Duration, error) {
	if a.authenticated != resolvedTrue {
		return 0, ErrInvalidState
	}

	ttl, found, err := a.store.TTL(ctx, a.accessTokenKey)
	if err != nil {
		a.engine.storeFailure(ctx, a.scope, "ttl", err)
		return 0, err
	}
	if !found {
		return 0, ErrAuthenticationFailed
	}
	return ttl, nil
}

// SetTTLForAccessToken rewrites the access token record with its cached
// value and a new lifetime, extending or shortening the session.
func (a *Authentication) SetTTLForAccessToken(ctx context.Context, ttl time.Duration) error {
	if a.authenticated != resolvedTrue {
		return ErrInvalidState
	}
	if ttl <= 0 {
		return fmt.Errorf("%w: ttl must be > 0", ErrInvalidState)
	}

	if err := a.store.SetTTL(ctx, a.accessTokenKey, a.valueForAccessToken, ttl); err != nil {
		a.engine.storeFailure(ctx, a.scope, "set_ttl", err)
		return err
	}
	a.engine.metricInc(MetricTTLChanged)
	a.engine.emitAudit(ctx, auditEventTTLChanged, a.scope.name, a.id, true, nil, func() map[string]string {
		return map[string]string{"ttl": ttl.String()}
	})
	return nil
}

// Owner returns the principal produced by the scope's OwnerLoader for the
// authenticated id. The first successful load is memoized. A scope without
// a loader returns ErrMisconfiguredScope.
func (a *Authentication) Owner(ctx context.Context) (any, error) {
	if a.ownerLoaded {
		return a.owner, nil
	}
	loader := a.scope.cfg.LoadOwner
	if loader == nil {
		return nil, fmt.Errorf("%w: no owner loader for scope %s", ErrMisconfiguredScope, a.scope.name)
	}

	id, err := a.ID(ctx)
	if err != nil {
		return nil, err
	}
	value, err := a.ValueForAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	owner, err := loader(ctx, id, value, a)
	if err != nil {
		return nil, err
	}
	a.owner, a.ownerLoaded = owner, true
	return owner, nil
}
