package goWarden

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jinzhu/inflection"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// DefaultAccessTokenTTL is the access token lifetime used when a scope
	// does not configure one.
	DefaultAccessTokenTTL = 7 * 24 * time.Hour
	// DefaultRefreshTokenTTL is the refresh token lifetime used when a scope
	// does not configure one.
	DefaultRefreshTokenTTL = 14 * 24 * time.Hour
)

// ValueFunc derives the stored value for a freshly minted token. args are the
// extra arguments passed to the issuing call.
type ValueFunc func(token string, args ...any) (string, error)

// HookFunc is invoked by the HTTP integration layer after an authentication or
// refresh decision. The core state machine never calls hooks itself.
type HookFunc func(w http.ResponseWriter, r *http.Request, auth *Authentication)

// OwnerLoader resolves the application principal for an authenticated id and
// its access token value.
type OwnerLoader func(ctx context.Context, id, value string, auth *Authentication) (any, error)

// ScopeConfig is the set of options accepted by a scope. Zero fields fall back
// to defaults when the scope is constructed.
type ScopeConfig struct {
	// Credentials builds the credential source for each request. Defaults to
	// HeaderCredentialsFactory.
	Credentials CredentialsFactory
	// DisableRefreshToken turns off every refresh-token operation for the scope.
	DisableRefreshToken bool
	AccessTokenTTL      time.Duration
	RefreshTokenTTL     time.Duration

	ValueForAccessToken  ValueFunc
	ValueForRefreshToken ValueFunc

	OnAuthenticateFailed  HookFunc
	OnAuthenticateSuccess HookFunc
	OnRefreshFailed       HookFunc

	LoadOwner OwnerLoader
}

// Scope is an immutable, named authentication domain.
type Scope struct {
	name   string
	header string
	cfg    ScopeConfig
}

// NewScope canonicalizes name and applies defaults to cfg.
//
// NewScope returns ErrInvalidScopeName when the canonical name is empty or
// contains characters that cannot appear in a header name or store key
// segment. Negative TTLs are rejected with ErrMisconfiguredScope.
func NewScope(name string, cfg ScopeConfig) (*Scope, error) {
	canonical := CanonicalScopeName(name)
	if err := validateScopeName(canonical); err != nil {
		return nil, err
	}
	if cfg.AccessTokenTTL < 0 || cfg.RefreshTokenTTL < 0 {
		return nil, fmt.Errorf("%w: token ttl must be >= 0", ErrMisconfiguredScope)
	}

	if cfg.Credentials == nil {
		cfg.Credentials = HeaderCredentialsFactory
	}
	if cfg.AccessTokenTTL == 0 {
		cfg.AccessTokenTTL = DefaultAccessTokenTTL
	}
	if cfg.RefreshTokenTTL == 0 {
		cfg.RefreshTokenTTL = DefaultRefreshTokenTTL
	}

	return &Scope{
		name:   canonical,
		header: "X-" + camelize(canonical),
		cfg:    cfg,
	}, nil
}

// CanonicalScopeName trims, singularizes and lowercases name, so "Users",
// "users" and "user" all address the same scope.
func CanonicalScopeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return strings.ToLower(inflection.Singular(name))
}

func validateScopeName(name string) error {
	if name == "" {
		return ErrInvalidScopeName
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
		default:
			return fmt.Errorf("%w: %q", ErrInvalidScopeName, name)
		}
	}
	return nil
}

var titleCaser = cases.Title(language.Und)

// camelize turns "admin_user" into "AdminUser".
func camelize(name string) string {
	parts := strings.Split(name, "_")
	var b strings.Builder
	b.Grow(len(name))
	for _, p := range parts {
		if p == "" {
			continue
		}
		b.WriteString(titleCaser.String(p))
	}
	return b.String()
}

// Name returns the canonical scope name.
func (s *Scope) Name() string { return s.name }

// HeaderPrefix returns the prefix of the credential headers, e.g. "X-User".
func (s *Scope) HeaderPrefix() string { return s.header }

// RefreshTokenDisabled reports whether refresh tokens are turned off.
func (s *Scope) RefreshTokenDisabled() bool { return s.cfg.DisableRefreshToken }

// AccessTokenTTL returns the lifetime of newly issued access tokens.
func (s *Scope) AccessTokenTTL() time.Duration { return s.cfg.AccessTokenTTL }

// RefreshTokenTTL returns the lifetime of newly issued refresh tokens.
func (s *Scope) RefreshTokenTTL() time.Duration { return s.cfg.RefreshTokenTTL }

// Config returns a copy of the effective configuration, defaults applied.
func (s *Scope) Config() ScopeConfig { return s.cfg }

// OnAuthenticateFailed returns the configured hook, or nil.
func (s *Scope) OnAuthenticateFailed() HookFunc { return s.cfg.OnAuthenticateFailed }

// OnAuthenticateSuccess returns the configured hook, or nil.
func (s *Scope) OnAuthenticateSuccess() HookFunc { return s.cfg.OnAuthenticateSuccess }

// OnRefreshFailed returns the configured hook, or nil.
func (s *Scope) OnRefreshFailed() HookFunc { return s.cfg.OnRefreshFailed }

// OwnerLoader returns the configured loader, or nil.
func (s *Scope) OwnerLoader() OwnerLoader { return s.cfg.LoadOwner }

// Credentials builds the credential source for r.
func (s *Scope) Credentials(r *http.Request) CredentialSource {
	return s.cfg.Credentials(s, r)
}

// KeyForAccessToken returns the store key of an access token record.
func (s *Scope) KeyForAccessToken(id, token string) string {
	return s.name + "_" + id + "_access_token_" + token
}

// KeyForRefreshToken returns the store key of a refresh token record.
func (s *Scope) KeyForRefreshToken(id, token string) string {
	return s.name + "_" + id + "_refresh_token_" + token
}

// ValueForAccessToken derives the stored value for an access token. Without
// a configured ValueFunc the token itself is the value.
func (s *Scope) ValueForAccessToken(token string, args ...any) (string, error) {
	if s.cfg.ValueForAccessToken == nil {
		return token, nil
	}
	return s.cfg.ValueForAccessToken(token, args...)
}

// ValueForRefreshToken derives the stored value for a refresh token. Without
// a configured ValueFunc the token itself is the value.
func (s *Scope) ValueForRefreshToken(token string, args ...any) (string, error) {
	if s.cfg.ValueForRefreshToken == nil {
		return token, nil
	}
	return s.cfg.ValueForRefreshToken(token, args...)
}
