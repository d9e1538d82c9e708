package goWarden

import (
	"context"
	"fmt"

	"github.com/MrEthical07/goWarden/token"
)

// TokenPair is an access token together with its refresh token. RefreshToken
// is empty for scopes that disable refresh tokens.
type TokenPair struct {
	ID           string `json:"uid"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// IssueAccessToken mints an access token for id and stores it under the
// scope's key with the scope's access TTL. args are passed to the scope's
// ValueFunc. Earlier tokens for id stay valid.
func (e *Engine) IssueAccessToken(ctx context.Context, scope *Scope, id string, args ...any) (string, error) {
	if e == nil || e.store == nil {
		return "", ErrEngineNotReady
	}
	if scope == nil {
		return "", ErrScopeNotFound
	}

	raw, err := token.Generate(e.config.Tokens.AccessTokenLength)
	if err != nil {
		return "", err
	}
	value, err := scope.ValueForAccessToken(raw, args...)
	if err != nil {
		return "", fmt.Errorf("value for access token: %w", err)
	}

	if err := e.store.Set(ctx, scope.KeyForAccessToken(id, raw), value, scope.cfg.AccessTokenTTL); err != nil {
		e.storeFailure(ctx, scope, "issue_access_token", err)
		return "", err
	}

	e.metricInc(MetricAccessTokenIssued)
	e.emitAudit(ctx, auditEventAccessTokenIssued, scope.name, id, true, nil, nil)
	return raw, nil
}

// IssueRefreshToken mints a refresh token for id. It returns
// ErrRefreshTokenDisabled for scopes without refresh tokens.
func (e *Engine) IssueRefreshToken(ctx context.Context, scope *Scope, id string, args ...any) (string, error) {
	if e == nil || e.store == nil {
		return "", ErrEngineNotReady
	}
	if scope == nil {
		return "", ErrScopeNotFound
	}
	if scope.cfg.DisableRefreshToken {
		return "", ErrRefreshTokenDisabled
	}

	raw, err := token.Generate(e.config.Tokens.RefreshTokenLength)
	if err != nil {
		return "", err
	}
	value, err := scope.ValueForRefreshToken(raw, args...)
	if err != nil {
		return "", fmt.Errorf("value for refresh token: %w", err)
	}

	if err := e.store.Set(ctx, scope.KeyForRefreshToken(id, raw), value, scope.cfg.RefreshTokenTTL); err != nil {
		e.storeFailure(ctx, scope, "issue_refresh_token", err)
		return "", err
	}

	e.metricInc(MetricRefreshTokenIssued)
	e.emitAudit(ctx, auditEventRefreshTokenIssued, scope.name, id, true, nil, nil)
	return raw, nil
}

// IssueTokens mints an access token and, unless the scope disables them, a
// refresh token for id.
//
// If the refresh token cannot be stored the access token issued in the same
// call is deleted again, so a failed call leaves no usable credential behind.
func (e *Engine) IssueTokens(ctx context.Context, scope *Scope, id string, args ...any) (TokenPair, error) {
	access, err := e.IssueAccessToken(ctx, scope, id, args...)
	if err != nil {
		return TokenPair{}, err
	}
	pair := TokenPair{ID: id, AccessToken: access}
	if scope.cfg.DisableRefreshToken {
		return pair, nil
	}

	refresh, err := e.IssueRefreshToken(ctx, scope, id, args...)
	if err != nil {
		key := scope.KeyForAccessToken(id, access)
		if _, derr := e.store.Delete(context.WithoutCancel(ctx), key); derr != nil {
			e.logger.Warn().Err(derr).Str("scope", scope.name).Msg("orphan access token left after refresh issuance failed")
		}
		return TokenPair{}, err
	}
	pair.RefreshToken = refresh
	return pair, nil
}

// Rotate consumes the refresh token presented to auth and issues a fresh
// pair for the same id. It returns ErrAuthenticationFailed when the refresh
// token is not valid, including when it was already used.
func (e *Engine) Rotate(ctx context.Context, auth *Authentication, args ...any) (TokenPair, error) {
	if auth == nil {
		return TokenPair{}, ErrEngineNotReady
	}

	ok, err := auth.Refreshable(ctx)
	if err != nil {
		return TokenPair{}, err
	}
	if !ok {
		return TokenPair{}, ErrAuthenticationFailed
	}

	pair, err := e.IssueTokens(ctx, auth.scope, auth.id, args...)
	if err != nil {
		return TokenPair{}, err
	}
	e.metricInc(MetricRotation)
	e.emitAudit(ctx, auditEventRotation, auth.scope.name, auth.id, true, nil, nil)
	return pair, nil
}
