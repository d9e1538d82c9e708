package goWarden

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestIssueTokenShape(t *testing.T) {
	engine, mr := newTestEngine(t)
	scope := mustRegister(t, engine, "user", ScopeConfig{AccessTokenTTL: time.Hour, RefreshTokenTTL: 2 * time.Hour})
	ctx := context.Background()

	pair, err := engine.IssueTokens(ctx, scope, "1")
	if err != nil {
		t.Fatalf("IssueTokens: %v", err)
	}
	if len(pair.AccessToken) != 20 {
		t.Fatalf("access token length = %d", len(pair.AccessToken))
	}
	if len(pair.RefreshToken) != 30 {
		t.Fatalf("refresh token length = %d", len(pair.RefreshToken))
	}
	if strings.ContainsAny(pair.AccessToken+pair.RefreshToken, "lIO0") {
		t.Fatal("tokens must not contain confusable glyphs")
	}

	if ttl := mr.TTL("user_1_access_token_" + pair.AccessToken); ttl != time.Hour {
		t.Fatalf("access ttl = %v", ttl)
	}
	if ttl := mr.TTL("user_1_refresh_token_" + pair.RefreshToken); ttl != 2*time.Hour {
		t.Fatalf("refresh ttl = %v", ttl)
	}
}

func TestIssueDoesNotInvalidatePriorTokens(t *testing.T) {
	engine, _ := newTestEngine(t)
	scope := mustRegister(t, engine, "user", ScopeConfig{})
	ctx := context.Background()

	first, err := engine.IssueAccessToken(ctx, scope, "1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	second, err := engine.IssueAccessToken(ctx, scope, "1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if first == second {
		t.Fatal("tokens must be unique")
	}
	for _, tok := range []string{first, second} {
		if ok, _ := engine.NewAuthentication(scope, StaticCredentials{ID: "1", AccessToken: tok}).Authenticated(ctx); !ok {
			t.Fatalf("token %q must stay valid", tok)
		}
	}
}

func TestIssueCustomValueFunc(t *testing.T) {
	engine, mr := newTestEngine(t)
	scope := mustRegister(t, engine, "user", ScopeConfig{
		ValueForAccessToken: func(token string, args ...any) (string, error) {
			return fmt.Sprintf("device=%v", args[0]), nil
		},
		ValueForRefreshToken: func(token string, args ...any) (string, error) {
			return "r:" + token, nil
		},
	})
	ctx := context.Background()

	pair, err := engine.IssueTokens(ctx, scope, "9", "ios")
	if err != nil {
		t.Fatalf("IssueTokens: %v", err)
	}
	if v, _ := mr.Get("user_9_access_token_" + pair.AccessToken); v != "device=ios" {
		t.Fatalf("access value = %q", v)
	}
	if v, _ := mr.Get("user_9_refresh_token_" + pair.RefreshToken); v != "r:"+pair.RefreshToken {
		t.Fatalf("refresh value = %q", v)
	}

	auth := engine.NewAuthentication(scope, StaticCredentials{ID: "9", AccessToken: pair.AccessToken})
	if v, err := auth.ValueForAccessToken(ctx); err != nil || v != "device=ios" {
		t.Fatalf("ValueForAccessToken = (%q, %v)", v, err)
	}
}

func TestIssueValueFuncError(t *testing.T) {
	engine, stub := newStubEngine(t)
	scope := mustRegister(t, engine, "user", ScopeConfig{
		ValueForAccessToken: func(string, ...any) (string, error) { return "", errors.New("boom") },
	})

	if _, err := engine.IssueAccessToken(context.Background(), scope, "1"); err == nil {
		t.Fatal("expected value func error")
	}
	if stub.sets != 0 {
		t.Fatal("nothing must be stored when the value func fails")
	}
}

func TestIssueTokensDisabledRefresh(t *testing.T) {
	engine, _ := newStubEngine(t)
	scope := mustRegister(t, engine, "bot", ScopeConfig{DisableRefreshToken: true})

	pair, err := engine.IssueTokens(context.Background(), scope, "1")
	if err != nil {
		t.Fatalf("IssueTokens: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken != "" {
		t.Fatalf("unexpected pair: %+v", pair)
	}

	raw, _ := json.Marshal(pair)
	if strings.Contains(string(raw), "refresh_token") {
		t.Fatalf("empty refresh token must be omitted: %s", raw)
	}
}

func TestIssueCustomTokenLengths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tokens.AccessTokenLength = 32
	cfg.Tokens.RefreshTokenLength = 48

	stub := newStubStore()
	engine, err := New().WithConfig(cfg).WithTokenStore(stub).WithRegistry(NewRegistry(nopLogger())).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	scope := mustRegister(t, engine, "user", ScopeConfig{})

	pair, err := engine.IssueTokens(context.Background(), scope, "1")
	if err != nil {
		t.Fatalf("IssueTokens: %v", err)
	}
	if len(pair.AccessToken) != 32 || len(pair.RefreshToken) != 48 {
		t.Fatalf("lengths = %d/%d", len(pair.AccessToken), len(pair.RefreshToken))
	}
}

func TestIssueNilScope(t *testing.T) {
	engine, _ := newStubEngine(t)
	if _, err := engine.IssueAccessToken(context.Background(), nil, "1"); !errors.Is(err, ErrScopeNotFound) {
		t.Fatalf("expected ErrScopeNotFound, got %v", err)
	}
}

func TestIssueStoreFailure(t *testing.T) {
	engine, stub := newStubEngine(t)
	scope := mustRegister(t, engine, "user", ScopeConfig{})
	stub.failWith(ErrStoreUnavailable)

	if _, err := engine.IssueAccessToken(context.Background(), scope, "1"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestIssueTokensRefreshFailureRemovesAccessToken(t *testing.T) {
	engine, stub := newStubEngine(t)
	scope := mustRegister(t, engine, "user", ScopeConfig{})
	stub.failSetsFrom(2, ErrStoreUnavailable)

	pair, err := engine.IssueTokens(context.Background(), scope, "1")
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if pair != (TokenPair{}) {
		t.Fatalf("expected empty pair, got %+v", pair)
	}

	stub.mu.Lock()
	defer stub.mu.Unlock()
	if stub.sets != 2 {
		t.Fatalf("expected access and refresh writes, got %d sets", stub.sets)
	}
	if stub.deletes != 1 {
		t.Fatalf("expected the access token to be deleted, got %d deletes", stub.deletes)
	}
	if len(stub.data) != 0 {
		t.Fatalf("orphan records left in store: %v", stub.data)
	}
}

func TestRotate(t *testing.T) {
	engine, _ := newTestEngine(t)
	scope := mustRegister(t, engine, "user", ScopeConfig{})
	ctx := context.Background()

	pair, err := engine.IssueTokens(ctx, scope, "1")
	if err != nil {
		t.Fatalf("IssueTokens: %v", err)
	}

	auth := engine.NewAuthentication(scope, StaticCredentials{ID: "1", RefreshToken: pair.RefreshToken})
	next, err := engine.Rotate(ctx, auth)
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if next.ID != "1" || next.AccessToken == pair.AccessToken || next.RefreshToken == pair.RefreshToken {
		t.Fatalf("unexpected rotated pair: %+v", next)
	}

	if ok, _ := engine.NewAuthentication(scope, StaticCredentials{ID: "1", AccessToken: next.AccessToken}).Authenticated(ctx); !ok {
		t.Fatal("rotated access token must authenticate")
	}
	if _, err := engine.Rotate(ctx, engine.NewAuthentication(scope, StaticCredentials{ID: "1", RefreshToken: pair.RefreshToken})); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("rotating a used refresh token = %v", err)
	}

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricRotation] != 1 || snap.Counters[MetricRefreshSuccess] != 1 || snap.Counters[MetricRefreshFailure] != 1 {
		t.Fatalf("unexpected counters: %+v", snap.Counters)
	}
}
