package goWarden

import "context"

type authSetContextKey struct{}

// authSet holds the Authentication built for each scope during one request.
type authSet struct {
	byScope map[string]*Authentication
}

// WithAuthentications returns a context able to memoize one Authentication
// per scope. It returns ctx unchanged when the context already carries one.
func WithAuthentications(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Value(authSetContextKey{}).(*authSet); ok {
		return ctx
	}
	return context.WithValue(ctx, authSetContextKey{}, &authSet{byScope: make(map[string]*Authentication, 1)})
}

// AuthenticationFromContext returns the Authentication memoized for scope in
// ctx, if any.
func AuthenticationFromContext(ctx context.Context, scope string) (*Authentication, bool) {
	if ctx == nil {
		return nil, false
	}
	set, ok := ctx.Value(authSetContextKey{}).(*authSet)
	if !ok {
		return nil, false
	}
	auth, ok := set.byScope[CanonicalScopeName(scope)]
	return auth, ok
}

// storeAuthentication memoizes auth in ctx. It reports false when ctx was not
// prepared with WithAuthentications.
func storeAuthentication(ctx context.Context, auth *Authentication) bool {
	if ctx == nil || auth == nil || auth.scope == nil {
		return false
	}
	set, ok := ctx.Value(authSetContextKey{}).(*authSet)
	if !ok {
		return false
	}
	set.byScope[auth.scope.name] = auth
	return true
}
