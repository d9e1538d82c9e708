package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	goWarden "github.com/MrEthical07/goWarden"
)

type errorBody struct {
	Message string `json:"err_msg"`
}

var (
	unauthorizedBody = errorBody{Message: "Unauthorized"}
	forbiddenBody    = errorBody{Message: "Forbidden"}
	internalBody     = errorBody{Message: "Internal Server Error"}
)

// Current returns the Authentication a guard resolved for scopeName during
// this request.
func Current(r *http.Request, scopeName string) (*goWarden.Authentication, bool) {
	return goWarden.AuthenticationFromContext(r.Context(), scopeName)
}

// Ward rejects requests whose access token for scopeName does not validate.
// A rejected request goes to the scope's OnAuthenticateFailed hook when one is
// set and otherwise gets 401 {"err_msg":"Unauthorized"}. The
// OnAuthenticateSuccess hook runs before next.
func Ward(engine *goWarden.Engine, scopeName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r, scope, auth, ok := prepare(w, r, engine, scopeName)
			if !ok {
				return
			}

			err := auth.Authenticate(r.Context())
			switch {
			case err == nil:
			case errors.Is(err, goWarden.ErrAuthenticationFailed):
				if hook := scope.OnAuthenticateFailed(); hook != nil {
					hook(w, r, auth)
					return
				}
				writeJSON(w, http.StatusUnauthorized, unauthorizedBody)
				return
			default:
				internalError(w, engine, scope, "authenticate", err)
				return
			}

			if hook := scope.OnAuthenticateSuccess(); hook != nil {
				hook(w, r, auth)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WardRefresh rejects requests whose refresh token for scopeName does not
// validate. Validation consumes the token. A rejected request goes to the
// scope's OnRefreshFailed hook when one is set and otherwise gets
// 403 {"err_msg":"Forbidden"}.
func WardRefresh(engine *goWarden.Engine, scopeName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r, scope, auth, ok := prepare(w, r, engine, scopeName)
			if !ok {
				return
			}

			err := auth.ValidateRefreshToken(r.Context())
			switch {
			case err == nil:
			case errors.Is(err, goWarden.ErrAuthenticationFailed):
				if hook := scope.OnRefreshFailed(); hook != nil {
					hook(w, r, auth)
					return
				}
				writeJSON(w, http.StatusForbidden, forbiddenBody)
				return
			default:
				internalError(w, engine, scope, "validate_refresh_token", err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// WardOptional resolves the access path for scopeName and always calls next.
// Handlers check the outcome with Current and Authenticated. Store failures
// still produce 500.
func WardOptional(engine *goWarden.Engine, scopeName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r, scope, auth, ok := prepare(w, r, engine, scopeName)
			if !ok {
				return
			}
			if _, err := auth.Authenticated(r.Context()); err != nil {
				internalError(w, engine, scope, "authenticate", err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// prepare resolves the scope and the request's memoized Authentication. It
// writes a 500 and reports false when the engine or scope is unusable.
func prepare(w http.ResponseWriter, r *http.Request, engine *goWarden.Engine, scopeName string) (*http.Request, *goWarden.Scope, *goWarden.Authentication, bool) {
	if engine == nil {
		writeJSON(w, http.StatusInternalServerError, internalBody)
		return r, nil, nil, false
	}

	scope, err := engine.Scope(scopeName)
	if err != nil {
		logger := engine.Logger()
		logger.Error().Err(err).Str("scope", scopeName).Msg("unknown scope in middleware")
		writeJSON(w, http.StatusInternalServerError, internalBody)
		return r, nil, nil, false
	}

	r = r.WithContext(goWarden.WithAuthentications(r.Context()))
	return r, scope, engine.Current(r, scope), true
}

func internalError(w http.ResponseWriter, engine *goWarden.Engine, scope *goWarden.Scope, op string, err error) {
	logger := engine.Logger()
	logger.Error().
		Err(err).
		Str("scope", scope.Name()).
		Str("op", op).
		Bool("infrastructure", goWarden.IsInfrastructureError(err)).
		Msg("request failed")
	writeJSON(w, http.StatusInternalServerError, internalBody)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
