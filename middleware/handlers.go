package middleware

import (
	"errors"
	"net/http"

	goWarden "github.com/MrEthical07/goWarden"
)

type signOutBody struct {
	Success bool `json:"succ"`
}

// RefreshHandler consumes the refresh token presented for scopeName and
// responds with a new {"uid","access_token","refresh_token"} pair. A rejected
// refresh token goes through the same path as WardRefresh.
func RefreshHandler(engine *goWarden.Engine, scopeName string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r, scope, auth, ok := prepare(w, r, engine, scopeName)
		if !ok {
			return
		}

		pair, err := engine.Rotate(r.Context(), auth)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, pair)
		case errors.Is(err, goWarden.ErrAuthenticationFailed):
			if hook := scope.OnRefreshFailed(); hook != nil {
				hook(w, r, auth)
				return
			}
			writeJSON(w, http.StatusForbidden, forbiddenBody)
		default:
			internalError(w, engine, scope, "rotate", err)
		}
	})
}

// SignOutHandler revokes the access token presented for scopeName and
// responds with {"succ":true}. Requests that are not authenticated get the
// same response, since there is nothing to revoke.
func SignOutHandler(engine *goWarden.Engine, scopeName string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r, scope, auth, ok := prepare(w, r, engine, scopeName)
		if !ok {
			return
		}
		if err := auth.SignOut(r.Context()); err != nil {
			internalError(w, engine, scope, "sign_out", err)
			return
		}
		writeJSON(w, http.StatusOK, signOutBody{Success: true})
	})
}
