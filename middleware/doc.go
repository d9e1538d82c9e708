// Package middleware adapts a goWarden.Engine to net/http.
//
// # Guards
//
//   - [Ward] requires a valid access token for a scope.
//   - [WardRefresh] requires a valid refresh token for a scope. It consumes
//     the token.
//   - [WardOptional] resolves the access path but never rejects.
//
// Every guard prepares the request context so that [Current] returns the same
// Authentication for a scope for the rest of the request.
//
// # Handlers
//
//   - [RefreshHandler] rotates a refresh token into a new token pair.
//   - [SignOutHandler] revokes the presented access token.
//
// Authentication decisions are made by the engine. This package only maps
// results to status codes: 401 for a rejected access token, 403 for a rejected
// refresh token and 500 for store or configuration failures.
package middleware
