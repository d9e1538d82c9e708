// Package store is the Redis-backed token store used by goWarden.
//
// Every operation runs on a dedicated pooled connection obtained through
// [Store.WithConnection], which releases the connection on every exit path,
// maps pool wait timeouts to [ErrPoolExhausted], and retries exactly once
// when Redis answers READONLY (the connection is bound to a demoted primary
// after a failover).
//
// # Atomicity
//
// Each primitive is a single Redis command except [Store.GetAndDelete], which
// is a Lua script so that a refresh token can never be read twice by
// concurrent callers.
//
// # What this package must NOT do
//
//   - Know about scopes, tokens, or key formats. Keys arrive fully formed;
//     only the optional namespace prefix is applied here.
//   - Swallow infrastructure errors. Only redis.Nil is translated (to a
//     false "found" result).
package store
