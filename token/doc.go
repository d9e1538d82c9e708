// Package token mints the opaque bearer strings handed out as access and
// refresh tokens.
//
// Tokens are random, URL-safe and carry no structure: the store record keyed
// by a token is the only thing that gives it meaning. A fixed substitution
// pass replaces the glyphs l, I, O and 0 so tokens read back unambiguously
// when copied by hand.
package token
