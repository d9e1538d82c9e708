package token

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
)

const (
	// AccessLength is the default access token length in characters.
	AccessLength = 20
	// RefreshLength is the default refresh token length in characters.
	RefreshLength = 30
)

// ErrInvalidLength is returned when a non-positive token length is requested.
var ErrInvalidLength = errors.New("token length must be > 0")

var confusables = strings.NewReplacer(
	"l", "s",
	"I", "x",
	"O", "y",
	"0", "z",
)

// Generate returns a random URL-safe token of roughly length characters.
//
// length*3/4 random bytes are encoded with unpadded base64url, which yields
// exactly length characters when length is a multiple of 4 and rounds up
// otherwise.
func Generate(length int) (string, error) {
	if length <= 0 {
		return "", ErrInvalidLength
	}

	n := (length * 3) / 4
	if n == 0 {
		n = 1
	}

	raw := make([]byte, n)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}

	return Sanitize(base64.RawURLEncoding.EncodeToString(raw)), nil
}

// Sanitize applies the confusable-glyph substitution to s.
func Sanitize(s string) string {
	return confusables.Replace(s)
}

// Access mints a token of AccessLength characters.
func Access() (string, error) {
	return Generate(AccessLength)
}

// Refresh mints a token of RefreshLength characters.
func Refresh() (string, error) {
	return Generate(RefreshLength)
}
