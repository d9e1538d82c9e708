package goWarden

import (
	"net/http"
)

// CredentialSource extracts the id, access token and refresh token presented
// by one request. An absent value is reported as the empty string.
type CredentialSource interface {
	RetrieveID() string
	RetrieveAccessToken() string
	RetrieveRefreshToken() string
}

// CredentialsFactory builds the credential source of scope for one request.
type CredentialsFactory func(scope *Scope, r *http.Request) CredentialSource

// HeaderCredentials reads credentials from the headers
// X-<Scope>-Id, X-<Scope>-Access-Token and X-<Scope>-Refresh-Token.
// Each header is read at most once.
type HeaderCredentials struct {
	header http.Header
	prefix string

	id, access, refresh       string
	idOK, accessOK, refreshOK bool
}

// NewHeaderCredentials returns a source reading the headers of scope from h.
func NewHeaderCredentials(scope *Scope, h http.Header) *HeaderCredentials {
	return &HeaderCredentials{header: h, prefix: scope.HeaderPrefix()}
}

// HeaderCredentialsFactory is the default CredentialsFactory.
func HeaderCredentialsFactory(scope *Scope, r *http.Request) CredentialSource {
	var h http.Header
	if r != nil {
		h = r.Header
	}
	return NewHeaderCredentials(scope, h)
}

// IDHeader returns the name of the id header.
func (c *HeaderCredentials) IDHeader() string { return c.prefix + "-Id" }

// AccessTokenHeader returns the name of the access token header.
func (c *HeaderCredentials) AccessTokenHeader() string { return c.prefix + "-Access-Token" }

// RefreshTokenHeader returns the name of the refresh token header.
func (c *HeaderCredentials) RefreshTokenHeader() string { return c.prefix + "-Refresh-Token" }

func (c *HeaderCredentials) RetrieveID() string {
	if !c.idOK {
		c.id, c.idOK = c.header.Get(c.IDHeader()), true
	}
	return c.id
}

func (c *HeaderCredentials) RetrieveAccessToken() string {
	if !c.accessOK {
		c.access, c.accessOK = c.header.Get(c.AccessTokenHeader()), true
	}
	return c.access
}

func (c *HeaderCredentials) RetrieveRefreshToken() string {
	if !c.refreshOK {
		c.refresh, c.refreshOK = c.header.Get(c.RefreshTokenHeader()), true
	}
	return c.refresh
}

// StaticCredentials is a CredentialSource over fixed values, for callers that
// obtain credentials outside HTTP.
type StaticCredentials struct {
	ID           string
	AccessToken  string
	RefreshToken string
}

func (c StaticCredentials) RetrieveID() string           { return c.ID }
func (c StaticCredentials) RetrieveAccessToken() string  { return c.AccessToken }
func (c StaticCredentials) RetrieveRefreshToken() string { return c.RefreshToken }
