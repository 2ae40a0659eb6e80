package auth

import (
	"context"
	"fmt"
	"strings"
)

// Authenticator supplies the headers that authenticate one API request.
//
// Implementations are safe for concurrent use. AuthHeaders may block while a
// token is fetched; it never returns a stale token.
type Authenticator interface {
	// AuthHeaders returns the headers to attach to the next request. The
	// map is owned by the caller.
	AuthHeaders(ctx context.Context) (map[string]string, error)

	// Host returns the normalized base URL API requests should go to.
	Host() string
}

var (
	_ Authenticator = (*NoAuthAuthenticator)(nil)
	_ Authenticator = (*PersonalAccessTokenAuthenticator)(nil)
	_ Authenticator = (*ClientCredentialsAuthenticator)(nil)
	_ Authenticator = (*WebTokenAuthenticator)(nil)
)

// DefaultNoAuthHost is used by NewNoAuthAuthenticator when host is empty.
const DefaultNoAuthHost = "http://localhost"

// ============================================================================
// NoAuthAuthenticator
// ============================================================================

// NoAuthAuthenticator sends no credentials at all. Handy for public
// endpoints and local development.
type NoAuthAuthenticator struct {
	host string
}

func NewNoAuthAuthenticator(host string) *NoAuthAuthenticator {
	if strings.TrimSpace(host) == "" {
		host = DefaultNoAuthHost
	}
	return &NoAuthAuthenticator{host: BuildHostname(host)}
}

func (a *NoAuthAuthenticator) Host() string { return a.host }

// AuthHeaders always returns an empty map.
func (a *NoAuthAuthenticator) AuthHeaders(context.Context) (map[string]string, error) {
	return map[string]string{}, nil
}

// ============================================================================
// PersonalAccessTokenAuthenticator
// ============================================================================

// PersonalAccessTokenAuthenticator sends a fixed, pre-issued token. There is
// nothing to refresh; if the server stops accepting the token, API calls
// fail with an unauthorized error.
type PersonalAccessTokenAuthenticator struct {
	host  string
	token string
}

// NewPersonalAccessTokenAuthenticator returns ErrInvalidConfig when token
// is blank.
func NewPersonalAccessTokenAuthenticator(host, token string) (*PersonalAccessTokenAuthenticator, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: personal access token is required", ErrInvalidConfig)
	}
	if strings.TrimSpace(host) == "" {
		return nil, fmt.Errorf("%w: host is required", ErrInvalidConfig)
	}

	return &PersonalAccessTokenAuthenticator{
		host:  BuildHostname(host),
		token: token,
	}, nil
}

func (a *PersonalAccessTokenAuthenticator) Host() string { return a.host }

func (a *PersonalAccessTokenAuthenticator) AuthHeaders(context.Context) (map[string]string, error) {
	return bearer(a.token), nil
}
