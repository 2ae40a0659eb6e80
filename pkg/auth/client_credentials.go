package auth

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
	"time"
)

// ClientCredentialsAuthenticator exchanges a client id and secret for
// access tokens (RFC 6749 section 4.4).
type ClientCredentialsAuthenticator struct {
	*OAuthAuthenticator

	clientID string
}

// ClientID returns the configured client id.
func (a *ClientCredentialsAuthenticator) ClientID() string { return a.clientID }

// ClientCredentialsBuilder configures a ClientCredentialsAuthenticator.
// Discovery has already happened by the time you hold one.
type ClientCredentialsBuilder struct {
	metadata     *OpenIDMetadata
	cfg          *config
	clientID     string
	clientSecret string
	scopes       []string

	used atomic.Bool
}

// NewClientCredentialsBuilder validates the credentials and runs endpoint
// discovery against host. Blank credentials are ErrInvalidConfig; any
// discovery failure is a *DiscoveryError.
func NewClientCredentialsBuilder(
	ctx context.Context,
	host, clientID, clientSecret string,
	opts ...Option,
) (*ClientCredentialsBuilder, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, fmt.Errorf("%w: client id is required", ErrInvalidConfig)
	}
	if clientSecret == "" {
		return nil, fmt.Errorf("%w: client secret is required", ErrInvalidConfig)
	}

	cfg := newConfig(opts)
	metadata, err := Discover(ctx, host, cfg.httpClient)
	if err != nil {
		return nil, err
	}
	cfg.logger.Debug("discovered token endpoint", "host", metadata.HostEndpoint(), "token_endpoint", metadata.TokenEndpoint())

	return &ClientCredentialsBuilder{
		metadata:     metadata,
		cfg:          cfg,
		clientID:     clientID,
		clientSecret: clientSecret,
		scopes:       DefaultScopes(),
	}, nil
}

// Scopes replaces the requested scopes.
func (b *ClientCredentialsBuilder) Scopes(scopes ...string) *ClientCredentialsBuilder {
	b.scopes = scopes
	return b
}

// Build returns the authenticator. No token is requested until the first
// call to AuthHeaders or AuthToken.
func (b *ClientCredentialsBuilder) Build() (*ClientCredentialsAuthenticator, error) {
	if !b.used.CompareAndSwap(false, true) {
		return nil, ErrBuilderUsed
	}

	clientID, clientSecret := b.clientID, b.clientSecret
	grant := func(time.Time) (url.Values, error) {
		return url.Values{
			"grant_type":    {"client_credentials"},
			"client_id":     {clientID},
			"client_secret": {clientSecret},
		}, nil
	}

	return &ClientCredentialsAuthenticator{
		OAuthAuthenticator: newOAuthAuthenticator(b.metadata, normalizeScopes(b.scopes), b.cfg, "client:"+clientID, grant),
		clientID:           clientID,
	}, nil
}
