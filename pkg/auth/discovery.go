package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// WellKnownPath is where the OpenID Connect discovery document lives.
const WellKnownPath = "/.well-known/openid-configuration"

// maxDocumentBytes bounds how much of a discovery or token response we read.
const maxDocumentBytes = 1 << 20

// OpenIDMetadata is the result of endpoint discovery. It is resolved once,
// when an authenticator is built, and never changes afterwards.
type OpenIDMetadata struct {
	host          string
	tokenEndpoint string
	provider      oidc.ProviderConfig
}

// BuildHostname trims whitespace and defaults the scheme to https.
func BuildHostname(host string) string {
	host = strings.TrimSpace(host)
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	return host
}

// WellKnownURL resolves the discovery document URL for host. Like any
// absolute-path reference, it replaces whatever path host carries.
func WellKnownURL(host string) (string, error) {
	base, err := url.Parse(BuildHostname(host))
	if err != nil {
		return "", err
	}
	if base.Host == "" {
		return "", fmt.Errorf("no host in %q", host)
	}
	return base.ResolveReference(&url.URL{Path: WellKnownPath}).String(), nil
}

// Discover fetches the discovery document for host with a single GET. Any
// failure (bad host, transport error, non-200, malformed JSON, or a
// document without token_endpoint) is returned as a *DiscoveryError.
func Discover(ctx context.Context, host string, client *http.Client) (*OpenIDMetadata, error) {
	if client == nil {
		client = http.DefaultClient
	}

	host = BuildHostname(host)
	wellKnown, err := WellKnownURL(host)
	if err != nil {
		return nil, &DiscoveryError{URL: host, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, wellKnown, nil)
	if err != nil {
		return nil, &DiscoveryError{URL: wellKnown, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, &DiscoveryError{URL: wellKnown, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &DiscoveryError{URL: wellKnown, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, &DiscoveryError{URL: wellKnown, StatusCode: resp.StatusCode, Err: err}
	}

	var doc oidc.ProviderConfig
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, &DiscoveryError{
			URL:        wellKnown,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("invalid discovery document: %w", err),
		}
	}

	if strings.TrimSpace(doc.TokenURL) == "" {
		return nil, &DiscoveryError{URL: wellKnown, StatusCode: resp.StatusCode, Err: ErrMissingTokenEndpoint}
	}

	// token_endpoint is normally absolute, but resolve it anyway in case a
	// proxy rewrote it to a path
	tokenURL, err := url.Parse(doc.TokenURL)
	if err != nil {
		return nil, &DiscoveryError{URL: wellKnown, StatusCode: resp.StatusCode, Err: err}
	}
	tokenEndpoint := req.URL.ResolveReference(tokenURL).String()

	return &OpenIDMetadata{
		host:          host,
		tokenEndpoint: tokenEndpoint,
		provider:      doc,
	}, nil
}

// HostEndpoint is the normalized base URL the metadata was discovered from.
func (m *OpenIDMetadata) HostEndpoint() string { return m.host }

// TokenEndpoint is the absolute URL token requests are sent to.
func (m *OpenIDMetadata) TokenEndpoint() string { return m.tokenEndpoint }

// Issuer is the issuer advertised by the document, which may be empty.
func (m *OpenIDMetadata) Issuer() string { return m.provider.IssuerURL }

// ProviderConfig returns a copy of the full discovery document.
func (m *OpenIDMetadata) ProviderConfig() oidc.ProviderConfig {
	cfg := m.provider
	cfg.TokenURL = m.tokenEndpoint
	cfg.Algorithms = append([]string(nil), m.provider.Algorithms...)
	return cfg
}

// OAuth2Endpoint describes the server for golang.org/x/oauth2 configs.
func (m *OpenIDMetadata) OAuth2Endpoint() oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:   m.provider.AuthURL,
		TokenURL:  m.tokenEndpoint,
		AuthStyle: oauth2.AuthStyleInParams,
	}
}
