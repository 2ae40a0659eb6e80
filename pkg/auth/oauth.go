package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/aussiebroadwan/zitadelclient/pkg/cryptox"
	"golang.org/x/oauth2"
)

// grantFunc builds the form parameters of one token request. It is called
// once per refresh with the refresh's notion of now.
type grantFunc func(now time.Time) (url.Values, error)

// tokenResponse is the subset of RFC 6749 section 5.1 we care about.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
	ExpiresIn   int64  `json:"expires_in,omitempty"`
	Scope       string `json:"scope,omitempty"`
}

// OAuthAuthenticator is the part shared by every authenticator that
// exchanges credentials for tokens: discovery metadata, scopes and the
// TokenManager. The grant-specific types embed it.
type OAuthAuthenticator struct {
	metadata *OpenIDMetadata
	scopes   []string
	grant    grantFunc
	cfg      *config
	manager  *TokenManager
}

// newOAuthAuthenticator wires a grant to a fresh TokenManager. identity
// distinguishes credentials that share a token endpoint in a TokenStore.
func newOAuthAuthenticator(
	metadata *OpenIDMetadata,
	scopes []string,
	cfg *config,
	identity string,
	grant grantFunc,
) *OAuthAuthenticator {
	a := &OAuthAuthenticator{
		metadata: metadata,
		scopes:   scopes,
		grant:    grant,
		cfg:      cfg,
	}

	storeKey := cryptox.Fingerprint(append([]string{metadata.TokenEndpoint(), identity}, scopes...)...)
	a.manager = newTokenManager(a.fetch, cfg, storeKey)
	return a
}

// Host returns the normalized base URL of the authorization server.
func (a *OAuthAuthenticator) Host() string { return a.metadata.HostEndpoint() }

// TokenEndpoint returns the discovered token endpoint.
func (a *OAuthAuthenticator) TokenEndpoint() string { return a.metadata.TokenEndpoint() }

// Metadata returns the discovery result this authenticator was built with.
func (a *OAuthAuthenticator) Metadata() *OpenIDMetadata { return a.metadata }

// Scopes returns the requested scopes in wire order.
func (a *OAuthAuthenticator) Scopes() []string { return slices.Clone(a.scopes) }

// AuthToken returns a valid access token, refreshing if necessary.
func (a *OAuthAuthenticator) AuthToken(ctx context.Context) (string, error) {
	tok, err := a.manager.Token(ctx)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// AuthHeaders returns the Authorization header for the current token.
func (a *OAuthAuthenticator) AuthHeaders(ctx context.Context) (map[string]string, error) {
	token, err := a.AuthToken(ctx)
	if err != nil {
		return nil, err
	}
	return bearer(token), nil
}

// RefreshToken forces a token request and returns the new token.
func (a *OAuthAuthenticator) RefreshToken(ctx context.Context) (Token, error) {
	return a.manager.Refresh(ctx)
}

// TokenManager exposes the manager, mainly for inspection in tests and
// tooling.
func (a *OAuthAuthenticator) TokenManager() *TokenManager { return a.manager }

// TokenSource adapts the authenticator to golang.org/x/oauth2. ctx is used
// for every refresh the source triggers.
func (a *OAuthAuthenticator) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &tokenSource{ctx: ctx, manager: a.manager}
}

func (a *OAuthAuthenticator) fetch(ctx context.Context) (Token, error) {
	now := a.cfg.now()

	form, err := a.grant(now)
	if err != nil {
		return Token{}, err
	}
	form.Set("scope", strings.Join(a.scopes, " "))

	return a.requestToken(ctx, form, now)
}

// requestToken posts form to the token endpoint and parses the response.
func (a *OAuthAuthenticator) requestToken(ctx context.Context, form url.Values, now time.Time) (Token, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		a.metadata.TokenEndpoint(),
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return Token{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := a.cfg.httpClient.Do(req)
	if err != nil {
		return Token{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return Token{}, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Token{}, parseErrorResponse(resp.StatusCode, body)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return Token{}, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return Token{}, ErrMissingAccessToken
	}

	return NewToken(tr.AccessToken, tr.ExpiresIn, now), nil
}

type tokenSource struct {
	ctx     context.Context
	manager *TokenManager
}

func (s *tokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.manager.Token(s.ctx)
	if err != nil {
		return nil, err
	}
	return tok.OAuth2(), nil
}

// normalizeScopes dedupes and sorts, dropping blanks.
func normalizeScopes(scopes []string) []string {
	set := make(map[string]struct{}, len(scopes))
	for _, s := range scopes {
		if s = strings.TrimSpace(s); s != "" {
			set[s] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}
