package auth

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aussiebroadwan/zitadelclient/pkg/jwtx"
)

// JWTBearerGrantType is the RFC 7523 grant used by WebTokenAuthenticator.
const JWTBearerGrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"

// WebTokenAuthenticator signs a short-lived JWT with a private key and
// exchanges it for an access token (RFC 7523). A fresh assertion is signed
// for every token request.
type WebTokenAuthenticator struct {
	*OAuthAuthenticator

	issuer   string
	subject  string
	audience string
	lifetime time.Duration
	signer   jwtx.Signer
}

// Issuer is the iss claim of every assertion.
func (a *WebTokenAuthenticator) Issuer() string { return a.issuer }

// Subject is the sub claim of every assertion.
func (a *WebTokenAuthenticator) Subject() string { return a.subject }

// Audience is the aud claim of every assertion.
func (a *WebTokenAuthenticator) Audience() string { return a.audience }

// Algorithm is the JWS algorithm assertions are signed with.
func (a *WebTokenAuthenticator) Algorithm() string { return a.signer.Alg() }

// KeyID is the kid header of every assertion, possibly empty.
func (a *WebTokenAuthenticator) KeyID() string { return a.signer.KID() }

// grant signs a new assertion. Signing failures are *AssertionError so the
// manager passes them through untouched.
func (a *WebTokenAuthenticator) grant(now time.Time) (url.Values, error) {
	claims := jwtx.NewAssertionClaims(a.issuer, a.subject, a.audience, a.lifetime, now)

	assertion, err := a.signer.Sign(claims)
	if err != nil {
		return nil, &AssertionError{Alg: a.signer.Alg(), Err: err}
	}

	return url.Values{
		"grant_type": {JWTBearerGrantType},
		"assertion":  {assertion},
	}, nil
}

// WebTokenBuilder configures a WebTokenAuthenticator. Discovery has already
// happened by the time you hold one.
type WebTokenBuilder struct {
	metadata *OpenIDMetadata
	cfg      *config

	issuer   string
	subject  string
	audience string
	key      []byte
	scopes   []string
	lifetime int64 // seconds
	kid      string
	alg      string

	used atomic.Bool
}

// NewWebTokenBuilder runs endpoint discovery against host and prepares an
// assertion with iss = sub = userID and aud = the normalized host.
func NewWebTokenBuilder(
	ctx context.Context,
	host, userID string,
	privateKeyPEM []byte,
	opts ...Option,
) (*WebTokenBuilder, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidConfig)
	}
	if len(privateKeyPEM) == 0 {
		return nil, fmt.Errorf("%w: private key is required", ErrInvalidConfig)
	}

	cfg := newConfig(opts)
	metadata, err := Discover(ctx, host, cfg.httpClient)
	if err != nil {
		return nil, err
	}
	cfg.logger.Debug("discovered token endpoint", "host", metadata.HostEndpoint(), "token_endpoint", metadata.TokenEndpoint())

	return &WebTokenBuilder{
		metadata: metadata,
		cfg:      cfg,
		issuer:   userID,
		subject:  userID,
		audience: metadata.HostEndpoint(),
		key:      privateKeyPEM,
		scopes:   DefaultScopes(),
		lifetime: int64(jwtx.DefaultAssertionLifetime / time.Second),
		alg:      jwtx.DefaultAlgorithm,
	}, nil
}

// Scopes replaces the requested scopes.
func (b *WebTokenBuilder) Scopes(scopes ...string) *WebTokenBuilder {
	b.scopes = scopes
	return b
}

// TokenLifetimeSeconds sets how long each assertion is valid for. Build
// rejects values that are not positive or exceed MaxExpiresIn.
func (b *WebTokenBuilder) TokenLifetimeSeconds(seconds int) *WebTokenBuilder {
	b.lifetime = int64(seconds)
	return b
}

// KeyID sets the kid header, normally the keyId of a downloaded key file.
func (b *WebTokenBuilder) KeyID(kid string) *WebTokenBuilder {
	b.kid = kid
	return b
}

// Algorithm overrides the signing algorithm (default RS256). The key must
// belong to the algorithm's family.
func (b *WebTokenBuilder) Algorithm(alg string) *WebTokenBuilder {
	b.alg = alg
	return b
}

// Build parses the key and returns the authenticator. A malformed key or
// one that does not fit the algorithm is an *AssertionError.
func (b *WebTokenBuilder) Build() (*WebTokenAuthenticator, error) {
	if !b.used.CompareAndSwap(false, true) {
		return nil, ErrBuilderUsed
	}
	switch {
	case b.lifetime <= 0:
		return nil, fmt.Errorf("%w: token lifetime must be positive", ErrInvalidConfig)
	case b.lifetime > MaxExpiresIn:
		return nil, fmt.Errorf("%w: token lifetime must be at most %d seconds", ErrInvalidConfig, MaxExpiresIn)
	}

	signer, err := jwtx.NewSigner(b.alg, b.kid, b.key)
	if err != nil {
		return nil, &AssertionError{Alg: b.alg, Err: err}
	}

	a := &WebTokenAuthenticator{
		issuer:   b.issuer,
		subject:  b.subject,
		audience: b.audience,
		lifetime: time.Duration(b.lifetime) * time.Second,
		signer:   signer,
	}

	identity := strings.Join([]string{"jwt", a.issuer, a.subject, signer.Alg(), signer.KID()}, ":")
	a.OAuthAuthenticator = newOAuthAuthenticator(b.metadata, normalizeScopes(b.scopes), b.cfg, identity, a.grant)
	return a, nil
}
