package auth

import (
	"time"

	"golang.org/x/oauth2"
)

// ExpiryMargin is how long before its real expiry a token is treated as
// expired. It has to cover the round trip of the request that uses it.
const ExpiryMargin = 5 * time.Minute

// DefaultExpiresIn is assumed when a token response has no expires_in.
const DefaultExpiresIn = 3600

// MaxExpiresIn caps expires_in (ten years) so the absolute expiry cannot
// overflow a time.Duration.
const MaxExpiresIn = 10 * 365 * 24 * 60 * 60

// Token is an access token and the absolute instant it expires. Tokens are
// values; a refresh produces a new one and never touches the old.
type Token struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// NewToken converts a relative expires_in (seconds) into an absolute
// expiry measured from now. Non-positive values fall back to
// DefaultExpiresIn and values above MaxExpiresIn are clamped to it.
func NewToken(accessToken string, expiresIn int64, now time.Time) Token {
	switch {
	case expiresIn <= 0:
		expiresIn = DefaultExpiresIn
	case expiresIn > MaxExpiresIn:
		expiresIn = MaxExpiresIn
	}

	return Token{
		AccessToken: accessToken,
		ExpiresAt:   now.UTC().Add(time.Duration(expiresIn) * time.Second),
	}
}

// IsExpired reports whether the token is expired or about to be, judged
// against the wall clock at the time of the call.
func (t Token) IsExpired() bool {
	return t.IsExpiredAt(time.Now())
}

// IsExpiredAt reports whether now falls within ExpiryMargin of expiry.
// The zero Token is always expired.
func (t Token) IsExpiredAt(now time.Time) bool {
	if t.AccessToken == "" {
		return true
	}
	return !now.Before(t.ExpiresAt.Add(-ExpiryMargin))
}

// OAuth2 converts t for use with golang.org/x/oauth2.
func (t Token) OAuth2() *oauth2.Token {
	return &oauth2.Token{
		AccessToken: t.AccessToken,
		TokenType:   "Bearer",
		Expiry:      t.ExpiresAt,
	}
}
