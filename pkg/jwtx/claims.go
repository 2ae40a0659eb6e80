package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAssertionLifetime is how long a bearer assertion stays valid when
// the caller does not say otherwise.
const DefaultAssertionLifetime = time.Hour

// AssertionClaims is the claim set of a JWT bearer assertion (RFC 7523).
//
// We don't embed jwt.RegisteredClaims here because it always serialises
// "aud" as an array, and some authorization servers are picky about a
// single audience arriving as a plain string.
type AssertionClaims struct {
	Issuer    string           `json:"iss"`
	Subject   string           `json:"sub"`
	Audience  string           `json:"aud"`
	IssuedAt  *jwt.NumericDate `json:"iat"`
	ExpiresAt *jwt.NumericDate `json:"exp"`
}

// NewAssertionClaims builds the claims for an assertion issued at now.
// A non-positive lifetime falls back to DefaultAssertionLifetime.
func NewAssertionClaims(issuer, subject, audience string, lifetime time.Duration, now time.Time) AssertionClaims {
	if lifetime <= 0 {
		lifetime = DefaultAssertionLifetime
	}

	now = now.UTC()
	return AssertionClaims{
		Issuer:    issuer,
		Subject:   subject,
		Audience:  audience,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
	}
}

// jwt.Claims

func (c AssertionClaims) GetExpirationTime() (*jwt.NumericDate, error) { return c.ExpiresAt, nil }
func (c AssertionClaims) GetIssuedAt() (*jwt.NumericDate, error)       { return c.IssuedAt, nil }
func (c AssertionClaims) GetNotBefore() (*jwt.NumericDate, error)      { return nil, nil }
func (c AssertionClaims) GetIssuer() (string, error)                   { return c.Issuer, nil }
func (c AssertionClaims) GetSubject() (string, error)                  { return c.Subject, nil }

func (c AssertionClaims) GetAudience() (jwt.ClaimStrings, error) {
	if c.Audience == "" {
		return nil, nil
	}
	return jwt.ClaimStrings{c.Audience}, nil
}
