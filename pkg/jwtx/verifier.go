package jwtx

import (
	"crypto"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// VerifyOptions captures what a verifier expects of an assertion.
type VerifyOptions struct {
	// Alg the assertion must be signed with. Empty means DefaultAlgorithm.
	Alg string

	// Issuer the assertion must carry. Empty means "don't care".
	Issuer string

	// Audience the assertion must carry. Empty means "don't care".
	Audience string

	// Leeway allows small clock skew when validating exp and iat.
	Leeway time.Duration
}

var ErrInvalidAssertion = errors.New("jwtx: invalid assertion")

// Verify checks an assertion against pub and returns its claims. It is the
// mirror image of Signer.Sign and is what a token endpoint does on receipt.
func Verify(token string, pub crypto.PublicKey, opts VerifyOptions) (*AssertionClaims, error) {
	alg := opts.Alg
	if alg == "" {
		alg = DefaultAlgorithm
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{alg}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(opts.Leeway),
	}
	if opts.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(opts.Issuer))
	}
	if opts.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(opts.Audience))
	}

	claims := &AssertionClaims{}
	parsed, err := jwt.NewParser(parserOpts...).ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return pub, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAssertion, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidAssertion
	}

	return claims, nil
}
