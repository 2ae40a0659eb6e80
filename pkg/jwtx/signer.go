package jwtx

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAlgorithm is used when no signing algorithm is configured.
const DefaultAlgorithm = "RS256"

var (
	ErrUnsupportedAlg = errors.New("jwtx: unsupported signing algorithm")
	ErrKeyMismatch    = errors.New("jwtx: key does not match algorithm")
)

// Signer signs bearer assertions.
type Signer interface {
	Alg() string
	KID() string
	Sign(AssertionClaims) (string, error)
	Public() crypto.PublicKey
}

type keySigner struct {
	method jwt.SigningMethod
	kid    string
	key    crypto.Signer
}

// NewSigner parses pemKey and returns a Signer for alg. An empty alg means
// DefaultAlgorithm. An empty kid leaves the "kid" header out entirely.
func NewSigner(alg, kid string, pemKey []byte) (Signer, error) {
	key, err := ParsePrivateKey(pemKey)
	if err != nil {
		return nil, err
	}
	return NewSignerFromKey(alg, kid, key)
}

// NewSignerFromKey is NewSigner for an already parsed key.
func NewSignerFromKey(alg, kid string, key crypto.PrivateKey) (Signer, error) {
	if alg == "" {
		alg = DefaultAlgorithm
	}

	method := jwt.GetSigningMethod(alg)
	if method == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlg, alg)
	}

	cs, err := checkKey(method, key)
	if err != nil {
		return nil, err
	}

	return &keySigner{method: method, kid: kid, key: cs}, nil
}

func (s *keySigner) Alg() string              { return s.method.Alg() }
func (s *keySigner) KID() string              { return s.kid }
func (s *keySigner) Public() crypto.PublicKey { return s.key.Public() }

// Sign takes the claims and turns them into a compact JWS.
func (s *keySigner) Sign(claims AssertionClaims) (string, error) {
	t := jwt.NewWithClaims(s.method, claims)
	if s.kid != "" {
		t.Header["kid"] = s.kid
	}

	signed, err := t.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign %s: %w", s.method.Alg(), err)
	}
	return signed, nil
}

// checkKey makes sure key can actually be used with method. jwt would
// reject a mismatch at signing time anyway, but we want to know at
// construction.
func checkKey(method jwt.SigningMethod, key crypto.PrivateKey) (crypto.Signer, error) {
	switch m := method.(type) {
	case *jwt.SigningMethodRSA, *jwt.SigningMethodRSAPSS:
		k, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: %s needs an RSA key, got %T", ErrKeyMismatch, method.Alg(), key)
		}
		return k, nil

	case *jwt.SigningMethodECDSA:
		k, ok := key.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: %s needs an ECDSA key, got %T", ErrKeyMismatch, method.Alg(), key)
		}
		if k.Curve.Params().BitSize != m.CurveBits {
			return nil, fmt.Errorf("%w: %s needs a %d-bit curve, got %s",
				ErrKeyMismatch, method.Alg(), m.CurveBits, k.Curve.Params().Name)
		}
		return k, nil

	case *jwt.SigningMethodEd25519:
		k, ok := key.(ed25519.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: %s needs an Ed25519 key, got %T", ErrKeyMismatch, method.Alg(), key)
		}
		return k, nil

	default:
		// HMAC and "none" have no business signing assertions
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlg, method.Alg())
	}
}
