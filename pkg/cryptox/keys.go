package cryptox

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"strings"
)

// MinRSABits is the smallest RSA modulus we are willing to generate.
const MinRSABits = 2048

// GenerateRSAKey generates an RSA private key in PKCS1 PEM form
// ("RSA PRIVATE KEY"). This is the format most identity providers hand out
// in service account key files.
func GenerateRSAKey(bits int) ([]byte, error) {
	key, err := newRSAKey(bits)
	if err != nil {
		return nil, err
	}

	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}), nil
}

// GenerateRSAKeyPKCS8 generates an RSA private key in PKCS8 PEM form.
func GenerateRSAKeyPKCS8(bits int) ([]byte, error) {
	key, err := newRSAKey(bits)
	if err != nil {
		return nil, err
	}
	return marshalPKCS8(key)
}

// GenerateECDSAKey generates an ECDSA private key on the given curve, PKCS8
// encoded.
func GenerateECDSAKey(curve elliptic.Curve) ([]byte, error) {
	key, err := ecdsa.GenerateKey(curve, rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("cryptox: failed to generate ECDSA key: %w", err)
	}
	return marshalPKCS8(key)
}

// GenerateEd25519Key generates an Ed25519 private key. Ed25519 only has a
// PKCS8 encoding.
func GenerateEd25519Key() ([]byte, error) {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("cryptox: failed to generate Ed25519 key: %w", err)
	}
	return marshalPKCS8(key)
}

// GenerateKeyForAlg generates a PEM private key suitable for signing with
// the named JWS algorithm.
func GenerateKeyForAlg(alg string) ([]byte, error) {
	switch strings.ToUpper(alg) {
	case "RS256", "RS384", "RS512", "PS256", "PS384", "PS512":
		return GenerateRSAKeyPKCS8(MinRSABits)
	case "ES256":
		return GenerateECDSAKey(elliptic.P256())
	case "ES384":
		return GenerateECDSAKey(elliptic.P384())
	case "ES512":
		return GenerateECDSAKey(elliptic.P521())
	case "EDDSA":
		return GenerateEd25519Key()
	default:
		return nil, fmt.Errorf("cryptox: no key type for algorithm %q", alg)
	}
}

func newRSAKey(bits int) (*rsa.PrivateKey, error) {
	if bits < MinRSABits {
		return nil, fmt.Errorf("cryptox: RSA key size must be at least %d bits", MinRSABits)
	}

	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("cryptox: failed to generate RSA key: %w", err)
	}
	return key, nil
}

func marshalPKCS8(key crypto.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("cryptox: failed to marshal PKCS8 key: %w", err)
	}

	return pem.EncodeToMemory(&pem.Block{
		Type:  "PRIVATE KEY",
		Bytes: der,
	}), nil
}
