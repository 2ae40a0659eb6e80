package jwtx

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"golang.org/x/crypto/ssh"
)

var (
	ErrInvalidPEM     = errors.New("jwtx: invalid PEM private key")
	ErrUnsupportedKey = errors.New("jwtx: unsupported private key type")
)

// ParsePrivateKey decodes the first PEM block of pemKey into a private key.
//
// Key files in the wild come in every shape: PKCS1 from older tooling,
// PKCS8 from most identity providers, SEC1 from openssl ecparam and the
// OpenSSH container from ssh-keygen. We take all of them rather than make
// people convert.
func ParsePrivateKey(pemKey []byte) (crypto.PrivateKey, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, ErrInvalidPEM
	}

	var (
		key any
		err error
	)

	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		key, err = x509.ParseECPrivateKey(block.Bytes)
	case "OPENSSH PRIVATE KEY":
		key, err = ssh.ParseRawPrivateKey(pemKey)
	case "ENCRYPTED PRIVATE KEY":
		return nil, fmt.Errorf("%w: encrypted keys are not supported", ErrUnsupportedKey)
	default:
		return nil, fmt.Errorf("%w: PEM type %q", ErrUnsupportedKey, block.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("jwtx: parse %s: %w", block.Type, err)
	}

	switch k := key.(type) {
	case *rsa.PrivateKey, *ecdsa.PrivateKey, ed25519.PrivateKey:
		return k, nil
	case *ed25519.PrivateKey:
		// the ssh package hands Ed25519 keys back by pointer
		return *k, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedKey, key)
	}
}
