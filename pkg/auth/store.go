package auth

import (
	"context"
	"errors"
)

// ErrTokenNotFound is returned by a TokenStore that has nothing for a key.
var ErrTokenNotFound = errors.New("auth: token not found in store")

// TokenStore persists tokens between processes so a short-lived CLI does not
// mint a new token on every run. Keys are opaque fingerprints of the
// credential identity; stores never see the credential itself.
//
// Implementations must be safe for concurrent use.
type TokenStore interface {
	Load(ctx context.Context, key string) (Token, error)
	Save(ctx context.Context, key string, tok Token) error
}
