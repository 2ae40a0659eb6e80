package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Key file type markers.
const (
	KeyFileTypeServiceAccount = "serviceaccount"
	KeyFileTypeApplication    = "application"
)

// KeyFile is the JSON document the identity platform hands out when a key
// is created for a service account or an API application.
type KeyFile struct {
	Type   string `json:"type"`
	KeyID  string `json:"keyId"`
	Key    string `json:"key"`
	UserID string `json:"userId,omitempty"`

	// Application keys carry these instead of userId.
	ClientID string `json:"clientId,omitempty"`
	AppID    string `json:"appId,omitempty"`
}

// Subject is the principal assertions signed with this key speak for.
func (k *KeyFile) Subject() string {
	if k.Type == KeyFileTypeApplication {
		return k.ClientID
	}
	return k.UserID
}

// Validate checks that every field the file's type needs is present. An
// empty type is read as a service account key.
func (k *KeyFile) Validate() error {
	missing := func(field string) error {
		return &KeyFileError{Field: field, Err: errors.New("missing required field")}
	}

	switch k.Type {
	case "", KeyFileTypeServiceAccount:
		if strings.TrimSpace(k.UserID) == "" {
			return missing("userId")
		}
	case KeyFileTypeApplication:
		if strings.TrimSpace(k.ClientID) == "" {
			return missing("clientId")
		}
	default:
		return &KeyFileError{Field: "type", Err: fmt.Errorf("unsupported key type %q", k.Type)}
	}

	if strings.TrimSpace(k.Key) == "" {
		return missing("key")
	}
	return nil
}

// ParseKeyFile decodes and validates a key file held in memory.
func ParseKeyFile(data []byte) (*KeyFile, error) {
	var kf KeyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, &KeyFileError{Err: fmt.Errorf("malformed JSON: %w", err)}
	}
	if err := kf.Validate(); err != nil {
		return nil, err
	}
	return &kf, nil
}

// LoadKeyFile reads and validates the key file at path.
func LoadKeyFile(path string) (*KeyFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &KeyFileError{Path: path, Err: err}
	}

	kf, err := ParseKeyFile(data)
	if err != nil {
		var kfErr *KeyFileError
		if errors.As(err, &kfErr) {
			kfErr.Path = path
		}
		return nil, err
	}
	return kf, nil
}

// NewWebTokenBuilderFromKeyFile prepares a WebTokenBuilder from a parsed key
// file: the subject comes from the file and keyId becomes the kid header.
func NewWebTokenBuilderFromKeyFile(ctx context.Context, host string, kf *KeyFile, opts ...Option) (*WebTokenBuilder, error) {
	if err := kf.Validate(); err != nil {
		return nil, err
	}

	b, err := NewWebTokenBuilder(ctx, host, kf.Subject(), []byte(kf.Key), opts...)
	if err != nil {
		return nil, err
	}
	return b.KeyID(kf.KeyID), nil
}

// WebTokenFromKeyFile builds a WebTokenAuthenticator straight from a key
// file on disk, with default scopes and lifetime.
func WebTokenFromKeyFile(ctx context.Context, host, path string, opts ...Option) (*WebTokenAuthenticator, error) {
	kf, err := LoadKeyFile(path)
	if err != nil {
		return nil, err
	}

	b, err := NewWebTokenBuilderFromKeyFile(ctx, host, kf, opts...)
	if err != nil {
		return nil, err
	}
	return b.Build()
}

// WebTokenFromJSON is WebTokenFromKeyFile for a key file already in memory.
func WebTokenFromJSON(ctx context.Context, host string, data []byte, opts ...Option) (*WebTokenAuthenticator, error) {
	kf, err := ParseKeyFile(data)
	if err != nil {
		return nil, err
	}

	b, err := NewWebTokenBuilderFromKeyFile(ctx, host, kf, opts...)
	if err != nil {
		return nil, err
	}
	return b.Build()
}
