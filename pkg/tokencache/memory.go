// Package tokencache holds auth.TokenStore implementations.
package tokencache

import (
	"context"
	"sync"
	"time"

	"github.com/aussiebroadwan/zitadelclient/pkg/auth"
)

var _ auth.TokenStore = (*Memory)(nil)

// Memory keeps tokens in a map. It lets several authenticators built from
// the same credentials within one process share a token.
type Memory struct {
	mu     sync.RWMutex
	tokens map[string]auth.Token
}

func NewMemory() *Memory {
	return &Memory{tokens: make(map[string]auth.Token)}
}

func (m *Memory) Load(_ context.Context, key string) (auth.Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tok, ok := m.tokens[key]
	if !ok {
		return auth.Token{}, auth.ErrTokenNotFound
	}
	return tok, nil
}

func (m *Memory) Save(_ context.Context, key string, tok auth.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tokens[key] = tok
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.tokens, key)
	return nil
}

// DeleteExpired drops every token that expired before now and reports how
// many went.
func (m *Memory) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for key, tok := range m.tokens {
		if tok.ExpiresAt.Before(now) {
			delete(m.tokens, key)
			n++
		}
	}
	return n, nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tokens)
}
