package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// fetchFunc performs one grant-specific token request.
type fetchFunc func(ctx context.Context) (Token, error)

// flightKey is the only singleflight key a manager uses: forced and
// on-demand refreshes share it, so they can never overlap.
const flightKey = "token"

// TokenManager owns the cached token of one authenticator and decides when
// to replace it.
//
// The state is Empty (no token), Valid (token not expired) or Refreshing (a
// flight is in progress). Callers that find the cache Empty or expired join
// a single flight; exactly one token request is made no matter how many
// callers pile in. If the flight fails, every caller joined to it gets the
// same error and the cache goes back to Empty, so the next call tries again.
// Failures are never cached.
type TokenManager struct {
	fetch fetchFunc
	cfg   *config
	key   string // TokenStore key

	mu    sync.RWMutex
	token *Token

	group singleflight.Group
}

func newTokenManager(fetch fetchFunc, cfg *config, storeKey string) *TokenManager {
	return &TokenManager{
		fetch: fetch,
		cfg:   cfg,
		key:   storeKey,
	}
}

// Token returns the cached token if it is still valid, otherwise it
// refreshes. Errors are *AuthRefreshError or *AssertionError.
func (m *TokenManager) Token(ctx context.Context) (Token, error) {
	if tok, ok := m.cached(); ok {
		return tok, nil
	}
	return m.refresh(ctx, false)
}

// Refresh fetches a new token even if the cached one is still valid. A
// caller arriving while another refresh is in flight shares its result.
func (m *TokenManager) Refresh(ctx context.Context) (Token, error) {
	return m.refresh(ctx, true)
}

// Current returns the cached token without refreshing. ok is false when the
// cache is Empty; the token may be expired.
func (m *TokenManager) Current() (tok Token, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.token == nil {
		return Token{}, false
	}
	return *m.token, true
}

func (m *TokenManager) cached() (Token, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.token != nil && !m.token.IsExpiredAt(m.cfg.now()) {
		return *m.token, true
	}
	return Token{}, false
}

func (m *TokenManager) set(tok *Token) {
	m.mu.Lock()
	m.token = tok
	m.mu.Unlock()
}

func (m *TokenManager) refresh(ctx context.Context, force bool) (Token, error) {
	ch := m.group.DoChan(flightKey, func() (any, error) {
		return m.flight(ctx, force)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return Token{}, res.Err
		}
		return res.Val.(Token), nil
	case <-ctx.Done():
		return Token{}, &AuthRefreshError{Err: ctx.Err()}
	}
}

// flight is the body of a single refresh. A panic anywhere in it, store
// calls included, becomes an AuthRefreshError for every waiting caller.
func (m *TokenManager) flight(ctx context.Context, force bool) (val any, err error) {
	defer func() {
		if r := recover(); r != nil {
			m.set(nil)
			val, err = nil, &AuthRefreshError{Err: fmt.Errorf("panic during refresh: %v", r)}
		}
	}()

	// Detach from the first caller's cancellation; the result belongs to
	// everyone waiting on this flight
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.refreshTimeout)
	defer cancel()

	// Double-check inside the flight: we may have queued behind a flight
	// that already did the work
	if !force {
		if tok, ok := m.cached(); ok {
			return tok, nil
		}
		if tok, ok := m.loadStored(fctx); ok {
			m.set(&tok)
			return tok, nil
		}
	}

	tok, err := m.fetchOnce(fctx)
	if err != nil {
		m.set(nil)
		m.cfg.logger.Warn("token refresh failed", "err", err)
		return nil, err
	}

	m.set(&tok)
	m.saveStored(fctx, tok)
	m.cfg.logger.Debug("token refreshed", "expires_at", tok.ExpiresAt, "forced", force)
	return tok, nil
}

// fetchOnce runs the grant and normalizes its error: signing failures stay
// AssertionError, everything else becomes AuthRefreshError.
func (m *TokenManager) fetchOnce(ctx context.Context) (tok Token, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &AuthRefreshError{Err: fmt.Errorf("panic during refresh: %v", r)}
		}
	}()

	if m.cfg.limiter != nil {
		if err := m.cfg.limiter.Wait(ctx); err != nil {
			return Token{}, &AuthRefreshError{Err: fmt.Errorf("refresh throttled: %w", err)}
		}
	}

	tok, err = m.fetch(ctx)
	if err == nil {
		return tok, nil
	}

	var assertionErr *AssertionError
	var refreshErr *AuthRefreshError
	switch {
	case errors.As(err, &assertionErr), errors.As(err, &refreshErr):
		return Token{}, err
	default:
		return Token{}, &AuthRefreshError{Err: err}
	}
}

func (m *TokenManager) loadStored(ctx context.Context) (Token, bool) {
	if m.cfg.store == nil {
		return Token{}, false
	}

	tok, err := m.cfg.store.Load(ctx, m.key)
	switch {
	case errors.Is(err, ErrTokenNotFound):
		return Token{}, false
	case err != nil:
		m.cfg.logger.Warn("token store load failed", "err", err)
		return Token{}, false
	case tok.IsExpiredAt(m.cfg.now()):
		return Token{}, false
	}

	m.cfg.logger.Debug("token loaded from store", "expires_at", tok.ExpiresAt)
	return tok, true
}

func (m *TokenManager) saveStored(ctx context.Context, tok Token) {
	if m.cfg.store == nil {
		return
	}
	if err := m.cfg.store.Save(ctx, m.key, tok); err != nil {
		m.cfg.logger.Warn("token store save failed", "err", err)
	}
}
