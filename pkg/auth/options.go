package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/zitadelclient/pkg/slogx"
	"golang.org/x/time/rate"
)

const (
	// DefaultHTTPTimeout bounds discovery and token requests when the
	// caller does not supply an *http.Client.
	DefaultHTTPTimeout = 10 * time.Second

	// DefaultRefreshTimeout bounds a single refresh. The refresh runs on
	// behalf of every waiting caller, so it cannot borrow any one caller's
	// deadline.
	DefaultRefreshTimeout = 30 * time.Second
)

// DefaultScopes are requested when a builder is not told otherwise.
func DefaultScopes() []string {
	return []string{"openid", "urn:zitadel:iam:org:project:id:zitadel:aud"}
}

// Option configures the OAuth-based authenticators.
type Option func(*config)

type config struct {
	httpClient     *http.Client
	logger         *slog.Logger
	store          TokenStore
	limiter        *rate.Limiter
	refreshTimeout time.Duration
	now            func() time.Time
}

// WithHTTPClient sets the client used for discovery and token requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) {
		c.httpClient = client
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithTokenStore lets tokens outlive the process. See TokenStore.
func WithTokenStore(store TokenStore) Option {
	return func(c *config) {
		c.store = store
	}
}

// WithRefreshLimiter throttles token requests. Useful when a
// misconfigured credential would otherwise retry on every API call.
func WithRefreshLimiter(limiter *rate.Limiter) Option {
	return func(c *config) {
		c.limiter = limiter
	}
}

// WithRefreshTimeout overrides DefaultRefreshTimeout.
func WithRefreshTimeout(d time.Duration) Option {
	return func(c *config) {
		c.refreshTimeout = d
	}
}

// WithClock replaces time.Now for expiry decisions and assertion claims.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		c.now = now
	}
}

func newConfig(opts []Option) *config {
	c := &config{}
	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout:   DefaultHTTPTimeout,
			Transport: slogx.NewTransport(nil, c.logger),
		}
	}
	if c.refreshTimeout <= 0 {
		c.refreshTimeout = DefaultRefreshTimeout
	}
	if c.now == nil {
		c.now = time.Now
	}

	return c
}
