// Package zitadel is the entry point of the SDK: a Client that sends
// authenticated JSON requests to the identity platform's API.
//
//	client, err := zitadel.WithClientCredentials(ctx, "my-instance.zitadel.cloud", id, secret)
//	if err != nil {
//		return err
//	}
//	settings, err := client.Settings().GetGeneralSettings(ctx)
package zitadel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/zitadelclient/pkg/auth"
	"github.com/aussiebroadwan/zitadelclient/pkg/httpx"
	"github.com/aussiebroadwan/zitadelclient/pkg/slogx"
	"golang.org/x/time/rate"
)

// Version is reported in the User-Agent header.
const Version = "0.1.0"

// DefaultTimeout bounds a single API call, token fetch included.
const DefaultTimeout = 30 * time.Second

// maxBodyBytes bounds how much of an API response we read.
const maxBodyBytes = 10 << 20

// Client sends requests to the API. It is safe for concurrent use.
type Client struct {
	authenticator auth.Authenticator
	baseURL       string
	httpClient    *http.Client
	logger        *slog.Logger
}

// Option configures a Client.
type Option func(*options)

type options struct {
	httpClient *http.Client
	logger     *slog.Logger
	userAgent  string
	limiter    *rate.Limiter
	authOpts   []auth.Option
}

// WithHTTPClient sets the client used for API calls. Its transport is
// wrapped, not replaced.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithUserAgent replaces the default User-Agent.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		o.userAgent = ua
	}
}

// WithRateLimit throttles API calls client side.
func WithRateLimit(limiter *rate.Limiter) Option {
	return func(o *options) {
		o.limiter = limiter
	}
}

// WithAuthOptions passes options through to the authenticator built by
// WithClientCredentials or WithPrivateKey.
func WithAuthOptions(opts ...auth.Option) Option {
	return func(o *options) {
		o.authOpts = append(o.authOpts, opts...)
	}
}

func newOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.userAgent == "" {
		o.userAgent = httpx.UserAgent("zitadel-client", Version)
	}
	return o
}

// New returns a Client that authenticates with authenticator and sends
// requests to authenticator.Host().
func New(authenticator auth.Authenticator, opts ...Option) *Client {
	o := newOptions(opts)

	base := &http.Client{Timeout: DefaultTimeout}
	if o.httpClient != nil {
		clone := *o.httpClient
		base = &clone
	}

	var rt http.RoundTripper = slogx.NewTransport(base.Transport, o.logger)
	rt = httpx.WithRateLimit(rt, o.limiter)
	rt = httpx.WithUserAgent(rt, o.userAgent)
	base.Transport = rt

	return &Client{
		authenticator: authenticator,
		baseURL:       strings.TrimSuffix(authenticator.Host(), "/"),
		httpClient:    base,
		logger:        o.logger,
	}
}

// WithAccessToken returns a Client that sends a personal access token.
func WithAccessToken(host, token string, opts ...Option) (*Client, error) {
	a, err := auth.NewPersonalAccessTokenAuthenticator(host, token)
	if err != nil {
		return nil, err
	}
	return New(a, opts...), nil
}

// WithClientCredentials returns a Client that uses the client credentials
// grant. Discovery happens here, so an unreachable host fails now.
func WithClientCredentials(ctx context.Context, host, clientID, clientSecret string, opts ...Option) (*Client, error) {
	o := newOptions(opts)

	b, err := auth.NewClientCredentialsBuilder(ctx, host, clientID, clientSecret, o.authOptions()...)
	if err != nil {
		return nil, err
	}

	a, err := b.Build()
	if err != nil {
		return nil, err
	}
	return New(a, opts...), nil
}

// WithPrivateKey returns a Client that signs JWT assertions with the key in
// keyFile, a service account key as downloaded from the console.
func WithPrivateKey(ctx context.Context, host, keyFile string, opts ...Option) (*Client, error) {
	o := newOptions(opts)

	a, err := auth.WebTokenFromKeyFile(ctx, host, keyFile, o.authOptions()...)
	if err != nil {
		return nil, err
	}
	return New(a, opts...), nil
}

// authOptions forwards the logger and HTTP client to the authenticator,
// ahead of anything set through WithAuthOptions.
func (o *options) authOptions() []auth.Option {
	out := []auth.Option{auth.WithLogger(o.logger)}
	if o.httpClient != nil {
		out = append(out, auth.WithHTTPClient(o.httpClient))
	}
	return append(out, o.authOpts...)
}

// Authenticator returns the authenticator the client was built with.
func (c *Client) Authenticator() auth.Authenticator { return c.authenticator }

// BaseURL is where API paths are resolved against.
func (c *Client) BaseURL() string { return c.baseURL }

// Do sends a request with a JSON body built from in (skipped when nil) and
// decodes a JSON response into out (skipped when nil).
//
// Authenticator errors are returned as is. Responses outside 2xx are
// *UnauthorizedError for 401 and 403 and *APIError otherwise.
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	headers, err := c.authenticator.AuthHeaders(ctx)
	if err != nil {
		return err
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp, respBody)
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
