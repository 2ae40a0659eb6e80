package httpx_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/zitadelclient/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func TestParseRateLimitFromEnv(t *testing.T) {
	defaults := httpx.RateLimitConfig{RequestsPerWindow: 10, Window: time.Minute, Burst: 2}

	t.Run("defaults when unset", func(t *testing.T) {
		require.Equal(t, defaults, httpx.ParseRateLimitFromEnv("UNSET_PREFIX", defaults))
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("RATELIMIT_TEST_REQUESTS", "100")
		t.Setenv("RATELIMIT_TEST_WINDOW_SEC", "30")
		t.Setenv("RATELIMIT_TEST_BURST", "7")

		got := httpx.ParseRateLimitFromEnv("TEST", defaults)
		require.Equal(t, 100, got.RequestsPerWindow)
		require.Equal(t, 30*time.Second, got.Window)
		require.Equal(t, 7, got.Burst)
	})

	t.Run("ignores invalid values", func(t *testing.T) {
		t.Setenv("RATELIMIT_BAD_REQUESTS", "lots")
		t.Setenv("RATELIMIT_BAD_WINDOW_SEC", "-5")
		t.Setenv("RATELIMIT_BAD_BURST", "0")

		require.Equal(t, defaults, httpx.ParseRateLimitFromEnv("BAD", defaults))
	})
}

func TestRateLimitConfigLimiter(t *testing.T) {
	t.Parallel()

	require.Nil(t, httpx.RateLimitConfig{}.Limiter())

	l := httpx.RateLimitConfig{RequestsPerWindow: 60, Window: time.Minute, Burst: 3}.Limiter()
	require.NotNil(t, l)
	require.InDelta(t, 1.0, float64(l.Limit()), 0.0001)
	require.Equal(t, 3, l.Burst())
}

func TestRateLimitTransport(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	t.Cleanup(srv.Close)

	// One request per hour with a burst of two: the third must wait
	limiter := httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Hour, Burst: 2}.Limiter()
	client := &http.Client{Transport: httpx.WithRateLimit(nil, limiter)}

	for range 2 {
		resp, err := client.Get(srv.URL)
		require.NoError(t, err)
		_ = resp.Body.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	_, err = client.Do(req)
	require.ErrorContains(t, err, "rate limit")
	require.EqualValues(t, 2, hits.Load())
}

func TestWithRateLimitNilLimiter(t *testing.T) {
	t.Parallel()

	require.Equal(t, http.DefaultTransport, httpx.WithRateLimit(nil, nil))
}

func TestUserAgent(t *testing.T) {
	t.Parallel()

	ua := httpx.UserAgent("Zitadel-Client", "1.0.0")
	require.True(t, strings.HasPrefix(ua, "zitadel-client/1.0.0 (lang=go; "))
	require.Contains(t, ua, "os="+runtime.GOOS)
	require.Equal(t, strings.ToLower(ua), ua)

	agents := make(chan string, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents <- r.UserAgent()
	}))
	t.Cleanup(srv.Close)

	client := &http.Client{Transport: httpx.WithUserAgent(nil, ua)}

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, ua, <-agents)

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "custom/1")
	resp, err = client.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, "custom/1", <-agents)
}
