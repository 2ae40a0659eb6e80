package tokencache_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/zitadelclient/pkg/auth"
	"github.com/aussiebroadwan/zitadelclient/pkg/slogx"
	"github.com/aussiebroadwan/zitadelclient/pkg/tokencache"
	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := tokencache.NewMemory()

	_, err := m.Load(ctx, "k")
	require.ErrorIs(t, err, auth.ErrTokenNotFound)

	now := time.Now()
	require.NoError(t, m.Save(ctx, "k", auth.NewToken("abc", 3600, now)))
	require.NoError(t, m.Save(ctx, "old", auth.Token{AccessToken: "x", ExpiresAt: now.Add(-time.Minute)}))

	tok, err := m.Load(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "abc", tok.AccessToken)

	n, err := m.DeleteExpired(ctx, now)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, 1, m.Len())

	require.NoError(t, m.Delete(ctx, "k"))
	require.Zero(t, m.Len())
}

// Two authenticators with the same credentials and a shared store only
// mint one token between them.
func TestMemorySharedBetweenAuthenticators(t *testing.T) {
	t.Parallel()

	var tokenCalls atomic.Int32
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/.well-known/openid-configuration":
			_, _ = w.Write([]byte(`{"token_endpoint":"` + srv.URL + `/oauth/v2/token"}`))
		case "/oauth/v2/token":
			tokenCalls.Add(1)
			_, _ = w.Write([]byte(`{"access_token":"shared","expires_in":3600}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	store := tokencache.NewMemory()
	build := func() *auth.ClientCredentialsAuthenticator {
		b, err := auth.NewClientCredentialsBuilder(context.Background(), srv.URL, "id", "secret",
			auth.WithTokenStore(store), auth.WithLogger(slogx.Discard()))
		require.NoError(t, err)
		a, err := b.Build()
		require.NoError(t, err)
		return a
	}

	first, err := build().AuthToken(context.Background())
	require.NoError(t, err)
	second, err := build().AuthToken(context.Background())
	require.NoError(t, err)

	require.Equal(t, "shared", first)
	require.Equal(t, first, second)
	require.EqualValues(t, 1, tokenCalls.Load())
	require.Equal(t, 1, store.Len())
}
