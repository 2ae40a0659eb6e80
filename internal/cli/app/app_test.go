package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/zitadelclient/pkg/auth"
	"github.com/stretchr/testify/require"
)

type fakeInstance struct {
	srv        *httptest.Server
	tokenCalls atomic.Int32
}

func newFakeInstance(t *testing.T) *fakeInstance {
	t.Helper()

	f := &fakeInstance{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{
			"issuer":         f.srv.URL,
			"token_endpoint": f.srv.URL + "/oauth/v2/token",
		})
	})
	mux.HandleFunc("POST /oauth/v2/token", func(w http.ResponseWriter, r *http.Request) {
		n := f.tokenCalls.Add(1)
		writeJSON(w, map[string]any{"access_token": "token-" + strconv.Itoa(int(n)), "expires_in": 3600})
	})
	mux.HandleFunc("GET /v2/settings", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"defaultLanguage": "en"})
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func testConfig(host string) Config {
	return Config{
		Host:        host,
		Env:         "test",
		LogLevel:    "error",
		LogFormat:   "text",
		HTTPTimeout: 5 * time.Second,
	}
}

func TestNewPersonalAccessToken(t *testing.T) {
	t.Parallel()

	inst := newFakeInstance(t)
	cfg := testConfig(inst.srv.URL)
	cfg.Token = "pat"

	app, err := New(context.Background(), cfg, io.Discard)
	require.NoError(t, err)
	defer app.Close()

	headers, err := app.Authenticator().AuthHeaders(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Bearer pat", headers["Authorization"])

	_, err = app.Token(context.Background(), false)
	require.ErrorIs(t, err, ErrNoTokenFlow)

	settings, err := app.Client().Settings().GetGeneralSettings(context.Background())
	require.NoError(t, err)
	require.Equal(t, "en", settings.DefaultLanguage)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := testConfig("")
	cfg.Token = "pat"

	_, err := New(context.Background(), cfg, io.Discard)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestTokenCacheSurvivesRestart(t *testing.T) {
	t.Parallel()

	inst := newFakeInstance(t)
	ctx := context.Background()

	cfg := testConfig(inst.srv.URL)
	cfg.ClientID = "id"
	cfg.ClientSecret = "secret"
	cfg.TokenCache = filepath.Join(t.TempDir(), "tokens.db")
	cfg.CachePassphrase = "hunter2"

	run := func() auth.Token {
		app, err := New(ctx, cfg, io.Discard)
		require.NoError(t, err)
		defer app.Close()

		tok, err := app.Token(ctx, false)
		require.NoError(t, err)
		return tok
	}

	first := run()
	second := run()

	require.Equal(t, first.AccessToken, second.AccessToken)
	require.EqualValues(t, 1, inst.tokenCalls.Load())

	// Forcing a refresh goes to the server even with a cached token
	app, err := New(ctx, cfg, io.Discard)
	require.NoError(t, err)
	defer app.Close()

	forced, err := app.Token(ctx, true)
	require.NoError(t, err)
	require.NotEqual(t, first.AccessToken, forced.AccessToken)
	require.EqualValues(t, 2, inst.tokenCalls.Load())
}

func TestGenerateKeyFileIsUsable(t *testing.T) {
	t.Parallel()

	inst := newFakeInstance(t)
	ctx := context.Background()

	for _, alg := range []string{"RS256", "ES256", "EdDSA"} {
		t.Run(alg, func(t *testing.T) {
			gen, err := GenerateKeyFile(alg, "user-1")
			require.NoError(t, err)
			require.Contains(t, string(gen.PublicPEM), "PUBLIC KEY")
			require.NotEmpty(t, gen.KeyFile.KeyID)

			data, err := json.Marshal(gen.KeyFile)
			require.NoError(t, err)

			path := filepath.Join(t.TempDir(), "key.json")
			require.NoError(t, os.WriteFile(path, data, 0o600))

			cfg := testConfig(inst.srv.URL)
			cfg.KeyFile = path
			cfg.KeyAlgorithm = alg

			app, err := New(ctx, cfg, io.Discard)
			require.NoError(t, err)
			defer app.Close()

			_, err = app.Token(ctx, false)
			require.NoError(t, err)
		})
	}

	_, err := GenerateKeyFile("RS256", "")
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = GenerateKeyFile("HS256", "user-1")
	require.Error(t, err)
}

func TestDiscover(t *testing.T) {
	t.Parallel()

	inst := newFakeInstance(t)

	app, err := New(context.Background(), testConfig(inst.srv.URL), io.Discard)
	require.NoError(t, err)
	defer app.Close()

	md, err := app.Discover(context.Background())
	require.NoError(t, err)
	require.Equal(t, inst.srv.URL+"/oauth/v2/token", md.TokenEndpoint())
}
