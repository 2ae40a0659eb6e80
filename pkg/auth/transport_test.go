package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aussiebroadwan/zitadelclient/pkg/auth"
	"github.com/stretchr/testify/require"
)

type failingAuthenticator struct{ err error }

func (f failingAuthenticator) AuthHeaders(context.Context) (map[string]string, error) { return nil, f.err }
func (f failingAuthenticator) Host() string                                           { return "http://localhost" }

func TestTransport(t *testing.T) {
	t.Parallel()

	seen := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- r.Header.Get("Authorization")
	}))
	defer srv.Close()

	pat, err := auth.NewPersonalAccessTokenAuthenticator(srv.URL, "abc")
	require.NoError(t, err)

	client := &http.Client{Transport: auth.NewTransport(nil, pat)}

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, "Bearer abc", <-seen)
	require.Empty(t, req.Header.Get("Authorization"), "original request must not be modified")
}

func TestTransportAuthenticatorError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	client := &http.Client{Transport: auth.NewTransport(nil, failingAuthenticator{err: boom})}

	_, err := client.Get("http://127.0.0.1:1")
	require.ErrorIs(t, err, boom)
}
