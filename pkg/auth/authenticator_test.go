package auth_test

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/zitadelclient/pkg/auth"
	"github.com/stretchr/testify/require"
)

func TestNoAuthAuthenticator(t *testing.T) {
	t.Parallel()

	a := auth.NewNoAuthAuthenticator("")
	require.Equal(t, "http://localhost", a.Host())

	headers, err := a.AuthHeaders(context.Background())
	require.NoError(t, err)
	require.Empty(t, headers)
	require.NotNil(t, headers)

	require.Equal(t, "https://idp.example.com", auth.NewNoAuthAuthenticator("idp.example.com").Host())
}

func TestPersonalAccessTokenAuthenticator(t *testing.T) {
	t.Parallel()

	a, err := auth.NewPersonalAccessTokenAuthenticator("idp.example.com", "abc")
	require.NoError(t, err)
	require.Equal(t, "https://idp.example.com", a.Host())

	headers, err := a.AuthHeaders(context.Background())
	require.NoError(t, err)
	require.Equal(t, map[string]string{"Authorization": "Bearer abc"}, headers)

	// The caller owns the map
	headers["Authorization"] = "tampered"
	again, err := a.AuthHeaders(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Bearer abc", again["Authorization"])

	_, err = auth.NewPersonalAccessTokenAuthenticator("idp.example.com", "  ")
	require.ErrorIs(t, err, auth.ErrInvalidConfig)

	_, err = auth.NewPersonalAccessTokenAuthenticator("", "abc")
	require.ErrorIs(t, err, auth.ErrInvalidConfig)
}
