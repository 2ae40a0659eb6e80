package cryptox_test

import (
	"testing"

	"github.com/aussiebroadwan/zitadelclient/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestSealerRoundTrip(t *testing.T) {
	t.Parallel()

	s, err := cryptox.NewSealer([]byte("correct horse battery staple"), []byte("cache-salt"))
	require.NoError(t, err)

	plaintext := []byte("eyJhbGciOiJSUzI1NiJ9.access-token")
	aad := []byte("cache-key-1")

	sealed1, err := s.Seal(plaintext, aad)
	require.NoError(t, err)
	sealed2, err := s.Seal(plaintext, aad)
	require.NoError(t, err)

	// Random nonce per seal
	require.NotEqual(t, sealed1, sealed2)
	require.NotContains(t, string(sealed1), string(plaintext))

	opened, err := s.Open(sealed1, aad)
	require.NoError(t, err)
	require.Equal(t, plaintext, opened)
}

func TestSealerRejectsTampering(t *testing.T) {
	t.Parallel()

	s, err := cryptox.NewSealer([]byte("passphrase"), []byte("salt"))
	require.NoError(t, err)

	sealed, err := s.Seal([]byte("secret"), []byte("key-a"))
	require.NoError(t, err)

	t.Run("wrong additional data", func(t *testing.T) {
		_, err := s.Open(sealed, []byte("key-b"))
		require.ErrorContains(t, err, "decryption failed")
	})

	t.Run("flipped byte", func(t *testing.T) {
		bad := append([]byte(nil), sealed...)
		bad[len(bad)-1] ^= 0xff
		_, err := s.Open(bad, []byte("key-a"))
		require.Error(t, err)
	})

	t.Run("too short", func(t *testing.T) {
		_, err := s.Open([]byte{1, 2, 3}, nil)
		require.ErrorIs(t, err, cryptox.ErrCiphertextTooShort)
	})

	t.Run("different passphrase", func(t *testing.T) {
		other, err := cryptox.NewSealer([]byte("other"), []byte("salt"))
		require.NoError(t, err)
		_, err = other.Open(sealed, []byte("key-a"))
		require.Error(t, err)
	})
}

func TestNewSealerRejectsEmptyPassphrase(t *testing.T) {
	t.Parallel()

	_, err := cryptox.NewSealer(nil, []byte("salt"))
	require.Error(t, err)
}
