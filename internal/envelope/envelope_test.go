package envelope

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnwrapSessionKeyRoundTripsV1AndV2(t *testing.T) {
	for _, tc := range []struct {
		name    string
		version Version
		bits    int
	}{
		{"v1-sha1-oaep", V1, 1024},
		{"v2-sha256-oaep", V2, 2048},
	} {
		t.Run(tc.name, func(t *testing.T) {
			priv, err := rsa.GenerateKey(rand.Reader, tc.bits)
			require.NoError(t, err)

			sessionKey := make([]byte, 16)
			_, err = rand.Read(sessionKey)
			require.NoError(t, err)

			hash := sha1.New()
			if tc.version == V2 {
				hash = sha256.New()
			}
			wrapped, err := rsa.EncryptOAEP(hash, rand.Reader, &priv.PublicKey, sessionKey, nil)
			require.NoError(t, err)

			got, err := UnwrapSessionKey(priv, tc.version, wrapped)
			require.NoError(t, err)
			require.Equal(t, sessionKey, got)
		})
	}
}

func TestUnwrapSessionKeyRejectsCorruptWrappedKey(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)

	_, err = UnwrapSessionKey(priv, V1, make([]byte, 128))
	require.Error(t, err)
}

func TestEncryptCBCThenDecryptCBCRoundTrips(t *testing.T) {
	key := make([]byte, 16)
	iv := make([]byte, 16)
	_, _ = rand.Read(key)
	_, _ = rand.Read(iv)

	plain := []byte("0123456789abcdef0123456789abcdef")
	cipherText, err := EncryptCBC(key, iv, plain)
	require.NoError(t, err)

	out, err := DecryptCBC(key, iv, cipherText)
	require.NoError(t, err)
	require.Equal(t, plain, out)
}

func TestDecryptCBCRejectsUnalignedInput(t *testing.T) {
	key := make([]byte, 16)
	iv := make([]byte, 16)
	_, err := DecryptCBC(key, iv, []byte("short"))
	require.Error(t, err)
}
