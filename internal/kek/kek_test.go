package kek_test

import (
	"crypto/aes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webrtc-relay/trustcore/internal/kek"
)

func randKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, kek.KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func TestWrapUnwrapRoundTrip(t *testing.T) {
	key := randKey(t)
	plaintext := []byte("a secp256k1 scalar, 32 bytes long")

	wrapped, err := kek.Wrap(plaintext, key)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, wrapped)

	unwrapped, err := kek.Unwrap(wrapped, key)
	require.NoError(t, err)
	assert.Equal(t, plaintext, unwrapped)
}

func TestWrapRejectsWrongKeySize(t *testing.T) {
	_, err := kek.Wrap([]byte("x"), []byte("too short"))
	var sizeErr aes.KeySizeError
	assert.ErrorAs(t, err, &sizeErr)
}

func TestUnwrapRejectsWrongKey(t *testing.T) {
	wrapped, err := kek.Wrap([]byte("secret"), randKey(t))
	require.NoError(t, err)

	_, err = kek.Unwrap(wrapped, randKey(t))
	assert.Error(t, err)
}

func TestUnwrapRejectsTruncatedCiphertext(t *testing.T) {
	_, err := kek.Unwrap([]byte("short"), randKey(t))
	assert.Error(t, err)
}
