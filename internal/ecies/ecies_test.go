package ecies_test

import (
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webrtc-relay/trustcore/internal/ecies"
)

func TestSealOpenRoundTrip(t *testing.T) {
	priv, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	pub := priv.PubKey().SerializeCompressed()

	plaintext := []byte("actor identity claims payload")
	sealed, err := ecies.Seal(pub, plaintext)
	require.NoError(t, err)

	opened, err := ecies.Open(priv.Serialize(), sealed)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestOpenWithWrongKeyFails(t *testing.T) {
	priv, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	pub := priv.PubKey().SerializeCompressed()

	sealed, err := ecies.Seal(pub, []byte("secret"))
	require.NoError(t, err)

	other, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)

	_, err = ecies.Open(other.Serialize(), sealed)
	assert.Error(t, err)
}

func TestSealRejectsUncompressedKey(t *testing.T) {
	priv, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	uncompressed := priv.PubKey().SerializeUncompressed()

	_, err = ecies.Seal(uncompressed, []byte("x"))
	assert.Error(t, err)
}

func TestOpenRejectsMalformedBlob(t *testing.T) {
	priv, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)

	_, err = ecies.Open(priv.Serialize(), []byte("too short"))
	assert.ErrorIs(t, err, ecies.ErrMalformed)
}

func TestOpenRejectsWrongSecretKeySize(t *testing.T) {
	_, err := ecies.Open([]byte("not 32 bytes"), make([]byte, 64))
	assert.Error(t, err)
}
