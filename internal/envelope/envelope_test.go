package envelope_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webrtc-relay/trustcore/internal/envelope"
	"github.com/webrtc-relay/trustcore/internal/store"
	"github.com/webrtc-relay/trustcore/internal/wire"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	acl := store.NewMemoryACL()
	acl.SeedNodeSecret("node-a", []byte("0123456789abcdef"), "issuer")

	v := envelope.NewVerifier(acl, store.NewMemory())

	now := time.Unix(1_700_000_000, 0)
	env, err := envelope.Sign([]byte("0123456789abcdef"), "node-a", "generate_key", "", now)
	require.NoError(t, err)

	werr := v.Verify(context.Background(), env, "generate_key", "", now)
	assert.Nil(t, werr)
}

func TestSignRejectsShortSecret(t *testing.T) {
	_, err := envelope.Sign([]byte("short"), "node-a", "generate_key", "", time.Now())
	assert.Error(t, err)
}

func TestVerifyRejectsReplay(t *testing.T) {
	acl := store.NewMemoryACL()
	acl.SeedNodeSecret("node-a", []byte("0123456789abcdef"), "issuer")
	v := envelope.NewVerifier(acl, store.NewMemory())

	now := time.Unix(1_700_000_000, 0)
	env, err := envelope.Sign([]byte("0123456789abcdef"), "node-a", "generate_key", "", now)
	require.NoError(t, err)

	require.Nil(t, v.Verify(context.Background(), env, "generate_key", "", now))

	werr := v.Verify(context.Background(), env, "generate_key", "", now)
	require.NotNil(t, werr)
	assert.Equal(t, wire.KindReplay, werr.Code)
}

func TestVerifyRejectsStaleTimestamp(t *testing.T) {
	acl := store.NewMemoryACL()
	acl.SeedNodeSecret("node-a", []byte("0123456789abcdef"), "issuer")
	v := envelope.NewVerifier(acl, store.NewMemory())
	v.ClockSkew = 5 * time.Second

	signedAt := time.Unix(1_700_000_000, 0)
	env, err := envelope.Sign([]byte("0123456789abcdef"), "node-a", "generate_key", "", signedAt)
	require.NoError(t, err)

	verifiedAt := signedAt.Add(time.Minute)
	werr := v.Verify(context.Background(), env, "generate_key", "", verifiedAt)
	require.NotNil(t, werr)
	assert.Equal(t, wire.KindStaleTimestamp, werr.Code)
}

func TestVerifyRejectsBadSignature(t *testing.T) {
	acl := store.NewMemoryACL()
	acl.SeedNodeSecret("node-a", []byte("0123456789abcdef"), "issuer")
	v := envelope.NewVerifier(acl, store.NewMemory())

	now := time.Unix(1_700_000_000, 0)
	env, err := envelope.Sign([]byte("0123456789abcdef"), "node-a", "generate_key", "", now)
	require.NoError(t, err)

	env.Signature = "tampered"
	werr := v.Verify(context.Background(), env, "generate_key", "", now)
	require.NotNil(t, werr)
	assert.Equal(t, wire.KindInvalidSignature, werr.Code)
}

func TestVerifyRejectsUnknownCaller(t *testing.T) {
	acl := store.NewMemoryACL()
	v := envelope.NewVerifier(acl, store.NewMemory())

	now := time.Unix(1_700_000_000, 0)
	env, err := envelope.Sign([]byte("0123456789abcdef"), "stranger", "generate_key", "", now)
	require.NoError(t, err)

	werr := v.Verify(context.Background(), env, "generate_key", "", now)
	require.NotNil(t, werr)
	assert.Equal(t, wire.KindInvalidSignature, werr.Code)
}

func TestVerifyRejectsWrongAction(t *testing.T) {
	acl := store.NewMemoryACL()
	acl.SeedNodeSecret("node-a", []byte("0123456789abcdef"), "issuer")
	v := envelope.NewVerifier(acl, store.NewMemory())

	now := time.Unix(1_700_000_000, 0)
	env, err := envelope.Sign([]byte("0123456789abcdef"), "node-a", "generate_key", "", now)
	require.NoError(t, err)

	werr := v.Verify(context.Background(), env, "get_secret_key", "", now)
	require.NotNil(t, werr)
	assert.Equal(t, wire.KindInvalidSignature, werr.Code)
}
