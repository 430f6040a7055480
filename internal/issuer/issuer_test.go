package issuer_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webrtc-relay/trustcore/internal/ecies"
	"github.com/webrtc-relay/trustcore/internal/issuer"
	"github.com/webrtc-relay/trustcore/internal/pkcache"
	"github.com/webrtc-relay/trustcore/internal/realm"
	"github.com/webrtc-relay/trustcore/internal/snowflake"
	"github.com/webrtc-relay/trustcore/internal/store"
	"github.com/webrtc-relay/trustcore/internal/wire"
)

type fixedKeyFetcher struct {
	keyID     uint32
	publicKey []byte
	expiresAt int64
}

func (f *fixedKeyFetcher) FetchActiveKey(ctx context.Context) (uint32, []byte, int64, error) {
	return f.keyID, f.publicKey, f.expiresAt, nil
}

func newIssuer(t *testing.T, mem *store.Memory, pub []byte) *issuer.Issuer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache := pkcache.New(&fixedKeyFetcher{keyID: 1, publicKey: pub}, logger)

	return &issuer.Issuer{
		Realms:    mem,
		Keys:      cache,
		Allocator: snowflake.New(0),
		Config:    issuer.Config{TokenTTL: time.Hour, SignalingHeartbeatIntervalSecs: 30},
	}
}

func TestAllocateSucceeds(t *testing.T) {
	priv, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)

	mem := store.NewMemory()
	mem.SeedRealm(7, realm.Config{SignalingHeartbeatIntervalSecs: 0}, realm.ActorType{Manufacturer: "acme", Name: "cam"})

	iss := newIssuer(t, mem, priv.PubKey().SerializeCompressed())

	resp := iss.Allocate(context.Background(), wire.AllocateRequest{
		RealmID:   7,
		ActorType: wire.ActorType{Manufacturer: "acme", Name: "cam"},
	})

	require.Nil(t, resp.Failure)
	require.NotNil(t, resp.Success)
	assert.NotZero(t, resp.Success.ActorID)
	assert.Len(t, resp.Success.PSK, issuer.PSKSize)

	cred, err := wire.UnmarshalCredential(resp.Success.Credential)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), cred.KeyID)

	plaintext, err := ecies.Open(priv.Serialize(), cred.Ciphertext)
	require.NoError(t, err)
	claims, err := wire.UnmarshalClaims(plaintext)
	require.NoError(t, err)
	assert.Equal(t, resp.Success.ActorID, claims.ActorID)
	assert.Equal(t, resp.Success.PSK, claims.PSK)
}

func TestAllocateRealmNotFound(t *testing.T) {
	priv, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)

	mem := store.NewMemory()
	iss := newIssuer(t, mem, priv.PubKey().SerializeCompressed())

	resp := iss.Allocate(context.Background(), wire.AllocateRequest{RealmID: 99})
	require.NotNil(t, resp.Failure)
	assert.Equal(t, wire.KindRealmNotFound, resp.Failure.Code)
}

func TestAllocateForbiddenActorType(t *testing.T) {
	priv, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)

	mem := store.NewMemory()
	mem.SeedRealm(7, realm.Config{}, realm.ActorType{Manufacturer: "acme", Name: "cam"})
	iss := newIssuer(t, mem, priv.PubKey().SerializeCompressed())

	resp := iss.Allocate(context.Background(), wire.AllocateRequest{
		RealmID:   7,
		ActorType: wire.ActorType{Manufacturer: "other", Name: "thing"},
	})
	require.NotNil(t, resp.Failure)
	assert.Equal(t, wire.KindForbidden, resp.Failure.Code)
}

func TestAllocateUsesRealmHeartbeatOverride(t *testing.T) {
	priv, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)

	mem := store.NewMemory()
	mem.SeedRealm(7, realm.Config{SignalingHeartbeatIntervalSecs: 90}, realm.ActorType{Manufacturer: "acme", Name: "cam"})
	iss := newIssuer(t, mem, priv.PubKey().SerializeCompressed())

	resp := iss.Allocate(context.Background(), wire.AllocateRequest{
		RealmID:   7,
		ActorType: wire.ActorType{Manufacturer: "acme", Name: "cam"},
	})
	require.NotNil(t, resp.Success)
	assert.EqualValues(t, 90, resp.Success.SignalingHeartbeatIntervalSecs)
}
