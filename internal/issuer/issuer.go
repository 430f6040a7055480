// Package issuer implements the Actor Identity Issuer's Allocate operation
// (spec §4.5): realm/ACL check, public-key cache read, snowflake
// allocation, claims build, ECIES seal, PSK generation.
package issuer

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"time"

	"github.com/webrtc-relay/trustcore/internal/ecies"
	"github.com/webrtc-relay/trustcore/internal/pkcache"
	"github.com/webrtc-relay/trustcore/internal/realm"
	"github.com/webrtc-relay/trustcore/internal/snowflake"
	"github.com/webrtc-relay/trustcore/internal/wire"
)

// PSKSize is the length of the per-actor pre-shared key (spec §3, §4.5
// step 6): "32 cryptographically-random bytes... never stored
// server-side."
const PSKSize = 32

// Config governs issuance not fixed by the wire contract (spec §6.5).
type Config struct {
	// TokenTTL is added to now to compute claims.expires_at
	// (ais.token_ttl_seconds).
	TokenTTL time.Duration

	// SignalingHeartbeatIntervalSecs is echoed back on success when a
	// realm doesn't override it (ais.signaling_heartbeat_interval_secs).
	SignalingHeartbeatIntervalSecs uint32
}

// Issuer ties together the allocator, the realm/ACL reader, and the
// public-key cache to produce credentials (spec §4.5 Contract).
type Issuer struct {
	Realms    realm.Reader
	Keys      *pkcache.Cache
	Allocator *snowflake.Allocator
	Config    Config
}

// Allocate implements spec §4.5's algorithm end to end.
func (iss *Issuer) Allocate(ctx context.Context, req wire.AllocateRequest) wire.AllocateResponse {
	cfg, err := iss.Realms.Lookup(ctx, req.RealmID)
	if err != nil {
		if errors.Is(err, realm.ErrNotFound) {
			return failure(wire.KindRealmNotFound, "realm not found")
		}
		return failure(wire.KindInternalError, "realm lookup failed")
	}

	if err := iss.Realms.Allowed(ctx, req.RealmID, realm.ActorType(req.ActorType)); err != nil {
		if errors.Is(err, realm.ErrForbidden) {
			return failure(wire.KindForbidden, "actor type not permitted in this realm")
		}
		return failure(wire.KindInternalError, "realm acl check failed")
	}

	keyID, publicKey, err := iss.Keys.GetActive(ctx)
	if err != nil {
		return failure(wire.KindKsUnavailable, "no usable key server public key available")
	}

	actorID := iss.Allocator.Next()

	now := time.Now()
	claims := wire.Claims{
		ActorID:   actorID,
		RealmID:   req.RealmID,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(iss.Config.TokenTTL).Unix(),
	}

	psk := make([]byte, PSKSize)
	if _, err := io.ReadFull(rand.Reader, psk); err != nil {
		return failure(wire.KindInternalError, "failed to generate psk")
	}
	claims.PSK = psk

	ciphertext, err := ecies.Seal(publicKey, wire.MarshalClaims(claims))
	if err != nil {
		return failure(wire.KindInternalError, "failed to seal credential")
	}

	credential := wire.MarshalCredential(wire.CredentialWire{KeyID: keyID, Ciphertext: ciphertext})

	heartbeat := cfg.SignalingHeartbeatIntervalSecs
	if heartbeat == 0 {
		heartbeat = iss.Config.SignalingHeartbeatIntervalSecs
	}

	return wire.AllocateResponse{Success: &wire.AllocateSuccess{
		ActorID:                        actorID,
		Credential:                     credential,
		PSK:                            psk,
		SignalingHeartbeatIntervalSecs: heartbeat,
	}}
}

func failure(code wire.ErrorKind, msg string) wire.AllocateResponse {
	return wire.AllocateResponse{Failure: &wire.AllocateFailure{Code: code, Message: msg}}
}
