// Package keyserver implements the Key Server: generate/dispense secp256k1
// key pairs behind the auth envelope (spec §4.2).
package keyserver

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/webrtc-relay/trustcore/internal/envelope"
	"github.com/webrtc-relay/trustcore/internal/keystore"
	"github.com/webrtc-relay/trustcore/internal/wire"
)

// Config governs KS behavior not fixed by the wire contract (spec §6.5).
type Config struct {
	// KeyTTL is added to now when generate_key assigns expires_at; 0 means
	// never expires. ks.key_ttl_seconds (spec §6.5).
	KeyTTL time.Duration

	// AllowNeverExpiringKeys permits KeyTTL == 0 (expires_at := 0). Defaults
	// to false: spec §9 open question 1 names "forbid expires_at=0 by
	// default" as the safer choice.
	AllowNeverExpiringKeys bool
}

// Server is the KS RPC implementation. One Server is built per process;
// its KeyStore owns the database connection pool (spec §3 ownership).
type Server struct {
	Keys     keystore.Store
	Verifier *envelope.Verifier
	Roles    RoleResolver
	Config   Config
	Now      func() time.Time
}

// dummySecret is hashed in the NotFound/Expired path so that its latency
// approximates the hit path, per spec §4.2's timing-mitigation note: "the
// response latency on NotFound and Expired should approximate the hit
// path (compute a dummy HMAC or similar) to mitigate key_id enumeration
// by timing."
var dummySecret = []byte("trustcore/keyserver/timing-dummy-secret-00000000")

func timingDummy(keyID uint32) {
	mac := hmac.New(sha256.New, dummySecret)
	var b [4]byte
	b[0], b[1], b[2], b[3] = byte(keyID), byte(keyID>>8), byte(keyID>>16), byte(keyID>>24)
	mac.Write(b[:])
	mac.Sum(nil)
}

func (s *Server) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// authorize runs the auth envelope verify plus the role-ACL gate for
// action (spec §4.2 "state machine": received → envelope_verify →
// action_dispatch).
func (s *Server) authorize(ctx context.Context, e wire.Envelope, action Action, subject string) *wire.Error {
	if werr := s.Verifier.Verify(ctx, e, string(action), subject, s.now()); werr != nil {
		return werr
	}
	role, err := s.Roles.Role(ctx, e.NodeID)
	if err != nil {
		return wire.NewError(wire.KindInvalidSignature, "unknown caller role")
	}
	ok, err := s.Roles.Allowed(ctx, role, action)
	if err != nil {
		return wire.NewError(wire.KindInternalError, "access control unavailable")
	}
	if !ok {
		return wire.NewError(wire.KindInvalidSignature, "role not permitted to perform this action")
	}
	return nil
}

// GenerateKey implements spec §4.2 generate_key.
func (s *Server) GenerateKey(ctx context.Context, e wire.Envelope) (wire.GenerateKeyResponse, *wire.Error) {
	if werr := s.authorize(ctx, e, ActionGenerateKey, ""); werr != nil {
		return wire.GenerateKeyResponse{}, werr
	}

	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return wire.GenerateKeyResponse{}, wire.NewError(wire.KindInternalError, "key generation failed")
	}

	pub := priv.PubKey().SerializeCompressed()
	if verr := keystore.ValidatePublicKey(pub); verr != nil {
		// Defensive: an implementation bug if secp256k1 ever produces a
		// non-33-byte compressed point (spec §4.2).
		return wire.GenerateKeyResponse{}, wire.NewError(wire.KindSerializationErr, "generated key failed serialization invariant")
	}

	now := s.now()
	var expiresAt int64
	if s.Config.KeyTTL > 0 {
		expiresAt = now.Add(s.Config.KeyTTL).Unix()
	} else if !s.Config.AllowNeverExpiringKeys {
		return wire.GenerateKeyResponse{}, wire.NewError(wire.KindInternalError, "non-expiring keys are disabled by configuration")
	}

	rec, err := s.Keys.Insert(ctx, keystore.Record{
		PublicKey: pub,
		SecretKey: priv.Serialize(),
		CreatedAt: now,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return wire.GenerateKeyResponse{}, wire.NewError(wire.KindInternalError, "failed to persist key")
	}

	return wire.GenerateKeyResponse{
		KeyID:     rec.KeyID,
		PublicKey: encodeBase64(rec.PublicKey),
		ExpiresAt: rec.ExpiresAt,
	}, nil
}

// GetSecretKey implements spec §4.2 get_secret_key.
func (s *Server) GetSecretKey(ctx context.Context, keyID uint32, e wire.Envelope) (wire.GetSecretKeyResponse, *wire.Error) {
	subject := subjectFromKeyID(keyID)
	if werr := s.authorize(ctx, e, ActionGetSecretKey, subject); werr != nil {
		return wire.GetSecretKeyResponse{}, werr
	}

	rec, err := s.Keys.Get(ctx, keyID)
	if err != nil {
		timingDummy(keyID)
		if err == keystore.ErrNotFound {
			return wire.GetSecretKeyResponse{}, wire.NewError(wire.KindNotFound, "no such key")
		}
		return wire.GetSecretKeyResponse{}, wire.NewError(wire.KindInternalError, "lookup failed")
	}

	if !rec.Usable(s.now()) {
		timingDummy(keyID)
		return wire.GetSecretKeyResponse{}, wire.NewError(wire.KindExpired, "key has expired")
	}

	return wire.GetSecretKeyResponse{
		KeyID:     rec.KeyID,
		SecretKey: encodeBase64(rec.SecretKey),
		ExpiresAt: rec.ExpiresAt,
	}, nil
}

// GetPublicKey implements spec §4.2 get_public_key (unauthenticated read).
func (s *Server) GetPublicKey(ctx context.Context, keyID uint32) (wire.GetPublicKeyResponse, *wire.Error) {
	rec, err := s.Keys.Get(ctx, keyID)
	if err != nil {
		if err == keystore.ErrNotFound {
			return wire.GetPublicKeyResponse{}, wire.NewError(wire.KindNotFound, "no such key")
		}
		return wire.GetPublicKeyResponse{}, wire.NewError(wire.KindInternalError, "lookup failed")
	}
	return wire.GetPublicKeyResponse{
		KeyID:     rec.KeyID,
		PublicKey: encodeBase64(rec.PublicKey),
		ExpiresAt: rec.ExpiresAt,
	}, nil
}

// Health implements spec §4.2 health.
func (s *Server) Health(ctx context.Context) (wire.HealthResponse, error) {
	n, err := s.Keys.Count(ctx)
	if err != nil {
		return wire.HealthResponse{}, err
	}
	return wire.HealthResponse{Status: "healthy", KeyCount: n}, nil
}
