// Package envelope implements the nonce+timestamp+HMAC auth envelope that
// wraps the Key Server's authenticated calls (generate_key, get_secret_key),
// which the AIS and remote validators make (spec §3 AuthEnvelope, §4.1).
// The AIS allocate endpoint carries no envelope.
package envelope

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/webrtc-relay/trustcore/internal/noncestore"
	"github.com/webrtc-relay/trustcore/internal/wire"
)

// DefaultClockSkew is W from spec §3/§4.1/§6.5 (auth.max_clock_skew_secs).
const DefaultClockSkew = 300 * time.Second

// SecretResolver looks up the shared secret for a calling node (spec §4.2
// access control: "a small map node_id → secret").
type SecretResolver interface {
	Secret(ctx context.Context, nodeID string) ([]byte, error)
}

// Verifier checks incoming envelopes against a nonce store and a secret
// resolver. One Verifier is shared by every RPC handler in a process; only
// the KS builds one, over its own nonce store.
type Verifier struct {
	Secrets   SecretResolver
	Nonces    noncestore.Store
	ClockSkew time.Duration
}

// NewVerifier constructs a Verifier with the spec default clock skew.
func NewVerifier(secrets SecretResolver, nonces noncestore.Store) *Verifier {
	return &Verifier{Secrets: secrets, Nonces: nonces, ClockSkew: DefaultClockSkew}
}

// Sign produces a fresh envelope for action/subject, signed with secret on
// behalf of nodeID (spec §4.1 sign operation). subject may be empty.
func Sign(secret []byte, nodeID, action, subject string, now time.Time) (wire.Envelope, error) {
	if len(secret) < 16 {
		return wire.Envelope{}, fmt.Errorf("envelope: secret must be at least 16 bytes, got %d", len(secret))
	}
	nonce := uuid.NewString()
	ts := now.Unix()
	sig := sign(secret, action, subject, nodeID, ts, nonce)
	return wire.Envelope{
		NodeID:    nodeID,
		Nonce:     nonce,
		Timestamp: ts,
		Signature: base64.StdEncoding.EncodeToString(sig),
	}, nil
}

// Verify checks e against action/subject (spec §4.1 verify operation).
// Returns the *wire.Error the caller should surface, or nil on success.
func (v *Verifier) Verify(ctx context.Context, e wire.Envelope, action, subject string, now time.Time) *wire.Error {
	secret, err := v.Secrets.Secret(ctx, e.NodeID)
	if err != nil {
		return wire.NewError(wire.KindInvalidSignature, "unknown caller")
	}

	want := sign(secret, action, subject, e.NodeID, e.Timestamp, e.Nonce)
	got, err := base64.StdEncoding.DecodeString(e.Signature)
	if err != nil || !hmac.Equal(want, got) {
		return wire.NewError(wire.KindInvalidSignature, "signature mismatch")
	}

	skew := v.ClockSkew
	if skew == 0 {
		skew = DefaultClockSkew
	}
	delta := now.Unix() - e.Timestamp
	if delta < 0 {
		delta = -delta
	}
	if time.Duration(delta)*time.Second > skew {
		return wire.NewError(wire.KindStaleTimestamp, "timestamp outside allowed skew")
	}

	isNew, err := v.Nonces.CheckAndRecord(ctx, e.Nonce, e.Timestamp, now)
	if err != nil {
		return wire.NewError(wire.KindInternalError, "nonce store unavailable")
	}
	if !isNew {
		return wire.NewError(wire.KindReplay, "nonce already used")
	}

	return nil
}

// sign computes HMAC-SHA256(secret, action ':' subject ':' node_id ':'
// timestamp ':' nonce) over the canonical string (spec §3, §4.1). Both
// Sign and Verify must build this string identically.
func sign(secret []byte, action, subject, nodeID string, timestamp int64, nonce string) []byte {
	canonical := action + ":" + subject + ":" + nodeID + ":" + strconv.FormatInt(timestamp, 10) + ":" + nonce
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(canonical))
	return mac.Sum(nil)
}
