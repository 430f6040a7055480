// Package keystore defines the persistent KeyRecord the Key Server
// generates and dispenses, and the storage contract any backend (SQL or
// in-memory) must satisfy (spec §3 KeyRecord, §4.2).
package keystore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key_id has no matching record.
var ErrNotFound = errors.New("keystore: key record not found")

// ErrSerialization indicates the compressed-key invariant was violated: a
// public key that is not exactly 33 bytes. The spec treats this as an
// implementation bug, never an expected runtime condition.
var ErrSerialization = errors.New("keystore: public key is not 33 bytes")

// PublicKeySize is the length of a compressed secp256k1 point.
const PublicKeySize = 33

// SecretKeySize is the length of a secp256k1 scalar.
const SecretKeySize = 32

// Record is the unit of persistent key state (spec §3).
type Record struct {
	KeyID     uint32
	PublicKey []byte // always PublicKeySize bytes
	SecretKey []byte // always SecretKeySize bytes
	CreatedAt time.Time
	ExpiresAt int64 // unix seconds; 0 means "never expires"
}

// Usable reports whether the record may still be used for decrypt/sign
// operations as of now (spec §3: "expires_at = 0 OR expires_at >= now").
func (r Record) Usable(now time.Time) bool {
	return r.ExpiresAt == 0 || r.ExpiresAt >= now.Unix()
}

// ValidatePublicKey enforces the compressed-key invariant on every insert
// and every read (spec §3, §4.2, §8).
func ValidatePublicKey(pk []byte) error {
	if len(pk) != PublicKeySize {
		return ErrSerialization
	}
	return nil
}

// Store is the persistence contract the Key Server depends on. Backends:
// internal/store (SQL) and an in-memory test double, both in that package.
type Store interface {
	// Insert assigns the next monotonic key_id and persists rec, returning
	// the record with KeyID populated. rec.KeyID on input is ignored.
	Insert(ctx context.Context, rec Record) (Record, error)

	// Get fetches a record by key_id. Returns ErrNotFound if absent.
	// Callers distinguish "not found" from "expired" themselves via Usable.
	Get(ctx context.Context, keyID uint32) (Record, error)

	// Count returns the number of usable records (unexpired or never
	// expiring), for health(). Expired records not yet swept are excluded.
	Count(ctx context.Context) (int, error)

	// Sweep deletes every record with a nonzero expires_at before cutoff.
	Sweep(ctx context.Context, cutoff time.Time) (int64, error)

	Close() error
}
