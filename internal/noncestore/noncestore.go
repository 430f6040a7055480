// Package noncestore implements the replay-protection ledger the auth
// envelope consults on every verify (spec §3 NonceEntry, §4.1).
package noncestore

import (
	"context"
	"time"
)

// Entry is a single accepted nonce (spec §3).
type Entry struct {
	Nonce     string
	Timestamp int64 // unix seconds, as claimed by the caller
	CreatedAt time.Time
}

// Store records nonces and rejects replays. CheckAndRecord must be atomic:
// of any number of concurrent calls for the same nonce, exactly one may
// observe "new" (spec §8).
type Store interface {
	// CheckAndRecord inserts nonce if and only if it isn't already present.
	// Returns true if this call was the one that inserted it ("new"), false
	// if the nonce was already on the ledger (a replay).
	CheckAndRecord(ctx context.Context, nonce string, timestamp int64, now time.Time) (isNew bool, err error)

	// Purge removes entries whose timestamp is older than cutoff (spec:
	// purged after 2*W of inactivity).
	Purge(ctx context.Context, cutoff time.Time) (int64, error)

	Close() error
}
