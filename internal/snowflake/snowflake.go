// Package snowflake implements the lock-free 64-bit actor ID allocator
// (spec §3 ActorID, §4.4). The spec mandates a single atomic word rather
// than a mutex-guarded struct; sync/atomic's CompareAndSwap is the only
// primitive that fits.
package snowflake

import (
	"sync/atomic"
	"time"
)

// Epoch is the reference point timestamps are measured from. Fixed at
// package init so every worker in a deployment agrees on it.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Layout (spec §3, §4.4), from the low bit up: 10-bit reserved | 8-bit
// sequence | 5-bit worker_id | 41-bit epoch-ms timestamp. The atomic word
// packs only (timestamp, sequence); worker_id is folded in at assembly
// time, since it's fixed for the process's lifetime.
const (
	reservedBits = 10
	seqBits      = 8
	workerIDBits = 5

	maxSeq      = 1<<seqBits - 1
	maxWorkerID = 1<<workerIDBits - 1

	seqShift      = reservedBits
	workerIDShift = reservedBits + seqBits
	tsShift       = reservedBits + seqBits + workerIDBits
)

// Allocator generates monotonically non-decreasing 64-bit IDs for one
// worker. Safe for concurrent use; state lives entirely in a single
// atomic.Uint64 (spec §9: "a single atomic word, not a mutex-guarded
// struct").
type Allocator struct {
	workerID uint64
	state    atomic.Uint64 // packed (timestamp_ms-Epoch)<<8 | sequence
	now      func() time.Time
}

// New returns an Allocator for workerID, which must fit in 5 bits.
func New(workerID uint32) *Allocator {
	if workerID > maxWorkerID {
		panic("snowflake: worker id out of range")
	}
	return &Allocator{workerID: uint64(workerID), now: time.Now}
}

// Next produces the next ID for this worker (spec §4.4 algorithm). Under
// concurrent callers every returned id is distinct; clock regression is
// absorbed by staying on the previous timestamp, forcing the sequence
// forward instead of going backwards.
func (a *Allocator) Next() uint64 {
	for {
		old := a.state.Load()
		oldTs, oldSeq := decode(old)

		nowTs := uint64(a.now().Sub(Epoch).Milliseconds())

		var newTs, newSeq uint64
		switch {
		case nowTs > oldTs:
			newTs, newSeq = nowTs, 0
		case oldSeq < maxSeq:
			newTs, newSeq = oldTs, oldSeq+1
		default:
			// Sequence exhausted within the same millisecond: force the
			// timestamp forward rather than blocking.
			newTs, newSeq = oldTs+1, 0
		}

		if a.state.CompareAndSwap(old, encode(newTs, newSeq)) {
			return assemble(a.workerID, newTs, newSeq)
		}
	}
}

func decode(state uint64) (ts, seq uint64) {
	return state >> seqBits, state & maxSeq
}

func encode(ts, seq uint64) uint64 {
	return ts<<seqBits | seq
}

func assemble(workerID, ts, seq uint64) uint64 {
	return ts<<tsShift | workerID<<workerIDShift | seq<<seqShift
}
