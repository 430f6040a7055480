package snowflake

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsOutOfRangeWorkerID(t *testing.T) {
	assert.Panics(t, func() { New(maxWorkerID + 1) })
}

func TestNextIsMonotonic(t *testing.T) {
	a := New(3)
	var prev uint64
	for i := 0; i < 1000; i++ {
		id := a.Next()
		assert.Greater(t, id, prev)
		prev = id
	}
}

func TestNextIsUniqueUnderConcurrency(t *testing.T) {
	a := New(1)
	const n = 2000
	ids := make(chan uint64, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- a.Next()
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[uint64]bool, n)
	for id := range ids {
		require.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
}

func TestNextForcesSequenceOverflowForward(t *testing.T) {
	a := New(0)
	frozen := time.Unix(1_700_000_000, 0)
	a.now = func() time.Time { return frozen }

	var prev uint64
	for i := 0; i <= maxSeq+5; i++ {
		id := a.Next()
		if i > 0 {
			assert.Greater(t, id, prev)
		}
		prev = id
	}
}

func TestAssembleEncodesWorkerID(t *testing.T) {
	id := assemble(7, 123, 4)
	assert.Equal(t, uint64(7), (id>>workerIDShift)&maxWorkerID)
}
