package pkcache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	calls     atomic.Int32
	keyID     uint32
	pubKey    []byte
	expiresAt int64
	err       error
}

func (f *fakeFetcher) FetchActiveKey(ctx context.Context) (uint32, []byte, int64, error) {
	f.calls.Add(1)
	if f.err != nil {
		return 0, nil, 0, f.err
	}
	return f.keyID, f.pubKey, f.expiresAt, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGetActiveFetchesOnFirstCall(t *testing.T) {
	f := &fakeFetcher{keyID: 1, pubKey: []byte("pub"), expiresAt: 0}
	c := New(f, discardLogger())

	keyID, pub, err := c.GetActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint32(1), keyID)
	assert.Equal(t, []byte("pub"), pub)
	assert.EqualValues(t, 1, f.calls.Load())
}

func TestGetActiveReusesCachedKey(t *testing.T) {
	f := &fakeFetcher{keyID: 1, pubKey: []byte("pub"), expiresAt: 0}
	c := New(f, discardLogger())

	_, _, err := c.GetActive(context.Background())
	require.NoError(t, err)
	_, _, err = c.GetActive(context.Background())
	require.NoError(t, err)

	assert.EqualValues(t, 1, f.calls.Load())
}

func TestGetActiveFallsBackWithinTolerance(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	f := &fakeFetcher{keyID: 1, pubKey: []byte("pub"), expiresAt: now.Unix() - 10}
	c := New(f, discardLogger())
	c.now = func() time.Time { return now }

	// Prime the cache with an already-expired-but-within-tolerance key.
	_, _, err := c.GetActive(context.Background())
	require.NoError(t, err)

	f.err = errors.New("ks unavailable")
	keyID, pub, err := c.GetActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint32(1), keyID)
	assert.Equal(t, []byte("pub"), pub)
}

func TestGetActiveFailsOutsideTolerance(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	f := &fakeFetcher{keyID: 1, pubKey: []byte("pub"), expiresAt: now.Unix() - 10}
	c := New(f, discardLogger())
	c.now = func() time.Time { return now }

	_, _, err := c.GetActive(context.Background())
	require.NoError(t, err)

	c.now = func() time.Time { return now.Add(c.tolerance + time.Second) }
	f.err = errors.New("ks unavailable")

	_, _, err = c.GetActive(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestRefreshIfStaleSkipsWhenFarFromExpiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	f := &fakeFetcher{keyID: 1, pubKey: []byte("pub"), expiresAt: now.Add(time.Hour).Unix()}
	c := New(f, discardLogger())
	c.now = func() time.Time { return now }

	_, _, err := c.GetActive(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, f.calls.Load())

	require.NoError(t, c.RefreshIfStale(context.Background()))
	assert.EqualValues(t, 1, f.calls.Load(), "should not refetch when well before pre-expiry window")
}

func TestRefreshIfStaleRefreshesWithinWindow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	f := &fakeFetcher{keyID: 1, pubKey: []byte("pub"), expiresAt: now.Add(5 * time.Minute).Unix()}
	c := New(f, discardLogger())
	c.now = func() time.Time { return now }

	_, _, err := c.GetActive(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, f.calls.Load())

	require.NoError(t, c.RefreshIfStale(context.Background()))
	assert.EqualValues(t, 2, f.calls.Load(), "should refetch inside the pre-expiry window")
}

func TestRefreshIfStaleNoopForNeverExpiring(t *testing.T) {
	f := &fakeFetcher{keyID: 1, pubKey: []byte("pub"), expiresAt: 0}
	c := New(f, discardLogger())

	_, _, err := c.GetActive(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, f.calls.Load())

	require.NoError(t, c.RefreshIfStale(context.Background()))
	assert.EqualValues(t, 1, f.calls.Load())
}
