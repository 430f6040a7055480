//go:build cgo
// +build cgo

package store_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webrtc-relay/trustcore/internal/keystore"
	"github.com/webrtc-relay/trustcore/internal/store"
)

func openSQLiteForTest(t *testing.T) *store.SQL {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := store.Open(store.Config{DSN: "sqlite3::memory:"}, nil, time.Minute, logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// TestSQLiteGenerateKeyInsertAssignsKeyID exercises the real migrate() + SQL
// path end to end: it would catch the key_record DDL (key_id serial primary
// key) failing to translate into a SQLite ROWID alias, which otherwise
// leaves key_id NULL and breaks "returning key_id" on every insert.
func TestSQLiteGenerateKeyInsertAssignsKeyID(t *testing.T) {
	s := openSQLiteForTest(t)

	pub := make([]byte, keystore.PublicKeySize)
	sec := make([]byte, keystore.SecretKeySize)
	now := time.Now()

	rec, err := s.Keys.Insert(context.Background(), keystore.Record{
		PublicKey: pub,
		SecretKey: sec,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour).Unix(),
	})
	require.NoError(t, err)
	assert.NotZero(t, rec.KeyID)

	got, err := s.Keys.Get(context.Background(), rec.KeyID)
	require.NoError(t, err)
	assert.Equal(t, rec.KeyID, got.KeyID)
	assert.Equal(t, pub, got.PublicKey)
	assert.Equal(t, sec, got.SecretKey)
}

func TestSQLiteGenerateKeyInsertAssignsDistinctIncreasingIDs(t *testing.T) {
	s := openSQLiteForTest(t)

	pub := make([]byte, keystore.PublicKeySize)
	sec := make([]byte, keystore.SecretKeySize)
	now := time.Now()

	first, err := s.Keys.Insert(context.Background(), keystore.Record{PublicKey: pub, SecretKey: sec, CreatedAt: now})
	require.NoError(t, err)
	second, err := s.Keys.Insert(context.Background(), keystore.Record{PublicKey: pub, SecretKey: sec, CreatedAt: now})
	require.NoError(t, err)

	assert.NotZero(t, first.KeyID)
	assert.Greater(t, second.KeyID, first.KeyID)
}

func TestSQLiteNonceCheckAndRecordRejectsReplay(t *testing.T) {
	s := openSQLiteForTest(t)
	now := time.Now()

	isNew, err := s.Nonces.CheckAndRecord(context.Background(), "nonce-1", now.Unix(), now)
	require.NoError(t, err)
	assert.True(t, isNew)

	isNew, err = s.Nonces.CheckAndRecord(context.Background(), "nonce-1", now.Unix(), now)
	require.NoError(t, err)
	assert.False(t, isNew)
}
