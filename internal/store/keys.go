package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/webrtc-relay/trustcore/internal/kek"
	"github.com/webrtc-relay/trustcore/internal/keystore"
)

// SQLKeyStore adapts conn to keystore.Store. Grounded on storage/sql/crud.go's
// GetKeys/UpdateKeys shape, generalized from "one rotating signing key" to
// "many independently keyed records" with a database-assigned key_id. When
// kekKey is set, secret_key is wrapped at rest (spec §9 open question 3);
// plaintext remains the default.
type SQLKeyStore struct {
	c      *conn
	kekKey []byte
}

var _ keystore.Store = (*SQLKeyStore)(nil)

func (s *SQLKeyStore) Insert(ctx context.Context, rec keystore.Record) (keystore.Record, error) {
	if err := keystore.ValidatePublicKey(rec.PublicKey); err != nil {
		return keystore.Record{}, err
	}
	if len(rec.SecretKey) != keystore.SecretKeySize {
		return keystore.Record{}, fmt.Errorf("keystore: secret key is not %d bytes", keystore.SecretKeySize)
	}

	secret := rec.SecretKey
	wrapped := false
	if s.kekKey != nil {
		w, err := kek.Wrap(secret, s.kekKey)
		if err != nil {
			return keystore.Record{}, fmt.Errorf("wrap secret key: %v", err)
		}
		secret, wrapped = w, true
	}

	row := s.c.QueryRow(`
		insert into key_record (public_key, secret_key, kek_wrapped, created_at, expires_at)
		values ($1, $2, $3, $4, $5)
		returning key_id
	`, rec.PublicKey, secret, wrapped, rec.CreatedAt, rec.ExpiresAt)

	var keyID uint32
	if err := row.Scan(&keyID); err != nil {
		return keystore.Record{}, fmt.Errorf("insert key record: %v", err)
	}
	rec.KeyID = keyID
	return rec, nil
}

func (s *SQLKeyStore) Get(ctx context.Context, keyID uint32) (keystore.Record, error) {
	return getKeyRecord(s.c, keyID, s.kekKey)
}

func getKeyRecord(q querier, keyID uint32, kekKey []byte) (keystore.Record, error) {
	var rec keystore.Record
	var createdAt time.Time
	var wrapped bool
	err := q.QueryRow(`
		select key_id, public_key, secret_key, kek_wrapped, created_at, expires_at
		from key_record
		where key_id = $1
	`, keyID).Scan(&rec.KeyID, &rec.PublicKey, &rec.SecretKey, &wrapped, &createdAt, &rec.ExpiresAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return keystore.Record{}, keystore.ErrNotFound
		}
		return keystore.Record{}, fmt.Errorf("get key record: %v", err)
	}
	rec.CreatedAt = createdAt
	if wrapped {
		if kekKey == nil {
			return keystore.Record{}, fmt.Errorf("keystore: record %d is kek-wrapped but no kek is configured", rec.KeyID)
		}
		plain, uerr := kek.Unwrap(rec.SecretKey, kekKey)
		if uerr != nil {
			return keystore.Record{}, fmt.Errorf("unwrap secret key: %v", uerr)
		}
		rec.SecretKey = plain
	}
	if verr := keystore.ValidatePublicKey(rec.PublicKey); verr != nil {
		// Data corruption: a stored key failed the invariant it should
		// have been validated against on insert.
		return keystore.Record{}, verr
	}
	return rec, nil
}

func (s *SQLKeyStore) Count(ctx context.Context) (int, error) {
	var n int
	now := time.Now().Unix()
	err := s.c.QueryRow(`
		select count(*) from key_record where expires_at = 0 or expires_at >= $1
	`, now).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count key records: %v", err)
	}
	return n, nil
}

func (s *SQLKeyStore) Sweep(ctx context.Context, cutoff time.Time) (int64, error) {
	r, err := s.c.Exec(`delete from key_record where expires_at != 0 and expires_at < $1`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("sweep key records: %v", err)
	}
	return r.RowsAffected()
}

func (s *SQLKeyStore) Close() error { return s.c.Close() }
