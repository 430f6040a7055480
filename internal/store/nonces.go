package store

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/webrtc-relay/trustcore/internal/noncestore"
)

// SQLNonceStore adapts conn to noncestore.Store. Grounded on conn's
// ExecTx/alreadyExistsCheck machinery (originally written for the
// refresh-token rotation insert-or-reject path in storage/sql).
type SQLNonceStore struct {
	c *conn
}

var _ noncestore.Store = (*SQLNonceStore)(nil)

// CheckAndRecord inserts nonce if absent, atomically. An insert that hits an
// existing primary key (ignored, or reported as a duplicate-key violation)
// means another caller already recorded it first: a replay.
func (s *SQLNonceStore) CheckAndRecord(ctx context.Context, nonce string, timestamp int64, now time.Time) (bool, error) {
	isNew := false
	err := s.c.ExecTx(func(tx *trans) error {
		r, err := tx.Exec(`
			insert into nonce (nonce, timestamp, created_at) values ($1, $2, $3)
			on conflict (nonce) do nothing
		`, nonce, timestamp, now)
		if err != nil {
			if s.alreadyExists(err) {
				isNew = false
				return nil
			}
			return err
		}
		n, err := r.RowsAffected()
		if err != nil {
			return err
		}
		isNew = n == 1
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("check and record nonce: %v", err)
	}
	return isNew, nil
}

func (s *SQLNonceStore) alreadyExists(err error) bool {
	if s.c.alreadyExistsCheck != nil {
		return s.c.alreadyExistsCheck(err)
	}
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code.Name() == "unique_violation"
	}
	return false
}

func (s *SQLNonceStore) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	r, err := s.c.Exec(`delete from nonce where timestamp < $1`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("purge nonces: %v", err)
	}
	return r.RowsAffected()
}

func (s *SQLNonceStore) Close() error { return s.c.Close() }
