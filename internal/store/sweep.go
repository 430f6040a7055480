package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// sweeper periodically deletes expired key records and stale nonces.
// Mirrors the teacher's background GC goroutine, generalized to the two
// expiry policies this package needs:
//   - key_record: delete where expires_at != 0 and expires_at < now (spec §4.2)
//   - nonce: delete where timestamp < now - 2*window (spec §4.1)
type sweeper struct {
	conn       *conn
	now        func() time.Time
	nonceWindow time.Duration
	logger     *slog.Logger
}

func (s sweeper) run() error {
	now := s.now().Unix()

	r, err := s.conn.Exec(`delete from key_record where expires_at != 0 and expires_at < $1`, now)
	if err != nil {
		return fmt.Errorf("sweep key_record: %v", err)
	}
	if n, err := r.RowsAffected(); err == nil && n > 0 {
		s.logger.Info("swept expired key records", "count", n)
	}

	cutoff := s.now().Add(-2 * s.nonceWindow).Unix()
	r, err = s.conn.Exec(`delete from nonce where timestamp < $1`, cutoff)
	if err != nil {
		return fmt.Errorf("sweep nonce: %v", err)
	}
	if n, err := r.RowsAffected(); err == nil && n > 0 {
		s.logger.Info("swept stale nonces", "count", n)
	}
	return nil
}

type withCancel struct {
	*conn
	cancel context.CancelFunc
}

func (w withCancel) Close() error {
	w.cancel()
	return w.conn.Close()
}

// withSweep wraps conn with a background sweep goroutine that runs every
// interval until the returned Closer is closed. Mirrors the teacher's
// withGC in storage/sql/gc.go.
func withSweep(c *conn, now func() time.Time, nonceWindow, interval time.Duration, logger *slog.Logger) *withCancel {
	ctx, cancel := context.WithCancel(context.Background())
	sw := sweeper{conn: c, now: now, nonceWindow: nonceWindow, logger: logger}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := sw.run(); err != nil {
					logger.Error("sweep failed", "error", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return &withCancel{conn: c, cancel: cancel}
}
