package store

import (
	"log/slog"
	"time"

	"github.com/webrtc-relay/trustcore/internal/keystore"
	"github.com/webrtc-relay/trustcore/internal/noncestore"
	"github.com/webrtc-relay/trustcore/internal/realm"
)

// SQL bundles every store/reader the Key Server and Issuer depend on, all
// backed by one database connection (spec §6.4 shared schema).
type SQL struct {
	conn *withCancel

	Keys   *SQLKeyStore
	Nonces *SQLNonceStore
	Realms *SQLRealmReader
	ACL    *SQLAccessControl
}

var (
	_ keystore.Store   = (*SQLKeyStore)(nil)
	_ noncestore.Store = (*SQLNonceStore)(nil)
	_ realm.Reader     = (*SQLRealmReader)(nil)
)

// SweepInterval is how often the background sweeper checks for expired key
// records and stale nonces (spec §4.2, §4.1 GC note).
const SweepInterval = time.Minute

// Open dials the configured database, runs migrations, and wires up every
// store, plus a background sweeper goroutine that prunes expired key records
// and nonces older than 2*nonceWindow (spec §4.1, §4.2). kekKey, if non-nil,
// must be kek.KeySize bytes and enables encryption-at-rest for secret_key
// (spec §9 open question 3). Closing the returned *SQL stops the sweeper.
func Open(cfg Config, kekKey []byte, nonceWindow time.Duration, logger *slog.Logger) (*SQL, error) {
	c, err := cfg.Open()
	if err != nil {
		return nil, err
	}
	wc := withSweep(c, time.Now, nonceWindow, SweepInterval, logger)
	return &SQL{
		conn:   wc,
		Keys:   &SQLKeyStore{c: c, kekKey: kekKey},
		Nonces: &SQLNonceStore{c: c},
		Realms: &SQLRealmReader{c: c},
		ACL:    &SQLAccessControl{c: c},
	}, nil
}

func (s *SQL) Close() error { return s.conn.Close() }
