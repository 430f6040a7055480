// Package pkcache implements the Issuer-local cache of the Key Server's
// active public key (spec §4.3). It avoids a network round-trip per
// credential issuance and tolerates brief KS unavailability, modeled on
// dex's keyCacher (signer/storage/cacher.go): an atomic.Value holding the
// cached value, checked against an expiry before falling through to the
// backing fetch.
package pkcache

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// Defaults from spec §4.3.
const (
	DefaultRefreshInterval = 10 * time.Minute
	DefaultPreExpiryWindow = 10 * time.Minute
	DefaultTolerance       = 24 * time.Hour
)

// Fetcher obtains a usable key from the Key Server. The ksclient
// implementation calls generate_key (via the authenticated envelope, spec
// §4.2) on every fetch, so each call yields a freshly generated key.
type Fetcher interface {
	FetchActiveKey(ctx context.Context) (keyID uint32, publicKey []byte, expiresAt int64, err error)
}

// ErrUnavailable is returned by GetActive when no usable key exists and
// the backing fetch failed (spec §4.5: "failure { code: KS_UNAVAILABLE }").
var ErrUnavailable = fmt.Errorf("pkcache: no usable key and fetch failed")

type entry struct {
	KeyID     uint32
	PublicKey []byte
	ExpiresAt int64 // unix seconds; 0 means never
	CachedAt  time.Time
}

// Cache is the single-writer/many-reader public-key cache owned by the
// Issuer process (spec §3 ownership).
type Cache struct {
	fetcher Fetcher
	now     func() time.Time
	logger  *slog.Logger

	preExpiryWindow time.Duration
	tolerance       time.Duration

	active atomic.Pointer[entry] // nil until first successful fetch
}

// New returns a Cache with the spec's default windows.
func New(fetcher Fetcher, logger *slog.Logger) *Cache {
	return &Cache{
		fetcher:         fetcher,
		now:             time.Now,
		logger:          logger,
		preExpiryWindow: DefaultPreExpiryWindow,
		tolerance:       DefaultTolerance,
	}
}

// GetActive returns the most recently cached, still-usable key (spec §4.3
// get_active). If none exists it blocks on one fetch from KS.
func (c *Cache) GetActive(ctx context.Context) (keyID uint32, publicKey []byte, err error) {
	if e := c.active.Load(); e != nil && c.usable(e) {
		return e.KeyID, e.PublicKey, nil
	}

	if err := c.fetch(ctx); err != nil {
		if e := c.active.Load(); e != nil && c.withinTolerance(e) {
			return e.KeyID, e.PublicKey, nil
		}
		return 0, nil, ErrUnavailable
	}

	e := c.active.Load()
	return e.KeyID, e.PublicKey, nil
}

// RefreshIfStale fetches a new key from KS if the active one is within
// PRE_EXPIRY_WINDOW of expiry (spec §4.3). Safe to call even if no key is
// cached yet.
func (c *Cache) RefreshIfStale(ctx context.Context) error {
	e := c.active.Load()
	if e != nil && e.ExpiresAt != 0 {
		if c.now().Add(c.preExpiryWindow).Before(time.Unix(e.ExpiresAt, 0)) {
			return nil
		}
	} else if e != nil && e.ExpiresAt == 0 {
		return nil // never expires, nothing to refresh
	}
	return c.fetch(ctx)
}

// Run drives RefreshIfStale on DefaultRefreshInterval until ctx is
// cancelled (spec §4.3, §5 graceful shutdown: finish current iteration,
// then stop). Refresh errors are logged and retried on the next tick,
// never crash the Issuer, matching spec's stated failure semantics.
func (c *Cache) Run(ctx context.Context) {
	ticker := time.NewTicker(DefaultRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.RefreshIfStale(ctx); err != nil {
				c.logger.Warn("public key cache refresh failed", "error", err)
			}
		}
	}
}

func (c *Cache) fetch(ctx context.Context) error {
	keyID, pubKey, expiresAt, err := c.fetcher.FetchActiveKey(ctx)
	if err != nil {
		return err
	}
	c.active.Store(&entry{KeyID: keyID, PublicKey: pubKey, ExpiresAt: expiresAt, CachedAt: c.now()})
	return nil
}

func (c *Cache) usable(e *entry) bool {
	return e.ExpiresAt == 0 || c.now().Unix() <= e.ExpiresAt
}

// withinTolerance reports whether e is expired but still within TOLERANCE
// of expiry, so issuance can continue briefly during a KS outage.
func (c *Cache) withinTolerance(e *entry) bool {
	if e.ExpiresAt == 0 {
		return true
	}
	deadline := time.Unix(e.ExpiresAt, 0).Add(c.tolerance)
	return c.now().Before(deadline)
}
