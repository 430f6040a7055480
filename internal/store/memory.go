package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/webrtc-relay/trustcore/internal/envelope"
	"github.com/webrtc-relay/trustcore/internal/keyserver"
	"github.com/webrtc-relay/trustcore/internal/keystore"
	"github.com/webrtc-relay/trustcore/internal/noncestore"
	"github.com/webrtc-relay/trustcore/internal/realm"
)

// Memory is an in-process, mutex-guarded implementation of keystore.Store,
// noncestore.Store, and realm.Reader, used by tests (store.Open only opens
// SQL backends). Grounded on storage/memory/memory.go's tx()-wrapped map
// idiom.
type Memory struct {
	mu sync.Mutex

	nextKeyID uint32
	keys      map[uint32]keystore.Record

	nonces map[string]noncestore.Entry

	realms   map[uint32]realm.Config
	realmACL map[uint32]map[realm.ActorType]bool
}

var (
	_ keystore.Store   = (*Memory)(nil)
	_ noncestore.Store = (*Memory)(nil)
	_ realm.Reader     = (*Memory)(nil)
)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		keys:     make(map[uint32]keystore.Record),
		nonces:   make(map[string]noncestore.Entry),
		realms:   make(map[uint32]realm.Config),
		realmACL: make(map[uint32]map[realm.ActorType]bool),
	}
}

func (m *Memory) tx(f func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f()
}

// SeedRealm installs a realm's config and ACL for tests; not part of
// realm.Reader (realm administration is out of scope, spec §1).
func (m *Memory) SeedRealm(realmID uint32, cfg realm.Config, allowed ...realm.ActorType) {
	m.tx(func() {
		m.realms[realmID] = cfg
		acl := make(map[realm.ActorType]bool, len(allowed))
		for _, a := range allowed {
			acl[a] = true
		}
		m.realmACL[realmID] = acl
	})
}

func (m *Memory) Insert(ctx context.Context, rec keystore.Record) (out keystore.Record, err error) {
	if verr := keystore.ValidatePublicKey(rec.PublicKey); verr != nil {
		return keystore.Record{}, verr
	}
	m.tx(func() {
		m.nextKeyID++
		rec.KeyID = m.nextKeyID
		m.keys[rec.KeyID] = rec
		out = rec
	})
	return out, nil
}

func (m *Memory) Get(ctx context.Context, keyID uint32) (rec keystore.Record, err error) {
	m.tx(func() {
		r, ok := m.keys[keyID]
		if !ok {
			err = keystore.ErrNotFound
			return
		}
		rec = r
	})
	return rec, err
}

func (m *Memory) Count(ctx context.Context) (n int, err error) {
	now := time.Now()
	m.tx(func() {
		for _, r := range m.keys {
			if r.Usable(now) {
				n++
			}
		}
	})
	return n, nil
}

func (m *Memory) Sweep(ctx context.Context, cutoff time.Time) (n int64, err error) {
	m.tx(func() {
		for id, r := range m.keys {
			if r.ExpiresAt != 0 && r.ExpiresAt < cutoff.Unix() {
				delete(m.keys, id)
				n++
			}
		}
	})
	return n, nil
}

func (m *Memory) CheckAndRecord(ctx context.Context, nonce string, timestamp int64, now time.Time) (isNew bool, err error) {
	m.tx(func() {
		if _, ok := m.nonces[nonce]; ok {
			isNew = false
			return
		}
		m.nonces[nonce] = noncestore.Entry{Nonce: nonce, Timestamp: timestamp, CreatedAt: now}
		isNew = true
	})
	return isNew, nil
}

func (m *Memory) Purge(ctx context.Context, cutoff time.Time) (n int64, err error) {
	m.tx(func() {
		for nonce, e := range m.nonces {
			if e.Timestamp < cutoff.Unix() {
				delete(m.nonces, nonce)
				n++
			}
		}
	})
	return n, nil
}

func (m *Memory) Lookup(ctx context.Context, realmID uint32) (cfg realm.Config, err error) {
	m.tx(func() {
		c, ok := m.realms[realmID]
		if !ok {
			err = realm.ErrNotFound
			return
		}
		cfg = c
	})
	return cfg, err
}

func (m *Memory) Allowed(ctx context.Context, realmID uint32, actorType realm.ActorType) error {
	var result error
	m.tx(func() {
		acl, ok := m.realmACL[realmID]
		if !ok || !acl[actorType] {
			result = realm.ErrForbidden
		}
	})
	return result
}

// Close is a no-op; Memory owns no external resources.
func (m *Memory) Close() error { return nil }

// MemoryACL is the in-process test/bootstrap double for SQLAccessControl: a
// node_id → secret map plus a role → permitted-actions table (spec §4.2,
// §9 open question 2). Kept as a separate type from Memory because
// Memory's realm.Reader and keyserver.RoleResolver would otherwise need two
// incompatible "Allowed" methods on one receiver.
type MemoryACL struct {
	mu sync.Mutex

	nodeSecrets map[string][]byte
	nodeRoles   map[string]string
	roleActions map[string]map[keyserver.Action]bool
}

var (
	_ envelope.SecretResolver = (*MemoryACL)(nil)
	_ keyserver.RoleResolver  = (*MemoryACL)(nil)
)

// NewMemoryACL returns an empty in-memory access-control table.
func NewMemoryACL() *MemoryACL {
	return &MemoryACL{
		nodeSecrets: make(map[string][]byte),
		nodeRoles:   make(map[string]string),
		roleActions: make(map[string]map[keyserver.Action]bool),
	}
}

// SeedNodeSecret installs a caller's shared secret and role.
func (a *MemoryACL) SeedNodeSecret(nodeID string, secret []byte, role string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nodeSecrets[nodeID] = secret
	a.nodeRoles[nodeID] = role
}

// SeedRoleAction grants role permission to perform action.
func (a *MemoryACL) SeedRoleAction(role string, action keyserver.Action) {
	a.mu.Lock()
	defer a.mu.Unlock()
	acts, ok := a.roleActions[role]
	if !ok {
		acts = make(map[keyserver.Action]bool)
		a.roleActions[role] = acts
	}
	acts[action] = true
}

func (a *MemoryACL) Secret(ctx context.Context, nodeID string) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.nodeSecrets[nodeID]
	if !ok {
		return nil, fmt.Errorf("store: unknown node_id %q", nodeID)
	}
	return s, nil
}

func (a *MemoryACL) Role(ctx context.Context, nodeID string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, ok := a.nodeRoles[nodeID]
	if !ok {
		return "", fmt.Errorf("store: unknown node_id %q", nodeID)
	}
	return r, nil
}

func (a *MemoryACL) Allowed(ctx context.Context, role string, action keyserver.Action) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.roleActions[role][action], nil
}
