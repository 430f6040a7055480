package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/webrtc-relay/trustcore/internal/envelope"
	"github.com/webrtc-relay/trustcore/internal/keyserver"
)

// SQLAccessControl backs both envelope.SecretResolver (node_id → secret)
// and keyserver.RoleResolver (role → permitted actions), reading the
// node_secret/role_action tables an operator seeds out-of-band (spec §9
// open question 2, §4.2).
type SQLAccessControl struct {
	c *conn
}

var (
	_ envelope.SecretResolver = (*SQLAccessControl)(nil)
	_ keyserver.RoleResolver  = (*SQLAccessControl)(nil)
)

func (a *SQLAccessControl) Secret(ctx context.Context, nodeID string) ([]byte, error) {
	var secret []byte
	err := a.c.QueryRow(`select secret from node_secret where node_id = $1`, nodeID).Scan(&secret)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("store: unknown node_id %q", nodeID)
		}
		return nil, fmt.Errorf("resolve node secret: %v", err)
	}
	return secret, nil
}

func (a *SQLAccessControl) Role(ctx context.Context, nodeID string) (string, error) {
	var role string
	err := a.c.QueryRow(`select role from node_secret where node_id = $1`, nodeID).Scan(&role)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("store: unknown node_id %q", nodeID)
		}
		return "", fmt.Errorf("resolve node role: %v", err)
	}
	return role, nil
}

func (a *SQLAccessControl) Allowed(ctx context.Context, role string, action keyserver.Action) (bool, error) {
	var n int
	err := a.c.QueryRow(`
		select count(*) from role_action where role = $1 and action = $2
	`, role, string(action)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check role action: %v", err)
	}
	return n > 0, nil
}

// SeedNodeSecret is a convenience for tests and CLI bootstrap; inserts or
// replaces a node's secret and role. Realm/ACL administration is likewise
// out of the core's scope (spec §1) -- this mirrors that same stance for
// the access-control tables.
func (a *SQLAccessControl) SeedNodeSecret(ctx context.Context, nodeID string, secret []byte, role string) error {
	_, err := a.c.Exec(`
		insert into node_secret (node_id, secret, role) values ($1, $2, $3)
		on conflict (node_id) do update set secret = excluded.secret, role = excluded.role
	`, nodeID, secret, role)
	return err
}

// SeedRoleAction grants role permission to perform action.
func (a *SQLAccessControl) SeedRoleAction(ctx context.Context, role string, action keyserver.Action) error {
	_, err := a.c.Exec(`insert into role_action (role, action) values ($1, $2)`, role, string(action))
	return err
}
