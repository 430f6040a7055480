package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/webrtc-relay/trustcore/internal/realm"
)

// SQLRealmReader adapts conn to realm.Reader, reading the realm/realm_config/
// actor_acl tables an external collaborator is expected to seed.
type SQLRealmReader struct {
	c *conn
}

var _ realm.Reader = (*SQLRealmReader)(nil)

func (r *SQLRealmReader) Lookup(ctx context.Context, realmID uint32) (realm.Config, error) {
	var enabled bool
	var cfg realm.Config
	err := r.c.QueryRow(`
		select r.enabled, rc.signaling_heartbeat_interval_secs
		from realm r
		join realm_config rc on rc.realm_id = r.realm_id
		where r.realm_id = $1
	`, realmID).Scan(&enabled, &cfg.SignalingHeartbeatIntervalSecs)
	if err != nil {
		if err == sql.ErrNoRows {
			return realm.Config{}, realm.ErrNotFound
		}
		return realm.Config{}, fmt.Errorf("lookup realm: %v", err)
	}
	if !enabled {
		return realm.Config{}, realm.ErrNotFound
	}
	return cfg, nil
}

func (r *SQLRealmReader) Allowed(ctx context.Context, realmID uint32, actorType realm.ActorType) error {
	var n int
	err := r.c.QueryRow(`
		select count(*) from actor_acl
		where realm_id = $1 and actor_mfr = $2 and actor_name = $3
	`, realmID, actorType.Manufacturer, actorType.Name).Scan(&n)
	if err != nil {
		return fmt.Errorf("check actor acl: %v", err)
	}
	if n == 0 {
		return realm.ErrForbidden
	}
	return nil
}
