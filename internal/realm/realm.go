// Package realm defines the read-only realm/ACL lookups the Issuer
// consults during allocate (spec §4.5 step 1, §6.4). Realm CRUD
// administration is out of scope (spec §1); rows are expected to be
// seeded by an external collaborator (e.g. the supervisor).
package realm

import (
	"context"
	"errors"
)

// ErrNotFound is returned for an unknown realm_id.
var ErrNotFound = errors.New("realm: not found")

// ErrForbidden is returned when an actor_type is not on a realm's ACL.
var ErrForbidden = errors.New("realm: actor type not permitted")

// ActorType identifies a class of actor a realm may or may not permit.
type ActorType struct {
	Manufacturer string
	Name         string
}

// Config is the realm's per-realm settings the Issuer's response carries
// back to the caller (spec §6.2 signaling_heartbeat_interval_secs).
type Config struct {
	SignalingHeartbeatIntervalSecs uint32
}

// Reader is the read-only contract the Issuer depends on.
type Reader interface {
	// Lookup returns ErrNotFound if realmID doesn't exist or is disabled.
	Lookup(ctx context.Context, realmID uint32) (Config, error)

	// Allowed returns ErrForbidden if actorType is not on realmID's ACL.
	// Callers should check Lookup succeeds first.
	Allowed(ctx context.Context, realmID uint32, actorType ActorType) error
}
