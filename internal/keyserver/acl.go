package keyserver

import "context"

// Action names an RPC a role may or may not be permitted to invoke
// (spec §4.2 access control: "role → permitted-actions table").
type Action string

const (
	ActionGenerateKey  Action = "generate_key"
	ActionGetSecretKey Action = "get_secret_key"
)

// RoleResolver maps a node_id to its role and checks whether that role may
// perform an action. Resolved per spec §9 open question 2 toward the
// richer, safer-default design: a node_id → secret map (internal/envelope's
// SecretResolver) plus this role → permitted-actions table, rather than one
// shared secret for every caller.
type RoleResolver interface {
	Role(ctx context.Context, nodeID string) (string, error)
	Allowed(ctx context.Context, role string, action Action) (bool, error)
}
