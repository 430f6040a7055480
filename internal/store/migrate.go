package store

import (
	"database/sql"
	"fmt"
)

func (c *conn) migrate() (int, error) {
	_, err := c.Exec(`
		create table if not exists migrations (
			num integer not null,
			at timestamptz not null
		);
	`)
	if err != nil {
		return 0, fmt.Errorf("creating migration table: %v", err)
	}

	i := 0
	done := false
	for {
		err := c.ExecTx(func(tx *trans) error {
			var (
				num sql.NullInt64
				n   int
			)
			if err := tx.QueryRow(`select max(num) from migrations;`).Scan(&num); err != nil {
				return fmt.Errorf("select max migration: %v", err)
			}
			if num.Valid {
				n = int(num.Int64)
			}
			if n >= len(migrations) {
				done = true
				return nil
			}

			migrationNum := n + 1
			m := migrations[n]
			if _, err := tx.Exec(m.stmt); err != nil {
				return fmt.Errorf("migration %d failed: %v", migrationNum, err)
			}

			q := `insert into migrations (num, at) values ($1, now());`
			if _, err := tx.Exec(q, migrationNum); err != nil {
				return fmt.Errorf("update migration table: %v", err)
			}
			return nil
		})
		if err != nil {
			return i, err
		}
		if done {
			break
		}
		i++
	}

	return i, nil
}

type migration struct {
	stmt string
}

// All SQL flavors share migration strategies.
var migrations = []migration{
	{
		// key_record holds one row per generated secp256k1 key pair (spec
		// §3 KeyRecord). key_id is the database's own autoincrement so
		// values are strictly increasing across concurrent generate_key
		// calls, as §5 requires.
		stmt: `
			create table key_record (
				key_id serial primary key,
				public_key bytea not null,   -- 33-byte compressed point
				secret_key bytea not null,   -- 32-byte scalar, optionally KEK-wrapped
				kek_wrapped boolean not null default false,
				created_at timestamptz not null,
				expires_at bigint not null   -- unix seconds; 0 = never
			);

			create index key_record_expires_at_idx on key_record (expires_at);
		`,
	},
	{
		// nonce is the replay-protection ledger shared by every verifier
		// of the auth envelope (spec §3 NonceEntry, §4.1).
		stmt: `
			create table nonce (
				nonce text not null primary key,
				timestamp bigint not null,
				created_at timestamptz not null
			);

			create index nonce_timestamp_idx on nonce (timestamp);
		`,
	},
	{
		// realm is the administrative grouping actors are issued into;
		// realm CRUD itself is out of scope (spec §1) -- rows are expected
		// to be seeded by an external collaborator.
		stmt: `
			create table realm (
				realm_id bigint not null primary key,
				name text not null,
				enabled boolean not null default true
			);

			create table realm_config (
				realm_id bigint not null primary key references realm (realm_id),
				signaling_heartbeat_interval_secs bigint not null default 30
			);

			create table actor_acl (
				realm_id bigint not null references realm (realm_id),
				actor_mfr text not null,
				actor_name text not null,
				primary key (realm_id, actor_mfr, actor_name)
			);
		`,
	},
	{
		// node_secret backs the auth envelope's per-caller shared secret
		// and the role => permitted-actions table (spec §4.2 access
		// control, §9 open question resolved toward role-restriction).
		stmt: `
			create table node_secret (
				node_id text not null primary key,
				secret bytea not null,
				role text not null
			);

			create table role_action (
				role text not null,
				action text not null,
				primary key (role, action)
			);
		`,
	},
}
