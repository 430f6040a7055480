// Package store provides the SQL- and memory-backed persistence used by the
// Key Server and the Actor Issuer: key records, the replay-protection nonce
// ledger, and the realm/ACL tables consulted during credential issuance.
package store

import (
	"context"
	"database/sql"
	"regexp"
	"time"

	"github.com/lib/pq"

	// import third party drivers
	_ "github.com/mattn/go-sqlite3"
)

// flavor represents a specific SQL implementation, and is used to translate query strings
// between different drivers. Flavors shouldn't aim to translate all possible SQL statements,
// only the specific queries used by this package.
type flavor struct {
	queryReplacers []replacer

	// Optional function to create and finish a transaction.
	executeTx func(db *sql.DB, fn func(*sql.Tx) error) error

	// Does the flavor support timezones?
	supportsTimezones bool
}

// A regexp with a replacement string.
type replacer struct {
	re   *regexp.Regexp
	with string
}

// Match a postgres query binds. E.g. "$1", "$12", etc.
var bindRegexp = regexp.MustCompile(`\$\d+`)

func matchLiteral(s string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(s) + `\b`)
}

var (
	// The "github.com/lib/pq" driver is the default flavor. All others are
	// translations of this.
	flavorPostgres = flavor{
		// The default behavior for Postgres transactions is consistent reads, not
		// consistent writes. For each transaction opened, ensure it has the
		// correct isolation level so check-and-record on the nonce table is
		// actually serializable (spec requires check_and_record be atomic).
		//
		// Be careful not to wrap sql errors in the callback 'fn', otherwise
		// serialization failures will not be detected and retried.
		executeTx: func(db *sql.DB, fn func(sqlTx *sql.Tx) error) error {
			ctx, cancel := context.WithCancel(context.TODO())
			defer cancel()

			opts := &sql.TxOptions{
				Isolation: sql.LevelSerializable,
			}

			for {
				tx, err := db.BeginTx(ctx, opts)
				if err != nil {
					return err
				}

				if err := fn(tx); err != nil {
					if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "serialization_failure" {
						continue
					}
					return err
				}

				if err := tx.Commit(); err != nil {
					if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "serialization_failure" {
						continue
					}
					return err
				}
				return nil
			}
		},
		supportsTimezones: true,
	}

	flavorSQLite3 = flavor{
		queryReplacers: []replacer{
			{bindRegexp, "?"},
			{matchLiteral("true"), "1"},
			{matchLiteral("false"), "0"},
			// Must run before the bare "boolean" replacer below: sqlite only
			// aliases a column to the ROWID (and so honors an omitted value
			// plus "returning") when its declared type is exactly INTEGER.
			{matchLiteral("serial primary key"), "integer primary key autoincrement"},
			{matchLiteral("boolean"), "integer"},
			{matchLiteral("bytea"), "blob"},
			{matchLiteral("timestamptz"), "timestamp"},
			{regexp.MustCompile(`\bnow\(\)`), "date('now')"},
		},
	}
)

func (f flavor) translate(query string) string {
	for _, r := range f.queryReplacers {
		query = r.re.ReplaceAllString(query, r.with)
	}
	return query
}

// translateArgs standardizes time.Time values to UTC for flavors that don't
// carry timezone information (sqlite).
func (c *conn) translateArgs(args []interface{}) []interface{} {
	if c.flavor.supportsTimezones {
		return args
	}
	for i, arg := range args {
		if t, ok := arg.(time.Time); ok {
			args[i] = t.UTC()
		}
	}
	return args
}

// conn is the main database connection shared by the KeyStore, NonceStore,
// and realm-table readers.
type conn struct {
	db                 *sql.DB
	flavor             flavor
	alreadyExistsCheck func(err error) bool
}

func (c *conn) Close() error {
	return c.db.Close()
}

func (c *conn) Exec(query string, args ...interface{}) (sql.Result, error) {
	query = c.flavor.translate(query)
	return c.db.Exec(query, c.translateArgs(args)...)
}

func (c *conn) Query(query string, args ...interface{}) (*sql.Rows, error) {
	query = c.flavor.translate(query)
	return c.db.Query(query, c.translateArgs(args)...)
}

func (c *conn) QueryRow(query string, args ...interface{}) *sql.Row {
	query = c.flavor.translate(query)
	return c.db.QueryRow(query, c.translateArgs(args)...)
}

// ExecTx runs a method which operates on a transaction. Used for the atomic
// read-modify-write operations the nonce store and key store both need
// (insert-or-reject-as-replay, assign-next-key-id).
func (c *conn) ExecTx(fn func(tx *trans) error) error {
	if c.flavor.executeTx != nil {
		return c.flavor.executeTx(c.db, func(sqlTx *sql.Tx) error {
			return fn(&trans{sqlTx, c})
		})
	}

	sqlTx, err := c.db.Begin()
	if err != nil {
		return err
	}
	if err := fn(&trans{sqlTx, c}); err != nil {
		sqlTx.Rollback()
		return err
	}
	return sqlTx.Commit()
}

type trans struct {
	tx *sql.Tx
	c  *conn
}

func (t *trans) Exec(query string, args ...interface{}) (sql.Result, error) {
	query = t.c.flavor.translate(query)
	return t.tx.Exec(query, t.c.translateArgs(args)...)
}

func (t *trans) Query(query string, args ...interface{}) (*sql.Rows, error) {
	query = t.c.flavor.translate(query)
	return t.tx.Query(query, t.c.translateArgs(args)...)
}

func (t *trans) QueryRow(query string, args ...interface{}) *sql.Row {
	query = t.c.flavor.translate(query)
	return t.tx.QueryRow(query, t.c.translateArgs(args)...)
}

// querier abstracts *sql.DB/*conn vs *sql.Tx/*trans for helpers that run
// against either a bare connection or an in-flight transaction.
type querier interface {
	QueryRow(query string, args ...interface{}) *sql.Row
}
