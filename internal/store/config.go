package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// Config describes how to open the backing database. DSN follows the
// standard "driver://..." shape; "sqlite3:" and "postgres:" are supported.
type Config struct {
	DSN string `json:"dsn"`
}

// Open dials the configured database and runs pending migrations.
func (c Config) Open() (*conn, error) {
	switch {
	case strings.HasPrefix(c.DSN, "sqlite3:"):
		return openSQLite3(strings.TrimPrefix(c.DSN, "sqlite3:"))
	case strings.HasPrefix(c.DSN, "postgres:"), strings.HasPrefix(c.DSN, "postgresql:"):
		return openPostgres(c.DSN)
	default:
		return nil, fmt.Errorf("store: unsupported dsn %q (expected sqlite3: or postgres: prefix)", c.DSN)
	}
}

func openPostgres(dsn string) (*conn, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	c := &conn{db: db, flavor: flavorPostgres, alreadyExistsCheck: isPgUniqueViolation}
	if _, err := c.migrate(); err != nil {
		return nil, fmt.Errorf("failed to perform migrations: %v", err)
	}
	return c, nil
}

func isPgUniqueViolation(err error) bool {
	pqErr, ok := err.(*pq.Error)
	return ok && pqErr.Code.Name() == "unique_violation"
}
