//go:build !cgo
// +build !cgo

// Stub for CGO_ENABLED=0 builds: go-sqlite3 requires cgo.

package store

import "fmt"

func openSQLite3(file string) (*conn, error) {
	return nil, fmt.Errorf("binary was compiled with CGO_ENABLED=0, go-sqlite3 requires cgo to work")
}
