//go:build sqlite_vec
// +build sqlite_vec

package storage

// This file is compiled when building with CGO and the sqlite_vec tag.
// FTS5 must be enabled in the driver as well.
//
// Build command:
//   CGO_ENABLED=1 go build -tags "sqlite_vec,sqlite_fts5" ./...
//
// Driver used: github.com/mattn/go-sqlite3, registered under DriverName with
// the cosine distance function installed on every connection.

import (
	"database/sql"

	"github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite3_archive"

	// BuildMode describes the current build configuration
	BuildMode = "cgo"
)

func init() {
	sql.Register(DriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc(CosineDistanceFunc, func(a, b any) (any, error) {
				return sqlCosineDistance(a, b)
			}, true)
		},
	})
}
