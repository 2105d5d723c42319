package storage

import (
	"database/sql"
	"log/slog"
)

// SQLStorage implements Storage over database/sql for any supported Dialect
type SQLStorage struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

func newSQLStorage(db *sql.DB, dialect Dialect, logger *slog.Logger) *SQLStorage {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLStorage{db: db, dialect: dialect, logger: logger.With("component", "storage", "dialect", dialect.Name())}
}

// Dialect returns the backend's SQL dialect
func (s *SQLStorage) Dialect() Dialect {
	return s.dialect
}

// DB exposes the connection pool for fixtures and maintenance commands
func (s *SQLStorage) DB() *sql.DB {
	return s.db
}

// Close closes the database connection
func (s *SQLStorage) Close() error {
	return s.db.Close()
}

// querier returns the DB querier
func (s *SQLStorage) querier() querier {
	return s.db
}

var _ Storage = (*SQLStorage)(nil)
