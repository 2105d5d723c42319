package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/dshills/archivesearch/internal/query"
)

const (
	// CurrentSchemaVersion tracks the database schema version
	CurrentSchemaVersion = "1.1.0"
)

// Migration represents a database schema migration
type Migration struct {
	Version string
	Up      string
	Down    string
}

// MigrationsFor returns the ordered migrations of a dialect
func MigrationsFor(d Dialect) []Migration {
	if d.Name() == DialectPostgres {
		return postgresMigrations
	}
	return sqliteMigrations
}

var sqliteMigrations = []Migration{
	{Version: "1.0.0", Up: sqliteArticlesUp, Down: sqliteArticlesDown},
	{Version: "1.1.0", Up: sqliteCacheUp, Down: sqliteCacheDown},
}

var postgresMigrations = []Migration{
	{Version: "1.0.0", Up: postgresArticlesUp, Down: postgresArticlesDown},
	{Version: "1.1.0", Up: postgresCacheUp, Down: postgresCacheDown},
}

const schemaVersionDDL = `
CREATE TABLE IF NOT EXISTS schema_version (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

const sqliteArticlesUp = `
CREATE TABLE IF NOT EXISTS articles (
    id TEXT PRIMARY KEY,
    publication TEXT NOT NULL,
    issue_no INTEGER NOT NULL,
    page_no INTEGER NOT NULL,
    article_date TEXT NOT NULL,
    headline TEXT,
    strapline TEXT,
    author TEXT,
    category TEXT,
    txt TEXT NOT NULL,
    embedding BLOB
);

CREATE INDEX IF NOT EXISTS idx_articles_date ON articles(article_date);

-- FTS5 index over the article text, kept in sync by triggers
CREATE VIRTUAL TABLE IF NOT EXISTS articles_fts USING fts5(
    headline,
    strapline,
    txt,
    content='articles',
    content_rowid='rowid',
    tokenize='porter unicode61'
);

CREATE TRIGGER IF NOT EXISTS articles_fts_insert AFTER INSERT ON articles BEGIN
    INSERT INTO articles_fts(rowid, headline, strapline, txt)
    VALUES (new.rowid, new.headline, new.strapline, new.txt);
END;

CREATE TRIGGER IF NOT EXISTS articles_fts_delete AFTER DELETE ON articles BEGIN
    INSERT INTO articles_fts(articles_fts, rowid, headline, strapline, txt)
    VALUES ('delete', old.rowid, old.headline, old.strapline, old.txt);
END;

CREATE TRIGGER IF NOT EXISTS articles_fts_update AFTER UPDATE ON articles BEGIN
    INSERT INTO articles_fts(articles_fts, rowid, headline, strapline, txt)
    VALUES ('delete', old.rowid, old.headline, old.strapline, old.txt);
    INSERT INTO articles_fts(rowid, headline, strapline, txt)
    VALUES (new.rowid, new.headline, new.strapline, new.txt);
END;
`

const sqliteArticlesDown = `
DROP TRIGGER IF EXISTS articles_fts_update;
DROP TRIGGER IF EXISTS articles_fts_delete;
DROP TRIGGER IF EXISTS articles_fts_insert;
DROP TABLE IF EXISTS articles_fts;
DROP TABLE IF EXISTS articles;
`

const sqliteCacheUp = `
CREATE TABLE IF NOT EXISTS embedding_cache (
    id TEXT PRIMARY KEY,
    query_text TEXT NOT NULL UNIQUE,
    embedding BLOB NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    last_used_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    usage_count INTEGER NOT NULL DEFAULT 1
);
`

const sqliteCacheDown = `DROP TABLE IF EXISTS embedding_cache;`

// The production archive is loaded externally; these statements only fill gaps.
const postgresArticlesUp = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS articles (
    id UUID PRIMARY KEY,
    publication TEXT NOT NULL,
    issue_no INTEGER NOT NULL,
    page_no INTEGER NOT NULL,
    article_date DATE NOT NULL,
    headline TEXT,
    strapline TEXT,
    author TEXT,
    category TEXT,
    txt TEXT NOT NULL,
    gemini_embedding_001 vector,
    search_vector tsvector GENERATED ALWAYS AS (
        setweight(to_tsvector('english', coalesce(headline, '')), 'A') ||
        setweight(to_tsvector('english', coalesce(strapline, '')), 'B') ||
        setweight(to_tsvector('english', txt), 'C')
    ) STORED
);

CREATE INDEX IF NOT EXISTS idx_articles_search_vector ON articles USING GIN (search_vector);
CREATE INDEX IF NOT EXISTS idx_articles_date ON articles (article_date);
`

const postgresArticlesDown = `DROP TABLE IF EXISTS articles;`

const postgresCacheUp = `
CREATE TABLE IF NOT EXISTS embedding_cache (
    id UUID PRIMARY KEY,
    query_text TEXT NOT NULL UNIQUE,
    embedding vector NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    last_used_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    usage_count INTEGER NOT NULL DEFAULT 1
);
`

const postgresCacheDown = `DROP TABLE IF EXISTS embedding_cache;`

// CurrentVersion reads the latest applied schema version, 0.0.0 when none
func CurrentVersion(ctx context.Context, db *sql.DB) (*semver.Version, error) {
	if _, err := db.ExecContext(ctx, schemaVersionDDL); err != nil {
		return nil, fmt.Errorf("failed to create schema_version table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_version")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_version: %w", err)
	}
	defer func() { _ = rows.Close() }()

	// applied_at has second resolution, so order by version instead
	current := semver.MustParse("0.0.0")
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to read schema_version: %w", err)
		}
		v, err := semver.NewVersion(s)
		if err != nil {
			return nil, fmt.Errorf("invalid current schema version %s: %w", s, err)
		}
		if v.GreaterThan(current) {
			current = v
		}
	}
	return current, rows.Err()
}

// ApplyMigrations brings the schema up to CurrentSchemaVersion
func ApplyMigrations(ctx context.Context, db *sql.DB, d Dialect) error {
	currentVersion, err := CurrentVersion(ctx, db)
	if err != nil {
		return err
	}

	for _, migration := range MigrationsFor(d) {
		migrationVersion, err := semver.NewVersion(migration.Version)
		if err != nil {
			return fmt.Errorf("invalid migration version %s: %w", migration.Version, err)
		}

		if !currentVersion.LessThan(migrationVersion) {
			continue // Already applied
		}

		if _, err := db.ExecContext(ctx, migration.Up); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration.Version, err)
		}

		if err := execBound(ctx, db, d, "INSERT INTO schema_version (version) VALUES (%s)", migration.Version); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", migration.Version, err)
		}

		currentVersion = migrationVersion
	}

	return nil
}

// RollbackMigration rolls back the most recent migration
func RollbackMigration(ctx context.Context, db *sql.DB, d Dialect) error {
	current, err := CurrentVersion(ctx, db)
	if err != nil {
		return err
	}

	var migration *Migration
	migrations := MigrationsFor(d)
	for i := range migrations {
		if v := semver.MustParse(migrations[i].Version); v.Equal(current) {
			migration = &migrations[i]
			break
		}
	}
	if migration == nil {
		return errors.New("no migrations to rollback")
	}

	if _, err := db.ExecContext(ctx, migration.Down); err != nil {
		return fmt.Errorf("failed to rollback migration %s: %w", migration.Version, err)
	}

	if err := execBound(ctx, db, d, "DELETE FROM schema_version WHERE version = %s", migration.Version); err != nil {
		return fmt.Errorf("failed to remove migration record %s: %w", migration.Version, err)
	}

	return nil
}

// execBound runs a single-fragment statement with its values bound for d
func execBound(ctx context.Context, q querier, d Dialect, format string, values ...any) error {
	b := query.NewBuilder()
	stmt, err := b.Render(b.Fragment(format, values...), d)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, stmt.SQL, stmt.Args...)
	return err
}
