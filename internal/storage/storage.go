package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dshills/archivesearch/internal/query"
	"github.com/dshills/archivesearch/pkg/types"
)

var (
	// ErrNotFound is returned when a requested row doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrUnsupportedDialect is returned for an unknown backend name
	ErrUnsupportedDialect = errors.New("unsupported database dialect")
)

// Storage defines the queries the retrieval engine runs against the archive
type Storage interface {
	// Dialect used to render plans for this backend
	Dialect() Dialect

	// Article operations
	QueryArticles(ctx context.Context, stmt query.Statement) ([]ArticleRow, error)
	GetArticle(ctx context.Context, id string) (*ArticleRow, error)
	SimilarArticles(ctx context.Context, id string, limit int) ([]ArticleRow, error)
	RandomArticle(ctx context.Context, before types.Date) (*ArticleRow, error)
	TopicPrevalence(ctx context.Context, vector []float32, maxDistance float64, minArticles int) ([]types.YearPrevalence, error)

	// Embedding cache operations
	LookupEmbedding(ctx context.Context, text string) (*CacheEntry, error)
	InsertEmbedding(ctx context.Context, entry *CacheEntry) (inserted bool, err error)
	TouchEmbedding(ctx context.Context, id string) error
	CacheStats(ctx context.Context, topN int) (*CacheStats, error)

	// Database operations
	Close() error
}

// ArticleRow is an article as read from storage, before assembly.
// ArticleDate keeps the driver's raw value: time.Time, string or []byte.
type ArticleRow struct {
	ID          string
	Publication string
	IssueNo     int
	PageNo      int
	ArticleDate any
	Headline    sql.NullString
	Strapline   sql.NullString
	Author      sql.NullString
	Category    sql.NullString
	Text        string

	// Set by ranked queries only
	Score       sql.NullFloat64
	KeywordRank sql.NullInt64
	VectorRank  sql.NullInt64
}

// CacheEntry is a persisted query embedding
type CacheEntry struct {
	ID         string
	Text       string // normalized query text, unique
	Vector     []float32
	UsageCount int64
}

// CachedQuery is one row of the most used queries
type CachedQuery struct {
	Text       string    `json:"text"`
	UsageCount int64     `json:"usage_count"`
	LastUsedAt time.Time `json:"last_used_at"`
}

// CacheStats summarizes the persisted embedding cache
type CacheStats struct {
	Entries    int64         `json:"entries"`
	TotalUsage int64         `json:"total_usage"`
	TopQueries []CachedQuery `json:"top_queries"`
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// DialectFor returns the dialect registered under name
func DialectFor(name string) (Dialect, error) {
	switch name {
	case DialectPostgres:
		return PostgresDialect(), nil
	case DialectSQLite:
		return SQLiteDialect(), nil
	default:
		return nil, ErrUnsupportedDialect
	}
}
