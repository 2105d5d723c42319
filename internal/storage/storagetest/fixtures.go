// Package storagetest provides archive fixtures for tests that need real SQL.
package storagetest

import (
	"context"
	"database/sql"
	"math"
	"os"
	"testing"

	"github.com/dshills/archivesearch/internal/query"
	"github.com/dshills/archivesearch/internal/storage"
	"github.com/dshills/archivesearch/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// PostgresDSNEnv names the variable that enables PostgreSQL tests
const PostgresDSNEnv = "ARCHIVESEARCH_TEST_POSTGRES_DSN"

// Article is a fixture row. Empty optional fields are stored as NULL.
type Article struct {
	ID          string
	Publication string
	IssueNo     int
	PageNo      int
	Date        string // YYYY-MM-DD
	Headline    string
	Strapline   string
	Author      string
	Category    string
	Text        string
	Embedding   []float32 // nil for no embedding
}

// NewSQLite opens a migrated in-memory archive closed at test cleanup
func NewSQLite(t testing.TB) *storage.SQLStorage {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// NewPostgres connects to the database named by PostgresDSNEnv, skipping the
// test when it is unset. Archive and cache tables are emptied first.
func NewPostgres(t testing.TB) *storage.SQLStorage {
	t.Helper()
	dsn := os.Getenv(PostgresDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", PostgresDSNEnv)
	}
	store, err := storage.NewPostgresStorage(context.Background(), storage.PostgresConfig{DSN: dsn, Migrate: true}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	_, err = store.DB().Exec("TRUNCATE articles, embedding_cache")
	require.NoError(t, err)
	return store
}

// Backends opens a fresh store per backend for tests shared across dialects.
// The postgres entry skips unless PostgresDSNEnv is set.
func Backends() map[string]func(t testing.TB) *storage.SQLStorage {
	return map[string]func(t testing.TB) *storage.SQLStorage{
		storage.DialectSQLite:   NewSQLite,
		storage.DialectPostgres: NewPostgres,
	}
}

// InsertArticles writes fixture articles, assigning IDs to those without one.
// Returns the IDs in argument order.
func InsertArticles(t testing.TB, store *storage.SQLStorage, articles ...Article) []string {
	t.Helper()
	ctx := context.Background()
	d := store.Dialect()
	ids := make([]string, len(articles))

	for i, a := range articles {
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		if a.Publication == "" {
			a.Publication = "felix"
		}
		ids[i] = a.ID

		b := query.NewBuilder()
		var vec any
		if a.Embedding != nil {
			vec = d.VectorArg(a.Embedding)
		}
		vecExpr := d.VectorParam(b.Bind(vec))
		frag := b.Fragment(`
			INSERT INTO articles (id, publication, issue_no, page_no, article_date,
				headline, strapline, author, category, txt, `+d.EmbeddingColumn()+`)
			VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, `+vecExpr+`)`,
			a.ID, a.Publication, a.IssueNo, a.PageNo, d.DateArg(types.MustParseDate(a.Date)),
			nullable(a.Headline), nullable(a.Strapline), nullable(a.Author), nullable(a.Category), a.Text)

		stmt, err := b.Render(frag, d)
		require.NoError(t, err)
		_, err = store.DB().ExecContext(ctx, stmt.SQL, stmt.Args...)
		require.NoError(t, err, "insert article %d", i)
	}
	return ids
}

// CacheRows counts embedding cache rows for a normalized text
func CacheRows(t testing.TB, store *storage.SQLStorage, text string) int {
	t.Helper()
	b := query.NewBuilder()
	stmt, err := b.Render(b.Fragment("SELECT COUNT(*) FROM embedding_cache WHERE query_text = %s", text), store.Dialect())
	require.NoError(t, err)

	var n int
	require.NoError(t, store.DB().QueryRow(stmt.SQL, stmt.Args...).Scan(&n))
	return n
}

// UsageCount reads the usage counter of a cached text
func UsageCount(t testing.TB, store *storage.SQLStorage, text string) int64 {
	t.Helper()
	b := query.NewBuilder()
	stmt, err := b.Render(b.Fragment("SELECT usage_count FROM embedding_cache WHERE query_text = %s", text), store.Dialect())
	require.NoError(t, err)

	var n int64
	require.NoError(t, store.DB().QueryRow(stmt.SQL, stmt.Args...).Scan(&n))
	return n
}

// Angle returns the 2-D unit vector at deg degrees.
// Two such vectors a and b have cosine distance 1 - cos(a - b).
func Angle(deg float64) []float32 {
	rad := deg * math.Pi / 180
	return []float32{float32(math.Cos(rad)), float32(math.Sin(rad))}
}

// DistanceAt returns the cosine distance between unit vectors deg degrees apart
func DistanceAt(deg float64) float64 {
	return 1 - math.Cos(deg*math.Pi/180)
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
