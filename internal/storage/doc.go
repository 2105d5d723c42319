// Package storage provides SQL access to the article archive and the query embedding cache.
//
// Two backends share one implementation over database/sql and differ only in
// their Dialect:
//   - PostgreSQL (production): pgx driver, tsvector full-text search and
//     pgvector cosine distance (<=>)
//   - SQLite (development and tests): FTS5 with bm25 ranking and a registered
//     vec_cosine_distance function over little-endian float32 blobs
//
// # Database Schema
//
// Tables:
//   - articles: the archive, one row per article, optional embedding
//   - articles_fts: FTS5 index over headline, strapline and text (SQLite only;
//     PostgreSQL uses the generated articles.search_vector column)
//   - embedding_cache: one row per normalized query text, UNIQUE(query_text)
//   - schema_version: applied migrations
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStorage("archive.db", logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	article, err := store.GetArticle(ctx, id)
//	if errors.Is(err, storage.ErrNotFound) {
//	    // ...
//	}
//
// Ranked searches are planned by the searcher package and executed with
// QueryArticles. Plans select ArticleColumns followed by score, keyword_rank
// and vector_rank, and are rendered with the store's Dialect:
//
//	b := query.NewBuilder()
//	lex := store.Dialect().Lexical("a", b.Bind(store.Dialect().LexicalArg(text)))
//	// ... compose SQL ...
//	stmt, err := b.Render(sql, store.Dialect())
//	rows, err := store.QueryArticles(ctx, stmt)
//
// # Embedding Cache
//
// InsertEmbedding uses ON CONFLICT (query_text) DO NOTHING on both backends, so
// concurrent first lookups of the same text leave exactly one row and neither
// writer sees an error. TouchEmbedding bumps last_used_at and usage_count.
//
// # Build Tags
//
// The SQLite driver is chosen at build time:
//
// Pure Go Build (default):
//
//   - Uses modernc.org/sqlite
//
//   - No C compiler needed
//
//     CGO_ENABLED=0 go build -tags "purego"
//
// CGO Build (sqlite_vec tag):
//
//   - Uses github.com/mattn/go-sqlite3, FTS5 enabled with sqlite_fts5
//
//     CGO_ENABLED=1 go build -tags "sqlite_vec,sqlite_fts5"
package storage
