package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/archivesearch/internal/query"
	"github.com/google/uuid"
)

// LookupEmbedding finds the cache entry for exactly this normalized text
func (s *SQLStorage) LookupEmbedding(ctx context.Context, text string) (*CacheEntry, error) {
	b := query.NewBuilder()
	stmt, err := b.Render(b.Fragment(
		"SELECT id, embedding, usage_count FROM embedding_cache WHERE query_text = %s", text), s.dialect)
	if err != nil {
		return nil, err
	}

	var (
		entry = CacheEntry{Text: text}
		raw   []byte
	)
	err = s.querier().QueryRowContext(ctx, stmt.SQL, stmt.Args...).Scan(&entry.ID, &raw, &entry.UsageCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up embedding: %w", err)
	}

	entry.Vector, err = s.dialect.DecodeVector(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cached embedding %s: %w", entry.ID, err)
	}
	return &entry, nil
}

// InsertEmbedding stores a new entry with usage count 1.
// If another writer already stored this text the insert is ignored and inserted is false.
// An empty entry.ID is filled with a new UUID.
func (s *SQLStorage) InsertEmbedding(ctx context.Context, entry *CacheEntry) (bool, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	b := query.NewBuilder()
	frag := b.Fragment(`
		INSERT INTO embedding_cache (id, query_text, embedding, usage_count)
		VALUES (%s, %s, `+s.dialect.VectorParam(b.Bind(s.dialect.VectorArg(entry.Vector)))+`, 1)
		ON CONFLICT (query_text) DO NOTHING`,
		entry.ID, entry.Text)
	stmt, err := b.Render(frag, s.dialect)
	if err != nil {
		return false, err
	}

	result, err := s.querier().ExecContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return false, fmt.Errorf("failed to insert embedding: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to insert embedding: %w", err)
	}
	if n == 1 {
		entry.UsageCount = 1
	}
	return n == 1, nil
}

// TouchEmbedding records a cache hit: last used now, usage count plus one
func (s *SQLStorage) TouchEmbedding(ctx context.Context, id string) error {
	b := query.NewBuilder()
	stmt, err := b.Render(b.Fragment(`
		UPDATE embedding_cache
		SET last_used_at = CURRENT_TIMESTAMP, usage_count = usage_count + 1
		WHERE id = %s`, id), s.dialect)
	if err != nil {
		return err
	}

	result, err := s.querier().ExecContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return fmt.Errorf("failed to touch embedding: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// CacheStats summarizes the cache table and lists the topN most used queries
func (s *SQLStorage) CacheStats(ctx context.Context, topN int) (*CacheStats, error) {
	stats := &CacheStats{TopQueries: make([]CachedQuery, 0)}
	err := s.querier().QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(usage_count), 0) FROM embedding_cache",
	).Scan(&stats.Entries, &stats.TotalUsage)
	if err != nil {
		return nil, fmt.Errorf("failed to count cache entries: %w", err)
	}
	if topN <= 0 {
		return stats, nil
	}

	b := query.NewBuilder()
	stmt, err := b.Render(b.Fragment(`
		SELECT query_text, usage_count, last_used_at
		FROM embedding_cache
		ORDER BY usage_count DESC, last_used_at DESC, query_text
		LIMIT %s`, topN), s.dialect)
	if err != nil {
		return nil, err
	}

	rows, err := s.querier().QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list cached queries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			q        CachedQuery
			lastUsed any
		)
		if err := rows.Scan(&q.Text, &q.UsageCount, &lastUsed); err != nil {
			return nil, fmt.Errorf("failed to scan cached query: %w", err)
		}
		q.LastUsedAt = parseTimestamp(lastUsed)
		stats.TopQueries = append(stats.TopQueries, q)
	}
	return stats, rows.Err()
}

// parseTimestamp reads a timestamp column from either driver; zero when unreadable
func parseTimestamp(v any) time.Time {
	var s string
	switch val := v.(type) {
	case time.Time:
		return val.UTC()
	case string:
		s = val
	case []byte:
		s = string(val)
	default:
		return time.Time{}
	}
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339Nano, "2006-01-02 15:04:05Z07:00"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
