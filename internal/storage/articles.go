package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/archivesearch/internal/query"
	"github.com/dshills/archivesearch/pkg/types"
)

// articleFields are the article columns every article query selects, in scan order
var articleFields = []string{
	"id", "publication", "issue_no", "page_no", "article_date",
	"headline", "strapline", "author", "category", "txt",
}

// ArticleColumns returns the article select list qualified by alias.
// Ranked queries append score, keyword_rank and vector_rank after it.
func ArticleColumns(alias string) string {
	cols := make([]string, len(articleFields))
	for i, f := range articleFields {
		cols[i] = alias + "." + f
	}
	return strings.Join(cols, ", ")
}

// QueryArticles executes a ranked article query.
// The statement must select ArticleColumns followed by score, keyword_rank, vector_rank.
func (s *SQLStorage) QueryArticles(ctx context.Context, stmt query.Statement) ([]ArticleRow, error) {
	rows, err := s.querier().QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute article query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]ArticleRow, 0)
	for rows.Next() {
		var row ArticleRow
		if err := rows.Scan(append(row.fields(), &row.Score, &row.KeywordRank, &row.VectorRank)...); err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read articles: %w", err)
	}
	return results, nil
}

// GetArticle fetches one article by ID
func (s *SQLStorage) GetArticle(ctx context.Context, id string) (*ArticleRow, error) {
	b := query.NewBuilder()
	sqlText := fmt.Sprintf("SELECT %s FROM articles a WHERE a.id = %s", ArticleColumns("a"), b.Bind(id))
	stmt, err := b.Render(sqlText, s.dialect)
	if err != nil {
		return nil, err
	}

	var row ArticleRow
	err = s.querier().QueryRowContext(ctx, stmt.SQL, stmt.Args...).Scan(row.fields()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}
	return &row, nil
}

// SimilarArticles returns the nearest neighbours of an article by embedding.
// Articles without an embedding have no neighbours.
func (s *SQLStorage) SimilarArticles(ctx context.Context, id string, limit int) ([]ArticleRow, error) {
	if limit <= 0 {
		return []ArticleRow{}, nil
	}

	col := s.dialect.EmbeddingColumn()
	b := query.NewBuilder()
	idParam := b.Bind(id)
	distance := s.dialect.CosineDistance("a."+col, "src."+col)
	sqlText := fmt.Sprintf(`
		WITH src AS (
			SELECT %[1]s FROM articles WHERE id = %[2]s AND %[1]s IS NOT NULL
		)
		SELECT %[3]s, %[4]s AS score, NULL AS keyword_rank, NULL AS vector_rank
		FROM articles a CROSS JOIN src
		WHERE a.id <> %[2]s AND a.%[1]s IS NOT NULL
		ORDER BY score ASC, a.article_date DESC, a.id
		LIMIT %[5]s`,
		col, idParam, ArticleColumns("a"), distance, b.Bind(limit))

	stmt, err := b.Render(sqlText, s.dialect)
	if err != nil {
		return nil, err
	}
	return s.QueryArticles(ctx, stmt)
}

// RandomArticle picks a random article with a headline published before the given date.
// Sampling is tried first where the dialect supports it, then a full random scan.
func (s *SQLStorage) RandomArticle(ctx context.Context, before types.Date) (*ArticleRow, error) {
	attempts := []string{s.dialect.SampleClause(), ""}
	if attempts[0] == "" {
		attempts = attempts[1:]
	}

	for _, sample := range attempts {
		b := query.NewBuilder()
		order := ""
		if sample == "" {
			order = "ORDER BY random()"
		}
		sqlText := fmt.Sprintf(`
			SELECT %s FROM articles a %s
			WHERE a.headline IS NOT NULL AND a.article_date < %s
			%s
			LIMIT 1`,
			ArticleColumns("a"), sample, b.Bind(s.dialect.DateArg(before)), order)

		stmt, err := b.Render(sqlText, s.dialect)
		if err != nil {
			return nil, err
		}

		var row ArticleRow
		err = s.querier().QueryRowContext(ctx, stmt.SQL, stmt.Args...).Scan(row.fields()...)
		if errors.Is(err, sql.ErrNoRows) {
			if sample != "" {
				s.logger.Debug("sampled random article found nothing, falling back to full scan")
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to pick random article: %w", err)
		}
		return &row, nil
	}
	return nil, ErrNotFound
}

// TopicPrevalence returns, per year with more than minArticles articles, the share
// of that year's articles within maxDistance of the topic vector.
func (s *SQLStorage) TopicPrevalence(ctx context.Context, vector []float32, maxDistance float64, minArticles int) ([]types.YearPrevalence, error) {
	d := s.dialect
	b := query.NewBuilder()
	year := d.Year("a.article_date")
	distance := d.CosineDistance("a."+d.EmbeddingColumn(), d.VectorParam(b.Bind(d.VectorArg(vector))))

	sqlText := fmt.Sprintf(`
		WITH totals AS (
			SELECT %[1]s AS year, COUNT(*) AS total
			FROM articles a
			GROUP BY %[1]s
			HAVING COUNT(*) > %[2]s
		),
		relevant AS (
			SELECT %[1]s AS year, COUNT(*) AS relevant
			FROM articles a
			WHERE %[3]s < %[4]s
			GROUP BY %[1]s
		)
		SELECT t.year, %[5]s / %[6]s AS prevalence
		FROM totals t
		LEFT JOIN relevant r ON r.year = t.year
		ORDER BY t.year ASC`,
		year, b.Bind(minArticles), distance, b.Bind(maxDistance),
		d.Float("COALESCE(r.relevant, 0)"), d.Float("t.total"))

	stmt, err := b.Render(sqlText, d)
	if err != nil {
		return nil, err
	}

	rows, err := s.querier().QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute prevalence query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]types.YearPrevalence, 0)
	for rows.Next() {
		var yp types.YearPrevalence
		if err := rows.Scan(&yp.Year, &yp.Prevalence); err != nil {
			return nil, fmt.Errorf("failed to scan prevalence: %w", err)
		}
		results = append(results, yp)
	}
	return results, rows.Err()
}

// fields returns scan destinations for the articleFields columns
func (r *ArticleRow) fields() []any {
	return []any{
		&r.ID, &r.Publication, &r.IssueNo, &r.PageNo, &r.ArticleDate,
		&r.Headline, &r.Strapline, &r.Author, &r.Category, &r.Text,
	}
}
