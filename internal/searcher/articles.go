package searcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/dshills/archivesearch/internal/storage"
	"github.com/dshills/archivesearch/pkg/types"
)

// Article fetches one article by ID
func (s *Searcher) Article(ctx context.Context, id string) (*types.Article, error) {
	if err := types.ValidateArticleID(id); err != nil {
		return nil, types.NewSearchError(types.ErrInvalidInput, fmt.Sprintf("article id %q is not a valid UUID", id))
	}

	row, err := s.storage.GetArticle(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, types.NewSearchError(types.ErrNotFound, fmt.Sprintf("article %s not found", id))
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, s.retrievalFailed("article", "", []any{id}, err)
	}

	article, err := assembleRow(row)
	if err != nil {
		return nil, s.retrievalFailed("article", "", []any{id}, err)
	}
	return &article, nil
}

// Similar returns the articles closest to id by embedding, nearest first.
// limit 0 means Config.SimilarLimit. An article without an embedding, or one
// that does not exist, has no neighbours.
func (s *Searcher) Similar(ctx context.Context, id string, limit int) ([]types.Article, error) {
	if err := types.ValidateArticleID(id); err != nil {
		return nil, types.NewSearchError(types.ErrInvalidInput, fmt.Sprintf("article id %q is not a valid UUID", id))
	}
	if limit < 0 || limit > s.cfg.MaxPageSize {
		return nil, types.NewSearchError(types.ErrInvalidInput,
			fmt.Sprintf("limit must be between 1 and %d, got %d", s.cfg.MaxPageSize, limit))
	}
	if limit == 0 {
		limit = s.cfg.SimilarLimit
	}

	rows, err := s.storage.SimilarArticles(ctx, id, limit)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, s.retrievalFailed("similar", "", []any{id, limit}, err)
	}

	articles, err := s.assemble(rows)
	if err != nil {
		return nil, s.retrievalFailed("similar", "", []any{id, limit}, err)
	}
	return articles, nil
}

// RandomArticle picks an article with a headline that is at least
// Config.RandomMinAgeYears old
func (s *Searcher) RandomArticle(ctx context.Context) (*types.Article, error) {
	before := types.DateOf(s.cfg.Now().AddDate(-s.cfg.RandomMinAgeYears, 0, 0))

	row, err := s.storage.RandomArticle(ctx, before)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, types.NewSearchError(types.ErrNotFound,
			fmt.Sprintf("no article with a headline published before %s", before))
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, s.retrievalFailed("random", "", []any{before.String()}, err)
	}

	article, err := assembleRow(row)
	if err != nil {
		return nil, s.retrievalFailed("random", "", []any{before.String()}, err)
	}
	return &article, nil
}
