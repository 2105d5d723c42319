package searcher

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/archivesearch/internal/storage/storagetest"
	"github.com/dshills/archivesearch/pkg/types"
)

// trendCorpus writes n articles in year, the first near of them at 10 degrees
// from the topic and the rest at 80 degrees
func trendCorpus(t *testing.T, year, n, near int) []storagetest.Article {
	t.Helper()
	articles := make([]storagetest.Article, n)
	for i := range articles {
		deg := 80.0
		if i < near {
			deg = 10
		}
		articles[i] = storagetest.Article{
			Date:      fmt.Sprintf("%d-03-%02d", year, i+1),
			Text:      "issue",
			Embedding: storagetest.Angle(deg),
		}
	}
	return articles
}

func TestTrends(t *testing.T) {
	store := storagetest.NewSQLite(t)
	var corpus []storagetest.Article
	corpus = append(corpus, trendCorpus(t, 1990, 4, 2)...)
	corpus = append(corpus, trendCorpus(t, 1991, 3, 0)...)
	corpus = append(corpus, trendCorpus(t, 1992, 5, 5)...)
	corpus = append(corpus, trendCorpus(t, 1993, 2, 2)...) // too few articles
	storagetest.InsertArticles(t, store, corpus...)

	resolver := &fakeResolver{vectors: map[string][]float32{
		"robots": storagetest.Angle(0),
		"drama":  storagetest.Angle(90),
	}}
	s := NewSearcher(store, resolver, Config{MinArticlesPerYear: 2}, nil)
	ctx := context.Background()

	t.Run("prevalence per year", func(t *testing.T) {
		trend, err := s.Trends(ctx, "  robots ")
		require.NoError(t, err)
		assert.Equal(t, "robots", trend.Topic)
		assert.Equal(t, []types.YearPrevalence{
			{Year: 1990, Prevalence: 0.5},
			{Year: 1991, Prevalence: 0},
			{Year: 1992, Prevalence: 1},
		}, trend.Years)
	})

	t.Run("compare keeps topic order", func(t *testing.T) {
		trends, err := s.CompareTrends(ctx, []string{"drama", "robots"})
		require.NoError(t, err)
		require.Len(t, trends, 2)
		assert.Equal(t, "drama", trends[0].Topic)
		assert.Equal(t, "robots", trends[1].Topic)

		// 80 degrees from robots is 10 degrees from drama
		assert.Equal(t, []types.YearPrevalence{
			{Year: 1990, Prevalence: 0.5},
			{Year: 1991, Prevalence: 1},
			{Year: 1992, Prevalence: 0},
		}, trends[0].Years)
	})

	t.Run("empty topic", func(t *testing.T) {
		_, err := s.Trends(ctx, " ")
		assert.ErrorIs(t, err, types.ErrInvalidInput)
	})

	t.Run("topic count", func(t *testing.T) {
		_, err := s.CompareTrends(ctx, nil)
		assert.ErrorIs(t, err, types.ErrInvalidInput)

		_, err = s.CompareTrends(ctx, []string{"a", "b", "c", "d", "e", "f"})
		assert.ErrorIs(t, err, types.ErrInvalidInput)
	})

	t.Run("one unavailable topic fails the comparison", func(t *testing.T) {
		_, err := s.CompareTrends(ctx, []string{"robots", "unknown"})
		assert.ErrorIs(t, err, types.ErrEmbeddingUnavailable)
	})

	t.Run("without embeddings", func(t *testing.T) {
		keywordOnly := NewSearcher(store, nil, Config{}, nil)
		_, err := keywordOnly.Trends(ctx, "robots")
		assert.ErrorIs(t, err, types.ErrEmbeddingUnavailable)
	})
}
