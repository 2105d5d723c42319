package searcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/archivesearch/internal/storage/storagetest"
	"github.com/dshills/archivesearch/pkg/types"
)

func TestArticle(t *testing.T) {
	store := storagetest.NewSQLite(t)
	ids := storagetest.InsertArticles(t, store, storagetest.Article{
		IssueNo:  1234,
		PageNo:   3,
		Date:     "1999-10-08",
		Headline: "Freshers fair",
		Author:   "Ed",
		Text:     "Stalls everywhere",
	})
	s := NewSearcher(store, nil, Config{}, nil)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		a, err := s.Article(ctx, ids[0])
		require.NoError(t, err)
		assert.Equal(t, ids[0], a.ID)
		assert.Equal(t, 1234, a.IssueNo)
		assert.Equal(t, 3, a.PageNo)
		assert.Equal(t, "1999-10-08", a.Date.String())
		assert.Equal(t, "Freshers fair", a.Headline)
		assert.Equal(t, "Ed", a.Author)
		assert.Empty(t, a.Strapline)
		assert.Zero(t, a.Score)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := s.Article(ctx, uuid.NewString())
		assert.ErrorIs(t, err, types.ErrNotFound)
		assert.Equal(t, 404, types.StatusCode(err))
	})

	t.Run("invalid id", func(t *testing.T) {
		for _, id := range []string{"", "42", "not-a-uuid", "6ba7b810-9dad-11d1-80b4-00c04fd430c8"} {
			_, err := s.Article(ctx, id)
			assert.ErrorIs(t, err, types.ErrInvalidInput, "id %q", id)
		}
	})
}

func TestSimilar(t *testing.T) {
	store := storagetest.NewSQLite(t)
	ids := storagetest.InsertArticles(t, store,
		storagetest.Article{Date: "2001-01-01", Text: "source", Embedding: storagetest.Angle(0)},
		storagetest.Article{Date: "2001-01-02", Text: "far", Embedding: storagetest.Angle(40)},
		storagetest.Article{Date: "2001-01-03", Text: "near", Embedding: storagetest.Angle(10)},
		storagetest.Article{Date: "2001-01-04", Text: "no embedding"},
		storagetest.Article{Date: "2001-01-05", Text: "opposite", Embedding: storagetest.Angle(180)},
	)
	s := NewSearcher(store, nil, Config{}, nil)
	ctx := context.Background()

	t.Run("nearest first, excluding itself", func(t *testing.T) {
		got, err := s.Similar(ctx, ids[0], 0)
		require.NoError(t, err)
		assert.Equal(t, []string{ids[2], ids[1], ids[4]}, idsOf(got))
		assert.InDelta(t, storagetest.DistanceAt(10), got[0].Score, 1e-5)
	})

	t.Run("limit", func(t *testing.T) {
		got, err := s.Similar(ctx, ids[0], 1)
		require.NoError(t, err)
		assert.Equal(t, []string{ids[2]}, idsOf(got))
	})

	t.Run("source without embedding", func(t *testing.T) {
		got, err := s.Similar(ctx, ids[3], 0)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("unknown article", func(t *testing.T) {
		got, err := s.Similar(ctx, uuid.NewString(), 0)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("invalid input", func(t *testing.T) {
		_, err := s.Similar(ctx, "nope", 0)
		assert.ErrorIs(t, err, types.ErrInvalidInput)

		_, err = s.Similar(ctx, ids[0], -1)
		assert.ErrorIs(t, err, types.ErrInvalidInput)

		_, err = s.Similar(ctx, ids[0], DefaultMaxPageSize+1)
		assert.ErrorIs(t, err, types.ErrInvalidInput)
	})
}

func TestRandomArticle(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	t.Run("old article with headline", func(t *testing.T) {
		store := storagetest.NewSQLite(t)
		ids := storagetest.InsertArticles(t, store,
			storagetest.Article{Date: "2020-05-01", Headline: "Too recent", Text: "x"},
			storagetest.Article{Date: "2005-05-01", Text: "no headline"},
			storagetest.Article{Date: "2005-06-01", Headline: "Old news", Text: "y"},
		)
		s := NewSearcher(store, nil, Config{Now: clock}, nil)

		for i := 0; i < 5; i++ {
			a, err := s.RandomArticle(context.Background())
			require.NoError(t, err)
			assert.Equal(t, ids[2], a.ID)
		}
	})

	t.Run("cutoff is exclusive", func(t *testing.T) {
		store := storagetest.NewSQLite(t)
		storagetest.InsertArticles(t, store,
			storagetest.Article{Date: "2016-10-18", Headline: "Exactly ten years", Text: "x"},
		)
		s := NewSearcher(store, nil, Config{Now: clock}, nil)

		_, err := s.RandomArticle(context.Background())
		assert.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("configurable age", func(t *testing.T) {
		store := storagetest.NewSQLite(t)
		ids := storagetest.InsertArticles(t, store,
			storagetest.Article{Date: "2020-05-01", Headline: "Recent enough", Text: "x"},
		)
		s := NewSearcher(store, nil, Config{Now: clock, RandomMinAgeYears: 5}, nil)

		a, err := s.RandomArticle(context.Background())
		require.NoError(t, err)
		assert.Equal(t, ids[0], a.ID)
	})
}

func TestArticleOperations_StorageErrors(t *testing.T) {
	spy := newSpy(nil)
	s := NewSearcher(&failingStore{spyStorage: spy, err: errors.New("connection reset by 10.0.0.7")}, topicResolver("robots"), Config{}, nil)
	ctx := context.Background()
	id := uuid.NewString()

	_, err := s.Article(ctx, id)
	assert.ErrorIs(t, err, types.ErrRetrievalFailed)
	assert.NotContains(t, err.Error(), "10.0.0.7")

	_, err = s.Similar(ctx, id, 0)
	assert.ErrorIs(t, err, types.ErrRetrievalFailed)

	_, err = s.RandomArticle(ctx)
	assert.ErrorIs(t, err, types.ErrRetrievalFailed)

	_, err = s.Trends(ctx, "robots")
	assert.ErrorIs(t, err, types.ErrRetrievalFailed)
}
