package embedcache

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/archivesearch/internal/embedder"
	"github.com/dshills/archivesearch/internal/storage/storagetest"
)

func TestResolve_SQLite(t *testing.T) {
	ctx := context.Background()
	store := storagetest.NewSQLite(t)
	local := embedder.NewLocalProvider(16)

	t.Run("independent caches leave one row", func(t *testing.T) {
		// Two caches model two processes sharing one database
		a, err := New(store, embedder.Enabled(local), Config{}, nil)
		require.NoError(t, err)
		b, err := New(store, embedder.Enabled(local), Config{}, nil)
		require.NoError(t, err)

		var wg sync.WaitGroup
		vectors := make([][]float32, 2)
		for i, c := range []*Cache{a, b} {
			wg.Add(1)
			go func(i int, c *Cache) {
				defer wg.Done()
				v, err := c.Resolve(ctx, "student union")
				assert.NoError(t, err)
				vectors[i] = v
			}(i, c)
		}
		wg.Wait()

		require.NoError(t, a.Close())
		require.NoError(t, b.Close())

		assert.Equal(t, vectors[0], vectors[1])
		assert.Equal(t, 1, storagetest.CacheRows(t, store, "student union"))
	})

	t.Run("hits increment usage", func(t *testing.T) {
		c, err := New(store, embedder.Enabled(local), Config{}, nil)
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			_, err := c.Resolve(ctx, "rag   week")
			require.NoError(t, err)
		}
		require.NoError(t, c.Close())

		assert.Equal(t, int64(3), storagetest.UsageCount(t, store, "rag week"))

		stats, err := c.Stats(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, stats.Persisted.Entries, int64(2))
		require.NotEmpty(t, stats.Persisted.TopQueries)
		assert.Equal(t, "rag week", stats.Persisted.TopQueries[0].Text)
	})
}
