package embedcache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/dshills/archivesearch/internal/embedder"
	"github.com/dshills/archivesearch/internal/storage"
	"github.com/dshills/archivesearch/pkg/types"
)

// Defaults for Config fields left at zero
const (
	DefaultTouchQueue     = 256
	DefaultTouchTimeout   = 5 * time.Second
	DefaultResolveTimeout = 30 * time.Second
	DefaultStatsTopN      = 10
)

// Store is the persistence the cache needs.
// *storage.SQLStorage implements it.
type Store interface {
	LookupEmbedding(ctx context.Context, text string) (*storage.CacheEntry, error)
	InsertEmbedding(ctx context.Context, entry *storage.CacheEntry) (bool, error)
	TouchEmbedding(ctx context.Context, id string) error
	CacheStats(ctx context.Context, topN int) (*storage.CacheStats, error)
}

// Config tunes the cache
type Config struct {
	// LRUSize is the number of vectors kept in memory, 0 disables the L1
	LRUSize int
	// TouchQueue bounds pending usage updates; touches beyond it are dropped
	TouchQueue int
	// TouchTimeout bounds each background usage update
	TouchTimeout time.Duration
	// ResolveTimeout bounds a shared lookup and provider call, which run
	// detached from any single caller
	ResolveTimeout time.Duration
	// StatsTopN is the number of most used queries reported by Stats
	StatsTopN int
}

// Cache resolves query text to an embedding, calling the provider at most
// once per distinct normalized text across all processes sharing the store.
type Cache struct {
	store      Store
	capability embedder.Capability
	cfg        Config
	logger     *slog.Logger

	l1    *lru.Cache[string, cachedVector]
	group singleflight.Group

	touches   chan string
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	counters counters
}

type cachedVector struct {
	id     string
	vector []float32
}

// resolved is the shared result of one flight
type resolved struct {
	id     string
	vector []float32
	cached bool // read from the store, so every waiter counts as a use
}

// New creates a cache and starts its background toucher.
// Call Close to stop it.
func New(store Store, capability embedder.Capability, cfg Config, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TouchQueue <= 0 {
		cfg.TouchQueue = DefaultTouchQueue
	}
	if cfg.TouchTimeout <= 0 {
		cfg.TouchTimeout = DefaultTouchTimeout
	}
	if cfg.ResolveTimeout <= 0 {
		cfg.ResolveTimeout = DefaultResolveTimeout
	}
	if cfg.StatsTopN <= 0 {
		cfg.StatsTopN = DefaultStatsTopN
	}

	c := &Cache{
		store:      store,
		capability: capability,
		cfg:        cfg,
		logger:     logger.With("component", "embedcache"),
		touches:    make(chan string, cfg.TouchQueue),
		done:       make(chan struct{}),
	}

	if cfg.LRUSize > 0 {
		l1, err := lru.New[string, cachedVector](cfg.LRUSize)
		if err != nil {
			return nil, err
		}
		c.l1 = l1
	}

	c.wg.Add(1)
	go c.runToucher()

	return c, nil
}

// NormalizeText trims text and collapses internal whitespace to single spaces
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Available reports whether an embedding provider is configured
func (c *Cache) Available() bool {
	return c.capability.Available()
}

// Resolve returns the embedding of text.
//
// Errors are *types.SearchError of kind ErrInvalidInput (empty text) or
// ErrEmbeddingUnavailable (no provider, provider failure, cache storage
// failure), or the caller's context error.
func (c *Cache) Resolve(ctx context.Context, text string) ([]float32, error) {
	key := NormalizeText(text)
	if key == "" {
		return nil, types.NewSearchError(types.ErrInvalidInput, "query text is empty")
	}

	provider, ok := c.capability.Provider()
	if !ok {
		return nil, types.NewSearchError(types.ErrEmbeddingUnavailable, "no embedding provider configured")
	}

	if c.l1 != nil {
		if hit, ok := c.l1.Get(key); ok {
			c.counters.l1Hits.Add(1)
			c.touch(hit.id)
			return clone(hit.vector), nil
		}
	}

	ch := c.group.DoChan(key, func() (interface{}, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.ResolveTimeout)
		defer cancel()
		return c.load(flightCtx, provider, key)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		r := res.Val.(*resolved)
		if r.cached {
			c.touch(r.id)
		}
		return clone(r.vector), nil
	}
}

// load runs once per flight: store lookup, then provider call and insert on a miss
func (c *Cache) load(ctx context.Context, provider embedder.Provider, key string) (*resolved, error) {
	entry, err := c.store.LookupEmbedding(ctx, key)
	switch {
	case err == nil:
		c.counters.hits.Add(1)
		c.remember(key, entry.ID, entry.Vector)
		return &resolved{id: entry.ID, vector: entry.Vector, cached: true}, nil
	case !errors.Is(err, storage.ErrNotFound):
		c.logger.Error("embedding cache lookup failed", "error", err)
		return nil, types.NewSearchError(types.ErrEmbeddingUnavailable, "embedding cache is unavailable")
	}

	c.counters.misses.Add(1)
	c.counters.providerCalls.Add(1)
	start := time.Now()
	vector, err := provider.Embed(ctx, key, embedder.TaskRetrievalQuery)
	if err == nil && len(vector) == 0 {
		err = embedder.ErrEmptyVector
	}
	if err != nil {
		c.counters.providerFailures.Add(1)
		c.logger.Warn("embedding provider failed",
			"provider", provider.Name(),
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err)
		return nil, types.NewSearchError(types.ErrEmbeddingUnavailable, "embedding provider failed")
	}

	newEntry := &storage.CacheEntry{Text: key, Vector: vector, UsageCount: 1}
	inserted, err := c.store.InsertEmbedding(ctx, newEntry)
	if err != nil {
		c.logger.Error("embedding cache insert failed", "error", err)
		return nil, types.NewSearchError(types.ErrEmbeddingUnavailable, "embedding cache is unavailable")
	}

	if inserted {
		c.remember(key, newEntry.ID, vector)
	} else {
		// Another writer stored this text first; its row ID is unknown here
		c.counters.insertConflicts.Add(1)
		c.logger.Debug("embedding cache insert lost race", "text_len", len(key))
	}

	c.logger.Debug("embedding computed",
		"provider", provider.Name(),
		"dimension", len(vector),
		"duration_ms", time.Since(start).Milliseconds())

	return &resolved{vector: vector}, nil
}

func (c *Cache) remember(key, id string, vector []float32) {
	if c.l1 == nil || id == "" {
		return
	}
	c.l1.Add(key, cachedVector{id: id, vector: vector})
}

// touch queues a usage update without blocking
func (c *Cache) touch(id string) {
	if id == "" {
		return
	}
	select {
	case <-c.done:
		c.counters.droppedTouches.Add(1)
		return
	default:
	}
	select {
	case c.touches <- id:
	default:
		c.counters.droppedTouches.Add(1)
		c.logger.Debug("touch queue full, dropping usage update", "id", id)
	}
}

func (c *Cache) runToucher() {
	defer c.wg.Done()
	for {
		select {
		case id := <-c.touches:
			c.applyTouch(id)
		case <-c.done:
			for {
				select {
				case id := <-c.touches:
					c.applyTouch(id)
				default:
					return
				}
			}
		}
	}
}

func (c *Cache) applyTouch(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.TouchTimeout)
	defer cancel()
	if err := c.store.TouchEmbedding(ctx, id); err != nil {
		c.counters.touchFailures.Add(1)
		c.logger.Warn("failed to update embedding cache usage", "id", id, "error", err)
		return
	}
	c.counters.touches.Add(1)
}

// Close drains queued usage updates and stops the toucher
func (c *Cache) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.wg.Wait()
	})
	return nil
}

func clone(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
