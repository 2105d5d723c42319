package embedcache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/archivesearch/internal/embedder"
	"github.com/dshills/archivesearch/internal/storage"
	"github.com/dshills/archivesearch/pkg/types"
)

// fakeStore is an in-memory Store
type fakeStore struct {
	mu      sync.Mutex
	rows    map[string]*storage.CacheEntry
	lookups int
	inserts int
	touched []string

	lookupErr error
	insertErr error
	touchErr  error
	conflict  bool          // InsertEmbedding reports a lost race
	touchGate chan struct{} // TouchEmbedding waits for it when set
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[string]*storage.CacheEntry)}
}

func (f *fakeStore) LookupEmbedding(ctx context.Context, text string) (*storage.CacheEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	row, ok := f.rows[text]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (f *fakeStore) InsertEmbedding(ctx context.Context, entry *storage.CacheEntry) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts++
	if f.insertErr != nil {
		return false, f.insertErr
	}
	if f.conflict {
		return false, nil
	}
	if _, ok := f.rows[entry.Text]; ok {
		return false, nil
	}
	if entry.ID == "" {
		entry.ID = "id-" + entry.Text
	}
	cp := *entry
	f.rows[entry.Text] = &cp
	return true, nil
}

func (f *fakeStore) TouchEmbedding(ctx context.Context, id string) error {
	f.mu.Lock()
	gate := f.touchGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.touchErr != nil {
		return f.touchErr
	}
	f.touched = append(f.touched, id)
	for _, row := range f.rows {
		if row.ID == id {
			row.UsageCount++
		}
	}
	return nil
}

func (f *fakeStore) CacheStats(ctx context.Context, topN int) (*storage.CacheStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &storage.CacheStats{Entries: int64(len(f.rows))}
	for _, row := range f.rows {
		stats.TotalUsage += row.UsageCount
	}
	return stats, nil
}

func (f *fakeStore) snapshot() (lookups, inserts int, touched []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookups, f.inserts, append([]string(nil), f.touched...)
}

// fakeProvider counts calls and optionally blocks until gate is closed
type fakeProvider struct {
	mu     sync.Mutex
	calls  int
	texts  []string
	vector []float32
	err    error
	gate   chan struct{}
}

func (p *fakeProvider) Embed(ctx context.Context, text string, task embedder.TaskType) ([]float32, error) {
	p.mu.Lock()
	p.calls++
	p.texts = append(p.texts, text)
	p.mu.Unlock()

	if p.gate != nil {
		select {
		case <-p.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	return p.vector, nil
}

func (p *fakeProvider) Name() string   { return "fake" }
func (p *fakeProvider) Model() string  { return "fake-1" }
func (p *fakeProvider) Dimension() int { return len(p.vector) }
func (p *fakeProvider) Close() error   { return nil }

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func newTestCache(t *testing.T, store Store, p embedder.Provider, cfg Config) *Cache {
	t.Helper()
	capability := embedder.Disabled("not configured")
	if p != nil {
		capability = embedder.Enabled(p)
	}
	c, err := New(store, capability, cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"robots", "robots"},
		{"  student union  ", "student union"},
		{"student \t\n union", "student union"},
		{"Student Union", "Student Union"},
		{"   ", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeText(tt.input), "input %q", tt.input)
	}
}

func TestResolve_Unconfigured(t *testing.T) {
	store := newFakeStore()
	c := newTestCache(t, store, nil, Config{})

	_, err := c.Resolve(context.Background(), "robots")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrEmbeddingUnavailable)
	assert.False(t, c.Available())

	lookups, inserts, _ := store.snapshot()
	assert.Zero(t, lookups)
	assert.Zero(t, inserts)
}

func TestResolve_EmptyText(t *testing.T) {
	store := newFakeStore()
	p := &fakeProvider{vector: []float32{1, 0}}
	c := newTestCache(t, store, p, Config{})

	for _, text := range []string{"", "   ", "\t\n"} {
		_, err := c.Resolve(context.Background(), text)
		assert.ErrorIs(t, err, types.ErrInvalidInput)
	}
	assert.Zero(t, p.callCount())
	lookups, _, _ := store.snapshot()
	assert.Zero(t, lookups)
}

func TestResolve_MissThenHit(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	p := &fakeProvider{vector: []float32{0.6, 0.8}}
	c := newTestCache(t, store, p, Config{})

	vec, err := c.Resolve(ctx, "  student   union ")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.6, 0.8}, vec)
	assert.Equal(t, []string{"student union"}, p.texts)

	vec, err = c.Resolve(ctx, "student union")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.6, 0.8}, vec)
	assert.Equal(t, 1, p.callCount())

	require.NoError(t, c.Close())
	_, inserts, touched := store.snapshot()
	assert.Equal(t, 1, inserts)
	assert.Equal(t, []string{"id-student union"}, touched)
	assert.Equal(t, int64(2), store.rows["student union"].UsageCount)

	counters := c.Counters()
	assert.Equal(t, int64(1), counters.Hits)
	assert.Equal(t, int64(1), counters.Misses)
	assert.Equal(t, int64(1), counters.ProviderCalls)
	assert.Equal(t, int64(1), counters.Touches)
	assert.InDelta(t, 0.5, counters.HitRate(), 1e-9)
}

func TestResolve_ReturnsCopies(t *testing.T) {
	store := newFakeStore()
	p := &fakeProvider{vector: []float32{1, 0}}
	c := newTestCache(t, store, p, Config{LRUSize: 4})

	vec, err := c.Resolve(context.Background(), "robots")
	require.NoError(t, err)
	vec[0] = 42

	again, err := c.Resolve(context.Background(), "robots")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, again)
}

func TestResolve_ProviderFailures(t *testing.T) {
	tests := []struct {
		name     string
		provider *fakeProvider
	}{
		{"provider error", &fakeProvider{err: errors.New("quota exceeded")}},
		{"empty vector", &fakeProvider{vector: []float32{}}},
		{"nil vector", &fakeProvider{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			c := newTestCache(t, store, tt.provider, Config{})

			_, err := c.Resolve(context.Background(), "robots")
			assert.ErrorIs(t, err, types.ErrEmbeddingUnavailable)

			var se *types.SearchError
			require.ErrorAs(t, err, &se)
			assert.NotContains(t, se.Message, "quota")

			_, inserts, _ := store.snapshot()
			assert.Zero(t, inserts)
			assert.Equal(t, int64(1), c.Counters().ProviderFailures)
		})
	}
}

func TestResolve_StorageErrors(t *testing.T) {
	t.Run("lookup", func(t *testing.T) {
		store := newFakeStore()
		store.lookupErr = errors.New("connection refused")
		p := &fakeProvider{vector: []float32{1}}
		c := newTestCache(t, store, p, Config{})

		_, err := c.Resolve(context.Background(), "robots")
		assert.ErrorIs(t, err, types.ErrEmbeddingUnavailable)
		assert.Zero(t, p.callCount())
	})

	t.Run("insert", func(t *testing.T) {
		store := newFakeStore()
		store.insertErr = errors.New("disk full")
		p := &fakeProvider{vector: []float32{1}}
		c := newTestCache(t, store, p, Config{})

		_, err := c.Resolve(context.Background(), "robots")
		assert.ErrorIs(t, err, types.ErrEmbeddingUnavailable)
		assert.Equal(t, 1, p.callCount())
	})
}

func TestResolve_InsertConflict(t *testing.T) {
	store := newFakeStore()
	store.conflict = true
	p := &fakeProvider{vector: []float32{0, 1}}
	c := newTestCache(t, store, p, Config{LRUSize: 4})

	vec, err := c.Resolve(context.Background(), "robots")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, vec)

	counters := c.Counters()
	assert.Equal(t, int64(1), counters.InsertConflicts)
	assert.Zero(t, counters.L1Entries)
}

func TestResolve_TouchFailureIsIgnored(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.touchErr = errors.New("database is locked")
	p := &fakeProvider{vector: []float32{1, 0}}
	c := newTestCache(t, store, p, Config{})

	_, err := c.Resolve(ctx, "robots")
	require.NoError(t, err)
	vec, err := c.Resolve(ctx, "robots")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vec)

	require.NoError(t, c.Close())
	assert.Equal(t, int64(1), c.Counters().TouchFailures)
}

func TestResolve_FullTouchQueueDoesNotBlock(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	p := &fakeProvider{vector: []float32{1, 0}}
	c := newTestCache(t, store, p, Config{TouchQueue: 1})

	_, err := c.Resolve(ctx, "robots")
	require.NoError(t, err)

	store.mu.Lock()
	store.touchGate = make(chan struct{})
	gate := store.touchGate
	store.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			_, err := c.Resolve(ctx, "robots")
			assert.NoError(t, err)
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Resolve blocked on a full touch queue")
	}
	assert.GreaterOrEqual(t, c.Counters().DroppedTouches, int64(3))

	close(gate)
	require.NoError(t, c.Close())
}

func TestResolve_ConcurrentMissesShareOneCall(t *testing.T) {
	store := newFakeStore()
	p := &fakeProvider{vector: []float32{1, 0}, gate: make(chan struct{})}
	c := newTestCache(t, store, p, Config{})

	const callers = 10
	var wg sync.WaitGroup
	results := make([][]float32, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Resolve(context.Background(), "robots")
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(p.gate)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, []float32{1, 0}, results[i])
	}
	assert.Equal(t, 1, p.callCount())
	assert.Len(t, store.rows, 1)
}

func TestResolve_CallerCancellationDoesNotAbortSharedCall(t *testing.T) {
	store := newFakeStore()
	p := &fakeProvider{vector: []float32{1, 0}, gate: make(chan struct{})}
	c := newTestCache(t, store, p, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := c.Resolve(ctx, "robots")
		errCh <- err
	}()

	require.Eventually(t, func() bool { return p.callCount() == 1 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	close(p.gate)
	vec, err := c.Resolve(context.Background(), "robots")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vec)
	assert.Equal(t, 1, p.callCount())
}

func TestResolve_L1(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	p := &fakeProvider{vector: []float32{1, 0}}
	c := newTestCache(t, store, p, Config{LRUSize: 8})

	_, err := c.Resolve(ctx, "robots")
	require.NoError(t, err)
	_, err = c.Resolve(ctx, "robots")
	require.NoError(t, err)
	_, err = c.Resolve(ctx, " robots ")
	require.NoError(t, err)

	require.NoError(t, c.Close())
	lookups, _, touched := store.snapshot()
	assert.Equal(t, 1, lookups)
	assert.Equal(t, []string{"id-robots", "id-robots"}, touched)

	counters := c.Counters()
	assert.Equal(t, int64(2), counters.L1Hits)
	assert.Equal(t, 1, counters.L1Entries)
	assert.Equal(t, 1, p.callCount())
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	c := newTestCache(t, store, &fakeProvider{vector: []float32{1}}, Config{})

	_, err := c.Resolve(ctx, "robots")
	require.NoError(t, err)
	_, err = c.Resolve(ctx, "rag week")
	require.NoError(t, err)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.True(t, stats.ProviderAvailable)
	assert.Equal(t, int64(2), stats.Misses)
	require.NotNil(t, stats.Persisted)
	assert.Equal(t, int64(2), stats.Persisted.Entries)
}

func TestStats_WithoutProvider(t *testing.T) {
	c := newTestCache(t, newFakeStore(), nil, Config{})
	stats, err := c.Stats(context.Background())
	require.NoError(t, err)
	assert.False(t, stats.ProviderAvailable)
	assert.Zero(t, stats.HitRate())
}

func TestClose_Idempotent(t *testing.T) {
	c := newTestCache(t, newFakeStore(), nil, Config{})
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}
