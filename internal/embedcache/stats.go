package embedcache

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/dshills/archivesearch/internal/storage"
)

type counters struct {
	hits             atomic.Int64
	l1Hits           atomic.Int64
	misses           atomic.Int64
	providerCalls    atomic.Int64
	providerFailures atomic.Int64
	insertConflicts  atomic.Int64
	touches          atomic.Int64
	touchFailures    atomic.Int64
	droppedTouches   atomic.Int64
}

// Stats reports cache activity since the process started and, when read
// with Stats, the persisted table.
type Stats struct {
	Hits             int64 `json:"hits"`
	L1Hits           int64 `json:"l1_hits"`
	Misses           int64 `json:"misses"`
	ProviderCalls    int64 `json:"provider_calls"`
	ProviderFailures int64 `json:"provider_failures"`
	InsertConflicts  int64 `json:"insert_conflicts"`
	Touches          int64 `json:"touches"`
	TouchFailures    int64 `json:"touch_failures"`
	DroppedTouches   int64 `json:"dropped_touches"`
	L1Entries        int   `json:"l1_entries"`

	ProviderAvailable bool                `json:"provider_available"`
	Persisted         *storage.CacheStats `json:"persisted,omitempty"`
}

// HitRate is the share of resolutions served without a provider call
func (s *Stats) HitRate() float64 {
	total := s.Hits + s.L1Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits+s.L1Hits) / float64(total)
}

// Counters returns the in-process counters only
func (c *Cache) Counters() Stats {
	s := Stats{
		Hits:              c.counters.hits.Load(),
		L1Hits:            c.counters.l1Hits.Load(),
		Misses:            c.counters.misses.Load(),
		ProviderCalls:     c.counters.providerCalls.Load(),
		ProviderFailures:  c.counters.providerFailures.Load(),
		InsertConflicts:   c.counters.insertConflicts.Load(),
		Touches:           c.counters.touches.Load(),
		TouchFailures:     c.counters.touchFailures.Load(),
		DroppedTouches:    c.counters.droppedTouches.Load(),
		ProviderAvailable: c.capability.Available(),
	}
	if c.l1 != nil {
		s.L1Entries = c.l1.Len()
	}
	return s
}

// Stats returns the counters plus entry count, total usage and the most used
// queries from the store. It works without a provider.
func (c *Cache) Stats(ctx context.Context) (*Stats, error) {
	s := c.Counters()
	persisted, err := c.store.CacheStats(ctx, c.cfg.StatsTopN)
	if err != nil {
		return nil, fmt.Errorf("read cache stats: %w", err)
	}
	s.Persisted = persisted
	return &s, nil
}
