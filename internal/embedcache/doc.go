// Package embedcache resolves query text to an embedding through a shared,
// persisted cache.
//
// The cache key is the normalized query text: trimmed, with internal runs of
// whitespace collapsed to one space. Case is preserved. Each distinct key is
// stored once in the embedding_cache table, so the provider is called at most
// once per text across every process sharing the database.
//
//	cache, err := embedcache.New(store, capability, embedcache.Config{LRUSize: 1024}, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cache.Close()
//
//	vec, err := cache.Resolve(ctx, "student union elections")
//	if errors.Is(err, types.ErrEmbeddingUnavailable) {
//	    // fall back to keyword search at the call site
//	}
//
// A hit queues a usage update (last_used_at, usage_count) for a background
// goroutine and returns at once. Updates that fail are logged and dropped;
// updates that find the queue full are dropped. Concurrent misses for the same
// text in one process share a single provider call.
package embedcache
