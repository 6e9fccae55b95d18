// Package cache memoizes provider results per (query, provider) pair.
//
// The cache sits between the enrichment orchestrator and the provider
// adapters: every adapter call goes through it, no adapter caches on
// its own. Keys combine the canonical query token (ISBN-13 or a hash
// of the search text) with the provider identifier, so invalidating a
// book after a local update removes the entries of every provider at
// once while a merge re-run can still reuse the per-provider entries
// that survived.
//
// The backing store is pluggable: RedisStore for production,
// MemoryStore for tests and single-process deployments. A store
// failure is degraded to a forced miss and never surfaces as an
// enrichment failure.
//
// # Basic Usage
//
//	store := cache.NewRedisStore(redisClient)
//	c := cache.New(store, 24*time.Hour)
//
//	key := cache.KeyFor(query, provider.GoogleBooks)
//	entry, err := c.Get(ctx, key)
//	if err == cache.ErrCacheMiss {
//		// fetch from the provider, then:
//		c.Set(ctx, key, cache.NewEntry(result, 24*time.Hour))
//	}
//
// # Invalidation
//
// The local storage layer calls Invalidate with the book's ISBN after
// every update or delete, so stale enrichment is never served:
//
//	c.Invalidate(ctx, "9783161484100")
//
// # Metrics
//
// The package exports Prometheus metrics:
//
//   - book_cache_hits_total{store} - cache hits
//   - book_cache_misses_total - cache misses
//   - book_cache_errors_total{operation} - store operation errors
//   - book_cache_invalidations_total - prefix invalidations
package cache
