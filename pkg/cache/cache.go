package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bookgrid/book-enrichment/pkg/logging"
	"github.com/rs/zerolog"
)

// DefaultTTL is how long a provider result stays fresh unless the
// caller configures otherwise.
const DefaultTTL = 24 * time.Hour

// Cache memoizes provider results on top of a pluggable Store.
//
// Reads degrade: a store failure or a corrupted entry is reported as
// ErrCacheMiss so the orchestrator falls back to a direct provider
// call instead of failing the enrichment.
type Cache struct {
	store  Store
	ttl    time.Duration
	logger zerolog.Logger
}

// New creates a cache over the given store. A non-positive ttl falls
// back to DefaultTTL.
func New(store Store, ttl time.Duration) *Cache {
	if store == nil {
		panic("cache store cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		store:  store,
		ttl:    ttl,
		logger: logging.NewLogger("response-cache"),
	}
}

// TTL returns the configured entry time-to-live.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Get retrieves the cached entry for key. Returns ErrCacheMiss when
// the key is absent, expired, unreadable, or the store failed.
func (c *Cache) Get(ctx context.Context, key Key) (*Entry, error) {
	data, err := c.store.Get(ctx, key.String())
	if err != nil {
		if err != ErrCacheMiss {
			// Degraded store: forced miss, never an enrichment failure.
			CacheErrors.WithLabelValues("get").Inc()
			c.logger.Warn().Err(err).Str("key", key.String()).Msg("Cache store get failed, treating as miss")
		}
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		c.logger.Warn().Err(err).Str("key", key.String()).Msg("Corrupted cache entry, dropping")
		_ = c.store.Delete(ctx, key.String())
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	// The store's own expiry usually removes stale entries first, but
	// the deadline in the entry is authoritative.
	if entry.IsExpired() {
		_ = c.store.Delete(ctx, key.String())
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues(c.store.Name()).Inc()
	c.logger.Debug().Str("key", key.String()).Dur("ttl", entry.TTL()).Msg("Cache hit")
	return &entry, nil
}

// Set stores an entry under key. The store's TTL mirrors the entry's
// deadline so both expire together.
func (c *Cache) Set(ctx context.Context, key Key, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	ttl := entry.TTL()
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := c.store.Set(ctx, key.String(), data, ttl); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("cache set: %w", err)
	}

	c.logger.Debug().Str("key", key.String()).Dur("ttl", ttl).Msg("Cached provider result")
	return nil
}

// Invalidate removes every provider's entry for the given query token
// (ISBN-13 or hashed free-text token). The local storage layer calls
// this after a book update or delete.
func (c *Cache) Invalidate(ctx context.Context, token string) error {
	if err := c.store.DeleteByPrefix(ctx, Prefix(token)); err != nil {
		CacheErrors.WithLabelValues("invalidate").Inc()
		return fmt.Errorf("cache invalidate %s: %w", token, err)
	}
	CacheInvalidations.Inc()
	c.logger.Info().Str("token", token).Msg("Invalidated cached provider results")
	return nil
}
