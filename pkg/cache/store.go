package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCacheMiss indicates the requested key was not found, expired,
	// or could not be read (degraded store).
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is corrupted.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Store is the key-value backend contract the cache depends on.
// Implementations must be safe for concurrent use; per-key atomicity
// is the only synchronization the cache relies on.
type Store interface {
	// Get returns the raw bytes for key, or ErrCacheMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores data under key with the given TTL.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a single key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// DeleteByPrefix removes every key beginning with prefix.
	DeleteByPrefix(ctx context.Context, prefix string) error

	// Name identifies the store for logs and metrics ("redis", "memory").
	Name() string
}
