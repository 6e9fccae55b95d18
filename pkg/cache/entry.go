package cache

import (
	"time"

	"github.com/bookgrid/book-enrichment/pkg/provider"
)

// Entry is one cached provider result.
type Entry struct {
	// Result is the provider's response for the keyed query.
	Result provider.Result `json:"result"`

	// CachedAt is when the entry was stored.
	CachedAt time.Time `json:"cached_at"`

	// ExpiresAt is when the entry becomes stale. An expired entry is
	// treated as a miss, never returned.
	ExpiresAt time.Time `json:"expires_at"`
}

// NewEntry wraps a provider result with the given time-to-live.
func NewEntry(result provider.Result, ttl time.Duration) *Entry {
	now := time.Now()
	return &Entry{
		Result:    result,
		CachedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
}

// IsExpired returns true if the entry has passed its TTL.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.ExpiresAt)
}

// TTL returns the time until expiration, or 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.ExpiresAt)
	if ttl < 0 {
		return 0
	}
	return ttl
}
