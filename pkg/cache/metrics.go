package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by backing store.
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "book_cache_hits_total",
			Help: "Total number of response cache hits",
		},
		[]string{"store"}, // "redis", "memory"
	)

	// CacheMisses tracks cache misses, including expired entries and
	// reads degraded by store errors.
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "book_cache_misses_total",
			Help: "Total number of response cache misses",
		},
	)

	// CacheErrors tracks store operation errors.
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "book_cache_errors_total",
			Help: "Total number of cache store operation errors",
		},
		[]string{"operation"}, // "get", "set", "invalidate"
	)

	// CacheInvalidations tracks prefix invalidations triggered by
	// local book updates and deletes.
	CacheInvalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "book_cache_invalidations_total",
			Help: "Total number of cache prefix invalidations",
		},
	)
)
