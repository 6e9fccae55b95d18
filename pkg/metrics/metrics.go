// Package metrics documents the Prometheus metrics exported by the
// book-enrichment service. All metrics are defined in their respective
// packages (provider, cache, enrich, ratelimit) via promauto to keep
// modularity and avoid circular dependencies; this package is the
// central reference and exposes the registry used by the /metrics
// endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registerer used by the service.
// All metrics are automatically registered via promauto in their
// respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Provider Metrics (pkg/provider):
//   - book_provider_requests_total{provider, status} (Counter): Requests by provider and HTTP status
//   - book_provider_request_duration_seconds{provider} (Histogram): Request duration by provider
//   - book_provider_errors_total{provider, class} (Counter): Errors by classification
//
// Cache Metrics (pkg/cache):
//   - book_cache_hits_total{store} (Counter): Cache hits by backing store
//   - book_cache_misses_total (Counter): Cache misses (including expired and degraded reads)
//   - book_cache_errors_total{operation} (Counter): Store operation errors
//   - book_cache_invalidations_total (Counter): Prefix invalidations
//
// Orchestrator Metrics (pkg/enrich):
//   - book_enrichments_total{status} (Counter): Enrichment runs by final status (full, partial, none)
//   - book_enrich_retries_total{provider} (Counter): Retry attempts by provider
//   - book_enrich_retry_backoff_seconds{provider} (Histogram): Backoff duration by provider
//   - book_enrich_retry_exhausted_total{provider} (Counter): Providers that exhausted retries
//   - book_enrich_provider_skips_total{provider, reason} (Counter): Skipped provider calls (short_circuit, permanent)
//
// Rate Limit Metrics (pkg/ratelimit):
//   - book_rate_limit_waits_total{name} (Counter): Limiter waits by limiter name
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(book_cache_hits_total[5m])) /
//   (sum(rate(book_cache_hits_total[5m])) + sum(rate(book_cache_misses_total[5m])))
//
//   # Enrichment Completeness
//   sum by (status) (rate(book_enrichments_total[1h]))
//
//   # Provider Error Rate
//   sum by (provider, class) (rate(book_provider_errors_total[5m]))
//
//   # P95 Provider Latency
//   histogram_quantile(0.95, rate(book_provider_request_duration_seconds_bucket[5m]))
