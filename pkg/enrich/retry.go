package enrich

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/bookgrid/book-enrichment/pkg/provider"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for retry operations.
var (
	enrichRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "book_enrich_retries_total",
		Help: "Total number of retry attempts by provider",
	}, []string{"provider"})

	enrichRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "book_enrich_retry_backoff_seconds",
		Help:    "Backoff duration for retries by provider",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"provider"})

	enrichRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "book_enrich_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by provider",
	}, []string{"provider"})
)

// maxBackoff caps the exponential backoff between attempts.
const maxBackoff = 10 * time.Second

// retryWithBackoff executes fn with exponential backoff. Only transient
// provider failures are retried; not-found and permanent failures
// return immediately. The backoff wait respects context cancellation
// and carries ±20% jitter to avoid thundering herds.
func retryWithBackoff(ctx context.Context, p provider.ID, maxAttempts int, initialBackoff time.Duration, fn func() error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	backoff := initialBackoff

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				log.Info().
					Str("provider", string(p)).
					Int("attempt", attempt).
					Msg("Provider call succeeded after retry")
			}
			return nil
		}

		lastErr = err

		if !provider.IsTransient(err) {
			return lastErr
		}

		if attempt >= maxAttempts {
			break
		}

		enrichRetriesTotal.WithLabelValues(string(p)).Inc()

		// ±20% jitter
		jitter := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))
		enrichRetryBackoffSeconds.WithLabelValues(string(p)).Observe(jitter.Seconds())

		log.Debug().
			Str("provider", string(p)).
			Int("attempt", attempt).
			Dur("backoff", jitter).
			Msg("Retrying provider call after backoff")

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		case <-time.After(jitter):
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}

	enrichRetryExhaustedTotal.WithLabelValues(string(p)).Inc()
	log.Warn().
		Str("provider", string(p)).
		Int("max_attempts", maxAttempts).
		Msg("Provider retry attempts exhausted")

	return lastErr
}
