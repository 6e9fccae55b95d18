// Package ratelimit gates outbound requests to external book-data
// providers. Each provider has its own published limit (Open Library
// asks for at most 1 req/s, NY Times enforces a low per-minute quota),
// so every adapter owns a named limiter and waits on it before each call.
package ratelimit

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

var rateLimitWaits = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "book_rate_limit_waits_total",
	Help: "Total number of rate limiter waits by limiter name",
}, []string{"name"})

// Limiter wraps rate.Limiter with a name for logging and metrics.
type Limiter struct {
	limiter *rate.Limiter
	name    string
}

// New creates a limiter allowing requestsPerSecond sustained requests.
// The burst size equals the rate, allowing short bursts up to the limit.
func New(name string, requestsPerSecond int) *Limiter {
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
		name:    name,
	}
}

// NewWithBurst creates a limiter with a custom burst size.
func NewWithBurst(name string, requestsPerSecond, burst int) *Limiter {
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
		name:    name,
	}
}

// Wait blocks until the limiter allows a request to proceed.
// Returns an error if the context is cancelled while waiting.
func (l *Limiter) Wait(ctx context.Context) error {
	rateLimitWaits.WithLabelValues(l.name).Inc()
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait for %s: %w", l.name, err)
	}
	return nil
}

// Allow reports whether a request can proceed without blocking.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// Name returns the name of this limiter.
func (l *Limiter) Name() string {
	return l.name
}
