// Package enrich sequences the external providers into one enrichment
// run: per-provider cache check, bounded fetch with one retry on
// transient failure, the skip of the fallback provider when the
// primary already answered completely, and the final merge.
package enrich

import (
	"context"
	"errors"
	"time"

	"github.com/bookgrid/book-enrichment/pkg/cache"
	"github.com/bookgrid/book-enrichment/pkg/logging"
	"github.com/bookgrid/book-enrichment/pkg/merge"
	"github.com/bookgrid/book-enrichment/pkg/provider"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for orchestration.
var (
	enrichmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "book_enrichments_total",
		Help: "Total enrichment runs by final status",
	}, []string{"status"})

	providerSkipsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "book_enrich_provider_skips_total",
		Help: "Total skipped provider calls by provider and reason",
	}, []string{"provider", "reason"})
)

// Errors returned by the orchestrator.
var (
	// ErrEmptyQuery is the contract-violation error for a query that
	// identifies nothing. It is the only hard failure Enrich produces
	// besides context cancellation.
	ErrEmptyQuery = errors.New("empty book query")

	// ErrContextCancelled is returned when the context is cancelled
	// during a retry backoff.
	ErrContextCancelled = errors.New("context cancelled")
)

// Config holds the orchestrator configuration. The provider set is
// fixed and small: one primary source, an optional fallback for data
// the primary lacks, and an optional supplemental review source.
type Config struct {
	// Primary is the first-priority book-data provider. Required.
	Primary provider.Provider

	// Fallback covers fields the primary leaves absent. It is skipped
	// entirely when the primary result is already complete.
	Fallback provider.Provider

	// Supplemental is the review-oriented provider; it is consulted
	// even when the primary short-circuits the fallback.
	Supplemental provider.Provider

	// Cache memoizes per-provider results. Nil disables caching.
	Cache *cache.Cache

	// Timeout bounds each provider call attempt.
	Timeout time.Duration

	// MaxRetries is how often a transient failure is retried (not
	// counting the initial attempt).
	MaxRetries int

	// InitialBackoff is the backoff before the first retry.
	InitialBackoff time.Duration
}

// DefaultConfig returns a safe default configuration around the given
// providers and cache.
func DefaultConfig(primary, fallback, supplemental provider.Provider, c *cache.Cache) Config {
	return Config{
		Primary:        primary,
		Fallback:       fallback,
		Supplemental:   supplemental,
		Cache:          c,
		Timeout:        10 * time.Second,
		MaxRetries:     1,
		InitialBackoff: 500 * time.Millisecond,
	}
}

// Orchestrator runs the cache-then-fetch sequence over the fixed
// provider set and merges whatever came back. It never fails a run
// because no data was found; that is the StatusNone result.
type Orchestrator struct {
	cfg    Config
	logger zerolog.Logger
}

// New creates an orchestrator, validating the provider set.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Primary == nil {
		return nil, errors.New("primary provider is required")
	}

	seen := map[provider.ID]bool{}
	for _, p := range []provider.Provider{cfg.Primary, cfg.Fallback, cfg.Supplemental} {
		if p == nil {
			continue
		}
		id := p.ID()
		if !id.Valid() {
			return nil, errors.New("unknown provider: " + string(id))
		}
		if seen[id] {
			return nil, errors.New("duplicate provider: " + string(id))
		}
		seen[id] = true
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}

	return &Orchestrator{
		cfg:    cfg,
		logger: logging.NewLogger("orchestrator"),
	}, nil
}

// Enrich runs the full provider sequence for one query and returns the
// merged record. A run that found nothing returns a record with
// StatusNone and a nil error; the only hard failures are an empty
// query and context cancellation.
func (o *Orchestrator) Enrich(ctx context.Context, q provider.Query) (merge.Record, error) {
	if q.IsZero() {
		return merge.Record{}, ErrEmptyQuery
	}

	results, err := o.collect(ctx, q)
	if err != nil {
		return merge.Record{}, err
	}

	rec := merge.Merge(results)
	enrichmentsTotal.WithLabelValues(string(rec.Status)).Inc()

	o.logger.Info().
		Stringer("query", q).
		Str("enrichment_status", string(rec.Status)).
		Int("sources", len(rec.DataSources)).
		Msg("Enrichment complete")

	return rec, nil
}

// EnrichAny tries each of the given raw ISBNs (useful for books that
// carry both an ISBN-10 and an ISBN-13) and merges everything the
// providers returned, earlier ISBNs taking priority.
func (o *Orchestrator) EnrichAny(ctx context.Context, isbns []string) (merge.Record, error) {
	var all []provider.Result
	validQueries := 0

	for _, raw := range isbns {
		q, err := provider.QueryISBN(raw)
		if err != nil {
			o.logger.Warn().Str("isbn", raw).Err(err).Msg("Skipping invalid ISBN")
			continue
		}
		validQueries++

		results, err := o.collect(ctx, q)
		if err != nil {
			return merge.Record{}, err
		}
		all = append(all, results...)
	}

	if validQueries == 0 {
		return merge.Record{}, ErrEmptyQuery
	}

	rec := merge.Merge(all)
	enrichmentsTotal.WithLabelValues(string(rec.Status)).Inc()
	return rec, nil
}

// Search forwards a query to every provider with a search endpoint, in
// priority order, de-duplicating matches by title.
func (o *Orchestrator) Search(ctx context.Context, q provider.Query, limit int) ([]provider.Result, error) {
	if q.IsZero() {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = 10
	}

	var results []provider.Result
	seenTitles := map[string]bool{}

	for _, p := range []provider.Provider{o.cfg.Primary, o.cfg.Fallback, o.cfg.Supplemental} {
		if len(results) >= limit {
			break
		}
		searcher, ok := p.(provider.Searcher)
		if !ok {
			continue
		}

		found, err := searcher.Search(ctx, q, limit-len(results))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			o.logger.Warn().
				Str("provider", string(p.ID())).
				Err(err).
				Msg("Provider search failed, continuing with remaining providers")
			continue
		}

		for i := range found {
			if len(results) >= limit {
				break
			}
			if found[i].Title == nil || seenTitles[*found[i].Title] {
				continue
			}
			seenTitles[*found[i].Title] = true
			results = append(results, found[i])
		}
	}

	return results, nil
}

// collect gathers the per-provider results for one query in priority
// order: primary, then fallback unless short-circuited, then
// supplemental. Provider failures never abort the run; only context
// cancellation does.
func (o *Orchestrator) collect(ctx context.Context, q provider.Query) ([]provider.Result, error) {
	var results []provider.Result

	primaryRes, err := o.lookup(ctx, o.cfg.Primary, q)
	if err != nil {
		return nil, err
	}
	if primaryRes != nil {
		results = append(results, *primaryRes)
	}

	if o.cfg.Fallback != nil {
		// Fallback exists to cover missing primary data, not to
		// double-fetch when the primary is already complete.
		if primaryRes != nil && primaryRes.Complete() {
			providerSkipsTotal.WithLabelValues(string(o.cfg.Fallback.ID()), "short_circuit").Inc()
			o.logger.Debug().
				Stringer("query", q).
				Str("provider", string(o.cfg.Fallback.ID())).
				Msg("Primary result complete, skipping fallback")
		} else {
			res, err := o.lookup(ctx, o.cfg.Fallback, q)
			if err != nil {
				return nil, err
			}
			if res != nil {
				results = append(results, *res)
			}
		}
	}

	if o.cfg.Supplemental != nil {
		res, err := o.lookup(ctx, o.cfg.Supplemental, q)
		if err != nil {
			return nil, err
		}
		if res != nil {
			results = append(results, *res)
		}
	}

	return results, nil
}

// lookup resolves one (query, provider) pair: cache first, then a
// bounded fetch with retry on transient failures. All provider-level
// failures collapse to a nil result; the returned error is non-nil
// only for context cancellation.
func (o *Orchestrator) lookup(ctx context.Context, p provider.Provider, q provider.Query) (*provider.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := cache.KeyFor(q, p.ID())

	if o.cfg.Cache != nil {
		if entry, err := o.cfg.Cache.Get(ctx, key); err == nil {
			return &entry.Result, nil
		}
	}

	var res *provider.Result
	err := retryWithBackoff(ctx, p.ID(), o.cfg.MaxRetries+1, o.cfg.InitialBackoff, func() error {
		callCtx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()

		var ferr error
		res, ferr = p.Fetch(callCtx, q)
		return ferr
	})

	if err != nil {
		// An aborted run must not be mistaken for provider trouble,
		// and must not write anything into the cache.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		switch {
		case provider.IsNotFound(err):
			o.logger.Debug().
				Stringer("query", q).
				Str("provider", string(p.ID())).
				Msg("Provider has no data for query")
		case provider.IsTransient(err):
			// Negative results are not cached, so the next run retries.
			o.logger.Warn().
				Stringer("query", q).
				Str("provider", string(p.ID())).
				Err(err).
				Msg("Transient failure persisted, treating as not found for this run")
		case provider.IsPermanent(err):
			providerSkipsTotal.WithLabelValues(string(p.ID()), "permanent").Inc()
			o.logger.Error().
				Stringer("query", q).
				Str("provider", string(p.ID())).
				Err(err).
				Msg("Permanent provider failure, skipping for this run")
		default:
			o.logger.Warn().
				Stringer("query", q).
				Str("provider", string(p.ID())).
				Err(err).
				Msg("Unclassified provider failure, skipping for this run")
		}
		return nil, nil
	}

	if res != nil && o.cfg.Cache != nil {
		entry := cache.NewEntry(*res, o.cfg.Cache.TTL())
		if cerr := o.cfg.Cache.Set(ctx, key, entry); cerr != nil {
			o.logger.Warn().Err(cerr).Str("key", key.String()).Msg("Failed to cache provider result")
		}
	}

	return res, nil
}
