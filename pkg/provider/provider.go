// Package provider contains the adapters for the external book-data
// sources: Google Books (primary), Open Library (fallback) and the
// NY Times Books API (supplemental reviews). Every adapter speaks its
// source's request and response shapes but returns the same Result,
// leaving fields the source does not expose absent rather than empty.
package provider

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/bookgrid/book-enrichment/pkg/isbn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for provider adapter operations.
var (
	providerRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "book_provider_requests_total",
		Help: "Total provider requests by provider and status",
	}, []string{"provider", "status"})

	providerRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "book_provider_request_duration_seconds",
		Help:    "Provider request duration in seconds by provider",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"provider"})

	providerErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "book_provider_errors_total",
		Help: "Total provider errors by provider and class",
	}, []string{"provider", "class"})
)

// ID identifies one of the fixed, known external providers.
type ID string

const (
	// GoogleBooks is the primary book-data provider.
	GoogleBooks ID = "google_books"

	// OpenLibrary is the fallback book-data provider.
	OpenLibrary ID = "open_library"

	// NYTimes is the supplemental, review-oriented provider.
	NYTimes ID = "ny_times"
)

// Known is the closed provider set in priority order.
var Known = []ID{GoogleBooks, OpenLibrary, NYTimes}

// Valid reports whether id is one of the known providers.
func (id ID) Valid() bool {
	switch id {
	case GoogleBooks, OpenLibrary, NYTimes:
		return true
	}
	return false
}

// Query identifies one lookup: either a canonical ISBN-13 or a
// free-text title/author search. Immutable once constructed.
type Query struct {
	isbn13 string
	text   string
}

// QueryISBN builds a Query from a raw ISBN, normalizing to the
// canonical 13-digit form (ISBN-10 input is converted).
func QueryISBN(raw string) (Query, error) {
	canonical, err := isbn.Normalize(raw)
	if err != nil {
		return Query{}, err
	}
	return Query{isbn13: canonical}, nil
}

// QueryText builds a free-text Query from a title/author search string.
func QueryText(s string) (Query, error) {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return Query{}, fmt.Errorf("empty search text")
	}
	return Query{text: s}, nil
}

// ISBN returns the canonical ISBN-13, or "" for free-text queries.
func (q Query) ISBN() string { return q.isbn13 }

// Text returns the free-text search string, or "" for ISBN queries.
func (q Query) Text() string { return q.text }

// IsISBN reports whether this is an ISBN lookup.
func (q Query) IsISBN() bool { return q.isbn13 != "" }

// IsZero reports whether the query identifies nothing.
func (q Query) IsZero() bool { return q.isbn13 == "" && q.text == "" }

// CacheToken returns the query part of a cache key: the ISBN-13, or a
// short hash of the normalized search text for free-text queries.
func (q Query) CacheToken() string {
	if q.isbn13 != "" {
		return q.isbn13
	}
	sum := sha256.Sum256([]byte(strings.ToLower(q.text)))
	return "q:" + hex.EncodeToString(sum[:])[:16]
}

func (q Query) String() string {
	if q.isbn13 != "" {
		return "isbn:" + q.isbn13
	}
	return "text:" + q.text
}

// Provider is the uniform adapter contract. Fetch translates the query
// into the source's request shape and parses the response into a Result.
// Absent data is reported as a NotFound *FetchError, never as a nil
// Result with nil error.
type Provider interface {
	ID() ID
	Fetch(ctx context.Context, q Query) (*Result, error)
}

// Searcher is implemented by providers with a multi-result search
// endpoint (Google Books and Open Library).
type Searcher interface {
	Provider
	Search(ctx context.Context, q Query, limit int) ([]Result, error)
}

func observeRequest(p ID, status string) {
	providerRequestsTotal.WithLabelValues(string(p), status).Inc()
}
