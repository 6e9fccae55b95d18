package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/bookgrid/book-enrichment/pkg/enrich"
	"github.com/bookgrid/book-enrichment/pkg/merge"
	"github.com/bookgrid/book-enrichment/pkg/provider"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// enricher is the orchestrator surface the HTTP layer needs.
type enricher interface {
	Enrich(ctx context.Context, q provider.Query) (merge.Record, error)
	Search(ctx context.Context, q provider.Query, limit int) ([]provider.Result, error)
}

// bestsellerLister is implemented by the NY Times adapter.
type bestsellerLister interface {
	Bestsellers(ctx context.Context, listName string) ([]provider.BestsellerEntry, error)
}

type server struct {
	enricher    enricher
	bestsellers bestsellerLister
	logger      zerolog.Logger
	timeout     time.Duration
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /v1/books/{isbn}/enrichment", s.handleEnrichment)
	mux.HandleFunc("GET /v1/search", s.handleSearch)
	mux.HandleFunc("GET /v1/bestsellers/{list}", s.handleBestsellers)
	return mux
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleEnrichment(w http.ResponseWriter, r *http.Request) {
	q, err := provider.QueryISBN(r.PathValue("isbn"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ISBN: "+err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	rec, err := s.enricher.Enrich(ctx, q)
	if err != nil {
		if errors.Is(err, enrich.ErrEmptyQuery) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error().Err(err).Str("isbn", q.ISBN()).Msg("Enrichment failed")
		writeError(w, http.StatusInternalServerError, "enrichment failed")
		return
	}

	// A run that found nothing is still a valid answer: an empty
	// record with status none, not a 404.
	writeJSON(w, http.StatusOK, rec)
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q, err := provider.QueryText(r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing or empty q parameter")
		return
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 40 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 40")
			return
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	results, err := s.enricher.Search(ctx, q, limit)
	if err != nil {
		s.logger.Error().Err(err).Str("query", q.Text()).Msg("Search failed")
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if results == nil {
		results = []provider.Result{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"query":   q.Text(),
		"results": results,
	})
}

func (s *server) handleBestsellers(w http.ResponseWriter, r *http.Request) {
	if s.bestsellers == nil {
		writeError(w, http.StatusServiceUnavailable, "bestseller lists not configured")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	entries, err := s.bestsellers.Bestsellers(ctx, r.PathValue("list"))
	if err != nil {
		if provider.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "unknown bestseller list")
			return
		}
		s.logger.Error().Err(err).Str("list", r.PathValue("list")).Msg("Bestseller lookup failed")
		writeError(w, http.StatusBadGateway, "bestseller lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"list":    r.PathValue("list"),
		"entries": entries,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
