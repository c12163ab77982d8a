// Package api exposes the search service over HTTP: a single read
// endpoint for hybrid search plus a health check.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bull/site-search/internal/search"
)

// Searcher is the query-time collaborator: one hybrid search call per
// request.
type Searcher interface {
	Search(ctx context.Context, query, section string) ([]search.Hit, error)
}

// SearchResponse is the JSON body of a successful search.
type SearchResponse struct {
	Result []search.Hit `json:"result"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewSearchHandler creates the GET /api/search handler. A missing or
// blank q parameter is rejected before reaching the matchers; a matcher
// or store failure surfaces as a server error.
func NewSearchHandler(searcher Searcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		query := r.URL.Query().Get("q")
		if strings.TrimSpace(query) == "" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(errorResponse{Error: "missing required parameter: q"})
			return
		}
		section := r.URL.Query().Get("section")

		hits, err := searcher.Search(r.Context(), query, section)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(errorResponse{Error: "search failed"})
			return
		}
		if hits == nil {
			hits = []search.Hit{}
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(SearchResponse{Result: hits})
	}
}

// NewHandler assembles the full API surface: search and health routes
// wrapped in CORS and request timing middleware.
func NewHandler(searcher Searcher, store HealthChecker, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/search", NewSearchHandler(searcher))
	mux.HandleFunc("/health", NewHealthHandler(store))

	return withTiming(logger, withCORS(mux))
}
