// Package server is the HTTP JSON API over the search engine: search
// and fallback queries, document indexing and removal, cache and index
// introspection.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/quotelab/quotesearch/internal/cache"
	"github.com/quotelab/quotesearch/internal/engine"
	"github.com/quotelab/quotesearch/internal/query"
	"github.com/quotelab/quotesearch/internal/stats"
	"github.com/quotelab/quotesearch/pkg/errors"
	"github.com/quotelab/quotesearch/pkg/logger"
	"github.com/quotelab/quotesearch/pkg/metrics"
)

// SearchEngine is the engine surface the handlers drive.
type SearchEngine interface {
	SearchPage(ctx context.Context, rawQuery string, opts engine.SearchOptions) (*engine.SearchResult, error)
	IndexDocument(docID string, fields map[string]string, weightLabels map[string]string) error
	RemoveDocument(docID string) error
	FallbackSearch(rawQuery string, fields []string) []string
	DocCount() int
	TermCount() int
	DocTermCount(docID string) int
}

// Limits bounds per-request query parameters.
type Limits struct {
	DefaultCombinator query.Combinator
	DefaultThreshold  float64
	DefaultLimit      int
	MaxResults        int
}

// Handler serves the API. Cache, collector, and metrics are optional;
// a nil collaborator disables that concern, never a request.
type Handler struct {
	engine    SearchEngine
	cache     *cache.QueryCache
	collector *stats.Collector
	metrics   *metrics.Metrics
	weights   map[string]string
	limits    Limits
	logger    *slog.Logger
}

// New creates the Handler.
func New(e SearchEngine, qc *cache.QueryCache, collector *stats.Collector, m *metrics.Metrics, weights map[string]string, limits Limits) *Handler {
	if limits.DefaultLimit <= 0 {
		limits.DefaultLimit = 10
	}
	return &Handler{
		engine:    e,
		cache:     qc,
		collector: collector,
		metrics:   m,
		weights:   weights,
		limits:    limits,
		logger:    slog.Default().With("component", "http-handler"),
	}
}

// Register mounts all routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/search/fallback", h.FallbackSearch)
	mux.HandleFunc("PUT /api/v1/documents/{id}", h.IndexDocument)
	mux.HandleFunc("DELETE /api/v1/documents/{id}", h.RemoveDocument)
	mux.HandleFunc("GET /api/v1/index/stats", h.IndexStats)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

// Search answers GET /api/v1/search?q=...&combinator=...&threshold=...
// &limit=...&offset=...
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	rawQuery := r.URL.Query().Get("q")
	if rawQuery == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	cmb := h.limits.DefaultCombinator
	if s := r.URL.Query().Get("combinator"); s != "" {
		cmb = query.ParseCombinator(s, h.limits.DefaultCombinator)
	}
	threshold := h.limits.DefaultThreshold
	if s := r.URL.Query().Get("threshold"); s != "" {
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil || parsed < 0 {
			h.writeError(w, http.StatusBadRequest, "threshold must be a non-negative number")
			return
		}
		threshold = parsed
	}
	limit, ok := h.intParam(w, r, "limit", h.limits.DefaultLimit)
	if !ok {
		return
	}
	if h.limits.MaxResults > 0 && limit > h.limits.MaxResults {
		limit = h.limits.MaxResults
	}
	offset, ok := h.intParam(w, r, "offset", 0)
	if !ok {
		return
	}

	opts := engine.SearchOptions{
		Combinator: &cmb,
		Limit:      limit,
		Offset:     offset,
	}
	if threshold > 0 {
		opts.Threshold = &threshold
	}

	var result *engine.SearchResult
	var err error
	cacheHit := false
	if h.cache != nil {
		key := cache.Key{
			Query:      rawQuery,
			Combinator: cmb.String(),
			Threshold:  threshold,
			Limit:      limit,
			Offset:     offset,
		}
		result, cacheHit, err = h.cache.GetOrCompute(ctx, key, func() (*engine.SearchResult, error) {
			return h.engine.SearchPage(ctx, rawQuery, opts)
		})
	} else {
		result, err = h.engine.SearchPage(ctx, rawQuery, opts)
	}

	latency := time.Since(start)
	if err != nil {
		outcome := "error"
		if errors.Is(err, errors.ErrEmptyQuery) {
			outcome = "empty_query"
		} else {
			log.Error("search failed", "query", rawQuery, "error", err)
		}
		h.countSearch(cmb, outcome, latency, 0)
		h.respondError(w, err)
		return
	}

	log.Info("search completed",
		"query", rawQuery,
		"combinator", result.Combinator,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)
	h.countSearch(cmb, "ok", latency, len(result.Results))
	if h.collector != nil {
		h.collector.Track(stats.SearchEvent{
			Type:       stats.EventSearch,
			Query:      rawQuery,
			Terms:      result.Terms,
			Combinator: result.Combinator,
			TotalHits:  result.TotalHits,
			Returned:   len(result.Results),
			LatencyMs:  latency.Milliseconds(),
			CacheHit:   cacheHit,
			Timestamp:  time.Now().UTC(),
			RequestID:  logger.RequestIDFromContext(ctx),
		})
	}
	h.writeJSON(w, http.StatusOK, result)
}

// FallbackSearch answers GET /api/v1/search/fallback?q=...&fields=a,b
// with the unranked substring scan.
func (h *Handler) FallbackSearch(w http.ResponseWriter, r *http.Request) {
	rawQuery := r.URL.Query().Get("q")
	if strings.TrimSpace(rawQuery) == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	var fields []string
	if s := r.URL.Query().Get("fields"); s != "" {
		for _, f := range strings.Split(s, ",") {
			if f = strings.TrimSpace(f); f != "" {
				fields = append(fields, f)
			}
		}
	}

	ids := h.engine.FallbackSearch(rawQuery, fields)
	if h.metrics != nil {
		h.metrics.FallbackScansTotal.Inc()
	}
	if h.collector != nil {
		h.collector.Track(stats.SearchEvent{
			Type:      stats.EventFallback,
			Query:     rawQuery,
			TotalHits: len(ids),
			Returned:  len(ids),
			Timestamp: time.Now().UTC(),
			RequestID: logger.RequestIDFromContext(r.Context()),
		})
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"query":   rawQuery,
		"doc_ids": ids,
		"count":   len(ids),
	})
}

type indexRequest struct {
	Fields map[string]string `json:"fields"`
}

// IndexDocument answers PUT /api/v1/documents/{id} with a full-field
// re-index of the document.
func (h *Handler) IndexDocument(w http.ResponseWriter, r *http.Request) {
	docID := r.PathValue("id")
	var req indexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "request body must be JSON with a 'fields' object")
		return
	}

	if err := h.engine.IndexDocument(docID, req.Fields, h.weights); err != nil {
		h.respondError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.DocsIndexedTotal.Inc()
		h.updateGauges()
	}
	if h.collector != nil {
		h.collector.Track(stats.IndexEvent{
			Type:      stats.EventIndex,
			DocID:     docID,
			TermCount: h.engine.DocTermCount(docID),
			Timestamp: time.Now().UTC(),
		})
	}
	h.invalidateCache(r.Context())
	h.writeJSON(w, http.StatusOK, map[string]string{"doc_id": docID, "status": "indexed"})
}

// RemoveDocument answers DELETE /api/v1/documents/{id}.
func (h *Handler) RemoveDocument(w http.ResponseWriter, r *http.Request) {
	docID := r.PathValue("id")
	if err := h.engine.RemoveDocument(docID); err != nil {
		h.respondError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.DocsRemovedTotal.Inc()
		h.updateGauges()
	}
	if h.collector != nil {
		h.collector.Track(stats.IndexEvent{
			Type:      stats.EventRemove,
			DocID:     docID,
			Timestamp: time.Now().UTC(),
		})
	}
	h.invalidateCache(r.Context())
	h.writeJSON(w, http.StatusOK, map[string]string{"doc_id": docID, "status": "removed"})
}

// IndexStats answers GET /api/v1/index/stats.
func (h *Handler) IndexStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]int{
		"docs":  h.engine.DocCount(),
		"terms": h.engine.TermCount(),
	})
}

// CacheStats answers GET /api/v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": strconv.FormatFloat(hitRate, 'f', 1, 64) + "%",
	})
}

// CacheInvalidate answers POST /api/v1/cache/invalidate.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) intParam(w http.ResponseWriter, r *http.Request, name string, fallback int) (int, bool) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return fallback, true
	}
	parsed, err := strconv.Atoi(s)
	if err != nil || parsed < 0 {
		h.writeError(w, http.StatusBadRequest, name+" must be a non-negative integer")
		return 0, false
	}
	return parsed, true
}

func (h *Handler) countSearch(cmb query.Combinator, outcome string, latency time.Duration, returned int) {
	if h.metrics == nil {
		return
	}
	h.metrics.SearchQueriesTotal.WithLabelValues(cmb.String(), outcome).Inc()
	h.metrics.SearchLatency.WithLabelValues(cmb.String()).Observe(latency.Seconds())
	if outcome == "ok" {
		h.metrics.SearchResultsCount.Observe(float64(returned))
	}
}

func (h *Handler) updateGauges() {
	h.metrics.IndexedDocs.Set(float64(h.engine.DocCount()))
	h.metrics.IndexedTerms.Set(float64(h.engine.TermCount()))
}

// invalidateCache drops cached searches after an index mutation.
// Best-effort: the TTL bounds staleness if it fails.
func (h *Handler) invalidateCache(ctx context.Context) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Invalidate(ctx); err != nil {
		h.logger.Warn("cache invalidation after mutation failed", "error", err)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	h.writeError(w, errors.HTTPStatusCode(err), err.Error())
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}
