// Package handler serves the search API: compile the raw query, run it
// through the result cache and the text index, and highlight the hits.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/querycompiler/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/querycompiler/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/querycompiler/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/querycompiler/internal/searcher/highlight"
	"github.com/Adithya-Monish-Kumar-K/querycompiler/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/querycompiler/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/querycompiler/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/querycompiler/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/querycompiler/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/querycompiler/pkg/middleware"
)

type SearchExecutor interface {
	Execute(ctx context.Context, cq *parser.CompiledQuery, limit int) (*executor.SearchResult, error)
}

// ResultCache is implemented by *cache.QueryCache.
type ResultCache interface {
	GetOrCompute(ctx context.Context, compiled string, limit int, computeFn func(context.Context) (*executor.SearchResult, error)) (*executor.SearchResult, bool, error)
	Stats() cache.Stats
	Invalidate(ctx context.Context) (int64, error)
}

// EventTracker is implemented by *analytics.Collector.
type EventTracker interface {
	Track(event analytics.SearchEvent)
}

// SearchResponse is the body of a successful GET /api/v1/search.
type SearchResponse struct {
	Query        string       `json:"query"`
	Compiled     string       `json:"compiled"`
	IncludeTerms []string     `json:"include_terms"`
	ExcludeTerms []string     `json:"exclude_terms"`
	TotalHits    int          `json:"total_hits"`
	CacheHit     bool         `json:"cache_hit"`
	LatencyMs    int64        `json:"latency_ms"`
	Results      []ResultItem `json:"results"`
}

type ResultItem struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Score   float64 `json:"score"`
	Snippet string  `json:"snippet"`
}

type Handler struct {
	compiler      *parser.Compiler
	executor      SearchExecutor
	cache         ResultCache
	tracker       EventTracker
	metrics       *metrics.Metrics
	defaultLimit  int
	maxResults    int
	snippetWindow int
	logger        *slog.Logger
}

// New wires the search endpoints. resultCache and tracker may be nil to run
// without caching or analytics.
func New(
	compiler *parser.Compiler,
	exec SearchExecutor,
	resultCache ResultCache,
	tracker EventTracker,
	m *metrics.Metrics,
	cfg config.SearchConfig,
) *Handler {
	return &Handler{
		compiler:      compiler,
		executor:      exec,
		cache:         resultCache,
		tracker:       tracker,
		metrics:       m,
		defaultLimit:  cfg.DefaultLimit,
		maxResults:    cfg.MaxResults,
		snippetWindow: cfg.SnippetWindow,
		logger:        slog.Default().With("component", "search-handler"),
	}
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)
	query := r.URL.Query().Get("q")

	cq, err := h.compile(query)
	if err != nil {
		log.Info("query rejected", "query", query, "error", err)
		h.track(ctx, analytics.SearchEvent{
			Type:      analytics.EventInvalidQuery,
			Query:     query,
			Error:     err.Error(),
			LatencyMs: time.Since(start).Milliseconds(),
		})
		h.writeAppError(w, err)
		return
	}

	limit, ok := h.parseLimit(w, r)
	if !ok {
		return
	}

	var result *executor.SearchResult
	cacheHit := false
	cacheStatus := "bypass"
	switch {
	case cq.Text == "":
		result = &executor.SearchResult{Query: cq.Query, Results: []executor.Hit{}}
	case h.cache != nil:
		result, cacheHit, err = h.cache.GetOrCompute(ctx, cq.Text, limit, func(ctx context.Context) (*executor.SearchResult, error) {
			return h.executor.Execute(ctx, cq, limit)
		})
		cacheStatus = "miss"
		if cacheHit {
			cacheStatus = "hit"
			h.metrics.CacheHitsTotal.Inc()
		} else {
			h.metrics.CacheMissesTotal.Inc()
		}
	default:
		result, err = h.executor.Execute(ctx, cq, limit)
	}

	latency := time.Since(start)
	if err != nil {
		log.Error("search execution failed", "query", query, "compiled", cq.Text, "error", err)
		h.metrics.SearchQueriesTotal.WithLabelValues("error").Inc()
		h.track(ctx, analytics.SearchEvent{
			Type:         analytics.EventSearchError,
			Query:        query,
			Compiled:     cq.Text,
			IncludeTerms: cq.IncludeTerms,
			ExcludeTerms: cq.ExcludeTerms,
			LatencyMs:    latency.Milliseconds(),
			Error:        err.Error(),
		})
		h.writeAppError(w, err)
		return
	}

	include, exclude := highlightTerms(cq, result, cacheHit)
	items := make([]ResultItem, 0, len(result.Results))
	for _, hit := range result.Results {
		items = append(items, ResultItem{
			ID:      hit.ID,
			Title:   hit.Title,
			Score:   hit.Score,
			Snippet: highlight.Snippet(hit.Body, include, exclude, h.snippetWindow),
		})
	}

	resultType := cacheStatus
	eventType := analytics.EventSearch
	if result.TotalHits == 0 {
		resultType = "zero_result"
		eventType = analytics.EventZeroResult
	}
	h.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(latency.Seconds())
	h.metrics.SearchResultsCount.Observe(float64(len(items)))

	log.Info("search completed",
		"query", query,
		"compiled", cq.Text,
		"total_hits", result.TotalHits,
		"returned", len(items),
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)
	h.track(ctx, analytics.SearchEvent{
		Type:         eventType,
		Query:        query,
		Compiled:     cq.Text,
		IncludeTerms: cq.IncludeTerms,
		ExcludeTerms: cq.ExcludeTerms,
		TotalHits:    result.TotalHits,
		Returned:     len(items),
		LatencyMs:    latency.Milliseconds(),
		CacheHit:     cacheHit,
	})

	h.writeJSON(w, http.StatusOK, SearchResponse{
		Query:        query,
		Compiled:     cq.Text,
		IncludeTerms: cq.IncludeTerms,
		ExcludeTerms: cq.ExcludeTerms,
		TotalHits:    result.TotalHits,
		CacheHit:     cacheHit,
		LatencyMs:    latency.Milliseconds(),
		Results:      items,
	})
}

// Compile handles GET /api/v1/query/compile and returns the compiled query
// without executing it.
func (h *Handler) Compile(w http.ResponseWriter, r *http.Request) {
	cq, err := h.compile(r.URL.Query().Get("q"))
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, cq)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	h.writeJSON(w, http.StatusOK, h.cache.Stats())
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

// compile runs the compiler and records its outcome.
func (h *Handler) compile(query string) (*parser.CompiledQuery, error) {
	start := time.Now()
	cq, err := h.compiler.Compile(query)
	h.metrics.CompileDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		h.metrics.QueriesCompiledTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, err
	}
	outcome := metrics.OutcomeCompiled
	if cq.Text == "" {
		outcome = metrics.OutcomeEmpty
	}
	h.metrics.QueriesCompiledTotal.WithLabelValues(outcome).Inc()
	h.metrics.QueryTermsCount.WithLabelValues("include").Observe(float64(len(cq.IncludeTerms)))
	h.metrics.QueryTermsCount.WithLabelValues("exclude").Observe(float64(len(cq.ExcludeTerms)))
	return cq, nil
}

func (h *Handler) parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	s := r.URL.Query().Get("limit")
	if s == "" {
		return h.defaultLimit, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return 0, false
	}
	if n > h.maxResults {
		n = h.maxResults
	}
	return n, true
}

// highlightTerms picks the words to mark in snippets. A cached result may
// have been produced by a differently spelled query with the same compiled
// form, so on a hit the vocabulary is recovered from the compiled text.
func highlightTerms(cq *parser.CompiledQuery, result *executor.SearchResult, cacheHit bool) (include, exclude []string) {
	if cacheHit && result.Compiled != "" {
		return parser.ExtractAllTerms(result.Compiled), cq.ExcludeTerms
	}
	return cq.IncludeTerms, cq.ExcludeTerms
}

func (h *Handler) track(ctx context.Context, event analytics.SearchEvent) {
	if h.tracker == nil {
		return
	}
	event.RequestID = middleware.GetRequestID(ctx)
	event.Timestamp = time.Now().UTC()
	h.tracker.Track(event)
}

func (h *Handler) writeAppError(w http.ResponseWriter, err error) {
	h.writeError(w, apperrors.HTTPStatusCode(err), apperrors.PublicMessage(err))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
