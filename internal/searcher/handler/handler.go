package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/query"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/proximity-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/pkg/middleware"
)

type SearchExecutor interface {
	Compile(q string) (*query.Plan, error)
	Execute(ctx context.Context, plan *query.Plan, limit int) (*executor.SearchResult, error)
}

type Handler struct {
	executor  SearchExecutor
	cache     *cache.QueryCache
	collector *analytics.Collector
	metrics   *metrics.Metrics
	cfg       config.SearchConfig
	logger    *slog.Logger
}

// New creates a Handler. queryCache, collector and m may be nil.
func New(exec SearchExecutor, queryCache *cache.QueryCache, collector *analytics.Collector, m *metrics.Metrics, cfg config.SearchConfig) *Handler {
	return &Handler{
		executor:  exec,
		cache:     queryCache,
		collector: collector,
		metrics:   m,
		cfg:       cfg,
		logger:    slog.Default().With("component", "search-handler"),
	}
}

// ExplainResponse shows how a query was understood without running it.
type ExplainResponse struct {
	Query string `json:"query"`
	Tree  string `json:"tree"`
	Plan  string `json:"plan"`
	Terms int    `json:"terms"`
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	q, ok := h.queryParam(w, r)
	if !ok {
		return
	}
	limit, ok := h.limitParam(w, r)
	if !ok {
		return
	}

	plan, err := h.executor.Compile(q)
	if err != nil {
		log.Info("query rejected", "query", q, "error", err)
		h.track(ctx, analytics.SearchEvent{Type: analytics.EventRejected, Query: q, Status: "no_query"}, start)
		h.countQuery("no_query")
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}
	ctx = logger.WithPlan(ctx, plan.Postfix.String())
	log = logger.FromContext(ctx)

	var result *executor.SearchResult
	cacheHit := false
	if h.cache != nil {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, plan, limit, func() (*executor.SearchResult, error) {
			return h.executor.Execute(ctx, plan, limit)
		})
	} else {
		result, err = h.executor.Execute(ctx, plan, limit)
	}
	if err != nil {
		log.Error("search execution failed", "query", q, "error", err)
		h.countQuery(query.StatusIllegalQuerySyntax.String())
		h.writeError(w, apperrors.HTTPStatusCode(err), "search failed")
		return
	}
	out := *result
	out.Query = q

	latency := time.Since(start)
	log.Info("search completed",
		"query", q,
		"status", out.Status,
		"total_hits", out.TotalHits,
		"returned", len(out.Results),
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)
	eventType := analytics.EventCacheMiss
	if cacheHit {
		eventType = analytics.EventCacheHit
	}
	if out.TotalHits == 0 {
		eventType = analytics.EventZeroResult
	}
	h.track(ctx, analytics.SearchEvent{
		Type:      eventType,
		Query:     q,
		Plan:      out.Plan,
		Status:    out.Status,
		Stopwords: out.Stopwords,
		Lexemes:   out.Lexemes,
		TotalHits: out.TotalHits,
		Returned:  len(out.Results),
		CacheHit:  cacheHit,
	}, start)
	if h.metrics != nil {
		cacheStatus := "miss"
		if cacheHit {
			cacheStatus = "hit"
			h.metrics.CacheHitsTotal.Inc()
		} else if h.cache != nil {
			h.metrics.CacheMissesTotal.Inc()
		}
		h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(latency.Seconds())
		h.metrics.SearchResultsCount.Observe(float64(len(out.Results)))
	}
	h.countQuery(out.Status)

	if out.Status == query.StatusIllegalSectionName.String() {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  apperrors.ErrIllegalSection.Error(),
			"query":  q,
			"status": out.Status,
		})
		return
	}
	h.writeJSON(w, http.StatusOK, &out)
}

// Explain compiles the query and returns its normalized tree and postfix
// plan.
func (h *Handler) Explain(w http.ResponseWriter, r *http.Request) {
	q, ok := h.queryParam(w, r)
	if !ok {
		return
	}
	plan, err := h.executor.Compile(q)
	if err != nil {
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, ExplainResponse{
		Query: q,
		Tree:  plan.Tree.String(),
		Plan:  plan.Postfix.String(),
		Terms: plan.Postfix.Terms,
	})
}

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
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

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

func (h *Handler) queryParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	q := r.URL.Query().Get("q")
	if q == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return "", false
	}
	if h.cfg.MaxQueryLength > 0 && utf8.RuneCountInString(q) > h.cfg.MaxQueryLength {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("query must be at most %d characters", h.cfg.MaxQueryLength))
		return "", false
	}
	return q, true
}

func (h *Handler) limitParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	limit := h.cfg.DefaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return 0, false
		}
		limit = min(parsed, h.cfg.MaxResults)
	}
	return limit, true
}

func (h *Handler) track(ctx context.Context, event analytics.SearchEvent, start time.Time) {
	if h.collector == nil {
		return
	}
	event.LatencyMs = time.Since(start).Milliseconds()
	event.Timestamp = time.Now().UTC()
	event.RequestID = middleware.GetRequestID(ctx)
	h.collector.Track(event)
}

func (h *Handler) countQuery(status string) {
	if h.metrics != nil {
		h.metrics.SearchQueriesTotal.WithLabelValues(status).Inc()
	}
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
