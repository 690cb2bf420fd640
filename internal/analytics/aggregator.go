package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/proximity-search/pkg/kafka"
)

// maxLatencySamples bounds the latency window used for percentiles.
const maxLatencySamples = 10000

type AggregatedStats struct {
	TotalSearches     int64            `json:"total_searches"`
	CacheHits         int64            `json:"cache_hits"`
	CacheMisses       int64            `json:"cache_misses"`
	ZeroResultCount   int64            `json:"zero_result_count"`
	ByStatus          map[string]int64 `json:"by_status"`
	AvgLatencyMs      float64          `json:"avg_latency_ms"`
	P50LatencyMs      int64            `json:"p50_latency_ms"`
	P95LatencyMs      int64            `json:"p95_latency_ms"`
	P99LatencyMs      int64            `json:"p99_latency_ms"`
	TopQueries        []Count          `json:"top_queries"`
	TopLexemes        []Count          `json:"top_lexemes"`
	TopStopwords      []Count          `json:"top_stopwords"`
	ZeroResultQueries []Count          `json:"zero_result_queries"`
	QueriesPerMinute  float64          `json:"queries_per_minute"`
}

type Count struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// Aggregator folds search events into running statistics. Plans rather
// than raw query strings are counted, so equivalent spellings of a query
// share a bucket.
type Aggregator struct {
	mu            sync.RWMutex
	totalSearches int64
	cacheHits     int64
	cacheMisses   int64
	zeroResults   int64
	byStatus      map[string]int64
	latencies     []int64
	plans         map[string]int64
	lexemes       map[string]int64
	stopwords     map[string]int64
	zeroResult    map[string]int64
	startTime     time.Time
	logger        *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		byStatus:   make(map[string]int64),
		latencies:  make([]int64, 0, 1024),
		plans:      make(map[string]int64),
		lexemes:    make(map[string]int64),
		stopwords:  make(map[string]int64),
		zeroResult: make(map[string]int64),
		startTime:  time.Now(),
		logger:     slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleEvent returns a Kafka MessageHandler feeding agg.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[SearchEvent](value)
		if err != nil {
			agg.logger.Error("failed to decode analytics event", "error", err)
			return nil
		}
		agg.Record(event)
		return nil
	}
}

func (a *Aggregator) Record(event SearchEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalSearches++
	if event.CacheHit {
		a.cacheHits++
	} else {
		a.cacheMisses++
	}
	a.byStatus[event.Status]++
	if len(a.latencies) >= maxLatencySamples {
		a.latencies = a.latencies[1:]
	}
	a.latencies = append(a.latencies, event.LatencyMs)

	key := event.Plan
	if key == "" {
		key = event.Query
	}
	a.plans[key]++
	for _, l := range event.Lexemes {
		a.lexemes[l]++
	}
	for _, s := range event.Stopwords {
		a.stopwords[s]++
	}
	if event.TotalHits == 0 && event.Type != EventRejected {
		a.zeroResults++
		a.zeroResult[key]++
	}
}

// DefaultTop is the length of the ranked lists returned by Stats.
const DefaultTop = 10

func (a *Aggregator) Stats() AggregatedStats {
	return a.StatsTop(DefaultTop)
}

// StatsTop is Stats with ranked lists of at most top entries.
func (a *Aggregator) StatsTop(top int) AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalSearches:   a.totalSearches,
		CacheHits:       a.cacheHits,
		CacheMisses:     a.cacheMisses,
		ZeroResultCount: a.zeroResults,
		ByStatus:        make(map[string]int64, len(a.byStatus)),
	}
	for status, n := range a.byStatus {
		stats.ByStatus[status] = n
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.plans, top)
	stats.TopLexemes = topN(a.lexemes, top)
	stats.TopStopwords = topN(a.stopwords, top)
	stats.ZeroResultQueries = topN(a.zeroResult, top)
	elapsed := time.Since(a.startTime).Minutes()
	if elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalSearches) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN returns the n largest counts, ties broken by key.
func topN(counts map[string]int64, n int) []Count {
	result := make([]Count, 0, len(counts))
	for key, count := range counts {
		result = append(result, Count{Key: key, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Key < result[j].Key
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
