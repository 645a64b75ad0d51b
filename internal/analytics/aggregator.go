package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/querycompiler/pkg/kafka"
)

const (
	latencyWindow = 10000
	topLimit      = 10
)

type AggregatedStats struct {
	TotalSearches     int64       `json:"total_searches"`
	InvalidQueries    int64       `json:"invalid_queries"`
	SearchErrors      int64       `json:"search_errors"`
	CacheHits         int64       `json:"cache_hits"`
	CacheMisses       int64       `json:"cache_misses"`
	ZeroResultCount   int64       `json:"zero_result_count"`
	AvgLatencyMs      float64     `json:"avg_latency_ms"`
	P50LatencyMs      int64       `json:"p50_latency_ms"`
	P95LatencyMs      int64       `json:"p95_latency_ms"`
	P99LatencyMs      int64       `json:"p99_latency_ms"`
	TopQueries        []TermCount `json:"top_queries"`
	TopIncludeTerms   []TermCount `json:"top_include_terms"`
	TopExcludeTerms   []TermCount `json:"top_exclude_terms"`
	ZeroResultQueries []TermCount `json:"zero_result_queries"`
	InvalidReasons    []TermCount `json:"invalid_reasons"`
	QueriesPerMinute  float64     `json:"queries_per_minute"`
}

// TermCount pairs a query, term or message with how often it was seen.
type TermCount struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// Aggregator folds search events into AggregatedStats. Latency percentiles
// cover the most recent latencyWindow searches.
type Aggregator struct {
	mu             sync.RWMutex
	totalSearches  int64
	invalidQueries int64
	searchErrors   int64
	cacheHits      int64
	cacheMisses    int64
	zeroResults    int64
	latencies      []int64
	latencyNext    int
	queries        map[string]int64
	includeTerms   map[string]int64
	excludeTerms   map[string]int64
	zeroResultQs   map[string]int64
	invalidReasons map[string]int64
	startTime      time.Time
	logger         *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:      make([]int64, 0, latencyWindow),
		queries:        make(map[string]int64),
		includeTerms:   make(map[string]int64),
		excludeTerms:   make(map[string]int64),
		zeroResultQs:   make(map[string]int64),
		invalidReasons: make(map[string]int64),
		startTime:      time.Now(),
		logger:         slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleMessage decodes a Kafka message and records it. Undecodable
// messages are logged and skipped so they are still committed.
func (a *Aggregator) HandleMessage(ctx context.Context, key, value []byte) error {
	event, err := kafka.DecodeJSON[SearchEvent](value)
	if err != nil {
		a.logger.Error("failed to decode analytics event", "key", string(key), "error", err)
		return nil
	}
	a.Record(event)
	return nil
}

// Record folds one event into the stats.
func (a *Aggregator) Record(event SearchEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch event.Type {
	case EventInvalidQuery:
		a.invalidQueries++
		a.invalidReasons[event.Error]++
		return
	case EventSearchError:
		a.searchErrors++
		return
	}

	a.totalSearches++
	if event.CacheHit {
		a.cacheHits++
	} else {
		a.cacheMisses++
	}
	a.queries[event.Query]++
	for _, t := range event.IncludeTerms {
		a.includeTerms[t]++
	}
	for _, t := range event.ExcludeTerms {
		a.excludeTerms[t]++
	}
	if event.Type == EventZeroResult || event.TotalHits == 0 {
		a.zeroResults++
		a.zeroResultQs[event.Query]++
	}
	a.recordLatency(event.LatencyMs)
}

// recordLatency keeps the newest latencyWindow samples in a ring.
func (a *Aggregator) recordLatency(ms int64) {
	if len(a.latencies) < latencyWindow {
		a.latencies = append(a.latencies, ms)
		return
	}
	a.latencies[a.latencyNext] = ms
	a.latencyNext = (a.latencyNext + 1) % latencyWindow
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalSearches:   a.totalSearches,
		InvalidQueries:  a.invalidQueries,
		SearchErrors:    a.searchErrors,
		CacheHits:       a.cacheHits,
		CacheMisses:     a.cacheMisses,
		ZeroResultCount: a.zeroResults,
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
	stats.TopQueries = topN(a.queries, topLimit)
	stats.TopIncludeTerms = topN(a.includeTerms, topLimit)
	stats.TopExcludeTerms = topN(a.excludeTerms, topLimit)
	stats.ZeroResultQueries = topN(a.zeroResultQs, topLimit)
	stats.InvalidReasons = topN(a.invalidReasons, topLimit)
	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
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

// topN orders by count, then value, so ties are stable across calls.
func topN(counts map[string]int64, n int) []TermCount {
	result := make([]TermCount, 0, len(counts))
	for v, c := range counts {
		result = append(result, TermCount{Value: v, Count: c})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Value < result[j].Value
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}

// Snapshot is a persisted copy of the stats at CapturedAt.
type Snapshot struct {
	Stats      AggregatedStats `json:"stats"`
	CapturedAt time.Time       `json:"captured_at"`
}
