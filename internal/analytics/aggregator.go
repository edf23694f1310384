package analytics

import (
	"cmp"
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/metrics"
)

// maxLatencySamples bounds the latency window used for percentiles.
const maxLatencySamples = 10000

type AggregatedStats struct {
	TotalSearches     int64                 `json:"total_searches"`
	CacheHits         int64                 `json:"cache_hits"`
	CacheMisses       int64                 `json:"cache_misses"`
	ZeroResultCount   int64                 `json:"zero_result_count"`
	AvgLatencyMs      float64               `json:"avg_latency_ms"`
	P50LatencyMs      float64               `json:"p50_latency_ms"`
	P95LatencyMs      float64               `json:"p95_latency_ms"`
	P99LatencyMs      float64               `json:"p99_latency_ms"`
	TopQueries        []QueryCount          `json:"top_queries"`
	ZeroResultQueries []QueryCount          `json:"zero_result_queries"`
	QueriesPerMinute  float64               `json:"queries_per_minute"`
	Models            map[string]ModelStats `json:"models"`
	Evaluations       int64                 `json:"evaluations"`
	LastEvaluation    *EvaluationEvent      `json:"last_evaluation,omitempty"`
}

// ModelStats are the per-model search counters.
type ModelStats struct {
	Searches     int64   `json:"searches"`
	ZeroResults  int64   `json:"zero_results"`
	CacheHits    int64   `json:"cache_hits"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	AvgMatched   float64 `json:"avg_matched"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

type modelTotals struct {
	searches    int64
	zeroResults int64
	cacheHits   int64
	latencyMs   float64
	matched     int64
}

// Aggregator folds search and evaluation events into in-memory statistics.
type Aggregator struct {
	mu                sync.RWMutex
	totalSearches     int64
	cacheHits         int64
	zeroResults       int64
	latencies         []float64
	nextLatency       int
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	models            map[string]*modelTotals
	evaluations       int64
	lastEvaluation    *EvaluationEvent
	startTime         time.Time

	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewAggregator returns an empty aggregator. m may be nil.
func NewAggregator(m *metrics.Metrics) *Aggregator {
	return &Aggregator{
		latencies:         make([]float64, 0, 1024),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		models:            make(map[string]*modelTotals),
		startTime:         time.Now(),
		metrics:           m,
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

// Handler decodes Kafka messages into the aggregator. Undecodable messages
// are logged and skipped so they do not block the partition.
func (a *Aggregator) Handler() kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := decodeEvent(value)
		if err != nil {
			a.logger.Error("failed to decode analytics event", "error", err)
			return nil
		}
		a.metrics.AnalyticsEvent("consumed")
		switch e := event.(type) {
		case *SearchEvent:
			a.RecordSearch(*e)
		case *EvaluationEvent:
			a.RecordEvaluation(*e)
		}
		return nil
	}
}

func (a *Aggregator) RecordSearch(event SearchEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalSearches++
	if event.CacheHit {
		a.cacheHits++
	}
	if event.Matched == 0 {
		a.zeroResults++
		a.zeroResultQueries[event.Query]++
	}
	a.queryCounts[event.Query]++

	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, event.LatencyMs)
	} else {
		a.latencies[a.nextLatency] = event.LatencyMs
		a.nextLatency = (a.nextLatency + 1) % maxLatencySamples
	}

	m, ok := a.models[event.Model]
	if !ok {
		m = &modelTotals{}
		a.models[event.Model] = m
	}
	m.searches++
	m.latencyMs += event.LatencyMs
	m.matched += int64(event.Matched)
	if event.Matched == 0 {
		m.zeroResults++
	}
	if event.CacheHit {
		m.cacheHits++
	}
}

func (a *Aggregator) RecordEvaluation(event EvaluationEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.evaluations++
	if a.lastEvaluation == nil || !event.Timestamp.Before(a.lastEvaluation.Timestamp) {
		e := event
		a.lastEvaluation = &e
	}
}

// Stats returns a snapshot of the aggregated counters.
func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalSearches:   a.totalSearches,
		CacheHits:       a.cacheHits,
		CacheMisses:     a.totalSearches - a.cacheHits,
		ZeroResultCount: a.zeroResults,
		Models:          make(map[string]ModelStats, len(a.models)),
		Evaluations:     a.evaluations,
		LastEvaluation:  a.lastEvaluation,
	}
	if len(a.latencies) > 0 {
		sorted := slices.Clone(a.latencies)
		slices.Sort(sorted)

		var sum float64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = sum / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	for name, m := range a.models {
		stats.Models[name] = ModelStats{
			Searches:     m.searches,
			ZeroResults:  m.zeroResults,
			CacheHits:    m.cacheHits,
			AvgLatencyMs: m.latencyMs / float64(m.searches),
			AvgMatched:   float64(m.matched) / float64(m.searches),
		}
	}
	stats.TopQueries = topN(a.queryCounts, 10)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, 10)
	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalSearches) / elapsed
	}

	return stats
}

func percentile(sorted []float64, pct int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN returns the n most frequent queries, ties broken alphabetically.
func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for _, query := range slices.Sorted(maps.Keys(counts)) {
		result = append(result, QueryCount{Query: query, Count: counts[query]})
	}
	slices.SortStableFunc(result, func(x, y QueryCount) int {
		return cmp.Compare(y.Count, x.Count)
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
