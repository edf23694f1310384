// Package metrics defines the Prometheus metric collectors used across the
// engine and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the engine. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	SearchQueriesTotal   *prometheus.CounterVec
	SearchLatency        *prometheus.HistogramVec
	SearchResultsCount   prometheus.Histogram
	ScorerBuildsTotal    *prometheus.CounterVec
	ScorerCacheHitsTotal prometheus.Counter
	ScorerCacheMissTotal prometheus.Counter
	ResultCacheHitsTotal prometheus.Counter
	ResultCacheMissTotal prometheus.Counter
	EvaluationRunsTotal  prometheus.Counter
	EvaluationF1         *prometheus.GaugeVec
	CollectionDocuments  prometheus.Gauge
	AnalyticsEventsTotal *prometheus.CounterVec
}

// New creates all collectors and registers them with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates all collectors and registers them with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total search queries by model and result (matched, zero_result, cached, error).",
			},
			[]string{"model", "result"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Search latency in seconds by model.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"model"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_results_count",
				Help:    "Number of documents with a non-zero score per query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 500, 1000},
			},
		),
		ScorerBuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scorer_builds_total",
				Help: "Total scorers built by model.",
			},
			[]string{"model"},
		),
		ScorerCacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "scorer_cache_hits_total",
				Help: "Total scorer cache hits.",
			},
		),
		ScorerCacheMissTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "scorer_cache_misses_total",
				Help: "Total scorer cache misses.",
			},
		),
		ResultCacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "result_cache_hits_total",
				Help: "Total result cache hits.",
			},
		),
		ResultCacheMissTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "result_cache_misses_total",
				Help: "Total result cache misses.",
			},
		),
		EvaluationRunsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "evaluation_runs_total",
				Help: "Total benchmark runs.",
			},
		),
		EvaluationF1: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "evaluation_mean_f1",
				Help: "Mean F1 of the latest benchmark run by model.",
			},
			[]string{"model"},
		),
		CollectionDocuments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "collection_documents",
				Help: "Number of documents in the loaded collection.",
			},
		),
		AnalyticsEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analytics_events_total",
				Help: "Search events by outcome (published, dropped, failed, consumed).",
			},
			[]string{"outcome"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.ScorerBuildsTotal,
		m.ScorerCacheHitsTotal,
		m.ScorerCacheMissTotal,
		m.ResultCacheHitsTotal,
		m.ResultCacheMissTotal,
		m.EvaluationRunsTotal,
		m.EvaluationF1,
		m.CollectionDocuments,
		m.AnalyticsEventsTotal,
	)

	return m
}

// ObserveSearch records one executed search.
func (m *Metrics) ObserveSearch(model, result string, seconds float64, matched int) {
	if m == nil {
		return
	}
	m.SearchQueriesTotal.WithLabelValues(model, result).Inc()
	m.SearchLatency.WithLabelValues(model).Observe(seconds)
	m.SearchResultsCount.Observe(float64(matched))
}

// ScorerBuilt counts one scorer construction.
func (m *Metrics) ScorerBuilt(model string) {
	if m == nil {
		return
	}
	m.ScorerBuildsTotal.WithLabelValues(model).Inc()
}

// ScorerCache counts one scorer cache lookup.
func (m *Metrics) ScorerCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.ScorerCacheHitsTotal.Inc()
	} else {
		m.ScorerCacheMissTotal.Inc()
	}
}

// ResultCache counts one result cache lookup.
func (m *Metrics) ResultCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.ResultCacheHitsTotal.Inc()
	} else {
		m.ResultCacheMissTotal.Inc()
	}
}

// Evaluation records the averages of a benchmark run.
func (m *Metrics) Evaluation(meanF1 map[string]float64) {
	if m == nil {
		return
	}
	m.EvaluationRunsTotal.Inc()
	for model, f1 := range meanF1 {
		m.EvaluationF1.WithLabelValues(model).Set(f1)
	}
}

// SetCollectionSize records the number of loaded documents.
func (m *Metrics) SetCollectionSize(n int) {
	if m == nil {
		return
	}
	m.CollectionDocuments.Set(float64(n))
}

// AnalyticsEvent counts one search event outcome.
func (m *Metrics) AnalyticsEvent(outcome string) {
	if m == nil {
		return
	}
	m.AnalyticsEventsTotal.WithLabelValues(outcome).Inc()
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
