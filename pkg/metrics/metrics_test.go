package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorders(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.ObserveSearch("bm25", "matched", 0.002, 7)
	m.ObserveSearch("bm25", "matched", 0.003, 0)
	m.ScorerBuilt("vsm")
	m.ScorerCache(true)
	m.ScorerCache(false)
	m.ScorerCache(false)
	m.ResultCache(true)
	m.Evaluation(map[string]float64{"vsm": 0.25, "bm25": 0.5})
	m.SetCollectionSize(1400)
	m.AnalyticsEvent("dropped")

	if got := testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("bm25", "matched")); got != 2 {
		t.Errorf("search_queries_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ScorerBuildsTotal.WithLabelValues("vsm")); got != 1 {
		t.Errorf("scorer_builds_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ScorerCacheMissTotal); got != 2 {
		t.Errorf("scorer_cache_misses_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ResultCacheHitsTotal); got != 1 {
		t.Errorf("result_cache_hits_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.EvaluationF1.WithLabelValues("bm25")); got != 0.5 {
		t.Errorf("evaluation_mean_f1{bm25} = %v, want 0.5", got)
	}
	if got := testutil.ToFloat64(m.CollectionDocuments); got != 1400 {
		t.Errorf("collection_documents = %v", got)
	}
	if got := testutil.ToFloat64(m.AnalyticsEventsTotal.WithLabelValues("dropped")); got != 1 {
		t.Errorf("analytics_events_total = %v", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveSearch("vsm", "error", 0, 0)
	m.ScorerBuilt("vsm")
	m.ScorerCache(true)
	m.ResultCache(false)
	m.Evaluation(nil)
	m.SetCollectionSize(1)
	m.AnalyticsEvent("published")
}
