package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/database"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/kafka"
)

type recordingPublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	err     error
}

func (p *recordingPublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.batches = append(p.batches, append([]kafka.Event(nil), events...))
	return nil
}

func (p *recordingPublisher) events() []kafka.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var all []kafka.Event
	for _, b := range p.batches {
		all = append(all, b...)
	}
	return all
}

func TestCollectorBatchesAndFlushesOnClose(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, CollectorOptions{BatchSize: 2, FlushInterval: time.Hour}, nil)
	c.Start(context.Background())

	c.TrackSearch(SearchEvent{Query: "flow", Model: "bm25"})
	c.TrackSearch(SearchEvent{Query: "wing", Model: "vsm"})
	c.TrackEvaluation(EvaluationEvent{RunID: "run-1"})
	c.Close()
	c.TrackSearch(SearchEvent{Query: "late"})

	events := pub.events()
	if len(events) != 3 {
		t.Fatalf("published %d events, want 3", len(events))
	}
	first, ok := events[0].Value.(SearchEvent)
	if !ok || first.Type != EventSearch || first.Timestamp.IsZero() || events[0].Key != "bm25" {
		t.Errorf("first event = %+v", events[0])
	}
	if ev, ok := events[2].Value.(EvaluationEvent); !ok || ev.Type != EventEvaluation {
		t.Errorf("third event = %+v", events[2])
	}
}

func TestCollectorDropsWhenFull(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, CollectorOptions{BufferSize: 1}, nil)
	c.TrackSearch(SearchEvent{Query: "a"})
	c.TrackSearch(SearchEvent{Query: "b"})
	c.Start(context.Background())
	c.Close()
	if n := len(pub.events()); n != 1 {
		t.Errorf("published %d events, want 1", n)
	}
}

func TestCollectorPublishFailure(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	c := NewCollector(pub, CollectorOptions{BatchSize: 1}, nil)
	c.Start(context.Background())
	c.TrackSearch(SearchEvent{Query: "a"})
	c.Close()
	if n := len(pub.events()); n != 0 {
		t.Errorf("published %d events", n)
	}
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	c.TrackSearch(SearchEvent{})
	c.TrackEvaluation(EvaluationEvent{})
	c.Close()
}

func TestAggregator(t *testing.T) {
	agg := NewAggregator(nil)
	agg.RecordSearch(SearchEvent{Query: "flow", Model: "bm25", Matched: 3, LatencyMs: 2})
	agg.RecordSearch(SearchEvent{Query: "flow", Model: "bm25", Matched: 3, LatencyMs: 4, CacheHit: true})
	agg.RecordSearch(SearchEvent{Query: "zzz", Model: "vsm", Matched: 0, LatencyMs: 6})
	agg.RecordEvaluation(EvaluationEvent{RunID: "old", Timestamp: time.Unix(100, 0)})
	agg.RecordEvaluation(EvaluationEvent{RunID: "new", Timestamp: time.Unix(200, 0)})
	agg.RecordEvaluation(EvaluationEvent{RunID: "older", Timestamp: time.Unix(50, 0)})

	stats := agg.Stats()
	if stats.TotalSearches != 3 || stats.CacheHits != 1 || stats.CacheMisses != 2 || stats.ZeroResultCount != 1 {
		t.Errorf("counters = %+v", stats)
	}
	if stats.AvgLatencyMs != 4 || stats.P50LatencyMs != 4 || stats.P99LatencyMs != 6 {
		t.Errorf("latency = avg %v p50 %v p99 %v", stats.AvgLatencyMs, stats.P50LatencyMs, stats.P99LatencyMs)
	}
	bm := stats.Models["bm25"]
	if bm.Searches != 2 || bm.AvgMatched != 3 || bm.CacheHits != 1 || bm.AvgLatencyMs != 3 {
		t.Errorf("bm25 stats = %+v", bm)
	}
	if vsm := stats.Models["vsm"]; vsm.ZeroResults != 1 {
		t.Errorf("vsm stats = %+v", vsm)
	}
	if len(stats.TopQueries) != 2 || stats.TopQueries[0] != (QueryCount{"flow", 2}) {
		t.Errorf("top queries = %v", stats.TopQueries)
	}
	if len(stats.ZeroResultQueries) != 1 || stats.ZeroResultQueries[0].Query != "zzz" {
		t.Errorf("zero result queries = %v", stats.ZeroResultQueries)
	}
	if stats.Evaluations != 3 || stats.LastEvaluation.RunID != "new" {
		t.Errorf("evaluations = %d, last = %+v", stats.Evaluations, stats.LastEvaluation)
	}
}

func TestAggregatorHandler(t *testing.T) {
	agg := NewAggregator(nil)
	handle := agg.Handler()
	search, _ := json.Marshal(SearchEvent{Type: EventSearch, Query: "q", Model: "vsm", Matched: 1})
	eval, _ := json.Marshal(EvaluationEvent{Type: EventEvaluation, RunID: "r"})
	for _, msg := range [][]byte{search, eval, []byte(`{"type":"index_document"}`), []byte(`garbage`)} {
		if err := handle(context.Background(), nil, msg); err != nil {
			t.Fatalf("handler returned %v", err)
		}
	}
	stats := agg.Stats()
	if stats.TotalSearches != 1 || stats.Evaluations != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestTopNTies(t *testing.T) {
	got := topN(map[string]int64{"b": 1, "a": 1, "c": 5}, 2)
	if len(got) != 2 || got[0].Query != "c" || got[1].Query != "a" {
		t.Errorf("topN = %v", got)
	}
}

func openSnapshots(t *testing.T) *SnapshotStore {
	t.Helper()
	db, err := database.Open(context.Background(), config.SearchLogConfig{
		Driver: config.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "analytics.db"),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	store, err := NewSnapshotStore(context.Background(), db)
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func TestSnapshotStore(t *testing.T) {
	store := openSnapshots(t)
	ctx := context.Background()

	latest, err := store.Latest(ctx)
	if err != nil || latest != nil {
		t.Fatalf("Latest on empty store = %v, %v", latest, err)
	}
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i := range 3 {
		stats := AggregatedStats{TotalSearches: int64(i + 1)}
		if err := store.Save(ctx, stats, base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatal(err)
		}
	}
	snapshots, err := store.List(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(snapshots) != 2 || snapshots[0].Stats.TotalSearches != 3 || snapshots[1].Stats.TotalSearches != 2 {
		t.Errorf("snapshots = %+v", snapshots)
	}
	if !snapshots[0].CapturedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("captured_at = %v", snapshots[0].CapturedAt)
	}
}

func TestHandler(t *testing.T) {
	agg := NewAggregator(nil)
	agg.RecordSearch(SearchEvent{Query: "q", Model: "bm25", Matched: 2})
	store := openSnapshots(t)
	if err := store.Save(context.Background(), agg.Stats(), time.Now()); err != nil {
		t.Fatal(err)
	}
	h := NewHandler(agg, store)

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))
	var stats AggregatedStats
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil || stats.TotalSearches != 1 {
		t.Fatalf("stats = %+v, %v", stats, err)
	}

	rec = httptest.NewRecorder()
	h.Snapshots(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/snapshots?limit=5", nil))
	var snapshots []Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&snapshots); err != nil || len(snapshots) != 1 {
		t.Fatalf("snapshots = %+v, %v", snapshots, err)
	}

	rec = httptest.NewRecorder()
	h.Snapshots(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/snapshots?limit=0", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("limit=0 code = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	NewHandler(agg, nil).Snapshots(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/snapshots", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("no store code = %d", rec.Code)
	}
}
