package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/health"
)

const (
	documentsJSON = `[
		{"doc_id": 1, "text": "Boundary layer flow over a flat plate."},
		{"doc_id": 2, "text": "Heat transfer in hypersonic flow."},
		{"doc_id": 3, "text": "Wing flutter at supersonic speeds."}
	]`
	truthJSON = `{"wing flutter": ["3"], "hypersonic heat": [2]}`
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	docs := filepath.Join(dir, "docs.json")
	truth := filepath.Join(dir, "truth.json")
	if err := os.WriteFile(docs, []byte(documentsJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(truth, []byte(truthJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.Corpus.DocumentsPath = docs
	cfg.Corpus.GroundTruthPath = truth
	cfg.SearchLog.Driver = config.DriverSQLite
	cfg.SearchLog.DSN = filepath.Join(dir, "log.db")
	return cfg
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	e, err := Open(ctx, testConfig(t), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer e.Close()

	if e.Collection.Len() != 3 || len(e.GroundTruth) != 2 {
		t.Fatalf("collection %d docs, %d judged queries", e.Collection.Len(), len(e.GroundTruth))
	}
	if e.Results != nil || e.Events != nil {
		t.Error("disabled backends should stay nil")
	}

	resp, err := e.Executor.Execute(ctx, executor.Request{Query: "wing"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Hits[0].DocID != "3" {
		t.Errorf("top hit = %s", resp.Hits[0].DocID)
	}
	entries, err := e.SearchLog.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Query != "wing" {
		t.Errorf("search log = %+v", entries)
	}

	report, err := e.Executor.Benchmark(ctx, e.GroundTruth, nil, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Queries) != 2 {
		t.Errorf("benchmark queries = %d", len(report.Queries))
	}

	checker := health.NewChecker()
	e.RegisterHealth(checker)
	if got := checker.Run(ctx); got.Status != health.StatusUp {
		t.Errorf("health = %+v", got)
	}
}

func TestWarm(t *testing.T) {
	cfg := testConfig(t)
	cfg.SearchLog.Driver = config.DriverNone
	e, err := Open(context.Background(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	if err := e.Warm(context.Background(), ranker.Config{Model: "vsm"}, ranker.Config{Model: "bm25", K1: 1.5, B: 0.75}); err != nil {
		t.Fatal(err)
	}
	if got := e.Scorers.Stats().Builds; got != 2 {
		t.Errorf("builds = %d, want 2", got)
	}
	if err := e.Warm(context.Background(), ranker.Config{Model: "lsi"}); err == nil {
		t.Error("unknown model warmed")
	}
}

func TestOpenErrors(t *testing.T) {
	cfg := testConfig(t)
	cfg.Corpus.DocumentsPath = filepath.Join(t.TempDir(), "missing.json")
	if _, err := Open(context.Background(), cfg, nil); err == nil {
		t.Error("missing corpus accepted")
	}

	cfg = testConfig(t)
	cfg.Ranking.Stemmer = "lancaster"
	if _, err := Open(context.Background(), cfg, nil); err == nil {
		t.Error("unknown stemmer accepted")
	}
}
