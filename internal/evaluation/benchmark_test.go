package evaluation

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/errors"
)

var (
	benchDocs = []string{
		"boundary layer flow over a flat plate",
		"heat transfer in hypersonic flow",
		"wing flutter at supersonic speeds",
		"flat plate heat transfer measurements",
	}
	benchIDs = []string{"d1", "d2", "d3", "d4"}
)

func benchScorers(t *testing.T) []ranker.Scorer {
	t.Helper()
	ix, err := index.Build(benchDocs)
	if err != nil {
		t.Fatal(err)
	}
	bm, err := ranker.NewBM25(ix, ranker.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	return []ranker.Scorer{ranker.NewVSM(ix), bm}
}

func TestRun(t *testing.T) {
	truth := map[string][]string{
		"wing flutter":       {"d3"},
		"flat plate heat":    {"d4", "d1"},
		"hypersonic heating": {"d2"},
	}
	report, err := Run(context.Background(), benchScorers(t), benchIDs, truth, Options{Cutoff: 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.RunID == "" {
		t.Error("missing run id")
	}
	if !slices.Equal(report.Models, []string{ranker.ModelVSM, ranker.ModelBM25}) {
		t.Errorf("Models = %v", report.Models)
	}
	gotQueries := make([]string, len(report.Queries))
	for i, q := range report.Queries {
		gotQueries[i] = q.Query
	}
	if !slices.IsSorted(gotQueries) || len(gotQueries) != 3 {
		t.Errorf("queries not sorted: %v", gotQueries)
	}
	for _, q := range report.Queries {
		for model, run := range q.Models {
			if len(run.Predicted) != 1 {
				t.Errorf("%s/%s predicted %v, want one id", q.Query, model, run.Predicted)
			}
		}
	}
	flutter := report.Queries[slices.Index(gotQueries, "wing flutter")]
	for model, run := range flutter.Models {
		if run.Predicted[0] != "d3" || run.Precision != 1 || run.Recall != 1 {
			t.Errorf("%s: wing flutter = %+v", model, run)
		}
	}
	for _, model := range report.Models {
		if _, ok := report.Averages[model]; !ok {
			t.Errorf("no average for %s", model)
		}
	}
}

func TestRunDefaultsAndErrors(t *testing.T) {
	scorers := benchScorers(t)
	truth := map[string][]string{"flow": {"d1"}}

	report, err := Run(context.Background(), scorers, benchIDs, truth, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if report.Cutoff != DefaultCutoff {
		t.Errorf("Cutoff = %d, want %d", report.Cutoff, DefaultCutoff)
	}
	// Four documents with a cutoff of 5 clamp to four predictions.
	if n := len(report.Queries[0].Models[ranker.ModelBM25].Predicted); n != 4 {
		t.Errorf("predicted %d ids, want 4", n)
	}

	if _, err := Run(context.Background(), nil, benchIDs, truth, Options{}); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("no scorers: %v", err)
	}
	if _, err := Run(context.Background(), scorers, benchIDs, nil, Options{}); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("no truth: %v", err)
	}
	dup := []ranker.Scorer{scorers[0], scorers[0]}
	if _, err := Run(context.Background(), dup, benchIDs, truth, Options{}); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("duplicate scorers: %v", err)
	}
	if _, err := Run(context.Background(), scorers, benchIDs[:2], truth, Options{}); !errors.Is(err, apperrors.ErrInternal) {
		t.Errorf("short id list: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, scorers, benchIDs, truth, Options{}); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled context: %v", err)
	}
}

func TestBest(t *testing.T) {
	avg := map[string]Metrics{"vsm": {F1: 0.4}, "bm25": {F1: 0.5}}
	if got := best([]string{"vsm", "bm25"}, avg); got != "bm25" {
		t.Errorf("best = %q, want bm25", got)
	}
	avg["vsm"] = Metrics{F1: 0.5}
	if got := best([]string{"vsm", "bm25"}, avg); got != "" {
		t.Errorf("tie should give empty best, got %q", got)
	}
}
