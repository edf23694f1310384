package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"runtime"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/errors"
)

// DefaultCutoff is the number of top-ranked documents treated as the
// prediction for each query.
const DefaultCutoff = 5

// Options tunes a benchmark run.
type Options struct {
	// Cutoff is the ranked-list length evaluated per query. Zero means
	// DefaultCutoff.
	Cutoff int
	// Concurrency bounds the queries evaluated in parallel. Zero means
	// GOMAXPROCS.
	Concurrency int
}

// ModelRun is one scorer's answer to one query.
type ModelRun struct {
	Predicted []string `json:"predicted"`
	Metrics
}

// QueryResult holds every scorer's answer to one query.
type QueryResult struct {
	Query    string              `json:"query"`
	Relevant []string            `json:"relevant"`
	Models   map[string]ModelRun `json:"models"`
}

// Report is the outcome of Run. Queries are sorted by query text.
type Report struct {
	RunID    string             `json:"run_id"`
	Cutoff   int                `json:"cutoff"`
	Models   []string           `json:"models"`
	Queries  []QueryResult      `json:"queries"`
	Averages map[string]Metrics `json:"averages"`
	// Best is the model with the highest mean F1, empty on a tie.
	Best     string        `json:"best"`
	Duration time.Duration `json:"duration_ns"`
}

// Run evaluates every query of truth against every scorer. docIDs maps
// ordinals back to the ids used by truth.
func Run(ctx context.Context, scorers []ranker.Scorer, docIDs []string, truth map[string][]string, opts Options) (*Report, error) {
	if len(scorers) == 0 {
		return nil, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "no scorers to evaluate")
	}
	if len(truth) == 0 {
		return nil, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "ground truth has no queries")
	}
	models := make([]string, 0, len(scorers))
	for _, s := range scorers {
		if slices.Contains(models, s.Name()) {
			return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "scorer %q given twice", s.Name())
		}
		models = append(models, s.Name())
	}
	if opts.Cutoff <= 0 {
		opts.Cutoff = DefaultCutoff
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.GOMAXPROCS(0)
	}

	start := time.Now()
	logger := slog.Default().With("component", "evaluation")
	queries := slices.Sorted(maps.Keys(truth))
	results := make([]QueryResult, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, query := range queries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			qr := QueryResult{
				Query:    query,
				Relevant: truth[query],
				Models:   make(map[string]ModelRun, len(scorers)),
			}
			for _, s := range scorers {
				res := s.Search(query, opts.Cutoff)
				predicted := make([]string, len(res.Ranked))
				for k, ordinal := range res.Ranked {
					if ordinal < 0 || ordinal >= len(docIDs) {
						return apperrors.Newf(apperrors.ErrInternal, http.StatusInternalServerError,
							"%s returned ordinal %d for %d document ids", s.Name(), ordinal, len(docIDs))
					}
					predicted[k] = docIDs[ordinal]
				}
				qr.Models[s.Name()] = ModelRun{
					Predicted: predicted,
					Metrics:   Evaluate(predicted, qr.Relevant),
				}
			}
			results[i] = qr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("evaluating queries: %w", err)
	}

	report := &Report{
		RunID:    uuid.NewString(),
		Cutoff:   opts.Cutoff,
		Models:   models,
		Queries:  results,
		Averages: make(map[string]Metrics, len(models)),
	}
	for _, model := range models {
		perQuery := make([]Metrics, len(results))
		for i, qr := range results {
			perQuery[i] = qr.Models[model].Metrics
		}
		report.Averages[model] = Mean(perQuery)
	}
	report.Best = best(models, report.Averages)
	report.Duration = time.Since(start)

	logger.Info("evaluation finished",
		"run_id", report.RunID,
		"queries", len(queries),
		"models", models,
		"cutoff", opts.Cutoff,
		"best", report.Best,
		"duration_ms", report.Duration.Milliseconds(),
	)
	return report, nil
}

func best(models []string, averages map[string]Metrics) string {
	winner := ""
	top := -1.0
	tied := false
	for _, model := range models {
		f1 := averages[model].F1
		switch {
		case f1 > top:
			winner, top, tied = model, f1, false
		case f1 == top:
			tied = true
		}
	}
	if tied {
		return ""
	}
	return winner
}
