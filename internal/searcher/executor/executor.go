// Package executor runs searches and evaluations against the loaded
// collection. It resolves the scorer, translates ordinals back to document
// ids, renders snippets and fans the outcome out to the result cache, the
// search log, analytics and metrics.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/searcher/snippet"
	apperrors "github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/tracing"
)

// Request is one search. A zero Ranking uses the executor default and a
// non-positive Limit uses the default limit.
type Request struct {
	Query   string        `json:"query"`
	Ranking ranker.Config `json:"ranking"`
	Limit   int           `json:"limit"`
}

// Hit is one ranked document.
type Hit struct {
	Rank    int     `json:"rank"`
	DocID   string  `json:"doc_id"`
	Ordinal int     `json:"ordinal"`
	Score   float64 `json:"score"`
	Snippet string  `json:"snippet"`
}

// Response is the outcome of Execute. Hits are best first and include
// documents that scored zero when the limit reaches them.
type Response struct {
	Query     string   `json:"query"`
	Model     string   `json:"model"`
	ModelKey  string   `json:"model_key"`
	Terms     []string `json:"terms"`
	TotalDocs int      `json:"total_docs"`
	Matched   int      `json:"matched"`
	Hits      []Hit    `json:"hits"`
	CacheHit  bool     `json:"cache_hit"`
	TookMs    float64  `json:"took_ms"`
}

// Recorder persists executed searches.
type Recorder interface {
	Record(ctx context.Context, resp *Response) error
}

// Options wires optional collaborators. Nil fields are skipped.
type Options struct {
	DefaultRanking   ranker.Config
	DefaultLimit     int
	MaxResults       int
	SnippetLength    int
	EvaluationCutoff int
	Results          *cache.ResultCache[Response]
	Recorder         Recorder
	Events           *analytics.Collector
	Metrics          *metrics.Metrics
}

type Executor struct {
	collection *corpus.Collection
	scorers    *cache.ScorerCache
	snippets   *snippet.Extractor
	opts       Options
	logger     *slog.Logger
}

// New returns an executor over coll. Scorers come from scorers, whose
// normalizer also drives snippet matching.
func New(ctx context.Context, coll *corpus.Collection, scorers *cache.ScorerCache, opts Options) (*Executor, error) {
	if opts.DefaultRanking.Model == "" {
		opts.DefaultRanking = ranker.Config{Model: ranker.ModelBM25, K1: ranker.DefaultParams().K1, B: ranker.DefaultParams().B}
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 100
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 5
	}
	opts.DefaultLimit = min(opts.DefaultLimit, opts.MaxResults)
	if opts.SnippetLength <= 0 {
		opts.SnippetLength = snippet.DefaultMaxLength
	}
	if opts.EvaluationCutoff <= 0 {
		opts.EvaluationCutoff = evaluation.DefaultCutoff
	}

	ix, err := scorers.Index(ctx, coll)
	if err != nil {
		return nil, fmt.Errorf("indexing collection: %w", err)
	}
	opts.Metrics.SetCollectionSize(coll.Len())
	return &Executor{
		collection: coll,
		scorers:    scorers,
		snippets:   snippet.New(ix.Normalizer()),
		opts:       opts,
		logger:     slog.Default().With("component", "query-executor"),
	}, nil
}

// Collection returns the collection searched.
func (e *Executor) Collection() *corpus.Collection {
	return e.collection
}

// Defaults returns the effective options after defaulting.
func (e *Executor) Defaults() Options {
	return e.opts
}

// Execute ranks the collection for req.
func (e *Executor) Execute(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	ctx, span := tracing.StartChild(ctx, "execute")
	defer span.End()

	cfg := req.Ranking
	if cfg.Model == "" {
		cfg = e.opts.DefaultRanking
	}
	limit := req.Limit
	if limit <= 0 {
		limit = e.opts.DefaultLimit
	}
	limit = min(limit, e.opts.MaxResults)
	span.SetAttr("model", cfg.Key())
	span.SetAttr("limit", limit)

	scorer, err := e.scorer(ctx, cfg)
	if err != nil {
		e.opts.Metrics.ObserveSearch(strings.ToLower(cfg.Model), "error", time.Since(start).Seconds(), 0)
		return nil, err
	}
	ix, err := e.scorers.Index(ctx, e.collection)
	if err != nil {
		return nil, err
	}
	terms := ix.Normalizer().Normalize(req.Query)

	compute := func() (Response, error) {
		return e.rank(ctx, scorer, cfg, req.Query, terms, limit), nil
	}
	var (
		resp     Response
		cacheHit bool
	)
	if e.opts.Results != nil {
		key := cache.ResultKey(e.collection.Fingerprint(), cfg.Key(), terms, limit)
		resp, cacheHit, err = e.opts.Results.GetOrCompute(ctx, key, compute)
		if err != nil {
			return nil, err
		}
	} else {
		resp, _ = compute()
	}
	resp.Query = req.Query
	resp.CacheHit = cacheHit
	resp.TookMs = float64(time.Since(start).Microseconds()) / 1000
	span.SetAttr("matched", resp.Matched)
	span.SetAttr("cache_hit", cacheHit)

	e.report(ctx, &resp)
	return &resp, nil
}

// Scorer returns the scorer cfg describes, sharing the executor's cache.
func (e *Executor) Scorer(ctx context.Context, cfg ranker.Config) (ranker.Scorer, error) {
	return e.scorer(ctx, cfg)
}

func (e *Executor) scorer(ctx context.Context, cfg ranker.Config) (ranker.Scorer, error) {
	_, span := tracing.StartChild(ctx, "scorer")
	defer span.End()
	return e.scorers.Get(ctx, e.collection, cfg)
}

func (e *Executor) rank(ctx context.Context, scorer ranker.Scorer, cfg ranker.Config, query string, terms []string, limit int) Response {
	_, span := tracing.StartChild(ctx, "rank")
	defer span.End()

	result := scorer.Search(query, limit)
	matched := 0
	for _, s := range result.Scores {
		if s != 0 {
			matched++
		}
	}
	hits := make([]Hit, len(result.Ranked))
	for i, ordinal := range result.Ranked {
		hits[i] = Hit{
			Rank:    i + 1,
			DocID:   e.collection.ID(ordinal),
			Ordinal: ordinal,
			Score:   result.Scores[ordinal],
			Snippet: e.snippets.Extract(query, e.collection.Text(ordinal), e.opts.SnippetLength),
		}
	}
	if terms == nil {
		terms = []string{}
	}
	return Response{
		Query:     query,
		Model:     scorer.Name(),
		ModelKey:  cfg.Key(),
		Terms:     terms,
		TotalDocs: e.collection.Len(),
		Matched:   matched,
		Hits:      hits,
	}
}

func (e *Executor) report(ctx context.Context, resp *Response) {
	log := logger.FromContext(ctx).With("component", "query-executor")
	outcome := "matched"
	if resp.Matched == 0 {
		outcome = "zero_result"
	}
	e.opts.Metrics.ObserveSearch(resp.Model, outcome, resp.TookMs/1000, resp.Matched)

	event := analytics.SearchEvent{
		RequestID: logger.RequestID(ctx),
		Query:     resp.Query,
		Terms:     resp.Terms,
		Model:     resp.Model,
		ModelKey:  resp.ModelKey,
		TotalDocs: resp.TotalDocs,
		Matched:   resp.Matched,
		Returned:  len(resp.Hits),
		LatencyMs: resp.TookMs,
		CacheHit:  resp.CacheHit,
	}
	if len(resp.Hits) > 0 {
		event.TopDocID = resp.Hits[0].DocID
	}
	e.opts.Events.TrackSearch(event)

	if e.opts.Recorder != nil {
		if err := e.opts.Recorder.Record(ctx, resp); err != nil {
			log.Error("recording search failed", "error", err)
		}
	}

	log.Info("query executed",
		"query", resp.Query,
		"model", resp.ModelKey,
		"terms", len(resp.Terms),
		"matched", resp.Matched,
		"returned", len(resp.Hits),
		"cache_hit", resp.CacheHit,
		"took_ms", resp.TookMs,
	)
}

// QueryEvaluation is the outcome of EvaluateQuery.
type QueryEvaluation struct {
	Query     string   `json:"query,omitempty"`
	Model     string   `json:"model,omitempty"`
	Cutoff    int      `json:"cutoff,omitempty"`
	Predicted []string `json:"predicted"`
	Relevant  []string `json:"relevant"`
	evaluation.Metrics
}

// EvaluateQuery scores the top cutoff documents the engine returns for
// query against relevant. cutoff <= 0 uses the configured cutoff.
func (e *Executor) EvaluateQuery(ctx context.Context, query string, cfg ranker.Config, cutoff int, relevant []string) (*QueryEvaluation, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query is required")
	}
	if cfg.Model == "" {
		cfg = e.opts.DefaultRanking
	}
	if cutoff <= 0 {
		cutoff = e.opts.EvaluationCutoff
	}
	scorer, err := e.scorer(ctx, cfg)
	if err != nil {
		return nil, err
	}
	result := scorer.Search(query, cutoff)
	predicted := make([]string, len(result.Ranked))
	for i, ordinal := range result.Ranked {
		predicted[i] = e.collection.ID(ordinal)
	}
	return &QueryEvaluation{
		Query:     query,
		Model:     cfg.Key(),
		Cutoff:    cutoff,
		Predicted: predicted,
		Relevant:  relevant,
		Metrics:   evaluation.Evaluate(predicted, relevant),
	}, nil
}

// Benchmark evaluates every model in configs over truth. An empty configs
// compares VSM with the default BM25 configuration.
func (e *Executor) Benchmark(ctx context.Context, truth map[string][]string, configs []ranker.Config, cutoff int) (*evaluation.Report, error) {
	ctx, span := tracing.StartChild(ctx, "benchmark")
	defer span.End()

	if len(configs) == 0 {
		def := e.opts.DefaultRanking
		if strings.ToLower(def.Model) != ranker.ModelBM25 {
			def = ranker.Config{Model: ranker.ModelBM25, K1: ranker.DefaultParams().K1, B: ranker.DefaultParams().B}
		}
		configs = []ranker.Config{{Model: ranker.ModelVSM}, def}
	}
	if cutoff <= 0 {
		cutoff = e.opts.EvaluationCutoff
	}
	names := make(map[string]int, len(configs))
	for _, cfg := range configs {
		names[strings.ToLower(cfg.Model)]++
	}
	scorers := make([]ranker.Scorer, 0, len(configs))
	for _, cfg := range configs {
		s, err := e.scorer(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if names[s.Name()] > 1 {
			s = labeled{Scorer: s, name: cfg.Key()}
		}
		scorers = append(scorers, s)
	}

	report, err := evaluation.Run(ctx, scorers, e.collection.IDs(), truth, evaluation.Options{Cutoff: cutoff})
	if err != nil {
		return nil, err
	}

	meanF1 := make(map[string]float64, len(report.Averages))
	for model, avg := range report.Averages {
		meanF1[model] = avg.F1
	}
	e.opts.Metrics.Evaluation(meanF1)
	e.opts.Events.TrackEvaluation(analytics.EvaluationEvent{
		RunID:      report.RunID,
		Cutoff:     report.Cutoff,
		Queries:    len(report.Queries),
		MeanF1:     meanF1,
		Best:       report.Best,
		DurationMs: report.Duration.Milliseconds(),
	})
	span.SetAttr("run_id", report.RunID)
	return report, nil
}

// labeled reports a config key as its name so that variants of one model
// can be compared in a single report.
type labeled struct {
	ranker.Scorer
	name string
}

func (l labeled) Name() string {
	return l.name
}
