// Package engine assembles a ready executor from configuration: it loads the
// corpus, builds the normalizer and scorer cache, and connects the optional
// result cache, search log and analytics collector.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/searchlog"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/redis"
)

// Engine owns every component built from one configuration.
type Engine struct {
	Collection  *corpus.Collection
	GroundTruth map[string][]string
	Scorers     *cache.ScorerCache
	Results     *cache.ResultCache[executor.Response]
	SearchLog   *searchlog.Store
	Events      *analytics.Collector
	Executor    *executor.Executor

	redis    *pkgredis.Client
	producer *kafka.Producer
	logger   *slog.Logger
}

// Open builds the engine. Redis, Kafka and the search log are optional: a
// disabled backend is skipped, and an unreachable Redis only disables result
// caching. m may be nil.
func Open(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*Engine, error) {
	e := &Engine{logger: slog.Default().With("component", "engine")}

	normalizer, err := tokenizer.NewNormalizer(tokenizer.Options{Stemmer: tokenizer.Stemmer(cfg.Ranking.Stemmer)})
	if err != nil {
		return nil, err
	}
	e.Collection, err = corpus.LoadDocumentsFile(cfg.Corpus.DocumentsPath)
	if err != nil {
		return nil, err
	}
	e.logger.Info("collection loaded",
		"path", cfg.Corpus.DocumentsPath,
		"documents", e.Collection.Len(),
		"fingerprint", e.Collection.Fingerprint(),
	)
	if cfg.Corpus.GroundTruthPath != "" {
		e.GroundTruth, err = corpus.LoadGroundTruthFile(cfg.Corpus.GroundTruthPath)
		if err != nil {
			return nil, err
		}
		e.logger.Info("ground truth loaded", "path", cfg.Corpus.GroundTruthPath, "queries", len(e.GroundTruth))
	}

	e.Scorers = cache.NewScorerCache(normalizer, m)

	if cfg.Redis.Enabled {
		client, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			e.logger.Warn("redis unavailable, result caching disabled", "error", err)
		} else {
			e.redis = client
			e.Results = cache.NewResultCache[executor.Response](client, cfg.Redis.CacheTTL, m)
			e.logger.Info("result cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	if cfg.SearchLog.Driver != config.DriverNone {
		e.SearchLog, err = searchlog.Open(ctx, cfg.SearchLog)
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("opening search log: %w", err)
		}
		e.logger.Info("search log enabled", "driver", cfg.SearchLog.Driver)
	}

	if cfg.Kafka.Enabled {
		e.producer = kafka.NewProducer(cfg.Kafka)
		e.Events = analytics.NewCollector(e.producer, analytics.CollectorOptions{}, m)
		e.Events.Start(ctx)
	}

	opts := executor.Options{
		DefaultRanking:   ranker.Config{Model: cfg.Ranking.Model, K1: cfg.Ranking.K1, B: cfg.Ranking.B},
		DefaultLimit:     cfg.Ranking.DefaultLimit,
		MaxResults:       cfg.Ranking.MaxResults,
		SnippetLength:    cfg.Snippet.MaxLength,
		EvaluationCutoff: cfg.Ranking.EvaluationCutoff,
		Results:          e.Results,
		Events:           e.Events,
		Metrics:          m,
	}
	if e.SearchLog != nil {
		opts.Recorder = e.SearchLog
	}
	e.Executor, err = executor.New(ctx, e.Collection, e.Scorers, opts)
	if err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

// Warm builds the scorer of every configuration ahead of the first query.
func (e *Engine) Warm(ctx context.Context, configs ...ranker.Config) error {
	var errs []error
	for _, cfg := range configs {
		if _, err := e.Executor.Scorer(ctx, cfg); err != nil {
			errs = append(errs, fmt.Errorf("warming %s: %w", cfg.Key(), err))
		}
	}
	return errors.Join(errs...)
}

// RegisterHealth adds a check per component to checker.
func (e *Engine) RegisterHealth(checker *health.Checker) {
	checker.Register("collection", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d documents", e.Collection.Len())}
	})
	if e.redis != nil {
		checker.Register("redis", health.PingCheck(e.redis.Ping, true))
	}
	if e.SearchLog != nil {
		checker.Register("search_log", health.PingCheck(e.SearchLog.DB().Ping, true))
	}
}

// StartRetention prunes the search log every interval, dropping entries
// older than retention, until ctx is done. It does nothing without a search
// log or with zero retention.
func (e *Engine) StartRetention(ctx context.Context, retention, interval time.Duration) {
	if e.SearchLog == nil || retention <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if _, err := e.SearchLog.Prune(ctx, now.Add(-retention)); err != nil {
					e.logger.Error("search log pruning failed", "error", err)
				}
			}
		}
	}()
}

// Close flushes pending events and releases every connection.
func (e *Engine) Close() {
	e.Events.Close()
	if e.producer != nil {
		if err := e.producer.Close(); err != nil {
			e.logger.Error("closing kafka producer", "error", err)
		}
	}
	if e.redis != nil {
		e.redis.Close()
	}
	if e.SearchLog != nil {
		e.SearchLog.Close()
	}
}
