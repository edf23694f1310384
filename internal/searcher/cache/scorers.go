// Package cache memoises work that depends only on the loaded collection:
// ScorerCache keeps built indexes and scorers in memory, ResultCache keeps
// rendered search responses in Redis.
package cache

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/metrics"
)

// ScorerStats is a snapshot of the scorer cache counters.
type ScorerStats struct {
	Fingerprint string   `json:"fingerprint"`
	Scorers     []string `json:"scorers"`
	Hits        int64    `json:"hits"`
	Misses      int64    `json:"misses"`
	Builds      int64    `json:"builds"`
}

// ScorerCache holds the index and scorers of one collection. Seeing a
// collection with a different fingerprint drops everything built for the
// previous one. Concurrent requests for the same scorer build it once.
type ScorerCache struct {
	normalizer *tokenizer.Normalizer
	metrics    *metrics.Metrics
	logger     *slog.Logger
	group      singleflight.Group

	mu          sync.RWMutex
	fingerprint string
	ix          *index.Index
	scorers     map[string]ranker.Scorer

	hits   atomic.Int64
	misses atomic.Int64
	builds atomic.Int64
}

// NewScorerCache returns an empty cache whose indexes use normalizer. m may
// be nil.
func NewScorerCache(normalizer *tokenizer.Normalizer, m *metrics.Metrics) *ScorerCache {
	if normalizer == nil {
		normalizer = tokenizer.Default()
	}
	return &ScorerCache{
		normalizer: normalizer,
		metrics:    m,
		logger:     slog.Default().With("component", "scorer-cache"),
		scorers:    make(map[string]ranker.Scorer),
	}
}

// Index returns the index of coll, building it on first use.
func (c *ScorerCache) Index(ctx context.Context, coll *corpus.Collection) (*index.Index, error) {
	fp := coll.Fingerprint()
	if ix := c.cachedIndex(fp); ix != nil {
		return ix, nil
	}
	v, err := c.do(ctx, "index|"+fp, func() (any, error) {
		if ix := c.cachedIndex(fp); ix != nil {
			return ix, nil
		}
		ix, err := index.BuildWith(c.normalizer, coll.Texts())
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.fingerprint != fp {
			if c.fingerprint != "" {
				c.logger.Info("collection changed, dropping scorers", "old", c.fingerprint, "new", fp, "dropped", len(c.scorers))
			}
			c.fingerprint = fp
			c.scorers = make(map[string]ranker.Scorer)
		}
		c.ix = ix
		c.mu.Unlock()
		c.logger.Info("index built", "fingerprint", fp, "docs", ix.N(), "terms", ix.VocabularySize())
		return ix, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*index.Index), nil
}

// Get returns the scorer cfg describes over coll.
func (c *ScorerCache) Get(ctx context.Context, coll *corpus.Collection, cfg ranker.Config) (ranker.Scorer, error) {
	fp := coll.Fingerprint()
	key := cfg.Key()

	c.mu.RLock()
	scorer, ok := c.scorers[key]
	ok = ok && c.fingerprint == fp
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		c.metrics.ScorerCache(true)
		return scorer, nil
	}
	c.misses.Add(1)
	c.metrics.ScorerCache(false)

	v, err := c.do(ctx, fp+"|"+key, func() (any, error) {
		ix, err := c.Index(context.WithoutCancel(ctx), coll)
		if err != nil {
			return nil, err
		}
		scorer, err := ranker.New(ix, cfg)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.fingerprint == fp {
			c.scorers[key] = scorer
		}
		c.mu.Unlock()
		c.builds.Add(1)
		c.metrics.ScorerBuilt(scorer.Name())
		c.logger.Debug("scorer built", "key", key, "fingerprint", fp)
		return scorer, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(ranker.Scorer), nil
}

// Invalidate drops the cached index and every scorer.
func (c *ScorerCache) Invalidate() {
	c.mu.Lock()
	dropped := len(c.scorers)
	c.fingerprint = ""
	c.ix = nil
	c.scorers = make(map[string]ranker.Scorer)
	c.mu.Unlock()
	c.logger.Info("scorer cache invalidated", "dropped", dropped)
}

// Stats returns the current counters and cached scorer keys.
func (c *ScorerCache) Stats() ScorerStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.scorers))
	for key := range c.scorers {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return ScorerStats{
		Fingerprint: c.fingerprint,
		Scorers:     keys,
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Builds:      c.builds.Load(),
	}
}

func (c *ScorerCache) cachedIndex(fp string) *index.Index {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.fingerprint == fp {
		return c.ix
	}
	return nil
}

// do runs fn once per key across concurrent callers. A caller whose context
// ends stops waiting; the build itself continues for the others.
func (c *ScorerCache) do(ctx context.Context, key string, fn func() (any, error)) (any, error) {
	ch := c.group.DoChan(key, fn)
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
