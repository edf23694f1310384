package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/zeebo/blake3"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/redis"
)

const keyPrefix = "rank:"

// Store is the key-value backend of a ResultCache. *pkgredis.Client
// satisfies it.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// ResultStats is a snapshot of the result cache counters.
type ResultStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// ResultCache stores JSON-encoded values of type T with a TTL. Backend
// failures degrade to misses.
type ResultCache[T any] struct {
	store   Store
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewResultCache returns a cache over store. m may be nil.
func NewResultCache[T any](store Store, ttl time.Duration, m *metrics.Metrics) *ResultCache[T] {
	return &ResultCache[T]{
		store:   store,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "result-cache"),
	}
}

// ResultKey identifies a search response. Queries that normalize to the same
// token sequence share a key; a different collection, model configuration or
// limit never does.
func ResultKey(fingerprint, modelKey string, tokens []string, limit int) string {
	raw := fmt.Sprintf("%s\x00%s\x00%s\x00limit=%d", fingerprint, modelKey, strings.Join(tokens, "\x1f"), limit)
	hash := blake3.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

// Get looks key up.
func (c *ResultCache[T]) Get(ctx context.Context, key string) (T, bool) {
	var zero T
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.miss()
		return zero, false
	}
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return zero, false
	}
	c.hits.Add(1)
	c.metrics.ResultCache(true)
	c.logger.Debug("cache hit", "key", key)
	return value, true
}

// Set stores value under key.
func (c *ResultCache[T]) Set(ctx context.Context, key string, value T) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached value for key or computes, stores and
// returns it. Concurrent misses on one key compute once. The boolean reports
// a cache hit.
func (c *ResultCache[T]) GetOrCompute(ctx context.Context, key string, compute func() (T, error)) (T, bool, error) {
	if value, ok := c.Get(ctx, key); ok {
		return value, true, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		value, err := compute()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, value)
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	return v.(T), false, nil
}

// Invalidate deletes every cached result.
func (c *ResultCache[T]) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating result cache: %w", err)
	}
	c.logger.Info("result cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

// Stats returns hit and miss counts.
func (c *ResultCache[T]) Stats() ResultStats {
	return ResultStats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

func (c *ResultCache[T]) miss() {
	c.misses.Add(1)
	c.metrics.ResultCache(false)
}
