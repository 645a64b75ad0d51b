// Package cache stores executed search results in Redis, keyed by the
// compiled tsquery so that differently spelled queries with the same
// compiled form ("cats AND dogs", "cats dogs") share one entry.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/querycompiler/internal/searcher/executor"
	pkgredis "github.com/Adithya-Monish-Kumar-K/querycompiler/pkg/redis"
)

const (
	keyPrefix = "search:"
	// DefaultComputeTimeout bounds a shared computation once it no longer
	// follows the cancellation of the request that started it.
	DefaultComputeTimeout = 10 * time.Second
)

// Store is the part of the Redis client the cache uses. Get must return
// pkgredis.ErrKeyNotFound for a missing key.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Stats is a snapshot of the cache counters.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Errors  int64   `json:"errors"`
	HitRate float64 `json:"hit_rate"`
}

type QueryCache struct {
	store          Store
	ttl            time.Duration
	computeTimeout time.Duration
	group          singleflight.Group
	logger         *slog.Logger
	hits           atomic.Int64
	misses         atomic.Int64
	errors         atomic.Int64
}

type Option func(*QueryCache)

// WithComputeTimeout overrides DefaultComputeTimeout.
func WithComputeTimeout(d time.Duration) Option {
	return func(c *QueryCache) {
		if d > 0 {
			c.computeTimeout = d
		}
	}
}

func New(store Store, ttl time.Duration, opts ...Option) *QueryCache {
	c := &QueryCache{
		store:          store,
		ttl:            ttl,
		computeTimeout: DefaultComputeTimeout,
		logger:         slog.Default().With("component", "query-cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get looks up the result of a compiled query. Store failures count as
// misses so a broken Redis only costs latency.
func (c *QueryCache) Get(ctx context.Context, compiled string, limit int) (*executor.SearchResult, bool) {
	key := BuildKey(compiled, limit)
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.errors.Add(1)
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var result executor.SearchResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.errors.Add(1)
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "compiled", compiled, "key", key)
	return &result, true
}

func (c *QueryCache) Set(ctx context.Context, compiled string, limit int, result *executor.SearchResult) {
	key := BuildKey(compiled, limit)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.errors.Add(1)
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result or runs computeFn once per key,
// however many callers ask for it concurrently. The bool reports a cache hit.
//
// computeFn gets a context detached from any one caller and bounded by the
// compute timeout, so a cancelled request does not fail the callers sharing
// its computation. Each caller still stops waiting when its own ctx ends.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	compiled string,
	limit int,
	computeFn func(ctx context.Context) (*executor.SearchResult, error),
) (*executor.SearchResult, bool, error) {
	if result, ok := c.Get(ctx, compiled, limit); ok {
		return result, true, nil
	}
	key := BuildKey(compiled, limit)
	ch := c.group.DoChan(key, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.computeTimeout)
		defer cancel()
		result, err := computeFn(shared)
		if err != nil {
			return nil, err
		}
		c.Set(shared, compiled, limit, result)
		return result, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.(*executor.SearchResult), false, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// Invalidate drops every cached result and returns how many were removed.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() Stats {
	s := Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Errors: c.errors.Load(),
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

// BuildKey hashes the compiled query and limit into a fixed-length key.
func BuildKey(compiled string, limit int) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s\x00limit=%d", compiled, limit)))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
