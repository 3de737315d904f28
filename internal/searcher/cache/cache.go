// Package cache memoizes query responses in Redis. The index is frozen once
// built, so an entry stays valid for the life of the process; entries from
// an earlier process are flushed at startup. A circuit breaker skips Redis
// after repeated failures so searches fall back to direct computation.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/taiga-forestry/multithreaded-search/internal/searcher/query"
	"github.com/taiga-forestry/multithreaded-search/pkg/resilience"
)

const keyPrefix = "search:"

// Store is the key-value backend. *redis.Client satisfies it.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Key identifies a cached response.
type Key struct {
	Terms       []string
	Limit       int
	UsePageRank bool
}

type QueryCache struct {
	store   Store
	ttl     time.Duration
	isMiss  func(error) bool
	breaker *resilience.CircuitBreaker
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New returns a cache over store. isMiss reports whether a Get error means
// the key is absent.
func New(store Store, ttl time.Duration, isMiss func(error) bool) *QueryCache {
	return &QueryCache{
		store:   store,
		ttl:     ttl,
		isMiss:  isMiss,
		breaker: resilience.NewCircuitBreaker("query-cache", resilience.CircuitBreakerConfig{FailureThreshold: 5, ResetTimeout: 30 * time.Second}),
		logger:  slog.Default().With("component", "query-cache"),
	}
}

func (c *QueryCache) Get(ctx context.Context, key Key) (*query.Response, bool) {
	k := buildKey(key)
	var data string
	err := c.breaker.Execute(func() error {
		var err error
		data, err = c.store.Get(ctx, k)
		if err != nil && c.isMiss(err) {
			data = ""
			return nil
		}
		return err
	})
	if err != nil {
		c.logger.Warn("cache get failed", "key", k, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	if data == "" {
		c.misses.Add(1)
		return nil, false
	}
	var resp query.Response
	if err := json.Unmarshal([]byte(data), &resp); err != nil {
		c.logger.Error("cache unmarshal failed", "key", k, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "key", k)
	return &resp, true
}

func (c *QueryCache) Set(ctx context.Context, key Key, resp *query.Response) {
	k := buildKey(key)
	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", k, "error", err)
		return
	}
	if err := c.breaker.Execute(func() error { return c.store.Set(ctx, k, data, c.ttl) }); err != nil {
		c.logger.Warn("cache set failed", "key", k, "error", err)
	}
}

// GetOrCompute returns the cached response for key, or computes, stores and
// returns it. Concurrent misses on the same key compute once. The boolean
// reports a cache hit.
func (c *QueryCache) GetOrCompute(ctx context.Context, key Key, compute func() *query.Response) (*query.Response, bool) {
	if resp, ok := c.Get(ctx, key); ok {
		return resp, true
	}
	val, _, _ := c.group.Do(buildKey(key), func() (any, error) {
		resp := compute()
		c.Set(ctx, key, resp)
		return resp, nil
	})
	return val.(*query.Response), false
}

// Invalidate deletes every cached response.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// buildKey hashes the sorted terms with the limit and scoring mode. Term
// order does not affect the score, so it does not affect the key.
func buildKey(key Key) string {
	terms := append([]string(nil), key.Terms...)
	sort.Strings(terms)
	raw := fmt.Sprintf("%s|limit=%d|pagerank=%t", strings.Join(terms, ","), key.Limit, key.UsePageRank)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
