// Package cache is the Redis-backed query cache. Identical queries
// (after lexical normalisation) share one cache entry; concurrent misses
// for the same key collapse into a single computation via singleflight,
// and a circuit breaker keeps a sick Redis from slowing every search.
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

	"github.com/quotelab/quotesearch/internal/engine"
	"github.com/quotelab/quotesearch/pkg/resilience"
)

const keyPrefix = "search:"

// Store is the subset of the Redis client the cache needs.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// NilChecker reports key-not-found errors from the store.
type NilChecker func(error) bool

// QueryCache caches SearchResult pages keyed by the normalised query and
// its pagination options.
type QueryCache struct {
	store   Store
	isNil   NilChecker
	ttl     time.Duration
	breaker *resilience.CircuitBreaker
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// Options tunes cache construction.
type Options struct {
	TTL     time.Duration
	Breaker resilience.CircuitBreakerConfig
}

// New creates a QueryCache over the given store. isNil distinguishes
// "key absent" from real store failures; pass redis.IsNilError.
func New(store Store, isNil NilChecker, opts Options) *QueryCache {
	if opts.TTL <= 0 {
		opts.TTL = time.Minute
	}
	return &QueryCache{
		store:   store,
		isNil:   isNil,
		ttl:     opts.TTL,
		breaker: resilience.NewCircuitBreaker("query-cache", opts.Breaker),
		logger:  slog.Default().With("component", "query-cache"),
	}
}

// Key identifies one cacheable search: the raw query plus everything
// that changes the answer.
type Key struct {
	Query      string
	Combinator string
	Threshold  float64
	Limit      int
	Offset     int
}

// Get returns the cached result for key, if present. Store failures
// count as misses; they never fail the search.
func (c *QueryCache) Get(ctx context.Context, key Key) (*engine.SearchResult, bool) {
	k := c.buildKey(key)
	var data string
	err := c.breaker.Execute(func() error {
		var getErr error
		data, getErr = c.store.Get(ctx, k)
		if getErr != nil && c.isNil(getErr) {
			data = ""
			return nil
		}
		return getErr
	})
	if err != nil {
		c.misses.Add(1)
		if err != context.Canceled {
			c.logger.Debug("cache get failed", "key", k, "error", err)
		}
		return nil, false
	}
	if data == "" {
		c.misses.Add(1)
		return nil, false
	}
	var result engine.SearchResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", k, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "query", key.Query, "key", k)
	return &result, true
}

// Set stores a result under key with the configured TTL.
func (c *QueryCache) Set(ctx context.Context, key Key, result *engine.SearchResult) {
	k := c.buildKey(key)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", k, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.store.Set(ctx, k, data, c.ttl)
	})
	if err != nil {
		c.logger.Debug("cache set failed", "key", k, "error", err)
	}
}

// GetOrCompute returns the cached result or computes and stores it.
// Concurrent callers with the same key share one computation. The bool
// reports whether the answer came from cache.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	key Key,
	computeFn func() (*engine.SearchResult, error),
) (*engine.SearchResult, bool, error) {
	if result, ok := c.Get(ctx, key); ok {
		return result, true, nil
	}
	k := c.buildKey(key)
	val, err, _ := c.group.Do(k, func() (interface{}, error) {
		if result, ok := c.Get(ctx, key); ok {
			return result, nil
		}
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*engine.SearchResult), false, nil
}

// Invalidate drops every cached search result. Called after any index
// mutation, since a changed corpus invalidates all rankings.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	var deleted int64
	err := c.breaker.Execute(func() error {
		var flushErr error
		deleted, flushErr = c.store.FlushByPattern(ctx, keyPrefix+"*")
		return flushErr
	})
	if err != nil {
		return fmt.Errorf("invalidating query cache: %w", err)
	}
	c.logger.Info("query cache invalidated", "keys_deleted", deleted)
	return nil
}

// Stats returns the hit and miss counters.
func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// buildKey hashes the normalised query and options into a fixed-width
// Redis key.
func (c *QueryCache) buildKey(key Key) string {
	raw := fmt.Sprintf("%s|%s|t=%g|l=%d|o=%d",
		normalizeQuery(key.Query),
		strings.ToUpper(key.Combinator),
		key.Threshold,
		key.Limit,
		key.Offset,
	)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

// normalizeQuery lowercases and sorts the query words so "Pony ride"
// and "ride pony" share an entry. This is lexical only; the engine's
// own analysis decides what actually matches.
func normalizeQuery(query string) string {
	words := strings.Fields(strings.ToLower(query))
	sort.Strings(words)
	return strings.Join(words, ",")
}
