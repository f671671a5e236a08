package service

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/mkravets/text-search-server/internal/engine"
	"github.com/mkravets/text-search-server/pkg/config"
	pkgredis "github.com/mkravets/text-search-server/pkg/redis"
	"github.com/mkravets/text-search-server/pkg/resilience"
)

const cacheKeyPrefix = "search:"

// QueryCache memoizes search results in Redis. Concurrent misses on the same
// key are collapsed through singleflight, and a circuit breaker keeps a dead
// Redis from slowing the serving path.
type QueryCache struct {
	client  *pkgredis.Client
	cfg     config.RedisConfig
	group   singleflight.Group
	breaker *resilience.CircuitBreaker
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewQueryCache creates a QueryCache over the given Redis client.
func NewQueryCache(client *pkgredis.Client, cfg config.RedisConfig) *QueryCache {
	return &QueryCache{
		client:  client,
		cfg:     cfg,
		breaker: resilience.NewCircuitBreaker("query-cache", resilience.CircuitBreakerConfig{}),
		logger:  slog.Default().With("component", "query-cache"),
	}
}

// Get returns the cached results for the query/status pair, if present.
func (c *QueryCache) Get(ctx context.Context, query string, status engine.DocumentStatus) ([]engine.Document, bool) {
	key := c.buildKey(query, status)
	var data string
	err := c.breaker.Execute(func() error {
		var err error
		data, err = c.client.Get(ctx, key)
		if pkgredis.IsNilError(err) {
			// A miss is a healthy response; keep the breaker closed.
			data = ""
			return nil
		}
		return err
	})
	if err != nil {
		c.logger.Debug("cache get failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	if data == "" {
		c.misses.Add(1)
		return nil, false
	}
	var results []engine.Document
	if err := json.Unmarshal([]byte(data), &results); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return results, true
}

// Set stores results for the query/status pair with the configured TTL.
func (c *QueryCache) Set(ctx context.Context, query string, status engine.DocumentStatus, results []engine.Document) {
	key := c.buildKey(query, status)
	data, err := json.Marshal(results)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.client.Set(ctx, key, data, c.cfg.CacheTTL)
	})
	if err != nil {
		c.logger.Debug("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns cached results or computes and caches them. The bool
// reports whether the value came from the cache.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	query string,
	status engine.DocumentStatus,
	computeFn func() ([]engine.Document, error),
) ([]engine.Document, bool, error) {
	if results, ok := c.Get(ctx, query, status); ok {
		return results, true, nil
	}
	key := c.buildKey(query, status)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if results, ok := c.Get(ctx, query, status); ok {
			return results, nil
		}
		results, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, query, status, results)
		return results, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]engine.Document), false, nil
}

// Invalidate drops every cached search result. Called after index mutations.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.client.FlushByPattern(ctx, cacheKeyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

// Stats returns the hit and miss counts since startup.
func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// buildKey hashes the normalized query so arbitrary query bytes never reach
// Redis key space.
func (c *QueryCache) buildKey(query string, status engine.DocumentStatus) string {
	raw := fmt.Sprintf("%s:status=%s", normalizeQuery(query), status)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", cacheKeyPrefix, hash[:16])
}

// normalizeQuery canonicalizes term order so reorderings of the same terms
// share a cache entry. Plus and minus terms sort into separate groups.
func normalizeQuery(query string) string {
	var plus, minus []string
	for _, word := range strings.Fields(query) {
		if strings.HasPrefix(word, "-") {
			minus = append(minus, word)
		} else {
			plus = append(plus, word)
		}
	}
	sort.Strings(plus)
	sort.Strings(minus)
	return strings.Join(plus, " ") + "|" + strings.Join(minus, " ")
}
