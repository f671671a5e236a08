package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mkravets/text-search-server/internal/engine"
	"github.com/mkravets/text-search-server/internal/service"
	"github.com/mkravets/text-search-server/pkg/config"
	pkgredis "github.com/mkravets/text-search-server/pkg/redis"
)

func testRedisConfig() config.RedisConfig {
	return config.RedisConfig{
		Addr:     envOrDefault("TEST_REDIS_ADDR", "localhost:6379"),
		DB:       envOrDefaultInt("TEST_REDIS_DB", 15),
		PoolSize: 5,
		CacheTTL: 30 * time.Second,
	}
}

// skipIfNoRedis skips the test when Redis is unavailable.
func skipIfNoRedis(t *testing.T) *pkgredis.Client {
	t.Helper()
	client, err := pkgredis.NewClient(testRedisConfig())
	if err != nil {
		t.Skipf("skipping integration test: redis unavailable: %v", err)
	}
	t.Cleanup(func() {
		client.FlushByPattern(context.Background(), "search:*")
		client.Close()
	})
	return client
}

func TestQueryCacheRoundtrip(t *testing.T) {
	client := skipIfNoRedis(t)
	cache := service.NewQueryCache(client, testRedisConfig())
	ctx := context.Background()

	docs := []engine.Document{
		{ID: 1, Relevance: 0.866434, Rating: 5},
		{ID: 2, Relevance: 0.173287, Rating: -1},
	}
	cache.Set(ctx, "curly cat", engine.StatusActual, docs)

	got, ok := cache.Get(ctx, "curly cat", engine.StatusActual)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if len(got) != 2 || got[0] != docs[0] || got[1] != docs[1] {
		t.Errorf("cached = %v, want %v", got, docs)
	}

	// Reordered terms share the entry.
	if _, ok := cache.Get(ctx, "cat curly", engine.StatusActual); !ok {
		t.Error("reordered query missed the cache")
	}
	// A different status does not.
	if _, ok := cache.Get(ctx, "curly cat", engine.StatusBanned); ok {
		t.Error("different status hit the cache")
	}
}

func TestQueryCacheGetOrCompute(t *testing.T) {
	client := skipIfNoRedis(t)
	cache := service.NewQueryCache(client, testRedisConfig())
	ctx := context.Background()

	calls := 0
	compute := func() ([]engine.Document, error) {
		calls++
		return []engine.Document{{ID: 7, Relevance: 0.5, Rating: 3}}, nil
	}

	results, cached, err := cache.GetOrCompute(ctx, "fluffy dog", engine.StatusActual, compute)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if cached || calls != 1 || len(results) != 1 {
		t.Fatalf("first call: cached=%v calls=%d results=%v", cached, calls, results)
	}

	results, cached, err = cache.GetOrCompute(ctx, "fluffy dog", engine.StatusActual, compute)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if !cached || calls != 1 {
		t.Errorf("second call: cached=%v calls=%d, want hit without recompute", cached, calls)
	}
	if len(results) != 1 || results[0].ID != 7 {
		t.Errorf("second call results = %v", results)
	}

	// Compute errors pass through and are not cached.
	wantErr := errors.New("engine failure")
	_, _, err = cache.GetOrCompute(ctx, "broken query", engine.StatusActual, func() ([]engine.Document, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("error = %v, want %v", err, wantErr)
	}
}

func TestQueryCacheInvalidate(t *testing.T) {
	client := skipIfNoRedis(t)
	cache := service.NewQueryCache(client, testRedisConfig())
	ctx := context.Background()

	cache.Set(ctx, "striped hamster", engine.StatusActual, []engine.Document{{ID: 3}})
	if _, ok := cache.Get(ctx, "striped hamster", engine.StatusActual); !ok {
		t.Fatal("expected cache hit before invalidation")
	}
	if err := cache.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok := cache.Get(ctx, "striped hamster", engine.StatusActual); ok {
		t.Error("cache hit after invalidation")
	}
}
