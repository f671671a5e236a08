// Package integration contains tests that exercise real external
// dependencies (PostgreSQL, Redis). Each test skips itself when its
// dependency is unavailable.
//
// Run with:
//
//	go test -v ./test/integration/...
package integration

import (
	"context"
	"os"
	"slices"
	"strconv"
	"testing"
	"time"

	"github.com/mkravets/text-search-server/internal/docstore"
	"github.com/mkravets/text-search-server/internal/engine"
	"github.com/mkravets/text-search-server/pkg/config"
	"github.com/mkravets/text-search-server/pkg/postgres"
)

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func testPostgresConfig() config.PostgresConfig {
	return config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            envOrDefaultInt("TEST_POSTGRES_PORT", 5432),
		Database:        envOrDefault("TEST_POSTGRES_DB", "textsearch_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "textsearch"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// skipIfNoPostgres skips the test when PostgreSQL is unavailable.
func skipIfNoPostgres(t *testing.T) *postgres.Client {
	t.Helper()
	db, err := postgres.New(testPostgresConfig())
	if err != nil {
		t.Skipf("skipping integration test: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDocstoreRoundtrip(t *testing.T) {
	db := skipIfNoPostgres(t)
	store := docstore.New(db)
	ctx := context.Background()

	base := int(time.Now().Unix() % 1000000)
	rec := docstore.Record{
		ID:      base,
		Text:    "curly cat with fancy collar",
		Status:  engine.StatusActual,
		Ratings: []int{7, 2, 7},
	}
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	t.Cleanup(func() { store.Delete(ctx, rec.ID) })

	loaded, err := store.Load(ctx, rec.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded == nil {
		t.Fatal("load returned nil for a saved document")
	}
	if loaded.Text != rec.Text || loaded.Status != rec.Status || !slices.Equal(loaded.Ratings, rec.Ratings) {
		t.Errorf("loaded = %+v, want %+v", loaded, rec)
	}

	// Save again with new content; the row must be replaced, not duplicated.
	rec.Text = "fluffy dog"
	rec.Status = engine.StatusBanned
	rec.Ratings = []int{1}
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("second save: %v", err)
	}
	loaded, err = store.Load(ctx, rec.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.Text != "fluffy dog" || loaded.Status != engine.StatusBanned {
		t.Errorf("reloaded = %+v, want updated row", loaded)
	}
}

func TestDocstoreDelete(t *testing.T) {
	db := skipIfNoPostgres(t)
	store := docstore.New(db)
	ctx := context.Background()

	id := int(time.Now().Unix()%1000000) + 1
	if err := store.Save(ctx, docstore.Record{ID: id, Text: "striped hamster", Status: engine.StatusActual}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	loaded, err := store.Load(ctx, id)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded != nil {
		t.Errorf("load after delete = %+v, want nil", loaded)
	}

	// Deleting an absent id is a no-op.
	if err := store.Delete(ctx, id); err != nil {
		t.Errorf("second delete: %v", err)
	}
}

func TestDocstoreLoadAllOrdering(t *testing.T) {
	db := skipIfNoPostgres(t)
	store := docstore.New(db)
	ctx := context.Background()

	base := int(time.Now().Unix()%1000000) + 100
	ids := []int{base + 2, base, base + 1}
	for _, id := range ids {
		if err := store.Save(ctx, docstore.Record{ID: id, Text: "sweet sparrow", Status: engine.StatusActual}); err != nil {
			t.Fatalf("save %d: %v", id, err)
		}
		t.Cleanup(func() { store.Delete(ctx, id) })
	}

	records, err := store.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load all: %v", err)
	}
	var got []int
	for _, rec := range records {
		if rec.ID >= base && rec.ID <= base+2 {
			got = append(got, rec.ID)
		}
	}
	if !slices.Equal(got, []int{base, base + 1, base + 2}) {
		t.Errorf("ids = %v, want ascending [%d %d %d]", got, base, base+1, base+2)
	}
}
