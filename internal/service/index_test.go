package service

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/mkravets/text-search-server/internal/engine"
	pkgerrors "github.com/mkravets/text-search-server/pkg/errors"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	srv, err := engine.NewFromText("and with")
	if err != nil {
		t.Fatalf("creating server: %v", err)
	}
	return NewIndex(srv, 10, nil)
}

func TestUpsertReplacesDocument(t *testing.T) {
	idx := newTestIndex(t)

	if err := idx.Upsert(1, "curly cat", engine.StatusActual, []int{5}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := idx.Upsert(1, "fluffy dog", engine.StatusActual, []int{3}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if got := idx.DocumentCount(); got != 1 {
		t.Fatalf("DocumentCount() = %d, want 1", got)
	}
	results, err := idx.Search("curly cat", engine.ByStatus(engine.StatusActual))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("old text still matches after replacement: %v", results)
	}
	results, err = idx.Search("fluffy dog", engine.ByStatus(engine.StatusActual))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].ID != 1 {
		t.Errorf("new text results = %v, want single document 1", results)
	}
}

func TestUpsertRejectionRemovesPredecessor(t *testing.T) {
	idx := newTestIndex(t)

	if err := idx.Upsert(1, "curly cat", engine.StatusActual, nil); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	err := idx.Upsert(1, "bad\x12word", engine.StatusActual, nil)
	if !errors.Is(err, pkgerrors.ErrInvalidDocumentWord) {
		t.Fatalf("error = %v, want ErrInvalidDocumentWord", err)
	}
	if got := idx.DocumentCount(); got != 0 {
		t.Errorf("DocumentCount() = %d, want 0 (predecessor stays removed)", got)
	}
}

func TestSearchRecordsNoResultWindow(t *testing.T) {
	idx := newTestIndex(t)
	if err := idx.Upsert(1, "curly cat", engine.StatusActual, nil); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if _, err := idx.Search("starling", engine.ByStatus(engine.StatusActual)); err != nil {
		t.Fatalf("search: %v", err)
	}
	if _, err := idx.Search("curly", engine.ByStatus(engine.StatusActual)); err != nil {
		t.Fatalf("search: %v", err)
	}
	if got := idx.NoResultRequests(); got != 1 {
		t.Errorf("NoResultRequests() = %d, want 1", got)
	}

	// Failed searches must not enter the window.
	if _, err := idx.Search("bad --query", engine.ByStatus(engine.StatusActual)); err == nil {
		t.Fatal("expected error for invalid query")
	}
	if got := idx.NoResultRequests(); got != 1 {
		t.Errorf("after failed search NoResultRequests() = %d, want 1", got)
	}
}

func TestRemove(t *testing.T) {
	idx := newTestIndex(t)
	if err := idx.Upsert(1, "curly cat", engine.StatusActual, nil); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	idx.Remove(1)
	idx.Remove(1)
	idx.Remove(99)
	if got := idx.DocumentCount(); got != 0 {
		t.Errorf("DocumentCount() = %d, want 0", got)
	}
}

func TestBatchSearchOrder(t *testing.T) {
	idx := newTestIndex(t)
	if err := idx.Upsert(1, "curly cat", engine.StatusActual, nil); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := idx.Upsert(2, "fluffy dog", engine.StatusActual, nil); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	results, err := idx.BatchSearch([]string{"cat", "dog", "parrot"})
	if err != nil {
		t.Fatalf("batch search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d result groups, want 3", len(results))
	}
	if len(results[0]) != 1 || results[0][0].ID != 1 {
		t.Errorf("results[0] = %v, want document 1", results[0])
	}
	if len(results[1]) != 1 || results[1][0].ID != 2 {
		t.Errorf("results[1] = %v, want document 2", results[1])
	}
	if len(results[2]) != 0 {
		t.Errorf("results[2] = %v, want empty", results[2])
	}
}

func TestRemoveDuplicatesThroughIndex(t *testing.T) {
	idx := newTestIndex(t)
	for id, text := range map[int]string{
		1: "curly cat",
		2: "curly cat",
		3: "cat curly curly",
	} {
		if err := idx.Upsert(id, text, engine.StatusActual, nil); err != nil {
			t.Fatalf("upsert %d: %v", id, err)
		}
	}

	removed := idx.RemoveDuplicates()
	if !slices.Equal(removed, []int{2, 3}) {
		t.Errorf("removed = %v, want [2 3]", removed)
	}
	if got := idx.DocumentIDs(); !slices.Equal(got, []int{1}) {
		t.Errorf("remaining ids = %v, want [1]", got)
	}
}

func TestConcurrentSearchAndUpsert(t *testing.T) {
	idx := newTestIndex(t)
	for id := 0; id < 20; id++ {
		if err := idx.Upsert(id, fmt.Sprintf("curly cat number%d", id), engine.StatusActual, []int{id % 10}); err != nil {
			t.Fatalf("seeding %d: %v", id, err)
		}
	}

	const workers = 8
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				switch i % 4 {
				case 0:
					id := 20 + w*1000 + i
					if err := idx.Upsert(id, "fluffy dog", engine.StatusActual, nil); err != nil {
						t.Errorf("upsert %d: %v", id, err)
					}
				case 1:
					idx.Remove(20 + w*1000 + i - 1)
				default:
					if _, err := idx.Search("curly cat", engine.ByStatus(engine.StatusActual)); err != nil {
						t.Errorf("search: %v", err)
					}
				}
			}
		}(w)
	}
	wg.Wait()

	results, err := idx.Search("curly", engine.ByStatus(engine.StatusActual))
	if err != nil {
		t.Fatalf("final search: %v", err)
	}
	if len(results) != engine.MaxResultCount {
		t.Errorf("final search returned %d results, want %d", len(results), engine.MaxResultCount)
	}
}
