package concurrent

import (
	"slices"
	"sync"
	"testing"
)

func TestUpdateAndGet(t *testing.T) {
	m := NewMap[int, float64](8)

	m.Update(7, func(v *float64) { *v += 1.5 })
	m.Update(7, func(v *float64) { *v += 2.5 })

	got, ok := m.Get(7)
	if !ok {
		t.Fatal("Get(7) reported key absent")
	}
	if got != 4.0 {
		t.Errorf("Get(7) = %v, want 4.0", got)
	}
	if _, ok := m.Get(8); ok {
		t.Error("Get(8) reported a key that was never inserted")
	}
}

func TestNonPositiveShardCountFallsBack(t *testing.T) {
	for _, count := range []int{0, -3} {
		m := NewMap[int, int](count)
		if len(m.shards) != DefaultShardCount {
			t.Errorf("NewMap(%d) created %d shards, want %d", count, len(m.shards), DefaultShardCount)
		}
	}
}

func TestConcurrentUpdates(t *testing.T) {
	const (
		workers    = 16
		increments = 1000
		keys       = 37
	)
	m := NewMap[int, int](DefaultShardCount)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < increments; i++ {
				m.Update(i%keys, func(v *int) { *v++ })
			}
		}()
	}
	wg.Wait()

	if m.Len() != keys {
		t.Fatalf("Len() = %d, want %d", m.Len(), keys)
	}
	total := 0
	_, merged := m.BuildOrdered()
	for _, v := range merged {
		total += v
	}
	if total != workers*increments {
		t.Errorf("summed increments = %d, want %d", total, workers*increments)
	}
}

func TestBuildOrdered(t *testing.T) {
	m := NewMap[int, string](5)
	for _, k := range []int{42, 7, 19, 3, 100} {
		m.Update(k, func(v *string) { *v = "x" })
	}

	keys, merged := m.BuildOrdered()
	want := []int{3, 7, 19, 42, 100}
	if !slices.Equal(keys, want) {
		t.Errorf("keys = %v, want %v", keys, want)
	}
	if len(merged) != len(want) {
		t.Errorf("merged holds %d entries, want %d", len(merged), len(want))
	}
	for _, k := range want {
		if merged[k] != "x" {
			t.Errorf("merged[%d] = %q, want %q", k, merged[k], "x")
		}
	}
}

func TestBuildOrderedEmpty(t *testing.T) {
	m := NewMap[string, int](3)
	keys, merged := m.BuildOrdered()
	if len(keys) != 0 || len(merged) != 0 {
		t.Errorf("empty map produced keys=%v merged=%v", keys, merged)
	}
}
