// Package concurrent provides a striped map used as a shared accumulator by
// the parallel ranking pass. Keys are hashed onto a fixed number of shards,
// each guarded by its own mutex, so writers contend only when their keys
// land on the same shard.
package concurrent

import (
	"cmp"
	"hash/maphash"
	"slices"
	"sync"
)

// DefaultShardCount is the shard count used when none is given. A prime
// keeps the hash distribution even for clustered integer keys.
const DefaultShardCount = 101

type shard[K comparable, V any] struct {
	mu    sync.Mutex
	items map[K]V
}

// Map is a sharded key-value accumulator. Concurrent Update calls on keys
// owned by different shards proceed in parallel; calls on keys of the same
// shard serialize. An operation holds at most one shard lock at a time.
type Map[K cmp.Ordered, V any] struct {
	seed   maphash.Seed
	shards []shard[K, V]
}

// NewMap creates a Map with the given shard count. Non-positive counts fall
// back to DefaultShardCount.
func NewMap[K cmp.Ordered, V any](shardCount int) *Map[K, V] {
	if shardCount <= 0 {
		shardCount = DefaultShardCount
	}
	m := &Map[K, V]{
		seed:   maphash.MakeSeed(),
		shards: make([]shard[K, V], shardCount),
	}
	for i := range m.shards {
		m.shards[i].items = make(map[K]V)
	}
	return m
}

// Update grants fn exclusive access to the value slot for key, inserting the
// zero value first when the key is absent. The shard lock is held for the
// duration of fn.
func (m *Map[K, V]) Update(key K, fn func(value *V)) {
	s := &m.shards[m.shardFor(key)]
	s.mu.Lock()
	value := s.items[key]
	fn(&value)
	s.items[key] = value
	s.mu.Unlock()
}

// Get returns the value for key and whether it is present.
func (m *Map[K, V]) Get(key K) (V, bool) {
	s := &m.shards[m.shardFor(key)]
	s.mu.Lock()
	value, ok := s.items[key]
	s.mu.Unlock()
	return value, ok
}

// Len returns the total number of keys across all shards.
func (m *Map[K, V]) Len() int {
	n := 0
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		n += len(s.items)
		s.mu.Unlock()
	}
	return n
}

// BuildOrdered merges every shard into a single map and returns it together
// with its keys in ascending order. Callers are expected to finalize once,
// after all Update calls have completed.
func (m *Map[K, V]) BuildOrdered() ([]K, map[K]V) {
	merged := make(map[K]V)
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		for k, v := range s.items {
			merged[k] = v
		}
		s.mu.Unlock()
	}
	keys := make([]K, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, merged
}

func (m *Map[K, V]) shardFor(key K) int {
	return int(maphash.Comparable(m.seed, key) % uint64(len(m.shards)))
}
