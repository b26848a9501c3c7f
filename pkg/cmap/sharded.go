package cmap

import (
	"sync"

	"github.com/spaolacci/murmur3"
)

// DefaultShardCount is the default number of shards.
const DefaultShardCount = 16

// Map is a concurrent-safe sharded map keyed by string.
type Map[V any] struct {
	shards    []*shard[V]
	shardMask uint64
}

type shard[V any] struct {
	mu    sync.RWMutex
	items map[string]V
}

// New creates a map with shardCount shards, rounded up to a power of 2.
// Non-positive values use DefaultShardCount.
func New[V any](shardCount int) *Map[V] {
	shardCount = roundShards(shardCount)

	m := &Map[V]{
		shards:    make([]*shard[V], shardCount),
		shardMask: uint64(shardCount - 1),
	}
	for i := range m.shards {
		m.shards[i] = &shard[V]{items: make(map[string]V)}
	}
	return m
}

func (m *Map[V]) shardFor(key string) *shard[V] {
	return m.shards[hashKey(key)&m.shardMask]
}

// Get retrieves a value by key.
func (m *Map[V]) Get(key string) (V, bool) {
	s := m.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok
}

// Set stores a key-value pair.
func (m *Map[V]) Set(key string, value V) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
}

// Pop removes a key and returns its previous value.
// The boolean is false if the key was absent.
func (m *Map[V]) Pop(key string) (V, bool) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[key]
	if ok {
		delete(s.items, key)
	}
	return v, ok
}

// Range iterates shard by shard; fn returns false to stop.
// The view is not consistent across shards.
func (m *Map[V]) Range(fn func(key string, value V) bool) {
	for _, s := range m.shards {
		s.mu.RLock()
		for k, v := range s.items {
			if !fn(k, v) {
				s.mu.RUnlock()
				return
			}
		}
		s.mu.RUnlock()
	}
}

// Snapshot returns a copy of every item taken while all shards are
// read-locked, so no write is half visible.
func (m *Map[V]) Snapshot() map[string]V {
	for _, s := range m.shards {
		s.mu.RLock()
	}
	defer func() {
		for _, s := range m.shards {
			s.mu.RUnlock()
		}
	}()

	total := 0
	for _, s := range m.shards {
		total += len(s.items)
	}

	out := make(map[string]V, total)
	for _, s := range m.shards {
		for k, v := range s.items {
			out[k] = v
		}
	}
	return out
}

// Clear removes all items.
func (m *Map[V]) Clear() {
	for _, s := range m.shards {
		s.mu.Lock()
		s.items = make(map[string]V)
		s.mu.Unlock()
	}
}

func hashKey(key string) uint64 {
	return murmur3.Sum64([]byte(key))
}

// maxShards caps rounding so a huge count cannot overflow.
const maxShards = 1 << 20

func roundShards(n int) int {
	if n <= 0 {
		return DefaultShardCount
	}
	if n > maxShards {
		return maxShards
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
