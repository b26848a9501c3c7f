package cmap

import "sync"

// Stripes is a fixed set of mutexes indexed by key hash. Two keys share a
// mutex only when their hashes collide on the stripe mask.
type Stripes struct {
	locks []sync.Mutex
	mask  uint64
}

// NewStripes creates count stripes, rounded up to a power of 2.
// Non-positive values use DefaultShardCount.
func NewStripes(count int) *Stripes {
	count = roundShards(count)
	return &Stripes{
		locks: make([]sync.Mutex, count),
		mask:  uint64(count - 1),
	}
}

// Lock acquires the stripe for key and returns its unlock function.
func (s *Stripes) Lock(key string) (unlock func()) {
	mu := &s.locks[hashKey(key)&s.mask]
	mu.Lock()
	return mu.Unlock
}

// Len returns the number of stripes.
func (s *Stripes) Len() int {
	return len(s.locks)
}
