// Package cmap provides a sharded concurrent map with string keys and a
// striped lock set sharing the same hash.
//
// Sharding spreads lock contention across independent RWMutex-protected
// maps, so operations on different keys rarely block one another:
//
//	m := cmap.New[[]byte](32)
//	m.Set("a", []byte("hello"))
//	v, ok := m.Get("a")
//
// Range visits shards one at a time and may miss concurrent changes.
// Snapshot locks every shard for the duration of the copy and therefore
// returns a consistent view.
package cmap
