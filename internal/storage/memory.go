package storage

import (
	"context"
	"sort"
	"sync/atomic"

	"github.com/yndnr/crudkv-go/pkg/cmap"
)

// MemoryBackend keeps records in a sharded in-memory map. It is not durable:
// everything is lost on Close. Intended for tests and throwaway deployments.
//
// Values are copied on the way in and out, so a stored slice is never
// mutated after Set returns. Scan enumerates keys in lexicographic order.
type MemoryBackend struct {
	records *cmap.Map[[]byte]
	closed  atomic.Bool
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *MemoryBackend {
	return &MemoryBackend{records: cmap.New[[]byte](cmap.DefaultShardCount)}
}

// Get retrieves a value by key.
func (m *MemoryBackend) Get(ctx context.Context, key []byte) ([]byte, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}
	v, ok := m.records.Get(string(key))
	if !ok {
		return nil, ErrKeyNotFound
	}
	return cloneBytes(v), nil
}

// Set stores a copy of value.
func (m *MemoryBackend) Set(ctx context.Context, key, value []byte) error {
	if m.closed.Load() {
		return ErrClosed
	}
	m.records.Set(string(key), cloneBytes(value))
	return nil
}

// Delete removes a key, failing with ErrKeyNotFound if it is absent.
func (m *MemoryBackend) Delete(ctx context.Context, key []byte) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if _, ok := m.records.Pop(string(key)); !ok {
		return ErrKeyNotFound
	}
	return nil
}

// Scan iterates a consistent snapshot in key order.
func (m *MemoryBackend) Scan(ctx context.Context, keysOnly bool, fn func(key, value []byte) bool) error {
	if m.closed.Load() {
		return ErrClosed
	}

	snap := m.records.Snapshot()
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		var value []byte
		if !keysOnly {
			value = snap[k]
		}
		if !fn([]byte(k), value) {
			break
		}
	}
	return nil
}

// GC is a no-op.
func (m *MemoryBackend) GC(ctx context.Context) error {
	return nil
}

// Stats returns the record count and the summed value size.
func (m *MemoryBackend) Stats(ctx context.Context) (*Stats, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}
	stats := &Stats{Engine: EngineMemory}
	m.records.Range(func(k string, v []byte) bool {
		stats.Keys++
		stats.TotalSize += uint64(len(k) + len(v))
		return true
	})
	return stats, nil
}

// Ping fails only after Close.
func (m *MemoryBackend) Ping(ctx context.Context) error {
	if m.closed.Load() {
		return ErrClosed
	}
	return ctx.Err()
}

// Sync is a no-op.
func (m *MemoryBackend) Sync() error {
	return nil
}

// Close drops all records.
func (m *MemoryBackend) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	m.records.Clear()
	return nil
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
