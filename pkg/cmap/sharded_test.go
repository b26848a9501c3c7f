package cmap

import (
	"fmt"
	"sync"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		input    int
		expected int
	}{
		{0, DefaultShardCount},
		{-1, DefaultShardCount},
		{3, 4},
		{1, 1},
		{8, 8},
		{33, 64},
		{maxShards + 1, maxShards},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("shards=%d", tt.input), func(t *testing.T) {
			m := New[int](tt.input)
			if len(m.shards) != tt.expected {
				t.Errorf("New(%d) shard count = %d, want %d", tt.input, len(m.shards), tt.expected)
			}
		})
	}
}

func TestSetAndGet(t *testing.T) {
	m := New[int](DefaultShardCount)

	m.Set("key1", 100)
	m.Set("key2", 200)

	if val, ok := m.Get("key1"); !ok || val != 100 {
		t.Errorf("Get(key1) = (%d, %v), want (100, true)", val, ok)
	}
	if val, ok := m.Get("key2"); !ok || val != 200 {
		t.Errorf("Get(key2) = (%d, %v), want (200, true)", val, ok)
	}
	if val, ok := m.Get("nonexistent"); ok {
		t.Errorf("Get(nonexistent) = (%d, %v), want (0, false)", val, ok)
	}
}

func TestOverwrite(t *testing.T) {
	m := New[int](DefaultShardCount)

	m.Set("key1", 100)
	m.Set("key1", 200)

	if val, ok := m.Get("key1"); !ok || val != 200 {
		t.Errorf("Get(key1) = (%d, %v), want (200, true)", val, ok)
	}
	if n := len(m.Snapshot()); n != 1 {
		t.Errorf("len(Snapshot()) = %d, want 1", n)
	}
}

func TestPop(t *testing.T) {
	m := New[int](DefaultShardCount)
	m.Set("key1", 100)

	val, ok := m.Pop("key1")
	if !ok || val != 100 {
		t.Errorf("Pop(key1) = (%d, %v), want (100, true)", val, ok)
	}
	if _, ok := m.Get("key1"); ok {
		t.Error("key1 should not exist after Pop")
	}

	if _, ok := m.Pop("key1"); ok {
		t.Error("second Pop(key1) should report absent")
	}
}

func TestClear(t *testing.T) {
	m := New[int](4)

	for i := 0; i < 100; i++ {
		m.Set(fmt.Sprintf("k%d", i), i)
	}
	if n := len(m.Snapshot()); n != 100 {
		t.Errorf("len(Snapshot()) = %d, want 100", n)
	}

	m.Clear()
	if n := len(m.Snapshot()); n != 0 {
		t.Errorf("len(Snapshot()) after Clear() = %d, want 0", n)
	}
}

func TestRange_EarlyStop(t *testing.T) {
	m := New[int](4)
	for i := 0; i < 10; i++ {
		m.Set(fmt.Sprintf("k%d", i), i)
	}

	visited := 0
	m.Range(func(string, int) bool {
		visited++
		return visited < 3
	})
	if visited != 3 {
		t.Errorf("visited = %d, want 3", visited)
	}
}

func TestSnapshot_IsCopy(t *testing.T) {
	m := New[int](4)
	m.Set("a", 1)
	m.Set("b", 2)

	snap := m.Snapshot()
	m.Set("c", 3)
	m.Pop("a")

	if len(snap) != 2 || snap["a"] != 1 || snap["b"] != 2 {
		t.Errorf("snapshot changed after writes: %v", snap)
	}
}

func TestSnapshot_ConcurrentWriters(t *testing.T) {
	m := New[int](8)
	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for j := 0; ; j++ {
				select {
				case <-stop:
					return
				default:
				}
				key := fmt.Sprintf("w%d-%d", base, j%50)
				m.Set(key, j)
				m.Pop(key)
			}
		}(i)
	}

	for i := 0; i < 100; i++ {
		_ = m.Snapshot()
	}
	close(stop)
	wg.Wait()
}

func TestConcurrentAccess(t *testing.T) {
	m := New[int](DefaultShardCount)
	var wg sync.WaitGroup
	numGoroutines := 50
	numOps := 500

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for j := 0; j < numOps; j++ {
				key := fmt.Sprintf("%d-%d", base, j)
				m.Set(key, j)
				m.Get(key)
			}
		}(i)
	}
	wg.Wait()

	if n := len(m.Snapshot()); n != numGoroutines*numOps {
		t.Errorf("len(Snapshot()) = %d, want %d", n, numGoroutines*numOps)
	}
}
