package confloader

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func writeWatched(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile(%s) error = %v", path, err)
	}
}

func newTestWatcher(t *testing.T) *Watcher {
	t.Helper()
	w, err := NewWatcher()
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	t.Cleanup(func() { w.Stop() })
	return w
}

func TestWatcher_WatchedMatchesAbsolutePath(t *testing.T) {
	dir := t.TempDir()
	writeWatched(t, filepath.Join(dir, "server.yaml"), "log:\n  level: info\n")
	t.Chdir(dir)

	w := newTestWatcher(t)
	if err := w.Watch("server.yaml"); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"absolute", filepath.Join(dir, "server.yaml"), true},
		{"relative", "server.yaml", true},
		{"dot relative", "./server.yaml", true},
		{"unclean", filepath.Join(dir, "sub", "..", "server.yaml"), true},
		{"sibling", filepath.Join(dir, "other.yaml"), false},
		{"same name elsewhere", filepath.Join(t.TempDir(), "server.yaml"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.watched(tt.path); got != tt.want {
				t.Errorf("watched(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestWatcher_Watch_MissingDir(t *testing.T) {
	w := newTestWatcher(t)
	if err := w.Watch(filepath.Join(t.TempDir(), "absent", "server.yaml")); err == nil {
		t.Error("Watch() should fail when the directory does not exist")
	}
}

func TestWatcher_ReportsChangedFile(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "server.yaml")
	writeWatched(t, configFile, "log:\n  level: info\n")

	w := newTestWatcher(t)
	if err := w.Watch(configFile); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	changed := make(chan string, 10)
	w.OnChange(func(path string) {
		select {
		case changed <- path:
		default:
		}
	})
	w.StartAsync()

	writeWatched(t, configFile, "log:\n  level: debug\n")

	select {
	case path := <-changed:
		if path != configFile {
			t.Errorf("callback path = %q, want %q", path, configFile)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("callback was not triggered")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "server.yaml")
	writeWatched(t, configFile, "log:\n  level: info\n")

	w := newTestWatcher(t)
	if err := w.Watch(configFile); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	changed := make(chan string, 10)
	w.OnChange(func(path string) {
		select {
		case changed <- path:
		default:
		}
	})
	w.StartAsync()

	writeWatched(t, filepath.Join(dir, "server.yaml.swp"), "x")
	writeWatched(t, filepath.Join(dir, "other.toml"), "x")

	select {
	case path := <-changed:
		t.Errorf("callback fired for unrelated file %s", path)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_Stop(t *testing.T) {
	w, err := NewWatcher()
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	returned := make(chan struct{})
	go func() {
		w.Start()
		close(returned)
	}()

	if err := w.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}

	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return after Stop()")
	}
}

func TestWatcher_CallbackMayRegisterCallback(t *testing.T) {
	w := newTestWatcher(t)

	var first, second atomic.Int32
	w.OnChange(func(string) {
		if first.Add(1) == 1 {
			// Runs outside the lock; registering here must not block.
			w.OnChange(func(string) { second.Add(1) })
		}
	})

	done := make(chan struct{})
	go func() {
		w.notifyCallbacks("server.yaml")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("notifyCallbacks blocked on a registering callback")
	}

	if second.Load() != 0 {
		t.Error("callback registered during a notification ran in that notification")
	}

	w.notifyCallbacks("server.yaml")
	if first.Load() != 2 || second.Load() != 1 {
		t.Errorf("calls = %d/%d, want 2/1", first.Load(), second.Load())
	}
}

func TestWatcher_NotifyWhileRegistering(t *testing.T) {
	w := newTestWatcher(t)

	var calls atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			w.OnChange(func(string) { calls.Add(1) })
		}()
		go func() {
			defer wg.Done()
			w.notifyCallbacks("server.yaml")
		}()
	}
	wg.Wait()

	before := calls.Load()
	w.notifyCallbacks("server.yaml")
	if got := calls.Load() - before; got != 50 {
		t.Errorf("final notification reached %d callbacks, want 50", got)
	}
}
