package shutdown

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"syscall"
	"testing"
	"time"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func waitAsync(h *Handler) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- h.Wait()
	}()
	return errCh
}

func recv(t *testing.T, errCh <-chan error) error {
	t.Helper()
	select {
	case err := <-errCh:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Wait() did not complete in time")
		return nil
	}
}

func TestNewHandler(t *testing.T) {
	h := NewHandler(5*time.Second, nil)
	if h.timeout != 5*time.Second {
		t.Errorf("timeout = %v, want 5s", h.timeout)
	}
	if h.logger == nil {
		t.Error("logger should default to slog.Default()")
	}
}

func TestHandler_Wait_Signal(t *testing.T) {
	h := NewHandler(5*time.Second, discard)

	var order []int
	var mu sync.Mutex
	for i := 1; i <= 3; i++ {
		i := i
		h.OnShutdown("hook", func(ctx context.Context) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		})
	}

	errCh := waitAsync(h)
	time.Sleep(50 * time.Millisecond)
	if err := syscall.Kill(syscall.Getpid(), syscall.SIGINT); err != nil {
		t.Fatalf("Kill() error = %v", err)
	}

	if err := recv(t, errCh); err != nil {
		t.Errorf("Wait() returned error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 3 || order[0] != 3 || order[1] != 2 || order[2] != 1 {
		t.Errorf("hooks called in wrong order: %v, want [3 2 1]", order)
	}

	select {
	case <-h.Done():
	default:
		t.Error("Done channel should be closed after Wait completes")
	}
}

func TestHandler_Trigger(t *testing.T) {
	h := NewHandler(time.Second, discard)

	called := false
	h.OnShutdown("storage", func(ctx context.Context) error {
		called = true
		return nil
	})

	errCh := waitAsync(h)
	h.Trigger("listener failed")
	h.Trigger("second call is ignored")

	if err := recv(t, errCh); err != nil {
		t.Errorf("Wait() error = %v", err)
	}
	if !called {
		t.Error("hook was not called")
	}
}

func TestHandler_HookErrors(t *testing.T) {
	h := NewHandler(time.Second, discard)

	errA := errors.New("a failed")
	errB := errors.New("b failed")
	ranLast := false

	h.OnShutdown("last", func(ctx context.Context) error {
		ranLast = true
		return nil
	})
	h.OnShutdown("b", func(ctx context.Context) error { return errB })
	h.OnShutdown("a", func(ctx context.Context) error { return errA })

	errCh := waitAsync(h)
	h.Trigger("test")
	err := recv(t, errCh)

	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("Wait() error = %v, want both hook errors", err)
	}
	if !ranLast {
		t.Error("a failing hook must not stop later hooks")
	}
}

func TestHandler_Timeout(t *testing.T) {
	h := NewHandler(50*time.Millisecond, discard)

	h.OnShutdown("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	errCh := waitAsync(h)
	h.Trigger("test")

	if err := recv(t, errCh); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want deadline exceeded", err)
	}
}

func TestHandler_ConcurrentOnShutdown(t *testing.T) {
	h := NewHandler(time.Second, discard)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.OnShutdown("noop", func(ctx context.Context) error { return nil })
		}()
	}
	wg.Wait()

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.hooks) != 100 {
		t.Errorf("hooks = %d, want 100", len(h.hooks))
	}
}
