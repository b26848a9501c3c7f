package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/crudkv-go/pkg/cmap"
)

// DefaultLockStripes is the default number of per-key write lock stripes.
const DefaultLockStripes = 64

// Observer receives one call per engine operation. result is "ok",
// "not_found" or "error".
type Observer interface {
	ObserveStorage(op, result string, elapsed time.Duration)
}

// Engine maps opaque identifiers to opaque byte values on top of a Backend.
//
// Put and Delete on the same identifier are serialized through a striped
// lock; operations on different identifiers only share a stripe on hash
// collision. Reads never take the stripe lock and rely on the backend's
// transactional isolation. Keys and Entries read from a single snapshot.
//
// An Engine is safe for concurrent use. After Close every operation fails
// with ErrInitialization.
type Engine struct {
	cfg      Config
	backend  Backend
	locks    *cmap.Stripes
	logger   *slog.Logger
	observer Observer

	backupSecret []byte

	// mu guards the open/closed lifecycle: operations hold it shared,
	// Close holds it exclusively.
	mu     sync.RWMutex
	closed bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithObserver registers an operation observer (metrics).
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// Open establishes or attaches to durable storage at cfg.Dir, creating the
// directory if it does not exist. Any failure is an ErrInitialization.
func Open(cfg Config, opts ...Option) (*Engine, error) {
	if cfg.Engine == "" {
		cfg.Engine = EngineBadger
	}
	e := newEngine(cfg, opts...)

	if cfg.Dir == "" {
		return nil, newError("open", "", ErrInitialization, fmt.Errorf("backing location is required"))
	}
	if err := os.MkdirAll(cfg.Dir, 0750); err != nil {
		return nil, newError("open", "", ErrInitialization, err)
	}

	var (
		backend Backend
		err     error
	)
	switch cfg.Engine {
	case EngineBadger:
		backend, err = OpenBadger(cfg.Dir, cfg.SyncWrites, cfg.Badger, e.logger)
	case EngineBolt:
		backend, err = OpenBolt(cfg.Dir, cfg.SyncWrites, e.logger)
	case EngineMemory:
		backend = NewMemory()
	default:
		err = fmt.Errorf("unknown engine %q", cfg.Engine)
	}
	if err != nil {
		return nil, newError("open", "", ErrInitialization, err)
	}

	e.backend = backend
	e.logger.Info("storage engine opened",
		"engine", cfg.Engine,
		"dir", cfg.Dir,
		"lock_stripes", e.locks.Len())

	return e, nil
}

// NewWithBackend wraps an already open backend.
func NewWithBackend(backend Backend, opts ...Option) *Engine {
	e := newEngine(Config{LockStripes: DefaultLockStripes}, opts...)
	e.backend = backend
	return e
}

func newEngine(cfg Config, opts ...Option) *Engine {
	stripes := cfg.LockStripes
	if stripes <= 0 {
		stripes = DefaultLockStripes
	}
	e := &Engine{
		cfg:    cfg,
		locks:  cmap.NewStripes(stripes),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Put inserts or overwrites the value for id. With sync writes enabled the
// value is on disk when Put returns.
func (e *Engine) Put(ctx context.Context, id string, value []byte) error {
	start := time.Now()
	err := e.put(ctx, id, value)
	e.observe("put", err, start)
	return err
}

func (e *Engine) put(ctx context.Context, id string, value []byte) error {
	if id == "" {
		return newError("put", id, ErrWrite, ErrInvalidID)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return newError("put", id, ErrInitialization, ErrClosed)
	}

	unlock := e.locks.Lock(id)
	defer unlock()

	return classify("put", id, true, e.backend.Set(ctx, []byte(id), value))
}

// Get returns the bytes last written for id, or ErrNotFound.
func (e *Engine) Get(ctx context.Context, id string) ([]byte, error) {
	start := time.Now()
	value, err := e.get(ctx, id)
	e.observe("get", err, start)
	return value, err
}

func (e *Engine) get(ctx context.Context, id string) ([]byte, error) {
	if id == "" {
		return nil, newError("get", id, ErrNotFound, nil)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, newError("get", id, ErrInitialization, ErrClosed)
	}

	value, err := e.backend.Get(ctx, []byte(id))
	if err != nil {
		return nil, classify("get", id, false, err)
	}
	return value, nil
}

// Has reports whether id is currently stored.
func (e *Engine) Has(ctx context.Context, id string) (bool, error) {
	_, err := e.get(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case KindOf(err) == ErrNotFound:
		return false, nil
	default:
		return false, err
	}
}

// Delete removes id. Deleting an absent identifier fails with ErrNotFound,
// so a second Delete of the same id always fails.
func (e *Engine) Delete(ctx context.Context, id string) error {
	start := time.Now()
	err := e.delete(ctx, id)
	e.observe("delete", err, start)
	return err
}

func (e *Engine) delete(ctx context.Context, id string) error {
	if id == "" {
		return newError("delete", id, ErrNotFound, nil)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return newError("delete", id, ErrInitialization, ErrClosed)
	}

	unlock := e.locks.Lock(id)
	defer unlock()

	return classify("delete", id, true, e.backend.Delete(ctx, []byte(id)))
}

// Keys returns every stored identifier, read from one snapshot. Writes that
// commit while Keys runs are not included. The result is never nil.
func (e *Engine) Keys(ctx context.Context) ([]string, error) {
	start := time.Now()
	keys := []string{}
	err := e.scan(ctx, "keys", true, func(key, _ []byte) bool {
		keys = append(keys, string(key))
		return true
	})
	e.observe("keys", err, start)
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// Entries returns every record, read from one snapshot.
func (e *Engine) Entries(ctx context.Context) (map[string][]byte, error) {
	start := time.Now()
	entries := make(map[string][]byte)
	err := e.scan(ctx, "entries", false, func(key, value []byte) bool {
		entries[string(key)] = cloneBytes(value)
		return true
	})
	e.observe("entries", err, start)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (e *Engine) scan(ctx context.Context, op string, keysOnly bool, fn func(key, value []byte) bool) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return newError(op, "", ErrInitialization, ErrClosed)
	}
	return classify(op, "", false, e.backend.Scan(ctx, keysOnly, fn))
}

// GC asks the backend to reclaim space.
func (e *Engine) GC(ctx context.Context) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return newError("gc", "", ErrInitialization, ErrClosed)
	}
	return classify("gc", "", false, e.backend.GC(ctx))
}

// Stats returns backend statistics.
func (e *Engine) Stats(ctx context.Context) (*Stats, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, newError("stats", "", ErrInitialization, ErrClosed)
	}
	stats, err := e.backend.Stats(ctx)
	if err != nil {
		return nil, classify("stats", "", false, err)
	}
	return stats, nil
}

// Ping reports whether the engine can serve requests without touching
// every record, unlike Stats.
func (e *Engine) Ping(ctx context.Context) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return newError("ping", "", ErrInitialization, ErrClosed)
	}
	if err := e.backend.Ping(ctx); err != nil {
		return classify("ping", "", false, err)
	}
	return nil
}

// Sync flushes buffered writes. Only needed when sync writes are disabled.
func (e *Engine) Sync() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return newError("sync", "", ErrInitialization, ErrClosed)
	}
	return classify("sync", "", true, e.backend.Sync())
}

// RegisterMetrics registers backend-specific collectors, if any.
func (e *Engine) RegisterMetrics(reg prometheus.Registerer) error {
	if r, ok := e.backend.(interface {
		RegisterMetrics(prometheus.Registerer) error
	}); ok {
		return r.RegisterMetrics(reg)
	}
	return nil
}

// Closed reports whether Close has been called.
func (e *Engine) Closed() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.closed
}

// Close flushes and releases the backend. It waits for in-flight operations
// and is safe to call more than once.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	if err := e.backend.Close(); err != nil {
		return newError("close", "", ErrFault, err)
	}
	e.logger.Info("storage engine closed")
	return nil
}

func (e *Engine) observe(op string, err error, start time.Time) {
	if e.observer == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
		if KindOf(err) == ErrNotFound {
			result = "not_found"
		}
	}
	e.observer.ObserveStorage(op, result, time.Since(start))
}
