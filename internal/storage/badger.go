package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"
)

// BadgerBackend implements Backend using Badger v3.
//
// Keys are enumerated in lexicographic byte order; overwriting a key never
// changes its position.
type BadgerBackend struct {
	db     *badger.DB
	cfg    BadgerConfig
	logger *slog.Logger

	lastGCTime atomic.Int64 // Unix milliseconds

	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// OpenBadger opens (or creates) a Badger database in dir.
func OpenBadger(dir string, syncWrites bool, cfg BadgerConfig, logger *slog.Logger) (*BadgerBackend, error) {
	if dir == "" {
		return nil, fmt.Errorf("badger: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.GCThreshold <= 0 || cfg.GCThreshold >= 1 {
		cfg.GCThreshold = DefaultBadgerConfig().GCThreshold
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = &badgerLogger{logger: logger}
	opts.SyncWrites = syncWrites
	if cfg.CacheSize > 0 {
		opts.BlockCacheSize = cfg.CacheSize
	}
	if cfg.ValueLogFileSize > 0 {
		opts.ValueLogFileSize = cfg.ValueLogFileSize
	}
	if cfg.NumMemtables > 0 {
		opts.NumMemtables = cfg.NumMemtables
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	b := &BadgerBackend{
		db:     db,
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	if cfg.GCInterval > 0 {
		go b.gcLoop(cfg.GCInterval)
	} else {
		close(b.doneCh)
	}

	logger.Info("badger backend opened",
		"dir", dir,
		"sync_writes", syncWrites,
		"gc_interval", cfg.GCInterval)

	return b, nil
}

// Get retrieves a value by key.
func (b *BadgerBackend) Get(ctx context.Context, key []byte) ([]byte, error) {
	var value []byte

	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrKeyNotFound
			}
			return err
		}

		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, mapBadgerErr(err)
	}

	return value, nil
}

// Set stores a key-value pair.
func (b *BadgerBackend) Set(ctx context.Context, key, value []byte) error {
	return mapBadgerErr(b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	}))
}

// Delete removes a key, failing with ErrKeyNotFound if it is absent.
func (b *BadgerBackend) Delete(ctx context.Context, key []byte) error {
	return mapBadgerErr(b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrKeyNotFound
			}
			return err
		}
		return txn.Delete(key)
	}))
}

// Scan iterates over all keys inside one read transaction.
func (b *BadgerBackend) Scan(ctx context.Context, keysOnly bool, fn func(key, value []byte) bool) error {
	return mapBadgerErr(b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = !keysOnly
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			item := it.Item()
			var value []byte
			if !keysOnly {
				v, err := item.ValueCopy(nil)
				if err != nil {
					return err
				}
				value = v
			}

			if !fn(item.Key(), value) {
				break
			}
		}

		return nil
	}))
}

// GC runs value-log garbage collection until Badger reports nothing left to
// rewrite.
func (b *BadgerBackend) GC(ctx context.Context) error {
	startTime := time.Now()

	runs := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := b.db.RunValueLogGC(b.cfg.GCThreshold)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
				break
			}
			return fmt.Errorf("gc: %w", err)
		}
		runs++
	}

	b.lastGCTime.Store(time.Now().UnixMilli())

	b.logger.Debug("gc completed",
		"rewrites", runs,
		"elapsed", time.Since(startTime))

	return nil
}

// Stats returns storage statistics.
func (b *BadgerBackend) Stats(ctx context.Context) (*Stats, error) {
	var keys uint64
	if err := b.Scan(ctx, true, func(_, _ []byte) bool {
		keys++
		return true
	}); err != nil {
		return nil, err
	}

	lsm, vlog := b.db.Size()

	return &Stats{
		Engine:       EngineBadger,
		Keys:         keys,
		TotalSize:    uint64(lsm + vlog),
		LSMSize:      uint64(lsm),
		ValueLogSize: uint64(vlog),
		LastGCTime:   b.lastGCTime.Load(),
	}, nil
}

// Ping checks that the database is still open.
func (b *BadgerBackend) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.db.IsClosed() {
		return ErrClosed
	}
	return nil
}

// Sync flushes the value log and memtables to disk.
func (b *BadgerBackend) Sync() error {
	return mapBadgerErr(b.db.Sync())
}

// Close stops the GC loop, syncs and closes the database.
func (b *BadgerBackend) Close() error {
	b.stopOnce.Do(func() { close(b.stopCh) })
	<-b.doneCh

	if err := b.db.Sync(); err != nil {
		b.logger.Warn("badger sync before close failed", "error", err)
	}
	if err := b.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}

	b.logger.Info("badger backend closed")
	return nil
}

// RegisterMetrics exposes Badger size gauges on reg.
func (b *BadgerBackend) RegisterMetrics(reg prometheus.Registerer) error {
	lsmSize := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "crudkv",
		Subsystem: "badger",
		Name:      "lsm_size_bytes",
		Help:      "Badger LSM tree size in bytes",
	}, func() float64 {
		lsm, _ := b.db.Size()
		return float64(lsm)
	})

	vlogSize := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "crudkv",
		Subsystem: "badger",
		Name:      "value_log_size_bytes",
		Help:      "Badger value log size in bytes",
	}, func() float64 {
		_, vlog := b.db.Size()
		return float64(vlog)
	})

	lastGC := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "crudkv",
		Subsystem: "badger",
		Name:      "last_gc_timestamp_seconds",
		Help:      "Unix timestamp of the last Badger GC run",
	}, func() float64 {
		return float64(b.lastGCTime.Load()) / 1000.0
	})

	for _, c := range []prometheus.Collector{lsmSize, vlogSize, lastGC} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// gcLoop runs periodic garbage collection.
func (b *BadgerBackend) gcLoop(interval time.Duration) {
	defer close(b.doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			if err := b.GC(ctx); err != nil {
				b.logger.Error("auto gc failed", "error", err)
			}
			cancel()

		case <-b.stopCh:
			return
		}
	}
}

func mapBadgerErr(err error) error {
	if errors.Is(err, badger.ErrDBClosed) {
		return ErrClosed
	}
	return err
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...), "component", "badger")
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...), "component", "badger")
}

// Infof is demoted to debug; Badger is chatty at info.
func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...), "component", "badger")
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...), "component", "badger")
}
