package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
	bolterrors "go.etcd.io/bbolt/errors"
)

// BoltFileName is the database file created inside the backing directory.
const BoltFileName = "crudkv.db"

var recordsBucket = []byte("records")

// BoltBackend implements Backend using bbolt (embedded B+ tree).
//
// Every committed write transaction is fsynced unless sync writes are off.
// Keys are enumerated in lexicographic byte order.
type BoltBackend struct {
	db     *bolt.DB
	logger *slog.Logger
}

// OpenBolt opens or creates dir/crudkv.db.
func OpenBolt(dir string, syncWrites bool, logger *slog.Logger) (*BoltBackend, error) {
	if dir == "" {
		return nil, fmt.Errorf("bbolt: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	path := filepath.Join(dir, BoltFileName)
	db, err := bolt.Open(path, 0600, &bolt.Options{
		// Fail instead of blocking when another process holds the file lock.
		Timeout: time.Second,
		NoSync:  !syncWrites,
	})
	if err != nil {
		return nil, fmt.Errorf("bbolt: open %s: %w", path, err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(recordsBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("bbolt: create bucket: %w", err)
	}

	logger.Info("bbolt backend opened", "path", path, "sync_writes", syncWrites)

	return &BoltBackend{db: db, logger: logger}, nil
}

// Get retrieves a value by key.
func (b *BoltBackend) Get(ctx context.Context, key []byte) ([]byte, error) {
	var val []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		v, ok := lookup(tx.Bucket(recordsBucket), key)
		if !ok {
			return ErrKeyNotFound
		}
		val = cloneBytes(v)
		return nil
	})
	if err != nil {
		return nil, mapBoltErr(err)
	}
	return val, nil
}

// Set stores a key-value pair.
func (b *BoltBackend) Set(ctx context.Context, key, value []byte) error {
	return mapBoltErr(b.db.Update(func(tx *bolt.Tx) error {
		if value == nil {
			value = []byte{}
		}
		return tx.Bucket(recordsBucket).Put(key, value)
	}))
}

// Delete removes a key, failing with ErrKeyNotFound if it is absent.
func (b *BoltBackend) Delete(ctx context.Context, key []byte) error {
	return mapBoltErr(b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(recordsBucket)
		if _, ok := lookup(bucket, key); !ok {
			return ErrKeyNotFound
		}
		return bucket.Delete(key)
	}))
}

// Scan iterates over all keys inside one read transaction.
func (b *BoltBackend) Scan(ctx context.Context, keysOnly bool, fn func(key, value []byte) bool) error {
	return mapBoltErr(b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(recordsBucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if keysOnly {
				v = nil
			}
			if !fn(k, v) {
				break
			}
		}
		return nil
	}))
}

// GC is a no-op: bbolt reuses freed pages in place.
func (b *BoltBackend) GC(ctx context.Context) error {
	return nil
}

// Stats returns storage statistics.
func (b *BoltBackend) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{Engine: EngineBolt}
	err := b.db.View(func(tx *bolt.Tx) error {
		stats.Keys = uint64(tx.Bucket(recordsBucket).Stats().KeyN)
		stats.TotalSize = uint64(tx.Size())
		return nil
	})
	if err != nil {
		return nil, mapBoltErr(err)
	}
	return stats, nil
}

// Ping opens and releases an empty read transaction.
func (b *BoltBackend) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapBoltErr(b.db.View(func(*bolt.Tx) error { return nil }))
}

// Sync fsyncs the database file.
func (b *BoltBackend) Sync() error {
	return mapBoltErr(b.db.Sync())
}

// Close syncs and closes the database.
func (b *BoltBackend) Close() error {
	if err := b.db.Sync(); err != nil {
		b.logger.Warn("bbolt sync before close failed", "error", err)
	}
	if err := b.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	b.logger.Info("bbolt backend closed")
	return nil
}

// lookup distinguishes a missing key from a zero-length value, which
// Bucket.Get may both report as nil.
func lookup(b *bolt.Bucket, key []byte) ([]byte, bool) {
	k, v := b.Cursor().Seek(key)
	if k == nil || !bytes.Equal(k, key) {
		return nil, false
	}
	return v, true
}

func mapBoltErr(err error) error {
	if errors.Is(err, bolterrors.ErrDatabaseNotOpen) {
		return ErrClosed
	}
	return err
}
