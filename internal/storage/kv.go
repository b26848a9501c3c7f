package storage

import (
	"context"
	"time"
)

// Backend is the embedded key-value medium underneath Engine.
//
// Implementations must be safe for concurrent use. Every mutating call is a
// single atomic transaction: readers observe either the previous or the new
// value, never a partial one.
type Backend interface {
	// Get returns a copy of the value for key, or ErrKeyNotFound.
	Get(ctx context.Context, key []byte) ([]byte, error)

	// Set stores key/value, replacing any previous value.
	Set(ctx context.Context, key, value []byte) error

	// Delete removes key. It returns ErrKeyNotFound if key is absent; the
	// existence check and the removal happen in one transaction.
	Delete(ctx context.Context, key []byte) error

	// Scan visits every key in one consistent read snapshot, in the backend's
	// natural order. When keysOnly is set, value is nil. fn returns false to
	// stop the scan. key and value are only valid during the callback.
	Scan(ctx context.Context, keysOnly bool, fn func(key, value []byte) bool) error

	// GC reclaims space. Backends without garbage collection return nil.
	GC(ctx context.Context) error

	// Stats reports approximate storage statistics. It may walk every key.
	Stats(ctx context.Context) (*Stats, error)

	// Ping reports whether the backend can serve requests. It must not
	// depend on the number of stored records.
	Ping(ctx context.Context) error

	// Sync flushes buffered writes to durable storage.
	Sync() error

	// Close flushes and releases the backing resource.
	Close() error
}

// Stats contains storage statistics.
type Stats struct {
	// Engine is the backend name.
	Engine string `json:"engine"`

	// Keys is the number of stored records.
	Keys uint64 `json:"keys"`

	// TotalSize is the total disk usage in bytes.
	TotalSize uint64 `json:"total_size"`

	// LSMSize is the LSM tree size (badger only).
	LSMSize uint64 `json:"lsm_size,omitempty"`

	// ValueLogSize is the value log size (badger only).
	ValueLogSize uint64 `json:"value_log_size,omitempty"`

	// LastGCTime is the last GC run timestamp (Unix milliseconds).
	LastGCTime int64 `json:"last_gc_time,omitempty"`
}

// Backend names accepted by Config.Engine.
const (
	EngineBadger = "badger"
	EngineBolt   = "bbolt"
	EngineMemory = "memory"
)

// Config configures Open.
type Config struct {
	// Engine selects the backend ("badger", "bbolt", "memory").
	// Default: "badger"
	Engine string

	// Dir is the backing location. It is created if absent.
	Dir string

	// SyncWrites makes every Put/Delete durable before it returns.
	// When false, writes are flushed by Close and by the backend's own
	// background sync.
	// Default: true
	SyncWrites bool

	// LockStripes is the number of per-key write lock stripes.
	// Default: 64
	LockStripes int

	// Badger-specific tuning.
	Badger BadgerConfig
}

// BadgerConfig contains Badger-specific tuning parameters.
type BadgerConfig struct {
	// GCInterval is the interval between automatic value-log GC runs.
	// Zero disables the background loop.
	// Default: 10m
	GCInterval time.Duration

	// GCThreshold is the GC discard ratio threshold (0.0-1.0).
	// Default: 0.5
	GCThreshold float64

	// CacheSize is the block cache size in bytes.
	// Default: 64MB
	CacheSize int64

	// ValueLogFileSize is the max value log file size in bytes.
	// Default: 256MB
	ValueLogFileSize int64

	// NumMemtables is the number of memtables.
	// Default: 2
	NumMemtables int
}

// DefaultConfig returns the default configuration for dir.
func DefaultConfig(dir string) Config {
	return Config{
		Engine:      EngineBadger,
		Dir:         dir,
		SyncWrites:  true,
		LockStripes: DefaultLockStripes,
		Badger:      DefaultBadgerConfig(),
	}
}

// DefaultBadgerConfig returns the default Badger configuration.
func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		GCInterval:       10 * time.Minute,
		GCThreshold:      0.5,
		CacheSize:        64 << 20,  // 64MB
		ValueLogFileSize: 256 << 20, // 256MB
		NumMemtables:     2,
	}
}
