package cache

import (
	"context"
	"time"
)

// Cache defines the cache operations used by the migration pipeline.
// Implementations must treat a missing key as an empty value, not an error.
type Cache interface {
	BasicOps
	ScanOps
	PipelineOps

	// Ping verifies the cache connection is alive
	Ping(ctx context.Context) error

	// Close closes the cache connection
	Close() error
}

// BasicOps defines basic key-value operations
type BasicOps interface {
	// Get retrieves the value for the given key, "" when absent
	Get(ctx context.Context, key string) (string, error)

	// MGet fetches several keys in one round trip, preserving order
	MGet(ctx context.Context, keys ...string) ([]Value, error)

	// Del deletes one or more keys
	Del(ctx context.Context, keys ...string) error
}

// Value is one MGet slot.
type Value struct {
	Data  string
	Found bool
}

// ScanOps defines cursor based key iteration
type ScanOps interface {
	// Scan iterates keys matching a glob pattern; count is a per-round-trip hint
	Scan(ctx context.Context, match string, count int64) ScanIterator
}

// ScanIterator defines the interface for scanning keys
type ScanIterator interface {
	Next(ctx context.Context) bool
	Val() string
	Err() error
}

// PipelineOps defines transactional batching of commands
type PipelineOps interface {
	// TxPipeline executes the queued commands atomically in MULTI/EXEC
	TxPipeline(ctx context.Context, fn func(pipe Pipeliner) error) error
}

// Pipeliner defines the interface for pipeline operations
type Pipeliner interface {
	Set(key string, value interface{}, ttl time.Duration) error
	Del(keys ...string) error
}
