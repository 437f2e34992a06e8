// Package dedupe defines the interface for idempotency tracking.
package dedupe

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// Deduper records seen keys to ensure at-most-once processing.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord removes a key, allowing it to be retried. Used when a key was
	// recorded but the work could not be queued.
	Unrecord(ctx context.Context, key string)

	// Size returns the number of live keys.
	Size() int64
}

// cacheDeduper is a Deduper whose keys expire after a TTL.
type cacheDeduper struct {
	ttl     time.Duration
	cleanup time.Duration
	seen    *cache.Cache
}

// NewInMemoryDeduper creates a new TTL deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &cacheDeduper{
		ttl:     time.Hour,
		cleanup: 10 * time.Minute,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = cache.New(d.ttl, d.cleanup)
	return d
}

// SeenAndRecord relies on cache.Add failing for a live key.
func (d *cacheDeduper) SeenAndRecord(ctx context.Context, key string) bool {
	return d.seen.Add(key, struct{}{}, cache.DefaultExpiration) != nil
}

func (d *cacheDeduper) Unrecord(ctx context.Context, key string) {
	d.seen.Delete(key)
}

func (d *cacheDeduper) Size() int64 {
	return int64(d.seen.ItemCount())
}
