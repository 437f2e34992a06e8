package dedupe

import "time"

// Option applies a configuration option to the deduper.
type Option func(*cacheDeduper)

// WithTTL sets how long a recorded key is remembered.
func WithTTL(ttl time.Duration) Option {
	return func(d *cacheDeduper) {
		if ttl > 0 {
			d.ttl = ttl
		}
	}
}

// WithCleanupInterval sets how often expired keys are purged.
func WithCleanupInterval(interval time.Duration) Option {
	return func(d *cacheDeduper) {
		if interval > 0 {
			d.cleanup = interval
		}
	}
}
