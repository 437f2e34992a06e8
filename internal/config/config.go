// Package config defines service configuration structures and loading hooks.
package config

import (
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// CatalogPath points at the TLE catalog (.json, 2LE or 3LE text).
	CatalogPath string `koanf:"catalog_path"`

	// Seed makes training reproducible.
	Seed int64 `koanf:"seed"`

	// BatchSize is the training mini-batch size.
	BatchSize int `koanf:"batch_size"`

	// VerifyChecksums rejects element sets with bad mod-10 checksums.
	VerifyChecksums bool `koanf:"verify_checksums"`

	// WorkerCount sets the number of scan workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the in-memory scan queue.
	QueueSize int `koanf:"queue_size"`

	// ScoreCacheTTL bounds how long scores are memoised.
	ScoreCacheTTL time.Duration `koanf:"score_cache_ttl"`

	// DedupeTTL bounds how long a scan of one satellite under one model is
	// remembered.
	DedupeTTL time.Duration `koanf:"dedupe_ttl"`

	// MaxAnomalyLimit caps GET /anomalies?limit.
	MaxAnomalyLimit int `koanf:"max_anomaly_limit"`

	// TrainOnStart trains a model as soon as the catalog is loaded.
	TrainOnStart bool `koanf:"train_on_start"`

	// MetricsNamespace and MetricsSubsystem prefix every exported metric.
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`

	// MetricsRefreshInterval is how often system and service gauges are
	// refreshed.
	MetricsRefreshInterval time.Duration `koanf:"metrics_refresh_interval"`

	// MetricsLatencyBuckets overrides the scoring, worker and HTTP latency
	// histogram buckets. Empty keeps the Prometheus defaults.
	MetricsLatencyBuckets []float64 `koanf:"metrics_latency_buckets"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		Addr:            ":9080",
		CatalogPath:     "",
		Seed:            42,
		BatchSize:       32,
		VerifyChecksums: false,
		WorkerCount:     runtime.NumCPU(),
		QueueSize:       10_000,
		ScoreCacheTTL:   10 * time.Minute,
		DedupeTTL:       time.Hour,
		MaxAnomalyLimit: 100,
		TrainOnStart:    true,

		MetricsNamespace:       "orbitwatch",
		MetricsSubsystem:       "anomaly",
		MetricsRefreshInterval: 10 * time.Second,
	}
}
