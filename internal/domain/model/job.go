// Package model contains domain models passed between layers.
package model

import (
	"strconv"
	"time"
)

// ScanJob asks a worker to score one catalog record against a specific
// model version.
type ScanJob struct {
	JobID        string    // unique id, for logs
	NoradID      int       // satellite to score
	ModelVersion string    // model the job was queued for
	QueuedAt     time.Time // enqueue time, for latency
}

// DedupeKey identifies the job for per-model-version deduplication.
func (j ScanJob) DedupeKey() string {
	return j.ModelVersion + "/" + strconv.Itoa(j.NoradID)
}
