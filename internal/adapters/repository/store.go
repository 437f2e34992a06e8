// Package repository holds the anomaly board: the latest score of every
// scanned satellite, ranked from most to least anomalous.
package repository

import (
	"context"

	"github.com/okian/orbitwatch/internal/domain/anomaly"
)

// Entry represents a board row.
type Entry struct {
	Rank  int           `json:"rank"`
	Score anomaly.Score `json:"score"`
}

// Store provides read/write access to the board.
type Store interface {
	// Upsert records the latest score for a satellite, replacing any
	// previous one regardless of its risk.
	// Returns ErrStaleScore if the score came from a model other than the
	// one named in the last Reset.
	Upsert(ctx context.Context, s anomaly.Score) error

	// Rank returns the current position of a satellite.
	// Returns ErrNotFound if the satellite has not been scored.
	Rank(ctx context.Context, noradID int) (Entry, error)

	// TopN returns the top-N entries ordered by risk desc.
	TopN(ctx context.Context, n int) ([]Entry, error)

	// Count returns the number of satellites on the board.
	Count(ctx context.Context) int

	// Reset empties the board after a retrain and pins it to the new
	// model version.
	Reset(ctx context.Context, modelVersion string)
}
