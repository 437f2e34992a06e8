package repository

import "errors"

// Sentinel kinds for board errors.
var (
	ErrNotFound     = errors.New("satellite not on board")
	ErrInvalidLimit = errors.New("invalid board limit")
	ErrInvalidScore = errors.New("invalid risk score")
	ErrStaleScore   = errors.New("score from a replaced model")
)
