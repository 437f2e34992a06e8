package catalog

import "errors"

// Sentinel error kinds for this package.
var (
	ErrNoRecords = errors.New("catalog contains no valid records")
	ErrNotFound  = errors.New("satellite not in catalog")
)
