package orbit

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrExtraction reports an element set that could not be decoded into
	// valid orbital elements. Every decode failure wraps it.
	ErrExtraction = errors.New("feature extraction failed")
	ErrChecksum   = errors.New("tle checksum mismatch")
)
