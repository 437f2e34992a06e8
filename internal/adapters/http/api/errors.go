package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrNoradID    = errors.New("invalid norad id")
	ErrLimit      = errors.New("invalid limit")
	ErrNoTLEs     = errors.New("no valid TLEs found")
)
