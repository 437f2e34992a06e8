package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// noradIDFromPath extracts the id segment after prefix.
func noradIDFromPath(r *http.Request, prefix string) (int, error) {
	path := strings.TrimPrefix(r.URL.Path, prefix)
	if path == "" || strings.Contains(path, "/") {
		return 0, fmt.Errorf("%w: %w", ErrBadRequest, ErrNoradID)
	}
	return parseNoradID(path)
}

func parseNoradID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: %w %q", ErrBadRequest, ErrNoradID, s)
	}
	return id, nil
}

// limitFromQuery reads ?limit=, falling back to def when absent and
// clamping to maxLimit.
func limitFromQuery(r *http.Request, def, maxLimit int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return min(def, maxLimit), nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %w %q", ErrBadRequest, ErrLimit, raw)
	}
	return min(n, maxLimit), nil
}
