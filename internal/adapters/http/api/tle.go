package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/okian/orbitwatch/internal/adapters/catalog"
	"github.com/okian/orbitwatch/internal/domain/orbit"
)

// maxTLEBody bounds a POST /tle request body.
const maxTLEBody = 8 << 20

// CatalogDependencies defines the interface for catalog reads and writes.
type CatalogDependencies interface {
	Records(ctx context.Context, q catalog.Query) ([]catalog.Entry, error)
	AddRecords(ctx context.Context, records []orbit.Record) (int, error)
}

// CatalogHandler handles element set listings and submissions.
type CatalogHandler struct {
	deps     CatalogDependencies
	maxLimit int
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(deps CatalogDependencies, maxLimit int) *CatalogHandler {
	return &CatalogHandler{deps: deps, maxLimit: maxLimit}
}

type storeResponse struct {
	Message string `json:"message"`
	Stored  int    `json:"stored"`
}

// HandleTLE serves GET and POST /tle.
func (h *CatalogHandler) HandleTLE(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.HandleGetTLE(w, r)
	case http.MethodPost:
		h.HandlePostTLE(w, r)
	default:
		http.NotFound(w, r)
	}
}

// HandleGetTLE handles GET /tle?norad_id=&limit= requests.
func (h *CatalogHandler) HandleGetTLE(w http.ResponseWriter, r *http.Request) {
	var q catalog.Query
	if raw := r.URL.Query().Get("norad_id"); raw != "" {
		id, err := parseNoradID(raw)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		q.NoradID = id
	}
	limit, err := limitFromQuery(r, catalog.DefaultLimit, h.maxLimit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	q.Limit = limit

	entries, err := h.deps.Records(r.Context(), q)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandlePostTLE handles POST /tle with one record object or an array of
// them. Records without a catalog number or either line are skipped.
func (h *CatalogHandler) HandlePostTLE(w http.ResponseWriter, r *http.Request) {
	records, err := decodeRecords(http.MaxBytesReader(w, r.Body, maxTLEBody))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	n, err := h.deps.AddRecords(r.Context(), records)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, storeResponse{
		Message: "Stored " + strconv.Itoa(n) + " TLE records",
		Stored:  n,
	})
}

func decodeRecords(body io.Reader) ([]orbit.Record, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decode body: %w", ErrBadRequest, err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var records []orbit.Record
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("%w: decode records: %w", ErrBadRequest, err)
		}
		return records, nil
	}
	var rec orbit.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("%w: decode record: %w", ErrBadRequest, err)
	}
	return []orbit.Record{rec}, nil
}
