package api

import (
	"context"
	"net/http"

	"github.com/okian/orbitwatch/internal/adapters/repository"
)

// defaultAnomalyLimit applies when GET /anomalies has no limit.
const defaultAnomalyLimit = 10

// AnomalyDependencies defines the interface for board reads.
type AnomalyDependencies interface {
	TopN(ctx context.Context, n int) ([]repository.Entry, error)
	Rank(ctx context.Context, noradID int) (repository.Entry, error)
}

// AnomalyHandler handles board requests.
type AnomalyHandler struct {
	deps     AnomalyDependencies
	maxLimit int
}

// NewAnomalyHandler creates a new anomaly handler.
func NewAnomalyHandler(deps AnomalyDependencies, maxLimit int) *AnomalyHandler {
	return &AnomalyHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleGetAnomalies handles GET /anomalies?limit=N requests.
func (h *AnomalyHandler) HandleGetAnomalies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	n, err := limitFromQuery(r, defaultAnomalyLimit, h.maxLimit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	entries, err := h.deps.TopN(r.Context(), n)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleGetRank handles GET /anomalies/{norad_id} requests.
func (h *AnomalyHandler) HandleGetRank(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id, err := noradIDFromPath(r, "/anomalies/")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	entry, err := h.deps.Rank(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
