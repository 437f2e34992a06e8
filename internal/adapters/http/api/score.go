package api

import (
	"context"
	"net/http"

	"github.com/okian/orbitwatch/internal/domain/anomaly"
)

// ScoreDependencies defines the interface for scoring a single satellite.
type ScoreDependencies interface {
	Score(ctx context.Context, noradID int) (anomaly.Score, error)
}

// ScoreHandler handles score requests.
type ScoreHandler struct {
	deps ScoreDependencies
}

// NewScoreHandler creates a new score handler.
func NewScoreHandler(deps ScoreDependencies) *ScoreHandler {
	return &ScoreHandler{deps: deps}
}

// HandleGetScore handles GET /score/{norad_id} requests.
func (h *ScoreHandler) HandleGetScore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id, err := noradIDFromPath(r, "/score/")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	score, err := h.deps.Score(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, score)
}
