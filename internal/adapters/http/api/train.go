package api

import (
	"context"
	"net/http"

	service "github.com/okian/orbitwatch/internal/app"
)

// TrainingDependencies defines the interface for training operations.
type TrainingDependencies interface {
	StartTraining(ctx context.Context) (string, error)
	TrainingStatus() service.TrainingStatus
}

// TrainHandler handles training requests.
type TrainHandler struct {
	deps TrainingDependencies
}

// NewTrainHandler creates a new train handler.
func NewTrainHandler(deps TrainingDependencies) *TrainHandler {
	return &TrainHandler{deps: deps}
}

type trainResponse struct {
	Status string `json:"status"`
	RunID  string `json:"run_id"`
}

// HandleTrain handles POST /train (start a run) and GET /train (status).
func (h *TrainHandler) HandleTrain(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		runID, err := h.deps.StartTraining(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, trainResponse{Status: string(service.TrainingRunning), RunID: runID})
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.deps.TrainingStatus())
	default:
		http.NotFound(w, r)
	}
}
