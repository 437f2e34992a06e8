// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/orbitwatch/internal/adapters/catalog"
	"github.com/okian/orbitwatch/internal/adapters/repository"
	"github.com/okian/orbitwatch/internal/domain/anomaly"
	"github.com/okian/orbitwatch/internal/domain/orbit"
	service "github.com/okian/orbitwatch/internal/app"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	TrainingDependencies
	ScoreDependencies
	ScanDependencies
	AnomalyDependencies
	CatalogDependencies
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	trainHandler   *TrainHandler
	scoreHandler   *ScoreHandler
	scanHandler    *ScanHandler
	anomalyHandler *AnomalyHandler
	catalogHandler *CatalogHandler
}

// NewServer creates a new API server with all handlers. maxLimit caps the
// page size of list endpoints.
func NewServer(deps Dependencies, maxLimit int) *Server {
	if maxLimit < 1 {
		maxLimit = catalog.DefaultLimit
	}
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(deps),
		trainHandler:   NewTrainHandler(deps),
		scoreHandler:   NewScoreHandler(deps),
		scanHandler:    NewScanHandler(deps),
		anomalyHandler: NewAnomalyHandler(deps, maxLimit),
		catalogHandler: NewCatalogHandler(deps, maxLimit),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleMetrics, "healthz"))
	mux.HandleFunc("/health", MetricsMiddleware(s.healthHandler.HandleHealth, "health"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/train", MetricsMiddleware(s.trainHandler.HandleTrain, "train"))
	mux.HandleFunc("/score/", MetricsMiddleware(s.scoreHandler.HandleGetScore, "score"))
	mux.HandleFunc("/scan", MetricsMiddleware(s.scanHandler.HandlePostScan, "scan"))
	mux.HandleFunc("/anomalies", MetricsMiddleware(s.anomalyHandler.HandleGetAnomalies, "anomalies"))
	mux.HandleFunc("/anomalies/", MetricsMiddleware(s.anomalyHandler.HandleGetRank, "anomaly_rank"))
	mux.HandleFunc("/tle", MetricsMiddleware(s.catalogHandler.HandleTLE, "tle"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError translates upstream error kinds to a status code.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, repository.ErrInvalidLimit):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, catalog.ErrNoRecords):
		writeError(w, http.StatusBadRequest, "bad_request", ErrNoTLEs)
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, anomaly.ErrNotTrained):
		writeError(w, http.StatusConflict, "not_trained", err)
	case errors.Is(err, service.ErrTrainingInProgress):
		writeError(w, http.StatusConflict, "training_in_progress", err)
	case errors.Is(err, orbit.ErrExtraction):
		writeError(w, http.StatusUnprocessableEntity, "extraction_failed", err)
	case errors.Is(err, service.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", err)
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "not_started", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
