package api

import (
	"context"
	"net/http"

	service "github.com/okian/orbitwatch/internal/app"
)

// ScanDependencies defines the interface for queueing catalog scans.
type ScanDependencies interface {
	Scan(ctx context.Context) (service.ScanResult, error)
}

// ScanHandler handles scan requests.
type ScanHandler struct {
	deps ScanDependencies
}

// NewScanHandler creates a new scan handler.
func NewScanHandler(deps ScanDependencies) *ScanHandler {
	return &ScanHandler{deps: deps}
}

type scanResponse struct {
	Status string `json:"status"`
	service.ScanResult
}

// HandlePostScan handles POST /scan requests.
func (h *ScanHandler) HandlePostScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	res, err := h.deps.Scan(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, scanResponse{Status: "accepted", ScanResult: res})
}
