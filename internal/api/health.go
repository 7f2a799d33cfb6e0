package api

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type HealthHandler struct {
	dataFile string
	pgPool   *pgxpool.Pool // nil when the directory is file-backed
	env      string
	version  string
}

func NewHealthHandler(dataFile string, pgPool *pgxpool.Pool, env, version string) *HealthHandler {
	return &HealthHandler{
		dataFile: dataFile,
		pgPool:   pgPool,
		env:      env,
		version:  version,
	}
}

type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Env     string `json:"env,omitempty"`
}

type ReadinessResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version,omitempty"`
	Env          string            `json:"env,omitempty"`
	Dependencies map[string]string `json:"dependencies"`
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	resp := LivenessResponse{
		Status:  "ok",
		Version: h.version,
		Env:     h.env,
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	deps := make(map[string]string)
	status := "ok"

	// The data directory must exist and be writable or no mutation can be
	// made durable.
	dir := filepath.Dir(h.dataFile)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		deps["datafile"] = "down"
		status = "error"
	} else {
		deps["datafile"] = "ok"
	}

	if h.pgPool != nil {
		pgCtx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		err := h.pgPool.Ping(pgCtx)
		cancel()
		if err != nil {
			deps["postgres"] = "down"
			status = "error"
		} else {
			deps["postgres"] = "ok"
		}
	}

	resp := ReadinessResponse{
		Status:       status,
		Version:      h.version,
		Env:          h.env,
		Dependencies: deps,
	}

	httpStatus := http.StatusOK
	if status == "error" {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, resp)
}
