package handlers

import (
	"net/http"

	"github.com/jsamuelsen11/todo-service/internal/ports"
)

const (
	checkPassed = "ok"

	stateLive     = "ok"
	stateReady    = "ready"
	stateNotReady = "not_ready"
)

// readinessResponse is the body of GET /health/ready. Checks maps each
// checker name to "ok" or its failure message.
type readinessResponse struct {
	Status  string            `json:"status"`
	Storage string            `json:"storage"`
	Checks  map[string]string `json:"checks"`
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	registry ports.HealthRegistry
	backend  string
}

// NewHealthHandler returns a HealthHandler reporting backend ("memory" or
// "postgres") as the active todo store.
func NewHealthHandler(registry ports.HealthRegistry, backend string) *HealthHandler {
	return &HealthHandler{registry: registry, backend: backend}
}

// Liveness handles GET /health/live.
func (h *HealthHandler) Liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": stateLive})
}

// Readiness handles GET /health/ready: 200 when every registered check
// passes, 503 otherwise.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	resp := readinessResponse{
		Status:  stateReady,
		Storage: h.backend,
		Checks:  make(map[string]string),
	}

	for name, err := range h.registry.CheckAll(r.Context()) {
		if err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = stateNotReady
			continue
		}
		resp.Checks[name] = checkPassed
	}

	code := http.StatusOK
	if resp.Status == stateNotReady {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}
