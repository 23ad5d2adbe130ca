package handlers

import (
	"net/http"
	"time"

	"github.com/asock/catio-cam/internal/logging"
	"github.com/asock/catio-cam/internal/startup"
)

var serverStart = time.Now()

// HealthResponse is the payload for /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Uptime   string `json:"uptime"`
	Database string `json:"database"`
	Version  string `json:"version"`
}

// Health reports overall service health, including a database round trip.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:   "ok",
		Uptime:   time.Since(serverStart).Round(time.Second).String(),
		Database: "ok",
		Version:  startup.Version,
	}

	status := http.StatusOK
	if _, err := h.db.Stats(r.Context()); err != nil {
		logging.Warn("Health check database probe failed: %v", err)
		resp.Status = "degraded"
		resp.Database = "unavailable"
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	writeJSON(w, resp)
}

// Livez answers liveness probes. If the process can serve this, it is alive.
func (h *Handlers) Livez(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// Readyz answers readiness probes by touching the database.
func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if _, err := h.db.Stats(r.Context()); err != nil {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// Version returns build information.
func (h *Handlers) Version(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, startup.GetBuildInfo())
}

// Stats returns site-wide counts plus the live WebSocket connection count.
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.db.Stats(r.Context())
	if err != nil {
		logging.Error("Stats query failed: %v", err)
		writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	stats.ActiveConnections = h.hub.Count()

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, stats)
}
