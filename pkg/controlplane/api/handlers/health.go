package handlers

import (
	"net/http"
	"time"
)

// ReadinessFunc reports whether the index listener is accepting peers.
type ReadinessFunc func() bool

// HealthData is the payload of GET /health.
type HealthData struct {
	Service   string `json:"service" yaml:"service"`
	StartedAt string `json:"started_at" yaml:"started_at"`
	Uptime    string `json:"uptime" yaml:"uptime"`
	UptimeSec int64  `json:"uptime_sec" yaml:"uptime_sec"`
}

// ReadyData is the payload of GET /health/ready.
type ReadyData struct {
	Peers     int `json:"peers"`
	Documents int `json:"documents"`
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	catalog   Catalog
	ready     ReadinessFunc
	startedAt time.Time
}

// NewHealthHandler creates a HealthHandler. A nil ready func always reports
// ready.
func NewHealthHandler(c Catalog, ready ReadinessFunc) *HealthHandler {
	return &HealthHandler{catalog: c, ready: ready, startedAt: time.Now()}
}

// Liveness handles GET /health.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(h.startedAt).Round(time.Second)
	writeJSON(w, http.StatusOK, healthyResponse(HealthData{
		Service:   "p2pci",
		StartedAt: h.startedAt.UTC().Format(time.RFC3339),
		Uptime:    uptime.String(),
		UptimeSec: int64(uptime.Seconds()),
	}))
}

// Readiness handles GET /health/ready. It answers 503 until the index
// listener is bound.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("catalog not initialized"))
		return
	}
	if h.ready != nil && !h.ready() {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("index listener not ready"))
		return
	}

	stats := h.catalog.Stats()
	writeJSON(w, http.StatusOK, healthyResponse(ReadyData{Peers: stats.Peers, Documents: stats.Documents}))
}
