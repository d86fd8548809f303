package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/zaitanabil/galerly-sub003/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

const probeTimeout = 2 * time.Second

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`

	// Library counts
	PendingAssets      int `json:"pendingAssets"`
	DecodedAssets      int `json:"decodedAssets"`
	FailedAssets       int `json:"failedAssets"`
	TotalRenditions    int `json:"totalRenditions"`
	OpenUploadSessions int `json:"openUploadSessions"`

	// Session reaper
	ReaperLastRun  string `json:"reaperLastRun,omitempty"`
	SessionsReaped int64  `json:"sessionsReaped"`

	// Optional decode paths available on this host
	Capabilities Capabilities `json:"capabilities"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
	defer cancel()

	stats := h.db.GetStats()

	response := HealthResponse{
		Status:             statusHealthy,
		Version:            startup.Version,
		Uptime:             time.Since(h.startedAt).Round(time.Second).String(),
		PendingAssets:      stats.PendingAssets,
		DecodedAssets:      stats.DecodedAssets,
		FailedAssets:       stats.FailedAssets,
		TotalRenditions:    stats.TotalRenditions,
		OpenUploadSessions: stats.OpenUploadSessions,
		Capabilities:       h.capabilities,
		GoVersion:          runtime.Version(),
		NumCPU:             runtime.NumCPU(),
		NumGoroutine:       runtime.NumGoroutine(),
	}

	if h.reaper != nil {
		rs := h.reaper.GetStatus()
		response.SessionsReaped = rs.TotalReaped
		if !rs.LastRun.IsZero() {
			response.ReaperLastRun = rs.LastRun.Format(time.RFC3339)
		}
	}

	w.Header().Set("Content-Type", "application/json")

	if err := h.db.Ping(ctx); err != nil {
		response.Status = statusDegraded
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	writeJSON(w, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 only when the service can reach its
// database. Storage is probed lazily by the operations themselves.
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := h.db.Ping(ctx); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		writeJSON(w, map[string]string{
			"status": "not_ready",
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	writeJSON(w, map[string]string{
		"status": "ready",
	})
}
