package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"
)

// StartTime tracks when the server started for uptime calculation
var StartTime = time.Now()

// ConnectionLister reports the identities of open market connections.
type ConnectionLister interface {
	LiveConnections() []string
}

// StatsSource reports store row counts. The readiness check uses it as a probe.
type StatsSource interface {
	Stats(ctx context.Context) (map[string]interface{}, error)
}

// Handler contains shared HTTP handlers and their dependencies.
type Handler struct {
	name    string
	version string
	conns   ConnectionLister
	store   StatsSource
}

// New creates a new handler.
func New(name, version string, conns ConnectionLister, store StatsSource) *Handler {
	return &Handler{name: name, version: version, conns: conns, store: store}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// Health handles GET /api/v1/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   h.version,
	})
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	Ready     bool      `json:"ready"`
	Timestamp time.Time `json:"timestamp"`
	Checks    []Check   `json:"checks"`
}

// Check represents an individual readiness check.
type Check struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Ready handles GET /api/v1/ready
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	checks := []Check{{Name: "market", Status: "ok"}}
	if h.store != nil {
		status := "ok"
		if _, err := h.store.Stats(r.Context()); err != nil {
			status = "error"
		}
		checks = append(checks, Check{Name: "store", Status: status})
	}

	allReady := true
	for _, check := range checks {
		if check.Status != "ok" {
			allReady = false
			break
		}
	}

	code := http.StatusOK
	if !allReady {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, ReadyResponse{
		Ready:     allReady,
		Timestamp: time.Now().UTC(),
		Checks:    checks,
	})
}

// StatusResponse represents the unified status response for monitoring
type StatusResponse struct {
	Service         string  `json:"service"`
	Status          string  `json:"status"`
	Timestamp       string  `json:"timestamp"`
	UptimeSeconds   int64   `json:"uptime_seconds"`
	MemoryMB        float64 `json:"memory_mb"`
	LiveConnections int     `json:"live_connections"`
}

// Status handles GET /api/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	memoryMB := float64(memStats.Alloc) / 1024 / 1024

	live := 0
	if h.conns != nil {
		live = len(h.conns.LiveConnections())
	}

	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	writeJSON(w, http.StatusOK, StatusResponse{
		Service:         h.name,
		Status:          "ok",
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		UptimeSeconds:   int64(time.Since(StartTime).Seconds()),
		MemoryMB:        float64(int(memoryMB*100)) / 100,
		LiveConnections: live,
	})
}
