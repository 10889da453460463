package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"cybermarket/internal/session"
)

// SessionCounter reports how many principals are logged in per kind.
type SessionCounter interface {
	Count(ctx context.Context) (map[session.Kind]int64, error)
}

// AdminHandler handles admin-related HTTP requests.
type AdminHandler struct {
	store          StatsSource
	sessions       SessionCounter
	conns          ConnectionLister
	storeType      string // sqlite, mysql or postgres
	sessionBackend string // memory or redis
	startTime      time.Time
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(
	store StatsSource,
	sessions SessionCounter,
	conns ConnectionLister,
	storeType, sessionBackend string,
) *AdminHandler {
	return &AdminHandler{
		store:          store,
		sessions:       sessions,
		conns:          conns,
		storeType:      storeType,
		sessionBackend: sessionBackend,
		startTime:      time.Now(),
	}
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats := make(map[string]interface{})

	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().Format(time.RFC3339)
	stats["store_type"] = h.storeType

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":      float64(memStats.Alloc) / 1024 / 1024,
		"sys_mb":        float64(memStats.Sys) / 1024 / 1024,
		"heap_inuse_mb": float64(memStats.HeapInuse) / 1024 / 1024,
		"num_gc":        memStats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}

	if h.store != nil {
		storeStats, err := h.store.Stats(ctx)
		if err == nil {
			storeStats["status"] = "connected"
			stats["store"] = storeStats
		} else {
			stats["store"] = map[string]interface{}{
				"status": "error",
				"error":  err.Error(),
			}
		}
	} else {
		stats["store"] = map[string]interface{}{"status": "not_configured"}
	}

	if h.sessions != nil {
		counts, err := h.sessions.Count(ctx)
		if err == nil {
			stats["sessions"] = map[string]interface{}{
				"backend": h.sessionBackend,
				"status":  "connected",
				"bound":   counts,
			}
		} else {
			stats["sessions"] = map[string]interface{}{
				"backend": h.sessionBackend,
				"status":  "error",
				"error":   err.Error(),
			}
		}
	}

	if h.conns != nil {
		stats["live_connections"] = len(h.conns.LiveConnections())
	}

	stats["runtime"] = map[string]interface{}{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpus":       runtime.NumCPU(),
	}

	writeJSON(w, http.StatusOK, stats)
}
