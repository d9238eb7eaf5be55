package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/rickgao/kitchen-ops/internal/history"
	"github.com/rickgao/kitchen-ops/internal/inventory"
	"github.com/rickgao/kitchen-ops/internal/monitor"
	"github.com/rickgao/kitchen-ops/internal/version"
)

// pinger checks database connectivity. *pgxpool.Pool implements it.
type pinger interface {
	Ping(ctx context.Context) error
}

// Health statuses reported by /health.
const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

type healthResponse struct {
	Status     string         `json:"status"`
	Components map[string]any `json:"components"`
}

// newHealthHandler creates the HTTP handler for health checks.
// writer and db are nil when history is disabled.
func newHealthHandler(mon *monitor.Monitor, tracker *inventory.Tracker, writer *history.Writer, db pinger, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := healthResponse{
			Status:     statusHealthy,
			Components: make(map[string]any),
		}

		health.Components["version"] = version.Get()

		snap := mon.Snapshot()
		health.Components["backend"] = snap
		switch {
		case snap.API == monitor.APIOffline:
			health.Status = statusUnhealthy
		case !snap.FullyConnected:
			health.Status = statusDegraded
		}

		if db != nil {
			if err := db.Ping(ctx); err != nil {
				health.Status = statusUnhealthy
				health.Components["history_db"] = map[string]string{
					"status": "disconnected",
					"error":  err.Error(),
				}
			} else {
				health.Components["history_db"] = "connected"
			}
		}
		if writer != nil {
			health.Components["history_writer"] = writer.Stats()
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == statusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		if err := json.NewEncoder(w).Encode(health); err != nil {
			logger.Warn("encode health response", "error", err)
		}
	})

	mux.HandleFunc("/debug/inventory", func(w http.ResponseWriter, r *http.Request) {
		snap := tracker.Snapshot()

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]any{
			"count":           len(snap.Items),
			"needs_attention": len(tracker.NeedsAttention()),
			"items":           snap.Items,
			"alerts":          snap.Alerts,
			"updated_at":      snap.UpdatedAt,
		}); err != nil {
			logger.Warn("encode inventory response", "error", err)
		}
	})

	return mux
}
