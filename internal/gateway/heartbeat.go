package gateway

import (
	"context"
	"log/slog"
	"time"

	"github.com/CosmoTheDev/ctrlgrade/internal/agent"
)

const (
	heartbeatCheckInterval = 30 * time.Second
	// stuckThreshold is how long one analysis may run before it is reported
	// stuck. Installs on large monorepos legitimately take several minutes.
	stuckThreshold = 30 * time.Minute
)

// HeartbeatMonitor periodically derives pool health from the in-flight
// analyses and broadcasts a "pool.health" SSE event whenever it changes.
type HeartbeatMonitor struct {
	gw         *Gateway
	now        func() time.Time
	lastStatus string
}

func newHeartbeatMonitor(gw *Gateway) *HeartbeatMonitor {
	return &HeartbeatMonitor{gw: gw, now: time.Now}
}

func (h *HeartbeatMonitor) run(ctx context.Context) {
	ticker := time.NewTicker(heartbeatCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.evaluate()
		}
	}
}

func (h *HeartbeatMonitor) evaluate() {
	hs := h.computeStatus(h.gw.pool.Active())
	if hs.Status != h.lastStatus {
		h.lastStatus = hs.Status
		h.gw.broadcaster.send(SSEEvent{Type: EventPoolHealth, Payload: hs})
		slog.Info("gateway: pool health changed", "status", hs.Status, "message", hs.Message)
	}
}

// computeStatus is safe to call from any goroutine.
func (h *HeartbeatMonitor) computeStatus(active []agent.WorkerStatus) HeartbeatStatus {
	h.gw.mu.RLock()
	lastAt := h.gw.lastActivityAt
	h.gw.mu.RUnlock()

	var lastAtStr string
	if !lastAt.IsZero() {
		lastAtStr = lastAt.UTC().Format(time.RFC3339)
	}
	if len(active) == 0 {
		return HeartbeatStatus{
			Status:         "idle",
			LastActivityAt: lastAtStr,
			Message:        "No analysis running.",
		}
	}

	now := h.now()
	var oldest time.Duration
	for _, w := range active {
		started, err := time.Parse(time.RFC3339, w.StartedAt)
		if err != nil {
			continue
		}
		if d := now.Sub(started); d > oldest {
			oldest = d
		}
	}
	if oldest > stuckThreshold {
		return HeartbeatStatus{
			Status:         "stuck",
			LastActivityAt: lastAtStr,
			StuckForSecs:   int64(oldest.Seconds()),
			Message:        "An analysis has been running unusually long. A tool may be hung.",
		}
	}
	return HeartbeatStatus{
		Status:         "alive",
		LastActivityAt: lastAtStr,
		Message:        "Analyses in progress.",
	}
}
