package gateway

import "github.com/CosmoTheDev/ctrlgrade/internal/agent"

// SSEEvent is serialised as JSON and pushed over the GET /events SSE stream.
type SSEEvent struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// SSE event types.
const (
	EventConnected         = "connected"
	EventGatewayStarted    = "gateway.started"
	EventStatusUpdate      = "status.update"
	EventAnalysisQueued    = "analysis.queued"
	EventAnalysisStarted   = "analysis.started"
	EventAnalysisCompleted = "analysis.completed"
	EventAnalysisFailed    = "analysis.failed"
	EventAnalysisDeleted   = "analysis.deleted"
	EventScheduleCreated   = "schedule.created"
	EventScheduleDeleted   = "schedule.deleted"
	EventScheduleFired     = "schedule.fired"
	EventScheduleTriggered = "schedule.triggered"
	EventPoolHealth        = "pool.health"
	EventPoolStopped       = "pool.stopped"
)

// PoolStatus is a live snapshot of the gateway and its analysis pool.
type PoolStatus struct {
	Running       bool                 `json:"running"`
	Workers       int                  `json:"workers"`
	Active        []agent.WorkerStatus `json:"active"`
	Pending       int                  `json:"pending"`
	Completed     int                  `json:"completed"`
	Failed        int                  `json:"failed"`
	LastTriggerAt string               `json:"last_trigger_at,omitempty"`
	UptimeSeconds int64                `json:"uptime_seconds"`
	Health        HeartbeatStatus      `json:"health"`
}

// HeartbeatStatus describes whether in-flight analyses are making progress.
type HeartbeatStatus struct {
	Status         string `json:"status"` // idle | alive | stuck
	LastActivityAt string `json:"last_activity_at,omitempty"`
	StuckForSecs   int64  `json:"stuck_for_secs,omitempty"`
	Message        string `json:"message"`
}
