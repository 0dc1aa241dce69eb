package notify

import "context"

// Event types emitted by the analysis pool.
const (
	EventCompleted = "analysis.completed"
	EventFailed    = "analysis.failed"
)

// Event represents one finished analysis.
type Event struct {
	Type    string // EventCompleted | EventFailed
	Title   string
	Body    string
	URL     string // analysed target
	JobID   int64
	Overall int    // 0 for failed analyses
	Color   string // verdict color: green | blue | yellow | orange | red

	// Set for completed analyses only.
	Kind       string
	Verdict    string
	Reason     string
	Confidence string
}

// Channel is implemented by each notification provider.
type Channel interface {
	Name() string
	IsConfigured() bool
	Send(ctx context.Context, evt Event) error
}
