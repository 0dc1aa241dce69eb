package models

// Priority ranks a suggestion.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
	PriorityInfo     Priority = "info"
)

// Rank returns the sort position (lower = more urgent).
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

// Suggestion is a human-readable improvement derived from evidence.
type Suggestion struct {
	Priority    Priority `json:"priority"    yaml:"priority"`
	Category    string   `json:"category"    yaml:"category"`
	Title       string   `json:"title"       yaml:"title"`
	Description string   `json:"description" yaml:"description"`
}

// PriorityAction is a concrete, ordered next step.
type PriorityAction struct {
	Priority     int    `json:"priority"      yaml:"priority"`
	Urgency      string `json:"urgency"       yaml:"urgency"`
	Title        string `json:"title"         yaml:"title"`
	Command      string `json:"command"       yaml:"command"`
	TimeEstimate string `json:"time_estimate" yaml:"time_estimate"`
	Impact       string `json:"impact"        yaml:"impact"`
}
