package models

import "time"

// AnalysisReport is the final, immutable result of one analysis run.
type AnalysisReport struct {
	ID          string           `json:"id"                 yaml:"id"`
	Target      AnalysisTarget   `json:"target"             yaml:"target"`
	Metadata    *RepoMetadata    `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Evidence    Evidence         `json:"evidence"           yaml:"evidence"`
	RepoType    RepoType         `json:"repo_type"          yaml:"repo_type"`
	Score       ScoreBreakdown   `json:"score"              yaml:"score"`
	Confidence  Confidence       `json:"confidence"         yaml:"confidence"`
	Verdict     Verdict          `json:"verdict"            yaml:"verdict"`
	Suggestions []Suggestion     `json:"suggestions"        yaml:"suggestions"`
	Actions     []PriorityAction `json:"priority_actions"   yaml:"priority_actions"`
	StartedAt   time.Time        `json:"started_at"         yaml:"started_at"`
	CompletedAt time.Time        `json:"completed_at"       yaml:"completed_at"`
	DurationMs  int64            `json:"duration_ms"        yaml:"duration_ms"`
	// Error is set only when the working copy could not be acquired.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether the run ended in an acquisition failure.
func (r *AnalysisReport) Failed() bool {
	return r != nil && r.Error != ""
}
