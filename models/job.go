package models

// AnalysisJob is one queued or completed analysis, persisted by the store.
type AnalysisJob struct {
	ID          int64  `json:"id"           db:"id"`
	UniqueKey   string `json:"unique_key"   db:"unique_key"`
	URL         string `json:"url"          db:"url"`
	Kind        string `json:"kind"         db:"kind"`
	Status      string `json:"status"       db:"status"` // pending|running|completed|failed
	Source      string `json:"source"       db:"source"` // api|schedule|cli
	Overall     int    `json:"overall"      db:"overall"`
	Confidence  string `json:"confidence"   db:"confidence"`
	Verdict     string `json:"verdict"      db:"verdict"`
	RepoType    string `json:"repo_type"    db:"repo_type"`
	ErrorMsg    string `json:"error_msg"    db:"error_msg"`
	CreatedAt   string `json:"created_at"   db:"created_at"`
	StartedAt   string `json:"started_at"   db:"started_at"`
	CompletedAt string `json:"completed_at" db:"completed_at"`
}

// Job statuses.
const (
	JobPending   = "pending"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// Schedule re-enqueues an analysis of URL on a cron expression.
type Schedule struct {
	ID        int64  `json:"id"          db:"id"`
	Name      string `json:"name"        db:"name"`
	Expr      string `json:"expr"        db:"expr"`
	URL       string `json:"url"         db:"url"`
	Enabled   bool   `json:"enabled"     db:"enabled"`
	LastRunAt string `json:"last_run_at" db:"last_run_at"`
	CreatedAt string `json:"created_at"  db:"created_at"`
}
