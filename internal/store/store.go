// Package store persists analysis jobs, their reports and re-analysis
// schedules on top of database.DB.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/CosmoTheDev/ctrlgrade/internal/database"
	"github.com/CosmoTheDev/ctrlgrade/models"
)

var (
	// ErrNotFound is returned when a job, report or schedule does not exist.
	ErrNotFound = errors.New("not found")
	// ErrJobRunning is returned when deleting a job that is still in flight.
	ErrJobRunning = errors.New("job is running")
)

// Job sources.
const (
	SourceAPI      = "api"
	SourceSchedule = "schedule"
	SourceCLI      = "cli"
)

// Store is the persistence boundary used by the agent pool, the gateway
// and the CLI.
type Store struct {
	db  database.DB
	now func() time.Time
}

// New returns a Store backed by db. The schema must already be migrated.
func New(db database.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

type reportRow struct {
	JobID      int64  `db:"job_id"`
	ReportJSON string `db:"report_json"`
	CreatedAt  string `db:"created_at"`
}

// Enqueue records a pending analysis of url. kind is the resolved target
// kind and source one of the Source constants.
func (s *Store) Enqueue(ctx context.Context, url string, kind models.TargetKind, source string) (*models.AnalysisJob, error) {
	job := models.AnalysisJob{
		UniqueKey: uuid.NewString(),
		URL:       url,
		Kind:      string(kind),
		Status:    models.JobPending,
		Source:    source,
		CreatedAt: s.timestamp(),
	}
	id, err := s.db.Insert(ctx, "analysis_jobs", job)
	if err != nil {
		return nil, fmt.Errorf("enqueueing %s: %w", url, err)
	}
	job.ID = id
	return &job, nil
}

// Record stores a report produced outside the queue, such as an inline CLI
// run. The job row is inserted as running so no pool can claim it.
func (s *Store) Record(ctx context.Context, report *models.AnalysisReport, source string) (*models.AnalysisJob, error) {
	now := s.timestamp()
	job := models.AnalysisJob{
		UniqueKey: uuid.NewString(),
		URL:       report.Target.URL,
		Kind:      string(report.Target.Kind),
		Status:    models.JobRunning,
		Source:    source,
		CreatedAt: now,
		StartedAt: now,
	}
	id, err := s.db.Insert(ctx, "analysis_jobs", job)
	if err != nil {
		return nil, fmt.Errorf("recording %s: %w", report.Target.URL, err)
	}
	if err := s.SaveReport(ctx, id, report); err != nil {
		return nil, err
	}
	return s.GetJob(ctx, id)
}

// ClaimNext moves the oldest pending job to running and returns it.
// It returns nil, nil when the queue is empty. Two claimers racing for the
// same row are resolved by the conditional UPDATE.
func (s *Store) ClaimNext(ctx context.Context) (*models.AnalysisJob, error) {
	for {
		var job models.AnalysisJob
		err := s.db.Get(ctx, &job,
			`SELECT * FROM analysis_jobs WHERE status = ? ORDER BY id LIMIT 1`, models.JobPending)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("selecting pending job: %w", err)
		}

		now := s.timestamp()
		n, err := s.db.Exec(ctx,
			`UPDATE analysis_jobs SET status = ?, started_at = ? WHERE id = ? AND status = ?`,
			models.JobRunning, now, job.ID, models.JobPending)
		if err != nil {
			return nil, fmt.Errorf("claiming job %d: %w", job.ID, err)
		}
		if n == 1 {
			job.Status = models.JobRunning
			job.StartedAt = now
			return &job, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

// SaveReport stores the report JSON and copies its summary onto the job
// row. A report carrying an acquisition error marks the job failed.
func (s *Store) SaveReport(ctx context.Context, jobID int64, report *models.AnalysisReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("serialising report: %w", err)
	}
	now := s.timestamp()
	if err := s.db.Upsert(ctx, "analysis_reports", reportRow{
		JobID:      jobID,
		ReportJSON: string(data),
		CreatedAt:  now,
	}, []string{"job_id"}); err != nil {
		return fmt.Errorf("saving report for job %d: %w", jobID, err)
	}

	status := models.JobCompleted
	if report.Failed() {
		status = models.JobFailed
	}
	_, err = s.db.Exec(ctx,
		`UPDATE analysis_jobs
		    SET status = ?, kind = ?, overall = ?, confidence = ?, verdict = ?, repo_type = ?, error_msg = ?, completed_at = ?
		  WHERE id = ?`,
		status, string(report.Target.Kind), report.Score.Overall, string(report.Confidence),
		report.Verdict.Label, string(report.RepoType), report.Error, now, jobID)
	if err != nil {
		return fmt.Errorf("updating job %d: %w", jobID, err)
	}
	return nil
}

// MarkFailed records a run that produced no report.
func (s *Store) MarkFailed(ctx context.Context, jobID int64, msg string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE analysis_jobs SET status = ?, error_msg = ?, completed_at = ? WHERE id = ?`,
		models.JobFailed, msg, s.timestamp(), jobID)
	if err != nil {
		return fmt.Errorf("marking job %d failed: %w", jobID, err)
	}
	return nil
}

// RequeueRunning returns jobs left running by a previous process to the
// pending state. Called once on startup.
func (s *Store) RequeueRunning(ctx context.Context) (int64, error) {
	n, err := s.db.Exec(ctx,
		`UPDATE analysis_jobs SET status = ?, started_at = '' WHERE status = ?`,
		models.JobPending, models.JobRunning)
	if err != nil {
		return 0, fmt.Errorf("requeueing running jobs: %w", err)
	}
	return n, nil
}

// ListOptions filters ListJobs.
type ListOptions struct {
	Status string
	Kind   string
	Limit  int
	Offset int
}

// ListJobs returns jobs newest first.
func (s *Store) ListJobs(ctx context.Context, opts ListOptions) ([]models.AnalysisJob, error) {
	var (
		where []string
		args  []any
	)
	if opts.Status != "" {
		where = append(where, "status = ?")
		args = append(args, opts.Status)
	}
	if opts.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, opts.Kind)
	}
	q := `SELECT * FROM analysis_jobs`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id DESC"
	if opts.Limit > 0 {
		q += " LIMIT ? OFFSET ?"
		args = append(args, opts.Limit, opts.Offset)
	}

	var jobs []models.AnalysisJob
	if err := s.db.Select(ctx, &jobs, q, args...); err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	return jobs, nil
}

// CountJobs returns the number of jobs per status.
func (s *Store) CountJobs(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		Status string `db:"status"`
		N      int    `db:"n"`
	}
	if err := s.db.Select(ctx, &rows,
		`SELECT status, COUNT(*) AS n FROM analysis_jobs GROUP BY status`); err != nil {
		return nil, fmt.Errorf("counting jobs: %w", err)
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}

// GetJob returns one job by id.
func (s *Store) GetJob(ctx context.Context, id int64) (*models.AnalysisJob, error) {
	var job models.AnalysisJob
	err := s.db.Get(ctx, &job, `SELECT * FROM analysis_jobs WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading job %d: %w", id, err)
	}
	return &job, nil
}

// GetReport returns the stored report for a job.
func (s *Store) GetReport(ctx context.Context, jobID int64) (*models.AnalysisReport, error) {
	var row reportRow
	err := s.db.Get(ctx, &row,
		`SELECT job_id, report_json, created_at FROM analysis_reports WHERE job_id = ?`, jobID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading report for job %d: %w", jobID, err)
	}
	var report models.AnalysisReport
	if err := json.Unmarshal([]byte(row.ReportJSON), &report); err != nil {
		return nil, fmt.Errorf("decoding report for job %d: %w", jobID, err)
	}
	return &report, nil
}

// DeleteJob removes a job and its report. Running jobs cannot be deleted.
func (s *Store) DeleteJob(ctx context.Context, id int64) error {
	job, err := s.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if job.Status == models.JobRunning {
		return fmt.Errorf("deleting job %d: %w", id, ErrJobRunning)
	}
	if _, err := s.db.Exec(ctx, `DELETE FROM analysis_reports WHERE job_id = ?`, id); err != nil {
		return fmt.Errorf("deleting report %d: %w", id, err)
	}
	if _, err := s.db.Exec(ctx, `DELETE FROM analysis_jobs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting job %d: %w", id, err)
	}
	return nil
}
