package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/CosmoTheDev/ctrlgrade/internal/config"
	"github.com/CosmoTheDev/ctrlgrade/internal/database"
	"github.com/CosmoTheDev/ctrlgrade/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.New(config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "store.db")})
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	s := New(db)
	s.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func sampleReport(url string) *models.AnalysisReport {
	return &models.AnalysisReport{
		ID:         "r-1",
		Target:     models.AnalysisTarget{URL: url, Kind: models.TargetRepository, Owner: "acme", Repo: "shop"},
		RepoType:   models.RepoTypeLibrary,
		Score:      models.ScoreBreakdown{RawTotal: 80, Multiplier: 1, Overall: 80},
		Confidence: models.ConfidenceHigh,
		Verdict:    models.Verdict{Label: "Solid Library", Emoji: "✅", Color: "blue"},
		Suggestions: []models.Suggestion{
			{Priority: models.PriorityLow, Category: "Documentation", Title: "Improve documentation"},
		},
	}
}

func TestEnqueueAndClaimInOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.Enqueue(ctx, "https://github.com/acme/one", models.TargetRepository, SourceAPI)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	second, err := s.Enqueue(ctx, "https://example.com", models.TargetDeployment, SourceCLI)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if first.UniqueKey == "" || first.UniqueKey == second.UniqueKey {
		t.Fatalf("unique keys = %q, %q", first.UniqueKey, second.UniqueKey)
	}

	got, err := s.ClaimNext(ctx)
	if err != nil || got == nil {
		t.Fatalf("ClaimNext = %v, %v", got, err)
	}
	if got.ID != first.ID || got.Status != models.JobRunning || got.StartedAt == "" {
		t.Errorf("claimed %+v, want job %d running", got, first.ID)
	}

	got, err = s.ClaimNext(ctx)
	if err != nil || got == nil || got.ID != second.ID {
		t.Fatalf("second ClaimNext = %+v, %v", got, err)
	}

	got, err = s.ClaimNext(ctx)
	if err != nil || got != nil {
		t.Fatalf("empty ClaimNext = %+v, %v; want nil, nil", got, err)
	}
}

func TestSaveReportUpdatesSummary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job, _ := s.Enqueue(ctx, "https://github.com/acme/shop", models.TargetRepository, SourceAPI)
	if _, err := s.ClaimNext(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveReport(ctx, job.ID, sampleReport(job.URL)); err != nil {
		t.Fatalf("SaveReport: %v", err)
	}

	got, err := s.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != models.JobCompleted || got.Overall != 80 || got.Confidence != "HIGH" ||
		got.Verdict != "Solid Library" || got.RepoType != "library" || got.CompletedAt == "" {
		t.Errorf("job summary = %+v", got)
	}

	report, err := s.GetReport(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if report.Score.Overall != 80 || len(report.Suggestions) != 1 || report.Target.Owner != "acme" {
		t.Errorf("report = %+v", report)
	}
}

func TestSaveReportWithAcquisitionErrorFailsJob(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job, _ := s.Enqueue(ctx, "https://github.com/acme/gone", models.TargetRepository, SourceAPI)
	r := &models.AnalysisReport{
		Target: models.AnalysisTarget{URL: job.URL, Kind: models.TargetRepository},
		Error:  "acquiring https://github.com/acme/gone: repository not found",
	}
	if err := s.SaveReport(ctx, job.ID, r); err != nil {
		t.Fatalf("SaveReport: %v", err)
	}
	got, _ := s.GetJob(ctx, job.ID)
	if got.Status != models.JobFailed || got.ErrorMsg != r.Error {
		t.Errorf("job = %+v", got)
	}
}

func TestRecordBypassesQueue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job, err := s.Record(ctx, sampleReport("https://github.com/acme/shop"), SourceCLI)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if job.Status != models.JobCompleted || job.Source != SourceCLI || job.Overall != 80 {
		t.Fatalf("job = %+v", job)
	}
	if next, err := s.ClaimNext(ctx); err != nil || next != nil {
		t.Fatalf("ClaimNext = %+v, %v; want empty queue", next, err)
	}
	if _, err := s.GetReport(ctx, job.ID); err != nil {
		t.Fatalf("GetReport: %v", err)
	}
}

func TestMarkFailedAndRequeue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, _ := s.Enqueue(ctx, "ftp://x", models.TargetDeployment, SourceAPI)
	b, _ := s.Enqueue(ctx, "https://example.com", models.TargetDeployment, SourceAPI)
	_, _ = s.ClaimNext(ctx)
	_, _ = s.ClaimNext(ctx)

	if err := s.MarkFailed(ctx, a.ID, "unsupported analysis target"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	n, err := s.RequeueRunning(ctx)
	if err != nil || n != 1 {
		t.Fatalf("RequeueRunning = %d, %v; want 1", n, err)
	}

	counts, err := s.CountJobs(ctx)
	if err != nil {
		t.Fatalf("CountJobs: %v", err)
	}
	if counts[models.JobFailed] != 1 || counts[models.JobPending] != 1 {
		t.Errorf("counts = %v", counts)
	}
	got, _ := s.GetJob(ctx, b.ID)
	if got.Status != models.JobPending || got.StartedAt != "" {
		t.Errorf("requeued job = %+v", got)
	}
}

func TestListJobsFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, u := range []string{"https://github.com/a/b", "https://github.com/c/d"} {
		if _, err := s.Enqueue(ctx, u, models.TargetRepository, SourceAPI); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.Enqueue(ctx, "https://example.com", models.TargetDeployment, SourceAPI); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		opts ListOptions
		want int
	}{
		{"all", ListOptions{}, 3},
		{"kind", ListOptions{Kind: "deployment"}, 1},
		{"status", ListOptions{Status: models.JobPending}, 3},
		{"limit", ListOptions{Limit: 2}, 2},
		{"offset", ListOptions{Limit: 2, Offset: 2}, 1},
		{"none", ListOptions{Status: models.JobCompleted}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs, err := s.ListJobs(ctx, tt.opts)
			if err != nil {
				t.Fatalf("ListJobs: %v", err)
			}
			if len(jobs) != tt.want {
				t.Errorf("len = %d, want %d", len(jobs), tt.want)
			}
		})
	}

	jobs, _ := s.ListJobs(ctx, ListOptions{})
	if jobs[0].URL != "https://example.com" {
		t.Errorf("newest first: got %s", jobs[0].URL)
	}
}

func TestDeleteJob(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job, _ := s.Enqueue(ctx, "https://github.com/acme/shop", models.TargetRepository, SourceAPI)
	_, _ = s.ClaimNext(ctx)
	if err := s.DeleteJob(ctx, job.ID); !errors.Is(err, ErrJobRunning) {
		t.Fatalf("deleting a running job = %v, want ErrJobRunning", err)
	}
	if err := s.SaveReport(ctx, job.ID, sampleReport(job.URL)); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteJob(ctx, job.ID); err != nil {
		t.Fatalf("DeleteJob: %v", err)
	}
	if _, err := s.GetJob(ctx, job.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetJob after delete = %v, want ErrNotFound", err)
	}
	if _, err := s.GetReport(ctx, job.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetReport after delete = %v, want ErrNotFound", err)
	}
	if err := s.DeleteJob(ctx, job.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteJob = %v, want ErrNotFound", err)
	}
}

func TestScheduleCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	on, err := s.CreateSchedule(ctx, models.Schedule{Name: "nightly", Expr: "0 3 * * *", URL: "https://github.com/acme/shop", Enabled: true})
	if err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}
	if _, err := s.CreateSchedule(ctx, models.Schedule{Name: "paused", Expr: "@daily", URL: "https://example.com"}); err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}

	all, _ := s.ListSchedules(ctx, false)
	enabled, _ := s.ListSchedules(ctx, true)
	if len(all) != 2 || len(enabled) != 1 || enabled[0].ID != on.ID {
		t.Fatalf("all = %+v, enabled = %+v", all, enabled)
	}

	if err := s.TouchSchedule(ctx, on.ID); err != nil {
		t.Fatalf("TouchSchedule: %v", err)
	}
	got, err := s.GetSchedule(ctx, on.ID)
	if err != nil {
		t.Fatalf("GetSchedule: %v", err)
	}
	if got.LastRunAt != "2026-03-01T12:00:00Z" {
		t.Errorf("LastRunAt = %q", got.LastRunAt)
	}

	if err := s.DeleteSchedule(ctx, on.ID); err != nil {
		t.Fatalf("DeleteSchedule: %v", err)
	}
	if err := s.DeleteSchedule(ctx, on.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteSchedule = %v, want ErrNotFound", err)
	}
	if _, err := s.GetSchedule(ctx, on.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetSchedule after delete = %v", err)
	}
}
