package gateway

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/CosmoTheDev/ctrlgrade/internal/agent"
	"github.com/CosmoTheDev/ctrlgrade/internal/config"
	"github.com/CosmoTheDev/ctrlgrade/internal/database"
	"github.com/CosmoTheDev/ctrlgrade/internal/store"
	"github.com/CosmoTheDev/ctrlgrade/models"
)

type stubRunner struct{}

func (stubRunner) Analyze(_ context.Context, url string) (*models.AnalysisReport, error) {
	return &models.AnalysisReport{
		Target:     models.AnalysisTarget{URL: url, Kind: models.TargetRepository},
		Score:      models.ScoreBreakdown{Overall: 88},
		Confidence: models.ConfidenceHigh,
		Verdict:    models.Verdict{Label: "Production Ready", Emoji: "🚀", Color: "green"},
	}, nil
}

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()
	db, err := database.New(config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "gw.db")})
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	gw := New(&config.Config{}, store.New(db), stubRunner{})
	gw.SetLogDir(t.TempDir())
	return gw
}

func do(t *testing.T, gw *Gateway, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rr := httptest.NewRecorder()
	buildHandler(gw).ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rr.Body.String())
	}
	return v
}

func TestHealthAndRoot(t *testing.T) {
	gw := newTestGateway(t)
	if rr := do(t, gw, http.MethodGet, "/health", ""); rr.Code != http.StatusOK {
		t.Fatalf("health = %d", rr.Code)
	}
	rr := do(t, gw, http.MethodGet, "/", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "POST /api/analyses") {
		t.Fatalf("root = %d %s", rr.Code, rr.Body.String())
	}
	if rr := do(t, gw, http.MethodGet, "/nope", ""); rr.Code != http.StatusNotFound {
		t.Errorf("unknown path = %d, want 404", rr.Code)
	}
}

func TestCreateAnalysisValidation(t *testing.T) {
	gw := newTestGateway(t)
	tests := []struct {
		name string
		body string
		want int
	}{
		{"repository", `{"url":"github.com/acme/shop"}`, http.StatusAccepted},
		{"deployment", `{"url":"https://shop.example.com"}`, http.StatusAccepted},
		{"unsupported scheme", `{"url":"ftp://example.com/file"}`, http.StatusBadRequest},
		{"missing url", `{}`, http.StatusBadRequest},
		{"bad json", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, gw, http.MethodPost, "/api/analyses", tt.body)
			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d: %s", rr.Code, tt.want, rr.Body.String())
			}
		})
	}

	list := decode[paginationResult[models.AnalysisJob]](t, do(t, gw, http.MethodGet, "/api/analyses", ""))
	if len(list.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(list.Items))
	}
	// Newest first; repository URL normalised.
	if list.Items[1].URL != "https://github.com/acme/shop" || list.Items[1].Kind != "repository" {
		t.Errorf("repository job = %+v", list.Items[1])
	}
	if list.Items[0].Kind != "deployment" || list.Items[0].Source != store.SourceAPI {
		t.Errorf("deployment job = %+v", list.Items[0])
	}
}

func TestAnalysisLifecycle(t *testing.T) {
	gw := newTestGateway(t)
	events := gw.broadcaster.subscribe()
	defer gw.broadcaster.unsubscribe(events)

	rr := do(t, gw, http.MethodPost, "/api/analyses", `{"url":"https://github.com/acme/shop"}`)
	job := decode[models.AnalysisJob](t, rr)
	path := "/api/analyses/" + itoa(job.ID)

	if rr := do(t, gw, http.MethodGet, path+"/report", ""); rr.Code != http.StatusConflict {
		t.Fatalf("pending report = %d, want 409", rr.Code)
	}

	if err := gw.pool.Drain(context.Background()); err != nil {
		t.Fatalf("Drain: %v", err)
	}

	got := decode[models.AnalysisJob](t, do(t, gw, http.MethodGet, path, ""))
	if got.Status != models.JobCompleted || got.Overall != 88 || got.Verdict != "Production Ready" {
		t.Errorf("job = %+v", got)
	}
	report := decode[models.AnalysisReport](t, do(t, gw, http.MethodGet, path+"/report", ""))
	if report.Score.Overall != 88 || report.Confidence != models.ConfidenceHigh {
		t.Errorf("report = %+v", report)
	}

	var types []string
	for len(events) > 0 {
		var evt SSEEvent
		raw := strings.TrimSuffix(strings.TrimPrefix(string(<-events), "data: "), "\n\n")
		if err := json.Unmarshal([]byte(raw), &evt); err != nil {
			t.Fatalf("bad frame %q: %v", raw, err)
		}
		types = append(types, evt.Type)
	}
	want := []string{EventAnalysisQueued, EventAnalysisStarted, EventAnalysisCompleted}
	if strings.Join(types, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", types, want)
	}

	if rr := do(t, gw, http.MethodDelete, path, ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", rr.Code)
	}
	if rr := do(t, gw, http.MethodGet, path, ""); rr.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", rr.Code)
	}
	if rr := do(t, gw, http.MethodGet, path+"/report", ""); rr.Code != http.StatusNotFound {
		t.Errorf("report after delete = %d, want 404", rr.Code)
	}
	if rr := do(t, gw, http.MethodDelete, "/api/analyses/abc", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("bad id = %d, want 400", rr.Code)
	}
}

func TestListAnalysesRejectsUnknownStatus(t *testing.T) {
	gw := newTestGateway(t)
	if rr := do(t, gw, http.MethodGet, "/api/analyses?status=bogus", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
	list := decode[paginationResult[models.AnalysisJob]](t, do(t, gw, http.MethodGet, "/api/analyses?status=failed&page=2&page_size=10", ""))
	if list.Items == nil || len(list.Items) != 0 || list.Page != 2 || list.PageSize != 10 {
		t.Errorf("list = %+v", list)
	}
}

func TestScheduleEndpoints(t *testing.T) {
	gw := newTestGateway(t)
	defer gw.scheduler.Stop()

	bad := []string{
		`{"name":"x","expr":"not a cron","url":"https://example.com"}`,
		`{"name":"x","expr":"@daily","url":"ftp://example.com"}`,
		`{"name":"","expr":"@daily","url":"https://example.com"}`,
	}
	for _, body := range bad {
		if rr := do(t, gw, http.MethodPost, "/api/schedules", body); rr.Code != http.StatusBadRequest {
			t.Errorf("POST %s = %d, want 400", body, rr.Code)
		}
	}

	rr := do(t, gw, http.MethodPost, "/api/schedules", `{"name":"nightly","expr":"0 3 * * *","url":"gitlab.com/acme/api"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create = %d: %s", rr.Code, rr.Body.String())
	}
	sched := decode[models.Schedule](t, rr)
	if !sched.Enabled || sched.URL != "https://gitlab.com/acme/api" || gw.scheduler.Registered() != 1 {
		t.Errorf("schedule = %+v, registered = %d", sched, gw.scheduler.Registered())
	}

	list := decode[[]models.Schedule](t, do(t, gw, http.MethodGet, "/api/schedules", ""))
	if len(list) != 1 {
		t.Fatalf("schedules = %d, want 1", len(list))
	}

	path := "/api/schedules/" + itoa(sched.ID)
	if rr := do(t, gw, http.MethodPost, path+"/trigger", ""); rr.Code != http.StatusAccepted {
		t.Fatalf("trigger = %d: %s", rr.Code, rr.Body.String())
	}
	jobs := decode[paginationResult[models.AnalysisJob]](t, do(t, gw, http.MethodGet, "/api/analyses", ""))
	if len(jobs.Items) != 1 || jobs.Items[0].Source != store.SourceSchedule || jobs.Items[0].URL != sched.URL {
		t.Errorf("jobs after trigger = %+v", jobs.Items)
	}
	touched := decode[[]models.Schedule](t, do(t, gw, http.MethodGet, "/api/schedules", ""))
	if touched[0].LastRunAt == "" {
		t.Error("last_run_at not recorded")
	}

	if rr := do(t, gw, http.MethodDelete, path, ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", rr.Code)
	}
	if gw.scheduler.Registered() != 0 {
		t.Errorf("cron entry not removed")
	}
	if rr := do(t, gw, http.MethodDelete, path, ""); rr.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", rr.Code)
	}
	if rr := do(t, gw, http.MethodPost, path+"/trigger", ""); rr.Code != http.StatusNotFound {
		t.Errorf("trigger missing = %d, want 404", rr.Code)
	}
}

func TestStatusReportsCounts(t *testing.T) {
	gw := newTestGateway(t)
	do(t, gw, http.MethodPost, "/api/analyses", `{"url":"https://example.com"}`)
	do(t, gw, http.MethodPost, "/api/analyses", `{"url":"https://example.org"}`)

	st := decode[PoolStatus](t, do(t, gw, http.MethodGet, "/api/status", ""))
	if st.Pending != 2 || st.Workers != 2 || st.Health.Status != "idle" || st.LastTriggerAt == "" {
		t.Errorf("status = %+v", st)
	}
}

func TestConfigIsRedacted(t *testing.T) {
	gw := newTestGateway(t)
	gw.cfg.Git.GitHub = []config.GitHubConfig{{Token: "ghp_abcdefghijklmnop"}}
	gw.cfg.Notify.Webhook.Secret = "short"
	gw.SetConfigPath("/tmp/ctrlgrade.json")

	body := do(t, gw, http.MethodGet, "/api/config", "").Body.String()
	if strings.Contains(body, "ghp_abcdefghijklmnop") || strings.Contains(body, `"short"`) {
		t.Errorf("secrets leaked: %s", body)
	}
	if !strings.Contains(body, "ghp_") || !strings.Contains(body, "/tmp/ctrlgrade.json") {
		t.Errorf("unexpected body: %s", body)
	}
	if gw.cfg.Git.GitHub[0].Token != "ghp_abcdefghijklmnop" {
		t.Error("live config was modified")
	}
}

func TestLogsTail(t *testing.T) {
	gw := newTestGateway(t)
	dir := gw.logDir
	var lines []string
	for i := 0; i < 10; i++ {
		lines = append(lines, "line "+itoa(int64(i)))
	}
	if err := os.WriteFile(filepath.Join(dir, "gateway.log"), []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "gateway-20260101.log"), []byte("old\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	resp := decode[logsResponse](t, do(t, gw, http.MethodGet, "/api/logs?tail=3", ""))
	if resp.SelectedFile != "gateway.log" || len(resp.Files) != 2 {
		t.Fatalf("resp = %+v", resp)
	}
	if strings.Join(resp.Lines, ",") != "line 7,line 8,line 9" {
		t.Errorf("lines = %v", resp.Lines)
	}
	if rr := do(t, gw, http.MethodGet, "/api/logs?file=../etc/passwd", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("traversal = %d, want 400", rr.Code)
	}
	if rr := do(t, gw, http.MethodGet, "/api/logs?tail=0", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("tail=0 = %d, want 400", rr.Code)
	}
}

func TestEventsStreamStartsWithConnected(t *testing.T) {
	gw := newTestGateway(t)
	srv := httptest.NewServer(buildHandler(gw))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /events: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.HasPrefix(line, `data: {"type":"connected"`) {
		t.Errorf("first frame = %q", line)
	}
}

func TestHeartbeatStatus(t *testing.T) {
	gw := newTestGateway(t)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	gw.heartbeat.now = func() time.Time { return now }

	tests := []struct {
		name   string
		active []agent.WorkerStatus
		want   string
	}{
		{"idle", nil, "idle"},
		{"alive", []agent.WorkerStatus{{JobID: 1, StartedAt: now.Add(-time.Minute).Format(time.RFC3339)}}, "alive"},
		{"stuck", []agent.WorkerStatus{
			{JobID: 1, StartedAt: now.Add(-time.Minute).Format(time.RFC3339)},
			{JobID: 2, StartedAt: now.Add(-time.Hour).Format(time.RFC3339)},
		}, "stuck"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := gw.heartbeat.computeStatus(tt.active)
			if got.Status != tt.want {
				t.Errorf("status = %q, want %q", got.Status, tt.want)
			}
			if tt.want == "stuck" && got.StuckForSecs != 3600 {
				t.Errorf("StuckForSecs = %d", got.StuckForSecs)
			}
		})
	}
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
