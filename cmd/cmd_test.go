package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/CosmoTheDev/ctrlgrade/internal/config"
	"github.com/CosmoTheDev/ctrlgrade/models"
	"go.yaml.in/yaml/v3"
)

func testReport() *models.AnalysisReport {
	return &models.AnalysisReport{
		ID:         "r-42",
		Target:     models.AnalysisTarget{URL: "https://github.com/acme/shop", Kind: models.TargetRepository, Owner: "acme", Repo: "shop"},
		RepoType:   models.RepoTypeApplication,
		Confidence: models.ConfidenceMedium,
		Verdict:    models.Verdict{Label: "Needs Polish", Color: "yellow"},
		Score: models.ScoreBreakdown{
			Security: models.Category{Key: "security", Label: "Security", Earned: 20, Max: 30},
			Overall:  61,
		},
	}
}

func TestWriteReportFormats(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := writeReport(&buf, testReport(), "json"); err != nil {
			t.Fatalf("writeReport: %v", err)
		}
		var got models.AnalysisReport
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("output is not JSON: %v", err)
		}
		if got.Score.Overall != 61 || got.Verdict.Label != "Needs Polish" {
			t.Fatalf("decoded = %+v", got)
		}
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		if err := writeReport(&buf, testReport(), "yaml"); err != nil {
			t.Fatalf("writeReport: %v", err)
		}
		var got map[string]any
		if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("output is not YAML: %v", err)
		}
		score, ok := got["score"].(map[string]any)
		if !ok || score["overall"] != 61 {
			t.Fatalf("score = %#v", got["score"])
		}
		if target, ok := got["target"].(map[string]any); !ok || target["url"] != "https://github.com/acme/shop" {
			t.Fatalf("target = %#v", got["target"])
		}
	})

	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		if err := writeReport(&buf, testReport(), "table"); err != nil {
			t.Fatalf("writeReport: %v", err)
		}
		out := buf.String()
		if !strings.Contains(out, "acme/shop") || !strings.Contains(out, "61/100") {
			t.Fatalf("table output:\n%s", out)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		if err := writeReport(&bytes.Buffer{}, testReport(), "xml"); err == nil {
			t.Fatal("expected an error for an unknown format")
		}
	})
}

func TestParseJobID(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"12", 12, false},
		{"#7", 7, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		got, err := parseJobID(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseJobID(%q) = %d, %v", tt.in, got, err)
		}
	}
}

func TestRedactSecrets(t *testing.T) {
	cfg := &config.Config{}
	cfg.Database.DSN = "user:pw@tcp(db)/x"
	cfg.PageSpeed.APIKey = "AIzaSecret"
	cfg.Git.GitHub = []config.GitHubConfig{{Token: "ghp_real", Host: "github.com"}, {Host: "ghe.example.com"}}
	cfg.Notify.Webhook.Secret = "s3cret"
	cfg.Notify.Webhook.URL = "https://hooks.example.com/in"

	redactSecrets(cfg)

	data, _ := json.Marshal(cfg)
	for _, secret := range []string{"user:pw", "AIzaSecret", "ghp_real", "s3cret"} {
		if strings.Contains(string(data), secret) {
			t.Errorf("secret %q leaked: %s", secret, data)
		}
	}
	if cfg.Git.GitHub[1].Token != "" {
		t.Error("empty token should stay empty")
	}
	if cfg.Notify.Webhook.URL != "https://hooks.example.com/in" {
		t.Error("non-secret webhook URL should be kept")
	}
}

func TestOnboardValidators(t *testing.T) {
	tests := []struct {
		name    string
		fn      func(string) error
		in      string
		wantErr bool
	}{
		{"workers ok", validatePositiveInt, " 4 ", false},
		{"workers zero", validatePositiveInt, "0", true},
		{"workers text", validatePositiveInt, "many", true},
		{"score blank", validateOptionalScore, "", false},
		{"score ok", validateOptionalScore, "70", false},
		{"score high", validateOptionalScore, "101", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(tt.in); (err != nil) != tt.wantErr {
				t.Fatalf("got %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPrintJobs(t *testing.T) {
	var buf bytes.Buffer
	printJobs(&buf, []models.AnalysisJob{
		{ID: 2, Kind: "deployment", URL: "https://example.com", Status: models.JobFailed, ErrorMsg: "timeout"},
		{ID: 1, Kind: "repository", URL: "https://github.com/acme/shop", Status: models.JobCompleted, Overall: 88, Verdict: "Production Ready"},
	})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[1], "timeout") || strings.Contains(lines[1], " 0 ") {
		t.Errorf("failed row = %q", lines[1])
	}
	if !strings.Contains(lines[2], "88") || !strings.Contains(lines[2], "Production Ready") {
		t.Errorf("completed row = %q", lines[2])
	}
}

func TestProgressLine(t *testing.T) {
	if got := progressLine("scoring", ""); got != "  → scoring" {
		t.Fatalf("got %q", got)
	}
	if got := progressLine("cloning", "https://github.com/a/b"); got != "  → cloning https://github.com/a/b" {
		t.Fatalf("got %q", got)
	}
}
