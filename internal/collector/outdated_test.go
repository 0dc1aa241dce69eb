package collector

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/CosmoTheDev/ctrlgrade/models"
)

func TestParseOutdated(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    int
		wantErr bool
	}{
		{name: "nothing outdated", in: "{}", want: 0},
		{name: "empty output", in: "", wantErr: true},
		{name: "whitespace", in: " \n", wantErr: true},
		{name: "garbage", in: "npm ERR! code E404", wantErr: true},
		{name: "two packages", in: `{
			"react": {"current": "17.0.2", "wanted": "17.0.2", "latest": "18.3.1"},
			"axios": {"current": "0.21.1", "wanted": "0.21.4", "latest": "1.7.2"}
		}`, want: 2},
		{name: "workspace array form", in: `{"lodash": [{"current": "4.17.20", "wanted": "4.17.21", "latest": "4.17.21"}]}`, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkgs, err := ParseOutdated([]byte(tt.in))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %d packages", len(pkgs))
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseOutdated: %v", err)
			}
			if len(pkgs) != tt.want {
				t.Fatalf("got %d packages, want %d", len(pkgs), tt.want)
			}
		})
	}
}

func TestParseOutdatedSortsByName(t *testing.T) {
	pkgs, err := ParseOutdated([]byte(`{"zod": {"latest": "3"}, "axios": {"latest": "1"}}`))
	if err != nil {
		t.Fatal(err)
	}
	if pkgs[0].Name != "axios" || pkgs[1].Name != "zod" {
		t.Fatalf("unexpected order: %+v", pkgs)
	}
}

func TestOutdatedCountsDeclaredDependencies(t *testing.T) {
	dir := t.TempDir()
	m := &models.PackageManifest{
		Dir:             dir,
		Path:            filepath.Join(dir, "package.json"),
		Dependencies:    map[string]string{"react": "^17", "axios": "^0.21"},
		DevDependencies: map[string]string{"jest": "^29"},
	}
	r := newFakeRunner().on("npm outdated --json", Result{
		Stdout:   []byte(`{"react": {"current": "17.0.2", "wanted": "17.0.2", "latest": "18.3.1"}}`),
		ExitCode: 1,
	})
	ev := testToolchain(r).Outdated(context.Background(), m)
	if !ev.Analyzed || ev.Outdated != 1 || ev.Total != 3 {
		t.Fatalf("unexpected evidence: %+v", ev)
	}
	if ev.PackageManager != "npm" {
		t.Fatalf("package manager = %q", ev.PackageManager)
	}
}

func TestOutdatedEmptyOutputIsNotAnalyzed(t *testing.T) {
	dir := t.TempDir()
	m := &models.PackageManifest{Dir: dir, Dependencies: map[string]string{"react": "^18"}}
	r := newFakeRunner().on("npm outdated --json", Result{})
	ev := testToolchain(r).Outdated(context.Background(), m)
	if ev.Analyzed {
		t.Fatalf("empty output must not count as zero outdated: %+v", ev)
	}
}
