package collector

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/CosmoTheDev/ctrlgrade/models"
)

func eslintOutput(root string) string {
	return `[
	  {"filePath": "` + filepath.Join(root, "src", "index.js") + `",
	   "messages": [
	     {"ruleId": "no-unused-vars", "severity": 1, "message": "'x' is defined but never used.", "line": 3},
	     {"ruleId": "no-unreachable", "severity": 2, "message": "Unreachable code.", "line": 9}
	   ],
	   "errorCount": 1, "warningCount": 1},
	  {"filePath": "` + filepath.Join(root, "src", "clean.js") + `", "messages": [], "errorCount": 0, "warningCount": 0}
	]`
}

func TestParseESLint(t *testing.T) {
	root := t.TempDir()
	errs, warns, issues, err := ParseESLint([]byte(eslintOutput(root)), root)
	if err != nil {
		t.Fatalf("ParseESLint: %v", err)
	}
	if errs != 1 || warns != 1 || len(issues) != 2 {
		t.Fatalf("got errs=%d warns=%d issues=%d", errs, warns, len(issues))
	}
	if issues[0].RuleID != "no-unreachable" || issues[0].Severity != models.SeverityHigh {
		t.Fatalf("errors should sort first: %+v", issues[0])
	}
	if issues[0].File != "src/index.js" {
		t.Fatalf("file path not relativised: %q", issues[0].File)
	}
}

func TestParseESLintRejectsNonArray(t *testing.T) {
	for _, in := range []string{"", "Oops! Something went wrong!", `{"errorCount": 0}`} {
		if _, _, _, err := ParseESLint([]byte(in), "/"); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestLintWritesFallbackConfigWhenProjectHasNone(t *testing.T) {
	dir := t.TempDir()
	m := &models.PackageManifest{Dir: dir}
	cmd := "eslint . --format json --no-error-on-unmatched-pattern --config " + fallbackConfigName
	r := newFakeRunner().on(cmd, Result{Stdout: []byte(eslintOutput(dir)), ExitCode: 1})

	ev := testToolchain(r).Lint(context.Background(), m)
	if !ev.Analyzed || !ev.UsedFallback || ev.HasConfig {
		t.Fatalf("unexpected evidence: %+v", ev)
	}
	data, err := os.ReadFile(filepath.Join(dir, fallbackConfigName))
	if err != nil {
		t.Fatalf("fallback config not written: %v", err)
	}
	if !strings.Contains(string(data), `"no-undef": "off"`) || !strings.Contains(string(data), `ecmaVersion: "latest"`) {
		t.Fatalf("fallback config missing expected settings:\n%s", data)
	}
	if got := r.calls[0].Env; len(got) != 1 || got[0] != "ESLINT_USE_FLAT_CONFIG=true" {
		t.Fatalf("fallback run env = %v, want flat config forced", got)
	}
}

func TestLintUsesProjectConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "eslint.config.js"), "export default [];")
	m := &models.PackageManifest{Dir: dir}
	r := newFakeRunner().on("eslint . --format json --no-error-on-unmatched-pattern", Result{Stdout: []byte("[]")})

	ev := testToolchain(r).Lint(context.Background(), m)
	if !ev.Analyzed || ev.UsedFallback || !ev.HasConfig {
		t.Fatalf("unexpected evidence: %+v", ev)
	}
	if _, err := os.Stat(filepath.Join(dir, fallbackConfigName)); !os.IsNotExist(err) {
		t.Fatal("fallback config must not be written when the project has one")
	}
	if len(r.calls[0].Env) != 0 {
		t.Fatalf("project config run env = %v, want none", r.calls[0].Env)
	}
}

func TestLintFallsBackToNpx(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".eslintrc.json"), "{}")
	m := &models.PackageManifest{Dir: dir}
	r := newFakeRunner().on("npx --yes eslint@9 . --format json --no-error-on-unmatched-pattern", Result{Stdout: []byte("[]")})

	ev := testToolchain(r).Lint(context.Background(), m)
	if !ev.Analyzed {
		t.Fatalf("expected npx fallback to succeed: %+v", ev)
	}
}

func TestLintCrashIsNotAnalyzed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".eslintrc.json"), "{}")
	m := &models.PackageManifest{Dir: dir}
	r := newFakeRunner().on("eslint . --format json --no-error-on-unmatched-pattern", Result{
		Stderr:   []byte("Oops! Something went wrong!"),
		ExitCode: 2,
	})
	ev := testToolchain(r).Lint(context.Background(), m)
	if ev.Analyzed || ev.Error == "" {
		t.Fatalf("expected not analyzed with error: %+v", ev)
	}
}

func TestHasLintConfigFromManifest(t *testing.T) {
	m := &models.PackageManifest{ESLintConfig: []byte(`{"extends": "eslint:recommended"}`)}
	if !HasLintConfig(t.TempDir(), m) {
		t.Fatal("eslintConfig in package.json should count as a lint config")
	}
}
