package analyzer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/CosmoTheDev/ctrlgrade/internal/repository"
	"github.com/CosmoTheDev/ctrlgrade/models"
)

// fakeCloner materialises files into a temp dir instead of cloning.
type fakeCloner struct {
	t       *testing.T
	files   map[string]string
	err     error
	mu      sync.Mutex
	cloned  []string
	cleaned []string
}

func (f *fakeCloner) Clone(_ context.Context, repoURL, _ string) (*repository.WorkingCopy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cloned = append(f.cloned, repoURL)
	if f.err != nil {
		return nil, f.err
	}
	dir := f.t.TempDir()
	for name, content := range f.files {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			f.t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			f.t.Fatal(err)
		}
	}
	return &repository.WorkingCopy{ID: "test", LocalPath: dir}, nil
}

func (f *fakeCloner) Cleanup(wc *repository.WorkingCopy) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleaned = append(f.cleaned, wc.LocalPath)
}

// fakeToolchain returns canned evidence per manifest directory name and
// records the call order.
type fakeToolchain struct {
	calls    []string
	security map[string]*models.SecurityEvidence
	deps     map[string]*models.DependencyEvidence
	lint     map[string]*models.CodeQualityEvidence
}

func base(dir string) string { return filepath.Base(dir) }

func (f *fakeToolchain) Install(_ context.Context, dir string) bool {
	f.calls = append(f.calls, "install "+base(dir))
	return true
}

func (f *fakeToolchain) Audit(_ context.Context, dir string) *models.SecurityEvidence {
	f.calls = append(f.calls, "audit "+base(dir))
	if ev, ok := f.security[base(dir)]; ok {
		return ev
	}
	return &models.SecurityEvidence{Analyzed: true, ProductionAnalyzed: true}
}

func (f *fakeToolchain) Outdated(_ context.Context, m *models.PackageManifest) *models.DependencyEvidence {
	f.calls = append(f.calls, "outdated "+base(m.Dir))
	if ev, ok := f.deps[base(m.Dir)]; ok {
		return ev
	}
	return &models.DependencyEvidence{Analyzed: true, PackageManager: "npm", Total: m.DependencyCount()}
}

func (f *fakeToolchain) Lint(_ context.Context, m *models.PackageManifest) *models.CodeQualityEvidence {
	f.calls = append(f.calls, "lint "+base(m.Dir))
	if ev, ok := f.lint[base(m.Dir)]; ok {
		return ev
	}
	return &models.CodeQualityEvidence{Analyzed: true, HasConfig: true}
}

func (f *fakeToolchain) TypeCheck(_ context.Context, m *models.PackageManifest) *models.TypeCheckEvidence {
	f.calls = append(f.calls, "typecheck "+base(m.Dir))
	return &models.TypeCheckEvidence{}
}

type fakeProber struct {
	ev  *models.DeploymentEvidence
	got string
}

func (f *fakeProber) Probe(_ context.Context, rawURL string) *models.DeploymentEvidence {
	f.got = rawURL
	return f.ev
}

type fakePageSpeed struct{ calls int }

func (f *fakePageSpeed) Run(_ context.Context, _, strategy string) *models.PageSpeedEvidence {
	f.calls++
	return &models.PageSpeedEvidence{Analyzed: true, Strategy: strategy, Performance: 95, Accessibility: 100, BestPractices: 100, SEO: 100}
}

const appManifest = `{
  "name": "shop",
  "private": true,
  "main": "server.js",
  "scripts": {"start": "node server.js", "test": "vitest run"},
  "dependencies": {"express": "^4.19.0"},
  "devDependencies": {"vitest": "^1.6.0", "eslint": "^9.0.0"}
}`

func TestAnalyzeRepository(t *testing.T) {
	cloner := &fakeCloner{t: t, files: map[string]string{
		"package.json":                appManifest,
		"package-lock.json":           "{}",
		"eslint.config.js":            "export default [];",
		"README.md":                   "# shop",
		"LICENSE":                     "MIT",
		".github/workflows/ci.yml":    "jobs:\n  test:\n    steps:\n      - run: npm test\n",
		"src/index.js":                "",
		"tests/app.test.js":           "",
		"frontend/package.json":       `{"name": "shop-web", "private": true, "dependencies": {"react": "^18.0.0"}}`,
		"node_modules/x/package.json": `{"name": "x"}`,
	}}
	tc := &fakeToolchain{
		security: map[string]*models.SecurityEvidence{
			"frontend": {Analyzed: true, ProductionAnalyzed: true,
				All:        models.VulnCounts{Moderate: 1, Total: 1},
				Production: models.VulnCounts{Moderate: 1, Total: 1}},
		},
	}
	var stages []string
	a := NewWithOptions(Options{
		Cloner:    cloner,
		Toolchain: tc,
		Progress:  func(stage, _ string) { stages = append(stages, stage) },
	})

	report, err := a.Analyze(context.Background(), "https://github.com/acme/shop/tree/main/src")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if got := cloner.cloned; len(got) != 1 || got[0] != "https://github.com/acme/shop" {
		t.Errorf("cloned = %v", got)
	}
	if len(cloner.cleaned) != 1 {
		t.Errorf("cleanup calls = %d, want 1", len(cloner.cleaned))
	}

	// Root manifest first, each manifest's collectors in fixed order.
	want := []string{
		"install " + base(cloner.cleaned[0]), "audit " + base(cloner.cleaned[0]),
	}
	if tc.calls[0] != want[0] || tc.calls[1] != want[1] {
		t.Errorf("first calls = %v, want prefix %v", tc.calls[:2], want)
	}
	if len(tc.calls) != 10 {
		t.Errorf("calls = %v, want 5 per manifest", tc.calls)
	}
	if tc.calls[5] != "install frontend" {
		t.Errorf("second manifest should start with install, got %v", tc.calls)
	}

	ev := report.Evidence
	if ev.Security.All.Moderate != 1 || !ev.Security.Analyzed {
		t.Errorf("merged security = %+v", ev.Security)
	}
	if ev.Dependency.Total != 4 {
		t.Errorf("merged dependency total = %d, want 4", ev.Dependency.Total)
	}
	if !ev.Stack.HasTesting || !ev.Stack.CIRunsTests || !ev.Stack.HasStandardLayout {
		t.Errorf("stack = %+v", ev.Stack)
	}
	if report.RepoType != models.RepoTypeApplication {
		t.Errorf("repo type = %s", report.RepoType)
	}
	if report.Confidence != models.ConfidenceHigh {
		t.Errorf("confidence = %s", report.Confidence)
	}
	if report.Score.Overall == 0 || report.Score.Overall > 95 {
		t.Errorf("overall = %d", report.Score.Overall)
	}
	if len(report.Suggestions) == 0 || len(report.Actions) == 0 {
		t.Errorf("suggestions/actions must not be empty")
	}
	if report.ID == "" || report.CompletedAt.Before(report.StartedAt) {
		t.Errorf("report timing/id not set: %+v", report)
	}

	stageOrder := strings.Join(stages, ",")
	if !strings.HasPrefix(stageOrder, "cloning,installing,auditing") || !strings.HasSuffix(stageOrder, "scoring,recommending") {
		t.Errorf("stages = %s", stageOrder)
	}
}

func TestAnalyzeNoManifestTakesCoarsePath(t *testing.T) {
	cloner := &fakeCloner{t: t, files: map[string]string{
		"main.py":   "print('hi')",
		"util.py":   "",
		"README.md": "# tool",
	}}
	tc := &fakeToolchain{}
	a := NewWithOptions(Options{Cloner: cloner, Toolchain: tc})

	report, err := a.Analyze(context.Background(), "https://gitlab.com/acme/tool")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(tc.calls) != 0 {
		t.Errorf("toolchain should not run without a manifest: %v", tc.calls)
	}
	if report.RepoType != models.RepoTypeApplication {
		t.Errorf("repo type = %s", report.RepoType)
	}
	if !report.Evidence.Stack.Coarse || report.Evidence.Stack.Language != "Python" {
		t.Errorf("stack = %+v", report.Evidence.Stack)
	}
	if report.Confidence != models.ConfidenceLow {
		t.Errorf("confidence = %s, want LOW", report.Confidence)
	}
	if len(cloner.cleaned) != 1 {
		t.Errorf("working copy not cleaned up")
	}
}

func TestAnalyzeCloneFailure(t *testing.T) {
	cloner := &fakeCloner{t: t, err: errors.New("repository not found")}
	a := NewWithOptions(Options{Cloner: cloner, Toolchain: &fakeToolchain{}})

	report, err := a.Analyze(context.Background(), "git@github.com:acme/missing.git")
	var acq *AcquisitionError
	if !errors.As(err, &acq) {
		t.Fatalf("err = %v, want *AcquisitionError", err)
	}
	if report == nil || !report.Failed() || !strings.Contains(report.Error, "repository not found") {
		t.Fatalf("report = %+v", report)
	}
	if report.Evidence.Security != nil || report.Evidence.Stack != nil {
		t.Errorf("failed report must carry no evidence: %+v", report.Evidence)
	}
	if len(cloner.cleaned) != 0 {
		t.Errorf("nothing to clean up after a failed clone")
	}
}

func TestAnalyzeUnsupportedTarget(t *testing.T) {
	a := NewWithOptions(Options{Cloner: &fakeCloner{t: t}, Toolchain: &fakeToolchain{}})
	report, err := a.Analyze(context.Background(), "ftp://example.com/file")
	if !errors.Is(err, repository.ErrUnsupportedTarget) || report != nil {
		t.Fatalf("got %v, %v; want ErrUnsupportedTarget and no report", report, err)
	}
}

func TestAnalyzeDeployment(t *testing.T) {
	prober := &fakeProber{ev: &models.DeploymentEvidence{
		Analyzed: true, Reachable: true, StatusCode: 200, HTTPS: true, ResponseTimeMs: 120,
		SecurityHeaders: map[string]bool{}, HTMLParsed: true, Title: "Acme", ContentType: "text/html",
	}}
	psi := &fakePageSpeed{}
	cloner := &fakeCloner{t: t}
	a := NewWithOptions(Options{Cloner: cloner, Prober: prober, PageSpeed: psi, Strategy: "desktop"})

	report, err := a.Analyze(context.Background(), "https://acme.example.com")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(cloner.cloned) != 0 {
		t.Errorf("deployments must not be cloned")
	}
	if prober.got != "https://acme.example.com" || psi.calls != 1 {
		t.Errorf("probe %q, pagespeed calls %d", prober.got, psi.calls)
	}
	if report.Evidence.PageSpeed.Strategy != "desktop" {
		t.Errorf("strategy = %q", report.Evidence.PageSpeed.Strategy)
	}
	if report.Evidence.Security != nil {
		t.Errorf("repository collectors should not apply to deployments")
	}
	if report.Score.Security.Label != "Security" || report.Score.CodeQuality.Label != "Performance" {
		t.Errorf("deployment labels = %s/%s", report.Score.Security.Label, report.Score.CodeQuality.Label)
	}
}

func TestAnalyzeUnreachableDeploymentSkipsPageSpeed(t *testing.T) {
	prober := &fakeProber{ev: &models.DeploymentEvidence{Error: "connection refused"}}
	psi := &fakePageSpeed{}
	a := NewWithOptions(Options{Prober: prober, PageSpeed: psi})

	report, err := a.Analyze(context.Background(), "http://localhost:1")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if psi.calls != 0 {
		t.Errorf("page speed should not run against an unreachable deployment")
	}
	if report.Confidence != models.ConfidenceLow {
		t.Errorf("confidence = %s", report.Confidence)
	}
}

// silentToolchain returns no evidence at all from its collectors.
type silentToolchain struct{}

func (silentToolchain) Install(context.Context, string) bool { return false }
func (silentToolchain) Audit(context.Context, string) *models.SecurityEvidence {
	return nil
}
func (silentToolchain) Outdated(context.Context, *models.PackageManifest) *models.DependencyEvidence {
	return nil
}
func (silentToolchain) Lint(context.Context, *models.PackageManifest) *models.CodeQualityEvidence {
	return nil
}
func (silentToolchain) TypeCheck(context.Context, *models.PackageManifest) *models.TypeCheckEvidence {
	return nil
}

func TestAnalyzeToleratesNilEvidence(t *testing.T) {
	cloner := &fakeCloner{t: t, files: map[string]string{
		"package.json":          appManifest,
		"frontend/package.json": `{"name": "shop-web", "private": true}`,
	}}
	a := NewWithOptions(Options{Cloner: cloner, Toolchain: silentToolchain{}})

	report, err := a.Analyze(context.Background(), "https://github.com/acme/shop")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if report.Confidence != models.ConfidenceLow {
		t.Errorf("confidence = %s, want LOW", report.Confidence)
	}
	if len(report.Suggestions) == 0 || len(report.Actions) == 0 {
		t.Errorf("suggestions/actions must not be empty: %+v", report)
	}
}

func TestMergeIgnoresNilValues(t *testing.T) {
	sec := &models.SecurityEvidence{Analyzed: true, All: models.VulnCounts{High: 1, Total: 1}}
	if got := mergeSecurity(sec, nil); got != sec {
		t.Errorf("mergeSecurity(acc, nil) = %+v", got)
	}
	if got := mergeSecurity(nil, nil); got != nil {
		t.Errorf("mergeSecurity(nil, nil) = %+v", got)
	}
	dep := &models.DependencyEvidence{Analyzed: true, Outdated: 3}
	if got := mergeDependency(dep, nil); got != dep {
		t.Errorf("mergeDependency(acc, nil) = %+v", got)
	}
	cq := &models.CodeQualityEvidence{Analyzed: true, Warnings: 12}
	if got := mergeCodeQuality(cq, nil); got != cq {
		t.Errorf("mergeCodeQuality(acc, nil) = %+v", got)
	}
	tc := &models.TypeCheckEvidence{Analyzed: true, Errors: 2}
	if got := mergeTypeCheck(tc, nil); got != tc {
		t.Errorf("mergeTypeCheck(acc, nil) = %+v", got)
	}
}

func TestMergeSecurity(t *testing.T) {
	var acc *models.SecurityEvidence
	acc = mergeSecurity(acc, &models.SecurityEvidence{Error: "npm audit: ENOLOCK"})
	acc = mergeSecurity(acc, &models.SecurityEvidence{Analyzed: true, ProductionAnalyzed: true,
		All: models.VulnCounts{High: 1, Total: 1}, Findings: []models.VulnFinding{{Package: "a"}}})
	acc = mergeSecurity(acc, &models.SecurityEvidence{Analyzed: true,
		All: models.VulnCounts{Low: 2, Total: 2}, Findings: []models.VulnFinding{{Package: "b"}}})

	if !acc.Analyzed || acc.All.Total != 3 || acc.All.High != 1 {
		t.Errorf("merged = %+v", acc)
	}
	if acc.ProductionAnalyzed {
		t.Errorf("production counts are only trusted when every manifest had them")
	}
	names := []string{acc.Findings[0].Package, acc.Findings[1].Package}
	sort.Strings(names)
	if strings.Join(names, ",") != "a,b" {
		t.Errorf("findings = %v", names)
	}
}

func TestMergeCodeQualityKeepsConfig(t *testing.T) {
	acc := mergeCodeQuality(nil, &models.CodeQualityEvidence{HasConfig: true, Error: "timed out"})
	acc = mergeCodeQuality(acc, &models.CodeQualityEvidence{Analyzed: true, UsedFallback: true, Errors: 2})
	if !acc.Analyzed || !acc.HasConfig || acc.Errors != 2 {
		t.Errorf("merged = %+v", acc)
	}
}
