// Package analyzer is the single entry point that turns a URL into an
// AnalysisReport.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/CosmoTheDev/ctrlgrade/internal/classifier"
	"github.com/CosmoTheDev/ctrlgrade/internal/collector"
	"github.com/CosmoTheDev/ctrlgrade/internal/config"
	"github.com/CosmoTheDev/ctrlgrade/internal/recommend"
	"github.com/CosmoTheDev/ctrlgrade/internal/repository"
	"github.com/CosmoTheDev/ctrlgrade/internal/scoring"
	"github.com/CosmoTheDev/ctrlgrade/models"
)

// Cloner acquires and releases working copies.
type Cloner interface {
	Clone(ctx context.Context, repoURL, token string) (*repository.WorkingCopy, error)
	Cleanup(wc *repository.WorkingCopy)
}

// Toolchain runs the per-manifest collectors. Every method degrades to
// Analyzed=false instead of failing.
type Toolchain interface {
	Install(ctx context.Context, dir string) bool
	Audit(ctx context.Context, dir string) *models.SecurityEvidence
	Outdated(ctx context.Context, m *models.PackageManifest) *models.DependencyEvidence
	Lint(ctx context.Context, m *models.PackageManifest) *models.CodeQualityEvidence
	TypeCheck(ctx context.Context, m *models.PackageManifest) *models.TypeCheckEvidence
}

// Prober fetches a live deployment.
type Prober interface {
	Probe(ctx context.Context, rawURL string) *models.DeploymentEvidence
}

// PageSpeed assesses a live deployment with an external service.
type PageSpeed interface {
	Run(ctx context.Context, target, strategy string) *models.PageSpeedEvidence
}

// Options wires an Analyzer. Nil PageSpeed disables the assessment; nil
// Metadata skips hosting-API enrichment.
type Options struct {
	Cloner     Cloner
	Toolchain  Toolchain
	Prober     Prober
	PageSpeed  PageSpeed
	Strategy   string
	Classifier classifier.Classifier
	Engine     *scoring.Engine

	Metadata     func(models.AnalysisTarget) repository.MetadataProvider
	Token        func(models.AnalysisTarget) string
	CloneTimeout time.Duration
	MaxListed    int

	// Progress, when set, is called at every pipeline stage.
	Progress func(stage, detail string)
}

// Analyzer runs one analysis per Analyze call. It holds no per-run state, so
// one Analyzer may serve concurrent runs.
type Analyzer struct {
	opts Options
}

// New wires an Analyzer with the real collectors described by cfg.
func New(cfg *config.Config) *Analyzer {
	runner := collector.NewExecRunner(cfg.Analysis.BinDir, cfg.Analysis.PreferDocker, cfg.Analysis.NodeImage)
	opts := Options{
		Cloner:       repository.NewCloneManager(""),
		Toolchain:    collector.NewToolchain(runner, collector.TimeoutsFromConfig(cfg.Analysis), cfg.Analysis.MaxListed),
		Prober:       collector.NewDeploymentProbe(config.Seconds(cfg.Analysis.ProbeTimeout, 30)),
		Strategy:     cfg.PageSpeed.Strategy,
		Metadata:     func(t models.AnalysisTarget) repository.MetadataProvider { return repository.MetadataFor(cfg, t) },
		Token:        func(t models.AnalysisTarget) string { return repository.TokenFor(cfg, t) },
		CloneTimeout: config.Seconds(cfg.Analysis.CloneTimeout, 300),
		MaxListed:    cfg.Analysis.MaxListed,
	}
	if cfg.PageSpeed.Enabled {
		opts.PageSpeed = collector.NewPageSpeedClient(cfg.PageSpeed, "")
	}
	return NewWithOptions(opts)
}

// NewWithOptions creates an Analyzer from explicit components.
func NewWithOptions(opts Options) *Analyzer {
	if opts.Classifier == nil {
		opts.Classifier = classifier.New()
	}
	if opts.Engine == nil {
		opts.Engine = scoring.NewEngine()
	}
	if opts.MaxListed <= 0 {
		opts.MaxListed = 20
	}
	if opts.CloneTimeout <= 0 {
		opts.CloneTimeout = 5 * time.Minute
	}
	return &Analyzer{opts: opts}
}

// WithProgress returns a copy of a that reports pipeline stages to fn.
func (a *Analyzer) WithProgress(fn func(stage, detail string)) *Analyzer {
	opts := a.opts
	opts.Progress = fn
	return &Analyzer{opts: opts}
}

// Analyze resolves rawURL, collects evidence, and scores it. The returned
// error is repository.ErrUnsupportedTarget (no report) or an
// *AcquisitionError (report with Error set and no evidence). Collector
// failures never surface here; they lower confidence instead.
func (a *Analyzer) Analyze(ctx context.Context, rawURL string) (*models.AnalysisReport, error) {
	target, err := repository.ResolveTarget(rawURL)
	if err != nil {
		return nil, err
	}

	report := &models.AnalysisReport{
		ID:        uuid.NewString(),
		Target:    target,
		RepoType:  models.RepoTypeApplication,
		StartedAt: time.Now().UTC(),
	}
	defer func() {
		report.CompletedAt = time.Now().UTC()
		report.DurationMs = report.CompletedAt.Sub(report.StartedAt).Milliseconds()
	}()

	slog.Info("Analysis started", "url", target.URL, "kind", target.Kind, "id", report.ID)

	switch target.Kind {
	case models.TargetDeployment:
		a.collectDeployment(ctx, report)
	default:
		if err := a.collectRepository(ctx, report); err != nil {
			report.Error = err.Error()
			slog.Error("Analysis failed", "url", target.URL, "error", err)
			return report, err
		}
	}

	a.progress("scoring", "")
	res := a.opts.Engine.Score(target.Kind, report.Evidence, report.RepoType)
	report.Score = res.Breakdown
	report.Confidence = res.Confidence
	report.Verdict = res.Verdict

	a.progress("recommending", "")
	in := recommend.Input{
		URL:        target.URL,
		Kind:       target.Kind,
		RepoType:   report.RepoType,
		Evidence:   report.Evidence,
		Score:      res.Breakdown,
		Confidence: res.Confidence,
	}
	report.Suggestions = recommend.Suggestions(in)
	report.Actions = recommend.Actions(in)

	slog.Info("Analysis completed", "url", target.URL, "overall", report.Score.Overall,
		"confidence", report.Confidence, "verdict", report.Verdict.Label,
		"duration", time.Since(report.StartedAt).Round(time.Millisecond))
	return report, nil
}

func (a *Analyzer) progress(stage, detail string) {
	if a.opts.Progress != nil {
		a.opts.Progress(stage, detail)
	}
}

func (a *Analyzer) collectRepository(ctx context.Context, report *models.AnalysisReport) error {
	target := report.Target
	token := ""
	if a.opts.Token != nil {
		token = a.opts.Token(target)
	}

	a.progress("cloning", target.URL)
	cloneCtx, cancel := context.WithTimeout(ctx, a.opts.CloneTimeout)
	wc, err := a.opts.Cloner.Clone(cloneCtx, target.URL, token)
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("clone timed out after %s: %w", a.opts.CloneTimeout, err)
		}
		return &AcquisitionError{URL: target.URL, Err: err}
	}
	defer a.opts.Cloner.Cleanup(wc)

	report.Metadata = a.fetchMetadata(ctx, target)

	root := wc.LocalPath
	manifests := collector.DiscoverManifests(root)
	if len(manifests) == 0 {
		slog.Info("No package manifest found; using coarse detection", "url", target.URL)
		const reason = "no package manifest found"
		report.Evidence = models.Evidence{
			Security:    &models.SecurityEvidence{Error: reason},
			Dependency:  &models.DependencyEvidence{Error: reason},
			CodeQuality: &models.CodeQualityEvidence{Error: reason},
			Stack:       collector.ProbeStack(root, nil),
		}
		return nil
	}

	ev := &report.Evidence
	tc := a.opts.Toolchain
	for _, m := range manifests {
		// Each step below depends on the install, and each may fail alone.
		a.progress("installing", m.RelDir)
		tc.Install(ctx, m.Dir)

		a.progress("auditing", m.RelDir)
		ev.Security = mergeSecurity(ev.Security, tc.Audit(ctx, m.Dir))

		a.progress("checking outdated dependencies", m.RelDir)
		ev.Dependency = mergeDependency(ev.Dependency, tc.Outdated(ctx, m))

		a.progress("linting", m.RelDir)
		ev.CodeQuality = mergeCodeQuality(ev.CodeQuality, tc.Lint(ctx, m))

		a.progress("type checking", m.RelDir)
		ev.TypeCheck = mergeTypeCheck(ev.TypeCheck, tc.TypeCheck(ctx, m))
	}
	truncate(ev, a.opts.MaxListed)

	a.progress("detecting stack", "")
	ev.Stack = collector.ProbeStack(root, manifests)
	report.RepoType = a.opts.Classifier.Classify(classifier.Primary(manifests))
	slog.Info("Project classified", "url", target.URL, "repo_type", report.RepoType,
		"manifests", len(manifests))
	return nil
}

func (a *Analyzer) fetchMetadata(ctx context.Context, target models.AnalysisTarget) *models.RepoMetadata {
	if a.opts.Metadata == nil {
		return nil
	}
	p := a.opts.Metadata(target)
	if p == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	md, err := p.Fetch(ctx, target.Owner, target.Repo)
	if err != nil {
		slog.Warn("Repository metadata unavailable", "url", target.URL, "provider", p.Name(), "error", err)
		return nil
	}
	return md
}

func (a *Analyzer) collectDeployment(ctx context.Context, report *models.AnalysisReport) {
	url := report.Target.URL

	a.progress("probing", url)
	report.Evidence.Deployment = a.opts.Prober.Probe(ctx, url)

	if a.opts.PageSpeed == nil {
		return
	}
	if d := report.Evidence.Deployment; d == nil || !d.Reachable {
		report.Evidence.PageSpeed = &models.PageSpeedEvidence{Error: "deployment unreachable"}
		return
	}
	a.progress("assessing page speed", url)
	report.Evidence.PageSpeed = a.opts.PageSpeed.Run(ctx, url, a.opts.Strategy)
}
