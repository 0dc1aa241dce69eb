package collector

import (
	"context"
	"log/slog"
	"time"

	"github.com/CosmoTheDev/ctrlgrade/internal/config"
)

// Timeouts bounds each tool invocation.
type Timeouts struct {
	Install   time.Duration
	Audit     time.Duration
	Outdated  time.Duration
	Lint      time.Duration
	TypeCheck time.Duration
}

// TimeoutsFromConfig converts the configured second values.
func TimeoutsFromConfig(cfg config.AnalysisConfig) Timeouts {
	return Timeouts{
		Install:   config.Seconds(cfg.InstallTimeout, 300),
		Audit:     config.Seconds(cfg.AuditTimeout, 120),
		Outdated:  config.Seconds(cfg.OutdatedTimeout, 120),
		Lint:      config.Seconds(cfg.LintTimeout, 180),
		TypeCheck: config.Seconds(cfg.TypeCheckTimeout, 180),
	}
}

// Toolchain runs the package-manager, lint and type-check collectors for
// one manifest directory. Every method degrades to Analyzed=false instead
// of returning an error.
type Toolchain struct {
	runner    CommandRunner
	timeouts  Timeouts
	maxListed int
}

// NewToolchain creates a Toolchain. maxListed bounds the findings, issues
// and outdated entries kept on each Evidence record.
func NewToolchain(runner CommandRunner, timeouts Timeouts, maxListed int) *Toolchain {
	if maxListed <= 0 {
		maxListed = 20
	}
	return &Toolchain{runner: runner, timeouts: timeouts, maxListed: maxListed}
}

// Install installs dependencies with lifecycle scripts disabled. It returns
// false when the install failed; later collectors still run.
func (t *Toolchain) Install(ctx context.Context, dir string) bool {
	args := []string{"install"}
	if hasLockfile(dir) {
		args = []string{"ci"}
	}
	args = append(args, "--ignore-scripts", "--no-audit", "--no-fund", "--loglevel=error")
	c := Command{Dir: dir, Name: "npm", Args: args, Timeout: t.timeouts.Install}

	res := t.runner.Run(ctx, c)
	if res.Err != nil || res.ExitCode != 0 {
		slog.Warn("Dependency install failed", "dir", dir, "collector", "install", "error", failure(c, res))
		return false
	}
	slog.Info("Installed dependencies", "dir", dir, "duration", res.Duration.Round(time.Millisecond))
	return true
}
