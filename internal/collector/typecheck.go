package collector

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"regexp"

	"github.com/CosmoTheDev/ctrlgrade/models"
)

var tsErrorRe = regexp.MustCompile(`error TS\d+`)

// CountTypeErrors counts compiler diagnostics of the form "error TSnnnn".
func CountTypeErrors(out []byte) int {
	return len(tsErrorRe.FindAll(out, -1))
}

// HasTypeScript reports whether the manifest directory is a TypeScript project.
func HasTypeScript(m *models.PackageManifest) bool {
	if m == nil {
		return false
	}
	return fileExists(filepath.Join(m.Dir, "tsconfig.json")) || m.HasDependency("typescript")
}

// TypeCheck runs `tsc --noEmit`. Projects without a tsconfig are reported as
// not configured and are not run.
func (t *Toolchain) TypeCheck(ctx context.Context, m *models.PackageManifest) *models.TypeCheckEvidence {
	ev := &models.TypeCheckEvidence{Configured: fileExists(filepath.Join(m.Dir, "tsconfig.json"))}
	if !ev.Configured {
		return ev
	}

	args := []string{"--noEmit", "--pretty", "false"}
	c := Command{Dir: m.Dir, Name: "tsc", Args: args, Timeout: t.timeouts.TypeCheck}
	res := t.runner.Run(ctx, c)
	if errors.Is(res.Err, ErrToolNotFound) {
		c = Command{Dir: m.Dir, Name: "npx", Args: append([]string{"--yes", "-p", "typescript", "tsc"}, args...), Timeout: t.timeouts.TypeCheck}
		res = t.runner.Run(ctx, c)
	}
	if res.Err != nil {
		ev.Error = failure(c, res)
		slog.Warn("Type check failed", "dir", m.Dir, "collector", "typecheck", "error", ev.Error)
		return ev
	}

	out := append(append([]byte{}, res.Stdout...), res.Stderr...)
	n := CountTypeErrors(out)
	if res.ExitCode != 0 && n == 0 {
		// Non-zero without diagnostics means tsc itself failed (bad config, crash).
		ev.Error = failure(c, res)
		slog.Warn("Type check produced no diagnostics", "dir", m.Dir, "collector", "typecheck", "error", ev.Error)
		return ev
	}
	ev.Analyzed = true
	ev.Errors = n
	slog.Info("Type check completed", "dir", m.Dir, "errors", n)
	return ev
}
