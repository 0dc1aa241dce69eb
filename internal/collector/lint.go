package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/CosmoTheDev/ctrlgrade/models"
)

// FallbackLintConfig is written into the working copy when the project has no
// lint configuration of its own. It parses modern syntax (latest ECMAScript,
// modules, JSX), enables a handful of correctness rules and no style rules.
// no-undef stays off because browser/node globals are unknown here.
const FallbackLintConfig = `export default [
  {
    ignores: ["**/node_modules/**", "**/dist/**", "**/build/**", "**/coverage/**", "**/.next/**", "**/*.min.js"],
  },
  {
    files: ["**/*.js", "**/*.mjs", "**/*.cjs", "**/*.jsx"],
    languageOptions: {
      ecmaVersion: "latest",
      sourceType: "module",
      parserOptions: { ecmaFeatures: { jsx: true } },
    },
    rules: {
      "no-undef": "off",
      "no-unused-vars": "warn",
      "no-unreachable": "error",
      "no-dupe-keys": "error",
      "no-dupe-args": "error",
      "no-duplicate-case": "error",
      "no-func-assign": "error",
      "no-self-assign": "error",
      "no-debugger": "warn",
      "no-empty": "warn",
      "no-constant-condition": "warn",
    },
  },
];
`

// fallbackConfigName is the file the fallback config is written to.
const fallbackConfigName = "ctrlgrade.eslint.config.mjs"

var lintConfigFiles = []string{
	"eslint.config.js", "eslint.config.mjs", "eslint.config.cjs",
	"eslint.config.ts", "eslint.config.mts", "eslint.config.cts",
	".eslintrc", ".eslintrc.js", ".eslintrc.cjs", ".eslintrc.json",
	".eslintrc.yml", ".eslintrc.yaml",
}

// HasLintConfig reports whether dir (or its manifest) configures ESLint.
func HasLintConfig(dir string, m *models.PackageManifest) bool {
	for _, f := range lintConfigFiles {
		if fileExists(filepath.Join(dir, f)) {
			return true
		}
	}
	return m != nil && len(m.ESLintConfig) > 0 && string(m.ESLintConfig) != "null"
}

type eslintFileResult struct {
	FilePath string `json:"filePath"`
	Messages []struct {
		RuleID   *string `json:"ruleId"`
		Severity int     `json:"severity"`
		Message  string  `json:"message"`
		Line     int     `json:"line"`
	} `json:"messages"`
	ErrorCount   int `json:"errorCount"`
	WarningCount int `json:"warningCount"`
}

// ParseESLint converts ESLint's JSON formatter output. The output must be a
// JSON array; anything else is rejected. File paths are made relative to root.
func ParseESLint(data []byte, root string) (errs, warns int, issues []models.LintIssue, err error) {
	data = trimToJSON(data, '[')
	if len(data) == 0 {
		return 0, 0, nil, fmt.Errorf("empty lint output")
	}
	var files []eslintFileResult
	if err := json.Unmarshal(data, &files); err != nil {
		return 0, 0, nil, fmt.Errorf("parsing lint JSON: %w", err)
	}
	for _, f := range files {
		errs += f.ErrorCount
		warns += f.WarningCount
		rel := f.FilePath
		if r, err := filepath.Rel(root, f.FilePath); err == nil && !strings.HasPrefix(r, "..") {
			rel = r
		}
		for _, msg := range f.Messages {
			issue := models.LintIssue{
				File:     filepath.ToSlash(rel),
				Line:     msg.Line,
				Message:  msg.Message,
				Severity: models.SeverityModerate,
			}
			if msg.Severity >= 2 {
				issue.Severity = models.SeverityHigh
			}
			if msg.RuleID != nil {
				issue.RuleID = *msg.RuleID
			}
			issues = append(issues, issue)
		}
	}
	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].Severity.Weight() > issues[j].Severity.Weight()
	})
	return errs, warns, issues, nil
}

// Lint runs ESLint over the manifest directory. Without a project config the
// fallback config is written into the (disposable) working copy.
func (t *Toolchain) Lint(ctx context.Context, m *models.PackageManifest) *models.CodeQualityEvidence {
	dir := m.Dir
	ev := &models.CodeQualityEvidence{HasConfig: HasLintConfig(dir, m)}

	args := []string{".", "--format", "json", "--no-error-on-unmatched-pattern"}
	var env []string
	if !ev.HasConfig {
		path := filepath.Join(dir, fallbackConfigName)
		if err := os.WriteFile(path, []byte(FallbackLintConfig), 0o644); err != nil {
			ev.Error = fmt.Sprintf("writing fallback lint config: %v", err)
			slog.Warn("Lint skipped", "dir", dir, "collector", "lint", "error", err)
			return ev
		}
		args = append(args, "--config", fallbackConfigName)
		// ESLint 8 only reads a flat config when asked to.
		env = []string{"ESLINT_USE_FLAT_CONFIG=true"}
		ev.UsedFallback = true
	}

	c := Command{Dir: dir, Name: "eslint", Args: args, Env: env, Timeout: t.timeouts.Lint}
	res := t.runner.Run(ctx, c)
	if errors.Is(res.Err, ErrToolNotFound) || (res.Err == nil && res.ExitCode == 127) {
		// Project does not ship ESLint; fetch a pinned major through npx.
		c = Command{Dir: dir, Name: "npx", Args: append([]string{"--yes", "eslint@9"}, args...), Env: env, Timeout: t.timeouts.Lint}
		res = t.runner.Run(ctx, c)
	}
	if res.Err != nil {
		ev.Error = failure(c, res)
		slog.Warn("Lint failed", "dir", dir, "collector", "lint", "error", ev.Error)
		return ev
	}

	errs, warns, issues, err := ParseESLint(res.Stdout, dir)
	if err != nil {
		// Exit code 2 is a configuration or crash; its stdout is not a report.
		ev.Error = fmt.Sprintf("%v (%s)", err, failure(c, res))
		slog.Warn("Lint output rejected", "dir", dir, "collector", "lint", "error", ev.Error)
		return ev
	}
	ev.Analyzed = true
	ev.Errors = errs
	ev.Warnings = warns
	if len(issues) > t.maxListed {
		issues = issues[:t.maxListed]
	}
	ev.Issues = issues
	slog.Info("Lint completed", "dir", dir, "errors", errs, "warnings", warns, "fallback", ev.UsedFallback)
	return ev
}
