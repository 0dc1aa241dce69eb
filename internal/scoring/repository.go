package scoring

import (
	"fmt"

	"github.com/CosmoTheDev/ctrlgrade/models"
)

// Category maxima for repository targets.
const (
	SecurityMax     = 30
	CodeQualityMax  = 25
	TestingMax      = 20
	DependenciesMax = 10
	HygieneMax      = 10
)

func security(in *Input) *models.SecurityEvidence { return in.Evidence.Security }

func auditRan(in *Input) bool {
	s := security(in)
	return s != nil && s.Analyzed
}

func vulns(in *Input) models.VulnCounts { return in.Policy.Vulns(security(in)) }

func scope(in *Input) string {
	if in.Policy.UsesProductionCounts(security(in)) {
		return "production "
	}
	return ""
}

var repositorySecurity = Rubric{
	Key: "security", Label: "Security", Max: SecurityMax,
	Rules: []Rule{
		{
			Name:   "audit-not-run",
			When:   func(in *Input) bool { return !auditRan(in) },
			Op:     Floor,
			Points: 5,
			Detail: func(in *Input) string {
				if s := security(in); s != nil && s.Error != "" {
					return "Dependency audit could not run: " + s.Error
				}
				return "Dependency audit could not run"
			},
		},
		{
			Name:   "no-critical",
			When:   func(in *Input) bool { return auditRan(in) && vulns(in).Critical == 0 },
			Op:     Add,
			Points: 10,
			Detail: func(in *Input) string { return fmt.Sprintf("No critical %svulnerabilities", scope(in)) },
		},
		{
			Name:   "critical-found",
			When:   func(in *Input) bool { return auditRan(in) && vulns(in).Critical > 0 },
			Op:     Note,
			Detail: func(in *Input) string {
				return fmt.Sprintf("%d critical %svulnerabilities (+0)", vulns(in).Critical, scope(in))
			},
		},
		{
			Name:   "no-high",
			When:   func(in *Input) bool { return auditRan(in) && vulns(in).High == 0 },
			Op:     Add,
			Points: 10,
			Detail: func(in *Input) string { return fmt.Sprintf("No high %svulnerabilities", scope(in)) },
		},
		{
			Name:   "high-found",
			When:   func(in *Input) bool { return auditRan(in) && vulns(in).High > 0 },
			Op:     Note,
			Detail: func(in *Input) string {
				return fmt.Sprintf("%d high %svulnerabilities (+0)", vulns(in).High, scope(in))
			},
		},
		{
			Name:   "no-moderate",
			When:   func(in *Input) bool { return auditRan(in) && vulns(in).Moderate == 0 },
			Op:     Add,
			Points: 5,
			Detail: func(in *Input) string { return fmt.Sprintf("No moderate %svulnerabilities", scope(in)) },
		},
		{
			Name:   "moderate-partial",
			When:   func(in *Input) bool { return auditRan(in) && vulns(in).Moderate > 0 },
			Op:     Add,
			Points: 2,
			Detail: func(in *Input) string {
				return fmt.Sprintf("%d moderate %svulnerabilities, partial credit", vulns(in).Moderate, scope(in))
			},
		},
		{
			Name:   "clean-report",
			When:   func(in *Input) bool { return auditRan(in) && vulns(in).Total == 0 },
			Op:     Add,
			Points: 5,
			Detail: text("Clean audit report"),
		},
		{
			Name: "dev-only-findings",
			When: func(in *Input) bool {
				s := security(in)
				return in.Policy.UsesProductionCounts(s) && s.All.Total > s.Production.Total
			},
			Op:     Note,
			Detail: func(in *Input) string {
				s := security(in)
				return fmt.Sprintf("%d vulnerabilities only in devDependencies (informational, not scored)",
					s.All.Total-s.Production.Total)
			},
		},
		{
			Name:   "critical-cap",
			When:   func(in *Input) bool { return auditRan(in) && vulns(in).Critical > 0 },
			Op:     Cap,
			Points: 10,
			Detail: text("Critical vulnerabilities present"),
		},
		{
			Name:   "high-cap",
			When:   func(in *Input) bool { return auditRan(in) && vulns(in).Critical == 0 && vulns(in).High > 0 },
			Op:     Cap,
			Points: 20,
			Detail: text("High vulnerabilities present"),
		},
	},
}

func lint(in *Input) *models.CodeQualityEvidence { return in.Evidence.CodeQuality }

func lintConfigured(in *Input) bool {
	if q := lint(in); q != nil && q.HasConfig {
		return true
	}
	return in.Evidence.Stack != nil && in.Evidence.Stack.HasLinting
}

// trustedLint is the library branch: own config, no re-lint scoring.
func trustedLint(in *Input) bool {
	return in.Policy.TrustOwnLintConfig && lintConfigured(in)
}

func lintRan(in *Input) bool {
	q := lint(in)
	return !trustedLint(in) && q != nil && q.Analyzed
}

func typeCheckActive(in *Input) bool {
	if tc := in.Evidence.TypeCheck; tc != nil && tc.Configured {
		return true
	}
	return in.Evidence.Stack != nil && in.Evidence.Stack.HasTypeScript
}

var repositoryCodeQuality = Rubric{
	Key: "code_quality", Label: "Code Quality", Max: CodeQualityMax,
	Rules: []Rule{
		{
			Name:   "trusted-config",
			When:   trustedLint,
			Op:     Add,
			Points: 15,
			Detail: text("Ships its own lint configuration; trusted instead of re-linting with a generic ruleset"),
		},
		{
			Name:   "lint-configured",
			When:   func(in *Input) bool { return !trustedLint(in) && lintConfigured(in) },
			Op:     Add,
			Points: 5,
			Detail: text("Lint configuration present"),
		},
		{
			Name:   "lint-ran",
			When:   lintRan,
			Op:     Add,
			Points: 5,
			Detail: func(in *Input) string {
				if lint(in).UsedFallback {
					return "Lint run completed with the built-in ruleset"
				}
				return "Lint run completed"
			},
		},
		{
			Name:   "no-errors",
			When:   func(in *Input) bool { return lintRan(in) && lint(in).Errors == 0 },
			Op:     Add,
			Points: 10,
			Detail: text("No lint errors"),
		},
		{
			Name:   "few-errors",
			When:   func(in *Input) bool { e := lint(in); return lintRan(in) && e.Errors > 0 && e.Errors <= 5 },
			Op:     Add,
			Points: 5,
			Detail: func(in *Input) string { return fmt.Sprintf("%d lint errors", lint(in).Errors) },
		},
		{
			Name:   "many-errors",
			When:   func(in *Input) bool { return lintRan(in) && lint(in).Errors > 5 },
			Op:     Note,
			Detail: func(in *Input) string { return fmt.Sprintf("%d lint errors (+0)", lint(in).Errors) },
		},
		{
			Name:   "few-warnings",
			When:   func(in *Input) bool { return lintRan(in) && lint(in).Warnings <= 10 },
			Op:     Add,
			Points: 5,
			Detail: func(in *Input) string { return fmt.Sprintf("%d lint warnings", lint(in).Warnings) },
		},
		{
			Name:   "some-warnings",
			When:   func(in *Input) bool { return lintRan(in) && lint(in).Warnings > 10 && lint(in).Warnings <= 25 },
			Op:     Add,
			Points: 2,
			Detail: func(in *Input) string { return fmt.Sprintf("%d lint warnings", lint(in).Warnings) },
		},
		{
			Name:   "many-warnings",
			When:   func(in *Input) bool { return lintRan(in) && lint(in).Warnings > 25 },
			Op:     Note,
			Detail: func(in *Input) string { return fmt.Sprintf("%d lint warnings (+0)", lint(in).Warnings) },
		},
		{
			Name: "lint-not-run",
			When: func(in *Input) bool {
				q := lint(in)
				return !trustedLint(in) && q != nil && !q.Analyzed && q.Error != ""
			},
			Op:     Note,
			Detail: func(in *Input) string { return "Lint could not run: " + lint(in).Error },
		},
		{
			Name:   "no-config-floor",
			When:   func(in *Input) bool { return !trustedLint(in) && !lintConfigured(in) },
			Op:     Floor,
			Points: 5,
			Detail: text("No lint configuration"),
		},
		{
			Name:   "type-checking",
			When:   typeCheckActive,
			Op:     Add,
			Points: 3,
			Detail: text("Type checking in use"),
		},
		{
			Name: "type-errors",
			When: func(in *Input) bool {
				tc := in.Evidence.TypeCheck
				return tc != nil && tc.Analyzed && tc.Errors > 0
			},
			Op:     Note,
			Detail: func(in *Input) string { return fmt.Sprintf("%d type errors (informational)", in.Evidence.TypeCheck.Errors) },
		},
	},
}

func stack(in *Input) *models.StackEvidence {
	if in.Evidence.Stack == nil {
		return &models.StackEvidence{}
	}
	return in.Evidence.Stack
}

// The coverage credit is an estimate: coverage depth is never measured.
var repositoryTesting = Rubric{
	Key: "testing", Label: "Testing", Max: TestingMax,
	Rules: []Rule{
		{
			Name:   "framework",
			When:   func(in *Input) bool { return stack(in).HasTesting },
			Op:     Add,
			Points: 10,
			Detail: func(in *Input) string {
				if f := stack(in).TestFramework; f != "" {
					return "Test framework detected: " + f
				}
				return "Test framework detected"
			},
		},
		{
			Name:   "estimated-coverage",
			When:   func(in *Input) bool { return stack(in).HasTesting },
			Op:     Add,
			Points: 5,
			Detail: text("Estimated coverage credit (coverage depth not measured)"),
		},
		{
			Name:   "ci-runs-tests",
			When:   func(in *Input) bool { s := stack(in); return s.HasTesting && s.CIRunsTests },
			Op:     Add,
			Points: 5,
			Detail: text("CI pipeline runs the test suite"),
		},
		{
			Name:   "no-tests",
			When:   func(in *Input) bool { return !stack(in).HasTesting },
			Op:     Note,
			Detail: text("No test framework detected (+0)"),
		},
	},
}

func deps(in *Input) *models.DependencyEvidence { return in.Evidence.Dependency }

func depsRan(in *Input) bool {
	d := deps(in)
	return d != nil && d.Analyzed
}

func packageManager(in *Input) string {
	if d := deps(in); d != nil && d.PackageManager != "" {
		return d.PackageManager
	}
	return stack(in).PackageManager
}

func outdatedDetail(in *Input) string {
	return fmt.Sprintf("%d of %d dependencies outdated", deps(in).Outdated, deps(in).Total)
}

var repositoryDependencies = Rubric{
	Key: "dependencies", Label: "Dependencies", Max: DependenciesMax,
	Rules: []Rule{
		{
			Name:   "package-manager",
			When:   func(in *Input) bool { return packageManager(in) != "" },
			Op:     Add,
			Points: 2,
			Detail: func(in *Input) string { return "Package manager: " + packageManager(in) },
		},
		{
			Name:   "no-vulnerable-deps",
			When:   func(in *Input) bool { return auditRan(in) && vulns(in).Total == 0 },
			Op:     Add,
			Points: 4,
			Detail: func(in *Input) string { return fmt.Sprintf("No vulnerable %sdependencies", scope(in)) },
		},
		{
			Name: "minor-vulnerable-deps",
			When: func(in *Input) bool {
				v := vulns(in)
				return auditRan(in) && v.Total > 0 && v.Critical == 0 && v.High == 0
			},
			Op:     Add,
			Points: 2,
			Detail: text("Only moderate or low severity vulnerable dependencies"),
		},
		{
			Name:   "outdated",
			When:   depsRan,
			Op:     Add,
			Amount: func(in *Input) int { return in.Policy.OutdatedPoints(deps(in).Outdated) },
			Detail: outdatedDetail,
		},
		{
			Name:   "not-collected",
			When:   func(in *Input) bool { return !depsRan(in) },
			Op:     Floor,
			Points: 2,
			Detail: text("Dependency data could not be collected"),
		},
	},
}

var repositoryHygiene = Rubric{
	Key: "hygiene", Label: "Hygiene", Max: HygieneMax,
	Rules: []Rule{
		{Name: "readme", When: func(in *Input) bool { return stack(in).HasReadme }, Op: Add, Points: 2, Detail: text("README present")},
		{Name: "license", When: func(in *Input) bool { return stack(in).HasLicense }, Op: Add, Points: 2, Detail: text("LICENSE present")},
		{Name: "env-example", When: func(in *Input) bool { return stack(in).HasEnvExample }, Op: Add, Points: 2, Detail: text("Environment example file present")},
		{Name: "ci", When: func(in *Input) bool { return stack(in).HasCI }, Op: Add, Points: 2, Detail: text("CI configuration present")},
		{
			Name:   "layout",
			When:   func(in *Input) bool { return stack(in).HasStandardLayout },
			Op:     Add,
			Points: 2,
			Detail: func(in *Input) string {
				return fmt.Sprintf("Conventional folder layout (%d recognised directories)", len(stack(in).LayoutDirs))
			},
		},
	},
}
