// Package recommend derives suggestions and priority actions from evidence.
package recommend

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/CosmoTheDev/ctrlgrade/internal/scoring"
	"github.com/CosmoTheDev/ctrlgrade/models"
)

// Input is what the synthesizer reads: evidence plus the engine's verdict on it.
type Input struct {
	URL        string
	Kind       models.TargetKind
	RepoType   models.RepoType
	Evidence   models.Evidence
	Score      models.ScoreBreakdown
	Confidence models.Confidence
}

// topics groups suggestions that address the same concern. Within a topic
// only the highest-priority suggestion survives.
var topics = []struct {
	name string
	re   *regexp.Regexp
}{
	{"lint", regexp.MustCompile(`(?i)lint`)},
	{"typescript", regexp.MustCompile(`(?i)typescript|type error|type-check`)},
	{"tests", regexp.MustCompile(`(?i)\btests?\b|testing`)},
	{"security", regexp.MustCompile(`(?i)security|vulnerab`)},
	{"outdated", regexp.MustCompile(`(?i)outdated`)},
}

func topicOf(s models.Suggestion) string {
	for _, t := range topics {
		if t.re.MatchString(s.Title) {
			return t.name
		}
	}
	return ""
}

// Suggestions returns the deduplicated, sorted suggestion list. It is never
// empty.
func Suggestions(in Input) []models.Suggestion {
	var raw []models.Suggestion
	if in.Kind == models.TargetDeployment {
		raw = deploymentSuggestions(in)
	} else {
		raw = repositorySuggestions(in)
	}

	out := Dedupe(raw)
	if len(out) == 0 {
		out = append(out, models.Suggestion{
			Priority:    models.PriorityLow,
			Category:    "hygiene",
			Title:       "Improve documentation",
			Description: "Document setup, architecture decisions and contribution guidelines so the next reader ramps up faster.",
		})
	}
	if in.Confidence != models.ConfidenceHigh {
		out = append(out, models.Suggestion{
			Priority: models.PriorityInfo,
			Category: "confidence",
			Title:    "Partial assessment",
			Description: fmt.Sprintf("Confidence is %s: some collectors could not run, and runtime behavior "+
				"and load characteristics were not assessed.", in.Confidence),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority.Rank() < out[j].Priority.Rank()
	})
	return out
}

// Dedupe keeps the first highest-priority suggestion per topic, in place of
// the first suggestion of that topic. Suggestions with no topic all survive.
func Dedupe(in []models.Suggestion) []models.Suggestion {
	out := make([]models.Suggestion, 0, len(in))
	seen := map[string]int{}
	for _, s := range in {
		t := topicOf(s)
		if t == "" {
			out = append(out, s)
			continue
		}
		if i, ok := seen[t]; ok {
			if s.Priority.Rank() < out[i].Priority.Rank() {
				out[i] = s
			}
			continue
		}
		seen[t] = len(out)
		out = append(out, s)
	}
	return out
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}

func repositorySuggestions(in Input) []models.Suggestion {
	ev := in.Evidence
	policy := scoring.PolicyFor(in.RepoType)
	var out []models.Suggestion
	add := func(p models.Priority, cat, title, desc string) {
		out = append(out, models.Suggestion{Priority: p, Category: cat, Title: title, Description: desc})
	}

	if sec := ev.Security; sec != nil {
		v := policy.Vulns(sec)
		switch {
		case !sec.Analyzed:
			add(models.PriorityLow, "security", "Run a dependency security audit",
				"The audit could not run, so vulnerability exposure is unknown. Commit a lockfile and run `npm audit`.")
		case v.Critical > 0:
			add(models.PriorityCritical, "security", fmt.Sprintf("Fix %s", plural(v.Critical, "critical vulnerability", "critical vulnerabilities")),
				"Critical advisories affect installed dependencies. Run `npm audit fix` or upgrade the affected packages.")
		case v.High > 0:
			add(models.PriorityHigh, "security", fmt.Sprintf("Fix %s", plural(v.High, "high-severity vulnerability", "high-severity vulnerabilities")),
				"Run `npm audit fix` and review packages without an available fix.")
		case v.Moderate > 0:
			add(models.PriorityMedium, "security", fmt.Sprintf("Address %s", plural(v.Moderate, "moderate vulnerability", "moderate vulnerabilities")),
				"Moderate advisories are usually fixed by a minor upgrade.")
		}
		if sec.Analyzed && policy.UsesProductionCounts(sec) && sec.All.Total > sec.Production.Total {
			add(models.PriorityInfo, "security", "Development-only vulnerabilities",
				fmt.Sprintf("%d advisories affect devDependencies only and do not ship to consumers.", sec.All.Total-sec.Production.Total))
		}
	}

	lintConfigured := ev.Stack != nil && ev.Stack.HasLinting
	if q := ev.CodeQuality; q != nil {
		lintConfigured = lintConfigured || q.HasConfig
		if q.Analyzed && q.Errors > 0 {
			p := models.PriorityMedium
			if q.Errors > 5 {
				p = models.PriorityHigh
			}
			add(p, "code_quality", fmt.Sprintf("Fix %s", plural(q.Errors, "lint error", "lint errors")),
				"Run `npx eslint . --fix` and resolve the remaining reports by hand.")
		}
		if q.Analyzed && q.Warnings > 25 {
			add(models.PriorityLow, "code_quality", fmt.Sprintf("Reduce %d lint warnings", q.Warnings),
				"A long tail of warnings hides new ones. Fix or explicitly disable noisy rules.")
		}
	}
	if !lintConfigured {
		add(models.PriorityHigh, "code_quality", "Add a lint configuration",
			"Commit an ESLint flat config (eslint.config.js) so style and correctness rules are enforced consistently.")
	}

	if tc := ev.TypeCheck; tc != nil && tc.Analyzed && tc.Errors > 0 {
		add(models.PriorityMedium, "code_quality", fmt.Sprintf("Fix %s", plural(tc.Errors, "TypeScript type error", "TypeScript type errors")),
			"Run `npx tsc --noEmit` and fix the reported diagnostics.")
	} else if ev.Stack != nil && !ev.Stack.Coarse && !ev.Stack.HasTypeScript {
		add(models.PriorityLow, "code_quality", "Consider adopting TypeScript",
			"Static types catch a class of bugs before they reach runtime.")
	}

	stack := ev.Stack
	if stack == nil {
		stack = &models.StackEvidence{}
	}
	if !stack.HasTesting {
		add(models.PriorityHigh, "testing", "Add automated tests",
			"No test framework was detected. Start with unit tests around the core logic using vitest or jest.")
	} else if !stack.CIRunsTests {
		add(models.PriorityMedium, "testing", "Run tests in CI",
			"Tests exist but no CI workflow runs them on every push.")
	}

	if d := ev.Dependency; d != nil && d.Analyzed && policy.OutdatedPoints(d.Outdated) < 4 {
		p := models.PriorityLow
		if policy.OutdatedPoints(d.Outdated) == 0 {
			p = models.PriorityMedium
		}
		add(p, "dependencies", fmt.Sprintf("Update %s", plural(d.Outdated, "outdated dependency", "outdated dependencies")),
			"Run `npm outdated` and upgrade in small batches, running the test suite between each.")
	}

	if !stack.HasReadme {
		add(models.PriorityMedium, "hygiene", "Add a README",
			"Describe what the project does, how to run it and how to contribute.")
	}
	if !stack.HasLicense {
		add(models.PriorityMedium, "hygiene", "Add a LICENSE",
			"Without a license nobody can legally reuse the code.")
	}
	if !stack.HasCI {
		add(models.PriorityMedium, "hygiene", "Set up continuous integration",
			"A GitHub Actions workflow that installs, lints and builds on every push catches regressions early.")
	}
	if !stack.HasEnvExample && !in.RepoType.IsLibraryLike() {
		add(models.PriorityLow, "hygiene", "Add an environment example file",
			"Commit a .env.example listing every variable the app reads, with placeholder values.")
	}
	if !stack.HasStandardLayout {
		add(models.PriorityLow, "hygiene", "Adopt a conventional folder layout",
			"Group sources under directories such as src/, tests/ and docs/.")
	}
	return out
}

func deploymentSuggestions(in Input) []models.Suggestion {
	d := in.Evidence.Deployment
	if d == nil {
		d = &models.DeploymentEvidence{}
	}
	var out []models.Suggestion
	add := func(p models.Priority, cat, title, desc string) {
		out = append(out, models.Suggestion{Priority: p, Category: cat, Title: title, Description: desc})
	}

	if !d.Analyzed || !d.Reachable {
		reason := "The deployment did not respond."
		if d.Error != "" {
			reason = "The deployment did not respond: " + d.Error
		}
		add(models.PriorityCritical, "reliability", "Make the deployment reachable", reason)
		return out
	}

	if !d.HTTPS {
		add(models.PriorityCritical, "security", "Serve the site over HTTPS",
			"Plain HTTP exposes every request to interception. Redirect to HTTPS and enable HSTS.")
	}
	if missing := d.MissingSecurityHeaders(); len(missing) > 0 {
		p := models.PriorityMedium
		if len(missing) >= 3 {
			p = models.PriorityHigh
		}
		add(p, "security", fmt.Sprintf("Add %s", plural(len(missing), "missing security header", "missing security headers")),
			"Missing: "+strings.Join(missing, ", ")+".")
	}
	if d.StatusCode < 200 || d.StatusCode >= 300 {
		add(models.PriorityCritical, "reliability", fmt.Sprintf("Deployment returned HTTP %d", d.StatusCode),
			"The landing page should answer with a 2xx status.")
	}
	if d.Redirects > 1 {
		add(models.PriorityLow, "reliability", fmt.Sprintf("Collapse %d redirects", d.Redirects),
			"Each redirect hop adds a round trip before the first byte.")
	}

	psi := in.Evidence.PageSpeed
	if psi != nil && psi.Analyzed {
		if psi.Performance < 50 {
			add(models.PriorityHigh, "performance", fmt.Sprintf("Improve page performance (%d/100)", psi.Performance),
				opportunityText(psi))
		} else if psi.Performance < 90 {
			add(models.PriorityMedium, "performance", fmt.Sprintf("Improve page performance (%d/100)", psi.Performance),
				opportunityText(psi))
		}
		if psi.Accessibility < 90 {
			add(models.PriorityMedium, "discoverability", fmt.Sprintf("Improve accessibility (%d/100)", psi.Accessibility),
				"Check color contrast, alt text and form labels.")
		}
		if psi.SEO < 90 {
			add(models.PriorityLow, "discoverability", fmt.Sprintf("Improve SEO (%d/100)", psi.SEO),
				"Add descriptive titles, meta descriptions and crawlable links.")
		}
	} else {
		if d.ResponseTimeMs >= 1500 {
			add(models.PriorityMedium, "performance", fmt.Sprintf("Reduce response time (%dms)", d.ResponseTimeMs),
				"Cache rendered pages or move static assets behind a CDN.")
		}
		if !d.HasCompression {
			add(models.PriorityMedium, "performance", "Enable response compression",
				"Serve text assets with gzip, br or zstd encoding.")
		}
		if !d.HasCaching {
			add(models.PriorityLow, "performance", "Add caching headers",
				"Set Cache-Control or ETag headers so repeat visits skip the network.")
		}
	}

	if d.HTMLParsed {
		if !d.HasTitle() {
			add(models.PriorityLow, "content", "Add a page title", "Set a descriptive <title> element.")
		}
		if !d.HasViewport {
			add(models.PriorityMedium, "content", "Add a viewport meta tag",
				`Without <meta name="viewport"> the page renders at desktop width on phones.`)
		}
		if !d.HasMetaDescription {
			add(models.PriorityLow, "content", "Add a meta description", "Search results show it as the page summary.")
		}
	}
	if d.PageSizeBytes >= 2<<20 {
		add(models.PriorityMedium, "content", fmt.Sprintf("Reduce page weight (%d KB)", d.PageSizeBytes/1024),
			"Split bundles and lazy-load below-the-fold content.")
	}
	return out
}

func opportunityText(psi *models.PageSpeedEvidence) string {
	if len(psi.Opportunities) == 0 {
		return "Review the PageSpeed report for render-blocking resources and large assets."
	}
	titles := make([]string, 0, 3)
	for i, o := range psi.Opportunities {
		if i == 3 {
			break
		}
		titles = append(titles, fmt.Sprintf("%s (~%.0fms)", o.Title, o.SavingsMs))
	}
	return "Top opportunities: " + strings.Join(titles, "; ") + "."
}
