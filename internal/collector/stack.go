package collector

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/CosmoTheDev/ctrlgrade/models"
	"go.yaml.in/yaml/v3"
)

// layoutDirs are conventional top-level folders; two or more signal a
// recognised project structure.
var layoutDirs = []string{
	"src", "lib", "test", "tests", "__tests__", "docs", "scripts",
	"public", "components", "config", "packages", "app",
}

var envExampleFiles = []string{
	".env.example", ".env.sample", ".env.template", ".env.dist", "example.env", ".env.local.example",
}

// ciFiles are single-file CI configurations checked at the repository root.
var ciFiles = []string{
	".gitlab-ci.yml", ".travis.yml", "azure-pipelines.yml", "bitbucket-pipelines.yml",
	"Jenkinsfile", ".circleci/config.yml", ".drone.yml", "appveyor.yml",
}

// testFrameworks are dependency names recognised as a test framework, in
// reporting precedence.
var testFrameworks = []struct{ dep, name string }{
	{"vitest", "vitest"},
	{"jest", "jest"},
	{"mocha", "mocha"},
	{"@playwright/test", "playwright"},
	{"cypress", "cypress"},
	{"jasmine", "jasmine"},
	{"ava", "ava"},
	{"tap", "tap"},
	{"uvu", "uvu"},
	{"karma", "karma"},
	{"@testing-library/react", "testing-library"},
}

// frameworks maps a dependency to a display name. Meta-frameworks come
// before the libraries they build on.
var frameworks = []struct{ dep, name string }{
	{"next", "Next.js"},
	{"nuxt", "Nuxt"},
	{"@remix-run/react", "Remix"},
	{"gatsby", "Gatsby"},
	{"astro", "Astro"},
	{"@sveltejs/kit", "SvelteKit"},
	{"@angular/core", "Angular"},
	{"@nestjs/core", "NestJS"},
	{"electron", "Electron"},
	{"svelte", "Svelte"},
	{"vue", "Vue"},
	{"react", "React"},
	{"express", "Express"},
	{"fastify", "Fastify"},
	{"koa", "Koa"},
	{"@hapi/hapi", "hapi"},
}

// defaultTestScript is the placeholder npm init writes.
const defaultTestScript = `echo "Error: no test specified"`

var ciTestRe = regexp.MustCompile(`\b(npm|yarn|pnpm|bun)\s+(run\s+)?test\b|\b(npx\s+)?(jest|vitest|mocha|playwright\s+test|cypress\s+run|ava)\b|\bgo\s+test\b|\bpytest\b|\bcargo\s+test\b`)

// ProbeStack records stack detection and hygiene signals for root. With no
// manifests the result is the coarse, language-only path.
func ProbeStack(root string, manifests []*models.PackageManifest) *models.StackEvidence {
	ev := &models.StackEvidence{}
	probeHygiene(root, ev)

	if len(manifests) == 0 {
		ev.Coarse = true
		ev.Language = DetectLanguage(root)
		return ev
	}

	for _, m := range manifests {
		ev.Manifests = append(ev.Manifests, filepath.ToSlash(filepath.Join(m.RelDir, ManifestFile)))
		if HasTypeScript(m) {
			ev.HasTypeScript = true
		}
		if HasLintConfig(m.Dir, m) {
			ev.HasLinting = true
		}
		if fw := testFramework(m); fw != "" && !ev.HasTesting {
			ev.HasTesting = true
			ev.TestFramework = fw
		}
		if ev.Framework == "" {
			ev.Framework = detectFramework(m)
		}
	}
	if !ev.HasLinting && HasLintConfig(root, nil) {
		ev.HasLinting = true
	}
	ev.Language = "JavaScript"
	if ev.HasTypeScript {
		ev.Language = "TypeScript"
	}
	ev.PackageManager = DetectPackageManager(manifests[0].Dir)
	return ev
}

func probeHygiene(root string, ev *models.StackEvidence) {
	entries, _ := os.ReadDir(root)
	names := make(map[string]bool, len(entries))
	for _, e := range entries {
		lower := strings.ToLower(e.Name())
		if e.IsDir() {
			names[lower+"/"] = true
			continue
		}
		names[lower] = true
		switch {
		case strings.HasPrefix(lower, "readme"):
			ev.HasReadme = true
		case strings.HasPrefix(lower, "license"), strings.HasPrefix(lower, "licence"), strings.HasPrefix(lower, "copying"):
			ev.HasLicense = true
		}
	}
	for _, f := range envExampleFiles {
		if names[f] {
			ev.HasEnvExample = true
			break
		}
	}
	for _, d := range layoutDirs {
		if names[d+"/"] {
			ev.LayoutDirs = append(ev.LayoutDirs, d)
		}
	}
	ev.HasStandardLayout = len(ev.LayoutDirs) >= 2

	ci := ciConfigFiles(root)
	ev.HasCI = len(ci) > 0
	for _, f := range ci {
		if ciRunsTests(f) {
			ev.CIRunsTests = true
			break
		}
	}
}

// ciConfigFiles lists CI definition files present under root.
func ciConfigFiles(root string) []string {
	var out []string
	for _, dir := range []string{".github/workflows", ".gitea/workflows", ".forgejo/workflows"} {
		entries, err := os.ReadDir(filepath.Join(root, dir))
		if err != nil {
			continue
		}
		for _, e := range entries {
			ext := strings.ToLower(filepath.Ext(e.Name()))
			if !e.IsDir() && (ext == ".yml" || ext == ".yaml") {
				out = append(out, filepath.Join(root, dir, e.Name()))
			}
		}
	}
	for _, f := range ciFiles {
		if p := filepath.Join(root, f); fileExists(p) {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// ciRunsTests reports whether a CI file invokes a test command. YAML files
// are decoded and only their string values are searched so that comments
// and job names do not count.
func ciRunsTests(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yml" || ext == ".yaml" {
		var doc interface{}
		if err := yaml.Unmarshal(data, &doc); err == nil {
			var found bool
			walkStrings(doc, func(s string) {
				if !found && ciTestRe.MatchString(s) {
					found = true
				}
			})
			return found
		}
	}
	return ciTestRe.Match(data)
}

func walkStrings(v interface{}, fn func(string)) {
	switch t := v.(type) {
	case string:
		fn(t)
	case []interface{}:
		for _, e := range t {
			walkStrings(e, fn)
		}
	case map[string]interface{}:
		for _, e := range t {
			walkStrings(e, fn)
		}
	case map[interface{}]interface{}:
		for _, e := range t {
			walkStrings(e, fn)
		}
	}
}

func testFramework(m *models.PackageManifest) string {
	for _, f := range testFrameworks {
		if m.HasDependency(f.dep) {
			return f.name
		}
	}
	if script := strings.TrimSpace(m.Scripts["test"]); script != "" && !strings.HasPrefix(script, defaultTestScript) {
		for _, f := range testFrameworks {
			if strings.Contains(script, f.name) {
				return f.name
			}
		}
		if strings.Contains(script, "node --test") {
			return "node:test"
		}
		return "custom"
	}
	return ""
}

func detectFramework(m *models.PackageManifest) string {
	for _, f := range frameworks {
		if _, ok := m.Dependencies[f.dep]; ok {
			return f.name
		}
	}
	for _, f := range frameworks {
		if _, ok := m.DevDependencies[f.dep]; ok {
			return f.name
		}
	}
	return ""
}
