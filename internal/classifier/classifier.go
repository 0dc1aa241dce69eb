// Package classifier assigns a RepoType from package-manifest facts.
// The rules are heuristics over script and name substrings; they live behind
// the Classifier interface so they can be replaced without touching scoring.
package classifier

import (
	"log/slog"
	"strings"

	"github.com/CosmoTheDev/ctrlgrade/models"
)

// Classifier maps a manifest to a RepoType. A nil manifest is an application.
type Classifier interface {
	Classify(m *models.PackageManifest) models.RepoType
}

// appBootstrapSignatures mark a start script that boots a standalone app
// or server rather than exercising a library.
var appBootstrapSignatures = []string{
	"node server", "node index", "node app", "node main", "node dist/server", "node build",
	"next start", "next dev", "nuxt", "react-scripts", "vite", "ng serve",
	"nodemon", "ts-node", "tsx watch", "webpack serve", "webpack-dev-server",
	"gatsby", "remix", "astro", "expo start", "electron", "pm2", "serve ",
	"nest start", "strapi", "sails lift", "meteor",
}

// libraryBuildSignatures mark a build step that packages a library.
var libraryBuildSignatures = []string{
	"tsc", "rollup", "tsup", "babel", "esbuild", "microbundle", "unbuild",
	"pkgroll", "swc", "bunchee", "vite build --lib", "parcel build", "webpack --mode production --output-library",
}

// publishHooks are lifecycle scripts that only make sense for published packages.
var publishHooks = []string{"prepublishOnly", "prepublish", "prepack"}

// frameworkNamePatterns match package names of well-known web frameworks.
var frameworkNamePatterns = []string{
	"express", "koa", "fastify", "hapi", "nest", "next", "nuxt", "react", "vue",
	"angular", "svelte", "preact", "solid", "ember", "remix", "astro", "meteor",
	"sails", "adonis", "hono", "framework",
}

// Heuristic is the default rule-based Classifier. Rules are evaluated in a
// fixed precedence: cli, then library/framework, then monorepo, else
// application. cli must precede library because CLIs also declare main.
type Heuristic struct{}

// New returns the default classifier.
func New() Classifier { return Heuristic{} }

func (Heuristic) Classify(m *models.PackageManifest) models.RepoType {
	if m == nil {
		return models.RepoTypeApplication
	}
	rt := classify(m)
	slog.Debug("Classified project", "manifest", m.Name, "repo_type", rt)
	return rt
}

func classify(m *models.PackageManifest) models.RepoType {
	if m.HasBin() {
		return models.RepoTypeCLI
	}
	if isLibraryCandidate(m) {
		if matchesAny(strings.ToLower(m.Name), frameworkNamePatterns) && m.Main != "" {
			return models.RepoTypeFramework
		}
		return models.RepoTypeLibrary
	}
	if m.HasWorkspaces() || (m.Private && m.Main == "") {
		return models.RepoTypeMonorepo
	}
	return models.RepoTypeApplication
}

func isLibraryCandidate(m *models.PackageManifest) bool {
	hasEntry := m.Main != "" || m.Module != "" || m.HasExports()
	if !hasEntry {
		return false
	}
	if matchesAny(strings.ToLower(m.Scripts["start"]), appBootstrapSignatures) {
		return false
	}
	return looksLikeLibraryBuild(m)
}

func looksLikeLibraryBuild(m *models.PackageManifest) bool {
	for _, hook := range publishHooks {
		if strings.TrimSpace(m.Scripts[hook]) != "" {
			return true
		}
	}
	return matchesAny(strings.ToLower(m.Scripts["build"]), libraryBuildSignatures)
}

func matchesAny(s string, patterns []string) bool {
	if s == "" {
		return false
	}
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// Primary picks the manifest that describes the project as a whole: the
// root manifest when present, otherwise the first one discovered.
func Primary(manifests []*models.PackageManifest) *models.PackageManifest {
	for _, m := range manifests {
		if m.RelDir == "." || m.RelDir == "" {
			return m
		}
	}
	if len(manifests) > 0 {
		return manifests[0]
	}
	return nil
}
