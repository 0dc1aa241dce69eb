package collector

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/CosmoTheDev/ctrlgrade/models"
)

// ManifestFile is the package manifest the pipeline understands.
const ManifestFile = "package.json"

// wellKnownDirs are monorepo-style subdirectories checked for a manifest.
var wellKnownDirs = []string{
	"frontend", "backend", "client", "server", "web", "app", "api", "ui", "site", "docs",
}

// DiscoverManifests finds package manifests in root, in the well-known
// subdirectories, and one level under packages/. node_modules is never
// entered. Manifests that fail to parse are skipped with a warning.
// The root manifest, when present, is always first.
func DiscoverManifests(root string) []*models.PackageManifest {
	dirs := []string{"."}
	dirs = append(dirs, wellKnownDirs...)

	if entries, err := os.ReadDir(filepath.Join(root, "packages")); err == nil {
		var pkgs []string
		for _, e := range entries {
			if e.IsDir() && e.Name() != "node_modules" {
				pkgs = append(pkgs, filepath.Join("packages", e.Name()))
			}
		}
		sort.Strings(pkgs)
		dirs = append(dirs, pkgs...)
	}

	var out []*models.PackageManifest
	for _, rel := range dirs {
		path := filepath.Join(root, rel, ManifestFile)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		m, err := ParseManifest(path)
		if err != nil {
			slog.Warn("Skipping unparsable manifest", "manifest", filepath.Join(rel, ManifestFile), "error", err)
			continue
		}
		m.RelDir = rel
		out = append(out, m)
	}
	return out
}

// ParseManifest reads and validates a package.json. The file must decode to
// a JSON object; the typed fields tolerate missing keys.
func ParseManifest(path string) (*models.PackageManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	var m models.PackageManifest
	// Decode field by field so one mistyped key (e.g. "private": "true")
	// does not discard the whole manifest.
	decodeField(probe, "name", &m.Name)
	decodeField(probe, "version", &m.Version)
	decodeField(probe, "main", &m.Main)
	decodeField(probe, "module", &m.Module)
	decodeField(probe, "types", &m.Types)
	decodeField(probe, "private", &m.Private)
	decodeField(probe, "scripts", &m.Scripts)
	decodeField(probe, "dependencies", &m.Dependencies)
	decodeField(probe, "devDependencies", &m.DevDependencies)
	decodeField(probe, "peerDependencies", &m.PeerDeps)
	m.Exports = probe["exports"]
	m.Bin = probe["bin"]
	m.Workspaces = probe["workspaces"]
	m.ESLintConfig = probe["eslintConfig"]

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	m.Path = abs
	m.Dir = filepath.Dir(abs)
	return &m, nil
}

func decodeField(obj map[string]json.RawMessage, key string, dst interface{}) {
	raw, ok := obj[key]
	if !ok {
		return
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		slog.Debug("Ignoring malformed manifest field", "field", key, "error", err)
	}
}

// hasLockfile reports whether dir carries an npm lockfile usable by `npm ci`.
func hasLockfile(dir string) bool {
	for _, f := range []string{"package-lock.json", "npm-shrinkwrap.json"} {
		if fileExists(filepath.Join(dir, f)) {
			return true
		}
	}
	return false
}

// DetectPackageManager infers the package manager from lockfiles in dir.
func DetectPackageManager(dir string) string {
	switch {
	case fileExists(filepath.Join(dir, "pnpm-lock.yaml")):
		return "pnpm"
	case fileExists(filepath.Join(dir, "yarn.lock")):
		return "yarn"
	case fileExists(filepath.Join(dir, "bun.lockb")), fileExists(filepath.Join(dir, "bun.lock")):
		return "bun"
	default:
		return "npm"
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
