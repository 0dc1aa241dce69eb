package models

import "encoding/json"

// PackageManifest is the validated subset of a package.json the pipeline
// relies on. Polymorphic fields (bin, exports, workspaces) stay raw; callers
// only test for their presence.
type PackageManifest struct {
	Name            string            `json:"name"`
	Version         string            `json:"version"`
	Main            string            `json:"main"`
	Module          string            `json:"module"`
	Types           string            `json:"types"`
	Exports         json.RawMessage   `json:"exports"`
	Bin             json.RawMessage   `json:"bin"`
	Private         bool              `json:"private"`
	Workspaces      json.RawMessage   `json:"workspaces"`
	Scripts         map[string]string `json:"scripts"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
	PeerDeps        map[string]string `json:"peerDependencies"`
	ESLintConfig    json.RawMessage   `json:"eslintConfig"`

	// Path is the manifest file, Dir its directory (both absolute).
	Path string `json:"-"`
	Dir  string `json:"-"`
	// RelDir is Dir relative to the working copy root ("." for the root manifest).
	RelDir string `json:"-"`
}

// HasBin reports whether the manifest maps at least one executable.
func (m *PackageManifest) HasBin() bool {
	return present(m.Bin)
}

// HasExports reports whether an export map is declared.
func (m *PackageManifest) HasExports() bool {
	return present(m.Exports)
}

// HasWorkspaces reports whether a workspaces field is declared.
func (m *PackageManifest) HasWorkspaces() bool {
	return present(m.Workspaces)
}

// HasDependency checks both runtime and development dependency maps.
func (m *PackageManifest) HasDependency(name string) bool {
	if _, ok := m.Dependencies[name]; ok {
		return true
	}
	_, ok := m.DevDependencies[name]
	return ok
}

// DependencyCount is the number of declared runtime + development dependencies.
func (m *PackageManifest) DependencyCount() int {
	return len(m.Dependencies) + len(m.DevDependencies)
}

func present(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	switch string(raw) {
	case "null", `""`, "{}", "[]":
		return false
	}
	return true
}
