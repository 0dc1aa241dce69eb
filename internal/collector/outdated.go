package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/CosmoTheDev/ctrlgrade/models"
)

type npmOutdatedEntry struct {
	Current string `json:"current"`
	Wanted  string `json:"wanted"`
	Latest  string `json:"latest"`
}

// ParseOutdated converts `npm outdated --json` output. "{}" means nothing is
// outdated; empty output means the check did not produce a result.
func ParseOutdated(data []byte) ([]models.OutdatedPackage, error) {
	if strings.TrimSpace(string(data)) == "" {
		return nil, fmt.Errorf("empty outdated output")
	}
	data = trimToJSON(data, '{')
	if data == nil {
		return nil, fmt.Errorf("outdated output is not a JSON object")
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing outdated JSON: %w", err)
	}
	if _, isErr := raw["error"]; isErr && len(raw) == 1 {
		return nil, fmt.Errorf("npm outdated reported an error")
	}

	pkgs := make([]models.OutdatedPackage, 0, len(raw))
	for name, entry := range raw {
		var e npmOutdatedEntry
		// Workspaces report an array of entries per package.
		if err := json.Unmarshal(entry, &e); err != nil {
			var list []npmOutdatedEntry
			if json.Unmarshal(entry, &list) != nil || len(list) == 0 {
				continue
			}
			e = list[0]
		}
		pkgs = append(pkgs, models.OutdatedPackage{
			Name:    name,
			Current: e.Current,
			Wanted:  e.Wanted,
			Latest:  e.Latest,
		})
	}
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].Name < pkgs[j].Name })
	return pkgs, nil
}

// Outdated runs the outdated-dependency check for the manifest's directory.
func (t *Toolchain) Outdated(ctx context.Context, m *models.PackageManifest) *models.DependencyEvidence {
	ev := &models.DependencyEvidence{
		PackageManager: DetectPackageManager(m.Dir),
		Total:          m.DependencyCount(),
	}
	if ev.Total == 0 {
		// Nothing declared means nothing can be outdated.
		ev.Analyzed = true
		return ev
	}

	c := Command{Dir: m.Dir, Name: "npm", Args: []string{"outdated", "--json"}, Timeout: t.timeouts.Outdated}
	res := t.runner.Run(ctx, c)
	if res.Err != nil {
		ev.Error = failure(c, res)
		slog.Warn("Outdated check failed", "dir", m.Dir, "collector", "outdated", "error", ev.Error)
		return ev
	}
	pkgs, err := ParseOutdated(res.Stdout)
	if err != nil {
		ev.Error = err.Error()
		slog.Warn("Outdated output rejected", "dir", m.Dir, "collector", "outdated", "error", err)
		return ev
	}
	ev.Analyzed = true
	ev.Outdated = len(pkgs)
	if len(pkgs) > t.maxListed {
		pkgs = pkgs[:t.maxListed]
	}
	ev.Packages = pkgs
	slog.Info("Outdated check completed", "dir", m.Dir, "outdated", ev.Outdated, "total", ev.Total)
	return ev
}
