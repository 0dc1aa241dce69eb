package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/CosmoTheDev/ctrlgrade/models"
)

// npmAuditReport is the subset of `npm audit --json` (report v2) we read.
type npmAuditReport struct {
	Vulnerabilities map[string]npmAuditVuln `json:"vulnerabilities"`
	Metadata        *struct {
		Vulnerabilities *npmAuditCounts `json:"vulnerabilities"`
	} `json:"metadata"`
	Error *struct {
		Code    string `json:"code"`
		Summary string `json:"summary"`
	} `json:"error"`
}

type npmAuditCounts struct {
	Info     int `json:"info"`
	Low      int `json:"low"`
	Moderate int `json:"moderate"`
	High     int `json:"high"`
	Critical int `json:"critical"`
	Total    int `json:"total"`
}

type npmAuditVuln struct {
	Name         string            `json:"name"`
	Severity     string            `json:"severity"`
	Via          []json.RawMessage `json:"via"`
	FixAvailable json.RawMessage   `json:"fixAvailable"`
}

// npmAdvisory is the object form of a "via" entry; string entries name
// another vulnerable package and carry no advisory.
type npmAdvisory struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// ParseAudit validates and converts `npm audit --json` output. The
// metadata.vulnerabilities block is required; without it the output is
// not trusted.
func ParseAudit(data []byte) (models.VulnCounts, []models.VulnFinding, error) {
	data = trimToJSON(data, '{')
	if len(data) == 0 {
		return models.VulnCounts{}, nil, fmt.Errorf("empty audit output")
	}
	var rep npmAuditReport
	if err := json.Unmarshal(data, &rep); err != nil {
		return models.VulnCounts{}, nil, fmt.Errorf("parsing audit JSON: %w", err)
	}
	if rep.Error != nil {
		return models.VulnCounts{}, nil, fmt.Errorf("audit error %s: %s", rep.Error.Code, rep.Error.Summary)
	}
	if rep.Metadata == nil || rep.Metadata.Vulnerabilities == nil {
		return models.VulnCounts{}, nil, fmt.Errorf("audit output has no metadata.vulnerabilities")
	}

	mv := rep.Metadata.Vulnerabilities
	counts := models.VulnCounts{
		Critical: mv.Critical,
		High:     mv.High,
		Moderate: mv.Moderate,
		Low:      mv.Low,
		Total:    mv.Total,
	}

	findings := make([]models.VulnFinding, 0, len(rep.Vulnerabilities))
	for name, v := range rep.Vulnerabilities {
		if v.Name != "" {
			name = v.Name
		}
		f := models.VulnFinding{
			Package:      name,
			Severity:     models.MapSeverity(v.Severity),
			FixAvailable: fixAvailable(v.FixAvailable),
		}
		for _, raw := range v.Via {
			var adv npmAdvisory
			if json.Unmarshal(raw, &adv) == nil && adv.Title != "" {
				f.Title, f.URL = adv.Title, adv.URL
				break
			}
		}
		if f.Title == "" {
			f.Title = "Depends on vulnerable packages"
		}
		findings = append(findings, f)
	}
	sortFindings(findings)
	return counts, findings, nil
}

// fixAvailable is true for `true` or an object describing the fix.
func fixAvailable(raw json.RawMessage) bool {
	s := string(raw)
	return s == "true" || (len(s) > 0 && s[0] == '{')
}

func sortFindings(f []models.VulnFinding) {
	sort.SliceStable(f, func(i, j int) bool {
		if wi, wj := f[i].Severity.Weight(), f[j].Severity.Weight(); wi != wj {
			return wi > wj
		}
		return f[i].Package < f[j].Package
	})
}

// Audit runs the full and production-only audits for dir.
func (t *Toolchain) Audit(ctx context.Context, dir string) *models.SecurityEvidence {
	ev := &models.SecurityEvidence{}

	full := Command{Dir: dir, Name: "npm", Args: []string{"audit", "--json"}, Timeout: t.timeouts.Audit}
	res := t.runner.Run(ctx, full)
	if res.Err != nil {
		ev.Error = failure(full, res)
		slog.Warn("Audit failed", "dir", dir, "collector", "audit", "error", ev.Error)
		return ev
	}
	counts, findings, err := ParseAudit(res.Stdout)
	if err != nil {
		ev.Error = err.Error()
		slog.Warn("Audit output rejected", "dir", dir, "collector", "audit", "error", err)
		return ev
	}
	ev.Analyzed = true
	ev.All = counts

	prod := Command{Dir: dir, Name: "npm", Args: []string{"audit", "--json", "--omit=dev"}, Timeout: t.timeouts.Audit}
	pres := t.runner.Run(ctx, prod)
	prodNames := map[string]bool{}
	if pres.Err == nil {
		if pc, pf, err := ParseAudit(pres.Stdout); err == nil {
			ev.Production = pc
			ev.ProductionAnalyzed = true
			for _, f := range pf {
				prodNames[f.Package] = true
			}
		} else {
			slog.Debug("Production audit output rejected", "dir", dir, "error", err)
		}
	}

	for i := range findings {
		findings[i].DevOnly = ev.ProductionAnalyzed && !prodNames[findings[i].Package]
	}
	if len(findings) > t.maxListed {
		findings = findings[:t.maxListed]
	}
	ev.Findings = findings

	slog.Info("Audit completed", "dir", dir,
		"critical", counts.Critical, "high", counts.High, "total", counts.Total,
		"production_total", ev.Production.Total, "duration", res.Duration+pres.Duration)
	return ev
}

// trimToJSON drops any banner text npm prints before the JSON document.
func trimToJSON(data []byte, open byte) []byte {
	for i, b := range data {
		if b == open {
			return data[i:]
		}
	}
	return nil
}
