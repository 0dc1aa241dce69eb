package analyzer

import "github.com/CosmoTheDev/ctrlgrade/models"

// The merge helpers fold per-manifest evidence into one record per
// collector. A nil accumulator takes the first value as-is; a nil value
// leaves the accumulator untouched.

func mergeSecurity(acc, ev *models.SecurityEvidence) *models.SecurityEvidence {
	if ev == nil {
		return acc
	}
	if acc == nil {
		return ev
	}
	if !ev.Analyzed {
		if !acc.Analyzed && acc.Error == "" {
			acc.Error = ev.Error
		}
		return acc
	}
	if !acc.Analyzed {
		// Drop the earlier failure; analysed evidence wins.
		return ev
	}
	acc.All = acc.All.Add(ev.All)
	acc.Production = acc.Production.Add(ev.Production)
	acc.ProductionAnalyzed = acc.ProductionAnalyzed && ev.ProductionAnalyzed
	acc.Findings = append(acc.Findings, ev.Findings...)
	return acc
}

func mergeDependency(acc, ev *models.DependencyEvidence) *models.DependencyEvidence {
	if ev == nil {
		return acc
	}
	if acc == nil {
		return ev
	}
	if !ev.Analyzed {
		if !acc.Analyzed && acc.Error == "" {
			acc.Error = ev.Error
		}
		return acc
	}
	if !acc.Analyzed {
		if ev.PackageManager == "" {
			ev.PackageManager = acc.PackageManager
		}
		return ev
	}
	acc.Total += ev.Total
	acc.Outdated += ev.Outdated
	acc.Packages = append(acc.Packages, ev.Packages...)
	return acc
}

func mergeCodeQuality(acc, ev *models.CodeQualityEvidence) *models.CodeQualityEvidence {
	if ev == nil {
		return acc
	}
	if acc == nil {
		return ev
	}
	hasConfig := acc.HasConfig || ev.HasConfig
	if !ev.Analyzed {
		acc.HasConfig = hasConfig
		if !acc.Analyzed && acc.Error == "" {
			acc.Error = ev.Error
		}
		return acc
	}
	if !acc.Analyzed {
		ev.HasConfig = hasConfig
		return ev
	}
	acc.HasConfig = hasConfig
	acc.UsedFallback = acc.UsedFallback || ev.UsedFallback
	acc.Errors += ev.Errors
	acc.Warnings += ev.Warnings
	acc.Issues = append(acc.Issues, ev.Issues...)
	return acc
}

func mergeTypeCheck(acc, ev *models.TypeCheckEvidence) *models.TypeCheckEvidence {
	if ev == nil {
		return acc
	}
	if acc == nil {
		return ev
	}
	acc.Configured = acc.Configured || ev.Configured
	switch {
	case ev.Analyzed && acc.Analyzed:
		acc.Errors += ev.Errors
	case ev.Analyzed:
		acc.Analyzed = true
		acc.Errors = ev.Errors
		acc.Error = ""
	case !acc.Analyzed && acc.Error == "":
		acc.Error = ev.Error
	}
	return acc
}

// truncate bounds list fields after merging several manifests.
func truncate(ev *models.Evidence, max int) {
	if max <= 0 {
		return
	}
	if s := ev.Security; s != nil && len(s.Findings) > max {
		s.Findings = s.Findings[:max]
	}
	if d := ev.Dependency; d != nil && len(d.Packages) > max {
		d.Packages = d.Packages[:max]
	}
	if q := ev.CodeQuality; q != nil && len(q.Issues) > max {
		q.Issues = q.Issues[:max]
	}
}
