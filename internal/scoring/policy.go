package scoring

import "github.com/CosmoTheDev/ctrlgrade/models"

// Threshold awards Points when a count is at most Max.
type Threshold struct {
	Max    int
	Points int
}

// Policy holds every repo-type-dependent scoring choice. It is selected once
// per run by PolicyFor and consumed by every category.
type Policy struct {
	RepoType models.RepoType
	// ProductionOnlyVulns substitutes production-dependency counts for all
	// vulnerability checks.
	ProductionOnlyVulns bool
	// TrustOwnLintConfig awards flat credit to projects that ship their own
	// lint configuration instead of re-linting them.
	TrustOwnLintConfig bool
	// Outdated maps outdated-package counts to points, first match wins.
	Outdated []Threshold
}

var (
	applicationOutdated = []Threshold{{Max: 0, Points: 4}, {Max: 5, Points: 2}, {Max: 10, Points: 1}}
	libraryOutdated     = []Threshold{{Max: 5, Points: 4}, {Max: 15, Points: 2}, {Max: 30, Points: 1}}
)

// PolicyFor selects the scoring policy for rt.
func PolicyFor(rt models.RepoType) Policy {
	if rt.IsLibraryLike() {
		return Policy{
			RepoType:            rt,
			ProductionOnlyVulns: true,
			TrustOwnLintConfig:  true,
			Outdated:            libraryOutdated,
		}
	}
	return Policy{RepoType: rt, Outdated: applicationOutdated}
}

// Vulns returns the counts scoring should use. Production counts are only
// substituted when the production-only audit actually ran.
func (p Policy) Vulns(sec *models.SecurityEvidence) models.VulnCounts {
	if sec == nil {
		return models.VulnCounts{}
	}
	if p.ProductionOnlyVulns && sec.ProductionAnalyzed {
		return sec.Production
	}
	return sec.All
}

// UsesProductionCounts reports whether Vulns substitutes production counts.
func (p Policy) UsesProductionCounts(sec *models.SecurityEvidence) bool {
	return sec != nil && p.ProductionOnlyVulns && sec.ProductionAnalyzed
}

// OutdatedPoints returns the points for n outdated packages.
func (p Policy) OutdatedPoints(n int) int {
	for _, t := range p.Outdated {
		if n <= t.Max {
			return t.Points
		}
	}
	return 0
}
