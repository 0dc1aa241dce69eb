package scoring

import "github.com/CosmoTheDev/ctrlgrade/models"

// MaxOverall is the ceiling for any overall score. Evidence-based scoring
// never asserts perfection.
const MaxOverall = 95

// Coverage returns the fraction of confidence-bearing collectors that ran.
// Repositories count {security, code quality, dependency}; deployments
// count {probe, HTML content checks, page-speed}.
func Coverage(kind models.TargetKind, ev models.Evidence) float64 {
	var slots []bool
	if kind == models.TargetDeployment {
		d := ev.Deployment
		slots = []bool{
			d != nil && d.Analyzed && d.Reachable,
			d != nil && d.HTMLParsed,
			ev.PageSpeed != nil && ev.PageSpeed.Analyzed,
		}
	} else {
		slots = []bool{
			ev.Security != nil && ev.Security.Analyzed,
			ev.CodeQuality != nil && ev.CodeQuality.Analyzed,
			ev.Dependency != nil && ev.Dependency.Analyzed,
		}
	}
	ran := 0
	for _, ok := range slots {
		if ok {
			ran++
		}
	}
	return float64(ran) / float64(len(slots))
}

// ConfidenceFor maps coverage to a confidence level and its multiplier.
func ConfidenceFor(coverage float64) (models.Confidence, float64) {
	switch {
	case coverage >= 0.8:
		return models.ConfidenceHigh, 1.0
	case coverage >= 0.4:
		return models.ConfidenceMedium, 0.85
	default:
		return models.ConfidenceLow, 0.7
	}
}
