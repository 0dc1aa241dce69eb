// Package scoring turns collected evidence into a capped, explainable score.
// Every category is an ordered rule list; see Rubric.
package scoring

import (
	"math"

	"github.com/CosmoTheDev/ctrlgrade/models"
)

// Result is the scoring engine's output for one run.
type Result struct {
	Breakdown  models.ScoreBreakdown
	Confidence models.Confidence
	Verdict    models.Verdict
}

// Engine scores evidence. It holds no state between calls, so identical
// input always yields identical output.
type Engine struct {
	repository [5]Rubric
	deployment [5]Rubric
}

// NewEngine returns an Engine with the built-in rubrics.
func NewEngine() *Engine {
	return &Engine{
		repository: [5]Rubric{repositorySecurity, repositoryCodeQuality, repositoryTesting, repositoryDependencies, repositoryHygiene},
		deployment: [5]Rubric{deploymentSecurity, deploymentPerformance, deploymentReliability, deploymentDiscoverability, deploymentContent},
	}
}

// Rubrics returns the rule lists used for kind, in slot order.
func (e *Engine) Rubrics(kind models.TargetKind) []Rubric {
	if kind == models.TargetDeployment {
		return e.deployment[:]
	}
	return e.repository[:]
}

// Score evaluates every category for ev. The policy is selected once from rt
// and shared by all categories.
func (e *Engine) Score(kind models.TargetKind, ev models.Evidence, rt models.RepoType) Result {
	if rt == "" {
		rt = models.RepoTypeApplication
	}
	in := &Input{Kind: kind, Evidence: ev, RepoType: rt, Policy: PolicyFor(rt)}

	rubrics := e.Rubrics(kind)
	cats := make([]models.Category, len(rubrics))
	raw := 0
	for i, r := range rubrics {
		cats[i] = r.Evaluate(in)
		raw += cats[i].Earned
	}

	conf, mult := ConfidenceFor(Coverage(kind, ev))
	overall := int(math.Round(float64(raw) * mult))
	if overall > MaxOverall {
		overall = MaxOverall
	}

	b := models.ScoreBreakdown{
		Security:     cats[0],
		CodeQuality:  cats[1],
		Testing:      cats[2],
		Dependencies: cats[3],
		Hygiene:      cats[4],
		RawTotal:     raw,
		Multiplier:   mult,
		Overall:      overall,
	}
	return Result{
		Breakdown:  b,
		Confidence: conf,
		Verdict: Verdict(VerdictInput{
			Kind:             kind,
			RepoType:         rt,
			Overall:          overall,
			Security:         b.Security.Earned,
			SecurityAnalyzed: securityAnalyzed(kind, ev),
			Testing:          b.Testing.Earned,
		}),
	}
}

func securityAnalyzed(kind models.TargetKind, ev models.Evidence) bool {
	if kind == models.TargetDeployment {
		return ev.Deployment != nil && ev.Deployment.Analyzed && ev.Deployment.Reachable
	}
	return ev.Security != nil && ev.Security.Analyzed
}
