package scoring

import (
	"fmt"

	"github.com/CosmoTheDev/ctrlgrade/models"
)

// Op is how a rule changes a category's earned points.
type Op int

const (
	// Add adds Points.
	Add Op = iota
	// Cap lowers earned to at most Points.
	Cap
	// Floor raises earned to at least Points.
	Floor
	// Note records Detail without changing earned.
	Note
)

// Rule is one line of a category's rubric. When decides whether the rule
// fires; Detail renders the explanation recorded in the breakdown.
type Rule struct {
	Name   string
	When   func(in *Input) bool
	Op     Op
	Points int
	// Amount replaces Points when the delta is derived from the evidence.
	Amount func(in *Input) int
	Detail func(in *Input) string
}

func (r Rule) points(in *Input) int {
	if r.Amount != nil {
		return r.Amount(in)
	}
	return r.Points
}

// Rubric is an ordered rule list for one category.
type Rubric struct {
	Key   string
	Label string
	Max   int
	Rules []Rule
}

// Input is everything a rule may inspect. Policy is fixed for the whole run.
type Input struct {
	Kind     models.TargetKind
	Evidence models.Evidence
	RepoType models.RepoType
	Policy   Policy
}

// Evaluate runs the rubric in order. earned is clamped to [0, Max] after
// every step, so no intermediate state can leave the range.
func (r Rubric) Evaluate(in *Input) models.Category {
	cat := models.Category{Key: r.Key, Label: r.Label, Max: r.Max, Details: []string{}}
	for _, rule := range r.Rules {
		if rule.When != nil && !rule.When(in) {
			continue
		}
		detail := rule.Name
		if rule.Detail != nil {
			detail = rule.Detail(in)
		}
		before, points := cat.Earned, rule.points(in)
		switch rule.Op {
		case Add:
			cat.Earned = clamp(cat.Earned+points, 0, r.Max)
			detail = fmt.Sprintf("%s (%+d)", detail, cat.Earned-before)
		case Cap:
			if cat.Earned <= points {
				detail = fmt.Sprintf("%s (cap %d, no change)", detail, points)
				break
			}
			cat.Earned = clamp(points, 0, r.Max)
			detail = fmt.Sprintf("%s (capped at %d, -%d)", detail, cat.Earned, before-cat.Earned)
		case Floor:
			if cat.Earned >= points {
				continue
			}
			cat.Earned = clamp(points, 0, r.Max)
			detail = fmt.Sprintf("%s (floor %d)", detail, cat.Earned)
		case Note:
		}
		cat.Details = append(cat.Details, detail)
	}
	return cat
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// text returns a constant Detail.
func text(s string) func(*Input) string {
	return func(*Input) string { return s }
}
