package scoring

import (
	"fmt"

	"github.com/CosmoTheDev/ctrlgrade/models"
)

// SecurityFloor is the analysed security score below which no target is
// considered production ready.
const SecurityFloor = 15

type rung struct {
	min    int
	label  string
	emoji  string
	reason string
	color  string
}

var applicationLadder = []rung{
	{85, "Production Ready", "🚀", "Strong evidence across every category", "green"},
	{70, "Interview Ready", "✅", "Solid fundamentals with minor gaps", "blue"},
	{50, "Needs Polish", "⚠️", "Noticeable gaps in quality or tooling", "yellow"},
	{0, "Not Interview Ready", "❌", "Significant gaps across several categories", "red"},
}

var libraryLadder = []rung{
	{85, "Publish Ready", "📦", "Safe to depend on", "green"},
	{70, "Solid Library", "✅", "Dependable with minor gaps", "blue"},
	{50, "Needs Work", "⚠️", "Consumers will notice gaps", "yellow"},
	{0, "Not Ready for Consumers", "❌", "Too many gaps to depend on", "red"},
}

// VerdictInput is the lookup key for a verdict.
type VerdictInput struct {
	Kind             models.TargetKind
	RepoType         models.RepoType
	Overall          int
	Security         int
	SecurityAnalyzed bool
	Testing          int
}

// Verdict applies the hard floors, then the ladder for the repo type.
func Verdict(in VerdictInput) models.Verdict {
	if in.SecurityAnalyzed && in.Security < SecurityFloor {
		return models.Verdict{
			Label:  "Not Production Ready",
			Emoji:  "🛑",
			Reason: fmt.Sprintf("Security issues: security scored %d/%d", in.Security, SecurityMax),
			Color:  "red",
		}
	}
	library := in.Kind == models.TargetRepository && in.RepoType.IsLibraryLike()
	if in.Kind == models.TargetRepository && !library && in.Testing == 0 {
		return models.Verdict{
			Label:  "Not Interview Ready",
			Emoji:  "❌",
			Reason: "No automated tests detected",
			Color:  "orange",
		}
	}
	ladder := applicationLadder
	if library {
		ladder = libraryLadder
	}
	for _, r := range ladder {
		if in.Overall >= r.min {
			return models.Verdict{Label: r.label, Emoji: r.emoji, Reason: r.reason, Color: r.color}
		}
	}
	r := ladder[len(ladder)-1]
	return models.Verdict{Label: r.label, Emoji: r.emoji, Reason: r.reason, Color: r.color}
}
