package models

// RepoType classifies the analysed project's packaging intent.
type RepoType string

const (
	RepoTypeApplication RepoType = "application"
	RepoTypeLibrary     RepoType = "library"
	RepoTypeFramework   RepoType = "framework"
	RepoTypeCLI         RepoType = "cli"
	RepoTypeMonorepo    RepoType = "monorepo"
)

// IsLibraryLike is true for types published for consumption by other code.
func (r RepoType) IsLibraryLike() bool {
	switch r {
	case RepoTypeLibrary, RepoTypeFramework, RepoTypeCLI:
		return true
	}
	return false
}

// Category is one capped scoring bucket. Details records every rule that
// changed Earned, in evaluation order.
type Category struct {
	Key     string   `json:"key"     yaml:"key"`
	Label   string   `json:"label"   yaml:"label"`
	Earned  int      `json:"earned"  yaml:"earned"`
	Max     int      `json:"max"     yaml:"max"`
	Details []string `json:"details" yaml:"details"`
}

// ScoreBreakdown is the scoring engine's output.
type ScoreBreakdown struct {
	Security     Category `json:"security"      yaml:"security"`
	CodeQuality  Category `json:"code_quality"  yaml:"code_quality"`
	Testing      Category `json:"testing"       yaml:"testing"`
	Dependencies Category `json:"dependencies"  yaml:"dependencies"`
	Hygiene      Category `json:"hygiene"       yaml:"hygiene"`
	RawTotal     int      `json:"raw_total"     yaml:"raw_total"`
	Multiplier   float64  `json:"multiplier"    yaml:"multiplier"`
	Overall      int      `json:"overall"       yaml:"overall"`
}

// Categories returns the five categories in display order.
func (s ScoreBreakdown) Categories() []Category {
	return []Category{s.Security, s.CodeQuality, s.Testing, s.Dependencies, s.Hygiene}
}

// Confidence reflects how much evidence was actually collected.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// Verdict is the qualitative summary of a score.
type Verdict struct {
	Label  string `json:"label"  yaml:"label"`
	Emoji  string `json:"emoji"  yaml:"emoji"`
	Reason string `json:"reason" yaml:"reason"`
	Color  string `json:"color"  yaml:"color"` // green | blue | yellow | orange | red
}
