package models

// TargetKind distinguishes a hosted git repository from a live deployment.
type TargetKind string

const (
	TargetRepository TargetKind = "repository"
	TargetDeployment TargetKind = "deployment"
)

// AnalysisTarget is a resolved URL. It is never modified after resolution.
type AnalysisTarget struct {
	URL      string     `json:"url"      yaml:"url"`
	Kind     TargetKind `json:"kind"     yaml:"kind"`
	Provider string     `json:"provider,omitempty" yaml:"provider,omitempty"` // github | gitlab | bitbucket | git
	Host     string     `json:"host,omitempty"     yaml:"host,omitempty"`
	Owner    string     `json:"owner,omitempty"    yaml:"owner,omitempty"`
	Repo     string     `json:"repo,omitempty"     yaml:"repo,omitempty"`
}

// FullName returns owner/repo for repository targets and the URL otherwise.
func (t AnalysisTarget) FullName() string {
	if t.Kind == TargetRepository && t.Owner != "" {
		return t.Owner + "/" + t.Repo
	}
	return t.URL
}

// RepoMetadata is optional enrichment from the hosting provider's API.
type RepoMetadata struct {
	DefaultBranch string `json:"default_branch,omitempty" yaml:"default_branch,omitempty"`
	Language      string `json:"language,omitempty"       yaml:"language,omitempty"`
	License       string `json:"license,omitempty"        yaml:"license,omitempty"`
	Description   string `json:"description,omitempty"    yaml:"description,omitempty"`
	Stars         int    `json:"stars"                    yaml:"stars"`
	Archived      bool   `json:"archived"                 yaml:"archived"`
}
