package repository

import (
	"context"

	"github.com/CosmoTheDev/ctrlgrade/internal/config"
	"github.com/CosmoTheDev/ctrlgrade/models"
)

// MetadataProvider fetches descriptive repository facts from a hosting API.
// Metadata is enrichment only; callers treat failures as non-fatal.
type MetadataProvider interface {
	Name() string
	Fetch(ctx context.Context, owner, repo string) (*models.RepoMetadata, error)
}

// MetadataFor returns the provider for target, or nil when the host has no
// supported API.
func MetadataFor(cfg *config.Config, target models.AnalysisTarget) MetadataProvider {
	switch target.Provider {
	case "github":
		gh := config.GitHubConfig{Host: target.Host}
		if c, ok := matchGitHub(cfg, target.Host); ok {
			gh = c
		}
		p, err := NewGitHubMetadata(gh)
		if err != nil {
			return nil
		}
		return p
	case "gitlab":
		gl := config.GitLabConfig{Host: target.Host}
		if c, ok := matchGitLab(cfg, target.Host); ok {
			gl = c
		}
		p, err := NewGitLabMetadata(gl)
		if err != nil {
			return nil
		}
		return p
	}
	return nil
}

// TokenFor returns the clone credential configured for target's host.
func TokenFor(cfg *config.Config, target models.AnalysisTarget) string {
	switch target.Provider {
	case "github":
		if c, ok := matchGitHub(cfg, target.Host); ok {
			return c.Token
		}
	case "gitlab":
		if c, ok := matchGitLab(cfg, target.Host); ok {
			return c.Token
		}
	}
	return ""
}

func sameHost(configured, host, def string) bool {
	if configured == "" {
		configured = def
	}
	return configured == host
}

func matchGitHub(cfg *config.Config, host string) (config.GitHubConfig, bool) {
	if cfg == nil {
		return config.GitHubConfig{}, false
	}
	for _, c := range cfg.Git.GitHub {
		if sameHost(c.Host, host, "github.com") {
			return c, true
		}
	}
	return config.GitHubConfig{}, false
}

func matchGitLab(cfg *config.Config, host string) (config.GitLabConfig, bool) {
	if cfg == nil {
		return config.GitLabConfig{}, false
	}
	for _, c := range cfg.Git.GitLab {
		if sameHost(c.Host, host, "gitlab.com") {
			return c, true
		}
	}
	return config.GitLabConfig{}, false
}
