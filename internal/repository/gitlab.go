package repository

import (
	"context"
	"fmt"

	"github.com/CosmoTheDev/ctrlgrade/internal/config"
	"github.com/CosmoTheDev/ctrlgrade/models"
	gitlab "gitlab.com/gitlab-org/api/client-go"
)

// GitLabMetadata reads project metadata from GitLab (cloud and self-hosted).
type GitLabMetadata struct {
	client *gitlab.Client
}

// NewGitLabMetadata creates a GitLabMetadata from the given configuration.
func NewGitLabMetadata(cfg config.GitLabConfig) (*GitLabMetadata, error) {
	var opts []gitlab.ClientOptionFunc
	if cfg.Host != "" && cfg.Host != "gitlab.com" {
		opts = append(opts, gitlab.WithBaseURL(fmt.Sprintf("https://%s/api/v4/", cfg.Host)))
	}
	client, err := gitlab.NewClient(cfg.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating GitLab client: %w", err)
	}
	return &GitLabMetadata{client: client}, nil
}

func (g *GitLabMetadata) Name() string { return "gitlab" }

func (g *GitLabMetadata) Fetch(ctx context.Context, owner, repo string) (*models.RepoMetadata, error) {
	pid := owner + "/" + repo
	withLicense := true
	proj, _, err := g.client.Projects.GetProject(pid, &gitlab.GetProjectOptions{License: &withLicense}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("getting GitLab project %s: %w", pid, err)
	}
	meta := &models.RepoMetadata{
		DefaultBranch: proj.DefaultBranch,
		Description:   proj.Description,
		Stars:         int(proj.StarCount),
		Archived:      proj.Archived,
	}
	if proj.License != nil {
		meta.License = proj.License.Key
	}

	// Language breakdown is a separate endpoint; the largest share wins.
	if langs, _, err := g.client.Projects.GetProjectLanguages(pid, gitlab.WithContext(ctx)); err == nil && langs != nil {
		var best float32
		for name, pct := range *langs {
			if pct > best || (pct == best && name < meta.Language) {
				best, meta.Language = pct, name
			}
		}
	}
	return meta, nil
}
