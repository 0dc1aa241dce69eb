package repository

import (
	"context"
	"fmt"
	"net/http"

	"github.com/CosmoTheDev/ctrlgrade/internal/config"
	"github.com/CosmoTheDev/ctrlgrade/models"
	gogithub "github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"
)

// GitHubMetadata reads repository metadata from GitHub or GitHub Enterprise.
// Without a token it uses the anonymous (rate-limited) API.
type GitHubMetadata struct {
	client *gogithub.Client
}

// NewGitHubMetadata creates a GitHubMetadata from the given configuration.
func NewGitHubMetadata(cfg config.GitHubConfig) (*GitHubMetadata, error) {
	var hc *http.Client
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		hc = oauth2.NewClient(context.Background(), ts)
	}
	client := gogithub.NewClient(hc)

	if cfg.Host != "" && cfg.Host != "github.com" {
		base := fmt.Sprintf("https://%s/api/v3/", cfg.Host)
		upload := fmt.Sprintf("https://%s/api/uploads/", cfg.Host)
		var err error
		client, err = client.WithEnterpriseURLs(base, upload)
		if err != nil {
			return nil, fmt.Errorf("configuring GitHub enterprise URLs: %w", err)
		}
	}
	return &GitHubMetadata{client: client}, nil
}

func (g *GitHubMetadata) Name() string { return "github" }

func (g *GitHubMetadata) Fetch(ctx context.Context, owner, repo string) (*models.RepoMetadata, error) {
	r, _, err := g.client.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return nil, fmt.Errorf("getting GitHub repo %s/%s: %w", owner, repo, err)
	}
	meta := &models.RepoMetadata{
		DefaultBranch: r.GetDefaultBranch(),
		Language:      r.GetLanguage(),
		Description:   r.GetDescription(),
		Stars:         r.GetStargazersCount(),
		Archived:      r.GetArchived(),
	}
	if lic := r.GetLicense(); lic != nil {
		meta.License = lic.GetSPDXID()
		if meta.License == "" || meta.License == "NOASSERTION" {
			meta.License = lic.GetName()
		}
	}
	return meta, nil
}
