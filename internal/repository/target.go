package repository

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/CosmoTheDev/ctrlgrade/models"
)

// ErrUnsupportedTarget is returned when a URL is neither a recognisable
// repository nor an http(s) deployment.
var ErrUnsupportedTarget = errors.New("unsupported analysis target")

// repoHosts maps well-known code hosts to their provider name.
var repoHosts = map[string]string{
	"github.com":    "github",
	"gitlab.com":    "gitlab",
	"bitbucket.org": "bitbucket",
}

// subPathMarkers end the owner/repo portion of a code-host URL
// (e.g. /tree/main/src, /-/blob/x, /src/master).
var subPathMarkers = map[string]bool{
	"tree": true, "blob": true, "commits": true, "commit": true,
	"pulls": true, "issues": true, "src": true, "-": true,
	"actions": true, "wiki": true, "releases": true,
}

// ResolveTarget classifies raw as a repository or deployment target.
// Repository URLs are normalised to https://host/owner/repo.
func ResolveTarget(raw string) (models.AnalysisTarget, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.AnalysisTarget{}, fmt.Errorf("%w: empty URL", ErrUnsupportedTarget)
	}

	// scp-style: git@host:owner/repo(.git)
	if at := strings.Index(raw, "@"); at > 0 && !strings.Contains(raw, "://") {
		rest := raw[at+1:]
		host, path, ok := strings.Cut(rest, ":")
		if !ok || host == "" {
			return models.AnalysisTarget{}, fmt.Errorf("%w: %q", ErrUnsupportedTarget, raw)
		}
		return repoTarget(raw, strings.ToLower(host), path)
	}

	// Bare host/path input ("github.com/owner/repo") is treated as https.
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return models.AnalysisTarget{}, fmt.Errorf("%w: %q", ErrUnsupportedTarget, raw)
	}
	scheme := strings.ToLower(u.Scheme)
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")

	switch scheme {
	case "ssh", "git":
		return repoTarget(raw, host, u.Path)
	case "http", "https":
	default:
		return models.AnalysisTarget{}, fmt.Errorf("%w: scheme %q", ErrUnsupportedTarget, u.Scheme)
	}

	if providerFor(host) != "" || strings.HasSuffix(u.Path, ".git") {
		return repoTarget(raw, host, u.Path)
	}

	return models.AnalysisTarget{
		URL:  u.String(),
		Kind: models.TargetDeployment,
		Host: host,
	}, nil
}

func providerFor(host string) string {
	if p, ok := repoHosts[host]; ok {
		return p
	}
	if strings.HasPrefix(host, "gitlab.") {
		return "gitlab"
	}
	if strings.HasPrefix(host, "github.") {
		return "github"
	}
	return ""
}

// repoTarget builds a repository target from host and a path of the form
// owner/repo[/sub/path]. GitLab namespaces may nest, so everything before
// the first sub-path marker is kept there.
func repoTarget(raw, host, path string) (models.AnalysisTarget, error) {
	provider := providerFor(host)
	if provider == "" {
		provider = "git"
	}

	var segs []string
	for _, s := range strings.Split(strings.Trim(path, "/"), "/") {
		if s == "" {
			continue
		}
		if len(segs) >= 2 && subPathMarkers[s] {
			break
		}
		segs = append(segs, s)
	}
	if provider != "gitlab" && provider != "git" && len(segs) > 2 {
		segs = segs[:2]
	}
	if len(segs) < 2 {
		return models.AnalysisTarget{}, fmt.Errorf("%w: %q has no owner/repo path", ErrUnsupportedTarget, raw)
	}
	segs[len(segs)-1] = strings.TrimSuffix(segs[len(segs)-1], ".git")
	if segs[len(segs)-1] == "" {
		return models.AnalysisTarget{}, fmt.Errorf("%w: %q has no repository name", ErrUnsupportedTarget, raw)
	}

	owner := strings.Join(segs[:len(segs)-1], "/")
	repo := segs[len(segs)-1]
	return models.AnalysisTarget{
		URL:      fmt.Sprintf("https://%s/%s/%s", host, owner, repo),
		Kind:     models.TargetRepository,
		Provider: provider,
		Host:     host,
		Owner:    owner,
		Repo:     repo,
	}, nil
}
