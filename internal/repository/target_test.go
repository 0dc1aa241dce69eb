package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/CosmoTheDev/ctrlgrade/models"
)

func TestResolveTarget(t *testing.T) {
	tests := []struct {
		raw      string
		kind     models.TargetKind
		url      string
		provider string
		owner    string
		repo     string
	}{
		{"https://github.com/acme/shop", models.TargetRepository, "https://github.com/acme/shop", "github", "acme", "shop"},
		{"https://github.com/acme/shop.git", models.TargetRepository, "https://github.com/acme/shop", "github", "acme", "shop"},
		{"https://www.github.com/acme/shop/tree/main/src", models.TargetRepository, "https://github.com/acme/shop", "github", "acme", "shop"},
		{"github.com/acme/shop", models.TargetRepository, "https://github.com/acme/shop", "github", "acme", "shop"},
		{"git@github.com:acme/shop.git", models.TargetRepository, "https://github.com/acme/shop", "github", "acme", "shop"},
		{"ssh://git@gitlab.com/group/sub/proj.git", models.TargetRepository, "https://gitlab.com/group/sub/proj", "gitlab", "group/sub", "proj"},
		{"https://gitlab.com/group/sub/proj/-/blob/main/README.md", models.TargetRepository, "https://gitlab.com/group/sub/proj", "gitlab", "group/sub", "proj"},
		{"https://gitlab.example.org/team/app", models.TargetRepository, "https://gitlab.example.org/team/app", "gitlab", "team", "app"},
		{"https://bitbucket.org/team/app/src/master/", models.TargetRepository, "https://bitbucket.org/team/app", "bitbucket", "team", "app"},
		{"https://git.example.com/team/app.git", models.TargetRepository, "https://git.example.com/team/app", "git", "team", "app"},
		{"https://example.com/docs", models.TargetDeployment, "https://example.com/docs", "", "", ""},
		{"http://localhost:3000", models.TargetDeployment, "http://localhost:3000", "", "", ""},
		{"  https://acme.dev  ", models.TargetDeployment, "https://acme.dev", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ResolveTarget(tt.raw)
			if err != nil {
				t.Fatalf("ResolveTarget(%q): %v", tt.raw, err)
			}
			if got.Kind != tt.kind || got.URL != tt.url || got.Provider != tt.provider || got.Owner != tt.owner || got.Repo != tt.repo {
				t.Errorf("got %+v", got)
			}
		})
	}
}

func TestResolveTargetUnsupported(t *testing.T) {
	for _, raw := range []string{
		"",
		"ftp://example.com/file",
		"https://github.com/acme",
		"https://github.com/",
		"git@github.com",
		"not a url",
		"mailto:someone@example.com",
	} {
		if _, err := ResolveTarget(raw); !errors.Is(err, ErrUnsupportedTarget) {
			t.Errorf("ResolveTarget(%q) = %v, want ErrUnsupportedTarget", raw, err)
		}
	}
}

func TestCloneFailureRemovesDirectory(t *testing.T) {
	root := t.TempDir()
	cm := NewCloneManager(root)
	missing := "file://" + filepath.Join(root, "does-not-exist")

	if _, err := cm.Clone(context.Background(), missing, ""); err == nil {
		t.Fatal("expected clone of a missing repository to fail")
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("working copy left behind: %v", entries)
	}
}

func TestCleanupIsIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ctrlgrade-test")
	if err := os.MkdirAll(filepath.Join(dir, "src"), 0o700); err != nil {
		t.Fatal(err)
	}
	wc := &WorkingCopy{ID: "test", LocalPath: dir}
	cm := NewCloneManager("")

	cm.Cleanup(wc)
	cm.Cleanup(wc)
	cm.Cleanup(nil)

	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("working copy still present: %v", err)
	}
}
