package repository

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	gogit "github.com/go-git/go-git/v5"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/google/uuid"
)

// WorkingCopy is a shallow clone owned by exactly one analysis run.
type WorkingCopy struct {
	ID        string
	LocalPath string
	Branch    string
	Commit    string

	once sync.Once
}

// CloneManager clones repositories into per-run temporary directories.
type CloneManager struct {
	// root is the parent directory for clones; empty means os.TempDir().
	root string
}

// NewCloneManager creates a CloneManager rooted at root (may be empty).
func NewCloneManager(root string) *CloneManager {
	return &CloneManager{root: root}
}

// Clone performs a depth-1 clone of repoURL into <root>/ctrlgrade-<uuid>.
// token, when set, is used for HTTPS basic auth. The directory is removed
// before returning if the clone fails.
func (cm *CloneManager) Clone(ctx context.Context, repoURL, token string) (*WorkingCopy, error) {
	root := cm.root
	if root == "" {
		root = os.TempDir()
	}
	id := uuid.NewString()
	dir := filepath.Join(root, "ctrlgrade-"+id)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating working copy directory: %w", err)
	}

	opts := &gogit.CloneOptions{
		URL:   repoURL,
		Depth: 1,
		Tags:  gogit.NoTags,
	}
	if token != "" {
		opts.Auth = &githttp.BasicAuth{
			Username: "ctrlgrade",
			Password: token,
		}
	}

	slog.Debug("Cloning repository", "url", repoURL, "depth", 1, "dest", dir)

	repo, err := gogit.PlainCloneContext(ctx, dir, false, opts)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("cloning %s: %w", repoURL, err)
	}

	wc := &WorkingCopy{ID: id, LocalPath: dir}
	if head, err := repo.Head(); err == nil {
		wc.Branch = head.Name().Short()
		wc.Commit = head.Hash().String()
	} else {
		// An empty repository has no HEAD; analysis proceeds on the bare tree.
		slog.Debug("Resolving HEAD failed", "url", repoURL, "error", err)
	}
	return wc, nil
}

// Cleanup removes the working copy. Safe to call more than once.
func (cm *CloneManager) Cleanup(wc *WorkingCopy) {
	if wc == nil {
		return
	}
	wc.once.Do(func() {
		if err := os.RemoveAll(wc.LocalPath); err != nil {
			slog.Warn("Failed to clean up working copy", "path", wc.LocalPath, "error", err)
			return
		}
		slog.Debug("Removed working copy", "path", wc.LocalPath)
	})
}
