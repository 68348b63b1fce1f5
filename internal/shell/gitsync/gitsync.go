// Package gitsync fetches or updates the local working copy of the
// application repository.
package gitsync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// =============================================================================
// Syncer
// =============================================================================

// Syncer implements the source-sync stage with go-git.
type Syncer struct {
	// Progress receives clone/pull progress output (the run log).
	Progress io.Writer
}

// NewSyncer returns a Syncer writing progress to the given writer.
func NewSyncer(progress io.Writer) *Syncer {
	if progress == nil {
		progress = io.Discard
	}
	return &Syncer{Progress: progress}
}

// Sync clones authURL into dir when dir does not exist, pulls the current
// branch otherwise, then checks out the requested branch.
func (s *Syncer) Sync(ctx context.Context, authURL, dir, branch string) error {
	var repo *git.Repository

	if _, err := os.Stat(dir); err == nil {
		repo, err = s.pull(ctx, dir)
		if err != nil {
			return err
		}
	} else if os.IsNotExist(err) {
		repo, err = s.clone(ctx, authURL, dir)
		if err != nil {
			return err
		}
	} else {
		return fmt.Errorf("stat %s: %w", dir, err)
	}

	return s.checkout(repo, branch)
}

func (s *Syncer) clone(ctx context.Context, authURL, dir string) (*git.Repository, error) {
	repo, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:      authURL,
		Progress: s.Progress,
	})
	if err != nil {
		return nil, fmt.Errorf("clone repository: %w", err)
	}
	return repo, nil
}

func (s *Syncer) pull(ctx context.Context, dir string) (*git.Repository, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", dir, err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("open worktree: %w", err)
	}

	err = worktree.PullContext(ctx, &git.PullOptions{
		RemoteName: "origin",
		Progress:   s.Progress,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil, fmt.Errorf("pull latest changes: %w", err)
	}
	return repo, nil
}

// checkout switches to the requested branch, creating a local branch from the
// remote one when it does not exist yet.
func (s *Syncer) checkout(repo *git.Repository, branch string) error {
	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}

	branchRef := plumbing.NewBranchReferenceName(branch)
	err = worktree.Checkout(&git.CheckoutOptions{Branch: branchRef})
	if err == nil {
		return nil
	}

	remoteRef, refErr := repo.Reference(plumbing.NewRemoteReferenceName("origin", branch), true)
	if refErr != nil {
		return fmt.Errorf("branch %q not found locally or on origin: %w", branch, err)
	}

	err = worktree.Checkout(&git.CheckoutOptions{
		Hash:   remoteRef.Hash(),
		Branch: branchRef,
		Create: true,
	})
	if err != nil {
		return fmt.Errorf("checkout branch %q: %w", branch, err)
	}
	return nil
}
