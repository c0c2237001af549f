// Package gitinfo exposes last-commit metadata for source files so
// pages can show authorship and modification dates.
package gitinfo

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	git "github.com/go-git/go-git/v5"

	"github.com/uwe-app/app-sub001/internal/collation"
)

// ErrNoCommits indicates a file with no history in the repository.
var ErrNoCommits = errors.New("no commits for file")

// Info is the newest commit touching one source file.
type Info struct {
	Hash            string    `json:"hash"`
	AbbreviatedHash string    `json:"abbreviated_hash"`
	Author          string    `json:"author"`
	Email           string    `json:"email"`
	When            time.Time `json:"when"`
	Subject         string    `json:"subject"`
}

// Repository wraps an opened git repository rooted at or above a
// source tree.
type Repository struct {
	repo *git.Repository
	root string
}

// Open locates the repository containing dir, searching parent
// directories for the .git directory.
func Open(dir string) (*Repository, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository at %s: %w", dir, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("repository worktree: %w", err)
	}

	return &Repository{repo: repo, root: wt.Filesystem.Root()}, nil
}

// For returns the newest commit that touched the given file.
func (r *Repository) For(path string) (*Info, error) {
	rel, err := filepath.Rel(r.root, filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("%s is outside the repository: %w", path, err)
	}
	rel = filepath.ToSlash(rel)

	iter, err := r.repo.Log(&git.LogOptions{FileName: &rel})
	if err != nil {
		return nil, fmt.Errorf("log %s: %w", rel, err)
	}
	defer iter.Close()

	commit, err := iter.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: %w", rel, ErrNoCommits)
		}
		return nil, fmt.Errorf("log %s: %w", rel, err)
	}

	hash := commit.Hash.String()
	return &Info{
		Hash:            hash,
		AbbreviatedHash: hash[:8],
		Author:          commit.Author.Name,
		Email:           commit.Author.Email,
		When:            commit.Author.When,
		Subject:         firstLine(commit.Message),
	}, nil
}

// Annotate attaches commit metadata to every page of a collation under
// the "git" data key. Files without history are left unannotated.
func (r *Repository) Annotate(coll *collation.Collation) error {
	for _, target := range coll.Destinations() {
		if target.Page == nil {
			continue
		}
		info, err := r.For(target.Source)
		if err != nil {
			if errors.Is(err, ErrNoCommits) {
				continue
			}
			return err
		}
		target.Page.Data["git"] = info
	}
	return nil
}

func firstLine(message string) string {
	for i := 0; i < len(message); i++ {
		if message[i] == '\n' {
			return message[:i]
		}
	}
	return message
}
