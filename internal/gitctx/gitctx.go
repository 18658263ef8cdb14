package gitctx

import (
	"context"
	"errors"
	"fmt"
	"strings"

	git "github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/go-git/go-git/v6/plumbing/storer"
)

// CommitMessage holds a commit hash and its full message.
type CommitMessage struct {
	Hash    string
	Message string
}

// Subject returns the first line of the message.
func (c CommitMessage) Subject() string {
	subject, _, _ := strings.Cut(c.Message, "\n")
	return strings.TrimSpace(subject)
}

// ShortHash returns the first 7 characters of the hash.
func (c CommitMessage) ShortHash() string {
	if len(c.Hash) > 7 {
		return c.Hash[:7]
	}
	return c.Hash
}

// RepoMeta contains git repository metadata.
type RepoMeta struct {
	Root   string `json:"root"`
	Head   string `json:"head"`
	Branch string `json:"branch,omitempty"`
}

// Open opens the repository containing path, searching parent directories.
func Open(path string) (*git.Repository, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("not a git repository: %s: %w", path, err)
	}
	return repo, nil
}

// GetRepoMeta collects repository metadata. Head and Branch are empty for a
// repository with no commits.
func GetRepoMeta(repo *git.Repository) RepoMeta {
	var meta RepoMeta
	if wt, err := repo.Worktree(); err == nil {
		meta.Root = wt.Filesystem.Root()
	}
	head, err := repo.Head()
	if err != nil {
		return meta
	}
	meta.Head = head.Hash().String()
	if head.Name().IsBranch() {
		meta.Branch = head.Name().Short()
	}
	return meta
}

// ListMessages returns commit messages reachable from revision, newest
// first. A limit of zero or less means no limit.
func ListMessages(ctx context.Context, repo *git.Repository, revision string, limit int) ([]CommitMessage, error) {
	if revision == "" {
		revision = "HEAD"
	}
	hash, err := repo.ResolveRevision(plumbing.Revision(revision))
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", revision, err)
	}

	iter, err := repo.Log(&git.LogOptions{From: *hash})
	if err != nil {
		return nil, fmt.Errorf("git log %s: %w", revision, err)
	}
	defer iter.Close()

	var commits []CommitMessage
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		commits = append(commits, CommitMessage{
			Hash:    c.Hash.String(),
			Message: c.Message,
		})
		if limit > 0 && len(commits) >= limit {
			return storer.ErrStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, storer.ErrStop) {
		return nil, fmt.Errorf("walking history from %s: %w", revision, err)
	}
	return commits, nil
}
