package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/dshills/rekey/internal/gitctx"
	"github.com/dshills/rekey/internal/rewrite"
	git "github.com/go-git/go-git/v6"
)

// Options controls a history scan.
type Options struct {
	Revision string
	Limit    int
	// All includes commits whose message would not change.
	All bool
}

// Commit is the dry-run result for one commit.
type Commit struct {
	Hash      string           `json:"hash"`
	ShortHash string           `json:"shortHash"`
	Subject   string           `json:"subject"`
	Before    string           `json:"before"`
	After     string           `json:"after"`
	Changes   []rewrite.Change `json:"changes,omitempty"`
	// Unmapped lists keys that matched the pattern but are not in the mapping.
	Unmapped  []string         `json:"unmapped,omitempty"`
}

// Changed reports whether the message would be rewritten.
func (c Commit) Changed() bool {
	return c.Before != c.After
}

// Report is the result of a history scan.
type Report struct {
	Tool      string          `json:"tool"`
	Version   string          `json:"version"`
	Repo      gitctx.RepoMeta `json:"repo"`
	Revision  string          `json:"revision"`
	Prefix    string          `json:"prefix"`
	Scanned   int             `json:"scanned"`
	Changed   int             `json:"changed"`
	Commits   []Commit        `json:"commits"`
	ElapsedMs int64           `json:"elapsedMs"`
}

// Run scans history in repo with rw and builds a report.
func Run(ctx context.Context, repo *git.Repository, rw *rewrite.Rewriter, opts Options) (*Report, error) {
	start := time.Now()
	revision := opts.Revision
	if revision == "" {
		revision = "HEAD"
	}

	messages, err := gitctx.ListMessages(ctx, repo, revision, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("listing commits: %w", err)
	}

	report := &Report{
		Tool:     "rekey",
		Repo:     gitctx.GetRepoMeta(repo),
		Revision: revision,
		Prefix:   rw.Prefix(),
		Commits:  []Commit{},
	}
	for _, msg := range messages {
		c := Message(rw, msg)
		report.Scanned++
		if c.Changed() {
			report.Changed++
		} else if !opts.All {
			continue
		}
		report.Commits = append(report.Commits, c)
	}
	report.ElapsedMs = time.Since(start).Milliseconds()
	return report, nil
}

// Message evaluates a single commit message.
func Message(rw *rewrite.Rewriter, msg gitctx.CommitMessage) Commit {
	after, changes := rw.RewriteWithChanges(msg.Message)

	mapped := make(map[string]bool, len(changes))
	for _, ch := range changes {
		mapped[ch.Token] = true
	}
	var unmapped []string
	for _, tok := range rewrite.Tokens(msg.Message) {
		if !mapped[tok] && !rw.Maps(tok) {
			unmapped = append(unmapped, tok)
		}
	}

	return Commit{
		Hash:      msg.Hash,
		ShortHash: msg.ShortHash(),
		Subject:   msg.Subject(),
		Before:    msg.Message,
		After:     after,
		Changes:   changes,
		Unmapped:  unmapped,
	}
}
