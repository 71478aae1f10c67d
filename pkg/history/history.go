// Package history enumerates the commit history a collection run walks.
package history

import (
	"context"
	"fmt"

	"github.com/Sumatoshi-tech/gitpulse/pkg/gitlib"
)

// Commit is one revision in collection order. It is a plain value, safe
// to keep after the repository handle is freed.
type Commit struct {
	Hash      gitlib.Hash      `json:"hash"`
	Author    gitlib.Signature `json:"author"`
	Committer gitlib.Signature `json:"committer"`
	Message   string           `json:"message"`
}

// List walks the history reachable from tip and returns it oldest-first,
// the order collection runs process commits in.
func List(ctx context.Context, repo *gitlib.Repository, tip gitlib.Hash) ([]Commit, error) {
	commitIter, err := repo.Log(gitlib.LogOptions{From: tip, OldestFirst: true})
	if err != nil {
		return nil, fmt.Errorf("walk history from %s: %w", tip, err)
	}
	defer commitIter.Close()

	var commits []Commit

	forErr := commitIter.ForEach(func(commit *gitlib.Commit) error {
		ctxErr := ctx.Err()
		if ctxErr != nil {
			return ctxErr
		}

		commits = append(commits, Commit{
			Hash:      commit.Hash(),
			Author:    commit.Author(),
			Committer: commit.Committer(),
			Message:   commit.Message(),
		})

		return nil
	})
	if forErr != nil {
		return nil, fmt.Errorf("enumerate commits: %w", forErr)
	}

	return commits, nil
}
