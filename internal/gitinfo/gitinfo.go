// Package gitinfo extracts display metadata from a Git repository.
//
// The server only uses this for startup logging and the MCP server
// instructions; a repository that is not under Git is fully supported.
package gitinfo

import (
	"github.com/go-git/go-git/v5"
)

// Info describes the Git state of a repository, when available.
type Info struct {
	// Branch is the current branch name, or "detached" when HEAD does
	// not point at a branch.
	Branch string

	// Commit is the abbreviated HEAD commit hash.
	Commit string
}

// Detect inspects the repository at path. A non-Git directory or an
// unreadable HEAD returns (nil, nil): absence of Git metadata is never
// an error here.
func Detect(path string) (*Info, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, nil
	}

	head, err := repo.Head()
	if err != nil {
		return nil, nil
	}

	branch := "detached"
	if head.Name().IsBranch() {
		branch = head.Name().Short()
	}

	commit := head.Hash().String()
	if len(commit) > 12 {
		commit = commit[:12]
	}

	return &Info{Branch: branch, Commit: commit}, nil
}
