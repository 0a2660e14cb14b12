// Package revision describes the source revision being deployed.
package revision

import (
	"github.com/go-git/go-git/v5"

	"github.com/sidkik/shipyard/pkg/errors"
)

const (
	// Unknown is the revision of a project that isn't in a git repository.
	Unknown = "unknown"

	shortHashLength = 7
	dirtySuffix     = "-dirty"
)

// Describe returns the short hash of HEAD for the repository containing
// `dir`. If the worktree has uncommitted changes, "-dirty" is appended.
func Describe(dir string) (string, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err == git.ErrRepositoryNotExists {
		return Unknown, nil
	}
	if err != nil {
		return "", errors.WithContext(err, "open repository")
	}

	head, err := repo.Head()
	if err != nil {
		// A repository without any commits has no HEAD to describe.
		return Unknown, nil
	}

	rev := head.Hash().String()[:shortHashLength]

	worktree, err := repo.Worktree()
	if err != nil {
		return "", errors.WithContext(err, "get worktree")
	}

	status, err := worktree.Status()
	if err != nil {
		return "", errors.WithContext(err, "get status")
	}

	if !status.IsClean() {
		rev += dirtySuffix
	}
	return rev, nil
}
