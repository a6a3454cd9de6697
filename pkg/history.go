package autobump

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// DefaultHistoryLimit caps how many commits ReadHistoryMessages walks when no
// tag is found.
const DefaultHistoryLimit = 250

// ReadHistoryMessages returns the messages of the commits reachable from HEAD
// in the repository containing dir, newest first, stopping before the first
// tagged commit or after limit commits. A repository without commits yields
// no messages.
func ReadHistoryMessages(dir string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("opening repository at %s: %w", dir, err)
	}

	head, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolving HEAD: %w", err)
	}

	tagged, err := taggedCommits(repo)
	if err != nil {
		return nil, err
	}

	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	defer iter.Close()

	var messages []string
	err = iter.ForEach(func(c *object.Commit) error {
		if tagged[c.Hash] || len(messages) >= limit {
			return storer.ErrStop
		}
		messages = append(messages, c.Message)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking history: %w", err)
	}
	return messages, nil
}

// taggedCommits resolves every tag, lightweight or annotated, to its commit.
func taggedCommits(repo *git.Repository) (map[plumbing.Hash]bool, error) {
	tags, err := repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	defer tags.Close()

	tagged := make(map[plumbing.Hash]bool)
	err = tags.ForEach(func(ref *plumbing.Reference) error {
		hash := ref.Hash()
		if tag, err := repo.TagObject(hash); err == nil {
			if c, err := tag.Commit(); err == nil {
				hash = c.Hash
			}
		}
		tagged[hash] = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	return tagged, nil
}
