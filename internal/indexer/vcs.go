package indexer

import (
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/oracle-rag/oracle/internal/ocerrors"
)

// HeadCommit returns the current HEAD commit hash of the repository at
// repoPath, grounded on the teacher pack's go-git usage (ferg-cod3s-conexus's
// internal/mcp/git_helper.go: git.PlainOpen, repo.Head).
func HeadCommit(repoPath string) (string, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return "", ocerrors.IO("open git repository", err)
	}
	head, err := repo.Head()
	if err != nil {
		return "", ocerrors.IO("resolve HEAD", err)
	}
	return head.Hash().String(), nil
}

// ChangedFiles returns the set of paths (relative to repoPath) changed
// between sinceCommit and HEAD, per spec §4.10 step 2. If sinceCommit is
// empty (no prior checkpoint) or the repository cannot be opened or the
// commit cannot be resolved, an error is returned so the caller falls back
// to full_index.
func ChangedFiles(repoPath, sinceCommit string) ([]string, error) {
	if sinceCommit == "" {
		return nil, ocerrors.NotFound("no prior VCS checkpoint recorded")
	}

	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return nil, ocerrors.IO("open git repository", err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, ocerrors.IO("resolve HEAD", err)
	}

	headCommit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, ocerrors.IO("load HEAD commit", err)
	}

	sinceHash := plumbing.NewHash(sinceCommit)
	sinceCommitObj, err := repo.CommitObject(sinceHash)
	if err != nil {
		return nil, ocerrors.NotFound("prior checkpoint commit no longer reachable")
	}

	headTree, err := headCommit.Tree()
	if err != nil {
		return nil, ocerrors.IO("load HEAD tree", err)
	}
	sinceTree, err := sinceCommitObj.Tree()
	if err != nil {
		return nil, ocerrors.IO("load checkpoint tree", err)
	}

	changes, err := sinceTree.Diff(headTree)
	if err != nil {
		return nil, ocerrors.IO("diff trees", err)
	}

	seen := make(map[string]struct{}, len(changes))
	var paths []string
	for _, c := range changes {
		for _, p := range changePaths(c) {
			if p == "" {
				continue
			}
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			paths = append(paths, p)
		}
	}
	return paths, nil
}

func changePaths(c *object.Change) []string {
	var paths []string
	if c.From.Name != "" {
		paths = append(paths, c.From.Name)
	}
	if c.To.Name != "" && c.To.Name != c.From.Name {
		paths = append(paths, c.To.Name)
	}
	return paths
}
