package gitserve

import (
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// AssertBranch checks that the bare repository has the given branch.
// Reading the repository directly is sturdier than parsing porcelain output
// from yet another git subprocess.
func AssertBranch(barePath, branch string) error {
	repo, err := git.PlainOpen(barePath)
	if err != nil {
		return fmt.Errorf("failed to open repository %s: %w", barePath, err)
	}

	if _, err := repo.Reference(plumbing.NewBranchReferenceName(branch), true); err != nil {
		return fmt.Errorf("branch %s not found in %s: %w", branch, barePath, err)
	}
	return nil
}

// AssertNoBranch checks that the bare repository does not have the branch.
// Used after a push that is expected to fail.
func AssertNoBranch(barePath, branch string) error {
	repo, err := git.PlainOpen(barePath)
	if err != nil {
		return fmt.Errorf("failed to open repository %s: %w", barePath, err)
	}

	if _, err := repo.Reference(plumbing.NewBranchReferenceName(branch), true); err == nil {
		return fmt.Errorf("branch %s unexpectedly present in %s", branch, barePath)
	}
	return nil
}

// AssertFileContent checks that the file at the tip of branch has exactly the
// wanted content.
func AssertFileContent(barePath, branch, name, want string) error {
	repo, err := git.PlainOpen(barePath)
	if err != nil {
		return fmt.Errorf("failed to open repository %s: %w", barePath, err)
	}

	ref, err := repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	if err != nil {
		return fmt.Errorf("branch %s not found in %s: %w", branch, barePath, err)
	}

	commit, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return fmt.Errorf("failed to read commit %s: %w", ref.Hash(), err)
	}

	file, err := commit.File(name)
	if err != nil {
		return fmt.Errorf("file %s not found at %s tip: %w", name, branch, err)
	}

	got, err := file.Contents()
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if got != want {
		return fmt.Errorf("file %s content mismatch: got %q, want %q", name, got, want)
	}
	return nil
}
