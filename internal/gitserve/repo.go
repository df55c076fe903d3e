// Package gitserve hosts the git-over-HTTP smoke harness: a throwaway bare
// repository fronted by a short-lived local server, exercised with a
// clone/fetch/push sequence.
//
// The harness does not implement any Git wire semantics; serving is delegated
// to git's own CGI program (git-http-backend) or, in dumb mode, to static
// file serving of a bare repository kept current by update-server-info.
package gitserve

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/harrison/doctest/internal/runenv"
)

// BareRepoName is the repository path component served over HTTP.
const BareRepoName = "repo.git"

// runGit executes a git command in dir and returns its combined output.
func runGit(ctx context.Context, dir string, env runenv.Environment, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	cmd.Env = env.Vars()
	output, err := cmd.CombinedOutput()
	if err != nil {
		return string(output), fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(output)))
	}
	return string(output), nil
}

// runGitExpect executes a git command and checks the exit status against an
// expectation. Error-path steps (a push against a server that cannot
// receive-pack) are expected to exit non-zero, so an expected failure is not
// an error here.
func runGitExpect(ctx context.Context, dir string, env runenv.Environment, expected int, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	cmd.Env = env.Vars()
	output, err := cmd.CombinedOutput()

	code := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
		}
		code = exitErr.ExitCode()
	}

	if code != expected {
		return fmt.Errorf("git %s: expected exit %d but got %d: %s",
			strings.Join(args, " "), expected, code, strings.TrimSpace(string(output)))
	}
	return nil
}

// InitBareRepo creates a bare repository under parentDir, enables smart-HTTP
// push/pull, installs a post-update hook running update-server-info (so dumb
// HTTP clients always see current refs), and primes the server info files.
func InitBareRepo(ctx context.Context, parentDir string, env runenv.Environment) (string, error) {
	barePath := filepath.Join(parentDir, BareRepoName)

	if _, err := runGit(ctx, "", env, "init", "--bare", barePath); err != nil {
		return "", err
	}
	if _, err := runGit(ctx, "", env, "-C", barePath, "config", "http.receivepack", "true"); err != nil {
		return "", err
	}
	if _, err := runGit(ctx, "", env, "-C", barePath, "config", "http.uploadpack", "true"); err != nil {
		return "", err
	}

	hookPath := filepath.Join(barePath, "hooks", "post-update")
	hook := "#!/bin/sh\ngit update-server-info\n"
	if err := os.WriteFile(hookPath, []byte(hook), 0o755); err != nil {
		return "", fmt.Errorf("failed to write post-update hook: %w", err)
	}

	if _, err := runGit(ctx, "", env, "-C", barePath, "update-server-info"); err != nil {
		return "", err
	}

	return barePath, nil
}

// SeedRepo initializes a scratch worktree with a single README commit on
// main and pushes it to the bare repository, so clones have something to
// fetch. The frozen environment keeps the seed commit hash stable.
func SeedRepo(ctx context.Context, workDir, barePath string, env runenv.Environment) error {
	if _, err := runGit(ctx, "", env, "init", "-b", "main", workDir); err != nil {
		return err
	}

	readme := filepath.Join(workDir, "README.md")
	if err := os.WriteFile(readme, []byte("# Local Test Repository\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write README: %w", err)
	}

	steps := [][]string{
		{"-C", workDir, "config", "--local", "user.name", runenv.AuthorName},
		{"-C", workDir, "config", "--local", "user.email", runenv.AuthorEmail},
		{"-C", workDir, "add", "."},
		{"-C", workDir, "commit", "-m", "Initial commit"},
		{"-C", workDir, "remote", "add", "origin", barePath},
		{"-C", workDir, "push", "origin", "main"},
	}
	for _, args := range steps {
		if _, err := runGit(ctx, "", env, args...); err != nil {
			return err
		}
	}

	return nil
}
