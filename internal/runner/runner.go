// Package runner executes assembled scripts inside a scoped temporary
// working directory and captures their combined output.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/harrison/doctest/internal/fileutil"
	"github.com/harrison/doctest/internal/runenv"
	"github.com/harrison/doctest/internal/script"
)

// ErrTimeout indicates the script exceeded the configured execution deadline.
// A hung script must never block the verifier indefinitely.
var ErrTimeout = errors.New("script execution timed out")

// Result holds the outcome of one script execution.
type Result struct {
	// Output is the merged stdout+stderr stream, interleaved as produced.
	Output string

	// ExitCode is the script's exit status; -1 if the process did not run
	// to completion. A non-zero exit is not itself a failure: error-path
	// documentation examples are expected to exit non-zero, and only the
	// transcript comparison decides pass/fail.
	ExitCode int

	// Duration is the wall-clock execution time.
	Duration time.Duration

	// CleanupErr records a temp-dir removal failure. It is surfaced as a
	// warning and never masks the run verdict.
	CleanupErr error
}

// Runner executes scripts with a mandatory timeout.
type Runner struct {
	// Timeout bounds a single script execution. Zero means DefaultTimeout.
	Timeout time.Duration
}

// DefaultTimeout bounds script execution when no timeout is configured.
const DefaultTimeout = 10 * time.Minute

// New creates a Runner with the given timeout (zero = DefaultTimeout).
func New(timeout time.Duration) *Runner {
	return &Runner{Timeout: timeout}
}

// Run executes s under env inside a freshly created temporary directory.
// The directory is exclusively owned by this run and removed on all exit
// paths, clearing read-only attributes where needed. Run returns an error
// only when the script could not be executed at all or timed out; exit
// status and output are reported through Result.
func (r *Runner) Run(ctx context.Context, s *script.Script, env runenv.Environment) (*Result, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	workDir, err := makeWorkDir()
	if err != nil {
		return nil, err
	}

	result := &Result{ExitCode: -1}
	defer func() {
		if err := fileutil.ForceRemoveAll(workDir); err != nil {
			result.CleanupErr = err
		}
	}()

	args := append(s.Interpreter[1:], s.Text)
	cmd := exec.CommandContext(ctx, s.Interpreter[0], args...)
	cmd.Dir = workDir
	cmd.Env = env.Vars()

	start := time.Now()
	output, runErr := cmd.CombinedOutput()
	result.Duration = time.Since(start)
	result.Output = string(output)

	if ctx.Err() == context.DeadlineExceeded {
		return result, fmt.Errorf("%w after %v", ErrTimeout, timeout)
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, fmt.Errorf("failed to execute script: %w", runErr)
	}

	result.ExitCode = 0
	return result, nil
}

// makeWorkDir creates the run's temporary directory and resolves symlinks so
// any path the script echoes matches what the kernel reports (on macOS,
// /var/folders is a symlink into /private).
func makeWorkDir() (string, error) {
	dir, err := os.MkdirTemp("", "doctest-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp directory: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		_ = fileutil.ForceRemoveAll(dir)
		return "", fmt.Errorf("failed to resolve temp directory: %w", err)
	}
	return resolved, nil
}
