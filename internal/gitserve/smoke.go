package gitserve

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/harrison/doctest/internal/filelock"
	"github.com/harrison/doctest/internal/fileutil"
	"github.com/harrison/doctest/internal/logger"
	"github.com/harrison/doctest/internal/runenv"
)

// Server modes.
const (
	ModeCGI  = "cgi"
	ModeDumb = "dumb"
)

// Smoke sequence constants.
const (
	TestBranch   = "test-branch"
	testFileName = "testfile.txt"
	testFileBody = "test content"
)

// Harness runs the git-over-HTTP smoke sequence: bootstrap a bare repo,
// serve it, then clone, fetch, commit, and push against it.
//
// The fixed port makes the harness non-reentrant per host, so a run holds a
// host-wide file lock for its duration.
type Harness struct {
	// Port is the fixed listen port.
	Port int

	// Mode selects the server flavor: ModeCGI (push succeeds) or ModeDumb
	// (TLS static serving; push expected to fail with git exit 128).
	Mode string

	// LockPath is the host-wide lock file.
	LockPath string

	// Timeout bounds the whole sequence. The original material documents a
	// transport configuration that stalls indefinitely; the deadline turns
	// such a stall into a reported failure.
	Timeout time.Duration

	// Log receives progress output.
	Log *logger.ConsoleLogger
}

// Run executes the smoke sequence. All scratch state lives in a temporary
// directory removed on every exit path; the server socket is released before
// Run returns.
func (h *Harness) Run(ctx context.Context) error {
	backendPath, err := h.checkBinaries()
	if err != nil {
		return err
	}

	lock := filelock.NewFileLock(h.LockPath)
	acquired, err := lock.TryLock()
	if err != nil {
		return err
	}
	if !acquired {
		return fmt.Errorf("another smoke run is in progress (lock %s held)", h.LockPath)
	}
	defer lock.Unlock()

	timeout := h.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	root, err := os.MkdirTemp("", "doctest-smoke-*")
	if err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() {
		if err := fileutil.ForceRemoveAll(root); err != nil {
			h.Log.Warnf("smoke cleanup failed: %v", err)
		}
	}()

	serverDir := filepath.Join(root, "server")
	seedDir := filepath.Join(root, "seed")
	cloneDir := filepath.Join(root, "clone")
	for _, dir := range []string{serverDir, seedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	env := runenv.Build(nil)

	h.Log.Infof("bootstrapping bare repository")
	barePath, err := InitBareRepo(ctx, serverDir, env)
	if err != nil {
		return err
	}
	if err := SeedRepo(ctx, seedDir, barePath, env); err != nil {
		return err
	}

	server, err := h.startServer(ctx, serverDir, barePath, backendPath)
	if err != nil {
		return err
	}
	defer func() {
		// Shutdown under its own deadline: the run context may already be
		// expired when we get here.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			h.Log.Warnf("server shutdown: %v", err)
		}
	}()

	if err := h.runSequence(ctx, server.URL, cloneDir, env); err != nil {
		return err
	}

	return h.assertOutcome(barePath)
}

// checkBinaries verifies the external programs the selected mode needs,
// eagerly and before any filesystem mutation. Returns the resolved
// git-http-backend path in CGI mode.
func (h *Harness) checkBinaries() (string, error) {
	if _, err := exec.LookPath("git"); err != nil {
		return "", fmt.Errorf("required command git not found")
	}

	switch h.Mode {
	case ModeCGI:
		backendPath, err := exec.LookPath("git-http-backend")
		if err != nil {
			return "", fmt.Errorf("required command git-http-backend not found")
		}
		return backendPath, nil
	case ModeDumb:
		if _, err := exec.LookPath("openssl"); err != nil {
			return "", fmt.Errorf("required command openssl not found")
		}
		return "", nil
	default:
		return "", fmt.Errorf("unknown smoke mode %q", h.Mode)
	}
}

// startServer starts the server for the configured mode.
func (h *Harness) startServer(ctx context.Context, serverDir, barePath, backendPath string) (*Server, error) {
	switch h.Mode {
	case ModeCGI:
		h.Log.Infof("starting git-http-backend CGI server on port %d", h.Port)
		return StartCGI(h.Port, serverDir, backendPath)
	case ModeDumb:
		h.Log.Infof("starting dumb HTTPS server on port %d", h.Port)
		certFile, keyFile, err := GenerateSelfSignedCert(ctx, serverDir)
		if err != nil {
			return nil, err
		}
		return StartDumbTLS(h.Port, barePath, certFile, keyFile)
	default:
		return nil, fmt.Errorf("unknown smoke mode %q", h.Mode)
	}
}

// runSequence performs the clone → fetch → commit → push steps.
func (h *Harness) runSequence(ctx context.Context, url, cloneDir string, env runenv.Environment) error {
	sslFlags := h.transportFlags()

	h.Log.Infof("testing clone using %s", url)
	if _, err := runGit(ctx, "", env, append(sslFlags, "clone", url, cloneDir)...); err != nil {
		return err
	}

	h.Log.Infof("testing remote configuration")
	if _, err := runGit(ctx, cloneDir, env, "remote", "set-url", "origin", url); err != nil {
		return err
	}

	h.Log.Infof("testing fetch")
	if _, err := runGit(ctx, cloneDir, env, append(sslFlags, "fetch", "origin")...); err != nil {
		return err
	}

	h.Log.Infof("testing push")
	if _, err := runGit(ctx, cloneDir, env, "checkout", "-b", TestBranch); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(cloneDir, testFileName), []byte(testFileBody), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", testFileName, err)
	}
	if _, err := runGit(ctx, cloneDir, env, "add", testFileName); err != nil {
		return err
	}
	if _, err := runGit(ctx, cloneDir, env, "commit", "-m", "Add test file"); err != nil {
		return err
	}

	// Dumb HTTP has no receive-pack endpoint; git exits 128 there, and that
	// failure is the expected outcome of the step.
	expected := 0
	if h.Mode == ModeDumb {
		expected = 128
	}
	pushArgs := append(sslFlags, "push", "-u", "origin", TestBranch)
	if err := runGitExpect(ctx, cloneDir, env, expected, pushArgs...); err != nil {
		return err
	}

	return nil
}

// transportFlags returns the -c flags needed to talk to the server: the dumb
// server's certificate is self-signed, so verification is disabled for it.
func (h *Harness) transportFlags() []string {
	if h.Mode == ModeDumb {
		return []string{"-c", "http.sslVerify=false"}
	}
	return nil
}

// assertOutcome inspects the bare repository after the sequence.
func (h *Harness) assertOutcome(barePath string) error {
	if err := AssertBranch(barePath, "main"); err != nil {
		return err
	}

	switch h.Mode {
	case ModeCGI:
		if err := AssertBranch(barePath, TestBranch); err != nil {
			return err
		}
		if err := AssertFileContent(barePath, TestBranch, testFileName, testFileBody); err != nil {
			return err
		}
	case ModeDumb:
		if err := AssertNoBranch(barePath, TestBranch); err != nil {
			return err
		}
	}

	h.Log.Successf("all smoke checks passed")
	return nil
}
