// Package verifier orchestrates a golden-transcript verification run:
// precondition checks, snippet extraction, script assembly, execution, and
// transcript comparison.
package verifier

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/harrison/doctest/internal/compare"
	"github.com/harrison/doctest/internal/config"
	"github.com/harrison/doctest/internal/filelock"
	"github.com/harrison/doctest/internal/history"
	"github.com/harrison/doctest/internal/logger"
	"github.com/harrison/doctest/internal/runenv"
	"github.com/harrison/doctest/internal/runner"
	"github.com/harrison/doctest/internal/script"
	"github.com/harrison/doctest/internal/snippet"
)

// Recorder persists run outcomes. *history.Store implements it; a nil
// Recorder disables persistence.
type Recorder interface {
	RecordRun(ctx context.Context, run history.Run) error
}

// Report summarizes one verification run.
type Report struct {
	// RunID uniquely identifies this run in logs and history.
	RunID string

	// Document and Fixture are the input paths.
	Document string
	Fixture  string

	// Blocks is the number of extracted snippet blocks.
	Blocks int

	// ExitCode is the assembled script's exit status (-1 if it did not run
	// to completion).
	ExitCode int

	// Duration is the script's wall-clock execution time.
	Duration time.Duration

	// Output is the captured transcript.
	Output string

	// Result is the transcript comparison outcome. Zero-valued when the run
	// recorded a fixture instead of comparing.
	Result compare.Result
}

// Verifier runs golden-transcript verifications for documentation files.
type Verifier struct {
	cfg       *config.Config
	log       *logger.ConsoleLogger
	extractor *snippet.Extractor
	runner    *runner.Runner
	store     Recorder
	goos      string
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithRecorder attaches a run-history recorder.
func WithRecorder(store Recorder) Option {
	return func(v *Verifier) { v.store = store }
}

// WithGOOS overrides the target platform (for tests).
func WithGOOS(goos string) Option {
	return func(v *Verifier) { v.goos = goos }
}

// New creates a Verifier from configuration.
func New(cfg *config.Config, log *logger.ConsoleLogger, opts ...Option) *Verifier {
	v := &Verifier{
		cfg:       cfg,
		log:       log,
		extractor: snippet.NewExtractor(),
		runner:    runner.New(cfg.Timeout),
		goos:      runtime.GOOS,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// CheckPreconditions validates that every required binary is on PATH and the
// host platform is supported. It runs eagerly, before any work: a missing
// binary is fatal and must not be discovered halfway through a script.
func (v *Verifier) CheckPreconditions() error {
	if _, err := script.Interpreter(v.goos); err != nil {
		return &PreconditionError{Reason: fmt.Sprintf("platform %s", v.goos), Err: err}
	}

	for _, binary := range v.cfg.RequiredBinaries {
		if _, err := exec.LookPath(binary); err != nil {
			return &PreconditionError{
				Reason: fmt.Sprintf("required command %s not found", binary),
				Err:    ErrBinaryNotFound,
			}
		}
	}

	return nil
}

// Verify runs the document's snippets and compares the captured transcript
// against the fixture. A mismatch is returned as *MismatchError with the
// report still populated; the diff is the diagnostic payload.
func (v *Verifier) Verify(ctx context.Context, docPath string) (*Report, error) {
	fixturePath := v.cfg.FixturePath(docPath, v.goos)

	expected, err := os.ReadFile(fixturePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture %s: %w", fixturePath, err)
	}

	report, err := v.execute(ctx, docPath, fixturePath)
	if err != nil {
		v.record(ctx, report, history.VerdictError, "")
		return report, err
	}

	report.Result = compare.Transcripts(string(expected), report.Output)
	if !report.Result.Match {
		v.record(ctx, report, history.VerdictMismatch, report.Result.Diff)
		return report, &MismatchError{
			Document: docPath,
			Fixture:  fixturePath,
			Diff:     report.Result.Diff,
		}
	}

	v.record(ctx, report, history.VerdictPass, "")
	return report, nil
}

// Record runs the document's snippets and writes the captured transcript as
// the new fixture instead of comparing.
func (v *Verifier) Record(ctx context.Context, docPath string) (*Report, error) {
	fixturePath := v.cfg.FixturePath(docPath, v.goos)

	report, err := v.execute(ctx, docPath, fixturePath)
	if err != nil {
		v.record(ctx, report, history.VerdictError, "")
		return report, err
	}

	if err := filelock.RecordFixture(fixturePath, []byte(report.Output)); err != nil {
		return report, fmt.Errorf("failed to record fixture: %w", err)
	}

	report.Result = compare.Result{Match: true}
	v.record(ctx, report, history.VerdictPass, "")
	return report, nil
}

// execute performs the extract → assemble → run pipeline shared by Verify
// and Record.
func (v *Verifier) execute(ctx context.Context, docPath, fixturePath string) (*Report, error) {
	report := &Report{
		RunID:    uuid.NewString(),
		Document: docPath,
		Fixture:  fixturePath,
		ExitCode: -1,
	}

	source, err := os.ReadFile(docPath)
	if err != nil {
		return report, fmt.Errorf("failed to read document %s: %w", docPath, err)
	}

	blocks, err := v.extractor.Extract(source, v.cfg.FenceLanguage)
	if err != nil {
		return report, fmt.Errorf("failed to extract snippets from %s: %w", docPath, err)
	}
	report.Blocks = len(blocks)
	v.log.Debugf("run %s: extracted %d %s block(s) from %s", report.RunID, len(blocks), v.cfg.FenceLanguage, docPath)

	assembled, err := script.Assemble(blocks, script.Options{
		Strict:        v.cfg.Strict,
		VerifyCommand: v.cfg.VerifyCommand,
		GOOS:          v.goos,
	})
	if err != nil {
		return report, &PreconditionError{Reason: fmt.Sprintf("platform %s", v.goos), Err: err}
	}
	v.log.Tracef("run %s: assembled script:%s", report.RunID, assembled.Text)

	env := runenv.Build(v.cfg.EnvOverrides)

	result, err := v.runner.Run(ctx, assembled, env)
	if result != nil {
		report.ExitCode = result.ExitCode
		report.Duration = result.Duration
		report.Output = result.Output
		if result.CleanupErr != nil {
			// Worked around where possible; never masks the verdict.
			v.log.Warnf("run %s: temp directory cleanup failed: %v", report.RunID, result.CleanupErr)
		}
	}
	if err != nil {
		return report, &ExecutionError{Document: docPath, Err: err}
	}

	v.log.Debugf("run %s: script exited %d in %v", report.RunID, report.ExitCode, report.Duration.Round(time.Millisecond))
	return report, nil
}

// record persists the run outcome when a recorder is attached.
func (v *Verifier) record(ctx context.Context, report *Report, verdict, diff string) {
	if v.store == nil || report == nil {
		return
	}

	err := v.store.RecordRun(ctx, history.Run{
		ID:       report.RunID,
		Document: report.Document,
		Fixture:  report.Fixture,
		Platform: v.goos,
		Verdict:  verdict,
		ExitCode: report.ExitCode,
		Duration: report.Duration,
		Diff:     diff,
	})
	if err != nil {
		v.log.Warnf("run %s: failed to record history: %v", report.RunID, err)
	}
}
