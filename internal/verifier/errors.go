package verifier

import (
	"errors"
	"fmt"
)

// ErrBinaryNotFound indicates a required external binary is absent from PATH.
var ErrBinaryNotFound = errors.New("required binary not found")

// PreconditionError indicates the run could not start: a required binary is
// missing or the host platform is unsupported. No partial work is attempted
// and no filesystem mutation occurs before this is reported.
type PreconditionError struct {
	Reason string
	Err    error
}

// Error implements the error interface for PreconditionError.
func (e *PreconditionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("precondition failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("precondition failed: %s", e.Reason)
}

// Unwrap returns the underlying error.
func (e *PreconditionError) Unwrap() error { return e.Err }

// ExecutionError indicates the assembled script could not be executed to
// completion (spawn failure or timeout). The temp directory is still cleaned
// up when this is returned.
type ExecutionError struct {
	Document string
	Err      error
}

// Error implements the error interface for ExecutionError.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution failed for %s: %v", e.Document, e.Err)
}

// Unwrap returns the underlying error.
func (e *ExecutionError) Unwrap() error { return e.Err }

// MismatchError indicates the captured transcript differs from the fixture.
// It is a structured result, not a crash: the diff is the diagnostic payload.
type MismatchError struct {
	Document string
	Fixture  string
	Diff     string
}

// Error implements the error interface for MismatchError.
func (e *MismatchError) Error() string {
	return fmt.Sprintf("unexpected output for %s (fixture %s):\n%s", e.Document, e.Fixture, e.Diff)
}
