// Package script assembles extracted snippet blocks into one executable
// script and applies platform-specific syntax rewrites.
//
// Assembly and rewriting are pure text transforms; execution lives in the
// runner package. Keeping the two apart means the generated script can be
// inspected and unit tested without spawning a process.
package script

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/harrison/doctest/internal/snippet"
)

// ErrUnsupportedPlatform indicates the host OS has no known interpreter or
// rewrite rules.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// Options controls script assembly.
type Options struct {
	// Strict halts the script on the first failing command (set -xe).
	// When false the script keeps executing (set -x) and mismatches surface
	// through the transcript comparison instead.
	Strict bool

	// VerifyCommand, when non-empty, is appended as the final command. It
	// exists to defeat residual non-determinism not covered by the frozen
	// environment.
	VerifyCommand string

	// GOOS is the target platform (runtime.GOOS of the host).
	GOOS string
}

// Script is an assembled, platform-adjusted script ready for execution.
type Script struct {
	// Text is the full script body handed to the interpreter.
	Text string

	// Interpreter is the command prefix the script text is appended to,
	// e.g. ["/bin/bash", "-c"].
	Interpreter []string
}

// Assemble joins blocks with newline separators into a single script under
// the configured prelude, applies the platform rewrite pass, and selects the
// interpreter. Blocks are concatenated rather than run individually because
// later blocks depend on working-directory and repository state left behind
// by earlier ones. Zero blocks is valid: the script is then the prelude plus
// the verify command, if any.
func Assemble(blocks []snippet.Block, opts Options) (*Script, error) {
	interpreter, err := Interpreter(opts.GOOS)
	if err != nil {
		return nil, err
	}

	bodies := make([]string, 0, len(blocks))
	for _, b := range blocks {
		bodies = append(bodies, b.Text)
	}

	text := fmt.Sprintf("\n%s\n%s", prelude(opts.GOOS, opts.Strict), strings.Join(bodies, "\n"))
	if opts.VerifyCommand != "" {
		text += "\n" + opts.VerifyCommand
	}

	return &Script{
		Text:        RewriteFor(opts.GOOS, text),
		Interpreter: interpreter,
	}, nil
}

// Interpreter returns the command prefix used to execute a script on the
// given platform. Unknown platforms are a precondition failure.
func Interpreter(goos string) ([]string, error) {
	switch goos {
	case "linux", "darwin":
		return []string{"/bin/bash", "-c"}, nil
	case "windows":
		return []string{"powershell", "-NoProfile", "-Command"}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, goos)
	}
}

// prelude returns the echo-and-strictness preamble for the platform.
func prelude(goos string, strict bool) string {
	if goos == "windows" {
		if strict {
			return "$ErrorActionPreference = 'Stop'"
		}
		return "$ErrorActionPreference = 'Continue'"
	}
	if strict {
		return "set -xe"
	}
	return "set -x"
}

// emptyKeyArg matches empty-string arguments such as ssh-keygen's -N "",
// which PowerShell would otherwise swallow before the child process sees it.
var emptyKeyArg = regexp.MustCompile(`(\s-[A-Za-z])\s+""`)

// RewriteFor applies platform-specific syntax substitutions without changing
// command semantics. It is a pure function of the platform tag and text; on
// unix platforms the text passes through unchanged.
func RewriteFor(goos, text string) string {
	if goos != "windows" {
		return text
	}

	// Statement separator: PowerShell has no &&.
	text = strings.ReplaceAll(text, " && ", "; ")
	// Noisy-output redirection target.
	text = strings.ReplaceAll(text, "/dev/null", "$null")
	// Preserve empty-string arguments through PowerShell argument parsing.
	text = emptyKeyArg.ReplaceAllString(text, `$1 '""'`)

	return text
}
