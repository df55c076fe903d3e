// Package compare checks a captured transcript against an expected fixture
// and produces a line-level diff on mismatch.
//
// The contract is byte-for-byte equality after line-ending normalization.
// No fuzzy matching: the fixture encodes an exact expected transcript.
package compare

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Result is the outcome of a transcript comparison.
type Result struct {
	// Match is true when expected and actual are equal after normalization.
	Match bool

	// Diff is an ndiff-style line diff, empty on match. Common lines are
	// prefixed "  ", deletions "- ", additions "+ ".
	Diff string
}

// Normalize strips line-ending differences so transcripts captured on
// different platforms compare equal when their content matches.
func Normalize(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// Transcripts compares the expected fixture against the actual captured
// output. Both sides are normalized first.
func Transcripts(expected, actual string) Result {
	expected = Normalize(expected)
	actual = Normalize(actual)

	if expected == actual {
		return Result{Match: true}
	}

	return Result{
		Match: false,
		Diff:  diffLines(splitLines(expected), splitLines(actual)),
	}
}

// splitLines splits a transcript into lines without a phantom trailing entry
// for the final newline.
func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// diffLines renders expected vs actual as an ndiff-style listing. Lines only
// in the fixture are marked "- ", lines only in the actual output "+ ".
func diffLines(expected, actual []string) string {
	matcher := difflib.NewMatcher(expected, actual)

	var sb strings.Builder
	for _, op := range matcher.GetOpCodes() {
		switch op.Tag {
		case 'e':
			for _, line := range expected[op.I1:op.I2] {
				sb.WriteString("  " + line + "\n")
			}
		case 'd':
			for _, line := range expected[op.I1:op.I2] {
				sb.WriteString("- " + line + "\n")
			}
		case 'i':
			for _, line := range actual[op.J1:op.J2] {
				sb.WriteString("+ " + line + "\n")
			}
		case 'r':
			for _, line := range expected[op.I1:op.I2] {
				sb.WriteString("- " + line + "\n")
			}
			for _, line := range actual[op.J1:op.J2] {
				sb.WriteString("+ " + line + "\n")
			}
		}
	}
	return strings.TrimSuffix(sb.String(), "\n")
}
