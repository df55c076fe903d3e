package compare

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranscriptsMatch(t *testing.T) {
	transcript := "+ git init\nInitialized empty Git repository\n"

	result := Transcripts(transcript, transcript)
	assert.True(t, result.Match)
	assert.Empty(t, result.Diff)
}

func TestTranscriptsNormalizationLaw(t *testing.T) {
	// Two transcripts that differ only in line-ending style compare equal.
	unix := "line one\nline two\n"
	windows := "line one\r\nline two\r\n"

	result := Transcripts(unix, windows)
	assert.True(t, result.Match)

	result = Transcripts(windows, unix)
	assert.True(t, result.Match)
}

func TestTranscriptsSingleLineDrift(t *testing.T) {
	expected := "+ git commit -m \"init\"\n[main 1a2b3c4] init\ndone\n"
	actual := "+ git commit -m \"init\"\n[main 9f8e7d6] init\ndone\n"

	result := Transcripts(expected, actual)
	assert.False(t, result.Match)

	lines := strings.Split(result.Diff, "\n")
	assert.Contains(t, lines, "  + git commit -m \"init\"")
	assert.Contains(t, lines, "- [main 1a2b3c4] init")
	assert.Contains(t, lines, "+ [main 9f8e7d6] init")
	assert.Contains(t, lines, "  done")

	// Exactly one deletion and one addition: the single drifted line.
	deletions, additions := 0, 0
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "- "):
			deletions++
		case strings.HasPrefix(line, "+ "):
			additions++
		}
	}
	assert.Equal(t, 1, deletions)
	assert.Equal(t, 1, additions)
}

func TestTranscriptsMissingLine(t *testing.T) {
	expected := "one\ntwo\nthree\n"
	actual := "one\nthree\n"

	result := Transcripts(expected, actual)
	assert.False(t, result.Match)
	assert.Contains(t, strings.Split(result.Diff, "\n"), "- two")
}

func TestTranscriptsExtraLine(t *testing.T) {
	expected := "one\nthree\n"
	actual := "one\ntwo\nthree\n"

	result := Transcripts(expected, actual)
	assert.False(t, result.Match)
	assert.Contains(t, strings.Split(result.Diff, "\n"), "+ two")
}

func TestTranscriptsEmptyBothSides(t *testing.T) {
	result := Transcripts("", "")
	assert.True(t, result.Match)
}

func TestTranscriptsEmptyExpected(t *testing.T) {
	result := Transcripts("", "surprise\n")
	assert.False(t, result.Match)
	assert.Equal(t, "+ surprise", result.Diff)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "a\nb\n", Normalize("a\r\nb\r\n"))
	assert.Equal(t, "a\nb\n", Normalize("a\nb\n"))
	assert.Equal(t, "", Normalize(""))
}

func TestRenderDiffNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	RenderDiff(&buf, "- old\n+ new\n  same")

	// Non-terminal writers get the diff verbatim, newline-terminated.
	assert.Equal(t, "- old\n+ new\n  same\n", buf.String())
}

func TestRenderDiffEmpty(t *testing.T) {
	var buf bytes.Buffer
	RenderDiff(&buf, "")
	assert.Empty(t, buf.String())
}
