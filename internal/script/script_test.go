package script

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/doctest/internal/snippet"
)

func TestAssembleStrict(t *testing.T) {
	blocks := []snippet.Block{
		{Language: "bash", Text: "git init"},
		{Language: "bash", Text: "git add README.md\ngit commit -m \"init\""},
	}

	s, err := Assemble(blocks, Options{Strict: true, GOOS: "linux"})
	require.NoError(t, err)

	assert.Equal(t, "\nset -xe\ngit init\ngit add README.md\ngit commit -m \"init\"", s.Text)
	assert.Equal(t, []string{"/bin/bash", "-c"}, s.Interpreter)
}

func TestAssembleLenient(t *testing.T) {
	s, err := Assemble([]snippet.Block{{Text: "false"}}, Options{Strict: false, GOOS: "linux"})
	require.NoError(t, err)

	assert.Equal(t, "\nset -x\nfalse", s.Text)
}

func TestAssembleAppendsVerifyCommand(t *testing.T) {
	s, err := Assemble([]snippet.Block{{Text: "git init"}}, Options{
		Strict:        true,
		VerifyCommand: "git fsck",
		GOOS:          "darwin",
	})
	require.NoError(t, err)

	assert.Equal(t, "\nset -xe\ngit init\ngit fsck", s.Text)
}

func TestAssembleZeroBlocks(t *testing.T) {
	// A document with no fenced blocks is a valid, degenerate run: only the
	// prelude and any verify command execute.
	s, err := Assemble(nil, Options{Strict: true, GOOS: "linux"})
	require.NoError(t, err)
	assert.Equal(t, "\nset -xe\n", s.Text)

	s, err = Assemble(nil, Options{Strict: true, VerifyCommand: "git fsck", GOOS: "linux"})
	require.NoError(t, err)
	assert.Equal(t, "\nset -xe\n\ngit fsck", s.Text)
}

func TestAssembleUnsupportedPlatform(t *testing.T) {
	_, err := Assemble(nil, Options{GOOS: "plan9"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedPlatform))
}

func TestInterpreter(t *testing.T) {
	tests := []struct {
		goos     string
		expected []string
		wantErr  bool
	}{
		{goos: "linux", expected: []string{"/bin/bash", "-c"}},
		{goos: "darwin", expected: []string{"/bin/bash", "-c"}},
		{goos: "windows", expected: []string{"powershell", "-NoProfile", "-Command"}},
		{goos: "js", wantErr: true},
		{goos: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			interp, err := Interpreter(tt.goos)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrUnsupportedPlatform))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, interp)
		})
	}
}

func TestRewriteForUnixPassthrough(t *testing.T) {
	text := "ssh-keygen -q -t ecdsa -N \"\" -f ./keys/root 2> /dev/null && echo ok"
	assert.Equal(t, text, RewriteFor("linux", text))
	assert.Equal(t, text, RewriteFor("darwin", text))
}

func TestRewriteForWindows(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{
			name:     "statement separator",
			in:       "git init && git add .",
			expected: "git init; git add .",
		},
		{
			name:     "null redirection",
			in:       "ssh-keygen -q 2> /dev/null",
			expected: "ssh-keygen -q 2> $null",
		},
		{
			name:     "empty string argument quoting",
			in:       `ssh-keygen -t ecdsa -N "" -f ./keys/root`,
			expected: `ssh-keygen -t ecdsa -N '""' -f ./keys/root`,
		},
		{
			name:     "combined",
			in:       `mkdir keys && ssh-keygen -N "" -f ./keys/root 2> /dev/null`,
			expected: `mkdir keys; ssh-keygen -N '""' -f ./keys/root 2> $null`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, RewriteFor("windows", tt.in))
		})
	}
}

func TestAssembleWindowsPrelude(t *testing.T) {
	s, err := Assemble([]snippet.Block{{Text: "git init"}}, Options{Strict: true, GOOS: "windows"})
	require.NoError(t, err)
	assert.Equal(t, "\n$ErrorActionPreference = 'Stop'\ngit init", s.Text)
	assert.Equal(t, []string{"powershell", "-NoProfile", "-Command"}, s.Interpreter)
}
