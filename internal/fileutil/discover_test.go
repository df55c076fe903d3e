package fileutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTree(t *testing.T, files []string) string {
	t.Helper()
	dir := t.TempDir()
	for _, f := range files {
		path := filepath.Join(dir, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}
	return dir
}

func baseNames(paths []string) []string {
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = filepath.Base(p)
	}
	return names
}

func TestDiscoverDocs(t *testing.T) {
	dir := seedTree(t, []string{
		"get-started.md",
		"get-started-expected-unix.txt",
		"hooks.md",
		"notes.txt",
		"guides/advanced.md",
		".doctest/config.yaml",
		".git/HEAD",
		"drafts/wip.md",
	})

	tests := []struct {
		name     string
		opts     DiscoverOptions
		expected []string
	}{
		{
			name:     "markdown in top directory only",
			opts:     DiscoverOptions{Extensions: []string{".md"}},
			expected: []string{"get-started.md", "hooks.md"},
		},
		{
			// Results are ordered by full path, so drafts/wip.md sorts before
			// the top-level files and guides/advanced.md lands between them.
			name:     "recursive picks up subdirectories",
			opts:     DiscoverOptions{Extensions: []string{".md"}, Recursive: true},
			expected: []string{"wip.md", "get-started.md", "advanced.md", "hooks.md"},
		},
		{
			name: "excluded directories are skipped",
			opts: DiscoverOptions{
				Extensions:  []string{".md"},
				Recursive:   true,
				ExcludeDirs: []string{"drafts"},
			},
			expected: []string{"get-started.md", "advanced.md", "hooks.md"},
		},
		{
			name: "pattern filters by basename",
			opts: DiscoverOptions{
				Extensions: []string{".md"},
				Recursive:  true,
				Pattern:    "^get-",
			},
			expected: []string{"get-started.md"},
		},
		{
			name:     "extension without dot and mixed case",
			opts:     DiscoverOptions{Extensions: []string{"MD"}},
			expected: []string{"get-started.md", "hooks.md"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := DiscoverDocs(dir, tt.opts)
			require.NoError(t, err)
			assert.Empty(t, result.Errors)
			assert.Equal(t, tt.expected, baseNames(result.Files))
		})
	}
}

func TestDiscoverDocsHiddenDirectoriesAlwaysSkipped(t *testing.T) {
	dir := seedTree(t, []string{"doc.md", ".hidden/secret.md"})

	result, err := DiscoverDocs(dir, DiscoverOptions{Extensions: []string{".md"}, Recursive: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"doc.md"}, baseNames(result.Files))
}

func TestDiscoverDocsReturnsAbsolutePaths(t *testing.T) {
	dir := seedTree(t, []string{"doc.md"})

	result, err := DiscoverDocs(dir, DiscoverOptions{})
	require.NoError(t, err)
	require.Len(t, result.Files, 1)
	assert.True(t, filepath.IsAbs(result.Files[0]))
}

func TestDiscoverDocsErrors(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		_, err := DiscoverDocs(filepath.Join(t.TempDir(), "nope"), DiscoverOptions{})
		assert.Error(t, err)
	})

	t.Run("path is a file", func(t *testing.T) {
		dir := seedTree(t, []string{"doc.md"})
		_, err := DiscoverDocs(filepath.Join(dir, "doc.md"), DiscoverOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a directory")
	})

	t.Run("invalid pattern", func(t *testing.T) {
		_, err := DiscoverDocs(t.TempDir(), DiscoverOptions{Pattern: "[unclosed"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid pattern")
	})
}

func TestDiscoverDocsEmptyDirectory(t *testing.T) {
	result, err := DiscoverDocs(t.TempDir(), DiscoverOptions{Recursive: true})
	require.NoError(t, err)
	assert.Empty(t, result.Files)
	assert.Empty(t, result.Errors)
}
