package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// DiscoverOptions configures documentation file discovery.
type DiscoverOptions struct {
	// Pattern is a regex matched against filenames without their extension
	Pattern string

	// Extensions limits discovery to the given extensions (case-insensitive)
	Extensions []string

	// Recursive enables descending into subdirectories
	Recursive bool

	// ExcludeDirs lists directory names to skip. Hidden directories (".git",
	// ".doctest") are always skipped.
	ExcludeDirs []string
}

// DiscoverResult holds the outcome of a discovery walk.
type DiscoverResult struct {
	// Files contains the absolute paths of all matched files, sorted by path
	Files []string

	// Errors contains non-fatal errors encountered during the walk
	Errors []error
}

// DiscoverDocs walks dir and returns the documentation files matching the
// options. Unreadable entries are collected as non-fatal errors so one bad
// subdirectory does not abort discovery; sorted output keeps batch
// verification order deterministic.
func DiscoverDocs(dir string, opts DiscoverOptions) (*DiscoverResult, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", dir)
	}

	var patternRegex *regexp.Regexp
	if opts.Pattern != "" {
		patternRegex, err = regexp.Compile(opts.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern: %w", err)
		}
	}

	extMap := make(map[string]bool)
	for _, ext := range opts.Extensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extMap[strings.ToLower(ext)] = true
	}

	excludeMap := make(map[string]bool)
	for _, name := range opts.ExcludeDirs {
		excludeMap[name] = true
	}

	result := &DiscoverResult{}

	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("error accessing %s: %w", path, err))
			return nil
		}
		if path == dir {
			return nil
		}

		if d.IsDir() {
			if excludeMap[d.Name()] || strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if !opts.Recursive {
				return filepath.SkipDir
			}
			return nil
		}

		name := d.Name()
		if len(extMap) > 0 && !extMap[strings.ToLower(filepath.Ext(name))] {
			return nil
		}
		if patternRegex != nil {
			base := strings.TrimSuffix(name, filepath.Ext(name))
			if !patternRegex.MatchString(base) {
				return nil
			}
		}

		absPath, err := filepath.Abs(path)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("failed to resolve path %s: %w", path, err))
			return nil
		}
		result.Files = append(result.Files, absPath)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	sort.Strings(result.Files)
	return result, nil
}
