// Package runenv builds the deterministic execution environment scripts run
// under.
//
// Commit hashes depend on author and committer identity and timestamps, so
// the fixture-comparison approach only works if those are frozen: any output
// line containing a hash would otherwise never match across machines or
// invocation times. The environment is an explicit immutable value threaded
// into execution, never a mutation of process-global state.
package runenv

import (
	"os"
	"sort"
	"strings"
)

// Default identity and timestamp overrides. The literals are arbitrary but
// must never change: recorded fixtures embed hashes derived from them.
const (
	AuthorName     = "Jane Doe"
	AuthorEmail    = "jane.doe@example.com"
	AuthorDate     = "2024-06-03T14:00:00.000Z"
	CommitterName  = "Jane Doe"
	CommitterEmail = "jane.doe@example.com"
	CommitterDate  = "2024-06-03T14:00:00.000Z"
)

// Environment is an immutable set of process environment variables.
type Environment struct {
	vars []string
}

// DefaultOverrides returns the frozen git identity and timestamp variables.
func DefaultOverrides() map[string]string {
	return map[string]string{
		"GIT_AUTHOR_NAME":     AuthorName,
		"GIT_AUTHOR_EMAIL":    AuthorEmail,
		"GIT_AUTHOR_DATE":     AuthorDate,
		"GIT_COMMITTER_NAME":  CommitterName,
		"GIT_COMMITTER_EMAIL": CommitterEmail,
		"GIT_COMMITTER_DATE":  CommitterDate,
	}
}

// Build seeds an Environment from the host process environment and applies
// the given overrides on top. Passing nil applies DefaultOverrides.
func Build(overrides map[string]string) Environment {
	return BuildFrom(os.Environ(), overrides)
}

// BuildFrom seeds an Environment from an explicit base environment slice and
// applies overrides on top. Existing keys are replaced in place; new keys are
// appended in sorted order so the result is deterministic.
func BuildFrom(base []string, overrides map[string]string) Environment {
	if overrides == nil {
		overrides = DefaultOverrides()
	}

	vars := make([]string, len(base))
	copy(vars, base)

	seen := make(map[string]bool, len(overrides))
	for i, entry := range vars {
		key, _, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		if value, overridden := overrides[key]; overridden {
			vars[i] = key + "=" + value
			seen[key] = true
		}
	}

	missing := make([]string, 0, len(overrides))
	for key := range overrides {
		if !seen[key] {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)
	for _, key := range missing {
		vars = append(vars, key+"="+overrides[key])
	}

	return Environment{vars: vars}
}

// Vars returns a copy of the environment in os/exec form.
func (e Environment) Vars() []string {
	vars := make([]string, len(e.vars))
	copy(vars, e.vars)
	return vars
}

// Lookup returns the value of key and whether it is present.
func (e Environment) Lookup(key string) (string, bool) {
	prefix := key + "="
	// Later entries win, matching how execve resolves duplicates in practice.
	for i := len(e.vars) - 1; i >= 0; i-- {
		if strings.HasPrefix(e.vars[i], prefix) {
			return strings.TrimPrefix(e.vars[i], prefix), true
		}
	}
	return "", false
}
