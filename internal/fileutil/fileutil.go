// Package fileutil provides filesystem helpers shared by the runner and the
// smoke harness.
package fileutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ForceRemoveAll removes path and everything under it, clearing permission
// bits that block deletion. Key-generation steps leave read-only files
// (ssh-keygen writes private keys as 0400, bare repo objects are read-only),
// and cleanup must not fail on them: a cleanup failure would otherwise mask
// the true pass/fail result of the run.
func ForceRemoveAll(path string) error {
	err := os.RemoveAll(path)
	if err == nil {
		return nil
	}

	// Clear read-only attributes, then retry once.
	walkErr := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// Entry may already be gone; removal below decides.
			return nil
		}
		if d.IsDir() {
			_ = os.Chmod(p, 0o755)
		} else {
			_ = os.Chmod(p, 0o644)
		}
		return nil
	})
	if walkErr != nil && !os.IsNotExist(walkErr) {
		return fmt.Errorf("failed to clear permissions under %s: %w", path, walkErr)
	}

	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
