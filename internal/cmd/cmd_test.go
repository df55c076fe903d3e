package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/doctest/internal/history"
)

// writeTestConfig writes a config that only needs a POSIX shell on PATH and
// keeps the history database out of the working directory.
func writeTestConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	content := `required_binaries:
  - sh
history:
  enabled: false
timeout: 1m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("tests drive /bin/bash directly")
	}

	root := NewRootCommand()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestRootCommandSubcommands(t *testing.T) {
	root := NewRootCommand()

	names := make(map[string]bool)
	for _, sub := range root.Commands() {
		names[sub.Name()] = true
	}
	assert.True(t, names["verify"])
	assert.True(t, names["smoke"])
	assert.True(t, names["history"])
}

func TestVerifyEndToEndPass(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir)
	docPath := filepath.Join(dir, "demo.md")
	require.NoError(t, os.WriteFile(docPath, []byte("```bash\necho hello\n```\n"), 0o644))
	fixturePath := filepath.Join(dir, "demo-expected-unix.txt")
	require.NoError(t, os.WriteFile(fixturePath, []byte("+ echo hello\nhello\n"), 0o644))

	output, err := runCommand(t, "verify", "--config", cfgPath, docPath)
	require.NoError(t, err)
	assert.Contains(t, output, "testing completed successfully")
}

func TestVerifyEndToEndMismatch(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir)
	docPath := filepath.Join(dir, "demo.md")
	require.NoError(t, os.WriteFile(docPath, []byte("```bash\necho hello\n```\n"), 0o644))
	fixturePath := filepath.Join(dir, "demo-expected-unix.txt")
	require.NoError(t, os.WriteFile(fixturePath, []byte("+ echo hello\ngoodbye\n"), 0o644))

	output, err := runCommand(t, "verify", "--config", cfgPath, docPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output mismatch")
	assert.Contains(t, output, "- goodbye")
	assert.Contains(t, output, "+ hello")
}

func TestVerifyRecordFlag(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir)
	docPath := filepath.Join(dir, "demo.md")
	require.NoError(t, os.WriteFile(docPath, []byte("```bash\necho hello\n```\n"), 0o644))

	output, err := runCommand(t, "verify", "--config", cfgPath, "--record", docPath)
	require.NoError(t, err)
	assert.Contains(t, output, "recorded fixture")

	data, err := os.ReadFile(filepath.Join(dir, "demo-expected-unix.txt"))
	require.NoError(t, err)
	assert.Equal(t, "+ echo hello\nhello\n", string(data))

	// The recorded fixture verifies clean.
	_, err = runCommand(t, "verify", "--config", cfgPath, docPath)
	assert.NoError(t, err)
}

func TestVerifyDirectory(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir)
	docsDir := filepath.Join(dir, "docs")
	require.NoError(t, os.MkdirAll(docsDir, 0o755))

	for _, name := range []string{"alpha", "beta"} {
		require.NoError(t, os.WriteFile(filepath.Join(docsDir, name+".md"), []byte("```bash\necho "+name+"\n```\n"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(docsDir, name+"-expected-unix.txt"), []byte("+ echo "+name+"\n"+name+"\n"), 0o644))
	}

	output, err := runCommand(t, "verify", "--config", cfgPath, docsDir)
	require.NoError(t, err)
	assert.Contains(t, output, "alpha.md verified")
	assert.Contains(t, output, "beta.md verified")
}

func TestVerifyDirectoryReportsEveryMismatch(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir)
	docsDir := filepath.Join(dir, "docs")
	require.NoError(t, os.MkdirAll(docsDir, 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(docsDir, "good.md"), []byte("```bash\necho ok\n```\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(docsDir, "good-expected-unix.txt"), []byte("+ echo ok\nok\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(docsDir, "bad.md"), []byte("```bash\necho drift\n```\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(docsDir, "bad-expected-unix.txt"), []byte("+ echo drift\nstale\n"), 0o644))

	output, err := runCommand(t, "verify", "--config", cfgPath, docsDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.md")
	assert.NotContains(t, err.Error(), "good.md")
	// A mismatch in one document does not stop the rest of the batch.
	assert.Contains(t, output, "good.md verified")
}

func TestVerifyDirectoryEmpty(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir)
	docsDir := filepath.Join(dir, "docs")
	require.NoError(t, os.MkdirAll(docsDir, 0o755))

	_, err := runCommand(t, "verify", "--config", cfgPath, docsDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no Markdown documents")
}

func TestVerifyMissingDocument(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir)

	_, err := runCommand(t, "verify", "--config", cfgPath, filepath.Join(dir, "absent.md"))
	assert.Error(t, err)
}

func TestVerifyMissingBinaryFailsEarly(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("required_binaries:\n  - doctest-no-such-binary-xyzzy\nhistory:\n  enabled: false\n"), 0o644))
	docPath := filepath.Join(dir, "demo.md")
	require.NoError(t, os.WriteFile(docPath, []byte("```bash\necho hello\n```\n"), 0o644))

	_, err := runCommand(t, "verify", "--config", cfgPath, docPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "doctest-no-such-binary-xyzzy")
}

func TestVerifyMissingBinaryLeavesNoHistoryDB(t *testing.T) {
	// The precondition check runs before the history store opens; a missing
	// binary must not leave a database file behind.
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "state", "history.db")
	cfgPath := filepath.Join(dir, "config.yaml")
	content := "required_binaries:\n" +
		"  - doctest-no-such-binary-xyzzy\n" +
		"history:\n" +
		"  enabled: true\n" +
		"  db_path: " + dbPath + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o644))
	docPath := filepath.Join(dir, "demo.md")
	require.NoError(t, os.WriteFile(docPath, []byte("```bash\necho hello\n```\n"), 0o644))

	_, err := runCommand(t, "verify", "--config", cfgPath, docPath)
	require.Error(t, err)

	_, statErr := os.Stat(dbPath)
	assert.True(t, os.IsNotExist(statErr), "history database should not exist after a failed precondition")
	_, statErr = os.Stat(filepath.Dir(dbPath))
	assert.True(t, os.IsNotExist(statErr), "history database directory should not exist after a failed precondition")
}

func TestVerifyInvalidTimeoutFlag(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir)
	docPath := filepath.Join(dir, "demo.md")
	require.NoError(t, os.WriteFile(docPath, []byte("```bash\necho hello\n```\n"), 0o644))

	_, err := runCommand(t, "verify", "--config", cfgPath, "--timeout", "banana", docPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid timeout format")
}

func TestVerifyRequiresDocumentArgument(t *testing.T) {
	_, err := runCommand(t, "verify")
	assert.Error(t, err)
}

func TestHistoryCommandEmpty(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")

	output, err := runCommand(t, "history", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, output, "No runs recorded.")
}

func TestHistoryCommandListsRuns(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")

	store, err := history.NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.RecordRun(context.Background(), history.Run{
		ID:        "run-1",
		Document:  "docs/demo.md",
		Fixture:   "docs/demo-expected-unix.txt",
		Platform:  "linux",
		Verdict:   history.VerdictMismatch,
		ExitCode:  1,
		Duration:  2 * time.Second,
		Timestamp: time.Now().UTC(),
	}))
	require.NoError(t, store.Close())

	output, err := runCommand(t, "history", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, output, "docs/demo.md")
	assert.Contains(t, output, "mismatch")
	assert.Contains(t, output, "exit 1")
}
