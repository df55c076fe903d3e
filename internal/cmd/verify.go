package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/doctest/internal/compare"
	"github.com/harrison/doctest/internal/config"
	"github.com/harrison/doctest/internal/fileutil"
	"github.com/harrison/doctest/internal/history"
	"github.com/harrison/doctest/internal/logger"
	"github.com/harrison/doctest/internal/verifier"
)

// NewVerifyCommand creates the verify command
func NewVerifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <document.md | directory>",
		Short: "Run a document's shell snippets and compare against its fixture",
		Long: `Extract the fenced shell blocks from a documentation file, execute them
as one script inside a fresh temporary directory under a frozen git
identity/timestamp environment, and compare the captured output against the
platform-specific expected-output fixture.

Given a directory, every Markdown file in it is verified in sorted order.

Configuration is loaded from .doctest/config.yaml if present.
CLI flags override configuration file settings.

Examples:
  doctest verify docs/get-started.md
  doctest verify --fence sh --no-strict docs/tutorial.md
  doctest verify --timeout 2m docs/get-started.md
  doctest verify --record docs/get-started.md   # regenerate the fixture
  doctest verify --recursive docs/              # verify a whole tree

Exit code: 0 on match, 1 on mismatch or any failure`,
		Args: cobra.ExactArgs(1),
		RunE: verifyCommand,
	}

	cmd.Flags().String("config", "", "Path to config file (default: .doctest/config.yaml)")
	cmd.Flags().String("fence", "", "Fence language tag marking executable blocks")
	cmd.Flags().String("fixture-dir", "", "Directory holding expected-output fixtures")
	cmd.Flags().Bool("strict", false, "Halt the script on the first failing command")
	cmd.Flags().Bool("no-strict", false, "Keep executing past failing commands")
	cmd.Flags().String("timeout", "", "Maximum script execution time (e.g., 30s, 5m)")
	cmd.Flags().String("verify-command", "", "Command appended after the snippets")
	cmd.Flags().Bool("record", false, "Write the captured transcript as the new fixture")
	cmd.Flags().Bool("recursive", false, "Descend into subdirectories when given a directory")
	cmd.Flags().String("pattern", "", "Only verify documents whose basename matches this regex")
	cmd.Flags().Bool("no-history", false, "Do not record this run in the history database")
	cmd.Flags().Bool("verbose", false, "Show detailed execution information")

	return cmd
}

// verifyCommand implements the verify command logic
func verifyCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var fencePtr, verifyCmdPtr *string
	var strictPtr *bool
	var timeoutPtr *time.Duration

	if fence, _ := cmd.Flags().GetString("fence"); fence != "" {
		fencePtr = &fence
	}
	if fixtureDir, _ := cmd.Flags().GetString("fixture-dir"); fixtureDir != "" {
		cfg.FixtureDir = fixtureDir
	}
	if strict, _ := cmd.Flags().GetBool("strict"); strict {
		strictVal := true
		strictPtr = &strictVal
	}
	if noStrict, _ := cmd.Flags().GetBool("no-strict"); noStrict {
		strictVal := false
		strictPtr = &strictVal
	}
	if timeoutStr, _ := cmd.Flags().GetString("timeout"); timeoutStr != "" {
		timeout, err := time.ParseDuration(timeoutStr)
		if err != nil {
			return fmt.Errorf("invalid timeout format %q: %w", timeoutStr, err)
		}
		timeoutPtr = &timeout
	}
	if verifyCmd, _ := cmd.Flags().GetString("verify-command"); verifyCmd != "" {
		verifyCmdPtr = &verifyCmd
	}
	cfg.MergeWithFlags(fencePtr, strictPtr, timeoutPtr, verifyCmdPtr)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := newLogger(cmd, cfg)

	// Preconditions run before anything touches the filesystem, the history
	// database included: a missing binary must leave no trace behind.
	if err := verifier.New(cfg, log).CheckPreconditions(); err != nil {
		return err
	}

	v, store, err := buildVerifier(cmd, cfg, log)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	docs, err := resolveDocs(cmd, args[0])
	if err != nil {
		return err
	}

	record, _ := cmd.Flags().GetBool("record")
	var failed []string
	for _, docPath := range docs {
		if record {
			report, err := v.Record(cmd.Context(), docPath)
			if err != nil {
				return err
			}
			log.Successf("recorded fixture %s (%d block(s), exit %d)", report.Fixture, report.Blocks, report.ExitCode)
			continue
		}

		report, err := v.Verify(cmd.Context(), docPath)
		if err != nil {
			var mismatch *verifier.MismatchError
			if errors.As(err, &mismatch) {
				log.Errorf("testing failed due to unexpected output in %s:", docPath)
				compare.RenderDiff(cmd.OutOrStdout(), mismatch.Diff)
				failed = append(failed, docPath)
				continue
			}
			return err
		}
		log.Successf("%s verified (%d block(s), %v)", docPath, report.Blocks, report.Duration.Round(time.Millisecond))
	}

	if len(failed) > 0 {
		return fmt.Errorf("output mismatch for %s", strings.Join(failed, ", "))
	}
	if !record {
		log.Successf("testing completed successfully")
	}
	return nil
}

// resolveDocs expands the verify argument into the list of documents to run.
// A file argument is used as-is; a directory is searched for Markdown files,
// honoring --recursive and --pattern.
func resolveDocs(cmd *cobra.Command, path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to access %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	recursive, _ := cmd.Flags().GetBool("recursive")
	pattern, _ := cmd.Flags().GetString("pattern")

	result, err := fileutil.DiscoverDocs(path, fileutil.DiscoverOptions{
		Pattern:    pattern,
		Extensions: []string{".md"},
		Recursive:  recursive,
	})
	if err != nil {
		return nil, err
	}
	if len(result.Files) == 0 {
		return nil, fmt.Errorf("no Markdown documents found in %s", path)
	}
	return result.Files, nil
}

// loadConfig loads configuration from the --config flag or the default
// location.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath != "" {
		return config.LoadConfig(configPath)
	}
	return config.LoadConfigFromDir(".")
}

// newLogger builds the console logger for a command, honoring --verbose.
func newLogger(cmd *cobra.Command, cfg *config.Config) *logger.ConsoleLogger {
	level := cfg.LogLevel
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	return logger.NewConsoleLogger(cmd.OutOrStdout(), level)
}

// buildVerifier wires the verifier and, when enabled, the history store.
func buildVerifier(cmd *cobra.Command, cfg *config.Config, log *logger.ConsoleLogger) (*verifier.Verifier, *history.Store, error) {
	noHistory, _ := cmd.Flags().GetBool("no-history")
	if noHistory || !cfg.History.Enabled {
		return verifier.New(cfg, log), nil, nil
	}

	store, err := history.NewStore(cfg.History.DBPath)
	if err != nil {
		// History is an aid, not a gate: fall back to an unrecorded run.
		log.Warnf("failed to open history database: %v", err)
		return verifier.New(cfg, log), nil, nil
	}
	return verifier.New(cfg, log, verifier.WithRecorder(store)), store, nil
}
