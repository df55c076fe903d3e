package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for doctest
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctest",
		Short: "Golden-transcript verifier for documentation walkthroughs",
		Long: `Doctest verifies that the shell walkthrough embedded in a documentation
file still reproduces byte-for-byte.

It extracts the fenced shell blocks, runs them as one script under a frozen
identity/timestamp environment inside a throwaway temporary directory, and
diffs the captured output against a checked-in platform-specific fixture.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	// Add subcommands
	cmd.AddCommand(NewVerifyCommand())
	cmd.AddCommand(NewSmokeCommand())
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}
