package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/doctest/internal/history"
)

// NewHistoryCommand creates the history command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent verification runs",
		Long: `List recent verification runs recorded in the history database,
newest first.

Examples:
  doctest history
  doctest history --limit 5
  doctest history --db /tmp/history.db`,
		Args: cobra.NoArgs,
		RunE: historyCommand,
	}

	cmd.Flags().String("config", "", "Path to config file (default: .doctest/config.yaml)")
	cmd.Flags().String("db", "", "Path to the history database (default from config)")
	cmd.Flags().Int("limit", 20, "Maximum number of runs to list")

	return cmd
}

// historyCommand implements the history command logic
func historyCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	dbPath := cfg.History.DBPath
	if flagDB, _ := cmd.Flags().GetString("db"); flagDB != "" {
		dbPath = flagDB
	}

	store, err := history.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.RecentRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}

	for _, run := range runs {
		fmt.Fprintf(out, "%s  %-8s  %s  (%s, exit %d, %v)\n",
			run.Timestamp.Local().Format(time.DateTime),
			run.Verdict,
			run.Document,
			run.Platform,
			run.ExitCode,
			run.Duration.Round(time.Millisecond),
		)
	}

	return nil
}
