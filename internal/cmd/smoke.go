package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/doctest/internal/gitserve"
)

// NewSmokeCommand creates the smoke command
func NewSmokeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Run the git-over-HTTP push/fetch smoke sequence",
		Long: `Bootstrap a throwaway bare repository, serve it from a short-lived local
server, and exercise clone, fetch, commit, and push against it.

Two server modes:
  cgi   smart HTTP via the external git-http-backend program; push succeeds
  dumb  static HTTPS serving with a self-signed certificate; push is
        expected to fail with git exit status 128 (no receive-pack)

The server binds a fixed port, so only one smoke run may execute on a host
at a time; runs are serialized through a lock file.

Examples:
  doctest smoke
  doctest smoke --mode dumb
  doctest smoke --port 8800 --timeout 2m`,
		Args: cobra.NoArgs,
		RunE: smokeCommand,
	}

	cmd.Flags().String("config", "", "Path to config file (default: .doctest/config.yaml)")
	cmd.Flags().Int("port", 0, "Listen port (default from config, 8000)")
	cmd.Flags().String("mode", "", "Server mode: cgi or dumb")
	cmd.Flags().String("timeout", "", "Maximum run time (e.g., 2m)")
	cmd.Flags().Bool("verbose", false, "Show detailed execution information")

	return cmd
}

// smokeCommand implements the smoke command logic
func smokeCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.Smoke.Port = port
	}
	if mode, _ := cmd.Flags().GetString("mode"); mode != "" {
		cfg.Smoke.Mode = mode
	}
	if timeoutStr, _ := cmd.Flags().GetString("timeout"); timeoutStr != "" {
		timeout, err := time.ParseDuration(timeoutStr)
		if err != nil {
			return fmt.Errorf("invalid timeout format %q: %w", timeoutStr, err)
		}
		cfg.Timeout = timeout
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	harness := &gitserve.Harness{
		Port:     cfg.Smoke.Port,
		Mode:     cfg.Smoke.Mode,
		LockPath: cfg.Smoke.LockPath,
		Timeout:  cfg.Timeout,
		Log:      newLogger(cmd, cfg),
	}

	return harness.Run(cmd.Context())
}
