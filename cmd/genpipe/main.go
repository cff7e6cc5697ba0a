package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/genpipe/am"
	"github.com/teranos/genpipe/cmd/genpipe/commands"
	"github.com/teranos/genpipe/logger"
)

var rootCmd = &cobra.Command{
	Use:   "genpipe",
	Short: "genpipe - code generation pipeline for Go packages",
	Long: `genpipe runs code generators (targets) against the packages of a Go module.

Every (package, target) pair runs through the same middleware chain: error
recovery, logging, timeouts, rate limiting and dependency injection. Artifacts
land in the output directory or an S3 bucket, and each run is recorded in a
local history database.

Available commands:
  run      - Run targets against packages
  targets  - List registered targets
  history  - Inspect past runs
  am       - Manage genpipe configuration ("I am")
  version  - Show version information

Examples:
  genpipe run                        # All targets, all packages
  genpipe run -t typescript -p ./api/...
  genpipe run --check                # Fail if generated files are stale
  genpipe run --watch                # Rerun on every source change
  genpipe history ls`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")

		// Config errors surface from the command itself
		jsonLogs := false
		if cfg, err := am.Load(); err == nil {
			jsonLogs = cfg.Log.JSON
		}

		if err := logger.Initialize(jsonLogs, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")

	rootCmd.AddCommand(commands.RunCmd)
	rootCmd.AddCommand(commands.TargetsCmd)
	rootCmd.AddCommand(commands.HistoryCmd)
	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	err := rootCmd.Execute()
	if err != nil && !commands.IsSilent(err) {
		fmt.Fprintln(os.Stderr, "Error:", commands.FormatError(err))
	}
	os.Exit(commands.ExitCodeOf(err))
}
