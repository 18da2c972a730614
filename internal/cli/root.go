package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

var rootCmd = &cobra.Command{
	Use:   "aqg",
	Short: "AI Quality Guardian - staleness-aware task orchestration for AI coding agents",
	Long: `AI Quality Guardian (aqg) queues natural-language tasks for an external,
crash-prone AI coding agent, tracks each task's lifecycle, detects when the
executor has died or hung, and decides how to recover.

It provides CLI commands for queueing and claiming tasks, recording progress,
handling clarification round-trips, recovering stale work after a crash, and
judging QA-gate results in CI.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("aqg %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
