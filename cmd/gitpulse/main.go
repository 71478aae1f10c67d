// Package main provides the entry point for the gitpulse CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/gitpulse/cmd/gitpulse/commands"
)

// Overridden at build time via -ldflags.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gitpulse",
		Short: "Gitpulse - metric collection over git history",
		Long: `Gitpulse walks a repository's history, runs configured metric
collectors against every commit, and persists one record per
(commit, metric) pair. Interrupted runs resume where they stopped.

Commands:
  collect   Run the collection pipeline
  query     Print a collected metric series
  render    Render HTML charts from collected data`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewCollectCommand())
	rootCmd.AddCommand(commands.NewQueryCommand())
	rootCmd.AddCommand(commands.NewRenderCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "gitpulse %s (commit: %s)\n", version, commit)
		},
	}
}
