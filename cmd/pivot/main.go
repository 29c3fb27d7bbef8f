package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-preview"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var g globals

	rootCmd := &cobra.Command{
		Use:   "pivot",
		Short: "Pivot - interactive slice and dice over SQLite",
		Long: `Pivot explores a SQLite table through linked charts. Hover a bar to read
it, click or drag to highlight segments, and accept a highlight to filter
every view by it. Charts run in the terminal or stream to remote clients.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			g.quiet = cmd.Name() == "explore"
			g.setupLogging()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Config file (defaults to ./pivot.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Log interaction and scheduling details")
	rootCmd.PersistentFlags().StringVar(&g.logFile, "log-file", "", "Write logs to a file instead of stderr")

	rootCmd.AddCommand(newExploreCommand(&g))
	rootCmd.AddCommand(newServeCommand(&g))
	rootCmd.AddCommand(newQueryCommand(&g))
	rootCmd.AddCommand(newInitCommand(&g))

	return rootCmd
}
