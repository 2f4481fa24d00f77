package main

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "saiten",
		Short: "Saiten - CLI tool for grading agent task runs",
		Long: `Saiten grades agent task runs against per-task ground truth.

It loads the run records a task executor produced, extracts the answer
each agent emitted, validates it under exact or tolerance-based rules,
and reports the outcome.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	// Add subcommands
	cmd.AddCommand(newEvalCommand())
	cmd.AddCommand(newCheckCommand())
	cmd.AddCommand(newNewCommand())
	cmd.AddCommand(newCompareCommand())
	cmd.AddCommand(newSessionCommand())
	cmd.AddCommand(newEncryptCommand())
	cmd.AddCommand(newDecryptCommand())
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the saiten version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "saiten %s (%s)\n", version, runtime.Version()) //nolint:errcheck
		},
	}
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}
