package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cocoabench/saiten/internal/session"
)

var sessionDir string

func newSessionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect recorded evaluation session logs",
	}

	cmd.PersistentFlags().StringVar(&sessionDir, "session-dir", filepath.Join(".saiten", "sessions"), "Directory holding session logs")

	cmd.AddCommand(newSessionListCommand())
	cmd.AddCommand(newSessionViewCommand())

	return cmd
}

func newSessionListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recorded sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := session.ListSessions(sessionDir)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No sessions found.") //nolint:errcheck
				return nil
			}
			for _, f := range files {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %d event(s)\n", //nolint:errcheck
					f.ModTime.Format("2006-01-02 15:04:05"), f.Name, f.NumEvents)
			}
			return nil
		},
	}
}

func newSessionViewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "view [session-file]",
		Short: "Render a session log as a timeline",
		Long: `Render a session log as a human-readable timeline.

Without an argument, the most recent session in the session directory
is shown.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) > 0 {
				path = args[0]
			} else {
				files, err := session.ListSessions(sessionDir)
				if err != nil {
					return err
				}
				if len(files) == 0 {
					return fmt.Errorf("no sessions found in %s", sessionDir)
				}
				path = files[0].Path
			}

			events, err := session.ReadEvents(path)
			if err != nil {
				return err
			}
			session.RenderTimeline(cmd.OutOrStdout(), events)
			return nil
		},
	}
}
