package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/cocoabench/saiten/internal/validation"
)

func newCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <suite.yaml>",
		Short: "Check suite and task files against their schemas",
		Long: `Check a suite file and every task file it references against the
embedded JSON Schemas, before any grading touches them.

Reports schema violations per file. Encrypted task files are decrypted
with the nearest canary passphrase before validation; files that cannot
be read are reported rather than skipped.`,
		Args:          cobra.ExactArgs(1),
		RunE:          checkCommandE,
		SilenceErrors: true,
	}
	cmd.Flags().String("format", "text", "Output format: text | json")
	return cmd
}

// --- JSON output structs ---

type checkJSONReport struct {
	Timestamp   string              `json:"timestamp"`
	SuitePath   string              `json:"suite_path"`
	Valid       bool                `json:"valid"`
	SuiteErrors []string            `json:"suite_errors,omitempty"`
	TaskErrors  map[string][]string `json:"task_errors,omitempty"`
}

func checkCommandE(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	if format != "text" && format != "json" {
		return fmt.Errorf("invalid format %q: expected text or json", format)
	}

	suitePath := args[0]
	suiteErrs, taskErrs, err := validation.ValidateSuiteFile(suitePath)
	if err != nil {
		return err
	}

	valid := len(suiteErrs) == 0 && len(taskErrs) == 0

	if format == "json" {
		report := checkJSONReport{
			Timestamp:   time.Now().UTC().Format(time.RFC3339Nano),
			SuitePath:   suitePath,
			Valid:       valid,
			SuiteErrors: suiteErrs,
			TaskErrors:  taskErrs,
		}
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("encoding JSON: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), buf.String()) //nolint:errcheck
	} else {
		printCheckReport(cmd, suitePath, suiteErrs, taskErrs)
	}

	if !valid {
		total := len(suiteErrs)
		for _, errs := range taskErrs {
			total += len(errs)
		}
		return &EvalFailureError{
			Message: fmt.Sprintf("%d schema error(s) in %s", total, suitePath),
		}
	}
	return nil
}

//nolint:errcheck // display-only writes; errors are not actionable
func printCheckReport(cmd *cobra.Command, suitePath string, suiteErrs []string, taskErrs map[string][]string) {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Checking %s\n\n", suitePath)

	if len(suiteErrs) == 0 {
		fmt.Fprintf(w, "✓ suite schema valid\n")
	} else {
		fmt.Fprintf(w, "✗ suite schema: %d error(s)\n", len(suiteErrs))
		for _, e := range suiteErrs {
			fmt.Fprintf(w, "    %s\n", e)
		}
	}

	if len(taskErrs) == 0 {
		fmt.Fprintf(w, "✓ task schemas valid\n")
		return
	}

	files := make([]string, 0, len(taskErrs))
	for file := range taskErrs {
		files = append(files, file)
	}
	sort.Strings(files)

	fmt.Fprintf(w, "✗ task schemas: %d file(s) with errors\n", len(files))
	for _, file := range files {
		fmt.Fprintf(w, "  %s:\n", file)
		for _, e := range taskErrs[file] {
			fmt.Fprintf(w, "    %s\n", e)
		}
	}
}
