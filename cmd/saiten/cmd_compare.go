package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cocoabench/saiten/internal/archive"
	"github.com/cocoabench/saiten/internal/models"
)

func newCompareCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <outcome.json> <outcome.json> [more...]",
		Short: "Compare two or more evaluation outcomes",
		Long: `Compare evaluation outcome files and report how scores moved
between the first (baseline) and the last (candidate) run.

Accepts plain JSON outcome files and archived .json.zst files
interchangeably. Tasks present in one run but not the other are shown
as n/a.`,
		Args:          cobra.MinimumNArgs(2),
		RunE:          compareCommandE,
		SilenceErrors: true,
	}
	cmd.Flags().String("format", "text", "Output format: text | json")
	return cmd
}

// taskDelta is the per-task comparison between baseline and candidate.
type taskDelta struct {
	TaskID          string        `json:"task_id"`
	BaselineStatus  models.Status `json:"baseline_status"`
	CandidateStatus models.Status `json:"candidate_status"`
	BaselineScore   float64       `json:"baseline_score"`
	CandidateScore  float64       `json:"candidate_score"`
	ScoreDelta      float64       `json:"score_delta"`
}

type compareJSONReport struct {
	Baseline      string      `json:"baseline"`
	Candidate     string      `json:"candidate"`
	PassRateDelta float64     `json:"pass_rate_delta"`
	AggScoreDelta float64     `json:"aggregate_score_delta"`
	Regressions   int         `json:"regressions"`
	Improvements  int         `json:"improvements"`
	TaskDeltas    []taskDelta `json:"tasks"`
	RunsCompared  int         `json:"runs_compared"`
	Intermediate  []string    `json:"intermediate_runs,omitempty"`
}

func compareCommandE(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	if format != "text" && format != "json" {
		return fmt.Errorf("invalid format %q: expected text or json", format)
	}

	outcomes := make([]*models.EvaluationOutcome, 0, len(args))
	for _, path := range args {
		outcome, err := archive.ReadOutcomeFile(path)
		if err != nil {
			return err
		}
		outcomes = append(outcomes, outcome)
	}

	baseline := outcomes[0]
	candidate := outcomes[len(outcomes)-1]
	deltas := computeDeltas(baseline, candidate)

	report := compareJSONReport{
		Baseline:      runLabel(baseline, args[0]),
		Candidate:     runLabel(candidate, args[len(args)-1]),
		PassRateDelta: candidate.Digest.PassRate - baseline.Digest.PassRate,
		AggScoreDelta: candidate.Digest.AggregateScore - baseline.Digest.AggregateScore,
		TaskDeltas:    deltas,
		RunsCompared:  len(outcomes),
	}
	for _, mid := range outcomes[1 : len(outcomes)-1] {
		report.Intermediate = append(report.Intermediate, mid.RunID)
	}
	for _, d := range deltas {
		switch {
		case d.BaselineStatus == models.StatusPassed && d.CandidateStatus == models.StatusFailed:
			report.Regressions++
		case d.BaselineStatus == models.StatusFailed && d.CandidateStatus == models.StatusPassed:
			report.Improvements++
		}
	}

	if format == "json" {
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("encoding JSON: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), buf.String()) //nolint:errcheck
		return nil
	}

	printCompareReport(cmd, report)
	return nil
}

// computeDeltas pairs up task outcomes by id. Tasks present in only one
// run get StatusNA on the other side and a zero score there.
func computeDeltas(baseline, candidate *models.EvaluationOutcome) []taskDelta {
	candidateByID := make(map[string]models.TaskOutcome, len(candidate.TaskOutcomes))
	for _, to := range candidate.TaskOutcomes {
		candidateByID[to.TaskID] = to
	}

	var deltas []taskDelta
	seen := make(map[string]bool)
	for _, base := range baseline.TaskOutcomes {
		seen[base.TaskID] = true
		d := taskDelta{
			TaskID:          base.TaskID,
			BaselineStatus:  base.Status,
			BaselineScore:   base.Score,
			CandidateStatus: models.StatusNA,
		}
		if cand, ok := candidateByID[base.TaskID]; ok {
			d.CandidateStatus = cand.Status
			d.CandidateScore = cand.Score
			d.ScoreDelta = cand.Score - base.Score
		}
		deltas = append(deltas, d)
	}
	for _, cand := range candidate.TaskOutcomes {
		if seen[cand.TaskID] {
			continue
		}
		deltas = append(deltas, taskDelta{
			TaskID:          cand.TaskID,
			BaselineStatus:  models.StatusNA,
			CandidateStatus: cand.Status,
			CandidateScore:  cand.Score,
		})
	}
	return deltas
}

func runLabel(outcome *models.EvaluationOutcome, path string) string {
	if outcome.RunID != "" {
		return outcome.RunID
	}
	return path
}

//nolint:errcheck // display-only writes; errors are not actionable
func printCompareReport(cmd *cobra.Command, report compareJSONReport) {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Comparing %s → %s", report.Baseline, report.Candidate)
	if report.RunsCompared > 2 {
		fmt.Fprintf(w, " (%d runs, deltas are last vs first)", report.RunsCompared)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Pass rate:       %+.1f%%\n", report.PassRateDelta*100)
	fmt.Fprintf(w, "Aggregate score: %+.2f\n", report.AggScoreDelta)
	fmt.Fprintf(w, "Regressions:     %d\n", report.Regressions)
	fmt.Fprintf(w, "Improvements:    %d\n", report.Improvements)
	fmt.Fprintln(w)

	nameWidth := len("Task")
	for _, d := range report.TaskDeltas {
		if len(d.TaskID) > nameWidth {
			nameWidth = len(d.TaskID)
		}
	}
	if nameWidth > 30 {
		nameWidth = 30
	}

	fmt.Fprintf(w, "   %s  %s  %s  %s\n",
		padRight("Task", nameWidth),
		padRight("Before", 8),
		padRight("After", 8),
		"Delta")

	for _, d := range report.TaskDeltas {
		icon := " "
		switch {
		case d.BaselineStatus == models.StatusPassed && d.CandidateStatus == models.StatusFailed:
			icon = "↓"
		case d.BaselineStatus == models.StatusFailed && d.CandidateStatus == models.StatusPassed:
			icon = "↑"
		}
		fmt.Fprintf(w, " %s %s  %s  %s  %+.2f\n",
			icon,
			padRight(truncateName(d.TaskID, nameWidth), nameWidth),
			padRight(string(d.BaselineStatus), 8),
			padRight(string(d.CandidateStatus), 8),
			d.ScoreDelta)
	}
	fmt.Fprintln(w)
}
