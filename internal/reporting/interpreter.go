package reporting

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cocoabench/saiten/internal/models"
)

// InterpretScore returns a plain-language label for a numeric score (0–1).
func InterpretScore(score float64) string {
	pct := score * 100
	switch {
	case pct > 90:
		return "Excellent (>90%)"
	case pct >= 70:
		return "Good (70-90%)"
	case pct >= 50:
		return "Needs Work (50-70%)"
	default:
		return "Poor (<50%)"
	}
}

// InterpretPassRate returns a human-readable explanation of a pass rate (0–1).
func InterpretPassRate(rate float64) string {
	pct := rate * 100
	switch {
	case pct >= 100:
		return fmt.Sprintf("All tasks passed (%.0f%%)", pct)
	case pct >= 80:
		return fmt.Sprintf("Most tasks passed (%.0f%%)", pct)
	case pct >= 50:
		return fmt.Sprintf("About half the tasks passed (%.0f%%)", pct)
	default:
		return fmt.Sprintf("Few tasks passed (%.0f%%)", pct)
	}
}

// InterpretFailure returns a plain-language explanation for a failure kind.
func InterpretFailure(kind models.FailureKind) string {
	switch kind {
	case models.FailureNotFound:
		return "no answer could be extracted from the run record"
	case models.FailureMissingField:
		return "the report is missing a required field"
	case models.FailureTypeMismatch:
		return "a report field has the wrong type"
	case models.FailureCountMismatch:
		return "a list field has the wrong number of entries"
	case models.FailureToleranceExceeded:
		return "values fell outside the allowed tolerance"
	case models.FailureParseError:
		return "a value could not be parsed"
	}
	return "the expected answer was not matched"
}

// FormatSummaryReport produces a full plain-language report from an EvaluationOutcome.
func FormatSummaryReport(outcome *models.EvaluationOutcome) string {
	var b strings.Builder

	d := outcome.Digest
	duration := time.Duration(d.DurationMs) * time.Millisecond

	b.WriteString("=== Interpretation ===\n\n")

	b.WriteString(fmt.Sprintf("Overall Score: %.2f - %s\n", d.AggregateScore, InterpretScore(d.AggregateScore)))
	b.WriteString(fmt.Sprintf("Pass Rate:     %s\n", InterpretPassRate(d.PassRate)))
	b.WriteString(fmt.Sprintf("Duration:      %v\n", duration))

	if d.TotalTasks > 0 {
		b.WriteString(fmt.Sprintf("Tasks:         %d passed, %d failed, %d errors out of %d total\n",
			d.Passed, d.Failed, d.Errors, d.TotalTasks))
	}

	// Per-task interpretation
	if len(outcome.TaskOutcomes) > 0 {
		b.WriteString("\nPer-Task Interpretation:\n")
		for _, to := range outcome.TaskOutcomes {
			icon := "✓"
			if to.Status != models.StatusPassed {
				icon = "✗"
			}
			b.WriteString(fmt.Sprintf("  %s %s: %s\n", icon, to.DisplayName, to.Status))
			if to.Status == models.StatusError {
				b.WriteString(fmt.Sprintf("    Error: %s\n", to.ErrorMsg))
				continue
			}
			b.WriteString(fmt.Sprintf("    Score: %.2f - %s\n", to.Score, InterpretScore(to.Score)))
			for _, line := range describeFailures(to.Validations) {
				b.WriteString(fmt.Sprintf("    %s\n", line))
			}
		}
	}

	return b.String()
}

// describeFailures returns one plain-language line per failing grader,
// sorted by grader name.
func describeFailures(validations map[string]models.GraderResults) []string {
	names := make([]string, 0, len(validations))
	for name := range validations {
		names = append(names, name)
	}
	sort.Strings(names)

	var lines []string
	for _, name := range names {
		g := validations[name]
		if g.Passed {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s (%s): %s", name, g.Type, InterpretFailure(failureKind(g.Details))))
	}
	return lines
}

// failureKind extracts the failure classification from grader details.
// Terminal failures use the "failure" key; per-field report failures use
// "<field>_failure" keys.
func failureKind(details map[string]any) models.FailureKind {
	if k, ok := asFailureKind(details["failure"]); ok {
		return k
	}

	keys := make([]string, 0, len(details))
	for key := range details {
		if strings.HasSuffix(key, "_failure") {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		if k, ok := asFailureKind(details[key]); ok {
			return k
		}
	}
	return ""
}

// asFailureKind accepts both in-memory kinds and strings from decoded JSON.
func asFailureKind(v any) (models.FailureKind, bool) {
	switch k := v.(type) {
	case models.FailureKind:
		return k, true
	case string:
		return models.FailureKind(k), true
	}
	return "", false
}
