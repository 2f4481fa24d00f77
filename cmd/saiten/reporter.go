package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/cocoabench/saiten/internal/models"
)

// formatDuration formats a duration in a consistent, human-readable way.
// This ensures stable output regardless of Go version changes.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.String()
}

// padRight pads s with spaces so its terminal display width reaches width.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}

// truncateName shortens a name to maxLen runes, replacing the last rune
// with "…" if needed.
func truncateName(name string, maxLen int) string {
	runes := []rune(name)
	if len(runes) <= maxLen {
		return name
	}
	return string(runes[:maxLen-1]) + "…"
}

func printSummary(outcome *models.EvaluationOutcome) {
	fmt.Println("=" + strings.Repeat("=", 50))
	fmt.Println(" EVALUATION RESULTS")
	fmt.Println("=" + strings.Repeat("=", 50))
	fmt.Println()

	digest := outcome.Digest

	fmt.Printf("Suite:          %s\n", outcome.SuiteName)
	fmt.Printf("Total Tasks:    %d\n", digest.TotalTasks)
	fmt.Printf("Passed:         %d\n", digest.Passed)
	fmt.Printf("Failed:         %d\n", digest.Failed)
	fmt.Printf("Errors:         %d\n", digest.Errors)
	fmt.Printf("Pass Rate:      %.1f%%\n", digest.PassRate*100)
	fmt.Printf("Aggregate Score: %.2f\n", digest.AggregateScore)
	fmt.Printf("Min Score:      %.2f\n", digest.MinScore)
	fmt.Printf("Max Score:      %.2f\n", digest.MaxScore)
	fmt.Printf("Std Dev:        %.4f\n", digest.StdDev)

	duration := time.Duration(digest.DurationMs) * time.Millisecond
	fmt.Printf("Duration:       %s\n", formatDuration(duration))
	fmt.Println()

	printTaskTable(outcome.TaskOutcomes)

	// Show failed tasks with their grader feedback
	if digest.Failed > 0 || digest.Errors > 0 {
		fmt.Println("Failed Tasks:")
		for _, to := range outcome.TaskOutcomes {
			if to.Status == models.StatusPassed {
				continue
			}
			fmt.Printf("  - %s (%s)\n", to.DisplayName, to.Status)
			if to.ErrorMsg != "" {
				fmt.Printf("    • %s\n", to.ErrorMsg)
				continue
			}
			for _, name := range sortedValidationNames(to.Validations) {
				val := to.Validations[name]
				if !val.Passed {
					fmt.Printf("    • %s: %s\n", val.Name, firstLine(val.Feedback))
				}
			}
		}
		fmt.Println()
	}
}

// printTaskTable renders the per-task breakdown with display-width-aware
// padding, so names with wide runes keep the columns aligned.
func printTaskTable(taskOutcomes []models.TaskOutcome) {
	const maxNameWidth = 30
	const minNameWidth = 10

	nameWidth := len("Task")
	for _, to := range taskOutcomes {
		if w := runewidth.StringWidth(to.DisplayName); w > nameWidth {
			nameWidth = w
		}
	}
	if nameWidth > maxNameWidth {
		nameWidth = maxNameWidth
	}
	if nameWidth < minNameWidth {
		nameWidth = minNameWidth
	}

	fmt.Println("-" + strings.Repeat("-", 50))
	fmt.Println(" PER-TASK BREAKDOWN")
	fmt.Println("-" + strings.Repeat("-", 50))

	fmt.Printf("     %s  %s  %s  %s\n",
		padRight("Task", nameWidth),
		padRight("Score", 6),
		padRight("Status", 7),
		"Duration")

	for _, to := range taskOutcomes {
		icon := "✓"
		if to.Status != models.StatusPassed {
			icon = "✗"
		}
		duration := time.Duration(to.DurationMs) * time.Millisecond
		fmt.Printf("  %s  %s  %s  %s  %s\n",
			icon,
			padRight(truncateName(to.DisplayName, nameWidth), nameWidth),
			padRight(fmt.Sprintf("%.2f", to.Score), 6),
			padRight(string(to.Status), 7),
			formatDuration(duration))
	}
	fmt.Println()
}

// sortedValidationNames returns validation map keys in stable order.
func sortedValidationNames(validations map[string]models.GraderResults) []string {
	names := make([]string, 0, len(validations))
	for name := range validations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// firstLine trims feedback to its first line for compact failure listings.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
