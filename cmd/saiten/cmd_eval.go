package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/cocoabench/saiten/internal/archive"
	"github.com/cocoabench/saiten/internal/evaluation"
	"github.com/cocoabench/saiten/internal/fetch"
	"github.com/cocoabench/saiten/internal/models"
	"github.com/cocoabench/saiten/internal/projectconfig"
	"github.com/cocoabench/saiten/internal/reporting"
	"github.com/cocoabench/saiten/internal/session"
	"github.com/cocoabench/saiten/internal/tasks"
)

var (
	resultsDir     string
	resultsURL     string
	outputPath     string
	junitPath      string
	verbose        bool
	taskFilters    []string
	workers        int
	failFast       bool
	interpret      bool
	sessionLogging bool
	archiveOutcome bool
)

func newEvalCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval <suite.yaml>",
		Short: "Grade a suite of task run records",
		Long: `Grade every task in a suite against its run record.

The suite file lists task definitions; run records are loaded from a
results directory (one JSON file per task) or fetched from an executor
endpoint. Each task's graders extract the agent's answer and validate
it against the task's ground truth.`,
		Args: cobra.ExactArgs(1),
		RunE: evalCommandE,
	}

	cmd.Flags().StringVar(&resultsDir, "results-dir", "", "Directory of run record JSON files (default: suite config, then .saiten.yaml)")
	cmd.Flags().StringVar(&resultsURL, "results-url", "", "Executor endpoint to fetch run records from (overrides --results-dir)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output JSON file for the outcome")
	cmd.Flags().StringVar(&junitPath, "junit", "", "Write a JUnit XML report to this path")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output with per-grader progress")
	cmd.Flags().StringArrayVar(&taskFilters, "task", nil, "Filter tasks by id/name glob pattern (can be repeated)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Number of concurrent workers (default: suite config, then 4)")
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "Stop after the first task that does not pass")
	cmd.Flags().BoolVar(&interpret, "interpret", false, "Print a plain-language interpretation of the results")
	cmd.Flags().BoolVar(&sessionLogging, "session-log", false, "Record an NDJSON session log of the evaluation")
	cmd.Flags().BoolVar(&archiveOutcome, "archive", false, "Archive the outcome for later comparison")

	return cmd
}

func evalCommandE(cmd *cobra.Command, args []string) error {
	suitePath := args[0]
	suiteDir := filepath.Dir(suitePath)

	cfg, err := projectconfig.Load(suiteDir)
	if err != nil {
		return err
	}

	suite, err := tasks.LoadSuite(suitePath)
	if err != nil {
		return fmt.Errorf("failed to load suite: %w", err)
	}

	taskList, err := suite.LoadTasks(suiteDir)
	if err != nil {
		return fmt.Errorf("failed to load tasks: %w", err)
	}

	source, sourceDesc, err := buildRecordSource(cfg, suite, suiteDir)
	if err != nil {
		return err
	}

	opts := []evaluation.EvaluatorOption{
		evaluation.WithTaskFilters(taskFilters...),
	}
	if workers > 0 {
		opts = append(opts, evaluation.WithWorkers(workers))
	} else if suite.Config.Workers == 0 {
		opts = append(opts, evaluation.WithWorkers(cfg.Defaults.Workers))
	}
	if failFast || boolValue(cfg.Defaults.FailFast) {
		opts = append(opts, evaluation.WithStopOnError(true))
	}

	evaluator := evaluation.NewEvaluator(suite, taskList, source, opts...)

	if verbose || boolValue(cfg.Defaults.Verbose) {
		evaluator.OnProgress(verboseProgressListener)
	} else {
		evaluator.OnProgress(simpleProgressListener)
	}

	logger, err := buildSessionLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Close() //nolint:errcheck
	evaluator.OnProgress(session.Listener(logger))

	fmt.Printf("Grading suite: %s\n", suite.Name)
	fmt.Printf("Run records: %s\n", sourceDesc)
	fmt.Println()

	logger.Log(session.NewEvent(session.EventEvalStart, //nolint:errcheck
		session.EvalStartData(suite.Name, sourceDesc, len(taskList))))

	outcome, err := evaluator.Run(context.Background())
	if err != nil {
		logger.Log(session.NewEvent(session.EventError, session.ErrorData(err.Error(), nil))) //nolint:errcheck
		return fmt.Errorf("evaluation failed: %w", err)
	}

	logger.Log(session.NewEvent(session.EventEvalComplete, session.EvalCompleteData( //nolint:errcheck
		outcome.Digest.TotalTasks,
		outcome.Digest.Passed,
		outcome.Digest.Failed,
		outcome.Digest.Errors,
		outcome.Digest.DurationMs,
	)))

	printSummary(outcome)

	if interpret {
		fmt.Println()
		fmt.Print(reporting.FormatSummaryReport(outcome))
	}

	if outputPath != "" {
		if err := saveOutcome(outcome, outputPath); err != nil {
			return fmt.Errorf("failed to save output: %w", err)
		}
		fmt.Printf("\nResults saved to: %s\n", outputPath)
	}

	if junitPath != "" {
		if err := reporting.WriteJUnitXML(outcome, junitPath); err != nil {
			return fmt.Errorf("failed to write JUnit report: %w", err)
		}
		fmt.Printf("JUnit report saved to: %s\n", junitPath)
	}

	if archiveOutcome || boolValue(cfg.Archive.Enabled) {
		store := archive.New(cfg.Archive.Dir)
		path, err := store.Save(outcome)
		if err != nil {
			return fmt.Errorf("failed to archive outcome: %w", err)
		}
		fmt.Printf("Outcome archived to: %s\n", path)
	}

	if outcome.Digest.Failed > 0 || outcome.Digest.Errors > 0 {
		return &EvalFailureError{
			Message: fmt.Sprintf("evaluation completed with %d failed and %d error(s)", outcome.Digest.Failed, outcome.Digest.Errors),
		}
	}

	return nil
}

// buildRecordSource picks the run record channel: an executor endpoint
// when one is configured, a local results directory otherwise. The flag
// beats the suite config, which beats .saiten.yaml.
func buildRecordSource(cfg *projectconfig.ProjectConfig, suite *tasks.Suite, suiteDir string) (fetch.Source, string, error) {
	url := resultsURL
	if url == "" {
		url = suite.Config.ResultsURL
	}
	if url != "" {
		client := fetch.NewClient(url,
			fetch.WithRetries(cfg.Fetch.Retries),
			fetch.WithRetryDelay(time.Duration(cfg.Fetch.RetryDelayMs)*time.Millisecond),
		)
		return client, url, nil
	}

	dir := resultsDir
	if dir == "" {
		dir = suite.Config.ResultsDir
	}
	if dir == "" {
		dir = cfg.Paths.Results
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(suiteDir, dir)
	}

	source, err := fetch.NewDirSource(dir)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load run records: %w", err)
	}
	return source, dir, nil
}

func buildSessionLogger(cfg *projectconfig.ProjectConfig) (session.Logger, error) {
	if !sessionLogging && !boolValue(cfg.Defaults.SessionLog) {
		return session.NopLogger{}, nil
	}
	logger, err := session.NewJSONLogger(session.DefaultLogPath(filepath.Join(".saiten", "sessions")))
	if err != nil {
		return nil, fmt.Errorf("failed to open session log: %w", err)
	}
	return logger, nil
}

func boolValue(b *bool) bool {
	return b != nil && *b
}

func verboseProgressListener(event evaluation.ProgressEvent) {
	switch event.EventType {
	case evaluation.EventEvalStart:
		fmt.Printf("Grading %d task(s)...\n\n", event.TotalTasks)
	case evaluation.EventTaskStart:
		fmt.Printf("[%d/%d] Grading task: %s\n", event.TaskNum, event.TotalTasks, event.TaskName)
	case evaluation.EventGraderResult:
		name := fmt.Sprintf("%v", event.Details["grader"])
		passed, ok := event.Details["passed"].(bool)
		if !ok {
			passed = false
		}
		score, ok := event.Details["score"].(float64)
		if !ok {
			score = 0
		}
		icon := "✗"
		if passed {
			icon = "✓"
		}
		duration := time.Duration(event.DurationMs) * time.Millisecond
		fmt.Printf("  [GRADER] %s %s score=%.2f (%v)\n", icon, name, score, duration)
	case evaluation.EventTaskComplete:
		fmt.Printf("  Task %s: %s\n\n", event.TaskName, event.Status)
	case evaluation.EventEvalStopped:
		fmt.Printf("Stopped early: %v\n", event.Details["reason"])
	case evaluation.EventEvalComplete:
		duration := time.Duration(event.DurationMs) * time.Millisecond
		fmt.Printf("Evaluation completed in %v\n\n", duration)
	}
}

func simpleProgressListener(event evaluation.ProgressEvent) {
	if event.EventType != evaluation.EventTaskComplete {
		return
	}
	status := "✓"
	if event.Status != models.StatusPassed {
		status = "✗"
	}
	fmt.Printf("%s [%d/%d] %s\n", status, event.TaskNum, event.TotalTasks, event.TaskName)
}

func saveOutcome(outcome *models.EvaluationOutcome, path string) error {
	data, err := json.MarshalIndent(outcome, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
