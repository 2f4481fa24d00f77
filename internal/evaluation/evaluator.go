// Package evaluation runs a suite's graders over fetched run records
// and aggregates the verdicts into an evaluation outcome.
package evaluation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cocoabench/saiten/internal/fetch"
	"github.com/cocoabench/saiten/internal/graders"
	"github.com/cocoabench/saiten/internal/models"
	"github.com/cocoabench/saiten/internal/tasks"
)

// Evaluator grades every task in a suite against its run record.
type Evaluator struct {
	suite  *tasks.Suite
	tasks  []*tasks.Task
	source fetch.Source

	// Task filtering
	taskFilters []string

	workers     int
	stopOnError bool

	// Progress tracking
	progressMu sync.Mutex
	listeners  []ProgressListener
}

// ProgressListener receives progress updates
type ProgressListener func(event ProgressEvent)

// EventType represents the type of progress event
type EventType string

// EventType constants
const (
	EventEvalStart    EventType = "eval_start"
	EventEvalComplete EventType = "eval_complete"
	EventEvalStopped  EventType = "eval_stopped"
	EventTaskStart    EventType = "task_start"
	EventTaskComplete EventType = "task_complete"
	EventGraderResult EventType = "grader_result"
)

// ProgressEvent represents a progress update
type ProgressEvent struct {
	EventType  EventType
	TaskID     string
	TaskName   string
	TaskNum    int
	TotalTasks int
	Status     models.Status
	DurationMs int64
	Details    map[string]any
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithTaskFilters sets glob patterns used to filter tasks by ID or display name.
func WithTaskFilters(patterns ...string) EvaluatorOption {
	return func(e *Evaluator) {
		e.taskFilters = patterns
	}
}

// WithWorkers overrides the suite's worker count.
func WithWorkers(n int) EvaluatorOption {
	return func(e *Evaluator) {
		e.workers = n
	}
}

// WithStopOnError overrides the suite's fail_fast setting.
func WithStopOnError(stop bool) EvaluatorOption {
	return func(e *Evaluator) {
		e.stopOnError = stop
	}
}

// NewEvaluator creates an evaluator for the given suite, its loaded
// tasks, and a run record source.
func NewEvaluator(suite *tasks.Suite, taskList []*tasks.Task, source fetch.Source, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		suite:       suite,
		tasks:       taskList,
		source:      source,
		workers:     suite.Config.Workers,
		stopOnError: suite.Config.StopOnError,
		listeners:   []ProgressListener{},
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// OnProgress registers a progress listener
func (e *Evaluator) OnProgress(listener ProgressListener) {
	e.progressMu.Lock()
	defer e.progressMu.Unlock()
	e.listeners = append(e.listeners, listener)
}

func (e *Evaluator) notifyProgress(event ProgressEvent) {
	e.progressMu.Lock()
	listeners := make([]ProgressListener, len(e.listeners))
	copy(listeners, e.listeners)
	e.progressMu.Unlock()

	for _, listener := range listeners {
		listener(event)
	}
}

// Run grades every task in the suite and returns the aggregate outcome.
// Grading is a pure function of each record, so tasks run concurrently
// unless fail_fast forces sequential order.
func (e *Evaluator) Run(ctx context.Context) (*models.EvaluationOutcome, error) {
	startTime := time.Now()

	taskList := e.tasks
	if len(e.taskFilters) > 0 {
		var err error
		taskList, err = FilterTasks(taskList, e.taskFilters)
		if err != nil {
			return nil, fmt.Errorf("task filter error: %w", err)
		}
	}

	if len(taskList) == 0 {
		return nil, fmt.Errorf("no tasks to evaluate")
	}

	e.notifyProgress(ProgressEvent{
		EventType:  EventEvalStart,
		TotalTasks: len(taskList),
	})

	var taskOutcomes []models.TaskOutcome
	if e.stopOnError {
		taskOutcomes = e.runSequential(ctx, taskList)
	} else {
		taskOutcomes = e.runConcurrent(ctx, taskList)
	}

	outcome := e.buildOutcome(taskOutcomes, startTime)

	e.notifyProgress(ProgressEvent{
		EventType:  EventEvalComplete,
		DurationMs: time.Since(startTime).Milliseconds(),
	})

	return outcome, nil
}

func (e *Evaluator) runSequential(ctx context.Context, taskList []*tasks.Task) []models.TaskOutcome {
	outcomes := make([]models.TaskOutcome, 0, len(taskList))

	for i, task := range taskList {
		if e.stopOnError && i > 0 {
			// Check if any previous task failed or had an error
			for _, prev := range outcomes {
				if prev.Status != models.StatusPassed {
					e.notifyProgress(ProgressEvent{
						EventType: EventEvalStopped,
						Details:   map[string]any{"reason": "fail_fast enabled and a previous task did not pass"},
					})
					// Skip remaining tasks
					return outcomes
				}
			}
		}

		e.notifyProgress(ProgressEvent{
			EventType:  EventTaskStart,
			TaskID:     task.ID,
			TaskName:   task.DisplayName,
			TaskNum:    i + 1,
			TotalTasks: len(taskList),
		})

		outcome := e.evaluateTask(ctx, task)
		outcomes = append(outcomes, outcome)

		e.notifyProgress(ProgressEvent{
			EventType:  EventTaskComplete,
			TaskID:     task.ID,
			TaskName:   task.DisplayName,
			TaskNum:    i + 1,
			TotalTasks: len(taskList),
			Status:     outcome.Status,
			DurationMs: outcome.DurationMs,
			Details:    map[string]any{"score": outcome.Score},
		})
	}

	return outcomes
}

func (e *Evaluator) runConcurrent(ctx context.Context, taskList []*tasks.Task) []models.TaskOutcome {
	workers := e.workers
	if workers <= 0 {
		workers = 4
	}

	outcomes := make([]models.TaskOutcome, len(taskList))

	eg := errgroup.Group{}
	eg.SetLimit(workers)

	for i, task := range taskList {
		eg.Go(func() error {
			e.notifyProgress(ProgressEvent{
				EventType:  EventTaskStart,
				TaskID:     task.ID,
				TaskName:   task.DisplayName,
				TaskNum:    i + 1,
				TotalTasks: len(taskList),
			})

			outcome := e.evaluateTask(ctx, task)
			outcomes[i] = outcome

			e.notifyProgress(ProgressEvent{
				EventType:  EventTaskComplete,
				TaskID:     task.ID,
				TaskName:   task.DisplayName,
				TaskNum:    i + 1,
				TotalTasks: len(taskList),
				Status:     outcome.Status,
				DurationMs: outcome.DurationMs,
				Details:    map[string]any{"score": outcome.Score},
			})
			return nil
		})
	}

	// Workers never return errors; failures land on the outcome record.
	_ = eg.Wait()

	return outcomes
}

// evaluateTask grades one task against its run record. A missing record
// or a misconfigured grader surfaces as StatusError on the outcome, not
// as a process error.
func (e *Evaluator) evaluateTask(ctx context.Context, task *tasks.Task) models.TaskOutcome {
	startTime := time.Now()

	outcome := models.TaskOutcome{
		TaskID:      task.ID,
		DisplayName: task.DisplayName,
	}

	record, err := e.source.Record(ctx, task.ID)
	if err != nil {
		outcome.Status = models.StatusError
		outcome.ErrorMsg = "fetching run record: " + err.Error()
		outcome.DurationMs = time.Since(startTime).Milliseconds()
		return outcome
	}

	results, err := e.runGraders(ctx, task, record)
	if err != nil {
		outcome.Status = models.StatusError
		outcome.ErrorMsg = "running graders: " + err.Error()
		outcome.DurationMs = time.Since(startTime).Milliseconds()
		return outcome
	}

	outcome.Validations = results
	outcome.Score = outcome.ComputeWeightedScore()
	if outcome.AllValidationsPassed() {
		outcome.Status = models.StatusPassed
	} else {
		outcome.Status = models.StatusFailed
	}
	outcome.DurationMs = time.Since(startTime).Milliseconds()

	return outcome
}

func (e *Evaluator) runGraders(ctx context.Context, task *tasks.Task, record *models.RunRecord) (map[string]models.GraderResults, error) {
	graderResults := make(map[string]models.GraderResults)
	gradingContext := &graders.Context{
		Record:   record,
		Metadata: task.Metadata,
	}

	for _, gCfg := range task.Graders {
		grader, err := graders.Create(gCfg.Kind, gCfg.Identifier, gCfg.Parameters)
		if err != nil {
			return nil, fmt.Errorf("failed to create grader %s: %w", gCfg.Identifier, err)
		}

		result, err := grader.Grade(ctx, gradingContext)
		if err != nil {
			return nil, fmt.Errorf("failed to run grader %s: %w", gCfg.Identifier, err)
		}

		result.Weight = gCfg.EffectiveWeight()
		graderResults[result.Name] = *result

		// Graders run in declared order, so events arrive in stable order.
		e.notifyProgress(ProgressEvent{
			EventType:  EventGraderResult,
			TaskID:     task.ID,
			TaskName:   task.DisplayName,
			DurationMs: result.DurationMs,
			Details: map[string]any{
				"grader":      result.Name,
				"grader_type": result.Type,
				"passed":      result.Passed,
				"score":       result.Score,
				"feedback":    result.Feedback,
			},
		})
	}

	return graderResults, nil
}

func (e *Evaluator) buildOutcome(taskOutcomes []models.TaskOutcome, startTime time.Time) *models.EvaluationOutcome {
	// Compute digest
	passed := 0
	failed := 0
	errors := 0

	for _, to := range taskOutcomes {
		switch to.Status {
		case models.StatusPassed:
			passed++
		case models.StatusFailed:
			failed++
		case models.StatusError:
			errors++
		}
	}

	totalTasks := len(taskOutcomes)
	passRate := 0.0
	if totalTasks > 0 {
		passRate = float64(passed) / float64(totalTasks)
	}

	aggregateScore, minScore, maxScore, stdDev := scoreStats(taskOutcomes)

	digest := models.OutcomeDigest{
		TotalTasks:     totalTasks,
		Passed:         passed,
		Failed:         failed,
		Errors:         errors,
		PassRate:       passRate,
		AggregateScore: aggregateScore,
		MinScore:       minScore,
		MaxScore:       maxScore,
		StdDev:         stdDev,
		DurationMs:     time.Since(startTime).Milliseconds(),
	}

	return &models.EvaluationOutcome{
		RunID:        newRunID(),
		SuiteName:    e.suite.Name,
		Timestamp:    startTime,
		Digest:       digest,
		TaskOutcomes: taskOutcomes,
		Metadata:     make(map[string]any),
	}
}

// newRunID returns a unique id for one evaluation run. Nanosecond
// precision keeps runs started within the same second distinct, which
// matters for archive file names and compare labels.
func newRunID() string {
	return fmt.Sprintf("eval-%d", time.Now().UnixNano())
}

// scoreStats returns the mean, min, max, and stddev of per-task scores.
func scoreStats(taskOutcomes []models.TaskOutcome) (float64, float64, float64, float64) {
	if len(taskOutcomes) == 0 {
		return 0.0, 0.0, 0.0, 0.0
	}

	scores := make([]float64, 0, len(taskOutcomes))
	total := 0.0
	minScore := 1.0
	maxScore := 0.0

	for _, to := range taskOutcomes {
		s := to.Score
		scores = append(scores, s)
		total += s
		if s < minScore {
			minScore = s
		}
		if s > maxScore {
			maxScore = s
		}
	}

	return total / float64(len(taskOutcomes)), minScore, maxScore, models.ComputeStdDev(scores)
}
