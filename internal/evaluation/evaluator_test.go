package evaluation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cocoabench/saiten/internal/fetch"
	"github.com/cocoabench/saiten/internal/models"
	"github.com/cocoabench/saiten/internal/tasks"
)

// Ensure stubSource satisfies the Source interface at compile time.
var _ fetch.Source = (*stubSource)(nil)

// stubSource serves run records from memory.
type stubSource struct {
	records map[string]*models.RunRecord
}

func (s *stubSource) Record(_ context.Context, taskID string) (*models.RunRecord, error) {
	record, ok := s.records[taskID]
	if !ok {
		return nil, fmt.Errorf("no run record for task '%s'", taskID)
	}
	return record, nil
}

func answerRecord(code string) *models.RunRecord {
	return &models.RunRecord{
		Status: models.StatusSuccess,
		Conversation: []models.Message{
			{Role: models.RoleUser, Content: "Find the access code."},
			{Role: models.RoleAssistant, Content: "<answer>" + code + "</answer>"},
		},
	}
}

func answerTask(id, expected string) *tasks.Task {
	return &tasks.Task{
		ID:          id,
		DisplayName: id,
		Graders: []tasks.GraderConfig{
			{
				Kind:       models.GraderKindAnswer,
				Identifier: "final-answer",
				Parameters: map[string]any{"expected": expected},
			},
		},
	}
}

func testSuite() *tasks.Suite {
	return &tasks.Suite{
		Name:  "regime-shift",
		Tasks: []string{"tasks/*.yaml"},
	}
}

func TestEvaluator_Run_AllPassing(t *testing.T) {
	source := &stubSource{records: map[string]*models.RunRecord{
		"task-1": answerRecord("EFPTGK"),
		"task-2": answerRecord("QWZRTY"),
	}}
	taskList := []*tasks.Task{
		answerTask("task-1", "EFPTGK"),
		answerTask("task-2", "QWZRTY"),
	}

	ev := NewEvaluator(testSuite(), taskList, source)
	outcome, err := ev.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, outcome)

	assert.Equal(t, "regime-shift", outcome.SuiteName)
	assert.True(t, strings.HasPrefix(outcome.RunID, "eval-"))
	require.Len(t, outcome.TaskOutcomes, 2)

	assert.Equal(t, 2, outcome.Digest.TotalTasks)
	assert.Equal(t, 2, outcome.Digest.Passed)
	assert.Equal(t, 0, outcome.Digest.Failed)
	assert.Equal(t, 0, outcome.Digest.Errors)
	assert.Equal(t, 1.0, outcome.Digest.PassRate)
	assert.Equal(t, 1.0, outcome.Digest.AggregateScore)
	assert.Equal(t, 1.0, outcome.Digest.MinScore)
	assert.Equal(t, 1.0, outcome.Digest.MaxScore)
	assert.Equal(t, 0.0, outcome.Digest.StdDev)

	for _, taskOutcome := range outcome.TaskOutcomes {
		assert.Equal(t, models.StatusPassed, taskOutcome.Status)
		assert.Equal(t, 1.0, taskOutcome.Score)
		require.Contains(t, taskOutcome.Validations, "final-answer")
		assert.True(t, taskOutcome.Validations["final-answer"].Passed)
		assert.Equal(t, 1.0, taskOutcome.Validations["final-answer"].Weight)
	}
}

func TestEvaluator_Run_FailingTask(t *testing.T) {
	source := &stubSource{records: map[string]*models.RunRecord{
		"task-1": answerRecord("EFPTGK"),
		"task-2": answerRecord("WRONG1"),
	}}
	taskList := []*tasks.Task{
		answerTask("task-1", "EFPTGK"),
		answerTask("task-2", "QWZRTY"),
	}

	ev := NewEvaluator(testSuite(), taskList, source)
	outcome, err := ev.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, outcome.Digest.Passed)
	assert.Equal(t, 1, outcome.Digest.Failed)
	assert.Equal(t, 0.5, outcome.Digest.PassRate)
	assert.Equal(t, 0.5, outcome.Digest.AggregateScore)
	assert.Equal(t, 0.0, outcome.Digest.MinScore)
	assert.Equal(t, 1.0, outcome.Digest.MaxScore)
	assert.Equal(t, 0.5, outcome.Digest.StdDev)

	require.Len(t, outcome.TaskOutcomes, 2)
	assert.Equal(t, models.StatusFailed, outcome.TaskOutcomes[1].Status)
	assert.Equal(t, 0.0, outcome.TaskOutcomes[1].Score)
}

func TestEvaluator_Run_MissingRecord(t *testing.T) {
	source := &stubSource{records: map[string]*models.RunRecord{
		"task-1": answerRecord("EFPTGK"),
	}}
	taskList := []*tasks.Task{
		answerTask("task-1", "EFPTGK"),
		answerTask("task-2", "QWZRTY"),
	}

	ev := NewEvaluator(testSuite(), taskList, source)
	outcome, err := ev.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, outcome.Digest.Passed)
	assert.Equal(t, 1, outcome.Digest.Errors)

	errored := outcome.TaskOutcomes[1]
	assert.Equal(t, models.StatusError, errored.Status)
	assert.Contains(t, errored.ErrorMsg, "fetching run record")
	assert.Contains(t, errored.ErrorMsg, "task-2")
}

func TestEvaluator_Run_BadGraderConfig(t *testing.T) {
	source := &stubSource{records: map[string]*models.RunRecord{
		"task-1": answerRecord("EFPTGK"),
	}}
	badTask := &tasks.Task{
		ID:          "task-1",
		DisplayName: "task-1",
		Graders: []tasks.GraderConfig{
			{Kind: models.GraderKindAnswer, Identifier: "final-answer"},
		},
	}

	ev := NewEvaluator(testSuite(), []*tasks.Task{badTask}, source)
	outcome, err := ev.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, outcome.TaskOutcomes, 1)
	assert.Equal(t, models.StatusError, outcome.TaskOutcomes[0].Status)
	assert.Contains(t, outcome.TaskOutcomes[0].ErrorMsg, "failed to create grader final-answer")
	assert.Equal(t, 1, outcome.Digest.Errors)
}

func TestEvaluator_Run_NoTasks(t *testing.T) {
	ev := NewEvaluator(testSuite(), nil, &stubSource{})
	_, err := ev.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no tasks to evaluate")
}

func TestEvaluator_Run_TaskFilters(t *testing.T) {
	source := &stubSource{records: map[string]*models.RunRecord{
		"task-1": answerRecord("EFPTGK"),
		"task-2": answerRecord("QWZRTY"),
	}}
	taskList := []*tasks.Task{
		answerTask("task-1", "EFPTGK"),
		answerTask("task-2", "QWZRTY"),
	}

	ev := NewEvaluator(testSuite(), taskList, source, WithTaskFilters("task-1"))
	outcome, err := ev.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, outcome.TaskOutcomes, 1)
	assert.Equal(t, "task-1", outcome.TaskOutcomes[0].TaskID)

	ev = NewEvaluator(testSuite(), taskList, source, WithTaskFilters("nonexistent-*"))
	_, err = ev.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no tasks to evaluate")
}

func TestEvaluator_Run_FailFastStopsEarly(t *testing.T) {
	source := &stubSource{records: map[string]*models.RunRecord{
		"task-1": answerRecord("WRONG1"),
		"task-2": answerRecord("QWZRTY"),
		"task-3": answerRecord("ABCDEF"),
	}}
	taskList := []*tasks.Task{
		answerTask("task-1", "EFPTGK"),
		answerTask("task-2", "QWZRTY"),
		answerTask("task-3", "ABCDEF"),
	}

	ev := NewEvaluator(testSuite(), taskList, source, WithStopOnError(true))

	var stopped []ProgressEvent
	ev.OnProgress(func(event ProgressEvent) {
		if event.EventType == EventEvalStopped {
			stopped = append(stopped, event)
		}
	})

	outcome, err := ev.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, outcome.TaskOutcomes, 1)
	assert.Equal(t, models.StatusFailed, outcome.TaskOutcomes[0].Status)
	assert.Equal(t, 1, outcome.Digest.TotalTasks)
	require.Len(t, stopped, 1)
	assert.Equal(t, "fail_fast enabled and a previous task did not pass", stopped[0].Details["reason"])
}

func TestEvaluator_Run_GraderWeights(t *testing.T) {
	source := &stubSource{records: map[string]*models.RunRecord{
		"task-1": answerRecord("EFPTGK"),
	}}
	task := &tasks.Task{
		ID:          "task-1",
		DisplayName: "task-1",
		Graders: []tasks.GraderConfig{
			{
				Kind:       models.GraderKindAnswer,
				Identifier: "final-answer",
				Weight:     3.0,
				Parameters: map[string]any{"expected": "EFPTGK"},
			},
			{
				Kind:       models.GraderKindKeyword,
				Identifier: "mentions-regime",
				Parameters: map[string]any{"must_contain": []string{"regime shift"}},
			},
		},
	}

	ev := NewEvaluator(testSuite(), []*tasks.Task{task}, source)
	outcome, err := ev.Run(context.Background())
	require.NoError(t, err)

	taskOutcome := outcome.TaskOutcomes[0]
	assert.Equal(t, models.StatusFailed, taskOutcome.Status)
	assert.Equal(t, 3.0, taskOutcome.Validations["final-answer"].Weight)
	assert.Equal(t, 1.0, taskOutcome.Validations["mentions-regime"].Weight)
	assert.Equal(t, 0.75, taskOutcome.Score)
}

func TestEvaluator_Run_ProgressEventOrder(t *testing.T) {
	source := &stubSource{records: map[string]*models.RunRecord{
		"task-1": answerRecord("EFPTGK"),
		"task-2": answerRecord("QWZRTY"),
	}}
	taskList := []*tasks.Task{
		answerTask("task-1", "EFPTGK"),
		answerTask("task-2", "QWZRTY"),
	}

	// fail_fast forces the sequential path, making event order deterministic.
	ev := NewEvaluator(testSuite(), taskList, source, WithStopOnError(true))

	var events []ProgressEvent
	ev.OnProgress(func(event ProgressEvent) {
		events = append(events, event)
	})

	_, err := ev.Run(context.Background())
	require.NoError(t, err)

	var types []EventType
	for _, event := range events {
		types = append(types, event.EventType)
	}
	assert.Equal(t, []EventType{
		EventEvalStart,
		EventTaskStart,
		EventGraderResult,
		EventTaskComplete,
		EventTaskStart,
		EventGraderResult,
		EventTaskComplete,
		EventEvalComplete,
	}, types)

	assert.Equal(t, 2, events[0].TotalTasks)
	assert.Equal(t, "task-1", events[1].TaskID)
	assert.Equal(t, 1, events[1].TaskNum)
	assert.Equal(t, models.StatusPassed, events[3].Status)
}

func TestEvaluator_Run_ConcurrentPreservesOrder(t *testing.T) {
	records := make(map[string]*models.RunRecord)
	var taskList []*tasks.Task
	for i := 1; i <= 8; i++ {
		id := fmt.Sprintf("task-%d", i)
		records[id] = answerRecord("EFPTGK")
		taskList = append(taskList, answerTask(id, "EFPTGK"))
	}

	var mu sync.Mutex
	eventTypes := make(map[EventType]int)

	ev := NewEvaluator(testSuite(), taskList, &stubSource{records: records}, WithWorkers(3))
	ev.OnProgress(func(event ProgressEvent) {
		mu.Lock()
		defer mu.Unlock()
		eventTypes[event.EventType]++
	})

	outcome, err := ev.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, outcome.TaskOutcomes, 8)
	for i, taskOutcome := range outcome.TaskOutcomes {
		assert.Equal(t, fmt.Sprintf("task-%d", i+1), taskOutcome.TaskID)
		assert.Equal(t, models.StatusPassed, taskOutcome.Status)
	}
	assert.Equal(t, 8, eventTypes[EventTaskStart])
	assert.Equal(t, 8, eventTypes[EventTaskComplete])
	assert.Equal(t, 1, eventTypes[EventEvalStart])
	assert.Equal(t, 1, eventTypes[EventEvalComplete])
}

func TestEvaluator_Run_WithDirSource(t *testing.T) {
	recordsDir := t.TempDir()
	record := `{
  "task_id": "regime-shift-detection",
  "status": "success",
  "conversation": [
    {"role": "user", "content": "Analyze the series."},
    {"role": "assistant", "content": "Final answer: <answer>efptgk</answer>"}
  ]
}`
	require.NoError(t, os.WriteFile(filepath.Join(recordsDir, "regime-shift-detection.json"), []byte(record), 0o644))

	source, err := fetch.NewDirSource(recordsDir)
	require.NoError(t, err)

	taskList := []*tasks.Task{answerTask("regime-shift-detection", "EFPTGK")}
	outcome, err := NewEvaluator(testSuite(), taskList, source).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, outcome.TaskOutcomes, 1)
	assert.Equal(t, models.StatusPassed, outcome.TaskOutcomes[0].Status)
	assert.Equal(t, 1.0, outcome.Digest.PassRate)
}

func TestEvaluator_RunIDsAreUnique(t *testing.T) {
	source := &stubSource{records: map[string]*models.RunRecord{
		"task-1": answerRecord("EFPTGK"),
	}}
	taskList := []*tasks.Task{answerTask("task-1", "EFPTGK")}

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		ev := NewEvaluator(testSuite(), taskList, source)
		outcome, err := ev.Run(context.Background())
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(outcome.RunID, "eval-"))
		require.False(t, seen[outcome.RunID], "run id %s issued twice", outcome.RunID)
		seen[outcome.RunID] = true
	}
}
