package session

import (
	"testing"

	"github.com/cocoabench/saiten/internal/evaluation"
	"github.com/cocoabench/saiten/internal/models"
)

// captureLogger records events in memory.
type captureLogger struct {
	events []Event
}

func (c *captureLogger) Log(event Event) error {
	c.events = append(c.events, event)
	return nil
}

func (c *captureLogger) Close() error { return nil }

func TestListener(t *testing.T) {
	capture := &captureLogger{}
	listen := Listener(capture)

	listen(evaluation.ProgressEvent{
		EventType:  evaluation.EventTaskStart,
		TaskID:     "task-1",
		TaskNum:    1,
		TotalTasks: 2,
	})
	listen(evaluation.ProgressEvent{
		EventType:  evaluation.EventGraderResult,
		TaskID:     "task-1",
		DurationMs: 3,
		Details: map[string]any{
			"grader":      "final-answer",
			"grader_type": models.GraderKindAnswer,
			"passed":      true,
			"score":       1.0,
			"feedback":    "Found answer: EFPTGK",
		},
	})
	listen(evaluation.ProgressEvent{
		EventType:  evaluation.EventTaskComplete,
		TaskID:     "task-1",
		Status:     models.StatusPassed,
		DurationMs: 12,
		Details:    map[string]any{"score": 1.0},
	})

	if len(capture.events) != 3 {
		t.Fatalf("got %d events, want 3", len(capture.events))
	}

	if capture.events[0].Type != EventTaskStart {
		t.Errorf("events[0].Type = %q, want %q", capture.events[0].Type, EventTaskStart)
	}
	if capture.events[0].Data["task_id"] != "task-1" {
		t.Errorf("task_id = %v", capture.events[0].Data["task_id"])
	}

	grader := capture.events[1]
	if grader.Type != EventGraderResult {
		t.Errorf("events[1].Type = %q, want %q", grader.Type, EventGraderResult)
	}
	if grader.Data["grader_name"] != "final-answer" {
		t.Errorf("grader_name = %v", grader.Data["grader_name"])
	}
	if grader.Data["grader_type"] != "answer" {
		t.Errorf("grader_type = %v, want %q", grader.Data["grader_type"], "answer")
	}
	if grader.Data["passed"] != true {
		t.Errorf("passed = %v", grader.Data["passed"])
	}

	complete := capture.events[2]
	if complete.Type != EventTaskComplete {
		t.Errorf("events[2].Type = %q, want %q", complete.Type, EventTaskComplete)
	}
	if complete.Data["status"] != "passed" {
		t.Errorf("status = %v", complete.Data["status"])
	}
	if complete.Data["score"] != 1.0 {
		t.Errorf("score = %v", complete.Data["score"])
	}
	if complete.Data["duration_ms"] != int64(12) {
		t.Errorf("duration_ms = %v", complete.Data["duration_ms"])
	}
}

func TestListenerSkipsLifecycleEvents(t *testing.T) {
	capture := &captureLogger{}
	listen := Listener(capture)

	// Start and completion entries are the caller's responsibility.
	listen(evaluation.ProgressEvent{EventType: evaluation.EventEvalStart, TotalTasks: 3})
	listen(evaluation.ProgressEvent{EventType: evaluation.EventEvalComplete, DurationMs: 10})

	if len(capture.events) != 0 {
		t.Fatalf("got %d events, want 0", len(capture.events))
	}
}

func TestListenerStoppedEvent(t *testing.T) {
	capture := &captureLogger{}
	listen := Listener(capture)

	listen(evaluation.ProgressEvent{
		EventType: evaluation.EventEvalStopped,
		Details:   map[string]any{"reason": "fail_fast enabled and a previous task did not pass"},
	})

	if len(capture.events) != 1 {
		t.Fatalf("got %d events, want 1", len(capture.events))
	}
	if capture.events[0].Type != EventEvalStopped {
		t.Errorf("Type = %q, want %q", capture.events[0].Type, EventEvalStopped)
	}
	if capture.events[0].Data["reason"] == "" {
		t.Error("reason should be recorded")
	}
}
