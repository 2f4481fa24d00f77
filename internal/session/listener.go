package session

import (
	"fmt"
	"os"

	"github.com/cocoabench/saiten/internal/evaluation"
)

// Listener returns a progress listener that records per-task evaluation
// progress in the session log. Evaluation start and completion entries
// carry data the progress stream does not have (suite name, digest), so
// callers log those themselves with [EvalStartData] and
// [EvalCompleteData]. Write failures are warned on stderr and never
// interrupt grading.
func Listener(logger Logger) evaluation.ProgressListener {
	return func(event evaluation.ProgressEvent) {
		entry, ok := convertEvent(event)
		if !ok {
			return
		}
		if err := logger.Log(entry); err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] session log write failed: %v\n", err)
		}
	}
}

func convertEvent(event evaluation.ProgressEvent) (Event, bool) {
	switch event.EventType {
	case evaluation.EventEvalStopped:
		return NewEvent(EventEvalStopped, event.Details), true

	case evaluation.EventTaskStart:
		return NewEvent(EventTaskStart, TaskStartData(event.TaskID, event.TaskNum, event.TotalTasks)), true

	case evaluation.EventTaskComplete:
		return NewEvent(EventTaskComplete, TaskCompleteData(
			event.TaskID,
			string(event.Status),
			detailFloat(event.Details["score"]),
			event.DurationMs,
		)), true

	case evaluation.EventGraderResult:
		return NewEvent(EventGraderResult, GraderResultData(
			detailString(event.Details["grader"]),
			detailString(event.Details["grader_type"]),
			detailBool(event.Details["passed"]),
			detailFloat(event.Details["score"]),
			detailString(event.Details["feedback"]),
		)), true
	}

	return Event{}, false
}

func detailString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func detailFloat(v any) float64 {
	f, _ := v.(float64)
	return f
}

func detailBool(v any) bool {
	b, _ := v.(bool)
	return b
}
