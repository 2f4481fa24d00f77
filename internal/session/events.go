package session

import "time"

// EventType identifies the kind of session event.
type EventType string

const (
	EventEvalStart    EventType = "eval_start"
	EventEvalComplete EventType = "eval_complete"
	EventEvalStopped  EventType = "eval_stopped"
	EventTaskStart    EventType = "task_start"
	EventTaskComplete EventType = "task_complete"
	EventGraderResult EventType = "grader_result"
	EventError        EventType = "error"
)

// Event is a single timestamped entry in a session log.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Type      EventType      `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
}

// NewEvent creates an event with the current timestamp.
func NewEvent(t EventType, data map[string]any) Event {
	return Event{
		Timestamp: time.Now().UTC(),
		Type:      t,
		Data:      data,
	}
}

// EvalStartData returns event data for an evaluation start.
func EvalStartData(suiteName, recordSource string, taskCount int) map[string]any {
	return map[string]any{
		"suite":         suiteName,
		"record_source": recordSource,
		"task_count":    taskCount,
	}
}

// EvalCompleteData returns event data for an evaluation end.
func EvalCompleteData(totalTasks, passed, failed, errors int, durationMs int64) map[string]any {
	return map[string]any{
		"total_tasks": totalTasks,
		"passed":      passed,
		"failed":      failed,
		"errors":      errors,
		"duration_ms": durationMs,
	}
}

// TaskStartData returns event data for a task start.
func TaskStartData(taskID string, taskNum, totalTasks int) map[string]any {
	return map[string]any{
		"task_id":     taskID,
		"task_num":    taskNum,
		"total_tasks": totalTasks,
	}
}

// TaskCompleteData returns event data for a task completion.
func TaskCompleteData(taskID, status string, score float64, durationMs int64) map[string]any {
	return map[string]any{
		"task_id":     taskID,
		"status":      status,
		"score":       score,
		"duration_ms": durationMs,
	}
}

// GraderResultData returns event data for a grader result.
func GraderResultData(graderName, graderType string, passed bool, score float64, feedback string) map[string]any {
	return map[string]any{
		"grader_name": graderName,
		"grader_type": graderType,
		"passed":      passed,
		"score":       score,
		"feedback":    feedback,
	}
}

// ErrorData returns event data for an error.
func ErrorData(message string, details map[string]any) map[string]any {
	d := map[string]any{
		"message": message,
	}
	for k, v := range details {
		d[k] = v
	}
	return d
}
