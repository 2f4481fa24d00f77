package models

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// StatusSuccess is the executor status value that marks a run as
// completed. Any other status leaves the run incomplete; graders still
// check the answer but the task cannot pass.
const StatusSuccess = "success"

// RunRecord is one finished task run as reported by the task executor:
// the terminal status, the full conversation, and an optional direct
// result string. It is the input contract of every grader.
type RunRecord struct {
	TaskID       string    `json:"task_id,omitempty"`
	Status       string    `json:"status"`
	Conversation []Message `json:"conversation,omitempty"`

	// TaskResult is the direct-result channel. When the executor captures
	// an explicit result it takes precedence over the conversation.
	TaskResult string `json:"task_result,omitempty"`

	// ExecutionTime is the wall-clock duration of the run in seconds.
	ExecutionTime float64 `json:"execution_time,omitempty"`
	ErrorMsg      string  `json:"error,omitempty"`
}

// TaskCompleted reports whether the executor finished the run successfully.
// Completion and answer correctness are independent; both must hold for a
// task to pass.
func (r *RunRecord) TaskCompleted() bool { return r.Status == StatusSuccess }

// CombinedOutput returns the text channels of the run joined together:
// the direct result first, then every assistant message's content, oldest
// first. Keyword and pattern graders scan this view.
func (r *RunRecord) CombinedOutput() string {
	var parts []string
	if r.TaskResult != "" {
		parts = append(parts, r.TaskResult)
	}
	for _, msg := range r.Conversation {
		if msg.Role == RoleAssistant && msg.Content != "" {
			parts = append(parts, msg.Content)
		}
	}
	return strings.Join(parts, "\n")
}

// TranscriptText returns every message's content regardless of role,
// oldest first, with the direct result appended last. Graders scoped to
// the whole conversation scan this view.
func (r *RunRecord) TranscriptText() string {
	var parts []string
	for _, msg := range r.Conversation {
		if msg.Content != "" {
			parts = append(parts, msg.Content)
		}
	}
	if r.TaskResult != "" {
		parts = append(parts, r.TaskResult)
	}
	return strings.Join(parts, "\n")
}

// LoadRunRecord reads a single run record from a JSON file.
func LoadRunRecord(path string) (*RunRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run record: %w", err)
	}

	var record RunRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to parse run record %s: %w", path, err)
	}
	return &record, nil
}
