package models

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRunRecord(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "record.json")
	data := `{
  "task_id": "eight-puzzle-game",
  "status": "success",
  "task_result": "<answer>EFPTGK</answer>",
  "execution_time": 12.5,
  "conversation": [
    {"role": "user", "content": "solve the puzzle"},
    {"role": "assistant", "content": "working on it"}
  ]
}`
	if err := os.WriteFile(p, []byte(data), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	record, err := LoadRunRecord(p)
	if err != nil {
		t.Fatalf("LoadRunRecord: %v", err)
	}
	if record.TaskID != "eight-puzzle-game" {
		t.Errorf("TaskID = %q", record.TaskID)
	}
	if !record.TaskCompleted() {
		t.Error("TaskCompleted() = false, want true")
	}
	if record.TaskResult != "<answer>EFPTGK</answer>" {
		t.Errorf("TaskResult = %q", record.TaskResult)
	}
	if len(record.Conversation) != 2 {
		t.Fatalf("conversation length = %d, want 2", len(record.Conversation))
	}
	if record.Conversation[1].Role != RoleAssistant {
		t.Errorf("second message role = %q", record.Conversation[1].Role)
	}
}

func TestLoadRunRecord_BadRole(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "record.json")
	data := `{"status": "success", "conversation": [{"role": "oracle", "content": "hi"}]}`
	if err := os.WriteFile(p, []byte(data), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if _, err := LoadRunRecord(p); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestTaskCompleted(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{status: "success", want: true},
		{status: "failed", want: false},
		{status: "timeout", want: false},
		{status: "", want: false},
	}
	for _, tt := range tests {
		t.Run("status "+tt.status, func(t *testing.T) {
			r := RunRecord{Status: tt.status}
			if got := r.TaskCompleted(); got != tt.want {
				t.Errorf("TaskCompleted() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCombinedOutput(t *testing.T) {
	record := RunRecord{
		TaskResult: "final result",
		Conversation: []Message{
			{Role: RoleUser, Content: "question"},
			{Role: RoleAssistant, Content: "first reply"},
			{Role: RoleTool, Content: "tool output"},
			{Role: RoleAssistant, Content: "second reply"},
		},
	}

	want := "final result\nfirst reply\nsecond reply"
	if got := record.CombinedOutput(); got != want {
		t.Errorf("CombinedOutput() = %q, want %q", got, want)
	}
}
