package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cocoabench/saiten/internal/models"
)

// writeEvalFixture lays out a runnable suite: one answer task plus a
// results directory holding its run record.
func writeEvalFixture(t *testing.T, answer string) (suitePath, resultsDir string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "tasks"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "results"), 0o755))

	suite := `name: fixture-suite
tasks:
  - "tasks/*.yaml"
`
	task := `id: find-the-code
name: Find The Code
prompt: Find the launch code.
graders:
  - type: answer
    name: final_answer
    config:
      expected: "XK-42"
`
	record := models.RunRecord{
		TaskID: "find-the-code",
		Status: models.StatusSuccess,
		Conversation: []models.Message{
			{Role: models.RoleAssistant, Content: "The code is <answer>" + answer + "</answer>."},
		},
	}
	recordData, err := json.Marshal(record)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "suite.yaml"), []byte(suite), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tasks", "find-the-code.yaml"), []byte(task), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "results", "find-the-code.json"), recordData, 0o644))

	return filepath.Join(dir, "suite.yaml"), filepath.Join(dir, "results")
}

func TestEvalCommand_PassingSuite(t *testing.T) {
	suitePath, resultsDir := writeEvalFixture(t, "XK-42")
	outputPath := filepath.Join(t.TempDir(), "outcome.json")

	cmd := newEvalCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{suitePath,
		"--results-dir", resultsDir,
		"--output", outputPath,
	})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)

	var outcome models.EvaluationOutcome
	require.NoError(t, json.Unmarshal(data, &outcome))
	assert.Equal(t, "fixture-suite", outcome.SuiteName)
	assert.Equal(t, 1, outcome.Digest.TotalTasks)
	assert.Equal(t, 1, outcome.Digest.Passed)
	assert.Equal(t, 0, outcome.Digest.Failed)

	require.Len(t, outcome.TaskOutcomes, 1)
	to := outcome.TaskOutcomes[0]
	assert.Equal(t, "find-the-code", to.TaskID)
	assert.Equal(t, models.StatusPassed, to.Status)
	assert.InDelta(t, 1.0, to.Score, 1e-9)
}

func TestEvalCommand_FailingSuiteExitsWithFailureError(t *testing.T) {
	suitePath, resultsDir := writeEvalFixture(t, "WRONG-99")

	cmd := newEvalCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{suitePath, "--results-dir", resultsDir})

	err := cmd.Execute()
	require.Error(t, err)

	var evalFailureErr *EvalFailureError
	require.ErrorAs(t, err, &evalFailureErr)
	assert.Contains(t, evalFailureErr.Message, "1 failed")
}

func TestEvalCommand_JUnitReport(t *testing.T) {
	suitePath, resultsDir := writeEvalFixture(t, "XK-42")
	junitFile := filepath.Join(t.TempDir(), "junit.xml")

	cmd := newEvalCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{suitePath,
		"--results-dir", resultsDir,
		"--junit", junitFile,
	})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(junitFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<testsuite")
	assert.Contains(t, string(data), "Find The Code")
}

func TestEvalCommand_TaskFilterMatchesNothing(t *testing.T) {
	suitePath, resultsDir := writeEvalFixture(t, "XK-42")

	cmd := newEvalCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{suitePath,
		"--results-dir", resultsDir,
		"--task", "no-such-*",
	})

	err := cmd.Execute()
	require.Error(t, err)

	// No tasks to grade is a configuration error, not a grading failure
	var evalFailureErr *EvalFailureError
	assert.False(t, errors.As(err, &evalFailureErr))
}
