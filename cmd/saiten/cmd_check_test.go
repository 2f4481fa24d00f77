package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCheckFixture(t *testing.T, suiteYAML, taskYAML string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "tasks"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "suite.yaml"), []byte(suiteYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tasks", "sample.yaml"), []byte(taskYAML), 0o644))
	return filepath.Join(dir, "suite.yaml")
}

const validSuiteYAML = `name: sample-suite
tasks:
  - "tasks/*.yaml"
`

const validTaskYAML = `id: sample-task
name: Sample Task
prompt: What is the answer?
graders:
  - type: answer
    name: final_answer
    config:
      expected: "42"
`

func TestCheckCommand_Valid(t *testing.T) {
	suitePath := writeCheckFixture(t, validSuiteYAML, validTaskYAML)

	var buf bytes.Buffer
	cmd := newCheckCommand()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{suitePath})
	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "✓ suite schema valid")
	assert.Contains(t, output, "✓ task schemas valid")
}

func TestCheckCommand_InvalidTask(t *testing.T) {
	// grader missing the required name field
	badTask := `id: sample-task
graders:
  - type: answer
`
	suitePath := writeCheckFixture(t, validSuiteYAML, badTask)

	var buf bytes.Buffer
	cmd := newCheckCommand()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{suitePath})

	err := cmd.Execute()
	require.Error(t, err)

	var evalFailureErr *EvalFailureError
	require.ErrorAs(t, err, &evalFailureErr)

	output := buf.String()
	assert.Contains(t, output, "✗ task schemas")
	assert.Contains(t, output, "sample.yaml")
}

func TestCheckCommand_InvalidSuite(t *testing.T) {
	// missing required tasks field
	suitePath := writeCheckFixture(t, "name: sample-suite\n", validTaskYAML)

	var buf bytes.Buffer
	cmd := newCheckCommand()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{suitePath})

	err := cmd.Execute()
	require.Error(t, err)

	var evalFailureErr *EvalFailureError
	require.ErrorAs(t, err, &evalFailureErr)
	assert.Contains(t, buf.String(), "✗ suite schema")
}

func TestCheckCommand_JSONFormat(t *testing.T) {
	suitePath := writeCheckFixture(t, validSuiteYAML, validTaskYAML)

	var buf bytes.Buffer
	cmd := newCheckCommand()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{suitePath, "--format", "json"})
	require.NoError(t, cmd.Execute())

	var report checkJSONReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &report))
	assert.True(t, report.Valid)
	assert.Equal(t, suitePath, report.SuitePath)
	assert.Empty(t, report.SuiteErrors)
	assert.Empty(t, report.TaskErrors)
}

func TestCheckCommand_BadFormat(t *testing.T) {
	suitePath := writeCheckFixture(t, validSuiteYAML, validTaskYAML)

	cmd := newCheckCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{suitePath, "--format", "xml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
