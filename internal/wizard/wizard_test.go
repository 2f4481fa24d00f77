package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/cocoabench/saiten/internal/models"
	"github.com/cocoabench/saiten/internal/tasks"
)

func TestGenerateTaskYAML_AnswerKind(t *testing.T) {
	spec := &TaskSpec{
		ID:          "find-the-code",
		DisplayName: "Find the Code",
		Prompt:      "Locate the access code in the dataset.",
		Kind:        models.GraderKindAnswer,
		Expected:    "EFPTGK",
		Tag:         "answer",
	}

	result, err := GenerateTaskYAML(spec)
	require.NoError(t, err)

	assert.Contains(t, result, "id: find-the-code")
	assert.Contains(t, result, "name: Find the Code")
	assert.Contains(t, result, "type: answer")
	assert.Contains(t, result, `expected: "EFPTGK"`)
	assert.Contains(t, result, "tag: answer")
}

func TestGenerateTaskYAML_ReportKind(t *testing.T) {
	spec := &TaskSpec{
		ID:            "anomaly-report",
		DisplayName:   "Anomaly Report",
		Prompt:        "Report the anomalies you found as JSON.",
		Kind:          models.GraderKindReport,
		ToleranceDays: 5,
	}

	result, err := GenerateTaskYAML(spec)
	require.NoError(t, err)

	assert.Contains(t, result, "type: report")
	assert.Contains(t, result, "tolerance_days: 5")
	assert.Contains(t, result, "type: date_list")
}

func TestGenerateTaskYAML_ReportKindDefaultTolerance(t *testing.T) {
	spec := &TaskSpec{
		ID:     "anomaly-report",
		Prompt: "Report the anomalies.",
		Kind:   models.GraderKindReport,
	}

	result, err := GenerateTaskYAML(spec)
	require.NoError(t, err)
	assert.Contains(t, result, "tolerance_days: 7")
}

// The rendered YAML must round-trip through the task loader.
func TestGenerateTaskYAML_ParsesAsTask(t *testing.T) {
	for _, kind := range []models.GraderKind{models.GraderKindAnswer, models.GraderKindReport} {
		t.Run(string(kind), func(t *testing.T) {
			spec := &TaskSpec{
				ID:       "round-trip",
				Prompt:   "Do the thing.",
				Kind:     kind,
				Expected: "EFPTGK",
				Tag:      "answer",
			}
			result, err := GenerateTaskYAML(spec)
			require.NoError(t, err)

			var task tasks.Task
			require.NoError(t, yaml.Unmarshal([]byte(result), &task))
			require.NoError(t, task.Validate())
			require.Equal(t, "round-trip", task.ID)
			require.Len(t, task.Graders, 1)
			require.Equal(t, kind, task.Graders[0].Kind)
		})
	}
}

func TestValidateTaskID(t *testing.T) {
	valid := []string{"a", "find-the-code", "task-01", "x9"}
	for _, id := range valid {
		assert.NoError(t, ValidateTaskID(id), id)
	}

	invalid := []string{"", "Find-Code", "task_01", "-leading", "trailing-", "has space"}
	for _, id := range invalid {
		assert.Error(t, ValidateTaskID(id), id)
	}
}
