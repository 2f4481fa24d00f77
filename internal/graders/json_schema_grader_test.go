package graders

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/cocoabench/saiten/internal/models"
	"github.com/stretchr/testify/require"
)

func TestJSONSchemaGrader_Basic(t *testing.T) {
	g, err := NewJSONSchemaGrader(JSONSchemaGraderArgs{
		Name: "test",
		Schema: map[string]any{
			"type": "object",
		},
	})
	require.NoError(t, err)

	require.Equal(t, models.GraderKindJSONSchema, g.Kind())
	require.Equal(t, "test", g.Name())
}

func TestJSONSchemaGrader_Constructor(t *testing.T) {
	t.Run("requires schema or schema_file", func(t *testing.T) {
		_, err := NewJSONSchemaGrader(JSONSchemaGraderArgs{Name: "test"})
		require.Error(t, err)
		require.Contains(t, err.Error(), "must have either 'schema' or 'schema_file'")
	})

	t.Run("malformed schema rejected", func(t *testing.T) {
		_, err := NewJSONSchemaGrader(JSONSchemaGraderArgs{
			Name:   "test",
			Schema: map[string]any{"type": "nonsense"},
		})
		require.Error(t, err)
	})

	t.Run("missing schema_file rejected", func(t *testing.T) {
		_, err := NewJSONSchemaGrader(JSONSchemaGraderArgs{
			Name:       "test",
			SchemaFile: "/nonexistent/schema.json",
		})
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to read schema file")
	})
}

func TestJSONSchemaGrader_Grade(t *testing.T) {
	reportSchema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"regime_count": map[string]any{"type": "integer"},
			"breakpoints": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
		"required": []any{"regime_count", "breakpoints"},
	}

	t.Run("extracted object matching schema passes", func(t *testing.T) {
		g, err := NewJSONSchemaGrader(JSONSchemaGraderArgs{
			Name:   "test",
			Schema: reportSchema,
		})
		require.NoError(t, err)

		results, err := g.Grade(context.Background(), &Context{
			Record: reportRecord(`Here is the report: {"regime_count": 3, "breakpoints": ["2024-07-27", "2025-02-16"]}`),
		})
		require.NoError(t, err)
		require.True(t, results.Passed)
		require.Equal(t, 1.0, results.Score)
		require.Equal(t, "Output matches JSON schema", results.Feedback)
		require.Equal(t, models.SourceMessageContent, results.Details["answer_source"])
	})

	t.Run("fenced payload is validated", func(t *testing.T) {
		g, err := NewJSONSchemaGrader(JSONSchemaGraderArgs{
			Name:   "test",
			Schema: reportSchema,
		})
		require.NoError(t, err)

		results, err := g.Grade(context.Background(), &Context{
			Record: reportRecord("```json\n{\"regime_count\": 3, \"breakpoints\": []}\n```"),
		})
		require.NoError(t, err)
		require.True(t, results.Passed)
	})

	t.Run("extracted object violating schema fails", func(t *testing.T) {
		g, err := NewJSONSchemaGrader(JSONSchemaGraderArgs{
			Name:   "test",
			Schema: reportSchema,
		})
		require.NoError(t, err)

		results, err := g.Grade(context.Background(), &Context{
			Record: reportRecord(`{"regime_count": "three", "breakpoints": []}`),
		})
		require.NoError(t, err)
		require.False(t, results.Passed)
		require.Equal(t, 0.0, results.Score)
		require.Contains(t, results.Feedback, "Schema validation failed")
	})

	t.Run("no JSON object anywhere reports not found", func(t *testing.T) {
		g, err := NewJSONSchemaGrader(JSONSchemaGraderArgs{
			Name:   "test",
			Schema: map[string]any{"type": "object"},
		})
		require.NoError(t, err)

		results, err := g.Grade(context.Background(), &Context{
			Record: successRecord("prose only", assistantSays("no objects here")),
		})
		require.NoError(t, err)
		require.False(t, results.Passed)
		require.Equal(t, 0.0, results.Score)
		require.Equal(t, "No valid JSON object found in assistant responses.", results.Feedback)
		require.Equal(t, models.FailureNotFound, results.Details["failure"])
	})

	t.Run("empty object is never a payload", func(t *testing.T) {
		g, err := NewJSONSchemaGrader(JSONSchemaGraderArgs{
			Name:   "test",
			Schema: map[string]any{"type": "object"},
		})
		require.NoError(t, err)

		results, err := g.Grade(context.Background(), &Context{
			Record: reportRecord("the result was {}"),
		})
		require.NoError(t, err)
		require.False(t, results.Passed)
		require.Equal(t, models.FailureNotFound, results.Details["failure"])
	})

	t.Run("schema_file loads schema from disk", func(t *testing.T) {
		tmpDir := t.TempDir()
		schemaPath := filepath.Join(tmpDir, "schema.json")

		schema := map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id": map[string]any{"type": "integer"},
			},
			"required": []any{"id"},
		}
		schemaBytes, err := json.Marshal(schema)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(schemaPath, schemaBytes, 0o644))

		g, err := NewJSONSchemaGrader(JSONSchemaGraderArgs{
			Name:       "test",
			SchemaFile: schemaPath,
		})
		require.NoError(t, err)

		results, err := g.Grade(context.Background(), &Context{
			Record: reportRecord(`{"id": 42}`),
		})
		require.NoError(t, err)
		require.True(t, results.Passed)
		require.Equal(t, 1.0, results.Score)
	})

	t.Run("duration is recorded", func(t *testing.T) {
		g, err := NewJSONSchemaGrader(JSONSchemaGraderArgs{
			Name:   "test",
			Schema: map[string]any{"type": "object"},
		})
		require.NoError(t, err)

		results, err := g.Grade(context.Background(), &Context{
			Record: reportRecord(`{"any": "thing"}`),
		})
		require.NoError(t, err)
		require.GreaterOrEqual(t, results.DurationMs, int64(0))
	})
}

func TestJSONSchemaGrader_ViaCreate(t *testing.T) {
	g, err := Create(models.GraderKindJSONSchema, "from-create", map[string]any{
		"schema": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name": map[string]any{"type": "string"},
			},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "from-create", g.Name())
	require.Equal(t, models.GraderKindJSONSchema, g.Kind())

	results, err := g.Grade(context.Background(), &Context{
		Record: reportRecord(`{"name": "saiten"}`),
	})
	require.NoError(t, err)
	require.True(t, results.Passed)
	require.Equal(t, 1.0, results.Score)
}

// Ensure jsonSchemaGrader satisfies the Grader interface at compile time.
var _ Grader = (*jsonSchemaGrader)(nil)
