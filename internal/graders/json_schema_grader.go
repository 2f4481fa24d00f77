package graders

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/cocoabench/saiten/internal/extract"
	"github.com/cocoabench/saiten/internal/models"
)

// JSONSchemaGraderArgs holds the arguments for creating a JSON schema grader.
type JSONSchemaGraderArgs struct {
	// Name is the identifier for this grader, used in results and error messages.
	Name string
	// Schema is an inline JSON schema object used for validation.
	Schema map[string]any `mapstructure:"schema"`
	// SchemaFile is a path to a JSON schema file. Used when Schema is not provided.
	SchemaFile string `mapstructure:"schema_file"`
	// CompletionTool overrides the tool-call name scanned for results.
	CompletionTool string `mapstructure:"completion_tool"`
}

// jsonSchemaGrader validates that the run's extracted JSON payload
// matches a given schema. Extraction follows the same source order as
// the report grader; the schema decides everything else.
type jsonSchemaGrader struct {
	name    string
	schema  *jsonschema.Schema
	scanner extract.Scanner
}

// NewJSONSchemaGrader creates a [jsonSchemaGrader] from a schema
// provided inline or via a file path. The schema is compiled up front,
// so a malformed schema is a configuration error.
func NewJSONSchemaGrader(args JSONSchemaGraderArgs) (*jsonSchemaGrader, error) {
	if args.Schema == nil && args.SchemaFile == "" {
		return nil, fmt.Errorf("json_schema grader '%s' must have either 'schema' or 'schema_file'", args.Name)
	}

	schemaMap := args.Schema
	if schemaMap == nil {
		data, err := os.ReadFile(args.SchemaFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read schema file %q: %w", args.SchemaFile, err)
		}
		if err := json.Unmarshal(data, &schemaMap); err != nil {
			return nil, fmt.Errorf("failed to parse schema file %q: %w", args.SchemaFile, err)
		}
	}

	schema, err := compileSchema(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("json_schema grader '%s': %w", args.Name, err)
	}

	scanner := extract.NewScanner(extract.JSONExtractor{})
	if args.CompletionTool != "" {
		scanner.CompletionTool = args.CompletionTool
	}

	return &jsonSchemaGrader{
		name:    args.Name,
		schema:  schema,
		scanner: scanner,
	}, nil
}

// compileSchema round-trips the schema map through JSON so the compiler
// sees plain decoded values, then compiles it.
func compileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	schemaJSON, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize schema: %w", err)
	}

	var schemaValue any
	if err := json.Unmarshal(schemaJSON, &schemaValue); err != nil {
		return nil, fmt.Errorf("failed to parse schema for validation: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", schemaValue); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile JSON schema: %w", err)
	}
	return schema, nil
}

func (jsg *jsonSchemaGrader) Name() string            { return jsg.name }
func (jsg *jsonSchemaGrader) Kind() models.GraderKind { return models.GraderKindJSONSchema }

func (jsg *jsonSchemaGrader) Grade(ctx context.Context, gradingContext *Context) (*models.GraderResults, error) {
	return measureTime(func() (*models.GraderResults, error) {
		record := gradingContext.Record

		payload, source, found := jsg.scanner.Scan(record.TaskResult, record.Conversation)
		if !found {
			return &models.GraderResults{
				Name:     jsg.name,
				Type:     models.GraderKindJSONSchema,
				Score:    0.0,
				Passed:   false,
				Feedback: "No valid JSON object found in assistant responses.",
				Details: map[string]any{
					"conversation_length": len(record.Conversation),
					"failure":             models.FailureNotFound,
				},
			}, nil
		}

		var value any
		if err := json.Unmarshal([]byte(payload), &value); err != nil {
			return &models.GraderResults{
				Name:     jsg.name,
				Type:     models.GraderKindJSONSchema,
				Score:    0.0,
				Passed:   false,
				Feedback: fmt.Sprintf("Output is not valid JSON: %v", err),
				Details: map[string]any{
					"error":   err.Error(),
					"failure": models.FailureParseError,
				},
			}, nil
		}

		if err := jsg.schema.Validate(value); err != nil {
			feedback := fmt.Sprintf("Schema validation failed: %v", err)
			return &models.GraderResults{
				Name:     jsg.name,
				Type:     models.GraderKindJSONSchema,
				Score:    0.0,
				Passed:   false,
				Feedback: feedback,
				Details: map[string]any{
					"failures":      []string{feedback},
					"answer_source": source,
				},
			}, nil
		}

		return &models.GraderResults{
			Name:     jsg.name,
			Type:     models.GraderKindJSONSchema,
			Score:    1.0,
			Passed:   true,
			Feedback: "Output matches JSON schema",
			Details: map[string]any{
				"answer_source": source,
			},
		}, nil
	})
}
