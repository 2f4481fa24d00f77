// Package schemas embeds the JSON Schemas that describe saiten's task and
// suite file formats.
package schemas

import (
	_ "embed"
)

// TaskSchemaJSON is the JSON Schema for task YAML files.
//
//go:embed task.schema.json
var TaskSchemaJSON string

// SuiteSchemaJSON is the JSON Schema for suite YAML files.
//
//go:embed suite.schema.json
var SuiteSchemaJSON string
