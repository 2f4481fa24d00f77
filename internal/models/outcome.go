package models

import (
	"math"
	"time"
)

// Status represents the outcome status of a graded task.
type Status string

const (
	StatusPassed Status = "passed"
	StatusFailed Status = "failed"
	StatusError  Status = "error"
	// StatusNA is used in comparison reports when a task is not found in a result file.
	StatusNA Status = "n/a"
)

// GraderKind identifies the type of grader (e.g. answer, report, keyword).
type GraderKind string

const (
	GraderKindAnswer     GraderKind = "answer"
	GraderKindReport     GraderKind = "report"
	GraderKindKeyword    GraderKind = "keyword"
	GraderKindRegex      GraderKind = "regex"
	GraderKindJSONSchema GraderKind = "json_schema"
)

// FailureKind classifies why an extraction or validation failed. A
// failure is data on the outcome record, never a process error: a failing
// evaluation still returns a well-formed result.
type FailureKind string

const (
	// FailureNotFound means no payload was extractable from any source.
	FailureNotFound FailureKind = "not_found"
	// FailureMissingField means the payload lacks a schema-required field.
	FailureMissingField FailureKind = "missing_field"
	// FailureTypeMismatch means a field's runtime type violates the schema.
	FailureTypeMismatch FailureKind = "type_mismatch"
	// FailureCountMismatch means a sequence field has the wrong cardinality.
	FailureCountMismatch FailureKind = "count_mismatch"
	// FailureToleranceExceeded means comparable values fell outside the allowed window.
	FailureToleranceExceeded FailureKind = "tolerance_exceeded"
	// FailureParseError means a date or JSON value was malformed.
	FailureParseError FailureKind = "parse_error"
)

// ExtractionSource tags which channel of a run record a payload came
// from. Provenance is diagnostic only; it never affects correctness.
type ExtractionSource string

const (
	SourceDirectResult   ExtractionSource = "direct_result"
	SourceToolCallResult ExtractionSource = "tool_call_result"
	SourceMessageContent ExtractionSource = "message_content"
)

// EvaluationOutcome represents the complete result of grading one suite
// of task run records.
type EvaluationOutcome struct {
	RunID        string         `json:"eval_id"`
	SuiteName    string         `json:"suite"`
	Timestamp    time.Time      `json:"timestamp"`
	Digest       OutcomeDigest  `json:"summary"`
	TaskOutcomes []TaskOutcome  `json:"tasks"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// OutcomeDigest holds aggregate statistics for an evaluation run.
type OutcomeDigest struct {
	TotalTasks     int     `json:"total_tasks"`
	Passed         int     `json:"passed"`
	Failed         int     `json:"failed"`
	Errors         int     `json:"errors"`
	PassRate       float64 `json:"pass_rate"`
	AggregateScore float64 `json:"aggregate_score"`
	MinScore       float64 `json:"min_score"`
	MaxScore       float64 `json:"max_score"`
	StdDev         float64 `json:"std_dev"`
	DurationMs     int64   `json:"duration_ms"`
}

// TaskOutcome represents the graded result of one task's run record.
type TaskOutcome struct {
	TaskID      string `json:"task_id"`
	DisplayName string `json:"display_name"`
	// Status contains the overall status of the graded task.
	// NOTE: if Status == [StatusError], then [ErrorMsg] will be set to the
	// message from the error.
	Status      Status                   `json:"status"`
	Score       float64                  `json:"score"`
	DurationMs  int64                    `json:"duration_ms"`
	Validations map[string]GraderResults `json:"validations"`
	ErrorMsg    string                   `json:"error_msg,omitempty"`
}

// GraderResults is the verdict of a single grader over one run record:
// pass/fail, a score, ordered human feedback, and an open details mapping
// that makes a failing run auditable without re-running extraction.
type GraderResults struct {
	Name       string         `json:"identifier"`
	Type       GraderKind     `json:"type"`
	Score      float64        `json:"score"`
	Weight     float64        `json:"weight"`
	Passed     bool           `json:"passed"`
	Feedback   string         `json:"feedback"`
	Details    map[string]any `json:"details,omitempty"`
	DurationMs int64          `json:"duration_ms"`
}

// ComputeScore calculates the average score across all validations
// (unweighted).
func (t *TaskOutcome) ComputeScore() float64 {
	if len(t.Validations) == 0 {
		return 0.0
	}
	total := 0.0
	for _, v := range t.Validations {
		total += v.Score
	}
	return total / float64(len(t.Validations))
}

// ComputeWeightedScore calculates the weighted composite score (0.0–1.0)
// using each grader's Weight field. If all weights are zero, falls back to
// a simple average.
func (t *TaskOutcome) ComputeWeightedScore() float64 {
	if len(t.Validations) == 0 {
		return 0.0
	}
	totalWeight := 0.0
	weightedSum := 0.0
	for _, v := range t.Validations {
		w := v.Weight
		if w <= 0 {
			w = 1.0
		}
		weightedSum += v.Score * w
		totalWeight += w
	}
	if totalWeight == 0 {
		return 0.0
	}
	return weightedSum / totalWeight
}

// AllValidationsPassed checks if all validations passed.
func (t *TaskOutcome) AllValidationsPassed() bool {
	for _, v := range t.Validations {
		if !v.Passed {
			return false
		}
	}
	return true
}

// ComputeStdDev returns the population standard deviation for a slice of float64 values.
func ComputeStdDev(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0.0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(n)
	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	return math.Sqrt(variance / float64(n))
}
