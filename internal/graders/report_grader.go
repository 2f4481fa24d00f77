package graders

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/cocoabench/saiten/internal/extract"
	"github.com/cocoabench/saiten/internal/models"
)

// FieldType enumerates the runtime types a report field may declare.
type FieldType string

const (
	FieldTypeInt      FieldType = "int"
	FieldTypeString   FieldType = "string"
	FieldTypeDateList FieldType = "date_list"
)

// DefaultToleranceDays is the ± window applied to date_list fields when
// a task does not configure its own.
const DefaultToleranceDays = 7

// dateLayout is the only accepted date form: strict YYYY-MM-DD.
const dateLayout = "2006-01-02"

// FieldSpec declares one required field of a structured report answer.
type FieldSpec struct {
	// Name is the JSON key the payload must contain.
	Name string `mapstructure:"name"`
	// Type is the required runtime type: int, string or date_list.
	Type FieldType `mapstructure:"type"`
	// Expected is the ground-truth value: a whole number for int fields,
	// text for string fields, a list of YYYY-MM-DD strings for date_list
	// fields.
	Expected any `mapstructure:"expected"`
	// ToleranceDays widens date_list comparison to ±N days per sorted
	// pair. Values below 1 fall back to [DefaultToleranceDays].
	ToleranceDays int `mapstructure:"tolerance_days"`
	// Label names the field in feedback lines, as a lowercase noun
	// phrase. Defaults to Name with underscores as spaces.
	Label string `mapstructure:"label"`
}

// ReportGraderArgs holds the arguments for creating a report grader.
type ReportGraderArgs struct {
	// Name is the identifier for this grader, used in results and error messages.
	Name string
	// Fields are the required fields of the report, in the order their
	// diagnostics appear in feedback.
	Fields []FieldSpec `mapstructure:"fields"`
	// CompletionTool overrides the tool-call name scanned for results.
	CompletionTool string `mapstructure:"completion_tool"`
}

// reportGrader validates a structured JSON answer against a field
// schema: every declared field must be present with the right type,
// scalar fields must match exactly, and date sequences must pair within
// tolerance after sorting both sides. Schema violations short-circuit
// before any value comparison.
type reportGrader struct {
	name    string
	fields  []FieldSpec
	scanner extract.Scanner
}

// NewReportGrader creates a [reportGrader] over the given field schema.
func NewReportGrader(args ReportGraderArgs) (*reportGrader, error) {
	if len(args.Fields) == 0 {
		return nil, fmt.Errorf("report grader '%s' requires at least one field", args.Name)
	}

	fields := make([]FieldSpec, 0, len(args.Fields))
	for _, f := range args.Fields {
		if f.Name == "" {
			return nil, fmt.Errorf("report grader '%s' has a field without a name", args.Name)
		}
		switch f.Type {
		case FieldTypeInt:
			if _, ok := asInt64(f.Expected); !ok {
				return nil, fmt.Errorf("report grader '%s' field '%s' needs a whole-number expected value", args.Name, f.Name)
			}
		case FieldTypeString:
			if _, ok := f.Expected.(string); !ok {
				return nil, fmt.Errorf("report grader '%s' field '%s' needs a string expected value", args.Name, f.Name)
			}
		case FieldTypeDateList:
			if _, ok := asStringSlice(f.Expected); !ok {
				return nil, fmt.Errorf("report grader '%s' field '%s' needs a list of date strings", args.Name, f.Name)
			}
		default:
			return nil, fmt.Errorf("report grader '%s' field '%s' has unknown type '%s'", args.Name, f.Name, f.Type)
		}

		if f.Label == "" {
			f.Label = strings.ReplaceAll(f.Name, "_", " ")
		}
		if f.ToleranceDays < 1 {
			f.ToleranceDays = DefaultToleranceDays
		}
		fields = append(fields, f)
	}

	scanner := extract.NewScanner(extract.JSONExtractor{})
	if args.CompletionTool != "" {
		scanner.CompletionTool = args.CompletionTool
	}

	return &reportGrader{
		name:    args.Name,
		fields:  fields,
		scanner: scanner,
	}, nil
}

func (rg *reportGrader) Name() string            { return rg.name }
func (rg *reportGrader) Kind() models.GraderKind { return models.GraderKindReport }

func (rg *reportGrader) Grade(ctx context.Context, gradingContext *Context) (*models.GraderResults, error) {
	return measureTime(func() (*models.GraderResults, error) {
		record := gradingContext.Record
		taskCompleted := record.TaskCompleted()

		payload, source, found := rg.scanner.Scan(record.TaskResult, record.Conversation)
		if !found {
			return &models.GraderResults{
				Name:     rg.name,
				Type:     models.GraderKindReport,
				Score:    0.0,
				Passed:   false,
				Feedback: "No valid JSON object found in assistant responses.",
				Details: map[string]any{
					"task_completed":      taskCompleted,
					"conversation_length": len(record.Conversation),
					"failure":             models.FailureNotFound,
				},
			}, nil
		}

		report, err := parseReport(payload)
		if err != nil {
			return &models.GraderResults{
				Name:     rg.name,
				Type:     models.GraderKindReport,
				Score:    0.0,
				Passed:   false,
				Feedback: fmt.Sprintf("Could not parse JSON output: %v", err),
				Details: map[string]any{
					"task_completed": taskCompleted,
					"failure":        models.FailureParseError,
				},
			}, nil
		}

		// Presence first, then types, both in declared field order; the
		// first violation is terminal before any value comparison.
		for _, f := range rg.fields {
			if _, present := report[f.Name]; !present {
				return rg.schemaFailure(taskCompleted, report,
					fmt.Sprintf("JSON output missing '%s' field.", f.Name),
					models.FailureMissingField), nil
			}
		}

		typed := make(map[string]any, len(rg.fields))
		for _, f := range rg.fields {
			value, mismatch := coerceField(f, report[f.Name])
			if mismatch != "" {
				return rg.schemaFailure(taskCompleted, report, mismatch, models.FailureTypeMismatch), nil
			}
			typed[f.Name] = value
		}

		checks := make([]fieldCheck, 0, len(rg.fields))
		allCorrect := true
		for _, f := range rg.fields {
			check := rg.checkField(f, typed[f.Name])
			if !check.correct {
				allCorrect = false
			}
			checks = append(checks, check)
		}

		passed := taskCompleted && allCorrect

		feedback := []string{"Found JSON output: " + indentJSON(report)}
		for _, check := range checks {
			feedback = append(feedback, check.feedback)
		}
		if !taskCompleted {
			feedback = append(feedback, "✗ Task status is not success.")
		}

		details := map[string]any{
			"task_completed": taskCompleted,
			"output_json":    report,
			"answer_source":  source,
		}
		correct := 0
		for i, f := range rg.fields {
			check := checks[i]
			details[f.Name+"_correct"] = check.correct
			details["expected_"+f.Name] = f.Expected
			if f.Type == FieldTypeDateList {
				details["tolerance_days"] = f.ToleranceDays
			}
			if check.failure != "" {
				details[f.Name+"_failure"] = check.failure
			}
			if check.correct {
				correct++
			}
		}

		return &models.GraderResults{
			Name:     rg.name,
			Type:     models.GraderKindReport,
			Score:    float64(correct) / float64(len(rg.fields)),
			Passed:   passed,
			Feedback: strings.Join(feedback, "\n"),
			Details:  details,
		}, nil
	})
}

// schemaFailure builds the terminal result for a missing or mistyped field.
func (rg *reportGrader) schemaFailure(taskCompleted bool, report map[string]any, feedback string, failure models.FailureKind) *models.GraderResults {
	return &models.GraderResults{
		Name:     rg.name,
		Type:     models.GraderKindReport,
		Score:    0.0,
		Passed:   false,
		Feedback: feedback,
		Details: map[string]any{
			"task_completed": taskCompleted,
			"output_json":    report,
			"failure":        failure,
		},
	}
}

// fieldCheck is the value-comparison outcome of a single field.
type fieldCheck struct {
	correct  bool
	feedback string
	failure  models.FailureKind
}

func (rg *reportGrader) checkField(f FieldSpec, value any) fieldCheck {
	switch f.Type {
	case FieldTypeInt:
		return checkIntField(f, value.(int64))
	case FieldTypeString:
		return checkStringField(f, value.(string))
	default:
		return checkDateListField(f, value.([]any))
	}
}

func checkIntField(f FieldSpec, got int64) fieldCheck {
	expected, _ := asInt64(f.Expected)
	correct := got == expected

	marker := "✗"
	if correct {
		marker = "✓"
	}
	return fieldCheck{
		correct:  correct,
		feedback: fmt.Sprintf("%s %s: got %d, expected %d.", marker, capitalize(f.Label), got, expected),
	}
}

func checkStringField(f FieldSpec, got string) fieldCheck {
	expected, _ := f.Expected.(string)
	correct := extract.NormalizeAnswer(got) == extract.NormalizeAnswer(expected)

	marker := "✗"
	if correct {
		marker = "✓"
	}
	return fieldCheck{
		correct:  correct,
		feedback: fmt.Sprintf("%s %s: got '%s', expected '%s'.", marker, capitalize(f.Label), got, expected),
	}
}

// checkDateListField compares two date sequences: the counts must match
// exactly, then both sides are sorted ascending and paired positionally,
// and every pair must fall within the field's tolerance window.
// Diagnostics are emitted only for pairs that exceed it.
func checkDateListField(f FieldSpec, got []any) fieldCheck {
	expectedRaw, _ := asStringSlice(f.Expected)

	if len(got) != len(expectedRaw) {
		return fieldCheck{
			correct:  false,
			feedback: fmt.Sprintf("Expected %d %s, got %d.", len(expectedRaw), f.Name, len(got)),
			failure:  models.FailureCountMismatch,
		}
	}

	expectedDates, err := parseDateStrings(expectedRaw)
	if err == nil {
		var gotDates []time.Time
		gotDates, err = parseDateValues(got)
		if err == nil {
			sortDates(expectedDates)
			sortDates(gotDates)

			var mismatches []string
			for i := range expectedDates {
				delta := daysBetween(expectedDates[i], gotDates[i])
				if delta > f.ToleranceDays {
					mismatches = append(mismatches, fmt.Sprintf("Expected %s, got %s (delta: %d days)",
						expectedDates[i].Format(dateLayout), gotDates[i].Format(dateLayout), delta))
				}
			}

			if len(mismatches) > 0 {
				return fieldCheck{
					correct:  false,
					feedback: fmt.Sprintf("✗ %s mismatches:\n%s", capitalize(f.Label), strings.Join(mismatches, "\n")),
					failure:  models.FailureToleranceExceeded,
				}
			}
			return fieldCheck{
				correct:  true,
				feedback: fmt.Sprintf("✓ All %s are within ±%d day tolerance.", f.Name, f.ToleranceDays),
			}
		}
	}

	return fieldCheck{
		correct:  false,
		feedback: fmt.Sprintf("Error parsing %s dates: %v", f.Label, err),
		failure:  models.FailureParseError,
	}
}

// parseReport decodes the payload preserving number fidelity, so the
// integer check can tell 3 from 3.0.
func parseReport(payload string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()

	var report map[string]any
	if err := dec.Decode(&report); err != nil {
		return nil, err
	}
	return report, nil
}

// coerceField checks a field's runtime type and converts it to its Go
// form. The second return value is a type-mismatch message, empty when
// the value conforms.
func coerceField(f FieldSpec, value any) (any, string) {
	switch f.Type {
	case FieldTypeInt:
		if n, ok := value.(json.Number); ok {
			if i, err := n.Int64(); err == nil {
				return i, ""
			}
		}
		return nil, fmt.Sprintf("%s must be an integer, got %s.", f.Name, jsonTypeName(value))
	case FieldTypeString:
		if s, ok := value.(string); ok {
			return s, ""
		}
		return nil, fmt.Sprintf("%s must be a string, got %s.", f.Name, jsonTypeName(value))
	default:
		if list, ok := value.([]any); ok {
			return list, ""
		}
		return nil, fmt.Sprintf("%s must be a list, got %s.", f.Name, jsonTypeName(value))
	}
}

// jsonTypeName names a decoded JSON value's type for feedback messages.
func jsonTypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func parseDateStrings(values []string) ([]time.Time, error) {
	dates := make([]time.Time, 0, len(values))
	for _, raw := range values {
		d, err := parseDate(raw)
		if err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, nil
}

func parseDateValues(values []any) ([]time.Time, error) {
	dates := make([]time.Time, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("invalid date value %v, expected a YYYY-MM-DD string", v)
		}
		d, err := parseDate(raw)
		if err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, nil
}

func parseDate(raw string) (time.Time, error) {
	d, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format %q, expected YYYY-MM-DD", raw)
	}
	return d, nil
}

func sortDates(dates []time.Time) {
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
}

func daysBetween(a, b time.Time) int {
	delta := a.Sub(b)
	if delta < 0 {
		delta = -delta
	}
	return int(delta / (24 * time.Hour))
}

func indentJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// asInt64 widens config-supplied numbers to int64. Fractional values do
// not qualify.
func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n == math.Trunc(n) {
			return int64(n), true
		}
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
	}
	return 0, false
}

// asStringSlice accepts the slice shapes YAML and JSON decoding produce.
func asStringSlice(v any) ([]string, bool) {
	switch list := v.(type) {
	case []string:
		return list, true
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}
