package graders

import (
	"context"
	"fmt"
	"time"

	"github.com/cocoabench/saiten/internal/models"
	"github.com/go-viper/mapstructure/v2"
)

// Grader is the interface for all graders.
type Grader interface {
	// Name returns the grader identifier used in results.
	Name() string

	// Kind returns the grader kind.
	Kind() models.GraderKind

	// Grade inspects a run record and returns a verdict. Answer-quality
	// problems are reported on the results record, never as an error;
	// a non-nil error means the grader itself could not run.
	Grade(ctx context.Context, gradingContext *Context) (*models.GraderResults, error)
}

// Context provides the inputs a grader inspects.
type Context struct {
	// Record is the executor run record being graded.
	Record *models.RunRecord

	// Metadata carries optional task-level values for diagnostics.
	Metadata map[string]any
}

// Scope selects which slice of a run record a textual grader scans.
type Scope string

const (
	// ScopeOutput covers the direct result and the assistant's replies.
	ScopeOutput Scope = "output"
	// ScopeConversation covers every message in the transcript.
	ScopeConversation Scope = "conversation"
)

// scopeText assembles the text the given scope covers. Unrecognized
// scopes fall back to the output view.
func scopeText(record *models.RunRecord, scope Scope) string {
	if scope == ScopeConversation {
		return record.TranscriptText()
	}
	return record.CombinedOutput()
}

// Create builds a grader of the given kind from task-file parameters.
func Create(kind models.GraderKind, identifier string, params map[string]any) (Grader, error) {
	switch kind {
	case models.GraderKindAnswer:
		var v AnswerGraderArgs
		if err := mapstructure.Decode(params, &v); err != nil {
			return nil, err
		}
		v.Name = identifier
		return NewAnswerGrader(v)
	case models.GraderKindReport:
		var v ReportGraderArgs
		if err := mapstructure.Decode(params, &v); err != nil {
			return nil, err
		}
		v.Name = identifier
		return NewReportGrader(v)
	case models.GraderKindKeyword:
		var v KeywordGraderArgs
		if err := mapstructure.Decode(params, &v); err != nil {
			return nil, err
		}
		v.Name = identifier
		return NewKeywordGrader(v)
	case models.GraderKindRegex:
		var v RegexGraderArgs
		if err := mapstructure.Decode(params, &v); err != nil {
			return nil, err
		}
		v.Name = identifier
		return NewRegexGrader(v)
	case models.GraderKindJSONSchema:
		var v JSONSchemaGraderArgs
		if err := mapstructure.Decode(params, &v); err != nil {
			return nil, err
		}
		v.Name = identifier
		return NewJSONSchemaGrader(v)
	default:
		return nil, fmt.Errorf("'%s' is not a valid grader kind", kind)
	}
}

// measureTime is a helper to measure grading duration.
func measureTime(fn func() (*models.GraderResults, error)) (*models.GraderResults, error) {
	start := time.Now()
	result, err := fn()

	if result != nil {
		result.DurationMs = time.Since(start).Milliseconds()
	}

	return result, err
}
