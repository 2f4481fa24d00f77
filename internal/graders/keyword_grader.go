package graders

import (
	"context"
	"fmt"
	"strings"

	"github.com/cocoabench/saiten/internal/models"
)

// KeywordGraderArgs holds the arguments for creating a keyword grader.
type KeywordGraderArgs struct {
	// Name is the identifier for this grader, used in results and error messages.
	Name string
	// MustContain lists keywords that must appear in the scanned text (case-insensitive).
	MustContain []string `mapstructure:"must_contain"`
	// MustNotContain lists keywords that must NOT appear in the scanned text (case-insensitive).
	MustNotContain []string `mapstructure:"must_not_contain"`
	// Scope selects the record text to scan. Defaults to [ScopeOutput].
	Scope Scope `mapstructure:"scope"`
}

// keywordGrader validates a run by checking for keyword presence or absence.
type keywordGrader struct {
	name           string
	mustContain    []string
	mustNotContain []string
	scope          Scope
}

// NewKeywordGrader creates a [keywordGrader] that checks for keyword
// presence/absence in the run's text using case-insensitive matching.
func NewKeywordGrader(args KeywordGraderArgs) (*keywordGrader, error) {
	scope := args.Scope
	switch scope {
	case "":
		scope = ScopeOutput
	case ScopeOutput, ScopeConversation:
	default:
		return nil, fmt.Errorf("keyword grader '%s' has unknown scope '%s'", args.Name, args.Scope)
	}

	return &keywordGrader{
		name:           args.Name,
		mustContain:    args.MustContain,
		mustNotContain: args.MustNotContain,
		scope:          scope,
	}, nil
}

func (kg *keywordGrader) Name() string            { return kg.name }
func (kg *keywordGrader) Kind() models.GraderKind { return models.GraderKindKeyword }

func (kg *keywordGrader) Grade(ctx context.Context, gradingContext *Context) (*models.GraderResults, error) {
	return measureTime(func() (*models.GraderResults, error) {
		var failures []string
		textLower := strings.ToLower(scopeText(gradingContext.Record, kg.scope))

		for _, keyword := range kg.mustContain {
			if !strings.Contains(textLower, strings.ToLower(keyword)) {
				failures = append(failures, fmt.Sprintf("Missing expected keyword: %s", keyword))
			}
		}

		for _, keyword := range kg.mustNotContain {
			if strings.Contains(textLower, strings.ToLower(keyword)) {
				failures = append(failures, fmt.Sprintf("Found forbidden keyword: %s", keyword))
			}
		}

		totalChecks := len(kg.mustContain) + len(kg.mustNotContain)
		passedChecks := totalChecks - len(failures)

		score := 1.0
		if totalChecks > 0 {
			score = float64(passedChecks) / float64(totalChecks)
		}

		feedback := "All keyword checks passed"
		if len(failures) > 0 {
			feedback = strings.Join(failures, "; ")
		}

		return &models.GraderResults{
			Name:     kg.name,
			Type:     models.GraderKindKeyword,
			Score:    score,
			Passed:   len(failures) == 0,
			Feedback: feedback,
			Details: map[string]any{
				"must_contain":     kg.mustContain,
				"must_not_contain": kg.mustNotContain,
				"scope":            kg.scope,
				"failures":         failures,
			},
		}, nil
	})
}
