package graders

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/cocoabench/saiten/internal/models"
)

// RegexGraderArgs holds the arguments for creating a regex grader.
type RegexGraderArgs struct {
	// Name is the identifier for this grader, used in results and error messages.
	Name string
	// MustMatch lists regex patterns that must match the scanned text.
	MustMatch []string `mapstructure:"must_match"`
	// MustNotMatch lists regex patterns that must NOT match the scanned text.
	MustNotMatch []string `mapstructure:"must_not_match"`
	// Scope selects the record text to scan. Defaults to [ScopeOutput].
	Scope Scope `mapstructure:"scope"`
}

// regexGrader validates a run against regular expression patterns.
type regexGrader struct {
	name         string
	mustMatch    []*regexp.Regexp
	mustNotMatch []*regexp.Regexp
	scope        Scope
}

// NewRegexGrader creates a [regexGrader]. Patterns are compiled up front,
// so an invalid pattern is a configuration error rather than a grading
// failure.
func NewRegexGrader(args RegexGraderArgs) (*regexGrader, error) {
	scope := args.Scope
	switch scope {
	case "":
		scope = ScopeOutput
	case ScopeOutput, ScopeConversation:
	default:
		return nil, fmt.Errorf("regex grader '%s' has unknown scope '%s'", args.Name, args.Scope)
	}

	mustMatch, err := compilePatterns(args.MustMatch)
	if err != nil {
		return nil, fmt.Errorf("regex grader '%s': invalid must_match pattern: %w", args.Name, err)
	}
	mustNotMatch, err := compilePatterns(args.MustNotMatch)
	if err != nil {
		return nil, fmt.Errorf("regex grader '%s': invalid must_not_match pattern: %w", args.Name, err)
	}

	return &regexGrader{
		name:         args.Name,
		mustMatch:    mustMatch,
		mustNotMatch: mustNotMatch,
		scope:        scope,
	}, nil
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

func patternStrings(patterns []*regexp.Regexp) []string {
	out := make([]string, 0, len(patterns))
	for _, re := range patterns {
		out = append(out, re.String())
	}
	return out
}

func (rg *regexGrader) Name() string            { return rg.name }
func (rg *regexGrader) Kind() models.GraderKind { return models.GraderKindRegex }

func (rg *regexGrader) Grade(ctx context.Context, gradingContext *Context) (*models.GraderResults, error) {
	return measureTime(func() (*models.GraderResults, error) {
		var failures []string
		text := scopeText(gradingContext.Record, rg.scope)

		for _, re := range rg.mustMatch {
			if !re.MatchString(text) {
				failures = append(failures, fmt.Sprintf("Missing expected pattern: %s", re.String()))
			}
		}

		for _, re := range rg.mustNotMatch {
			if re.MatchString(text) {
				failures = append(failures, fmt.Sprintf("Found forbidden pattern: %s", re.String()))
			}
		}

		totalChecks := len(rg.mustMatch) + len(rg.mustNotMatch)
		passedChecks := totalChecks - len(failures)

		score := 1.0
		if totalChecks > 0 {
			score = float64(passedChecks) / float64(totalChecks)
		}

		feedback := "All patterns matched"
		if len(failures) > 0 {
			feedback = strings.Join(failures, "; ")
		}

		return &models.GraderResults{
			Name:     rg.name,
			Type:     models.GraderKindRegex,
			Score:    score,
			Passed:   len(failures) == 0,
			Feedback: feedback,
			Details: map[string]any{
				"must_match":     patternStrings(rg.mustMatch),
				"must_not_match": patternStrings(rg.mustNotMatch),
				"scope":          rg.scope,
				"failures":       failures,
			},
		}, nil
	})
}
