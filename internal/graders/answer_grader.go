package graders

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cocoabench/saiten/internal/extract"
	"github.com/cocoabench/saiten/internal/models"
)

// AnswerGraderArgs holds the arguments for creating an answer grader.
type AnswerGraderArgs struct {
	// Name is the identifier for this grader, used in results and error messages.
	Name string
	// Expected is the ground-truth answer the extracted payload must equal
	// after normalization (trim + uppercase).
	Expected string `mapstructure:"expected"`
	// Tag is the marker name delimiting the answer, e.g. "answer" for
	// <answer>...</answer>. Defaults to [extract.DefaultTag].
	Tag string `mapstructure:"tag"`
	// Label names the answer in feedback lines. Defaults to "Answer".
	Label string `mapstructure:"label"`
	// CompletionTool overrides the tool-call name scanned for results.
	CompletionTool string `mapstructure:"completion_tool"`
}

// answerGrader checks a tag-delimited answer against an expected string,
// case- and whitespace-insensitively. The answer is located by source
// precedence: direct result, then completion tool calls, then assistant
// message content, newest first.
type answerGrader struct {
	name     string
	expected string
	tag      string
	label    string
	scanner  extract.Scanner
}

// NewAnswerGrader creates an [answerGrader] for the given expected answer.
func NewAnswerGrader(args AnswerGraderArgs) (*answerGrader, error) {
	if args.Expected == "" {
		return nil, fmt.Errorf("answer grader '%s' requires an expected answer", args.Name)
	}

	tag := args.Tag
	if tag == "" {
		tag = extract.DefaultTag
	}
	label := args.Label
	if label == "" {
		label = "Answer"
	}

	scanner := extract.NewScanner(extract.NewTagExtractor(tag))
	if args.CompletionTool != "" {
		scanner.CompletionTool = args.CompletionTool
	}

	return &answerGrader{
		name:     args.Name,
		expected: args.Expected,
		tag:      tag,
		label:    label,
		scanner:  scanner,
	}, nil
}

func (ag *answerGrader) Name() string            { return ag.name }
func (ag *answerGrader) Kind() models.GraderKind { return models.GraderKindAnswer }

func (ag *answerGrader) Grade(ctx context.Context, gradingContext *Context) (*models.GraderResults, error) {
	return measureTime(func() (*models.GraderResults, error) {
		record := gradingContext.Record
		taskCompleted := record.TaskCompleted()

		answer, source, found := ag.scanner.Scan(record.TaskResult, record.Conversation)
		if !found {
			return &models.GraderResults{
				Name:   ag.name,
				Type:   models.GraderKindAnswer,
				Score:  0.0,
				Passed: false,
				Feedback: fmt.Sprintf(
					"No valid answer found in assistant responses. Expected format: <%s>CODE</%s>",
					ag.tag, ag.tag),
				Details: map[string]any{
					"task_completed":      taskCompleted,
					"conversation_length": len(record.Conversation),
					"failure":             models.FailureNotFound,
				},
			}, nil
		}

		// Compare normalized copies; feedback and details carry the
		// payload exactly as the agent emitted it.
		answerCorrect := extract.NormalizeAnswer(answer) == extract.NormalizeAnswer(ag.expected)
		passed := taskCompleted && answerCorrect

		marker := "✗"
		score := 0.0
		if answerCorrect {
			marker = "✓"
			score = 1.0
		}

		feedback := []string{
			fmt.Sprintf("Found answer: %s", answer),
			fmt.Sprintf("%s %s: got '%s', expected '%s'.", marker, capitalize(ag.label), answer, ag.expected),
		}
		if !taskCompleted {
			feedback = append(feedback, "✗ Task status is not success.")
		}

		return &models.GraderResults{
			Name:     ag.name,
			Type:     models.GraderKindAnswer,
			Score:    score,
			Passed:   passed,
			Feedback: strings.Join(feedback, "\n"),
			Details: map[string]any{
				"task_completed":  taskCompleted,
				"output_answer":   answer,
				"answer_source":   source,
				"answer_correct":  answerCorrect,
				"expected_answer": ag.expected,
			},
		}, nil
	})
}

// capitalize uppercases the first rune of a label for feedback lines.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError && size <= 1 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
