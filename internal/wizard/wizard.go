// Package wizard collects task metadata interactively and renders the
// resulting task YAML.
package wizard

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"text/template"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/cocoabench/saiten/internal/graders"
	"github.com/cocoabench/saiten/internal/models"
)

// TaskSpec holds all fields collected during the interactive wizard.
type TaskSpec struct {
	ID          string
	DisplayName string
	Prompt      string
	Kind        models.GraderKind

	// Answer-kind settings.
	Expected string
	Tag      string

	// Report-kind settings.
	ToleranceDays int
}

var idPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// ValidateTaskID rejects IDs that are not kebab-case.
func ValidateTaskID(id string) error {
	if id == "" {
		return fmt.Errorf("task id must not be empty")
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("task id %q must be kebab-case (lowercase letters, digits, dashes)", id)
	}
	return nil
}

const answerTaskTemplate = `id: {{ .ID }}
name: {{ .DisplayName }}
prompt: |
  {{ .Prompt }}
graders:
  - type: answer
    name: final_answer
    config:
      expected: "{{ .Expected }}"
      tag: {{ .Tag }}
`

const reportTaskTemplate = `id: {{ .ID }}
name: {{ .DisplayName }}
prompt: |
  {{ .Prompt }}
graders:
  - type: report
    name: final_report
    config:
      fields:
        - name: total_anomalies
          type: int
          expected: 3
        - name: breakpoints
          type: date_list
          tolerance_days: {{ .ToleranceDays }}
          expected:
            - "2024-07-27"
            - "2025-02-16"
`

// RunTaskWizard runs an interactive huh form to collect task metadata.
// If initialID is non-empty, it pre-populates the id field.
func RunTaskWizard(in io.Reader, out io.Writer, initialID string) (*TaskSpec, error) {
	var (
		id        = initialID
		name      string
		prompt    string
		kind      string
		expected  string
		tag       = "answer"
		tolerance = strconv.Itoa(graders.DefaultToleranceDays)
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Task id").
				Description("A kebab-case identifier for the task").
				Placeholder("find-the-code").
				Value(&id).
				Validate(func(s string) error {
					return ValidateTaskID(strings.TrimSpace(s))
				}),
			huh.NewInput().
				Title("Display name").
				Description("Shown in summary tables; defaults to the id").
				Value(&name),
			huh.NewInput().
				Title("Prompt").
				Description("What was the agent asked to do?").
				Value(&prompt).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("prompt is required")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Answer kind").
				Description("answer = tag-delimited string, report = structured JSON").
				Options(
					huh.NewOption("answer", string(models.GraderKindAnswer)),
					huh.NewOption("report", string(models.GraderKindReport)),
				).
				Value(&kind),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Expected answer").
				Description("The ground-truth string the agent must emit").
				Value(&expected).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("expected answer is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Answer tag").
				Description("Marker name wrapping the answer").
				Value(&tag),
		).WithHideFunc(func() bool {
			return kind != string(models.GraderKindAnswer)
		}),
		huh.NewGroup(
			huh.NewInput().
				Title("Date tolerance (days)").
				Description("Allowed ± window for date fields").
				Value(&tolerance).
				Validate(func(s string) error {
					n, err := strconv.Atoi(strings.TrimSpace(s))
					if err != nil || n < 1 {
						return fmt.Errorf("tolerance must be a positive whole number")
					}
					return nil
				}),
		).WithHideFunc(func() bool {
			return kind != string(models.GraderKindReport)
		}),
	).
		WithInput(in).
		WithOutput(out)

	// Use accessible mode for non-TTY input (e.g., tests, piped input).
	if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		form = form.WithAccessible(true)
	}

	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("wizard failed: %w", err)
	}

	spec := &TaskSpec{
		ID:          strings.TrimSpace(id),
		DisplayName: strings.TrimSpace(name),
		Prompt:      strings.TrimSpace(prompt),
		Kind:        models.GraderKind(kind),
		Expected:    strings.TrimSpace(expected),
		Tag:         strings.TrimSpace(tag),
	}
	if spec.DisplayName == "" {
		spec.DisplayName = spec.ID
	}
	if spec.Tag == "" {
		spec.Tag = "answer"
	}
	spec.ToleranceDays, _ = strconv.Atoi(strings.TrimSpace(tolerance))
	return spec, nil
}

// GenerateTaskYAML renders a task file from the given spec.
func GenerateTaskYAML(spec *TaskSpec) (string, error) {
	raw := answerTaskTemplate
	if spec.Kind == models.GraderKindReport {
		raw = reportTaskTemplate
	}

	tmpl, err := template.New("task").Parse(raw)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	filled := *spec
	if filled.ToleranceDays < 1 {
		filled.ToleranceDays = graders.DefaultToleranceDays
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, &filled); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return buf.String(), nil
}
