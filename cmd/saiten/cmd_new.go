package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cocoabench/saiten/internal/graders"
	"github.com/cocoabench/saiten/internal/models"
	"github.com/cocoabench/saiten/internal/wizard"
)

var (
	newKind      string
	newExpected  string
	newTag       string
	newTolerance int
	newDir       string
	newName      string
	newPrompt    string
)

func newNewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new [task-id]",
		Short: "Create a new task file",
		Long: `Create a new task YAML file.

With a terminal attached, an interactive wizard collects the task
fields. Otherwise (or when --kind is set) the task is generated
directly from flags.`,
		Args: cobra.MaximumNArgs(1),
		RunE: newCommandE,
	}

	cmd.Flags().StringVar(&newKind, "kind", "", "Grader kind: answer | report (skips the wizard)")
	cmd.Flags().StringVar(&newExpected, "expected", "", "Expected answer (answer kind)")
	cmd.Flags().StringVar(&newTag, "tag", "answer", "Marker name wrapping the answer (answer kind)")
	cmd.Flags().IntVar(&newTolerance, "tolerance", graders.DefaultToleranceDays, "Date tolerance in days (report kind)")
	cmd.Flags().StringVar(&newDir, "dir", "tasks", "Directory to write the task file into")
	cmd.Flags().StringVar(&newName, "name", "", "Display name (defaults to the task id)")
	cmd.Flags().StringVar(&newPrompt, "prompt", "", "Task prompt")

	return cmd
}

func newCommandE(cmd *cobra.Command, args []string) error {
	initialID := ""
	if len(args) > 0 {
		initialID = args[0]
	}

	var spec *wizard.TaskSpec
	if newKind != "" {
		built, err := taskSpecFromFlags(initialID)
		if err != nil {
			return err
		}
		spec = built
	} else {
		ran, err := wizard.RunTaskWizard(cmd.InOrStdin(), cmd.OutOrStdout(), initialID)
		if err != nil {
			return err
		}
		spec = ran
	}

	content, err := wizard.GenerateTaskYAML(spec)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(newDir, 0755); err != nil {
		return fmt.Errorf("failed to create task directory: %w", err)
	}

	path := filepath.Join(newDir, spec.ID+".yaml")
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("task file already exists: %s", path)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write task file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path) //nolint:errcheck
	return nil
}

func taskSpecFromFlags(id string) (*wizard.TaskSpec, error) {
	if err := wizard.ValidateTaskID(id); err != nil {
		return nil, err
	}

	kind := models.GraderKind(newKind)
	switch kind {
	case models.GraderKindAnswer:
		if newExpected == "" {
			return nil, fmt.Errorf("--expected is required for --kind answer")
		}
	case models.GraderKindReport:
		if newTolerance < 1 {
			return nil, fmt.Errorf("--tolerance must be a positive whole number")
		}
	default:
		return nil, fmt.Errorf("invalid kind %q: expected answer or report", newKind)
	}

	spec := &wizard.TaskSpec{
		ID:            id,
		DisplayName:   newName,
		Prompt:        newPrompt,
		Kind:          kind,
		Expected:      newExpected,
		Tag:           newTag,
		ToleranceDays: newTolerance,
	}
	if spec.DisplayName == "" {
		spec.DisplayName = id
	}
	if spec.Prompt == "" {
		spec.Prompt = "TODO: describe the task"
	}
	if spec.Tag == "" {
		spec.Tag = "answer"
	}
	return spec, nil
}
