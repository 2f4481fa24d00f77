// Package tasks defines the on-disk task and suite formats: what an
// agent was asked to do and which graders judge the resulting run
// record.
package tasks

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cocoabench/saiten/internal/crypt"
	"github.com/cocoabench/saiten/internal/models"
)

// EncryptedExt marks task files whose content is stored armored. They
// are decrypted with the nearest canary passphrase before parsing.
const EncryptedExt = ".enc"

// Task is one gradable unit: the prompt an agent was given and the
// graders that judge its run record.
type Task struct {
	ID          string         `yaml:"id" json:"id"`
	DisplayName string         `yaml:"name" json:"name"`
	Description string         `yaml:"description,omitempty" json:"description,omitempty"`
	Prompt      string         `yaml:"prompt,omitempty" json:"prompt,omitempty"`
	Graders     []GraderConfig `yaml:"graders" json:"graders"`
	Metadata    map[string]any `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// GraderConfig attaches one grader to a task.
type GraderConfig struct {
	Kind       models.GraderKind `yaml:"type" json:"kind"`
	Identifier string            `yaml:"name" json:"identifier"`
	Weight     float64           `yaml:"weight,omitempty" json:"weight,omitempty"`
	Parameters map[string]any    `yaml:"config,omitempty" json:"parameters,omitempty"`
}

// EffectiveWeight returns the grader's weight, defaulting to 1.0 when
// unset or invalid.
func (g GraderConfig) EffectiveWeight() float64 {
	if g.Weight <= 0 {
		return 1.0
	}
	return g.Weight
}

// LoadTask reads a task from a YAML file. Files ending in [EncryptedExt]
// are decrypted first.
func LoadTask(path string) (*Task, error) {
	data, err := ReadTaskFile(path)
	if err != nil {
		return nil, err
	}

	var task Task
	if err := yaml.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("failed to parse task file %s: %w", path, err)
	}
	if task.DisplayName == "" {
		task.DisplayName = task.ID
	}
	if err := task.Validate(); err != nil {
		return nil, fmt.Errorf("invalid task file %s: %w", path, err)
	}
	return &task, nil
}

// ReadTaskFile returns the raw YAML bytes of a task file, decrypting
// [EncryptedExt] files with the nearest canary passphrase.
func ReadTaskFile(path string) ([]byte, error) {
	if !strings.HasSuffix(path, EncryptedExt) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read task file: %w", err)
		}
		return data, nil
	}

	passphrase, err := crypt.FindCanary(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot decrypt %s: %w", path, err)
	}
	return crypt.DecryptFile(path, passphrase)
}

// Validate checks that the task is well formed.
func (t *Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("task id is required")
	}
	if len(t.Graders) == 0 {
		return fmt.Errorf("task '%s' must declare at least one grader", t.ID)
	}

	seen := make(map[string]bool, len(t.Graders))
	for i, g := range t.Graders {
		if g.Kind == "" {
			return fmt.Errorf("task '%s' grader %d is missing a type", t.ID, i)
		}
		if g.Identifier == "" {
			return fmt.Errorf("task '%s' grader %d is missing a name", t.ID, i)
		}
		if seen[g.Identifier] {
			return fmt.Errorf("task '%s' has duplicate grader name '%s'", t.ID, g.Identifier)
		}
		seen[g.Identifier] = true
	}
	return nil
}
