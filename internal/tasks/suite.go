package tasks

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Suite groups tasks into one evaluation run.
type Suite struct {
	Name        string      `yaml:"name" json:"name"`
	Description string      `yaml:"description,omitempty" json:"description,omitempty"`
	Version     string      `yaml:"version,omitempty" json:"version,omitempty"`
	Config      SuiteConfig `yaml:"config,omitempty" json:"config,omitempty"`

	// Tasks lists task file paths or glob patterns, relative to the
	// suite file's directory.
	Tasks []string `yaml:"tasks" json:"tasks"`
}

// SuiteConfig controls evaluation behavior.
type SuiteConfig struct {
	Workers     int    `yaml:"max_workers,omitempty" json:"workers,omitempty"`
	StopOnError bool   `yaml:"fail_fast,omitempty" json:"stop_on_error,omitempty"`
	ResultsDir  string `yaml:"results_dir,omitempty" json:"results_dir,omitempty"`
	ResultsURL  string `yaml:"results_url,omitempty" json:"results_url,omitempty"`
}

// LoadSuite loads a suite from a YAML file.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite file: %w", err)
	}

	var suite Suite
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, fmt.Errorf("failed to parse suite file %s: %w", path, err)
	}
	if err := suite.Validate(); err != nil {
		return nil, fmt.Errorf("invalid suite file %s: %w", path, err)
	}
	return &suite, nil
}

// Validate checks that the suite is well formed.
func (s *Suite) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("suite name is required")
	}
	if len(s.Tasks) == 0 {
		return fmt.Errorf("suite '%s' must list at least one task", s.Name)
	}
	if s.Config.Workers < 0 {
		return fmt.Errorf("max_workers must not be negative, got %d", s.Config.Workers)
	}
	return nil
}

// ResolveTaskFiles expands the suite's task patterns to actual files,
// relative to basePath.
func (s *Suite) ResolveTaskFiles(basePath string) ([]string, error) {
	var files []string
	for _, pattern := range s.Tasks {
		fullPattern := filepath.Join(basePath, pattern)
		matches, err := filepath.Glob(fullPattern)
		if err != nil {
			return nil, fmt.Errorf("bad task pattern %q: %w", pattern, err)
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("suite '%s' matched no task files under %s", s.Name, basePath)
	}
	return files, nil
}

// LoadTasks resolves and loads every task in the suite. Task IDs must
// be unique across the suite.
func (s *Suite) LoadTasks(basePath string) ([]*Task, error) {
	files, err := s.ResolveTaskFiles(basePath)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]string, len(files))
	loaded := make([]*Task, 0, len(files))
	for _, file := range files {
		task, err := LoadTask(file)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[task.ID]; dup {
			return nil, fmt.Errorf("duplicate task id '%s' in %s and %s", task.ID, prev, file)
		}
		seen[task.ID] = file
		loaded = append(loaded, task)
	}
	return loaded, nil
}
