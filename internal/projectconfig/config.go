// Package projectconfig provides the ProjectConfig struct and loader for
// .saiten.yaml project-level configuration files.
package projectconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Default values for project configuration. These are the single source of
// truth; New() references them and no other code should duplicate them.
const (
	DefaultTasksDir   = "tasks/"
	DefaultResultsDir = "results/"

	DefaultWorkers = 4

	DefaultArchiveDir = ".saiten/archive"

	DefaultFetchRetries      = 3
	DefaultFetchRetryDelayMs = 1000
)

// PathsConfig holds directory paths for task definitions and run records.
type PathsConfig struct {
	Tasks   string `yaml:"tasks,omitempty"`
	Results string `yaml:"results,omitempty"`
}

// DefaultsConfig holds default evaluation parameters.
type DefaultsConfig struct {
	Workers    int   `yaml:"workers,omitempty"`
	FailFast   *bool `yaml:"fail_fast,omitempty"`
	Verbose    *bool `yaml:"verbose,omitempty"`
	SessionLog *bool `yaml:"session_log,omitempty"`
}

// ArchiveConfig holds outcome archive settings.
type ArchiveConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Dir     string `yaml:"dir,omitempty"`
}

// FetchConfig holds executor endpoint retry settings.
type FetchConfig struct {
	Retries      int `yaml:"retries,omitempty"`
	RetryDelayMs int `yaml:"retry_delay_ms,omitempty"`
}

// ProjectConfig is the top-level configuration loaded from .saiten.yaml.
type ProjectConfig struct {
	Paths    PathsConfig    `yaml:"paths,omitempty"`
	Defaults DefaultsConfig `yaml:"defaults,omitempty"`
	Archive  ArchiveConfig  `yaml:"archive,omitempty"`
	Fetch    FetchConfig    `yaml:"fetch,omitempty"`
}

// New returns a ProjectConfig with all hard-coded defaults populated.
func New() *ProjectConfig {
	return &ProjectConfig{
		Paths: PathsConfig{
			Tasks:   DefaultTasksDir,
			Results: DefaultResultsDir,
		},
		Defaults: DefaultsConfig{
			Workers:    DefaultWorkers,
			FailFast:   boolPtr(false),
			Verbose:    boolPtr(false),
			SessionLog: boolPtr(false),
		},
		Archive: ArchiveConfig{
			Enabled: boolPtr(false),
			Dir:     DefaultArchiveDir,
		},
		Fetch: FetchConfig{
			Retries:      DefaultFetchRetries,
			RetryDelayMs: DefaultFetchRetryDelayMs,
		},
	}
}

// Load finds .saiten.yaml by walking up from startDir (max 10 levels),
// unmarshals it, and fills in missing fields with defaults.
// If no config file is found, returns defaults with a nil error.
// Real I/O errors (e.g. permission denied) are returned to the caller.
func Load(startDir string) (*ProjectConfig, error) {
	cfg := New()

	data, err := findConfigFile(startDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil // no file found → return defaults
		}
		return nil, fmt.Errorf("loading .saiten.yaml: %w", err)
	}

	var fileCfg ProjectConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing .saiten.yaml: %w", err)
	}

	// Merge file values onto defaults.
	mergeConfig(cfg, &fileCfg)
	return cfg, nil
}

// findConfigFile walks up from dir looking for .saiten.yaml (max 10 levels).
// Returns os.ErrNotExist if no config file is found. Propagates real I/O
// errors (e.g. permission denied) instead of silently swallowing them.
func findConfigFile(dir string) ([]byte, error) {
	// Convert to absolute path so filepath.Dir(".") walks correctly.
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for i := 0; i < 10; i++ {
		p := filepath.Join(dir, ".saiten.yaml")
		data, err := os.ReadFile(p)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break // reached filesystem root
		}
		dir = parent
	}
	return nil, os.ErrNotExist
}

// mergeConfig overlays non-zero values from src onto dst.
func mergeConfig(dst, src *ProjectConfig) {
	// Paths
	if src.Paths.Tasks != "" {
		dst.Paths.Tasks = src.Paths.Tasks
	}
	if src.Paths.Results != "" {
		dst.Paths.Results = src.Paths.Results
	}

	// Defaults
	if src.Defaults.Workers != 0 {
		dst.Defaults.Workers = src.Defaults.Workers
	}
	if src.Defaults.FailFast != nil {
		dst.Defaults.FailFast = src.Defaults.FailFast
	}
	if src.Defaults.Verbose != nil {
		dst.Defaults.Verbose = src.Defaults.Verbose
	}
	if src.Defaults.SessionLog != nil {
		dst.Defaults.SessionLog = src.Defaults.SessionLog
	}

	// Archive
	if src.Archive.Enabled != nil {
		dst.Archive.Enabled = src.Archive.Enabled
	}
	if src.Archive.Dir != "" {
		dst.Archive.Dir = src.Archive.Dir
	}

	// Fetch
	if src.Fetch.Retries != 0 {
		dst.Fetch.Retries = src.Fetch.Retries
	}
	if src.Fetch.RetryDelayMs != 0 {
		dst.Fetch.RetryDelayMs = src.Fetch.RetryDelayMs
	}
}

func boolPtr(b bool) *bool {
	return &b
}
