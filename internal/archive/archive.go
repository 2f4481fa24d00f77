// Package archive persists evaluation outcomes as zstd-compressed JSON so
// earlier runs stay available for comparison.
package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/cocoabench/saiten/internal/models"
)

// Suffix is the file extension for archived outcomes.
const Suffix = ".json.zst"

// DefaultDir returns the default archive location relative to the project
// root.
func DefaultDir() string {
	return filepath.Join(".saiten", "archive")
}

// Store writes and reads archived evaluation outcomes. An empty directory
// disables the store: Save and Clear become no-ops and List returns nothing.
type Store struct {
	dir string
	mu  sync.Mutex
}

// New creates a store rooted at the specified directory.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Save archives an outcome as <dir>/<eval-id>.json.zst and returns the
// written path.
func (s *Store) Save(outcome *models.EvaluationOutcome) (string, error) {
	if s.dir == "" {
		return "", nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("creating archive directory: %w", err)
	}

	data, err := json.MarshalIndent(outcome, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling outcome: %w", err)
	}

	compressed, err := compress(data)
	if err != nil {
		return "", fmt.Errorf("compressing outcome: %w", err)
	}

	path := s.entryPath(outcome.RunID)
	if err := os.WriteFile(path, compressed, 0644); err != nil {
		return "", fmt.Errorf("writing archive file: %w", err)
	}

	return path, nil
}

// List returns the paths of all archived outcomes, newest first.
func (s *Store) List() ([]string, error) {
	if s.dir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading archive directory: %w", err)
	}

	type archiveFile struct {
		path    string
		modTime time.Time
	}

	var files []archiveFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), Suffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, archiveFile{
			path:    filepath.Join(s.dir, entry.Name()),
			modTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.After(files[j].modTime)
	})

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.path
	}
	return paths, nil
}

// Clear removes all archived outcomes
func (s *Store) Clear() error {
	if s.dir == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.dir); os.IsNotExist(err) {
		return nil
	}

	// Safety check: verify this is an archive directory before removing
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("reading archive directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			return fmt.Errorf("archive directory contains subdirectories - refusing to delete for safety")
		}
		if !strings.HasSuffix(entry.Name(), Suffix) {
			return fmt.Errorf("archive directory contains non-archive files - refusing to delete for safety")
		}
	}

	return os.RemoveAll(s.dir)
}

// entryPath returns the file path for an archived outcome. Outcomes with no
// eval id fall back to a timestamped name.
func (s *Store) entryPath(runID string) string {
	if runID == "" {
		runID = time.Now().UTC().Format("20060102T150405Z")
	}
	return filepath.Join(s.dir, runID+Suffix)
}

// ReadOutcomeFile reads an evaluation outcome from disk. Files ending in
// .zst are decompressed first, so both archived and plain outcome files
// load the same way.
func ReadOutcomeFile(path string) (*models.EvaluationOutcome, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading outcome file: %w", err)
	}

	if strings.HasSuffix(path, ".zst") {
		data, err = decompress(data)
		if err != nil {
			return nil, fmt.Errorf("decompressing %s: %w", filepath.Base(path), err)
		}
	}

	var outcome models.EvaluationOutcome
	if err := json.Unmarshal(data, &outcome); err != nil {
		return nil, fmt.Errorf("parsing outcome file %s: %w", filepath.Base(path), err)
	}

	return &outcome, nil
}

func compress(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close() //nolint:errcheck
	return enc.EncodeAll(data, make([]byte, 0, len(data))), nil
}

func decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(data, nil)
}
