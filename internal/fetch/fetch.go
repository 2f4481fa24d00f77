// Package fetch loads the run records produced by task executors,
// either from a local results directory or from an executor HTTP
// endpoint.
package fetch

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cocoabench/saiten/internal/models"
)

// Source yields the run record for a task.
type Source interface {
	Record(ctx context.Context, taskID string) (*models.RunRecord, error)
}

// DirSource serves run records from a directory of JSON files. Records
// are indexed by their task_id field, falling back to the file's base
// name when the field is absent.
type DirSource struct {
	records map[string]*models.RunRecord
}

// NewDirSource reads every *.json record under dir up front.
func NewDirSource(dir string) (*DirSource, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("scan results dir: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no run records found in %s", dir)
	}

	records := make(map[string]*models.RunRecord, len(matches))
	for _, path := range matches {
		record, err := models.LoadRunRecord(path)
		if err != nil {
			return nil, err
		}
		if record.TaskID == "" {
			record.TaskID = strings.TrimSuffix(filepath.Base(path), ".json")
		}
		if _, dup := records[record.TaskID]; dup {
			return nil, fmt.Errorf("duplicate run record for task '%s'", record.TaskID)
		}
		records[record.TaskID] = record
	}
	return &DirSource{records: records}, nil
}

func (s *DirSource) Record(ctx context.Context, taskID string) (*models.RunRecord, error) {
	record, ok := s.records[taskID]
	if !ok {
		return nil, fmt.Errorf("no run record for task '%s'", taskID)
	}
	return record, nil
}

// TaskIDs returns every task id with a record, sorted.
func (s *DirSource) TaskIDs() []string {
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
