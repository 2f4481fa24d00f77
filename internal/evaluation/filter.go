package evaluation

import (
	"fmt"
	"path/filepath"

	"github.com/cocoabench/saiten/internal/tasks"
)

// FilterTasks returns the subset of taskList whose ID or DisplayName
// matches at least one of the given glob patterns. An empty patterns
// slice returns all tasks unchanged.
func FilterTasks(taskList []*tasks.Task, patterns []string) ([]*tasks.Task, error) {
	if len(patterns) == 0 {
		return taskList, nil
	}

	var matched []*tasks.Task
	for _, task := range taskList {
		ok, err := matchesAny(task, patterns)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, task)
		}
	}
	return matched, nil
}

// matchesAny reports whether a task's ID or DisplayName matches any pattern.
func matchesAny(task *tasks.Task, patterns []string) (bool, error) {
	for _, p := range patterns {
		idMatch, err := filepath.Match(p, task.ID)
		if err != nil {
			return false, fmt.Errorf("invalid task filter pattern %q: %w", p, err)
		}
		if idMatch {
			return true, nil
		}
		nameMatch, err := filepath.Match(p, task.DisplayName)
		if err != nil {
			return false, fmt.Errorf("invalid task filter pattern %q: %w", p, err)
		}
		if nameMatch {
			return true, nil
		}
	}
	return false, nil
}
