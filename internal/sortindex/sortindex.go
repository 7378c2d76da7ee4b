// Package sortindex renumbers a day's tasks after a drag-and-drop reorder.
package sortindex

import (
	"fmt"

	"github.com/starford/tasknote/internal/models"
)

// Gap is the distance between consecutive sort indices. It leaves room for
// manual insertion between two neighbours without renumbering.
const Gap = 100

// Change is a sort index that must be pushed to the backend.
type Change struct {
	TaskID    int64
	SortOrder int
}

// Assign gives ordered the indices Gap, 2*Gap, ... in display order and
// reports the tasks whose index differs from the one they had in previous.
// A task missing from previous always counts as changed.
func Assign(previous, ordered []models.Task) ([]models.Task, []Change) {
	before := make(map[int64]int, len(previous))
	for _, t := range previous {
		before[t.ID] = t.SortOrder
	}

	out := make([]models.Task, len(ordered))
	var changes []Change
	for i, t := range ordered {
		t = t.Clone()
		t.SortOrder = (i + 1) * Gap
		out[i] = t
		if old, ok := before[t.ID]; !ok || old != t.SortOrder {
			changes = append(changes, Change{TaskID: t.ID, SortOrder: t.SortOrder})
		}
	}
	return out, changes
}

// Arrange returns the tasks of window in the order given by ids. ids must be
// a permutation of the window's task ids.
func Arrange(window []models.Task, ids []int64) ([]models.Task, error) {
	if len(ids) != len(window) {
		return nil, fmt.Errorf("reorder: got %d ids for a window of %d tasks", len(ids), len(window))
	}
	byID := make(map[int64]models.Task, len(window))
	for _, t := range window {
		byID[t.ID] = t
	}
	out := make([]models.Task, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		t, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("reorder: task %d is not in the window", id)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("reorder: task %d listed twice", id)
		}
		seen[id] = struct{}{}
		out = append(out, t)
	}
	return out, nil
}
