// Package store holds the client-side copy of the tasks loaded into each
// view window, the focused detail task and the calendar stats.
//
// Every mutation is applied to every place the task currently appears, so two
// windows (or a window and the detail view) never disagree about one task.
package store

import (
	"cmp"
	"slices"
	"sync"

	"github.com/starford/tasknote/internal/models"
)

// Window names a date-ranged task list fetched wholesale from the backend.
type Window string

// Windows maintained by the client.
const (
	WindowToday    Window = "today"
	WindowSelected Window = "selected"
)

// Store is safe for concurrent use. Reads return deep copies.
type Store struct {
	mu      sync.RWMutex
	windows map[Window][]models.Task
	focus   *models.Task
	stats   []models.TaskStat
}

// New returns an empty store.
func New() *Store {
	return &Store{windows: make(map[Window][]models.Task)}
}

// SetWindow replaces one window's list wholesale. The focused task, if it is
// part of the new list, is refreshed from it.
func (s *Store) SetWindow(w Window, tasks []models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := cloneTasks(tasks)
	s.windows[w] = list
	if s.focus == nil {
		return
	}
	if i := indexOf(list, s.focus.ID); i >= 0 {
		f := list[i].Clone()
		s.focus = &f
	}
}

// Window returns a copy of one window's list.
func (s *Store) Window(w Window) []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneTasks(s.windows[w])
}

// Find returns the first copy of the task found in any window or the focus.
func (s *Store) Find(id int64) (models.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, w := range s.windowNames() {
		if i := indexOf(s.windows[w], id); i >= 0 {
			return s.windows[w][i].Clone(), true
		}
	}
	if s.focus != nil && s.focus.ID == id {
		return s.focus.Clone(), true
	}
	return models.Task{}, false
}

// Upsert replaces the task everywhere it appears and appends it to w when w
// does not hold it yet.
func (s *Store) Upsert(w Window, task models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apply(task.ID, func(t *models.Task) { *t = task.Clone() })
	if indexOf(s.windows[w], task.ID) < 0 {
		s.windows[w] = append(s.windows[w], task.Clone())
	}
}

// SortWindow puts a window back into display order: sort order, then id,
// the order the backend lists a day in.
func (s *Store) SortWindow(w Window) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slices.SortStableFunc(s.windows[w], func(a, b models.Task) int {
		if c := cmp.Compare(a.SortOrder, b.SortOrder); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// Patch runs mutate against every copy of the task with the given id, in all
// windows and the focus. It reports whether any copy was found.
func (s *Store) Patch(id int64, mutate func(*models.Task)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(id, mutate)
}

// Remove deletes the task from every window. If it was focused the focus is
// cleared. It reports whether the task was found anywhere.
func (s *Store) Remove(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	for w, list := range s.windows {
		if i := indexOf(list, id); i >= 0 {
			s.windows[w] = slices.Delete(list, i, i+1)
			found = true
		}
	}
	if s.focus != nil && s.focus.ID == id {
		s.focus = nil
		found = true
	}
	return found
}

// AppendNote adds a note to the end of the task's notes wherever the task
// appears. A note whose id is already present is not duplicated.
func (s *Store) AppendNote(taskID int64, note models.Note) bool {
	return s.Patch(taskID, func(t *models.Task) {
		if t.NoteIndex(note.ID) >= 0 {
			return
		}
		t.Notes = append(slices.Clone(t.Notes), note)
	})
}

// ReplaceNote swaps a note in place wherever its task appears.
func (s *Store) ReplaceNote(taskID int64, note models.Note) bool {
	return s.Patch(taskID, func(t *models.Task) {
		if i := t.NoteIndex(note.ID); i >= 0 {
			notes := slices.Clone(t.Notes)
			notes[i] = note
			t.Notes = notes
		}
	})
}

// RemoveNote drops a note from its task wherever the task appears.
func (s *Store) RemoveNote(taskID, noteID int64) bool {
	return s.Patch(taskID, func(t *models.Task) {
		if i := t.NoteIndex(noteID); i >= 0 {
			t.Notes = slices.Delete(slices.Clone(t.Notes), i, i+1)
		}
	})
}

// Select focuses the detail view on task. The focus keeps receiving patches
// for as long as it stays selected.
func (s *Store) Select(task models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.windowNames() {
		if i := indexOf(s.windows[w], task.ID); i >= 0 {
			task = s.windows[w][i]
			break
		}
	}
	f := task.Clone()
	s.focus = &f
}

// Focus returns the focused task, if any.
func (s *Store) Focus() (models.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.focus == nil {
		return models.Task{}, false
	}
	return s.focus.Clone(), true
}

// ClearFocus closes the detail view.
func (s *Store) ClearFocus() {
	s.mu.Lock()
	s.focus = nil
	s.mu.Unlock()
}

// SetStats replaces the calendar stats.
func (s *Store) SetStats(stats []models.TaskStat) {
	s.mu.Lock()
	s.stats = slices.Clone(stats)
	s.mu.Unlock()
}

// Stats returns a copy of the calendar stats.
func (s *Store) Stats() []models.TaskStat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.stats)
}

// Reset drops every window, the focus and the stats.
func (s *Store) Reset() {
	s.mu.Lock()
	s.windows = make(map[Window][]models.Task)
	s.focus = nil
	s.stats = nil
	s.mu.Unlock()
}

// apply must be called with the write lock held.
func (s *Store) apply(id int64, mutate func(*models.Task)) bool {
	found := false
	for _, list := range s.windows {
		if i := indexOf(list, id); i >= 0 {
			mutate(&list[i])
			found = true
		}
	}
	if s.focus != nil && s.focus.ID == id {
		mutate(s.focus)
		found = true
	}
	return found
}

func (s *Store) windowNames() []Window {
	names := make([]Window, 0, len(s.windows))
	for w := range s.windows {
		names = append(names, w)
	}
	slices.Sort(names)
	return names
}

func indexOf(list []models.Task, id int64) int {
	return slices.IndexFunc(list, func(t models.Task) bool { return t.ID == id })
}

func cloneTasks(tasks []models.Task) []models.Task {
	if tasks == nil {
		return nil
	}
	out := make([]models.Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}
