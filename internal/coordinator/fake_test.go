package coordinator

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/starford/tasknote/internal/apperr"
	"github.com/starford/tasknote/internal/models"
)

// fakeAPI is an in-memory backend. Like the real one it omits notes from
// update and toggle responses.
type fakeAPI struct {
	mu       sync.Mutex
	tasks    map[int64]models.Task
	nextID   int64
	nextNote int64
	calls    []string
	sorts    map[int64]int
	fail     map[string]error
	failTask map[int64]error
	now      func() time.Time
}

func newFakeAPI(now func() time.Time) *fakeAPI {
	return &fakeAPI{
		tasks:    make(map[int64]models.Task),
		nextID:   1,
		nextNote: 1,
		fail:     make(map[string]error),
		failTask: make(map[int64]error),
		sorts:    make(map[int64]int),
		now:      now,
	}
}

func (f *fakeAPI) seed(title string, at time.Time, sortOrder int) models.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := models.Task{
		ID: f.nextID, Title: title, CreatedAt: at, TaskTime: &at,
		SortOrder: sortOrder, Notes: []models.Note{},
	}
	f.tasks[t.ID] = t
	f.nextID++
	return t
}

func (f *fakeAPI) record(call string) error {
	f.calls = append(f.calls, call)
	return f.fail[call]
}

func (f *fakeAPI) callCount(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

// sortsSent returns the sort orders received by UpdateTask, keyed by task id.
func (f *fakeAPI) sortsSent() map[int64]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[int64]int, len(f.sorts))
	for id, v := range f.sorts {
		out[id] = v
	}
	return out
}

func (f *fakeAPI) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeAPI) FetchTasks(_ context.Context, start, end time.Time) ([]models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("FetchTasks"); err != nil {
		return nil, err
	}
	var out []models.Task
	for _, t := range f.tasks {
		at := t.Scheduled()
		if !at.Before(start) && !at.After(end) {
			out = append(out, t.Clone())
		}
	}
	slices.SortFunc(out, func(a, b models.Task) int {
		if c := cmp.Compare(a.SortOrder, b.SortOrder); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (f *fakeAPI) FetchTaskStats(_ context.Context, start, end time.Time) ([]models.TaskStat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("FetchTaskStats"); err != nil {
		return nil, err
	}
	byDay := map[string]*models.TaskStat{}
	for _, t := range f.tasks {
		at := t.Scheduled()
		if at.Before(start) || at.After(end) {
			continue
		}
		key := models.DayKey(at)
		s, ok := byDay[key]
		if !ok {
			s = &models.TaskStat{Date: key}
			byDay[key] = s
		}
		s.TotalCount++
		if !t.Completed {
			s.UnCompletedCount++
		}
	}
	var out []models.TaskStat
	for _, s := range byDay {
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b models.TaskStat) int { return cmp.Compare(a.Date, b.Date) })
	return out, nil
}

func (f *fakeAPI) CreateTask(_ context.Context, n models.NewTask) (models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateTask"); err != nil {
		return models.Task{}, err
	}
	now := f.now()
	t := models.Task{ID: f.nextID, Title: n.Title, CreatedAt: now, TaskTime: n.TaskTime, Notes: []models.Note{}}
	f.tasks[t.ID] = t
	f.nextID++
	return t.Clone(), nil
}

func (f *fakeAPI) UpdateTask(_ context.Context, id int64, u models.TaskUpdate) (models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UpdateTask"); err != nil {
		return models.Task{}, err
	}
	if err := f.failTask[id]; err != nil {
		return models.Task{}, err
	}
	t, ok := f.tasks[id]
	if !ok {
		return models.Task{}, apperr.ErrNotFound
	}
	if u.Schedule != nil && u.Schedule.SortOrder != nil {
		f.sorts[id] = *u.Schedule.SortOrder
	}
	u.Apply(&t)
	f.tasks[id] = t
	out := t.Clone()
	out.Notes = nil
	return out, nil
}

func (f *fakeAPI) ToggleTask(_ context.Context, id int64) (models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ToggleTask"); err != nil {
		return models.Task{}, err
	}
	t, ok := f.tasks[id]
	if !ok {
		return models.Task{}, apperr.ErrNotFound
	}
	t.Completed = !t.Completed
	if t.Completed {
		now := f.now()
		t.CompletedAt = &now
	} else {
		t.CompletedAt = nil
	}
	f.tasks[id] = t
	out := t.Clone()
	out.Notes = nil
	return out, nil
}

func (f *fakeAPI) DeleteTask(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteTask"); err != nil {
		return err
	}
	delete(f.tasks, id)
	return nil
}

func (f *fakeAPI) CreateNote(_ context.Context, taskID int64, content string) (models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateNote"); err != nil {
		return models.Note{}, err
	}
	t, ok := f.tasks[taskID]
	if !ok {
		return models.Note{}, apperr.ErrNotFound
	}
	n := models.Note{ID: f.nextNote, TaskID: taskID, Content: content, CreatedAt: f.now()}
	f.nextNote++
	t.Notes = append(t.Notes, n)
	f.tasks[taskID] = t
	return n, nil
}

func (f *fakeAPI) UpdateNote(_ context.Context, noteID int64, content string) (models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UpdateNote"); err != nil {
		return models.Note{}, err
	}
	for id, t := range f.tasks {
		if i := t.NoteIndex(noteID); i >= 0 {
			t.Notes[i].Content = content
			f.tasks[id] = t
			return t.Notes[i], nil
		}
	}
	return models.Note{}, apperr.ErrNotFound
}

func (f *fakeAPI) DeleteNote(_ context.Context, noteID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteNote"); err != nil {
		return err
	}
	for id, t := range f.tasks {
		if i := t.NoteIndex(noteID); i >= 0 {
			t.Notes = slices.Delete(t.Notes, i, i+1)
			f.tasks[id] = t
			return nil
		}
	}
	return apperr.ErrNotFound
}

func (f *fakeAPI) SearchTasks(_ context.Context, query string) ([]models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("SearchTasks"); err != nil {
		return nil, err
	}
	var out []models.Task
	for _, t := range f.tasks {
		if t.Title == query {
			out = append(out, t.Clone())
		}
	}
	return out, nil
}

func (f *fakeAPI) UploadImage(_ context.Context, filename string, r io.Reader) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UploadImage"); err != nil {
		return "", err
	}
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	return fmt.Sprintf("/uploads/%s", filename), nil
}

type fakeSession struct {
	mu      sync.Mutex
	cleared int
}

func (s *fakeSession) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared++
	return nil
}

type alerts struct {
	mu   sync.Mutex
	msgs []string
}

func (a *alerts) Alert(msg string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.msgs = append(a.msgs, msg)
}
