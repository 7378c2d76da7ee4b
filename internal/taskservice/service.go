// Package taskservice holds the backend's task and note rules on top of the
// repository: default scheduling, completion timestamps, day statistics and
// search highlighting. Every call is scoped to one user.
package taskservice

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/starford/tasknote/internal/apperr"
	"github.com/starford/tasknote/internal/models"
	"github.com/starford/tasknote/internal/projection"
	"github.com/starford/tasknote/internal/repo"
	"github.com/starford/tasknote/internal/sortindex"
)

// Event types published after successful mutations.
const (
	EventTaskCreated = "task.created"
	EventTaskUpdated = "task.updated"
	EventTaskDeleted = "task.deleted"
	EventNoteCreated = "note.created"
	EventNoteUpdated = "note.updated"
	EventNoteDeleted = "note.deleted"
)

const searchLimit = 50

// Publisher receives change notifications.
type Publisher interface {
	Publish(userID int64, eventType string, data any)
}

type nopPublisher struct{}

func (nopPublisher) Publish(int64, string, any) {}

// Service coordinates task rules and persistence.
type Service struct {
	db     repo.Tasks
	events Publisher
	loc    *time.Location
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets where change events go.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.events = p }
}

// WithLocation sets the timezone used to bucket tasks into days.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new task service.
func NewService(db repo.Tasks, opts ...Option) *Service {
	s := &Service{db: db, events: nopPublisher{}, loc: time.Local, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListTasks returns the tasks scheduled in [start, end] with their notes.
func (s *Service) ListTasks(ctx context.Context, userID int64, start, end time.Time) ([]models.Task, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end_date before start_date", apperr.ErrValidation)
	}
	tasks, err := s.db.ListTasks(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(tasks), nil
}

// Stats returns per-day totals for [start, end]. Days without tasks are
// omitted.
func (s *Service) Stats(ctx context.Context, userID int64, start, end time.Time) ([]models.TaskStat, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end_date before start_date", apperr.ErrValidation)
	}
	rows, err := s.db.ScheduleTimes(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	byDay := make(map[string]*models.TaskStat)
	for _, r := range rows {
		key := models.DayKey(r.TaskTime.In(s.loc))
		st, ok := byDay[key]
		if !ok {
			st = &models.TaskStat{Date: key}
			byDay[key] = st
		}
		st.TotalCount++
		if !r.Completed {
			st.UnCompletedCount++
		}
	}
	out := make([]models.TaskStat, 0, len(byDay))
	for _, st := range byDay {
		out = append(out, *st)
	}
	slices.SortFunc(out, func(a, b models.TaskStat) int { return cmp.Compare(a.Date, b.Date) })
	return out, nil
}

// CreateTask creates a task. Without an explicit task time it is scheduled
// now. It is placed after the tasks already on its day.
func (s *Service) CreateTask(ctx context.Context, userID int64, n models.NewTask) (models.Task, error) {
	if err := n.Validate(); err != nil {
		return models.Task{}, err
	}
	now := s.now()
	at := now
	if n.TaskTime != nil {
		at = *n.TaskTime
	}
	start, end := projection.DayRange(at.In(s.loc))
	last, err := s.db.MaxSortOrder(ctx, userID, start, end)
	if err != nil {
		return models.Task{}, err
	}

	task, err := s.db.CreateTask(ctx, userID, models.Task{
		Title:     strings.TrimSpace(n.Title),
		CreatedAt: now,
		TaskTime:  &at,
		SortOrder: last + sortindex.Gap,
	})
	if err != nil {
		return models.Task{}, err
	}
	task.Notes = []models.Note{}
	s.events.Publish(userID, EventTaskCreated, idData(task.ID))
	return task, nil
}

// UpdateTask applies a partial update. The result carries no notes.
func (s *Service) UpdateTask(ctx context.Context, userID, id int64, u models.TaskUpdate) (models.Task, error) {
	if err := u.Validate(); err != nil {
		return models.Task{}, err
	}
	task, err := s.db.GetTask(ctx, userID, id)
	if err != nil {
		return models.Task{}, err
	}
	u.Apply(&task)
	if u.Identity != nil {
		task.Title = strings.TrimSpace(task.Title)
	}
	if err := s.db.SaveTask(ctx, userID, task); err != nil {
		return models.Task{}, err
	}
	s.events.Publish(userID, EventTaskUpdated, idData(id))
	return task, nil
}

// ToggleTask flips completion and stamps or clears the completion time.
func (s *Service) ToggleTask(ctx context.Context, userID, id int64) (models.Task, error) {
	task, err := s.db.GetTask(ctx, userID, id)
	if err != nil {
		return models.Task{}, err
	}
	task.Completed = !task.Completed
	if task.Completed {
		done := s.now()
		task.CompletedAt = &done
	} else {
		task.CompletedAt = nil
	}
	if err := s.db.SaveTask(ctx, userID, task); err != nil {
		return models.Task{}, err
	}
	s.events.Publish(userID, EventTaskUpdated, idData(id))
	return task, nil
}

// DeleteTask removes a task and its notes.
func (s *Service) DeleteTask(ctx context.Context, userID, id int64) error {
	if err := s.db.DeleteTask(ctx, userID, id); err != nil {
		return err
	}
	s.events.Publish(userID, EventTaskDeleted, idData(id))
	return nil
}

// CreateNote attaches a note to a task.
func (s *Service) CreateNote(ctx context.Context, userID, taskID int64, content string) (models.Note, error) {
	if strings.TrimSpace(content) == "" {
		return models.Note{}, fmt.Errorf("%w: content is required", apperr.ErrValidation)
	}
	note, err := s.db.CreateNote(ctx, userID, models.Note{TaskID: taskID, Content: content, CreatedAt: s.now()})
	if err != nil {
		return models.Note{}, err
	}
	s.events.Publish(userID, EventNoteCreated, noteData(note))
	return note, nil
}

// UpdateNote replaces a note's content.
func (s *Service) UpdateNote(ctx context.Context, userID, id int64, content string) (models.Note, error) {
	if strings.TrimSpace(content) == "" {
		return models.Note{}, fmt.Errorf("%w: content is required", apperr.ErrValidation)
	}
	note, err := s.db.UpdateNote(ctx, userID, id, content)
	if err != nil {
		return models.Note{}, err
	}
	s.events.Publish(userID, EventNoteUpdated, noteData(note))
	return note, nil
}

// DeleteNote removes a note.
func (s *Service) DeleteNote(ctx context.Context, userID, id int64) error {
	note, err := s.db.GetNote(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.db.DeleteNote(ctx, userID, id); err != nil {
		return err
	}
	s.events.Publish(userID, EventNoteDeleted, noteData(note))
	return nil
}

// Search finds tasks whose title or notes contain query and marks the hits.
func (s *Service) Search(ctx context.Context, userID int64, query string) ([]models.Task, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.Task{}, nil
	}
	tasks, err := s.db.SearchTasks(ctx, userID, query, searchLimit)
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		tasks[i].Highlights = highlight(tasks[i], query)
	}
	return nonNilSlice(tasks), nil
}

func idData(id int64) map[string]int64 { return map[string]int64{"id": id} }

func noteData(n models.Note) map[string]int64 {
	return map[string]int64{"id": n.ID, "task_id": n.TaskID}
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
