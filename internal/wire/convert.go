package wire

import (
	"fmt"
	"time"

	"github.com/starford/tasknote/internal/apperr"
	"github.com/starford/tasknote/internal/models"
)

// Millis converts t to Unix milliseconds.
func Millis(t time.Time) int64 { return t.UnixMilli() }

// Time converts Unix milliseconds to a time.Time.
func Time(ms int64) time.Time { return time.UnixMilli(ms) }

func millisPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

func timePtr(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := time.UnixMilli(*ms)
	return &t
}

// NoteFromDTO translates a wire note.
func NoteFromDTO(d NoteDTO) models.Note {
	return models.Note{
		ID:        d.ID,
		TaskID:    d.TaskID,
		Content:   d.Content,
		CreatedAt: Time(d.CreatedAt),
	}
}

// NoteToDTO translates a domain note.
func NoteToDTO(n models.Note) NoteDTO {
	return NoteDTO{
		ID:        n.ID,
		TaskID:    n.TaskID,
		Content:   n.Content,
		CreatedAt: Millis(n.CreatedAt),
	}
}

// TaskFromDTO translates a wire task. A missing notes field yields nil Notes.
func TaskFromDTO(d TaskDTO) models.Task {
	t := models.Task{
		ID:          d.ID,
		Title:       d.Title,
		Completed:   d.Completed,
		CompletedAt: timePtr(d.CompletedAt),
		CreatedAt:   Time(d.CreatedAt),
		TaskTime:    timePtr(d.TaskTime),
		TimeUnit:    models.TimeUnit(d.TimeUnit),
		SortOrder:   d.SortOrder,
	}
	if d.TimeSpent != nil {
		spent := *d.TimeSpent
		t.TimeSpent = &spent
	}
	if d.Notes != nil {
		t.Notes = make([]models.Note, 0, len(*d.Notes))
		for _, n := range *d.Notes {
			t.Notes = append(t.Notes, NoteFromDTO(n))
		}
	}
	if d.Highlights != nil {
		t.Highlights = &models.Highlights{Title: d.Highlights.Title, Content: d.Highlights.Content}
	}
	return t
}

// TaskToDTO translates a domain task. Notes are emitted only when t.Notes is
// non-nil, mirroring TaskFromDTO.
func TaskToDTO(t models.Task) TaskDTO {
	d := TaskDTO{
		ID:          t.ID,
		Title:       t.Title,
		Completed:   t.Completed,
		CompletedAt: millisPtr(t.CompletedAt),
		CreatedAt:   Millis(t.CreatedAt),
		TaskTime:    millisPtr(t.TaskTime),
		TimeSpent:   t.TimeSpent,
		TimeUnit:    string(t.TimeUnit),
		SortOrder:   t.SortOrder,
	}
	if t.Notes != nil {
		notes := make([]NoteDTO, 0, len(t.Notes))
		for _, n := range t.Notes {
			notes = append(notes, NoteToDTO(n))
		}
		d.Notes = &notes
	}
	if t.Highlights != nil {
		d.Highlights = &HighlightsDTO{Title: t.Highlights.Title, Content: t.Highlights.Content}
	}
	return d
}

// TasksFromDTO translates a list of wire tasks.
func TasksFromDTO(ds []TaskDTO) []models.Task {
	out := make([]models.Task, 0, len(ds))
	for _, d := range ds {
		out = append(out, TaskFromDTO(d))
	}
	return out
}

// TasksToDTO translates a list of domain tasks.
func TasksToDTO(ts []models.Task) []TaskDTO {
	out := make([]TaskDTO, 0, len(ts))
	for _, t := range ts {
		out = append(out, TaskToDTO(t))
	}
	return out
}

// StatFromDTO translates one day of counts.
func StatFromDTO(d TaskStatDTO) models.TaskStat {
	return models.TaskStat{Date: d.Date, TotalCount: d.TotalCount, UnCompletedCount: d.UnCompletedCount}
}

// StatToDTO translates one day of counts.
func StatToDTO(s models.TaskStat) TaskStatDTO {
	return TaskStatDTO{Date: s.Date, TotalCount: s.TotalCount, UnCompletedCount: s.UnCompletedCount}
}

// NewTaskRequest builds the create body.
func NewTaskRequest(n models.NewTask) CreateTaskRequest {
	return CreateTaskRequest{Title: n.Title, TaskTime: millisPtr(n.TaskTime)}
}

// NewTaskFromRequest translates a create body.
func NewTaskFromRequest(r CreateTaskRequest) models.NewTask {
	return models.NewTask{Title: r.Title, TaskTime: timePtr(r.TaskTime)}
}

// UpdateRequest flattens a grouped update into the snake_case body. Every
// group maps to its own fields so none can be dropped silently.
func UpdateRequest(u models.TaskUpdate) UpdateTaskRequest {
	var r UpdateTaskRequest
	if u.Identity != nil {
		title := u.Identity.Title
		r.Title = &title
	}
	if u.Schedule != nil {
		r.TaskTime = millisPtr(u.Schedule.TaskTime)
		if u.Schedule.SortOrder != nil {
			order := *u.Schedule.SortOrder
			r.SortOrder = &order
		}
	}
	if u.Effort != nil {
		spent := u.Effort.TimeSpent
		unit := string(u.Effort.TimeUnit)
		r.TimeSpent = &spent
		r.TimeUnit = &unit
	}
	return r
}

// UpdateFromRequest regroups a snake_case body. The effort pair must be sent
// together.
func UpdateFromRequest(r UpdateTaskRequest) (models.TaskUpdate, error) {
	var u models.TaskUpdate
	if r.Title != nil {
		u.Identity = &models.IdentityFields{Title: *r.Title}
	}
	if r.TaskTime != nil || r.SortOrder != nil {
		u.Schedule = &models.ScheduleFields{TaskTime: timePtr(r.TaskTime), SortOrder: r.SortOrder}
	}
	switch {
	case r.TimeSpent != nil && r.TimeUnit != nil:
		u.Effort = &models.EffortFields{TimeSpent: *r.TimeSpent, TimeUnit: models.TimeUnit(*r.TimeUnit)}
	case r.TimeSpent != nil || r.TimeUnit != nil:
		return u, fmt.Errorf("%w: time_spent and time_unit must be sent together", apperr.ErrValidation)
	}
	return u, u.Validate()
}
