// Package models defines the domain types shared by the task client and the backend.
package models

import (
	"slices"
	"time"
)

// TimeUnit qualifies a task's tracked effort.
type TimeUnit string

// Supported effort units.
const (
	TimeUnitMinute TimeUnit = "minute"
	TimeUnitHour   TimeUnit = "hour"
	TimeUnitDay    TimeUnit = "day"
	TimeUnitWeek   TimeUnit = "week"
	TimeUnitMonth  TimeUnit = "month"
)

// TimeUnits lists every valid unit in ascending magnitude.
var TimeUnits = []TimeUnit{TimeUnitMinute, TimeUnitHour, TimeUnitDay, TimeUnitWeek, TimeUnitMonth}

// Valid reports whether u is one of the known units.
func (u TimeUnit) Valid() bool {
	return slices.Contains(TimeUnits, u)
}

// Highlights carries search-only snippets with matches wrapped in <mark> tags.
// It is never persisted.
type Highlights struct {
	Title   []string
	Content []string
}

// Note is a Markdown note owned by a task.
type Note struct {
	ID        int64
	TaskID    int64
	Content   string
	CreatedAt time.Time
}

// Task is a unit of work scheduled on a day.
//
// Notes is nil when the representation it came from carried no notes at all,
// and a non-nil (possibly empty) slice when notes were present.
type Task struct {
	ID          int64
	Title       string
	Completed   bool
	CompletedAt *time.Time
	CreatedAt   time.Time
	TaskTime    *time.Time
	TimeSpent   *float64
	TimeUnit    TimeUnit
	SortOrder   int
	Notes       []Note
	Highlights  *Highlights
}

// Scheduled returns the instant used for day bucketing: TaskTime when set,
// CreatedAt otherwise.
func (t Task) Scheduled() time.Time {
	if t.TaskTime != nil {
		return *t.TaskTime
	}
	return t.CreatedAt
}

// NoteIndex returns the position of the note with the given id, or -1.
func (t Task) NoteIndex(noteID int64) int {
	return slices.IndexFunc(t.Notes, func(n Note) bool { return n.ID == noteID })
}

// Clone returns a deep copy so callers can never alias store-held state.
func (t Task) Clone() Task {
	c := t
	if t.CompletedAt != nil {
		v := *t.CompletedAt
		c.CompletedAt = &v
	}
	if t.TaskTime != nil {
		v := *t.TaskTime
		c.TaskTime = &v
	}
	if t.TimeSpent != nil {
		v := *t.TimeSpent
		c.TimeSpent = &v
	}
	if t.Notes != nil {
		c.Notes = slices.Clone(t.Notes)
	}
	if t.Highlights != nil {
		c.Highlights = &Highlights{
			Title:   slices.Clone(t.Highlights.Title),
			Content: slices.Clone(t.Highlights.Content),
		}
	}
	return c
}

// TaskStat is the server-aggregated count of tasks for one calendar day.
type TaskStat struct {
	Date             string // YYYY-MM-DD
	TotalCount       int
	UnCompletedCount int
}

// CompletedCount returns the number of finished tasks on the day.
func (s TaskStat) CompletedCount() int {
	return s.TotalCount - s.UnCompletedCount
}

// DayKey formats t as the calendar key used by TaskStat.Date.
func DayKey(t time.Time) string {
	return t.Format(time.DateOnly)
}
