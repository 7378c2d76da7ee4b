package models

import (
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/tasknote/internal/apperr"
)

// NewTask is the intent to create a task.
type NewTask struct {
	Title    string
	TaskTime *time.Time
}

// Validate rejects blank titles.
func (n NewTask) Validate() error {
	if err := validation.Validate(strings.TrimSpace(n.Title),
		validation.Required.Error("title is required"),
	); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	return nil
}

// IdentityFields groups the descriptive fields of a task.
type IdentityFields struct {
	Title string
}

// ScheduleFields groups the fields that decide where a task is listed.
// Nil members are left untouched.
type ScheduleFields struct {
	TaskTime  *time.Time
	SortOrder *int
}

// EffortFields groups the effort-tracking pair.
type EffortFields struct {
	TimeSpent float64
	TimeUnit  TimeUnit
}

// TaskUpdate is a partial task update split by field group. A nil group is
// not sent and not applied.
type TaskUpdate struct {
	Identity *IdentityFields
	Schedule *ScheduleFields
	Effort   *EffortFields
}

// Rename returns an update that changes only the title.
func Rename(title string) TaskUpdate {
	return TaskUpdate{Identity: &IdentityFields{Title: title}}
}

// Reschedule returns an update that moves the task to another instant.
func Reschedule(at time.Time) TaskUpdate {
	return TaskUpdate{Schedule: &ScheduleFields{TaskTime: &at}}
}

// Reorder returns an update that changes only the sort index.
func Reorder(sortOrder int) TaskUpdate {
	return TaskUpdate{Schedule: &ScheduleFields{SortOrder: &sortOrder}}
}

// TrackEffort returns an update that records time spent.
func TrackEffort(spent float64, unit TimeUnit) TaskUpdate {
	return TaskUpdate{Effort: &EffortFields{TimeSpent: spent, TimeUnit: unit}}
}

// IsEmpty reports whether the update carries no field at all.
func (u TaskUpdate) IsEmpty() bool {
	return u.Identity == nil &&
		(u.Schedule == nil || (u.Schedule.TaskTime == nil && u.Schedule.SortOrder == nil)) &&
		u.Effort == nil
}

// MovesDay reports whether the update changes the task's scheduled time and
// may therefore move it to a different day window.
func (u TaskUpdate) MovesDay() bool {
	return u.Schedule != nil && u.Schedule.TaskTime != nil
}

// Validate checks every present group.
func (u TaskUpdate) Validate() error {
	var err error
	switch {
	case u.IsEmpty():
		err = fmt.Errorf("update carries no fields")
	case u.Identity != nil:
		err = validation.Validate(strings.TrimSpace(u.Identity.Title),
			validation.Required.Error("title is required"))
		if err == nil && u.Effort != nil {
			err = u.Effort.validate()
		}
	case u.Effort != nil:
		err = u.Effort.validate()
	}
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	return nil
}

func (e *EffortFields) validate() error {
	return validation.ValidateStruct(e,
		validation.Field(&e.TimeSpent, validation.Min(0.0)),
		validation.Field(&e.TimeUnit, validation.Required, validation.In(
			TimeUnitMinute, TimeUnitHour, TimeUnitDay, TimeUnitWeek, TimeUnitMonth)),
	)
}

// Apply writes the present groups onto t.
func (u TaskUpdate) Apply(t *Task) {
	if u.Identity != nil {
		t.Title = strings.TrimSpace(u.Identity.Title)
	}
	if u.Schedule != nil {
		if u.Schedule.TaskTime != nil {
			at := *u.Schedule.TaskTime
			t.TaskTime = &at
		}
		if u.Schedule.SortOrder != nil {
			t.SortOrder = *u.Schedule.SortOrder
		}
	}
	if u.Effort != nil {
		spent := u.Effort.TimeSpent
		t.TimeSpent = &spent
		t.TimeUnit = u.Effort.TimeUnit
	}
}
