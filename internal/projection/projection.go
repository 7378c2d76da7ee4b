// Package projection derives read-only views from the tasks held in a window
// and the server-aggregated calendar stats. Nothing here mutates its input.
//
// Day boundaries are computed in the location of the time values passed in.
package projection

import (
	"math"
	"time"

	"github.com/starford/tasknote/internal/models"
)

// ActiveCount returns the number of tasks not yet completed.
func ActiveCount(tasks []models.Task) int {
	n := 0
	for _, t := range tasks {
		if !t.Completed {
			n++
		}
	}
	return n
}

// DayStats summarises the tasks scheduled on one day.
type DayStats struct {
	Total     int
	Completed int
}

// Pending returns the number of unfinished tasks.
func (d DayStats) Pending() int { return d.Total - d.Completed }

// Progress returns the completion percentage rounded to the nearest integer.
func (d DayStats) Progress() int {
	if d.Total == 0 {
		return 0
	}
	return int(math.Round(float64(d.Completed) / float64(d.Total) * 100))
}

// DailyStats counts the tasks whose scheduled time falls on the same calendar
// day as day.
func DailyStats(tasks []models.Task, day time.Time) DayStats {
	var s DayStats
	for _, t := range tasks {
		if !SameDay(t.Scheduled().In(day.Location()), day) {
			continue
		}
		s.Total++
		if t.Completed {
			s.Completed++
		}
	}
	return s
}

// CellStats is the calendar cell view of a TaskStat.
type CellStats struct {
	Total       int
	UnCompleted int
}

// Completed returns the number of finished tasks in the cell.
func (c CellStats) Completed() int { return c.Total - c.UnCompleted }

// MonthlyCellStats looks up the stat for day; a missing day has zero counts.
func MonthlyCellStats(stats []models.TaskStat, day time.Time) CellStats {
	key := models.DayKey(day)
	for _, s := range stats {
		if s.Date == key {
			return CellStats{Total: s.TotalCount, UnCompleted: s.UnCompletedCount}
		}
	}
	return CellStats{}
}

// SameDay reports whether a and b share year, month and day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// StartOfDay returns midnight of t's day.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DayRange returns the first and last millisecond of t's day, the bounds of a
// day window query.
func DayRange(t time.Time) (time.Time, time.Time) {
	start := StartOfDay(t)
	return start, start.AddDate(0, 0, 1).Add(-time.Millisecond)
}

// CalendarRange returns the bounds of the month grid around month: from the
// Monday on or before the first day to the last millisecond of the Sunday on
// or after the last day.
func CalendarRange(month time.Time) (time.Time, time.Time) {
	y, m, _ := month.Date()
	first := time.Date(y, m, 1, 0, 0, 0, 0, month.Location())
	last := first.AddDate(0, 1, -1)

	start := first.AddDate(0, 0, -daysSinceMonday(first))
	end := last.AddDate(0, 0, 6-daysSinceMonday(last))
	_, endOfLast := DayRange(end)
	return start, endOfLast
}

// CalendarDays lists every day of the month grid, always a multiple of seven.
func CalendarDays(month time.Time) []time.Time {
	start, end := CalendarRange(month)
	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

func daysSinceMonday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
