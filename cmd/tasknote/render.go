package main

import (
	"fmt"
	"html"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/starford/tasknote/internal/models"
	"github.com/starford/tasknote/internal/projection"
)

const (
	markOpen  = "\x1b[1;33m"
	markClose = "\x1b[0m"
)

func printDay(w io.Writer, day time.Time, tasks []models.Task) {
	stats := projection.DailyStats(tasks, day)
	fmt.Fprintf(w, "%s  %d/%d done (%d%%), %d active\n",
		day.Format("Monday 2006-01-02"), stats.Completed, stats.Total, stats.Progress(),
		projection.ActiveCount(tasks))
	if len(tasks) == 0 {
		fmt.Fprintln(w, "  no tasks")
		return
	}
	for _, t := range tasks {
		fmt.Fprintln(w, "  "+taskLine(t, day.Location()))
		for _, n := range t.Notes {
			fmt.Fprintf(w, "        note #%d: %s\n", n.ID, firstLine(n.Content))
		}
	}
}

func taskLine(t models.Task, loc *time.Location) string {
	box := "[ ]"
	if t.Completed {
		box = "[x]"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s #%-4d %s  %s", box, t.ID, t.Scheduled().In(loc).Format("15:04"), t.Title)
	if t.TimeSpent != nil && t.TimeUnit != "" {
		fmt.Fprintf(&b, "  (%s %s)", strconv.FormatFloat(*t.TimeSpent, 'f', -1, 64), t.TimeUnit)
	}
	return b.String()
}

// printDetail shows a task with every note in full.
func printDetail(w io.Writer, t models.Task, loc *time.Location) {
	fmt.Fprintln(w, taskLine(t, loc))
	fmt.Fprintf(w, "  scheduled  %s\n", t.Scheduled().In(loc).Format("2006-01-02 15:04"))
	fmt.Fprintf(w, "  created    %s\n", t.CreatedAt.In(loc).Format("2006-01-02 15:04"))
	if t.CompletedAt != nil {
		fmt.Fprintf(w, "  completed  %s\n", t.CompletedAt.In(loc).Format("2006-01-02 15:04"))
	}
	if len(t.Notes) == 0 {
		fmt.Fprintln(w, "\n  no notes")
		return
	}
	for _, n := range t.Notes {
		fmt.Fprintf(w, "\n  note #%d  %s\n", n.ID, n.CreatedAt.In(loc).Format("2006-01-02 15:04"))
		for _, line := range strings.Split(strings.TrimRight(n.Content, "\n"), "\n") {
			fmt.Fprintf(w, "    %s\n", line)
		}
	}
}

// printCalendar draws a Monday-first month grid; each cell shows the day
// number and done/total counts for days with tasks.
func printCalendar(w io.Writer, month time.Time, stats []models.TaskStat, today time.Time) {
	fmt.Fprintf(w, "%s\n", month.Format("January 2006"))
	fmt.Fprintln(w, " Mo        Tu        We        Th        Fr        Sa        Su")
	for i, d := range projection.CalendarDays(month) {
		cell := fmt.Sprintf("%2d", d.Day())
		if d.Month() != month.Month() {
			cell = " ."
		}
		marker := " "
		if projection.SameDay(d, today) {
			marker = "*"
		}
		counts := ""
		if c := projection.MonthlyCellStats(stats, d); c.Total > 0 {
			counts = fmt.Sprintf("%d/%d", c.Completed(), c.Total)
		}
		fmt.Fprintf(w, "%s%s %-6s", marker, cell, counts)
		if i%7 == 6 {
			fmt.Fprintln(w)
		} else {
			fmt.Fprint(w, " ")
		}
	}
}

func printSearch(w io.Writer, results []models.Task, loc *time.Location) {
	if len(results) == 0 {
		fmt.Fprintln(w, "no matches")
		return
	}
	for _, t := range results {
		title := t.Title
		var snippets []string
		if t.Highlights != nil {
			if len(t.Highlights.Title) > 0 {
				title = t.Highlights.Title[0]
			}
			snippets = t.Highlights.Content
		}
		box := "[ ]"
		if t.Completed {
			box = "[x]"
		}
		fmt.Fprintf(w, "%s #%-4d %s  %s\n", box, t.ID, t.Scheduled().In(loc).Format("2006-01-02"), terminalMarks(title))
		for _, s := range snippets {
			fmt.Fprintf(w, "        %s\n", terminalMarks(s))
		}
	}
}

// terminalMarks turns <mark>-wrapped, HTML-escaped highlight text into
// plain text with ANSI emphasis.
func terminalMarks(s string) string {
	s = strings.ReplaceAll(s, "<mark>", markOpen)
	s = strings.ReplaceAll(s, "</mark>", markClose)
	return html.UnescapeString(s)
}

func firstLine(s string) string {
	line, _, cut := strings.Cut(strings.TrimSpace(s), "\n")
	if cut {
		return line + " ..."
	}
	return line
}
