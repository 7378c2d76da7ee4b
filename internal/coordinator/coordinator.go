// Package coordinator applies user intents to the task store: it calls the
// backend, waits for the answer and reconciles the store from it. A failed
// call leaves the store in its last known good state.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/tasknote/internal/apperr"
	"github.com/starford/tasknote/internal/models"
	"github.com/starford/tasknote/internal/projection"
	"github.com/starford/tasknote/internal/store"
)

// API is the backend contract the coordinator depends on.
type API interface {
	FetchTasks(ctx context.Context, start, end time.Time) ([]models.Task, error)
	FetchTaskStats(ctx context.Context, start, end time.Time) ([]models.TaskStat, error)
	CreateTask(ctx context.Context, n models.NewTask) (models.Task, error)
	UpdateTask(ctx context.Context, id int64, u models.TaskUpdate) (models.Task, error)
	ToggleTask(ctx context.Context, id int64) (models.Task, error)
	DeleteTask(ctx context.Context, id int64) error
	CreateNote(ctx context.Context, taskID int64, content string) (models.Note, error)
	UpdateNote(ctx context.Context, noteID int64, content string) (models.Note, error)
	DeleteNote(ctx context.Context, noteID int64) error
	SearchTasks(ctx context.Context, query string) ([]models.Task, error)
	UploadImage(ctx context.Context, filename string, r io.Reader) (string, error)
}

// Alerter shows a blocking message to the user.
type Alerter interface {
	Alert(msg string)
}

// AlerterFunc adapts a function to Alerter.
type AlerterFunc func(msg string)

// Alert calls f.
func (f AlerterFunc) Alert(msg string) { f(msg) }

// SessionClearer is the part of the session the coordinator needs on a 401.
type SessionClearer interface {
	Clear() error
}

// Coordinator is safe for concurrent use. Concurrent mutations of the same
// task resolve as last response wins, per field.
type Coordinator struct {
	api     API
	store   *store.Store
	session SessionClearer
	logger  *slog.Logger
	alert   Alerter
	now     func() time.Time
	loc     *time.Location

	mu           sync.Mutex
	selectedDate time.Time
	viewMonth    time.Time
}

// New creates a coordinator over api and st.
func New(api API, st *store.Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		api:    api,
		store:  st,
		logger: slog.Default(),
		alert:  AlerterFunc(func(string) {}),
		now:    time.Now,
		loc:    time.Local,
	}
	for _, opt := range opts {
		opt(c)
	}
	today := c.today()
	c.selectedDate, c.viewMonth = today, today
	return c
}

// Store returns the store the coordinator writes to.
func (c *Coordinator) Store() *store.Store { return c.store }

// Location returns the timezone used for day bucketing.
func (c *Coordinator) Location() *time.Location { return c.loc }

// SelectedDate returns the day shown in the selected-date window.
func (c *Coordinator) SelectedDate() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectedDate
}

// ViewMonth returns the month shown by the calendar.
func (c *Coordinator) ViewMonth() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMonth
}

func (c *Coordinator) today() time.Time {
	return c.now().In(c.loc)
}

// Load fetches the calendar stats, today's window and the selected-date
// window. All three are attempted even when one fails.
func (c *Coordinator) Load(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return c.refreshStats(ctx) })
	g.Go(func() error { return c.refreshWindow(ctx, store.WindowToday) })
	g.Go(func() error { return c.refreshWindow(ctx, store.WindowSelected) })
	if err := g.Wait(); err != nil {
		return c.fail("load", err)
	}
	return nil
}

// SelectDate moves the selected-date window to day and fetches it.
func (c *Coordinator) SelectDate(ctx context.Context, day time.Time) error {
	c.mu.Lock()
	c.selectedDate = day.In(c.loc)
	c.mu.Unlock()
	if err := c.refreshWindow(ctx, store.WindowSelected); err != nil {
		return c.fail("select date", err)
	}
	return nil
}

// SetViewMonth moves the calendar to month and fetches its stats.
func (c *Coordinator) SetViewMonth(ctx context.Context, month time.Time) error {
	c.mu.Lock()
	c.viewMonth = month.In(c.loc)
	c.mu.Unlock()
	if err := c.refreshStats(ctx); err != nil {
		return c.fail("view month", err)
	}
	return nil
}

func (c *Coordinator) windowDay(w store.Window) time.Time {
	if w == store.WindowSelected {
		return c.SelectedDate()
	}
	return c.today()
}

func (c *Coordinator) refreshWindow(ctx context.Context, w store.Window) error {
	start, end := projection.DayRange(c.windowDay(w))
	tasks, err := c.api.FetchTasks(ctx, start, end)
	if err != nil {
		return fmt.Errorf("fetch %s window: %w", w, err)
	}
	c.store.SetWindow(w, tasks)
	return nil
}

func (c *Coordinator) refreshStats(ctx context.Context) error {
	start, end := projection.CalendarRange(c.ViewMonth())
	stats, err := c.api.FetchTaskStats(ctx, start, end)
	if err != nil {
		return fmt.Errorf("fetch stats: %w", err)
	}
	c.store.SetStats(stats)
	return nil
}

// statsAfterMutation refreshes the calendar counts; a failure there does not
// fail the mutation that triggered it.
func (c *Coordinator) statsAfterMutation(ctx context.Context) {
	if err := c.refreshStats(ctx); err != nil {
		_ = c.fail("refresh stats", err)
	}
}

// fail logs err, tears the session down on a 401 and returns err wrapped with op.
func (c *Coordinator) fail(op string, err error, attrs ...slog.Attr) error {
	args := []any{slog.String("op", op), slog.String("error", err.Error())}
	for _, a := range attrs {
		args = append(args, a)
	}
	c.logger.Error("coordinator: "+op+" failed", args...)
	if errors.Is(err, apperr.ErrUnauthorized) {
		c.Logout()
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Logout clears the session and every piece of loaded state.
func (c *Coordinator) Logout() {
	if c.session != nil {
		if err := c.session.Clear(); err != nil {
			c.logger.Warn("coordinator: clear session failed", slog.String("error", err.Error()))
		}
	}
	c.store.Reset()
}

func taskAttr(id int64) slog.Attr { return slog.Int64("task_id", id) }

func noteAttr(id int64) slog.Attr { return slog.Int64("note_id", id) }

func blank(s string) bool { return strings.TrimSpace(s) == "" }
