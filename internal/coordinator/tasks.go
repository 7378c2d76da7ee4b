package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/starford/tasknote/internal/apperr"
	"github.com/starford/tasknote/internal/models"
	"github.com/starford/tasknote/internal/sortindex"
	"github.com/starford/tasknote/internal/store"
)

// AddTask creates a task scheduled now and, when noteContent is not blank,
// its first note. The task is put into today's window at once, then both
// windows and the stats are refetched.
// A blank title is rejected without calling the backend.
func (c *Coordinator) AddTask(ctx context.Context, title, noteContent string) (models.Task, error) {
	now := c.now()
	n := models.NewTask{Title: strings.TrimSpace(title), TaskTime: &now}
	if err := n.Validate(); err != nil {
		return models.Task{}, err
	}

	task, err := c.api.CreateTask(ctx, n)
	if err != nil {
		c.alert.Alert("Failed to add task")
		return models.Task{}, c.fail("add task", err)
	}

	var noteErr error
	if !blank(noteContent) {
		note, err := c.api.CreateNote(ctx, task.ID, noteContent)
		if err != nil {
			noteErr = err
		} else {
			task.Notes = append(task.Notes, note)
		}
	}

	// The task exists remotely whether or not the note made it, so it is
	// shown even if the refetch below fails.
	c.store.Upsert(store.WindowToday, task)
	if models.DayKey(c.SelectedDate()) == models.DayKey(c.today()) {
		c.store.Upsert(store.WindowSelected, task)
	}
	if err := c.Load(ctx); err != nil {
		c.logger.Warn("coordinator: refetch after add failed", taskAttr(task.ID))
	}
	if noteErr != nil {
		c.alert.Alert("Failed to add task")
		return task, c.fail("add task note", noteErr, taskAttr(task.ID))
	}
	return task, nil
}

// ToggleTask flips the completion of a loaded task. Only the completion
// fields are taken from the response.
func (c *Coordinator) ToggleTask(ctx context.Context, id int64) (models.Task, error) {
	if _, ok := c.store.Find(id); !ok {
		return models.Task{}, fmt.Errorf("toggle task %d: %w", id, apperr.ErrNotFound)
	}
	server, err := c.api.ToggleTask(ctx, id)
	if err != nil {
		return models.Task{}, c.fail("toggle task", err, taskAttr(id))
	}
	c.store.Patch(id, store.ApplyCompletion(server))
	c.statsAfterMutation(ctx)
	task, _ := c.store.Find(id)
	return task, nil
}

// DeleteTask removes a loaded task. If it was focused the focus is cleared.
func (c *Coordinator) DeleteTask(ctx context.Context, id int64) error {
	if _, ok := c.store.Find(id); !ok {
		return fmt.Errorf("delete task %d: %w", id, apperr.ErrNotFound)
	}
	if err := c.api.DeleteTask(ctx, id); err != nil {
		return c.fail("delete task", err, taskAttr(id))
	}
	c.store.Remove(id)
	c.statsAfterMutation(ctx)
	return nil
}

// UpdateTask sends a partial update. The response is merged into every copy
// of the task; an update that can move the task to another day also
// refetches both windows and the stats.
func (c *Coordinator) UpdateTask(ctx context.Context, id int64, u models.TaskUpdate) (models.Task, error) {
	if err := u.Validate(); err != nil {
		return models.Task{}, err
	}
	server, err := c.api.UpdateTask(ctx, id, u)
	if err != nil {
		return models.Task{}, c.fail("update task", err, taskAttr(id))
	}
	c.store.Patch(id, func(t *models.Task) { *t = store.Reconcile(server, *t) })
	if u.MovesDay() {
		if err := c.Load(ctx); err != nil {
			c.logger.Warn("coordinator: refetch after update failed", taskAttr(id))
		}
	}
	if task, ok := c.store.Find(id); ok {
		return task, nil
	}
	return server, nil
}

// ReorderTasks applies a new order to a window. ids must be a permutation of
// the window's task ids. The new order shows immediately; only tasks whose
// sort order changed are sent, concurrently. If any of those writes fails
// everything is refetched from the backend.
func (c *Coordinator) ReorderTasks(ctx context.Context, w store.Window, ids []int64) error {
	previous := c.store.Window(w)
	ordered, err := sortindex.Arrange(previous, ids)
	if err != nil {
		return fmt.Errorf("reorder: %w", err)
	}
	next, changes := sortindex.Assign(previous, ordered)
	for _, ch := range changes {
		order := ch.SortOrder
		c.store.Patch(ch.TaskID, func(t *models.Task) { t.SortOrder = order })
	}
	c.store.SetWindow(w, next)
	day := models.DayKey(c.windowDay(w))
	for _, other := range []store.Window{store.WindowToday, store.WindowSelected} {
		if other != w && models.DayKey(c.windowDay(other)) == day {
			c.store.SortWindow(other)
		}
	}
	if len(changes) == 0 {
		return nil
	}

	var g errgroup.Group
	for _, ch := range changes {
		g.Go(func() error {
			_, err := c.api.UpdateTask(ctx, ch.TaskID, models.Reorder(ch.SortOrder))
			if err != nil {
				return fmt.Errorf("task %d: %w", ch.TaskID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		err = c.fail("reorder", err, slog.String("window", string(w)), slog.Int("changes", len(changes)))
		if lerr := c.Load(ctx); lerr != nil {
			c.logger.Warn("coordinator: refetch after reorder failed")
		}
		return err
	}
	return nil
}

// Search runs a full-text search. Results are returned, not stored; a blank
// query returns nothing without calling the backend.
func (c *Coordinator) Search(ctx context.Context, query string) ([]models.Task, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	tasks, err := c.api.SearchTasks(ctx, query)
	if err != nil {
		return nil, c.fail("search", err, slog.String("query", query))
	}
	return tasks, nil
}

// SelectTask focuses a loaded task.
func (c *Coordinator) SelectTask(id int64) error {
	task, ok := c.store.Find(id)
	if !ok {
		return fmt.Errorf("select task %d: %w", id, apperr.ErrNotFound)
	}
	c.store.Select(task)
	return nil
}

// SelectSearchResult focuses a task that came from Search and may not be in
// any window.
func (c *Coordinator) SelectSearchResult(task models.Task) {
	c.store.Select(task)
}

// CloseDetail clears the focus.
func (c *Coordinator) CloseDetail() {
	c.store.ClearFocus()
}
