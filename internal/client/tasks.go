package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/starford/tasknote/internal/models"
	"github.com/starford/tasknote/internal/wire"
)

func rangeQuery(start, end time.Time) url.Values {
	q := url.Values{}
	q.Set("start_date", strconv.FormatInt(wire.Millis(start), 10))
	q.Set("end_date", strconv.FormatInt(wire.Millis(end), 10))
	return q
}

func taskPath(id int64) string { return "/tasks/" + strconv.FormatInt(id, 10) }

func notePath(id int64) string { return "/notes/" + strconv.FormatInt(id, 10) }

// FetchTasks lists the tasks whose task time lies in [start, end], notes included.
func (c *Client) FetchTasks(ctx context.Context, start, end time.Time) ([]models.Task, error) {
	var out []wire.TaskDTO
	if err := c.doJSON(ctx, http.MethodGet, "/tasks", rangeQuery(start, end), nil, &out); err != nil {
		return nil, err
	}
	return wire.TasksFromDTO(out), nil
}

// FetchTaskStats returns per-day counts for [start, end].
func (c *Client) FetchTaskStats(ctx context.Context, start, end time.Time) ([]models.TaskStat, error) {
	var out []wire.TaskStatDTO
	if err := c.doJSON(ctx, http.MethodGet, "/tasks/stats", rangeQuery(start, end), nil, &out); err != nil {
		return nil, err
	}
	stats := make([]models.TaskStat, 0, len(out))
	for _, d := range out {
		stats = append(stats, wire.StatFromDTO(d))
	}
	return stats, nil
}

// CreateTask creates a task; the backend assigns its id.
func (c *Client) CreateTask(ctx context.Context, n models.NewTask) (models.Task, error) {
	var out wire.TaskDTO
	if err := c.doJSON(ctx, http.MethodPost, "/tasks", nil, wire.NewTaskRequest(n), &out); err != nil {
		return models.Task{}, err
	}
	return wire.TaskFromDTO(out), nil
}

// UpdateTask sends a partial update.
func (c *Client) UpdateTask(ctx context.Context, id int64, u models.TaskUpdate) (models.Task, error) {
	var out wire.TaskDTO
	if err := c.doJSON(ctx, http.MethodPut, taskPath(id), nil, wire.UpdateRequest(u), &out); err != nil {
		return models.Task{}, err
	}
	return wire.TaskFromDTO(out), nil
}

// ToggleTask flips the completion state.
func (c *Client) ToggleTask(ctx context.Context, id int64) (models.Task, error) {
	var out wire.TaskDTO
	if err := c.doJSON(ctx, http.MethodPatch, taskPath(id)+"/toggle", nil, nil, &out); err != nil {
		return models.Task{}, err
	}
	return wire.TaskFromDTO(out), nil
}

// DeleteTask deletes a task and its notes.
func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, taskPath(id), nil, nil, nil)
}

// CreateNote attaches a new note to a task.
func (c *Client) CreateNote(ctx context.Context, taskID int64, content string) (models.Note, error) {
	var out wire.NoteDTO
	req := wire.CreateNoteRequest{TaskID: taskID, Content: content}
	if err := c.doJSON(ctx, http.MethodPost, "/notes", nil, req, &out); err != nil {
		return models.Note{}, err
	}
	return wire.NoteFromDTO(out), nil
}

// UpdateNote replaces a note's content.
func (c *Client) UpdateNote(ctx context.Context, noteID int64, content string) (models.Note, error) {
	var out wire.NoteDTO
	req := wire.UpdateNoteRequest{Content: content}
	if err := c.doJSON(ctx, http.MethodPut, notePath(noteID), nil, req, &out); err != nil {
		return models.Note{}, err
	}
	return wire.NoteFromDTO(out), nil
}

// DeleteNote deletes a note.
func (c *Client) DeleteNote(ctx context.Context, noteID int64) error {
	return c.doJSON(ctx, http.MethodDelete, notePath(noteID), nil, nil, nil)
}

// SearchTasks runs a keyword search; results carry highlights.
func (c *Client) SearchTasks(ctx context.Context, query string) ([]models.Task, error) {
	var out []wire.TaskDTO
	q := url.Values{}
	q.Set("q", query)
	if err := c.doJSON(ctx, http.MethodGet, "/search", q, nil, &out); err != nil {
		return nil, err
	}
	return wire.TasksFromDTO(out), nil
}
