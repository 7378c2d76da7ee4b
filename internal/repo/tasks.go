package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/tasknote/internal/apperr"
	"github.com/starford/tasknote/internal/models"
)

const taskColumns = `id, title, completed, completed_at, created_at, task_time, time_spent, time_unit, sort_order`

// ScheduleRow is the slice of a task the calendar statistics need.
type ScheduleRow struct {
	TaskTime  time.Time
	Completed bool
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(r rowScanner) (models.Task, error) {
	var (
		t           models.Task
		completedAt sql.NullInt64
		createdAt   int64
		taskTime    int64
		timeSpent   sql.NullFloat64
		unit        string
	)
	if err := r.Scan(&t.ID, &t.Title, &t.Completed, &completedAt, &createdAt, &taskTime, &timeSpent, &unit, &t.SortOrder); err != nil {
		return models.Task{}, err
	}
	t.CreatedAt = fromMillis(createdAt)
	at := fromMillis(taskTime)
	t.TaskTime = &at
	if completedAt.Valid {
		c := fromMillis(completedAt.Int64)
		t.CompletedAt = &c
	}
	if timeSpent.Valid {
		v := timeSpent.Float64
		t.TimeSpent = &v
	}
	t.TimeUnit = models.TimeUnit(unit)
	return t, nil
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*t), Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

// CreateTask inserts t for the user and returns it with its assigned id.
// t.TaskTime must be set.
func (db *DB) CreateTask(ctx context.Context, userID int64, t models.Task) (models.Task, error) {
	if t.TaskTime == nil {
		return models.Task{}, fmt.Errorf("repo: create task: task time is required")
	}
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO tasks (user_id, title, completed, completed_at, created_at, task_time, time_spent, time_unit, sort_order)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, userID, t.Title, t.Completed, nullMillis(t.CompletedAt), toMillis(t.CreatedAt), toMillis(*t.TaskTime),
		nullFloat(t.TimeSpent), string(t.TimeUnit), t.SortOrder)
	if err != nil {
		return models.Task{}, fmt.Errorf("repo: create task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Task{}, fmt.Errorf("repo: create task id: %w", err)
	}
	return db.GetTask(ctx, userID, id)
}

// GetTask returns one task without its notes.
func (db *DB) GetTask(ctx context.Context, userID, id int64) (models.Task, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, apperr.ErrNotFound
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("repo: get task: %w", err)
	}
	return t, nil
}

// SaveTask writes every mutable column of t.
func (db *DB) SaveTask(ctx context.Context, userID int64, t models.Task) error {
	taskTime := t.Scheduled()
	res, err := db.conn.ExecContext(ctx, `
		UPDATE tasks SET
			title        = ?,
			completed    = ?,
			completed_at = ?,
			task_time    = ?,
			time_spent   = ?,
			time_unit    = ?,
			sort_order   = ?
		WHERE id = ? AND user_id = ?
	`, t.Title, t.Completed, nullMillis(t.CompletedAt), toMillis(taskTime), nullFloat(t.TimeSpent),
		string(t.TimeUnit), t.SortOrder, t.ID, userID)
	if err != nil {
		return fmt.Errorf("repo: save task: %w", err)
	}
	return expectOne(res)
}

// DeleteTask removes a task; its notes go with it.
func (db *DB) DeleteTask(ctx context.Context, userID, id int64) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("repo: delete task: %w", err)
	}
	return expectOne(res)
}

// ListTasks returns the tasks scheduled in [start, end] ordered by sort order
// then id, each with its notes in creation order.
func (db *DB) ListTasks(ctx context.Context, userID int64, start, end time.Time) ([]models.Task, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE user_id = ? AND task_time BETWEEN ? AND ?
		ORDER BY sort_order, id
	`, userID, toMillis(start), toMillis(end))
	if err != nil {
		return nil, fmt.Errorf("repo: list tasks: %w", err)
	}
	tasks, err := collectTasks(rows)
	if err != nil {
		return nil, err
	}

	notes, err := db.notesFor(ctx, `
		SELECT `+noteColumns+` FROM notes
		WHERE user_id = ? AND task_id IN (
			SELECT id FROM tasks WHERE user_id = ? AND task_time BETWEEN ? AND ?
		)
		ORDER BY created_at, id
	`, userID, userID, toMillis(start), toMillis(end))
	if err != nil {
		return nil, err
	}
	attachNotes(tasks, notes)
	return tasks, nil
}

// MaxSortOrder returns the highest sort order among the user's tasks in
// [start, end], or 0 when there are none.
func (db *DB) MaxSortOrder(ctx context.Context, userID int64, start, end time.Time) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(sort_order), 0) FROM tasks
		WHERE user_id = ? AND task_time BETWEEN ? AND ?
	`, userID, toMillis(start), toMillis(end)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("repo: max sort order: %w", err)
	}
	return n, nil
}

// ScheduleTimes returns when each of the user's tasks in [start, end] is
// scheduled and whether it is done.
func (db *DB) ScheduleTimes(ctx context.Context, userID int64, start, end time.Time) ([]ScheduleRow, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT task_time, completed FROM tasks
		WHERE user_id = ? AND task_time BETWEEN ? AND ?
	`, userID, toMillis(start), toMillis(end))
	if err != nil {
		return nil, fmt.Errorf("repo: schedule times: %w", err)
	}
	defer rows.Close()

	var out []ScheduleRow
	for rows.Next() {
		var (
			ms int64
			r  ScheduleRow
		)
		if err := rows.Scan(&ms, &r.Completed); err != nil {
			return nil, err
		}
		r.TaskTime = fromMillis(ms)
		out = append(out, r)
	}
	return out, rows.Err()
}

// SearchTasks returns up to limit tasks whose title or any note contains
// query, newest first, each with all of its notes. Matching is a plain
// case-insensitive substring test so that text without word boundaries
// (CJK in particular) is found too.
func (db *DB) SearchTasks(ctx context.Context, userID int64, query string, limit int) ([]models.Task, error) {
	if limit <= 0 {
		limit = 50
	}
	like := "%" + escapeLike(query) + "%"
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM tasks t
		WHERE t.user_id = ? AND (
			t.title LIKE ? ESCAPE '\'
			OR EXISTS (SELECT 1 FROM notes n WHERE n.task_id = t.id AND n.content LIKE ? ESCAPE '\')
		)
		ORDER BY t.task_time DESC, t.id DESC
		LIMIT ?
	`, userID, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("repo: search: %w", err)
	}
	tasks, err := collectTasks(rows)
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		notes, err := db.notesFor(ctx, `SELECT `+noteColumns+` FROM notes WHERE task_id = ? AND user_id = ? ORDER BY created_at, id`,
			tasks[i].ID, userID)
		if err != nil {
			return nil, err
		}
		tasks[i].Notes = notes
		if tasks[i].Notes == nil {
			tasks[i].Notes = []models.Note{}
		}
	}
	return tasks, nil
}

func collectTasks(rows *sql.Rows) ([]models.Task, error) {
	defer rows.Close()
	var out []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("repo: scan task: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func attachNotes(tasks []models.Task, notes []models.Note) {
	byTask := make(map[int64][]models.Note)
	for _, n := range notes {
		byTask[n.TaskID] = append(byTask[n.TaskID], n)
	}
	for i := range tasks {
		tasks[i].Notes = byTask[tasks[i].ID]
		if tasks[i].Notes == nil {
			tasks[i].Notes = []models.Note{}
		}
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("repo: rows affected: %w", err)
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
