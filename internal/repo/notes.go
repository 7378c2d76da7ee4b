package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/tasknote/internal/apperr"
	"github.com/starford/tasknote/internal/models"
)

const noteColumns = `id, task_id, content, created_at`

func scanNote(r rowScanner) (models.Note, error) {
	var (
		n  models.Note
		ms int64
	)
	if err := r.Scan(&n.ID, &n.TaskID, &n.Content, &ms); err != nil {
		return models.Note{}, err
	}
	n.CreatedAt = fromMillis(ms)
	return n, nil
}

// CreateNote attaches a note to one of the user's tasks. It returns
// apperr.ErrNotFound when the task does not exist or belongs to someone else.
func (db *DB) CreateNote(ctx context.Context, userID int64, n models.Note) (models.Note, error) {
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO notes (task_id, user_id, content, created_at)
		SELECT id, user_id, ?, ? FROM tasks WHERE id = ? AND user_id = ?
	`, n.Content, toMillis(n.CreatedAt), n.TaskID, userID)
	if err != nil {
		return models.Note{}, fmt.Errorf("repo: create note: %w", err)
	}
	if err := expectOne(res); err != nil {
		return models.Note{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Note{}, fmt.Errorf("repo: create note id: %w", err)
	}
	return db.GetNote(ctx, userID, id)
}

// GetNote returns one of the user's notes.
func (db *DB) GetNote(ctx context.Context, userID, id int64) (models.Note, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE id = ? AND user_id = ?`, id, userID)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Note{}, apperr.ErrNotFound
	}
	if err != nil {
		return models.Note{}, fmt.Errorf("repo: get note: %w", err)
	}
	return n, nil
}

// UpdateNote replaces a note's content.
func (db *DB) UpdateNote(ctx context.Context, userID, id int64, content string) (models.Note, error) {
	res, err := db.conn.ExecContext(ctx, `UPDATE notes SET content = ? WHERE id = ? AND user_id = ?`, content, id, userID)
	if err != nil {
		return models.Note{}, fmt.Errorf("repo: update note: %w", err)
	}
	if err := expectOne(res); err != nil {
		return models.Note{}, err
	}
	return db.GetNote(ctx, userID, id)
}

// DeleteNote removes a note.
func (db *DB) DeleteNote(ctx context.Context, userID, id int64) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM notes WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("repo: delete note: %w", err)
	}
	return expectOne(res)
}

func (db *DB) notesFor(ctx context.Context, query string, args ...any) ([]models.Note, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repo: list notes: %w", err)
	}
	defer rows.Close()
	var out []models.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("repo: scan note: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
