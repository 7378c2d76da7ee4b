package coordinator

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/starford/tasknote/internal/apperr"
	"github.com/starford/tasknote/internal/models"
)

// AddNote appends a note to a task.
func (c *Coordinator) AddNote(ctx context.Context, taskID int64, content string) (models.Note, error) {
	if blank(content) {
		return models.Note{}, fmt.Errorf("%w: note content is required", apperr.ErrValidation)
	}
	note, err := c.api.CreateNote(ctx, taskID, content)
	if err != nil {
		return models.Note{}, c.fail("add note", err, taskAttr(taskID))
	}
	c.store.AppendNote(taskID, note)
	return note, nil
}

// UpdateNote replaces the content of a note the store knows about.
func (c *Coordinator) UpdateNote(ctx context.Context, taskID, noteID int64, content string) (models.Note, error) {
	if blank(content) {
		return models.Note{}, fmt.Errorf("%w: note content is required", apperr.ErrValidation)
	}
	task, ok := c.store.Find(taskID)
	if !ok || task.NoteIndex(noteID) < 0 {
		return models.Note{}, fmt.Errorf("update note %d: %w", noteID, apperr.ErrNotFound)
	}
	note, err := c.api.UpdateNote(ctx, noteID, content)
	if err != nil {
		return models.Note{}, c.fail("update note", err, taskAttr(taskID), noteAttr(noteID))
	}
	c.store.ReplaceNote(taskID, note)
	return note, nil
}

// DeleteNote removes a note from a task.
func (c *Coordinator) DeleteNote(ctx context.Context, taskID, noteID int64) error {
	if err := c.api.DeleteNote(ctx, noteID); err != nil {
		return c.fail("delete note", err, taskAttr(taskID), noteAttr(noteID))
	}
	c.store.RemoveNote(taskID, noteID)
	return nil
}

// UploadImage uploads an image for embedding in a note and returns the
// markdown that references it.
func (c *Coordinator) UploadImage(ctx context.Context, filename string, r io.Reader) (string, error) {
	url, err := c.api.UploadImage(ctx, filename, r)
	if err != nil {
		return "", c.fail("upload image", err)
	}
	return MarkdownImage(filename, url), nil
}

// MarkdownImage formats an image reference for note content.
func MarkdownImage(filename, url string) string {
	alt := strings.TrimSuffix(path.Base(filename), path.Ext(filename))
	return fmt.Sprintf("![%s](%s)", alt, url)
}
