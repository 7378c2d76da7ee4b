package repo

import (
	"context"
	"time"

	"github.com/starford/tasknote/internal/models"
)

// Tasks is the task and note storage used by the service layer.
// Consumers depend on this interface rather than on *DB.
type Tasks interface {
	CreateTask(ctx context.Context, userID int64, t models.Task) (models.Task, error)
	GetTask(ctx context.Context, userID, id int64) (models.Task, error)
	SaveTask(ctx context.Context, userID int64, t models.Task) error
	DeleteTask(ctx context.Context, userID, id int64) error
	ListTasks(ctx context.Context, userID int64, start, end time.Time) ([]models.Task, error)
	MaxSortOrder(ctx context.Context, userID int64, start, end time.Time) (int, error)
	ScheduleTimes(ctx context.Context, userID int64, start, end time.Time) ([]ScheduleRow, error)
	SearchTasks(ctx context.Context, userID int64, query string, limit int) ([]models.Task, error)

	CreateNote(ctx context.Context, userID int64, n models.Note) (models.Note, error)
	GetNote(ctx context.Context, userID, id int64) (models.Note, error)
	UpdateNote(ctx context.Context, userID, id int64, content string) (models.Note, error)
	DeleteNote(ctx context.Context, userID, id int64) error
}

// Verify *DB satisfies Tasks at compile time.
var _ Tasks = (*DB)(nil)

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms) }
