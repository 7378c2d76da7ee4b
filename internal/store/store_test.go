package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/tasknote/internal/models"
)

func task(id int64, title string, sortOrder int) models.Task {
	return models.Task{ID: id, Title: title, SortOrder: sortOrder, CreatedAt: time.UnixMilli(1_700_000_000_000), Notes: []models.Note{}}
}

func seeded(t *testing.T) *Store {
	t.Helper()
	s := New()
	s.SetWindow(WindowToday, []models.Task{task(1, "a", 100), task(2, "b", 200)})
	s.SetWindow(WindowSelected, []models.Task{task(2, "b", 200), task(3, "c", 300)})
	return s
}

func TestPatchUpdatesEveryCopy(t *testing.T) {
	s := seeded(t)
	s.Select(task(2, "b", 200))

	found := s.Patch(2, func(tk *models.Task) { tk.Title = "renamed" })
	require.True(t, found)

	assert.Equal(t, "renamed", s.Window(WindowToday)[1].Title)
	assert.Equal(t, "renamed", s.Window(WindowSelected)[0].Title)
	focus, ok := s.Focus()
	require.True(t, ok)
	assert.Equal(t, "renamed", focus.Title)
}

func TestPatchMissingIsNoop(t *testing.T) {
	s := seeded(t)
	before := s.Window(WindowToday)
	assert.False(t, s.Patch(99, func(tk *models.Task) { tk.Title = "x" }))
	assert.Equal(t, before, s.Window(WindowToday))
}

func TestEmptyPatchLeavesStoreUnchanged(t *testing.T) {
	s := seeded(t)
	s.Select(task(1, "a", 100))
	today, selected := s.Window(WindowToday), s.Window(WindowSelected)
	focus, _ := s.Focus()

	s.Patch(1, func(*models.Task) {})

	assert.Equal(t, today, s.Window(WindowToday))
	assert.Equal(t, selected, s.Window(WindowSelected))
	after, _ := s.Focus()
	assert.Equal(t, focus, after)
}

func TestRemoveClearsAllWindowsAndFocus(t *testing.T) {
	s := seeded(t)
	s.Select(task(2, "b", 200))

	require.True(t, s.Remove(2))

	for _, w := range []Window{WindowToday, WindowSelected} {
		for _, tk := range s.Window(w) {
			assert.NotEqual(t, int64(2), tk.ID, "window %s still holds removed task", w)
		}
	}
	_, ok := s.Focus()
	assert.False(t, ok)
}

func TestRemoveKeepsUnrelatedFocus(t *testing.T) {
	s := seeded(t)
	s.Select(task(3, "c", 300))
	s.Remove(1)
	focus, ok := s.Focus()
	require.True(t, ok)
	assert.Equal(t, int64(3), focus.ID)
}

func TestUpsertReplacesAndInserts(t *testing.T) {
	s := seeded(t)
	s.Upsert(WindowToday, task(2, "b2", 200))
	assert.Equal(t, "b2", s.Window(WindowSelected)[0].Title)

	s.Upsert(WindowToday, task(4, "d", 0))
	today := s.Window(WindowToday)
	require.Len(t, today, 3)
	assert.Equal(t, int64(4), today[2].ID)
	assert.Len(t, s.Window(WindowSelected), 2)
}

func TestNoteOperations(t *testing.T) {
	s := seeded(t)
	note := models.Note{ID: 10, TaskID: 2, Content: "hello"}

	require.True(t, s.AppendNote(2, note))
	s.AppendNote(2, note)
	assert.Len(t, s.Window(WindowToday)[1].Notes, 1, "duplicate note id appended")
	assert.Len(t, s.Window(WindowSelected)[0].Notes, 1)

	s.ReplaceNote(2, models.Note{ID: 10, TaskID: 2, Content: "edited"})
	assert.Equal(t, "edited", s.Window(WindowSelected)[0].Notes[0].Content)

	s.RemoveNote(2, 10)
	assert.Empty(t, s.Window(WindowToday)[1].Notes)
	assert.Empty(t, s.Window(WindowSelected)[0].Notes)
}

func TestReadsReturnCopies(t *testing.T) {
	s := seeded(t)
	list := s.Window(WindowToday)
	list[0].Title = "mutated"
	assert.Equal(t, "a", s.Window(WindowToday)[0].Title)
}

func TestSelectPrefersWindowCopy(t *testing.T) {
	s := seeded(t)
	stale := task(1, "stale", 100)
	s.Select(stale)
	focus, _ := s.Focus()
	assert.Equal(t, "a", focus.Title)
}

func TestSetWindowRefreshesFocus(t *testing.T) {
	s := seeded(t)
	s.Select(task(1, "a", 100))
	s.SetWindow(WindowToday, []models.Task{task(1, "fresh", 100)})
	focus, _ := s.Focus()
	assert.Equal(t, "fresh", focus.Title)
}

func TestReset(t *testing.T) {
	s := seeded(t)
	s.Select(task(1, "a", 100))
	s.SetStats([]models.TaskStat{{Date: "2024-01-01", TotalCount: 1}})
	s.Reset()
	assert.Empty(t, s.Window(WindowToday))
	assert.Empty(t, s.Stats())
	_, ok := s.Focus()
	assert.False(t, ok)
}

func TestReconcile(t *testing.T) {
	local := task(1, "old", 100)
	local.Notes = []models.Note{{ID: 5, Content: "keep me"}}

	server := models.Task{ID: 1, Title: "new", SortOrder: 300}
	merged := Reconcile(server, local)
	assert.Equal(t, "new", merged.Title)
	assert.Equal(t, 300, merged.SortOrder)
	require.Len(t, merged.Notes, 1)
	assert.Equal(t, "keep me", merged.Notes[0].Content)

	server.Notes = []models.Note{}
	assert.Empty(t, Reconcile(server, local).Notes)
}

func TestApplyCompletion(t *testing.T) {
	s := seeded(t)
	done := time.Now()
	s.Patch(1, ApplyCompletion(models.Task{ID: 1, Completed: true, CompletedAt: &done, Title: "server"}))
	got := s.Window(WindowToday)[0]
	assert.True(t, got.Completed)
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, "a", got.Title)

	s.Patch(1, ApplyCompletion(models.Task{ID: 1}))
	got = s.Window(WindowToday)[0]
	assert.False(t, got.Completed)
	assert.Nil(t, got.CompletedAt)
}

func TestSortWindow(t *testing.T) {
	s := New()
	s.SetWindow(WindowSelected, []models.Task{task(1, "a", 200), task(2, "b", 100), task(3, "c", 100)})

	s.SortWindow(WindowSelected)

	got := s.Window(WindowSelected)
	assert.Equal(t, []int64{2, 3, 1}, []int64{got[0].ID, got[1].ID, got[2].ID})

	s.SortWindow(WindowToday)
	assert.Empty(t, s.Window(WindowToday))
}
