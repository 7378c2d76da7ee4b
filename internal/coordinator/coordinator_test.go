package coordinator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/tasknote/internal/apperr"
	"github.com/starford/tasknote/internal/client"
	"github.com/starford/tasknote/internal/models"
	"github.com/starford/tasknote/internal/store"
)

var testNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

type harness struct {
	api     *fakeAPI
	store   *store.Store
	session *fakeSession
	alerts  *alerts
	c       *Coordinator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	now := func() time.Time { return testNow }
	h := &harness{
		api:     newFakeAPI(now),
		store:   store.New(),
		session: &fakeSession{},
		alerts:  &alerts{},
	}
	h.c = New(h.api, h.store,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithAlerter(h.alerts),
		WithSession(h.session),
		WithClock(now),
		WithLocation(time.UTC),
	)
	return h
}

func ids(tasks []models.Task) []int64 {
	out := make([]int64, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestLoad(t *testing.T) {
	h := newHarness(t)
	h.api.seed("today", testNow, 100)
	h.api.seed("yesterday", testNow.Add(-24*time.Hour), 100)
	h.api.seed("next month", testNow.AddDate(0, 1, 0), 100)

	require.NoError(t, h.c.Load(context.Background()))

	assert.Equal(t, []int64{1}, ids(h.store.Window(store.WindowToday)))
	assert.Equal(t, []int64{1}, ids(h.store.Window(store.WindowSelected)))
	stats := h.store.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, "2024-03-14", stats[0].Date)
	assert.Equal(t, "2024-03-15", stats[1].Date)
}

func TestSelectDate(t *testing.T) {
	h := newHarness(t)
	h.api.seed("today", testNow, 100)
	h.api.seed("tomorrow", testNow.Add(24*time.Hour), 100)
	ctx := context.Background()
	require.NoError(t, h.c.Load(ctx))

	require.NoError(t, h.c.SelectDate(ctx, testNow.Add(24*time.Hour)))

	assert.Equal(t, []int64{1}, ids(h.store.Window(store.WindowToday)))
	assert.Equal(t, []int64{2}, ids(h.store.Window(store.WindowSelected)))
}

func TestAddTaskRejectsBlankTitle(t *testing.T) {
	h := newHarness(t)

	_, err := h.c.AddTask(context.Background(), "   ", "note")

	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Zero(t, h.api.totalCalls())
	assert.Empty(t, h.alerts.msgs)
}

func TestAddTaskWithNote(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	task, err := h.c.AddTask(ctx, "  Buy milk ", "2 liters")
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", task.Title)

	today := h.store.Window(store.WindowToday)
	require.Len(t, today, 1)
	assert.Equal(t, task.ID, today[0].ID)
	require.Len(t, today[0].Notes, 1)
	assert.Equal(t, "2 liters", today[0].Notes[0].Content)
	assert.Equal(t, 1, h.api.callCount("CreateNote"))
}

func TestAddTaskShownWhenRefetchFails(t *testing.T) {
	h := newHarness(t)
	h.api.fail["FetchTasks"] = errors.New("offline")

	task, err := h.c.AddTask(context.Background(), "Buy milk", "")

	require.NoError(t, err)
	for _, w := range []store.Window{store.WindowToday, store.WindowSelected} {
		assert.Equal(t, []int64{task.ID}, ids(h.store.Window(w)), w)
	}
}

func TestAddTaskFailureAlerts(t *testing.T) {
	h := newHarness(t)
	h.api.fail["CreateTask"] = errors.New("boom")

	_, err := h.c.AddTask(context.Background(), "Buy milk", "")

	require.Error(t, err)
	assert.Equal(t, []string{"Failed to add task"}, h.alerts.msgs)
	assert.Empty(t, h.store.Window(store.WindowToday))
}

func TestToggleUpdatesEveryCopy(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	seeded := h.api.seed("write report", testNow, 100)
	_, err := h.api.CreateNote(ctx, seeded.ID, "outline first")
	require.NoError(t, err)
	require.NoError(t, h.c.Load(ctx))
	require.NoError(t, h.c.SelectTask(seeded.ID))

	task, err := h.c.ToggleTask(ctx, seeded.ID)
	require.NoError(t, err)
	assert.True(t, task.Completed)

	for _, w := range []store.Window{store.WindowToday, store.WindowSelected} {
		list := h.store.Window(w)
		require.Len(t, list, 1, w)
		assert.True(t, list[0].Completed, w)
		require.NotNil(t, list[0].CompletedAt, w)
		assert.Len(t, list[0].Notes, 1, "notes survive a toggle response without notes")
	}
	focus, ok := h.store.Focus()
	require.True(t, ok)
	assert.True(t, focus.Completed)
	assert.Equal(t, 0, h.store.Stats()[0].UnCompletedCount)
}

func TestToggleUnknownTask(t *testing.T) {
	h := newHarness(t)

	_, err := h.c.ToggleTask(context.Background(), 42)

	require.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Zero(t, h.api.callCount("ToggleTask"))
}

func TestDeleteClearsFocus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	seeded := h.api.seed("obsolete", testNow, 100)
	require.NoError(t, h.c.Load(ctx))
	require.NoError(t, h.c.SelectTask(seeded.ID))

	require.NoError(t, h.c.DeleteTask(ctx, seeded.ID))

	_, ok := h.store.Focus()
	assert.False(t, ok)
	assert.Empty(t, h.store.Window(store.WindowToday))
	assert.Empty(t, h.store.Window(store.WindowSelected))
}

func TestDeleteFailureKeepsStore(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	seeded := h.api.seed("keep me", testNow, 100)
	require.NoError(t, h.c.Load(ctx))
	h.api.fail["DeleteTask"] = errors.New("boom")

	require.Error(t, h.c.DeleteTask(ctx, seeded.ID))

	assert.Len(t, h.store.Window(store.WindowToday), 1)
}

func TestNoteAddThenDeleteRestoresNotes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	seeded := h.api.seed("task", testNow, 100)
	require.NoError(t, h.c.Load(ctx))
	before := h.store.Window(store.WindowToday)[0].Notes

	note, err := h.c.AddNote(ctx, seeded.ID, "hello")
	require.NoError(t, err)
	assert.Len(t, h.store.Window(store.WindowSelected)[0].Notes, 1)

	require.NoError(t, h.c.DeleteNote(ctx, seeded.ID, note.ID))
	assert.Equal(t, before, h.store.Window(store.WindowToday)[0].Notes)
}

func TestUpdateNote(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	seeded := h.api.seed("task", testNow, 100)
	require.NoError(t, h.c.Load(ctx))
	note, err := h.c.AddNote(ctx, seeded.ID, "draft")
	require.NoError(t, err)

	_, err = h.c.UpdateNote(ctx, seeded.ID, note.ID, "final")
	require.NoError(t, err)
	assert.Equal(t, "final", h.store.Window(store.WindowToday)[0].Notes[0].Content)

	_, err = h.c.UpdateNote(ctx, seeded.ID, 999, "x")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = h.c.AddNote(ctx, seeded.ID, " ")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestRenameKeepsLocalNotes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	seeded := h.api.seed("old", testNow, 100)
	_, err := h.c.AddTask(ctx, "unrelated", "")
	require.NoError(t, err)
	_, err = h.c.AddNote(ctx, seeded.ID, "n")
	require.NoError(t, err)

	_, err = h.c.UpdateTask(ctx, seeded.ID, models.Rename("new"))
	require.NoError(t, err)

	got, ok := h.store.Find(seeded.ID)
	require.True(t, ok)
	assert.Equal(t, "new", got.Title)
	assert.Len(t, got.Notes, 1)
}

func TestRescheduleMovesTaskOutOfToday(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	seeded := h.api.seed("move me", testNow, 100)
	require.NoError(t, h.c.Load(ctx))
	require.NoError(t, h.c.SelectTask(seeded.ID))

	tomorrow := testNow.Add(24 * time.Hour)
	_, err := h.c.UpdateTask(ctx, seeded.ID, models.Reschedule(tomorrow))
	require.NoError(t, err)

	assert.Empty(t, h.store.Window(store.WindowToday))
	focus, ok := h.store.Focus()
	require.True(t, ok)
	assert.True(t, focus.TaskTime.Equal(tomorrow))

	require.NoError(t, h.c.SelectDate(ctx, tomorrow))
	assert.Equal(t, []int64{seeded.ID}, ids(h.store.Window(store.WindowSelected)))
}

func TestUpdateRejectsInvalidWithoutCall(t *testing.T) {
	h := newHarness(t)

	_, err := h.c.UpdateTask(context.Background(), 1, models.TrackEffort(-1, models.TimeUnitHour))

	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Zero(t, h.api.totalCalls())
}

func TestReorderSendsOnlyChangedTasks(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.api.seed("a", testNow, 100)
	h.api.seed("b", testNow, 200)
	h.api.seed("c", testNow, 300)
	require.NoError(t, h.c.Load(ctx))

	require.NoError(t, h.c.ReorderTasks(ctx, store.WindowToday, []int64{2, 1, 3}))

	assert.Equal(t, 2, h.api.callCount("UpdateTask"))
	assert.Equal(t, map[int64]int{2: 100, 1: 200}, h.api.sortsSent())
	today := h.store.Window(store.WindowToday)
	assert.Equal(t, []int64{2, 1, 3}, ids(today))
	assert.Equal(t, []int{100, 200, 300}, []int{today[0].SortOrder, today[1].SortOrder, today[2].SortOrder})

	selected, ok := h.store.Find(2)
	require.True(t, ok)
	assert.Equal(t, 100, selected.SortOrder)
}

func TestReorderLastAboveFirst(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.api.seed("a", testNow, 100)
	b := h.api.seed("b", testNow, 200)
	c := h.api.seed("c", testNow, 300)
	require.NoError(t, h.c.Load(ctx))

	require.NoError(t, h.c.ReorderTasks(ctx, store.WindowToday, []int64{c.ID, a.ID, b.ID}))

	assert.Equal(t, map[int64]int{c.ID: 100, a.ID: 200, b.ID: 300}, h.api.sortsSent())
	require.NoError(t, h.c.Load(ctx))
	assert.Equal(t, []int64{c.ID, a.ID, b.ID}, ids(h.store.Window(store.WindowToday)))
}

func TestReorderUnchangedTailIsNotSent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.api.seed("a", testNow, 100)
	b := h.api.seed("b", testNow, 200)
	c := h.api.seed("c", testNow, 300)
	d := h.api.seed("d", testNow, 400)
	require.NoError(t, h.c.Load(ctx))

	require.NoError(t, h.c.ReorderTasks(ctx, store.WindowToday, []int64{b.ID, a.ID, c.ID, d.ID}))

	sent := h.api.sortsSent()
	assert.Equal(t, map[int64]int{b.ID: 100, a.ID: 200}, sent)
	assert.NotContains(t, sent, c.ID)
	assert.NotContains(t, sent, d.ID)
}

func TestReorderResortsSelectedWindowOnSameDay(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.api.seed("a", testNow, 100)
	h.api.seed("b", testNow, 200)
	h.api.seed("c", testNow, 300)
	require.NoError(t, h.c.Load(ctx))
	require.Equal(t, []int64{1, 2, 3}, ids(h.store.Window(store.WindowSelected)))

	require.NoError(t, h.c.ReorderTasks(ctx, store.WindowToday, []int64{3, 1, 2}))

	selected := h.store.Window(store.WindowSelected)
	assert.Equal(t, []int64{3, 1, 2}, ids(selected))
	assert.Equal(t, []int{100, 200, 300}, []int{selected[0].SortOrder, selected[1].SortOrder, selected[2].SortOrder})
}

func TestReorderLeavesOtherDayAlone(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	yesterday := testNow.AddDate(0, 0, -1)
	h.api.seed("a", testNow, 100)
	h.api.seed("b", testNow, 200)
	h.api.seed("old", yesterday, 100)
	require.NoError(t, h.c.SelectDate(ctx, yesterday))
	require.NoError(t, h.c.Load(ctx))

	require.NoError(t, h.c.ReorderTasks(ctx, store.WindowToday, []int64{2, 1}))

	assert.Equal(t, []int64{3}, ids(h.store.Window(store.WindowSelected)))
}

func TestReorderFailureRefetches(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.api.seed("a", testNow, 100)
	h.api.seed("b", testNow, 200)
	h.api.seed("c", testNow, 300)
	require.NoError(t, h.c.Load(ctx))
	h.api.failTask[1] = errors.New("boom")

	err := h.c.ReorderTasks(ctx, store.WindowToday, []int64{2, 1, 3})

	require.Error(t, err)
	// Task 2 reached 100, task 1 stayed at 100; ties break by id.
	assert.Equal(t, []int64{1, 2, 3}, ids(h.store.Window(store.WindowToday)))
}

func TestReorderRejectsNonPermutation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.api.seed("a", testNow, 100)
	require.NoError(t, h.c.Load(ctx))

	require.Error(t, h.c.ReorderTasks(ctx, store.WindowToday, []int64{1, 7}))
	assert.Zero(t, h.api.callCount("UpdateTask"))
}

func TestUnauthorizedClearsSessionAndStore(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.api.seed("a", testNow, 100)
	require.NoError(t, h.c.Load(ctx))
	h.api.fail["ToggleTask"] = &client.StatusError{Code: 401, Message: "unauthorized"}

	_, err := h.c.ToggleTask(ctx, 1)

	require.ErrorIs(t, err, apperr.ErrUnauthorized)
	assert.Equal(t, 1, h.session.cleared)
	assert.Empty(t, h.store.Window(store.WindowToday))
	assert.Empty(t, h.store.Stats())
}

func TestSearch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.api.seed("milk", testNow.AddDate(0, -2, 0), 100)

	res, err := h.c.Search(ctx, "  ")
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Zero(t, h.api.callCount("SearchTasks"))

	res, err = h.c.Search(ctx, "milk")
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Empty(t, h.store.Window(store.WindowToday))

	h.c.SelectSearchResult(res[0])
	focus, ok := h.store.Focus()
	require.True(t, ok)
	assert.Equal(t, "milk", focus.Title)
	h.c.CloseDetail()
	_, ok = h.store.Focus()
	assert.False(t, ok)
}

func TestUploadImage(t *testing.T) {
	h := newHarness(t)

	md, err := h.c.UploadImage(context.Background(), "shot.png", strings.NewReader("png"))

	require.NoError(t, err)
	assert.Equal(t, "![shot](/uploads/shot.png)", md)
}

type fakeAuth struct {
	res client.LoginResult
	err error
}

func (f fakeAuth) Login(context.Context, string, string, string) (client.LoginResult, error) {
	return f.res, f.err
}

type activations struct{ token, username string }

func (a *activations) Activate(token, username string) error {
	a.token, a.username = token, username
	return nil
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	var sess activations
	err := Login(ctx, fakeAuth{res: client.LoginResult{Require2FA: true}}, &sess, "ann", "pw", "")
	require.ErrorIs(t, err, apperr.ErrTwoFactorRequired)
	assert.Empty(t, sess.token)

	err = Login(ctx, fakeAuth{res: client.LoginResult{Token: "tok", Username: "ann"}}, &sess, "ann", "pw", "123456")
	require.NoError(t, err)
	assert.Equal(t, activations{token: "tok", username: "ann"}, sess)

	err = Login(ctx, fakeAuth{}, &sess, "", "pw", "")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
