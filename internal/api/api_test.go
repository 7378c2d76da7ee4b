package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/tasknote/internal/auth"
	"github.com/starford/tasknote/internal/sse"
	"github.com/starford/tasknote/internal/taskservice"
	"github.com/starford/tasknote/internal/testutil"
	"github.com/starford/tasknote/internal/wire"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

// testEnv wires a temp SQLite DB, upload dir, services and the root router.
func testEnv(t *testing.T) http.Handler {
	t.Helper()
	h, _ := testEnvWithBroker(t)
	return h
}

func testEnvWithBroker(t *testing.T) (http.Handler, *sse.Broker) {
	t.Helper()
	db := testutil.TestDB(t)
	broker := sse.NewBroker(time.Second)
	t.Cleanup(broker.Close)

	h := NewServer(Deps{
		Tasks:     taskservice.NewService(db, taskservice.WithPublisher(broker), taskservice.WithLocation(time.UTC)),
		Auth:      auth.NewService(db, "TaskNote", time.Hour),
		Uploads:   testutil.TestUploads(t),
		MaxUpload: 1024,
		Events:    broker,
		Ready:     db.Ping,
	})
	return h, broker
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, h http.Handler, username string) string {
	t.Helper()
	w := do(t, h, http.MethodPost, "/api/register", "", wire.RegisterRequest{Username: username, Password: "secret1"})
	if w.Code != http.StatusCreated {
		t.Fatalf("register = %d, body = %s", w.Code, w.Body.String())
	}
	w = do(t, h, http.MethodPost, "/api/login", "", wire.LoginRequest{Username: username, Password: "secret1"})
	if w.Code != http.StatusOK {
		t.Fatalf("login = %d, body = %s", w.Code, w.Body.String())
	}
	var res wire.LoginResponse
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.Token == "" {
		t.Fatalf("empty token in %s", w.Body.String())
	}
	return res.Token
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func createTask(t *testing.T, h http.Handler, token, title string, at time.Time) wire.TaskDTO {
	t.Helper()
	ms := at.UnixMilli()
	w := do(t, h, http.MethodPost, "/api/tasks", token, wire.CreateTaskRequest{Title: title, TaskTime: &ms})
	if w.Code != http.StatusCreated {
		t.Fatalf("create task = %d, body = %s", w.Code, w.Body.String())
	}
	return decode[wire.TaskDTO](t, w)
}

func dayQuery(day time.Time) string {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24*time.Hour - time.Millisecond)
	return fmt.Sprintf("start_date=%d&end_date=%d", start.UnixMilli(), end.UnixMilli())
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	h := testEnv(t)
	w := do(t, h, http.MethodGet, "/api/tasks?"+dayQuery(time.Now()), "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	h := testEnv(t)
	w := do(t, h, http.MethodGet, "/api/tasks?"+dayQuery(time.Now()), "nope", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if got := decode[wire.ErrorResponse](t, w).Error; got != "unauthorized" {
		t.Errorf("error = %q", got)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	h := testEnv(t)
	login(t, h, "ann")
	w := do(t, h, http.MethodPost, "/api/register", "", wire.RegisterRequest{Username: "ann", Password: "secret1"})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate register = %d, want 409", w.Code)
	}
	w = do(t, h, http.MethodPost, "/api/register", "", wire.RegisterRequest{Username: "x", Password: "1"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid register = %d, want 400", w.Code)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	h := testEnv(t)
	token := login(t, h, "ann")
	if w := do(t, h, http.MethodPost, "/api/logout", token, nil); w.Code != http.StatusNoContent {
		t.Fatalf("logout = %d", w.Code)
	}
	if w := do(t, h, http.MethodPost, "/api/auth/totp/status", token, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("after logout = %d, want 401", w.Code)
	}
}

func TestTaskLifecycle(t *testing.T) {
	h := testEnv(t)
	token := login(t, h, "ann")
	day := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

	created := createTask(t, h, token, "write report", day)
	if created.ID == 0 || created.Notes == nil || len(*created.Notes) != 0 {
		t.Fatalf("created = %+v", created)
	}

	w := do(t, h, http.MethodPost, "/api/notes", token, wire.CreateNoteRequest{TaskID: created.ID, Content: "outline"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create note = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, h, http.MethodGet, "/api/tasks?"+dayQuery(day), token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	list := decode[[]wire.TaskDTO](t, w)
	if len(list) != 1 || list[0].Notes == nil || len(*list[0].Notes) != 1 {
		t.Fatalf("list = %+v", list)
	}

	title := "final report"
	w = do(t, h, http.MethodPut, fmt.Sprintf("/api/tasks/%d", created.ID), token, wire.UpdateTaskRequest{Title: &title})
	if w.Code != http.StatusOK {
		t.Fatalf("update = %d, body = %s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), `"notes"`) {
		t.Errorf("update answer must omit notes: %s", w.Body.String())
	}
	if got := decode[wire.TaskDTO](t, w).Title; got != title {
		t.Errorf("title = %q", got)
	}

	w = do(t, h, http.MethodPatch, fmt.Sprintf("/api/tasks/%d/toggle", created.ID), token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("toggle = %d", w.Code)
	}
	toggled := decode[wire.TaskDTO](t, w)
	if !toggled.Completed || toggled.CompletedAt == nil {
		t.Errorf("toggled = %+v", toggled)
	}

	w = do(t, h, http.MethodGet, "/api/tasks/stats?"+dayQuery(day), token, nil)
	stats := decode[[]wire.TaskStatDTO](t, w)
	if len(stats) != 1 || stats[0].Date != "2024-03-15" || stats[0].TotalCount != 1 || stats[0].UnCompletedCount != 0 {
		t.Errorf("stats = %+v", stats)
	}

	if w = do(t, h, http.MethodDelete, fmt.Sprintf("/api/tasks/%d", created.ID), token, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", w.Code)
	}
	if w = do(t, h, http.MethodPatch, fmt.Sprintf("/api/tasks/%d/toggle", created.ID), token, nil); w.Code != http.StatusNotFound {
		t.Errorf("toggle deleted = %d, want 404", w.Code)
	}
}

func TestUpdateTaskValidation(t *testing.T) {
	h := testEnv(t)
	token := login(t, h, "ann")
	task := createTask(t, h, token, "t", time.Now())

	spent := 2.0
	w := do(t, h, http.MethodPut, fmt.Sprintf("/api/tasks/%d", task.ID), token, wire.UpdateTaskRequest{TimeSpent: &spent})
	if w.Code != http.StatusBadRequest {
		t.Errorf("half effort pair = %d, want 400", w.Code)
	}
	unit := "fortnight"
	w = do(t, h, http.MethodPut, fmt.Sprintf("/api/tasks/%d", task.ID), token, wire.UpdateTaskRequest{TimeSpent: &spent, TimeUnit: &unit})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown unit = %d, want 400", w.Code)
	}
	if w = do(t, h, http.MethodPut, "/api/tasks/abc", token, wire.UpdateTaskRequest{}); w.Code != http.StatusBadRequest {
		t.Errorf("bad id = %d, want 400", w.Code)
	}
	if w = do(t, h, http.MethodGet, "/api/tasks", token, nil); w.Code != http.StatusBadRequest {
		t.Errorf("missing range = %d, want 400", w.Code)
	}
	if w = do(t, h, http.MethodPost, "/api/tasks", token, wire.CreateTaskRequest{Title: " "}); w.Code != http.StatusBadRequest {
		t.Errorf("blank title = %d, want 400", w.Code)
	}
}

func TestNotesEndpoints(t *testing.T) {
	h := testEnv(t)
	token := login(t, h, "ann")
	task := createTask(t, h, token, "t", time.Now())

	w := do(t, h, http.MethodPost, "/api/notes", token, wire.CreateNoteRequest{TaskID: task.ID, Content: "draft"})
	note := decode[wire.NoteDTO](t, w)

	w = do(t, h, http.MethodPut, fmt.Sprintf("/api/notes/%d", note.ID), token, wire.UpdateNoteRequest{Content: "final"})
	if w.Code != http.StatusOK || decode[wire.NoteDTO](t, w).Content != "final" {
		t.Fatalf("update note = %d, body = %s", w.Code, w.Body.String())
	}
	if w = do(t, h, http.MethodDelete, fmt.Sprintf("/api/notes/%d", note.ID), token, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete note = %d", w.Code)
	}
	if w = do(t, h, http.MethodPut, fmt.Sprintf("/api/notes/%d", note.ID), token, wire.UpdateNoteRequest{Content: "x"}); w.Code != http.StatusNotFound {
		t.Errorf("update deleted note = %d, want 404", w.Code)
	}
	if w = do(t, h, http.MethodPost, "/api/notes", token, wire.CreateNoteRequest{Content: "x"}); w.Code != http.StatusBadRequest {
		t.Errorf("missing task id = %d, want 400", w.Code)
	}
}

func TestTasksAreScopedPerUser(t *testing.T) {
	h := testEnv(t)
	ann := login(t, h, "ann")
	bob := login(t, h, "bob")
	task := createTask(t, h, ann, "private", time.Now())

	if w := do(t, h, http.MethodDelete, fmt.Sprintf("/api/tasks/%d", task.ID), bob, nil); w.Code != http.StatusNotFound {
		t.Errorf("foreign delete = %d, want 404", w.Code)
	}
	w := do(t, h, http.MethodGet, "/api/tasks?"+dayQuery(time.Now()), bob, nil)
	if list := decode[[]wire.TaskDTO](t, w); len(list) != 0 {
		t.Errorf("bob sees %+v", list)
	}
}

func TestSearchEndpoint(t *testing.T) {
	h := testEnv(t)
	token := login(t, h, "ann")
	createTask(t, h, token, "Buy milk", time.Now())
	createTask(t, h, token, "Other", time.Now())

	w := do(t, h, http.MethodGet, "/api/search?q=milk", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d", w.Code)
	}
	results := decode[[]wire.TaskDTO](t, w)
	if len(results) != 1 || results[0].Highlights == nil {
		t.Fatalf("results = %+v", results)
	}
	if got := results[0].Highlights.Title[0]; got != "Buy <mark>milk</mark>" {
		t.Errorf("highlight = %q", got)
	}

	w = do(t, h, http.MethodGet, "/api/search?q=", token, nil)
	if results := decode[[]wire.TaskDTO](t, w); len(results) != 0 {
		t.Errorf("empty query results = %+v", results)
	}
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = part.Write(content)
	_ = mw.Close()
	return &buf, mw.FormDataContentType()
}

func upload(t *testing.T, h http.Handler, token, field, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, field, filename, content)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestUploadAndServe(t *testing.T) {
	h := testEnv(t)
	token := login(t, h, "ann")

	w := upload(t, h, token, "file", "shot.PNG", pngHeader)
	if w.Code != http.StatusCreated {
		t.Fatalf("upload = %d, body = %s", w.Code, w.Body.String())
	}
	res := decode[wire.UploadResponse](t, w)
	if !strings.HasPrefix(res.URL, "/uploads/") || !strings.HasSuffix(res.URL, ".png") || res.Filename != "shot.PNG" {
		t.Fatalf("response = %+v", res)
	}

	req := httptest.NewRequest(http.MethodGet, res.URL, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !bytes.Equal(rec.Body.Bytes(), pngHeader) {
		t.Errorf("serve = %d, %q", rec.Code, rec.Body.Bytes())
	}
}

func TestUploadRejects(t *testing.T) {
	h := testEnv(t)
	token := login(t, h, "ann")

	if w := upload(t, h, token, "file", "notes.txt", []byte("plain text")); w.Code != http.StatusBadRequest {
		t.Errorf("non-image = %d, want 400", w.Code)
	}
	if w := upload(t, h, token, "other", "a.png", pngHeader); w.Code != http.StatusBadRequest {
		t.Errorf("missing field = %d, want 400", w.Code)
	}
	big := append(append([]byte{}, pngHeader...), make([]byte, 4096)...)
	if w := upload(t, h, token, "file", "big.png", big); w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("too large = %d, want 413", w.Code)
	}
	if w := upload(t, h, "", "file", "a.png", pngHeader); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous upload = %d, want 401", w.Code)
	}
}

func TestServeUpload_InvalidAndMissing(t *testing.T) {
	h := testEnv(t)
	for path, want := range map[string]int{
		"/uploads/.hidden":     http.StatusBadRequest,
		"/uploads/missing.png": http.StatusNotFound,
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != want {
			t.Errorf("GET %s = %d, want %d", path, rec.Code, want)
		}
	}
}

func TestHealth(t *testing.T) {
	h := testEnv(t)
	for _, path := range []string{"/health/live", "/health/ready"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d", path, rec.Code)
		}
	}
}

func TestEventsStream(t *testing.T) {
	h, broker := testEnvWithBroker(t)
	token := login(t, h, "ann")
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("events status = %d", resp.StatusCode)
	}

	for broker.ClientCount() == 0 {
		time.Sleep(10 * time.Millisecond)
	}
	createTask(t, h, token, "t", time.Now())

	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		if sc.Text() == "event: task.created" {
			return
		}
	}
	t.Fatalf("task.created not received: %v", sc.Err())
}
