package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/tasknote/internal/taskservice"
	"github.com/starford/tasknote/internal/wire"
)

// Handler holds task and note route handlers.
type Handler struct {
	svc *taskservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *taskservice.Service) *Handler {
	return &Handler{svc: svc}
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// dateRange reads start_date and end_date (Unix milliseconds).
func dateRange(r *http.Request) (time.Time, time.Time, bool) {
	q := r.URL.Query()
	start, err1 := strconv.ParseInt(q.Get("start_date"), 10, 64)
	end, err2 := strconv.ParseInt(q.Get("end_date"), 10, 64)
	if err1 != nil || err2 != nil {
		return time.Time{}, time.Time{}, false
	}
	return wire.Time(start), wire.Time(end), true
}

// ListTasks handles GET /api/tasks.
//
//	@Summary	List tasks scheduled in a range, notes included
//	@Tags		tasks
//	@Param		start_date	query	int	true	"Range start, Unix ms"
//	@Param		end_date	query	int	true	"Range end, Unix ms"
//	@Success	200	{array}	wire.TaskDTO
//	@Router		/tasks [get]
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	start, end, ok := dateRange(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("start_date and end_date are required"))
		return
	}
	tasks, err := h.svc.ListTasks(r.Context(), currentUser(r).ID, start, end)
	if err != nil {
		writeError(w, "list tasks", err)
		return
	}
	writeJSON(w, http.StatusOK, wire.TasksToDTO(tasks))
}

// TaskStats handles GET /api/tasks/stats.
func (h *Handler) TaskStats(w http.ResponseWriter, r *http.Request) {
	start, end, ok := dateRange(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("start_date and end_date are required"))
		return
	}
	stats, err := h.svc.Stats(r.Context(), currentUser(r).ID, start, end)
	if err != nil {
		writeError(w, "task stats", err)
		return
	}
	out := make([]wire.TaskStatDTO, len(stats))
	for i, s := range stats {
		out[i] = wire.StatToDTO(s)
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateTask handles POST /api/tasks.
//
//	@Summary	Create a task
//	@Tags		tasks
//	@Param		body	body	wire.CreateTaskRequest	true	"Task to create"
//	@Success	201	{object}	wire.TaskDTO
//	@Failure	400	{object}	wire.ErrorResponse
//	@Router		/tasks [post]
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req wire.CreateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	task, err := h.svc.CreateTask(r.Context(), currentUser(r).ID, wire.NewTaskFromRequest(req))
	if err != nil {
		writeError(w, "create task", err)
		return
	}
	writeJSON(w, http.StatusCreated, wire.TaskToDTO(task))
}

// UpdateTask handles PUT /api/tasks/{id}. The answer omits notes.
//
//	@Summary	Partially update a task
//	@Tags		tasks
//	@Param		id		path	int						true	"Task id"
//	@Param		body	body	wire.UpdateTaskRequest	true	"Fields to change"
//	@Success	200	{object}	wire.TaskDTO
//	@Failure	400	{object}	wire.ErrorResponse
//	@Failure	404	{object}	wire.ErrorResponse
//	@Router		/tasks/{id} [put]
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid task id"))
		return
	}
	var req wire.UpdateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := wire.UpdateFromRequest(req)
	if err != nil {
		writeError(w, "update task", err)
		return
	}
	task, err := h.svc.UpdateTask(r.Context(), currentUser(r).ID, id, u)
	if err != nil {
		writeError(w, "update task", err)
		return
	}
	writeJSON(w, http.StatusOK, wire.TaskToDTO(task))
}

// ToggleTask handles PATCH /api/tasks/{id}/toggle.
func (h *Handler) ToggleTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid task id"))
		return
	}
	task, err := h.svc.ToggleTask(r.Context(), currentUser(r).ID, id)
	if err != nil {
		writeError(w, "toggle task", err)
		return
	}
	writeJSON(w, http.StatusOK, wire.TaskToDTO(task))
}

// DeleteTask handles DELETE /api/tasks/{id}.
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid task id"))
		return
	}
	if err := h.svc.DeleteTask(r.Context(), currentUser(r).ID, id); err != nil {
		writeError(w, "delete task", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateNote handles POST /api/notes.
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req wire.CreateNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.TaskID <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("task_id is required"))
		return
	}
	note, err := h.svc.CreateNote(r.Context(), currentUser(r).ID, req.TaskID, req.Content)
	if err != nil {
		writeError(w, "create note", err)
		return
	}
	writeJSON(w, http.StatusCreated, wire.NoteToDTO(note))
}

// UpdateNote handles PUT /api/notes/{id}.
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid note id"))
		return
	}
	var req wire.UpdateNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	note, err := h.svc.UpdateNote(r.Context(), currentUser(r).ID, id, req.Content)
	if err != nil {
		writeError(w, "update note", err)
		return
	}
	writeJSON(w, http.StatusOK, wire.NoteToDTO(note))
}

// DeleteNote handles DELETE /api/notes/{id}.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid note id"))
		return
	}
	if err := h.svc.DeleteNote(r.Context(), currentUser(r).ID, id); err != nil {
		writeError(w, "delete note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
//
//	@Summary	Search task titles and notes
//	@Tags		search
//	@Param		q	query	string	true	"Search query"
//	@Success	200	{array}	wire.TaskDTO
//	@Router		/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	results, err := h.svc.Search(r.Context(), currentUser(r).ID, r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, wire.TasksToDTO(results))
}
