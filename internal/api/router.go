package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/starford/tasknote/internal/auth"
	"github.com/starford/tasknote/internal/sse"
	"github.com/starford/tasknote/internal/storage"
	"github.com/starford/tasknote/internal/taskservice"
)

// Deps are the services behind the routes.
type Deps struct {
	Tasks     *taskservice.Service
	Auth      *auth.Service
	Uploads   storage.Provider
	MaxUpload int64
	// Events is optional; without it GET /events is not mounted.
	Events *sse.Broker
	// Ready reports backend readiness for /health/ready.
	Ready func() error
}

// NewRouter creates a chi router with all API routes, to be mounted under /api.
func NewRouter(d Deps) chi.Router {
	h := NewHandler(d.Tasks)
	ah := NewAuthHandler(d.Auth)
	uh := NewUploadHandler(d.Uploads, d.MaxUpload)

	r := chi.NewRouter()

	// Account routes that work without a session.
	r.Post("/register", ah.Register)
	r.Post("/login", ah.Login)
	r.Post("/auth/reset-password", ah.ResetPassword)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(d.Auth))

		r.Post("/logout", ah.Logout)
		r.Get("/auth/totp/status", ah.TOTPStatus)
		r.Post("/auth/totp/status", ah.TOTPStatus)
		r.Post("/auth/totp/generate", ah.TOTPGenerate)
		r.Post("/auth/totp/verify", ah.TOTPVerify)

		// Tasks.
		r.Get("/tasks", h.ListTasks)
		r.Get("/tasks/stats", h.TaskStats)
		r.Post("/tasks", h.CreateTask)
		r.Put("/tasks/{id}", h.UpdateTask)
		r.Patch("/tasks/{id}/toggle", h.ToggleTask)
		r.Delete("/tasks/{id}", h.DeleteTask)

		// Notes.
		r.Post("/notes", h.CreateNote)
		r.Put("/notes/{id}", h.UpdateNote)
		r.Delete("/notes/{id}", h.DeleteNote)

		r.Get("/search", h.Search)
		r.Post("/upload", uh.Upload)

		if d.Events != nil {
			r.Get("/events", func(w http.ResponseWriter, r *http.Request) {
				d.Events.Serve(w, r, currentUser(r).ID)
			})
		}
	})

	return r
}

// NewServer builds the root handler: request middleware, health checks, the
// API under /api and uploaded files under /uploads.
func NewServer(d Deps) http.Handler {
	uh := NewUploadHandler(d.Uploads, d.MaxUpload)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		if d.Ready != nil {
			if err := d.Ready(); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Images are embedded in notes and fetched without a bearer header.
	r.Get("/uploads/{name}", uh.ServeFile)

	r.Mount("/api", NewRouter(d))
	return r
}
