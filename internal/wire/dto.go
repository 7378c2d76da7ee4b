// Package wire defines the snake_case JSON representation exchanged with the
// REST backend and the field-for-field translation to the domain models.
package wire

// NoteDTO is the wire form of a note.
type NoteDTO struct {
	ID        int64  `json:"id"`
	TaskID    int64  `json:"task_id,omitempty"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at"`
}

// HighlightsDTO carries <mark>-annotated search snippets.
type HighlightsDTO struct {
	Title   []string `json:"title,omitempty"`
	Content []string `json:"content,omitempty"`
}

// TaskDTO is the wire form of a task. Timestamps are Unix milliseconds.
// Notes is omitted (nil) by endpoints that do not load notes.
type TaskDTO struct {
	ID          int64          `json:"id"`
	Title       string         `json:"title"`
	Completed   bool           `json:"completed"`
	CompletedAt *int64         `json:"completed_at"`
	CreatedAt   int64          `json:"created_at"`
	TaskTime    *int64         `json:"task_time,omitempty"`
	TimeSpent   *float64       `json:"time_spent,omitempty"`
	TimeUnit    string         `json:"time_unit,omitempty"`
	SortOrder   int            `json:"sort_order"`
	Notes       *[]NoteDTO     `json:"notes,omitempty"`
	Highlights  *HighlightsDTO `json:"highlights,omitempty"`
}

// TaskStatDTO is one day of aggregated counts.
type TaskStatDTO struct {
	Date             string `json:"date"`
	TotalCount       int    `json:"total_count"`
	UnCompletedCount int    `json:"un_completed_count"`
}

// CreateTaskRequest is the body of POST /tasks.
type CreateTaskRequest struct {
	Title    string `json:"title"`
	TaskTime *int64 `json:"task_time,omitempty"`
}

// UpdateTaskRequest is the body of PUT /tasks/{id}. Absent fields are untouched.
type UpdateTaskRequest struct {
	Title     *string  `json:"title,omitempty"`
	TaskTime  *int64   `json:"task_time,omitempty"`
	SortOrder *int     `json:"sort_order,omitempty"`
	TimeSpent *float64 `json:"time_spent,omitempty"`
	TimeUnit  *string  `json:"time_unit,omitempty"`
}

// CreateNoteRequest is the body of POST /notes.
type CreateNoteRequest struct {
	TaskID  int64  `json:"task_id"`
	Content string `json:"content"`
}

// UpdateNoteRequest is the body of PUT /notes/{id}.
type UpdateNoteRequest struct {
	Content string `json:"content"`
}

// UploadResponse is returned by POST /upload.
type UploadResponse struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// RegisterRequest is the body of POST /register.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	TOTPToken string `json:"totp_token,omitempty"`
}

// LoginResponse answers POST /login. When Require2FA is set no token is issued.
type LoginResponse struct {
	Token      string `json:"token,omitempty"`
	Username   string `json:"username,omitempty"`
	Require2FA bool   `json:"require_2fa,omitempty"`
}

// ResetPasswordRequest is the body of POST /auth/reset-password.
type ResetPasswordRequest struct {
	Username    string `json:"username"`
	NewPassword string `json:"new_password"`
	TOTPToken   string `json:"totp_token"`
}

// TOTPSetupResponse answers POST /auth/totp/generate.
type TOTPSetupResponse struct {
	Secret string `json:"secret"`
	URL    string `json:"url"`
}

// TOTPVerifyRequest is the body of POST /auth/totp/verify.
type TOTPVerifyRequest struct {
	Token string `json:"token"`
}

// TOTPStatusResponse answers POST /auth/totp/status.
type TOTPStatusResponse struct {
	Enabled bool `json:"enabled"`
}

// ErrorResponse is the JSON body of every non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
}
