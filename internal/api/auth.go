package api

import (
	"net/http"

	"github.com/starford/tasknote/internal/auth"
	"github.com/starford/tasknote/internal/wire"
)

// AuthHandler holds account and two-factor route handlers.
type AuthHandler struct {
	svc *auth.Service
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc *auth.Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Register handles POST /api/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req wire.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.Register(r.Context(), req.Username, req.Password); err != nil {
		writeError(w, "register", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"username": req.Username})
}

// Login handles POST /api/login. Accounts with two-factor enabled get
// require_2fa and no token until a code is supplied.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req wire.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.Login(r.Context(), req.Username, req.Password, req.TOTPToken)
	if err != nil {
		writeError(w, "login", err)
		return
	}
	writeJSON(w, http.StatusOK, wire.LoginResponse{Token: res.Token, Username: res.Username, Require2FA: res.Require2FA})
}

// Logout handles POST /api/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Logout(r.Context(), bearerToken(r)); err != nil {
		writeError(w, "logout", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResetPassword handles POST /api/auth/reset-password.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req wire.ResetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.ResetPassword(r.Context(), req.Username, req.NewPassword, req.TOTPToken); err != nil {
		writeError(w, "reset password", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TOTPStatus handles GET and POST /api/auth/totp/status.
func (h *AuthHandler) TOTPStatus(w http.ResponseWriter, r *http.Request) {
	enabled, err := h.svc.TOTPStatus(r.Context(), currentUser(r).ID)
	if err != nil {
		writeError(w, "totp status", err)
		return
	}
	writeJSON(w, http.StatusOK, wire.TOTPStatusResponse{Enabled: enabled})
}

// TOTPGenerate handles POST /api/auth/totp/generate.
func (h *AuthHandler) TOTPGenerate(w http.ResponseWriter, r *http.Request) {
	secret, url, err := h.svc.TOTPGenerate(r.Context(), currentUser(r).ID)
	if err != nil {
		writeError(w, "totp generate", err)
		return
	}
	writeJSON(w, http.StatusOK, wire.TOTPSetupResponse{Secret: secret, URL: url})
}

// TOTPVerify handles POST /api/auth/totp/verify.
func (h *AuthHandler) TOTPVerify(w http.ResponseWriter, r *http.Request) {
	var req wire.TOTPVerifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.TOTPVerify(r.Context(), currentUser(r).ID, req.Token); err != nil {
		writeError(w, "totp verify", err)
		return
	}
	writeJSON(w, http.StatusOK, wire.TOTPStatusResponse{Enabled: true})
}
