package client

import (
	"context"
	"net/http"

	"github.com/starford/tasknote/internal/wire"
)

// LoginResult is the outcome of a login attempt. When Require2FA is set the
// caller must retry with a TOTP code; no token has been issued yet.
type LoginResult struct {
	Token      string
	Username   string
	Require2FA bool
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, username, password string) error {
	return c.doJSON(ctx, http.MethodPost, "/register", nil,
		wire.RegisterRequest{Username: username, Password: password}, nil)
}

// Login exchanges credentials (and optionally a TOTP code) for a token.
func (c *Client) Login(ctx context.Context, username, password, totpCode string) (LoginResult, error) {
	var out wire.LoginResponse
	req := wire.LoginRequest{Username: username, Password: password, TOTPToken: totpCode}
	if err := c.doJSON(ctx, http.MethodPost, "/login", nil, req, &out); err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Token: out.Token, Username: out.Username, Require2FA: out.Require2FA}, nil
}

// ResetPassword sets a new password, proven by a TOTP code.
func (c *Client) ResetPassword(ctx context.Context, username, newPassword, totpCode string) error {
	req := wire.ResetPasswordRequest{Username: username, NewPassword: newPassword, TOTPToken: totpCode}
	return c.doJSON(ctx, http.MethodPost, "/auth/reset-password", nil, req, nil)
}

// TOTPStatus reports whether two-factor authentication is enabled.
func (c *Client) TOTPStatus(ctx context.Context) (bool, error) {
	var out wire.TOTPStatusResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/totp/status", nil, nil, &out); err != nil {
		return false, err
	}
	return out.Enabled, nil
}

// TOTPGenerate starts enrollment and returns the secret and otpauth URL.
func (c *Client) TOTPGenerate(ctx context.Context) (secret, otpURL string, err error) {
	var out wire.TOTPSetupResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/totp/generate", nil, nil, &out); err != nil {
		return "", "", err
	}
	return out.Secret, out.URL, nil
}

// TOTPVerify completes enrollment with a code from the authenticator app.
func (c *Client) TOTPVerify(ctx context.Context, code string) error {
	return c.doJSON(ctx, http.MethodPost, "/auth/totp/verify", nil, wire.TOTPVerifyRequest{Token: code}, nil)
}

// Logout revokes the current session on the backend.
func (c *Client) Logout(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/logout", nil, nil, nil)
}
