package coordinator

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/tasknote/internal/apperr"
	"github.com/starford/tasknote/internal/client"
)

// Authenticator exchanges credentials for a session token.
type Authenticator interface {
	Login(ctx context.Context, username, password, totpCode string) (client.LoginResult, error)
}

// SessionActivator stores the token of a successful login.
type SessionActivator interface {
	Activate(token, username string) error
}

// Login authenticates and activates the session. When the account has
// two-factor enabled and no code was given it returns apperr.ErrTwoFactorRequired
// and the session stays untouched.
func Login(ctx context.Context, api Authenticator, sess SessionActivator, username, password, totpCode string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return fmt.Errorf("%w: username and password are required", apperr.ErrValidation)
	}
	res, err := api.Login(ctx, username, password, strings.TrimSpace(totpCode))
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if res.Require2FA {
		return apperr.ErrTwoFactorRequired
	}
	if res.Token == "" {
		return fmt.Errorf("login: empty token in response")
	}
	name := res.Username
	if name == "" {
		name = username
	}
	return sess.Activate(res.Token, name)
}
