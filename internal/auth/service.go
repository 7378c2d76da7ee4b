// Package auth implements accounts, bearer sessions and TOTP two-factor
// authentication for the task backend.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"

	"github.com/starford/tasknote/internal/apperr"
	"github.com/starford/tasknote/internal/repo"
)

// ErrInvalidCode is returned for a malformed or wrong TOTP code.
var ErrInvalidCode = fmt.Errorf("%w: invalid two-factor code", apperr.ErrValidation)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Users is the account storage the service needs.
type Users interface {
	CreateUser(ctx context.Context, username, passwordHash string, now time.Time) (repo.UserRow, error)
	UserByName(ctx context.Context, username string) (repo.UserRow, error)
	UserByID(ctx context.Context, id int64) (repo.UserRow, error)
	SetPassword(ctx context.Context, userID int64, passwordHash string) error
	SetPendingTOTP(ctx context.Context, userID int64, secret string) error
	EnableTOTP(ctx context.Context, userID int64) error
	CreateSession(ctx context.Context, tokenHash string, userID int64, now, expires time.Time) error
	SessionUser(ctx context.Context, tokenHash string, now time.Time) (repo.UserRow, error)
	DeleteSession(ctx context.Context, tokenHash string) error
	DeleteUserSessions(ctx context.Context, userID int64) error
	PruneSessions(ctx context.Context, now time.Time) (int64, error)
}

var _ Users = (*repo.DB)(nil)

// User is the authenticated principal of a request.
type User struct {
	ID       int64
	Username string
}

// LoginResult is the outcome of a password check. When Require2FA is set
// no session was created.
type LoginResult struct {
	Token      string
	Username   string
	Require2FA bool
}

// Service handles registration, login and two-factor setup.
type Service struct {
	users      Users
	issuer     string
	sessionTTL time.Duration
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates an auth service. issuer names the account in
// authenticator apps.
func NewService(users Users, issuer string, sessionTTL time.Duration, opts ...Option) *Service {
	if sessionTTL <= 0 {
		sessionTTL = 30 * 24 * time.Hour
	}
	s := &Service{users: users, issuer: issuer, sessionTTL: sessionTTL, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type credentials struct {
	Username string
	Password string
}

func (c credentials) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Username, validation.Required, validation.Length(3, 32),
			validation.Match(usernamePattern).Error("may only contain letters, digits, '.', '_' and '-'")),
		validation.Field(&c.Password, validation.Required, validation.Length(6, 128)),
	)
}

func invalid(err error) error {
	return fmt.Errorf("%w: %v", apperr.ErrValidation, err)
}

// Register creates an account.
func (s *Service) Register(ctx context.Context, username, password string) error {
	c := credentials{Username: strings.TrimSpace(username), Password: password}
	if err := c.Validate(); err != nil {
		return invalid(err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("auth: hash password: %w", err)
	}
	_, err = s.users.CreateUser(ctx, c.Username, string(hash), s.now())
	return err
}

// Login checks the password and, for accounts with two-factor enabled, the
// TOTP code. A missing code yields Require2FA instead of an error.
func (s *Service) Login(ctx context.Context, username, password, code string) (LoginResult, error) {
	u, err := s.users.UserByName(ctx, strings.TrimSpace(username))
	if errors.Is(err, apperr.ErrNotFound) {
		return LoginResult{}, apperr.ErrUnauthorized
	}
	if err != nil {
		return LoginResult{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return LoginResult{}, apperr.ErrUnauthorized
	}
	if u.TOTPEnabled {
		code = strings.TrimSpace(code)
		if code == "" {
			return LoginResult{Username: u.Username, Require2FA: true}, nil
		}
		if !s.validCode(code, u.TOTPSecret) {
			return LoginResult{}, apperr.ErrUnauthorized
		}
	}

	token, err := generateToken()
	if err != nil {
		return LoginResult{}, fmt.Errorf("auth: generate token: %w", err)
	}
	now := s.now()
	if err := s.users.CreateSession(ctx, hashToken(token), u.ID, now, now.Add(s.sessionTTL)); err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Token: token, Username: u.Username}, nil
}

// Authenticate resolves a bearer token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (User, error) {
	if token == "" {
		return User{}, apperr.ErrUnauthorized
	}
	u, err := s.users.SessionUser(ctx, hashToken(token), s.now())
	if err != nil {
		return User{}, err
	}
	return User{ID: u.ID, Username: u.Username}, nil
}

// Logout revokes the session of token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.users.DeleteSession(ctx, hashToken(token))
}

// ResetPassword sets a new password for an account with two-factor enabled,
// proven by a current TOTP code. All sessions of the account are revoked.
func (s *Service) ResetPassword(ctx context.Context, username, newPassword, code string) error {
	c := credentials{Username: strings.TrimSpace(username), Password: newPassword}
	if err := c.Validate(); err != nil {
		return invalid(err)
	}
	u, err := s.users.UserByName(ctx, c.Username)
	if err != nil {
		return err
	}
	if !u.TOTPEnabled {
		return fmt.Errorf("%w: two-factor authentication is not enabled for this account", apperr.ErrValidation)
	}
	if !s.validCode(strings.TrimSpace(code), u.TOTPSecret) {
		return ErrInvalidCode
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("auth: hash password: %w", err)
	}
	if err := s.users.SetPassword(ctx, u.ID, string(hash)); err != nil {
		return err
	}
	return s.users.DeleteUserSessions(ctx, u.ID)
}

// TOTPStatus reports whether two-factor is enabled for the user.
func (s *Service) TOTPStatus(ctx context.Context, userID int64) (bool, error) {
	u, err := s.users.UserByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return u.TOTPEnabled, nil
}

// TOTPGenerate creates a new pending secret and returns it with its
// otpauth:// URL. Two-factor is not enabled until TOTPVerify succeeds.
func (s *Service) TOTPGenerate(ctx context.Context, userID int64) (secret, url string, err error) {
	u, err := s.users.UserByID(ctx, userID)
	if err != nil {
		return "", "", err
	}
	key, err := totp.Generate(totp.GenerateOpts{Issuer: s.issuer, AccountName: u.Username})
	if err != nil {
		return "", "", fmt.Errorf("auth: generate totp: %w", err)
	}
	if err := s.users.SetPendingTOTP(ctx, userID, key.Secret()); err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

// TOTPVerify enables two-factor once code matches the pending secret.
func (s *Service) TOTPVerify(ctx context.Context, userID int64, code string) error {
	u, err := s.users.UserByID(ctx, userID)
	if err != nil {
		return err
	}
	if u.TOTPPending == "" {
		return fmt.Errorf("%w: no pending two-factor setup", apperr.ErrValidation)
	}
	if !s.validCode(strings.TrimSpace(code), u.TOTPPending) {
		return ErrInvalidCode
	}
	return s.users.EnableTOTP(ctx, userID)
}

// PruneSessions drops expired sessions.
func (s *Service) PruneSessions(ctx context.Context) (int64, error) {
	return s.users.PruneSessions(ctx, s.now())
}

func (s *Service) validCode(code, secret string) bool {
	if validateCode(code) != nil || secret == "" {
		return false
	}
	ok, err := totp.ValidateCustom(code, secret, s.now().UTC(), totp.ValidateOpts{
		Period: 30, Skew: 1, Digits: 6,
	})
	return err == nil && ok
}

func validateCode(code string) error {
	if err := validation.Validate(code,
		validation.Required,
		validation.Length(6, 6),
		is.Digit,
	); err != nil {
		return ErrInvalidCode
	}
	return nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func generateToken() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b[:]), nil
}
