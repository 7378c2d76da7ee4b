package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/tasknote/internal/apperr"
)

// UserRow is a row of the users table.
type UserRow struct {
	ID           int64
	Username     string
	PasswordHash string
	TOTPSecret   string
	TOTPPending  string
	TOTPEnabled  bool
	CreatedAt    time.Time
}

const userColumns = `id, username, password_hash, totp_secret, totp_pending, totp_enabled, created_at`

func scanUser(r rowScanner) (UserRow, error) {
	var (
		u  UserRow
		ms int64
	)
	if err := r.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.TOTPSecret, &u.TOTPPending, &u.TOTPEnabled, &ms); err != nil {
		return UserRow{}, err
	}
	u.CreatedAt = fromMillis(ms)
	return u, nil
}

// CreateUser inserts a user. A taken username yields apperr.ErrAlreadyExists.
func (db *DB) CreateUser(ctx context.Context, username, passwordHash string, now time.Time) (UserRow, error) {
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)`,
		username, passwordHash, toMillis(now))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return UserRow{}, apperr.ErrAlreadyExists
		}
		return UserRow{}, fmt.Errorf("repo: create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return UserRow{}, fmt.Errorf("repo: create user id: %w", err)
	}
	return db.userWhere(ctx, `id = ?`, id)
}

// UserByName looks a user up by username.
func (db *DB) UserByName(ctx context.Context, username string) (UserRow, error) {
	return db.userWhere(ctx, `username = ?`, username)
}

// UserByID looks a user up by id.
func (db *DB) UserByID(ctx context.Context, id int64) (UserRow, error) {
	return db.userWhere(ctx, `id = ?`, id)
}

func (db *DB) userWhere(ctx context.Context, cond string, arg any) (UserRow, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+cond, arg)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return UserRow{}, apperr.ErrNotFound
	}
	if err != nil {
		return UserRow{}, fmt.Errorf("repo: get user: %w", err)
	}
	return u, nil
}

// SetPassword replaces a user's password hash.
func (db *DB) SetPassword(ctx context.Context, userID int64, passwordHash string) error {
	res, err := db.conn.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, userID)
	if err != nil {
		return fmt.Errorf("repo: set password: %w", err)
	}
	return expectOne(res)
}

// SetPendingTOTP stores a generated secret that is not active until verified.
func (db *DB) SetPendingTOTP(ctx context.Context, userID int64, secret string) error {
	res, err := db.conn.ExecContext(ctx, `UPDATE users SET totp_pending = ? WHERE id = ?`, secret, userID)
	if err != nil {
		return fmt.Errorf("repo: set pending totp: %w", err)
	}
	return expectOne(res)
}

// EnableTOTP promotes the pending secret to the active one.
func (db *DB) EnableTOTP(ctx context.Context, userID int64) error {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE users SET totp_secret = totp_pending, totp_pending = '', totp_enabled = 1
		WHERE id = ? AND totp_pending != ''
	`, userID)
	if err != nil {
		return fmt.Errorf("repo: enable totp: %w", err)
	}
	return expectOne(res)
}

// CreateSession stores the hash of a session token.
func (db *DB) CreateSession(ctx context.Context, tokenHash string, userID int64, now, expires time.Time) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO sessions (token_hash, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		tokenHash, userID, toMillis(now), toMillis(expires))
	if err != nil {
		return fmt.Errorf("repo: create session: %w", err)
	}
	return nil
}

// SessionUser returns the user owning an unexpired session.
func (db *DB) SessionUser(ctx context.Context, tokenHash string, now time.Time) (UserRow, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT u.id, u.username, u.password_hash, u.totp_secret, u.totp_pending, u.totp_enabled, u.created_at
		FROM sessions s JOIN users u ON u.id = s.user_id
		WHERE s.token_hash = ? AND s.expires_at > ?
	`, tokenHash, toMillis(now))
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return UserRow{}, apperr.ErrUnauthorized
	}
	if err != nil {
		return UserRow{}, fmt.Errorf("repo: session user: %w", err)
	}
	return u, nil
}

// DeleteSession revokes one session.
func (db *DB) DeleteSession(ctx context.Context, tokenHash string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = ?`, tokenHash); err != nil {
		return fmt.Errorf("repo: delete session: %w", err)
	}
	return nil
}

// DeleteUserSessions revokes every session of a user.
func (db *DB) DeleteUserSessions(ctx context.Context, userID int64) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("repo: delete sessions: %w", err)
	}
	return nil
}

// PruneSessions deletes expired sessions and reports how many were removed.
func (db *DB) PruneSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, toMillis(now))
	if err != nil {
		return 0, fmt.Errorf("repo: prune sessions: %w", err)
	}
	return res.RowsAffected()
}
