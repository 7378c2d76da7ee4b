package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/tasknote/internal/client"
	"github.com/starford/tasknote/internal/coordinator"
	"github.com/starford/tasknote/internal/session"
	"github.com/starford/tasknote/internal/store"
)

// Workspace is the client side of the application: the persisted session,
// the REST client authenticated by it, and the coordinator over a fresh store.
type Workspace struct {
	Session     *session.Session
	Client      *client.Client
	Coordinator *coordinator.Coordinator
	Logger      *slog.Logger
}

// OpenWorkspace loads the session file and wires the client stack.
func OpenWorkspace(opts ...Option) (*Workspace, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	cfg := app.config

	logger := app.logger
	if logger == nil {
		logger = NewLogger(os.Stderr, cfg.App.LogLevel, false)
	}

	sess, err := session.Open(cfg.Client.SessionFile)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	c := client.New(cfg.Client.BaseURL, cfg.Client.Timeout, sess)

	coordOpts := []coordinator.Option{
		coordinator.WithLogger(logger),
		coordinator.WithSession(sess),
		coordinator.WithLocation(cfg.App.Location()),
	}
	if app.alert != nil {
		coordOpts = append(coordOpts, coordinator.WithAlerter(app.alert))
	}

	return &Workspace{
		Session:     sess,
		Client:      c,
		Coordinator: coordinator.New(c, store.New(), coordOpts...),
		Logger:      logger,
	}, nil
}

// Login authenticates against the backend and persists the session.
func (w *Workspace) Login(ctx context.Context, username, password, totpCode string) error {
	return coordinator.Login(ctx, w.Client, w.Session, username, password, totpCode)
}

// Logout revokes the token on the backend (best effort) and clears the
// local session and store.
func (w *Workspace) Logout(ctx context.Context) {
	if w.Session.Token() != "" {
		if err := w.Client.Logout(ctx); err != nil && !client.IsUnauthorized(err) {
			w.Logger.Warn("workspace: remote logout failed", slog.String("error", err.Error()))
		}
	}
	w.Coordinator.Logout()
}

// Watch follows session changes made by other processes. A login reloads
// the windows; a logout empties the store. onChange runs after either.
func (w *Workspace) Watch(ctx context.Context, onChange func(session.State)) error {
	if path := w.Session.Path(); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return fmt.Errorf("watch session: %w", err)
		}
	}
	return w.Session.Watch(ctx, w.Logger, func(st session.State) {
		switch st {
		case session.StateActive:
			if err := w.Coordinator.Load(ctx); err != nil {
				w.Logger.Warn("workspace: reload after login failed", slog.String("error", err.Error()))
			}
		case session.StateCleared:
			w.Coordinator.Store().Reset()
		}
		if onChange != nil {
			onChange(st)
		}
	})
}
