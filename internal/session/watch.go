package session

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the session whenever another process rewrites or removes the
// session file, and calls onChange (if non-nil) with the new state. It
// returns when ctx is cancelled. The parent directory is watched so the
// atomic rename used by Activate is observed.
func (s *Session) Watch(ctx context.Context, logger *slog.Logger, onChange func(State)) error {
	if s.path == "" {
		<-ctx.Done()
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(s.path)
	if err := w.Add(dir); err != nil {
		return err
	}
	target := filepath.Clean(s.path)
	logger.Debug("session: watching", slog.String("path", target))

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			before := s.State()
			if err := s.Reload(); err != nil {
				logger.Warn("session: reload failed", slog.String("error", err.Error()))
				continue
			}
			after := s.State()
			logger.Debug("session: reloaded", slog.String("state", after.String()))
			if onChange != nil && (before != after || ev.Op&(fsnotify.Create|fsnotify.Write) != 0) {
				onChange(after)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("session: watch error", slog.String("error", watchErr.Error()))
		}
	}
}
