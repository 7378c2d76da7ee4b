// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/tasknote/internal/api"
	"github.com/starford/tasknote/internal/auth"
	"github.com/starford/tasknote/internal/repo"
	"github.com/starford/tasknote/internal/sse"
	"github.com/starford/tasknote/internal/storage"
	"github.com/starford/tasknote/internal/taskservice"
)

var errConfigRequired = errors.New("config is required")

const sessionPruneInterval = time.Hour

// Run starts the backend server with the given options and blocks until a
// shutdown signal arrives or ctx is cancelled.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := app.logger
	if logger == nil {
		logger = NewLogger(os.Stdout, cfg.App.LogLevel, true)
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("uploads_path", cfg.Uploads.Path),
		slog.String("timezone", cfg.App.Timezone),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0o755); err != nil {
		return fmt.Errorf("create database dir: %w", err)
	}
	db, err := repo.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer db.Close()

	uploads, err := storage.NewFS(cfg.Uploads.Path)
	if err != nil {
		return fmt.Errorf("init uploads: %w", err)
	}

	broker := sse.NewBroker(cfg.Events.StatsThrottle)
	defer broker.Close()

	authSvc := auth.NewService(db, cfg.Auth.TOTPIssuer, cfg.Auth.SessionTTL)
	tasks := taskservice.NewService(db,
		taskservice.WithPublisher(broker),
		taskservice.WithLocation(cfg.App.Location()),
	)

	httpServer := &http.Server{
		Addr: cfg.App.HTTP.Address(),
		Handler: api.NewServer(api.Deps{
			Tasks:     tasks,
			Auth:      authSvc,
			Uploads:   uploads,
			MaxUpload: cfg.Uploads.MaxBytes,
			Events:    broker,
			Ready:     db.Ping,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Drop expired sessions periodically.
	g.Go(func() error {
		ticker := time.NewTicker(sessionPruneInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gCtx.Done():
				return nil
			case <-ticker.C:
				n, err := authSvc.PruneSessions(gCtx)
				if err != nil {
					logger.Warn("session prune failed", slog.String("error", err.Error()))
					continue
				}
				if n > 0 {
					logger.Info("expired sessions pruned", slog.Int64("count", n))
				}
			}
		}
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// SSE streams end when the broker closes.
		broker.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown stops the sibling goroutines once shutdown has begun.
var errShutdown = errors.New("shutdown")
