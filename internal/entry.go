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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/verdin/raiz/internal/api"
	"github.com/verdin/raiz/internal/apperr"
	"github.com/verdin/raiz/internal/index"
	"github.com/verdin/raiz/internal/mcpserver"
	"github.com/verdin/raiz/internal/project"
	"github.com/verdin/raiz/internal/sse"
	"github.com/verdin/raiz/internal/storage"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Structured JSON logger. In MCP mode stdout carries the protocol, so
	// logs go to stderr.
	logTarget := os.Stdout
	if app.mcpMode {
		logTarget = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logTarget, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("project_path", cfg.Project.Path),
		slog.String("log_level", cfg.App.LogLevel.String()),
		slog.Bool("mcp_mode", app.mcpMode))

	// Project storage and aggregate service.
	if cfg.Project.Path == "" {
		return fmt.Errorf("entry: %w", apperr.ErrNoProject)
	}
	store, err := storage.NewFS(cfg.Project.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	svc, err := project.NewService(store, logger)
	if err != nil {
		return fmt.Errorf("open project: %w", err)
	}

	// Search index. Default location is inside the project directory so the
	// whole project stays in one portable folder.
	dbPath := cfg.SQLite.Path
	if dbPath == "" {
		dbPath = filepath.Join(store.Root(), "raiz.db")
	}
	db, err := index.Open(dbPath)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}
	if err := db.ReplaceFragments(svc.Codes()); err != nil {
		logger.Warn("initial fragment index failed", slog.String("error", err.Error()))
	}

	if app.mcpMode {
		logger.Info("Serving MCP over stdio")
		return mcpserver.New(svc, db).ServeStdio()
	}

	// SSE broker, fed by service mutations and watcher events.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()
	svc.OnEvent = broker.PublishChange

	apiRouter := api.NewRouter(svc, db, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Documents watcher: indexes external changes and folds externally
	// dropped files into the project.
	g.Go(func() error {
		index.Watch(gCtx, db, store, logger, func(kind, name string) {
			if kind == "created" {
				svc.RegisterDocument(name, "")
			}
			broker.PublishChange("document_"+kind, name)
		})
		return nil
	})

	// Autosave ticker. Mutations save synchronously already; this is a
	// safety net that also refreshes the fragment index.
	if cfg.App.AutosaveSeconds > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(cfg.App.AutosaveInterval())
			defer ticker.Stop()
			for {
				select {
				case <-gCtx.Done():
					return nil
				case <-ticker.C:
					if err := svc.Save(); err != nil {
						logger.Warn("autosave failed", slog.String("error", err.Error()))
					}
					if err := db.ReplaceFragments(svc.Codes()); err != nil {
						logger.Warn("fragment index refresh failed", slog.String("error", err.Error()))
					}
				}
			}
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		// Final save so an in-session coding pass is never lost on exit.
		if err := svc.Save(); err != nil {
			logger.Error("final save failed", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
