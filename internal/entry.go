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
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/dailylog/internal/api"
	"github.com/starford/dailylog/internal/diary"
	"github.com/starford/dailylog/internal/index"
	"github.com/starford/dailylog/internal/mcpserver"
	"github.com/starford/dailylog/internal/models"
	"github.com/starford/dailylog/internal/sse"
	"github.com/starford/dailylog/internal/storage"
)

// runtime holds the components shared by every command.
type runtime struct {
	cfg    *Config
	logger *slog.Logger
	store  *storage.FS
	db     *index.DB
}

// setup applies opts, builds the logger, and opens the vault and index.
func setup(opts []Option) (*runtime, error) {
	app := &application{logOutput: os.Stdout}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("diary_folder", cfg.Diary.Folder),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	return &runtime{cfg: cfg, logger: logger, store: store, db: db}, nil
}

// diaryService builds the diary service journaling into the index.
func (rt *runtime) diaryService(opts ...diary.ServiceOption) (*diary.Service, error) {
	opts = append([]diary.ServiceOption{
		diary.WithJournal(rt.db),
		diary.WithLogger(rt.logger),
	}, opts...)
	svc, err := diary.NewService(rt.store, rt.cfg.Diary.Settings(), opts...)
	if err != nil {
		return nil, fmt.Errorf("init diary: %w", err)
	}
	return svc, nil
}

// Run starts the daemon: vault watcher, REST API and SSE stream.
func Run(ctx context.Context, opts ...Option) error {
	rt, err := setup(opts)
	if err != nil {
		return err
	}
	defer rt.db.Close()

	cfg, logger := rt.cfg, rt.logger

	// Seed the index so existing notes are not reported as created.
	if err := index.Sync(rt.db, rt.store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	// SSE broker.
	broker := sse.NewBroker(cfg.App.HTTP.SSEKeepAlive)
	defer broker.Close()

	svc, err := rt.diaryService(diary.WithNotifier(broker.PublishActivity))
	if err != nil {
		return err
	}

	apiRouter := api.NewRouter(svc, rt.db, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
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
		if ok, err := rt.store.Exists("."); err != nil || !ok {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"vault unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}
	// Open SSE streams end when the broker closes.
	httpServer.RegisterOnShutdown(broker.Close)

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher feeding the diary service.
	g.Go(func() error {
		if err := index.Watch(gCtx, rt.db, rt.store, rt.store.Root(), logger, svc.Handle); err != nil {
			return fmt.Errorf("watcher error: %w", err)
		}
		return nil
	})

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
		defer signal.Stop(quit)

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

		// Stops the watcher when shutdown came from a signal.
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools over stdio until the client disconnects.
func RunMCP(_ context.Context, opts ...Option) error {
	rt, err := setup(opts)
	if err != nil {
		return err
	}
	defer rt.db.Close()

	svc, err := rt.diaryService()
	if err != nil {
		return err
	}

	rt.logger.Info("MCP server starting on stdio")
	if err := mcpserver.New(svc, rt.db).ServeStdio(); err != nil {
		return fmt.Errorf("mcp serve: %w", err)
	}
	return nil
}

// LogChanges records one change event per path and returns the outcomes
// in input order. It stops at the first error.
func LogChanges(ctx context.Context, kind models.Kind, paths []string, opts ...Option) ([]diary.Outcome, error) {
	rt, err := setup(opts)
	if err != nil {
		return nil, err
	}
	defer rt.db.Close()

	svc, err := rt.diaryService()
	if err != nil {
		return nil, err
	}

	out := make([]diary.Outcome, 0, len(paths))
	for _, p := range paths {
		o, err := svc.Record(ctx, models.ChangeEvent{Path: p, Kind: kind})
		if err != nil {
			return out, fmt.Errorf("log %s: %w", p, err)
		}
		out = append(out, o)
	}
	return out, nil
}
