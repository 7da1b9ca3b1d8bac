// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/servemd/internal/accesslog"
	"github.com/starford/servemd/internal/api"
	"github.com/starford/servemd/internal/content"
	"github.com/starford/servemd/internal/mcpserver"
	"github.com/starford/servemd/internal/pipeline"
	"github.com/starford/servemd/internal/settings"
	"github.com/starford/servemd/internal/site"
	pkgconfig "github.com/starford/servemd/pkg/config"
)

// components holds the parts shared by the HTTP and MCP entry points.
type components struct {
	cfg      *Config
	logger   *slog.Logger
	library  *content.Library
	settings *settings.Store
	log      *accesslog.Store
	pipeline *pipeline.Pipeline
}

func (rt *components) Close() error {
	return rt.log.Close()
}

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// bootstrap opens the content library and the access log. Logs go to out.
func bootstrap(app *application, out io.Writer) (*components, error) {
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("base_url", cfg.App.BaseURL),
		slog.String("content_path", cfg.Content.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure content directory exists.
	if err := os.MkdirAll(cfg.Content.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create content dir: %w", err)
	}

	fsys, err := content.NewFS(cfg.Content.Path)
	if err != nil {
		return nil, fmt.Errorf("init content: %w", err)
	}
	lib := content.NewLibrary(fsys, cfg.App.BaseURL, logger)

	// Run initial sync.
	if err := lib.Sync(); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	log, err := accesslog.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init access log: %w", err)
	}

	st := settings.NewStore(cfg.Serve)
	return &components{
		cfg:      cfg,
		logger:   logger,
		library:  lib,
		settings: st,
		log:      log,
		pipeline: pipeline.New(lib, st, log, logger),
	}, nil
}

// NewRouter builds the HTTP handler: health checks, the admin API under
// /api, and every other path through the Markdown middleware to the page
// handler.
func NewRouter(cfg *Config, lib *content.Library, st *settings.Store, log accesslog.Log, pipe *pipeline.Pipeline, logger *slog.Logger) http.Handler {
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

	// Mount API routes under /api.
	r.Mount("/api", api.NewRouter(api.NewHandler(log, pipe, st), cfg.Auth.AuthEnabled(), cfg.Auth.Token))

	// Site pages, answered as Markdown when requested.
	r.Handle("/*", pipe.Middleware(site.NewHandler(lib, pipe, st, logger)))

	return r
}

// reloadServe returns a ReloadFunc that re-reads the serve section of the
// config file at path.
func reloadServe(path string) settings.ReloadFunc {
	return func() (settings.Settings, error) {
		cfg, err := pkgconfig.LoadFresh(path, NewDefaultConfig)
		if err != nil {
			return settings.Settings{}, err
		}
		return cfg.Serve, nil
	}
}

// startWatchers runs the content watcher and, when a config path is known,
// the settings watcher in g. Watcher failures are logged and do not stop
// the application.
func startWatchers(ctx context.Context, g *errgroup.Group, app *application, rt *components) {
	g.Go(func() error {
		err := content.Watch(ctx, rt.library, rt.logger, func(kind, file string) {
			rt.logger.Debug("content changed", slog.String("kind", kind), slog.String("file", file))
		})
		if err != nil {
			rt.logger.Warn("content watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	if app.configPath == "" {
		return
	}
	g.Go(func() error {
		if err := settings.Watch(ctx, app.configPath, rt.settings, reloadServe(app.configPath), rt.logger); err != nil {
			rt.logger.Warn("settings watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := bootstrap(app, os.Stdout)
	if err != nil {
		return err
	}
	defer rt.Close()

	cfg := rt.cfg
	logger := rt.logger

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           NewRouter(cfg, rt.library, rt.settings, rt.log, rt.pipeline, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	startWatchers(gCtx, g, app, rt)

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

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watchers stop with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools over stdio. Logs go to stderr since stdout
// carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := bootstrap(app, os.Stderr)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)
	startWatchers(gCtx, g, app, rt)

	srv := mcpserver.New(rt.pipeline, rt.log)
	rt.logger.Info("MCP server starting on stdio")
	serveErr := srv.ServeStdio()
	cancel()
	_ = g.Wait()
	if serveErr != nil {
		return fmt.Errorf("mcp serve: %w", serveErr)
	}
	return nil
}
