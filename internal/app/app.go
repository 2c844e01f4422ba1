// Package app initializes and orchestrates the main components of the Lyric
// Warden application. It wires together the configuration, GitHub client,
// review controller, push orchestrator, and HTTP server.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sevigo/lyric-warden/internal/config"
	"github.com/sevigo/lyric-warden/internal/core"
	"github.com/sevigo/lyric-warden/internal/db"
	"github.com/sevigo/lyric-warden/internal/github"
	"github.com/sevigo/lyric-warden/internal/push"
	"github.com/sevigo/lyric-warden/internal/review"
	"github.com/sevigo/lyric-warden/internal/server"
	"github.com/sevigo/lyric-warden/internal/storage"
)

// App holds the main application components. Store and GitHub are exported
// for the CLI, which reuses the wired graph without the HTTP server.
type App struct {
	Store  storage.Store
	GitHub github.Client

	ctx        context.Context
	cfg        *config.Config
	server     *server.Server
	controller *review.Controller
	logger     *slog.Logger
	dbCleanup  func()
}

// NewApp sets up the application with all its dependencies.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	logger.Info("initializing Lyric Warden application",
		"repo", cfg.GitHub.RepoOwner+"/"+cfg.GitHub.RepoName,
		"poll_interval", cfg.Review.PollInterval)

	ghClient, err := github.NewClientFromConfig(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub client: %w", err)
	}

	store, dbCleanup, err := newStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	orchestrator := push.NewOrchestrator(
		ghClient,
		cfg.GitHub.Token,
		cfg.GitHub.RepoOwner,
		cfg.GitHub.RepoName,
		cfg.Review.AutomationLogin,
		cfg.Review.PollInterval,
		push.AutoConfirm{},
		push.Callbacks{},
		logger,
	)

	controller := review.NewController(store, orchestrator, core.ToolMode(cfg.Review.DefaultToolMode), logger)
	httpServer := server.NewServer(ctx, cfg, controller, ghClient, store, logger)

	logger.Info("Lyric Warden application initialized successfully")
	return &App{
		Store:      store,
		GitHub:     ghClient,
		ctx:        ctx,
		cfg:        cfg,
		server:     httpServer,
		controller: controller,
		logger:     logger,
		dbCleanup:  dbCleanup,
	}, nil
}

// newStore returns the Postgres-backed draft store when a database host is
// configured, otherwise the in-memory store.
func newStore(cfg *config.Config, logger *slog.Logger) (storage.Store, func(), error) {
	if cfg.Database.Host == "" {
		logger.Info("no database configured, using in-memory draft store")
		return storage.NewMemoryStore(), func() {}, nil
	}

	dbConn, cleanup, err := db.NewDatabase(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return storage.NewStore(dbConn.DB), cleanup, nil
}

// Start runs the HTTP server.
func (a *App) Start() error {
	a.logger.Info("starting Lyric Warden", "server_port", a.cfg.Server.Port)

	if err := a.server.Start(); err != nil {
		a.logger.Error("failed to start HTTP server", "error", err)
		return err
	}
	return nil
}

// Stop shuts down the application cleanly.
func (a *App) Stop() error {
	a.logger.Info("shutting down Lyric Warden services")

	// Stop the HTTP server first to prevent new incoming requests.
	serverErr := a.server.Stop()
	if serverErr != nil {
		a.logger.Error("error during HTTP server shutdown", "error", serverErr)
		// Continue to stop other components even if the server failed.
	}

	// Cancel the active session, which also stops any in-flight PR polling.
	a.controller.Cancel()

	if a.dbCleanup != nil {
		a.logger.Info("closing database connection")
		a.dbCleanup()
	}

	if serverErr != nil {
		a.logger.Error("Lyric Warden stopped with errors", "error", serverErr)
		return serverErr
	}

	a.logger.Info("Lyric Warden stopped successfully")
	return nil
}
