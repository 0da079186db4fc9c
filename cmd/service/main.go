// cmd/service/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"

	"repo-atlas/internal/api"
	"repo-atlas/internal/cache"
	"repo-atlas/internal/config"
	"repo-atlas/internal/database"
	"repo-atlas/internal/github"
	"repo-atlas/internal/identity"
	"repo-atlas/internal/service"
	"repo-atlas/internal/syncer"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("Application startup error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Initialize structured logger
	logLevel := new(slog.LevelVar)
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	// 2. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	setLogLevel(cfg.LogLevel, logLevel)
	logger.Info("Configuration loaded successfully")

	// 3. Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 4. Initialize database connection and run migrations
	dbpool, err := pgxpool.New(ctx, cfg.DBURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbpool.Close()
	logger.Info("Database connection established")

	if err := runMigrations(cfg.DBURL); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	logger.Info("Database migrations applied successfully")

	// 5. Initialize application components
	svc := newService(cfg, database.New(dbpool), logger)
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(svc, logger, cfg.RequestTimeout),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 6. Keep configured users' scans warm
	if cfg.RefreshInterval > 0 && len(cfg.StaticTokens) > 0 {
		users := slices.Sorted(maps.Keys(cfg.StaticTokens))
		appSyncer, err := syncer.NewSyncer(svc, logger, users, cfg.RefreshInterval)
		if err != nil {
			return fmt.Errorf("failed to create syncer: %w", err)
		}
		go appSyncer.Start(ctx)
	}

	// 7. Serve until shutdown signal
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received. Draining requests...")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	logger.Info("Shutdown complete")

	return nil
}

// newService wires the cache gate, token source and GitHub scanners.
func newService(cfg *config.Config, queries database.Querier, logger *slog.Logger) *service.Service {
	gate := cache.NewGate(queries, cfg.CacheMaxAge, logger)

	var tokens identity.TokenSource = identity.ContextTokens{}
	if len(cfg.StaticTokens) > 0 {
		tokens = identity.StaticTokens{Tokens: cfg.StaticTokens, Next: tokens}
	}

	ghOpts := []github.Option{github.WithMaxRetries(cfg.GithubMaxRetries)}
	if cfg.GithubAPIURL != "" {
		ghOpts = append(ghOpts, github.WithBaseURL(cfg.GithubAPIURL))
	}

	return service.New(gate, tokens, service.GitHubScanners(logger, ghOpts...), logger)
}

func runMigrations(dbURL string) error {
	m, err := migrate.New("file://migrations", dbURL)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func setLogLevel(level string, v *slog.LevelVar) {
	switch level {
	case "debug":
		v.Set(slog.LevelDebug)
	case "warn":
		v.Set(slog.LevelWarn)
	case "error":
		v.Set(slog.LevelError)
	default:
		v.Set(slog.LevelInfo)
	}
}
