package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/brojonat/solkit/service/config"
	"github.com/brojonat/solkit/service/db"
	"github.com/brojonat/solkit/service/metrics"
	natspkg "github.com/brojonat/solkit/service/nats"
	"github.com/brojonat/solkit/service/server"
	"github.com/brojonat/solkit/service/temporal"
	"github.com/brojonat/solkit/service/toolkit"
)

func main() {
	// A local .env is optional; real environment variables take precedence.
	_ = godotenv.Load()

	// Load and validate configuration from environment
	// This fails fast if any required config is missing or invalid
	cfg := config.MustLoad()

	// Setup structured logging
	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting server",
		"addr", cfg.ServerAddr,
		"log_level", cfg.LogLevel,
		"network", cfg.SolanaNetwork,
	)

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Prometheus metrics collector
	metricsCollector := metrics.NewMetrics(nil) // nil uses default registry

	a, err := toolkit.NewAgentFromConfig(cfg, metricsCollector, logger)
	if err != nil {
		logger.Error("failed to initialize agent", "error", err)
		os.Exit(1)
	}

	registry, err := toolkit.NewAgentRegistry(a, logger,
		toolkit.WithTimeout(cfg.ToolTimeout),
		toolkit.WithMetrics(metricsCollector),
	)
	if err != nil {
		logger.Error("failed to register tools", "error", err)
		os.Exit(1)
	}

	// Interface-typed dependencies are only assigned when configured so that
	// a missing backend stays a nil interface.
	var (
		store        server.Store
		recordStore  temporal.StoreInterface
		publisher    temporal.PublisherInterface
		executor     server.ToolExecutor
		ssePublisher *server.SSEPublisher
	)

	// Initialize database (optional)
	if cfg.DatabaseURL != "" {
		dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer dbPool.Close()

		if err := dbPool.Ping(ctx); err != nil {
			logger.Error("failed to ping database", "error", err)
			os.Exit(1)
		}

		dbStore := db.NewStore(dbPool, metricsCollector)
		if err := dbStore.EnsureSchema(ctx); err != nil {
			logger.Error("failed to ensure schema", "error", err)
			os.Exit(1)
		}
		store = dbStore
		recordStore = dbStore
		logger.Info("connected to database")
	} else {
		logger.Warn("DATABASE_URL not set, invocation log and chat storage disabled")
	}

	// Initialize NATS (optional)
	if cfg.NATSURL != "" {
		natsPublisher, err := natspkg.NewPublisher(cfg.NATSURL, metricsCollector, logger)
		if err != nil {
			logger.Error("failed to create NATS publisher", "error", err)
			os.Exit(1)
		}
		defer natsPublisher.Close()
		publisher = natsPublisher

		ssePublisher, err = server.NewSSEPublisher(cfg.NATSURL, logger)
		if err != nil {
			logger.Error("failed to create SSE publisher", "error", err)
			os.Exit(1)
		}
		logger.Info("connected to NATS", "url", cfg.NATSURL)
	} else {
		logger.Warn("NATS_URL not set, tool event streaming disabled")
	}

	// Synchronous calls are recorded and published as they finish. Durable
	// executions do this from the workflow instead.
	sideEffects := temporal.NewActivities(nil, recordStore, publisher, metricsCollector, logger)
	registry.AddObserver(func(ctx context.Context, inv toolkit.Invocation) {
		ctx = context.WithoutCancel(ctx)
		_ = sideEffects.RecordInvocation(ctx, inv)
		_ = sideEffects.PublishToolEvent(ctx, inv)
	})

	// Initialize Temporal client (optional)
	if cfg.TemporalEnabled {
		temporalClient, err := temporal.NewClient(
			cfg.TemporalHost,
			cfg.TemporalNamespace,
			cfg.TemporalTaskQueue,
			cfg.ToolTimeout,
			logger,
		)
		if err != nil {
			logger.Error("failed to create temporal client", "error", err)
			os.Exit(1)
		}
		defer temporalClient.Close()
		executor = temporalClient
	}

	// Initialize HTTP server
	httpServer := server.New(cfg.ServerAddr, cfg, registry, store, executor, ssePublisher, metricsCollector, logger)
	if err := httpServer.WithTemplates(); err != nil {
		logger.Error("failed to load templates", "error", err)
		os.Exit(1)
	}

	logger.Info("server initialized, all dependencies ready",
		"tools", len(registry.List()),
		"database", store != nil,
		"nats", publisher != nil,
		"temporal", executor != nil,
	)

	// Start HTTP server in background
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- httpServer.Start()
	}()

	// Wait for shutdown signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())

		// Graceful shutdown with timeout
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown server gracefully", "error", err)
			os.Exit(1)
		}

		logger.Info("server shutdown complete")
	}
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
