package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/activity"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/cache"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/config"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/database"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/server"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/session"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/storage"
	"github.com/getsentry/sentry-go"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), rootOpts.cfg, migrate)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", true, "migrate the schema before serving")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, migrate bool) error {
	if cfg.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	store, err := openObjectStore(cfg)
	if err != nil {
		return err
	}

	var srv *server.Server
	if !cfg.StoreConfigured() {
		slog.Warn("record store is not configured, serving health checks only")
		srv = server.NewDegraded(cfg, store)
	} else {
		deps, err := connect(ctx, cfg, store, migrate)
		if err != nil {
			return err
		}
		srv = server.New(cfg, deps)
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	listenErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Port)
		listenErr <- srv.Listen()
	}()

	select {
	case <-quit:
		slog.Info("shutting down server...")
	case err := <-listenErr:
		if err != nil {
			slog.Error("server failed to start", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("server stopped")
	return nil
}

func connect(ctx context.Context, cfg *config.Config, store storage.ObjectStore, migrate bool) (server.Deps, error) {
	deps := server.Deps{Store: store}
	if store == nil {
		return deps, fmt.Errorf("object storage is not configured: set S3_ENDPOINT, S3_ACCESS_KEY and S3_SECRET_KEY")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return deps, err
	}
	if migrate {
		if err := database.Migrate(db); err != nil {
			return deps, err
		}
	}
	deps.DB = db

	if cfg.RedisURL != "" {
		client, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return deps, err
		}
		deps.Redis = client
		deps.Sessions = session.NewRedisStore(client)
	} else {
		slog.Warn("REDIS_URL not set, revoked sessions and rate limits are kept in memory")
		deps.Sessions = session.NewMemoryStore()
	}

	if cfg.AMQPURL != "" {
		sink, err := activity.NewAMQPSink(cfg.AMQPURL)
		if err != nil {
			return deps, err
		}
		deps.Sink = sink
	}
	return deps, nil
}

// openObjectStore returns nil when nothing is configured outside development.
func openObjectStore(cfg *config.Config) (storage.ObjectStore, error) {
	if cfg.ObjectStoreConfigured() {
		store, err := storage.NewMinio(cfg)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	if cfg.AppEnv == "development" {
		slog.Warn("object storage not configured, keeping uploads in memory")
		return storage.NewMemory("http://localhost:" + cfg.Port + "/uploads"), nil
	}
	return nil, nil
}
