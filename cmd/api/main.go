package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/clinic-console/internal/app"
	"github.com/jwalitptl/clinic-console/internal/config"
	"github.com/jwalitptl/clinic-console/internal/handler/health"
	"github.com/jwalitptl/clinic-console/internal/repository/postgres"
	"github.com/jwalitptl/clinic-console/internal/service/draft"
	"github.com/jwalitptl/clinic-console/internal/storage"
	"github.com/jwalitptl/clinic-console/internal/storage/minio"
	"github.com/jwalitptl/clinic-console/internal/storage/s3"
	"github.com/jwalitptl/clinic-console/pkg/logger"
	"github.com/jwalitptl/clinic-console/pkg/messaging/redis"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "clinic-console",
		Short:        "Clinic profile intake console API",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, appLogger, err := bootstrap()
			if err != nil {
				return err
			}

			db, err := postgres.NewDB(cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			count, err := postgres.NewMigrator(db).Up(context.Background())
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			appLogger.Info("migrations applied", "count", count)
			return nil
		},
	})
	return cmd
}

func bootstrap() (*config.Config, *logger.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	appLogger := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		JSON:       cfg.Log.JSON,
	})
	log.Logger = *appLogger.Zerolog()
	return cfg, appLogger, nil
}

func runServer() error {
	cfg, appLogger, err := bootstrap()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient, err := redis.NewClient(ctx, cfg.Redis.ToBrokerConfig())
	if err != nil {
		return err
	}
	defer redisClient.Close()

	broker := redis.NewRedisBroker(redisClient, appLogger.Zerolog())
	defer broker.Close()

	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	console, err := app.New(cfg, app.Infra{
		Repos:    app.PostgresRepositories(db),
		Store:    store,
		Drafts:   openDrafts(cfg.Draft, redisClient),
		Broker:   broker,
		Registry: registry,
		Checks:   readinessChecks(db, redisClient),
		Logger:   appLogger,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      console.Router.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		appLogger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	appLogger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	appLogger.Info("server exited")
	return nil
}

func openStore(ctx context.Context, cfg config.StorageConfig) (storage.ObjectStore, error) {
	switch cfg.Driver {
	case "minio":
		client, err := minio.NewClient(cfg)
		if err != nil {
			return nil, err
		}
		store := minio.NewStore(client, cfg)
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case "s3":
		client, err := s3.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return s3.NewStore(client, cfg), nil
	case "memory":
		return storage.NewMemoryStore(cfg.PublicBaseURL, cfg.Bucket), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func openDrafts(cfg config.DraftConfig, client *goredis.Client) draft.Store {
	if cfg.Driver == "redis" {
		return draft.NewRedisStore(client, cfg.TTL)
	}
	return draft.NewMemoryStore(cfg.TTL)
}

func readinessChecks(db *sqlx.DB, client *goredis.Client) map[string]health.Check {
	return map[string]health.Check{
		"database": db.PingContext,
		"redis": func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
	}
}
