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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/jwalitptl/clinic-console/internal/config"
	"github.com/jwalitptl/clinic-console/internal/email"
	"github.com/jwalitptl/clinic-console/pkg/logger"
	"github.com/jwalitptl/clinic-console/pkg/messaging/redis"
	"github.com/jwalitptl/clinic-console/pkg/metrics"
	"github.com/jwalitptl/clinic-console/pkg/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	appLogger := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		JSON:       cfg.Log.JSON,
	})
	log.Logger = *appLogger.Zerolog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLogger); err != nil {
		appLogger.Fatal(err, "worker stopped")
	}
	appLogger.Info("worker exited")
}

func run(ctx context.Context, cfg *config.Config, appLogger *logger.Logger) error {
	redisClient, err := redis.NewClient(ctx, cfg.Redis.ToBrokerConfig())
	if err != nil {
		return err
	}
	defer redisClient.Close()

	broker := redis.NewRedisBroker(redisClient, appLogger.Zerolog())
	defer broker.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	notifier := worker.NewFeedbackNotifier(
		broker,
		email.NewSMTPService(cfg.SMTP),
		cfg.Notifier.ToWorkerConfig(),
		appLogger,
		metrics.NewMetrics("clinic", registry),
	)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: healthMux(registry, func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		appLogger.Info("feedback notifier started", "recipients", len(cfg.Notifier.Recipients))
		if err := notifier.Start(gctx); err != nil {
			return err
		}
		if gctx.Err() == nil {
			return errors.New("feedback subscription closed")
		}
		return nil
	})
	g.Go(func() error {
		appLogger.Info("health server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func healthMux(gatherer prometheus.Gatherer, ready func(context.Context) error) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := ready(ctx); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}
