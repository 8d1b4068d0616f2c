package main

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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/gymplanner/internal/api"
	"example.com/gymplanner/internal/config"
	"example.com/gymplanner/internal/domain"
	"example.com/gymplanner/internal/logging"
	"example.com/gymplanner/internal/observability"
	"example.com/gymplanner/internal/outbox"
	"example.com/gymplanner/internal/persistence/memory"
	"example.com/gymplanner/internal/persistence/postgres"
	"example.com/gymplanner/internal/persistence/sqlite"
	httptransport "example.com/gymplanner/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		slog.Error("workout-service failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		repo       domain.WorkoutRepository
		dispatcher *outbox.Dispatcher
	)

	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := postgres.Migrate(ctx, pool); err != nil {
			return err
		}

		var opts []postgres.Option
		if cfg.EventsEnabled() {
			opts = append(opts, postgres.WithOutbox(cfg.WorkoutEventsTopic))

			kafkaWriter := outbox.NewWorkoutWriter(cfg.KafkaBrokers, cfg.WorkoutEventsTopic, cfg.KafkaBatchTimeout)
			defer kafkaWriter.Close()

			writer := outbox.NewBreakerWriter(kafkaWriter, uint(cfg.BreakerFailures), cfg.BreakerDelay)
			store := outbox.NewStore(pool, cfg.WorkoutEventsTopic, cfg.OutboxMaxAttempts, cfg.OutboxClaimLease)
			dispatcher = outbox.NewDispatcher(store, writer, cfg.OutboxPollInterval, cfg.OutboxBatchSize)
			go dispatcher.Start(ctx)
			slog.Info("outbox dispatcher started", "topic", cfg.WorkoutEventsTopic, "brokers", cfg.KafkaBrokers)
		}
		repo = postgres.NewRepository(pool, opts...)
	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return err
		}
		defer store.Close()
		repo = store
	default:
		repo = memory.NewRepository()
	}
	slog.Info("workout store ready", "driver", cfg.StoreDriver)

	service := domain.NewService(repo)

	handler := api.NewHandler(service)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	metrics := observability.NewHTTPMetrics(prometheus.DefaultRegisterer)

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}, httptransport.Stack(mux, cfg.CORSOrigin, metrics))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("workout-service listening", "address", cfg.HTTPAddress(), "env", cfg.AppEnv)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-shutdownCh:
		slog.Info("shutdown requested")
	case err := <-serveErr:
		cancel()
		return fmt.Errorf("server error: %w", err)
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("graceful shutdown failed", "error", err)
	}

	if dispatcher != nil {
		dispatcher.Wait()
	}
	return nil
}
