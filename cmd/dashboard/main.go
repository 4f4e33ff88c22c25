package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/synop-dashboard/internal/adapter/dashboard"
	"github.com/couchcryptid/synop-dashboard/internal/adapter/history"
	httpadapter "github.com/couchcryptid/synop-dashboard/internal/adapter/http"
	"github.com/couchcryptid/synop-dashboard/internal/adapter/imgw"
	kafkaadapter "github.com/couchcryptid/synop-dashboard/internal/adapter/kafka"
	"github.com/couchcryptid/synop-dashboard/internal/adapter/stations"
	"github.com/couchcryptid/synop-dashboard/internal/config"
	"github.com/couchcryptid/synop-dashboard/internal/observability"
	"github.com/couchcryptid/synop-dashboard/internal/pipeline"
	"github.com/couchcryptid/synop-dashboard/internal/scheduler"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	client := imgw.NewClient(cfg.SynopURL, cfg.FetchTimeout, metrics, logger)
	coords := stations.NewLoader(cfg.StationsFile, logger)

	store, err := openHistory(cfg, logger)
	if err != nil {
		logger.Error("failed to open history store", "backend", cfg.HistoryBackend, "error", err)
		os.Exit(1)
	}

	// Kafka fan-out is feature-flagged via KAFKA_ENABLED.
	var publisher pipeline.Publisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("kafka fan-out enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("kafka fan-out disabled")
	}

	p := pipeline.New(client, coords, publisher, logger, metrics)
	recorder := pipeline.NewRecorder(client, store, logger, metrics)

	sched := scheduler.New(cfg.FetchTimeout*3, logger)
	if err := sched.ScheduleRefresh(p, cfg.RefreshInterval); err != nil {
		logger.Error("failed to schedule refresh", "error", err)
		os.Exit(1)
	}
	if cfg.HistorySchedule != "" {
		if err := sched.ScheduleHistory(recorder, cfg.HistorySchedule); err != nil {
			logger.Error("failed to schedule history capture", "error", err)
			os.Exit(1)
		}
	}

	ops := httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)
	handler := dashboard.NewHandler(p, p, store, cfg.HistoryWindow, logger)
	api := dashboard.NewServer(cfg.DashboardAddr, handler, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := ops.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ops server error", "error", err)
		}
	}()

	go func() {
		if err := api.Start(); err != nil {
			logger.Error("dashboard server error", "error", err)
		}
	}()

	sched.Start(ctx)
	logger.Info("synop dashboard running",
		"refresh_interval", cfg.RefreshInterval,
		"history_backend", cfg.HistoryBackend,
		"jobs", sched.Tags(),
	)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	sched.Stop()
	if err := api.Shutdown(shutdownCtx); err != nil {
		logger.Error("dashboard server shutdown error", "error", err)
	}
	if err := ops.Shutdown(shutdownCtx); err != nil {
		logger.Error("ops server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if err := store.Close(); err != nil {
		logger.Error("history store close error", "error", err)
	}

	logger.Info("shutdown complete")
}

func openHistory(cfg *config.Config, logger *slog.Logger) (history.Store, error) {
	if cfg.HistoryBackend == config.HistorySQLite {
		s, err := history.OpenSQLite(cfg.HistoryPath)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return history.NewCSVStore(cfg.HistoryPath, logger), nil
}
