// Command synoplog appends today's synop observations to the history log and
// exits. Run it once a day from cron when the dashboard's own HISTORY_SCHEDULE
// is not used.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/synop-dashboard/internal/adapter/history"
	"github.com/couchcryptid/synop-dashboard/internal/adapter/imgw"
	"github.com/couchcryptid/synop-dashboard/internal/config"
	"github.com/couchcryptid/synop-dashboard/internal/observability"
	"github.com/couchcryptid/synop-dashboard/internal/pipeline"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := observability.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetricsForTesting()

	var store history.Store
	if cfg.HistoryBackend == config.HistorySQLite {
		s, err := history.OpenSQLite(cfg.HistoryPath)
		if err != nil {
			logger.Error("failed to open history store", "path", cfg.HistoryPath, "error", err)
			return 1
		}
		store = s
	} else {
		store = history.NewCSVStore(cfg.HistoryPath, logger)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.FetchTimeout*3)
	defer cancel()

	client := imgw.NewClient(cfg.SynopURL, cfg.FetchTimeout, metrics, logger)
	rec := pipeline.NewRecorder(client, store, logger, metrics)

	n, err := rec.AppendDaily(ctx)
	if err != nil {
		logger.Error("history append failed", "error", err)
		return 1
	}
	logger.Info("history log updated", "path", cfg.HistoryPath, "rows", n)
	return 0
}
