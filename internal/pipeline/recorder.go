package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/synop-dashboard/internal/domain"
	"github.com/couchcryptid/synop-dashboard/internal/observability"
)

// HistoryAppender persists one day's observations.
type HistoryAppender interface {
	Append(ctx context.Context, date time.Time, obs []domain.Observation) (int, error)
}

// Recorder captures the daily historical log: one row per station per run,
// stamped with the current UTC date.
type Recorder struct {
	source  Source
	store   HistoryAppender
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewRecorder creates a Recorder.
func NewRecorder(src Source, store HistoryAppender, logger *slog.Logger, metrics *observability.Metrics) *Recorder {
	return &Recorder{source: src, store: store, logger: logger, metrics: metrics}
}

// AppendDaily fetches the current table, cleans and aggregates it, and
// appends it to the log. It returns the number of rows written.
func (r *Recorder) AppendDaily(ctx context.Context) (int, error) {
	raws, err := r.source.Fetch(ctx)
	if err != nil {
		r.metrics.HistoryAppends.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("fetch observations: %w", err)
	}

	today := domain.Today()
	n, err := r.store.Append(ctx, today, domain.CleanAndAggregate(raws))
	if err != nil {
		r.metrics.HistoryAppends.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("append history: %w", err)
	}

	r.metrics.HistoryAppends.WithLabelValues("success").Inc()
	r.metrics.HistoryRows.Add(float64(n))
	r.logger.Info("history appended", "date", today.Format(time.DateOnly), "rows", n)
	return n, nil
}
