package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/synop-dashboard/internal/domain"
	"github.com/couchcryptid/synop-dashboard/internal/observability"
)

// ErrNoSnapshot is returned when no refresh has succeeded yet.
var ErrNoSnapshot = errors.New("no observations available yet")

// Source fetches the raw synop table.
type Source interface {
	Fetch(ctx context.Context) ([]domain.RawObservation, error)
}

// CoordinateLoader provides the station coordinate table.
type CoordinateLoader interface {
	Load() (domain.CoordinateTable, error)
}

// Publisher fans a fresh snapshot out to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, snap domain.Snapshot) error
}

// Pipeline turns one fetch into a Snapshot and keeps the latest one for readers.
type Pipeline struct {
	source    Source
	coords    CoordinateLoader
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics
	newID     func() string

	mu     sync.Mutex
	latest atomic.Pointer[domain.Snapshot]
}

// New creates a Pipeline. Pass a nil publisher to disable fan-out.
func New(src Source, coords CoordinateLoader, pub Publisher, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	enabled := 0.0
	if pub != nil {
		enabled = 1
	}
	metrics.PublishEnabled.Set(enabled)

	return &Pipeline{
		source:    src,
		coords:    coords,
		publisher: pub,
		logger:    logger,
		metrics:   metrics,
		newID:     uuid.NewString,
	}
}

// CheckReadiness returns nil once a refresh has succeeded, or an error
// describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if p.latest.Load() == nil {
		return errors.New("pipeline has not completed a refresh yet")
	}
	return nil
}

// Latest returns the most recent snapshot.
func (p *Pipeline) Latest() (domain.Snapshot, error) {
	snap := p.latest.Load()
	if snap == nil {
		return domain.Snapshot{}, ErrNoSnapshot
	}
	return *snap, nil
}

// Refresh fetches, derives and stores a new snapshot. Concurrent calls are
// serialized. On a fetch error the previous snapshot stays in place.
func (p *Pipeline) Refresh(ctx context.Context) (domain.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	runID := p.newID()
	logger := p.logger.With("run_id", runID)

	raws, err := p.source.Fetch(ctx)
	if err != nil {
		logger.Error("fetch failed", "error", err)
		return domain.Snapshot{}, fmt.Errorf("fetch observations: %w", err)
	}

	table, err := p.coords.Load()
	if err != nil {
		logger.Warn("coordinates unavailable, continuing without positions", "error", err)
	}

	snap := domain.NewSnapshot(runID, raws, table)
	p.latest.Store(&snap)
	p.record(snap)

	if p.publisher != nil {
		if err := p.publisher.Publish(ctx, snap); err != nil {
			p.metrics.PublishRequests.WithLabelValues("error").Inc()
			logger.Warn("publish failed", "error", err)
		} else {
			p.metrics.PublishRequests.WithLabelValues("success").Inc()
		}
	}

	p.metrics.RefreshDuration.Observe(time.Since(start).Seconds())
	logger.Info("refresh complete",
		"records", snap.RawRecords,
		"dropped", snap.Dropped,
		"stations", len(snap.Observations),
		"duration", time.Since(start),
	)
	return snap, nil
}

func (p *Pipeline) record(snap domain.Snapshot) {
	unpositioned := 0
	for _, o := range snap.Observations {
		if !o.HasPosition() {
			unpositioned++
		}
	}
	p.metrics.RawRecords.Set(float64(snap.RawRecords))
	p.metrics.DroppedRecords.Add(float64(snap.Dropped))
	p.metrics.Stations.Set(float64(len(snap.Observations)))
	p.metrics.Unpositioned.Set(float64(unpositioned))
	p.metrics.LastRefreshSuccess.Set(float64(snap.FetchedAt.Unix()))
}
