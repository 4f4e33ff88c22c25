// Package scheduler drives periodic refreshes and the daily history capture.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/couchcryptid/synop-dashboard/internal/domain"
)

const (
	tagRefresh = "refresh"
	tagHistory = "history"
)

// Refresher rebuilds the current snapshot.
type Refresher interface {
	Refresh(ctx context.Context) (domain.Snapshot, error)
}

// DailyRecorder appends today's observations to the history log.
type DailyRecorder interface {
	AppendDaily(ctx context.Context) (int, error)
}

// Scheduler runs jobs in singleton mode, so a slow run never overlaps the
// next tick of the same job.
type Scheduler struct {
	cron    *gocron.Scheduler
	logger  *slog.Logger
	timeout time.Duration
	ctx     context.Context
}

// New creates a scheduler on UTC. Each job run gets its own timeout.
func New(timeout time.Duration, logger *slog.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		cron:    s,
		logger:  logger,
		timeout: timeout,
		ctx:     context.Background(),
	}
}

// ScheduleRefresh runs r every interval, starting immediately.
func (s *Scheduler) ScheduleRefresh(r Refresher, every time.Duration) error {
	if every <= 0 {
		return fmt.Errorf("refresh interval must be positive, got %s", every)
	}
	_, err := s.cron.Every(every).Tag(tagRefresh).Do(func() {
		ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
		defer cancel()

		if _, err := r.Refresh(ctx); err != nil {
			s.logger.Error("scheduled refresh failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule refresh: %w", err)
	}
	return nil
}

// ScheduleHistory runs rec on a five-field cron expression in UTC.
func (s *Scheduler) ScheduleHistory(rec DailyRecorder, spec string) error {
	_, err := s.cron.Cron(spec).Tag(tagHistory).Do(func() {
		ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
		defer cancel()

		if _, err := rec.AppendDaily(ctx); err != nil {
			s.logger.Error("scheduled history append failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule history %q: %w", spec, err)
	}
	return nil
}

// Start begins running jobs in the background. Job contexts derive from ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.logger.Info("scheduler started", "jobs", s.cron.Len())
	s.cron.StartAsync()
}

// Stop halts the scheduler. Running jobs are allowed to finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("scheduler stopped")
}

// Tags lists the tags of every scheduled job.
func (s *Scheduler) Tags() []string {
	var tags []string
	for _, j := range s.cron.Jobs() {
		tags = append(tags, j.Tags()...)
	}
	return tags
}
