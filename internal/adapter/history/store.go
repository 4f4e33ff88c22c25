// Package history persists the daily observation log and serves per-station
// trend windows from it.
package history

import (
	"context"
	"time"

	"github.com/couchcryptid/synop-dashboard/internal/domain"
)

// Store is an append-only log of daily station snapshots.
type Store interface {
	// Append writes one row per observation stamped with date and returns the
	// number of rows written.
	Append(ctx context.Context, date time.Time, obs []domain.Observation) (int, error)
	// Load returns entries for an exact station name captured on or after since.
	Load(ctx context.Context, station string, since time.Time) Result
	Close() error
}

// Status tells readers whether a history query produced data.
type Status string

const (
	StatusOK          Status = "ok"
	StatusEmpty       Status = "empty"
	StatusUnavailable Status = "unavailable"
)

// Result is the outcome of a history query. Reason is set when Status is
// StatusUnavailable.
type Result struct {
	Status  Status                `json:"status"`
	Reason  string                `json:"reason,omitempty"`
	Entries []domain.HistoryEntry `json:"entries"`
}

// Window returns the earliest instant inside a trailing window ending at now.
func Window(now time.Time, d time.Duration) time.Time {
	return now.Add(-d)
}

func unavailable(reason string) Result {
	return Result{Status: StatusUnavailable, Reason: reason, Entries: []domain.HistoryEntry{}}
}

func resultOf(entries []domain.HistoryEntry) Result {
	if len(entries) == 0 {
		return Result{Status: StatusEmpty, Entries: []domain.HistoryEntry{}}
	}
	return Result{Status: StatusOK, Entries: entries}
}

func inWindow(e domain.HistoryEntry, station string, since time.Time) bool {
	return e.Station == station && !e.CapturedOn.Before(since)
}
