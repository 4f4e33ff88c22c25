package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/synop-dashboard/internal/adapter/http"
	"github.com/couchcryptid/synop-dashboard/internal/domain"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockSnapshots struct {
	snap domain.Snapshot
	err  error
}

func (m *mockSnapshots) Latest() (domain.Snapshot, error) { return m.snap, m.err }

func newTestServer(readyErr error) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, &mockSnapshots{err: errors.New("no observations available yet")}, slog.Default())
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(fmt.Errorf("pipeline has not completed a refresh yet"))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "pipeline has not completed a refresh yet", body["error"])
}

func TestStatusReturns503WithoutSnapshot(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatusReportsLatestRefresh(t *testing.T) {
	fetched := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(fetched.Add(90 * time.Second)))
	t.Cleanup(func() { domain.SetClock(nil) })

	lat, lon := 52.23, 21.01
	snaps := &mockSnapshots{snap: domain.Snapshot{
		RunID:      "run-7",
		FetchedAt:  fetched,
		RawRecords: 63,
		Dropped:    2,
		Observations: []domain.Observation{
			{Station: "Warszawa", Latitude: &lat, Longitude: &lon},
			{Station: "Śnieżka"},
		},
	}}
	srv := httpadapter.NewServer(":0", &mockReadiness{}, snaps, slog.Default())
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "run-7", body["run_id"])
	assert.Equal(t, "1m30s", body["age"])
	assert.Equal(t, 63.0, body["raw_records"])
	assert.Equal(t, 2.0, body["dropped_records"])
	assert.Equal(t, 2.0, body["stations"])
	assert.Equal(t, 1.0, body["stations_without_coordinates"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
