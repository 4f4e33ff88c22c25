package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn", "json")

	logger.Info("hidden")
	logger.Warn("shown", "station", "Hel")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "Hel", line["station"])
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "debug", "text")

	logger.Debug("refresh complete", "stations", 61)

	assert.Contains(t, buf.String(), "refresh complete")
	assert.Contains(t, buf.String(), "stations")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func TestNewMetricsForTesting(t *testing.T) {
	m := NewMetricsForTesting()
	m.FetchRequests.WithLabelValues("success").Inc()
	m.Stations.Set(61)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchRequests.WithLabelValues("success")))
	assert.Equal(t, 61.0, testutil.ToFloat64(m.Stations))

	reg := prometheus.NewRegistry()
	require.NotPanics(t, func() { reg.MustRegister(m.collectors()...) })
	require.NotPanics(t, func() { prometheus.NewRegistry().MustRegister(NewMetricsForTesting().collectors()...) })
}
