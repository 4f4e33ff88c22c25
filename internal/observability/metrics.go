package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "synop_dashboard"

// Metrics holds the Prometheus counters, histograms, and gauges for the refresh pipeline.
type Metrics struct {
	FetchRequests *prometheus.CounterVec // labels: outcome={success,error}
	FetchDuration prometheus.Histogram

	RawRecords     prometheus.Gauge
	DroppedRecords prometheus.Counter
	Stations       prometheus.Gauge
	Unpositioned   prometheus.Gauge

	RefreshDuration    prometheus.Histogram
	LastRefreshSuccess prometheus.Gauge

	// History log metrics.
	HistoryAppends *prometheus.CounterVec // labels: outcome={success,error}
	HistoryRows    prometheus.Counter

	// Kafka fan-out metrics.
	PublishRequests *prometheus.CounterVec // labels: outcome={success,error}
	PublishEnabled  prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_requests_total",
			Help:      "Synop endpoint requests by outcome.",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Synop endpoint request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		RawRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "raw_records",
			Help:      "Records received in the latest fetch.",
		}),
		DroppedRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_records_total",
			Help:      "Records discarded because a measurement was missing or malformed.",
		}),
		Stations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stations",
			Help:      "Distinct stations in the current snapshot.",
		}),
		Unpositioned: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stations_without_coordinates",
			Help:      "Stations in the current snapshot with no coordinate entry.",
		}),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Duration of a complete fetch-derive-publish cycle.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		LastRefreshSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_refresh_success_timestamp_seconds",
			Help:      "Unix time of the last successful refresh.",
		}),
		HistoryAppends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_appends_total",
			Help:      "Daily history log appends by outcome.",
		}, []string{"outcome"}),
		HistoryRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_rows_written_total",
			Help:      "Rows written to the history log.",
		}),
		PublishRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_requests_total",
			Help:      "Snapshot publishes to Kafka by outcome.",
		}, []string{"outcome"}),
		PublishEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "publish_enabled",
			Help:      "1 when Kafka fan-out is enabled, 0 otherwise.",
		}),
	}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, so
// tests can build as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.FetchRequests,
		m.FetchDuration,
		m.RawRecords,
		m.DroppedRecords,
		m.Stations,
		m.Unpositioned,
		m.RefreshDuration,
		m.LastRefreshSuccess,
		m.HistoryAppends,
		m.HistoryRows,
		m.PublishRequests,
		m.PublishEnabled,
	}
}
