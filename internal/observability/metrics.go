package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "groundwater"

// Metrics holds the Prometheus counters, histograms, and gauges for the API
// client and the alert relay.
type Metrics struct {
	// API client metrics.
	ClientRequests        *prometheus.CounterVec   // labels: method, outcome={success,http_error,transport_error}
	ClientRequestDuration *prometheus.HistogramVec // labels: method

	// Alert relay metrics.
	AlertsFetched      prometheus.Counter
	AlertsPublished    prometheus.Counter
	AlertsDeduplicated prometheus.Counter
	PollErrors         *prometheus.CounterVec // labels: stage={fetch,publish}
	PollDuration       prometheus.Histogram
	RelayRunning       prometheus.Gauge

	// Taxonomy cache lookups.
	TaxonomyCache *prometheus.CounterVec // labels: kind, result={hit,miss}
}

func newMetrics() *Metrics {
	return &Metrics{
		ClientRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "client_requests_total",
			Help:      "Outbound API requests by HTTP method and outcome.",
		}, []string{"method", "outcome"}),
		ClientRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "client_request_duration_seconds",
			Help:      "Outbound API request duration in seconds, until response headers arrive.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"method"}),
		AlertsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_alerts_fetched_total",
			Help:      "Total alerts returned by the alerts endpoint.",
		}),
		AlertsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_alerts_published_total",
			Help:      "Total alert events written to Kafka.",
		}),
		AlertsDeduplicated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_alerts_deduplicated_total",
			Help:      "Alerts skipped because they were already published.",
		}),
		PollErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_poll_errors_total",
			Help:      "Relay poll failures by stage.",
		}, []string{"stage"}),
		PollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "relay_poll_duration_seconds",
			Help:      "Duration of a complete fetch-transform-publish cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		RelayRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "relay_running",
			Help:      "1 when the relay loop is active, 0 when shut down.",
		}),
		TaxonomyCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "taxonomy_cache_total",
			Help:      "Taxonomy cache lookups by kind and result.",
		}, []string{"kind", "result"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.ClientRequests,
		m.ClientRequestDuration,
		m.AlertsFetched,
		m.AlertsPublished,
		m.AlertsDeduplicated,
		m.PollErrors,
		m.PollDuration,
		m.RelayRunning,
		m.TaxonomyCache,
	}
}

// NewMetrics creates all metrics and registers them with reg. Pass
// prometheus.DefaultRegisterer to expose them on the default /metrics handler.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
