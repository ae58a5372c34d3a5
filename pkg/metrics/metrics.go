package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Data load metrics
	DataLoadsTotal    *prometheus.CounterVec
	DataLoadDuration  *prometheus.HistogramVec
	DataLoadsInFlight prometheus.Gauge
	RecordsLoaded     *prometheus.CounterVec

	// Data provider metrics
	ProviderCalls    *prometheus.CounterVec
	ProviderDuration *prometheus.HistogramVec
	ProviderFailures *prometheus.CounterVec

	// Selection store metrics
	ActionsDispatched *prometheus.CounterVec
	ActionsRejected   *prometheus.CounterVec
	ActiveSessions    prometheus.Gauge
}

// New registers all collectors on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),

		DataLoadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_data_loads_total",
				Help: "Total number of hierarchy loads",
			},
			[]string{"status"},
		),

		DataLoadDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dashboard_data_load_duration_seconds",
				Help:    "Hierarchy load duration in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"status"},
		),

		DataLoadsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "dashboard_data_loads_in_flight",
				Help: "Number of hierarchy loads currently running",
			},
		),

		RecordsLoaded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_records_loaded_total",
				Help: "Total number of entities loaded from the data provider",
			},
			[]string{"collection"},
		),

		ProviderCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "data_provider_calls_total",
				Help: "Total number of data provider fetches",
			},
			[]string{"provider", "document", "status"},
		),

		ProviderDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "data_provider_duration_seconds",
				Help:    "Data provider fetch duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider", "document"},
		),

		ProviderFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "data_provider_failures_total",
				Help: "Total number of data provider failures",
			},
			[]string{"provider", "document", "error_type"},
		),

		ActionsDispatched: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "selection_actions_total",
				Help: "Total number of selection actions applied",
			},
			[]string{"type"},
		),

		ActionsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "selection_actions_rejected_total",
				Help: "Total number of selection actions rejected as invalid",
			},
			[]string{"type"},
		),

		ActiveSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "dashboard_sessions_active",
				Help: "Number of dashboard sessions held in memory",
			},
		),
	}
}

// HTTP request metrics
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// Hierarchy load metrics
func (m *Metrics) RecordDataLoad(status string, duration time.Duration) {
	m.DataLoadsTotal.WithLabelValues(status).Inc()
	m.DataLoadDuration.WithLabelValues(status).Observe(duration.Seconds())
}

func (m *Metrics) RecordRecordsLoaded(collection string, count int) {
	m.RecordsLoaded.WithLabelValues(collection).Add(float64(count))
}

// Provider fetch metrics
func (m *Metrics) RecordProviderCall(provider, document, status string, duration time.Duration) {
	m.ProviderCalls.WithLabelValues(provider, document, status).Inc()
	m.ProviderDuration.WithLabelValues(provider, document).Observe(duration.Seconds())
}

func (m *Metrics) RecordProviderFailure(provider, document, errorType string) {
	m.ProviderFailures.WithLabelValues(provider, document, errorType).Inc()
}

func (m *Metrics) RecordAction(actionType string) {
	m.ActionsDispatched.WithLabelValues(actionType).Inc()
}

func (m *Metrics) RecordRejectedAction(actionType string) {
	m.ActionsRejected.WithLabelValues(actionType).Inc()
}

func (m *Metrics) IncDataLoadsInFlight() {
	m.DataLoadsInFlight.Inc()
}

func (m *Metrics) DecDataLoadsInFlight() {
	m.DataLoadsInFlight.Dec()
}

func (m *Metrics) IncHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Inc()
}

func (m *Metrics) DecHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Dec()
}

func (m *Metrics) SetActiveSessions(n int) {
	m.ActiveSessions.Set(float64(n))
}
