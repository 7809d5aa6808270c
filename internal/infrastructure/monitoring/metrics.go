package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Install metrics
	InstallsTotal   *prometheus.CounterVec
	InstallsActive  prometheus.Gauge
	InstallDuration *prometheus.HistogramVec
	DownloadedBytes prometheus.Counter
	UninstallsTotal *prometheus.CounterVec

	// Catalog metrics
	CatalogSkipped prometheus.Counter

	// Auth metrics
	AuthAttempts *prometheus.CounterVec

	// Event metrics
	EventsPublished *prometheus.CounterVec
	EventsDropped   prometheus.Counter
	WSConnections   prometheus.Gauge

	// System metrics
	Uptime    prometheus.GaugeFunc
	startTime time.Time
}

// NewMetrics creates a metrics collector on its own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "librarian_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "librarian_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "librarian_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "librarian_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),

		// Install metrics
		InstallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "librarian_installs_total",
				Help: "Total number of finished installs by result",
			},
			[]string{"result"},
		),
		InstallsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "librarian_installs_active",
				Help: "Number of install sessions in flight",
			},
		),
		InstallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "librarian_install_duration_seconds",
				Help:    "Install session duration in seconds",
				Buckets: []float64{1, 5, 15, 30, 60, 300, 900, 1800, 3600},
			},
			[]string{"result"},
		),
		DownloadedBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "librarian_downloaded_bytes_total",
				Help: "Total archive bytes transferred",
			},
		),
		UninstallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "librarian_uninstalls_total",
				Help: "Total number of uninstalls by result",
			},
			[]string{"result"},
		),

		// Catalog metrics
		CatalogSkipped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "librarian_catalog_skipped_entries_total",
				Help: "Catalog entries skipped because their metadata failed to load",
			},
		),

		// Auth metrics
		AuthAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "librarian_auth_attempts_total",
				Help: "Total number of login attempts by result",
			},
			[]string{"result"},
		),

		// Event metrics
		EventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "librarian_events_published_total",
				Help: "Total number of events published by type",
			},
			[]string{"type"},
		),
		EventsDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "librarian_events_dropped_total",
				Help: "Events dropped because a subscriber was not keeping up",
			},
		),
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "librarian_websocket_connections",
				Help: "Number of open event stream connections",
			},
		),
	}

	m.Uptime = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "librarian_uptime_seconds",
			Help: "Process uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Handler returns the Prometheus exposition handler for this registry
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests and extra collectors
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))
}

// InstallStarted marks a session as in flight
func (m *Metrics) InstallStarted() {
	if m == nil {
		return
	}
	m.InstallsActive.Inc()
}

// InstallFinished records the outcome of a session
func (m *Metrics) InstallFinished(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.InstallsActive.Dec()
	m.InstallsTotal.WithLabelValues(result).Inc()
	m.InstallDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// AddDownloaded adds transferred archive bytes
func (m *Metrics) AddDownloaded(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.DownloadedBytes.Add(float64(n))
}

// RecordUninstall records an uninstall outcome
func (m *Metrics) RecordUninstall(result string) {
	if m == nil {
		return
	}
	m.UninstallsTotal.WithLabelValues(result).Inc()
}

// IncCatalogSkipped counts a skipped catalog entry
func (m *Metrics) IncCatalogSkipped() {
	if m == nil {
		return
	}
	m.CatalogSkipped.Inc()
}

// RecordAuthAttempt records a login outcome
func (m *Metrics) RecordAuthAttempt(result string) {
	if m == nil {
		return
	}
	m.AuthAttempts.WithLabelValues(result).Inc()
}

// RecordEvent counts a published event
func (m *Metrics) RecordEvent(eventType string) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(eventType).Inc()
}

// IncEventsDropped counts an event a slow subscriber missed
func (m *Metrics) IncEventsDropped() {
	if m == nil {
		return
	}
	m.EventsDropped.Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
}
