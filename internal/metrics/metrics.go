// Package metrics exposes Prometheus metrics for the console: calls made
// to the notification backend, the console's own HTTP surface, and the
// operator actions that matter operationally (dispatches, exports,
// template saves).
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	globalMetrics *Metrics
	globalMu      sync.RWMutex
)

// Metrics holds all Prometheus metrics for the console
type Metrics struct {
	// Backend client metrics
	BackendRequestsTotal          *prometheus.CounterVec
	BackendRequestDurationSeconds *prometheus.HistogramVec

	// Console HTTP surface
	HTTPRequestsTotal          *prometheus.CounterVec
	HTTPRequestDurationSeconds *prometheus.HistogramVec
	HTTPErrorsTotal            *prometheus.CounterVec

	// Operator actions
	DispatchesTotal    *prometheus.CounterVec
	ExportsTotal       *prometheus.CounterVec
	TemplateSavesTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		BackendRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aviso_console_backend_requests_total",
				Help: "Total number of requests made to the notification backend",
			},
			[]string{"operation", "outcome"},
		),
		BackendRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aviso_console_backend_request_duration_seconds",
				Help:    "Backend request duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"operation"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aviso_console_http_requests_total",
				Help: "Total number of console HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aviso_console_http_request_duration_seconds",
				Help:    "Console HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aviso_console_http_errors_total",
				Help: "Total number of console HTTP errors",
			},
			[]string{"error_type"},
		),
		DispatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aviso_console_dispatches_total",
				Help: "Total number of manual dispatches submitted",
			},
			[]string{"canal"},
		),
		ExportsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aviso_console_exports_total",
				Help: "Total number of history exports requested",
			},
			[]string{"format"},
		),
		TemplateSavesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aviso_console_template_saves_total",
				Help: "Total number of template create and update operations",
			},
			[]string{"action"},
		),

		registry: reg,
	}

	reg.MustRegister(
		m.BackendRequestsTotal,
		m.BackendRequestDurationSeconds,
		m.HTTPRequestsTotal,
		m.HTTPRequestDurationSeconds,
		m.HTTPErrorsTotal,
		m.DispatchesTotal,
		m.ExportsTotal,
		m.TemplateSavesTotal,
	)

	return m
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// SetGlobal sets the global metrics instance
func SetGlobal(m *Metrics) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalMetrics = m
}

// Global returns the global metrics instance
func Global() *Metrics {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalMetrics
}

// ObserveBackendRequest records one backend call
func ObserveBackendRequest(operation string, duration time.Duration, err error) {
	m := Global()
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.BackendRequestsTotal.WithLabelValues(operation, outcome).Inc()
	m.BackendRequestDurationSeconds.WithLabelValues(operation).Observe(duration.Seconds())
}

// IncDispatches increments the manual dispatch counter
func IncDispatches(canal string) {
	m := Global()
	if m != nil {
		m.DispatchesTotal.WithLabelValues(canal).Inc()
	}
}

// IncExports increments the export counter
func IncExports(format string) {
	m := Global()
	if m != nil {
		m.ExportsTotal.WithLabelValues(format).Inc()
	}
}

// IncTemplateSaves increments the template save counter
func IncTemplateSaves(action string) {
	m := Global()
	if m != nil {
		m.TemplateSavesTotal.WithLabelValues(action).Inc()
	}
}

// IncHTTPErrors increments the HTTP error counter
func IncHTTPErrors(errorType string) {
	m := Global()
	if m != nil {
		m.HTTPErrorsTotal.WithLabelValues(errorType).Inc()
	}
}
