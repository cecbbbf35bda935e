package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Autosave outcomes recorded by RecordAutosave.
const (
	AutosaveWritten = "written"
	AutosaveSkipped = "skipped"
	AutosaveFailed  = "failed"
)

// Metrics holds the service's prometheus collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errors          *prometheus.CounterVec
	commands        *prometheus.CounterVec
	autosaves       *prometheus.CounterVec
}

// NewMetrics registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orgmapper",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"path", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "orgmapper",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path", "method"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orgmapper",
			Name:      "http_errors_total",
			Help:      "HTTP error responses by route, method and error code.",
		}, []string{"path", "method", "code"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orgmapper",
			Name:      "commands_total",
			Help:      "Document commands by kind and whether they changed the document.",
		}, []string{"kind", "result"}),
		autosaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orgmapper",
			Name:      "autosaves_total",
			Help:      "Autosave attempts by outcome.",
		}, []string{"result"}),
	}
	m.registry.MustRegister(m.requests, m.requestDuration, m.errors, m.commands, m.autosaves)
	return m
}

// Handler exposes the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(path, method, code).Inc()
}

// RecordCommand counts a command and whether it changed the document.
func (m *Metrics) RecordCommand(kind string, applied bool) {
	if m == nil {
		return
	}
	result := "ignored"
	if applied {
		result = "applied"
	}
	m.commands.WithLabelValues(kind, result).Inc()
}

// RecordAutosave counts an autosave outcome.
func (m *Metrics) RecordAutosave(result string) {
	if m == nil {
		return
	}
	m.autosaves.WithLabelValues(result).Inc()
}
