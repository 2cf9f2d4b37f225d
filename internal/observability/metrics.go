package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "helpdesk"

// Metrics owns the process registry and every collector the service exports.
// All recording methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpErrors    *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	magicLink     *prometheus.CounterVec
	connections   prometheus.Gauge
	deliveries    *prometheus.CounterVec
	drops         *prometheus.CounterVec
	notifications *prometheus.CounterVec
}

// NewMetrics registers collectors on a fresh registry, so tests can build as
// many instances as they like.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "HTTP error responses by route, method and error code.",
		}, []string{"route", "method", "code"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		magicLink: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "magic_link_validations_total",
			Help:      "Magic link and short-ID resolutions by result.",
		}, []string{"kind", "result"}),
		connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "realtime_connections",
			Help:      "Currently registered realtime connections.",
		}),
		deliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_deliveries_total",
			Help:      "Realtime frames enqueued to connections, by event.",
		}, []string{"event"}),
		drops: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_drops_total",
			Help:      "Realtime frames dropped because a connection outbox was full.",
		}, []string{"event"}),
		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Outbound notifications by kind and result.",
		}, []string{"kind", "result"}),
	}
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequest counts one HTTP request.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordError counts one error response.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.httpErrors.WithLabelValues(route, method, code).Inc()
}

// RecordMagicLink counts a resolution attempt. kind is "token" or "short_id".
func (m *Metrics) RecordMagicLink(kind, result string) {
	if m == nil {
		return
	}
	m.magicLink.WithLabelValues(kind, result).Inc()
}

// ConnectionOpened increments the connection gauge.
func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

// ConnectionClosed decrements the connection gauge.
func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}

// RecordDelivery counts a frame handed to a connection outbox.
func (m *Metrics) RecordDelivery(event string) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(event).Inc()
}

// RecordDrop counts a frame discarded for a slow connection.
func (m *Metrics) RecordDrop(event string) {
	if m == nil {
		return
	}
	m.drops.WithLabelValues(event).Inc()
}

// RecordNotification counts an outbound mail attempt.
func (m *Metrics) RecordNotification(kind, result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind, result).Inc()
}
