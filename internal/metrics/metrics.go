// Package metrics exposes Prometheus instrumentation for the HTTP API and the services.
//
// All methods are safe on a nil *Metrics so components can run uninstrumented in tests.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector registered by New.
type Metrics struct {
	gatherer prometheus.Gatherer

	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	HTTPInFlight    prometheus.Gauge
	AuthEvents      *prometheus.CounterVec
	Notifications   *prometheus.CounterVec
	PublishFailures prometheus.Counter
	StoreUp         prometheus.Gauge
}

// New registers the collectors on a fresh registry together with Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWith(reg, reg)
}

// NewWith registers the collectors on reg.
func NewWith(reg prometheus.Registerer, g prometheus.Gatherer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		gatherer: g,
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chirper_http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chirper_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		}, []string{"method", "route"}),
		HTTPInFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "chirper_http_requests_in_flight",
			Help: "HTTP requests currently being served",
		}),
		AuthEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chirper_auth_events_total",
			Help: "Authentication lifecycle events",
		}, []string{"event"}),
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chirper_notifications_created_total",
			Help: "Notifications written by fan-out",
		}, []string{"type"}),
		PublishFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "chirper_event_publish_failures_total",
			Help: "Domain events that could not be published",
		}),
		StoreUp: f.NewGauge(prometheus.GaugeOpts{
			Name: "chirper_store_up",
			Help: "1 when the last store ping succeeded",
		}),
	}
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveHTTP records one finished request.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// InFlight adjusts the in-flight gauge by delta.
func (m *Metrics) InFlight(delta float64) {
	if m == nil {
		return
	}
	m.HTTPInFlight.Add(delta)
}

// Auth counts an authentication event such as "login_success" or "refresh".
func (m *Metrics) Auth(event string) {
	if m == nil {
		return
	}
	m.AuthEvents.WithLabelValues(event).Inc()
}

// Notification counts a persisted notification.
func (m *Metrics) Notification(typ string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(typ).Inc()
}

// PublishFailed counts an event that could not be published.
func (m *Metrics) PublishFailed() {
	if m == nil {
		return
	}
	m.PublishFailures.Inc()
}

// SetStoreUp records the store probe result.
func (m *Metrics) SetStoreUp(up bool) {
	if m == nil {
		return
	}
	if up {
		m.StoreUp.Set(1)
		return
	}
	m.StoreUp.Set(0)
}
