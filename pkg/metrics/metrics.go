package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds fumble's Prometheus collectors
type Metrics struct {
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	SSOCallbacks *prometheus.CounterVec

	UpstreamCalls *prometheus.CounterVec
}

// New registers fumble's collectors on registry
func New(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fumble_http_requests_total",
				Help: "Total number of HTTP requests by route and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fumble_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		SSOCallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fumble_sso_callbacks_total",
				Help: "SSO callbacks by provider and outcome step",
			},
			[]string{"provider", "result"},
		),
		UpstreamCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fumble_upstream_calls_total",
				Help: "Outbound calls to third-party APIs by service and outcome",
			},
			[]string{"service", "outcome"},
		),
	}
}

// NewRegistry creates an isolated registry with fumble's collectors
func NewRegistry() (*prometheus.Registry, *Metrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	return reg, New(reg)
}

// Handler returns the scrape handler for reg
func Handler(reg prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Upstream records the outcome of a third-party call. A nil receiver is a no-op.
func (m *Metrics) Upstream(service string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.UpstreamCalls.WithLabelValues(service, outcome).Inc()
}

// SSO records an SSO callback outcome. A nil receiver is a no-op.
func (m *Metrics) SSO(provider, result string) {
	if m == nil {
		return
	}
	m.SSOCallbacks.WithLabelValues(provider, result).Inc()
}
