package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result label values
const (
	ResultCreated      = "created"
	ResultExisting     = "existing"
	ResultOK           = "ok"
	ResultInvalid      = "invalid"
	ResultNotFound     = "not_found"
	ResultConflict     = "conflict"
	ResultUnauthorized = "unauthorized"
	ResultError        = "error"
)

// Ping source label values
const (
	SourceHTTP = "http"
	SourceMQTT = "mqtt"
)

// Metrics owns a private registry so tests and multiple servers never
// collide on the global one. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	provisions *prometheus.CounterVec
	claims     *prometheus.CounterVec
	pings      *prometheus.CounterVec
	logins     *prometheus.CounterVec
	requests   *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		provisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "intelvis_provision_total",
			Help: "Provisioning requests by result.",
		}, []string{"result"}),
		claims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "intelvis_claim_total",
			Help: "Device claim attempts by result.",
		}, []string{"result"}),
		pings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "intelvis_ping_total",
			Help: "Liveness pings by source and result.",
		}, []string{"source", "result"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "intelvis_login_total",
			Help: "Login attempts by result.",
		}, []string{"result"}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "intelvis_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.provisions, m.claims, m.pings, m.logins, m.requests,
	)
	return m
}

func (m *Metrics) Provision(result string) {
	if m != nil {
		m.provisions.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) Claim(result string) {
	if m != nil {
		m.claims.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) Ping(source, result string) {
	if m != nil {
		m.pings.WithLabelValues(source, result).Inc()
	}
}

func (m *Metrics) Login(result string) {
	if m != nil {
		m.logins.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) ObserveRequest(method, route, status string, seconds float64) {
	if m != nil {
		m.requests.WithLabelValues(method, route, status).Observe(seconds)
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
