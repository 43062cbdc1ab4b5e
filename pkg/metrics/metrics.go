// Package metrics exposes Prometheus counters for authentication attempts,
// route guard decisions, live browser sessions and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/componenthub/hubauth/pkg/guard"
)

const namespace = "hubauth"

// Metrics owns a registry with every hubauth collector.
type Metrics struct {
	registry *prometheus.Registry

	authAttempts   *prometheus.CounterVec
	guardDecisions *prometheus.CounterVec

	httpInFlight        prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

type Option func(*options)

type options struct {
	runtime  bool
	sessions func() int
}

// WithRuntimeCollectors adds the Go runtime and process collectors.
func WithRuntimeCollectors() Option {
	return func(o *options) { o.runtime = true }
}

// WithSessionGauge reports the number of live browser sessions, e.g.
// session.Registry.Len.
func WithSessionGauge(fn func() int) Option {
	return func(o *options) { o.sessions = fn }
}

func New(opts ...Option) *Metrics {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_attempts_total",
			Help:      "Sign-in and sign-up attempts by flow, result and provider error code.",
		}, []string{"flow", "result", "code"}),
		guardDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guard_decisions_total",
			Help:      "Route guard decisions by state and required role.",
		}, []string{"state", "required"}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_in_flight_requests",
			Help:      "In-flight HTTP requests.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latencies in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		m.authAttempts,
		m.guardDecisions,
		m.httpInFlight,
		m.httpRequestsTotal,
		m.httpRequestDuration,
	)
	if o.sessions != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "browser_sessions",
			Help:      "Browser sessions with a live resolver.",
		}, func() float64 { return float64(o.sessions()) }))
	}
	if o.runtime {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveAuth counts one authentication attempt. flow is "login",
// "signup" or a provider name.
func (m *Metrics) ObserveAuth(flow string, success bool, code string) {
	result := "failure"
	if success {
		result = "success"
	}
	m.authAttempts.WithLabelValues(flow, result, code).Inc()
}

// GuardObserver returns a guard.Observer counting decisions.
func (m *Metrics) GuardObserver() guard.Observer {
	return func(_ *http.Request, d guard.Decision) {
		required := d.Required.String()
		if required == "" {
			required = "any"
		}
		m.guardDecisions.WithLabelValues(d.State.String(), required).Inc()
	}
}

// Instrument records latency, status and in-flight count per chi route
// pattern. Unmatched requests are labelled "unmatched".
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := strconv.Itoa(sw.code)
		m.httpRequestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
		m.httpRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code        int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.code = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
