// Package metrics exposes processor and HTTP instrumentation to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cwbudde/algo-rppg/rppg/processor"
)

const namespace = "rppg"

// Metrics holds a private registry. It implements processor.Observer.
type Metrics struct {
	registry *prometheus.Registry

	framesRejected prometheus.Counter
	computations   *prometheus.CounterVec
	started        prometheus.Counter
	discarded      prometheus.Counter
	duration       prometheus.Histogram
	heartRate      prometheus.Histogram
	sessions       prometheus.Gauge
	requests       *prometheus.CounterVec
}

var _ processor.Observer = (*Metrics)(nil)

// New registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		framesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_rejected_total",
			Help:      "Samples dropped by validation.",
		}),
		computations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "computations_total",
			Help:      "Completed heart-rate computations by outcome.",
		}, []string{"outcome"}),
		started: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "computations_started_total",
			Help:      "Dispatched heart-rate computations.",
		}),
		discarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_discarded_total",
			Help:      "Computations that completed after a reset.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "computation_duration_seconds",
			Help:      "Time spent in the conditioning, detection and estimation chain.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 8),
		}),
		heartRate: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "heart_rate_bpm",
			Help:      "Reported heart-rate estimates.",
			Buckets:   prometheus.LinearBuckets(40, 20, 10),
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Open monitoring sessions.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "API requests by status code and method.",
		}, []string{"code", "method"}),
	}
	m.registry.MustRegister(
		m.framesRejected, m.computations, m.started, m.discarded,
		m.duration, m.heartRate, m.sessions, m.requests,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// FrameRejected implements processor.Observer.
func (m *Metrics) FrameRejected() {
	m.framesRejected.Inc()
}

// ComputationStarted implements processor.Observer.
func (m *Metrics) ComputationStarted() {
	m.started.Inc()
}

// ComputationFinished implements processor.Observer.
func (m *Metrics) ComputationFinished(bpm int, err error, elapsed time.Duration) {
	m.duration.Observe(elapsed.Seconds())
	if err != nil {
		m.computations.WithLabelValues(processor.Kind(err)).Inc()
		return
	}
	m.computations.WithLabelValues("ok").Inc()
	m.heartRate.Observe(float64(bpm))
}

// ResultDiscarded implements processor.Observer.
func (m *Metrics) ResultDiscarded() {
	m.discarded.Inc()
}

// SetSessions records the number of open sessions.
func (m *Metrics) SetSessions(n int) {
	m.sessions.Set(float64(n))
}

// statusWriter records the status code written by a handler.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Middleware counts requests by status code and method.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		m.requests.WithLabelValues(strconv.Itoa(wrapped.status), r.Method).Inc()
	})
}
