// Package metrics exposes Prometheus metrics for recognition and attendance.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chamada"

// Operation label values.
const (
	OpEnroll = "enroll"
	OpLogin  = "login"
	OpLogout = "logout"
)

// Metrics groups every collector the service updates. A nil *Metrics is a
// valid no-op recorder.
type Metrics struct {
	outcomes           *prometheus.CounterVec
	extractionDuration *prometheus.HistogramVec
	matchDistance      prometheus.Histogram
	enrolledStudents   prometheus.Gauge
	activeSessions     prometheus.Gauge
	registry           *prometheus.Registry
}

// New creates the metrics and registers them on registry.
func New(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register chamada metrics: %w", err)
	}
	return m, nil
}

// NewWithRuntime is New on a fresh registry that also carries the Go and process collectors.
func NewWithRuntime() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return New(registry)
}

func (m *Metrics) initMetrics() {
	m.outcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outcomes_total",
		Help:      "Enrollment and attendance outcomes by operation and status.",
	}, []string{"operation", "status"})

	m.extractionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "extraction_duration_seconds",
		Help:      "Time spent extracting a face embedding.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"result"})

	m.matchDistance = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "match_distance",
		Help:      "Euclidean distance of the nearest enrolled embedding on login.",
		Buckets:   prometheus.LinearBuckets(0.1, 0.1, 14),
	})

	m.enrolledStudents = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "enrolled_students",
		Help:      "Number of students with a reference embedding.",
	})

	m.activeSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Number of students currently logged in.",
	})
}

// RecordOutcome counts one enroll/login/logout result.
func (m *Metrics) RecordOutcome(operation, status string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(operation, status).Inc()
}

// ObserveExtraction records how long an extraction took and how it ended.
func (m *Metrics) ObserveExtraction(d time.Duration, result string) {
	if m == nil {
		return
	}
	m.extractionDuration.WithLabelValues(result).Observe(d.Seconds())
}

// ObserveMatchDistance records the nearest distance seen on a login attempt.
func (m *Metrics) ObserveMatchDistance(distance float64) {
	if m == nil {
		return
	}
	m.matchDistance.Observe(distance)
}

func (m *Metrics) SetEnrolledStudents(n int) {
	if m == nil {
		return
	}
	m.enrolledStudents.Set(float64(n))
}

func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Collect implements the prometheus.Collector interface.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.outcomes.Collect(ch)
	m.extractionDuration.Collect(ch)
	ch <- m.matchDistance
	ch <- m.enrolledStudents
	ch <- m.activeSessions
}

// Describe implements the prometheus.Collector interface.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.outcomes.Describe(ch)
	m.extractionDuration.Describe(ch)
	ch <- m.matchDistance.Desc()
	ch <- m.enrolledStudents.Desc()
	ch <- m.activeSessions.Desc()
}
