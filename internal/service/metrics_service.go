package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Login outcomes recorded by RecordLogin.
const (
	LoginResultSuccess = "success"
	LoginResultFailure = "failure"
)

// MetricsService encapsulates Prometheus instrumentation for the API and the
// training workflow.
type MetricsService struct {
	registry             *prometheus.Registry
	handler              http.Handler
	requestDuration      *prometheus.HistogramVec
	requestTotal         *prometheus.CounterVec
	dbQueryDuration      *prometheus.HistogramVec
	logins               *prometheus.CounterVec
	assignmentsCreated   prometheus.Counter
	assignmentsCompleted prometheus.Counter
	messagesSent         prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	logins := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "training_logins_total",
		Help: "Login attempts by result",
	}, []string{"result"})

	assignmentsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "training_assignments_created_total",
		Help: "Module assignments created",
	})

	assignmentsCompleted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "training_assignments_completed_total",
		Help: "Module assignments marked completed by trainees",
	})

	messagesSent := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "training_messages_sent_total",
		Help: "Messages stored, counting each recipient once",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, dbQueryDuration, logins, assignmentsCreated, assignmentsCompleted, messagesSent, goroutines)

	return &MetricsService{
		registry:             registry,
		handler:              promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:      requestDuration,
		requestTotal:         requestTotal,
		dbQueryDuration:      dbQueryDuration,
		logins:               logins,
		assignmentsCreated:   assignmentsCreated,
		assignmentsCompleted: assignmentsCompleted,
		messagesSent:         messagesSent,
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// RecordLogin counts a login attempt.
func (m *MetricsService) RecordLogin(result string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(result).Inc()
}

// RecordAssignmentsCreated counts newly created assignments.
func (m *MetricsService) RecordAssignmentsCreated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.assignmentsCreated.Add(float64(n))
}

// RecordAssignmentCompleted counts a trainee completion.
func (m *MetricsService) RecordAssignmentCompleted() {
	if m == nil {
		return
	}
	m.assignmentsCompleted.Inc()
}

// RecordMessagesSent counts stored messages.
func (m *MetricsService) RecordMessagesSent(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.messagesSent.Add(float64(n))
}
