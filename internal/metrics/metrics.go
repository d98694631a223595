// Package metrics exposes Prometheus collectors for ranking boards, matching runs and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names
const (
	MetricDragEventsTotal     = "residency_drag_events_total"
	MetricSubmissionsTotal    = "residency_submissions_total"
	MetricSaveDuration        = "residency_ranking_save_duration_seconds"
	MetricActiveSessions      = "residency_active_sessions"
	MetricRunsTotal           = "residency_runs_total"
	MetricHTTPRequestsTotal   = "residency_http_requests_total"
	MetricHTTPRequestDuration = "residency_http_request_duration_seconds"
)

// Submission results
const (
	ResultSuccess  = "success"
	ResultRejected = "rejected"
	ResultFailure  = "failure"
)

// Metrics holds every residency collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	dragEvents   *prometheus.CounterVec
	submissions  *prometheus.CounterVec
	saveDuration *prometheus.HistogramVec
	sessions     prometheus.Gauge
	runs         *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors. Call Register to expose them.
func NewMetrics() *Metrics {
	return &Metrics{
		dragEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricDragEventsTotal,
				Help: "Drag-and-drop events by ranking kind, action and whether they changed the board",
			},
			[]string{"kind", "action", "applied"},
		),
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricSubmissionsTotal,
				Help: "Ranking submissions by kind and result",
			},
			[]string{"kind", "result"},
		),
		saveDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricSaveDuration,
				Help:    "Time spent persisting a submitted ranking",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"kind"},
		),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricActiveSessions,
			Help: "Ranking boards currently held in memory",
		}),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRunsTotal,
				Help: "Interview allocation and final matching runs by type and result",
			},
			[]string{"run", "result"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricHTTPRequestsTotal,
				Help: "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricHTTPRequestDuration,
				Help:    "HTTP request latency by method and route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// Register registers all metrics with reg
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors returns all collectors
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.dragEvents,
		m.submissions,
		m.saveDuration,
		m.sessions,
		m.runs,
		m.httpRequests,
		m.httpDuration,
	}
}

func (m *Metrics) ObserveDragEvent(kind, action string, applied bool) {
	if m == nil {
		return
	}
	if action == "" {
		action = "none"
	}
	m.dragEvents.WithLabelValues(kind, action, strconv.FormatBool(applied)).Inc()
}

func (m *Metrics) ObserveSubmission(kind, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(kind, result).Inc()
	if result != ResultRejected {
		m.saveDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	}
}

func (m *Metrics) SessionOpened() {
	if m != nil {
		m.sessions.Inc()
	}
}

func (m *Metrics) SessionClosed() {
	if m != nil {
		m.sessions.Dec()
	}
}

func (m *Metrics) ObserveRun(run, result string) {
	if m != nil {
		m.runs.WithLabelValues(run, result).Inc()
	}
}

// Middleware records request counts and latency per chi route pattern
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
