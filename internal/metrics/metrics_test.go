package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	var m dto.Metric
	require.NoError(t, (<-ch).Write(&m))
	return m.GetCounter().GetValue()
}

func TestRegister(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))
	assert.Error(t, m.Register(reg), "double registration fails")

	m.ObserveDragEvent("demo", "reorder", true)
	m.ObserveSubmission("demo", ResultSuccess, 20*time.Millisecond)
	m.SessionOpened()
	m.ObserveRun("match", ResultSuccess)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{MetricDragEventsTotal, MetricSubmissionsTotal, MetricSaveDuration, MetricActiveSessions, MetricRunsTotal} {
		assert.True(t, names[want], "missing %s", want)
	}
}

func TestCounters(t *testing.T) {
	m := NewMetrics()
	m.ObserveDragEvent("demo", "", false)
	m.ObserveDragEvent("demo", "", false)
	assert.Equal(t, 2.0, counterValue(t, m.dragEvents.WithLabelValues("demo", "none", "false")))

	m.ObserveSubmission("student-initial", ResultRejected, 0)
	assert.Equal(t, 1.0, counterValue(t, m.submissions.WithLabelValues("student-initial", ResultRejected)))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveDragEvent("demo", "reorder", true)
		m.ObserveSubmission("demo", ResultFailure, time.Second)
		m.SessionOpened()
		m.ObserveRun("allocate", ResultFailure)
	})
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := NewMetrics()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/companies/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/companies/42", nil))
	assert.Equal(t, 1.0, counterValue(t, m.httpRequests.WithLabelValues("GET", "/api/companies/{id}", "418")))
}
