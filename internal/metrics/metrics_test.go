package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordOutcome(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordOutcome(OpLogin, "ok")
	m.RecordOutcome(OpLogin, "ok")
	m.RecordOutcome(OpLogin, "unknown")
	m.RecordOutcome(OpEnroll, "duplicate")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.outcomes.WithLabelValues(OpLogin, "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.outcomes.WithLabelValues(OpLogin, "unknown")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.outcomes.WithLabelValues(OpEnroll, "duplicate")))
}

func TestGauges(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	m.SetEnrolledStudents(12)
	m.SetActiveSessions(3)

	assert.Equal(t, float64(12), testutil.ToFloat64(m.enrolledStudents))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.activeSessions))
}

func TestDoubleRegistrationFails(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := New(registry)
	require.NoError(t, err)

	_, err = New(registry)
	assert.Error(t, err)
}

func TestNilMetricsIsNoOp(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordOutcome(OpLogout, "ok")
		m.ObserveExtraction(time.Second, "ok")
		m.ObserveMatchDistance(0.3)
		m.SetEnrolledStudents(1)
		m.SetActiveSessions(1)
	})
}

func TestHandler(t *testing.T) {
	m, err := NewWithRuntime()
	require.NoError(t, err)

	m.ObserveExtraction(120*time.Millisecond, "ok")
	m.ObserveMatchDistance(0.25)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "chamada_extraction_duration_seconds_count{result=\"ok\"} 1")
	assert.Contains(t, string(body), "chamada_match_distance_count 1")
	assert.Contains(t, string(body), "go_goroutines")
}
