package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReservationOutcome(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.ReservationOutcome(OutcomeReserved)
	m.ReservationOutcome(OutcomeReserved)
	m.ReservationOutcome(OutcomeInconsistentState)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.reservations.WithLabelValues(OutcomeReserved)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reservations.WithLabelValues(OutcomeInconsistentState)))
}

func TestReconciledIgnoresZero(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.Reconciled("orphaned_reservation", 0)
	m.Reconciled("orphaned_reservation", 3)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.reconciled.WithLabelValues("orphaned_reservation")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ReservationOutcome(OutcomeReserved)
		m.Reconciled("x", 1)
		m.ObserveHTTP("GET", "/", 200, time.Millisecond)
	})
}

func TestHandlerExposesCounters(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())
	m.ObserveHTTP(http.MethodGet, "/api/me", http.StatusOK, 20*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `chcemmat_http_requests_total{method="GET",route="/api/me",status="200"} 1`)
}
