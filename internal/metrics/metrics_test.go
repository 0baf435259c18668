package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.BookingCreated("one-way")
		m.LegsCancelledAdd(2)
		m.SeatConflict()
		m.TxRetry("create_single")
		m.TxFailure("create_single")
		m.NotificationFailure("confirmed")
		m.Observe("create_single", time.Now(), nil)
	})
}

func TestCountersRecord(t *testing.T) {
	m := New("busticket", prometheus.NewRegistry())

	m.BookingCreated("round-trip")
	m.BookingCreated("round-trip")
	m.SeatConflict()
	m.LegsCancelledAdd(3)
	m.LegsCancelledAdd(0)
	m.TxRetry("cancel")
	m.Observe("cancel", time.Now(), errors.New("x"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.BookingsCreated.WithLabelValues("round-trip")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SeatConflicts))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.LegsCancelled))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TxRetries.WithLabelValues("cancel")))
}
