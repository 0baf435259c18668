package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus collectors of the booking core.  A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	BookingsCreated      *prometheus.CounterVec
	LegsCancelled        prometheus.Counter
	SeatConflicts        prometheus.Counter
	TxRetries            *prometheus.CounterVec
	TxFailures           *prometheus.CounterVec
	NotificationFailures *prometheus.CounterVec
	OperationDuration    *prometheus.HistogramVec
}

// New registers the collectors on reg under the given namespace.  Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		BookingsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_created_total",
			Help:      "Committed bookings by booking type",
		}, []string{"type"}),
		LegsCancelled: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_legs_cancelled_total",
			Help:      "Booking rows flipped to cancelled",
		}),
		SeatConflicts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "seat_conflicts_total",
			Help:      "Booking attempts rejected because the seat was already held",
		}),
		TxRetries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tx_retries_total",
			Help:      "Transactions re-run after deadlock or lock wait timeout",
		}, []string{"operation"}),
		TxFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tx_failures_total",
			Help:      "Transactions abandoned after exhausting retries",
		}, []string{"operation"}),
		NotificationFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_failures_total",
			Help:      "Booking notifications that could not be published",
		}, []string{"kind"}),
		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency of booking core operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "outcome"}),
	}
}

func (m *Metrics) BookingCreated(bookingType string) {
	if m == nil {
		return
	}
	m.BookingsCreated.WithLabelValues(bookingType).Inc()
}

func (m *Metrics) LegsCancelledAdd(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.LegsCancelled.Add(float64(n))
}

func (m *Metrics) SeatConflict() {
	if m == nil {
		return
	}
	m.SeatConflicts.Inc()
}

func (m *Metrics) TxRetry(op string) {
	if m == nil {
		return
	}
	m.TxRetries.WithLabelValues(op).Inc()
}

func (m *Metrics) TxFailure(op string) {
	if m == nil {
		return
	}
	m.TxFailures.WithLabelValues(op).Inc()
}

func (m *Metrics) NotificationFailure(kind string) {
	if m == nil {
		return
	}
	m.NotificationFailures.WithLabelValues(kind).Inc()
}

// Observe records the latency of op since start.
func (m *Metrics) Observe(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.OperationDuration.WithLabelValues(op, outcome).Observe(time.Since(start).Seconds())
}
