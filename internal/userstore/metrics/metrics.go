package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var durationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

// Metrics covers the reference user store.
type Metrics struct {
	UsersRegistered   prometheus.Counter
	UsersDeleted      prometheus.Counter
	Rejections        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
}

// New registers the metrics with reg, or the default registerer when reg is nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		UsersRegistered: f.NewCounter(prometheus.CounterOpts{
			Name: "userstore_users_registered_total",
			Help: "Total number of users registered",
		}),
		UsersDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "userstore_users_deleted_total",
			Help: "Total number of users deleted",
		}),
		Rejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "userstore_rejections_total",
			Help: "Writes rejected before reaching storage, by reason",
		}, []string{"reason"}),
		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "userstore_operation_duration_seconds",
			Help:    "Duration of user store service operations",
			Buckets: durationBuckets,
		}, []string{"op"}),
	}
}

func (m *Metrics) IncrementRegistered() {
	m.UsersRegistered.Inc()
}

func (m *Metrics) IncrementDeleted() {
	m.UsersDeleted.Inc()
}

// IncrementRejected counts a write refused for reason (validation, date, conflict).
func (m *Metrics) IncrementRejected(reason string) {
	m.Rejections.WithLabelValues(reason).Inc()
}

// ObserveOperation records the duration of op. Call with time.Now() at the start.
func (m *Metrics) ObserveOperation(op string, start time.Time) {
	m.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
