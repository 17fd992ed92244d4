package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for calls to the remote user store.
type Metrics struct {
	RemoteRequests *prometheus.CounterVec
	RemoteDuration *prometheus.HistogramVec
	CircuitOpen    prometheus.Gauge
	CacheSize      prometheus.Gauge
}

// New registers the directory metrics with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		RemoteRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "userdir_remote_requests_total",
			Help: "Remote user store requests by operation and outcome",
		}, []string{"op", "outcome"}),
		RemoteDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "userdir_remote_request_duration_seconds",
			Help:    "Duration of remote user store requests",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"op"}),
		CircuitOpen: factory.NewGauge(prometheus.GaugeOpts{
			Name: "userdir_remote_circuit_open",
			Help: "1 while consecutive remote failures have opened the circuit",
		}),
		CacheSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "userdir_cache_users",
			Help: "Number of user records held by the local cache",
		}),
	}
}

// ObserveRequest records one remote call. Call with time.Now() taken before the call.
func (m *Metrics) ObserveRequest(op, outcome string, start time.Time) {
	m.RemoteRequests.WithLabelValues(op, outcome).Inc()
	m.RemoteDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *Metrics) SetCircuitOpen(open bool) {
	if open {
		m.CircuitOpen.Set(1)
		return
	}
	m.CircuitOpen.Set(0)
}

func (m *Metrics) SetCacheSize(n int) {
	m.CacheSize.Set(float64(n))
}
