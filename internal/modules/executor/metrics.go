package executor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"vibe/internal/modules/venue"
)

// Metrics is nil-safe; a nil *Metrics records nothing.
type Metrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	skipped  prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		calls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vibe",
			Subsystem: "executor",
			Name:      "provider_calls_total",
			Help:      "Provider calls by outcome.",
		}, []string{"provider", "outcome"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vibe",
			Subsystem: "executor",
			Name:      "provider_call_duration_seconds",
			Help:      "Provider call latency, including timeouts.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}, []string{"provider"}),
		skipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: "vibe",
			Subsystem: "executor",
			Name:      "queries_skipped_total",
			Help:      "Planned queries dropped by the call budget.",
		}),
	}
}

func (m *Metrics) observe(p venue.Provider, out outcome, d time.Duration) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(string(p), string(out)).Inc()
	m.duration.WithLabelValues(string(p)).Observe(d.Seconds())
}

func (m *Metrics) dropped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.skipped.Add(float64(n))
}
