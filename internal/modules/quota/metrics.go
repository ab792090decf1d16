package quota

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeCharged   = "charged"
	outcomeExhausted = "exhausted"
	outcomeError     = "error"
)

// Metrics is nil-safe; a nil *Metrics records nothing.
type Metrics struct {
	charges *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		charges: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "vibe",
			Subsystem: "quota",
			Name:      "charges_total",
			Help:      "Model-assisted curation charges by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) charge(outcome string) {
	if m == nil {
		return
	}
	m.charges.WithLabelValues(outcome).Inc()
}
