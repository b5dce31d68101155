package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Rejections *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Rejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ballot_ratelimit_rejections_total",
			Help: "Total number of requests rejected by the per-caller rate limiter",
		}, []string{"key_type"}),
	}
}

// IncrementRejections records a 429 for the given key type (account or ip).
func (m *Metrics) IncrementRejections(keyType string) {
	if m == nil {
		return
	}
	m.Rejections.WithLabelValues(keyType).Inc()
}
