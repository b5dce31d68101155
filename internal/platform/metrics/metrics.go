// Package metrics exposes process-level Prometheus collectors and the
// /metrics handler. Module metrics live next to their module.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds HTTP-level metrics shared by every router.
type Metrics struct {
	RequestDuration *prometheus.HistogramVec
	BuildInfo       *prometheus.GaugeVec
}

// New creates and registers the HTTP metrics.
func New() *Metrics {
	return &Metrics{
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ballot_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by route pattern and status class",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "route", "status"}),
		BuildInfo: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ballot_build_info",
			Help: "Build metadata; always 1",
		}, []string{"version", "backend"}),
	}
}

// ObserveRequest records one request's latency.
func (m *Metrics) ObserveRequest(method, route, status string, start time.Time) {
	m.RequestDuration.WithLabelValues(method, route, status).Observe(time.Since(start).Seconds())
}

func (m *Metrics) SetBuildInfo(version, backend string) {
	m.BuildInfo.WithLabelValues(version, backend).Set(1)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
