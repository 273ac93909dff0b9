package httpclient

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects Prometheus metrics for outbound API calls. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	requestDuration *prometheus.HistogramVec
	requestErrors   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "authkit_request_duration_seconds",
			Help:    "Duration of outbound API requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint", "status"}),
		requestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authkit_request_errors_total",
			Help: "Outbound API request failures by error kind.",
		}, []string{"method", "endpoint", "kind"}),
	}

	reg.MustRegister(m.requestDuration, m.requestErrors)
	return m
}

func (m *Metrics) record(method, endpoint string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.
		WithLabelValues(method, endpoint, strconv.Itoa(status)).
		Observe(duration.Seconds())
}

func (m *Metrics) recordError(method, endpoint string, kind Kind) {
	if m == nil {
		return
	}
	m.requestErrors.WithLabelValues(method, endpoint, kind.String()).Inc()
}
