package host

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the host's Prometheus collectors.
type Metrics struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	executions      *prometheus.CounterVec
	payouts         *prometheus.CounterVec
	rejectedConns   prometheus.Counter
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "escrowauction",
				Subsystem: "host",
				Name:      "requests_total",
				Help:      "Requests handled, by request type and outcome",
			},
			[]string{"type", "outcome"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "escrowauction",
				Subsystem: "host",
				Name:      "request_duration_seconds",
				Help:      "Request handling time in seconds",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"type"},
		),
		executions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "escrowauction",
				Subsystem: "engine",
				Name:      "executions_total",
				Help:      "Engine calls, by action and result code",
			},
			[]string{"action", "code"},
		),
		payouts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "escrowauction",
				Subsystem: "engine",
				Name:      "payouts_total",
				Help:      "Payout instructions handed to the dispatcher, by action",
			},
			[]string{"action"},
		),
		rejectedConns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "escrowauction",
			Subsystem: "host",
			Name:      "rejected_connections_total",
			Help:      "Connections closed because the worker pool was full",
		}),
	}
}

func (m *Metrics) observeExecution(action, code string) {
	if code == "" {
		code = "ok"
	}
	m.executions.WithLabelValues(action, code).Inc()
}
