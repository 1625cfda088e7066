package botserver

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeOK        = "ok"
	outcomeError     = "error"
	outcomeDebounced = "debounced"
)

type gatewayMetrics struct {
	requests  *prometheus.CounterVec
	debounced *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	clients   prometheus.Gauge
}

var (
	gatewayMetricsOnce sync.Once
	gatewayRegistry    *gatewayMetrics
)

func defaultGatewayMetrics() *gatewayMetrics {
	gatewayMetricsOnce.Do(func() {
		gatewayRegistry = &gatewayMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "kasbot",
				Subsystem: "gateway",
				Name:      "requests_total",
				Help:      "Total JSON-RPC requests answered by the gateway, by method and outcome.",
			}, []string{"method", "outcome"}),
			debounced: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "kasbot",
				Subsystem: "gateway",
				Name:      "debounced_total",
				Help:      "Total requests rejected because the user repeated a command too quickly.",
			}, []string{"method"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "kasbot",
				Subsystem: "gateway",
				Name:      "request_duration_seconds",
				Help:      "Time spent answering a JSON-RPC request.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method"}),
			clients: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "kasbot",
				Subsystem: "gateway",
				Name:      "websocket_clients",
				Help:      "Number of connected websocket clients.",
			}),
		}
		prometheus.MustRegister(
			gatewayRegistry.requests,
			gatewayRegistry.debounced,
			gatewayRegistry.latency,
			gatewayRegistry.clients,
		)
	})
	return gatewayRegistry
}

func (m *gatewayMetrics) observe(method, outcome string, elapsed time.Duration) {
	m.requests.WithLabelValues(method, outcome).Inc()
	if outcome == outcomeDebounced {
		m.debounced.WithLabelValues(method).Inc()
		return
	}
	m.latency.WithLabelValues(method).Observe(elapsed.Seconds())
}
