// Package metrics holds the Prometheus collectors exported by the server
// on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "voicefeed"

// Metrics is a private registry plus the collectors registered on it.
type Metrics struct {
	Registry *prometheus.Registry

	RPCs          *prometheus.CounterVec
	RPCDuration   *prometheus.HistogramVec
	ActiveStreams prometheus.Gauge
	ChangeEvents  *prometheus.CounterVec
	WSClients     prometheus.Gauge
}

// New registers all collectors on a fresh registry. Process and Go runtime
// collectors are included when withRuntime is set.
func New(withRuntime bool) *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RPCs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "grpc",
			Name:      "requests_total",
			Help:      "gRPC requests by method and status code.",
		}, []string{"method", "code"}),
		RPCDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "grpc",
			Name:      "request_duration_seconds",
			Help:      "Unary gRPC latency by method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		ActiveStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "grpc",
			Name:      "active_streams",
			Help:      "Open WatchChanges streams.",
		}),
		ChangeEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "change_events_delivered_total",
			Help:      "Change events delivered to subscribers by table and transport.",
		}, []string{"table", "transport"}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "clients",
			Help:      "Connected websocket change-stream clients.",
		}),
	}

	m.Registry.MustRegister(m.RPCs, m.RPCDuration, m.ActiveStreams, m.ChangeEvents, m.WSClients)
	if withRuntime {
		m.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return m
}
