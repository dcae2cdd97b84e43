package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "coderjam"

var (
	// Events counts inbound session events by type and outcome
	// (ok, rejected, ignored).
	Events = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_events_total",
		Help:      "Inbound session events by type and result.",
	}, []string{"event", "result"})

	Rooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "rooms_active",
		Help:      "Live pad rooms held in memory.",
	})

	Connections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ws_connections_active",
		Help:      "Open websocket connections.",
	})

	PersistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "persist_failures_total",
		Help:      "Pad write-through attempts that failed.",
	})

	SlowConsumers = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ws_slow_consumers_total",
		Help:      "Connections closed because their outbound queue was full.",
	})
)

// Handler exposes the default registry at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
