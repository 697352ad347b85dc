// Package observability provides Prometheus metrics for the relais
// connection pipeline.
package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	// ConnectionsTotal counts handled connections by type and status class.
	ConnectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relais_connections_total",
			Help: "Total connections",
		},
		[]string{"type", "status"},
	)

	// ConnectionDuration records connection handling duration in seconds
	// by method.
	ConnectionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "relais_connection_duration_seconds",
			Help: "Connection duration",
		},
		[]string{"method"},
	)

	// ActiveConnections tracks the number of connections currently inside
	// the handler chain.
	ActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "relais_active_connections",
			Help: "Active connections",
		},
	)
)

func init() {
	prometheus.MustRegister(
		ConnectionsTotal,
		ConnectionDuration,
		ActiveConnections,
	)
}
