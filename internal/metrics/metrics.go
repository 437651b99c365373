// Package metrics declares the Prometheus collectors exported by ctfd.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ledger operations
	Operations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ctf_operations_total",
			Help: "Total number of ledger operations",
		},
		[]string{"op", "status"}, // split/merge/redeem/prepare/report/..., ok or an error kind
	)

	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ctf_operation_duration_seconds",
			Help:    "Duration of ledger operations including commit",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	CollateralMoved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ctf_collateral_locked_total",
			Help: "Collateral units moved into or out of vaults",
		},
		[]string{"direction"}, // lock (split), unlock (merge), payout (redeem)
	)

	Conditions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ctf_conditions_total",
			Help: "Conditions prepared and resolved",
		},
		[]string{"transition"}, // prepared, resolved
	)

	// Event fan-out
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ctf_events_published_total",
			Help: "Event records pushed to publishers",
		},
		[]string{"sink", "status"}, // websocket/redis, success/error
	)

	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ctf_websocket_clients",
			Help: "Connected event stream clients",
		},
	)

	// RPC
	RPCRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ctf_rpc_requests_total",
			Help: "Total number of JSON-RPC requests",
		},
		[]string{"method", "status"}, // success/error
	)
)

// ObserveOperation records the outcome and latency of one ledger operation.
// status is "ok" or the error kind label.
func ObserveOperation(op, status string, start time.Time) {
	Operations.WithLabelValues(op, status).Inc()
	OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// Status returns "success" for a nil error and "error" otherwise.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
