// Package telemetry exports matching-engine counters as Prometheus metrics:
// orders processed, rejections, trades, and the depth of each SPSC queue.
// Collector only owns and updates the instruments; exposing them over HTTP
// is left to whatever process embeds the engine.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the engine's Prometheus instruments.
type Collector struct {
	OrdersProcessed  prometheus.Counter
	OrdersRejected   prometheus.Counter
	Trades           prometheus.Counter
	RequestQueueLen  prometheus.Gauge
	ResponseQueueLen prometheus.Gauge
	UpdateQueueLen   prometheus.Gauge
}

// New registers and returns a Collector on reg. Passing a dedicated
// registry (rather than prometheus.DefaultRegisterer) keeps repeated
// construction in tests from panicking on duplicate registration.
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		OrdersProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ome",
			Name:      "orders_processed_total",
			Help:      "Number of NEW/CANCEL requests dispatched to an order book.",
		}),
		OrdersRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ome",
			Name:      "orders_rejected_total",
			Help:      "Number of requests rejected as INVALID_REQUEST.",
		}),
		Trades: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ome",
			Name:      "trades_total",
			Help:      "Number of individual fills executed across all books.",
		}),
		RequestQueueLen: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "ome",
			Name:      "request_queue_depth",
			Help:      "Pending records on the inbound request queue.",
		}),
		ResponseQueueLen: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "ome",
			Name:      "response_queue_depth",
			Help:      "Pending records on the outbound response queue.",
		}),
		UpdateQueueLen: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "ome",
			Name:      "market_update_queue_depth",
			Help:      "Pending records on the outbound market-update queue.",
		}),
	}
}
