package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// OrdersProcessed counts order lifecycle operations by action
// (created, submitted, confirmed, filled, cancelled, rejected)
var OrdersProcessed = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "krakencore_orders_processed_total",
		Help: "Total number of order lifecycle operations by action",
	},
	[]string{"action"},
)

// FillsProcessed counts processed fills by quality classification
var FillsProcessed = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "krakencore_fills_processed_total",
		Help: "Total number of fills processed by the fill processor, by quality",
	},
	[]string{"quality"},
)

// FillProcessingLatency records latency distribution for fill processing
var FillProcessingLatency = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "krakencore_fill_processing_latency_seconds",
		Help:    "Latency in seconds to process individual fills",
		Buckets: prometheus.DefBuckets,
	},
)

// RiskAlertsRaised counts risk alerts by severity level
var RiskAlertsRaised = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "krakencore_risk_alerts_total",
		Help: "Total number of risk alerts raised by the analytics engine, by level",
	},
	[]string{"level"},
)

// HandlerFailures counts recovered handler panics at dispatch sites
var HandlerFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "krakencore_handler_failures_total",
		Help: "Total number of event handler panics recovered at dispatch sites",
	},
	[]string{"dispatcher"},
)

func init() {
	prometheus.MustRegister(OrdersProcessed, FillsProcessed, FillProcessingLatency)
	prometheus.MustRegister(RiskAlertsRaised, HandlerFailures)
}
