// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Subscription metrics
	NotificationsReceived prometheus.Counter
	NotificationsFiltered prometheus.Counter
	LiveSubscriptions     prometheus.Gauge

	// Fetch metrics
	FetchAttempts  prometheus.Counter
	FetchRetries   prometheus.Counter
	FetchExhausted prometheus.Counter
	RPCCallLatency *prometheus.HistogramVec

	// Classification metrics
	RecordsClassified *prometheus.CounterVec
	RecordsRejected   prometheus.Counter

	// Persistence metrics
	RecordsStored    prometheus.Counter
	RecordsDuplicate prometheus.Counter
	StoreErrors      *prometheus.CounterVec
	ArchiveBatches   prometheus.Counter

	// Price metrics
	PriceRefreshes     prometheus.Counter
	PriceRefreshErrors prometheus.Counter
	SolPriceUSD        prometheus.Gauge

	// Health metrics
	LastNotificationAt prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics
// registered on reg. A nil reg falls back to the default registry;
// tests pass their own prometheus.NewRegistry so instances never
// collide.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "wallet_tracker"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Subscription metrics
		NotificationsReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "subscription",
			Name:      "notifications_received_total",
			Help:      "Total number of log notifications received",
		}),
		NotificationsFiltered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "subscription",
			Name:      "notifications_filtered_total",
			Help:      "Total number of notifications dropped by the keyword filter",
		}),
		LiveSubscriptions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "subscription",
			Name:      "live_subscriptions",
			Help:      "Current number of live log subscriptions",
		}),

		// Fetch metrics
		FetchAttempts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "attempts_total",
			Help:      "Total number of transaction fetch attempts",
		}),
		FetchRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "retries_total",
			Help:      "Total number of transaction fetch retries",
		}),
		FetchExhausted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "exhausted_total",
			Help:      "Total number of transactions given up on after all retries",
		}),
		RPCCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		// Classification metrics
		RecordsClassified: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classify",
			Name:      "records_total",
			Help:      "Total number of records classified by direction",
		}, []string{"direction"}),
		RecordsRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classify",
			Name:      "rejected_total",
			Help:      "Total number of transactions rejected as malformed",
		}),

		// Persistence metrics
		RecordsStored: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "records_stored_total",
			Help:      "Total number of swap records stored",
		}),
		RecordsDuplicate: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "records_duplicate_total",
			Help:      "Total number of swap records skipped as duplicates",
		}),
		StoreErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "errors_total",
			Help:      "Total number of storage errors by operation",
		}, []string{"operation"}),
		ArchiveBatches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "archive_batches_total",
			Help:      "Total number of archive batches flushed",
		}),

		// Price metrics
		PriceRefreshes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "refreshes_total",
			Help:      "Total number of SOL price refreshes",
		}),
		PriceRefreshErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "refresh_errors_total",
			Help:      "Total number of failed SOL price refreshes",
		}),
		SolPriceUSD: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "sol_price_usd",
			Help:      "Last fetched SOL/USD price",
		}),

		// Health metrics
		LastNotificationAt: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_notification_timestamp",
			Help:      "Unix timestamp of the last received notification",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
