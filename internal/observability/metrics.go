package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CounterTxnRetries counts optimistic transaction retries by operation.
	CounterTxnRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "careervivid_counter_txn_retries_total",
		Help: "Total number of counter transaction retries by operation",
	}, []string{"operation"})

	// CounterTxnAborts counts transactions that exhausted their retry budget.
	CounterTxnAborts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "careervivid_counter_txn_aborts_total",
		Help: "Total number of counter transactions aborted after retry exhaustion",
	}, []string{"operation"})

	// FeedWindowDeliveries counts full live-window deliveries pushed to subscribers.
	FeedWindowDeliveries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "careervivid_feed_window_deliveries_total",
		Help: "Total number of live feed window deliveries",
	})

	// FeedSubscribers is the gauge of open live feed subscriptions.
	FeedSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "careervivid_feed_subscribers",
		Help: "Number of active live feed websocket subscriptions",
	})

	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "careervivid_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})
)
