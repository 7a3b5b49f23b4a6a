package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics of the wallet service. It implements
// wallet.MetricsCollector.
type Metrics struct {
	// --- Operations ---
	OperationDuration *prometheus.HistogramVec
	OperationResults  *prometheus.CounterVec
	OperationRetries  *prometheus.CounterVec
	OperationErrors   *prometheus.CounterVec
	TransactionAmount *prometheus.CounterVec

	// --- Balance ---
	BalanceCacheHits   prometheus.Counter
	BalanceCacheMisses prometheus.Counter
	BalanceDelta       prometheus.Histogram
	BalanceRefreshes   prometheus.Counter

	// --- HTTP ---
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// NewMetrics creates the metrics and registers them with reg. A nil reg uses
// the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	latencyBuckets := []float64{
		0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025,
		0.05, 0.1, 0.25, 0.5, 1, 2.5,
	}

	return &Metrics{
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wallet_operation_duration_seconds",
			Help:    "Time to dispatch a wallet operation",
			Buckets: latencyBuckets,
		}, []string{"operation"}),

		OperationResults: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_operations_total",
			Help: "Dispatched wallet operations by result (success/failed/pretend)",
		}, []string{"operation", "result"}),

		OperationRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_operation_retries_total",
			Help: "Retried attempts of the locked block",
		}, []string{"operation"}),

		OperationErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_operation_errors_total",
			Help: "Failed wallet operations by error kind",
		}, []string{"operation", "kind"}),

		TransactionAmount: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_transaction_amount_total",
			Help: "Sum of persisted transaction amounts, in major units",
		}, []string{"type"}),

		BalanceCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "wallet_balance_cache_hits_total",
			Help: "Balance reads served from the cache",
		}),

		BalanceCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "wallet_balance_cache_misses_total",
			Help: "Balance reads that fell back to the account row",
		}),

		BalanceDelta: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "wallet_balance_delta",
			Help:    "Absolute balance change observed by a refresh, in major units",
			Buckets: prometheus.ExponentialBuckets(0.01, 10, 9),
		}),

		BalanceRefreshes: factory.NewCounter(prometheus.CounterOpts{
			Name: "wallet_balance_refreshes_total",
			Help: "Balance recomputations from the ledger",
		}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_http_requests_total",
			Help: "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),

		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wallet_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: latencyBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) RecordOperationDuration(operation string, duration time.Duration) {
	m.OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *Metrics) RecordOperationResult(operation, result string) {
	m.OperationResults.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) RecordRetry(operation string) {
	m.OperationRetries.WithLabelValues(operation).Inc()
}

// RecordCacheHit ignores the key; per-account labels would be unbounded.
func (m *Metrics) RecordCacheHit(string) {
	m.BalanceCacheHits.Inc()
}

func (m *Metrics) RecordCacheMiss(string) {
	m.BalanceCacheMisses.Inc()
}

func (m *Metrics) RecordBalanceChange(_ string, oldBalance, newBalance float64) {
	m.BalanceRefreshes.Inc()
	delta := newBalance - oldBalance
	if delta < 0 {
		delta = -delta
	}
	m.BalanceDelta.Observe(delta)
}

func (m *Metrics) RecordError(operation, errType string) {
	m.OperationErrors.WithLabelValues(operation, errType).Inc()
}

func (m *Metrics) RecordTransaction(txType string, amount float64) {
	m.TransactionAmount.WithLabelValues(txType).Add(amount)
}

// RecordHTTPRequest records one served request.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
