package observability

import (
	"testing"
	"time"

	"ledgerwallet/internal/services/wallet"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ wallet.MetricsCollector = (*Metrics)(nil)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordOperationResult("credit", "success")
	m.RecordOperationResult("credit", "success")
	m.RecordOperationResult("debit", "failed")
	m.RecordError("debit", "not_enough_balance")
	m.RecordRetry("debit")
	m.RecordCacheHit("wallet:1")
	m.RecordCacheMiss("wallet:1")
	m.RecordCacheMiss("wallet:2")
	m.RecordTransaction("credit", 12.5)
	m.RecordBalanceChange("1", 10, 2.5)
	m.RecordOperationDuration("credit", 5*time.Millisecond)
	m.RecordHTTPRequest("GET", "/health", 200, time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.OperationResults.WithLabelValues("credit", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.OperationResults.WithLabelValues("debit", "failed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.OperationErrors.WithLabelValues("debit", "not_enough_balance")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.OperationRetries.WithLabelValues("debit")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.BalanceCacheHits))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.BalanceCacheMisses))
	assert.Equal(t, 12.5, testutil.ToFloat64(m.TransactionAmount.WithLabelValues("credit")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.BalanceRefreshes))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/health", "200")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "wallet_operation_duration_seconds")
	assert.Contains(t, names, "wallet_balance_delta")
}

func TestNewLogger(t *testing.T) {
	for _, env := range []string{"production", "development", ""} {
		t.Run(env, func(t *testing.T) {
			logger, err := NewLogger(env)
			require.NoError(t, err)
			require.NotNil(t, logger)
			logger.Info("logger ready")
		})
	}
}
