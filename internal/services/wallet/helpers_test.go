package wallet

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"ledgerwallet/internal/models"
	"ledgerwallet/internal/repositories"
	"ledgerwallet/internal/repositories/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	db    *gorm.DB
	store *repositories.LedgerStore
	cache *cache.CacheService
	redis *miniredis.Miniredis
	svc   *Service
}

func newTestEnv(t *testing.T, opts ...ServiceOption) *testEnv {
	t.Helper()

	path := filepath.Join(t.TempDir(), "wallet.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, repositories.AutoMigrate(db))

	mr := miniredis.RunT(t)
	client := cache.NewRedisClient(&cache.RedisConfig{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cacheSvc := cache.NewCacheService(client, cache.Options{LockWait: 200 * time.Millisecond})

	store := repositories.NewLedgerStore(db, repositories.LedgerStoreConfig{})
	svc := NewService(store, cacheSvc, WalletConfig{DefaultDecimals: DefaultDecimals, RetryDelay: 10 * time.Millisecond}, opts...)

	return &testEnv{db: db, store: store, cache: cacheSvc, redis: mr, svc: svc}
}

func (e *testEnv) createAccount(t *testing.T, id string, credit int64) {
	t.Helper()
	account := &models.Account{
		ID:                  id,
		WalletDecimalPlaces: 10,
		WalletCurrency:      "USD",
		WalletCredit:        decimal.NewFromInt(credit).Shift(10),
	}
	require.NoError(t, e.db.Create(account).Error)
}

func (e *testEnv) wallet(t *testing.T, id string) *Wallet {
	t.Helper()
	w, err := e.svc.Wallet(context.Background(), id)
	require.NoError(t, err)
	return w
}

// persisted returns the balance column and the ledger sum of the account.
func (e *testEnv) persisted(t *testing.T, id string) (decimal.Decimal, decimal.Decimal) {
	t.Helper()
	ctx := context.Background()
	record, err := e.store.FindAccount(ctx, id)
	require.NoError(t, err)
	sum, err := e.store.SumAmounts(ctx, id)
	require.NoError(t, err)
	return record.Balance.Decimal, sum
}

func (e *testEnv) countEntries(t *testing.T, id string) int64 {
	t.Helper()
	n, err := e.store.CountTransactions(context.Background(), id)
	require.NoError(t, err)
	return n
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// recorder collects published event types.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Handle(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]EventType, 0, len(r.events))
	for _, e := range r.events {
		types = append(types, e.Type)
	}
	return types
}

func (r *recorder) last() Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

type MockMetrics struct {
	mock.Mock
}

func (m *MockMetrics) RecordOperationDuration(operation string, duration time.Duration) {
	m.Called(operation, duration)
}

func (m *MockMetrics) RecordOperationResult(operation, result string) {
	m.Called(operation, result)
}

func (m *MockMetrics) RecordRetry(operation string) {
	m.Called(operation)
}

func (m *MockMetrics) RecordCacheHit(key string) {
	m.Called(key)
}

func (m *MockMetrics) RecordCacheMiss(key string) {
	m.Called(key)
}

func (m *MockMetrics) RecordBalanceChange(accountID string, oldBalance, newBalance float64) {
	m.Called(accountID, oldBalance, newBalance)
}

func (m *MockMetrics) RecordError(operation, errType string) {
	m.Called(operation, errType)
}

func (m *MockMetrics) RecordTransaction(txType string, amount float64) {
	m.Called(txType, amount)
}

func newMockMetrics() *MockMetrics {
	m := new(MockMetrics)
	m.On("RecordOperationDuration", mock.Anything, mock.Anything).Maybe()
	m.On("RecordCacheHit", mock.Anything).Maybe()
	m.On("RecordCacheMiss", mock.Anything).Maybe()
	m.On("RecordBalanceChange", mock.Anything, mock.Anything, mock.Anything).Maybe()
	m.On("RecordTransaction", mock.Anything, mock.Anything).Maybe()
	return m
}
