package wallet

import (
	"context"
	"time"

	"ledgerwallet/internal/models"
	"ledgerwallet/internal/repositories"

	"github.com/shopspring/decimal"
)

// LedgerStore persists ledger entries and the materialized balance.
type LedgerStore interface {
	FindAccount(ctx context.Context, accountID string) (*repositories.AccountRecord, error)
	Append(ctx context.Context, entry *models.Transaction) error
	SumAmounts(ctx context.Context, accountID string) (decimal.Decimal, error)
	// UpdateBalance must not fire model hooks.
	UpdateBalance(ctx context.Context, accountID string, balance decimal.Decimal) error
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	InTransaction(ctx context.Context) bool
}

// BalanceCache is the distributed lock and balance cache.
type BalanceCache interface {
	GetCachedBalance(ctx context.Context, key string) (decimal.Decimal, bool, error)
	PutCachedBalance(ctx context.Context, key string, balance decimal.Decimal) error
	ForgetBalance(ctx context.Context, key string) error
	IsLocked(ctx context.Context, key string) (bool, error)
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
	IsWithin(ctx context.Context, key string) bool
}

// WalletConfig holds the service wide defaults.
type WalletConfig struct {
	// DefaultDecimals applies to accounts without a decimals column value.
	// Negative selects DefaultDecimals.
	DefaultDecimals int
	DefaultCurrency string
	// DefaultMaximumCredit applies to accounts without a credit column value.
	DefaultMaximumCredit decimal.Decimal
	Retry                int
	RetryDelay           time.Duration
}

// Configuration is the per-account snapshot resolved when a Wallet is built.
type Configuration struct {
	AccountID     string
	Decimals      int
	Currency      string
	MaximumCredit decimal.Decimal
}

// Subject references the entity a transaction concerns, e.g. an order.
type Subject struct {
	Type string
	ID   string
}

// MetricsCollector defines the interface for collecting wallet metrics
type MetricsCollector interface {
	// Operation metrics
	RecordOperationDuration(operation string, duration time.Duration)
	RecordOperationResult(operation, result string)
	RecordRetry(operation string)

	// Cache metrics
	RecordCacheHit(key string)
	RecordCacheMiss(key string)

	// Balance metrics
	RecordBalanceChange(accountID string, oldBalance, newBalance float64)

	// Error metrics
	RecordError(operation, errType string)

	// Transaction metrics
	RecordTransaction(txType string, amount float64)
}
