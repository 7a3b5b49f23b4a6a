package repositories

import (
	"context"
	"errors"
	"fmt"

	"ledgerwallet/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrAccountNotFound = errors.New("account not found")
)

// Columns names the wallet attributes on the accounts table.
type Columns struct {
	Key      string
	Balance  string
	Decimals string
	Currency string
	Credit   string
}

func DefaultColumns() Columns {
	return Columns{
		Key:      "id",
		Balance:  models.ColumnBalance,
		Decimals: models.ColumnDecimals,
		Currency: models.ColumnCurrency,
		Credit:   models.ColumnCredit,
	}
}

type LedgerStoreConfig struct {
	AccountsTable string
	Columns       Columns
}

// AccountRecord holds the wallet attributes of an account as stored. Nil
// fields were NULL in the table.
type AccountRecord struct {
	ID       string
	Balance  decimal.NullDecimal
	Decimals *int
	Currency *string
	Credit   decimal.NullDecimal
}

// LedgerStore appends ledger entries and maintains the materialized balance
// column of the host account table.
type LedgerStore struct {
	db  *gorm.DB
	cfg LedgerStoreConfig
}

type txKey struct{}

func NewLedgerStore(db *gorm.DB, cfg LedgerStoreConfig) *LedgerStore {
	if db == nil {
		panic("db is required")
	}
	if cfg.AccountsTable == "" {
		cfg.AccountsTable = models.Account{}.TableName()
	}
	defaults := DefaultColumns()
	if cfg.Columns.Key == "" {
		cfg.Columns.Key = defaults.Key
	}
	if cfg.Columns.Balance == "" {
		cfg.Columns.Balance = defaults.Balance
	}
	if cfg.Columns.Decimals == "" {
		cfg.Columns.Decimals = defaults.Decimals
	}
	if cfg.Columns.Currency == "" {
		cfg.Columns.Currency = defaults.Currency
	}
	if cfg.Columns.Credit == "" {
		cfg.Columns.Credit = defaults.Credit
	}
	return &LedgerStore{db: db, cfg: cfg}
}

// conn returns the transaction carried by ctx, or the base connection.
func (s *LedgerStore) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return s.db.WithContext(ctx)
}

// InTransaction reports whether ctx carries an open storage transaction.
func (s *LedgerStore) InTransaction(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*gorm.DB)
	return ok
}

// WithinTransaction runs fn inside a storage transaction. When ctx already
// carries one it is reused; otherwise a new one is committed when fn returns
// nil and rolled back when it returns an error or panics.
func (s *LedgerStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.InTransaction(ctx) {
		return fn(ctx)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

func (s *LedgerStore) FindAccount(ctx context.Context, accountID string) (*AccountRecord, error) {
	var row struct {
		Balance  decimal.NullDecimal
		Decimals *int
		Currency *string
		Credit   decimal.NullDecimal
	}

	cols := s.cfg.Columns
	result := s.conn(ctx).
		Table(s.cfg.AccountsTable).
		Select("? AS balance, ? AS decimals, ? AS currency, ? AS credit",
			clause.Column{Name: cols.Balance},
			clause.Column{Name: cols.Decimals},
			clause.Column{Name: cols.Currency},
			clause.Column{Name: cols.Credit},
		).
		Where(clause.Eq{Column: clause.Column{Name: cols.Key}, Value: accountID}).
		Limit(1).
		Scan(&row)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get account: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrAccountNotFound
	}

	return &AccountRecord{
		ID:       accountID,
		Balance:  row.Balance,
		Decimals: row.Decimals,
		Currency: row.Currency,
		Credit:   row.Credit,
	}, nil
}

// Append inserts a ledger entry.
func (s *LedgerStore) Append(ctx context.Context, entry *models.Transaction) error {
	if err := s.conn(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// SumAmounts returns the sum of every entry amount of the account.
func (s *LedgerStore) SumAmounts(ctx context.Context, accountID string) (decimal.Decimal, error) {
	var sum struct {
		Total decimal.Decimal
	}
	err := s.conn(ctx).
		Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("account_id = ?", accountID).
		Scan(&sum).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum transactions: %w", err)
	}
	return sum.Total, nil
}

// UpdateBalance writes the materialized balance column. Hooks and timestamps
// are skipped.
func (s *LedgerStore) UpdateBalance(ctx context.Context, accountID string, balance decimal.Decimal) error {
	result := s.conn(ctx).
		Table(s.cfg.AccountsTable).
		Where(clause.Eq{Column: clause.Column{Name: s.cfg.Columns.Key}, Value: accountID}).
		UpdateColumn(s.cfg.Columns.Balance, balance)
	if result.Error != nil {
		return fmt.Errorf("failed to update balance: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// ListTransactions returns entries of the account, newest first.
func (s *LedgerStore) ListTransactions(ctx context.Context, accountID string, limit, offset int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var txs []models.Transaction
	err := s.conn(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, nil
}

// CountTransactions returns the number of entries of the account.
func (s *LedgerStore) CountTransactions(ctx context.Context, accountID string) (int64, error) {
	var count int64
	err := s.conn(ctx).Model(&models.Transaction{}).Where("account_id = ?", accountID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

// Ping checks the underlying connection.
func (s *LedgerStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
