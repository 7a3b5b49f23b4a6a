package wallet

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"ledgerwallet/internal/money"
	"ledgerwallet/internal/repositories"
	"ledgerwallet/internal/repositories/cache"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Wallet is the balance engine of a single account. It is cheap to build and
// holds a configuration snapshot plus the balance memoized by the last
// refresh; build one per request.
type Wallet struct {
	svc    *Service
	config Configuration
	math   money.Math
	logger *zap.Logger

	mu   sync.Mutex
	memo *decimal.Decimal
}

func (w *Wallet) AccountID() string {
	return w.config.AccountID
}

func (w *Wallet) Configuration() Configuration {
	return w.config
}

// Math returns the arithmetic at the account scale.
func (w *Wallet) Math() money.Math {
	return w.math
}

func (w *Wallet) balanceKey() string {
	return cache.BalanceKey(w.config.AccountID)
}

func (w *Wallet) lockKey() string {
	return cache.LockKey(w.config.AccountID)
}

// Balance returns the balance as a decimal at the account scale. With cached
// false the balance is recomputed from the ledger first.
func (w *Wallet) Balance(ctx context.Context, cached bool) (decimal.Decimal, error) {
	raw, err := w.BalanceRaw(ctx, cached)
	if err != nil {
		return decimal.Zero, err
	}
	return w.math.ToDecimal(raw), nil
}

// BalanceAsMoney returns the cached balance with the account currency.
func (w *Wallet) BalanceAsMoney(ctx context.Context) (money.Money, error) {
	balance, err := w.Balance(ctx, true)
	if err != nil {
		return money.Money{}, err
	}
	return money.NewMoney(balance, w.config.Currency, w.config.Decimals), nil
}

// BalanceRaw returns the balance as the stored integer. The lookup order is
// the memo, the cache, then the persisted balance column, which is written
// back to the cache.
func (w *Wallet) BalanceRaw(ctx context.Context, cached bool) (decimal.Decimal, error) {
	if !cached {
		return w.Refresh(ctx)
	}

	if balance, ok := w.memoized(); ok {
		return balance, nil
	}

	balance, found, err := w.svc.cache.GetCachedBalance(ctx, w.balanceKey())
	if err != nil {
		w.logger.Warn("failed to read cached balance", zap.Error(err))
	}
	if found {
		w.svc.metrics.RecordCacheHit(w.balanceKey())
		return balance, nil
	}
	w.svc.metrics.RecordCacheMiss(w.balanceKey())

	record, err := w.svc.store.FindAccount(ctx, w.config.AccountID)
	if err != nil {
		return decimal.Zero, w.storeError(err)
	}
	balance = decimal.Zero
	if record.Balance.Valid {
		balance = record.Balance.Decimal
	}

	if err := w.svc.cache.PutCachedBalance(ctx, w.balanceKey(), balance); err != nil {
		w.logger.Warn("failed to cache balance", zap.Error(err))
	}
	return balance, nil
}

// Refresh recomputes the balance from the ledger and writes it to the account
// row, the cache and the memo. Outside the account lock it takes the lock and
// a storage transaction; inside it runs directly.
func (w *Wallet) Refresh(ctx context.Context) (decimal.Decimal, error) {
	if w.svc.cache.IsWithin(ctx, w.lockKey()) {
		return w.recompute(ctx)
	}

	var balance decimal.Decimal
	err := w.svc.cache.WithLock(ctx, w.lockKey(), func(ctx context.Context) error {
		return w.svc.store.WithinTransaction(ctx, func(ctx context.Context) error {
			var err error
			balance, err = w.recompute(ctx)
			return err
		})
	})
	if err != nil {
		w.forget(ctx)
		return decimal.Zero, w.lockError(err)
	}
	return balance, nil
}

func (w *Wallet) recompute(ctx context.Context) (decimal.Decimal, error) {
	record, err := w.svc.store.FindAccount(ctx, w.config.AccountID)
	if err != nil {
		return decimal.Zero, w.storeError(err)
	}

	balance, err := w.svc.store.SumAmounts(ctx, w.config.AccountID)
	if err != nil {
		return decimal.Zero, err
	}
	if err := w.svc.store.UpdateBalance(ctx, w.config.AccountID, balance); err != nil {
		return decimal.Zero, w.storeError(err)
	}
	if err := w.svc.cache.PutCachedBalance(ctx, w.balanceKey(), balance); err != nil {
		return decimal.Zero, err
	}

	w.mu.Lock()
	w.memo = &balance
	w.mu.Unlock()

	previous := decimal.Zero
	if record.Balance.Valid {
		previous = record.Balance.Decimal
	}
	w.svc.metrics.RecordBalanceChange(
		w.config.AccountID,
		w.math.ToDecimal(previous).InexactFloat64(),
		w.math.ToDecimal(balance).InexactFloat64(),
	)
	return balance, nil
}

// HasBalanceFor reports whether a debit of amount would pass validation.
// Nothing is locked or persisted.
func (w *Wallet) HasBalanceFor(ctx context.Context, amount decimal.Decimal) bool {
	op := w.NewOperation().Debit(amount).Pretend().Throw(true)
	return op.Dispatch(ctx) == nil
}

// Locked reports whether another caller currently holds the account lock.
func (w *Wallet) Locked(ctx context.Context) (bool, error) {
	locked, err := w.svc.cache.IsLocked(ctx, w.lockKey())
	if err != nil {
		return false, fmt.Errorf("failed to check wallet lock: %w", err)
	}
	return locked, nil
}

// Atomically runs fn under the account lock inside a storage transaction,
// reusing both when ctx already carries them. When it opens the transaction, a
// false or empty result rolls it back with ErrDatabaseTransactionFailed.
func (w *Wallet) Atomically(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	var result any
	run := func(ctx context.Context) error {
		if w.svc.store.InTransaction(ctx) {
			var err error
			result, err = fn(ctx)
			return err
		}
		return w.svc.store.WithinTransaction(ctx, func(ctx context.Context) error {
			var err error
			result, err = fn(ctx)
			if err != nil {
				return err
			}
			if isEmptyResult(result) {
				return ErrDatabaseTransactionFailed
			}
			return nil
		})
	}

	if err := w.svc.cache.WithLock(ctx, w.lockKey(), run); err != nil {
		return nil, err
	}
	return result, nil
}

func (w *Wallet) memoized() (decimal.Decimal, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.memo == nil {
		return decimal.Zero, false
	}
	return *w.memo, true
}

func (w *Wallet) clearMemo() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.memo = nil
}

// forget drops every copy of the balance that may reflect rolled back work.
func (w *Wallet) forget(ctx context.Context) {
	w.clearMemo()

	if err := w.svc.cache.ForgetBalance(context.WithoutCancel(ctx), w.balanceKey()); err != nil {
		w.logger.Warn("failed to forget cached balance", zap.Error(err))
	}
}

func (w *Wallet) storeError(err error) error {
	if errors.Is(err, repositories.ErrAccountNotFound) {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, w.config.AccountID)
	}
	return err
}

// lockError folds failures of the locked block into ErrWalletLocked, keeping
// the cause in the chain.
func (w *Wallet) lockError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrWalletLocked),
		errors.Is(err, ErrInvalidArgument),
		errors.Is(err, ErrNotEnoughBalance):
		return err
	}
	return fmt.Errorf("%w: resource is locked on account %s: %w", ErrWalletLocked, w.config.AccountID, err)
}

// isEmptyResult reports whether a unit of work result means failure: false,
// or an empty slice or map. nil is a valid result.
func isEmptyResult(result any) bool {
	if b, ok := result.(bool); ok {
		return !b
	}
	if result == nil {
		return false
	}
	v := reflect.ValueOf(result)
	switch v.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return v.Len() == 0
	}
	return false
}
