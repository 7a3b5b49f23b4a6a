package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"ledgerwallet/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Callback runs inside the locked storage transaction of an operation.
// Returning an error rolls the transaction back.
type Callback func(ctx context.Context, op *Operation) error

// Operation is a single credit or debit. It is configured through its setters
// and consumed by exactly one Dispatch.
type Operation struct {
	wallet *Wallet

	direction Direction
	amount    decimal.Decimal
	amountSet bool
	meta      map[string]any
	endpoint  string
	subject   *Subject

	shouldContinue func() bool
	shouldThrow    bool
	refreshBalance bool
	retry          int
	retryDelay     time.Duration

	before []Callback
	after  []Callback

	processing atomic.Bool
	dispatched atomic.Bool

	mu          sync.Mutex
	transaction *models.Transaction
	err         error
}

// NewOperation starts an operation on the wallet. Call Credit or Debit to set
// its direction and amount.
func (w *Wallet) NewOperation() *Operation {
	return &Operation{
		wallet:         w,
		direction:      Credit,
		endpoint:       DefaultEndpoint,
		shouldContinue: func() bool { return true },
		shouldThrow:    true,
		refreshBalance: true,
		retry:          w.svc.config.Retry,
		retryDelay:     w.svc.config.RetryDelay,
	}
}

func (o *Operation) Credit(amount decimal.Decimal) *Operation {
	o.direction = Credit
	o.amount = amount
	o.amountSet = true
	return o
}

func (o *Operation) Debit(amount decimal.Decimal) *Operation {
	o.direction = Debit
	o.amount = amount
	o.amountSet = true
	return o
}

// Meta sets the metadata stored with the ledger entry.
func (o *Operation) Meta(meta map[string]any) *Operation {
	o.meta = make(map[string]any, len(meta))
	for k, v := range meta {
		o.meta[k] = v
	}
	return o
}

func (o *Operation) Endpoint(endpoint string) *Operation {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	o.endpoint = endpoint
	return o
}

// Subject links the ledger entry to a related entity.
func (o *Operation) Subject(kind, id string) *Operation {
	o.subject = &Subject{Type: kind, ID: id}
	return o
}

// If makes the operation pretend when cond is false.
func (o *Operation) If(cond bool) *Operation {
	o.shouldContinue = func() bool { return cond }
	return o
}

// IfFunc is If with the condition evaluated at dispatch.
func (o *Operation) IfFunc(cond func() bool) *Operation {
	if cond != nil {
		o.shouldContinue = cond
	}
	return o
}

// Pretend validates the operation and runs its callbacks without locking or
// persisting anything.
func (o *Operation) Pretend() *Operation {
	return o.If(false)
}

// Throw controls whether Dispatch returns failures other than
// ErrInvalidArgument. It defaults to true.
func (o *Operation) Throw(throw bool) *Operation {
	o.shouldThrow = throw
	return o
}

func (o *Operation) DontThrow() *Operation {
	return o.Throw(false)
}

// RefreshBalance controls whether the balance is recomputed after the entry
// is appended. It defaults to true.
func (o *Operation) RefreshBalance(refresh bool) *Operation {
	o.refreshBalance = refresh
	return o
}

// Retry sets how many times the locked block is attempted and the pause
// between attempts.
func (o *Operation) Retry(times int, delay time.Duration) *Operation {
	o.retry = times
	if delay >= 0 {
		o.retryDelay = delay
	}
	return o
}

func (o *Operation) Before(cb Callback) *Operation {
	if cb != nil {
		o.before = append(o.before, cb)
	}
	return o
}

func (o *Operation) After(cb Callback) *Operation {
	if cb != nil {
		o.after = append(o.after, cb)
	}
	return o
}

// OK reports whether the operation persisted its ledger entry.
func (o *Operation) OK() bool {
	return o.Transaction() != nil
}

func (o *Operation) Failed() bool {
	return !o.OK()
}

// Transaction returns the persisted ledger entry, or nil.
func (o *Operation) Transaction() *models.Transaction {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.transaction
}

// Err returns the failure of the last Dispatch, including swallowed ones.
func (o *Operation) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

func (o *Operation) Direction() Direction {
	return o.direction
}

func (o *Operation) Amount() decimal.Decimal {
	return o.amount
}

func (o *Operation) Wallet() *Wallet {
	return o.wallet
}

// Dispatch validates the operation and, unless it pretends, appends the ledger
// entry and refreshes the balance under the account lock.
func (o *Operation) Dispatch(ctx context.Context) error {
	if !o.processing.CompareAndSwap(false, true) {
		return invalidArgument("transaction is already being processed")
	}
	defer o.processing.Store(false)

	if !o.dispatched.CompareAndSwap(false, true) {
		return invalidArgument("operation was already dispatched")
	}

	w := o.wallet
	start := time.Now()
	pretend := !o.shouldContinue()

	if !pretend {
		defer o.finishOnPanic(ctx)
	}

	err := o.validate(ctx)
	if err == nil {
		if pretend {
			err = o.pretend(ctx)
		} else {
			err = o.run(ctx)
		}
	}
	o.setErr(err)

	operation := string(o.direction)
	w.svc.metrics.RecordOperationDuration(operation, time.Since(start))
	switch {
	case err != nil:
		w.svc.metrics.RecordOperationResult(operation, resultFailed)
		w.svc.metrics.RecordError(operation, errorKind(err))
	case pretend:
		w.svc.metrics.RecordOperationResult(operation, resultPretend)
	default:
		w.svc.metrics.RecordOperationResult(operation, resultSuccess)
		w.svc.metrics.RecordTransaction(operation, o.amount.Abs().InexactFloat64())
	}

	if !pretend {
		if err != nil {
			w.logger.Warn("wallet operation failed",
				zap.String("direction", operation),
				zap.String("amount", o.amount.String()),
				zap.Error(err),
			)
			o.publish(ctx, EventFailed, err)
		}
		o.publish(ctx, EventFinished, nil)
	}

	return o.surface(err)
}

// finishOnPanic still reports a panicking callback as failed and finished
// before the panic continues. The lock and storage transaction are already
// released by then.
func (o *Operation) finishOnPanic(ctx context.Context) {
	r := recover()
	if r == nil {
		return
	}
	err := fmt.Errorf("wallet operation panicked: %v", r)
	o.setTransaction(nil)
	o.setErr(err)
	o.wallet.forget(ctx)
	o.wallet.logger.Error("wallet operation panicked",
		zap.String("direction", string(o.direction)),
		zap.Any("panic", r),
	)
	o.publish(ctx, EventFailed, err)
	o.publish(ctx, EventFinished, nil)
	panic(r)
}

// surface applies the throw policy. Invalid arguments are always returned.
func (o *Operation) surface(err error) error {
	if err == nil {
		return nil
	}
	if o.shouldThrow || errors.Is(err, ErrInvalidArgument) {
		return &OperationError{Op: string(o.direction), AccountID: o.wallet.AccountID(), Err: err}
	}
	return nil
}

func (o *Operation) validate(ctx context.Context) error {
	if !o.amountSet {
		return invalidArgument("amount is required")
	}
	if o.direction != Credit && o.direction != Debit {
		return invalidArgument("unknown direction %q", o.direction)
	}
	if o.wallet.math.IsZero(o.amount) {
		return invalidArgument("amount cannot be zero")
	}
	if o.direction == Credit {
		return nil
	}

	balance, err := o.wallet.Balance(ctx, true)
	if err != nil {
		return err
	}
	if !o.covers(balance) {
		return fmt.Errorf("%w: account %s", ErrNotEnoughBalance, o.wallet.AccountID())
	}
	return nil
}

// covers reports whether balance pays for the operation, letting the balance
// go negative down to the account credit floor.
func (o *Operation) covers(balance decimal.Decimal) bool {
	if o.direction == Credit {
		return true
	}

	m := o.wallet.math
	wanted := m.Abs(o.amount)
	if balance.GreaterThanOrEqual(wanted) {
		return true
	}
	difference := m.Abs(m.Sub(balance, wanted))
	return difference.LessThanOrEqual(m.EnsureScale(o.wallet.config.MaximumCredit))
}

func (o *Operation) pretend(ctx context.Context) error {
	for _, cb := range o.before {
		if err := cb(ctx, o); err != nil {
			return err
		}
	}
	for _, cb := range o.after {
		if err := cb(ctx, o); err != nil {
			return err
		}
	}
	return nil
}

func (o *Operation) run(ctx context.Context) error {
	before, main, after := o.compileCallbacks()

	attempts := max(o.retry, 1)
	for attempt := 1; ; attempt++ {
		err := o.dispatchAndBlock(ctx, before, main, after)
		if err == nil || attempt >= attempts || !retryable(err) {
			return err
		}

		o.wallet.svc.metrics.RecordRetry(string(o.direction))
		o.wallet.logger.Debug("retrying wallet operation",
			zap.Int("attempt", attempt),
			zap.Duration("delay", o.retryDelay),
			zap.Error(err),
		)

		timer := time.NewTimer(o.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}

func retryable(err error) bool {
	return !errors.Is(err, ErrInvalidArgument) && !errors.Is(err, ErrNotEnoughBalance)
}

// compileCallbacks puts the started event ahead of the caller's before
// callbacks, and the ledger append followed by the balance refresh in main.
func (o *Operation) compileCallbacks() (before, main, after []Callback) {
	before = append([]Callback{func(ctx context.Context, op *Operation) error {
		op.publish(ctx, EventStarted, nil)
		return nil
	}}, o.before...)

	main = []Callback{func(ctx context.Context, op *Operation) error {
		return op.persist(ctx)
	}}
	if o.refreshBalance {
		main = append(main, func(ctx context.Context, op *Operation) error {
			_, err := op.wallet.BalanceRaw(ctx, false)
			return err
		})
	} else {
		main = append(main, func(ctx context.Context, op *Operation) error {
			op.wallet.clearMemo()
			return nil
		})
	}

	after = append([]Callback(nil), o.after...)
	return before, main, after
}

// dispatchAndBlock runs one attempt of the locked block.
func (o *Operation) dispatchAndBlock(ctx context.Context, before, main, after []Callback) error {
	w := o.wallet

	if !w.svc.cache.IsWithin(ctx, w.lockKey()) {
		locked, err := w.svc.cache.IsLocked(ctx, w.lockKey())
		if err != nil {
			return w.lockError(err)
		}
		if locked {
			return fmt.Errorf("%w: resource is locked on account %s", ErrWalletLocked, w.AccountID())
		}
	}

	_, err := w.Atomically(ctx, func(ctx context.Context) (any, error) {
		for _, stage := range [][]Callback{before, main, after} {
			for _, cb := range stage {
				if err := cb(ctx, o); err != nil {
					return nil, err
				}
			}
		}
		return true, nil
	})
	if err != nil {
		o.setTransaction(nil)
		w.forget(ctx)
		return w.lockError(err)
	}
	return nil
}

// persist appends the ledger entry. The debit is checked again against the
// ledger sum now that the lock is held.
func (o *Operation) persist(ctx context.Context) error {
	w := o.wallet

	if o.direction == Debit {
		sum, err := w.svc.store.SumAmounts(ctx, w.AccountID())
		if err != nil {
			return err
		}
		if !o.covers(w.math.ToDecimal(sum)) {
			return fmt.Errorf("%w: account %s", ErrNotEnoughBalance, w.AccountID())
		}
	}

	entry := &models.Transaction{
		AccountID:     w.AccountID(),
		Type:          string(o.direction),
		Amount:        o.storageAmount(),
		DecimalPlaces: w.config.Decimals,
		Meta:          o.meta,
		Endpoint:      o.endpoint,
	}
	if o.subject != nil {
		entry.SubjectType = &o.subject.Type
		entry.SubjectID = &o.subject.ID
	}
	if entry.Meta == nil {
		entry.Meta = map[string]any{}
	}

	if err := w.svc.store.Append(ctx, entry); err != nil {
		return err
	}
	o.setTransaction(entry)

	o.publish(ctx, EventCreated, nil)
	if o.direction == Debit {
		o.publish(ctx, EventDebited, nil)
	} else {
		o.publish(ctx, EventCredited, nil)
	}
	return nil
}

// storageAmount is the signed integer stored on the ledger entry.
func (o *Operation) storageAmount() decimal.Decimal {
	m := o.wallet.math
	amount := m.ToInteger(o.amount.Abs())
	if o.direction == Debit {
		return m.EnsureNegative(amount)
	}
	return amount
}

func (o *Operation) publish(ctx context.Context, eventType EventType, err error) {
	o.wallet.svc.events.Publish(ctx, Event{
		Type:        eventType,
		AccountID:   o.wallet.AccountID(),
		Direction:   o.direction,
		Amount:      o.amount,
		Transaction: o.Transaction(),
		Err:         err,
	})
}

func (o *Operation) setTransaction(tx *models.Transaction) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transaction = tx
}

func (o *Operation) setErr(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.err = err
}
