package wallet

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// OperationOption configures the operation built by Wallet.Credit and
// Wallet.Debit.
type OperationOption func(*Operation)

func WithMeta(meta map[string]any) OperationOption {
	return func(o *Operation) { o.Meta(meta) }
}

func WithEndpoint(endpoint string) OperationOption {
	return func(o *Operation) { o.Endpoint(endpoint) }
}

func WithSubject(kind, id string) OperationOption {
	return func(o *Operation) { o.Subject(kind, id) }
}

func WithThrow(throw bool) OperationOption {
	return func(o *Operation) { o.Throw(throw) }
}

func WithAfter(cb Callback) OperationOption {
	return func(o *Operation) { o.After(cb) }
}

func WithRetry(times int, delay time.Duration) OperationOption {
	return func(o *Operation) { o.Retry(times, delay) }
}

// Credit adds amount to the balance.
func (w *Wallet) Credit(ctx context.Context, amount decimal.Decimal, opts ...OperationOption) (*Operation, error) {
	return w.dispatch(ctx, w.NewOperation().Credit(amount), opts)
}

// Debit subtracts amount from the balance.
func (w *Wallet) Debit(ctx context.Context, amount decimal.Decimal, opts ...OperationOption) (*Operation, error) {
	return w.dispatch(ctx, w.NewOperation().Debit(amount), opts)
}

func (w *Wallet) dispatch(ctx context.Context, op *Operation, opts []OperationOption) (*Operation, error) {
	for _, opt := range opts {
		opt(op)
	}
	if err := op.Dispatch(ctx); err != nil {
		return op, err
	}
	return op, nil
}
