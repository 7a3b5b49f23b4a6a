/*
Package wallet maintains the balance of an account on top of an append-only
ledger of signed transactions.

Every credit or debit goes through an Operation:

	validate -> lock -> persist -> refresh -> notify

The account lock is the only serialization point. While it is held the ledger
entry is appended and the materialized balance is recomputed inside a single
storage transaction, so the entry and the balance never diverge for other
readers.

Usage:

	svc := wallet.NewService(store, cache, wallet.WalletConfig{}, wallet.WithLogger(logger))

	w, err := svc.Wallet(ctx, accountID)

	// Credit amount
	op, err := w.Credit(ctx, decimal.RequireFromString("100.50"),
	    wallet.WithMeta(map[string]any{"order": "A-1"}),
	    wallet.WithEndpoint("api"),
	)

	// Debit through the fluent builder
	op = w.NewOperation().
	    Debit(decimal.NewFromInt(20)).
	    Subject("order", "A-1").
	    After(func(ctx context.Context, op *wallet.Operation) error {
	        return notifyShipping(ctx, op.Transaction())
	    })
	err = op.Dispatch(ctx)

	// Balance
	balance, err := w.Balance(ctx, true)

Configuration:

Scale, currency and credit floor are read from the account row once, when the
Wallet is built. WalletConfig supplies the defaults for NULL columns:

	config := wallet.WalletConfig{
	    DefaultDecimals: 10,
	    DefaultCurrency: "USD",
	    Retry:           1,
	    RetryDelay:      time.Second,
	}

Error Handling:

  - ErrInvalidArgument: zero amount, re-entrant dispatch, missing account id
  - ErrNotEnoughBalance: the debit exceeds balance plus credit floor
  - ErrWalletLocked: the account is locked, the lock wait timed out, or the
    locked unit of work failed
  - ErrDatabaseTransactionFailed: the locked unit of work returned an empty result

Operations built with Throw(false) swallow everything except
ErrInvalidArgument; inspect OK, Failed and Err instead.

Events:

Started, Created, Credited or Debited, Failed and Finished events are
published synchronously to the Dispatcher. Listener errors are logged and
never affect the operation.
*/
package wallet
