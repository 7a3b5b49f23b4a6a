package wallet

import (
	"errors"
	"fmt"
)

// Service errors
var (
	ErrInvalidArgument           = errors.New("invalid operation arguments")
	ErrNotEnoughBalance          = errors.New("not enough balance")
	ErrWalletLocked              = errors.New("wallet is locked")
	ErrDatabaseTransactionFailed = errors.New("wallet database transaction failed")
	ErrAccountNotFound           = errors.New("account not found")
)

// OperationError ties a failure to the account and operation it happened on.
type OperationError struct {
	Op        string
	AccountID string
	Err       error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("wallet %s on account %s: %v", e.Op, e.AccountID, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// errorKind maps an error onto the taxonomy for logs and metrics.
func errorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrNotEnoughBalance):
		return "not_enough_balance"
	case errors.Is(err, ErrDatabaseTransactionFailed):
		return "database_transaction_failed"
	case errors.Is(err, ErrWalletLocked):
		return "wallet_locked"
	case errors.Is(err, ErrAccountNotFound):
		return "account_not_found"
	default:
		return "unknown"
	}
}

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
