package wallet

import "time"

// Direction of a ledger entry.
type Direction string

const (
	Credit Direction = "credit"
	Debit  Direction = "debit"
)

// Default configuration values
const (
	DefaultDecimals   = 10
	DefaultCurrency   = "USD"
	DefaultEndpoint   = "default"
	DefaultRetry      = 1
	DefaultRetryDelay = 1000 * time.Millisecond
)

// Operation results recorded in metrics.
const (
	resultSuccess = "success"
	resultFailed  = "failed"
	resultPretend = "pretend"
)
