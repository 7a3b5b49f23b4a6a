package cache

const (
	balancePrefix = "wallet:"
	lockPrefix    = "wallet-locks:"
)

// BalanceKey is the key holding the cached scaled-integer balance of an account.
func BalanceKey(accountID string) string {
	return balancePrefix + accountID
}

// LockKey is the mutual-exclusion key of an account.
func LockKey(accountID string) string {
	return lockPrefix + accountID
}
