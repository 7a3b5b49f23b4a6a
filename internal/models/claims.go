package models

import "github.com/golang-jwt/jwt/v5"

// Wallet API scopes
const (
	ScopeWalletRead  = "wallet:read"
	ScopeWalletWrite = "wallet:write"
	ScopeWalletAdmin = "wallet:admin"
)

// Claims are the JWT claims accepted by the wallet API. Subject identifies the
// caller; Accounts restricts the accounts it may touch, empty meaning any.
type Claims struct {
	jwt.RegisteredClaims
	Scopes   []string `json:"scopes"`
	Accounts []string `json:"accounts,omitempty"`
}

// HasScope checks if the claims grant a scope. wallet:admin grants every scope.
func (c *Claims) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope || s == ScopeWalletAdmin {
			return true
		}
	}
	return false
}

// CanAccess reports whether the claims cover accountID.
func (c *Claims) CanAccess(accountID string) bool {
	if len(c.Accounts) == 0 {
		return true
	}
	for _, id := range c.Accounts {
		if id == accountID {
			return true
		}
	}
	return false
}

// DefaultScopes returns the scopes granted to a role.
func DefaultScopes(role string) []string {
	switch role {
	case "admin":
		return []string{ScopeWalletAdmin}
	case "service":
		return []string{ScopeWalletRead, ScopeWalletWrite}
	case "viewer":
		return []string{ScopeWalletRead}
	default:
		return []string{}
	}
}
