package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Default column names of the wallet attributes on an account table.
const (
	ColumnBalance  = "wallet_balance"
	ColumnDecimals = "wallet_decimal_places"
	ColumnCurrency = "wallet_currency"
	ColumnCredit   = "wallet_credit"
)

// Account is the default host table carrying the wallet columns. Balance and
// credit are scaled integers at WalletDecimalPlaces.
type Account struct {
	ID                  string          `gorm:"primaryKey;size:64"`
	WalletBalance       decimal.Decimal `gorm:"type:numeric(64,0);not null;default:0"`
	WalletDecimalPlaces int             `gorm:"not null;default:10"`
	WalletCurrency      string          `gorm:"size:3;not null;default:'USD'"`
	WalletCredit        decimal.Decimal `gorm:"type:numeric(64,0);not null;default:0"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (Account) TableName() string {
	return "accounts"
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
