package models

import (
	"time"

	"ledgerwallet/internal/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Transaction types
const (
	TransactionTypeCredit = "credit"
	TransactionTypeDebit  = "debit"
)

const DefaultEndpoint = "default"

// Transaction is an immutable ledger entry. Amount is signed and scaled by
// 10^DecimalPlaces: positive for credits, negative for debits.
type Transaction struct {
	ID            string            `gorm:"primaryKey;size:36"`
	AccountID     string            `gorm:"size:64;not null;index"`
	SubjectType   *string           `gorm:"size:64;index:idx_transactions_subject"`
	SubjectID     *string           `gorm:"size:64;index:idx_transactions_subject"`
	Type          string            `gorm:"size:6;not null"`
	Amount        decimal.Decimal   `gorm:"type:numeric(64,0);not null"`
	DecimalPlaces int               `gorm:"not null"`
	Meta          datatypes.JSONMap
	Endpoint      string            `gorm:"size:64;not null;default:'default'"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Endpoint == "" {
		t.Endpoint = DefaultEndpoint
	}
	return nil
}

func (t *Transaction) IsCredit() bool {
	return t.Type == TransactionTypeCredit
}

// AmountDecimal converts the stored integer amount back at the entry's own scale.
func (t *Transaction) AmountDecimal() decimal.Decimal {
	return money.NewMath(t.DecimalPlaces).ToDecimal(t.Amount)
}

// HasSubject reports whether the entry references a related entity.
func (t *Transaction) HasSubject() bool {
	return t.SubjectType != nil && t.SubjectID != nil
}
