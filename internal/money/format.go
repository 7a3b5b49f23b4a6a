package money

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount tagged with its currency, kept at a fixed number of
// fractional digits for display.
type Money struct {
	Amount   decimal.Decimal
	Currency string
	Places   int
}

func NewMoney(amount decimal.Decimal, currency string, places int) Money {
	if places < 0 {
		places = 0
	}
	return Money{
		Amount:   amount.Truncate(int32(places)),
		Currency: strings.ToUpper(currency),
		Places:   places,
	}
}

// FormatMajor returns the amount without currency, e.g. "100.1234567890".
func (m Money) FormatMajor() string {
	return m.Amount.StringFixed(int32(m.Places))
}

// String returns "USD 100.1234567890".
func (m Money) String() string {
	return m.Currency + " " + m.FormatMajor()
}

// Display returns the amount with its currency symbol when one is known,
// e.g. "$100.12" or "-€3.50". Unknown currencies fall back to String.
func (m Money) Display() string {
	symbol, ok := currencySymbols[m.Currency]
	if !ok {
		return m.String()
	}
	if m.Amount.IsNegative() {
		return "-" + symbol + m.Amount.Neg().StringFixed(int32(m.Places))
	}
	return symbol + m.FormatMajor()
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
		Display  string `json:"display"`
	}{
		Amount:   m.FormatMajor(),
		Currency: m.Currency,
		Display:  m.Display(),
	})
}

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"CAD": "CA$",
	"AUD": "A$",
	"CHF": "CHF ",
	"BRL": "R$",
	"INR": "₹",
}
