// Package money provides fixed-point arithmetic for wallet amounts.
//
// Amounts are handled as arbitrary precision decimals and stored as integers
// scaled by 10^scale. Conversions into storage round half-up, conversions out
// of storage and all arithmetic truncate at the output scale.
package money

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrNotNumeric     = errors.New("value is not numeric")
	ErrDivisionByZero = errors.New("division by zero")
)

// Math performs arithmetic at a fixed number of fractional digits.
// The zero value works at scale 0.
type Math struct {
	scale int32
}

// NewMath returns a Math working at the given scale. Negative scales are
// treated as zero.
func NewMath(scale int) Math {
	if scale < 0 {
		scale = 0
	}
	return Math{scale: int32(scale)}
}

// Scale returns the number of fractional digits results are truncated to.
func (m Math) Scale() int {
	return int(m.scale)
}

// WithScale returns a copy that writes results at a different output scale.
func (m Math) WithScale(scale int) Math {
	return NewMath(scale)
}

// Parse converts a caller supplied amount into a decimal.
func Parse(value any) (decimal.Decimal, error) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, nil
	case *decimal.Decimal:
		if v == nil {
			return decimal.Zero, ErrNotNumeric
		}
		return *v, nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %q", ErrNotNumeric, v)
		}
		return d, nil
	case json.Number:
		return Parse(string(v))
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int32:
		return decimal.NewFromInt32(v), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case uint:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(v)), 0), nil
	case uint64:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0), nil
	case float32:
		return Parse(float64(v))
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Zero, fmt.Errorf("%w: %v", ErrNotNumeric, v)
		}
		return decimal.NewFromFloat(v), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: %T", ErrNotNumeric, value)
	}
}

// ToInteger converts a decimal amount into its storage form: the value times
// 10^scale rounded half-up to a whole number.
func (m Math) ToInteger(value decimal.Decimal) decimal.Decimal {
	return value.Shift(m.scale).Round(0)
}

// ToDecimal converts a stored integer back into a decimal amount, truncating
// anything beyond the scale.
func (m Math) ToDecimal(value decimal.Decimal) decimal.Decimal {
	return value.Shift(-m.scale).Truncate(m.scale)
}

func (m Math) Add(a, b decimal.Decimal) decimal.Decimal {
	return a.Add(b).Truncate(m.scale)
}

func (m Math) Sub(a, b decimal.Decimal) decimal.Decimal {
	return a.Sub(b).Truncate(m.scale)
}

func (m Math) Mul(a, b decimal.Decimal) decimal.Decimal {
	return a.Mul(b).Truncate(m.scale)
}

// Div divides a by b rounding toward zero at the scale.
func (m Math) Div(a, b decimal.Decimal) (decimal.Decimal, error) {
	if b.IsZero() {
		return decimal.Zero, ErrDivisionByZero
	}
	q, _ := a.QuoRem(b, m.scale)
	return q, nil
}

// Pow raises a to an integer exponent.
func (m Math) Pow(a decimal.Decimal, exp int) (decimal.Decimal, error) {
	if a.IsZero() && exp < 0 {
		return decimal.Zero, ErrDivisionByZero
	}
	if exp > math.MaxInt32 || exp < math.MinInt32 {
		return decimal.Zero, fmt.Errorf("%w: exponent %d out of range", ErrNotNumeric, exp)
	}
	p, err := a.PowInt32(int32(exp))
	if err != nil {
		return decimal.Zero, err
	}
	return p.Truncate(m.scale), nil
}

// PowTen returns 10^n.
func PowTen(n int) decimal.Decimal {
	return decimal.New(1, int32(n))
}

func (m Math) Abs(a decimal.Decimal) decimal.Decimal {
	return a.Abs().Truncate(m.scale)
}

// EnsureNegative returns the value as a debit: positive values are negated,
// values that are already negative are kept negative.
func (m Math) EnsureNegative(a decimal.Decimal) decimal.Decimal {
	a = a.Truncate(m.scale)
	if a.IsNegative() {
		return a
	}
	return a.Neg()
}

// Compare returns -1, 0 or 1.
func (m Math) Compare(a, b decimal.Decimal) int {
	return a.Cmp(b)
}

// IsZero reports whether the value rounds to zero at the scale.
func (m Math) IsZero(a decimal.Decimal) bool {
	return a.Round(m.scale).IsZero()
}

// EnsureScale drops digits beyond the scale.
func (m Math) EnsureScale(a decimal.Decimal) decimal.Decimal {
	return a.Truncate(m.scale)
}

// Round rounds half away from zero to the given number of digits.
func (m Math) Round(a decimal.Decimal, precision int) decimal.Decimal {
	return a.Round(int32(precision))
}

func (m Math) Floor(a decimal.Decimal) decimal.Decimal {
	return a.Floor()
}

func (m Math) Ceil(a decimal.Decimal) decimal.Decimal {
	return a.Ceil()
}

// String formats the value with exactly scale fractional digits.
func (m Math) String(a decimal.Decimal) string {
	return a.StringFixed(m.scale)
}
