package money

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func TestMath_ToInteger(t *testing.T) {
	tests := []struct {
		name  string
		scale int
		input string
		want  string
	}{
		{name: "full precision", scale: 10, input: "100.1234567890", want: "1001234567890"},
		{name: "whole number", scale: 2, input: "42", want: "4200"},
		{name: "half rounds up", scale: 10, input: "0.00000000005", want: "1"},
		{name: "below half rounds down", scale: 10, input: "0.00000000004", want: "0"},
		{name: "negative half rounds away from zero", scale: 2, input: "-1.005", want: "-101"},
		{name: "zero scale", scale: 0, input: "9.5", want: "10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewMath(tt.scale).ToInteger(d(tt.input))
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestMath_ToDecimal(t *testing.T) {
	m := NewMath(10)

	got := m.ToDecimal(d("1001234567890"))
	assert.Equal(t, "100.1234567890", m.String(got))

	got = NewMath(2).ToDecimal(d("-12345"))
	assert.Equal(t, "-123.45", got.String())
}

func TestMath_RoundTrip(t *testing.T) {
	values := []string{"0", "1", "0.1", "100.1234567890", "-50.5", "99999999.9999999999", "-0.0000000001"}

	for _, scale := range []int{0, 2, 10} {
		m := NewMath(scale)
		for _, v := range values {
			x := d(v).Truncate(int32(scale))
			back := m.ToDecimal(m.ToInteger(x))
			assert.True(t, x.Equal(back), "scale %d value %s came back as %s", scale, x, back)
		}
	}
}

func TestMath_Arithmetic(t *testing.T) {
	m := NewMath(2)

	assert.Equal(t, "1", m.Add(d("1.005"), d("0.001")).String())
	assert.Equal(t, "0.99", m.Sub(d("1"), d("0.001")).String())
	assert.Equal(t, "3.7", m.Mul(d("1.234"), d("3")).String())
	assert.Equal(t, "1.23", m.Abs(d("-1.239")).String())
	assert.Equal(t, 1, m.Compare(d("2"), d("1.99")))
	assert.Equal(t, 0, m.Compare(d("2.00"), d("2")))
	assert.Equal(t, -1, m.Compare(d("-3"), d("1")))
	assert.Equal(t, "1.2345", m.WithScale(4).Add(d("1.23456"), d("0")).String())
}

func TestMath_Div(t *testing.T) {
	m := NewMath(2)

	tests := []struct {
		name string
		a, b string
		want string
	}{
		{name: "truncates positive", a: "10", b: "3", want: "3.33"},
		{name: "truncates negative dividend", a: "-10", b: "3", want: "-3.33"},
		{name: "truncates negative divisor", a: "2", b: "-3", want: "-0.66"},
		{name: "exact", a: "7.5", b: "2.5", want: "3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Div(d(tt.a), d(tt.b))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}

	_, err := m.Div(d("1"), decimal.Zero)
	assert.ErrorIs(t, err, ErrDivisionByZero)
}

func TestMath_Pow(t *testing.T) {
	m := NewMath(4)

	got, err := m.Pow(d("2"), 10)
	require.NoError(t, err)
	assert.Equal(t, "1024", got.String())

	got, err = m.Pow(d("1.5"), 3)
	require.NoError(t, err)
	assert.Equal(t, "3.375", got.String())

	_, err = m.Pow(decimal.Zero, -1)
	assert.ErrorIs(t, err, ErrDivisionByZero)

	assert.Equal(t, "1000", PowTen(3).String())
}

func TestMath_EnsureNegative(t *testing.T) {
	m := NewMath(2)

	assert.Equal(t, "-5", m.EnsureNegative(d("5")).String())
	assert.Equal(t, "-5", m.EnsureNegative(d("-5")).String())
	assert.Equal(t, "-1.23", m.EnsureNegative(d("1.239")).String())
	assert.True(t, m.EnsureNegative(decimal.Zero).IsZero())
}

func TestMath_IsZero(t *testing.T) {
	m := NewMath(10)

	zeros := []string{"0", "0.0", "-0", "0.00000000001", "0.00000000004"}
	for _, z := range zeros {
		assert.True(t, m.IsZero(d(z)), z)
	}

	nonZeros := []string{"0.00000000005", "1", "-0.0000000001"}
	for _, nz := range nonZeros {
		assert.False(t, m.IsZero(d(nz)), nz)
	}
}

func TestMath_RoundingHelpers(t *testing.T) {
	m := NewMath(10)

	assert.Equal(t, "1.3", m.Round(d("1.25"), 1).String())
	assert.Equal(t, "-1.3", m.Round(d("-1.25"), 1).String())
	assert.Equal(t, "1", m.Floor(d("1.9")).String())
	assert.Equal(t, "-2", m.Floor(d("-1.1")).String())
	assert.Equal(t, "2", m.Ceil(d("1.1")).String())
	assert.Equal(t, "1.123", m.WithScale(3).EnsureScale(d("1.12399")).String())
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		want    string
		wantErr bool
	}{
		{name: "string", input: " 12.50 ", want: "12.5"},
		{name: "int", input: 7, want: "7"},
		{name: "int64", input: int64(-3), want: "-3"},
		{name: "uint64", input: uint64(18446744073709551615), want: "18446744073709551615"},
		{name: "float", input: 0.1, want: "0.1"},
		{name: "decimal", input: d("3.14"), want: "3.14"},
		{name: "garbage string", input: "ten", wantErr: true},
		{name: "empty string", input: "", wantErr: true},
		{name: "nan", input: math.NaN(), wantErr: true},
		{name: "infinity", input: math.Inf(1), wantErr: true},
		{name: "unsupported type", input: struct{}{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNotNumeric)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}
