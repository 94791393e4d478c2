package domain

import (
	"bytes"  // Byte helpers for JSON decoding
	"errors" // Error construction
	"fmt"    // Error formatting
	"math"   // int64 bounds

	"github.com/shopspring/decimal" // Exact decimal arithmetic for currency values
)

// Amount is a currency value in minor units (1/100 Taka)
type Amount int64

// minorUnitExp is the decimal exponent of one minor unit
const minorUnitExp = -2

// DefaultGoal is the savings goal used when a group has no goal yet (2,000,000.00)
const DefaultGoal Amount = 2_000_000 * 100

// ErrAmountPrecision is returned when a value carries more than two fractional digits
var ErrAmountPrecision = errors.New("amount has more than two decimal places")

// ErrAmountRange is returned when a value does not fit in int64 minor units
var ErrAmountRange = errors.New("amount is out of range")

var (
	maxMinor = decimal.NewFromInt(math.MaxInt64)
	minMinor = decimal.NewFromInt(math.MinInt64)
)

// ParseAmount converts a decimal string such as "500" or "1250.50" into an Amount
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return fromDecimal(d)
}

func fromDecimal(d decimal.Decimal) (Amount, error) {
	minor := d.Shift(-minorUnitExp)
	// Reject fractions of a minor unit instead of rounding them away
	if !minor.Equal(minor.Truncate(0)) {
		return 0, ErrAmountPrecision
	}
	if minor.GreaterThan(maxMinor) || minor.LessThan(minMinor) {
		return 0, ErrAmountRange // IntPart would wrap
	}
	return Amount(minor.IntPart()), nil
}

// Decimal returns the amount in major units
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), minorUnitExp)
}

// String renders the amount with two fractional digits
func (a Amount) String() string {
	return a.Decimal().StringFixed(2)
}

// Abs returns the absolute value of the amount
func (a Amount) Abs() Amount {
	if a < 0 {
		return -a
	}
	return a
}

// MarshalJSON renders the amount as a JSON number, e.g. 500.00
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string
func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil // Leave the zero value in place
	}
	b = bytes.Trim(b, `"`)
	v, err := ParseAmount(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Percent returns a/of as a percentage rounded to two decimals, zero when of is not positive
func (a Amount) Percent(of Amount) float64 {
	if of <= 0 {
		return 0
	}
	p, _ := a.Decimal().Div(of.Decimal()).Mul(decimal.NewFromInt(100)).Round(2).Float64()
	return p
}
