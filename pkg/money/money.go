// Package money normalizes monetary and quantity values to the two
// fractional digits used everywhere a bill amount is stored or compared.
package money

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Places is the number of fractional digits every normalized value carries.
const Places = 2

// Storable magnitudes: amounts are NUMERIC(12,2) and quantities NUMERIC(10,2).
const (
	AmountDigits   = 10
	QuantityDigits = 8
)

// MaxExponent bounds the decimal exponent of a value, in both directions,
// that Fits accepts.
const MaxExponent = 20

// maxLiteralLength bounds the text Parse accepts.
const maxLiteralLength = 64

// ErrOutOfRange is returned by Parse for literals that are too long.
var ErrOutOfRange = errors.New("decimal literal out of range")

// Normalize rounds d to two fractional digits, half away from zero
// (1.005 -> 1.01, -1.005 -> -1.01).
func Normalize(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Sum adds the given values and normalizes the result.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}

	return Normalize(total)
}

// String renders d with exactly two fractional digits, e.g. "29.90".
func String(d decimal.Decimal) string {
	return d.StringFixed(Places)
}

// Fits reports whether d, once normalized, has at most digits integer
// digits. A value whose exponent is beyond MaxExponent never fits and is
// not rounded at all.
func Fits(d decimal.Decimal, digits int) bool {
	if exp := d.Exponent(); exp > MaxExponent || exp < -MaxExponent {
		return false
	}

	return Normalize(d).Abs().LessThan(decimal.New(1, int32(digits))) //nolint: gosec
}

// Parse reads a decimal literal exactly, without going through float64.
func Parse(s string) (decimal.Decimal, error) {
	if len(s) > maxLiteralLength {
		return decimal.Zero, ErrOutOfRange
	}

	return decimal.NewFromString(s) //nolint: wrapcheck
}
