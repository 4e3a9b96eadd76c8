package grid

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxDailyHours is the largest value accepted for a single cell.
const MaxDailyHours = 24

var (
	// ErrNotNumeric is returned for cell input that does not parse as a number.
	ErrNotNumeric = errors.New("you must enter a numeric value")
	// ErrTooManyHours is returned for cell input above MaxDailyHours.
	ErrTooManyHours = errors.New("the maximum number of hours for one day is 24")
	// ErrNegativeHours is returned for cell input below zero.
	ErrNegativeHours = errors.New("hours cannot be negative")
)

var (
	step     = decimal.New(5, -2)
	half     = decimal.New(5, -1)
	maxHours = decimal.NewFromInt(MaxDailyHours)
)

// Round rounds d to the nearest 0.05, halves rounding up.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Div(step).Add(half).Floor().Mul(step)
}

// Format renders d rounded to the nearest 0.05 with exactly two decimals.
func Format(d decimal.Decimal) string {
	return Round(d).StringFixed(2)
}

// Normalize validates raw cell input and returns its display form.
// Blank input means "no entry" and normalizes to "".
func Normalize(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return "", ErrNotNumeric
	}
	if d.IsNegative() {
		return "", ErrNegativeHours
	}
	if d.GreaterThan(maxHours) {
		return "", ErrTooManyHours
	}
	return Format(d), nil
}

// parseValue reads a rendered cell or total. Empty and unparseable values
// report ok=false and contribute nothing to totals.
func parseValue(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// sum adds the parseable values and renders the rounded result.
func sum(values []string) string {
	total := decimal.Zero
	for _, v := range values {
		if d, ok := parseValue(v); ok {
			total = total.Add(d)
		}
	}
	return Format(total)
}
