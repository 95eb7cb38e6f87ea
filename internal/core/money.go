// Package core provides money parsing and handling utilities.
//
// Amounts are carried as signed integer cents everywhere in the ledger;
// decimal text only appears at the presentation boundary.
package core

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// maxAbsCents keeps parsed amounts well inside int64 after arithmetic on sums.
const maxAbsCents = int64(1) << 53

// ParseAmount converts a signed decimal string to Money with half-up rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. When both
// appear, the dot is taken as a thousands separator (1.234,56).
//
// Examples:
//
//	ParseAmount("12.34")   -> 1234
//	ParseAmount("-12,34")  -> -1234
//	ParseAmount("12.345")  -> 1235 (half-up)
//	ParseAmount("1.234,5") -> 123450
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "€"))
	s = strings.TrimPrefix(s, "+")
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	if strings.Count(s, ".") > 1 || strings.ContainsAny(s, "eE") {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	cents := d.Round(2).Shift(2)
	if cents.Abs().GreaterThan(decimal.NewFromInt(maxAbsCents)) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.IntPart()}, nil
}

// ParseDecimalToCents converts a strictly positive decimal string to cents.
// Kept for inputs where only a magnitude makes sense (e.g. credit amounts).
func ParseDecimalToCents(s string) (int64, error) {
	m, err := ParseAmount(s)
	if err != nil {
		return 0, err
	}
	if m.Cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return m.Cents, nil
}

// Decimal returns the amount as an exact decimal in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Euros returns the euro value as a float64 for display purposes.
// Use cents for calculations.
func (m Money) Euros() float64 {
	return m.Decimal().InexactFloat64()
}

// Format renders the amount as "-1.234,56 €": dot thousands, comma
// decimals, sign preserved. ParseAmount reads it back.
func (m Money) Format() string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	units := strconv.FormatInt(cents/100, 10)
	var b strings.Builder
	b.WriteString(sign)
	for i, r := range units {
		if i > 0 && (len(units)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	b.WriteByte(',')
	frac := cents % 100
	if frac < 10 {
		b.WriteByte('0')
	}
	b.WriteString(strconv.FormatInt(frac, 10))
	b.WriteString(" €")
	return b.String()
}

// String implements fmt.Stringer using the plain decimal form ("-12.34").
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }
func (m Money) Neg() Money        { return Money{Cents: -m.Cents} }
func (m Money) IsZero() bool      { return m.Cents == 0 }
func (m Money) IsNegative() bool  { return m.Cents < 0 }
func (m Money) IsPositive() bool  { return m.Cents > 0 }

// Min returns the smaller of two amounts.
func Min(a, b Money) Money {
	if a.Cents < b.Cents {
		return a
	}
	return b
}

// MarshalJSON encodes the amount as integer cents.
func (m Money) MarshalJSON() ([]byte, error) {
	return strconv.AppendInt(nil, m.Cents, 10), nil
}

// UnmarshalJSON decodes integer cents.
func (m *Money) UnmarshalJSON(b []byte) error {
	c, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return ErrInvalidAmount
	}
	m.Cents = c
	return nil
}
