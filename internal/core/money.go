// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings
// and converting between cents and reais representations.
package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

type Money struct {
	Cents int64
}

// MaxCents bounds any single amount or advance (R$ 1 billion). Summing
// int64 cents cannot overflow below roughly 92 million such values.
const MaxCents int64 = 100_000_000_000

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	if m.Cents > MaxCents {
		return ErrAmountTooLarge
	}
	return nil
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

func (m Money) IsZero() bool {
	return m.Cents == 0
}

// ParseDecimalToCents converts a decimal string to cents with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. The result is always positive cents.
// Returns an error for invalid formats, negative values, or zero amounts.
//
// Examples:
//
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("12,34") -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil (rounds up)
//	ParseDecimalToCents("12.344") -> 1234, nil (rounds down)
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimPrefix(s, "R$"))
	if s == "" {
		return 0, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		// Only positive values allowed
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	// Prevent overflow when multiplying by 100
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv >= maxSafeInt64 {
		return 0, ErrInvalidAmount
	}
	// Take first two fractional digits; then half-up rounding on third
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	cents := iv*100 + fracCents
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	if cents > MaxCents {
		return 0, ErrAmountTooLarge
	}
	return cents, nil
}

// ParseMoney is ParseDecimalToCents returning Money.
func ParseMoney(s string) (Money, error) {
	c, err := ParseDecimalToCents(s)
	if err != nil {
		return Money{}, err
	}
	return Money{Cents: c}, nil
}

var maxCents = decimal.NewFromInt(MaxCents)

// MoneyFromDecimal rounds d half-up to whole cents. Values beyond MaxCents
// either way are rejected rather than truncated.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	c := d.Shift(2).Round(0)
	if c.Abs().GreaterThan(maxCents) {
		return Money{}, fmt.Errorf("%w: %s", ErrAmountTooLarge, d.String())
	}
	return Money{Cents: c.IntPart()}, nil
}

// Decimal returns the amount as an exact decimal in reais.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Reais returns the value as a float64 for display purposes (spreadsheet cells).
// Use cents for calculations to avoid floating-point precision issues.
func (m Money) Reais() float64 {
	f, _ := m.Decimal().Float64()
	return f
}

// Plain formats the amount with two decimals and a comma separator ("1234,50").
func (m Money) Plain() string {
	neg := m.Cents < 0
	c := m.Cents
	if neg {
		c = -c
	}
	s := strconv.FormatInt(c/100, 10) + "," + fmt.Sprintf("%02d", c%100)
	if neg {
		return "-" + s
	}
	return s
}

// BRL formats the amount as "R$ 1234,50"; negative values read "R$ -10,50".
func (m Money) BRL() string {
	return "R$ " + m.Plain()
}

func (m Money) String() string {
	return m.BRL()
}

// MarshalJSON writes the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal().StringFixed(2)), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (m *Money) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*m = Money{}
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		raw = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	parsed, err := MoneyFromDecimal(d)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
