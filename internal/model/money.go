package model

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Money is an amount in minor units (cents). All balances, bets and payouts
// use two fraction digits.
type Money int64

// ErrInvalidAmount is returned when a string cannot be parsed as Money
var ErrInvalidAmount = errors.New("invalid amount")

// ParseMoney parses a decimal string such as "10", "10.5" or "10.55".
// Extra fraction digits are rounded half away from zero.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return FromFloat(f), nil
}

// FromFloat converts a decimal value to Money, rounding to the nearest cent
func FromFloat(f float64) Money {
	return Money(math.Round(f * 100))
}

// Float returns the amount as a decimal value
func (m Money) Float() float64 {
	return float64(m) / 100
}

// Mul scales the amount by a multiplier, rounding to the nearest cent
func (m Money) Mul(multiplier float64) Money {
	return Money(math.Round(float64(m) * multiplier))
}

// Min returns the smaller of two amounts
func (m Money) Min(other Money) Money {
	if other < m {
		return other
	}
	return m
}

// String formats the amount with exactly two fraction digits
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON encodes the amount as a JSON number with two decimals
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts both JSON numbers and quoted decimal strings
func (m *Money) UnmarshalJSON(data []byte) error {
	parsed, err := ParseMoney(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// UnmarshalText allows Money to be loaded from configuration
func (m *Money) UnmarshalText(text []byte) error {
	parsed, err := ParseMoney(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
