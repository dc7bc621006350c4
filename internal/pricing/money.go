package pricing

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"math/bits"
	"strconv"
	"strings"
)

// CurrencySymbol is the display prefix for Rand amounts
const CurrencySymbol = "R"

var (
	ErrInvalidMoney = errors.New("invalid money amount")
	ErrOverflow     = errors.New("amount out of range")
)

// MaxQuantity bounds the units a single cart or order line may hold
const MaxQuantity = 999

// Money is an amount in minor currency units (cents).
type Money int64

// Cents returns a Money value for the given number of minor units
func Cents(c int64) Money {
	return Money(c)
}

// Rand returns a Money value for whole Rand plus cents
func Rand(whole, cents int64) Money {
	return Money(whole*100 + cents)
}

// ParseMoney parses decimal text such as "25.99", "R25.99" or "-3.5".
// At most two fractional digits are accepted.
func ParseMoney(s string) (Money, error) {
	raw := strings.TrimSpace(s)
	raw = strings.TrimPrefix(raw, CurrencySymbol)
	if raw == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMoney, s)
	}

	negative := false
	switch raw[0] {
	case '-':
		negative = true
		raw = raw[1:]
	case '+':
		raw = raw[1:]
	}
	raw = strings.TrimPrefix(raw, CurrencySymbol)

	whole, frac, hasFrac := strings.Cut(raw, ".")
	if whole == "" && (!hasFrac || frac == "") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMoney, s)
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("%w: %q has more than two decimals", ErrInvalidMoney, s)
	}
	if !digitsOnly(whole) || !digitsOnly(frac) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMoney, s)
	}

	var units int64
	if whole != "" {
		w, err := strconv.ParseInt(whole, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidMoney, s)
		}
		units = w * 100
	}
	if frac != "" {
		for len(frac) < 2 {
			frac += "0"
		}
		f, _ := strconv.ParseInt(frac, 10, 64)
		units += f
	}

	if negative {
		units = -units
	}
	return Money(units), nil
}

// MustParseMoney is ParseMoney for literals known to be valid
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Cents returns the amount in minor units
func (m Money) Cents() int64 {
	return int64(m)
}

// Mul multiplies the amount by a quantity. Use CheckedMul on untrusted input.
func (m Money) Mul(quantity int) Money {
	return m * Money(quantity)
}

// CheckedMul is Mul that fails with ErrOverflow instead of wrapping.
func (m Money) CheckedMul(quantity int) (Money, error) {
	hi, lo := bits.Mul64(magnitude(int64(m)), magnitude(int64(quantity)))
	if hi != 0 || lo > math.MaxInt64 {
		return 0, fmt.Errorf("%w: %s x %d", ErrOverflow, m, quantity)
	}
	if (m < 0) != (quantity < 0) {
		return -Money(lo), nil
	}
	return Money(lo), nil
}

// CheckedAdd is m + o that fails with ErrOverflow instead of wrapping.
func (m Money) CheckedAdd(o Money) (Money, error) {
	sum := m + o
	if (o > 0 && sum < m) || (o < 0 && sum > m) {
		return 0, fmt.Errorf("%w: %s + %s", ErrOverflow, m, o)
	}
	return sum, nil
}

func magnitude(n int64) uint64 {
	if n < 0 {
		return uint64(-n)
	}
	return uint64(n)
}

func (m Money) IsZero() bool {
	return m == 0
}

// Decimal renders the amount with exactly two fractional digits, without symbol
func (m Money) Decimal() string {
	units := int64(m)
	sign := ""
	if units < 0 {
		sign = "-"
		units = -units
	}
	return fmt.Sprintf("%s%d.%02d", sign, units/100, units%100)
}

// String renders the amount for display, e.g. "R25.99" or "-R8.00"
func (m Money) String() string {
	if m < 0 {
		return "-" + CurrencySymbol + (-m).Decimal()
	}
	return CurrencySymbol + m.Decimal()
}

// MarshalJSON encodes the amount as a JSON number with two decimals
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal()), nil
}

// UnmarshalJSON accepts a JSON number or a decimal string. The text is
// parsed directly so no binary floating point is involved.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	text := string(data)
	if len(data) >= 2 && data[0] == '"' {
		unquoted, err := strconv.Unquote(text)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidMoney, text)
		}
		text = unquoted
	}
	parsed, err := ParseMoney(text)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// UnmarshalText lets Money be read from environment variables and flags
func (m *Money) UnmarshalText(text []byte) error {
	parsed, err := ParseMoney(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
