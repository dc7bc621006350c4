// Package pricing holds the cart and checkout arithmetic shared by the
// storefront screens. All amounts are integer cents; rounding happens once,
// on the tax line, and nowhere else.
package pricing

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var ErrInvalidRate = errors.New("invalid rate")

const basisPointsPerUnit = 10000

// Rate is a proportion expressed in basis points (1500 = 15%).
type Rate int64

// ParseRate accepts a fraction ("0.15") or a percentage ("15%").
func ParseRate(s string) (Rate, error) {
	raw := strings.TrimSpace(s)
	percent := strings.HasSuffix(raw, "%")
	raw = strings.TrimSuffix(raw, "%")

	whole, frac, _ := strings.Cut(raw, ".")
	if whole == "" {
		whole = "0"
	}
	maxFrac := 4
	if percent {
		maxFrac = 2
	}
	if len(frac) > maxFrac || !digitsOnly(whole) || !digitsOnly(frac) || raw == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRate, s)
	}
	for len(frac) < 4 {
		frac += "0"
	}
	n, err := strconv.ParseInt(whole+frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRate, s)
	}
	// n is the value scaled by 10^4
	if percent {
		return Rate(n / 100), nil
	}
	return Rate(n), nil
}

// Of applies the rate to an amount, rounding half away from zero to a cent.
func (r Rate) Of(m Money) Money {
	product := int64(m) * int64(r)
	if product < 0 {
		return Money(-((-product + basisPointsPerUnit/2) / basisPointsPerUnit))
	}
	return Money((product + basisPointsPerUnit/2) / basisPointsPerUnit)
}

func (r Rate) String() string {
	return fmt.Sprintf("%d.%02d%%", int64(r)/100, int64(r)%100)
}

// Policy carries the configurable delivery and tax parameters.
type Policy struct {
	FreeDeliveryThreshold Money
	DeliveryFee           Money
	TaxRate               Rate
}

// DefaultPolicy returns the storefront's reference values: free delivery
// over R500, otherwise R35, and 15% tax at checkout.
func DefaultPolicy() Policy {
	return Policy{
		FreeDeliveryThreshold: Rand(500, 0),
		DeliveryFee:           Rand(35, 0),
		TaxRate:               1500,
	}
}

// Line is a priced cart or order line.
type Line struct {
	Price         Money
	OriginalPrice Money // zero when the product carries no discount
	Quantity      int
}

// Summary is the set of derived values shown on the cart and checkout screens.
type Summary struct {
	Subtotal    Money `json:"subtotal"`
	Savings     Money `json:"savings"`
	DeliveryFee Money `json:"deliveryFee"`
	Tax         Money `json:"tax"`
	Total       Money `json:"total"`
}

// Subtotal sums price × quantity over all lines.
func Subtotal(lines []Line) Money {
	var total Money
	for _, l := range lines {
		total += l.Price.Mul(l.Quantity)
	}
	return total
}

// Savings sums (originalPrice − price) × quantity over lines that declare
// an original price.
func Savings(lines []Line) Money {
	var total Money
	for _, l := range lines {
		if l.OriginalPrice == 0 {
			continue
		}
		total += (l.OriginalPrice - l.Price).Mul(l.Quantity)
	}
	return total
}

// DeliveryFeeFor is zero once the subtotal strictly exceeds the threshold.
func (p Policy) DeliveryFeeFor(subtotal Money) Money {
	if subtotal > p.FreeDeliveryThreshold {
		return 0
	}
	return p.DeliveryFee
}

// TaxFor applies the policy's tax rate to a subtotal.
func (p Policy) TaxFor(subtotal Money) Money {
	return p.TaxRate.Of(subtotal)
}

// CheckedSubtotal is Subtotal that fails with ErrOverflow instead of wrapping.
func CheckedSubtotal(lines []Line) (Money, error) {
	return sumLines(lines, func(l Line) Money { return l.Price })
}

// CheckedSavings is Savings that fails with ErrOverflow instead of wrapping.
func CheckedSavings(lines []Line) (Money, error) {
	return sumLines(lines, func(l Line) Money {
		if l.OriginalPrice == 0 {
			return 0
		}
		return l.OriginalPrice - l.Price
	})
}

func sumLines(lines []Line, unit func(Line) Money) (Money, error) {
	var total Money
	for _, l := range lines {
		amount, err := unit(l).CheckedMul(l.Quantity)
		if err != nil {
			return 0, err
		}
		if total, err = total.CheckedAdd(amount); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// CartSummary prices lines the way the cart screen does: no tax.
func (p Policy) CartSummary(lines []Line) Summary {
	subtotal := Subtotal(lines)
	fee := p.DeliveryFeeFor(subtotal)
	return Summary{
		Subtotal:    subtotal,
		Savings:     Savings(lines),
		DeliveryFee: fee,
		Total:       subtotal + fee,
	}
}

// CheckoutSummary prices lines for checkout, adding tax on the subtotal.
func (p Policy) CheckoutSummary(lines []Line) Summary {
	s := p.CartSummary(lines)
	s.Tax = p.TaxFor(s.Subtotal)
	s.Total = s.Subtotal + s.DeliveryFee + s.Tax
	return s
}

// CheckedCheckoutSummary is CheckoutSummary for lines that did not come from
// a bounded cart. It fails with ErrOverflow rather than return a wrapped total.
func (p Policy) CheckedCheckoutSummary(lines []Line) (Summary, error) {
	subtotal, err := CheckedSubtotal(lines)
	if err != nil {
		return Summary{}, err
	}
	savings, err := CheckedSavings(lines)
	if err != nil {
		return Summary{}, err
	}
	if rate := magnitude(int64(p.TaxRate)); rate != 0 && magnitude(int64(subtotal)) > (math.MaxInt64-basisPointsPerUnit)/rate {
		return Summary{}, fmt.Errorf("%w: tax on %s", ErrOverflow, subtotal)
	}
	s := Summary{
		Subtotal:    subtotal,
		Savings:     savings,
		DeliveryFee: p.DeliveryFeeFor(subtotal),
		Tax:         p.TaxFor(subtotal),
	}
	if s.Total, err = s.Subtotal.CheckedAdd(s.DeliveryFee); err != nil {
		return Summary{}, err
	}
	if s.Total, err = s.Total.CheckedAdd(s.Tax); err != nil {
		return Summary{}, err
	}
	return s, nil
}

// UnmarshalText lets Rate be read from environment variables
func (r *Rate) UnmarshalText(text []byte) error {
	parsed, err := ParseRate(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
