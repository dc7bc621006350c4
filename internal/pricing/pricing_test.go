package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCart() []Line {
	return []Line{
		{Price: MustParseMoney("25.99"), OriginalPrice: MustParseMoney("29.99"), Quantity: 2},
		{Price: MustParseMoney("899.99"), Quantity: 1},
	}
}

// ============================================
// Component Tests
// ============================================

func TestSubtotal(t *testing.T) {
	assert.Equal(t, MustParseMoney("951.97"), Subtotal(sampleCart()))
	assert.Equal(t, Money(0), Subtotal(nil))
}

func TestSavings(t *testing.T) {
	assert.Equal(t, MustParseMoney("8.00"), Savings(sampleCart()))
	assert.Equal(t, Money(0), Savings([]Line{{Price: Cents(100), Quantity: 3}}))
}

func TestPolicy_DeliveryFeeFor(t *testing.T) {
	policy := DefaultPolicy()

	tests := []struct {
		name     string
		subtotal Money
		expected Money
	}{
		{"empty cart", 0, Rand(35, 0)},
		{"below threshold", MustParseMoney("499.99"), Rand(35, 0)},
		{"exactly threshold", Rand(500, 0), Rand(35, 0)},
		{"just above threshold", MustParseMoney("500.01"), 0},
		{"well above threshold", MustParseMoney("951.97"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, policy.DeliveryFeeFor(tt.subtotal))
		})
	}
}

func TestPolicy_Parameterized(t *testing.T) {
	policy := Policy{
		FreeDeliveryThreshold: Rand(1000, 0),
		DeliveryFee:           Rand(50, 0),
		TaxRate:               0,
	}

	s := policy.CheckoutSummary(sampleCart())

	assert.Equal(t, Rand(50, 0), s.DeliveryFee)
	assert.Equal(t, Money(0), s.Tax)
	assert.Equal(t, MustParseMoney("1001.97"), s.Total)
}

// ============================================
// Summary Tests
// ============================================

func TestCartSummary_SampleCart(t *testing.T) {
	s := DefaultPolicy().CartSummary(sampleCart())

	assert.Equal(t, MustParseMoney("951.97"), s.Subtotal)
	assert.Equal(t, MustParseMoney("8.00"), s.Savings)
	assert.Equal(t, Money(0), s.DeliveryFee)
	assert.Equal(t, Money(0), s.Tax)
	assert.Equal(t, MustParseMoney("951.97"), s.Total)
}

func TestCheckoutSummary_SampleCart(t *testing.T) {
	s := DefaultPolicy().CheckoutSummary(sampleCart())

	// 951.97 × 0.15 = 142.7955, rounded once to 142.80
	assert.Equal(t, MustParseMoney("142.80"), s.Tax)
	assert.Equal(t, MustParseMoney("1094.77"), s.Total)
}

func TestCheckoutSummary_EmptyCart(t *testing.T) {
	s := DefaultPolicy().CheckoutSummary(nil)

	assert.Equal(t, Money(0), s.Subtotal)
	assert.Equal(t, Money(0), s.Savings)
	assert.Equal(t, Rand(35, 0), s.DeliveryFee)
	assert.Equal(t, Money(0), s.Tax)
	assert.Equal(t, Rand(35, 0), s.Total)
}

func TestCartSummary_EmptyCart(t *testing.T) {
	s := DefaultPolicy().CartSummary([]Line{})

	assert.Equal(t, Rand(35, 0), s.Total)
}

func TestCheckedCheckoutSummary(t *testing.T) {
	policy := DefaultPolicy()

	s, err := policy.CheckedCheckoutSummary(sampleCart())
	require.NoError(t, err)
	assert.Equal(t, policy.CheckoutSummary(sampleCart()), s)

	tests := []struct {
		name  string
		lines []Line
	}{
		{"quantity wraps subtotal", []Line{{Price: MustParseMoney("25.99"), Quantity: 3548816481282407}}},
		{"lines sum past range", []Line{
			{Price: Money(math.MaxInt64 / 2), Quantity: 1},
			{Price: Money(math.MaxInt64 / 2), Quantity: 1},
			{Price: Cents(100), Quantity: 1},
		}},
		{"savings wrap", []Line{{Price: Cents(100), OriginalPrice: Money(math.MaxInt64), Quantity: 2}}},
		{"tax wraps", []Line{{Price: Money(math.MaxInt64 / 100), Quantity: 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := policy.CheckedCheckoutSummary(tt.lines)
			assert.ErrorIs(t, err, ErrOverflow)
		})
	}
}

// ============================================
// Rate Tests
// ============================================

func TestParseRate(t *testing.T) {
	tests := []struct {
		input    string
		expected Rate
	}{
		{"0.15", 1500},
		{"15%", 1500},
		{"12.5%", 1250},
		{"0", 0},
		{".075", 750},
		{"1", 10000},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			r, err := ParseRate(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, r)
		})
	}

	for _, input := range []string{"", "abc", "0.123456", "-0.1", "12.345%", "12.3456%"} {
		_, err := ParseRate(input)
		assert.ErrorIs(t, err, ErrInvalidRate, input)
	}
}

func TestRate_Of_RoundsHalfUp(t *testing.T) {
	rate := Rate(1500)

	assert.Equal(t, Cents(15), rate.Of(Cents(100)))
	// 0.10 × 0.15 = 0.015 → 0.02
	assert.Equal(t, Cents(2), rate.Of(Cents(10)))
	// 0.09 × 0.15 = 0.0135 → 0.01
	assert.Equal(t, Cents(1), rate.Of(Cents(9)))
	assert.Equal(t, Cents(-2), rate.Of(Cents(-10)))
}

func TestRate_String(t *testing.T) {
	assert.Equal(t, "15.00%", Rate(1500).String())
}
