package appstate

import (
	"slices"

	"github.com/example/storefront/internal/pricing"
)

// CartTotal sums price × quantity over the cart.
func CartTotal(s State) pricing.Money {
	return pricing.Subtotal(CartLines(s))
}

// CartItemCount sums quantities, not lines.
func CartItemCount(s State) int {
	n := 0
	for _, item := range s.Cart {
		n += item.Quantity
	}
	return n
}

func IsFavorite(s State, productID string) bool {
	return slices.Contains(s.Favorites, productID)
}

// CartLines converts the cart for the pricing functions.
func CartLines(s State) []pricing.Line {
	lines := make([]pricing.Line, 0, len(s.Cart))
	for _, item := range s.Cart {
		lines = append(lines, item.Line())
	}
	return lines
}
