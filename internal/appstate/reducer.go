package appstate

import (
	"slices"

	"github.com/example/storefront/internal/pricing"
)

// Reduce returns the state that results from applying a to s. It never
// modifies s, never fails, and has no side effects.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case SetUser:
		next := s
		if a.User != nil {
			u := *a.User
			next.User = &u
		} else {
			next.User = nil
		}
		return next

	case AddToCart:
		return addToCart(s, a.ID, a.Item)

	case UpdateCartItem:
		if a.Quantity <= 0 {
			return removeFromCart(s, a.ID)
		}
		idx := slices.IndexFunc(s.Cart, func(item CartItem) bool { return item.ID == a.ID })
		if idx < 0 || a.Quantity > pricing.MaxQuantity {
			return s
		}
		next := s
		next.Cart = slices.Clone(s.Cart)
		next.Cart[idx].Quantity = a.Quantity
		return next

	case RemoveFromCart:
		return removeFromCart(s, a.ID)

	case ClearCart:
		next := s
		next.Cart = []CartItem{}
		return next

	case SetCart:
		next := s
		next.Cart = []CartItem{}
		for _, item := range a.Items {
			next = mergeLine(next, item)
		}
		return next

	case ToggleFavorite:
		if slices.Contains(s.Favorites, a.ProductID) {
			return removeFavorite(s, a.ProductID)
		}
		return addFavorite(s, a.ProductID)

	case AddFavorite:
		return addFavorite(s, a.ProductID)

	case RemoveFavorite:
		return removeFavorite(s, a.ProductID)

	case SetFavorites:
		next := s
		next.Favorites = make([]string, 0, len(a.ProductIDs))
		for _, id := range a.ProductIDs {
			if id != "" && !slices.Contains(next.Favorites, id) {
				next.Favorites = append(next.Favorites, id)
			}
		}
		return next

	case SetLanguage:
		if !a.Language.Valid() {
			return s
		}
		next := s
		next.Language = a.Language
		return next

	case SetTheme:
		if !a.Theme.Valid() {
			return s
		}
		next := s
		next.Theme = a.Theme
		return next

	case SetLoading:
		next := s
		next.Loading = a.Loading
		return next

	case Logout:
		next := s
		next.User = nil
		next.Cart = []CartItem{}
		next.Favorites = []string{}
		return next
	}
	return s
}

func addToCart(s State, id string, item NewCartItem) State {
	if item.ProductID == "" || item.Quantity <= 0 {
		return s
	}
	return mergeLine(s, item.WithID(id))
}

// mergeLine appends line, or folds its quantity into the line that already
// holds the same product. A new line whose ID is taken by another product's
// line is dropped, as is any merge that would pass MaxQuantity.
func mergeLine(s State, line CartItem) State {
	if line.ProductID == "" || line.Quantity <= 0 || line.Quantity > pricing.MaxQuantity {
		return s
	}
	idx := slices.IndexFunc(s.Cart, func(item CartItem) bool { return item.ProductID == line.ProductID })
	if idx >= 0 {
		if s.Cart[idx].Quantity+line.Quantity > pricing.MaxQuantity {
			return s
		}
		next := s
		next.Cart = slices.Clone(s.Cart)
		next.Cart[idx].Quantity += line.Quantity
		return next
	}
	if slices.ContainsFunc(s.Cart, func(item CartItem) bool { return item.ID == line.ID }) {
		return s
	}
	next := s
	next.Cart = append(slices.Clone(s.Cart), line)
	return next
}

func removeFromCart(s State, id string) State {
	if !slices.ContainsFunc(s.Cart, func(item CartItem) bool { return item.ID == id }) {
		return s
	}
	next := s
	next.Cart = slices.DeleteFunc(slices.Clone(s.Cart), func(item CartItem) bool { return item.ID == id })
	return next
}

func addFavorite(s State, productID string) State {
	if productID == "" || slices.Contains(s.Favorites, productID) {
		return s
	}
	next := s
	next.Favorites = append(slices.Clone(s.Favorites), productID)
	return next
}

func removeFavorite(s State, productID string) State {
	if !slices.Contains(s.Favorites, productID) {
		return s
	}
	next := s
	next.Favorites = slices.DeleteFunc(slices.Clone(s.Favorites), func(id string) bool { return id == productID })
	return next
}
