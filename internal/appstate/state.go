// Package appstate is the storefront's client-side state container: the
// signed-in user, cart, favorites and display preferences, advanced only by
// dispatching actions through Reduce.
package appstate

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/example/storefront/internal/pricing"
	"golang.org/x/text/language"
)

var (
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrUnsupportedTheme    = errors.New("unsupported theme")
)

type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	Avatar string `json:"avatar,omitempty"`
}

// CartItem is one cart line. ID is assigned by the store when the line is
// first created and is distinct from ProductID.
type CartItem struct {
	ID            string        `json:"id"`
	ProductID     string        `json:"productId"`
	Name          string        `json:"name"`
	Price         pricing.Money `json:"price"`
	Quantity      int           `json:"quantity"`
	Image         string        `json:"image"`
	Store         string        `json:"store"`
	OriginalPrice pricing.Money `json:"originalPrice,omitempty"`
}

// Line converts the item for pricing.
func (i CartItem) Line() pricing.Line {
	return pricing.Line{Price: i.Price, OriginalPrice: i.OriginalPrice, Quantity: i.Quantity}
}

// NewCartItem is a cart line before the store has given it an ID.
type NewCartItem struct {
	ProductID     string        `json:"productId"`
	Name          string        `json:"name"`
	Price         pricing.Money `json:"price"`
	Quantity      int           `json:"quantity"`
	Image         string        `json:"image"`
	Store         string        `json:"store"`
	OriginalPrice pricing.Money `json:"originalPrice,omitempty"`
}

// WithID returns the line under the given ID
func (n NewCartItem) WithID(id string) CartItem {
	return CartItem{
		ID:            id,
		ProductID:     n.ProductID,
		Name:          n.Name,
		Price:         n.Price,
		Quantity:      n.Quantity,
		Image:         n.Image,
		Store:         n.Store,
		OriginalPrice: n.OriginalPrice,
	}
}

type Language string

const (
	LanguageEnglish   Language = "en"
	LanguageAfrikaans Language = "af"
)

// ParseLanguage maps a BCP 47 tag ("en-ZA", "af", "AF") onto a supported
// display language.
func ParseLanguage(s string) (Language, error) {
	tag, err := language.Parse(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, s)
	}
	base, _ := tag.Base()
	switch Language(base.String()) {
	case LanguageEnglish:
		return LanguageEnglish, nil
	case LanguageAfrikaans:
		return LanguageAfrikaans, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, s)
}

func (l Language) Valid() bool {
	return l == LanguageEnglish || l == LanguageAfrikaans
}

// Tag returns the language tag for locale-aware formatting.
func (l Language) Tag() language.Tag {
	if l == LanguageAfrikaans {
		return language.Afrikaans
	}
	return language.English
}

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

func ParseTheme(s string) (Theme, error) {
	switch t := Theme(strings.ToLower(strings.TrimSpace(s))); t {
	case ThemeLight, ThemeDark:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedTheme, s)
}

func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark
}

// State is the whole cross-screen state. Values are treated as immutable:
// Reduce always builds new slices rather than editing these.
type State struct {
	User      *User      `json:"user"`
	Cart      []CartItem `json:"cart"`
	Favorites []string   `json:"favorites"`
	Language  Language   `json:"language"`
	Theme     Theme      `json:"theme"`
	Loading   bool       `json:"isLoading"`
}

// InitialState is the state at application start.
func InitialState() State {
	return State{
		Cart:      []CartItem{},
		Favorites: []string{},
		Language:  LanguageEnglish,
		Theme:     ThemeLight,
	}
}

// IsAuthenticated is derived from user presence; it cannot drift from it.
func (s State) IsAuthenticated() bool {
	return s.User != nil
}

// Clone returns a deep copy that shares no memory with s.
func (s State) Clone() State {
	c := s
	if s.User != nil {
		u := *s.User
		c.User = &u
	}
	c.Cart = slices.Clone(s.Cart)
	c.Favorites = slices.Clone(s.Favorites)
	if c.Cart == nil {
		c.Cart = []CartItem{}
	}
	if c.Favorites == nil {
		c.Favorites = []string{}
	}
	return c
}

// CartItem returns the line with the given ID.
func (s State) CartItem(id string) (CartItem, bool) {
	for _, item := range s.Cart {
		if item.ID == id {
			return item, true
		}
	}
	return CartItem{}, false
}

// CartItemByProduct returns the line holding the given product.
func (s State) CartItemByProduct(productID string) (CartItem, bool) {
	for _, item := range s.Cart {
		if item.ProductID == productID {
			return item, true
		}
	}
	return CartItem{}, false
}
