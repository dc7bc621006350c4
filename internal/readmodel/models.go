package readmodel

import (
	"time"

	"github.com/example/storefront/internal/appstate"
	"github.com/example/storefront/internal/pricing"
)

// Product is a catalog entry as served to the app
type Product struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Price         pricing.Money `json:"price"`
	OriginalPrice pricing.Money `json:"originalPrice,omitempty"`
	Image         string        `json:"image"`
	Category      string        `json:"category"`
	Rating        float64       `json:"rating"`
	Store         string        `json:"store"`
	InStock       bool          `json:"inStock"`
	Description   string        `json:"description,omitempty"`
}

// Discounted reports whether the product is on sale
func (p Product) Discounted() bool {
	return p.OriginalPrice > p.Price
}

// CartItem builds a cart line for quantity units of the product
func (p Product) CartItem(quantity int) appstate.NewCartItem {
	item := appstate.NewCartItem{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Quantity:  quantity,
		Image:     p.Image,
		Store:     p.Store,
	}
	if p.Discounted() {
		item.OriginalPrice = p.OriginalPrice
	}
	return item
}

// Store is a partner store
type Store struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Image        string  `json:"image"`
	Rating       float64 `json:"rating"`
	DeliveryTime string  `json:"deliveryTime"`
	Address      string  `json:"address,omitempty"`
}

// Category is a top-level product category
type Category struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Icon          string   `json:"icon"`
	Color         string   `json:"color"`
	ItemCount     int      `json:"itemCount"`
	Subcategories []string `json:"subcategories,omitempty"`
}

// ProductPage is one page of a product listing
type ProductPage struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
}

// SearchResult groups everything matching a search query
type SearchResult struct {
	Products   []Product  `json:"products"`
	Stores     []Store    `json:"stores"`
	Categories []Category `json:"categories"`
}

// CartReadModel is a user's server-side cart. Line IDs equal product IDs.
type CartReadModel struct {
	UserID    string              `json:"userId"`
	Items     []appstate.CartItem `json:"items"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

// FavoritesReadModel holds a user's favorite product IDs
type FavoritesReadModel struct {
	UserID     string    `json:"userId"`
	ProductIDs []string  `json:"productIds"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// UserReadModel is the read model for users
type UserReadModel struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"` // persisted only; responses use Profile
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	Avatar       string    `json:"avatar,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Profile is the public view of the user
func (u *UserReadModel) Profile() appstate.User {
	return appstate.User{
		ID:     u.ID,
		Name:   u.Name,
		Email:  u.Email,
		Phone:  u.Phone,
		Avatar: u.Avatar,
	}
}

// SessionReadModel is an issued token, revoked on logout
type SessionReadModel struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
	UserAgent string    `json:"userAgent"`
}

// Address is a saved delivery address
type Address struct {
	ID        string `json:"id"`
	Address   string `json:"address"`
	IsDefault bool   `json:"isDefault"`
}

// AddressBook holds a user's saved delivery addresses. At most one is the
// default.
type AddressBook struct {
	UserID    string    `json:"userId"`
	Addresses []Address `json:"addresses"`
	UpdatedAt time.Time `json:"updatedAt"`
}
