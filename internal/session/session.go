// Package session connects the app state store to the storefront API. Each
// operation awaits the remote call and only then applies the matching
// action, so a failed call leaves the store as it was.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/example/storefront/internal/appstate"
	"github.com/example/storefront/internal/client"
	"github.com/example/storefront/internal/order"
	"github.com/example/storefront/internal/pricing"
	"github.com/example/storefront/internal/readmodel"
)

var (
	ErrNotSignedIn     = errors.New("not signed in")
	ErrEmptyCart       = errors.New("cart is empty")
	ErrInvalidQuantity = errors.New("quantity out of range")
	ErrUnknownLine     = errors.New("cart line not found")
)

// API is the part of the REST client the session uses
type API interface {
	Login(ctx context.Context, email, password string) (*client.AuthResult, error)
	Register(ctx context.Context, req client.RegisterRequest) (*client.AuthResult, error)
	Logout(ctx context.Context) error
	GetCart(ctx context.Context, userID string) ([]appstate.CartItem, error)
	AddToCart(ctx context.Context, userID, productID string, quantity int) (*appstate.CartItem, error)
	UpdateCartItem(ctx context.Context, userID, itemID string, quantity int) (*appstate.CartItem, error)
	RemoveFromCart(ctx context.Context, userID, itemID string) error
	GetFavorites(ctx context.Context, userID string) ([]readmodel.Product, error)
	AddToFavorites(ctx context.Context, userID, productID string) error
	RemoveFromFavorites(ctx context.Context, userID, productID string) error
	CreateOrder(ctx context.Context, req client.CreateOrderRequest) (*order.Order, error)
}

var _ API = (*client.Client)(nil)

type Session struct {
	api    API
	store  *appstate.Store
	policy pricing.Policy

	mu       sync.Mutex
	inFlight int
}

func New(api API, store *appstate.Store, policy pricing.Policy) *Session {
	return &Session{api: api, store: store, policy: policy}
}

func (s *Session) Store() *appstate.Store {
	return s.store
}

// CheckoutRequest is what the checkout screen collects
type CheckoutRequest struct {
	DeliveryAddress     string
	PaymentMethod       string
	SpecialInstructions string
}

// call keeps the loading flag raised while fn runs. Overlapping calls share
// the flag; it drops when the last one returns.
func (s *Session) call(op string, fn func() error) error {
	s.begin()
	defer s.end()

	if err := fn(); err != nil {
		log.Printf("[Session] %s failed: %v", op, err)
		return err
	}
	return nil
}

func (s *Session) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight++
	if s.inFlight == 1 {
		s.store.SetLoading(true)
	}
}

func (s *Session) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight--
	if s.inFlight == 0 {
		s.store.SetLoading(false)
	}
}

func (s *Session) userID() (string, bool) {
	u := s.store.State().User
	if u == nil {
		return "", false
	}
	return u.ID, true
}

// ============================================
// Auth
// ============================================

func (s *Session) Login(ctx context.Context, email, password string) (appstate.User, error) {
	var result *client.AuthResult
	err := s.call("login", func() (err error) {
		result, err = s.api.Login(ctx, email, password)
		return err
	})
	if err != nil {
		return appstate.User{}, err
	}
	s.store.Login(result.User)
	log.Printf("[Session] Signed in as %s", result.User.ID)
	return result.User, nil
}

func (s *Session) Register(ctx context.Context, req client.RegisterRequest) (appstate.User, error) {
	var result *client.AuthResult
	err := s.call("register", func() (err error) {
		result, err = s.api.Register(ctx, req)
		return err
	})
	if err != nil {
		return appstate.User{}, err
	}
	s.store.Login(result.User)
	log.Printf("[Session] Registered %s", result.User.ID)
	return result.User, nil
}

// Logout ends the server session and clears user, cart and favorites. The
// local state is cleared even when the server call fails, since the token
// is gone either way; the error is still returned.
func (s *Session) Logout(ctx context.Context) error {
	if _, ok := s.userID(); !ok {
		s.store.Logout()
		return nil
	}
	err := s.call("logout", func() error {
		return s.api.Logout(ctx)
	})
	s.store.Logout()
	return err
}

// ============================================
// Cart
// ============================================

// AddToCart adds quantity units of product and returns the ID of the line
// holding it. Signed-out users only change the local cart.
func (s *Session) AddToCart(ctx context.Context, product readmodel.Product, quantity int) (string, error) {
	if quantity <= 0 || quantity > pricing.MaxQuantity {
		return "", fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}
	userID, ok := s.userID()
	if !ok {
		return s.store.AddToCart(product.CartItem(quantity)), nil
	}

	var line *appstate.CartItem
	err := s.call("add to cart", func() (err error) {
		line, err = s.api.AddToCart(ctx, userID, product.ID, quantity)
		return err
	})
	if err != nil {
		return "", err
	}
	return s.applyServerLine(*line), nil
}

// applyServerLine makes the local cart agree with a line the server
// returned. The server's quantity is already the merged total.
func (s *Session) applyServerLine(line appstate.CartItem) string {
	if local, ok := s.store.State().CartItemByProduct(line.ProductID); ok {
		s.store.UpdateCartItemQuantity(local.ID, line.Quantity)
		return local.ID
	}
	return s.store.AddToCart(newCartItem(line))
}

// UpdateQuantity sets a line's quantity; zero or less removes the line.
func (s *Session) UpdateQuantity(ctx context.Context, lineID string, quantity int) error {
	line, ok := s.store.State().CartItem(lineID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownLine, lineID)
	}
	if quantity <= 0 {
		return s.RemoveFromCart(ctx, lineID)
	}
	if quantity > pricing.MaxQuantity {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}
	userID, ok := s.userID()
	if !ok {
		s.store.UpdateCartItemQuantity(lineID, quantity)
		return nil
	}

	var updated *appstate.CartItem
	err := s.call("update quantity", func() (err error) {
		// remote lines are addressed by product
		updated, err = s.api.UpdateCartItem(ctx, userID, line.ProductID, quantity)
		return err
	})
	if err != nil {
		return err
	}
	s.store.UpdateCartItemQuantity(lineID, updated.Quantity)
	return nil
}

// RemoveFromCart drops a line. Removing a line that is not there succeeds.
func (s *Session) RemoveFromCart(ctx context.Context, lineID string) error {
	line, ok := s.store.State().CartItem(lineID)
	if !ok {
		return nil
	}
	userID, ok := s.userID()
	if !ok {
		s.store.RemoveFromCart(lineID)
		return nil
	}

	err := s.call("remove from cart", func() error {
		return s.api.RemoveFromCart(ctx, userID, line.ProductID)
	})
	if err != nil {
		return err
	}
	s.store.RemoveFromCart(lineID)
	return nil
}

// SyncCart replaces the local cart with the server's copy
func (s *Session) SyncCart(ctx context.Context) error {
	userID, ok := s.userID()
	if !ok {
		return ErrNotSignedIn
	}
	var items []appstate.CartItem
	err := s.call("sync cart", func() (err error) {
		items, err = s.api.GetCart(ctx, userID)
		return err
	})
	if err != nil {
		return err
	}
	s.store.ReplaceCart(items)
	return nil
}

// ============================================
// Favorites
// ============================================

// ToggleFavorite flips the product's membership and reports whether it is
// now a favorite.
func (s *Session) ToggleFavorite(ctx context.Context, productID string) (bool, error) {
	favorite := s.store.IsFavorite(productID)
	userID, ok := s.userID()
	if !ok {
		s.store.ToggleFavorite(productID)
		return !favorite, nil
	}

	err := s.call("toggle favorite", func() error {
		if favorite {
			return s.api.RemoveFromFavorites(ctx, userID, productID)
		}
		return s.api.AddToFavorites(ctx, userID, productID)
	})
	if err != nil {
		return favorite, err
	}
	if favorite {
		s.store.Dispatch(appstate.RemoveFavorite{ProductID: productID})
	} else {
		s.store.Dispatch(appstate.AddFavorite{ProductID: productID})
	}
	return !favorite, nil
}

// SyncFavorites replaces the local favorites with the server's
func (s *Session) SyncFavorites(ctx context.Context) error {
	userID, ok := s.userID()
	if !ok {
		return ErrNotSignedIn
	}
	var products []readmodel.Product
	err := s.call("sync favorites", func() (err error) {
		products, err = s.api.GetFavorites(ctx, userID)
		return err
	})
	if err != nil {
		return err
	}
	ids := make([]string, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	s.store.Dispatch(appstate.SetFavorites{ProductIDs: ids})
	return nil
}

// ============================================
// Checkout
// ============================================

// Quote prices the current cart as the checkout screen shows it
func (s *Session) Quote() pricing.Summary {
	return s.policy.CheckoutSummary(appstate.CartLines(s.store.State()))
}

// Checkout places an order for the cart and empties it. The returned summary
// is what the server charged.
func (s *Session) Checkout(ctx context.Context, req CheckoutRequest) (*order.Order, pricing.Summary, error) {
	userID, ok := s.userID()
	if !ok {
		return nil, pricing.Summary{}, ErrNotSignedIn
	}
	state := s.store.State()
	if len(state.Cart) == 0 {
		return nil, pricing.Summary{}, ErrEmptyCart
	}
	quoted := s.policy.CheckoutSummary(appstate.CartLines(state))

	var placed *order.Order
	err := s.call("checkout", func() (err error) {
		placed, err = s.api.CreateOrder(ctx, client.CreateOrderRequest{
			UserID:              userID,
			Items:               state.Cart,
			DeliveryAddress:     req.DeliveryAddress,
			PaymentMethod:       req.PaymentMethod,
			SpecialInstructions: req.SpecialInstructions,
		})
		return err
	})
	if err != nil {
		return nil, pricing.Summary{}, err
	}

	charged := placed.Summary()
	if charged.Total != quoted.Total {
		log.Printf("[Session] Order %s total %s differs from quote %s", placed.ID, charged.Total, quoted.Total)
	}
	s.store.ClearCart()
	log.Printf("[Session] Placed order %s: %s", placed.ID, charged.Total)
	return placed, charged, nil
}

func newCartItem(line appstate.CartItem) appstate.NewCartItem {
	return appstate.NewCartItem{
		ProductID:     line.ProductID,
		Name:          line.Name,
		Price:         line.Price,
		Quantity:      line.Quantity,
		Image:         line.Image,
		Store:         line.Store,
		OriginalPrice: line.OriginalPrice,
	}
}
