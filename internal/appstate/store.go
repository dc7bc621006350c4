package appstate

import (
	"sync"

	"github.com/example/storefront/internal/pricing"
)

// Listener observes each transition after it has been applied. Listeners
// run synchronously, in dispatch order, and must not dispatch.
type Listener func(action Action, prev, next State)

type Option func(*Store)

// WithIDGenerator overrides the cart line ID source.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Store) { s.ids = g }
}

// WithState starts the store from s instead of InitialState.
func WithState(state State) Option {
	return func(s *Store) { s.state = state.Clone() }
}

// Store holds the current State and applies actions to it one at a time.
// Create one per application and pass it to whatever needs it.
type Store struct {
	dispatchMu sync.Mutex // serializes transitions and listener delivery

	mu        sync.RWMutex
	state     State
	listeners map[int]Listener
	nextSub   int

	ids IDGenerator
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		state:     InitialState(),
		listeners: make(map[int]Listener),
		ids:       UUIDGenerator{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dispatch applies a and returns the resulting state.
func (s *Store) Dispatch(a Action) State {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	prev := s.state
	next := Reduce(prev, a)
	s.state = next
	listeners := s.sortedListeners()
	s.mu.Unlock()

	for _, l := range listeners {
		l(a, prev.Clone(), next.Clone())
	}
	return next.Clone()
}

// State returns a snapshot of the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Subscribe registers l and returns a function that removes it.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = l
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// sortedListeners returns listeners in subscription order. Caller holds mu.
func (s *Store) sortedListeners() []Listener {
	out := make([]Listener, 0, len(s.listeners))
	for id := 0; id < s.nextSub; id++ {
		if l, ok := s.listeners[id]; ok {
			out = append(out, l)
		}
	}
	return out
}

// Helpers

func (s *Store) Login(u User) {
	s.Dispatch(SetUser{User: &u})
}

func (s *Store) Logout() {
	s.Dispatch(Logout{})
}

// AddToCart adds item under a fresh ID and returns the ID of the line that
// now holds the product, which is the existing line's ID after a merge.
func (s *Store) AddToCart(item NewCartItem) string {
	next := s.Dispatch(AddToCart{ID: s.ids.NewID(), Item: item})
	if line, ok := next.CartItemByProduct(item.ProductID); ok {
		return line.ID
	}
	return ""
}

// ReplaceCart installs items as the cart. Lines keep the local ID of the
// line already holding their product and get a fresh ID otherwise, so IDs
// from another source never reach the store.
func (s *Store) ReplaceCart(items []CartItem) {
	current := s.State()
	lines := make([]CartItem, len(items))
	for i, item := range items {
		lines[i] = item
		if local, ok := current.CartItemByProduct(item.ProductID); ok {
			lines[i].ID = local.ID
		} else {
			lines[i].ID = s.ids.NewID()
		}
	}
	s.Dispatch(SetCart{Items: lines})
}

func (s *Store) UpdateCartItemQuantity(id string, quantity int) {
	s.Dispatch(UpdateCartItem{ID: id, Quantity: quantity})
}

func (s *Store) RemoveFromCart(id string) {
	s.Dispatch(RemoveFromCart{ID: id})
}

func (s *Store) ClearCart() {
	s.Dispatch(ClearCart{})
}

func (s *Store) ToggleFavorite(productID string) {
	s.Dispatch(ToggleFavorite{ProductID: productID})
}

func (s *Store) SetLanguage(l Language) {
	s.Dispatch(SetLanguage{Language: l})
}

func (s *Store) SetTheme(t Theme) {
	s.Dispatch(SetTheme{Theme: t})
}

func (s *Store) SetLoading(loading bool) {
	s.Dispatch(SetLoading{Loading: loading})
}

// Derived queries

func (s *Store) IsFavorite(productID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return IsFavorite(s.state, productID)
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.IsAuthenticated()
}

func (s *Store) CartTotal() pricing.Money {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CartTotal(s.state)
}

func (s *Store) CartItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CartItemCount(s.state)
}

// CartSummary prices the current cart under policy, without tax.
func (s *Store) CartSummary(policy pricing.Policy) pricing.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return policy.CartSummary(CartLines(s.state))
}
