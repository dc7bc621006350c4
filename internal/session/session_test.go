package session

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/example/storefront/internal/appstate"
	"github.com/example/storefront/internal/catalog"
	"github.com/example/storefront/internal/client"
	"github.com/example/storefront/internal/order"
	"github.com/example/storefront/internal/pricing"
	"github.com/example/storefront/internal/readmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errUnavailable = errors.New("service unavailable")
	testTime       = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

// mockAPI is a hand-written API double keeping a server-side cart keyed by
// product, the way the backend does.
type mockAPI struct {
	catalog   *catalog.Catalog
	user      appstate.User
	cart      []appstate.CartItem
	favorites []string
	orders    []client.CreateOrderRequest

	calls []string
	// fail makes the named call return errUnavailable
	fail map[string]bool
	// onCall runs at the start of every call
	onCall func(name string)
}

func newMockAPI() *mockAPI {
	return &mockAPI{
		catalog: catalog.Default(),
		user:    appstate.User{ID: "user-1", Name: "Thandi", Email: "thandi@example.com"},
		fail:    map[string]bool{},
	}
}

func (m *mockAPI) record(name string) error {
	m.calls = append(m.calls, name)
	if m.onCall != nil {
		m.onCall(name)
	}
	if m.fail[name] {
		return errUnavailable
	}
	return nil
}

func (m *mockAPI) Login(ctx context.Context, email, password string) (*client.AuthResult, error) {
	if err := m.record("Login"); err != nil {
		return nil, err
	}
	return &client.AuthResult{User: m.user, Token: "token"}, nil
}

func (m *mockAPI) Register(ctx context.Context, req client.RegisterRequest) (*client.AuthResult, error) {
	if err := m.record("Register"); err != nil {
		return nil, err
	}
	u := m.user
	u.Name, u.Email = req.Name, req.Email
	return &client.AuthResult{User: u, Token: "token"}, nil
}

func (m *mockAPI) Logout(ctx context.Context) error {
	return m.record("Logout")
}

func (m *mockAPI) GetCart(ctx context.Context, userID string) ([]appstate.CartItem, error) {
	if err := m.record("GetCart"); err != nil {
		return nil, err
	}
	return slices.Clone(m.cart), nil
}

func (m *mockAPI) AddToCart(ctx context.Context, userID, productID string, quantity int) (*appstate.CartItem, error) {
	if err := m.record("AddToCart"); err != nil {
		return nil, err
	}
	for i := range m.cart {
		if m.cart[i].ProductID == productID {
			m.cart[i].Quantity += quantity
			line := m.cart[i]
			return &line, nil
		}
	}
	product, _ := m.catalog.Product(productID)
	line := product.CartItem(quantity).WithID(productID)
	m.cart = append(m.cart, line)
	return &line, nil
}

func (m *mockAPI) UpdateCartItem(ctx context.Context, userID, itemID string, quantity int) (*appstate.CartItem, error) {
	if err := m.record("UpdateCartItem:" + itemID); err != nil {
		return nil, err
	}
	for i := range m.cart {
		if m.cart[i].ID == itemID {
			m.cart[i].Quantity = quantity
			line := m.cart[i]
			return &line, nil
		}
	}
	return nil, &client.HTTPError{Op: "update cart item", Status: 404, Message: "cart item not found"}
}

func (m *mockAPI) RemoveFromCart(ctx context.Context, userID, itemID string) error {
	if err := m.record("RemoveFromCart:" + itemID); err != nil {
		return err
	}
	m.cart = slices.DeleteFunc(m.cart, func(i appstate.CartItem) bool { return i.ID == itemID })
	return nil
}

func (m *mockAPI) GetFavorites(ctx context.Context, userID string) ([]readmodel.Product, error) {
	if err := m.record("GetFavorites"); err != nil {
		return nil, err
	}
	products := make([]readmodel.Product, 0, len(m.favorites))
	for _, id := range m.favorites {
		p, _ := m.catalog.Product(id)
		products = append(products, p)
	}
	return products, nil
}

func (m *mockAPI) AddToFavorites(ctx context.Context, userID, productID string) error {
	if err := m.record("AddToFavorites"); err != nil {
		return err
	}
	m.favorites = append(m.favorites, productID)
	return nil
}

func (m *mockAPI) RemoveFromFavorites(ctx context.Context, userID, productID string) error {
	if err := m.record("RemoveFromFavorites"); err != nil {
		return err
	}
	m.favorites = slices.DeleteFunc(m.favorites, func(id string) bool { return id == productID })
	return nil
}

func (m *mockAPI) CreateOrder(ctx context.Context, req client.CreateOrderRequest) (*order.Order, error) {
	if err := m.record("CreateOrder"); err != nil {
		return nil, err
	}
	m.orders = append(m.orders, req)
	return order.Place("order-1", order.PlaceRequest{
		UserID:          req.UserID,
		Items:           req.Items,
		DeliveryAddress: req.DeliveryAddress,
		PaymentMethod:   req.PaymentMethod,
	}, pricing.DefaultPolicy(), testTime)
}

func newTestSession(t *testing.T) (*Session, *mockAPI) {
	t.Helper()
	api := newMockAPI()
	store := appstate.NewStore(appstate.WithIDGenerator(appstate.NewSequenceGenerator("line")))
	return New(api, store, pricing.DefaultPolicy()), api
}

func product(t *testing.T, id string) readmodel.Product {
	t.Helper()
	p, ok := catalog.Default().Product(id)
	require.True(t, ok)
	return p
}

func signIn(t *testing.T, s *Session) {
	t.Helper()
	_, err := s.Login(context.Background(), "thandi@example.com", "password123")
	require.NoError(t, err)
}

// ============================================
// Loading Flag Tests
// ============================================

func TestCall_LoadingRaisedAndLowered(t *testing.T) {
	s, api := newTestSession(t)
	var seen []bool
	api.onCall = func(string) { seen = append(seen, s.Store().State().Loading) }

	signIn(t, s)
	api.fail["AddToCart"] = true
	_, err := s.AddToCart(context.Background(), product(t, "1"), 1)

	assert.ErrorIs(t, err, errUnavailable)
	assert.Equal(t, []bool{true, true}, seen)
	assert.False(t, s.Store().State().Loading)
}

func TestCall_OverlappingCallsShareLoading(t *testing.T) {
	s, _ := newTestSession(t)
	var transitions []bool
	s.Store().Subscribe(func(a appstate.Action, prev, next appstate.State) {
		if prev.Loading != next.Loading {
			transitions = append(transitions, next.Loading)
		}
	})

	err := s.call("outer", func() error {
		require.NoError(t, s.call("inner", func() error { return nil }))
		assert.True(t, s.Store().State().Loading)
		return s.call("failing", func() error { return errUnavailable })
	})

	assert.ErrorIs(t, err, errUnavailable)
	assert.False(t, s.Store().State().Loading)
	assert.Equal(t, []bool{true, false}, transitions)
}

// ============================================
// Auth Tests
// ============================================

func TestLogin(t *testing.T) {
	s, _ := newTestSession(t)

	user, err := s.Login(context.Background(), "thandi@example.com", "password123")

	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.True(t, s.Store().IsAuthenticated())
	assert.Equal(t, "user-1", s.Store().State().User.ID)
}

func TestLogin_FailureLeavesStateUnchanged(t *testing.T) {
	s, api := newTestSession(t)
	api.fail["Login"] = true
	before := s.Store().State()

	_, err := s.Login(context.Background(), "thandi@example.com", "wrong")

	assert.ErrorIs(t, err, errUnavailable)
	assert.Equal(t, before, s.Store().State())
}

func TestRegister(t *testing.T) {
	s, _ := newTestSession(t)

	user, err := s.Register(context.Background(), client.RegisterRequest{Name: "Sipho", Email: "sipho@example.com", Password: "password123"})

	require.NoError(t, err)
	assert.Equal(t, "Sipho", user.Name)
	assert.True(t, s.Store().IsAuthenticated())
}

func TestLogout_ClearsEvenWhenServerFails(t *testing.T) {
	s, api := newTestSession(t)
	signIn(t, s)
	_, err := s.AddToCart(context.Background(), product(t, "1"), 1)
	require.NoError(t, err)
	api.fail["Logout"] = true

	err = s.Logout(context.Background())

	assert.ErrorIs(t, err, errUnavailable)
	state := s.Store().State()
	assert.Nil(t, state.User)
	assert.Empty(t, state.Cart)
	assert.Empty(t, state.Favorites)
}

func TestLogout_SignedOutMakesNoCall(t *testing.T) {
	s, api := newTestSession(t)

	require.NoError(t, s.Logout(context.Background()))
	assert.Empty(t, api.calls)
}

// ============================================
// Cart Tests
// ============================================

func TestAddToCart_SignedOutIsLocal(t *testing.T) {
	s, api := newTestSession(t)
	ctx := context.Background()

	first, err := s.AddToCart(ctx, product(t, "1"), 2)
	require.NoError(t, err)
	second, err := s.AddToCart(ctx, product(t, "1"), 1)
	require.NoError(t, err)

	assert.Equal(t, "line-1", first)
	assert.Equal(t, first, second)
	cart := s.Store().State().Cart
	require.Len(t, cart, 1)
	assert.Equal(t, 3, cart[0].Quantity)
	assert.Empty(t, api.calls)
}

func TestAddToCart_SignedInMirrorsServer(t *testing.T) {
	s, api := newTestSession(t)
	ctx := context.Background()
	signIn(t, s)

	id, err := s.AddToCart(ctx, product(t, "1"), 2)
	require.NoError(t, err)
	assert.Equal(t, "line-1", id)

	id, err = s.AddToCart(ctx, product(t, "1"), 3)
	require.NoError(t, err)
	assert.Equal(t, "line-1", id)

	cart := s.Store().State().Cart
	require.Len(t, cart, 1)
	require.Len(t, api.cart, 1)
	assert.Equal(t, 5, cart[0].Quantity)
	assert.Equal(t, api.cart[0].ProductID, cart[0].ProductID)
	assert.Equal(t, api.cart[0].Quantity, cart[0].Quantity)
}

func TestAddToCart_SignedInIssuesLocalIDs(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()
	signIn(t, s)

	first, err := s.AddToCart(ctx, product(t, "1"), 1)
	require.NoError(t, err)
	require.NoError(t, s.RemoveFromCart(ctx, first))

	readded, err := s.AddToCart(ctx, product(t, "1"), 1)
	require.NoError(t, err)
	other, err := s.AddToCart(ctx, product(t, "2"), 1)
	require.NoError(t, err)

	assert.Equal(t, []string{"line-1", "line-2", "line-3"}, []string{first, readded, other})

	require.NoError(t, s.RemoveFromCart(ctx, readded))
	cart := s.Store().State().Cart
	require.Len(t, cart, 1)
	assert.Equal(t, "2", cart[0].ProductID)
}

func TestAddToCart_Errors(t *testing.T) {
	s, api := newTestSession(t)
	signIn(t, s)

	_, err := s.AddToCart(context.Background(), product(t, "1"), 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = s.AddToCart(context.Background(), product(t, "1"), pricing.MaxQuantity+1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	api.fail["AddToCart"] = true
	_, err = s.AddToCart(context.Background(), product(t, "1"), 1)
	assert.ErrorIs(t, err, errUnavailable)
	assert.Empty(t, s.Store().State().Cart)
}

func TestUpdateQuantity(t *testing.T) {
	s, api := newTestSession(t)
	ctx := context.Background()
	signIn(t, s)
	id, err := s.AddToCart(ctx, product(t, "4"), 1)
	require.NoError(t, err)

	require.NoError(t, s.UpdateQuantity(ctx, id, 4))

	line, ok := s.Store().State().CartItem(id)
	require.True(t, ok)
	assert.Equal(t, 4, line.Quantity)
	assert.Contains(t, api.calls, "UpdateCartItem:4")
}

func TestUpdateQuantity_AddressesServerByProduct(t *testing.T) {
	s, api := newTestSession(t)
	ctx := context.Background()

	// a line added before signing in keeps its local ID
	localID, err := s.AddToCart(ctx, product(t, "4"), 1)
	require.NoError(t, err)
	signIn(t, s)
	_, err = s.AddToCart(ctx, product(t, "4"), 1)
	require.NoError(t, err)

	require.NoError(t, s.UpdateQuantity(ctx, localID, 6))

	assert.Contains(t, api.calls, "UpdateCartItem:4")
	line, _ := s.Store().State().CartItem(localID)
	assert.Equal(t, 6, line.Quantity)
}

func TestUpdateQuantity_ZeroRemoves(t *testing.T) {
	s, api := newTestSession(t)
	ctx := context.Background()
	signIn(t, s)
	id, err := s.AddToCart(ctx, product(t, "4"), 2)
	require.NoError(t, err)

	require.NoError(t, s.UpdateQuantity(ctx, id, 0))

	assert.Empty(t, s.Store().State().Cart)
	assert.Empty(t, api.cart)
	assert.Contains(t, api.calls, "RemoveFromCart:4")
}

func TestUpdateQuantity_Errors(t *testing.T) {
	s, api := newTestSession(t)
	ctx := context.Background()
	signIn(t, s)

	assert.ErrorIs(t, s.UpdateQuantity(ctx, "missing", 2), ErrUnknownLine)

	id, err := s.AddToCart(ctx, product(t, "4"), 2)
	require.NoError(t, err)
	api.fail["UpdateCartItem:4"] = true

	assert.ErrorIs(t, s.UpdateQuantity(ctx, id, 5), errUnavailable)
	line, _ := s.Store().State().CartItem(id)
	assert.Equal(t, 2, line.Quantity)
}

func TestRemoveFromCart(t *testing.T) {
	s, api := newTestSession(t)
	ctx := context.Background()
	signIn(t, s)
	id, err := s.AddToCart(ctx, product(t, "6"), 1)
	require.NoError(t, err)

	api.fail["RemoveFromCart:6"] = true
	assert.ErrorIs(t, s.RemoveFromCart(ctx, id), errUnavailable)
	assert.Len(t, s.Store().State().Cart, 1)

	api.fail["RemoveFromCart:6"] = false
	require.NoError(t, s.RemoveFromCart(ctx, id))
	assert.Empty(t, s.Store().State().Cart)

	calls := len(api.calls)
	require.NoError(t, s.RemoveFromCart(ctx, id))
	assert.Len(t, api.calls, calls)
}

func TestSyncCart(t *testing.T) {
	s, api := newTestSession(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.SyncCart(ctx), ErrNotSignedIn)

	_, err := s.AddToCart(ctx, product(t, "3"), 1)
	require.NoError(t, err)
	p := product(t, "2")
	api.cart = []appstate.CartItem{p.CartItem(1).WithID(p.ID)}
	signIn(t, s)

	require.NoError(t, s.SyncCart(ctx))

	cart := s.Store().State().Cart
	require.Len(t, cart, 1)
	assert.Equal(t, "2", cart[0].ProductID)
	assert.Equal(t, "line-2", cart[0].ID)
}

// ============================================
// Favorites Tests
// ============================================

func TestToggleFavorite_SignedOut(t *testing.T) {
	s, api := newTestSession(t)
	ctx := context.Background()

	on, err := s.ToggleFavorite(ctx, "2")
	require.NoError(t, err)
	assert.True(t, on)

	on, err = s.ToggleFavorite(ctx, "2")
	require.NoError(t, err)
	assert.False(t, on)
	assert.Empty(t, s.Store().State().Favorites)
	assert.Empty(t, api.calls)
}

func TestToggleFavorite_SignedIn(t *testing.T) {
	s, api := newTestSession(t)
	ctx := context.Background()
	signIn(t, s)

	on, err := s.ToggleFavorite(ctx, "2")
	require.NoError(t, err)
	assert.True(t, on)
	assert.Equal(t, []string{"2"}, api.favorites)
	assert.True(t, s.Store().IsFavorite("2"))

	api.fail["RemoveFromFavorites"] = true
	on, err = s.ToggleFavorite(ctx, "2")
	assert.ErrorIs(t, err, errUnavailable)
	assert.True(t, on)
	assert.True(t, s.Store().IsFavorite("2"))

	api.fail["RemoveFromFavorites"] = false
	on, err = s.ToggleFavorite(ctx, "2")
	require.NoError(t, err)
	assert.False(t, on)
	assert.Empty(t, api.favorites)
	assert.False(t, s.Store().IsFavorite("2"))
}

func TestSyncFavorites(t *testing.T) {
	s, api := newTestSession(t)
	ctx := context.Background()
	api.favorites = []string{"4", "1"}

	assert.ErrorIs(t, s.SyncFavorites(ctx), ErrNotSignedIn)

	signIn(t, s)
	require.NoError(t, s.SyncFavorites(ctx))
	assert.Equal(t, []string{"4", "1"}, s.Store().State().Favorites)

	api.fail["GetFavorites"] = true
	api.favorites = nil
	assert.ErrorIs(t, s.SyncFavorites(ctx), errUnavailable)
	assert.Equal(t, []string{"4", "1"}, s.Store().State().Favorites)
}

// ============================================
// Checkout Tests
// ============================================

func TestCheckout(t *testing.T) {
	s, api := newTestSession(t)
	ctx := context.Background()
	signIn(t, s)
	_, err := s.AddToCart(ctx, product(t, "1"), 2)
	require.NoError(t, err)
	_, err = s.AddToCart(ctx, product(t, "7"), 1)
	require.NoError(t, err)

	quote := s.Quote()
	placed, charged, err := s.Checkout(ctx, CheckoutRequest{DeliveryAddress: "12 Long Street", PaymentMethod: "cash"})

	require.NoError(t, err)
	assert.Equal(t, "order-1", placed.ID)
	assert.Equal(t, quote, charged)
	assert.Equal(t, pricing.MustParseMoney("147.67"), charged.Total)
	assert.Empty(t, s.Store().State().Cart)
	require.Len(t, api.orders, 1)
	assert.Equal(t, "user-1", api.orders[0].UserID)
	assert.Len(t, api.orders[0].Items, 2)
}

func TestCheckout_Errors(t *testing.T) {
	s, api := newTestSession(t)
	ctx := context.Background()
	req := CheckoutRequest{DeliveryAddress: "12 Long Street", PaymentMethod: "card"}

	_, _, err := s.Checkout(ctx, req)
	assert.ErrorIs(t, err, ErrNotSignedIn)

	signIn(t, s)
	_, _, err = s.Checkout(ctx, req)
	assert.ErrorIs(t, err, ErrEmptyCart)

	_, err = s.AddToCart(ctx, product(t, "2"), 1)
	require.NoError(t, err)
	api.fail["CreateOrder"] = true

	_, _, err = s.Checkout(ctx, req)
	assert.ErrorIs(t, err, errUnavailable)
	assert.Len(t, s.Store().State().Cart, 1)
	assert.False(t, s.Store().State().Loading)
}
