package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/storefront/internal/api"
	"github.com/example/storefront/internal/appstate"
	"github.com/example/storefront/internal/auth"
	"github.com/example/storefront/internal/catalog"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/order"
	"github.com/example/storefront/internal/pricing"
	"github.com/example/storefront/internal/readmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T) *Client {
	t.Helper()
	readStore := store.NewReadStore()
	orders := order.NewService(readStore, nil, pricing.DefaultPolicy())
	jwtService := auth.NewJWTService("test-secret-key-for-rest-client-tests", time.Hour)
	handlers := api.NewHandlers(catalog.Default(), readStore, orders, jwtService)

	server := httptest.NewServer(api.NewRouter(handlers))
	t.Cleanup(server.Close)
	return New(Config{BaseURL: server.URL + "/", Timeout: 5 * time.Second})
}

func signUp(t *testing.T, c *Client) appstate.User {
	t.Helper()
	result, err := c.Register(context.Background(), RegisterRequest{
		Name:     "Thandi Mokoena",
		Email:    "thandi@example.com",
		Password: "password123",
		Phone:    "+27 82 555 0100",
	})
	require.NoError(t, err)
	return result.User
}

func productIDs(products []readmodel.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

// ============================================
// Auth Tests
// ============================================

func TestRegisterLoginLogout(t *testing.T) {
	c := newBackend(t)
	ctx := context.Background()

	user := signUp(t, c)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "thandi@example.com", user.Email)
	assert.NotEmpty(t, c.Token())

	require.NoError(t, c.Logout(ctx))
	assert.Empty(t, c.Token())

	result, err := c.Login(ctx, "thandi@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, result.User.ID)
	assert.Equal(t, result.Token, c.Token())
}

func TestLogin_InvalidCredentials(t *testing.T) {
	c := newBackend(t)
	signUp(t, c)
	c.SetToken("")

	_, err := c.Login(context.Background(), "thandi@example.com", "wrong-password")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuth)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Status)
	assert.Equal(t, "invalid email or password", httpErr.Message)
	assert.Empty(t, c.Token())
}

func TestRevokedTokenIsAuthError(t *testing.T) {
	c := newBackend(t)
	user := signUp(t, c)
	token := c.Token()
	require.NoError(t, c.Logout(context.Background()))

	c.SetToken(token)
	_, err := c.GetCart(context.Background(), user.ID)

	assert.ErrorIs(t, err, ErrAuth)
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
}

func TestRegister_Duplicate(t *testing.T) {
	c := newBackend(t)
	signUp(t, c)

	_, err := c.Register(context.Background(), RegisterRequest{Name: "Other", Email: "thandi@example.com", Password: "password123"})

	assert.Equal(t, http.StatusConflict, StatusCode(err))
	assert.NotErrorIs(t, err, ErrAuth)
}

// ============================================
// Catalog Tests
// ============================================

func TestCatalog(t *testing.T) {
	c := newBackend(t)
	ctx := context.Background()

	page, err := c.GetProducts(ctx, ProductQuery{Category: "Groceries", SortBy: catalog.SortByPrice, SortOrder: catalog.Descending, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"4", "7"}, productIDs(page.Products))
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 1, page.Page)

	product, err := c.GetProduct(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Fresh Organic Apples", product.Name)
	assert.Equal(t, pricing.MustParseMoney("25.99"), product.Price)

	featured, err := c.GetFeaturedProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, featured, 5)

	recommended, err := c.GetRecommendedProducts(ctx, "")
	require.NoError(t, err)
	assert.NotEmpty(t, recommended)

	categories, err := c.GetCategories(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, categories)

	stores, err := c.GetStores(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, stores)

	s, err := c.GetStore(ctx, stores[0].ID)
	require.NoError(t, err)
	assert.Equal(t, stores[0].Name, s.Name)

	storeProducts, err := c.GetStoreProducts(ctx, stores[0].ID)
	require.NoError(t, err)
	assert.NotEmpty(t, storeProducts)

	result, err := c.Search(ctx, "apple", catalog.Filters{MaxPrice: pricing.Rand(25, 0)})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"5", "6"}, productIDs(result.Products))
}

func TestGetProduct_NotFound(t *testing.T) {
	c := newBackend(t)

	_, err := c.GetProduct(context.Background(), "missing")

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.Status)
	assert.Equal(t, "product not found", httpErr.Message)
}

// ============================================
// Cart and Favorites Tests
// ============================================

func TestCartRoundTrip(t *testing.T) {
	c := newBackend(t)
	ctx := context.Background()
	user := signUp(t, c)

	_, err := c.AddToCart(ctx, user.ID, "1", 2)
	require.NoError(t, err)
	line, err := c.AddToCart(ctx, user.ID, "1", 1)
	require.NoError(t, err)
	assert.Equal(t, "1", line.ID)
	assert.Equal(t, 3, line.Quantity)

	line, err = c.UpdateCartItem(ctx, user.ID, line.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, line.Quantity)

	_, err = c.AddToCart(ctx, user.ID, "7", 1)
	require.NoError(t, err)

	items, err := c.GetCart(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	require.NoError(t, c.RemoveFromCart(ctx, user.ID, "1"))
	require.NoError(t, c.RemoveFromCart(ctx, user.ID, "1"))
	items, err = c.GetCart(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "7", items[0].ProductID)

	require.NoError(t, c.ClearCart(ctx, user.ID))
	items, err = c.GetCart(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCart_OtherUserForbidden(t *testing.T) {
	c := newBackend(t)
	signUp(t, c)

	_, err := c.GetCart(context.Background(), "someone-else")

	assert.Equal(t, http.StatusForbidden, StatusCode(err))
}

func TestFavoritesRoundTrip(t *testing.T) {
	c := newBackend(t)
	ctx := context.Background()
	user := signUp(t, c)

	require.NoError(t, c.AddToFavorites(ctx, user.ID, "2"))
	require.NoError(t, c.AddToFavorites(ctx, user.ID, "4"))

	favorites, err := c.GetFavorites(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "4"}, productIDs(favorites))

	recommended, err := c.GetRecommendedProducts(ctx, user.ID)
	require.NoError(t, err)
	assert.NotContains(t, productIDs(recommended), "2")

	require.NoError(t, c.RemoveFromFavorites(ctx, user.ID, "2"))
	favorites, err = c.GetFavorites(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"4"}, productIDs(favorites))
}

// ============================================
// Order Tests
// ============================================

func TestOrderLifecycle(t *testing.T) {
	c := newBackend(t)
	ctx := context.Background()
	user := signUp(t, c)

	placed, err := c.CreateOrder(ctx, CreateOrderRequest{
		UserID: user.ID,
		Items: []appstate.CartItem{
			{ID: "1", ProductID: "1", Quantity: 2},
			{ID: "7", ProductID: "7", Quantity: 1},
		},
		DeliveryAddress: "12 Long Street, Cape Town",
		PaymentMethod:   "card",
	})
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, placed.Status)
	assert.Equal(t, pricing.MustParseMoney("97.97"), placed.Subtotal)
	assert.Equal(t, pricing.MustParseMoney("147.67"), placed.Total)

	orders, err := c.GetOrders(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, placed.ID, orders[0].ID)

	fetched, err := c.GetOrder(ctx, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, placed.Total, fetched.Total)

	confirmed, err := c.AdvanceOrder(ctx, placed.ID, order.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, order.StatusConfirmed, confirmed.Status)

	cancelled, err := c.CancelOrder(ctx, placed.ID, "changed my mind")
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, cancelled.Status)

	_, err = c.CancelOrder(ctx, placed.ID, "again")
	assert.ErrorIs(t, err, ErrOrder)
	assert.Equal(t, http.StatusConflict, StatusCode(err))
}

func TestCreateOrder_Rejected(t *testing.T) {
	c := newBackend(t)
	user := signUp(t, c)

	tests := []struct {
		name string
		req  CreateOrderRequest
	}{
		{"empty order", CreateOrderRequest{UserID: user.ID, DeliveryAddress: "12 Long Street", PaymentMethod: "cash"}},
		{"unknown payment method", CreateOrderRequest{
			UserID:          user.ID,
			Items:           []appstate.CartItem{{ProductID: "1", Quantity: 1}},
			DeliveryAddress: "12 Long Street",
			PaymentMethod:   "cheque",
		}},
		{"unknown product", CreateOrderRequest{
			UserID:          user.ID,
			Items:           []appstate.CartItem{{ProductID: "999", Quantity: 1}},
			DeliveryAddress: "12 Long Street",
			PaymentMethod:   "cash",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.CreateOrder(context.Background(), tt.req)

			assert.ErrorIs(t, err, ErrOrder)
			assert.Equal(t, http.StatusBadRequest, StatusCode(err))
		})
	}
}

// ============================================
// Profile Tests
// ============================================

func TestProfileAndAddresses(t *testing.T) {
	c := newBackend(t)
	ctx := context.Background()
	user := signUp(t, c)

	name := "Thandi M."
	updated, err := c.UpdateProfile(ctx, user.ID, ProfileUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Thandi M.", updated.Name)
	assert.Equal(t, user.Email, updated.Email)

	profile, err := c.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Thandi M.", profile.Name)

	first, err := c.AddAddress(ctx, user.ID, "12 Long Street", false)
	require.NoError(t, err)
	assert.True(t, first.IsDefault)

	_, err = c.AddAddress(ctx, user.ID, "3 Bree Street", true)
	require.NoError(t, err)

	addresses, err := c.GetAddresses(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, addresses, 2)
	assert.False(t, addresses[0].IsDefault)
	assert.True(t, addresses[1].IsDefault)
}

// ============================================
// Transport Error Tests
// ============================================

func stubServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(Config{BaseURL: server.URL, Timeout: time.Second})
}

func TestDo_SendsBearerToken(t *testing.T) {
	var got string
	c := stubServer(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	})
	c.SetToken("abc")

	require.NoError(t, c.ClearCart(context.Background(), "user-1"))
	assert.Equal(t, "Bearer abc", got)
}

func TestDo_ServerErrorWithoutJSON(t *testing.T) {
	c := stubServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	_, err := c.GetProducts(context.Background(), ProductQuery{})

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadGateway, httpErr.Status)
	assert.Equal(t, "boom", httpErr.Message)
	assert.Contains(t, err.Error(), "get products: 502 boom")
}

func TestDo_MalformedPayloads(t *testing.T) {
	tests := []struct {
		name string
		body string
		call func(c *Client) error
	}{
		{"not json", `{"products": [`, func(c *Client) error {
			_, err := c.GetProducts(context.Background(), ProductQuery{})
			return err
		}},
		{"empty body", ``, func(c *Client) error {
			_, err := c.GetProduct(context.Background(), "1")
			return err
		}},
		{"product without id", `{"name": "Ghost"}`, func(c *Client) error {
			_, err := c.GetProduct(context.Background(), "1")
			return err
		}},
		{"login without token", `{"user": {"id": "u1"}}`, func(c *Client) error {
			_, err := c.Login(context.Background(), "a@example.com", "password123")
			return err
		}},
		{"cart line with zero quantity", `[{"id": "1", "productId": "1", "quantity": 0}]`, func(c *Client) error {
			_, err := c.GetCart(context.Background(), "u1")
			return err
		}},
		{"price with fractions of a cent", `{"id": "o1", "total": 1.005}`, func(c *Client) error {
			_, err := c.GetOrder(context.Background(), "o1")
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := stubServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			})

			err := tt.call(c)

			var validationErr *ValidationError
			assert.ErrorAs(t, err, &validationErr)
			assert.Empty(t, c.Token())
		})
	}
}

func TestDo_NetworkErrors(t *testing.T) {
	t.Run("server down", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		c := New(Config{BaseURL: server.URL})
		server.Close()

		_, err := c.GetCategories(context.Background())

		var netErr *NetworkError
		assert.ErrorAs(t, err, &netErr)
		assert.Zero(t, StatusCode(err))
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-release
		}))
		t.Cleanup(server.Close)
		t.Cleanup(func() { close(release) })
		c := New(Config{BaseURL: server.URL, Timeout: 50 * time.Millisecond})

		_, err := c.GetStores(context.Background())

		var netErr *NetworkError
		assert.ErrorAs(t, err, &netErr)
	})

	t.Run("cancelled context", func(t *testing.T) {
		c := stubServer(t, func(w http.ResponseWriter, r *http.Request) {})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := c.GetStores(ctx)

		var netErr *NetworkError
		assert.ErrorAs(t, err, &netErr)
		assert.True(t, errors.Is(err, context.Canceled))
	})
}

func TestLogout_DropsTokenOnFailure(t *testing.T) {
	c := stubServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	c.SetToken("abc")

	err := c.Logout(context.Background())

	assert.Error(t, err)
	assert.Empty(t, c.Token())
}
