// Package client talks to the storefront REST API. It is a thin pass-through:
// no retries and no caching. Failures come back as *NetworkError, *HTTPError
// or *ValidationError.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/example/storefront/internal/appstate"
	"github.com/example/storefront/internal/catalog"
	"github.com/example/storefront/internal/order"
	"github.com/example/storefront/internal/readmodel"
)

// maxResponseSize bounds how much of a response body is read
const maxResponseSize = 4 << 20

// Client is a client for the storefront API.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// Config holds client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// HTTPClient replaces the default client; Timeout is then ignored
	HTTPClient *http.Client
}

func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
	}
}

// SetToken sets the bearer token sent with every request
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// =============================================================================
// Request/Response Types
// =============================================================================

// AuthResult is the body of a successful login or registration
type AuthResult struct {
	User  appstate.User `json:"user"`
	Token string        `json:"token"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

// ProfileUpdate changes only the fields that are set
type ProfileUpdate struct {
	Name   *string `json:"name,omitempty"`
	Email  *string `json:"email,omitempty"`
	Phone  *string `json:"phone,omitempty"`
	Avatar *string `json:"avatar,omitempty"`
}

// ProductQuery filters, sorts and pages the product listing
type ProductQuery struct {
	Category  string
	Search    string
	SortBy    catalog.SortField
	SortOrder catalog.SortOrder
	Page      int
	Limit     int
}

func (q ProductQuery) values() url.Values {
	v := url.Values{}
	setIf(v, "category", q.Category)
	setIf(v, "search", q.Search)
	setIf(v, "sortBy", string(q.SortBy))
	setIf(v, "sortOrder", string(q.SortOrder))
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

type CreateOrderRequest struct {
	UserID              string              `json:"userId"`
	Items               []appstate.CartItem `json:"items"`
	DeliveryAddress     string              `json:"deliveryAddress"`
	PaymentMethod       string              `json:"paymentMethod"`
	SpecialInstructions string              `json:"specialInstructions,omitempty"`
}

// =============================================================================
// Auth
// =============================================================================

// Login signs in and keeps the returned token for later calls. Rejected
// credentials match ErrAuth.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	body := map[string]string{"email": email, "password": password}
	return c.authenticate(ctx, "login", "/auth/login", body)
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	return c.authenticate(ctx, "register", "/auth/register", req)
}

func (c *Client) authenticate(ctx context.Context, op, path string, body any) (*AuthResult, error) {
	var result AuthResult
	if err := c.do(ctx, op, http.MethodPost, path, nil, body, &result); err != nil {
		return nil, err
	}
	if result.Token == "" || result.User.ID == "" {
		return nil, &ValidationError{Op: op, Reason: "missing user or token"}
	}
	c.SetToken(result.Token)
	return &result, nil
}

// Logout ends the server session. The token is dropped even when the call
// fails.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, "logout", http.MethodPost, "/auth/logout", nil, nil, nil)
	c.SetToken("")
	return err
}

// =============================================================================
// Catalog
// =============================================================================

func (c *Client) GetProducts(ctx context.Context, q ProductQuery) (*readmodel.ProductPage, error) {
	var page readmodel.ProductPage
	if err := c.do(ctx, "get products", http.MethodGet, "/products", q.values(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) GetProduct(ctx context.Context, id string) (*readmodel.Product, error) {
	var product readmodel.Product
	if err := c.do(ctx, "get product", http.MethodGet, "/products/"+url.PathEscape(id), nil, nil, &product); err != nil {
		return nil, err
	}
	if product.ID == "" {
		return nil, &ValidationError{Op: "get product", Reason: "missing product id"}
	}
	return &product, nil
}

func (c *Client) GetFeaturedProducts(ctx context.Context) ([]readmodel.Product, error) {
	var products []readmodel.Product
	err := c.do(ctx, "get featured products", http.MethodGet, "/products/featured", nil, nil, &products)
	return products, err
}

// GetRecommendedProducts leaves out the user's favorites when userID is set
func (c *Client) GetRecommendedProducts(ctx context.Context, userID string) ([]readmodel.Product, error) {
	v := url.Values{}
	setIf(v, "userId", userID)
	var products []readmodel.Product
	err := c.do(ctx, "get recommended products", http.MethodGet, "/products/recommended", v, nil, &products)
	return products, err
}

func (c *Client) GetCategories(ctx context.Context) ([]readmodel.Category, error) {
	var categories []readmodel.Category
	err := c.do(ctx, "get categories", http.MethodGet, "/categories", nil, nil, &categories)
	return categories, err
}

func (c *Client) GetCategoryProducts(ctx context.Context, categoryID string, page, limit int) (*readmodel.ProductPage, error) {
	q := ProductQuery{Page: page, Limit: limit}
	var result readmodel.ProductPage
	path := "/categories/" + url.PathEscape(categoryID) + "/products"
	if err := c.do(ctx, "get category products", http.MethodGet, path, q.values(), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) GetStores(ctx context.Context) ([]readmodel.Store, error) {
	var stores []readmodel.Store
	err := c.do(ctx, "get stores", http.MethodGet, "/stores", nil, nil, &stores)
	return stores, err
}

func (c *Client) GetStore(ctx context.Context, id string) (*readmodel.Store, error) {
	var s readmodel.Store
	if err := c.do(ctx, "get store", http.MethodGet, "/stores/"+url.PathEscape(id), nil, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) GetStoreProducts(ctx context.Context, id string) ([]readmodel.Product, error) {
	var products []readmodel.Product
	err := c.do(ctx, "get store products", http.MethodGet, "/stores/"+url.PathEscape(id)+"/products", nil, nil, &products)
	return products, err
}

func (c *Client) Search(ctx context.Context, query string, f catalog.Filters) (*readmodel.SearchResult, error) {
	v := url.Values{}
	setIf(v, "q", query)
	setIf(v, "category", f.Category)
	if f.MinPrice > 0 {
		v.Set("minPrice", f.MinPrice.Decimal())
	}
	if f.MaxPrice > 0 {
		v.Set("maxPrice", f.MaxPrice.Decimal())
	}
	if f.MinRating > 0 {
		v.Set("rating", strconv.FormatFloat(f.MinRating, 'f', -1, 64))
	}
	if f.InStockOnly {
		v.Set("inStock", "true")
	}

	var result readmodel.SearchResult
	if err := c.do(ctx, "search", http.MethodGet, "/search", v, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// =============================================================================
// Cart
// =============================================================================

func (c *Client) GetCart(ctx context.Context, userID string) ([]appstate.CartItem, error) {
	var items []appstate.CartItem
	if err := c.do(ctx, "get cart", http.MethodGet, "/cart/"+url.PathEscape(userID), nil, nil, &items); err != nil {
		return nil, err
	}
	for _, item := range items {
		if err := validateCartItem("get cart", item); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// AddToCart adds quantity of a product and returns the merged line
func (c *Client) AddToCart(ctx context.Context, userID, productID string, quantity int) (*appstate.CartItem, error) {
	body := map[string]any{"productId": productID, "quantity": quantity}
	return c.cartLine(ctx, "add to cart", http.MethodPost, "/cart/"+url.PathEscape(userID)+"/add", body)
}

func (c *Client) UpdateCartItem(ctx context.Context, userID, itemID string, quantity int) (*appstate.CartItem, error) {
	body := map[string]int{"quantity": quantity}
	return c.cartLine(ctx, "update cart item", http.MethodPut, cartItemPath(userID, itemID), body)
}

func (c *Client) RemoveFromCart(ctx context.Context, userID, itemID string) error {
	return c.do(ctx, "remove from cart", http.MethodDelete, cartItemPath(userID, itemID), nil, nil, nil)
}

func (c *Client) ClearCart(ctx context.Context, userID string) error {
	return c.do(ctx, "clear cart", http.MethodDelete, "/cart/"+url.PathEscape(userID)+"/clear", nil, nil, nil)
}

func (c *Client) cartLine(ctx context.Context, op, method, path string, body any) (*appstate.CartItem, error) {
	var item appstate.CartItem
	if err := c.do(ctx, op, method, path, nil, body, &item); err != nil {
		return nil, err
	}
	if err := validateCartItem(op, item); err != nil {
		return nil, err
	}
	return &item, nil
}

func cartItemPath(userID, itemID string) string {
	return "/cart/" + url.PathEscape(userID) + "/items/" + url.PathEscape(itemID)
}

func validateCartItem(op string, item appstate.CartItem) error {
	if item.ID == "" || item.ProductID == "" {
		return &ValidationError{Op: op, Reason: "cart item without id"}
	}
	if item.Quantity <= 0 {
		return &ValidationError{Op: op, Reason: fmt.Sprintf("cart item %s has quantity %d", item.ID, item.Quantity)}
	}
	return nil
}

// =============================================================================
// Favorites
// =============================================================================

func (c *Client) GetFavorites(ctx context.Context, userID string) ([]readmodel.Product, error) {
	var products []readmodel.Product
	err := c.do(ctx, "get favorites", http.MethodGet, "/favorites/"+url.PathEscape(userID), nil, nil, &products)
	return products, err
}

func (c *Client) AddToFavorites(ctx context.Context, userID, productID string) error {
	body := map[string]string{"productId": productID}
	return c.do(ctx, "add to favorites", http.MethodPost, "/favorites/"+url.PathEscape(userID)+"/add", nil, body, nil)
}

func (c *Client) RemoveFromFavorites(ctx context.Context, userID, productID string) error {
	body := map[string]string{"productId": productID}
	return c.do(ctx, "remove from favorites", http.MethodDelete, "/favorites/"+url.PathEscape(userID)+"/remove", nil, body, nil)
}

// =============================================================================
// Orders
// =============================================================================

func (c *Client) GetOrders(ctx context.Context, userID string) ([]order.Order, error) {
	var orders []order.Order
	err := c.do(ctx, "get orders", http.MethodGet, "/orders/"+url.PathEscape(userID), nil, nil, &orders)
	return orders, err
}

func (c *Client) GetOrder(ctx context.Context, orderID string) (*order.Order, error) {
	return c.orderCall(ctx, "get order", http.MethodGet, "/orders/details/"+url.PathEscape(orderID), nil)
}

// CreateOrder places an order. A refused order matches ErrOrder.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*order.Order, error) {
	o, err := c.orderCall(ctx, "create order", http.MethodPost, "/orders/create", req)
	if err != nil {
		return nil, tagHTTP(err, ErrOrder, http.StatusBadRequest, http.StatusConflict)
	}
	return o, nil
}

// CancelOrder cancels a pending or confirmed order. A refused cancellation
// matches ErrOrder.
func (c *Client) CancelOrder(ctx context.Context, orderID, reason string) (*order.Order, error) {
	body := map[string]string{"reason": reason}
	o, err := c.orderCall(ctx, "cancel order", http.MethodPut, "/orders/"+url.PathEscape(orderID)+"/cancel", body)
	if err != nil {
		return nil, tagHTTP(err, ErrOrder, http.StatusNotFound, http.StatusConflict)
	}
	return o, nil
}

// AdvanceOrder moves an order along its lifecycle
func (c *Client) AdvanceOrder(ctx context.Context, orderID string, status order.Status) (*order.Order, error) {
	body := map[string]string{"status": string(status)}
	o, err := c.orderCall(ctx, "advance order", http.MethodPut, "/orders/"+url.PathEscape(orderID)+"/status", body)
	if err != nil {
		return nil, tagHTTP(err, ErrOrder, http.StatusBadRequest, http.StatusConflict)
	}
	return o, nil
}

func (c *Client) orderCall(ctx context.Context, op, method, path string, body any) (*order.Order, error) {
	var o order.Order
	if err := c.do(ctx, op, method, path, nil, body, &o); err != nil {
		return nil, err
	}
	if o.ID == "" {
		return nil, &ValidationError{Op: op, Reason: "missing order id"}
	}
	return &o, nil
}

// =============================================================================
// Profile
// =============================================================================

func (c *Client) GetProfile(ctx context.Context, userID string) (*appstate.User, error) {
	return c.profileCall(ctx, "get profile", http.MethodGet, userID, nil)
}

func (c *Client) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*appstate.User, error) {
	return c.profileCall(ctx, "update profile", http.MethodPut, userID, update)
}

func (c *Client) profileCall(ctx context.Context, op, method, userID string, body any) (*appstate.User, error) {
	var u appstate.User
	if err := c.do(ctx, op, method, "/users/"+url.PathEscape(userID), nil, body, &u); err != nil {
		return nil, err
	}
	if u.ID == "" {
		return nil, &ValidationError{Op: op, Reason: "missing user id"}
	}
	return &u, nil
}

func (c *Client) GetAddresses(ctx context.Context, userID string) ([]readmodel.Address, error) {
	var addresses []readmodel.Address
	err := c.do(ctx, "get addresses", http.MethodGet, "/users/"+url.PathEscape(userID)+"/addresses", nil, nil, &addresses)
	return addresses, err
}

func (c *Client) AddAddress(ctx context.Context, userID, address string, isDefault bool) (*readmodel.Address, error) {
	body := map[string]any{"address": address, "isDefault": isDefault}
	var added readmodel.Address
	if err := c.do(ctx, "add address", http.MethodPost, "/users/"+url.PathEscape(userID)+"/addresses", nil, body, &added); err != nil {
		return nil, err
	}
	return &added, nil
}

// =============================================================================
// Transport
// =============================================================================

// do sends one request and decodes the response into out. out may be nil
// for calls whose response carries no body.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return &NetworkError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		httpErr := &HTTPError{Op: op, Status: resp.StatusCode, Message: errorMessage(respBody)}
		if resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%w: %w", ErrAuth, httpErr)
		}
		return httpErr
	}

	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(respBody)) == 0 {
		return &ValidationError{Op: op, Reason: "empty body"}
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &ValidationError{Op: op, Reason: "undecodable body", Err: err}
	}
	return nil
}

// errorMessage extracts {"error": "..."} from an error response
func errorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(body))
}

func setIf(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}
