package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"slices"

	"github.com/example/storefront/internal/api/middleware"
	"github.com/example/storefront/internal/appstate"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/order"
	"github.com/example/storefront/internal/pricing"
	"github.com/gorilla/mux"
)

// CreateOrderRequest is the checkout payload. Item prices sent by the app
// are ignored; lines are repriced from the catalog.
type CreateOrderRequest struct {
	UserID              string              `json:"userId"`
	Items               []appstate.CartItem `json:"items"`
	DeliveryAddress     string              `json:"deliveryAddress"`
	PaymentMethod       string              `json:"paymentMethod"`
	SpecialInstructions string              `json:"specialInstructions,omitempty"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

type advanceOrderRequest struct {
	Status string `json:"status"`
}

var (
	errUnknownProduct = errors.New("unknown product")
	errOutOfStock     = errors.New("product is out of stock")
)

// CreateOrder prices and places an order, then empties the user's cart
func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req CreateOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID != "" && req.UserID != claims.UserID {
		respondJSONError(w, "forbidden", http.StatusForbidden)
		return
	}

	items, err := h.priceItems(req.Items)
	switch {
	case errors.Is(err, errUnknownProduct):
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, errOutOfStock):
		respondJSONError(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	o, err := h.orders.Place(r.Context(), order.PlaceRequest{
		UserID:              claims.UserID,
		Items:               items,
		DeliveryAddress:     req.DeliveryAddress,
		PaymentMethod:       req.PaymentMethod,
		SpecialInstructions: req.SpecialInstructions,
	}, claims.Email)
	if err != nil {
		respondOrderError(w, err)
		return
	}

	if err := h.readStore.Delete(store.CollectionCarts, claims.UserID); err != nil {
		log.Printf("[API] Failed to clear cart after order %s: %v", o.ID, err)
	}
	respondJSON(w, http.StatusCreated, o)
}

// priceItems rebuilds the requested lines from the catalog, one line per
// product.
func (h *Handlers) priceItems(requested []appstate.CartItem) ([]appstate.CartItem, error) {
	items := make([]appstate.CartItem, 0, len(requested))
	for _, item := range requested {
		if item.Quantity <= 0 || item.Quantity > pricing.MaxQuantity {
			return nil, fmt.Errorf("%w: %s", order.ErrInvalidQuantity, item.ProductID)
		}
		product, ok := h.catalog.Product(item.ProductID)
		if !ok {
			return nil, fmt.Errorf("%w: %q", errUnknownProduct, item.ProductID)
		}
		if !product.InStock {
			return nil, fmt.Errorf("%w: %s", errOutOfStock, product.Name)
		}
		if idx := slices.IndexFunc(items, func(i appstate.CartItem) bool { return i.ProductID == product.ID }); idx >= 0 {
			if items[idx].Quantity+item.Quantity > pricing.MaxQuantity {
				return nil, fmt.Errorf("%w: %s", order.ErrInvalidQuantity, item.ProductID)
			}
			items[idx].Quantity += item.Quantity
			continue
		}
		items = append(items, product.CartItem(item.Quantity).WithID(product.ID))
	}
	return items, nil
}

func (h *Handlers) GetOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListByUser(mux.Vars(r)["userId"])
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, ok := h.ownOrder(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *Handlers) CancelOrder(w http.ResponseWriter, r *http.Request) {
	o, ok := h.ownOrder(w, r)
	if !ok {
		return
	}

	var req cancelOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	cancelled, err := h.orders.Cancel(r.Context(), o.ID, req.Reason)
	if err != nil {
		respondOrderError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cancelled)
}

// AdvanceOrder moves an order along its fulfilment lifecycle. The mock
// backend has no fulfilment side, so the app's demo drives it directly.
func (h *Handlers) AdvanceOrder(w http.ResponseWriter, r *http.Request) {
	o, ok := h.ownOrder(w, r)
	if !ok {
		return
	}

	var req advanceOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	target, err := order.ParseStatus(req.Status)
	if err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	advanced, err := h.orders.Advance(r.Context(), o.ID, target)
	if err != nil {
		respondOrderError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, advanced)
}

// ownOrder loads the order named in the route and checks the caller owns it.
// It writes the error response itself when it returns false.
func (h *Handlers) ownOrder(w http.ResponseWriter, r *http.Request) (*order.Order, bool) {
	o, err := h.orders.Get(mux.Vars(r)["orderId"])
	if err != nil {
		respondOrderError(w, err)
		return nil, false
	}
	if o.UserID != currentUserID(r) {
		respondJSONError(w, "forbidden", http.StatusForbidden)
		return nil, false
	}
	return o, true
}

func respondOrderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, order.ErrOrderNotFound):
		respondJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, order.ErrEmptyOrder),
		errors.Is(err, order.ErrInvalidQuantity),
		errors.Is(err, order.ErrMissingAddress),
		errors.Is(err, order.ErrInvalidPaymentMethod),
		errors.Is(err, pricing.ErrOverflow):
		respondJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, order.ErrCannotCancel),
		errors.Is(err, order.ErrOrderCancelled),
		errors.Is(err, order.ErrOrderDelivered),
		errors.Is(err, order.ErrInvalidStatus):
		respondJSONError(w, err.Error(), http.StatusConflict)
	default:
		respondStoreError(w, err)
	}
}
