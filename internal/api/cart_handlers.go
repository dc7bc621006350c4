package api

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/example/storefront/internal/appstate"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/pricing"
	"github.com/example/storefront/internal/readmodel"
	"github.com/gorilla/mux"
)

type addToCartRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

var quantityLimitMessage = fmt.Sprintf("quantity must be between 1 and %d", pricing.MaxQuantity)

type favoriteRequest struct {
	ProductID string `json:"productId"`
}

// Cart Handlers

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.loadCart(mux.Vars(r)["userId"])
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cart.Items)
}

// AddToCart adds quantity units of a product, folding into the product's
// existing line. Responds with the resulting line.
func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	var req addToCartRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Quantity <= 0 || req.Quantity > pricing.MaxQuantity {
		respondJSONError(w, quantityLimitMessage, http.StatusBadRequest)
		return
	}
	product, ok := h.catalog.Product(req.ProductID)
	if !ok {
		respondJSONError(w, "product not found", http.StatusNotFound)
		return
	}
	if !product.InStock {
		respondJSONError(w, "product is out of stock", http.StatusConflict)
		return
	}

	var (
		line     appstate.CartItem
		overfull bool
	)
	err := h.modifyCart(userID, func(cart *readmodel.CartReadModel) bool {
		idx := slices.IndexFunc(cart.Items, func(item appstate.CartItem) bool { return item.ProductID == product.ID })
		if idx < 0 {
			cart.Items = append(cart.Items, product.CartItem(req.Quantity).WithID(product.ID))
			idx = len(cart.Items) - 1
		} else if cart.Items[idx].Quantity+req.Quantity > pricing.MaxQuantity {
			overfull = true
			return false
		} else {
			cart.Items[idx].Quantity += req.Quantity
		}
		line = cart.Items[idx]
		return true
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if overfull {
		respondJSONError(w, quantityLimitMessage, http.StatusBadRequest)
		return
	}
	respondJSON(w, http.StatusOK, line)
}

func (h *Handlers) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req updateCartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Quantity <= 0 || req.Quantity > pricing.MaxQuantity {
		respondJSONError(w, quantityLimitMessage, http.StatusBadRequest)
		return
	}

	var (
		line  appstate.CartItem
		found bool
	)
	err := h.modifyCart(vars["userId"], func(cart *readmodel.CartReadModel) bool {
		idx := slices.IndexFunc(cart.Items, func(item appstate.CartItem) bool { return item.ID == vars["itemId"] })
		if idx < 0 {
			return false
		}
		cart.Items[idx].Quantity = req.Quantity
		line, found = cart.Items[idx], true
		return true
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if !found {
		respondJSONError(w, "cart item not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, line)
}

// RemoveFromCart deletes a line; removing an absent line succeeds
func (h *Handlers) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	err := h.modifyCart(vars["userId"], func(cart *readmodel.CartReadModel) bool {
		before := len(cart.Items)
		cart.Items = slices.DeleteFunc(cart.Items, func(item appstate.CartItem) bool { return item.ID == vars["itemId"] })
		return len(cart.Items) != before
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondNoContent(w)
}

func (h *Handlers) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.readStore.Delete(store.CollectionCarts, mux.Vars(r)["userId"]); err != nil {
		respondStoreError(w, err)
		return
	}
	respondNoContent(w)
}

// Favorites Handlers

// GetFavorites returns the favorite products, skipping IDs no longer in the catalog
func (h *Handlers) GetFavorites(w http.ResponseWriter, r *http.Request) {
	favorites, err := h.loadFavorites(mux.Vars(r)["userId"])
	if err != nil {
		respondStoreError(w, err)
		return
	}
	products := make([]readmodel.Product, 0, len(favorites.ProductIDs))
	for _, id := range favorites.ProductIDs {
		if p, ok := h.catalog.Product(id); ok {
			products = append(products, p)
		}
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *Handlers) AddToFavorites(w http.ResponseWriter, r *http.Request) {
	var req favoriteRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if _, ok := h.catalog.Product(req.ProductID); !ok {
		respondJSONError(w, "product not found", http.StatusNotFound)
		return
	}

	err := h.modifyFavorites(mux.Vars(r)["userId"], func(f *readmodel.FavoritesReadModel) bool {
		if slices.Contains(f.ProductIDs, req.ProductID) {
			return false
		}
		f.ProductIDs = append(f.ProductIDs, req.ProductID)
		return true
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondNoContent(w)
}

func (h *Handlers) RemoveFromFavorites(w http.ResponseWriter, r *http.Request) {
	var req favoriteRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ProductID == "" {
		respondJSONError(w, "productId is required", http.StatusBadRequest)
		return
	}

	err := h.modifyFavorites(mux.Vars(r)["userId"], func(f *readmodel.FavoritesReadModel) bool {
		before := len(f.ProductIDs)
		f.ProductIDs = slices.DeleteFunc(f.ProductIDs, func(id string) bool { return id == req.ProductID })
		return len(f.ProductIDs) != before
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondNoContent(w)
}

// loadCart returns a copy of the user's cart, empty when none is stored
func (h *Handlers) loadCart(userID string) (*readmodel.CartReadModel, error) {
	data, ok, err := h.readStore.Get(store.CollectionCarts, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &readmodel.CartReadModel{UserID: userID, Items: []appstate.CartItem{}}, nil
	}
	cart := *data.(*readmodel.CartReadModel)
	cart.Items = slices.Clone(cart.Items)
	if cart.Items == nil {
		cart.Items = []appstate.CartItem{}
	}
	return &cart, nil
}

// modifyCart applies change to a copy of the cart and stores it when change
// reports a modification.
func (h *Handlers) modifyCart(userID string, change func(*readmodel.CartReadModel) bool) error {
	copyCart := func(current *readmodel.CartReadModel) (*readmodel.CartReadModel, bool) {
		next := *current
		next.Items = slices.Clone(current.Items)
		if !change(&next) {
			return current, false
		}
		next.UpdatedAt = h.now()
		return &next, true
	}

	found, err := h.readStore.Update(store.CollectionCarts, userID, func(current any) any {
		next, _ := copyCart(current.(*readmodel.CartReadModel))
		return next
	})
	if err != nil || found {
		return err
	}
	if next, changed := copyCart(&readmodel.CartReadModel{UserID: userID}); changed {
		return h.readStore.Set(store.CollectionCarts, userID, next)
	}
	return nil
}

func (h *Handlers) loadFavorites(userID string) (*readmodel.FavoritesReadModel, error) {
	data, ok, err := h.readStore.Get(store.CollectionFavorites, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &readmodel.FavoritesReadModel{UserID: userID, ProductIDs: []string{}}, nil
	}
	f := *data.(*readmodel.FavoritesReadModel)
	f.ProductIDs = slices.Clone(f.ProductIDs)
	return &f, nil
}

func (h *Handlers) modifyFavorites(userID string, change func(*readmodel.FavoritesReadModel) bool) error {
	copyFavorites := func(current *readmodel.FavoritesReadModel) (*readmodel.FavoritesReadModel, bool) {
		next := *current
		next.ProductIDs = slices.Clone(current.ProductIDs)
		if !change(&next) {
			return current, false
		}
		next.UpdatedAt = h.now()
		return &next, true
	}

	found, err := h.readStore.Update(store.CollectionFavorites, userID, func(current any) any {
		next, _ := copyFavorites(current.(*readmodel.FavoritesReadModel))
		return next
	})
	if err != nil || found {
		return err
	}
	if next, changed := copyFavorites(&readmodel.FavoritesReadModel{UserID: userID}); changed {
		return h.readStore.Set(store.CollectionFavorites, userID, next)
	}
	return nil
}
