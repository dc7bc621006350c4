package api

import (
	"net/http"

	"github.com/example/storefront/internal/catalog"
	"github.com/gorilla/mux"
)

// ListCategories returns all top-level categories
func (h *Handlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.catalog.Categories())
}

// GetProductsByCategory returns a page of the products in a category,
// including its subcategories.
func (h *Handlers) GetProductsByCategory(w http.ResponseWriter, r *http.Request) {
	cat, ok := h.catalog.Category(mux.Vars(r)["id"])
	if !ok {
		respondJSONError(w, "category not found", http.StatusNotFound)
		return
	}

	query := catalog.Query{Filters: catalog.Filters{Category: cat.ID}}
	var err error
	if query.Page, err = intParam(r.URL.Query().Get("page")); err != nil {
		respondJSONError(w, "invalid page", http.StatusBadRequest)
		return
	}
	if query.Limit, err = intParam(r.URL.Query().Get("limit")); err != nil {
		respondJSONError(w, "invalid limit", http.StatusBadRequest)
		return
	}
	respondJSON(w, http.StatusOK, h.catalog.List(query))
}

func (h *Handlers) ListStores(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.catalog.Stores())
}

func (h *Handlers) GetStore(w http.ResponseWriter, r *http.Request) {
	s, ok := h.catalog.Store(mux.Vars(r)["id"])
	if !ok {
		respondJSONError(w, "store not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, s)
}

func (h *Handlers) GetStoreProducts(w http.ResponseWriter, r *http.Request) {
	products, ok := h.catalog.StoreProducts(mux.Vars(r)["id"])
	if !ok {
		respondJSONError(w, "store not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

// Search matches products, stores and categories. Filters narrow the
// products only.
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filters := catalog.Filters{Category: query.Get("category")}
	var err error
	if filters.MinPrice, err = moneyParam(query.Get("minPrice")); err != nil {
		respondJSONError(w, "invalid minPrice", http.StatusBadRequest)
		return
	}
	if filters.MaxPrice, err = moneyParam(query.Get("maxPrice")); err != nil {
		respondJSONError(w, "invalid maxPrice", http.StatusBadRequest)
		return
	}
	if filters.MinRating, err = floatParam(query.Get("rating")); err != nil {
		respondJSONError(w, "invalid rating", http.StatusBadRequest)
		return
	}
	if filters.InStockOnly, err = boolParam(query.Get("inStock")); err != nil {
		respondJSONError(w, "invalid inStock", http.StatusBadRequest)
		return
	}

	respondJSON(w, http.StatusOK, h.catalog.Search(query.Get("q"), filters))
}
