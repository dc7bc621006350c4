package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/example/storefront/internal/api/middleware"
	"github.com/example/storefront/internal/auth"
	"github.com/example/storefront/internal/catalog"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/order"
	"github.com/example/storefront/internal/pricing"
	"github.com/gorilla/mux"
)

type Handlers struct {
	catalog    *catalog.Catalog
	readStore  store.ReadStoreInterface
	orders     *order.Service
	jwtService *auth.JWTService
	now        func() time.Time
}

func NewHandlers(c *catalog.Catalog, readStore store.ReadStoreInterface, orders *order.Service, jwtService *auth.JWTService) *Handlers {
	return &Handlers{
		catalog:    c,
		readStore:  readStore,
		orders:     orders,
		jwtService: jwtService,
		now:        time.Now,
	}
}

// Product Handlers

func (h *Handlers) GetProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := catalog.Query{
		Filters:   catalog.Filters{Category: q.Get("category")},
		Search:    q.Get("search"),
		SortBy:    catalog.SortField(q.Get("sortBy")),
		SortOrder: catalog.SortOrder(q.Get("sortOrder")),
	}
	var err error
	if query.Page, err = intParam(q.Get("page")); err != nil {
		respondJSONError(w, "invalid page", http.StatusBadRequest)
		return
	}
	if query.Limit, err = intParam(q.Get("limit")); err != nil {
		respondJSONError(w, "invalid limit", http.StatusBadRequest)
		return
	}
	respondJSON(w, http.StatusOK, h.catalog.List(query))
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, ok := h.catalog.Product(mux.Vars(r)["id"])
	if !ok {
		respondJSONError(w, "product not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (h *Handlers) GetFeaturedProducts(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.catalog.Featured())
}

// recommendedCount is how many products the home screen recommends
const recommendedCount = 6

// GetRecommendedProducts recommends well rated products, leaving out the
// user's favorites when a userId is given.
func (h *Handlers) GetRecommendedProducts(w http.ResponseWriter, r *http.Request) {
	var exclude []string
	if userID := r.URL.Query().Get("userId"); userID != "" {
		favorites, err := h.loadFavorites(userID)
		if err != nil {
			respondStoreError(w, err)
			return
		}
		exclude = favorites.ProductIDs
	}
	respondJSON(w, http.StatusOK, h.catalog.Recommended(exclude, recommendedCount))
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondJSONError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func respondStoreError(w http.ResponseWriter, err error) {
	log.Printf("[API] Store error: %v", err)
	respondJSONError(w, "internal error", http.StatusInternalServerError)
}

// decodeJSON decodes the request body into dst. An empty body leaves dst
// untouched.
func decodeJSON(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func moneyParam(s string) (pricing.Money, error) {
	if s == "" {
		return 0, nil
	}
	return pricing.ParseMoney(s)
}

func floatParam(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func boolParam(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(s)
}

func currentUserID(r *http.Request) string {
	return middleware.GetUserID(r.Context())
}
