package api

import (
	"log"
	"net/http"
	"time"

	"github.com/example/storefront/internal/api/middleware"
	"github.com/gorilla/mux"
)

// NewRouter wires the REST routes. middlewares run inside request logging,
// after the route is matched.
func NewRouter(handlers *Handlers, middlewares ...mux.MiddlewareFunc) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondJSONError(w, "not found", http.StatusNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
	})

	// Auth
	r.HandleFunc("/auth/login", handlers.Login).Methods(http.MethodPost)
	r.HandleFunc("/auth/register", handlers.Register).Methods(http.MethodPost)

	// Catalog (public)
	r.HandleFunc("/products", handlers.GetProducts).Methods(http.MethodGet)
	r.HandleFunc("/products/featured", handlers.GetFeaturedProducts).Methods(http.MethodGet)
	r.HandleFunc("/products/recommended", handlers.GetRecommendedProducts).Methods(http.MethodGet)
	r.HandleFunc("/products/{id}", handlers.GetProduct).Methods(http.MethodGet)
	r.HandleFunc("/categories", handlers.ListCategories).Methods(http.MethodGet)
	r.HandleFunc("/categories/{id}/products", handlers.GetProductsByCategory).Methods(http.MethodGet)
	r.HandleFunc("/stores", handlers.ListStores).Methods(http.MethodGet)
	r.HandleFunc("/stores/{id}", handlers.GetStore).Methods(http.MethodGet)
	r.HandleFunc("/stores/{id}/products", handlers.GetStoreProducts).Methods(http.MethodGet)
	r.HandleFunc("/search", handlers.Search).Methods(http.MethodGet)

	// User routes: a valid session, and only the caller's own {userId}
	private := r.NewRoute().Subrouter()
	private.Use(middleware.AuthMiddleware(handlers.jwtService, handlers), middleware.RequireSelf("userId"))

	private.HandleFunc("/auth/logout", handlers.Logout).Methods(http.MethodPost)

	private.HandleFunc("/cart/{userId}", handlers.GetCart).Methods(http.MethodGet)
	private.HandleFunc("/cart/{userId}/add", handlers.AddToCart).Methods(http.MethodPost)
	private.HandleFunc("/cart/{userId}/items/{itemId}", handlers.UpdateCartItem).Methods(http.MethodPut)
	private.HandleFunc("/cart/{userId}/items/{itemId}", handlers.RemoveFromCart).Methods(http.MethodDelete)
	private.HandleFunc("/cart/{userId}/clear", handlers.ClearCart).Methods(http.MethodDelete)

	private.HandleFunc("/favorites/{userId}", handlers.GetFavorites).Methods(http.MethodGet)
	private.HandleFunc("/favorites/{userId}/add", handlers.AddToFavorites).Methods(http.MethodPost)
	private.HandleFunc("/favorites/{userId}/remove", handlers.RemoveFromFavorites).Methods(http.MethodDelete)

	// Fixed segments first so they are not taken for a user ID
	private.HandleFunc("/orders/create", handlers.CreateOrder).Methods(http.MethodPost)
	private.HandleFunc("/orders/details/{orderId}", handlers.GetOrder).Methods(http.MethodGet)
	private.HandleFunc("/orders/{orderId}/cancel", handlers.CancelOrder).Methods(http.MethodPut)
	private.HandleFunc("/orders/{orderId}/status", handlers.AdvanceOrder).Methods(http.MethodPut)
	private.HandleFunc("/orders/{userId}", handlers.GetOrders).Methods(http.MethodGet)

	private.HandleFunc("/users/{userId}", handlers.GetProfile).Methods(http.MethodGet)
	private.HandleFunc("/users/{userId}", handlers.UpdateProfile).Methods(http.MethodPut)
	private.HandleFunc("/users/{userId}/addresses", handlers.GetAddresses).Methods(http.MethodGet)
	private.HandleFunc("/users/{userId}/addresses", handlers.AddAddress).Methods(http.MethodPost)

	r.Use(withLogging)
	r.Use(middlewares...)
	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("[API] %s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Microsecond))
	})
}
