package api

import (
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/order"
	"github.com/example/storefront/internal/readmodel"
)

// DefaultModels maps every collection the backend stores to its read model
// type, for stores that decode persisted rows.
func DefaultModels() store.Models {
	return store.Models{
		store.CollectionUsers:     func() any { return &readmodel.UserReadModel{} },
		store.CollectionSessions:  func() any { return &readmodel.SessionReadModel{} },
		store.CollectionCarts:     func() any { return &readmodel.CartReadModel{} },
		store.CollectionFavorites: func() any { return &readmodel.FavoritesReadModel{} },
		store.CollectionAddresses: func() any { return &readmodel.AddressBook{} },
		store.CollectionOrders:    func() any { return &order.Order{} },
	}
}
