package api

import (
	"net/http"
	"slices"
	"strings"

	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/readmodel"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type addAddressRequest struct {
	Address   string `json:"address"`
	IsDefault bool   `json:"isDefault"`
}

func (h *Handlers) GetAddresses(w http.ResponseWriter, r *http.Request) {
	data, ok, err := h.readStore.Get(store.CollectionAddresses, mux.Vars(r)["userId"])
	if err != nil {
		respondStoreError(w, err)
		return
	}
	addresses := []readmodel.Address{}
	if ok {
		addresses = slices.Clone(data.(*readmodel.AddressBook).Addresses)
	}
	respondJSON(w, http.StatusOK, addresses)
}

// AddAddress saves a delivery address. The first address saved becomes the
// default, and a new default replaces the old one.
func (h *Handlers) AddAddress(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	var req addAddressRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	text := strings.TrimSpace(req.Address)
	if text == "" {
		respondJSONError(w, "address is required", http.StatusBadRequest)
		return
	}

	added := readmodel.Address{ID: uuid.New().String(), Address: text, IsDefault: req.IsDefault}
	add := func(book readmodel.AddressBook) *readmodel.AddressBook {
		book.Addresses = slices.Clone(book.Addresses)
		if len(book.Addresses) == 0 {
			added.IsDefault = true
		}
		if added.IsDefault {
			for i := range book.Addresses {
				book.Addresses[i].IsDefault = false
			}
		}
		book.Addresses = append(book.Addresses, added)
		book.UpdatedAt = h.now()
		return &book
	}

	found, err := h.readStore.Update(store.CollectionAddresses, userID, func(current any) any {
		return add(*current.(*readmodel.AddressBook))
	})
	if err == nil && !found {
		err = h.readStore.Set(store.CollectionAddresses, userID, add(readmodel.AddressBook{UserID: userID}))
	}
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, added)
}
