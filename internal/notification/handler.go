package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/example/storefront/internal/appstate"
	"github.com/example/storefront/internal/email"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/metrics"
	"github.com/example/storefront/internal/order"
	"github.com/example/storefront/internal/readmodel"
)

// Sender delivers customer emails (SMTP in production)
type Sender interface {
	SendOrderConfirmation(ctx context.Context, to string, c email.OrderConfirmation) error
	SendOrderCancellation(ctx context.Context, to string, c email.OrderCancellation) error
}

// Handler processes order events for sending notifications
type Handler struct {
	sender    Sender
	readStore store.ReadStoreInterface
	metrics   *metrics.Collector
	language  appstate.Language
}

// NewHandler creates a new notification handler. readStore may be nil, in
// which case only events that carry the customer's email can be answered.
func NewHandler(sender Sender, readStore store.ReadStoreInterface) *Handler {
	return &Handler{
		sender:    sender,
		readStore: readStore,
		language:  appstate.LanguageEnglish,
	}
}

// WithLanguage writes customer emails in lang
func (h *Handler) WithLanguage(lang appstate.Language) *Handler {
	h.language = lang
	return h
}

// WithMetrics counts send attempts on c
func (h *Handler) WithMetrics(c *metrics.Collector) *Handler {
	h.metrics = c
	return h
}

// HandleEvent processes an event from Kafka
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var event order.Event
	if err := json.Unmarshal(value, &event); err != nil {
		log.Printf("[Notifier] Failed to unmarshal event: %v", err)
		return err
	}

	switch event.EventType {
	case order.EventOrderPlaced:
		return h.handleOrderPlaced(ctx, event)
	case order.EventOrderCancelled:
		return h.handleOrderCancelled(ctx, event)
	}
	return nil
}

func (h *Handler) handleOrderPlaced(ctx context.Context, event order.Event) error {
	var e order.OrderPlaced
	if err := json.Unmarshal(event.Data, &e); err != nil {
		log.Printf("[Notifier] Failed to unmarshal OrderPlaced event: %v", err)
		return err
	}

	log.Printf("[Notifier] Processing OrderPlaced event for order %s, user %s", e.OrderID, e.UserID)

	recipient, name := h.recipient(e.UserID, e.Email)
	if recipient == "" {
		log.Printf("[Notifier] No email address for user %s, skipping order %s", e.UserID, e.OrderID)
		return nil
	}

	err := h.sender.SendOrderConfirmation(ctx, recipient, email.NewOrderConfirmation(e, name, h.language))
	h.metrics.RecordEmail("confirmation", err)
	if err != nil {
		log.Printf("[Notifier] Failed to send email to %s: %v", recipient, err)
		return err
	}

	log.Printf("[Notifier] Order confirmation email sent to %s for order %s", recipient, e.OrderID)
	return nil
}

func (h *Handler) handleOrderCancelled(ctx context.Context, event order.Event) error {
	var e order.OrderCancelled
	if err := json.Unmarshal(event.Data, &e); err != nil {
		log.Printf("[Notifier] Failed to unmarshal OrderCancelled event: %v", err)
		return err
	}

	recipient, name := h.recipient(e.UserID, "")
	if recipient == "" {
		log.Printf("[Notifier] No email address for user %s, skipping cancellation of %s", e.UserID, e.OrderID)
		return nil
	}

	err := h.sender.SendOrderCancellation(ctx, recipient, email.OrderCancellation{
		Language:     h.language,
		OrderID:      e.OrderID,
		CustomerName: name,
		Reason:       e.Reason,
	})
	h.metrics.RecordEmail("cancellation", err)
	if err != nil {
		return fmt.Errorf("failed to send cancellation to %s: %w", recipient, err)
	}

	log.Printf("[Notifier] Cancellation email sent to %s for order %s", recipient, e.OrderID)
	return nil
}

// recipient resolves the address and name to write to. The user's stored
// profile wins; the address carried on the event is the fallback.
func (h *Handler) recipient(userID, eventEmail string) (string, string) {
	if h.readStore == nil {
		return eventEmail, ""
	}

	userData, exists, err := h.readStore.Get(store.CollectionUsers, userID)
	if err != nil {
		log.Printf("[Notifier] Error getting user %s: %v", userID, err)
		return eventEmail, ""
	}
	if !exists {
		return eventEmail, ""
	}

	user, ok := userData.(*readmodel.UserReadModel)
	if !ok {
		log.Printf("[Notifier] Invalid user data type for user: %s", userID)
		return eventEmail, ""
	}
	if user.Email == "" {
		return eventEmail, user.Name
	}
	return user.Email, user.Name
}
