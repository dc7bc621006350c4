package order

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/storefront/internal/appstate"
	"github.com/example/storefront/internal/pricing"
	"github.com/google/uuid"
)

const (
	EventOrderPlaced        = "OrderPlaced"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventOrderCancelled     = "OrderCancelled"
)

// Event is the envelope published to the order topic
type Event struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"order_id"`
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

type OrderPlaced struct {
	OrderID         string              `json:"order_id"`
	UserID          string              `json:"user_id"`
	Email           string              `json:"email,omitempty"`
	Items           []appstate.CartItem `json:"items"`
	Summary         pricing.Summary     `json:"summary"`
	PaymentMethod   PaymentMethod       `json:"payment_method"`
	DeliveryAddress string              `json:"delivery_address"`
	PlacedAt        time.Time           `json:"placed_at"`
}

type OrderStatusChanged struct {
	OrderID   string    `json:"order_id"`
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	ChangedAt time.Time `json:"changed_at"`
}

type OrderCancelled struct {
	OrderID     string    `json:"order_id"`
	UserID      string    `json:"user_id"`
	Reason      string    `json:"reason"`
	CancelledAt time.Time `json:"cancelled_at"`
}

// NewEvent wraps data in an envelope for orderID
func NewEvent(orderID, eventType string, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s: %w", eventType, err)
	}
	return Event{
		ID:        uuid.New().String(),
		OrderID:   orderID,
		EventType: eventType,
		Data:      raw,
		Timestamp: time.Now(),
	}, nil
}

// Placed builds the OrderPlaced payload for o
func (o *Order) Placed(email string) OrderPlaced {
	return OrderPlaced{
		OrderID:         o.ID,
		UserID:          o.UserID,
		Email:           email,
		Items:           o.Items,
		Summary:         o.Summary(),
		PaymentMethod:   o.PaymentMethod,
		DeliveryAddress: o.DeliveryAddress,
		PlacedAt:        o.CreatedAt,
	}
}

// Cancelled builds the OrderCancelled payload for o
func (o *Order) Cancelled() OrderCancelled {
	return OrderCancelled{
		OrderID:     o.ID,
		UserID:      o.UserID,
		Reason:      o.CancelReason,
		CancelledAt: o.UpdatedAt,
	}
}
