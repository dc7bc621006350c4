package order

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/example/storefront/internal/appstate"
	"github.com/example/storefront/internal/pricing"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusPreparing Status = "preparing"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrEmptyOrder           = errors.New("order must have at least one item")
	ErrInvalidQuantity      = errors.New("item quantity out of range")
	ErrMissingAddress       = errors.New("delivery address is required")
	ErrInvalidPaymentMethod = errors.New("unsupported payment method")
	ErrInvalidStatus        = errors.New("invalid order status transition")
	ErrOrderCancelled       = errors.New("order is already cancelled")
	ErrOrderDelivered       = errors.New("order is already delivered")
	ErrCannotCancel         = errors.New("order can no longer be cancelled")
)

// validTransitions defines allowed state transitions
var validTransitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusDelivered},
	StatusDelivered: {}, // terminal state
	StatusCancelled: {}, // terminal state
}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := validTransitions[st]; !ok {
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidStatus, s)
	}
	return st, nil
}

type PaymentMethod string

const (
	PaymentCard   PaymentMethod = "card"
	PaymentMobile PaymentMethod = "mobile"
	PaymentCash   PaymentMethod = "cash"
)

var paymentNames = map[PaymentMethod]string{
	PaymentCard:   "Credit/Debit Card",
	PaymentMobile: "Mobile Money",
	PaymentCash:   "Cash on Delivery",
}

// PaymentMethods lists the accepted methods in display order
func PaymentMethods() []PaymentMethod {
	return []PaymentMethod{PaymentCard, PaymentMobile, PaymentCash}
}

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := paymentNames[m]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, s)
	}
	return m, nil
}

// DisplayName is the label shown at checkout
func (m PaymentMethod) DisplayName() string {
	if name, ok := paymentNames[m]; ok {
		return name
	}
	return string(m)
}

type Order struct {
	ID                  string              `json:"id"`
	UserID              string              `json:"userId"`
	Items               []appstate.CartItem `json:"items"`
	Subtotal            pricing.Money       `json:"subtotal"`
	Savings             pricing.Money       `json:"savings"`
	DeliveryFee         pricing.Money       `json:"deliveryFee"`
	Tax                 pricing.Money       `json:"tax"`
	Total               pricing.Money       `json:"total"`
	Status              Status              `json:"status"`
	PaymentMethod       PaymentMethod       `json:"paymentMethod"`
	DeliveryAddress     string              `json:"deliveryAddress"`
	SpecialInstructions string              `json:"specialInstructions,omitempty"`
	CancelReason        string              `json:"cancelReason,omitempty"`
	CreatedAt           time.Time           `json:"createdAt"`
	UpdatedAt           time.Time           `json:"updatedAt"`
}

// PlaceRequest carries everything needed to open an order
type PlaceRequest struct {
	UserID              string
	Items               []appstate.CartItem
	DeliveryAddress     string
	PaymentMethod       string
	SpecialInstructions string
}

// Place validates req and returns a pending order priced under policy.
func Place(id string, req PlaceRequest, policy pricing.Policy, now time.Time) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 || item.Quantity > pricing.MaxQuantity {
			return nil, fmt.Errorf("%w: %s", ErrInvalidQuantity, item.ProductID)
		}
	}
	address := strings.TrimSpace(req.DeliveryAddress)
	if address == "" {
		return nil, ErrMissingAddress
	}
	method, err := ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}

	o := &Order{
		ID:                  id,
		UserID:              req.UserID,
		Items:               slices.Clone(req.Items),
		Status:              StatusPending,
		PaymentMethod:       method,
		DeliveryAddress:     address,
		SpecialInstructions: strings.TrimSpace(req.SpecialInstructions),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	summary, err := policy.CheckedCheckoutSummary(o.lines())
	if err != nil {
		return nil, err
	}
	o.applySummary(summary)
	return o, nil
}

func (o *Order) lines() []pricing.Line {
	lines := make([]pricing.Line, len(o.Items))
	for i, item := range o.Items {
		lines[i] = item.Line()
	}
	return lines
}

func (o *Order) applySummary(s pricing.Summary) {
	o.Subtotal = s.Subtotal
	o.Savings = s.Savings
	o.DeliveryFee = s.DeliveryFee
	o.Tax = s.Tax
	o.Total = s.Total
}

// Summary returns the priced totals recorded on the order
func (o *Order) Summary() pricing.Summary {
	return pricing.Summary{
		Subtotal:    o.Subtotal,
		Savings:     o.Savings,
		DeliveryFee: o.DeliveryFee,
		Tax:         o.Tax,
		Total:       o.Total,
	}
}

// CanTransitionTo checks if the order can transition to the target status
func (o *Order) CanTransitionTo(target Status) bool {
	allowed, exists := validTransitions[o.Status]
	if !exists {
		return false
	}
	return slices.Contains(allowed, target)
}

// transitionError returns an appropriate error for an invalid transition
func (o *Order) transitionError(target Status) error {
	switch {
	case o.Status == StatusCancelled:
		return ErrOrderCancelled
	case o.Status == StatusDelivered:
		return ErrOrderDelivered
	case target == StatusCancelled:
		return ErrCannotCancel
	default:
		return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidStatus, o.Status, target)
	}
}

// TransitionTo moves the order along its lifecycle
func (o *Order) TransitionTo(target Status, at time.Time) error {
	if !o.CanTransitionTo(target) {
		return o.transitionError(target)
	}
	o.Status = target
	o.UpdatedAt = at
	return nil
}

// Cancel is allowed while the order is pending or confirmed
func (o *Order) Cancel(reason string, at time.Time) error {
	if err := o.TransitionTo(StatusCancelled, at); err != nil {
		return err
	}
	o.CancelReason = reason
	return nil
}

// Clone returns a copy that shares no item storage with o
func (o *Order) Clone() *Order {
	c := *o
	c.Items = slices.Clone(o.Items)
	return &c
}
