package order

import (
	"cmp"
	"context"
	"fmt"
	"log"
	"slices"
	"time"

	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/metrics"
	"github.com/example/storefront/internal/pricing"
	"github.com/google/uuid"
)

// Publisher forwards order events (Kafka in production)
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

type Service struct {
	readStore store.ReadStoreInterface
	publisher Publisher
	policy    pricing.Policy
	metrics   *metrics.Collector
	now       func() time.Time
}

// NewService creates an order service; publisher may be nil
func NewService(readStore store.ReadStoreInterface, publisher Publisher, policy pricing.Policy) *Service {
	return &Service{
		readStore: readStore,
		publisher: publisher,
		policy:    policy,
		now:       time.Now,
	}
}

// WithMetrics counts order events on c
func (s *Service) WithMetrics(c *metrics.Collector) *Service {
	s.metrics = c
	return s
}

// Policy returns the pricing rules orders are placed under
func (s *Service) Policy() pricing.Policy {
	return s.policy
}

// Place prices and stores a new order, then announces it. email is carried
// on the event for the confirmation message.
func (s *Service) Place(ctx context.Context, req PlaceRequest, email string) (*Order, error) {
	o, err := Place(uuid.New().String(), req, s.policy, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.readStore.Set(store.CollectionOrders, o.ID, o); err != nil {
		return nil, fmt.Errorf("failed to store order: %w", err)
	}
	log.Printf("[Order] Placed order %s for user %s: %s", o.ID, o.UserID, o.Total)
	s.metrics.RecordOrderEvent(EventOrderPlaced, o.Total.Cents())

	s.publish(ctx, o.ID, EventOrderPlaced, o.Placed(email))
	return o.Clone(), nil
}

func (s *Service) Get(id string) (*Order, error) {
	data, ok, err := s.readStore.Get(store.CollectionOrders, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load order %s: %w", id, err)
	}
	if !ok {
		return nil, ErrOrderNotFound
	}
	return data.(*Order).Clone(), nil
}

// ListByUser returns the user's orders, newest first
func (s *Service) ListByUser(userID string) ([]*Order, error) {
	items, err := s.readStore.GetAll(store.CollectionOrders)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	orders := make([]*Order, 0)
	for _, item := range items {
		if o := item.(*Order); o.UserID == userID {
			orders = append(orders, o.Clone())
		}
	}
	slices.SortStableFunc(orders, func(a, b *Order) int {
		return cmp.Compare(b.CreatedAt.UnixNano(), a.CreatedAt.UnixNano())
	})
	return orders, nil
}

// Cancel cancels a pending or confirmed order
func (s *Service) Cancel(ctx context.Context, id, reason string) (*Order, error) {
	o, err := s.modify(id, func(o *Order) error {
		return o.Cancel(reason, s.now())
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[Order] Cancelled order %s", id)
	s.metrics.RecordOrderEvent(EventOrderCancelled, 0)
	s.publish(ctx, id, EventOrderCancelled, o.Cancelled())
	return o, nil
}

// Advance moves an order to the next fulfilment status. Cancelling goes
// through Cancel so the cancellation event is published.
func (s *Service) Advance(ctx context.Context, id string, target Status) (*Order, error) {
	if target == StatusCancelled {
		return nil, fmt.Errorf("%w: use cancel to cancel an order", ErrInvalidStatus)
	}
	var from Status
	o, err := s.modify(id, func(o *Order) error {
		from = o.Status
		return o.TransitionTo(target, s.now())
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordOrderEvent(EventOrderStatusChanged, 0)
	s.publish(ctx, id, EventOrderStatusChanged, OrderStatusChanged{
		OrderID:   id,
		From:      from,
		To:        target,
		ChangedAt: o.UpdatedAt,
	})
	return o, nil
}

// modify applies change to a copy of the stored order and saves it only
// when change succeeds.
func (s *Service) modify(id string, change func(*Order) error) (*Order, error) {
	var (
		result    *Order
		changeErr error
	)
	found, err := s.readStore.Update(store.CollectionOrders, id, func(current any) any {
		o := current.(*Order).Clone()
		if changeErr = change(o); changeErr != nil {
			return current
		}
		result = o
		return o
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update order %s: %w", id, err)
	}
	if !found {
		return nil, ErrOrderNotFound
	}
	if changeErr != nil {
		return nil, changeErr
	}
	return result.Clone(), nil
}

func (s *Service) publish(ctx context.Context, orderID, eventType string, data any) {
	if s.publisher == nil {
		return
	}
	event, err := NewEvent(orderID, eventType, data)
	if err != nil {
		log.Printf("[Order] %v", err)
		return
	}
	if err := s.publisher.Publish(ctx, orderID, event); err != nil {
		log.Printf("[Order] Failed to publish %s for order %s: %v", eventType, orderID, err)
	}
}
