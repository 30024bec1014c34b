package order

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/example/dessert-shop/internal/domain/cart"
	"github.com/example/dessert-shop/internal/infrastructure/store"
)

// Publisher emits order events after a successful write. The Kafka producer
// satisfies it; a nil publisher disables fan-out.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// Service owns order placement, the status workflow and order queries.
type Service struct {
	store     store.Store
	hub       *store.Hub
	publisher Publisher
}

func NewService(s store.Store, hub *store.Hub, publisher Publisher) *Service {
	return &Service{store: s, hub: hub, publisher: publisher}
}

// Place turns the session's cart into an order document. The lines and the
// total are snapshotted; the cart is cleared only after the write succeeds.
func (s *Service) Place(ctx context.Context, sess *cart.Session, addr Address, customerID string) (*Order, error) {
	if sess.Empty() {
		return nil, ErrEmptyCart
	}
	if err := addr.Validate(); err != nil {
		return nil, err
	}

	lines := sess.Snapshot()
	items := make([]Line, len(lines))
	for i, l := range lines {
		items[i] = Line{ItemID: l.ItemID, Name: l.Name, Price: l.Price, Qty: l.Qty}
	}

	now := time.Now()
	o := &Order{
		CustomerID: customerID,
		ShopID:     sess.ShopID(),
		Items:      items,
		Total:      sess.Total(),
		Status:     StatusPlaced,
		Address:    addr.String(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	id, err := s.store.Create(ctx, store.CollectionOrders, o)
	if err != nil {
		return nil, fmt.Errorf("failed to persist order: %w", err)
	}
	o.ID = id

	if err := sess.Clear(ctx); err != nil {
		// The order exists; an uncleared basket is an annoyance, not a loss.
		log.Printf("[Order] failed to clear cart for session %s: %v", sess.ID, err)
	}

	s.publish(ctx, Event{
		Type:       EventOrderPlaced,
		OrderID:    o.ID,
		OccurredAt: now,
		Placed: &OrderPlaced{
			OrderID:    o.ID,
			CustomerID: o.CustomerID,
			ShopID:     o.ShopID,
			Items:      o.Items,
			Total:      o.Total,
			Address:    o.Address,
		},
	})

	return o, nil
}

// Transition advances an order to target on behalf of actor. target must be
// the unique successor of the current status and the actor must satisfy the
// transition's precondition. Concurrent writers are not reconciled: the last
// committed write wins.
func (s *Service) Transition(ctx context.Context, orderID string, actor Actor, target Status) (*Order, error) {
	o, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !CanTransition(o.Status, target) {
		return nil, fmt.Errorf("%w: cannot move from %s to %s", ErrInvalidTransition, o.Status, target)
	}
	if err := authorize(o, actor, target); err != nil {
		return nil, err
	}

	now := time.Now()
	from := o.Status
	fields := map[string]any{
		"status":    target,
		"updatedAt": now,
	}
	if target == StatusOnTheWay {
		fields["deliveryId"] = actor.ID
	}

	if err := s.store.UpdateFields(ctx, store.CollectionOrders, orderID, fields); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	o.Status = target
	o.UpdatedAt = now
	if target == StatusOnTheWay {
		o.DeliveryID = actor.ID
	}

	s.publish(ctx, Event{
		Type:       EventOrderStatusChanged,
		OrderID:    o.ID,
		OccurredAt: now,
		StatusChanged: &OrderStatusChanged{
			OrderID:    o.ID,
			ShopID:     o.ShopID,
			CustomerID: o.CustomerID,
			From:       from,
			To:         target,
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			DeliveryID: o.DeliveryID,
		},
	})

	return o, nil
}

func (s *Service) Get(ctx context.Context, orderID string) (*Order, error) {
	doc, err := s.store.Get(ctx, store.CollectionOrders, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return decode(doc)
}

// ListByShop returns every order placed against one shop.
func (s *Service) ListByShop(ctx context.Context, shopID string) ([]*Order, error) {
	docs, err := s.store.Query(ctx, store.CollectionOrders, store.Filter{Field: "shopId", Value: shopID})
	if err != nil {
		return nil, err
	}
	return decodeAll(docs)
}

// ListByCustomer returns the customer's order history.
func (s *Service) ListByCustomer(ctx context.Context, customerID string) ([]*Order, error) {
	docs, err := s.store.Query(ctx, store.CollectionOrders, store.Filter{Field: "customerId", Value: customerID})
	if err != nil {
		return nil, err
	}
	return decodeAll(docs)
}

// ListForDelivery returns the orders relevant to one delivery agent: every
// order waiting for pickup, plus in-flight orders assigned to that agent.
func (s *Service) ListForDelivery(ctx context.Context, agentID string) ([]*Order, error) {
	ready, err := s.store.Query(ctx, store.CollectionOrders, store.Filter{Field: "status", Value: StatusReady})
	if err != nil {
		return nil, err
	}
	mine, err := s.store.Query(ctx, store.CollectionOrders,
		store.Filter{Field: "status", Value: StatusOnTheWay},
		store.Filter{Field: "deliveryId", Value: agentID})
	if err != nil {
		return nil, err
	}
	return decodeAll(append(ready, mine...))
}

// WatchByShop streams whole-list snapshots of a shop's orders.
func (s *Service) WatchByShop(shopID string) *store.Subscription {
	return s.hub.Subscribe(store.CollectionOrders, store.Filter{Field: "shopId", Value: shopID})
}

// WatchByCustomer streams whole-list snapshots of a customer's orders.
func (s *Service) WatchByCustomer(customerID string) *store.Subscription {
	return s.hub.Subscribe(store.CollectionOrders, store.Filter{Field: "customerId", Value: customerID})
}

// WatchByStatus streams whole-list snapshots of orders in one status.
func (s *Service) WatchByStatus(status Status) *store.Subscription {
	return s.hub.Subscribe(store.CollectionOrders, store.Filter{Field: "status", Value: status})
}

// WatchAll streams the whole orders collection. Used by the delivery
// dashboard, which filters client-side like the original ready/on_the_way
// split.
func (s *Service) WatchAll() *store.Subscription {
	return s.hub.Subscribe(store.CollectionOrders)
}

// ForDelivery filters decoded orders down to the delivery agent's view.
func ForDelivery(orders []*Order, agentID string) []*Order {
	var out []*Order
	for _, o := range orders {
		if o.Status == StatusReady || (o.Status == StatusOnTheWay && o.DeliveryID == agentID) {
			out = append(out, o)
		}
	}
	return out
}

// Decode converts a raw document into an Order. Exported for subscription
// consumers that receive documents from the hub.
func Decode(doc store.Document) (*Order, error) {
	return decode(doc)
}

func decode(doc store.Document) (*Order, error) {
	o := &Order{}
	if err := doc.Decode(o); err != nil {
		return nil, fmt.Errorf("failed to decode order %s: %w", doc.ID, err)
	}
	o.ID = doc.ID
	return o, nil
}

func decodeAll(docs []store.Document) ([]*Order, error) {
	out := make([]*Order, 0, len(docs))
	for _, doc := range docs {
		o, err := decode(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func (s *Service) publish(ctx context.Context, event Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event.OrderID, event); err != nil {
		// Fan-out is best effort; the document store stays the source of truth.
		log.Printf("[Order] failed to publish %s for order %s: %v", event.Type, event.OrderID, err)
	}
}
