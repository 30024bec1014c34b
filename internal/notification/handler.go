package notification

import (
	"context"
	"encoding/json"
	"log"

	"github.com/example/dessert-shop/internal/auth"
	"github.com/example/dessert-shop/internal/domain/order"
	"github.com/example/dessert-shop/internal/email"
)

// Sender is the slice of the email service the notifier needs. Satisfied by
// *email.Service.
type Sender interface {
	SendOrderConfirmation(to, orderID string, total int64, items []email.OrderItem) error
	SendOrderDelivered(to, orderID string) error
}

// Handler turns order events into customer emails.
type Handler struct {
	sender   Sender
	registry *auth.Registry
}

// NewHandler creates a new notification handler
func NewHandler(sender Sender, registry *auth.Registry) *Handler {
	return &Handler{
		sender:   sender,
		registry: registry,
	}
}

// HandleEvent processes one event from Kafka. Unknown event types are
// skipped; lookup failures are logged and swallowed so the consumer keeps
// draining the topic.
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var event order.Event
	if err := json.Unmarshal(value, &event); err != nil {
		log.Printf("[Notifier] Failed to unmarshal event: %v", err)
		return err
	}

	switch event.Type {
	case order.EventOrderPlaced:
		if event.Placed == nil {
			return nil
		}
		return h.handleOrderPlaced(ctx, event.Placed)
	case order.EventOrderStatusChanged:
		if event.StatusChanged == nil || event.StatusChanged.To != order.StatusDelivered {
			return nil
		}
		return h.handleOrderDelivered(ctx, event.StatusChanged)
	}

	return nil
}

func (h *Handler) handleOrderPlaced(ctx context.Context, e *order.OrderPlaced) error {
	u, ok := h.customer(ctx, e.CustomerID, e.OrderID)
	if !ok {
		return nil
	}

	items := make([]email.OrderItem, len(e.Items))
	for i, line := range e.Items {
		items[i] = email.OrderItem{
			ItemID: line.ItemID,
			Name:   line.Name,
			Qty:    line.Qty,
			Price:  line.Price,
		}
	}

	if err := h.sender.SendOrderConfirmation(u.Email, e.OrderID, e.Total, items); err != nil {
		log.Printf("[Notifier] Failed to send confirmation to %s: %v", u.Email, err)
		return err
	}

	log.Printf("[Notifier] Order confirmation sent to %s for order %s", u.Email, e.OrderID)
	return nil
}

func (h *Handler) handleOrderDelivered(ctx context.Context, e *order.OrderStatusChanged) error {
	u, ok := h.customer(ctx, e.CustomerID, e.OrderID)
	if !ok {
		return nil
	}

	if err := h.sender.SendOrderDelivered(u.Email, e.OrderID); err != nil {
		log.Printf("[Notifier] Failed to send delivered notice to %s: %v", u.Email, err)
		return err
	}

	log.Printf("[Notifier] Delivered notice sent to %s for order %s", u.Email, e.OrderID)
	return nil
}

// customer resolves the account behind an order. Guest orders have no
// customer id and get no email.
func (h *Handler) customer(ctx context.Context, customerID, orderID string) (*auth.User, bool) {
	if customerID == "" {
		log.Printf("[Notifier] Order %s was placed by a guest, skipping email", orderID)
		return nil, false
	}
	u, err := h.registry.Get(ctx, customerID)
	if err != nil {
		log.Printf("[Notifier] Could not load customer %s: %v", customerID, err)
		return nil, false
	}
	return u, true
}
