package order

import "time"

const (
	EventOrderPlaced        = "OrderPlaced"
	EventOrderStatusChanged = "OrderStatusChanged"
)

// Event is the envelope published to the order events topic, keyed by order
// id so one order's events stay in sequence.
type Event struct {
	Type       string    `json:"type"`
	OrderID    string    `json:"order_id"`
	OccurredAt time.Time `json:"occurred_at"`

	Placed        *OrderPlaced        `json:"placed,omitempty"`
	StatusChanged *OrderStatusChanged `json:"status_changed,omitempty"`
}

type OrderPlaced struct {
	OrderID    string `json:"order_id"`
	CustomerID string `json:"customer_id,omitempty"`
	ShopID     string `json:"shop_id"`
	Items      []Line `json:"items"`
	Total      int64  `json:"total"`
	Address    string `json:"address"`
}

type OrderStatusChanged struct {
	OrderID    string `json:"order_id"`
	ShopID     string `json:"shop_id"`
	CustomerID string `json:"customer_id,omitempty"`
	From       Status `json:"from"`
	To         Status `json:"to"`
	ActorID    string `json:"actor_id"`
	ActorRole  Role   `json:"actor_role"`
	DeliveryID string `json:"delivery_id,omitempty"`
}
