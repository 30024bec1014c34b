package order

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the fulfillment state of an order. The lifecycle is strictly
// linear; delivered is terminal.
type Status string

const (
	StatusPlaced    Status = "placed"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusOnTheWay  Status = "on_the_way"
	StatusDelivered Status = "delivered"
)

// Role identifies the kind of actor advancing an order.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleShop     Role = "shop"
	RoleDelivery Role = "delivery"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrEmptyCart         = errors.New("cart has no items")
	ErrMissingAddress    = errors.New("delivery address is incomplete")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrUnauthorized      = errors.New("actor is not allowed to perform this transition")
)

// successor maps each status to the only status it may advance to.
var successor = map[Status]Status{
	StatusPlaced:    StatusPreparing,
	StatusPreparing: StatusReady,
	StatusReady:     StatusOnTheWay,
	StatusOnTheWay:  StatusDelivered,
}

// Next returns the unique successor of s, or "" when s is terminal or
// unknown.
func Next(s Status) Status {
	return successor[s]
}

// CanTransition reports whether from may advance directly to to.
func CanTransition(from, to Status) bool {
	return successor[from] == to
}

// Line is one order entry, captured from the cart at placement time. Price
// changes after placement never alter it.
type Line struct {
	ItemID string `json:"itemId"`
	Name   string `json:"name"`
	Price  int64  `json:"price"`
	Qty    int    `json:"qty"`
}

// Order is a persisted purchase: an immutable snapshot of cart lines plus a
// mutable status advanced by the shop and delivery actors.
type Order struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customerId,omitempty"` // empty for anonymous checkout
	ShopID     string    `json:"shopId"`
	DeliveryID string    `json:"deliveryId,omitempty"` // set when a delivery agent accepts
	Items      []Line    `json:"items"`
	Total      int64     `json:"total"`
	Status     Status    `json:"status"`
	Address    string    `json:"address"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Actor is the authenticated identity attempting a transition.
type Actor struct {
	ID   string
	Role Role
}

// authorize checks the actor against the precondition of one transition.
// Assumes the from→to pair itself is already known to be legal.
func authorize(o *Order, actor Actor, target Status) error {
	switch target {
	case StatusPreparing, StatusReady:
		if actor.Role != RoleShop || actor.ID != o.ShopID {
			return fmt.Errorf("%w: only the owning shop may mark an order %s", ErrUnauthorized, target)
		}
	case StatusOnTheWay:
		if actor.Role != RoleDelivery {
			return fmt.Errorf("%w: only a delivery agent may accept an order", ErrUnauthorized)
		}
	case StatusDelivered:
		if actor.Role != RoleDelivery || actor.ID != o.DeliveryID {
			return fmt.Errorf("%w: only the assigned delivery agent may mark an order delivered", ErrUnauthorized)
		}
	}
	return nil
}

// Address is the structured delivery address collected at checkout. Name,
// the first address line and the phone number are required.
type Address struct {
	Name  string `json:"name"`
	Line1 string `json:"line1"`
	Line2 string `json:"line2,omitempty"`
	City  string `json:"city"`
	Phone string `json:"phone"`
}

func (a Address) Validate() error {
	switch {
	case strings.TrimSpace(a.Name) == "":
		return fmt.Errorf("%w: name is required", ErrMissingAddress)
	case strings.TrimSpace(a.Line1) == "":
		return fmt.Errorf("%w: address is required", ErrMissingAddress)
	case strings.TrimSpace(a.Phone) == "":
		return fmt.Errorf("%w: phone is required", ErrMissingAddress)
	}
	return nil
}

// String renders the address the way it is stored on the order document:
// "Name, Line1, Line2, City - Phone" with an absent Line2 skipped.
func (a Address) String() string {
	line2 := ""
	if strings.TrimSpace(a.Line2) != "" {
		line2 = a.Line2 + ", "
	}
	return fmt.Sprintf("%s, %s, %s%s - %s", a.Name, a.Line1, line2, a.City, a.Phone)
}
