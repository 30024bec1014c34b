package cart

import (
	"context"
	"sync"
)

// Session binds one cart to one browsing session. The cart is loaded when
// the session opens and written back after every mutation, so the basket
// survives reconnects until it is cleared or placed as an order.
type Session struct {
	ID string

	mu      sync.Mutex
	cart    *Cart
	storage Storage
}

// OpenSession loads the persisted cart for the session, starting empty when
// nothing was saved yet.
func OpenSession(ctx context.Context, id string, storage Storage) (*Session, error) {
	c, err := storage.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Session{ID: id, cart: c, storage: storage}, nil
}

func (s *Session) AddLine(ctx context.Context, line Line, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.AddLine(line, qty)
	return s.storage.Save(ctx, s.ID, s.cart)
}

func (s *Session) UpdateQty(ctx context.Context, itemID string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.UpdateQty(itemID, qty)
	return s.storage.Save(ctx, s.ID, s.cart)
}

func (s *Session) RemoveLine(ctx context.Context, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.RemoveLine(itemID)
	return s.storage.Save(ctx, s.ID, s.cart)
}

// Clear empties the basket and removes the persisted copy.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.Clear()
	return s.storage.Delete(ctx, s.ID)
}

// Snapshot returns a copy of the current lines, safe to keep after further
// mutations.
func (s *Session) Snapshot() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := make([]Line, len(s.cart.Lines))
	copy(lines, s.cart.Lines)
	return lines
}

func (s *Session) Total() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Total()
}

func (s *Session) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Count()
}

func (s *Session) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Empty()
}

func (s *Session) ShopID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.ShopID()
}
