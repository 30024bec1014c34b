package cart

import (
	"context"
	"errors"

	"github.com/example/dessert-shop/internal/infrastructure/store"
)

// Storage persists one cart per session under a fixed key, so a basket
// survives reconnects until it is cleared or turned into an order.
type Storage interface {
	Load(ctx context.Context, sessionID string) (*Cart, error)
	Save(ctx context.Context, sessionID string, c *Cart) error
	Delete(ctx context.Context, sessionID string) error
}

// DocStorage keeps carts in the document store's carts collection, one
// document per session, document id = session id.
type DocStorage struct {
	store store.Store
}

func NewDocStorage(s store.Store) *DocStorage {
	return &DocStorage{store: s}
}

func (ds *DocStorage) Load(ctx context.Context, sessionID string) (*Cart, error) {
	doc, err := ds.store.Get(ctx, store.CollectionCarts, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return New(), nil
	}
	if err != nil {
		return nil, err
	}

	c := New()
	if err := doc.Decode(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (ds *DocStorage) Save(ctx context.Context, sessionID string, c *Cart) error {
	return ds.store.Set(ctx, store.CollectionCarts, sessionID, c)
}

func (ds *DocStorage) Delete(ctx context.Context, sessionID string) error {
	return ds.store.Set(ctx, store.CollectionCarts, sessionID, New())
}
