package shop

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/dessert-shop/internal/infrastructure/store"
)

var (
	ErrShopNotFound = errors.New("shop not found")
	ErrInvalidShop  = errors.New("shop profile is incomplete")
	ErrInvalidItem  = errors.New("item is invalid")
)

// Shop is a seller profile. The document id equals the owning user's id, so
// one account owns exactly one shop.
type Shop struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Item is a purchasable dessert scoped to one shop.
type Item struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	Available   bool   `json:"available"`
}

// Service reads and maintains the catalog: shop profiles and their items.
type Service struct {
	store store.Store
	hub   *store.Hub
}

func NewService(s store.Store, hub *store.Hub) *Service {
	return &Service{store: s, hub: hub}
}

// SaveProfile upserts the shop profile owned by shopID.
func (s *Service) SaveProfile(ctx context.Context, shopID, name, address, imageURL string) (*Shop, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidShop)
	}

	sh := &Shop{
		ID:       shopID,
		Name:     name,
		Address:  address,
		ImageURL: imageURL,
	}
	if existing, err := s.Get(ctx, shopID); err == nil {
		sh.CreatedAt = existing.CreatedAt
	} else {
		sh.CreatedAt = time.Now()
	}

	if err := s.store.Set(ctx, store.CollectionShops, shopID, sh); err != nil {
		return nil, fmt.Errorf("failed to save shop profile: %w", err)
	}
	return sh, nil
}

func (s *Service) Get(ctx context.Context, shopID string) (*Shop, error) {
	doc, err := s.store.Get(ctx, store.CollectionShops, shopID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrShopNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeShop(doc)
}

func (s *Service) List(ctx context.Context) ([]*Shop, error) {
	docs, err := s.store.Query(ctx, store.CollectionShops)
	if err != nil {
		return nil, err
	}
	out := make([]*Shop, 0, len(docs))
	for _, doc := range docs {
		sh, err := decodeShop(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, sh)
	}
	return out, nil
}

// AddItem creates a new catalog item under the shop. New items default to
// available.
func (s *Service) AddItem(ctx context.Context, shopID string, item Item) (*Item, error) {
	if strings.TrimSpace(item.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidItem)
	}
	if item.Price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalidItem)
	}
	if _, err := s.Get(ctx, shopID); err != nil {
		return nil, err
	}

	item.Available = true
	id, err := s.store.Create(ctx, store.ItemsCollection(shopID), item)
	if err != nil {
		return nil, fmt.Errorf("failed to add item: %w", err)
	}
	item.ID = id
	return &item, nil
}

// GetItem fetches one catalog item.
func (s *Service) GetItem(ctx context.Context, shopID, itemID string) (*Item, error) {
	doc, err := s.store.Get(ctx, store.ItemsCollection(shopID), itemID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidItem, itemID)
	}
	if err != nil {
		return nil, err
	}
	it := &Item{}
	if err := doc.Decode(it); err != nil {
		return nil, fmt.Errorf("failed to decode item %s: %w", doc.ID, err)
	}
	it.ID = doc.ID
	return it, nil
}

// SetItemAvailability toggles whether customers see an item.
func (s *Service) SetItemAvailability(ctx context.Context, shopID, itemID string, available bool) error {
	err := s.store.UpdateFields(ctx, store.ItemsCollection(shopID), itemID, map[string]any{"available": available})
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrInvalidItem, itemID)
	}
	return err
}

// ListItems returns a shop's catalog. Customers only see available items;
// the owner sees everything.
func (s *Service) ListItems(ctx context.Context, shopID string, includeUnavailable bool) ([]*Item, error) {
	var filters []store.Filter
	if !includeUnavailable {
		filters = append(filters, store.Filter{Field: "available", Value: true})
	}
	docs, err := s.store.Query(ctx, store.ItemsCollection(shopID), filters...)
	if err != nil {
		return nil, err
	}
	out := make([]*Item, 0, len(docs))
	for _, doc := range docs {
		it := &Item{}
		if err := doc.Decode(it); err != nil {
			return nil, fmt.Errorf("failed to decode item %s: %w", doc.ID, err)
		}
		it.ID = doc.ID
		out = append(out, it)
	}
	return out, nil
}

// WatchShops streams whole-list snapshots of the shop directory.
func (s *Service) WatchShops() *store.Subscription {
	return s.hub.Subscribe(store.CollectionShops)
}

// WatchItems streams whole-list snapshots of one shop's catalog.
func (s *Service) WatchItems(shopID string) *store.Subscription {
	return s.hub.Subscribe(store.ItemsCollection(shopID))
}

func decodeShop(doc store.Document) (*Shop, error) {
	sh := &Shop{}
	if err := doc.Decode(sh); err != nil {
		return nil, fmt.Errorf("failed to decode shop %s: %w", doc.ID, err)
	}
	sh.ID = doc.ID
	return sh, nil
}
