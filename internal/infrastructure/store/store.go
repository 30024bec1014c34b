package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"
)

var ErrNotFound = errors.New("document not found")

// Collections used by the storefront.
const (
	CollectionShops  = "shops"
	CollectionOrders = "orders"
	CollectionUsers  = "users"
	CollectionCarts  = "carts"
)

// ItemsCollection returns the subcollection path holding a shop's catalog.
func ItemsCollection(shopID string) string {
	return CollectionShops + "/" + shopID + "/items"
}

// Document is a stored record. Data holds the JSON-encoded body; CreatedAt
// and UpdatedAt are assigned by the store, not the caller.
type Document struct {
	ID         string          `json:"id"`
	Collection string          `json:"collection"`
	Data       json.RawMessage `json:"data"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Decode unmarshals the document body into v.
func (d Document) Decode(v any) error {
	return json.Unmarshal(d.Data, v)
}

// Filter is an equality condition on a top-level field of the document body.
type Filter struct {
	Field string
	Value any
}

// Store is the document storage contract: create with a generated id, upsert
// under a caller-chosen id, merge-update, point get and equality-filtered
// query.
type Store interface {
	Create(ctx context.Context, collection string, data any) (string, error)
	Set(ctx context.Context, collection, id string, data any) error
	Get(ctx context.Context, collection, id string) (Document, error)
	UpdateFields(ctx context.Context, collection, id string, fields map[string]any) error
	Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error)
}

// ChangeKind discriminates document change notifications.
type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
)

// Change describes one committed write.
type Change struct {
	Collection string     `json:"collection"`
	DocID      string     `json:"doc_id"`
	Kind       ChangeKind `json:"kind"`
}

// Notifier receives change notifications after a write commits.
type Notifier interface {
	Notify(change Change)
}

// jsonEqual compares two values by their JSON encoding, which normalizes
// numeric types across decode boundaries.
func jsonEqual(a, b any) bool {
	ja, err := json.Marshal(a)
	if err != nil {
		return false
	}
	jb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ja, jb)
}

// matches reports whether a decoded document body satisfies all filters.
func matches(body map[string]any, filters []Filter) bool {
	for _, f := range filters {
		v, ok := body[f.Field]
		if !ok || !jsonEqual(v, f.Value) {
			return false
		}
	}
	return true
}

// mergeFields applies a top-level field merge to a JSON body.
func mergeFields(data json.RawMessage, fields map[string]any) (json.RawMessage, error) {
	body := make(map[string]any)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &body); err != nil {
			return nil, err
		}
	}
	for k, v := range fields {
		body[k] = v
	}
	return json.Marshal(body)
}
