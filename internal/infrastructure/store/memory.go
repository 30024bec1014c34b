package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory document store, used in tests and local
// development.
type MemoryStore struct {
	mu       sync.RWMutex
	data     map[string]map[string]Document // collection -> id -> document
	notifier Notifier
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]map[string]Document),
	}
}

// SetNotifier attaches a change notifier. Must be called before the store
// receives writes.
func (ms *MemoryStore) SetNotifier(n Notifier) {
	ms.notifier = n
}

func (ms *MemoryStore) Create(ctx context.Context, collection string, data any) (string, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	id := uuid.New().String()
	now := time.Now()

	ms.mu.Lock()
	if ms.data[collection] == nil {
		ms.data[collection] = make(map[string]Document)
	}
	ms.data[collection][id] = Document{
		ID:         id,
		Collection: collection,
		Data:       body,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	ms.mu.Unlock()

	ms.notify(Change{Collection: collection, DocID: id, Kind: ChangeCreated})
	return id, nil
}

func (ms *MemoryStore) Set(ctx context.Context, collection, id string, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return err
	}

	now := time.Now()
	kind := ChangeUpdated

	ms.mu.Lock()
	if ms.data[collection] == nil {
		ms.data[collection] = make(map[string]Document)
	}
	doc, existed := ms.data[collection][id]
	if !existed {
		kind = ChangeCreated
		doc = Document{ID: id, Collection: collection, CreatedAt: now}
	}
	doc.Data = body
	doc.UpdatedAt = now
	ms.data[collection][id] = doc
	ms.mu.Unlock()

	ms.notify(Change{Collection: collection, DocID: id, Kind: kind})
	return nil
}

func (ms *MemoryStore) Get(ctx context.Context, collection, id string) (Document, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	doc, ok := ms.data[collection][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

func (ms *MemoryStore) UpdateFields(ctx context.Context, collection, id string, fields map[string]any) error {
	ms.mu.Lock()
	doc, ok := ms.data[collection][id]
	if !ok {
		ms.mu.Unlock()
		return ErrNotFound
	}

	merged, err := mergeFields(doc.Data, fields)
	if err != nil {
		ms.mu.Unlock()
		return err
	}
	doc.Data = merged
	doc.UpdatedAt = time.Now()
	ms.data[collection][id] = doc
	ms.mu.Unlock()

	ms.notify(Change{Collection: collection, DocID: id, Kind: ChangeUpdated})
	return nil
}

func (ms *MemoryStore) Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var out []Document
	for _, doc := range ms.data[collection] {
		body := make(map[string]any)
		if err := json.Unmarshal(doc.Data, &body); err != nil {
			return nil, err
		}
		if matches(body, filters) {
			out = append(out, doc)
		}
	}

	// Map iteration order is random; keep results stable for consumers.
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (ms *MemoryStore) notify(change Change) {
	if ms.notifier != nil {
		ms.notifier.Notify(change)
	}
}
