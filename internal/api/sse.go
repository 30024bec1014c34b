package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/example/dessert-shop/internal/api/middleware"
	"github.com/example/dessert-shop/internal/auth"
	"github.com/example/dessert-shop/internal/domain/order"
	"github.com/example/dessert-shop/internal/domain/shop"
	"github.com/example/dessert-shop/internal/infrastructure/store"
)

// The watch endpoints stream whole-list snapshots as server-sent events.
// Every event replaces the client's previous list, so a reconnect only
// costs one redundant snapshot.

// WatchShops streams the shop directory.
func (h *Handlers) WatchShops(w http.ResponseWriter, r *http.Request) {
	streamSSE(w, r, h.shops.WatchShops(), decodeShopDocs)
}

// WatchShopItems streams one shop's catalog. Path: /watch/shops/{id}/items.
func (h *Handlers) WatchShopItems(w http.ResponseWriter, r *http.Request) {
	rest := extractPathParam(r.URL.Path, "/watch/shops/")
	id, sub := splitPath(rest)
	if id == "" || sub != "items" {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	streamSSE(w, r, h.shops.WatchItems(id), decodeItemDocs)
}

// WatchOrders streams the caller's order view, shaped by role exactly like
// GetOrders.
func (h *Handlers) WatchOrders(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	switch claims.Role {
	case auth.RoleShop:
		streamSSE(w, r, h.orders.WatchByShop(claims.UserID), decodeOrderDocs(nil))
	case auth.RoleDelivery:
		agentID := claims.UserID
		streamSSE(w, r, h.orders.WatchAll(), decodeOrderDocs(func(orders []*order.Order) []*order.Order {
			return order.ForDelivery(orders, agentID)
		}))
	default:
		streamSSE(w, r, h.orders.WatchByCustomer(claims.UserID), decodeOrderDocs(nil))
	}
}

func streamSSE(w http.ResponseWriter, r *http.Request, sub *store.Subscription, encode func([]store.Document) (any, error)) {
	defer sub.Close()

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case docs, open := <-sub.C:
			if !open {
				return
			}
			payload, err := encode(docs)
			if err != nil {
				continue
			}
			data, err := json.Marshal(payload)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func decodeShopDocs(docs []store.Document) (any, error) {
	out := make([]*shop.Shop, 0, len(docs))
	for _, doc := range docs {
		sh := &shop.Shop{}
		if err := doc.Decode(sh); err != nil {
			return nil, err
		}
		sh.ID = doc.ID
		out = append(out, sh)
	}
	return out, nil
}

func decodeItemDocs(docs []store.Document) (any, error) {
	out := make([]*shop.Item, 0, len(docs))
	for _, doc := range docs {
		it := &shop.Item{}
		if err := doc.Decode(it); err != nil {
			return nil, err
		}
		it.ID = doc.ID
		out = append(out, it)
	}
	return out, nil
}

func decodeOrderDocs(filter func([]*order.Order) []*order.Order) func([]store.Document) (any, error) {
	return func(docs []store.Document) (any, error) {
		out := make([]*order.Order, 0, len(docs))
		for _, doc := range docs {
			o, err := order.Decode(doc)
			if err != nil {
				return nil, err
			}
			out = append(out, o)
		}
		if filter != nil {
			if out = filter(out); out == nil {
				out = []*order.Order{}
			}
		}
		return out, nil
	}
}
