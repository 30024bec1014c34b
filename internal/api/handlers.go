package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/example/dessert-shop/internal/api/middleware"
	"github.com/example/dessert-shop/internal/auth"
	"github.com/example/dessert-shop/internal/domain/cart"
	"github.com/example/dessert-shop/internal/domain/order"
	"github.com/example/dessert-shop/internal/domain/shop"
)

type Handlers struct {
	shops  *shop.Service
	orders *order.Service
	carts  cart.Storage
}

func NewHandlers(shops *shop.Service, orders *order.Service, carts cart.Storage) *Handlers {
	return &Handlers{
		shops:  shops,
		orders: orders,
		carts:  carts,
	}
}

// Shop Handlers

func (h *Handlers) GetShops(w http.ResponseWriter, r *http.Request) {
	shops, err := h.shops.List(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, shops)
}

// ShopsPublic serves GET /shops/{id} and GET /shops/{id}/items.
func (h *Handlers) ShopsPublic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rest := extractPathParam(r.URL.Path, "/shops/")
	switch id, sub := splitPath(rest); sub {
	case "":
		sh, err := h.shops.Get(r.Context(), id)
		if err != nil {
			respondDomainError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, sh)
	case "items":
		// Owners see their full catalog; everyone else only available items.
		includeUnavailable := middleware.GetUserID(r.Context()) == id
		items, err := h.shops.ListItems(r.Context(), id, includeUnavailable)
		if err != nil {
			respondDomainError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, items)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

// SaveShopProfile upserts the caller's shop profile. The shop document id is
// the owner's user id.
func (h *Handlers) SaveShopProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Name     string `json:"name"`
		Address  string `json:"address"`
		ImageURL string `json:"imageUrl"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	sh, err := h.shops.SaveProfile(r.Context(), middleware.GetUserID(r.Context()), req.Name, req.Address, req.ImageURL)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sh)
}

// MyShopItems serves the owner's catalog admin: POST /shops/me/items,
// GET /shops/me/items and PATCH /shops/me/items/{itemID}.
func (h *Handlers) MyShopItems(w http.ResponseWriter, r *http.Request) {
	shopID := middleware.GetUserID(r.Context())
	itemID := extractPathParam(r.URL.Path, "/shops/me/items")
	itemID = strings.TrimPrefix(itemID, "/")

	switch {
	case r.Method == http.MethodGet && itemID == "":
		items, err := h.shops.ListItems(r.Context(), shopID, true)
		if err != nil {
			respondDomainError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, items)

	case r.Method == http.MethodPost && itemID == "":
		var req shop.Item
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondJSONError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		item, err := h.shops.AddItem(r.Context(), shopID, req)
		if err != nil {
			respondDomainError(w, err)
			return
		}
		respondJSON(w, http.StatusCreated, item)

	case r.Method == http.MethodPatch && itemID != "":
		var req struct {
			Available bool `json:"available"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondJSONError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if err := h.shops.SetItemAvailability(r.Context(), shopID, itemID, req.Available); err != nil {
			respondDomainError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"message": "Item updated"})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Cart Handlers

type cartResponse struct {
	Lines []cart.Line `json:"lines"`
	Total int64       `json:"total"`
	Count int         `json:"count"`
}

func (h *Handlers) openSession(r *http.Request) (*cart.Session, error) {
	return cart.OpenSession(r.Context(), middleware.GetSessionID(r.Context()), h.carts)
}

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	sess, err := h.openSession(r)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondCart(w, sess)
}

func (h *Handlers) ClearCart(w http.ResponseWriter, r *http.Request) {
	sess, err := h.openSession(r)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if err := sess.Clear(r.Context()); err != nil {
		respondDomainError(w, err)
		return
	}
	respondCart(w, sess)
}

// AddToCart resolves the item against the catalog so the stored line carries
// the server's price, not the client's.
func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ShopID   string `json:"shopId"`
		ItemID   string `json:"itemId"`
		Quantity int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	item, err := h.shops.GetItem(r.Context(), req.ShopID, req.ItemID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if !item.Available {
		respondJSONError(w, "Item is not available", http.StatusBadRequest)
		return
	}

	sess, err := h.openSession(r)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	line := cart.Line{
		ItemID: item.ID,
		Name:   item.Name,
		Price:  item.Price,
		ShopID: req.ShopID,
	}
	if err := sess.AddLine(r.Context(), line, req.Quantity); err != nil {
		respondDomainError(w, err)
		return
	}
	respondCart(w, sess)
}

// CartItem serves PATCH /cart/items/{itemID} (set quantity) and
// DELETE /cart/items/{itemID}.
func (h *Handlers) CartItem(w http.ResponseWriter, r *http.Request) {
	itemID := extractPathParam(r.URL.Path, "/cart/items/")
	if itemID == "" {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	sess, err := h.openSession(r)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	switch r.Method {
	case http.MethodPatch:
		var req struct {
			Quantity int `json:"quantity"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondJSONError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if err := sess.UpdateQty(r.Context(), itemID, req.Quantity); err != nil {
			respondDomainError(w, err)
			return
		}
	case http.MethodDelete:
		if err := sess.RemoveLine(r.Context(), itemID); err != nil {
			respondDomainError(w, err)
			return
		}
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	respondCart(w, sess)
}

// Order Handlers

func (h *Handlers) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address order.Address `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	sess, err := h.openSession(r)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	// Guests may order; the customer id is empty for them.
	o, err := h.orders.Place(r.Context(), sess, req.Address, middleware.GetUserID(r.Context()))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, o)
}

// GetOrders returns the caller's orders: a customer's own history, a shop's
// incoming orders, or a delivery agent's pickup list.
func (h *Handlers) GetOrders(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var (
		orders []*order.Order
		err    error
	)
	switch claims.Role {
	case auth.RoleShop:
		orders, err = h.orders.ListByShop(r.Context(), claims.UserID)
	case auth.RoleDelivery:
		orders, err = h.orders.ListForDelivery(r.Context(), claims.UserID)
	default:
		orders, err = h.orders.ListByCustomer(r.Context(), claims.UserID)
	}
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

// OrderByID serves GET /orders/{id} and POST /orders/{id}/status.
func (h *Handlers) OrderByID(w http.ResponseWriter, r *http.Request) {
	rest := extractPathParam(r.URL.Path, "/orders/")
	id, sub := splitPath(rest)

	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	switch {
	case sub == "" && r.Method == http.MethodGet:
		o, err := h.orders.Get(r.Context(), id)
		if err != nil {
			respondDomainError(w, err)
			return
		}
		if !orderVisibleTo(o, claims) {
			respondJSONError(w, "forbidden", http.StatusForbidden)
			return
		}
		respondJSON(w, http.StatusOK, o)

	case sub == "status" && r.Method == http.MethodPost:
		var req struct {
			Status order.Status `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondJSONError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		actor := order.Actor{ID: claims.UserID, Role: order.Role(claims.Role)}
		o, err := h.orders.Transition(r.Context(), id, actor, req.Status)
		if err != nil {
			respondDomainError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, o)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// orderVisibleTo mirrors the dashboard views: customers see their own
// orders, shops the orders placed against them, delivery agents anything
// waiting for pickup plus their assigned runs.
func orderVisibleTo(o *order.Order, claims *auth.Claims) bool {
	switch claims.Role {
	case auth.RoleShop:
		return o.ShopID == claims.UserID
	case auth.RoleDelivery:
		return o.Status == order.StatusReady || o.DeliveryID == claims.UserID
	default:
		return o.CustomerID == claims.UserID
	}
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondCart(w http.ResponseWriter, sess *cart.Session) {
	respondJSON(w, http.StatusOK, cartResponse{
		Lines: sess.Snapshot(),
		Total: sess.Total(),
		Count: sess.Count(),
	})
}

// respondDomainError maps domain errors onto HTTP statuses. Anything not
// recognized is treated as a backend failure.
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, order.ErrOrderNotFound), errors.Is(err, shop.ErrShopNotFound):
		respondJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, order.ErrUnauthorized):
		respondJSONError(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, order.ErrInvalidTransition):
		respondJSONError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrMissingAddress),
		errors.Is(err, shop.ErrInvalidShop),
		errors.Is(err, shop.ErrInvalidItem):
		respondJSONError(w, err.Error(), http.StatusBadRequest)
	default:
		respondJSONError(w, "backend unavailable", http.StatusBadGateway)
	}
}

func extractPathParam(path, prefix string) string {
	return strings.TrimPrefix(path, prefix)
}

// splitPath splits "abc/def" into ("abc", "def"); a bare "abc" yields
// ("abc", "").
func splitPath(rest string) (string, string) {
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return rest[:i], rest[i+1:]
	}
	return rest, ""
}
