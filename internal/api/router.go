package api

import (
	"log"
	"net/http"

	"github.com/example/dessert-shop/internal/api/middleware"
	"github.com/example/dessert-shop/internal/auth"
)

func NewRouter(handlers *Handlers, authHandlers *AuthHandlers, jwtService *auth.JWTService, webDir string) http.Handler {
	mux := http.NewServeMux()

	requireAuth := middleware.AuthMiddleware(jwtService)
	optionalAuth := middleware.OptionalAuthMiddleware(jwtService)
	requireShop := middleware.RequireRole(auth.RoleShop)

	// withSession runs after optionalAuth so a signed-in customer's cart
	// follows their account.
	withSession := func(h http.HandlerFunc) http.Handler {
		return optionalAuth(middleware.SessionMiddleware(h))
	}

	// Static files (web UI)
	if webDir != "" {
		fs := http.FileServer(http.Dir(webDir))
		mux.Handle("/", fs)
	}

	// Auth
	mux.HandleFunc("/api/auth/register", methodOnly(http.MethodPost, authHandlers.Register))
	mux.HandleFunc("/api/auth/login", methodOnly(http.MethodPost, authHandlers.Login))
	mux.HandleFunc("/api/auth/logout", methodOnly(http.MethodPost, authHandlers.Logout))
	mux.HandleFunc("/api/auth/refresh", methodOnly(http.MethodPost, authHandlers.Refresh))
	mux.Handle("/api/auth/me", requireAuth(http.HandlerFunc(authHandlers.Me)))

	// Shops. The longest-prefix rule sends /shops/me/* to the owner routes
	// and everything else under /shops/ to the public ones.
	mux.HandleFunc("/shops", methodOnly(http.MethodGet, handlers.GetShops))
	mux.Handle("/shops/me", requireAuth(requireShop(http.HandlerFunc(handlers.SaveShopProfile))))
	mux.Handle("/shops/me/", requireAuth(requireShop(http.HandlerFunc(handlers.MyShopItems))))
	mux.Handle("/shops/", optionalAuth(http.HandlerFunc(handlers.ShopsPublic)))

	// Cart
	mux.Handle("/cart", withSession(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handlers.GetCart(w, r)
		case http.MethodDelete:
			handlers.ClearCart(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}))
	mux.Handle("/cart/items", withSession(methodOnly(http.MethodPost, handlers.AddToCart)))
	mux.Handle("/cart/items/", withSession(handlers.CartItem))

	// Orders
	mux.Handle("/orders", withSession(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			handlers.PlaceOrder(w, r)
		case http.MethodGet:
			handlers.GetOrders(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}))
	mux.Handle("/orders/", requireAuth(http.HandlerFunc(handlers.OrderByID)))

	// Live views
	mux.HandleFunc("/watch/shops", methodOnly(http.MethodGet, handlers.WatchShops))
	mux.HandleFunc("/watch/shops/", methodOnly(http.MethodGet, handlers.WatchShopItems))
	mux.Handle("/watch/orders", requireAuth(http.HandlerFunc(handlers.WatchOrders)))

	return withLogging(mux)
}

func methodOnly(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[API] %s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
