package router

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/simplestore/storefront/app/accounts"
	"github.com/simplestore/storefront/app/api"
	"github.com/simplestore/storefront/app/cart"
	"github.com/simplestore/storefront/app/catalog"
	"github.com/simplestore/storefront/app/checkout"
	"github.com/simplestore/storefront/app/logger"
	"github.com/simplestore/storefront/app/orders"
	"github.com/simplestore/storefront/app/session"
	"github.com/simplestore/storefront/models"
)

const loginURL = "/login/"

type Deps struct {
	Store    *models.Store
	Sessions *session.Manager
	Logger   *zap.Logger
	// Ping reports whether the database is reachable.
	Ping func(ctx context.Context) error
}

// New wires every storefront route behind request logging, panic recovery
// and the session middleware.
func New(deps Deps) http.Handler {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	catalogHandler := catalog.NewCatalogHandler(deps.Store.Products)
	cartHandler := cart.NewCartHandler(deps.Store.Products)
	checkoutHandler := checkout.NewCheckoutHandler(
		checkout.NewService(checkout.NewGormStore(deps.Store)),
		deps.Store.Products,
		deps.Store.Users,
	)
	ordersHandler := orders.NewOrdersHandler(deps.Store.Orders)
	accountsHandler := accounts.NewAccountsHandler(deps.Store.Users)

	requireLogin := session.RequireLogin(loginURL)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", catalogHandler.HandleGet)
	mux.HandleFunc("GET /product/{id}/{$}", catalogHandler.HandleGetProduct)

	mux.HandleFunc("GET /cart/{$}", cartHandler.HandleView)
	mux.HandleFunc("POST /cart/add/{id}/{$}", cartHandler.HandleAdd)
	mux.HandleFunc("POST /cart/remove/{id}/{$}", cartHandler.HandleRemove)

	mux.Handle("GET /checkout/{$}", requireLogin(http.HandlerFunc(checkoutHandler.HandleGet)))
	mux.Handle("POST /checkout/{$}", requireLogin(http.HandlerFunc(checkoutHandler.HandlePost)))

	mux.Handle("GET /orders/{id}/{$}", requireLogin(http.HandlerFunc(ordersHandler.HandleGet)))

	mux.HandleFunc("GET /register/{$}", accountsHandler.HandleRegisterForm)
	mux.HandleFunc("POST /register/{$}", accountsHandler.HandleRegister)
	mux.HandleFunc("GET "+loginURL+"{$}", accountsHandler.HandleLoginForm)
	mux.HandleFunc("POST "+loginURL+"{$}", accountsHandler.HandleLogin)
	mux.HandleFunc("POST /logout/{$}", accountsHandler.HandleLogout)

	mux.HandleFunc("GET /healthz", healthHandler(deps.Ping))

	var handler http.Handler = mux
	handler = deps.Sessions.Middleware(handler)
	handler = logger.Recovery(log)(handler)
	handler = logger.Middleware(log)(handler)
	return handler
}

func healthHandler(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			if err := ping(r.Context()); err != nil {
				logger.FromContext(r.Context()).Error("health check failed", zap.Error(err))
				api.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		api.OKResponse(w, map[string]string{"status": "ok"})
	}
}
