package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/anavasquez/restyle-backend/api/controllers"
	"github.com/anavasquez/restyle-backend/api/middleware"
	"github.com/anavasquez/restyle-backend/internal/addresses"
	authsvc "github.com/anavasquez/restyle-backend/internal/auth"
	"github.com/anavasquez/restyle-backend/internal/cart"
	checkoutsvc "github.com/anavasquez/restyle-backend/internal/checkout"
	"github.com/anavasquez/restyle-backend/internal/exchanges"
	"github.com/anavasquez/restyle-backend/internal/invoices"
	"github.com/anavasquez/restyle-backend/internal/products"
	"github.com/anavasquez/restyle-backend/internal/users"
	"github.com/anavasquez/restyle-backend/pkg/config"
	"github.com/anavasquez/restyle-backend/pkg/logger"
)

// Pinger reports the health of a backing store.
type Pinger = controllers.Pinger

// Deps bundles everything the router wires into handlers.
type Deps struct {
	Config *config.Config
	Logger *logger.Logger

	DB    Pinger
	Cache Pinger

	Registry prometheus.Gatherer

	AuthService     authsvc.Service
	UserService     users.Service
	ProductService  products.Service
	CartService     cart.Service
	CheckoutService checkoutsvc.Service
	ExchangeService exchanges.Service
	InvoiceService  invoices.Service
	AddressService  addresses.Service
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.DB, d.Cache))
	})

	if d.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/register", controllers.AuthRegister(d.AuthService, logg))
		r.Post("/login", controllers.AuthLogin(d.AuthService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/users", func(r chi.Router) {
			r.Get("/me", controllers.UserProfile(d.UserService, logg))
			r.Get("/{userId}", controllers.UserDetail(d.UserService, logg))
			r.Get("/{userId}/products", controllers.ProductsByUser(d.ProductService, logg))
			r.Get("/{userId}/exchanges/owned", controllers.ExchangesByOwner(d.ExchangeService, logg))
			r.Get("/{userId}/exchanges/requested", controllers.ExchangesByRequester(d.ExchangeService, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(d.ProductService, logg))
			r.Get("/search", controllers.ProductSearch(d.ProductService, logg))
			r.Get("/by-status", controllers.ProductsByStatus(d.ProductService, logg))
			r.Post("/", controllers.ProductCreate(d.ProductService, logg))
			r.Get("/{productId}", controllers.ProductDetail(d.ProductService, logg))
			r.Patch("/{productId}", controllers.ProductUpdate(d.ProductService, logg))
			r.Delete("/{productId}", controllers.ProductDelete(d.ProductService, logg))
			r.Post("/{productId}/status", controllers.ProductTransitionStatus(d.ProductService, logg))
		})

		r.Get("/categories/{categoryId}/products", controllers.ProductsByCategory(d.ProductService, logg))

		r.Route("/carts", func(r chi.Router) {
			r.Get("/me", controllers.CartFetch(d.CartService, logg))
			r.Post("/{cartId}/products", controllers.CartAddProduct(d.CartService, logg))
			r.Delete("/{cartId}/products/{productId}", controllers.CartRemoveProduct(d.CartService, logg))
			r.Delete("/{cartId}/products", controllers.CartClear(d.CartService, logg))
			r.Get("/{cartId}/total", controllers.CartTotal(d.CartService, logg))
			r.Post("/{cartId}/checkout", controllers.Checkout(d.CheckoutService, logg))
		})

		r.Route("/exchanges", func(r chi.Router) {
			r.Post("/", controllers.ExchangePropose(d.ExchangeService, logg))
			r.Get("/{exchangeId}", controllers.ExchangeDetail(d.ExchangeService, logg))
			r.Post("/{exchangeId}/accept", controllers.ExchangeAccept(d.ExchangeService, logg))
			r.Post("/{exchangeId}/status", controllers.ExchangeUpdateStatus(d.ExchangeService, logg))
		})

		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", controllers.InvoicesByUser(d.InvoiceService, logg))
			r.Get("/{invoiceId}", controllers.InvoiceDetail(d.InvoiceService, logg))
		})

		r.Route("/addresses", func(r chi.Router) {
			r.Get("/", controllers.AddressList(d.AddressService, logg))
			r.Post("/", controllers.AddressCreate(d.AddressService, logg))
			r.Get("/{addressId}", controllers.AddressDetail(d.AddressService, logg))
			r.Put("/{addressId}", controllers.AddressUpdate(d.AddressService, logg))
			r.Delete("/{addressId}", controllers.AddressDelete(d.AddressService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole("ADMIN", logg))

		r.Get("/exchanges", controllers.ExchangeList(d.ExchangeService, logg))
		r.Delete("/exchanges/{exchangeId}", controllers.ExchangeDelete(d.ExchangeService, logg))
	})

	return r
}
