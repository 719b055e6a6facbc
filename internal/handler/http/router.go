package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Jis87-63/moz-digital-store/internal/cart"
	"github.com/Jis87-63/moz-digital-store/internal/catalog"
	"github.com/Jis87-63/moz-digital-store/internal/identity"
	"github.com/Jis87-63/moz-digital-store/internal/service"
	"github.com/Jis87-63/moz-digital-store/pkg/health"
	"github.com/Jis87-63/moz-digital-store/pkg/middleware"
)

const serviceName = "storefront"

// RouterConfig holds the HTTP-level settings of the router.
type RouterConfig struct {
	CORSOrigins    []string
	RequestTimeout time.Duration
	CatalogMaxAge  int
	PprofEnabled   bool
	PprofCIDRs     []string
}

// Deps are the components the router exposes.
type Deps struct {
	Catalog  *catalog.Catalog
	Carts    *cart.Registry
	Gate     *identity.Gate
	Checkout *service.CheckoutService
	Admin    *service.AdminService
	Support  *service.SupportService
	Health   *health.Handler
	Metrics  *middleware.HTTPMetrics
	Limiter  *middleware.RateLimiter
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(deps Deps, cfg RouterConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware. The request timeout is applied per group so catalog
	// streams can stay open.
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(middleware.RequestLogging(logger))
	r.Use(deps.Metrics.Middleware)
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: cfg.CORSOrigins,
	}))

	// Health check endpoints
	r.Get("/health/live", deps.Health.LivenessHandler())
	r.Get("/health/ready", deps.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	if cfg.PprofEnabled {
		middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)
	}

	catalogHandler := NewCatalogHandler(deps.Catalog, logger)
	cartHandler := NewCartHandler(deps.Catalog, logger)
	checkoutHandler := NewCheckoutHandler(deps.Checkout, deps.Catalog, logger)
	authHandler := NewAuthHandler(deps.Gate, logger)
	supportHandler := NewSupportHandler(deps.Support, logger)
	adminHandler := NewAdminHandler(deps.Admin, logger)
	mediaHandler := NewMediaHandler(deps.Admin, logger)

	r.With(chimw.Timeout(cfg.RequestTimeout)).Get("/media/{id}", mediaHandler.ServeImage)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(deps.Gate.TokenValidator()))
		r.Use(middleware.RequestLogger(logger))
		r.Use(Identities(deps.Gate, logger))

		// Live catalog streams, open until the client disconnects.
		r.Group(func(r chi.Router) {
			r.Use(middleware.NoStore)
			r.Get("/products/stream", catalogHandler.StreamProducts)
			r.Get("/promotions/stream", catalogHandler.StreamPromotions)
			r.Get("/categories/stream", catalogHandler.StreamCategories)
			r.Get("/banners/stream", catalogHandler.StreamBanners)
		})

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(cfg.RequestTimeout))

			// Catalog
			r.Group(func(r chi.Router) {
				r.Use(middleware.CacheControl(cfg.CatalogMaxAge))
				r.Get("/products", catalogHandler.ListProducts)
				r.Get("/products/{id}", catalogHandler.GetProduct)
				r.Get("/promotions", catalogHandler.ListPromotions)
				r.Get("/categories", catalogHandler.ListCategories)
				r.Get("/banners", catalogHandler.ListBanners)
			})

			// Auth
			r.Route("/auth", func(r chi.Router) {
				r.Use(middleware.NoStore)
				r.Use(deps.Limiter.Middleware(logger))
				r.Post("/signup", authHandler.SignUp)
				r.Post("/signin", authHandler.SignIn)
				r.Post("/signout", authHandler.SignOut)
				r.Get("/me", authHandler.Me)
			})

			// Session-scoped routes
			r.Group(func(r chi.Router) {
				r.Use(middleware.NoStore)
				r.Use(Sessions(deps.Carts))

				r.Route("/cart", func(r chi.Router) {
					r.Get("/", cartHandler.GetCart)
					r.Delete("/", cartHandler.ClearCart)
					r.Post("/items", cartHandler.AddItem)
					r.Put("/items/{productId}", cartHandler.UpdateQuantity)
					r.Delete("/items/{productId}", cartHandler.RemoveItem)
				})

				r.Route("/checkout", func(r chi.Router) {
					r.Use(deps.Limiter.Middleware(logger))
					r.Post("/cart", checkoutHandler.CheckoutCart)
					r.Post("/buy-now", checkoutHandler.BuyNow)
				})

				r.Post("/support", supportHandler.Submit)
			})

			r.With(middleware.NoStore).Get("/payments/{transactionId}/status", checkoutHandler.PaymentStatus)

			// Admin panel
			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.NoStore)
				r.Use(RequireAdmin(logger))

				r.Get("/products", adminHandler.ListProducts)
				r.Post("/products", adminHandler.CreateProduct)
				r.Put("/products/{id}", adminHandler.UpdateProduct)
				r.Delete("/products/{id}", adminHandler.DeleteProduct)

				r.Post("/categories", adminHandler.CreateCategory)
				r.Put("/categories/{id}", adminHandler.UpdateCategory)
				r.Delete("/categories/{id}", adminHandler.DeleteCategory)

				r.Post("/banners", adminHandler.CreateBanner)
				r.Put("/banners/{id}", adminHandler.UpdateBanner)
				r.Delete("/banners/{id}", adminHandler.DeleteBanner)

				r.Get("/support", adminHandler.ListSupportMessages)
				r.Put("/support/{id}/read", adminHandler.MarkSupportMessageRead)

				r.Put("/users/{id}/admin", adminHandler.SetAdmin)

				r.Post("/media", adminHandler.UploadImage)
			})
		})
	})

	return r
}
