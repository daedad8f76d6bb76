package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	webhookcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/webhooks"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/address"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/internal/reviews"
	"github.com/angelmondragon/storefront-backend/internal/support"
	"github.com/angelmondragon/storefront-backend/internal/users"
	stripewebhook "github.com/angelmondragon/storefront-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/storefront-backend/internal/wishlist"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
	"github.com/angelmondragon/storefront-backend/pkg/stripe"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

// redisStore backs idempotency and the auth/contact rate limits.
type redisStore interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type httpMetrics interface {
	ObserveHTTP(method, route string, status int, elapsed time.Duration)
}

type dlqLister interface {
	List(ctx context.Context, limit int) ([]models.OutboxDLQ, error)
}

// Dependencies carries everything the HTTP surface needs. Nil services make
// their handlers answer 500; nil Stripe pieces leave the webhook unmounted.
type Dependencies struct {
	Config *config.Config
	Logger *logger.Logger

	Ready          map[string]controllers.Pinger
	Redis          redisStore
	Sessions       sessionManager
	Metrics        httpMetrics
	MetricsHandler http.Handler

	Auth      auth.Service
	Register  auth.RegisterService
	Users     users.Service
	Addresses address.Service
	Catalog   catalog.Service
	Images    catalog.ImageService
	Cart      cart.Service
	Wishlist  wishlist.Service
	Reviews   reviews.Service
	Orders    orders.Service
	Payments  payments.Service
	Support   support.Service
	OutboxDLQ dlqLister

	StripeClient  *stripe.Client
	StripeWebhook *stripewebhook.Service
	StripeGuard   *stripewebhook.IdempotencyGuard
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)
	if deps.Metrics != nil {
		r.Use(middleware.Metrics(deps.Metrics))
	}

	var (
		idempotency  = middleware.Idempotency(deps.Redis, logg)
		requireAuth  = middleware.Auth(cfg.JWT, deps.Sessions, logg)
		optionalAuth = middleware.OptionalAuth(cfg.JWT, deps.Sessions, logg)
		adminOnly    = middleware.RequireRole(enums.UserRoleAdmin, logg)
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)
	queryPolicy := middleware.NewAuthRateLimitPolicy(
		"query",
		cfg.AuthRateLimit.QueryWindow,
		cfg.AuthRateLimit.QueryIPLimit,
		0,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", controllers.HealthLive(cfg))
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.Ready, logg))
	})

	if deps.MetricsHandler != nil {
		path := cfg.App.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, deps.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if deps.StripeWebhook != nil && deps.StripeClient != nil && deps.StripeGuard != nil {
			r.Post("/webhooks/stripe", webhookcontrollers.StripeWebhook(deps.StripeWebhook, deps.StripeClient, deps.StripeGuard, logg))
		}

		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).
				Post("/login", controllers.AuthLogin(deps.Auth, deps.Cart, logg))
			r.With(middleware.AuthRateLimit(registerPolicy, deps.Redis, logg), idempotency).
				Post("/register", controllers.AuthRegister(deps.Register, deps.Auth, deps.Cart, logg))
			r.Post("/logout", controllers.AuthLogout(deps.Sessions, cfg.JWT, logg))
			r.Post("/refresh", controllers.AuthRefresh(deps.Sessions, cfg.JWT, logg))
		})

		// public catalog
		r.Get("/categories", controllers.CategoryList(deps.Catalog, logg))
		r.Get("/products", controllers.ProductList(deps.Catalog, false, logg))
		r.Get("/products/{slug}", controllers.ProductGetBySlug(deps.Catalog, logg))
		r.Get("/products/{slug}/reviews", controllers.ProductReviewList(deps.Reviews, logg))

		r.Group(func(r chi.Router) {
			r.Use(optionalAuth)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartGet(deps.Cart, logg))
				r.Delete("/", controllers.CartClear(deps.Cart, logg))
				r.Post("/items", controllers.CartAddItem(deps.Cart, logg))
				r.Patch("/items/{productID}", controllers.CartUpdateItem(deps.Cart, logg))
				r.Delete("/items/{productID}", controllers.CartRemoveItem(deps.Cart, logg))
			})

			r.With(middleware.AuthRateLimit(queryPolicy, deps.Redis, logg)).
				Post("/queries", controllers.QuerySubmit(deps.Support, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/me", controllers.MeGet(deps.Users, logg))
			r.Patch("/me", controllers.MeUpdate(deps.Users, logg))

			r.Route("/addresses", func(r chi.Router) {
				r.Get("/", controllers.AddressList(deps.Addresses, logg))
				r.Post("/", controllers.AddressCreate(deps.Addresses, logg))
				r.Get("/{addressID}", controllers.AddressGet(deps.Addresses, logg))
				r.Put("/{addressID}", controllers.AddressUpdate(deps.Addresses, logg))
				r.Delete("/{addressID}", controllers.AddressDelete(deps.Addresses, logg))
				r.Post("/{addressID}/default", controllers.AddressSetDefault(deps.Addresses, logg))
			})

			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", controllers.WishlistList(deps.Wishlist, logg))
				r.Get("/ids", controllers.WishlistIDs(deps.Wishlist, logg))
				r.Post("/", controllers.WishlistAdd(deps.Wishlist, logg))
				r.Delete("/{productID}", controllers.WishlistRemove(deps.Wishlist, logg))
			})

			r.Post("/products/{slug}/reviews", controllers.ProductReviewSubmit(deps.Reviews, logg))
			r.Delete("/products/{slug}/reviews", controllers.ProductReviewDelete(deps.Reviews, logg))

			r.Route("/orders", func(r chi.Router) {
				r.With(idempotency).Post("/", controllers.OrderCreate(deps.Orders, logg))
				r.Get("/", controllers.OrderList(deps.Orders, logg))
				r.Get("/{orderID}", controllers.OrderGet(deps.Orders, logg))
				r.With(idempotency).Post("/{orderID}/payments", controllers.PaymentInitiate(deps.Payments, logg))
			})

			r.Route("/payments/{attemptID}", func(r chi.Router) {
				r.Get("/", controllers.PaymentGet(deps.Payments, logg))
				r.With(idempotency).Post("/verify", controllers.PaymentVerify(deps.Payments, logg))
				r.With(idempotency).Post("/cancel", controllers.PaymentCancel(deps.Payments, logg))
				r.With(idempotency).Post("/fail", controllers.PaymentFail(deps.Payments, logg))
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).
				Post("/auth/login", controllers.AdminAuthLogin(deps.Auth, logg))

			r.Group(func(r chi.Router) {
				r.Use(requireAuth, adminOnly)

				r.Post("/categories", controllers.AdminCategoryCreate(deps.Catalog, logg))
				r.Patch("/categories/{categoryID}", controllers.AdminCategoryUpdate(deps.Catalog, logg))
				r.Delete("/categories/{categoryID}", controllers.AdminCategoryDelete(deps.Catalog, logg))

				r.Get("/products", controllers.ProductList(deps.Catalog, true, logg))
				r.Post("/products", controllers.AdminProductCreate(deps.Catalog, logg))
				r.Patch("/products/{productID}", controllers.AdminProductUpdate(deps.Catalog, logg))
				r.Delete("/products/{productID}", controllers.AdminProductArchive(deps.Catalog, logg))
				r.Post("/products/{productID}/image", controllers.AdminProductImageUpload(deps.Images, cfg.GCS.MaxImageBytes, logg))
				r.Delete("/products/{productID}/image", controllers.AdminProductImageDelete(deps.Images, logg))

				r.Patch("/reviews/{reviewID}", controllers.AdminReviewModerate(deps.Reviews, logg))
				r.Delete("/reviews/{reviewID}", controllers.AdminReviewDelete(deps.Reviews, logg))

				r.Get("/orders", controllers.AdminOrderList(deps.Orders, logg))
				r.Get("/orders/{orderID}", controllers.AdminOrderGet(deps.Orders, logg))
				r.With(idempotency).Patch("/orders/{orderID}/status", controllers.AdminOrderUpdateStatus(deps.Orders, logg))

				r.Get("/queries", controllers.AdminQueryList(deps.Support, logg))
				r.Get("/queries/{queryID}", controllers.AdminQueryGet(deps.Support, logg))
				r.Patch("/queries/{queryID}/status", controllers.AdminQueryUpdateStatus(deps.Support, logg))

				r.Get("/outbox/dlq", controllers.AdminOutboxDLQ(deps.OutboxDLQ, logg))
			})
		})
	})

	return r
}
