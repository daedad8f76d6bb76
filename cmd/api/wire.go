package main

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/address"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/internal/reviews"
	"github.com/angelmondragon/storefront-backend/internal/support"
	"github.com/angelmondragon/storefront-backend/internal/users"
	stripewebhook "github.com/angelmondragon/storefront-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/storefront-backend/internal/wishlist"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/storefront-backend/pkg/razorpay"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
	"github.com/angelmondragon/storefront-backend/pkg/storage/gcs"
	"github.com/angelmondragon/storefront-backend/pkg/stripe"
)

const stripeWebhookConsumer = "stripe-webhook"

// buildDependencies constructs every service the router serves. Readiness
// pingers and the metrics handler are attached by the caller.
func buildDependencies(
	ctx context.Context,
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	sessionManager *session.Manager,
	storefrontMetrics *metrics.StorefrontMetrics,
) (routes.Dependencies, error) {
	gdb := dbClient.DB()

	usersRepo := users.NewRepository(gdb)
	addressRepo := address.NewRepository(gdb)
	catalogRepo := catalog.NewRepository(gdb)
	ordersRepo := orders.NewRepository(gdb)
	paymentsRepo := payments.NewRepository(gdb)
	outboxSvc := outbox.NewService(outbox.NewRepository(gdb), logg)

	calculator, err := pricing.NewCalculator(cfg.Pricing)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("pricing calculator: %w", err)
	}

	authSvc, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("auth service: %w", err)
	}
	registerSvc, err := auth.NewRegisterService(auth.RegisterServiceParams{
		DB:             dbClient,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("register service: %w", err)
	}

	usersSvc, err := users.NewService(usersRepo)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("users service: %w", err)
	}
	addressSvc, err := address.NewService(addressRepo, dbClient)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("address service: %w", err)
	}
	catalogSvc, err := catalog.NewService(catalogRepo, dbClient)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("catalog service: %w", err)
	}

	ready := map[string]controllers.Pinger{}
	imageParams := catalog.ImageServiceParams{Repo: catalogRepo, MaxBytes: cfg.GCS.MaxImageBytes, Logger: logg}
	if cfg.GCS.Enabled() {
		gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
		if err != nil {
			return routes.Dependencies{}, fmt.Errorf("gcs client: %w", err)
		}
		imageParams.Store = gcsClient
		ready["gcs"] = gcsClient
	} else {
		logg.Warn(ctx, "product image uploads disabled: no gcs bucket configured")
	}
	imagesSvc, err := catalog.NewImageService(imageParams)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("image service: %w", err)
	}

	guestStore, err := cart.NewRedisStore(redisClient, cfg.Cart.GuestTTL)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("guest cart store: %w", err)
	}
	userStore := cart.NewDBStore(gdb)
	cartSvc, err := cart.NewService(cart.ServiceParams{
		Guests:      guestStore,
		Users:       userStore,
		Products:    catalogSvc,
		Calculator:  calculator,
		MaxLines:    cfg.Cart.MaxLines,
		MaxQuantity: cfg.Cart.MaxQuantity,
	})
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("cart service: %w", err)
	}

	wishlistSvc, err := wishlist.NewService(wishlist.ServiceParams{
		WishlistRepo: wishlist.NewRepository(gdb),
		ProductRepo:  catalogRepo,
	})
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("wishlist service: %w", err)
	}

	reviewsSvc, err := reviews.NewService(reviews.ServiceParams{
		Repo:     reviews.NewRepository(gdb),
		Products: catalogRepo,
	})
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("reviews service: %w", err)
	}

	gateway, stripeClient, err := buildGateway(ctx, cfg, logg)
	if err != nil {
		return routes.Dependencies{}, err
	}
	provider := enums.PaymentProvider(cfg.Payments.NormalizedProvider())

	ordersSvc, err := orders.NewService(orders.ServiceParams{
		Repo:        ordersRepo,
		Catalog:     catalogRepo,
		Addresses:   addressRepo,
		DB:          dbClient,
		Outbox:      outboxSvc,
		Calculator:  calculator,
		Cart:        userStore,
		Attempts:    paymentsRepo,
		Metrics:     storefrontMetrics,
		Provider:    provider,
		AllowCOD:    cfg.FeatureFlags.AllowCOD,
		MaxLines:    cfg.Cart.MaxLines,
		MaxQuantity: cfg.Cart.MaxQuantity,
	})
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("orders service: %w", err)
	}

	paymentsSvc, err := payments.NewService(payments.ServiceParams{
		Repo:       paymentsRepo,
		Orders:     ordersRepo,
		OrderSvc:   ordersSvc,
		Users:      usersRepo,
		DB:         dbClient,
		Outbox:     outboxSvc,
		Gateway:    gateway,
		Provider:   provider,
		Metrics:    storefrontMetrics,
		Logger:     logg,
		StoreName:  cfg.App.Name,
		MaxRetries: cfg.Payments.MaxRetries,
		TestMode:   cfg.Payments.TestMode,
		Production: cfg.App.IsProd(),
	})
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("payments service: %w", err)
	}

	supportSvc, err := support.NewService(support.ServiceParams{
		Repo:   support.NewRepository(gdb),
		DB:     dbClient,
		Outbox: outboxSvc,
	})
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("support service: %w", err)
	}

	deps := routes.Dependencies{
		Config:    cfg,
		Logger:    logg,
		Ready:     ready,
		Redis:     redisClient,
		Sessions:  sessionManager,
		Metrics:   storefrontMetrics,
		Auth:      authSvc,
		Register:  registerSvc,
		Users:     usersSvc,
		Addresses: addressSvc,
		Catalog:   catalogSvc,
		Images:    imagesSvc,
		Cart:      cartSvc,
		Wishlist:  wishlistSvc,
		Reviews:   reviewsSvc,
		Orders:    ordersSvc,
		Payments:  paymentsSvc,
		Support:   supportSvc,
		OutboxDLQ: outbox.NewDLQRepository(gdb),
	}

	if stripeClient != nil {
		webhookSvc, err := stripewebhook.NewService(stripewebhook.ServiceParams{
			Payments: paymentsSvc,
			Logger:   logg,
		})
		if err != nil {
			return routes.Dependencies{}, fmt.Errorf("stripe webhook service: %w", err)
		}
		manager, err := idempotency.NewManager(redisClient, cfg.Payments.WebhookTTL)
		if err != nil {
			return routes.Dependencies{}, fmt.Errorf("stripe webhook idempotency: %w", err)
		}
		guard, err := stripewebhook.NewIdempotencyGuard(manager, stripeWebhookConsumer)
		if err != nil {
			return routes.Dependencies{}, fmt.Errorf("stripe webhook guard: %w", err)
		}
		deps.StripeClient = stripeClient
		deps.StripeWebhook = webhookSvc
		deps.StripeGuard = guard
	}

	return deps, nil
}

// buildGateway returns the configured provider's gateway. Missing credentials
// are only tolerated in test mode, where the gateway may be nil and the
// payments service falls back to synthetic orders.
func buildGateway(ctx context.Context, cfg *config.Config, logg *logger.Logger) (payments.Gateway, *stripe.Client, error) {
	switch cfg.Payments.NormalizedProvider() {
	case config.PaymentProviderStripe:
		if cfg.Stripe.APIKey == "" && cfg.Payments.TestMode {
			return nil, nil, nil
		}
		client, err := stripe.NewClient(ctx, cfg.Stripe, logg)
		if err != nil {
			return nil, nil, fmt.Errorf("stripe client: %w", err)
		}
		gw, err := payments.NewStripeGateway(payments.StripeIntentClient{}, client.PublishableKey(), cfg.Stripe.ScriptURL)
		if err != nil {
			return nil, nil, err
		}
		return gw, client, nil
	default:
		if (cfg.Razorpay.KeyID == "" || cfg.Razorpay.KeySecret == "") && cfg.Payments.TestMode {
			return nil, nil, nil
		}
		client, err := razorpay.NewClient(
			cfg.Razorpay.KeyID,
			cfg.Razorpay.KeySecret,
			razorpay.WithBaseURL(cfg.Razorpay.BaseURL),
			razorpay.WithTimeout(cfg.Razorpay.Timeout),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("razorpay client: %w", err)
		}
		gw, err := payments.NewRazorpayGateway(client, cfg.Razorpay.ScriptURL)
		if err != nil {
			return nil, nil, err
		}
		return gw, nil, nil
	}
}
