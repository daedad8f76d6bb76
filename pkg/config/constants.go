package config

// EnvPrefix is handed to envconfig; every field tag carries the full name.
const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev        = "dev"
	AppEnvProd       = "prod"
	AppEnvProduction = "production"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	PaymentProviderRazorpay = "razorpay"
	PaymentProviderStripe   = "stripe"
)

const (
	EnvAppEnv                 = "STOREFRONT_APP_ENV"
	EnvPort                   = "STOREFRONT_APP_PORT"
	EnvDBDSN                  = "STOREFRONT_DB_DSN"
	EnvDBHost                 = "STOREFRONT_DB_HOST"
	EnvDBUser                 = "STOREFRONT_DB_USER"
	EnvDBName                 = "STOREFRONT_DB_NAME"
	EnvRedisURL               = "STOREFRONT_REDIS_URL"
	EnvJWTSecret              = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer              = "STOREFRONT_JWT_ISSUER"
	EnvJWTExpMins             = "STOREFRONT_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "STOREFRONT_REFRESH_TOKEN_TTL_MINUTES"
	EnvRefreshRotationGrace   = "STOREFRONT_REFRESH_ROTATION_GRACE"
	EnvUseSQLite              = "STOREFRONT_USE_SQLITE"
	EnvPaymentsProvider       = "STOREFRONT_PAYMENTS_PROVIDER"
	EnvPaymentsTestMode       = "STOREFRONT_PAYMENTS_TEST_MODE"
	EnvRazorpayKeyID          = "STOREFRONT_RAZORPAY_KEY_ID"
	EnvRazorpayKeySecret      = "STOREFRONT_RAZORPAY_KEY_SECRET"
	EnvStripeAPIKey           = "STOREFRONT_STRIPE_API_KEY"
	EnvPricingTaxRate         = "STOREFRONT_PRICING_TAX_RATE"
	EnvPricingCurrency        = "STOREFRONT_PRICING_CURRENCY"
	EnvCartGuestTTL           = "STOREFRONT_CART_GUEST_TTL"
	EnvGCSBucketName          = "STOREFRONT_GCS_BUCKET_NAME"
	EnvGCSMaxImageBytes       = "STOREFRONT_GCS_MAX_IMAGE_BYTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
