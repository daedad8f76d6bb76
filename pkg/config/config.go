package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Pricing       PricingConfig
	Cart          CartConfig
	Payments      PaymentsConfig
	Razorpay      RazorpayConfig
	Stripe        StripeConfig
	GCP           GCPConfig
	GCS           GCSConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Cron          CronConfig
	CORS          CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-section rules envconfig tags cannot express.
func (c *Config) Validate() error {
	if c.Payments.TestMode && c.App.IsProd() {
		return errors.New("payments test mode cannot be enabled in production")
	}
	if _, err := enums.ParseCurrency(c.Pricing.Currency); err != nil {
		return fmt.Errorf("%s: %w", EnvPricingCurrency, err)
	}
	provider := c.Payments.NormalizedProvider()
	switch provider {
	case PaymentProviderRazorpay:
		if !c.Payments.TestMode && (c.Razorpay.KeyID == "" || c.Razorpay.KeySecret == "") {
			return fmt.Errorf("%s and %s are required for razorpay", EnvRazorpayKeyID, EnvRazorpayKeySecret)
		}
	case PaymentProviderStripe:
		if !c.Payments.TestMode && c.Stripe.APIKey == "" {
			return fmt.Errorf("%s is required for stripe", EnvStripeAPIKey)
		}
	default:
		return fmt.Errorf("unsupported payment provider %q", c.Payments.Provider)
	}
	if c.GCS.Enabled() && c.GCS.MaxImageBytes <= 0 {
		return fmt.Errorf("%s must be positive when %s is set", EnvGCSMaxImageBytes, EnvGCSBucketName)
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	Name         string `envconfig:"STOREFRONT_APP_NAME" default:"Storefront"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	MetricsPath  string `envconfig:"STOREFRONT_METRICS_PATH" default:"/metrics"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, AppEnvProduction)
}

type ServiceConfig struct {
	Kind string `envconfig:"STOREFRONT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN        string `envconfig:"STOREFRONT_DB_DSN"`
	Driver     string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`
	SQLitePath string `envconfig:"STOREFRONT_DB_SQLITE_PATH" default:"storefront.db"`

	LegacyHost     string `envconfig:"STOREFRONT_DB_HOST"`
	LegacyPort     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOREFRONT_DB_USER"`
	LegacyPassword string `envconfig:"STOREFRONT_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOREFRONT_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"STOREFRONT_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"STOREFRONT_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"STOREFRONT_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"STOREFRONT_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
	// RotationGrace keeps a rotated session answering HasSession so requests
	// already in flight with the previous access token still succeed.
	RotationGrace time.Duration `envconfig:"STOREFRONT_REFRESH_ROTATION_GRACE" default:"30s"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"STOREFRONT_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"STOREFRONT_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"STOREFRONT_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"STOREFRONT_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"STOREFRONT_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
	QueryWindow        time.Duration `envconfig:"STOREFRONT_RATE_LIMIT_QUERY_WINDOW" default:"10m"`
	QueryIPLimit       int           `envconfig:"STOREFRONT_RATE_LIMIT_QUERY_IP_LIMIT" default:"5"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"STOREFRONT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
	AllowCOD    bool `envconfig:"STOREFRONT_FEATURE_ALLOW_COD" default:"true"`
}

// PricingConfig holds the storefront's tax and shipping rules. Amounts are rupees.
type PricingConfig struct {
	Currency              string `envconfig:"STOREFRONT_PRICING_CURRENCY" default:"INR"`
	TaxRate               string `envconfig:"STOREFRONT_PRICING_TAX_RATE" default:"0.18"`
	FreeShippingThreshold string `envconfig:"STOREFRONT_PRICING_FREE_SHIPPING_THRESHOLD" default:"500"`
	FlatShippingFee       string `envconfig:"STOREFRONT_PRICING_FLAT_SHIPPING_FEE" default:"50"`
}

type CartConfig struct {
	GuestTTL    time.Duration `envconfig:"STOREFRONT_CART_GUEST_TTL" default:"720h"`
	MaxLines    int           `envconfig:"STOREFRONT_CART_MAX_LINES" default:"50"`
	MaxQuantity int           `envconfig:"STOREFRONT_CART_MAX_QUANTITY" default:"99"`
}

type PaymentsConfig struct {
	Provider   string        `envconfig:"STOREFRONT_PAYMENTS_PROVIDER" default:"razorpay"`
	TestMode   bool          `envconfig:"STOREFRONT_PAYMENTS_TEST_MODE" default:"false"`
	MaxRetries int           `envconfig:"STOREFRONT_PAYMENTS_MAX_RETRIES" default:"3"`
	PendingTTL time.Duration `envconfig:"STOREFRONT_PAYMENTS_PENDING_TTL" default:"30m"`
	WebhookTTL time.Duration `envconfig:"STOREFRONT_PAYMENTS_WEBHOOK_IDEMPOTENCY_TTL" default:"72h"`
}

// NormalizedProvider returns the lower-cased provider name.
func (p PaymentsConfig) NormalizedProvider() string {
	provider := strings.TrimSpace(strings.ToLower(p.Provider))
	if provider == "" {
		return PaymentProviderRazorpay
	}
	return provider
}

type RazorpayConfig struct {
	KeyID     string        `envconfig:"STOREFRONT_RAZORPAY_KEY_ID"`
	KeySecret string        `envconfig:"STOREFRONT_RAZORPAY_KEY_SECRET"`
	BaseURL   string        `envconfig:"STOREFRONT_RAZORPAY_BASE_URL" default:"https://api.razorpay.com"`
	ScriptURL string        `envconfig:"STOREFRONT_RAZORPAY_SCRIPT_URL" default:"https://checkout.razorpay.com/v1/checkout.js"`
	Timeout   time.Duration `envconfig:"STOREFRONT_RAZORPAY_TIMEOUT" default:"10s"`
}

type StripeConfig struct {
	APIKey         string `envconfig:"STOREFRONT_STRIPE_API_KEY"`
	Secret         string `envconfig:"STOREFRONT_STRIPE_SECRET"`
	PublishableKey string `envconfig:"STOREFRONT_STRIPE_PUBLISHABLE_KEY"`
	Env            string `envconfig:"STOREFRONT_STRIPE_ENV" default:"test"`
	ScriptURL      string `envconfig:"STOREFRONT_STRIPE_SCRIPT_URL" default:"https://js.stripe.com/v3/"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type GCPConfig struct {
	ProjectID              string `envconfig:"STOREFRONT_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"STOREFRONT_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"GOOGLE_APPLICATION_CREDENTIALS"`
}

// GCSConfig holds product image storage. An empty bucket disables uploads.
type GCSConfig struct {
	BucketName    string `envconfig:"STOREFRONT_GCS_BUCKET_NAME"`
	APIBaseURL    string `envconfig:"STOREFRONT_GCS_API_BASE_URL" default:"https://storage.googleapis.com"`
	PublicBaseURL string `envconfig:"STOREFRONT_GCS_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
	MaxImageBytes int64  `envconfig:"STOREFRONT_GCS_MAX_IMAGE_BYTES" default:"5242880"`
}

func (g GCSConfig) Enabled() bool {
	return strings.TrimSpace(g.BucketName) != ""
}

type PubSubConfig struct {
	OrdersTopic   string `envconfig:"STOREFRONT_PUBSUB_ORDERS_TOPIC" default:"storefront-orders"`
	PaymentsTopic string `envconfig:"STOREFRONT_PUBSUB_PAYMENTS_TOPIC" default:"storefront-payments"`
	SupportTopic  string `envconfig:"STOREFRONT_PUBSUB_SUPPORT_TOPIC" default:"storefront-support"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"STOREFRONT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"STOREFRONT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"STOREFRONT_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"STOREFRONT_OUTBOX_RETENTION" default:"720h"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"STOREFRONT_CRON_INTERVAL" default:"5m"`
	LockTTL  time.Duration `envconfig:"STOREFRONT_CRON_LOCK_TTL" default:"4m"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"STOREFRONT_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		db.Driver = DriverSQLite
		return nil
	}
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
