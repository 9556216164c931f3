package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = ""

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Stripe    StripeConfig
	Plans     PlansConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Reconcile ReconcileConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Plans.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ZAPDEV_APP_ENV" required:"true"`
	Port         string `envconfig:"ZAPDEV_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"ZAPDEV_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ZAPDEV_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"ZAPDEV_DB_DSN" required:"true"`
	Driver string `envconfig:"ZAPDEV_DB_DRIVER" default:"postgres"`

	MaxOpenConns    int           `envconfig:"ZAPDEV_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ZAPDEV_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ZAPDEV_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ZAPDEV_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	AutoMigrate bool `envconfig:"ZAPDEV_DB_AUTO_MIGRATE" default:"false"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ZAPDEV_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ZAPDEV_REDIS_ADDR"`
	Password     string        `envconfig:"ZAPDEV_REDIS_PASSWORD"`
	DB           int           `envconfig:"ZAPDEV_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ZAPDEV_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ZAPDEV_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ZAPDEV_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ZAPDEV_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ZAPDEV_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// AuthConfig covers verification of identity-provider bearer tokens. Tokens
// are issued elsewhere; this service only checks the signature and reads the
// subject/email claims.
type AuthConfig struct {
	TokenSecret string `envconfig:"ZAPDEV_AUTH_TOKEN_SECRET" required:"true"`
	Issuer      string `envconfig:"ZAPDEV_AUTH_ISSUER"`
}

type StripeConfig struct {
	APIKey        string `envconfig:"ZAPDEV_STRIPE_API_KEY" required:"true"`
	WebhookSecret string `envconfig:"ZAPDEV_STRIPE_WEBHOOK_SECRET" required:"true"`
	Env           string `envconfig:"ZAPDEV_STRIPE_ENV" default:"test"`

	CheckoutSuccessURL string `envconfig:"ZAPDEV_STRIPE_CHECKOUT_SUCCESS_URL" default:"https://zapdev.link/billing?checkout=success"`
	CheckoutCancelURL  string `envconfig:"ZAPDEV_STRIPE_CHECKOUT_CANCEL_URL" default:"https://zapdev.link/billing?checkout=cancelled"`
	PortalReturnURL    string `envconfig:"ZAPDEV_STRIPE_PORTAL_RETURN_URL" default:"https://zapdev.link/billing"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// PlansConfig maps provider price identifiers onto internal plan tiers. The
// lists are exact-match allowlists, never patterns.
type PlansConfig struct {
	ProPriceIDs        []string `envconfig:"ZAPDEV_PLAN_PRO_PRICE_IDS"`
	EnterprisePriceIDs []string `envconfig:"ZAPDEV_PLAN_ENTERPRISE_PRICE_IDS"`
}

func (p PlansConfig) validate() error {
	if len(p.ProPriceIDs) == 0 && len(p.EnterprisePriceIDs) == 0 {
		return nil
	}
	for _, id := range append(append([]string{}, p.ProPriceIDs...), p.EnterprisePriceIDs...) {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("plan price id lists must not contain empty entries")
		}
	}
	return nil
}

type CacheConfig struct {
	Namespace      string        `envconfig:"ZAPDEV_CACHE_NAMESPACE" default:"subscription"`
	SnapshotTTL    time.Duration `envconfig:"ZAPDEV_CACHE_SNAPSHOT_TTL" default:"0"`
	IdempotencyTTL time.Duration `envconfig:"ZAPDEV_WEBHOOK_IDEMPOTENCY_TTL" default:"72h"`
}

type RateLimitConfig struct {
	BillingWindow time.Duration `envconfig:"ZAPDEV_RATE_LIMIT_BILLING_WINDOW" default:"1m"`
	BillingLimit  int           `envconfig:"ZAPDEV_RATE_LIMIT_BILLING_LIMIT" default:"60"`
}

type ReconcileConfig struct {
	Interval  time.Duration `envconfig:"ZAPDEV_RECONCILE_INTERVAL" default:"6h"`
	BatchSize int           `envconfig:"ZAPDEV_RECONCILE_BATCH_SIZE" default:"200"`
}
