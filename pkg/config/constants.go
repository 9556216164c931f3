package config

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Environment variable names, kept in one place so tests and deploy tooling
// stay in sync with the envconfig tags.
const (
	EnvAppEnv   = "ZAPDEV_APP_ENV"
	EnvPort     = "ZAPDEV_APP_PORT"
	EnvLogLevel = "ZAPDEV_LOG_LEVEL"

	EnvDBDSN    = "ZAPDEV_DB_DSN"
	EnvRedisURL = "ZAPDEV_REDIS_URL"

	EnvAuthTokenSecret = "ZAPDEV_AUTH_TOKEN_SECRET"
	EnvAuthIssuer      = "ZAPDEV_AUTH_ISSUER"

	EnvStripeAPIKey        = "ZAPDEV_STRIPE_API_KEY"
	EnvStripeWebhookSecret = "ZAPDEV_STRIPE_WEBHOOK_SECRET"
	EnvStripeEnv           = "ZAPDEV_STRIPE_ENV"

	EnvPlanProPriceIDs        = "ZAPDEV_PLAN_PRO_PRICE_IDS"
	EnvPlanEnterprisePriceIDs = "ZAPDEV_PLAN_ENTERPRISE_PRICE_IDS"
)
