package config

// EnvPrefix scopes every variable read by envconfig.
const EnvPrefix = "GARAGE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv       = "GARAGE_APP_ENV"
	EnvPort         = "GARAGE_APP_PORT"
	EnvLogLevel     = "GARAGE_LOG_LEVEL"
	EnvLogWarnStack = "GARAGE_LOG_WARN_STACK"

	EnvDBDSN      = "GARAGE_DB_DSN"
	EnvDBHost     = "GARAGE_DB_HOST"
	EnvDBPort     = "GARAGE_DB_PORT"
	EnvDBUser     = "GARAGE_DB_USER"
	EnvDBPassword = "GARAGE_DB_PASSWORD"
	EnvDBName     = "GARAGE_DB_NAME"
	EnvDBSSLMode  = "GARAGE_DB_SSLMODE"

	EnvRedisURL = "GARAGE_REDIS_URL"

	EnvJWTSecret              = "GARAGE_JWT_SECRET"
	EnvJWTIssuer              = "GARAGE_JWT_ISSUER"
	EnvJWTExpMins             = "GARAGE_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "GARAGE_REFRESH_TOKEN_TTL_MINUTES"

	EnvAutoMigrate = "GARAGE_AUTO_MIGRATE"

	EnvInvoiceTaxRate      = "GARAGE_INVOICE_TAX_RATE"
	EnvInvoiceNumberPrefix = "GARAGE_INVOICE_NUMBER_PREFIX"
	EnvLowStockThreshold   = "GARAGE_INVENTORY_LOW_STOCK_THRESHOLD"
	EnvCORSOrigins         = "GARAGE_CORS_ALLOWED_ORIGINS"
)

// legacyDBEnvVars must all be present when no DSN is supplied.
var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
