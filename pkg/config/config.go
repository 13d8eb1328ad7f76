package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Invoice       InvoiceConfig
	Inventory     InventoryConfig
	CORS          CORSConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Invoice.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"GARAGE_APP_ENV" required:"true"`
	Port         string `envconfig:"GARAGE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GARAGE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GARAGE_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"GARAGE_LOG_FORMAT" default:"json"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"GARAGE_DB_DSN"`
	Driver string `envconfig:"GARAGE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GARAGE_DB_HOST"`
	LegacyPort     int    `envconfig:"GARAGE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GARAGE_DB_USER"`
	LegacyPassword string `envconfig:"GARAGE_DB_PASSWORD"`
	LegacyName     string `envconfig:"GARAGE_DB_NAME"`
	LegacySSLMode  string `envconfig:"GARAGE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GARAGE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GARAGE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GARAGE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GARAGE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	LockTimeout     time.Duration `envconfig:"GARAGE_DB_LOCK_TIMEOUT" default:"5s"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GARAGE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GARAGE_REDIS_ADDR"`
	Password     string        `envconfig:"GARAGE_REDIS_PASSWORD"`
	DB           int           `envconfig:"GARAGE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GARAGE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GARAGE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GARAGE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GARAGE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GARAGE_REDIS_WRITE_TIMEOUT" default:"5s"`
	// Namespace prefixes every key so environments can share one Redis.
	Namespace string `envconfig:"GARAGE_REDIS_NAMESPACE" default:"garage"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"GARAGE_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"GARAGE_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"GARAGE_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"GARAGE_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"GARAGE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"GARAGE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"GARAGE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"GARAGE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"GARAGE_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow          time.Duration `envconfig:"GARAGE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginAccountLimit    int           `envconfig:"GARAGE_AUTH_RATE_LIMIT_LOGIN_ACCOUNT_LIMIT" default:"5"`
	LoginIPLimit         int           `envconfig:"GARAGE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow       time.Duration `envconfig:"GARAGE_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterAccountLimit int           `envconfig:"GARAGE_AUTH_RATE_LIMIT_REGISTER_ACCOUNT_LIMIT" default:"3"`
	RegisterIPLimit      int           `envconfig:"GARAGE_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"GARAGE_AUTO_MIGRATE" default:"false"`
}

type InvoiceConfig struct {
	TaxRate      string `envconfig:"GARAGE_INVOICE_TAX_RATE" default:"0.20"`
	NumberPrefix string `envconfig:"GARAGE_INVOICE_NUMBER_PREFIX" default:"INV"`
}

// Rate returns the parsed tax rate. Load has already validated it.
func (i InvoiceConfig) Rate() decimal.Decimal {
	rate, err := decimal.NewFromString(strings.TrimSpace(i.TaxRate))
	if err != nil {
		return decimal.NewFromFloat(0.2)
	}
	return rate
}

func (i InvoiceConfig) validate() error {
	rate, err := decimal.NewFromString(strings.TrimSpace(i.TaxRate))
	if err != nil {
		return fmt.Errorf("%s must be a decimal: %w", EnvInvoiceTaxRate, err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("%s must be within [0, 1), got %s", EnvInvoiceTaxRate, rate)
	}
	if strings.TrimSpace(i.NumberPrefix) == "" {
		return fmt.Errorf("%s cannot be blank", EnvInvoiceNumberPrefix)
	}
	return nil
}

type InventoryConfig struct {
	LowStockThreshold int `envconfig:"GARAGE_INVENTORY_LOW_STOCK_THRESHOLD" default:"5"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"GARAGE_CRON_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"GARAGE_CRON_LOCK_TTL" default:"10m"`
	// JobTimeout bounds a single job; keep it under LockTTL so the lease outlives the cycle.
	JobTimeout time.Duration `envconfig:"GARAGE_CRON_JOB_TIMEOUT" default:"5m"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"GARAGE_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
}

func (db *DBConfig) ensureDSN() error {
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
