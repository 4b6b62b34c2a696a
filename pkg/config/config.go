package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App       AppConfig
	API       APIConfig
	Storage   StorageConfig
	DB        DBConfig
	Redis     RedisConfig
	Session   SessionConfig
	Checkout  CheckoutConfig
	DevServer DevServerConfig
	JWT       JWTConfig
	Password  PasswordConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Storage.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" default:"dev"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

// APIConfig points the gateway at the remote order/auth/product service.
type APIConfig struct {
	BaseURL   string        `envconfig:"STOREFRONT_API_URL" default:"http://localhost:8080/api"`
	Timeout   time.Duration `envconfig:"STOREFRONT_API_TIMEOUT" default:"10s"`
	LoginPath string        `envconfig:"STOREFRONT_LOGIN_PATH" default:"/auth/login"`
}

// StorageConfig selects the durable key-value backend.
type StorageConfig struct {
	Driver string `envconfig:"STOREFRONT_STORAGE_DRIVER" default:"sqlite"`
	Path   string `envconfig:"STOREFRONT_STORAGE_PATH" default:"storefront.db"`
	// Namespace isolates one shopper profile from another inside a shared backend.
	Namespace  string `envconfig:"STOREFRONT_STORAGE_NAMESPACE" default:"default"`
	QueueDepth int    `envconfig:"STOREFRONT_STORAGE_QUEUE_DEPTH" default:"64"`
}

func (s StorageConfig) validate() error {
	switch strings.ToLower(s.Driver) {
	case StorageDriverMemory, StorageDriverSQLite, StorageDriverPostgres, StorageDriverRedis:
		return nil
	}
	return fmt.Errorf("unsupported %s %q", EnvStorageDriver, s.Driver)
}

type DBConfig struct {
	DSN             string        `envconfig:"STOREFRONT_DB_DSN"`
	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"4"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"4"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"1"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"3s"`
	// TTL bounds how long a persisted snapshot survives without a write. Zero keeps it forever.
	TTL time.Duration `envconfig:"STOREFRONT_REDIS_TTL" default:"720h"`
}

type SessionConfig struct {
	// ExpiryLeeway treats tokens expiring within the window as already expired.
	ExpiryLeeway time.Duration `envconfig:"STOREFRONT_SESSION_EXPIRY_LEEWAY" default:"30s"`
}

type CheckoutConfig struct {
	PostalCodeMinLen int    `envconfig:"STOREFRONT_CHECKOUT_POSTAL_CODE_MIN_LEN" default:"8"`
	DefaultCountry   string `envconfig:"STOREFRONT_CHECKOUT_DEFAULT_COUNTRY" default:"Brasil"`
	Currency         string `envconfig:"STOREFRONT_CURRENCY" default:"BRL"`
	ConfirmationPath string `envconfig:"STOREFRONT_CHECKOUT_CONFIRMATION_PATH" default:"/orders"`
}

type DevServerConfig struct {
	Port           string        `envconfig:"STOREFRONT_DEVSERVER_PORT" default:"8080"`
	Seed           bool          `envconfig:"STOREFRONT_DEVSERVER_SEED" default:"true"`
	DBDriver       string        `envconfig:"STOREFRONT_DEVSERVER_DB_DRIVER" default:"sqlite"`
	DBDSN          string        `envconfig:"STOREFRONT_DEVSERVER_DB_DSN" default:"storefront-devserver.db"`
	AllowedOrigins []string      `envconfig:"STOREFRONT_DEVSERVER_ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
	AuthWindow     time.Duration `envconfig:"STOREFRONT_DEVSERVER_AUTH_WINDOW" default:"1m"`
	AuthIPLimit    int           `envconfig:"STOREFRONT_DEVSERVER_AUTH_IP_LIMIT" default:"30"`
	AuthEmailLimit int           `envconfig:"STOREFRONT_DEVSERVER_AUTH_EMAIL_LIMIT" default:"5"`
}

type JWTConfig struct {
	Secret            string `envconfig:"STOREFRONT_JWT_SECRET" default:"dev-secret-change-me"`
	Issuer            string `envconfig:"STOREFRONT_JWT_ISSUER" default:"storefront-devserver"`
	ExpirationMinutes int    `envconfig:"STOREFRONT_JWT_EXPIRATION_MINUTES" default:"1440"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"STOREFRONT_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"STOREFRONT_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"STOREFRONT_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"STOREFRONT_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"STOREFRONT_ARGON_KEY_LEN" default:"32"`
}
