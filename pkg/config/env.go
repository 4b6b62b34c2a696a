package config

// EnvPrefix is empty because every field carries its fully-qualified variable name.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	StorageDriverMemory   = "memory"
	StorageDriverSQLite   = "sqlite"
	StorageDriverPostgres = "postgres"
	StorageDriverRedis    = "redis"
)

const (
	EnvAppEnv           = "STOREFRONT_APP_ENV"
	EnvLogLevel         = "STOREFRONT_LOG_LEVEL"
	EnvAPIURL           = "STOREFRONT_API_URL"
	EnvAPITimeout       = "STOREFRONT_API_TIMEOUT"
	EnvStorageDriver    = "STOREFRONT_STORAGE_DRIVER"
	EnvStoragePath      = "STOREFRONT_STORAGE_PATH"
	EnvStorageNamespace = "STOREFRONT_STORAGE_NAMESPACE"
	EnvDBDSN            = "STOREFRONT_DB_DSN"
	EnvRedisURL         = "STOREFRONT_REDIS_URL"
	EnvPostalCodeMinLen = "STOREFRONT_CHECKOUT_POSTAL_CODE_MIN_LEN"
	EnvDefaultCountry   = "STOREFRONT_CHECKOUT_DEFAULT_COUNTRY"
	EnvCurrency         = "STOREFRONT_CURRENCY"
	EnvDevServerPort    = "STOREFRONT_DEVSERVER_PORT"
	EnvJWTSecret        = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer        = "STOREFRONT_JWT_ISSUER"
	EnvJWTExpMins       = "STOREFRONT_JWT_EXPIRATION_MINUTES"
)
