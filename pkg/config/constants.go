package config

// EnvPrefix is the envconfig prefix for every setting.
const EnvPrefix = "DOKKAN"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Environment variable names referenced outside struct tags.
const (
	EnvAppEnv     = "DOKKAN_APP_ENV"
	EnvPort       = "DOKKAN_APP_PORT"
	EnvDBDSN      = "DOKKAN_DB_DSN"
	EnvDBHost     = "DOKKAN_DB_HOST"
	EnvDBUser     = "DOKKAN_DB_USER"
	EnvDBName     = "DOKKAN_DB_NAME"
	EnvRedisURL   = "DOKKAN_REDIS_URL"
	EnvJWTSecret  = "DOKKAN_JWT_SECRET"
	EnvJWTIssuer  = "DOKKAN_JWT_ISSUER"
	EnvJWTExpMins = "DOKKAN_JWT_EXPIRATION_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
