package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Fees         FeesConfig
	Paymob       PaymobConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"DOKKAN_APP_ENV" required:"true"`
	Port         string `envconfig:"DOKKAN_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"DOKKAN_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"DOKKAN_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"DOKKAN_DB_DSN"`
	Driver string `envconfig:"DOKKAN_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"DOKKAN_DB_HOST"`
	LegacyPort     int    `envconfig:"DOKKAN_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"DOKKAN_DB_USER"`
	LegacyPassword string `envconfig:"DOKKAN_DB_PASSWORD"`
	LegacyName     string `envconfig:"DOKKAN_DB_NAME"`
	LegacySSLMode  string `envconfig:"DOKKAN_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"DOKKAN_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DOKKAN_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DOKKAN_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DOKKAN_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"DOKKAN_REDIS_URL"`
	Address      string        `envconfig:"DOKKAN_REDIS_ADDR"`
	Password     string        `envconfig:"DOKKAN_REDIS_PASSWORD"`
	DB           int           `envconfig:"DOKKAN_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DOKKAN_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DOKKAN_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DOKKAN_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DOKKAN_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DOKKAN_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"DOKKAN_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"DOKKAN_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"DOKKAN_JWT_EXPIRATION_MINUTES" default:"60"`
}

// TokenTTL returns the access token lifetime.
func (j JWTConfig) TokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// FeesConfig holds the delivery fee schedule in minor units. Discounts apply
// to the product subtotal only; fees are added after.
type FeesConfig struct {
	DeliveryFeeCents  int64 `envconfig:"DOKKAN_FEE_DELIVERY_CENTS" default:"5000"`
	CODSurchargeCents int64 `envconfig:"DOKKAN_FEE_COD_SURCHARGE_CENTS" default:"1000"`
}

type PaymobConfig struct {
	APIKey        string `envconfig:"DOKKAN_PAYMOB_API_KEY"`
	IntegrationID int    `envconfig:"DOKKAN_PAYMOB_INTEGRATION_ID"`
	IframeID      int    `envconfig:"DOKKAN_PAYMOB_IFRAME_ID"`
	BaseURL       string `envconfig:"DOKKAN_PAYMOB_BASE_URL" default:"https://accept.paymob.com/api"`
	IframeBaseURL string `envconfig:"DOKKAN_PAYMOB_IFRAME_BASE_URL" default:"https://accept.paymobsolutions.com/api/acceptance/iframes"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"DOKKAN_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"DOKKAN_AUTO_MIGRATE" default:"false"`
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
