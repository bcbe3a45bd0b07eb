package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "ECOFASHION_DB_DSN"
	EnvDBHost = "ECOFASHION_DB_HOST"
	EnvDBUser = "ECOFASHION_DB_USER"
	EnvDBName = "ECOFASHION_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Checkout     CheckoutConfig
	Platform     PlatformConfig
	VNPay        VNPayConfig
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
	if err := cfg.Platform.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ECOFASHION_APP_ENV" required:"true"`
	Port         string `envconfig:"ECOFASHION_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ECOFASHION_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ECOFASHION_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"ECOFASHION_DB_DSN"`
	Driver string `envconfig:"ECOFASHION_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ECOFASHION_DB_HOST"`
	LegacyPort     int    `envconfig:"ECOFASHION_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ECOFASHION_DB_USER"`
	LegacyPassword string `envconfig:"ECOFASHION_DB_PASSWORD"`
	LegacyName     string `envconfig:"ECOFASHION_DB_NAME"`
	LegacySSLMode  string `envconfig:"ECOFASHION_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ECOFASHION_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ECOFASHION_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ECOFASHION_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ECOFASHION_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ECOFASHION_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ECOFASHION_REDIS_ADDR"`
	Password     string        `envconfig:"ECOFASHION_REDIS_PASSWORD"`
	DB           int           `envconfig:"ECOFASHION_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ECOFASHION_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ECOFASHION_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ECOFASHION_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ECOFASHION_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ECOFASHION_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"ECOFASHION_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ECOFASHION_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"ECOFASHION_JWT_EXPIRATION_MINUTES" default:"60"`
}

type CheckoutConfig struct {
	DefaultHoldMinutes int `envconfig:"ECOFASHION_CHECKOUT_HOLD_MINUTES" default:"30"`
}

// HoldDuration returns the default checkout hold window.
func (c CheckoutConfig) HoldDuration() time.Duration {
	if c.DefaultHoldMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.DefaultHoldMinutes) * time.Minute
}

// PlatformConfig identifies the singleton platform wallet and the commission
// the platform takes from each settled order.
type PlatformConfig struct {
	WalletUserID      uint   `envconfig:"ECOFASHION_PLATFORM_WALLET_USER_ID" required:"true"`
	CommissionRateRaw string `envconfig:"ECOFASHION_PLATFORM_COMMISSION_RATE" default:"0.10"`
}

func (p PlatformConfig) validate() error {
	rate, err := p.CommissionRate()
	if err != nil {
		return err
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("commission rate must be within [0,1], got %s", rate)
	}
	return nil
}

// CommissionRate parses the configured commission rate.
func (p PlatformConfig) CommissionRate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(p.CommissionRateRaw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing commission rate: %w", err)
	}
	return rate, nil
}

type VNPayConfig struct {
	TmnCode    string `envconfig:"ECOFASHION_VNPAY_TMN_CODE" required:"true"`
	HashSecret string `envconfig:"ECOFASHION_VNPAY_HASH_SECRET" required:"true"`
	PayURL     string `envconfig:"ECOFASHION_VNPAY_PAY_URL" default:"https://sandbox.vnpayment.vn/paymentv2/vpcpay.html"`
	ReturnURL  string `envconfig:"ECOFASHION_VNPAY_RETURN_URL" required:"true"`
	IPNURL     string `envconfig:"ECOFASHION_VNPAY_IPN_URL"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ECOFASHION_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ECOFASHION_AUTO_MIGRATE" default:"false"`
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
