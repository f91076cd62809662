package config

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config groups the application configuration, read via Viper from env and
// optionally from an env file. Required values fail loudly at startup.
type Config struct {
	App     AppConfig
	HTTP    HTTPConfig
	DB      DBConfig
	Redis   RedisConfig
	JWT     JWTConfig
	Chain   ChainConfig
	Billing BillingConfig
	Pass    PassConfig
	Jobs    JobsConfig
}

type AppConfig struct {
	Env  string // development, staging, production
	Name string
}

type HTTPConfig struct {
	Host string
	Port int
}

// Addr returns the listen address (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DBConfig struct {
	DatabaseURL string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

// ChainConfig holds the RPC endpoint and deployed contract addresses. The
// addresses may instead come from a TOML deployment file named by
// CHAIN_DEPLOYMENT_FILE; env values win when both are present.
type ChainConfig struct {
	RPCURL          string
	DeploymentFile  string
	Registrar       string
	Marketplace     string
	Membership      string
	PaymentToken    string
	TreasuryAddress string
}

// BillingConfig is the platform subscription billing knobs.
type BillingConfig struct {
	PlatformPriceUSDC decimal.Decimal
	PlatformFeeBps    int
}

// PassConfig holds course registration defaults, in seconds.
type PassConfig struct {
	DurationSeconds           int64
	TransferCooldownSeconds   int64
	MaxListingDurationSeconds int64
}

type JobsConfig struct {
	RenewalSweepMinutes  int
	FloorRefreshMinutes  int
	RegisterMaxAttempts  int
	RegisterRetrySeconds int
}

// Load reads configuration from environment variables and an optional .env
// file. Env vars take priority.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	platformPrice, err := getDecimal(v, "PLATFORM_PRICE_USDC", "9.99")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Env:  getString(v, "APP_ENV", "development"),
			Name: getString(v, "APP_NAME", "coursepass"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			Addr:     normalizeRedisAddr(getString(v, "REDIS_ADDR", "localhost:6379")),
			Password: getString(v, "REDIS_PASSWORD", ""),
			DB:       getInt(v, "REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret: getString(v, "JWT_SECRET", ""),
		},
		Chain: ChainConfig{
			RPCURL:          getString(v, "CHAIN_RPC_URL", ""),
			DeploymentFile:  getString(v, "CHAIN_DEPLOYMENT_FILE", ""),
			Registrar:       getString(v, "CHAIN_REGISTRAR_ADDRESS", ""),
			Marketplace:     getString(v, "CHAIN_MARKETPLACE_ADDRESS", ""),
			Membership:      getString(v, "CHAIN_MEMBERSHIP_ADDRESS", ""),
			PaymentToken:    getString(v, "CHAIN_PAYMENT_TOKEN_ADDRESS", ""),
			TreasuryAddress: getString(v, "CHAIN_TREASURY_ADDRESS", ""),
		},
		Billing: BillingConfig{
			PlatformPriceUSDC: platformPrice,
			PlatformFeeBps:    getInt(v, "PLATFORM_FEE_BPS", 300),
		},
		Pass: PassConfig{
			DurationSeconds:           getInt64(v, "PASS_DURATION_SECONDS", 30*24*3600),
			TransferCooldownSeconds:   getInt64(v, "PASS_TRANSFER_COOLDOWN_SECONDS", 7*24*3600),
			MaxListingDurationSeconds: getInt64(v, "MAX_LISTING_DURATION_SECONDS", 30*24*3600),
		},
		Jobs: JobsConfig{
			RenewalSweepMinutes:  getInt(v, "RENEWAL_SWEEP_MINUTES", 60),
			FloorRefreshMinutes:  getInt(v, "FLOOR_REFRESH_MINUTES", 5),
			RegisterMaxAttempts:  getInt(v, "REGISTER_MAX_ATTEMPTS", 5),
			RegisterRetrySeconds: getInt(v, "REGISTER_RETRY_SECONDS", 30),
		},
	}

	if cfg.Chain.DeploymentFile != "" {
		deployment, err := LoadDeployment(cfg.Chain.DeploymentFile)
		if err != nil {
			return nil, err
		}
		applyDeployment(&cfg.Chain, deployment)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var missing []string
	if c.DB.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.JWT.Secret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if c.Chain.RPCURL == "" {
		missing = append(missing, "CHAIN_RPC_URL")
	}
	if c.Chain.Registrar == "" {
		missing = append(missing, "CHAIN_REGISTRAR_ADDRESS")
	}
	if c.Chain.Marketplace == "" {
		missing = append(missing, "CHAIN_MARKETPLACE_ADDRESS")
	}
	if c.Chain.Membership == "" {
		missing = append(missing, "CHAIN_MEMBERSHIP_ADDRESS")
	}
	if c.Chain.PaymentToken == "" {
		missing = append(missing, "CHAIN_PAYMENT_TOKEN_ADDRESS")
	}
	if c.Chain.TreasuryAddress == "" {
		missing = append(missing, "CHAIN_TREASURY_ADDRESS")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if c.Billing.PlatformPriceUSDC.IsNegative() {
		return fmt.Errorf("invalid configuration: PLATFORM_PRICE_USDC must not be negative, got %s", c.Billing.PlatformPriceUSDC)
	}
	if c.Billing.PlatformFeeBps < 0 || c.Billing.PlatformFeeBps > 10000 {
		return fmt.Errorf("invalid configuration: PLATFORM_FEE_BPS must be between 0 and 10000, got %d", c.Billing.PlatformFeeBps)
	}
	return nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		return v.GetInt(key)
	}
	return def
}

func getInt64(v *viper.Viper, key string, def int64) int64 {
	if v.IsSet(key) {
		return v.GetInt64(key)
	}
	return def
}

func getDecimal(v *viper.Viper, key, def string) (decimal.Decimal, error) {
	raw := def
	if v.IsSet(key) {
		raw = v.GetString(key)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid configuration: %s is not a decimal number: %q", key, raw)
	}
	return d, nil
}

// normalizeRedisAddr accepts either host:port or a redis:// URL and returns
// host:port.
func normalizeRedisAddr(addr string) string {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(addr, "redis://"), "rediss://")
	return trimmed
}
