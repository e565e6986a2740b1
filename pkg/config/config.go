package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "acp"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv       = "ACP_APP_ENV"
	EnvPort         = "ACP_APP_PORT"
	EnvOpenAIKey    = "ACP_OPENAI_API_KEY"
	EnvStripeKey    = "ACP_STRIPE_API_KEY"
	EnvRedisURL     = "ACP_REDIS_URL"
	EnvDBDriver     = "ACP_DB_DRIVER"
	EnvDBDSN        = "ACP_DB_DSN"
	EnvAgentMaxTurn = "ACP_AGENT_MAX_TURNS"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	OpenAI       OpenAIConfig
	Stripe       StripeConfig
	Agent        AgentConfig
	Commerce     CommerceConfig
	ToolProvider ToolProviderConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ACP_APP_ENV" required:"true"`
	Port         string `envconfig:"ACP_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"ACP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ACP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	Driver string `envconfig:"ACP_DB_DRIVER" default:"sqlite"`
	DSN    string `envconfig:"ACP_DB_DSN" default:"checkout.db"`

	MaxOpenConns    int           `envconfig:"ACP_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"ACP_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"ACP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ACP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (db DBConfig) validate() error {
	switch db.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database driver must be sqlite or postgres, got %q", db.Driver)
	}
	if db.DSN == "" {
		return fmt.Errorf("database DSN is required")
	}
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"ACP_REDIS_URL"`
	Address      string        `envconfig:"ACP_REDIS_ADDR"`
	Password     string        `envconfig:"ACP_REDIS_PASSWORD"`
	DB           int           `envconfig:"ACP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ACP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ACP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ACP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ACP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ACP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis endpoint was configured at all. Conversation
// history falls back to the in-memory store when it is not.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type OpenAIConfig struct {
	APIKey      string  `envconfig:"ACP_OPENAI_API_KEY"`
	Model       string  `envconfig:"ACP_OPENAI_MODEL" default:"gpt-4o-mini"`
	BaseURL     string  `envconfig:"ACP_OPENAI_BASE_URL"`
	Temperature float32 `envconfig:"ACP_OPENAI_TEMPERATURE" default:"0.2"`
	MaxTokens   int     `envconfig:"ACP_OPENAI_MAX_TOKENS" default:"1024"`
}

type StripeConfig struct {
	APIKey string `envconfig:"ACP_STRIPE_API_KEY"`
	Env    string `envconfig:"ACP_STRIPE_ENV" default:"test"`
}

// Enabled reports whether payments run against Stripe. The in-memory provider
// is used when no key is configured.
func (s StripeConfig) Enabled() bool {
	return strings.TrimSpace(s.APIKey) != ""
}

func (s StripeConfig) Environment() string {
	return strings.ToLower(strings.TrimSpace(s.Env))
}

type AgentConfig struct {
	MaxTurns    int           `envconfig:"ACP_AGENT_MAX_TURNS" default:"10"`
	ToolTimeout time.Duration `envconfig:"ACP_AGENT_TOOL_TIMEOUT" default:"30s"`
}

type CommerceConfig struct {
	Currency    string `envconfig:"ACP_COMMERCE_CURRENCY" default:"usd"`
	TaxRateBps  int64  `envconfig:"ACP_COMMERCE_TAX_RATE_BPS" default:"875"`
	CatalogPath string `envconfig:"ACP_COMMERCE_CATALOG_PATH"`
}

type ToolProviderConfig struct {
	URL      string        `envconfig:"ACP_TOOL_PROVIDER_URL"`
	CacheTTL time.Duration `envconfig:"ACP_TOOL_PROVIDER_CACHE_TTL" default:"5m"`
}
