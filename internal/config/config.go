package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	Store     StoreConfig     `mapstructure:"store"`
	GRPC      GRPCConfig      `mapstructure:"grpc"`
	Pricing   PricingConfig   `mapstructure:"pricing"`
	Valuation ValuationConfig `mapstructure:"valuation"`
	Batch     BatchConfig     `mapstructure:"batch"`
	Cron      CronConfig      `mapstructure:"cron"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
	// SeedDemo creates one demo position per asset class at startup
	SeedDemo bool `mapstructure:"seed_demo"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrateOnStart  bool          `mapstructure:"migrate_on_start"`
}

// StoreConfig selects the persistence backend: "postgres" or "memory"
type StoreConfig struct {
	Backend string `mapstructure:"backend"`
}

type GRPCConfig struct {
	Addr       string `mapstructure:"addr"`
	AuthToken  string `mapstructure:"auth_token"`
	Reflection bool   `mapstructure:"reflection"`
}

type PricingConfig struct {
	// Provider names tried in order: "coingecko", "yahoo", "static"
	CryptoProviders []string          `mapstructure:"crypto_providers"`
	FundProviders   []string          `mapstructure:"fund_providers"`
	CoinGecko       CoinGeckoConfig   `mapstructure:"coingecko"`
	Yahoo           YahooConfig       `mapstructure:"yahoo"`
	Cache           PriceCacheConfig  `mapstructure:"cache"`
	Static          map[string]string `mapstructure:"static"` // "SYMBOL/CURRENCY" -> price
}

type CoinGeckoConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type YahooConfig struct {
	Lookback time.Duration `mapstructure:"lookback"`
}

// PriceCacheConfig selects the price cache: "none", "memory" or "redis"
type PriceCacheConfig struct {
	Backend string        `mapstructure:"backend"`
	TTL     time.Duration `mapstructure:"ttl"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type ValuationConfig struct {
	CryptoTaxRate string `mapstructure:"crypto_tax_rate"`
}

type BatchConfig struct {
	Workers     int `mapstructure:"workers"`
	QueueSize   int `mapstructure:"queue_size"`
	Concurrency int `mapstructure:"concurrency"`
}

// CronConfig holds six-field cron specs (seconds first); an empty spec disables the class
type CronConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Interest string `mapstructure:"interest"`
	Crypto   string `mapstructure:"crypto"`
	Fund     string `mapstructure:"fund"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
	}
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.seed_demo", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.dsn", "host=localhost port=5432 user=postgres password=postgres dbname=financeserver sslmode=disable")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.migrate_on_start", true)
	v.SetDefault("store.backend", "postgres")
	v.SetDefault("grpc.addr", ":50051")
	v.SetDefault("grpc.auth_token", "dev-token")
	v.SetDefault("grpc.reflection", true)
	v.SetDefault("pricing.crypto_providers", []string{"coingecko"})
	v.SetDefault("pricing.fund_providers", []string{"yahoo"})
	v.SetDefault("pricing.coingecko.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("pricing.coingecko.api_key", "")
	v.SetDefault("pricing.coingecko.timeout", "10s")
	v.SetDefault("pricing.yahoo.lookback", "240h")
	v.SetDefault("pricing.cache.backend", "memory")
	v.SetDefault("pricing.cache.ttl", "5m")
	v.SetDefault("pricing.cache.redis.addr", "localhost:6379")
	v.SetDefault("pricing.cache.redis.password", "")
	v.SetDefault("pricing.cache.redis.db", 0)
	v.SetDefault("pricing.cache.redis.prefix", "financeserver:")
	v.SetDefault("pricing.static", map[string]string{})
	v.SetDefault("valuation.crypto_tax_rate", "0.30")
	v.SetDefault("batch.workers", 10)
	v.SetDefault("batch.queue_size", 16)
	v.SetDefault("batch.concurrency", 1)
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.interest", "0 0 6 * * *")
	v.SetDefault("cron.crypto", "0 */15 * * * *")
	v.SetDefault("cron.fund", "0 30 22 * * 1-5")

	if !envOnly && path != "" {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate rejects settings the server cannot start with
func (c Config) Validate() error {
	switch c.Store.Backend {
	case "postgres":
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn is required for the postgres store")
		}
	case "memory":
	default:
		return fmt.Errorf("store.backend must be postgres or memory, got %q", c.Store.Backend)
	}

	if c.GRPC.AuthToken == "" {
		return fmt.Errorf("grpc.auth_token cannot be empty")
	}

	switch c.Pricing.Cache.Backend {
	case "none", "memory", "redis":
	default:
		return fmt.Errorf("pricing.cache.backend must be none, memory or redis, got %q", c.Pricing.Cache.Backend)
	}

	for _, name := range append(append([]string{}, c.Pricing.CryptoProviders...), c.Pricing.FundProviders...) {
		switch name {
		case "coingecko", "yahoo", "static":
		default:
			return fmt.Errorf("unknown price provider %q", name)
		}
	}

	rate, err := c.Valuation.TaxRate()
	if err != nil {
		return err
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("valuation.crypto_tax_rate must be within [0, 1], got %s", rate)
	}

	return nil
}

// TaxRate parses the configured crypto tax rate
func (v ValuationConfig) TaxRate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(v.CryptoTaxRate))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid valuation.crypto_tax_rate %q: %w", v.CryptoTaxRate, err)
	}
	return rate, nil
}
