package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", true)

	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Backend)
	assert.Equal(t, ":50051", cfg.GRPC.Addr)
	assert.Equal(t, []string{"coingecko"}, cfg.Pricing.CryptoProviders)
	assert.Equal(t, 5*time.Minute, cfg.Pricing.Cache.TTL)
	assert.Equal(t, 10, cfg.Batch.Workers)
	assert.Equal(t, "0 */15 * * * *", cfg.Cron.Crypto)

	rate, err := cfg.Valuation.TaxRate()
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("0.30")))
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FS_STORE_BACKEND", "memory")
	t.Setenv("FS_GRPC_ADDR", ":6000")
	t.Setenv("FS_BATCH_WORKERS", "3")
	t.Setenv("FS_VALUATION_CRYPTO_TAX_RATE", "0.19")

	cfg, err := Load("", true)

	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, ":6000", cfg.GRPC.Addr)
	assert.Equal(t, 3, cfg.Batch.Workers)
	rate, _ := cfg.Valuation.TaxRate()
	assert.True(t, rate.Equal(decimal.RequireFromString("0.19")))
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store:
  backend: memory
pricing:
  crypto_providers: [static, coingecko]
  cache:
    backend: none
  static:
    BTC/EUR: "60000"
cron:
  enabled: false
`), 0o600))

	cfg, err := Load(path, false)

	require.NoError(t, err)
	assert.Equal(t, []string{"static", "coingecko"}, cfg.Pricing.CryptoProviders)
	assert.Equal(t, "none", cfg.Pricing.Cache.Backend)
	assert.False(t, cfg.Cron.Enabled)
	assert.Equal(t, "60000", cfg.Pricing.Static["btc/eur"])
}

func TestValidate(t *testing.T) {
	base, err := Load("", true)
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown store", func(c *Config) { c.Store.Backend = "sqlite" }},
		{"missing dsn", func(c *Config) { c.DB.DSN = "" }},
		{"empty auth token", func(c *Config) { c.GRPC.AuthToken = "" }},
		{"unknown cache", func(c *Config) { c.Pricing.Cache.Backend = "memcached" }},
		{"unknown provider", func(c *Config) { c.Pricing.FundProviders = []string{"bloomberg"} }},
		{"tax rate above one", func(c *Config) { c.Valuation.CryptoTaxRate = "1.5" }},
		{"tax rate not a number", func(c *Config) { c.Valuation.CryptoTaxRate = "thirty" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
