package pricing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/MiguelRipoll23/financeserver-sub001/internal/adapter/cache"
	"github.com/MiguelRipoll23/financeserver-sub001/internal/domain"
)

// Cached serves prices from a cache.Store and falls through to Next on a miss.
// Cache failures are logged and never fail the quote. Errors from Next are not cached.
// Namespace keeps providers sharing one store apart.
type Cached struct {
	Next      domain.PriceProvider
	Store     cache.Store
	Namespace string
	TTL       time.Duration
	Logger    *zap.Logger
}

// NewCached wraps next with a price cache under namespace
func NewCached(next domain.PriceProvider, store cache.Store, namespace string, ttl time.Duration, logger *zap.Logger) *Cached {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cached{Next: next, Store: store, Namespace: namespace, TTL: ttl, Logger: logger}
}

func (c *Cached) CurrentPrice(ctx context.Context, symbol, currency string) (decimal.Decimal, error) {
	symbol = domain.NormalizeSymbol(symbol)
	currency = domain.NormalizeCurrency(currency)
	key := cacheKey(c.Namespace, symbol, currency)

	raw, found, err := c.Store.Get(ctx, key)
	switch {
	case err != nil:
		c.Logger.Warn("price cache read failed", zap.String("key", key), zap.Error(err))
	case found:
		if price, err := decimal.NewFromString(string(raw)); err == nil && price.IsPositive() {
			return price, nil
		}
		c.Logger.Warn("dropping unreadable cached price", zap.String("key", key))
		_ = c.Store.Delete(ctx, key)
	}

	price, err := c.Next.CurrentPrice(ctx, symbol, currency)
	if err != nil {
		return decimal.Zero, err
	}

	if err := c.Store.Set(ctx, key, []byte(price.String()), c.TTL); err != nil {
		c.Logger.Warn("price cache write failed", zap.String("key", key), zap.Error(err))
	}
	return price, nil
}

func cacheKey(namespace, symbol, currency string) string {
	if namespace == "" {
		return "price:" + symbol + ":" + currency
	}
	return "price:" + namespace + ":" + symbol + ":" + currency
}
