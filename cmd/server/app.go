package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/MiguelRipoll23/financeserver-sub001/internal/adapter/cache"
	"github.com/MiguelRipoll23/financeserver-sub001/internal/adapter/pricing"
	"github.com/MiguelRipoll23/financeserver-sub001/internal/adapter/repository/memory"
	"github.com/MiguelRipoll23/financeserver-sub001/internal/adapter/repository/postgres"
	"github.com/MiguelRipoll23/financeserver-sub001/internal/adapter/telemetry"
	"github.com/MiguelRipoll23/financeserver-sub001/internal/config"
	"github.com/MiguelRipoll23/financeserver-sub001/internal/domain"
	"github.com/MiguelRipoll23/financeserver-sub001/internal/usecase/batch"
	"github.com/MiguelRipoll23/financeserver-sub001/internal/usecase/position"
	"github.com/MiguelRipoll23/financeserver-sub001/internal/usecase/seeder"
	"github.com/MiguelRipoll23/financeserver-sub001/internal/usecase/snapshot"
	"github.com/MiguelRipoll23/financeserver-sub001/internal/usecase/summary"
	"github.com/MiguelRipoll23/financeserver-sub001/internal/usecase/valuation"
)

// app holds every wired component of the server
type app struct {
	cfg    config.Config
	logger *zap.Logger

	txManager domain.TxManager
	repos     domain.Repositories

	snapshots *snapshot.Store
	engine    *valuation.Engine
	observer  *telemetry.Observer
	positions *position.Service
	summary   *summary.Service
	driver    *batch.Driver
	queue     *batch.Queue

	closers []func() error
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	// 1. Storage
	switch cfg.Store.Backend {
	case "memory":
		store := memory.NewStore()
		a.txManager = store.TxManager()
		a.repos = store.Repositories()
		logger.Warn("using the in-memory store, data is lost on exit")
	default:
		db, err := openDB(ctx, cfg.DB)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		if cfg.DB.MigrateOnStart {
			if err := db.Migrate(ctx); err != nil {
				a.Close()
				return nil, err
			}
		}
		a.txManager = db
		a.repos = postgres.NewRepositories(db)
	}

	// 2. Prices
	priceCache, err := a.buildCache(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	cryptoPrices, err := a.buildPrices("crypto", cfg.Pricing.CryptoProviders, priceCache)
	if err != nil {
		a.Close()
		return nil, err
	}
	fundPrices, err := a.buildPrices("fund", cfg.Pricing.FundProviders, priceCache)
	if err != nil {
		a.Close()
		return nil, err
	}

	// 3. Services
	taxRate, err := cfg.Valuation.TaxRate()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.snapshots = snapshot.NewStore(a.repos.Snapshots)
	a.observer = telemetry.NewObserver(logger)
	a.engine = valuation.NewEngine(a.repos, cryptoPrices, fundPrices, a.snapshots)
	a.engine.CryptoTaxRate = taxRate
	a.engine.Observer = a.observer
	a.positions = position.NewService(a.txManager, a.repos)
	a.summary = summary.NewService(a.repos, a.snapshots)
	a.driver = batch.NewDriver(a.engine, a.repos, cfg.Batch.Workers, logger)
	a.queue = batch.NewQueue(a.driver, cfg.Batch.QueueSize, logger)

	if cfg.App.SeedDemo {
		if err := seeder.NewDemoSeeder(a.repos).Seed(ctx); err != nil {
			a.Close()
			return nil, err
		}
		logger.Info("demo positions seeded")
	}

	return a, nil
}

func openDB(ctx context.Context, cfg config.DBConfig) (*postgres.DB, error) {
	return postgres.NewDB(ctx, cfg.DSN, postgres.PoolOptions{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	})
}

func (a *app) buildCache(ctx context.Context) (cache.Store, error) {
	c := a.cfg.Pricing.Cache
	switch c.Backend {
	case "none":
		return nil, nil
	case "redis":
		store, err := cache.NewRedisStore(ctx, c.Redis.Addr, c.Redis.Password, c.Redis.DB, c.Redis.Prefix)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	default:
		return cache.NewMemoryStore(), nil
	}
}

// buildPrices chains the named providers in order, behind the price cache when one is set.
// namespace separates the cache entries of the crypto and fund chains.
func (a *app) buildPrices(namespace string, names []string, store cache.Store) (domain.PriceProvider, error) {
	p := a.cfg.Pricing

	var static pricing.Static
	if len(p.Static) > 0 {
		var err error
		if static, err = pricing.ParseStatic(p.Static); err != nil {
			return nil, err
		}
	}

	chain := make(pricing.Chain, 0, len(names))
	for _, name := range names {
		switch name {
		case "coingecko":
			chain = append(chain, pricing.NewCoinGecko(p.CoinGecko.BaseURL, p.CoinGecko.APIKey, p.CoinGecko.Timeout))
		case "yahoo":
			chain = append(chain, pricing.NewYahoo(p.Yahoo.Lookback))
		case "static":
			if static == nil {
				static = pricing.Static{}
			}
			chain = append(chain, static)
		default:
			return nil, fmt.Errorf("unknown price provider %q", name)
		}
	}

	if store == nil {
		return chain, nil
	}
	return pricing.NewCached(chain, store, namespace, p.Cache.TTL, a.logger), nil
}

// Close releases every resource opened by newApp, last opened first
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("failed to close resource", zap.Error(err))
		}
	}
	a.closers = nil
}
