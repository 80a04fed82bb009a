package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MiguelRipoll23/financeserver-sub001/internal/domain"
	"github.com/MiguelRipoll23/financeserver-sub001/internal/usecase/valuation"
)

// DefaultWorkers is the size of the worker pool when none is configured
const DefaultWorkers = 10

// Calculator runs one valuation request
type Calculator interface {
	Calculate(ctx context.Context, req valuation.Request) (*valuation.Outcome, error)
}

// Failure is a position whose recomputation hit a hard error
type Failure struct {
	Key domain.OwnerKey
	Err error
}

// Report summarizes one RecomputeAll run
type Report struct {
	Class      domain.AssetClass
	Total      int
	Computed   int
	Skipped    int
	Failures   []Failure
	StartedAt  time.Time
	FinishedAt time.Time
}

// Driver recomputes every position of an asset class
type Driver struct {
	Engine            Calculator
	BalanceRepo       domain.BalanceRepository
	CryptoBalanceRepo domain.CryptoBalanceRepository
	PortfolioRepo     domain.PortfolioRepository
	Workers           int
	Logger            *zap.Logger
}

// NewDriver creates a new Driver instance
func NewDriver(engine Calculator, repos domain.Repositories, workers int, logger *zap.Logger) *Driver {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		Engine:            engine,
		BalanceRepo:       repos.Balances,
		CryptoBalanceRepo: repos.CryptoBalances,
		PortfolioRepo:     repos.Portfolios,
		Workers:           workers,
		Logger:            logger,
	}
}

// Enumerate lists one request per position of class:
// bank accounts with at least one balance, every crypto balance, every portfolio
func (d *Driver) Enumerate(ctx context.Context, class domain.AssetClass) ([]valuation.Request, error) {
	var reqs []valuation.Request

	switch class {
	case domain.AssetClassInterest:
		ids, err := d.BalanceRepo.ListAccountIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list accounts with balances: %w", err)
		}
		for _, id := range ids {
			reqs = append(reqs, valuation.InterestRequest{AccountID: id})
		}
	case domain.AssetClassCrypto:
		balances, err := d.CryptoBalanceRepo.ListAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list crypto balances: %w", err)
		}
		for _, b := range balances {
			reqs = append(reqs, valuation.CryptoRequest{ExchangeID: b.ExchangeID, Symbol: b.Symbol})
		}
	case domain.AssetClassFund:
		portfolios, err := d.PortfolioRepo.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list portfolios: %w", err)
		}
		for _, p := range portfolios {
			reqs = append(reqs, valuation.FundRequest{PortfolioID: p.ID})
		}
	default:
		return nil, fmt.Errorf("%w: unknown asset class %q", domain.ErrValidation, class)
	}

	return reqs, nil
}

// RecomputeAll recalculates every position of class on a bounded worker pool.
// A failing item is recorded in the report and never stops the run; only a failed
// enumeration returns an error. Items still queued when ctx ends fail with ctx.Err().
func (d *Driver) RecomputeAll(ctx context.Context, class domain.AssetClass) (*Report, error) {
	reqs, err := d.Enumerate(ctx, class)
	if err != nil {
		return nil, err
	}

	report := &Report{Class: class, Total: len(reqs), StartedAt: time.Now().UTC()}

	inputCh := make(chan valuation.Request, len(reqs))
	for _, r := range reqs {
		inputCh <- r
	}
	close(inputCh)

	workers := d.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if workers > len(reqs) {
		workers = len(reqs)
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for req := range inputCh {
				out, err := d.run(ctx, req)

				mu.Lock()
				switch {
				case err != nil:
					report.Failures = append(report.Failures, Failure{Key: req.Key(), Err: err})
				case out.Status == valuation.StatusUnavailable:
					report.Skipped++
				default:
					report.Computed++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	report.FinishedAt = time.Now().UTC()
	d.logger().Info("recompute finished",
		zap.String("class", string(class)),
		zap.Int("total", report.Total),
		zap.Int("computed", report.Computed),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", len(report.Failures)),
		zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)

	return report, nil
}

func (d *Driver) run(ctx context.Context, req valuation.Request) (out *valuation.Outcome, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			d.logger().Error("valuation panicked", zap.Stringer("key", req.Key()), zap.Any("panic", r))
			out, err = nil, fmt.Errorf("valuation of %s panicked: %v", req.Key(), r)
		}
	}()
	return d.Engine.Calculate(ctx, req)
}

func (d *Driver) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}
