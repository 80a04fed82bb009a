package seeder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MiguelRipoll23/financeserver-sub001/internal/domain"
)

// Fixed IDs of the demo owners so a reseed finds them again
var (
	DemoSavingsAccountID = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	DemoExchangeID       = uuid.MustParse("00000000-0000-0000-0000-000000000002")
	DemoPortfolioID      = uuid.MustParse("00000000-0000-0000-0000-000000000003")
)

// DemoSeeder fills an empty store with one position of each asset class
type DemoSeeder struct {
	repos domain.Repositories
	now   func() time.Time
}

// NewDemoSeeder creates a new DemoSeeder instance
func NewDemoSeeder(repos domain.Repositories) *DemoSeeder {
	return &DemoSeeder{repos: repos, now: time.Now}
}

// Seed creates every demo owner that does not exist yet, with its positions.
// Owners that already exist are left untouched.
func (s *DemoSeeder) Seed(ctx context.Context) error {
	steps := []struct {
		name   string
		exists func(ctx context.Context) error
		create func(ctx context.Context) error
	}{
		{
			name:   "savings account",
			exists: func(ctx context.Context) error {
				_, err := s.repos.BankAccounts.GetByID(ctx, DemoSavingsAccountID)
				return err
			},
			create: s.seedSavings,
		},
		{
			name:   "crypto exchange",
			exists: func(ctx context.Context) error {
				_, err := s.repos.Exchanges.GetByID(ctx, DemoExchangeID)
				return err
			},
			create: s.seedExchange,
		},
		{
			name:   "portfolio",
			exists: func(ctx context.Context) error {
				_, err := s.repos.Portfolios.GetByID(ctx, DemoPortfolioID)
				return err
			},
			create: s.seedPortfolio,
		},
	}

	for _, step := range steps {
		err := step.exists(ctx)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrOwnerNotFound) {
			return fmt.Errorf("failed to look up demo %s: %w", step.name, err)
		}
		if err := step.create(ctx); err != nil {
			return fmt.Errorf("failed to seed demo %s: %w", step.name, err)
		}
	}

	return nil
}

func (s *DemoSeeder) seedSavings(ctx context.Context) error {
	account := &domain.BankAccount{ID: DemoSavingsAccountID, Name: "Demo Savings", Currency: "EUR"}
	if err := account.Validate(); err != nil {
		return err
	}
	if err := s.repos.BankAccounts.Create(ctx, account); err != nil {
		return err
	}

	if err := s.repos.Balances.Add(ctx, &domain.BankAccountBalance{
		ID:        uuid.New(),
		AccountID: account.ID,
		Balance:   decimal.NewFromInt(12000),
		Currency:  account.Currency,
	}); err != nil {
		return err
	}

	return s.repos.RatePeriods.Create(ctx, &domain.RatePeriod{
		ID:        uuid.New(),
		AccountID: account.ID,
		Rate:      decimal.RequireFromString("2.5"),
		StartDate: domain.Day(s.now()).AddDate(0, -1, 0),
	})
}

func (s *DemoSeeder) seedExchange(ctx context.Context) error {
	exchange := &domain.CryptoExchange{ID: DemoExchangeID, Name: "Demo Exchange"}
	if err := s.repos.Exchanges.Create(ctx, exchange); err != nil {
		return err
	}

	return s.repos.CryptoBalances.Save(ctx, &domain.CryptoBalance{
		ID:         uuid.New(),
		ExchangeID: exchange.ID,
		Symbol:     "BTC",
		Quantity:   decimal.RequireFromString("0.5"),
		CostBasis:  &domain.CostBasis{InvestedAmount: decimal.NewFromInt(20000), InvestedCurrency: "EUR"},
	})
}

func (s *DemoSeeder) seedPortfolio(ctx context.Context) error {
	invested := decimal.NewFromInt(10000)
	portfolio := &domain.RoboadvisorPortfolio{ID: DemoPortfolioID, Name: "Demo Roboadvisor", Currency: "EUR", InvestedAmount: &invested}
	if err := s.repos.Portfolios.Create(ctx, portfolio); err != nil {
		return err
	}

	return s.repos.FundHoldings.ReplaceAll(ctx, portfolio.ID, []*domain.FundHolding{
		{ID: uuid.New(), PortfolioID: portfolio.ID, Symbol: "IWDA.AS", Weight: decimal.RequireFromString("0.7"), ReferencePrice: decimal.NewFromInt(80)},
		{ID: uuid.New(), PortfolioID: portfolio.ID, Symbol: "EMIM.AS", Weight: decimal.RequireFromString("0.3"), ReferencePrice: decimal.NewFromInt(30)},
	})
}
