package summary

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MiguelRipoll23/financeserver-sub001/internal/domain"
	"github.com/MiguelRipoll23/financeserver-sub001/internal/usecase/snapshot"
)

// BankAccountSummary is the read view of one bank account
type BankAccountSummary struct {
	Account       *domain.BankAccount
	LatestBalance *domain.BankAccountBalance // nil when no balance was recorded
	ActiveRate    *domain.RatePeriod         // nil when no period covers today
	Calculation   *domain.ValuationSnapshot  // latest interest projection, nil if never computed
}

// CryptoPositionSummary pairs a crypto balance with its latest after-tax valuation
type CryptoPositionSummary struct {
	Balance     *domain.CryptoBalance
	Calculation *domain.ValuationSnapshot
}

// ExchangeSummary is the read view of one crypto exchange
type ExchangeSummary struct {
	Exchange  *domain.CryptoExchange
	Positions []CryptoPositionSummary
}

// PortfolioSummary is the read view of one roboadvisor portfolio
type PortfolioSummary struct {
	Portfolio   *domain.RoboadvisorPortfolio
	Holdings    []*domain.FundHolding
	Calculation *domain.ValuationSnapshot
}

// CurrencyTotal is the net worth held in one currency
type CurrencyTotal struct {
	Currency string
	Bank     decimal.Decimal
	Crypto   decimal.Decimal
	Funds    decimal.Decimal
	Total    decimal.Decimal
}

// NetWorthResult represents the net worth grouped by currency, ordered by currency code.
// Amounts in different currencies are never added together.
type NetWorthResult struct {
	ByCurrency []CurrencyTotal
	AsOf       time.Time
}

// Total returns the total held in currency, zero when nothing is held in it
func (r *NetWorthResult) Total(currency string) decimal.Decimal {
	for _, t := range r.ByCurrency {
		if t.Currency == currency {
			return t.Total
		}
	}
	return decimal.Zero
}

// Service builds read views from stored positions and snapshots. It never recomputes.
type Service struct {
	BankAccountRepo   domain.BankAccountRepository
	BalanceRepo       domain.BalanceRepository
	RatePeriodRepo    domain.RatePeriodRepository
	ExchangeRepo      domain.CryptoExchangeRepository
	CryptoBalanceRepo domain.CryptoBalanceRepository
	PortfolioRepo     domain.PortfolioRepository
	FundHoldingRepo   domain.FundHoldingRepository
	Snapshots         *snapshot.Store
	Now               func() time.Time
}

// NewService creates a new Service instance
func NewService(repos domain.Repositories, snapshots *snapshot.Store) *Service {
	return &Service{
		BankAccountRepo:   repos.BankAccounts,
		BalanceRepo:       repos.Balances,
		RatePeriodRepo:    repos.RatePeriods,
		ExchangeRepo:      repos.Exchanges,
		CryptoBalanceRepo: repos.CryptoBalances,
		PortfolioRepo:     repos.Portfolios,
		FundHoldingRepo:   repos.FundHoldings,
		Snapshots:         snapshots,
		Now:               time.Now,
	}
}

// GetBankAccountSummary returns the latest balance, active rate and interest projection of an account
func (s *Service) GetBankAccountSummary(ctx context.Context, accountID uuid.UUID) (*BankAccountSummary, error) {
	account, err := s.BankAccountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	out := &BankAccountSummary{Account: account}

	balance, err := s.BalanceRepo.GetLatest(ctx, accountID)
	switch {
	case err == nil:
		out.LatestBalance = balance
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("failed to get latest balance: %w", err)
	}

	today := domain.Day(s.now())
	periods, err := s.RatePeriodRepo.ListActive(ctx, accountID, today)
	if err != nil {
		return nil, fmt.Errorf("failed to list active rate periods: %w", err)
	}
	out.ActiveRate = domain.ActivePeriod(periods, today)

	out.Calculation, err = s.Snapshots.GetLatest(ctx, domain.OwnerKey{Class: domain.AssetClassInterest, OwnerID: accountID})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetExchangeSummary returns every balance of an exchange with its latest valuation
func (s *Service) GetExchangeSummary(ctx context.Context, exchangeID uuid.UUID) (*ExchangeSummary, error) {
	exchange, err := s.ExchangeRepo.GetByID(ctx, exchangeID)
	if err != nil {
		return nil, err
	}

	balances, err := s.CryptoBalanceRepo.ListByExchange(ctx, exchangeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list crypto balances: %w", err)
	}

	out := &ExchangeSummary{Exchange: exchange, Positions: make([]CryptoPositionSummary, 0, len(balances))}
	for _, b := range balances {
		snap, err := s.Snapshots.GetLatest(ctx, domain.OwnerKey{Class: domain.AssetClassCrypto, OwnerID: exchangeID, Symbol: b.Symbol})
		if err != nil {
			return nil, err
		}
		out.Positions = append(out.Positions, CryptoPositionSummary{Balance: b, Calculation: snap})
	}
	return out, nil
}

// GetPortfolioSummary returns the basket of a portfolio and its latest valuation
func (s *Service) GetPortfolioSummary(ctx context.Context, portfolioID uuid.UUID) (*PortfolioSummary, error) {
	portfolio, err := s.PortfolioRepo.GetByID(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	holdings, err := s.FundHoldingRepo.ListByPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to list fund holdings: %w", err)
	}

	snap, err := s.Snapshots.GetLatest(ctx, domain.OwnerKey{Class: domain.AssetClassFund, OwnerID: portfolioID})
	if err != nil {
		return nil, err
	}
	return &PortfolioSummary{Portfolio: portfolio, Holdings: holdings, Calculation: snap}, nil
}

// GetNetWorth sums what is held, grouped by currency
// Logic:
//   - Bank: latest balance of every account
//   - Crypto: latest after-tax snapshot of every crypto balance
//   - Funds: latest snapshot of every portfolio
//
// Positions that were never valued are left out rather than counted as zero.
func (s *Service) GetNetWorth(ctx context.Context) (*NetWorthResult, error) {
	totals := map[string]*CurrencyTotal{}
	bucket := func(currency string) *CurrencyTotal {
		t, ok := totals[currency]
		if !ok {
			t = &CurrencyTotal{Currency: currency}
			totals[currency] = t
		}
		return t
	}

	// 1. Bank balances
	accountIDs, err := s.BalanceRepo.ListAccountIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts with balances: %w", err)
	}
	for _, id := range accountIDs {
		balance, err := s.BalanceRepo.GetLatest(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get latest balance: %w", err)
		}
		t := bucket(balance.Currency)
		t.Bank = t.Bank.Add(balance.Balance)
	}

	// 2. Crypto after-tax values
	cryptoBalances, err := s.CryptoBalanceRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list crypto balances: %w", err)
	}
	for _, b := range cryptoBalances {
		snap, err := s.Snapshots.GetLatest(ctx, domain.OwnerKey{Class: domain.AssetClassCrypto, OwnerID: b.ExchangeID, Symbol: b.Symbol})
		if err != nil {
			return nil, err
		}
		if snap == nil {
			continue
		}
		t := bucket(snap.Currency)
		t.Crypto = t.Crypto.Add(snap.Value)
	}

	// 3. Fund baskets
	portfolios, err := s.PortfolioRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}
	for _, p := range portfolios {
		snap, err := s.Snapshots.GetLatest(ctx, domain.OwnerKey{Class: domain.AssetClassFund, OwnerID: p.ID})
		if err != nil {
			return nil, err
		}
		if snap == nil {
			continue
		}
		t := bucket(snap.Currency)
		t.Funds = t.Funds.Add(snap.Value)
	}

	out := &NetWorthResult{ByCurrency: make([]CurrencyTotal, 0, len(totals)), AsOf: s.now().UTC()}
	for _, t := range totals {
		t.Total = t.Bank.Add(t.Crypto).Add(t.Funds).Round(2)
		out.ByCurrency = append(out.ByCurrency, *t)
	}
	sort.Slice(out.ByCurrency, func(i, j int) bool {
		return out.ByCurrency[i].Currency < out.ByCurrency[j].Currency
	})
	return out, nil
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
