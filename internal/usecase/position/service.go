package position

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MiguelRipoll23/financeserver-sub001/internal/domain"
	"github.com/MiguelRipoll23/financeserver-sub001/internal/usecase/interval"
)

// Service handles the writes that feed the valuation engine: owners, balances,
// rate periods and fund baskets
type Service struct {
	TxManager         domain.TxManager
	BankAccountRepo   domain.BankAccountRepository
	BalanceRepo       domain.BalanceRepository
	RatePeriodRepo    domain.RatePeriodRepository
	ExchangeRepo      domain.CryptoExchangeRepository
	CryptoBalanceRepo domain.CryptoBalanceRepository
	PortfolioRepo     domain.PortfolioRepository
	FundHoldingRepo   domain.FundHoldingRepository
	Guard             *interval.Guard
}

// NewService creates a new Service instance
func NewService(txManager domain.TxManager, repos domain.Repositories) *Service {
	return &Service{
		TxManager:         txManager,
		BankAccountRepo:   repos.BankAccounts,
		BalanceRepo:       repos.Balances,
		RatePeriodRepo:    repos.RatePeriods,
		ExchangeRepo:      repos.Exchanges,
		CryptoBalanceRepo: repos.CryptoBalances,
		PortfolioRepo:     repos.Portfolios,
		FundHoldingRepo:   repos.FundHoldings,
		Guard:             interval.NewGuard(repos.RatePeriods),
	}
}

// CreateBankAccount creates a bank account
func (s *Service) CreateBankAccount(ctx context.Context, name, currency string) (*domain.BankAccount, error) {
	account := &domain.BankAccount{
		ID:       uuid.New(),
		Name:     name,
		Currency: domain.NormalizeCurrency(currency),
	}
	if err := account.Validate(); err != nil {
		return nil, err
	}
	if err := s.BankAccountRepo.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create bank account: %w", err)
	}
	return account, nil
}

func (s *Service) GetBankAccount(ctx context.Context, id uuid.UUID) (*domain.BankAccount, error) {
	return s.BankAccountRepo.GetByID(ctx, id)
}

func (s *Service) ListBankAccounts(ctx context.Context) ([]*domain.BankAccount, error) {
	return s.BankAccountRepo.List(ctx)
}

// DeleteBankAccount removes the account with its balances, rate periods and snapshots
func (s *Service) DeleteBankAccount(ctx context.Context, id uuid.UUID) error {
	return s.BankAccountRepo.Delete(ctx, id)
}

// RecordBalanceInput represents the input for recording a bank account balance
type RecordBalanceInput struct {
	AccountID uuid.UUID
	Balance   decimal.Decimal
	Currency  string // defaults to the account currency
}

// RecordBankBalance appends a balance row; the newest row is the current balance
func (s *Service) RecordBankBalance(ctx context.Context, input RecordBalanceInput) (*domain.BankAccountBalance, error) {
	account, err := s.BankAccountRepo.GetByID(ctx, input.AccountID)
	if err != nil {
		return nil, err
	}

	currency := domain.NormalizeCurrency(input.Currency)
	if currency == "" {
		currency = account.Currency
	}

	balance := &domain.BankAccountBalance{
		ID:        uuid.New(),
		AccountID: account.ID,
		Balance:   input.Balance,
		Currency:  currency,
	}
	if err := balance.Validate(); err != nil {
		return nil, err
	}
	if err := s.BalanceRepo.Add(ctx, balance); err != nil {
		return nil, fmt.Errorf("failed to record balance: %w", err)
	}
	return balance, nil
}

// CreateRatePeriodInput represents the input for creating an interest rate period
type CreateRatePeriodInput struct {
	AccountID uuid.UUID
	Rate      decimal.Decimal
	StartDate time.Time
	EndDate   *time.Time
}

// CreateRatePeriod adds a rate period to an account
// Logic (one transaction):
//  1. Lock the owning account row (fails with ErrOwnerNotFound if missing)
//  2. Validate the period
//  3. Reject it when it overlaps a bounded period of the account
//  4. Insert
func (s *Service) CreateRatePeriod(ctx context.Context, input CreateRatePeriodInput) (*domain.RatePeriod, error) {
	period := &domain.RatePeriod{
		ID:        uuid.New(),
		AccountID: input.AccountID,
		Rate:      input.Rate,
		StartDate: domain.Day(input.StartDate),
		EndDate:   dayPtr(input.EndDate),
	}

	err := s.TxManager.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.BankAccountRepo.LockForUpdate(ctx, period.AccountID); err != nil {
			return err
		}
		if err := period.Validate(); err != nil {
			return err
		}
		if err := s.Guard.AssertNoOverlap(ctx, period.AccountID, period.StartDate, period.EndDate, nil); err != nil {
			return err
		}
		if err := s.RatePeriodRepo.Create(ctx, period); err != nil {
			return fmt.Errorf("failed to create rate period: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return period, nil
}

// UpdateRatePeriodInput represents a partial update of a rate period.
// Nil fields are left unchanged; ClearEndDate makes the period open ended.
type UpdateRatePeriodInput struct {
	ID           uuid.UUID
	Rate         *decimal.Decimal
	StartDate    *time.Time
	EndDate      *time.Time
	ClearEndDate bool
}

// UpdateRatePeriod applies a partial update. The overlap check excludes the period
// itself and only runs when the rate or a bound actually changes.
// The period is read again once the account is locked so the update merges onto
// the latest committed values.
func (s *Service) UpdateRatePeriod(ctx context.Context, input UpdateRatePeriodInput) (*domain.RatePeriod, error) {
	var updated *domain.RatePeriod

	err := s.TxManager.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.RatePeriodRepo.GetByID(ctx, input.ID)
		if err != nil {
			return err
		}
		if err := s.BankAccountRepo.LockForUpdate(ctx, current.AccountID); err != nil {
			return err
		}
		existing, err := s.RatePeriodRepo.GetByID(ctx, input.ID)
		if err != nil {
			return err
		}

		next := *existing
		if input.Rate != nil {
			next.Rate = *input.Rate
		}
		if input.StartDate != nil {
			next.StartDate = domain.Day(*input.StartDate)
		}
		switch {
		case input.ClearEndDate:
			next.EndDate = nil
		case input.EndDate != nil:
			next.EndDate = dayPtr(input.EndDate)
		}

		if !changed(existing, &next) {
			updated = existing
			return nil
		}

		if err := next.Validate(); err != nil {
			return err
		}
		if err := s.Guard.AssertNoOverlap(ctx, next.AccountID, next.StartDate, next.EndDate, &next.ID); err != nil {
			return err
		}
		if err := s.RatePeriodRepo.Update(ctx, &next); err != nil {
			return fmt.Errorf("failed to update rate period: %w", err)
		}
		updated = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteRatePeriod removes a rate period
func (s *Service) DeleteRatePeriod(ctx context.Context, id uuid.UUID) error {
	return s.TxManager.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.RatePeriodRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.BankAccountRepo.LockForUpdate(ctx, existing.AccountID); err != nil {
			return err
		}
		return s.RatePeriodRepo.Delete(ctx, id)
	})
}

// ListRatePeriods returns the rate periods of an account ordered by start date
func (s *Service) ListRatePeriods(ctx context.Context, accountID uuid.UUID) ([]*domain.RatePeriod, error) {
	if _, err := s.BankAccountRepo.GetByID(ctx, accountID); err != nil {
		return nil, err
	}
	return s.RatePeriodRepo.ListByAccount(ctx, accountID)
}

func changed(a, b *domain.RatePeriod) bool {
	if !a.Rate.Equal(b.Rate) || !a.StartDate.Equal(b.StartDate) {
		return true
	}
	if (a.EndDate == nil) != (b.EndDate == nil) {
		return true
	}
	return a.EndDate != nil && !a.EndDate.Equal(*b.EndDate)
}

func dayPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := domain.Day(*t)
	return &d
}
