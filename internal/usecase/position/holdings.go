package position

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MiguelRipoll23/financeserver-sub001/internal/domain"
)

// CreateCryptoExchange creates a crypto exchange
func (s *Service) CreateCryptoExchange(ctx context.Context, name string) (*domain.CryptoExchange, error) {
	exchange := &domain.CryptoExchange{ID: uuid.New(), Name: name}
	if err := exchange.Validate(); err != nil {
		return nil, err
	}
	if err := s.ExchangeRepo.Create(ctx, exchange); err != nil {
		return nil, fmt.Errorf("failed to create crypto exchange: %w", err)
	}
	return exchange, nil
}

func (s *Service) GetCryptoExchange(ctx context.Context, id uuid.UUID) (*domain.CryptoExchange, error) {
	return s.ExchangeRepo.GetByID(ctx, id)
}

func (s *Service) ListCryptoExchanges(ctx context.Context) ([]*domain.CryptoExchange, error) {
	return s.ExchangeRepo.List(ctx)
}

// DeleteCryptoExchange removes the exchange with its balances and snapshots
func (s *Service) DeleteCryptoExchange(ctx context.Context, id uuid.UUID) error {
	return s.ExchangeRepo.Delete(ctx, id)
}

// SaveCryptoBalanceInput represents the input for recording a crypto balance.
// InvestedAmount and InvestedCurrency form the cost basis and must be set together.
type SaveCryptoBalanceInput struct {
	ExchangeID       uuid.UUID
	Symbol           string
	Quantity         decimal.Decimal
	InvestedAmount   *decimal.Decimal
	InvestedCurrency string
}

// SaveCryptoBalance upserts the balance of a symbol on an exchange
func (s *Service) SaveCryptoBalance(ctx context.Context, input SaveCryptoBalanceInput) (*domain.CryptoBalance, error) {
	if _, err := s.ExchangeRepo.GetByID(ctx, input.ExchangeID); err != nil {
		return nil, err
	}

	balance := &domain.CryptoBalance{
		ID:         uuid.New(),
		ExchangeID: input.ExchangeID,
		Symbol:     domain.NormalizeSymbol(input.Symbol),
		Quantity:   input.Quantity,
	}

	currency := domain.NormalizeCurrency(input.InvestedCurrency)
	switch {
	case input.InvestedAmount != nil && currency != "":
		balance.CostBasis = &domain.CostBasis{InvestedAmount: *input.InvestedAmount, InvestedCurrency: currency}
	case input.InvestedAmount != nil || currency != "":
		return nil, fmt.Errorf("%w: invested amount and invested currency must be set together", domain.ErrValidation)
	}

	if err := balance.Validate(); err != nil {
		return nil, err
	}
	if err := s.CryptoBalanceRepo.Save(ctx, balance); err != nil {
		return nil, fmt.Errorf("failed to save crypto balance: %w", err)
	}
	return balance, nil
}

// ListCryptoBalances returns the balances held on an exchange
func (s *Service) ListCryptoBalances(ctx context.Context, exchangeID uuid.UUID) ([]*domain.CryptoBalance, error) {
	if _, err := s.ExchangeRepo.GetByID(ctx, exchangeID); err != nil {
		return nil, err
	}
	return s.CryptoBalanceRepo.ListByExchange(ctx, exchangeID)
}

// CreatePortfolio creates a roboadvisor portfolio
func (s *Service) CreatePortfolio(ctx context.Context, name, currency string, investedAmount *decimal.Decimal) (*domain.RoboadvisorPortfolio, error) {
	portfolio := &domain.RoboadvisorPortfolio{
		ID:             uuid.New(),
		Name:           name,
		Currency:       domain.NormalizeCurrency(currency),
		InvestedAmount: investedAmount,
	}
	if err := portfolio.Validate(); err != nil {
		return nil, err
	}
	if err := s.PortfolioRepo.Create(ctx, portfolio); err != nil {
		return nil, fmt.Errorf("failed to create portfolio: %w", err)
	}
	return portfolio, nil
}

func (s *Service) GetPortfolio(ctx context.Context, id uuid.UUID) (*domain.RoboadvisorPortfolio, error) {
	return s.PortfolioRepo.GetByID(ctx, id)
}

func (s *Service) ListPortfolios(ctx context.Context) ([]*domain.RoboadvisorPortfolio, error) {
	return s.PortfolioRepo.List(ctx)
}

// DeletePortfolio removes the portfolio with its holdings and snapshots
func (s *Service) DeletePortfolio(ctx context.Context, id uuid.UUID) error {
	return s.PortfolioRepo.Delete(ctx, id)
}

// SetPortfolioInvestment records the capital allocated across the basket
func (s *Service) SetPortfolioInvestment(ctx context.Context, portfolioID uuid.UUID, amount decimal.Decimal) (*domain.RoboadvisorPortfolio, error) {
	var portfolio *domain.RoboadvisorPortfolio

	err := s.TxManager.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.PortfolioRepo.GetByID(ctx, portfolioID)
		if err != nil {
			return err
		}
		p.InvestedAmount = &amount
		if err := p.Validate(); err != nil {
			return err
		}
		if err := s.PortfolioRepo.Update(ctx, p); err != nil {
			return fmt.Errorf("failed to update portfolio: %w", err)
		}
		portfolio = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return portfolio, nil
}

// FundHoldingInput represents one fund of a basket
type FundHoldingInput struct {
	Symbol         string
	Weight         decimal.Decimal
	ReferencePrice decimal.Decimal
}

// ReplaceFundHoldings swaps the whole basket of a portfolio.
// Symbols must be unique within the basket; the weight sum is not checked.
func (s *Service) ReplaceFundHoldings(ctx context.Context, portfolioID uuid.UUID, inputs []FundHoldingInput) ([]*domain.FundHolding, error) {
	holdings := make([]*domain.FundHolding, 0, len(inputs))
	seen := make(map[string]bool, len(inputs))

	for _, in := range inputs {
		h := &domain.FundHolding{
			ID:             uuid.New(),
			PortfolioID:    portfolioID,
			Symbol:         domain.NormalizeSymbol(in.Symbol),
			Weight:         in.Weight,
			ReferencePrice: in.ReferencePrice,
		}
		if err := h.Validate(); err != nil {
			return nil, err
		}
		if seen[h.Symbol] {
			return nil, fmt.Errorf("%w: fund %s appears twice in the basket", domain.ErrValidation, h.Symbol)
		}
		seen[h.Symbol] = true
		holdings = append(holdings, h)
	}

	err := s.TxManager.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.PortfolioRepo.GetByID(ctx, portfolioID); err != nil {
			return err
		}
		if err := s.FundHoldingRepo.ReplaceAll(ctx, portfolioID, holdings); err != nil {
			return fmt.Errorf("failed to replace fund holdings: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return holdings, nil
}

// ListFundHoldings returns the basket of a portfolio ordered by symbol
func (s *Service) ListFundHoldings(ctx context.Context, portfolioID uuid.UUID) ([]*domain.FundHolding, error) {
	if _, err := s.PortfolioRepo.GetByID(ctx, portfolioID); err != nil {
		return nil, err
	}
	return s.FundHoldingRepo.ListByPortfolio(ctx, portfolioID)
}
