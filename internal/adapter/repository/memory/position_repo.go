package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/MiguelRipoll23/financeserver-sub001/internal/domain"
)

// balanceRepository implements domain.BalanceRepository
type balanceRepository struct {
	s *Store
}

// NewBalanceRepository creates a new in-memory bank balance repository
func NewBalanceRepository(s *Store) domain.BalanceRepository {
	return &balanceRepository{s: s}
}

func (r *balanceRepository) Add(ctx context.Context, balance *domain.BankAccountBalance) error {
	return r.s.write(ctx, func(st *state, now time.Time) error {
		if _, ok := st.accounts[balance.AccountID]; !ok {
			return fmt.Errorf("bank account %s: %w", balance.AccountID, domain.ErrOwnerNotFound)
		}
		if balance.CreatedAt.IsZero() {
			balance.CreatedAt = now
		}
		balance.UpdatedAt = now
		st.balances[balance.AccountID] = append(st.balances[balance.AccountID], *balance)
		return nil
	})
}

func (r *balanceRepository) GetLatest(ctx context.Context, accountID uuid.UUID) (*domain.BankAccountBalance, error) {
	var out *domain.BankAccountBalance
	err := r.s.read(func(st *state) error {
		rows := st.balances[accountID]
		if len(rows) == 0 {
			return fmt.Errorf("balance of account %s: %w", accountID, domain.ErrNotFound)
		}
		latest := rows[0]
		for _, b := range rows[1:] {
			if !b.CreatedAt.Before(latest.CreatedAt) {
				latest = b
			}
		}
		out = &latest
		return nil
	})
	return out, err
}

func (r *balanceRepository) ListAccountIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	_ = r.s.read(func(st *state) error {
		for id, rows := range st.balances {
			if len(rows) > 0 {
				ids = append(ids, id)
			}
		}
		return nil
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

// ratePeriodRepository implements domain.RatePeriodRepository
type ratePeriodRepository struct {
	s *Store
}

// NewRatePeriodRepository creates a new in-memory rate period repository
func NewRatePeriodRepository(s *Store) domain.RatePeriodRepository {
	return &ratePeriodRepository{s: s}
}

func (r *ratePeriodRepository) Create(ctx context.Context, period *domain.RatePeriod) error {
	return r.s.write(ctx, func(st *state, now time.Time) error {
		if _, ok := st.accounts[period.AccountID]; !ok {
			return fmt.Errorf("bank account %s: %w", period.AccountID, domain.ErrOwnerNotFound)
		}
		period.CreatedAt, period.UpdatedAt = now, now
		st.ratePeriods[period.ID] = copyRatePeriod(*period)
		return nil
	})
}

func (r *ratePeriodRepository) Update(ctx context.Context, period *domain.RatePeriod) error {
	return r.s.write(ctx, func(st *state, now time.Time) error {
		existing, ok := st.ratePeriods[period.ID]
		if !ok {
			return fmt.Errorf("rate period %s: %w", period.ID, domain.ErrNotFound)
		}
		period.CreatedAt = existing.CreatedAt
		period.UpdatedAt = now
		st.ratePeriods[period.ID] = copyRatePeriod(*period)
		return nil
	})
}

func (r *ratePeriodRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.s.write(ctx, func(st *state, _ time.Time) error {
		if _, ok := st.ratePeriods[id]; !ok {
			return fmt.Errorf("rate period %s: %w", id, domain.ErrNotFound)
		}
		delete(st.ratePeriods, id)
		return nil
	})
}

func (r *ratePeriodRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.RatePeriod, error) {
	var out *domain.RatePeriod
	err := r.s.read(func(st *state) error {
		p, ok := st.ratePeriods[id]
		if !ok {
			return fmt.Errorf("rate period %s: %w", id, domain.ErrNotFound)
		}
		p = copyRatePeriod(p)
		out = &p
		return nil
	})
	return out, err
}

func (r *ratePeriodRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*domain.RatePeriod, error) {
	return r.filter(func(p domain.RatePeriod) bool {
		return p.AccountID == accountID
	}), nil
}

func (r *ratePeriodRepository) FindOverlapping(
	ctx context.Context,
	accountID uuid.UUID,
	start, end time.Time,
	excludeID *uuid.UUID,
) ([]*domain.RatePeriod, error) {
	return r.filter(func(p domain.RatePeriod) bool {
		if p.AccountID != accountID || p.EndDate == nil {
			return false
		}
		if excludeID != nil && p.ID == *excludeID {
			return false
		}
		return domain.Overlaps(start, end, p.StartDate, *p.EndDate)
	}), nil
}

func (r *ratePeriodRepository) ListActive(ctx context.Context, accountID uuid.UUID, day time.Time) ([]*domain.RatePeriod, error) {
	return r.filter(func(p domain.RatePeriod) bool {
		return p.AccountID == accountID && p.ActiveOn(day)
	}), nil
}

// filter returns matching periods ordered by start date
func (r *ratePeriodRepository) filter(match func(p domain.RatePeriod) bool) []*domain.RatePeriod {
	out := []*domain.RatePeriod{}
	_ = r.s.read(func(st *state) error {
		for _, p := range st.ratePeriods {
			if match(p) {
				p := copyRatePeriod(p)
				out = append(out, &p)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// cryptoBalanceRepository implements domain.CryptoBalanceRepository
type cryptoBalanceRepository struct {
	s *Store
}

// NewCryptoBalanceRepository creates a new in-memory crypto balance repository
func NewCryptoBalanceRepository(s *Store) domain.CryptoBalanceRepository {
	return &cryptoBalanceRepository{s: s}
}

func (r *cryptoBalanceRepository) Save(ctx context.Context, balance *domain.CryptoBalance) error {
	return r.s.write(ctx, func(st *state, now time.Time) error {
		if _, ok := st.exchanges[balance.ExchangeID]; !ok {
			return fmt.Errorf("crypto exchange %s: %w", balance.ExchangeID, domain.ErrOwnerNotFound)
		}
		key := cryptoKey{exchangeID: balance.ExchangeID, symbol: balance.Symbol}
		if existing, ok := st.cryptoBalances[key]; ok {
			balance.ID = existing.ID
			balance.CreatedAt = existing.CreatedAt
		} else {
			balance.CreatedAt = now
		}
		balance.UpdatedAt = now
		st.cryptoBalances[key] = copyCryptoBalance(*balance)
		return nil
	})
}

func (r *cryptoBalanceRepository) Get(ctx context.Context, exchangeID uuid.UUID, symbol string) (*domain.CryptoBalance, error) {
	var out *domain.CryptoBalance
	err := r.s.read(func(st *state) error {
		b, ok := st.cryptoBalances[cryptoKey{exchangeID: exchangeID, symbol: symbol}]
		if !ok {
			return fmt.Errorf("crypto balance %s on %s: %w", symbol, exchangeID, domain.ErrNotFound)
		}
		b = copyCryptoBalance(b)
		out = &b
		return nil
	})
	return out, err
}

func (r *cryptoBalanceRepository) ListByExchange(ctx context.Context, exchangeID uuid.UUID) ([]*domain.CryptoBalance, error) {
	return r.filter(func(b domain.CryptoBalance) bool { return b.ExchangeID == exchangeID }), nil
}

func (r *cryptoBalanceRepository) ListAll(ctx context.Context) ([]*domain.CryptoBalance, error) {
	return r.filter(func(domain.CryptoBalance) bool { return true }), nil
}

// filter returns matching balances ordered by exchange then symbol
func (r *cryptoBalanceRepository) filter(match func(b domain.CryptoBalance) bool) []*domain.CryptoBalance {
	out := []*domain.CryptoBalance{}
	_ = r.s.read(func(st *state) error {
		for _, b := range st.cryptoBalances {
			if match(b) {
				b := copyCryptoBalance(b)
				out = append(out, &b)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].ExchangeID != out[j].ExchangeID {
			return out[i].ExchangeID.String() < out[j].ExchangeID.String()
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

// fundHoldingRepository implements domain.FundHoldingRepository
type fundHoldingRepository struct {
	s *Store
}

// NewFundHoldingRepository creates a new in-memory fund holding repository
func NewFundHoldingRepository(s *Store) domain.FundHoldingRepository {
	return &fundHoldingRepository{s: s}
}

func (r *fundHoldingRepository) ReplaceAll(ctx context.Context, portfolioID uuid.UUID, holdings []*domain.FundHolding) error {
	return r.s.write(ctx, func(st *state, now time.Time) error {
		if _, ok := st.portfolios[portfolioID]; !ok {
			return fmt.Errorf("portfolio %s: %w", portfolioID, domain.ErrOwnerNotFound)
		}
		rows := make([]domain.FundHolding, 0, len(holdings))
		for _, h := range holdings {
			h.PortfolioID = portfolioID
			h.CreatedAt, h.UpdatedAt = now, now
			rows = append(rows, *h)
		}
		st.holdings[portfolioID] = rows
		return nil
	})
}

func (r *fundHoldingRepository) ListByPortfolio(ctx context.Context, portfolioID uuid.UUID) ([]*domain.FundHolding, error) {
	out := []*domain.FundHolding{}
	_ = r.s.read(func(st *state) error {
		for _, h := range st.holdings[portfolioID] {
			h := h
			out = append(out, &h)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}
