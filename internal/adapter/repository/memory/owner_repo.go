package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/MiguelRipoll23/financeserver-sub001/internal/domain"
)

// bankAccountRepository implements domain.BankAccountRepository
type bankAccountRepository struct {
	s *Store
}

// NewBankAccountRepository creates a new in-memory bank account repository
func NewBankAccountRepository(s *Store) domain.BankAccountRepository {
	return &bankAccountRepository{s: s}
}

func (r *bankAccountRepository) Create(ctx context.Context, account *domain.BankAccount) error {
	return r.s.write(ctx, func(st *state, now time.Time) error {
		if _, exists := st.accounts[account.ID]; exists {
			return fmt.Errorf("bank account %s already exists", account.ID)
		}
		account.CreatedAt, account.UpdatedAt = now, now
		st.accounts[account.ID] = *account
		return nil
	})
}

func (r *bankAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.BankAccount, error) {
	var out *domain.BankAccount
	err := r.s.read(func(st *state) error {
		a, ok := st.accounts[id]
		if !ok {
			return fmt.Errorf("bank account %s: %w", id, domain.ErrOwnerNotFound)
		}
		out = &a
		return nil
	})
	return out, err
}

func (r *bankAccountRepository) List(ctx context.Context) ([]*domain.BankAccount, error) {
	var out []*domain.BankAccount
	_ = r.s.read(func(st *state) error {
		for _, a := range st.accounts {
			a := a
			out = append(out, &a)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r *bankAccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.s.write(ctx, func(st *state, _ time.Time) error {
		if _, ok := st.accounts[id]; !ok {
			return fmt.Errorf("bank account %s: %w", id, domain.ErrOwnerNotFound)
		}
		delete(st.accounts, id)
		delete(st.balances, id)
		for pid, p := range st.ratePeriods {
			if p.AccountID == id {
				delete(st.ratePeriods, pid)
			}
		}
		st.dropSnapshots(domain.AssetClassInterest, id)
		return nil
	})
}

func (r *bankAccountRepository) LockForUpdate(ctx context.Context, id uuid.UUID) error {
	if !inTx(ctx) {
		return fmt.Errorf("lock of bank account %s requires a transaction", id)
	}
	_, err := r.GetByID(ctx, id)
	return err
}

// cryptoExchangeRepository implements domain.CryptoExchangeRepository
type cryptoExchangeRepository struct {
	s *Store
}

// NewCryptoExchangeRepository creates a new in-memory crypto exchange repository
func NewCryptoExchangeRepository(s *Store) domain.CryptoExchangeRepository {
	return &cryptoExchangeRepository{s: s}
}

func (r *cryptoExchangeRepository) Create(ctx context.Context, exchange *domain.CryptoExchange) error {
	return r.s.write(ctx, func(st *state, now time.Time) error {
		if _, exists := st.exchanges[exchange.ID]; exists {
			return fmt.Errorf("crypto exchange %s already exists", exchange.ID)
		}
		exchange.CreatedAt, exchange.UpdatedAt = now, now
		st.exchanges[exchange.ID] = *exchange
		return nil
	})
}

func (r *cryptoExchangeRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.CryptoExchange, error) {
	var out *domain.CryptoExchange
	err := r.s.read(func(st *state) error {
		e, ok := st.exchanges[id]
		if !ok {
			return fmt.Errorf("crypto exchange %s: %w", id, domain.ErrOwnerNotFound)
		}
		out = &e
		return nil
	})
	return out, err
}

func (r *cryptoExchangeRepository) List(ctx context.Context) ([]*domain.CryptoExchange, error) {
	var out []*domain.CryptoExchange
	_ = r.s.read(func(st *state) error {
		for _, e := range st.exchanges {
			e := e
			out = append(out, &e)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r *cryptoExchangeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.s.write(ctx, func(st *state, _ time.Time) error {
		if _, ok := st.exchanges[id]; !ok {
			return fmt.Errorf("crypto exchange %s: %w", id, domain.ErrOwnerNotFound)
		}
		delete(st.exchanges, id)
		for k := range st.cryptoBalances {
			if k.exchangeID == id {
				delete(st.cryptoBalances, k)
			}
		}
		st.dropSnapshots(domain.AssetClassCrypto, id)
		return nil
	})
}

// portfolioRepository implements domain.PortfolioRepository
type portfolioRepository struct {
	s *Store
}

// NewPortfolioRepository creates a new in-memory roboadvisor portfolio repository
func NewPortfolioRepository(s *Store) domain.PortfolioRepository {
	return &portfolioRepository{s: s}
}

func (r *portfolioRepository) Create(ctx context.Context, portfolio *domain.RoboadvisorPortfolio) error {
	return r.s.write(ctx, func(st *state, now time.Time) error {
		if _, exists := st.portfolios[portfolio.ID]; exists {
			return fmt.Errorf("portfolio %s already exists", portfolio.ID)
		}
		portfolio.CreatedAt, portfolio.UpdatedAt = now, now
		st.portfolios[portfolio.ID] = copyPortfolio(*portfolio)
		return nil
	})
}

func (r *portfolioRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.RoboadvisorPortfolio, error) {
	var out *domain.RoboadvisorPortfolio
	err := r.s.read(func(st *state) error {
		p, ok := st.portfolios[id]
		if !ok {
			return fmt.Errorf("portfolio %s: %w", id, domain.ErrOwnerNotFound)
		}
		p = copyPortfolio(p)
		out = &p
		return nil
	})
	return out, err
}

func (r *portfolioRepository) List(ctx context.Context) ([]*domain.RoboadvisorPortfolio, error) {
	var out []*domain.RoboadvisorPortfolio
	_ = r.s.read(func(st *state) error {
		for _, p := range st.portfolios {
			p := copyPortfolio(p)
			out = append(out, &p)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r *portfolioRepository) Update(ctx context.Context, portfolio *domain.RoboadvisorPortfolio) error {
	return r.s.write(ctx, func(st *state, now time.Time) error {
		existing, ok := st.portfolios[portfolio.ID]
		if !ok {
			return fmt.Errorf("portfolio %s: %w", portfolio.ID, domain.ErrOwnerNotFound)
		}
		portfolio.CreatedAt = existing.CreatedAt
		portfolio.UpdatedAt = now
		st.portfolios[portfolio.ID] = copyPortfolio(*portfolio)
		return nil
	})
}

func (r *portfolioRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.s.write(ctx, func(st *state, _ time.Time) error {
		if _, ok := st.portfolios[id]; !ok {
			return fmt.Errorf("portfolio %s: %w", id, domain.ErrOwnerNotFound)
		}
		delete(st.portfolios, id)
		delete(st.holdings, id)
		st.dropSnapshots(domain.AssetClassFund, id)
		return nil
	})
}
