package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MiguelRipoll23/financeserver-sub001/internal/domain"
)

type cryptoKey struct {
	exchangeID uuid.UUID
	symbol     string
}

// state holds every table of the store. Records are stored by value and copied
// on the way in and out so callers never alias stored data.
type state struct {
	accounts       map[uuid.UUID]domain.BankAccount
	balances       map[uuid.UUID][]domain.BankAccountBalance
	ratePeriods    map[uuid.UUID]domain.RatePeriod
	exchanges      map[uuid.UUID]domain.CryptoExchange
	cryptoBalances map[cryptoKey]domain.CryptoBalance
	portfolios     map[uuid.UUID]domain.RoboadvisorPortfolio
	holdings       map[uuid.UUID][]domain.FundHolding
	snapshots      []domain.ValuationSnapshot
}

func newState() *state {
	return &state{
		accounts:       map[uuid.UUID]domain.BankAccount{},
		balances:       map[uuid.UUID][]domain.BankAccountBalance{},
		ratePeriods:    map[uuid.UUID]domain.RatePeriod{},
		exchanges:      map[uuid.UUID]domain.CryptoExchange{},
		cryptoBalances: map[cryptoKey]domain.CryptoBalance{},
		portfolios:     map[uuid.UUID]domain.RoboadvisorPortfolio{},
		holdings:       map[uuid.UUID][]domain.FundHolding{},
	}
}

func (st *state) clone() *state {
	out := newState()
	for k, v := range st.accounts {
		out.accounts[k] = v
	}
	for k, v := range st.balances {
		out.balances[k] = append([]domain.BankAccountBalance(nil), v...)
	}
	for k, v := range st.ratePeriods {
		out.ratePeriods[k] = copyRatePeriod(v)
	}
	for k, v := range st.exchanges {
		out.exchanges[k] = v
	}
	for k, v := range st.cryptoBalances {
		out.cryptoBalances[k] = copyCryptoBalance(v)
	}
	for k, v := range st.portfolios {
		out.portfolios[k] = copyPortfolio(v)
	}
	for k, v := range st.holdings {
		out.holdings[k] = append([]domain.FundHolding(nil), v...)
	}
	out.snapshots = make([]domain.ValuationSnapshot, len(st.snapshots))
	for i, s := range st.snapshots {
		out.snapshots[i] = copySnapshot(s)
	}
	return out
}

type txKey struct{}

// Store is an in-process implementation of every repository of the domain.
// It is used by tests and by the server when store.backend is "memory".
//
// Writes are serialized on txMu; WithinTx holds txMu for the whole callback and
// restores the previous state when the callback fails. Reads never block on a
// running transaction and may observe its uncommitted writes.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data *state
	now  func() time.Time
}

// NewStore creates an empty Store
func NewStore() *Store {
	return &Store{data: newState(), now: time.Now}
}

// SetClock replaces the clock used for created_at and updated_at stamps
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// TxManager returns the store as a domain.TxManager
func (s *Store) TxManager() domain.TxManager {
	return s
}

// WithinTx runs fn with every write serialized behind it. A nested call joins the
// outer transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	saved := s.data.clone()
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.data = saved
		s.mu.Unlock()
		return err
	}
	return nil
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

func (s *Store) write(ctx context.Context, fn func(st *state, now time.Time) error) error {
	if !inTx(ctx) {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data, s.now().UTC())
}

func (s *Store) read(fn func(st *state) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.data)
}

func copyRatePeriod(p domain.RatePeriod) domain.RatePeriod {
	if p.EndDate != nil {
		end := *p.EndDate
		p.EndDate = &end
	}
	return p
}

func copyCryptoBalance(b domain.CryptoBalance) domain.CryptoBalance {
	if b.CostBasis != nil {
		basis := *b.CostBasis
		b.CostBasis = &basis
	}
	return b
}

func copyPortfolio(p domain.RoboadvisorPortfolio) domain.RoboadvisorPortfolio {
	if p.InvestedAmount != nil {
		amount := *p.InvestedAmount
		p.InvestedAmount = &amount
	}
	return p
}

func copySnapshot(s domain.ValuationSnapshot) domain.ValuationSnapshot {
	if s.AnnualValue != nil {
		annual := *s.AnnualValue
		s.AnnualValue = &annual
	}
	return s
}

// Repositories returns every repository backed by the store
func (s *Store) Repositories() domain.Repositories {
	return domain.Repositories{
		BankAccounts:   NewBankAccountRepository(s),
		Balances:       NewBalanceRepository(s),
		RatePeriods:    NewRatePeriodRepository(s),
		Exchanges:      NewCryptoExchangeRepository(s),
		CryptoBalances: NewCryptoBalanceRepository(s),
		Portfolios:     NewPortfolioRepository(s),
		FundHoldings:   NewFundHoldingRepository(s),
		Snapshots:      NewSnapshotRepository(s),
	}
}
