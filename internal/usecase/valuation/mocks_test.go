package valuation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/MiguelRipoll23/financeserver-sub001/internal/domain"
)

// MockBankAccountRepository is a mock implementation of BankAccountRepository for testing
type MockBankAccountRepository struct {
	mock.Mock
}

func (m *MockBankAccountRepository) Create(ctx context.Context, account *domain.BankAccount) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockBankAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.BankAccount, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BankAccount), args.Error(1)
}

func (m *MockBankAccountRepository) List(ctx context.Context) ([]*domain.BankAccount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.BankAccount), args.Error(1)
}

func (m *MockBankAccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBankAccountRepository) LockForUpdate(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockBalanceRepository is a mock implementation of BalanceRepository for testing
type MockBalanceRepository struct {
	mock.Mock
}

func (m *MockBalanceRepository) Add(ctx context.Context, balance *domain.BankAccountBalance) error {
	args := m.Called(ctx, balance)
	return args.Error(0)
}

func (m *MockBalanceRepository) GetLatest(ctx context.Context, accountID uuid.UUID) (*domain.BankAccountBalance, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BankAccountBalance), args.Error(1)
}

func (m *MockBalanceRepository) ListAccountIDs(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

// MockRatePeriodRepository only implements the reads the engine performs; writes are never expected
type MockRatePeriodRepository struct {
	mock.Mock
	domain.RatePeriodRepository
}

func (m *MockRatePeriodRepository) ListActive(ctx context.Context, accountID uuid.UUID, day time.Time) ([]*domain.RatePeriod, error) {
	args := m.Called(ctx, accountID, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.RatePeriod), args.Error(1)
}

// MockCryptoExchangeRepository is a mock implementation of CryptoExchangeRepository for testing
type MockCryptoExchangeRepository struct {
	mock.Mock
	domain.CryptoExchangeRepository
}

func (m *MockCryptoExchangeRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.CryptoExchange, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CryptoExchange), args.Error(1)
}

// MockCryptoBalanceRepository is a mock implementation of CryptoBalanceRepository for testing
type MockCryptoBalanceRepository struct {
	mock.Mock
	domain.CryptoBalanceRepository
}

func (m *MockCryptoBalanceRepository) Get(ctx context.Context, exchangeID uuid.UUID, symbol string) (*domain.CryptoBalance, error) {
	args := m.Called(ctx, exchangeID, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CryptoBalance), args.Error(1)
}

// MockPortfolioRepository is a mock implementation of PortfolioRepository for testing
type MockPortfolioRepository struct {
	mock.Mock
	domain.PortfolioRepository
}

func (m *MockPortfolioRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.RoboadvisorPortfolio, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RoboadvisorPortfolio), args.Error(1)
}

// MockFundHoldingRepository is a mock implementation of FundHoldingRepository for testing
type MockFundHoldingRepository struct {
	mock.Mock
}

func (m *MockFundHoldingRepository) ReplaceAll(ctx context.Context, portfolioID uuid.UUID, holdings []*domain.FundHolding) error {
	args := m.Called(ctx, portfolioID, holdings)
	return args.Error(0)
}

func (m *MockFundHoldingRepository) ListByPortfolio(ctx context.Context, portfolioID uuid.UUID) ([]*domain.FundHolding, error) {
	args := m.Called(ctx, portfolioID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.FundHolding), args.Error(1)
}

// MockSnapshotRepository is a mock implementation of SnapshotRepository for testing
type MockSnapshotRepository struct {
	mock.Mock
}

func (m *MockSnapshotRepository) Upsert(ctx context.Context, snapshot *domain.ValuationSnapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

func (m *MockSnapshotRepository) Append(ctx context.Context, snapshot *domain.ValuationSnapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

func (m *MockSnapshotRepository) GetLatest(ctx context.Context, key domain.OwnerKey) (*domain.ValuationSnapshot, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ValuationSnapshot), args.Error(1)
}

func (m *MockSnapshotRepository) List(ctx context.Context, key domain.OwnerKey) ([]*domain.ValuationSnapshot, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ValuationSnapshot), args.Error(1)
}

// MockPriceProvider is a mock implementation of PriceProvider for testing
type MockPriceProvider struct {
	mock.Mock
}

func (m *MockPriceProvider) CurrentPrice(ctx context.Context, symbol, currency string) (decimal.Decimal, error) {
	args := m.Called(ctx, symbol, currency)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// MockObserver records Engine notifications
type MockObserver struct {
	mock.Mock
}

func (m *MockObserver) Computed(key domain.OwnerKey, snap *domain.ValuationSnapshot) {
	m.Called(key, snap)
}

func (m *MockObserver) Skipped(key domain.OwnerKey, reason string) {
	m.Called(key, reason)
}

func (m *MockObserver) Failed(key domain.OwnerKey, err error) {
	m.Called(key, err)
}
