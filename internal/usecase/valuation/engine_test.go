package valuation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/MiguelRipoll23/financeserver-sub001/internal/domain"
	"github.com/MiguelRipoll23/financeserver-sub001/internal/usecase/snapshot"
)

var testNow = time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

type testEngine struct {
	*Engine
	accounts     *MockBankAccountRepository
	balances     *MockBalanceRepository
	ratePeriods  *MockRatePeriodRepository
	exchanges    *MockCryptoExchangeRepository
	cryptoBals   *MockCryptoBalanceRepository
	portfolios   *MockPortfolioRepository
	holdings     *MockFundHoldingRepository
	snapshots    *MockSnapshotRepository
	cryptoPrices *MockPriceProvider
	fundPrices   *MockPriceProvider
}

func newTestEngine() *testEngine {
	te := &testEngine{
		accounts:     new(MockBankAccountRepository),
		balances:     new(MockBalanceRepository),
		ratePeriods:  new(MockRatePeriodRepository),
		exchanges:    new(MockCryptoExchangeRepository),
		cryptoBals:   new(MockCryptoBalanceRepository),
		portfolios:   new(MockPortfolioRepository),
		holdings:     new(MockFundHoldingRepository),
		snapshots:    new(MockSnapshotRepository),
		cryptoPrices: new(MockPriceProvider),
		fundPrices:   new(MockPriceProvider),
	}

	store := snapshot.NewStore(te.snapshots)
	store.Now = func() time.Time { return testNow }

	te.Engine = NewEngine(domain.Repositories{
		BankAccounts:   te.accounts,
		Balances:       te.balances,
		RatePeriods:    te.ratePeriods,
		Exchanges:      te.exchanges,
		CryptoBalances: te.cryptoBals,
		Portfolios:     te.portfolios,
		FundHoldings:   te.holdings,
	}, te.cryptoPrices, te.fundPrices, store)
	te.Engine.Now = func() time.Time { return testNow }

	return te
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func valueIs(expected string) interface{} {
	return mock.MatchedBy(func(s *domain.ValuationSnapshot) bool {
		return s.Value.Equal(dec(expected))
	})
}

// --- Crypto ---

func cryptoFixture(te *testEngine, invested string) (uuid.UUID, *domain.CryptoBalance) {
	exchangeID := uuid.New()
	balance := &domain.CryptoBalance{
		ID:         uuid.New(),
		ExchangeID: exchangeID,
		Symbol:     "BTC",
		Quantity:   dec("1"),
		CostBasis:  &domain.CostBasis{InvestedAmount: dec(invested), InvestedCurrency: "EUR"},
	}
	te.exchanges.On("GetByID", mock.Anything, exchangeID).
		Return(&domain.CryptoExchange{ID: exchangeID, Name: "Kraken"}, nil)
	te.cryptoBals.On("Get", mock.Anything, exchangeID, "BTC").Return(balance, nil)
	return exchangeID, balance
}

func TestCalculateCrypto_TaxOnGain(t *testing.T) {
	ctx := context.Background()
	te := newTestEngine()

	// Setup: 50000€ invested, now worth 60000€, 30% tax on the 10000€ gain
	exchangeID, _ := cryptoFixture(te, "50000")
	te.cryptoPrices.On("CurrentPrice", ctx, "BTC", "EUR").Return(dec("60000"), nil)
	te.snapshots.On("Append", ctx, valueIs("57000")).Return(nil)

	// Execute
	out, err := te.Calculate(ctx, CryptoRequest{ExchangeID: exchangeID, Symbol: "btc"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, StatusComputed, out.Status)
	require.NotNil(t, out.Snapshot)
	assert.True(t, out.Snapshot.Value.Equal(dec("57000")))
	assert.Equal(t, "EUR", out.Snapshot.Currency)
	assert.Equal(t, "BTC", out.Snapshot.Symbol)
	assert.Equal(t, testNow, out.Snapshot.ComputedAt)
	assert.True(t, out.Crypto.Gain.Equal(dec("10000")))
	assert.True(t, out.Crypto.Tax.Equal(dec("3000")))

	te.snapshots.AssertExpectations(t)
	te.cryptoPrices.AssertExpectations(t)
}

func TestCalculateCrypto_LossIsNotTaxed(t *testing.T) {
	ctx := context.Background()
	te := newTestEngine()

	// Setup: 50000€ invested, now worth 40000€
	exchangeID, _ := cryptoFixture(te, "50000")
	te.cryptoPrices.On("CurrentPrice", ctx, "BTC", "EUR").Return(dec("40000"), nil)
	te.snapshots.On("Append", ctx, valueIs("40000")).Return(nil)

	// Execute
	out, err := te.Calculate(ctx, CryptoRequest{ExchangeID: exchangeID, Symbol: "BTC"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, StatusComputed, out.Status)
	assert.True(t, out.Crypto.Tax.IsZero())
	te.snapshots.AssertExpectations(t)
}

func TestCalculateCrypto_PriceUnavailableLeavesSnapshotUntouched(t *testing.T) {
	ctx := context.Background()
	te := newTestEngine()

	exchangeID, _ := cryptoFixture(te, "50000")
	te.cryptoPrices.On("CurrentPrice", ctx, "BTC", "EUR").
		Return(decimal.Zero, domain.ErrPriceUnavailable)

	// Execute
	out, err := te.Calculate(ctx, CryptoRequest{ExchangeID: exchangeID, Symbol: "BTC"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, StatusUnavailable, out.Status)
	assert.Contains(t, out.Reason, "price unavailable")
	assert.Nil(t, out.Snapshot)
	te.snapshots.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	te.snapshots.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestCalculateCrypto_MissingCostBasisIsSkipped(t *testing.T) {
	ctx := context.Background()
	te := newTestEngine()

	exchangeID, balance := cryptoFixture(te, "0")
	balance.CostBasis = nil

	out, err := te.Calculate(ctx, CryptoRequest{ExchangeID: exchangeID, Symbol: "BTC"})

	require.NoError(t, err)
	assert.Equal(t, StatusUnavailable, out.Status)
	assert.Equal(t, "missing cost basis", out.Reason)
	te.cryptoPrices.AssertNotCalled(t, "CurrentPrice", mock.Anything, mock.Anything, mock.Anything)
	te.snapshots.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestCalculateCrypto_ExchangeNotFound(t *testing.T) {
	ctx := context.Background()
	te := newTestEngine()

	exchangeID := uuid.New()
	te.exchanges.On("GetByID", ctx, exchangeID).Return(nil, domain.ErrOwnerNotFound)

	out, err := te.Calculate(ctx, CryptoRequest{ExchangeID: exchangeID, Symbol: "BTC"})

	assert.Nil(t, out)
	assert.ErrorIs(t, err, domain.ErrOwnerNotFound)
	te.cryptoBals.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
}

func TestCalculateCrypto_AppendFailureIsHard(t *testing.T) {
	ctx := context.Background()
	te := newTestEngine()

	exchangeID, _ := cryptoFixture(te, "100")
	te.cryptoPrices.On("CurrentPrice", ctx, "BTC", "EUR").Return(dec("120"), nil)
	te.snapshots.On("Append", ctx, mock.Anything).Return(errors.New("disk full"))

	out, err := te.Calculate(ctx, CryptoRequest{ExchangeID: exchangeID, Symbol: "BTC"})

	assert.Nil(t, out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestCalculate_RejectsCryptoRequestWithoutSymbol(t *testing.T) {
	te := newTestEngine()

	_, err := te.Calculate(context.Background(), CryptoRequest{ExchangeID: uuid.New()})

	assert.ErrorIs(t, err, domain.ErrValidation)
	te.exchanges.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestTaxAdjust(t *testing.T) {
	tests := []struct {
		name     string
		quantity string
		price    string
		invested string
		rate     string
		afterTax string
	}{
		{"gain", "1", "60000", "50000", "0.30", "57000"},
		{"loss", "1", "40000", "50000", "0.30", "40000"},
		{"break even", "2", "25000", "50000", "0.30", "50000"},
		{"fractional quantity", "0.5", "30000", "10000", "0.19", "14050"},
		{"zero tax rate", "1", "60000", "50000", "0", "60000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := TaxAdjust(dec(tt.quantity), dec(tt.price), dec(tt.invested), dec(tt.rate))
			assert.True(t, b.AfterTax.Equal(dec(tt.afterTax)), "got %s", b.AfterTax)
			assert.False(t, b.Tax.IsNegative())
		})
	}
}

// --- Interest ---

func interestFixture(te *testEngine, balance string) uuid.UUID {
	accountID := uuid.New()
	te.accounts.On("GetByID", mock.Anything, accountID).
		Return(&domain.BankAccount{ID: accountID, Name: "Savings", Currency: "EUR"}, nil)
	te.balances.On("GetLatest", mock.Anything, accountID).
		Return(&domain.BankAccountBalance{ID: uuid.New(), AccountID: accountID, Balance: dec(balance), Currency: "EUR"}, nil)
	return accountID
}

func TestCalculateInterest_ActiveRate(t *testing.T) {
	ctx := context.Background()
	te := newTestEngine()

	// Setup: 12000€ at 2.5% per year -> 300€ per year, 25€ per month
	accountID := interestFixture(te, "12000")
	period := &domain.RatePeriod{ID: uuid.New(), AccountID: accountID, Rate: dec("2.5"), StartDate: testNow.AddDate(0, -1, 0)}
	te.ratePeriods.On("ListActive", ctx, accountID, domain.Day(testNow)).Return([]*domain.RatePeriod{period}, nil)
	te.snapshots.On("Upsert", ctx, mock.MatchedBy(func(s *domain.ValuationSnapshot) bool {
		return s.Value.Equal(dec("25")) && s.AnnualValue != nil && s.AnnualValue.Equal(dec("300"))
	})).Return(nil)

	// Execute
	out, err := te.Calculate(ctx, InterestRequest{AccountID: accountID})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, StatusComputed, out.Status)
	assert.Equal(t, domain.AssetClassInterest, out.Snapshot.Class)
	assert.Equal(t, &period.ID, out.Interest.RatePeriodID)
	te.snapshots.AssertExpectations(t)
	te.snapshots.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestCalculateInterest_RoundsHalfAwayFromZero(t *testing.T) {
	ctx := context.Background()
	te := newTestEngine()

	// 1234.56 * 2.5% = 30.864 -> 30.86 per year, 2.572 -> 2.57 per month
	accountID := interestFixture(te, "1234.56")
	te.ratePeriods.On("ListActive", ctx, accountID, domain.Day(testNow)).
		Return([]*domain.RatePeriod{{ID: uuid.New(), AccountID: accountID, Rate: dec("2.5"), StartDate: testNow}}, nil)
	te.snapshots.On("Upsert", ctx, mock.Anything).Return(nil)

	out, err := te.Calculate(ctx, InterestRequest{AccountID: accountID})

	require.NoError(t, err)
	assert.Equal(t, "30.86", out.Interest.Annual.StringFixed(2))
	assert.Equal(t, "2.57", out.Interest.Monthly.StringFixed(2))
}

func TestCalculateInterest_LatestStartWins(t *testing.T) {
	ctx := context.Background()
	te := newTestEngine()

	accountID := interestFixture(te, "1200")
	older := &domain.RatePeriod{ID: uuid.New(), AccountID: accountID, Rate: dec("1"), StartDate: testNow.AddDate(-1, 0, 0)}
	newer := &domain.RatePeriod{ID: uuid.New(), AccountID: accountID, Rate: dec("3"), StartDate: testNow.AddDate(0, -2, 0)}
	te.ratePeriods.On("ListActive", ctx, accountID, domain.Day(testNow)).Return([]*domain.RatePeriod{newer, older}, nil)
	te.snapshots.On("Upsert", ctx, valueIs("3")).Return(nil)

	out, err := te.Calculate(ctx, InterestRequest{AccountID: accountID})

	require.NoError(t, err)
	assert.True(t, out.Interest.Rate.Equal(dec("3")))
	te.snapshots.AssertExpectations(t)
}

func TestCalculateInterest_NoActiveRateMeansZeroProfit(t *testing.T) {
	ctx := context.Background()
	te := newTestEngine()

	accountID := interestFixture(te, "5000")
	te.ratePeriods.On("ListActive", ctx, accountID, domain.Day(testNow)).Return([]*domain.RatePeriod{}, nil)
	te.snapshots.On("Upsert", ctx, valueIs("0")).Return(nil)

	out, err := te.Calculate(ctx, InterestRequest{AccountID: accountID})

	require.NoError(t, err)
	assert.Equal(t, StatusComputed, out.Status)
	assert.Nil(t, out.Interest.RatePeriodID)
	assert.True(t, out.Interest.Annual.IsZero())
}

func TestCalculateInterest_NoBalanceIsUnavailable(t *testing.T) {
	ctx := context.Background()
	te := newTestEngine()

	accountID := uuid.New()
	te.accounts.On("GetByID", ctx, accountID).
		Return(&domain.BankAccount{ID: accountID, Name: "Empty", Currency: "EUR"}, nil)
	te.balances.On("GetLatest", ctx, accountID).Return(nil, domain.ErrNotFound)

	out, err := te.Calculate(ctx, InterestRequest{AccountID: accountID})

	require.NoError(t, err)
	assert.Equal(t, StatusUnavailable, out.Status)
	te.ratePeriods.AssertNotCalled(t, "ListActive", mock.Anything, mock.Anything, mock.Anything)
	te.snapshots.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestCalculateInterest_AccountNotFound(t *testing.T) {
	ctx := context.Background()
	te := newTestEngine()

	accountID := uuid.New()
	te.accounts.On("GetByID", ctx, accountID).Return(nil, domain.ErrOwnerNotFound)

	_, err := te.Calculate(ctx, InterestRequest{AccountID: accountID})

	assert.ErrorIs(t, err, domain.ErrOwnerNotFound)
	te.balances.AssertNotCalled(t, "GetLatest", mock.Anything, mock.Anything)
}

// --- Fund ---

func fundFixture(te *testEngine, invested *decimal.Decimal) uuid.UUID {
	portfolioID := uuid.New()
	te.portfolios.On("GetByID", mock.Anything, portfolioID).Return(&domain.RoboadvisorPortfolio{
		ID:             portfolioID,
		Name:           "Indexa",
		Currency:       "EUR",
		InvestedAmount: invested,
	}, nil)
	te.holdings.On("ListByPortfolio", mock.Anything, portfolioID).Return([]*domain.FundHolding{
		{ID: uuid.New(), PortfolioID: portfolioID, Symbol: "WORLD", Weight: dec("0.6"), ReferencePrice: dec("80")},
		{ID: uuid.New(), PortfolioID: portfolioID, Symbol: "EMERGING", Weight: dec("0.3"), ReferencePrice: dec("25")},
		{ID: uuid.New(), PortfolioID: portfolioID, Symbol: "BONDS", Weight: dec("0.1"), ReferencePrice: dec("100")},
	}, nil)
	return portfolioID
}

func TestCalculateFund_ValuesBasketAtCurrentPrices(t *testing.T) {
	ctx := context.Background()
	te := newTestEngine()

	// Setup: 10000€ -> 75 WORLD, 120 EMERGING, 10 BONDS units
	// Prices: 88, 24, 101.5 -> 6600 + 2880 + 1015 = 10495
	invested := dec("10000")
	portfolioID := fundFixture(te, &invested)
	te.fundPrices.On("CurrentPrice", ctx, "WORLD", "EUR").Return(dec("88"), nil)
	te.fundPrices.On("CurrentPrice", ctx, "EMERGING", "EUR").Return(dec("24"), nil)
	te.fundPrices.On("CurrentPrice", ctx, "BONDS", "EUR").Return(dec("101.5"), nil)
	te.snapshots.On("Upsert", ctx, valueIs("10495")).Return(nil)

	// Execute
	out, err := te.Calculate(ctx, FundRequest{PortfolioID: portfolioID})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, StatusComputed, out.Status)
	require.Len(t, out.Fund.Lines, 3)
	assert.Equal(t, "BONDS", out.Fund.Lines[0].Symbol)
	assert.True(t, out.Fund.Lines[0].Value.Equal(dec("1015")))
	assert.Nil(t, out.Snapshot.AnnualValue)
	te.snapshots.AssertExpectations(t)
	te.fundPrices.AssertExpectations(t)
}

func TestCalculateFund_AnyMissingPriceIsUnavailable(t *testing.T) {
	ctx := context.Background()
	te := newTestEngine()

	invested := dec("10000")
	portfolioID := fundFixture(te, &invested)
	te.fundPrices.On("CurrentPrice", ctx, "BONDS", "EUR").Return(dec("101.5"), nil)
	te.fundPrices.On("CurrentPrice", ctx, "EMERGING", "EUR").Return(decimal.Zero, domain.ErrPriceUnavailable)

	out, err := te.Calculate(ctx, FundRequest{PortfolioID: portfolioID})

	require.NoError(t, err)
	assert.Equal(t, StatusUnavailable, out.Status)
	assert.Contains(t, out.Reason, "EMERGING")
	te.fundPrices.AssertNotCalled(t, "CurrentPrice", mock.Anything, "WORLD", mock.Anything)
	te.snapshots.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestCalculateFund_NoInvestedAmountIsUnavailable(t *testing.T) {
	ctx := context.Background()
	te := newTestEngine()

	portfolioID := fundFixture(te, nil)

	out, err := te.Calculate(ctx, FundRequest{PortfolioID: portfolioID})

	require.NoError(t, err)
	assert.Equal(t, StatusUnavailable, out.Status)
	te.holdings.AssertNotCalled(t, "ListByPortfolio", mock.Anything, mock.Anything)
}

func TestCalculateFund_EmptyBasketIsUnavailable(t *testing.T) {
	ctx := context.Background()
	te := newTestEngine()

	portfolioID := uuid.New()
	invested := dec("500")
	te.portfolios.On("GetByID", ctx, portfolioID).
		Return(&domain.RoboadvisorPortfolio{ID: portfolioID, Name: "New", Currency: "EUR", InvestedAmount: &invested}, nil)
	te.holdings.On("ListByPortfolio", ctx, portfolioID).Return([]*domain.FundHolding{}, nil)

	out, err := te.Calculate(ctx, FundRequest{PortfolioID: portfolioID})

	require.NoError(t, err)
	assert.Equal(t, StatusUnavailable, out.Status)
	assert.Equal(t, "portfolio has no fund holdings", out.Reason)
}

// --- Observer ---

func TestCalculate_NotifiesObserver(t *testing.T) {
	ctx := context.Background()

	t.Run("computed", func(t *testing.T) {
		te := newTestEngine()
		obs := new(MockObserver)
		te.Observer = obs

		accountID := interestFixture(te, "100")
		te.ratePeriods.On("ListActive", ctx, accountID, mock.Anything).Return([]*domain.RatePeriod{}, nil)
		te.snapshots.On("Upsert", ctx, mock.Anything).Return(nil)
		obs.On("Computed", InterestRequest{AccountID: accountID}.Key(), mock.Anything).Return()

		_, err := te.Calculate(ctx, InterestRequest{AccountID: accountID})

		require.NoError(t, err)
		obs.AssertExpectations(t)
	})

	t.Run("skipped", func(t *testing.T) {
		te := newTestEngine()
		obs := new(MockObserver)
		te.Observer = obs

		exchangeID, balance := cryptoFixture(te, "0")
		balance.CostBasis = nil
		obs.On("Skipped", mock.Anything, "missing cost basis").Return()

		_, err := te.Calculate(ctx, CryptoRequest{ExchangeID: exchangeID, Symbol: "BTC"})

		require.NoError(t, err)
		obs.AssertExpectations(t)
		obs.AssertNotCalled(t, "Computed", mock.Anything, mock.Anything)
	})

	t.Run("failed", func(t *testing.T) {
		te := newTestEngine()
		obs := new(MockObserver)
		te.Observer = obs

		portfolioID := uuid.New()
		te.portfolios.On("GetByID", ctx, portfolioID).Return(nil, domain.ErrOwnerNotFound)
		obs.On("Failed", mock.Anything, domain.ErrOwnerNotFound).Return()

		_, err := te.Calculate(ctx, FundRequest{PortfolioID: portfolioID})

		assert.Error(t, err)
		obs.AssertExpectations(t)
	})
}

func TestNewRequest(t *testing.T) {
	ownerID := uuid.New()

	req, err := NewRequest(domain.AssetClassCrypto, ownerID, " eth ")
	require.NoError(t, err)
	assert.Equal(t, "ETH", req.Key().Symbol)

	req, err = NewRequest(domain.AssetClassFund, ownerID, "")
	require.NoError(t, err)
	assert.IsType(t, FundRequest{}, req)

	_, err = NewRequest(domain.AssetClassInterest, ownerID, "BTC")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = NewRequest(domain.AssetClassFund, ownerID, "IWDA.AS")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = NewRequest(domain.AssetClass("stocks"), ownerID, "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
