package valuation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MiguelRipoll23/financeserver-sub001/internal/domain"
	"github.com/MiguelRipoll23/financeserver-sub001/internal/usecase/snapshot"
)

// DefaultCryptoTaxRate is applied to crypto gains when no rate is configured
var DefaultCryptoTaxRate = decimal.RequireFromString("0.30")

// Status tells whether a calculation produced a new snapshot
type Status string

const (
	StatusComputed    Status = "computed"
	StatusUnavailable Status = "unavailable"
)

// Request is one of InterestRequest, CryptoRequest or FundRequest
type Request interface {
	Key() domain.OwnerKey
	dispatch(ctx context.Context, c Calculator) (*Outcome, error)
}

// InterestRequest values the latest balance of a bank account at its active rate
type InterestRequest struct {
	AccountID uuid.UUID
}

func (r InterestRequest) Key() domain.OwnerKey {
	return domain.OwnerKey{Class: domain.AssetClassInterest, OwnerID: r.AccountID}
}

func (r InterestRequest) dispatch(ctx context.Context, c Calculator) (*Outcome, error) {
	return c.CalculateInterest(ctx, r)
}

// CryptoRequest values one symbol held on an exchange
type CryptoRequest struct {
	ExchangeID uuid.UUID
	Symbol     string
}

func (r CryptoRequest) Key() domain.OwnerKey {
	return domain.OwnerKey{Class: domain.AssetClassCrypto, OwnerID: r.ExchangeID, Symbol: domain.NormalizeSymbol(r.Symbol)}
}

func (r CryptoRequest) dispatch(ctx context.Context, c Calculator) (*Outcome, error) {
	return c.CalculateCrypto(ctx, r)
}

// FundRequest values the fund basket of a roboadvisor portfolio
type FundRequest struct {
	PortfolioID uuid.UUID
}

func (r FundRequest) Key() domain.OwnerKey {
	return domain.OwnerKey{Class: domain.AssetClassFund, OwnerID: r.PortfolioID}
}

func (r FundRequest) dispatch(ctx context.Context, c Calculator) (*Outcome, error) {
	return c.CalculateFund(ctx, r)
}

// NewRequest builds the request variant of class for an owner. symbol is only accepted for crypto.
func NewRequest(class domain.AssetClass, ownerID uuid.UUID, symbol string) (Request, error) {
	if class != domain.AssetClassCrypto && strings.TrimSpace(symbol) != "" {
		return nil, fmt.Errorf("%w: %s requests do not take a symbol", domain.ErrValidation, class)
	}

	var req Request
	switch class {
	case domain.AssetClassInterest:
		req = InterestRequest{AccountID: ownerID}
	case domain.AssetClassCrypto:
		req = CryptoRequest{ExchangeID: ownerID, Symbol: symbol}
	case domain.AssetClassFund:
		req = FundRequest{PortfolioID: ownerID}
	default:
		return nil, fmt.Errorf("%w: unknown asset class %q", domain.ErrValidation, class)
	}
	if err := req.Key().Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

// Calculator has one method per request variant
type Calculator interface {
	CalculateInterest(ctx context.Context, req InterestRequest) (*Outcome, error)
	CalculateCrypto(ctx context.Context, req CryptoRequest) (*Outcome, error)
	CalculateFund(ctx context.Context, req FundRequest) (*Outcome, error)
}

// Outcome is the result of a calculation that did not hit a hard error.
// Snapshot is set only when Status is StatusComputed; exactly one breakdown matches the request.
type Outcome struct {
	Key      domain.OwnerKey
	Status   Status
	Reason   string
	Snapshot *domain.ValuationSnapshot

	Interest *InterestBreakdown
	Crypto   *CryptoBreakdown
	Fund     *FundBreakdown
}

// InterestBreakdown shows how the projected interest profit was derived
type InterestBreakdown struct {
	Balance      decimal.Decimal
	Currency     string
	Rate         decimal.Decimal
	RatePeriodID *uuid.UUID // nil when no rate period is active
	Monthly      decimal.Decimal
	Annual       decimal.Decimal
}

// CryptoBreakdown shows how the tax-adjusted crypto value was derived
type CryptoBreakdown struct {
	Quantity       decimal.Decimal
	Price          decimal.Decimal
	CurrentValue   decimal.Decimal
	InvestedAmount decimal.Decimal
	Currency       string
	Gain           decimal.Decimal
	TaxRate        decimal.Decimal
	Tax            decimal.Decimal
	AfterTax       decimal.Decimal
}

// FundBreakdown shows the contribution of each fund of a basket
type FundBreakdown struct {
	InvestedAmount decimal.Decimal
	Currency       string
	TotalWeight    decimal.Decimal // not required to be 1
	Lines          []FundLine
	Value          decimal.Decimal
}

// FundLine is the valuation of one fund holding
type FundLine struct {
	Symbol    string
	Allocated decimal.Decimal
	Units     decimal.Decimal
	Price     decimal.Decimal
	Value     decimal.Decimal
}

func unavailable(key domain.OwnerKey, reason string) *Outcome {
	return &Outcome{Key: key, Status: StatusUnavailable, Reason: reason}
}

// Engine implements Calculator over the repositories, price providers and snapshot store
type Engine struct {
	BankAccountRepo   domain.BankAccountRepository
	BalanceRepo       domain.BalanceRepository
	RatePeriodRepo    domain.RatePeriodRepository
	ExchangeRepo      domain.CryptoExchangeRepository
	CryptoBalanceRepo domain.CryptoBalanceRepository
	PortfolioRepo     domain.PortfolioRepository
	FundHoldingRepo   domain.FundHoldingRepository

	CryptoPrices domain.PriceProvider
	FundPrices   domain.PriceProvider
	Snapshots    *snapshot.Store
	Observer     Observer

	CryptoTaxRate decimal.Decimal
	Now           func() time.Time
}

// NewEngine creates a new Engine instance with the default tax rate and a no-op observer
func NewEngine(repos domain.Repositories, cryptoPrices, fundPrices domain.PriceProvider, snapshots *snapshot.Store) *Engine {
	return &Engine{
		BankAccountRepo:   repos.BankAccounts,
		BalanceRepo:       repos.Balances,
		RatePeriodRepo:    repos.RatePeriods,
		ExchangeRepo:      repos.Exchanges,
		CryptoBalanceRepo: repos.CryptoBalances,
		PortfolioRepo:     repos.Portfolios,
		FundHoldingRepo:   repos.FundHoldings,
		CryptoPrices:      cryptoPrices,
		FundPrices:        fundPrices,
		Snapshots:         snapshots,
		Observer:          NopObserver{},
		CryptoTaxRate:     DefaultCryptoTaxRate,
		Now:               time.Now,
	}
}

// Calculate dispatches req to its calculator method and reports the result to the observer
func (e *Engine) Calculate(ctx context.Context, req Request) (*Outcome, error) {
	key := req.Key()
	if err := key.Validate(); err != nil {
		return nil, err
	}

	out, err := req.dispatch(ctx, e)
	switch {
	case err != nil:
		e.observer().Failed(key, err)
	case out.Status == StatusUnavailable:
		e.observer().Skipped(key, out.Reason)
	default:
		e.observer().Computed(key, out.Snapshot)
	}
	return out, err
}

func (e *Engine) observer() Observer {
	if e.Observer == nil {
		return NopObserver{}
	}
	return e.Observer
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}
