package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TxManager runs fn inside one transactional scope. Repositories called with the
// context handed to fn take part in that transaction.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// BankAccountRepository defines the interface for bank account persistence operations
type BankAccountRepository interface {
	Create(ctx context.Context, account *BankAccount) error

	// GetByID returns ErrOwnerNotFound when the account does not exist
	GetByID(ctx context.Context, id uuid.UUID) (*BankAccount, error)

	List(ctx context.Context) ([]*BankAccount, error)

	// Delete removes the account together with its balances, rate periods and snapshots
	Delete(ctx context.Context, id uuid.UUID) error

	// LockForUpdate row-locks the account for the rest of the current transaction.
	// Returns ErrOwnerNotFound when the account does not exist.
	LockForUpdate(ctx context.Context, id uuid.UUID) error
}

// BalanceRepository defines the interface for bank account balance persistence operations
type BalanceRepository interface {
	Add(ctx context.Context, balance *BankAccountBalance) error

	// GetLatest returns the most recent balance of the account, or ErrNotFound
	GetLatest(ctx context.Context, accountID uuid.UUID) (*BankAccountBalance, error)

	// ListAccountIDs returns every account that has at least one balance
	ListAccountIDs(ctx context.Context) ([]uuid.UUID, error)
}

// RatePeriodRepository defines the interface for interest rate period persistence operations
type RatePeriodRepository interface {
	Create(ctx context.Context, period *RatePeriod) error
	Update(ctx context.Context, period *RatePeriod) error
	Delete(ctx context.Context, id uuid.UUID) error

	// GetByID returns ErrNotFound when the period does not exist
	GetByID(ctx context.Context, id uuid.UUID) (*RatePeriod, error)

	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*RatePeriod, error)

	// FindOverlapping returns the bounded periods of the account sharing at least one
	// day with [start, end], skipping excludeID when set
	FindOverlapping(ctx context.Context, accountID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]*RatePeriod, error)

	// ListActive returns the periods of the account covering day
	ListActive(ctx context.Context, accountID uuid.UUID, day time.Time) ([]*RatePeriod, error)
}

// CryptoExchangeRepository defines the interface for crypto exchange persistence operations
type CryptoExchangeRepository interface {
	Create(ctx context.Context, exchange *CryptoExchange) error

	// GetByID returns ErrOwnerNotFound when the exchange does not exist
	GetByID(ctx context.Context, id uuid.UUID) (*CryptoExchange, error)

	List(ctx context.Context) ([]*CryptoExchange, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CryptoBalanceRepository defines the interface for crypto balance persistence operations
type CryptoBalanceRepository interface {
	// Save upserts the balance keyed by exchange and symbol
	Save(ctx context.Context, balance *CryptoBalance) error

	// Get returns ErrNotFound when the exchange holds no balance for the symbol
	Get(ctx context.Context, exchangeID uuid.UUID, symbol string) (*CryptoBalance, error)

	ListByExchange(ctx context.Context, exchangeID uuid.UUID) ([]*CryptoBalance, error)
	ListAll(ctx context.Context) ([]*CryptoBalance, error)
}

// PortfolioRepository defines the interface for roboadvisor portfolio persistence operations
type PortfolioRepository interface {
	Create(ctx context.Context, portfolio *RoboadvisorPortfolio) error

	// GetByID returns ErrOwnerNotFound when the portfolio does not exist
	GetByID(ctx context.Context, id uuid.UUID) (*RoboadvisorPortfolio, error)

	List(ctx context.Context) ([]*RoboadvisorPortfolio, error)
	Update(ctx context.Context, portfolio *RoboadvisorPortfolio) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// FundHoldingRepository defines the interface for fund basket persistence operations
type FundHoldingRepository interface {
	// ReplaceAll swaps the whole basket of the portfolio
	ReplaceAll(ctx context.Context, portfolioID uuid.UUID, holdings []*FundHolding) error

	ListByPortfolio(ctx context.Context, portfolioID uuid.UUID) ([]*FundHolding, error)
}

// SnapshotRepository defines the interface for valuation snapshot persistence operations.
// Implementations never delete rows; they disappear only with their owner.
type SnapshotRepository interface {
	// Upsert writes the single row of the owner, updating value and computed_at on conflict
	Upsert(ctx context.Context, snapshot *ValuationSnapshot) error

	// Append inserts a new row for the owner and symbol
	Append(ctx context.Context, snapshot *ValuationSnapshot) error

	// GetLatest returns the row with the greatest computed_at for the key, or ErrNotFound
	GetLatest(ctx context.Context, key OwnerKey) (*ValuationSnapshot, error)

	// List returns every row of the key, newest first
	List(ctx context.Context, key OwnerKey) ([]*ValuationSnapshot, error)
}

// Repositories groups one implementation of every repository so services can be
// wired from a single storage backend
type Repositories struct {
	BankAccounts   BankAccountRepository
	Balances       BalanceRepository
	RatePeriods    RatePeriodRepository
	Exchanges      CryptoExchangeRepository
	CryptoBalances CryptoBalanceRepository
	Portfolios     PortfolioRepository
	FundHoldings   FundHoldingRepository
	Snapshots      SnapshotRepository
}
