package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/MiguelRipoll23/financeserver-sub001/internal/domain"
)

const foreignKeyViolation = "23503"

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation
}

func dateParam(t time.Time) string {
	return domain.Day(t).Format(time.DateOnly)
}

// balanceRepository implements domain.BalanceRepository
type balanceRepository struct {
	db *DB
}

// NewBalanceRepository creates a new bank account balance repository
func NewBalanceRepository(db *DB) domain.BalanceRepository {
	return &balanceRepository{db: db}
}

// Add appends a balance row; created_at is stamped by the database
func (r *balanceRepository) Add(ctx context.Context, balance *domain.BankAccountBalance) error {
	query := `
		INSERT INTO bank_account_balances (id, account_id, balance, currency)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	err := r.db.conn(ctx).QueryRowContext(ctx, query,
		balance.ID,
		balance.AccountID,
		balance.Balance.String(),
		balance.Currency,
	).Scan(&balance.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("bank account %s: %w", balance.AccountID, domain.ErrOwnerNotFound)
		}
		return fmt.Errorf("failed to add balance: %w", err)
	}

	return nil
}

func (r *balanceRepository) GetLatest(ctx context.Context, accountID uuid.UUID) (*domain.BankAccountBalance, error) {
	query := `
		SELECT id, account_id, balance, currency, created_at
		FROM bank_account_balances
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	var b domain.BankAccountBalance
	err := r.db.conn(ctx).QueryRowContext(ctx, query, accountID).
		Scan(&b.ID, &b.AccountID, &b.Balance, &b.Currency, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("balance of account %s: %w", accountID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get latest balance: %w", err)
	}

	return &b, nil
}

func (r *balanceRepository) ListAccountIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.conn(ctx).QueryContext(ctx, `SELECT DISTINCT account_id FROM bank_account_balances ORDER BY account_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts with balances: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan account id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account ids: %w", err)
	}

	return ids, nil
}

// ratePeriodRepository implements domain.RatePeriodRepository
type ratePeriodRepository struct {
	db *DB
}

// NewRatePeriodRepository creates a new interest rate period repository
func NewRatePeriodRepository(db *DB) domain.RatePeriodRepository {
	return &ratePeriodRepository{db: db}
}

const ratePeriodColumns = `id, account_id, rate, start_date, end_date, created_at, updated_at`

func (r *ratePeriodRepository) Create(ctx context.Context, period *domain.RatePeriod) error {
	query := `
		INSERT INTO interest_rate_periods (id, account_id, rate, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	err := r.db.conn(ctx).QueryRowContext(ctx, query,
		period.ID,
		period.AccountID,
		period.Rate.String(),
		dateParam(period.StartDate),
		nullableDate(period.EndDate),
	).Scan(&period.CreatedAt, &period.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("bank account %s: %w", period.AccountID, domain.ErrOwnerNotFound)
		}
		return fmt.Errorf("failed to create rate period: %w", err)
	}

	return nil
}

func (r *ratePeriodRepository) Update(ctx context.Context, period *domain.RatePeriod) error {
	query := `
		UPDATE interest_rate_periods
		SET rate = $2, start_date = $3, end_date = $4, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.conn(ctx).QueryRowContext(ctx, query,
		period.ID,
		period.Rate.String(),
		dateParam(period.StartDate),
		nullableDate(period.EndDate),
	).Scan(&period.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("rate period %s: %w", period.ID, domain.ErrNotFound)
		}
		return fmt.Errorf("failed to update rate period: %w", err)
	}

	return nil
}

func (r *ratePeriodRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.conn(ctx).ExecContext(ctx, `DELETE FROM interest_rate_periods WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rate period: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("rate period %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *ratePeriodRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.RatePeriod, error) {
	query := `SELECT ` + ratePeriodColumns + ` FROM interest_rate_periods WHERE id = $1`

	p, err := scanRatePeriod(r.db.conn(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("rate period %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get rate period by ID: %w", err)
	}

	return p, nil
}

func (r *ratePeriodRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*domain.RatePeriod, error) {
	query := `
		SELECT ` + ratePeriodColumns + `
		FROM interest_rate_periods
		WHERE account_id = $1
		ORDER BY start_date, id
	`
	return r.list(ctx, query, accountID)
}

// FindOverlapping only considers bounded periods; both ranges are closed so a shared
// endpoint day counts as an overlap
func (r *ratePeriodRepository) FindOverlapping(
	ctx context.Context,
	accountID uuid.UUID,
	start, end time.Time,
	excludeID *uuid.UUID,
) ([]*domain.RatePeriod, error) {
	query := `
		SELECT ` + ratePeriodColumns + `
		FROM interest_rate_periods
		WHERE account_id = $1
		  AND end_date IS NOT NULL
		  AND start_date <= $3
		  AND end_date >= $2
		  AND ($4::uuid IS NULL OR id <> $4::uuid)
		ORDER BY start_date, id
	`

	var exclude interface{}
	if excludeID != nil {
		exclude = *excludeID
	}

	return r.list(ctx, query, accountID, dateParam(start), dateParam(end), exclude)
}

func (r *ratePeriodRepository) ListActive(ctx context.Context, accountID uuid.UUID, day time.Time) ([]*domain.RatePeriod, error) {
	query := `
		SELECT ` + ratePeriodColumns + `
		FROM interest_rate_periods
		WHERE account_id = $1
		  AND start_date <= $2
		  AND (end_date IS NULL OR end_date >= $2)
		ORDER BY start_date, id
	`
	return r.list(ctx, query, accountID, dateParam(day))
}

func (r *ratePeriodRepository) list(ctx context.Context, query string, args ...interface{}) ([]*domain.RatePeriod, error) {
	rows, err := r.db.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rate periods: %w", err)
	}
	defer rows.Close()

	var periods []*domain.RatePeriod
	for rows.Next() {
		p, err := scanRatePeriod(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rate period: %w", err)
		}
		periods = append(periods, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rate periods: %w", err)
	}

	return periods, nil
}

func scanRatePeriod(row rowScanner) (*domain.RatePeriod, error) {
	var p domain.RatePeriod
	var end sql.NullTime

	if err := row.Scan(&p.ID, &p.AccountID, &p.Rate, &p.StartDate, &end, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.StartDate = domain.Day(p.StartDate)
	if end.Valid {
		d := domain.Day(end.Time)
		p.EndDate = &d
	}

	return &p, nil
}

func nullableDate(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return dateParam(*t)
}

// cryptoBalanceRepository implements domain.CryptoBalanceRepository
type cryptoBalanceRepository struct {
	db *DB
}

// NewCryptoBalanceRepository creates a new crypto balance repository
func NewCryptoBalanceRepository(db *DB) domain.CryptoBalanceRepository {
	return &cryptoBalanceRepository{db: db}
}

const cryptoBalanceColumns = `id, exchange_id, symbol, quantity, invested_amount, invested_currency, created_at, updated_at`

// Save upserts on (exchange_id, symbol); an existing row keeps its id
func (r *cryptoBalanceRepository) Save(ctx context.Context, balance *domain.CryptoBalance) error {
	query := `
		INSERT INTO crypto_balances (id, exchange_id, symbol, quantity, invested_amount, invested_currency)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (exchange_id, symbol) DO UPDATE
		SET quantity = EXCLUDED.quantity,
		    invested_amount = EXCLUDED.invested_amount,
		    invested_currency = EXCLUDED.invested_currency,
		    updated_at = now()
		RETURNING id, created_at, updated_at
	`

	var amount, currency interface{}
	if balance.CostBasis != nil {
		amount = balance.CostBasis.InvestedAmount.String()
		currency = balance.CostBasis.InvestedCurrency
	}

	err := r.db.conn(ctx).QueryRowContext(ctx, query,
		balance.ID,
		balance.ExchangeID,
		balance.Symbol,
		balance.Quantity.String(),
		amount,
		currency,
	).Scan(&balance.ID, &balance.CreatedAt, &balance.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("crypto exchange %s: %w", balance.ExchangeID, domain.ErrOwnerNotFound)
		}
		return fmt.Errorf("failed to save crypto balance: %w", err)
	}

	return nil
}

func (r *cryptoBalanceRepository) Get(ctx context.Context, exchangeID uuid.UUID, symbol string) (*domain.CryptoBalance, error) {
	query := `SELECT ` + cryptoBalanceColumns + ` FROM crypto_balances WHERE exchange_id = $1 AND symbol = $2`

	b, err := scanCryptoBalance(r.db.conn(ctx).QueryRowContext(ctx, query, exchangeID, symbol))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("crypto balance %s on %s: %w", symbol, exchangeID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get crypto balance: %w", err)
	}

	return b, nil
}

func (r *cryptoBalanceRepository) ListByExchange(ctx context.Context, exchangeID uuid.UUID) ([]*domain.CryptoBalance, error) {
	query := `SELECT ` + cryptoBalanceColumns + ` FROM crypto_balances WHERE exchange_id = $1 ORDER BY symbol`
	return r.list(ctx, query, exchangeID)
}

func (r *cryptoBalanceRepository) ListAll(ctx context.Context) ([]*domain.CryptoBalance, error) {
	query := `SELECT ` + cryptoBalanceColumns + ` FROM crypto_balances ORDER BY exchange_id, symbol`
	return r.list(ctx, query)
}

func (r *cryptoBalanceRepository) list(ctx context.Context, query string, args ...interface{}) ([]*domain.CryptoBalance, error) {
	rows, err := r.db.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query crypto balances: %w", err)
	}
	defer rows.Close()

	var balances []*domain.CryptoBalance
	for rows.Next() {
		b, err := scanCryptoBalance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan crypto balance: %w", err)
		}
		balances = append(balances, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating crypto balances: %w", err)
	}

	return balances, nil
}

func scanCryptoBalance(row rowScanner) (*domain.CryptoBalance, error) {
	var b domain.CryptoBalance
	var amount decimal.NullDecimal
	var currency sql.NullString

	if err := row.Scan(&b.ID, &b.ExchangeID, &b.Symbol, &b.Quantity, &amount, &currency, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	if amount.Valid && currency.Valid {
		b.CostBasis = &domain.CostBasis{InvestedAmount: amount.Decimal, InvestedCurrency: currency.String}
	}

	return &b, nil
}

// fundHoldingRepository implements domain.FundHoldingRepository
type fundHoldingRepository struct {
	db *DB
}

// NewFundHoldingRepository creates a new fund holding repository
func NewFundHoldingRepository(db *DB) domain.FundHoldingRepository {
	return &fundHoldingRepository{db: db}
}

// ReplaceAll deletes the current basket and inserts holdings in one transaction
func (r *fundHoldingRepository) ReplaceAll(ctx context.Context, portfolioID uuid.UUID, holdings []*domain.FundHolding) error {
	insertQuery := `
		INSERT INTO fund_holdings (id, portfolio_id, symbol, weight, reference_price)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	return r.db.WithinTx(ctx, func(ctx context.Context) error {
		q := r.db.conn(ctx)

		if _, err := q.ExecContext(ctx, `DELETE FROM fund_holdings WHERE portfolio_id = $1`, portfolioID); err != nil {
			return fmt.Errorf("failed to delete fund holdings: %w", err)
		}

		for _, h := range holdings {
			err := q.QueryRowContext(ctx, insertQuery,
				h.ID,
				portfolioID,
				h.Symbol,
				h.Weight.String(),
				h.ReferencePrice.String(),
			).Scan(&h.CreatedAt, &h.UpdatedAt)
			if err != nil {
				if isForeignKeyViolation(err) {
					return fmt.Errorf("portfolio %s: %w", portfolioID, domain.ErrOwnerNotFound)
				}
				return fmt.Errorf("failed to insert fund holding %s: %w", h.Symbol, err)
			}
		}

		return nil
	})
}

func (r *fundHoldingRepository) ListByPortfolio(ctx context.Context, portfolioID uuid.UUID) ([]*domain.FundHolding, error) {
	query := `
		SELECT id, portfolio_id, symbol, weight, reference_price, created_at, updated_at
		FROM fund_holdings
		WHERE portfolio_id = $1
		ORDER BY symbol
	`

	rows, err := r.db.conn(ctx).QueryContext(ctx, query, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to list fund holdings: %w", err)
	}
	defer rows.Close()

	var holdings []*domain.FundHolding
	for rows.Next() {
		var h domain.FundHolding
		if err := rows.Scan(&h.ID, &h.PortfolioID, &h.Symbol, &h.Weight, &h.ReferencePrice, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan fund holding: %w", err)
		}
		holdings = append(holdings, &h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fund holdings: %w", err)
	}

	return holdings, nil
}
