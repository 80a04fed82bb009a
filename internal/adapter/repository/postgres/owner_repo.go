package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MiguelRipoll23/financeserver-sub001/internal/domain"
)

// bankAccountRepository implements domain.BankAccountRepository
type bankAccountRepository struct {
	db *DB
}

// NewBankAccountRepository creates a new bank account repository
func NewBankAccountRepository(db *DB) domain.BankAccountRepository {
	return &bankAccountRepository{db: db}
}

// Create creates a new bank account
func (r *bankAccountRepository) Create(ctx context.Context, account *domain.BankAccount) error {
	query := `
		INSERT INTO bank_accounts (id, name, currency)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`

	err := r.db.conn(ctx).QueryRowContext(ctx, query, account.ID, account.Name, account.Currency).
		Scan(&account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create bank account: %w", err)
	}

	return nil
}

// GetByID retrieves a bank account by its ID
func (r *bankAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.BankAccount, error) {
	query := `
		SELECT id, name, currency, created_at, updated_at
		FROM bank_accounts
		WHERE id = $1
	`

	var a domain.BankAccount
	err := r.db.conn(ctx).QueryRowContext(ctx, query, id).Scan(&a.ID, &a.Name, &a.Currency, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("bank account %s: %w", id, domain.ErrOwnerNotFound)
		}
		return nil, fmt.Errorf("failed to get bank account by ID: %w", err)
	}

	return &a, nil
}

// List retrieves every bank account ordered by name
func (r *bankAccountRepository) List(ctx context.Context) ([]*domain.BankAccount, error) {
	query := `
		SELECT id, name, currency, created_at, updated_at
		FROM bank_accounts
		ORDER BY name, id
	`

	rows, err := r.db.conn(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list bank accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*domain.BankAccount
	for rows.Next() {
		var a domain.BankAccount
		if err := rows.Scan(&a.ID, &a.Name, &a.Currency, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bank account: %w", err)
		}
		accounts = append(accounts, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bank accounts: %w", err)
	}

	return accounts, nil
}

// Delete removes the account; balances and rate periods cascade, snapshots are deleted here
func (r *bankAccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteOwner(ctx, r.db, "bank_accounts", domain.AssetClassInterest, id)
}

// LockForUpdate takes a row lock on the account for the rest of the transaction
func (r *bankAccountRepository) LockForUpdate(ctx context.Context, id uuid.UUID) error {
	tx := txFrom(ctx)
	if tx == nil {
		return fmt.Errorf("bank account %s: %w", id, errNoTx)
	}

	var locked uuid.UUID
	err := tx.QueryRowContext(ctx, `SELECT id FROM bank_accounts WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("bank account %s: %w", id, domain.ErrOwnerNotFound)
		}
		return fmt.Errorf("failed to lock bank account: %w", err)
	}

	return nil
}

// cryptoExchangeRepository implements domain.CryptoExchangeRepository
type cryptoExchangeRepository struct {
	db *DB
}

// NewCryptoExchangeRepository creates a new crypto exchange repository
func NewCryptoExchangeRepository(db *DB) domain.CryptoExchangeRepository {
	return &cryptoExchangeRepository{db: db}
}

func (r *cryptoExchangeRepository) Create(ctx context.Context, exchange *domain.CryptoExchange) error {
	query := `
		INSERT INTO crypto_exchanges (id, name)
		VALUES ($1, $2)
		RETURNING created_at, updated_at
	`

	err := r.db.conn(ctx).QueryRowContext(ctx, query, exchange.ID, exchange.Name).
		Scan(&exchange.CreatedAt, &exchange.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create crypto exchange: %w", err)
	}

	return nil
}

func (r *cryptoExchangeRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.CryptoExchange, error) {
	query := `
		SELECT id, name, created_at, updated_at
		FROM crypto_exchanges
		WHERE id = $1
	`

	var e domain.CryptoExchange
	err := r.db.conn(ctx).QueryRowContext(ctx, query, id).Scan(&e.ID, &e.Name, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("crypto exchange %s: %w", id, domain.ErrOwnerNotFound)
		}
		return nil, fmt.Errorf("failed to get crypto exchange by ID: %w", err)
	}

	return &e, nil
}

func (r *cryptoExchangeRepository) List(ctx context.Context) ([]*domain.CryptoExchange, error) {
	query := `
		SELECT id, name, created_at, updated_at
		FROM crypto_exchanges
		ORDER BY name, id
	`

	rows, err := r.db.conn(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list crypto exchanges: %w", err)
	}
	defer rows.Close()

	var exchanges []*domain.CryptoExchange
	for rows.Next() {
		var e domain.CryptoExchange
		if err := rows.Scan(&e.ID, &e.Name, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan crypto exchange: %w", err)
		}
		exchanges = append(exchanges, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating crypto exchanges: %w", err)
	}

	return exchanges, nil
}

func (r *cryptoExchangeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteOwner(ctx, r.db, "crypto_exchanges", domain.AssetClassCrypto, id)
}

// portfolioRepository implements domain.PortfolioRepository
type portfolioRepository struct {
	db *DB
}

// NewPortfolioRepository creates a new roboadvisor portfolio repository
func NewPortfolioRepository(db *DB) domain.PortfolioRepository {
	return &portfolioRepository{db: db}
}

func (r *portfolioRepository) Create(ctx context.Context, portfolio *domain.RoboadvisorPortfolio) error {
	query := `
		INSERT INTO roboadvisor_portfolios (id, name, currency, invested_amount)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`

	err := r.db.conn(ctx).QueryRowContext(ctx, query,
		portfolio.ID,
		portfolio.Name,
		portfolio.Currency,
		nullableDecimal(portfolio.InvestedAmount),
	).Scan(&portfolio.CreatedAt, &portfolio.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create portfolio: %w", err)
	}

	return nil
}

func (r *portfolioRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.RoboadvisorPortfolio, error) {
	query := `
		SELECT id, name, currency, invested_amount, created_at, updated_at
		FROM roboadvisor_portfolios
		WHERE id = $1
	`

	p, err := scanPortfolio(r.db.conn(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("portfolio %s: %w", id, domain.ErrOwnerNotFound)
		}
		return nil, fmt.Errorf("failed to get portfolio by ID: %w", err)
	}

	return p, nil
}

func (r *portfolioRepository) List(ctx context.Context) ([]*domain.RoboadvisorPortfolio, error) {
	query := `
		SELECT id, name, currency, invested_amount, created_at, updated_at
		FROM roboadvisor_portfolios
		ORDER BY name, id
	`

	rows, err := r.db.conn(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}
	defer rows.Close()

	var portfolios []*domain.RoboadvisorPortfolio
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan portfolio: %w", err)
		}
		portfolios = append(portfolios, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolios: %w", err)
	}

	return portfolios, nil
}

func (r *portfolioRepository) Update(ctx context.Context, portfolio *domain.RoboadvisorPortfolio) error {
	query := `
		UPDATE roboadvisor_portfolios
		SET name = $2, currency = $3, invested_amount = $4, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.conn(ctx).QueryRowContext(ctx, query,
		portfolio.ID,
		portfolio.Name,
		portfolio.Currency,
		nullableDecimal(portfolio.InvestedAmount),
	).Scan(&portfolio.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("portfolio %s: %w", portfolio.ID, domain.ErrOwnerNotFound)
		}
		return fmt.Errorf("failed to update portfolio: %w", err)
	}

	return nil
}

func (r *portfolioRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteOwner(ctx, r.db, "roboadvisor_portfolios", domain.AssetClassFund, id)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPortfolio(row rowScanner) (*domain.RoboadvisorPortfolio, error) {
	var p domain.RoboadvisorPortfolio
	var invested decimal.NullDecimal

	if err := row.Scan(&p.ID, &p.Name, &p.Currency, &invested, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if invested.Valid {
		amount := invested.Decimal
		p.InvestedAmount = &amount
	}

	return &p, nil
}

// deleteOwner removes an owner row and every snapshot keyed by it in one transaction.
// table is always a constant from this package.
func deleteOwner(ctx context.Context, db *DB, table string, class domain.AssetClass, id uuid.UUID) error {
	return db.WithinTx(ctx, func(ctx context.Context) error {
		q := db.conn(ctx)

		if _, err := q.ExecContext(ctx, `DELETE FROM valuation_snapshots WHERE class = $1 AND owner_id = $2`, string(class), id); err != nil {
			return fmt.Errorf("failed to delete snapshots: %w", err)
		}

		res, err := q.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete from %s: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%s %s: %w", table, id, domain.ErrOwnerNotFound)
		}

		return nil
	})
}

func nullableDecimal(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}
