package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/MiguelRipoll23/financeserver-sub001/internal/domain"
)

// snapshotRepository implements domain.SnapshotRepository
type snapshotRepository struct {
	db *DB
}

// NewSnapshotRepository creates a new valuation snapshot repository
func NewSnapshotRepository(db *DB) domain.SnapshotRepository {
	return &snapshotRepository{db: db}
}

const snapshotColumns = `id, class, owner_id, symbol, value, annual_value, currency, computed_at`

// Upsert relies on the partial unique index on (class, owner_id); the stored id is
// written back into snapshot
func (r *snapshotRepository) Upsert(ctx context.Context, snapshot *domain.ValuationSnapshot) error {
	query := `
		INSERT INTO valuation_snapshots (` + snapshotColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (class, owner_id) WHERE class <> 'crypto' DO UPDATE
		SET value = EXCLUDED.value,
		    annual_value = EXCLUDED.annual_value,
		    currency = EXCLUDED.currency,
		    computed_at = EXCLUDED.computed_at
		RETURNING id
	`

	err := r.db.conn(ctx).QueryRowContext(ctx, query, snapshotArgs(snapshot)...).Scan(&snapshot.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}

	return nil
}

func (r *snapshotRepository) Append(ctx context.Context, snapshot *domain.ValuationSnapshot) error {
	query := `
		INSERT INTO valuation_snapshots (` + snapshotColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	if _, err := r.db.conn(ctx).ExecContext(ctx, query, snapshotArgs(snapshot)...); err != nil {
		return fmt.Errorf("failed to append snapshot: %w", err)
	}

	return nil
}

func (r *snapshotRepository) GetLatest(ctx context.Context, key domain.OwnerKey) (*domain.ValuationSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM valuation_snapshots
		WHERE class = $1 AND owner_id = $2 AND symbol = $3
		ORDER BY computed_at DESC, id DESC
		LIMIT 1
	`

	s, err := scanSnapshot(r.db.conn(ctx).QueryRowContext(ctx, query, string(key.Class), key.OwnerID, key.Symbol))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("snapshot %s: %w", key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}

	return s, nil
}

func (r *snapshotRepository) List(ctx context.Context, key domain.OwnerKey) ([]*domain.ValuationSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM valuation_snapshots
		WHERE class = $1 AND owner_id = $2 AND symbol = $3
		ORDER BY computed_at DESC, id DESC
	`

	rows, err := r.db.conn(ctx).QueryContext(ctx, query, string(key.Class), key.OwnerID, key.Symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*domain.ValuationSnapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}

	return snapshots, nil
}

func snapshotArgs(s *domain.ValuationSnapshot) []interface{} {
	return []interface{}{
		s.ID,
		string(s.Class),
		s.OwnerID,
		s.Symbol,
		s.Value.String(),
		nullableDecimal(s.AnnualValue),
		s.Currency,
		s.ComputedAt,
	}
}

func scanSnapshot(row rowScanner) (*domain.ValuationSnapshot, error) {
	var s domain.ValuationSnapshot
	var class string
	var annual decimal.NullDecimal

	if err := row.Scan(&s.ID, &class, &s.OwnerID, &s.Symbol, &s.Value, &annual, &s.Currency, &s.ComputedAt); err != nil {
		return nil, err
	}
	s.Class = domain.AssetClass(class)
	if annual.Valid {
		v := annual.Decimal
		s.AnnualValue = &v
	}
	s.ComputedAt = s.ComputedAt.UTC()

	return &s, nil
}
