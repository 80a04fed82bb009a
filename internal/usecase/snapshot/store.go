package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MiguelRipoll23/financeserver-sub001/internal/domain"
)

// Store persists the latest valuation of every position.
// Interest and fund owners keep one row that is overwritten; crypto owners get a
// new row per computation and the latest is the one with the greatest ComputedAt.
type Store struct {
	SnapshotRepo domain.SnapshotRepository
	Now          func() time.Time
}

// NewStore creates a new Store instance
func NewStore(snapshotRepo domain.SnapshotRepository) *Store {
	return &Store{
		SnapshotRepo: snapshotRepo,
		Now:          time.Now,
	}
}

// GetLatest returns the most recent snapshot for the key, or nil when none was ever stored
func (s *Store) GetLatest(ctx context.Context, key domain.OwnerKey) (*domain.ValuationSnapshot, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	snap, err := s.SnapshotRepo.GetLatest(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest snapshot for %s: %w", key, err)
	}

	return snap, nil
}

// Store records a freshly computed value under key using the mode of its asset class
func (s *Store) Store(
	ctx context.Context,
	key domain.OwnerKey,
	value decimal.Decimal,
	currency string,
	annualValue *decimal.Decimal,
) (*domain.ValuationSnapshot, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if err := domain.ValidateCurrency(currency); err != nil {
		return nil, err
	}

	snap := &domain.ValuationSnapshot{
		ID:          uuid.New(),
		Class:       key.Class,
		OwnerID:     key.OwnerID,
		Symbol:      key.Symbol,
		Value:       value,
		AnnualValue: annualValue,
		Currency:    currency,
		ComputedAt:  s.now(),
	}

	switch key.Class.SnapshotMode() {
	case domain.SnapshotModeAppend:
		if err := s.SnapshotRepo.Append(ctx, snap); err != nil {
			return nil, fmt.Errorf("failed to append snapshot for %s: %w", key, err)
		}
	default:
		if err := s.SnapshotRepo.Upsert(ctx, snap); err != nil {
			return nil, fmt.Errorf("failed to upsert snapshot for %s: %w", key, err)
		}
	}

	return snap, nil
}

// History lists every stored snapshot of the key, newest first.
// Upsert-mode keys have at most one row.
func (s *Store) History(ctx context.Context, key domain.OwnerKey) ([]*domain.ValuationSnapshot, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	return s.SnapshotRepo.List(ctx, key)
}

// now is rounded to the microsecond precision of timestamptz
func (s *Store) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC().Round(time.Microsecond)
	}
	return s.Now().UTC().Round(time.Microsecond)
}
