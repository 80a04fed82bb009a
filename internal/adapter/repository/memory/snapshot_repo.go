package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/MiguelRipoll23/financeserver-sub001/internal/domain"
)

// snapshotRepository implements domain.SnapshotRepository
type snapshotRepository struct {
	s *Store
}

// NewSnapshotRepository creates a new in-memory valuation snapshot repository
func NewSnapshotRepository(s *Store) domain.SnapshotRepository {
	return &snapshotRepository{s: s}
}

// Upsert overwrites the row of the same class and owner, keeping its id
func (r *snapshotRepository) Upsert(ctx context.Context, snapshot *domain.ValuationSnapshot) error {
	return r.s.write(ctx, func(st *state, _ time.Time) error {
		for i, existing := range st.snapshots {
			if existing.Class == snapshot.Class && existing.OwnerID == snapshot.OwnerID && existing.Symbol == snapshot.Symbol {
				snapshot.ID = existing.ID
				st.snapshots[i] = copySnapshot(*snapshot)
				return nil
			}
		}
		st.snapshots = append(st.snapshots, copySnapshot(*snapshot))
		return nil
	})
}

func (r *snapshotRepository) Append(ctx context.Context, snapshot *domain.ValuationSnapshot) error {
	return r.s.write(ctx, func(st *state, _ time.Time) error {
		st.snapshots = append(st.snapshots, copySnapshot(*snapshot))
		return nil
	})
}

func (r *snapshotRepository) GetLatest(ctx context.Context, key domain.OwnerKey) (*domain.ValuationSnapshot, error) {
	rows, err := r.List(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("snapshot %s: %w", key, domain.ErrNotFound)
	}
	return rows[0], nil
}

// List returns the rows of key newest first; rows with equal computed_at keep
// the most recently inserted one first
func (r *snapshotRepository) List(ctx context.Context, key domain.OwnerKey) ([]*domain.ValuationSnapshot, error) {
	out := []*domain.ValuationSnapshot{}
	_ = r.s.read(func(st *state) error {
		for i := len(st.snapshots) - 1; i >= 0; i-- {
			s := st.snapshots[i]
			if s.Class == key.Class && s.OwnerID == key.OwnerID && s.Symbol == key.Symbol {
				s = copySnapshot(s)
				out = append(out, &s)
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ComputedAt.After(out[j].ComputedAt)
	})
	return out, nil
}

func (st *state) dropSnapshots(class domain.AssetClass, ownerID uuid.UUID) {
	kept := st.snapshots[:0]
	for _, s := range st.snapshots {
		if s.Class == class && s.OwnerID == ownerID {
			continue
		}
		kept = append(kept, s)
	}
	st.snapshots = kept
}
