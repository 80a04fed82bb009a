package interval

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MiguelRipoll23/financeserver-sub001/internal/domain"
)

// Guard protects the non-overlap invariant of an account's rate periods
type Guard struct {
	RatePeriodRepo domain.RatePeriodRepository
}

// NewGuard creates a new Guard instance
func NewGuard(ratePeriodRepo domain.RatePeriodRepository) *Guard {
	return &Guard{RatePeriodRepo: ratePeriodRepo}
}

// AssertNoOverlap fails with *domain.OverlappingPeriodError when [proposedStart, proposedEnd]
// shares a day with any bounded period of the account other than excludeID.
//
// A proposal without an end date passes: open periods are only checked once an end
// date is supplied. The guard only reads; callers run it in the transaction of the
// write that follows so the check and the insert cannot interleave with another writer.
func (g *Guard) AssertNoOverlap(
	ctx context.Context,
	accountID uuid.UUID,
	proposedStart time.Time,
	proposedEnd *time.Time,
	excludeID *uuid.UUID,
) error {
	if proposedEnd == nil {
		return nil
	}

	start := domain.Day(proposedStart)
	end := domain.Day(*proposedEnd)

	candidates, err := g.RatePeriodRepo.FindOverlapping(ctx, accountID, start, end, excludeID)
	if err != nil {
		return fmt.Errorf("failed to look up overlapping rate periods: %w", err)
	}

	// candidates may be a superset; only inclusive day overlaps count
	for _, p := range candidates {
		if p.EndDate == nil {
			continue
		}
		if excludeID != nil && p.ID == *excludeID {
			continue
		}
		if domain.Overlaps(start, end, p.StartDate, *p.EndDate) {
			return &domain.OverlappingPeriodError{
				AccountID:  accountID,
				ConflictID: p.ID,
				StartDate:  domain.Day(p.StartDate),
				EndDate:    domain.Day(*p.EndDate),
			}
		}
	}

	return nil
}
