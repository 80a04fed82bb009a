package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrValidation marks caller-side input errors (4xx-equivalent)
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a record other than an owner does not exist
	ErrNotFound = errors.New("not found")

	// ErrOwnerNotFound is returned when the owning account, exchange or portfolio does not exist
	ErrOwnerNotFound = errors.New("owner not found")

	// ErrOverlappingPeriod is the sentinel matched by every *OverlappingPeriodError
	ErrOverlappingPeriod = errors.New("overlapping rate period")

	// ErrPriceUnavailable is returned by price providers that cannot quote a symbol right now.
	// It never means the price is zero.
	ErrPriceUnavailable = errors.New("price unavailable")
)

// invalid builds a validation error that matches ErrValidation
func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// OverlappingPeriodError reports the existing rate period a proposed one collides with
type OverlappingPeriodError struct {
	AccountID  uuid.UUID
	ConflictID uuid.UUID
	StartDate  time.Time
	EndDate    time.Time
}

func (e *OverlappingPeriodError) Error() string {
	return fmt.Sprintf("rate period overlaps existing period %s (%s..%s) of account %s",
		e.ConflictID,
		e.StartDate.Format(time.DateOnly),
		e.EndDate.Format(time.DateOnly),
		e.AccountID,
	)
}

// Is lets errors.Is(err, ErrOverlappingPeriod) match
func (e *OverlappingPeriodError) Is(target error) bool {
	return target == ErrOverlappingPeriod
}
