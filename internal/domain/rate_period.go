package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RatePeriod is an effective-dated interest rate of a bank account.
// Rate is a yearly percentage (2.5 means 2.5%). A nil EndDate means the period
// stays active indefinitely.
type RatePeriod struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Rate      decimal.Decimal
	StartDate time.Time
	EndDate   *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate ensures the rate period adheres to domain rules
func (p *RatePeriod) Validate() error {
	if p.AccountID == uuid.Nil {
		return invalid("rate period must belong to a bank account")
	}
	if p.Rate.IsNegative() {
		return invalid("interest rate cannot be negative")
	}
	if p.StartDate.IsZero() {
		return invalid("rate period start date is required")
	}
	if p.EndDate != nil && Day(*p.EndDate).Before(Day(p.StartDate)) {
		return invalid("rate period end date cannot be before its start date")
	}
	return nil
}

// Bounded reports whether the period has both bounds and is therefore subject to the overlap check
func (p *RatePeriod) Bounded() bool {
	return p.EndDate != nil
}

// ActiveOn reports whether the period covers the given day (inclusive bounds)
func (p *RatePeriod) ActiveOn(day time.Time) bool {
	d := Day(day)
	if Day(p.StartDate).After(d) {
		return false
	}
	return p.EndDate == nil || !Day(*p.EndDate).Before(d)
}

// Overlaps reports whether the closed day ranges [s1,e1] and [s2,e2] share at least one day.
// Touching endpoints (e1 == s2) overlap.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return !Day(s1).After(Day(e2)) && !Day(s2).After(Day(e1))
}

// ActivePeriod picks the period active on day; when several open-ended periods are
// active the one that started last wins. Returns nil when none is active.
func ActivePeriod(periods []*RatePeriod, day time.Time) *RatePeriod {
	var active *RatePeriod
	for _, p := range periods {
		if !p.ActiveOn(day) {
			continue
		}
		if active == nil || p.StartDate.After(active.StartDate) {
			active = p
		}
	}
	return active
}

// Day truncates t to midnight UTC of its calendar date
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
