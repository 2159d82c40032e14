package periods

import (
	"fmt"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

// Status enumerates valid period states.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Period represents an accounting window; both bounds are inclusive.
type Period struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	StartDate  time.Time  `json:"start_date"`
	EndDate    time.Time  `json:"end_date"`
	Status     Status     `json:"status"`
	ClosedAt   *time.Time `json:"closed_at"`
	ClosedBy   *int64     `json:"closed_by"`
	ReopenedAt *time.Time `json:"reopened_at"`
	ReopenedBy *int64     `json:"reopened_by"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Contains reports whether d falls inside the period.
func (p Period) Contains(d time.Time) bool {
	day := shared.Day(d)
	return !day.Before(shared.Day(p.StartDate)) && !day.After(shared.Day(p.EndDate))
}

// Overlaps reports whether the inclusive ranges intersect.
func (p Period) Overlaps(start, end time.Time) bool {
	return !shared.Day(start).After(shared.Day(p.EndDate)) && !shared.Day(end).Before(shared.Day(p.StartDate))
}

// ValidateTransition checks a status change.
func ValidateTransition(current, target Status) error {
	switch {
	case current == StatusOpen && target == StatusClosed:
		return nil
	case current == StatusClosed && target == StatusOpen:
		return nil
	case current == StatusClosed && target == StatusClosed:
		return shared.ErrAlreadyClosed
	case current == StatusOpen && target == StatusOpen:
		return shared.ErrAlreadyOpen
	}
	return fmt.Errorf("periods: invalid transition %s -> %s", current, target)
}

// CreateInput carries fields for a new period.
type CreateInput struct {
	Name      string
	StartDate time.Time
	EndDate   time.Time
}
