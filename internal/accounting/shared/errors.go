package shared

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates a missing account, type, period or entry.
	ErrNotFound = errors.New("accounting: not found")
	// ErrDuplicateCode indicates an account or account type code collision.
	ErrDuplicateCode = errors.New("accounting: duplicate code")
	// ErrInvalidCategory indicates an unknown account category.
	ErrInvalidCategory = errors.New("accounting: invalid account category")
	// ErrInvalidNature indicates an unknown balance nature.
	ErrInvalidNature = errors.New("accounting: invalid account nature")
	// ErrInvalidParent indicates the parent account cannot hold children.
	ErrInvalidParent = errors.New("accounting: parent account is a leaf")
	// ErrInvalidLeaf indicates a control account flagged as leaf.
	ErrInvalidLeaf = errors.New("accounting: control account cannot be a leaf")
	// ErrHasActiveChildren blocks deactivation of a parent with live children.
	ErrHasActiveChildren = errors.New("accounting: account has active children")
	// ErrAccountInUse blocks deletion of an account referenced by journal lines.
	ErrAccountInUse = errors.New("accounting: account referenced by journal lines")
	// ErrCodeSpaceExhausted indicates no child code is left for the given width.
	ErrCodeSpaceExhausted = errors.New("accounting: child code space exhausted")

	// ErrUnbalanced indicates debit != credit.
	ErrUnbalanced = errors.New("accounting: journal lines must balance")
	// ErrInvalidLineAmounts indicates a line that is not exactly one positive side.
	ErrInvalidLineAmounts = errors.New("accounting: line must carry exactly one positive amount")
	// ErrInsufficientLines indicates less than two lines.
	ErrInsufficientLines = errors.New("accounting: journal requires at least two lines")
	// ErrAccountNotLeaf indicates a posting against a non-leaf account.
	ErrAccountNotLeaf = errors.New("accounting: account is not a leaf")
	// ErrAccountInactive indicates a posting against a deactivated account.
	ErrAccountInactive = errors.New("accounting: account is inactive")
	// ErrNotCashAccount indicates a payment through an account that is neither cash nor bank.
	ErrNotCashAccount = errors.New("accounting: payment account must be cash or bank")

	// ErrPeriodClosed indicates the covering period is closed.
	ErrPeriodClosed = errors.New("accounting: period closed")
	// ErrPeriodMissing indicates no period covers the date.
	ErrPeriodMissing = errors.New("accounting: no period covers date")
	// ErrPeriodOverlap indicates the requested range intersects an existing period.
	ErrPeriodOverlap = errors.New("accounting: period overlaps existing range")
	// ErrAlreadyClosed indicates the period is already closed.
	ErrAlreadyClosed = errors.New("accounting: period already closed")
	// ErrAlreadyOpen indicates the period is already open.
	ErrAlreadyOpen = errors.New("accounting: period already open")
	// ErrReopenDenied indicates the reopen policy refused the caller.
	ErrReopenDenied = errors.New("accounting: period reopen not permitted")

	// ErrEntryPosted indicates a mutation attempted on a posted entry.
	ErrEntryPosted = errors.New("accounting: journal entry is posted")
	// ErrEntryNotPosted indicates unposting a draft entry.
	ErrEntryNotPosted = errors.New("accounting: journal entry is not posted")
	// ErrSourceAlreadyLinked indicates idempotency conflict.
	ErrSourceAlreadyLinked = errors.New("accounting: source already linked")

	// ErrConflict indicates an operation blocked by dependent postings.
	ErrConflict = errors.New("accounting: conflict")
	// ErrConfigurationMissing indicates a required well-known account is absent.
	ErrConfigurationMissing = errors.New("accounting: configuration missing")
	// ErrCostUnknown flags a sale posted without a cost basis.
	ErrCostUnknown = errors.New("accounting: cost basis unknown")
)

// ConflictError lists the references blocking an operation.
type ConflictError struct {
	Op       string
	Blockers []string
}

func (e *ConflictError) Error() string {
	if len(e.Blockers) == 0 {
		return fmt.Sprintf("accounting: %s blocked", e.Op)
	}
	return fmt.Sprintf("accounting: %s blocked by %s", e.Op, strings.Join(e.Blockers, ", "))
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// ConfigurationError names the well-known key that could not be resolved.
type ConfigurationError struct {
	Key    string
	Code   string
	Reason string
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("accounting: well-known account %q", e.Key)
	if e.Code != "" {
		msg += fmt.Sprintf(" (code %s)", e.Code)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfigurationMissing
}
