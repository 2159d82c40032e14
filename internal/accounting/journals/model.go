package journals

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status enumerates journal lifecycle values.
type Status string

const (
	StatusDraft  Status = "draft"
	StatusPosted Status = "posted"
)

// EntryType distinguishes manual, integrator and adjustment entries.
type EntryType string

const (
	EntryTypeManual     EntryType = "manual"
	EntryTypeAutomatic  EntryType = "automatic"
	EntryTypeAdjustment EntryType = "adjustment"
)

// Valid reports whether t is a known entry type.
func (t EntryType) Valid() bool {
	return t == EntryTypeManual || t == EntryTypeAutomatic || t == EntryTypeAdjustment
}

// Entry captures a journal entry header and, when loaded, its lines.
type Entry struct {
	ID           int64      `json:"id"`
	Number       string     `json:"number,omitempty"`
	Date         time.Time  `json:"date"`
	EntryType    EntryType  `json:"entry_type"`
	PeriodID     int64      `json:"period_id,omitempty"`
	Reference    string     `json:"reference"`
	Description  string     `json:"description"`
	SourceModule string     `json:"source_module,omitempty"`
	SourceID     uuid.UUID  `json:"source_id"`
	Status       Status     `json:"status"`
	PostedAt     *time.Time `json:"posted_at,omitempty"`
	PostedBy     int64      `json:"posted_by,omitempty"`
	CreatedBy    int64      `json:"created_by,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Lines        []Line     `json:"lines,omitempty"`
}

// DisplayNumber returns the posted number, or a temporary identifier for
// entries that were never posted.
func (e Entry) DisplayNumber() string {
	if e.Number != "" {
		return e.Number
	}
	return fmt.Sprintf("DRAFT-%d", e.ID)
}

// SourceOwned reports whether the entry belongs to a source document. Such
// entries change only through the document's own events.
func (e Entry) SourceOwned() bool {
	return e.SourceModule != "" || e.EntryType != EntryTypeManual
}

// Totals sums debit and credit over the loaded lines.
func (e Entry) Totals() (debit, credit decimal.Decimal) {
	for _, line := range e.Lines {
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	return debit, credit
}

// Line stores a debit or credit amount for an account.
type Line struct {
	ID          int64           `json:"id"`
	EntryID     int64           `json:"entry_id"`
	AccountID   int64           `json:"account_id"`
	AccountCode string          `json:"account_code"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// DraftInput carries header fields for a new draft entry.
type DraftInput struct {
	Date         time.Time
	EntryType    EntryType
	Reference    string
	Description  string
	SourceModule string
	SourceID     uuid.UUID
	CreatedBy    int64
}

// LineInput carries the fields of one line.
type LineInput struct {
	AccountID   int64
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
}

// ManualLineInput addresses the account by code.
type ManualLineInput struct {
	AccountCode string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
}

// ManualEntryInput creates a draft manual entry with its lines.
type ManualEntryInput struct {
	Date        time.Time
	Reference   string
	Description string
	CreatedBy   int64
	Lines       []ManualLineInput
}

// ComposedInput drafts, fills and posts an entry in one step.
type ComposedInput struct {
	DraftInput
	Lines    []LineInput
	PostedBy int64
}

// ListFilter narrows entry listings.
type ListFilter struct {
	From            *time.Time
	To              *time.Time
	Status          Status
	EntryType       EntryType
	ReferencePrefix string
	AccountCode     string
	Limit           int
}

// ChangeEvent describes a committed change to posted ledger state.
type ChangeEvent struct {
	Action    string
	EntryID   int64
	Number    string
	EntryType EntryType
	Date      time.Time
}

const (
	ActionPost   = "journal.post"
	ActionUnpost = "journal.unpost"
	ActionDelete = "journal.delete"
)
