package journals

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
	internalShared "github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// AuditPort records journal lifecycle events.
type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// AccountLookup resolves accounts referenced by lines.
type AccountLookup interface {
	GetAccount(ctx context.Context, id int64) (accounts.Account, error)
	Resolve(ctx context.Context, code string) (accounts.Account, error)
}

// PeriodGate answers whether a date may receive postings.
type PeriodGate interface {
	RequireOpenFor(ctx context.Context, d time.Time) (periods.Period, error)
}

// ChangeNotifier observes committed changes to posted ledger state.
type ChangeNotifier interface {
	Changed(ctx context.Context, event ChangeEvent)
}

// Service owns journal entries and their lines.
type Service struct {
	repo      Repository
	tx        db.TxManager
	accounts  AccountLookup
	periods   PeriodGate
	audit     AuditPort
	notifiers []ChangeNotifier
	now       func() time.Time
}

// NewService constructs the journal. audit may be nil.
func NewService(repo Repository, tx db.TxManager, accounts AccountLookup, periods PeriodGate, audit AuditPort) *Service {
	return &Service{repo: repo, tx: tx, accounts: accounts, periods: periods, audit: audit, now: time.Now}
}

// WithNow overrides the clock.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Notify registers observers of posted state changes.
func (s *Service) Notify(n ...ChangeNotifier) {
	s.notifiers = append(s.notifiers, n...)
}

// Draft creates an entry with no lines.
func (s *Service) Draft(ctx context.Context, in DraftInput) (Entry, error) {
	if in.Date.IsZero() {
		return Entry{}, errors.New("journals: date required")
	}
	if in.EntryType == "" {
		in.EntryType = EntryTypeManual
	}
	if !in.EntryType.Valid() {
		return Entry{}, fmt.Errorf("journals: invalid entry type %q", in.EntryType)
	}
	if in.SourceID != uuid.Nil && in.SourceModule == "" {
		return Entry{}, errors.New("journals: source module required with source id")
	}
	return s.repo.InsertEntry(ctx, Entry{
		Date:         shared.Day(in.Date),
		EntryType:    in.EntryType,
		Reference:    strings.TrimSpace(in.Reference),
		Description:  in.Description,
		SourceModule: in.SourceModule,
		SourceID:     in.SourceID,
		Status:       StatusDraft,
		CreatedBy:    in.CreatedBy,
	})
}

// AddLine appends a line to a draft entry.
func (s *Service) AddLine(ctx context.Context, entryID int64, in LineInput) (Line, error) {
	var out Line
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		entry, err := s.repo.GetEntryForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if err := editable(entry); err != nil {
			return err
		}
		out, err = s.insertLine(ctx, entryID, in)
		return err
	})
	return out, err
}

func (s *Service) insertLine(ctx context.Context, entryID int64, in LineInput) (Line, error) {
	line, err := s.checkLine(ctx, in)
	if err != nil {
		return Line{}, err
	}
	line.EntryID = entryID
	return s.repo.InsertLine(ctx, line)
}

// UpdateLine replaces the fields of a line on a draft entry.
func (s *Service) UpdateLine(ctx context.Context, lineID int64, in LineInput) (Line, error) {
	var out Line
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetLine(ctx, lineID)
		if err != nil {
			return err
		}
		entry, err := s.repo.GetEntryForUpdate(ctx, current.EntryID)
		if err != nil {
			return err
		}
		if err := editable(entry); err != nil {
			return err
		}
		line, err := s.checkLine(ctx, in)
		if err != nil {
			return err
		}
		line.ID = lineID
		line.EntryID = current.EntryID
		out, err = s.repo.UpdateLine(ctx, line)
		return err
	})
	return out, err
}

// RemoveLine deletes a line from a draft entry.
func (s *Service) RemoveLine(ctx context.Context, lineID int64) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetLine(ctx, lineID)
		if err != nil {
			return err
		}
		entry, err := s.repo.GetEntryForUpdate(ctx, current.EntryID)
		if err != nil {
			return err
		}
		if err := editable(entry); err != nil {
			return err
		}
		return s.repo.DeleteLine(ctx, lineID)
	})
}

// editable rejects line edits on posted entries and on entries owned by a
// source document.
func editable(entry Entry) error {
	if entry.Status == StatusPosted {
		return fmt.Errorf("%w: %s", shared.ErrEntryPosted, entry.DisplayNumber())
	}
	return manualOnly(entry)
}

func manualOnly(entry Entry) error {
	if entry.SourceOwned() {
		return fmt.Errorf("%w: %s is a %s entry of %q, change it through the source document",
			shared.ErrConflict, entry.DisplayNumber(), entry.EntryType, entry.SourceModule)
	}
	return nil
}

// checkLine rounds amounts to the persisted scale and enforces line
// exclusivity and leaf posting.
func (s *Service) checkLine(ctx context.Context, in LineInput) (Line, error) {
	debit, credit := shared.Money(in.Debit), shared.Money(in.Credit)
	if !shared.Side(debit, credit) {
		return Line{}, fmt.Errorf("%w: debit %s credit %s", shared.ErrInvalidLineAmounts, debit.StringFixed(2), credit.StringFixed(2))
	}
	acc, err := s.accounts.GetAccount(ctx, in.AccountID)
	if err != nil {
		return Line{}, err
	}
	if err := postable(acc); err != nil {
		return Line{}, err
	}
	return Line{
		AccountID:   acc.ID,
		AccountCode: acc.Code,
		Debit:       debit,
		Credit:      credit,
		Description: in.Description,
	}, nil
}

func postable(acc accounts.Account) error {
	if !acc.IsLeaf {
		return fmt.Errorf("%w: %s", shared.ErrAccountNotLeaf, acc.Code)
	}
	if !acc.IsActive {
		return fmt.Errorf("%w: %s", shared.ErrAccountInactive, acc.Code)
	}
	return nil
}

// Post verifies balance, line count and period, then assigns a number and
// flips the entry to posted, all in one transaction.
func (s *Service) Post(ctx context.Context, entryID, userID int64) (Entry, error) {
	var entry Entry
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetEntry(ctx, entryID)
		if err != nil {
			return err
		}
		if err := manualOnly(current); err != nil {
			return err
		}
		entry, err = s.post(ctx, entryID, userID)
		return err
	})
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}

func (s *Service) post(ctx context.Context, entryID, userID int64) (Entry, error) {
	entry, err := s.repo.GetEntryForUpdate(ctx, entryID)
	if err != nil {
		return Entry{}, err
	}
	if entry.Status == StatusPosted {
		return Entry{}, fmt.Errorf("%w: %s", shared.ErrEntryPosted, entry.DisplayNumber())
	}
	lines, err := s.repo.ListLines(ctx, entryID)
	if err != nil {
		return Entry{}, err
	}
	if len(lines) < 2 {
		return Entry{}, fmt.Errorf("%w: %s has %d", shared.ErrInsufficientLines, entry.DisplayNumber(), len(lines))
	}
	for _, line := range lines {
		if !shared.Side(line.Debit, line.Credit) {
			return Entry{}, fmt.Errorf("%w: line %d", shared.ErrInvalidLineAmounts, line.ID)
		}
		acc, err := s.accounts.GetAccount(ctx, line.AccountID)
		if err != nil {
			return Entry{}, err
		}
		if err := postable(acc); err != nil {
			return Entry{}, err
		}
	}
	entry.Lines = lines
	debit, credit := entry.Totals()
	if !shared.Balanced(debit, credit) {
		return Entry{}, fmt.Errorf("%w: %s debit %s credit %s", shared.ErrUnbalanced, entry.DisplayNumber(), debit.StringFixed(2), credit.StringFixed(2))
	}
	period, err := s.periods.RequireOpenFor(ctx, entry.Date)
	if err != nil {
		return Entry{}, err
	}
	number := entry.Number
	if number == "" {
		number, err = s.allocateNumber(ctx, entry.Date.Year())
		if err != nil {
			return Entry{}, err
		}
	}
	at := s.now()
	if err := s.repo.MarkPosted(ctx, entry.ID, number, period.ID, at, userID); err != nil {
		return Entry{}, err
	}
	entry.Number = number
	entry.PeriodID = period.ID
	entry.Status = StatusPosted
	entry.PostedAt = &at
	entry.PostedBy = userID
	s.afterCommit(ctx, userID, ActionPost, entry, map[string]any{
		"number":        entry.Number,
		"reference":     entry.Reference,
		"source_module": entry.SourceModule,
		"debit":         debit.StringFixed(2),
	})
	return entry, nil
}

// allocateNumber formats the next per-year number as JE-YYYY-NNNN.
func (s *Service) allocateNumber(ctx context.Context, year int) (string, error) {
	seq, err := s.repo.NextNumber(ctx, year)
	if err != nil {
		return "", fmt.Errorf("journals: allocate number: %w", err)
	}
	return fmt.Sprintf("JE-%04d-%04d", year, seq), nil
}

// Unpost returns a posted manual entry to draft. The number is kept and
// reused on the next post. Source-owned entries are refused.
func (s *Service) Unpost(ctx context.Context, entryID, userID int64, reason string) (Entry, error) {
	var entry Entry
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		entry, err = s.repo.GetEntryForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if entry.Status != StatusPosted {
			return fmt.Errorf("%w: %s", shared.ErrEntryNotPosted, entry.DisplayNumber())
		}
		if err := manualOnly(entry); err != nil {
			return err
		}
		if _, err := s.periods.RequireOpenFor(ctx, entry.Date); err != nil {
			return err
		}
		if err := s.repo.MarkDraft(ctx, entry.ID); err != nil {
			return err
		}
		entry.Status = StatusDraft
		entry.PostedAt = nil
		entry.PostedBy = 0
		s.afterCommit(ctx, userID, ActionUnpost, entry, map[string]any{"number": entry.Number, "reason": reason})
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// Delete removes a draft entry and its lines.
func (s *Service) Delete(ctx context.Context, entryID, userID int64) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		entry, err := s.repo.GetEntryForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if err := editable(entry); err != nil {
			return err
		}
		if err := s.repo.DeleteEntry(ctx, entryID); err != nil {
			return err
		}
		s.record(ctx, userID, ActionDelete, entry, nil)
		return nil
	})
}

// CreateManualEntry drafts a manual entry with lines addressed by account
// code. The caller posts it later.
func (s *Service) CreateManualEntry(ctx context.Context, in ManualEntryInput) (Entry, error) {
	var entry Entry
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		entry, err = s.Draft(ctx, DraftInput{
			Date:        in.Date,
			EntryType:   EntryTypeManual,
			Reference:   in.Reference,
			Description: in.Description,
			CreatedBy:   in.CreatedBy,
		})
		if err != nil {
			return err
		}
		for idx, ml := range in.Lines {
			acc, err := s.accounts.Resolve(ctx, ml.AccountCode)
			if err != nil {
				return fmt.Errorf("journals: line %d: %w", idx+1, err)
			}
			line, err := s.AddLine(ctx, entry.ID, LineInput{
				AccountID:   acc.ID,
				Debit:       ml.Debit,
				Credit:      ml.Credit,
				Description: ml.Description,
			})
			if err != nil {
				return fmt.Errorf("journals: line %d: %w", idx+1, err)
			}
			entry.Lines = append(entry.Lines, line)
		}
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// PostComposed drafts, fills and posts an entry atomically.
func (s *Service) PostComposed(ctx context.Context, in ComposedInput) (Entry, error) {
	var entry Entry
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		draft, err := s.Draft(ctx, in.DraftInput)
		if err != nil {
			return err
		}
		for _, li := range in.Lines {
			if _, err := s.insertLine(ctx, draft.ID, li); err != nil {
				return err
			}
		}
		entry, err = s.post(ctx, draft.ID, in.PostedBy)
		return err
	})
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// DeleteComposed hard deletes an entry regardless of status. Posted entries
// must sit in an open period. The number is not reused.
func (s *Service) DeleteComposed(ctx context.Context, entryID, userID int64) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		entry, err := s.repo.GetEntryForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if entry.Status == StatusPosted {
			if _, err := s.periods.RequireOpenFor(ctx, entry.Date); err != nil {
				return err
			}
		}
		if err := s.repo.DeleteEntry(ctx, entryID); err != nil {
			return err
		}
		if entry.Status == StatusPosted {
			s.afterCommit(ctx, userID, ActionDelete, entry, map[string]any{"number": entry.Number, "reference": entry.Reference})
		} else {
			s.record(ctx, userID, ActionDelete, entry, nil)
		}
		return nil
	})
}

// Get returns an entry with its lines.
func (s *Service) Get(ctx context.Context, entryID int64) (Entry, error) {
	entry, err := s.repo.GetEntry(ctx, entryID)
	if err != nil {
		return Entry{}, err
	}
	entry.Lines, err = s.repo.ListLines(ctx, entryID)
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// FindBySource returns the entry created for a document event.
func (s *Service) FindBySource(ctx context.Context, module string, sourceID uuid.UUID) (Entry, bool, error) {
	entry, err := s.repo.FindBySource(ctx, module, sourceID)
	if errors.Is(err, shared.ErrNotFound) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	return entry, true, nil
}

// List returns entry headers matching filter, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Entry, error) {
	return s.repo.ListEntries(ctx, filter)
}

// Totals returns the summed debit and credit of an entry.
func (s *Service) Totals(ctx context.Context, entryID int64) (decimal.Decimal, decimal.Decimal, error) {
	lines, err := s.repo.ListLines(ctx, entryID)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	debit, credit := Entry{Lines: lines}.Totals()
	return debit, credit, nil
}

// afterCommit records the audit event and notifies observers once the
// enclosing transaction commits.
func (s *Service) afterCommit(ctx context.Context, actor int64, action string, entry Entry, meta map[string]any) {
	s.record(ctx, actor, action, entry, meta)
	event := ChangeEvent{Action: action, EntryID: entry.ID, Number: entry.Number, EntryType: entry.EntryType, Date: entry.Date}
	for _, n := range s.notifiers {
		db.AfterCommit(ctx, func(ctx context.Context) { n.Changed(ctx, event) })
	}
}

func (s *Service) record(ctx context.Context, actor int64, action string, entry Entry, meta map[string]any) {
	if s.audit == nil {
		return
	}
	log := internalShared.AuditLog{
		ActorID:  actor,
		Action:   action,
		Entity:   "journal_entry",
		EntityID: strconv.FormatInt(entry.ID, 10),
		Meta:     meta,
		At:       s.now(),
	}
	db.AfterCommit(ctx, func(ctx context.Context) { _ = s.audit.Record(ctx, log) })
}
