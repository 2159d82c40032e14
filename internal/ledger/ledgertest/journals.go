package ledgertest

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

type journalRepo struct {
	s *Store
}

// Journals returns the journal repository.
func (s *Store) Journals() journals.Repository {
	return journalRepo{s: s}
}

func (r journalRepo) InsertEntry(ctx context.Context, e journals.Entry) (journals.Entry, error) {
	err := r.s.write(func(st *state) error {
		if e.SourceID != uuid.Nil {
			for _, existing := range st.entries {
				if existing.SourceModule == e.SourceModule && existing.SourceID == e.SourceID {
					return fmt.Errorf("%w: %s/%s", shared.ErrSourceAlreadyLinked, e.SourceModule, e.SourceID)
				}
			}
		}
		e.ID = st.next("journal_entries")
		e.Number, e.PeriodID, e.PostedAt, e.PostedBy = "", 0, nil, 0
		e.Status = journals.StatusDraft
		e.Date = shared.Day(e.Date)
		e.CreatedAt, e.UpdatedAt = r.s.now(), r.s.now()
		e.Lines = nil
		st.entries[e.ID] = e
		return nil
	})
	return e, err
}

func (r journalRepo) GetEntry(ctx context.Context, id int64) (journals.Entry, error) {
	var (
		e  journals.Entry
		ok bool
	)
	r.s.read(func(st *state) { e, ok = st.entries[id] })
	if !ok {
		return journals.Entry{}, fmt.Errorf("%w: journal entry", shared.ErrNotFound)
	}
	return e, nil
}

func (r journalRepo) GetEntryForUpdate(ctx context.Context, id int64) (journals.Entry, error) {
	return r.GetEntry(ctx, id)
}

func (r journalRepo) FindBySource(ctx context.Context, module string, sourceID uuid.UUID) (journals.Entry, error) {
	var (
		e  journals.Entry
		ok bool
	)
	r.s.read(func(st *state) {
		for _, candidate := range st.entries {
			if candidate.SourceModule == module && candidate.SourceID == sourceID {
				e, ok = candidate, true
				return
			}
		}
	})
	if !ok {
		return journals.Entry{}, fmt.Errorf("%w: journal entry", shared.ErrNotFound)
	}
	return e, nil
}

func (r journalRepo) ListEntries(ctx context.Context, filter journals.ListFilter) ([]journals.Entry, error) {
	var out []journals.Entry
	r.s.read(func(st *state) {
		for _, e := range st.entries {
			switch {
			case filter.From != nil && e.Date.Before(shared.Day(*filter.From)),
				filter.To != nil && e.Date.After(shared.Day(*filter.To)),
				filter.Status != "" && e.Status != filter.Status,
				filter.EntryType != "" && e.EntryType != filter.EntryType,
				filter.ReferencePrefix != "" && !strings.HasPrefix(e.Reference, filter.ReferencePrefix),
				filter.AccountCode != "" && !touches(st, e.ID, filter.AccountCode):
				continue
			}
			out = append(out, e)
		}
	})
	slices.SortFunc(out, func(a, b journals.Entry) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func touches(st *state, entryID int64, code string) bool {
	for _, l := range st.lines {
		if l.EntryID == entryID && st.accounts[l.AccountID].Code == code {
			return true
		}
	}
	return false
}

func (r journalRepo) ListLines(ctx context.Context, entryID int64) ([]journals.Line, error) {
	var out []journals.Line
	r.s.read(func(st *state) {
		for _, l := range st.lines {
			if l.EntryID == entryID {
				l.AccountCode = st.accounts[l.AccountID].Code
				out = append(out, l)
			}
		}
	})
	slices.SortFunc(out, func(a, b journals.Line) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (r journalRepo) GetLine(ctx context.Context, lineID int64) (journals.Line, error) {
	var (
		l  journals.Line
		ok bool
	)
	r.s.read(func(st *state) {
		l, ok = st.lines[lineID]
		l.AccountCode = st.accounts[l.AccountID].Code
	})
	if !ok {
		return journals.Line{}, fmt.Errorf("%w: journal line %d", shared.ErrNotFound, lineID)
	}
	return l, nil
}

func (r journalRepo) InsertLine(ctx context.Context, line journals.Line) (journals.Line, error) {
	err := r.s.write(func(st *state) error {
		if _, ok := st.entries[line.EntryID]; !ok {
			return fmt.Errorf("%w: journal entry %d", shared.ErrNotFound, line.EntryID)
		}
		if _, ok := st.accounts[line.AccountID]; !ok {
			return fmt.Errorf("%w: account %d", shared.ErrNotFound, line.AccountID)
		}
		if !shared.Side(line.Debit, line.Credit) {
			return shared.ErrInvalidLineAmounts
		}
		line.ID = st.next("journal_lines")
		line.CreatedAt, line.UpdatedAt = r.s.now(), r.s.now()
		line.AccountCode = ""
		st.lines[line.ID] = line
		return nil
	})
	if err != nil {
		return journals.Line{}, err
	}
	return r.GetLine(ctx, line.ID)
}

func (r journalRepo) UpdateLine(ctx context.Context, line journals.Line) (journals.Line, error) {
	err := r.s.write(func(st *state) error {
		current, ok := st.lines[line.ID]
		if !ok {
			return fmt.Errorf("%w: journal line %d", shared.ErrNotFound, line.ID)
		}
		if !shared.Side(line.Debit, line.Credit) {
			return shared.ErrInvalidLineAmounts
		}
		current.AccountID, current.Debit, current.Credit, current.Description = line.AccountID, line.Debit, line.Credit, line.Description
		current.UpdatedAt = r.s.now()
		st.lines[line.ID] = current
		return nil
	})
	if err != nil {
		return journals.Line{}, err
	}
	return r.GetLine(ctx, line.ID)
}

func (r journalRepo) DeleteLine(ctx context.Context, lineID int64) error {
	return r.s.write(func(st *state) error {
		if _, ok := st.lines[lineID]; !ok {
			return fmt.Errorf("%w: journal line %d", shared.ErrNotFound, lineID)
		}
		delete(st.lines, lineID)
		return nil
	})
}

func (r journalRepo) updateEntry(id int64, fn func(e *journals.Entry)) error {
	return r.s.write(func(st *state) error {
		e, ok := st.entries[id]
		if !ok {
			return fmt.Errorf("%w: journal entry %d", shared.ErrNotFound, id)
		}
		fn(&e)
		e.UpdatedAt = r.s.now()
		st.entries[id] = e
		return nil
	})
}

func (r journalRepo) MarkPosted(ctx context.Context, id int64, number string, periodID int64, at time.Time, by int64) error {
	return r.updateEntry(id, func(e *journals.Entry) {
		e.Status, e.Number, e.PeriodID, e.PostedAt, e.PostedBy = journals.StatusPosted, number, periodID, &at, by
	})
}

func (r journalRepo) MarkDraft(ctx context.Context, id int64) error {
	return r.updateEntry(id, func(e *journals.Entry) {
		e.Status, e.PostedAt, e.PostedBy = journals.StatusDraft, nil, 0
	})
}

// DeleteEntry cascades to the entry's lines.
func (r journalRepo) DeleteEntry(ctx context.Context, id int64) error {
	return r.s.write(func(st *state) error {
		if _, ok := st.entries[id]; !ok {
			return fmt.Errorf("%w: journal entry %d", shared.ErrNotFound, id)
		}
		delete(st.entries, id)
		for lineID, l := range st.lines {
			if l.EntryID == id {
				delete(st.lines, lineID)
			}
		}
		return nil
	})
}

func (r journalRepo) NextNumber(ctx context.Context, year int) (int64, error) {
	var n int64
	err := r.s.write(func(st *state) error {
		st.counters[year]++
		n = st.counters[year]
		return nil
	})
	return n, err
}
