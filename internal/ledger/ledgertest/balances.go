package ledgertest

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/balances"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

type balanceRepo struct {
	s *Store
}

// Balances returns the read-only balance repository.
func (s *Store) Balances() balances.Repository {
	return balanceRepo{s: s}
}

// posted calls fn for every line of a posted entry.
func posted(st *state, fn func(e journals.Entry, l journals.Line)) {
	for _, l := range st.lines {
		e := st.entries[l.EntryID]
		if e.Status == journals.StatusPosted {
			fn(e, l)
		}
	}
}

func within(d time.Time, from, to *time.Time) bool {
	if from != nil && d.Before(shared.Day(*from)) {
		return false
	}
	return to == nil || !d.After(shared.Day(*to))
}

func (r balanceRepo) Movement(ctx context.Context, accountID int64, from, to *time.Time) (balances.Movement, error) {
	var m balances.Movement
	r.s.read(func(st *state) {
		posted(st, func(e journals.Entry, l journals.Line) {
			if l.AccountID == accountID && within(e.Date, from, to) {
				m.Debit = m.Debit.Add(l.Debit)
				m.Credit = m.Credit.Add(l.Credit)
			}
		})
	})
	return m, nil
}

func (r balanceRepo) MovementsByAccount(ctx context.Context, asOf time.Time) (map[int64]balances.Movement, error) {
	out := make(map[int64]balances.Movement)
	r.s.read(func(st *state) {
		posted(st, func(e journals.Entry, l journals.Line) {
			if !within(e.Date, nil, &asOf) {
				return
			}
			m := out[l.AccountID]
			m.Debit = m.Debit.Add(l.Debit)
			m.Credit = m.Credit.Add(l.Credit)
			out[l.AccountID] = m
		})
	})
	return out, nil
}

func (r balanceRepo) Postings(ctx context.Context, accountID int64, from, to time.Time) ([]balances.Posting, error) {
	var out []balances.Posting
	r.s.read(func(st *state) {
		posted(st, func(e journals.Entry, l journals.Line) {
			if l.AccountID != accountID || !within(e.Date, &from, &to) {
				return
			}
			p := balances.Posting{
				EntryID:     e.ID,
				LineID:      l.ID,
				Number:      e.Number,
				Date:        e.Date,
				Reference:   e.Reference,
				Description: l.Description,
				Debit:       l.Debit,
				Credit:      l.Credit,
			}
			if p.Description == "" {
				p.Description = e.Description
			}
			if e.PostedAt != nil {
				p.PostedAt = *e.PostedAt
			}
			out = append(out, p)
		})
	})
	slices.SortFunc(out, func(a, b balances.Posting) int {
		return cmp.Or(a.Date.Compare(b.Date), a.PostedAt.Compare(b.PostedAt), cmp.Compare(a.EntryID, b.EntryID), cmp.Compare(a.LineID, b.LineID))
	})
	return out, nil
}

func (r balanceRepo) EntryChecks(ctx context.Context, asOf time.Time) ([]balances.EntryCheck, error) {
	var out []balances.EntryCheck
	r.s.read(func(st *state) {
		for _, e := range st.entries {
			if e.Status != journals.StatusPosted || !within(e.Date, nil, &asOf) {
				continue
			}
			c := balances.EntryCheck{EntryID: e.ID, Number: e.Number}
			for _, l := range st.lines {
				if l.EntryID != e.ID {
					continue
				}
				c.Lines++
				c.Debit = c.Debit.Add(l.Debit)
				c.Credit = c.Credit.Add(l.Credit)
				if !shared.Side(l.Debit, l.Credit) {
					c.InvalidLines++
				}
				if !st.accounts[l.AccountID].IsLeaf {
					c.NonLeafLines++
				}
			}
			out = append(out, c)
		}
	})
	slices.SortFunc(out, func(a, b balances.EntryCheck) int { return cmp.Compare(a.EntryID, b.EntryID) })
	return out, nil
}
