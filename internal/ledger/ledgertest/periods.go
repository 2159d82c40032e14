package ledgertest

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

type periodRepo struct {
	s *Store
}

// Periods returns the period ledger repository.
func (s *Store) Periods() periods.Repository {
	return periodRepo{s: s}
}

func (r periodRepo) Insert(ctx context.Context, p periods.Period) (periods.Period, error) {
	err := r.s.write(func(st *state) error {
		for _, existing := range st.periods {
			if existing.Overlaps(p.StartDate, p.EndDate) {
				return fmt.Errorf("%w: %s", shared.ErrPeriodOverlap, p.Name)
			}
		}
		p.ID = st.next("periods")
		if p.Status == "" {
			p.Status = periods.StatusOpen
		}
		p.CreatedAt, p.UpdatedAt = r.s.now(), r.s.now()
		st.periods[p.ID] = p
		return nil
	})
	return p, err
}

func (r periodRepo) Get(ctx context.Context, id int64) (periods.Period, error) {
	var (
		p  periods.Period
		ok bool
	)
	r.s.read(func(st *state) { p, ok = st.periods[id] })
	if !ok {
		return periods.Period{}, fmt.Errorf("%w: period %d", shared.ErrNotFound, id)
	}
	return p, nil
}

func (r periodRepo) GetForUpdate(ctx context.Context, id int64) (periods.Period, error) {
	return r.Get(ctx, id)
}

func (r periodRepo) FindForDate(ctx context.Context, date time.Time) (periods.Period, error) {
	list, _ := r.List(ctx)
	for _, p := range list {
		if p.Contains(date) {
			return p, nil
		}
	}
	return periods.Period{}, fmt.Errorf("%w: period for %s", shared.ErrNotFound, date.Format("2006-01-02"))
}

func (r periodRepo) ListOverlapping(ctx context.Context, start, end time.Time) ([]periods.Period, error) {
	list, _ := r.List(ctx)
	var out []periods.Period
	for _, p := range list {
		if p.Overlaps(start, end) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r periodRepo) List(ctx context.Context) ([]periods.Period, error) {
	var out []periods.Period
	r.s.read(func(st *state) {
		for _, p := range st.periods {
			out = append(out, p)
		}
	})
	slices.SortFunc(out, func(a, b periods.Period) int { return a.StartDate.Compare(b.StartDate) })
	return out, nil
}

func (r periodRepo) update(id int64, fn func(p *periods.Period)) error {
	return r.s.write(func(st *state) error {
		p, ok := st.periods[id]
		if !ok {
			return fmt.Errorf("%w: period %d", shared.ErrNotFound, id)
		}
		fn(&p)
		p.UpdatedAt = r.s.now()
		st.periods[id] = p
		return nil
	})
}

func (r periodRepo) SetClosed(ctx context.Context, id int64, at time.Time, by int64) error {
	return r.update(id, func(p *periods.Period) {
		p.Status, p.ClosedAt, p.ClosedBy = periods.StatusClosed, &at, optional(by)
	})
}

func (r periodRepo) SetReopened(ctx context.Context, id int64, at time.Time, by int64) error {
	return r.update(id, func(p *periods.Period) {
		p.Status, p.ReopenedAt, p.ReopenedBy = periods.StatusOpen, &at, optional(by)
	})
}

func optional(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}
