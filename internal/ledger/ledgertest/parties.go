package ledgertest

import (
	"context"
	"fmt"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/parties"
)

type partyRepo struct {
	s *Store
}

// Parties returns the customer and supplier repository.
func (s *Store) Parties() parties.Repository {
	return partyRepo{s: s}
}

func (r partyRepo) Insert(ctx context.Context, p parties.Party) (parties.Party, error) {
	if !p.Kind.Valid() {
		return parties.Party{}, fmt.Errorf("parties: unknown kind %q", p.Kind)
	}
	err := r.s.write(func(st *state) error {
		p.ID = st.next(string(p.Kind))
		st.parties[partyKey{p.Kind, p.ID}] = p
		return nil
	})
	return p, err
}

func (r partyRepo) Get(ctx context.Context, kind parties.Kind, id int64) (parties.Party, error) {
	var (
		p  parties.Party
		ok bool
	)
	r.s.read(func(st *state) { p, ok = st.parties[partyKey{kind, id}] })
	if !ok {
		return parties.Party{}, fmt.Errorf("%w: %s %d", shared.ErrNotFound, kind, id)
	}
	return p, nil
}

func (r partyRepo) GetForUpdate(ctx context.Context, kind parties.Kind, id int64) (parties.Party, error) {
	return r.Get(ctx, kind, id)
}

func (r partyRepo) SetAccount(ctx context.Context, kind parties.Kind, id, accountID int64) error {
	return r.s.write(func(st *state) error {
		key := partyKey{kind, id}
		p, ok := st.parties[key]
		if !ok {
			return fmt.Errorf("%w: %s %d", shared.ErrNotFound, kind, id)
		}
		for k, other := range st.parties {
			if k != key && k.kind == kind && other.FinancialAccountID == accountID {
				return fmt.Errorf("%w: account %d already bound", shared.ErrConflict, accountID)
			}
		}
		p.FinancialAccountID = accountID
		st.parties[key] = p
		return nil
	})
}

func (r partyRepo) FindByAccount(ctx context.Context, accountID int64) (parties.Party, error) {
	var (
		found parties.Party
		ok    bool
	)
	r.s.read(func(st *state) {
		for _, kind := range []parties.Kind{parties.KindCustomer, parties.KindSupplier} {
			for k, p := range st.parties {
				if k.kind == kind && p.FinancialAccountID == accountID {
					found, ok = p, true
					return
				}
			}
		}
	})
	if !ok {
		return parties.Party{}, fmt.Errorf("%w: party for account %d", shared.ErrNotFound, accountID)
	}
	return found, nil
}
