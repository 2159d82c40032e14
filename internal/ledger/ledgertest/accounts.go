package ledgertest

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

type accountRepo struct {
	s *Store
}

// Accounts returns the account registry repository.
func (s *Store) Accounts() accounts.Repository {
	return accountRepo{s: s}
}

func (r accountRepo) InsertType(ctx context.Context, t accounts.AccountType) (accounts.AccountType, error) {
	err := r.s.write(func(st *state) error {
		for _, existing := range st.types {
			if existing.Code == t.Code {
				return fmt.Errorf("%w: type %s", shared.ErrDuplicateCode, t.Code)
			}
		}
		t.ID = st.next("account_types")
		t.CreatedAt, t.UpdatedAt = r.s.now(), r.s.now()
		st.types[t.ID] = t
		return nil
	})
	return t, err
}

func (r accountRepo) GetType(ctx context.Context, id int64) (accounts.AccountType, error) {
	var (
		t  accounts.AccountType
		ok bool
	)
	r.s.read(func(st *state) { t, ok = st.types[id] })
	if !ok {
		return accounts.AccountType{}, fmt.Errorf("%w: account type %d", shared.ErrNotFound, id)
	}
	return t, nil
}

func (r accountRepo) ListTypes(ctx context.Context) ([]accounts.AccountType, error) {
	var out []accounts.AccountType
	r.s.read(func(st *state) {
		for _, t := range st.types {
			out = append(out, t)
		}
	})
	slices.SortFunc(out, func(a, b accounts.AccountType) int { return strings.Compare(a.Code, b.Code) })
	return out, nil
}

func (r accountRepo) InsertAccount(ctx context.Context, a accounts.Account) (accounts.Account, error) {
	err := r.s.write(func(st *state) error {
		for _, existing := range st.accounts {
			if existing.Code == a.Code {
				return fmt.Errorf("%w: account %s", shared.ErrDuplicateCode, a.Code)
			}
		}
		if _, ok := st.types[a.TypeID]; !ok {
			return fmt.Errorf("%w: account type %d", shared.ErrNotFound, a.TypeID)
		}
		if a.IsControl && a.IsLeaf {
			return fmt.Errorf("%w: %s", shared.ErrInvalidLeaf, a.Code)
		}
		a.ID = st.next("accounts")
		a.CreatedAt, a.UpdatedAt = r.s.now(), r.s.now()
		st.accounts[a.ID] = a
		return nil
	})
	if err != nil {
		return accounts.Account{}, err
	}
	return r.GetAccount(ctx, a.ID)
}

// joined fills the category and nature from the account type.
func joined(st *state, a accounts.Account) accounts.Account {
	t := st.types[a.TypeID]
	a.Category, a.Nature = t.Category, t.Nature
	return a
}

func (r accountRepo) GetAccount(ctx context.Context, id int64) (accounts.Account, error) {
	var (
		a  accounts.Account
		ok bool
	)
	r.s.read(func(st *state) {
		a, ok = st.accounts[id]
		a = joined(st, a)
	})
	if !ok {
		return accounts.Account{}, fmt.Errorf("%w: account %d", shared.ErrNotFound, id)
	}
	return a, nil
}

func (r accountRepo) GetAccountByCode(ctx context.Context, code string) (accounts.Account, error) {
	var (
		a  accounts.Account
		ok bool
	)
	r.s.read(func(st *state) {
		for _, candidate := range st.accounts {
			if candidate.Code == code {
				a, ok = joined(st, candidate), true
				return
			}
		}
	})
	if !ok {
		return accounts.Account{}, fmt.Errorf("%w: account %s", shared.ErrNotFound, code)
	}
	return a, nil
}

func (r accountRepo) ListAccounts(ctx context.Context, filter accounts.ListFilter) ([]accounts.Account, error) {
	var out []accounts.Account
	r.s.read(func(st *state) {
		for _, a := range st.accounts {
			switch {
			case filter.ActiveOnly && !a.IsActive,
				filter.LeafOnly && !a.IsLeaf,
				filter.TypeID != 0 && a.TypeID != filter.TypeID,
				filter.ParentID != nil && (a.ParentID == nil || *a.ParentID != *filter.ParentID):
				continue
			}
			out = append(out, joined(st, a))
		}
	})
	slices.SortFunc(out, func(a, b accounts.Account) int { return strings.Compare(a.Code, b.Code) })
	return out, nil
}

func (r accountRepo) CodesWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	var codes []string
	r.s.read(func(st *state) {
		for _, a := range st.accounts {
			if strings.HasPrefix(a.Code, prefix) {
				codes = append(codes, a.Code)
			}
		}
	})
	slices.Sort(codes)
	return codes, nil
}

func (r accountRepo) CountChildren(ctx context.Context, id int64, activeOnly bool) (int, error) {
	n := 0
	r.s.read(func(st *state) {
		for _, a := range st.accounts {
			if a.ParentID != nil && *a.ParentID == id && (a.IsActive || !activeOnly) {
				n++
			}
		}
	})
	return n, nil
}

func (r accountRepo) CountLineReferences(ctx context.Context, id int64) (int, error) {
	n := 0
	r.s.read(func(st *state) {
		for _, l := range st.lines {
			if l.AccountID == id {
				n++
			}
		}
	})
	return n, nil
}

func (r accountRepo) update(id int64, fn func(a *accounts.Account)) error {
	return r.s.write(func(st *state) error {
		a, ok := st.accounts[id]
		if !ok {
			return fmt.Errorf("%w: account %d", shared.ErrNotFound, id)
		}
		fn(&a)
		a.UpdatedAt = r.s.now()
		st.accounts[id] = a
		return nil
	})
}

func (r accountRepo) SetActive(ctx context.Context, id int64, active bool) error {
	return r.update(id, func(a *accounts.Account) { a.IsActive = active })
}

func (r accountRepo) SetOpeningBalance(ctx context.Context, id int64, amount decimal.Decimal, date *time.Time) error {
	return r.update(id, func(a *accounts.Account) {
		a.OpeningBalance, a.OpeningBalanceDate = amount, date
	})
}

func (r accountRepo) DeleteAccount(ctx context.Context, id int64) error {
	return r.s.write(func(st *state) error {
		if _, ok := st.accounts[id]; !ok {
			return fmt.Errorf("%w: account %d", shared.ErrNotFound, id)
		}
		for _, l := range st.lines {
			if l.AccountID == id {
				return fmt.Errorf("%w: account %d", shared.ErrAccountInUse, id)
			}
		}
		delete(st.accounts, id)
		return nil
	})
}
