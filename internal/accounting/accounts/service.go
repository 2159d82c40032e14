package accounts

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
)

// ChartNotifier observes committed changes to the chart and to opening
// balances.
type ChartNotifier interface {
	ChartChanged(ctx context.Context, event ChartEvent)
}

// ChartEvent describes a committed change to one account.
type ChartEvent struct {
	Action    string
	AccountID int64
	Code      string
}

const (
	ActionCreate     = "account.create"
	ActionActivate   = "account.activate"
	ActionDeactivate = "account.deactivate"
	ActionDelete     = "account.delete"
	ActionOpening    = "account.opening_balance"
)

// Service owns the account type and account trees.
type Service struct {
	repo      Repository
	tx        db.TxManager
	wellKnown WellKnownCodes
	notifiers []ChartNotifier
}

// NewService constructs the account registry.
func NewService(repo Repository, tx db.TxManager, codes WellKnownCodes) *Service {
	if codes == nil {
		codes = WellKnownCodes{}
	}
	return &Service{repo: repo, tx: tx, wellKnown: codes}
}

// Notify registers observers of chart changes.
func (s *Service) Notify(n ...ChartNotifier) {
	s.notifiers = append(s.notifiers, n...)
}

func (s *Service) changed(ctx context.Context, action string, acc Account) {
	event := ChartEvent{Action: action, AccountID: acc.ID, Code: acc.Code}
	for _, n := range s.notifiers {
		db.AfterCommit(ctx, func(ctx context.Context) { n.ChartChanged(ctx, event) })
	}
}

// CreateType registers a new account type. Nature defaults from the category.
func (s *Service) CreateType(ctx context.Context, in CreateTypeInput) (AccountType, error) {
	in.Code = strings.TrimSpace(in.Code)
	if in.Code == "" || strings.TrimSpace(in.Name) == "" {
		return AccountType{}, errors.New("accounts: code and name required")
	}
	if !in.Category.Valid() {
		return AccountType{}, fmt.Errorf("%w: %q", shared.ErrInvalidCategory, in.Category)
	}
	if in.Nature == "" {
		in.Nature = in.Category.DefaultNature()
	}
	if !in.Nature.Valid() {
		return AccountType{}, fmt.Errorf("%w: %q", shared.ErrInvalidNature, in.Nature)
	}
	var out AccountType
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		t := AccountType{Code: in.Code, Name: in.Name, Category: in.Category, Nature: in.Nature, ParentID: in.ParentID, Level: 1}
		if in.ParentID != nil {
			parent, err := s.repo.GetType(ctx, *in.ParentID)
			if err != nil {
				return err
			}
			t.Level = parent.Level + 1
		}
		var err error
		out, err = s.repo.InsertType(ctx, t)
		return err
	})
	return out, err
}

// CreateAccount adds an account to the chart.
func (s *Service) CreateAccount(ctx context.Context, in CreateAccountInput) (Account, error) {
	in.Code = strings.TrimSpace(in.Code)
	if in.Code == "" || strings.TrimSpace(in.Name) == "" {
		return Account{}, errors.New("accounts: code and name required")
	}
	isLeaf := !in.IsControl
	if in.IsLeaf != nil {
		isLeaf = *in.IsLeaf
	}
	if in.IsControl && isLeaf {
		return Account{}, fmt.Errorf("%w: %s", shared.ErrInvalidLeaf, in.Code)
	}
	var out Account
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetType(ctx, in.TypeID); err != nil {
			return err
		}
		if in.ParentID != nil {
			parent, err := s.repo.GetAccount(ctx, *in.ParentID)
			if err != nil {
				return err
			}
			if parent.IsLeaf {
				return fmt.Errorf("%w: %s", shared.ErrInvalidParent, parent.Code)
			}
			if !parent.IsActive {
				return fmt.Errorf("%w: parent %s", shared.ErrAccountInactive, parent.Code)
			}
		}
		var err error
		out, err = s.repo.InsertAccount(ctx, Account{
			Code:               in.Code,
			Name:               in.Name,
			TypeID:             in.TypeID,
			ParentID:           in.ParentID,
			IsLeaf:             isLeaf,
			IsCash:             in.IsCash,
			IsBank:             in.IsBank,
			IsControl:          in.IsControl,
			IsActive:           true,
			OpeningBalance:     shared.Money(in.OpeningBalance),
			OpeningBalanceDate: in.OpeningBalanceDate,
			Description:        in.Description,
		})
		if err != nil {
			return err
		}
		s.changed(ctx, ActionCreate, out)
		return nil
	})
	return out, err
}

// Deactivate hides an account from new postings.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		acc, err := s.repo.GetAccount(ctx, id)
		if err != nil {
			return err
		}
		n, err := s.repo.CountChildren(ctx, id, true)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: %d active", shared.ErrHasActiveChildren, n)
		}
		if err := s.repo.SetActive(ctx, id, false); err != nil {
			return err
		}
		s.changed(ctx, ActionDeactivate, acc)
		return nil
	})
}

// Activate reverses Deactivate. The parent must be active.
func (s *Service) Activate(ctx context.Context, id int64) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		acc, err := s.repo.GetAccount(ctx, id)
		if err != nil {
			return err
		}
		if acc.ParentID != nil {
			parent, err := s.repo.GetAccount(ctx, *acc.ParentID)
			if err != nil {
				return err
			}
			if !parent.IsActive {
				return fmt.Errorf("%w: parent %s", shared.ErrAccountInactive, parent.Code)
			}
		}
		if err := s.repo.SetActive(ctx, id, true); err != nil {
			return err
		}
		s.changed(ctx, ActionActivate, acc)
		return nil
	})
}

// Delete hard deletes an account that has no children and no journal lines.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		acc, err := s.repo.GetAccount(ctx, id)
		if err != nil {
			return err
		}
		children, err := s.repo.CountChildren(ctx, id, false)
		if err != nil {
			return err
		}
		if children > 0 {
			return fmt.Errorf("%w: %d children", shared.ErrHasActiveChildren, children)
		}
		refs, err := s.repo.CountLineReferences(ctx, id)
		if err != nil {
			return err
		}
		if refs > 0 {
			return fmt.Errorf("%w: %d lines", shared.ErrAccountInUse, refs)
		}
		if err := s.repo.DeleteAccount(ctx, id); err != nil {
			return err
		}
		s.changed(ctx, ActionDelete, acc)
		return nil
	})
}

// Resolve looks an account up by code.
func (s *Service) Resolve(ctx context.Context, code string) (Account, error) {
	return s.repo.GetAccountByCode(ctx, strings.TrimSpace(code))
}

// GetAccount looks an account up by id.
func (s *Service) GetAccount(ctx context.Context, id int64) (Account, error) {
	return s.repo.GetAccount(ctx, id)
}

// GetType looks an account type up by id.
func (s *Service) GetType(ctx context.Context, id int64) (AccountType, error) {
	return s.repo.GetType(ctx, id)
}

// ListTypes returns every account type ordered by code.
func (s *Service) ListTypes(ctx context.Context) ([]AccountType, error) {
	return s.repo.ListTypes(ctx)
}

// List returns accounts ordered by code.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Account, error) {
	return s.repo.ListAccounts(ctx, filter)
}

// NextChildCode allocates the next code under parent: the parent code
// followed by the largest existing numeric suffix of the given width plus
// one, zero padded.
func (s *Service) NextChildCode(ctx context.Context, parentID int64, width int) (string, error) {
	if width <= 0 {
		return "", fmt.Errorf("accounts: invalid child code width %d", width)
	}
	parent, err := s.repo.GetAccount(ctx, parentID)
	if err != nil {
		return "", err
	}
	codes, err := s.repo.CodesWithPrefix(ctx, parent.Code)
	if err != nil {
		return "", err
	}
	pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(parent.Code) + `(\d{` + strconv.Itoa(width) + `})$`)
	var maxSuffix int64
	for _, code := range codes {
		m := pattern.FindStringSubmatch(code)
		if m == nil {
			continue
		}
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue
		}
		if n > maxSuffix {
			maxSuffix = n
		}
	}
	next := strconv.FormatInt(maxSuffix+1, 10)
	if len(next) > width {
		return "", fmt.Errorf("%w: %s with width %d", shared.ErrCodeSpaceExhausted, parent.Code, width)
	}
	return parent.Code + strings.Repeat("0", width-len(next)) + next, nil
}

// SetOpeningBalance records a pre-system balance for an account.
func (s *Service) SetOpeningBalance(ctx context.Context, id int64, amount decimal.Decimal, date *time.Time) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		acc, err := s.repo.GetAccount(ctx, id)
		if err != nil {
			return err
		}
		if err := s.repo.SetOpeningBalance(ctx, id, shared.Money(amount), date); err != nil {
			return err
		}
		s.changed(ctx, ActionOpening, acc)
		return nil
	})
}
