package parties

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/documents"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
)

// DefaultCodeWidth is the suffix width of party sub-account codes.
const DefaultCodeWidth = 3

// Registry is the part of the account registry the provisioner needs.
type Registry interface {
	WellKnown(ctx context.Context, key accounts.WellKnownKey) (accounts.Account, error)
	NextChildCode(ctx context.Context, parentID int64, width int) (string, error)
	CreateAccount(ctx context.Context, in accounts.CreateAccountInput) (accounts.Account, error)
	GetAccount(ctx context.Context, id int64) (accounts.Account, error)
}

// DocumentTotals sums posted documents for the opening balance backfill.
type DocumentTotals interface {
	PostedPartyTotals(ctx context.Context, kind documents.Kind, partyID int64) (invoices, payments decimal.Decimal, err error)
}

// Service assigns and creates party sub-accounts.
type Service struct {
	repo      Repository
	tx        db.TxManager
	registry  Registry
	documents DocumentTotals
	width     int
	now       func() time.Time
}

// NewService constructs the provisioner. A non-positive width falls back to
// DefaultCodeWidth.
func NewService(repo Repository, tx db.TxManager, registry Registry, docs DocumentTotals, width int) *Service {
	if width <= 0 {
		width = DefaultCodeWidth
	}
	return &Service{repo: repo, tx: tx, registry: registry, documents: docs, width: width, now: time.Now}
}

// WithNow overrides the clock used to date backfilled opening balances.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Create registers a party without a sub-account.
func (s *Service) Create(ctx context.Context, kind Kind, name string) (Party, error) {
	if !kind.Valid() {
		return Party{}, fmt.Errorf("parties: unknown kind %q", kind)
	}
	name = norm.NFC.String(strings.TrimSpace(name))
	if name == "" {
		return Party{}, errors.New("parties: name required")
	}
	return s.repo.Insert(ctx, Party{Kind: kind, Name: name})
}

// Get returns a party.
func (s *Service) Get(ctx context.Context, kind Kind, id int64) (Party, error) {
	return s.repo.Get(ctx, kind, id)
}

// EnsureCustomerAccount returns the customer's sub-account, creating it
// under the receivables control account when missing.
func (s *Service) EnsureCustomerAccount(ctx context.Context, customerID int64) (accounts.Account, error) {
	return s.Ensure(ctx, KindCustomer, customerID)
}

// EnsureSupplierAccount returns the supplier's sub-account, creating it
// under the payables control account when missing.
func (s *Service) EnsureSupplierAccount(ctx context.Context, supplierID int64) (accounts.Account, error) {
	return s.Ensure(ctx, KindSupplier, supplierID)
}

// Ensure returns the party's sub-account, provisioning it when missing. A
// new account is seeded with the outstanding amount of the party's posted
// documents as its opening balance, dated today.
func (s *Service) Ensure(ctx context.Context, kind Kind, partyID int64) (accounts.Account, error) {
	var out accounts.Account
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		party, err := s.repo.GetForUpdate(ctx, kind, partyID)
		if err != nil {
			return err
		}
		if party.FinancialAccountID != 0 {
			out, err = s.registry.GetAccount(ctx, party.FinancialAccountID)
			return err
		}
		control, err := s.registry.WellKnown(ctx, kind.Control())
		if err != nil {
			return err
		}
		code, err := s.registry.NextChildCode(ctx, control.ID, s.width)
		if err != nil {
			return err
		}
		invoices, payments, err := s.documents.PostedPartyTotals(ctx, kind.DocumentKind(), party.ID)
		if err != nil {
			return err
		}
		in := accounts.CreateAccountInput{
			Code:           code,
			Name:           norm.NFC.String(kind.AccountName(party.Name)),
			TypeID:         control.TypeID,
			ParentID:       &control.ID,
			OpeningBalance: shared.Money(invoices.Sub(payments)),
		}
		if !in.OpeningBalance.IsZero() {
			today := shared.Day(s.now())
			in.OpeningBalanceDate = &today
		}
		out, err = s.registry.CreateAccount(ctx, in)
		if err != nil {
			return err
		}
		return s.repo.SetAccount(ctx, kind, party.ID, out.ID)
	})
	if err != nil {
		return accounts.Account{}, err
	}
	return out, nil
}

// Rebind points the party at another sub-account. Historical lines stay on
// the previous account.
func (s *Service) Rebind(ctx context.Context, kind Kind, partyID, accountID int64) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetForUpdate(ctx, kind, partyID); err != nil {
			return err
		}
		acc, err := s.registry.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if !acc.IsLeaf {
			return fmt.Errorf("%w: %s", shared.ErrAccountNotLeaf, acc.Code)
		}
		if !acc.IsActive {
			return fmt.Errorf("%w: %s", shared.ErrAccountInactive, acc.Code)
		}
		control, err := s.registry.WellKnown(ctx, kind.Control())
		if err != nil {
			return err
		}
		if acc.ParentID == nil || *acc.ParentID != control.ID {
			return fmt.Errorf("%w: %s is not under %s", shared.ErrInvalidParent, acc.Code, control.Code)
		}
		if other, err := s.repo.FindByAccount(ctx, accountID); err == nil && (other.Kind != kind || other.ID != partyID) {
			return fmt.Errorf("%w: account %s bound to %s %d", shared.ErrConflict, acc.Code, other.Kind, other.ID)
		} else if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		return s.repo.SetAccount(ctx, kind, partyID, accountID)
	})
}

// AccountFor returns the party's sub-account without provisioning. The
// boolean is false when none is bound.
func (s *Service) AccountFor(ctx context.Context, kind Kind, partyID int64) (accounts.Account, bool, error) {
	party, err := s.repo.Get(ctx, kind, partyID)
	if err != nil {
		return accounts.Account{}, false, err
	}
	if party.FinancialAccountID == 0 {
		return accounts.Account{}, false, nil
	}
	acc, err := s.registry.GetAccount(ctx, party.FinancialAccountID)
	if err != nil {
		return accounts.Account{}, false, err
	}
	return acc, true, nil
}

// PartyForAccount answers which party owns a sub-account.
func (s *Service) PartyForAccount(ctx context.Context, accountID int64) (Party, bool, error) {
	p, err := s.repo.FindByAccount(ctx, accountID)
	if errors.Is(err, shared.ErrNotFound) {
		return Party{}, false, nil
	}
	if err != nil {
		return Party{}, false, err
	}
	return p, true, nil
}
