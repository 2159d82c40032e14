package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

// WellKnownKey names an account designated for a class of business events.
type WellKnownKey string

const (
	KeyCash         WellKnownKey = "cash"
	KeyReceivables  WellKnownKey = "receivables"
	KeyPayables     WellKnownKey = "payables"
	KeyInventory    WellKnownKey = "inventory"
	KeySalesRevenue WellKnownKey = "sales_revenue"
	KeyCOGS         WellKnownKey = "cogs"
)

// WellKnownKeys lists every key the document integrator depends on.
var WellKnownKeys = []WellKnownKey{KeyCash, KeyReceivables, KeyPayables, KeyInventory, KeySalesRevenue, KeyCOGS}

// WellKnownCodes maps well-known keys to account codes.
type WellKnownCodes map[WellKnownKey]string

// WellKnown resolves the account configured for key. Missing configuration,
// a missing account or an account of the wrong shape fail with a
// *shared.ConfigurationError.
func (s *Service) WellKnown(ctx context.Context, key WellKnownKey) (Account, error) {
	code, ok := s.wellKnown[key]
	if !ok || code == "" {
		return Account{}, &shared.ConfigurationError{Key: string(key), Reason: "not configured"}
	}
	acc, err := s.repo.GetAccountByCode(ctx, code)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Account{}, &shared.ConfigurationError{Key: string(key), Code: code, Reason: "account not found"}
		}
		return Account{}, err
	}
	if reason := wellKnownShape(key, acc); reason != "" {
		return Account{}, &shared.ConfigurationError{Key: string(key), Code: code, Reason: reason}
	}
	return acc, nil
}

// ValidateWellKnown resolves every key once. It is called at startup so a
// broken map fails the process instead of a later request.
func (s *Service) ValidateWellKnown(ctx context.Context) error {
	var errs []error
	for _, key := range WellKnownKeys {
		if _, err := s.WellKnown(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("accounts: well-known map invalid: %w", errors.Join(errs...))
	}
	return nil
}

func wellKnownShape(key WellKnownKey, acc Account) string {
	if !acc.IsActive {
		return "account inactive"
	}
	switch key {
	case KeyCash:
		if !acc.IsLeaf || !acc.IsCash {
			return "cash account must be a leaf flagged is_cash"
		}
	case KeyReceivables, KeyPayables:
		if !acc.IsControl {
			return "control account required"
		}
	case KeyInventory, KeySalesRevenue, KeyCOGS:
		if !acc.IsLeaf {
			return "leaf account required"
		}
	}
	return ""
}
