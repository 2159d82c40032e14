// Package parties provisions the per-customer and per-supplier
// sub-accounts under the receivables and payables control accounts.
package parties

import (
	"fmt"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/documents"
)

// Kind distinguishes customers from suppliers.
type Kind string

const (
	KindCustomer Kind = "customer"
	KindSupplier Kind = "supplier"
)

// Valid reports whether k is customer or supplier.
func (k Kind) Valid() bool {
	return k == KindCustomer || k == KindSupplier
}

// Control returns the well-known control account holding this kind's
// sub-accounts.
func (k Kind) Control() accounts.WellKnownKey {
	if k == KindSupplier {
		return accounts.KeyPayables
	}
	return accounts.KeyReceivables
}

// DocumentKind returns the invoice kind issued to this party kind.
func (k Kind) DocumentKind() documents.Kind {
	if k == KindSupplier {
		return documents.KindPurchase
	}
	return documents.KindSale
}

// ForDocument maps an invoice kind to its counter-party kind.
func ForDocument(kind documents.Kind) Kind {
	if kind == documents.KindPurchase {
		return KindSupplier
	}
	return KindCustomer
}

// AccountName returns the display name of the party's sub-account.
func (k Kind) AccountName(name string) string {
	prefix := "عميل"
	if k == KindSupplier {
		prefix = "مورد"
	}
	return fmt.Sprintf("%s - %s", prefix, name)
}

// Party is a customer or a supplier. FinancialAccountID is zero until a
// sub-account is provisioned.
type Party struct {
	ID                 int64  `json:"id"`
	Kind               Kind   `json:"kind"`
	Name               string `json:"name"`
	FinancialAccountID int64  `json:"financial_account_id,omitempty"`
}
