// Package documents stores the business documents the ledger integrates:
// sales and purchase invoices, their payments and the invoice audit log.
package documents

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

// Kind distinguishes sales from purchase invoices.
type Kind string

const (
	KindSale     Kind = "sale"
	KindPurchase Kind = "purchase"
)

// Valid reports whether k is sale or purchase.
func (k Kind) Valid() bool {
	return k == KindSale || k == KindPurchase
}

// PaymentType tells whether an invoice is settled in cash or on credit.
type PaymentType string

const (
	PaymentCash   PaymentType = "cash"
	PaymentCredit PaymentType = "credit"
)

// FinancialStatus tracks whether an invoice is reflected in the ledger.
type FinancialStatus string

const (
	FinancialPending FinancialStatus = "pending"
	FinancialPosted  FinancialStatus = "posted"
)

// Item is one invoice line. CostPrice is only meaningful on sales.
type Item struct {
	ID        int64           `json:"id"`
	ProductID int64           `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	CostPrice decimal.Decimal `json:"cost_price"`
}

// Total is quantity times unit price at working precision.
func (i Item) Total() decimal.Decimal {
	return shared.Work(i.Quantity.Mul(i.UnitPrice))
}

// Cost is quantity times cost price at working precision.
func (i Item) Cost() decimal.Decimal {
	return shared.Work(i.Quantity.Mul(i.CostPrice))
}

// Invoice is a sales or purchase invoice. PartyID names the customer on a
// sale and the supplier on a purchase.
type Invoice struct {
	ID              int64           `json:"id"`
	Kind            Kind            `json:"kind"`
	Number          string          `json:"number"`
	Date            time.Time       `json:"date"`
	PartyID         int64           `json:"party_id"`
	PaymentType     PaymentType     `json:"payment_type"`
	JournalEntryID  int64           `json:"journal_entry_id,omitempty"`
	FinancialStatus FinancialStatus `json:"financial_status"`
	Items           []Item          `json:"items"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Total sums item totals, rounded to the persisted scale.
func (inv Invoice) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range inv.Items {
		sum = sum.Add(item.Total())
	}
	return shared.Money(sum)
}

// Cost sums item costs, rounded to the persisted scale.
func (inv Invoice) Cost() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range inv.Items {
		sum = sum.Add(item.Cost())
	}
	return shared.Money(sum)
}

// ZeroCostItems counts items sold without a cost price.
func (inv Invoice) ZeroCostItems() int {
	n := 0
	for _, item := range inv.Items {
		if !item.CostPrice.IsPositive() {
			n++
		}
	}
	return n
}

// Posted reports whether the invoice is linked to the ledger.
func (inv Invoice) Posted() bool {
	return inv.FinancialStatus == FinancialPosted
}

// PaymentStatus mirrors the journal lifecycle for payments.
type PaymentStatus string

const (
	PaymentDraft  PaymentStatus = "draft"
	PaymentPosted PaymentStatus = "posted"
)

// Payment settles part of an invoice through a cash or bank account.
type Payment struct {
	ID                 int64           `json:"id"`
	Number             string          `json:"number"`
	InvoiceKind        Kind            `json:"invoice_kind"`
	InvoiceID          int64           `json:"invoice_id"`
	Amount             decimal.Decimal `json:"amount"`
	Date               time.Time       `json:"date"`
	FinancialAccountID int64           `json:"financial_account_id"`
	Status             PaymentStatus   `json:"status"`
	JournalEntryID     int64           `json:"journal_entry_id,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// AuditAction classifies an invoice audit row.
type AuditAction string

const (
	AuditEdit       AuditAction = "edit"
	AuditAdjustment AuditAction = "adjustment"
)

// InvoiceAuditLog records an edit of a posted invoice and the adjustment
// entry that carried its delta.
type InvoiceAuditLog struct {
	ID                int64           `json:"id"`
	InvoiceKind       Kind            `json:"invoice_kind"`
	InvoiceID         int64           `json:"invoice_id"`
	InvoiceNumber     string          `json:"invoice_number"`
	Action            AuditAction     `json:"action_type"`
	OldTotal          decimal.Decimal `json:"old_total"`
	NewTotal          decimal.Decimal `json:"new_total"`
	OldCost           decimal.Decimal `json:"old_cost"`
	NewCost           decimal.Decimal `json:"new_cost"`
	TotalDifference   decimal.Decimal `json:"total_difference"`
	CostDifference    decimal.Decimal `json:"cost_difference"`
	AdjustmentEntryID int64           `json:"adjustment_entry_id,omitempty"`
	Reason            string          `json:"reason"`
	Notes             string          `json:"notes"`
	CreatedAt         time.Time       `json:"created_at"`
	CreatedBy         int64           `json:"created_by,omitempty"`
}
