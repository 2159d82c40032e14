package ledgertest

import (
	"context"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/documents"
)

type documentRepo struct {
	s *Store
}

// Documents returns the invoice, payment and invoice audit repository.
func (s *Store) Documents() documents.Repository {
	return documentRepo{s: s}
}

func (r documentRepo) GetInvoice(ctx context.Context, kind documents.Kind, id int64) (documents.Invoice, error) {
	var (
		inv documents.Invoice
		ok  bool
	)
	r.s.read(func(st *state) { inv, ok = st.invoices[docKey{kind, id}] })
	if !ok {
		return documents.Invoice{}, fmt.Errorf("%w: %s invoice %d", shared.ErrNotFound, kind, id)
	}
	inv.Items = slices.Clone(inv.Items)
	return inv, nil
}

func (r documentRepo) GetInvoiceForUpdate(ctx context.Context, kind documents.Kind, id int64) (documents.Invoice, error) {
	return r.GetInvoice(ctx, kind, id)
}

func (r documentRepo) SaveInvoice(ctx context.Context, inv documents.Invoice) (documents.Invoice, error) {
	if !inv.Kind.Valid() {
		return documents.Invoice{}, fmt.Errorf("documents: unknown invoice kind %q", inv.Kind)
	}
	err := r.s.write(func(st *state) error {
		now := r.s.now()
		if inv.ID == 0 {
			inv.ID = st.next("invoices:" + string(inv.Kind))
			inv.JournalEntryID = 0
			inv.FinancialStatus = documents.FinancialPending
			inv.CreatedAt = now
		} else {
			current, ok := st.invoices[docKey{inv.Kind, inv.ID}]
			if !ok {
				return fmt.Errorf("%w: %s invoice %d", shared.ErrNotFound, inv.Kind, inv.ID)
			}
			inv.JournalEntryID, inv.FinancialStatus, inv.CreatedAt = current.JournalEntryID, current.FinancialStatus, current.CreatedAt
		}
		inv.UpdatedAt = now
		items := make([]documents.Item, len(inv.Items))
		for i, item := range inv.Items {
			item.ID = st.next("items")
			if inv.Kind == documents.KindPurchase {
				item.CostPrice = decimal.Zero
			}
			items[i] = item
		}
		inv.Items = items
		st.invoices[docKey{inv.Kind, inv.ID}] = inv
		return nil
	})
	if err != nil {
		return documents.Invoice{}, err
	}
	return r.GetInvoice(ctx, inv.Kind, inv.ID)
}

func (r documentRepo) SetInvoiceLink(ctx context.Context, kind documents.Kind, id, entryID int64, status documents.FinancialStatus) error {
	return r.s.write(func(st *state) error {
		key := docKey{kind, id}
		inv, ok := st.invoices[key]
		if !ok {
			return fmt.Errorf("%w: document %d", shared.ErrNotFound, id)
		}
		inv.JournalEntryID, inv.FinancialStatus, inv.UpdatedAt = entryID, status, r.s.now()
		st.invoices[key] = inv
		return nil
	})
}

func (r documentRepo) GetPayment(ctx context.Context, id int64) (documents.Payment, error) {
	var (
		p  documents.Payment
		ok bool
	)
	r.s.read(func(st *state) { p, ok = st.payments[id] })
	if !ok {
		return documents.Payment{}, fmt.Errorf("%w: payment %d", shared.ErrNotFound, id)
	}
	return p, nil
}

func (r documentRepo) GetPaymentForUpdate(ctx context.Context, id int64) (documents.Payment, error) {
	return r.GetPayment(ctx, id)
}

func (r documentRepo) SavePayment(ctx context.Context, p documents.Payment) (documents.Payment, error) {
	err := r.s.write(func(st *state) error {
		now := r.s.now()
		if p.ID == 0 {
			p.ID = st.next("payments")
			p.Status, p.JournalEntryID, p.CreatedAt = documents.PaymentDraft, 0, now
		} else {
			current, ok := st.payments[p.ID]
			if !ok {
				return fmt.Errorf("%w: payment %d", shared.ErrNotFound, p.ID)
			}
			current.Number, current.Amount, current.Date, current.FinancialAccountID = p.Number, p.Amount, p.Date, p.FinancialAccountID
			p = current
		}
		p.UpdatedAt = now
		st.payments[p.ID] = p
		return nil
	})
	if err != nil {
		return documents.Payment{}, err
	}
	return r.GetPayment(ctx, p.ID)
}

func (r documentRepo) SetPaymentLink(ctx context.Context, id, entryID int64, status documents.PaymentStatus) error {
	return r.s.write(func(st *state) error {
		p, ok := st.payments[id]
		if !ok {
			return fmt.Errorf("%w: document %d", shared.ErrNotFound, id)
		}
		p.JournalEntryID, p.Status, p.UpdatedAt = entryID, status, r.s.now()
		st.payments[id] = p
		return nil
	})
}

func (r documentRepo) PaymentsForInvoice(ctx context.Context, kind documents.Kind, invoiceID int64) ([]documents.Payment, error) {
	var out []documents.Payment
	r.s.read(func(st *state) {
		for _, p := range st.payments {
			if p.InvoiceKind == kind && p.InvoiceID == invoiceID {
				out = append(out, p)
			}
		}
	})
	slices.SortFunc(out, func(a, b documents.Payment) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return int(a.ID - b.ID)
	})
	return out, nil
}

func (r documentRepo) InsertAuditLog(ctx context.Context, log documents.InvoiceAuditLog) (documents.InvoiceAuditLog, error) {
	err := r.s.write(func(st *state) error {
		log.ID = st.next("invoice_audit_logs")
		log.CreatedAt = r.s.now()
		st.audit[log.ID] = log
		return nil
	})
	return log, err
}

func (r documentRepo) AuditLogs(ctx context.Context, kind documents.Kind, invoiceID int64) ([]documents.InvoiceAuditLog, error) {
	var out []documents.InvoiceAuditLog
	r.s.read(func(st *state) {
		for _, log := range st.audit {
			if log.InvoiceKind == kind && log.InvoiceID == invoiceID {
				out = append(out, log)
			}
		}
	})
	slices.SortFunc(out, func(a, b documents.InvoiceAuditLog) int { return int(a.ID - b.ID) })
	return out, nil
}

func (r documentRepo) ClearAuditAdjustments(ctx context.Context, kind documents.Kind, invoiceID int64) error {
	return r.s.write(func(st *state) error {
		for id, log := range st.audit {
			if log.InvoiceKind == kind && log.InvoiceID == invoiceID {
				log.AdjustmentEntryID = 0
				st.audit[id] = log
			}
		}
		return nil
	})
}

func (r documentRepo) PostedPartyTotals(ctx context.Context, kind documents.Kind, partyID int64) (decimal.Decimal, decimal.Decimal, error) {
	invoices, payments := decimal.Zero, decimal.Zero
	r.s.read(func(st *state) {
		for key, inv := range st.invoices {
			if key.kind != kind || inv.PartyID != partyID || inv.PaymentType != documents.PaymentCredit || !inv.Posted() {
				continue
			}
			for _, item := range inv.Items {
				invoices = invoices.Add(item.Quantity.Mul(item.UnitPrice))
			}
		}
		for _, p := range st.payments {
			if p.InvoiceKind != kind || p.Status != documents.PaymentPosted {
				continue
			}
			if inv, ok := st.invoices[docKey{kind, p.InvoiceID}]; ok && inv.PartyID == partyID {
				payments = payments.Add(p.Amount)
			}
		}
	})
	return invoices, payments, nil
}

// SeedInvoice stores an invoice as-is, including its ledger linkage. It
// stands in for documents created before the ledger existed.
func (s *Store) SeedInvoice(inv documents.Invoice) documents.Invoice {
	_ = s.write(func(st *state) error {
		if inv.ID == 0 {
			inv.ID = st.next("invoices:" + string(inv.Kind))
		}
		st.invoices[docKey{inv.Kind, inv.ID}] = inv
		return nil
	})
	return inv
}

// SeedPayment stores a payment as-is.
func (s *Store) SeedPayment(p documents.Payment) documents.Payment {
	_ = s.write(func(st *state) error {
		if p.ID == 0 {
			p.ID = st.next("payments")
		}
		st.payments[p.ID] = p
		return nil
	})
	return p
}
