package integration

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/documents"
	"github.com/odyssey-erp/odyssey-ledger/internal/parties"
)

// OnPaymentPosted saves the payment and posts its settlement entry. A
// posted payment is replayed when unchanged and refused otherwise.
func (h *Hooks) OnPaymentPosted(ctx context.Context, payment documents.Payment, userID int64) (Result, error) {
	var res Result
	err := h.tx.WithinTx(ctx, func(ctx context.Context) error {
		if payment.ID != 0 {
			current, err := h.documents.GetPaymentForUpdate(ctx, payment.ID)
			if err != nil {
				return err
			}
			if current.Status == documents.PaymentPosted {
				if !samePayment(current, payment) {
					return fmt.Errorf("%w: payment %s must be unposted before editing", shared.ErrEntryPosted, current.Number)
				}
				res.Payment = current
				res.Entry, err = h.journal.Get(ctx, current.JournalEntryID)
				res.Replayed = true
				return err
			}
			payment.InvoiceKind, payment.InvoiceID = current.InvoiceKind, current.InvoiceID
		}
		if !shared.Money(payment.Amount).IsPositive() {
			return fmt.Errorf("%w: payment %s amount must be positive", shared.ErrInvalidLineAmounts, payment.Number)
		}
		inv, err := h.documents.GetInvoiceForUpdate(ctx, payment.InvoiceKind, payment.InvoiceID)
		if err != nil {
			return err
		}
		if !inv.Posted() {
			return fmt.Errorf("%w: invoice %s", shared.ErrEntryNotPosted, inv.Number)
		}
		if inv.PaymentType == documents.PaymentCash {
			return &shared.ConflictError{Op: fmt.Sprintf("payment on cash invoice %s", inv.Number), Blockers: []string{inv.Number}}
		}

		financial, err := h.financialAccount(ctx, payment.FinancialAccountID)
		if err != nil {
			return err
		}
		party, err := h.parties.Ensure(ctx, parties.ForDocument(inv.Kind), inv.PartyID)
		if err != nil {
			return err
		}

		payment.FinancialAccountID = financial.ID
		saved, err := h.documents.SavePayment(ctx, payment)
		if err != nil {
			return err
		}
		source := sourceID("PAYMENT:", saved.ID)
		if existing, ok, err := h.journal.FindBySource(ctx, SourcePayment, source); err != nil {
			return err
		} else if ok {
			res.Entry, res.Replayed = existing, true
			res.Payment = settled(saved, existing.ID)
			return h.documents.SetPaymentLink(ctx, saved.ID, existing.ID, documents.PaymentPosted)
		}

		memo := fmt.Sprintf("payment %s on %s", saved.Number, inv.Number)
		settle := pair{debit: financial.ID, credit: party.ID, amount: saved.Amount, memo: memo}
		if inv.Kind == documents.KindPurchase {
			settle.debit, settle.credit = party.ID, financial.ID
		}
		entry, err := h.journal.PostComposed(ctx, journals.ComposedInput{
			DraftInput: journals.DraftInput{
				Date:         saved.Date,
				EntryType:    journals.EntryTypeAutomatic,
				Reference:    h.reference("PAYMENT", saved.Number),
				Description:  fmt.Sprintf("Payment %s for %s invoice %s", saved.Number, inv.Kind, inv.Number),
				SourceModule: SourcePayment,
				SourceID:     source,
				CreatedBy:    userID,
			},
			Lines:    settle.lines(),
			PostedBy: userID,
		})
		if err != nil {
			return err
		}
		res.Entry = entry
		res.Payment = settled(saved, entry.ID)
		return h.documents.SetPaymentLink(ctx, saved.ID, entry.ID, documents.PaymentPosted)
	})
	return h.finish(SourcePayment+".post", []any{slog.Int64("payment_id", storedID(res.Payment.ID, payment.ID)), slog.String("payment", payment.Number)}, res, err)
}

// OnPaymentUnposted deletes the payment's entry and returns it to draft.
func (h *Hooks) OnPaymentUnposted(ctx context.Context, paymentID, userID int64) (Result, error) {
	var res Result
	err := h.tx.WithinTx(ctx, func(ctx context.Context) error {
		payment, err := h.documents.GetPaymentForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment.Status != documents.PaymentPosted {
			return fmt.Errorf("%w: payment %s", shared.ErrEntryNotPosted, payment.Number)
		}
		res.Entry, err = h.journal.Get(ctx, payment.JournalEntryID)
		if err != nil {
			return err
		}
		if err := h.journal.DeleteComposed(ctx, payment.JournalEntryID, userID); err != nil {
			return err
		}
		res.Payment = settled(payment, 0)
		return h.documents.SetPaymentLink(ctx, paymentID, 0, documents.PaymentDraft)
	})
	return h.finish(SourcePayment+".unpost", []any{slog.Int64("payment_id", paymentID)}, res, err)
}

// financialAccount resolves the account a payment moves money through,
// defaulting to the well-known cash account.
func (h *Hooks) financialAccount(ctx context.Context, id int64) (accounts.Account, error) {
	if id == 0 {
		return h.registry.WellKnown(ctx, accounts.KeyCash)
	}
	acc, err := h.registry.GetAccount(ctx, id)
	if err != nil {
		return accounts.Account{}, err
	}
	if !acc.IsCash && !acc.IsBank {
		return accounts.Account{}, fmt.Errorf("%w: %s", shared.ErrNotCashAccount, acc.Code)
	}
	return acc, nil
}

// settled returns p as it reads after SetPaymentLink(entryID).
func settled(p documents.Payment, entryID int64) documents.Payment {
	p.JournalEntryID = entryID
	p.Status = documents.PaymentDraft
	if entryID != 0 {
		p.Status = documents.PaymentPosted
	}
	return p
}

func samePayment(a, b documents.Payment) bool {
	if b.FinancialAccountID != 0 && a.FinancialAccountID != b.FinancialAccountID {
		return false
	}
	return a.Amount.Equal(b.Amount) && shared.Day(a.Date).Equal(shared.Day(b.Date)) && a.Number == b.Number
}
