package integration

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/documents"
	"github.com/odyssey-erp/odyssey-ledger/internal/parties"
)

type profile struct {
	kind       documents.Kind
	prefix     string
	module     string
	adjustment string
	label      string
}

var profiles = map[documents.Kind]profile{
	documents.KindSale:     {kind: documents.KindSale, prefix: "SALE", module: SourceSaleInvoice, adjustment: SourceSaleAdjustment, label: "Sale"},
	documents.KindPurchase: {kind: documents.KindPurchase, prefix: "PURCHASE", module: SourcePurchaseInvoice, adjustment: SourcePurchaseAdjustment, label: "Purchase"},
}

func profileFor(kind documents.Kind) (profile, error) {
	p, ok := profiles[kind]
	if !ok {
		return profile{}, fmt.Errorf("integration: unknown invoice kind %q", kind)
	}
	return p, nil
}

// OnSaleConfirmed saves the sale and posts its revenue and cost entry.
func (h *Hooks) OnSaleConfirmed(ctx context.Context, inv documents.Invoice, userID int64) (Result, error) {
	inv.Kind = documents.KindSale
	return h.confirm(ctx, inv, userID)
}

// OnPurchaseConfirmed saves the purchase and posts its inventory entry.
func (h *Hooks) OnPurchaseConfirmed(ctx context.Context, inv documents.Invoice, userID int64) (Result, error) {
	inv.Kind = documents.KindPurchase
	return h.confirm(ctx, inv, userID)
}

// OnSaleEdited saves the edited sale and posts the delta against the
// ledger as an adjustment entry when the sale is posted.
func (h *Hooks) OnSaleEdited(ctx context.Context, inv documents.Invoice, reason string, userID int64) (Result, error) {
	inv.Kind = documents.KindSale
	return h.edit(ctx, inv, reason, userID)
}

// OnPurchaseEdited is OnSaleEdited for purchases.
func (h *Hooks) OnPurchaseEdited(ctx context.Context, inv documents.Invoice, reason string, userID int64) (Result, error) {
	inv.Kind = documents.KindPurchase
	return h.edit(ctx, inv, reason, userID)
}

// OnSaleUnconfirmed deletes the sale's entries and resets it to pending.
func (h *Hooks) OnSaleUnconfirmed(ctx context.Context, invoiceID, userID int64) (Result, error) {
	return h.unconfirm(ctx, documents.KindSale, invoiceID, userID)
}

// OnPurchaseUnconfirmed deletes the purchase's entries and resets it to pending.
func (h *Hooks) OnPurchaseUnconfirmed(ctx context.Context, invoiceID, userID int64) (Result, error) {
	return h.unconfirm(ctx, documents.KindPurchase, invoiceID, userID)
}

func (h *Hooks) confirm(ctx context.Context, inv documents.Invoice, userID int64) (Result, error) {
	p, err := profileFor(inv.Kind)
	if err != nil {
		return Result{}, err
	}
	var res Result
	err = h.tx.WithinTx(ctx, func(ctx context.Context) error {
		if inv.ID != 0 {
			current, err := h.documents.GetInvoiceForUpdate(ctx, inv.Kind, inv.ID)
			if err != nil {
				return err
			}
			if current.Posted() {
				res.Invoice = current
				res.Entry, err = h.journal.Get(ctx, current.JournalEntryID)
				res.Replayed = true
				return err
			}
		}
		inv.JournalEntryID = 0
		inv.FinancialStatus = documents.FinancialPending
		saved, err := h.documents.SaveInvoice(ctx, inv)
		if err != nil {
			return err
		}
		source := sourceID(p.prefix, ":", saved.ID)
		if existing, ok, err := h.journal.FindBySource(ctx, p.module, source); err != nil {
			return err
		} else if ok {
			res.Entry, res.Replayed = existing, true
			res.Invoice = linked(saved, existing.ID)
			return h.documents.SetInvoiceLink(ctx, saved.Kind, saved.ID, existing.ID, documents.FinancialPosted)
		}

		total, cost := saved.Total(), saved.Cost()
		if !total.IsPositive() {
			return fmt.Errorf("%w: invoice %s has no positive total", shared.ErrInvalidLineAmounts, saved.Number)
		}
		if saved.Kind == documents.KindSale && !cost.IsPositive() {
			res.Warnings = append(res.Warnings, fmt.Errorf("%w: sale %s has %d item(s) without cost price", shared.ErrCostUnknown, saved.Number, saved.ZeroCostItems()))
			cost = decimal.Zero
		}
		pairs, err := h.invoicePairs(ctx, saved, total, cost)
		if err != nil {
			return err
		}
		entry, err := h.journal.PostComposed(ctx, journals.ComposedInput{
			DraftInput: journals.DraftInput{
				Date:         saved.Date,
				EntryType:    journals.EntryTypeAutomatic,
				Reference:    h.reference(p.prefix, saved.Number),
				Description:  fmt.Sprintf("%s invoice %s", p.label, saved.Number),
				SourceModule: p.module,
				SourceID:     source,
				CreatedBy:    userID,
			},
			Lines:    compose(pairs...),
			PostedBy: userID,
		})
		if err != nil {
			return err
		}
		res.Entry = entry
		res.Invoice = linked(saved, entry.ID)
		return h.documents.SetInvoiceLink(ctx, saved.Kind, saved.ID, entry.ID, documents.FinancialPosted)
	})
	return h.finish(p.module+".confirm", []any{slog.Int64("invoice_id", storedID(res.Invoice.ID, inv.ID)), slog.String("invoice", inv.Number)}, res, err)
}

// linked returns inv as it reads after SetInvoiceLink(entryID).
func linked(inv documents.Invoice, entryID int64) documents.Invoice {
	inv.JournalEntryID = entryID
	inv.FinancialStatus = documents.FinancialPending
	if entryID != 0 {
		inv.FinancialStatus = documents.FinancialPosted
	}
	return inv
}

// invoicePairs composes the pairs of an invoice for the given amounts. A
// negative amount reverses its pair.
func (h *Hooks) invoicePairs(ctx context.Context, inv documents.Invoice, total, cost decimal.Decimal) ([]pair, error) {
	counter, err := h.counterAccount(ctx, inv)
	if err != nil {
		return nil, err
	}
	memo := fmt.Sprintf("%s %s", inv.Kind, inv.Number)
	if inv.Kind == documents.KindPurchase {
		inventory, err := h.registry.WellKnown(ctx, accounts.KeyInventory)
		if err != nil {
			return nil, err
		}
		return []pair{{debit: inventory.ID, credit: counter.ID, amount: total, memo: memo}}, nil
	}
	revenue, err := h.registry.WellKnown(ctx, accounts.KeySalesRevenue)
	if err != nil {
		return nil, err
	}
	pairs := []pair{{debit: counter.ID, credit: revenue.ID, amount: total, memo: memo}}
	if cost.IsZero() {
		return pairs, nil
	}
	cogs, inventory, err := h.costAccounts(ctx)
	if err != nil {
		return nil, err
	}
	return append(pairs, pair{debit: cogs.ID, credit: inventory.ID, amount: cost, memo: memo}), nil
}

func (h *Hooks) costAccounts(ctx context.Context) (accounts.Account, accounts.Account, error) {
	cogs, err := h.registry.WellKnown(ctx, accounts.KeyCOGS)
	if err != nil {
		return accounts.Account{}, accounts.Account{}, err
	}
	inventory, err := h.registry.WellKnown(ctx, accounts.KeyInventory)
	if err != nil {
		return accounts.Account{}, accounts.Account{}, err
	}
	return cogs, inventory, nil
}

// counterAccount is cash for cash invoices and the party sub-account for
// credit invoices.
func (h *Hooks) counterAccount(ctx context.Context, inv documents.Invoice) (accounts.Account, error) {
	if inv.PaymentType == documents.PaymentCash {
		return h.registry.WellKnown(ctx, accounts.KeyCash)
	}
	if inv.PartyID == 0 {
		return accounts.Account{}, fmt.Errorf("%w: credit invoice %s has no %s", shared.ErrNotFound, inv.Number, parties.ForDocument(inv.Kind))
	}
	return h.parties.Ensure(ctx, parties.ForDocument(inv.Kind), inv.PartyID)
}

// ledgerAmounts reads the total and cost currently carried by the ledger
// for a posted invoice: its original entry plus every adjustment entry
// recorded in the audit log.
func (h *Hooks) ledgerAmounts(ctx context.Context, inv documents.Invoice, logs []documents.InvoiceAuditLog) (total, cost decimal.Decimal, err error) {
	original, err := h.journal.Get(ctx, inv.JournalEntryID)
	if err != nil {
		return total, cost, err
	}
	entries := []journals.Entry{original}
	for _, log := range logs {
		if log.AdjustmentEntryID == 0 {
			continue
		}
		adj, err := h.journal.Get(ctx, log.AdjustmentEntryID)
		if err != nil {
			return total, cost, err
		}
		entries = append(entries, adj)
	}
	if inv.Kind == documents.KindPurchase {
		inventory, err := h.registry.WellKnown(ctx, accounts.KeyInventory)
		if err != nil {
			return total, cost, err
		}
		return debitNet(inventory.ID, entries...), decimal.Zero, nil
	}
	revenue, err := h.registry.WellKnown(ctx, accounts.KeySalesRevenue)
	if err != nil {
		return total, cost, err
	}
	total = creditNet(revenue.ID, entries...)
	cogs, _, err := h.costAccounts(ctx)
	if err != nil {
		return total, cost, err
	}
	return total, debitNet(cogs.ID, entries...), nil
}

func (h *Hooks) edit(ctx context.Context, inv documents.Invoice, reason string, userID int64) (Result, error) {
	p, err := profileFor(inv.Kind)
	if err != nil {
		return Result{}, err
	}
	var res Result
	err = h.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := h.documents.GetInvoiceForUpdate(ctx, inv.Kind, inv.ID)
		if err != nil {
			return err
		}
		inv.JournalEntryID = current.JournalEntryID
		inv.FinancialStatus = current.FinancialStatus
		if !current.Posted() {
			res.Invoice, err = h.documents.SaveInvoice(ctx, inv)
			return err
		}
		if inv.PartyID != current.PartyID || inv.PaymentType != current.PaymentType {
			return &shared.ConflictError{Op: fmt.Sprintf("change counter-party of posted invoice %s", current.Number), Blockers: []string{current.Number}}
		}
		if !shared.Day(inv.Date).Equal(shared.Day(current.Date)) {
			return &shared.ConflictError{Op: fmt.Sprintf("change date of posted invoice %s", current.Number), Blockers: []string{current.Number}}
		}

		logs, err := h.documents.AuditLogs(ctx, inv.Kind, inv.ID)
		if err != nil {
			return err
		}
		oldTotal, oldCost, err := h.ledgerAmounts(ctx, current, logs)
		if err != nil {
			return err
		}
		saved, err := h.documents.SaveInvoice(ctx, inv)
		if err != nil {
			return err
		}
		res.Invoice = saved
		newTotal, newCost := saved.Total(), decimal.Zero
		if saved.Kind == documents.KindSale {
			newCost = saved.Cost()
			if !newCost.IsPositive() && saved.ZeroCostItems() > 0 {
				res.Warnings = append(res.Warnings, fmt.Errorf("%w: sale %s has %d item(s) without cost price", shared.ErrCostUnknown, saved.Number, saved.ZeroCostItems()))
			}
		}
		if !newTotal.IsPositive() {
			return fmt.Errorf("%w: invoice %s has no positive total", shared.ErrInvalidLineAmounts, saved.Number)
		}

		log := documents.InvoiceAuditLog{
			InvoiceKind:     saved.Kind,
			InvoiceID:       saved.ID,
			InvoiceNumber:   saved.Number,
			Action:          documents.AuditEdit,
			OldTotal:        oldTotal,
			NewTotal:        newTotal,
			OldCost:         oldCost,
			NewCost:         newCost,
			TotalDifference: newTotal.Sub(oldTotal),
			CostDifference:  newCost.Sub(oldCost),
			Reason:          reason,
			CreatedBy:       userID,
		}
		if !log.TotalDifference.IsZero() || !log.CostDifference.IsZero() {
			original, err := h.journal.Get(ctx, current.JournalEntryID)
			if err != nil {
				return err
			}
			pairs, err := h.invoicePairs(ctx, saved, log.TotalDifference, log.CostDifference)
			if err != nil {
				return err
			}
			adj, err := h.journal.PostComposed(ctx, journals.ComposedInput{
				DraftInput: journals.DraftInput{
					Date:         saved.Date,
					EntryType:    journals.EntryTypeAdjustment,
					Reference:    fmt.Sprintf("%s-ADJ-%d", original.Reference, h.now().Unix()),
					Description:  fmt.Sprintf("Adjustment of %s invoice %s: %s", saved.Kind, saved.Number, reason),
					SourceModule: p.adjustment,
					SourceID:     sourceID(p.prefix, "-ADJ:", saved.ID, ":", len(logs)+1),
					CreatedBy:    userID,
				},
				Lines:    compose(pairs...),
				PostedBy: userID,
			})
			if err != nil {
				return err
			}
			res.Entry = adj
			log.Action = documents.AuditAdjustment
			log.AdjustmentEntryID = adj.ID
			log.Notes = fmt.Sprintf("adjustment %s", adj.Number)
		}
		stored, err := h.documents.InsertAuditLog(ctx, log)
		if err != nil {
			return err
		}
		res.AuditLog = &stored
		return nil
	})
	return h.finish(p.module+".edit", []any{slog.Int64("invoice_id", storedID(res.Invoice.ID, inv.ID)), slog.String("invoice", inv.Number)}, res, err)
}

func (h *Hooks) unconfirm(ctx context.Context, kind documents.Kind, invoiceID, userID int64) (Result, error) {
	p, err := profileFor(kind)
	if err != nil {
		return Result{}, err
	}
	var res Result
	err = h.tx.WithinTx(ctx, func(ctx context.Context) error {
		inv, err := h.documents.GetInvoiceForUpdate(ctx, kind, invoiceID)
		if err != nil {
			return err
		}
		if !inv.Posted() {
			return fmt.Errorf("%w: invoice %s", shared.ErrEntryNotPosted, inv.Number)
		}
		payments, err := h.documents.PaymentsForInvoice(ctx, kind, invoiceID)
		if err != nil {
			return err
		}
		var blockers []string
		for _, pay := range payments {
			if pay.Status == documents.PaymentPosted {
				blockers = append(blockers, pay.Number)
			}
		}
		if len(blockers) > 0 {
			return &shared.ConflictError{Op: fmt.Sprintf("unpost invoice %s", inv.Number), Blockers: blockers}
		}

		logs, err := h.documents.AuditLogs(ctx, kind, invoiceID)
		if err != nil {
			return err
		}
		for _, log := range logs {
			if log.AdjustmentEntryID == 0 {
				continue
			}
			if err := h.journal.DeleteComposed(ctx, log.AdjustmentEntryID, userID); err != nil {
				return err
			}
		}
		res.Entry, err = h.journal.Get(ctx, inv.JournalEntryID)
		if err != nil {
			return err
		}
		if err := h.journal.DeleteComposed(ctx, inv.JournalEntryID, userID); err != nil {
			return err
		}
		if err := h.documents.ClearAuditAdjustments(ctx, kind, invoiceID); err != nil {
			return err
		}
		res.Invoice = linked(inv, 0)
		return h.documents.SetInvoiceLink(ctx, kind, invoiceID, 0, documents.FinancialPending)
	})
	return h.finish(p.module+".unconfirm", []any{slog.Int64("invoice_id", invoiceID)}, res, err)
}
