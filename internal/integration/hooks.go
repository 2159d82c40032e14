// Package integration translates business document state changes into
// journal entries and keeps documents and ledger in step.
package integration

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/documents"
	"github.com/odyssey-erp/odyssey-ledger/internal/parties"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
)

// Journal exposes the journal operations integrations need.
type Journal interface {
	PostComposed(ctx context.Context, in journals.ComposedInput) (journals.Entry, error)
	DeleteComposed(ctx context.Context, entryID, userID int64) error
	Get(ctx context.Context, entryID int64) (journals.Entry, error)
	FindBySource(ctx context.Context, module string, sourceID uuid.UUID) (journals.Entry, bool, error)
}

// Registry resolves well-known and chosen accounts.
type Registry interface {
	WellKnown(ctx context.Context, key accounts.WellKnownKey) (accounts.Account, error)
	GetAccount(ctx context.Context, id int64) (accounts.Account, error)
}

// Provisioner returns party sub-accounts, creating them on first use.
type Provisioner interface {
	Ensure(ctx context.Context, kind parties.Kind, partyID int64) (accounts.Account, error)
}

// Documents persists the documents being integrated.
type Documents interface {
	GetInvoiceForUpdate(ctx context.Context, kind documents.Kind, id int64) (documents.Invoice, error)
	SaveInvoice(ctx context.Context, inv documents.Invoice) (documents.Invoice, error)
	SetInvoiceLink(ctx context.Context, kind documents.Kind, id, entryID int64, status documents.FinancialStatus) error
	GetPaymentForUpdate(ctx context.Context, id int64) (documents.Payment, error)
	SavePayment(ctx context.Context, p documents.Payment) (documents.Payment, error)
	SetPaymentLink(ctx context.Context, id, entryID int64, status documents.PaymentStatus) error
	PaymentsForInvoice(ctx context.Context, kind documents.Kind, invoiceID int64) ([]documents.Payment, error)
	InsertAuditLog(ctx context.Context, log documents.InvoiceAuditLog) (documents.InvoiceAuditLog, error)
	AuditLogs(ctx context.Context, kind documents.Kind, invoiceID int64) ([]documents.InvoiceAuditLog, error)
	ClearAuditAdjustments(ctx context.Context, kind documents.Kind, invoiceID int64) error
}

// Source modules stamped on integrator entries.
const (
	SourceSaleInvoice        = "SALES.INVOICE"
	SourceSaleAdjustment     = "SALES.ADJUSTMENT"
	SourcePurchaseInvoice    = "PURCHASE.INVOICE"
	SourcePurchaseAdjustment = "PURCHASE.ADJUSTMENT"
	SourcePayment            = "PAYMENT"
)

// Result reports the outcome of a document event.
type Result struct {
	// Entry is the entry posted for the event, or the existing one when the
	// document was already linked.
	Entry journals.Entry
	// Invoice and Payment hold the document as stored after the event.
	Invoice  documents.Invoice
	Payment  documents.Payment
	AuditLog *documents.InvoiceAuditLog
	// Replayed is true when no new entry was posted because the event had
	// already been integrated.
	Replayed bool
	// Warnings carries advisory conditions such as shared.ErrCostUnknown.
	Warnings []error
}

// Observer counts integration outcomes.
type Observer interface {
	Integration(event, outcome string)
}

// Hooks wires document events into the general ledger.
type Hooks struct {
	observer  Observer
	tx        db.TxManager
	journal   Journal
	registry  Registry
	parties   Provisioner
	documents Documents
	logger    *slog.Logger
	now       func() time.Time
}

// NewHooks constructs integration hooks.
func NewHooks(tx db.TxManager, journal Journal, registry Registry, provisioner Provisioner, docs Documents, logger *slog.Logger) *Hooks {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hooks{tx: tx, journal: journal, registry: registry, parties: provisioner, documents: docs, logger: logger, now: time.Now}
}

// Observe registers an outcome observer.
func (h *Hooks) Observe(o Observer) {
	h.observer = o
}

// WithNow overrides the clock used for reference timestamps.
func (h *Hooks) WithNow(now func() time.Time) {
	if now != nil {
		h.now = now
	}
}

func sourceID(parts ...any) uuid.UUID {
	key := fmt.Sprint(parts...)
	return uuid.NewSHA1(uuid.Nil, []byte(key))
}

// reference formats PREFIX-{number}-{unix}.
func (h *Hooks) reference(prefix, number string) string {
	return fmt.Sprintf("%s-%s-%d", prefix, number, h.now().Unix())
}

// finish logs the outcome of an event at the integrator boundary.
func (h *Hooks) finish(event string, attrs []any, res Result, err error) (Result, error) {
	h.count(event, res, err)
	if err != nil {
		h.logger.Error("integration failed", append([]any{slog.String("event", event), slog.Any("error", err)}, attrs...)...)
		return Result{}, err
	}
	for _, w := range res.Warnings {
		h.logger.Warn("integration warning", append([]any{slog.String("event", event), slog.Any("warning", w)}, attrs...)...)
	}
	if res.Replayed {
		h.logger.Info("integration replayed", append([]any{slog.String("event", event), slog.Int64("entry_id", res.Entry.ID)}, attrs...)...)
	}
	return res, nil
}

// storedID prefers the id the document was saved under.
func storedID(saved, given int64) int64 {
	if saved != 0 {
		return saved
	}
	return given
}

func (h *Hooks) count(event string, res Result, err error) {
	if h.observer == nil {
		return
	}
	outcome := "posted"
	switch {
	case err != nil:
		outcome = "failed"
	case res.Replayed:
		outcome = "replayed"
	}
	h.observer.Integration(event, outcome)
}
