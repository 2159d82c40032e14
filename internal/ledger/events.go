package ledger

import (
	"context"

	"github.com/odyssey-erp/odyssey-ledger/internal/documents"
	"github.com/odyssey-erp/odyssey-ledger/internal/integration"
)

// OnSaleConfirmed posts a confirmed sale.
func (l *Ledger) OnSaleConfirmed(ctx context.Context, sale documents.Invoice, userID int64) (integration.Result, error) {
	return l.Hooks.OnSaleConfirmed(ctx, sale, userID)
}

// OnSaleUnconfirmed removes a sale from the ledger.
func (l *Ledger) OnSaleUnconfirmed(ctx context.Context, saleID, userID int64) (integration.Result, error) {
	return l.Hooks.OnSaleUnconfirmed(ctx, saleID, userID)
}

// OnSaleEdited saves an edited sale and posts the delta.
func (l *Ledger) OnSaleEdited(ctx context.Context, sale documents.Invoice, reason string, userID int64) (integration.Result, error) {
	return l.Hooks.OnSaleEdited(ctx, sale, reason, userID)
}

// OnPurchaseConfirmed posts a confirmed purchase.
func (l *Ledger) OnPurchaseConfirmed(ctx context.Context, purchase documents.Invoice, userID int64) (integration.Result, error) {
	return l.Hooks.OnPurchaseConfirmed(ctx, purchase, userID)
}

// OnPurchaseUnconfirmed removes a purchase from the ledger.
func (l *Ledger) OnPurchaseUnconfirmed(ctx context.Context, purchaseID, userID int64) (integration.Result, error) {
	return l.Hooks.OnPurchaseUnconfirmed(ctx, purchaseID, userID)
}

// OnPurchaseEdited saves an edited purchase and posts the delta.
func (l *Ledger) OnPurchaseEdited(ctx context.Context, purchase documents.Invoice, reason string, userID int64) (integration.Result, error) {
	return l.Hooks.OnPurchaseEdited(ctx, purchase, reason, userID)
}

// OnPaymentPosted posts a payment.
func (l *Ledger) OnPaymentPosted(ctx context.Context, payment documents.Payment, userID int64) (integration.Result, error) {
	return l.Hooks.OnPaymentPosted(ctx, payment, userID)
}

// OnPaymentUnposted removes a payment from the ledger.
func (l *Ledger) OnPaymentUnposted(ctx context.Context, paymentID, userID int64) (integration.Result, error) {
	return l.Hooks.OnPaymentUnposted(ctx, paymentID, userID)
}
