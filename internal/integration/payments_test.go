package integration_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/documents"
	"github.com/odyssey-erp/odyssey-ledger/internal/integration"
	"github.com/odyssey-erp/odyssey-ledger/internal/ledger/ledgertest"
)

func TestSalePaymentSettlesReceivable(t *testing.T) {
	f := setup(t)
	c := f.customer(t, "عميل")
	sale := f.creditSale(t, c.ID, item("1", "1000", "600"))

	res := f.pay(t, documents.KindSale, sale.Invoice.ID, "REC-1", "400")
	require.Equal(t, integration.SourcePayment, res.Entry.SourceModule)
	require.Equal(t, documents.PaymentPosted, res.Payment.Status)
	require.Equal(t, res.Entry.ID, res.Payment.JournalEntryID)
	require.Equal(t, f.chart.Account("1001").ID, res.Payment.FinancialAccountID)
	require.Equal(t, map[string]string{
		"1001":     "400.00",
		"11030001": "-400.00",
	}, amounts(f.entry(t, res.Entry.ID)))
	require.Equal(t, "600.00", f.balance(t, "11030001"))
	require.Equal(t, "400.00", f.balance(t, "1001"))
}

func TestPurchasePaymentSettlesPayable(t *testing.T) {
	f := setup(t)
	s := f.supplier(t, "مورد")
	purchase := f.creditPurchase(t, s.ID, item("5", "40", "0"))

	res := f.pay(t, documents.KindPurchase, purchase.Invoice.ID, "PAY-1", "150")
	require.Equal(t, map[string]string{
		"21010001": "150.00",
		"1001":     "-150.00",
	}, amounts(f.entry(t, res.Entry.ID)))
	require.Equal(t, "50.00", f.balance(t, "21010001"))
}

func TestPaymentThroughBank(t *testing.T) {
	f := setup(t)
	c := f.customer(t, "عميل")
	sale := f.creditSale(t, c.ID, item("1", "300", "100"))

	res, err := f.hooks.OnPaymentPosted(context.Background(), documents.Payment{Number: "REC-B", InvoiceKind: documents.KindSale,
		InvoiceID: sale.Invoice.ID, Amount: d("300"), Date: ledgertest.Date(2024, 5, 21), FinancialAccountID: f.chart.Account("1002").ID}, 1)
	require.NoError(t, err)
	require.Equal(t, "300.00", amounts(f.entry(t, res.Entry.ID))["1002"])
	require.Equal(t, "0.00", f.balance(t, "11030001"))
}

func TestPaymentRejections(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c := f.customer(t, "عميل")
	sale := f.creditSale(t, c.ID, item("1", "300", "100"))
	cash, err := f.hooks.OnSaleConfirmed(ctx, documents.Invoice{Number: "S-CASH", Date: ledgertest.Date(2024, 5, 10),
		PaymentType: documents.PaymentCash, Items: []documents.Item{item("1", "50", "20")}}, 1)
	require.NoError(t, err)
	pending := f.store.SeedInvoice(documents.Invoice{Kind: documents.KindSale, Number: "S-PEND", Date: ledgertest.Date(2024, 5, 10),
		PartyID: c.ID, PaymentType: documents.PaymentCredit, FinancialStatus: documents.FinancialPending})

	payment := func(invoiceID int64, amount string, account int64) documents.Payment {
		return documents.Payment{Number: "REC-X", InvoiceKind: documents.KindSale, InvoiceID: invoiceID, Amount: d(amount),
			Date: ledgertest.Date(2024, 5, 22), FinancialAccountID: account}
	}

	_, err = f.hooks.OnPaymentPosted(ctx, payment(sale.Invoice.ID, "10", f.chart.Account("1401").ID), 1)
	require.ErrorIs(t, err, shared.ErrNotCashAccount)

	_, err = f.hooks.OnPaymentPosted(ctx, payment(sale.Invoice.ID, "0", 0), 1)
	require.ErrorIs(t, err, shared.ErrInvalidLineAmounts)

	_, err = f.hooks.OnPaymentPosted(ctx, payment(pending.ID, "10", 0), 1)
	require.ErrorIs(t, err, shared.ErrEntryNotPosted)

	_, err = f.hooks.OnPaymentPosted(ctx, payment(cash.Invoice.ID, "10", 0), 1)
	var conflict *shared.ConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, []string{"S-CASH"}, conflict.Blockers)

	payments, err := f.docs.PaymentsForInvoice(ctx, documents.KindSale, sale.Invoice.ID)
	require.NoError(t, err)
	require.Empty(t, payments, "rejected payments are not saved")
	require.Equal(t, "300.00", f.balance(t, "11030001"))
}

func TestPostedPaymentReplaysOrRefusesEdits(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c := f.customer(t, "عميل")
	sale := f.creditSale(t, c.ID, item("1", "1000", "600"))
	first := f.pay(t, documents.KindSale, sale.Invoice.ID, "REC-1", "400")

	again, err := f.hooks.OnPaymentPosted(ctx, first.Payment, 1)
	require.NoError(t, err)
	require.True(t, again.Replayed)
	require.Equal(t, first.Entry.ID, again.Entry.ID)

	changed := first.Payment
	changed.Amount = d("450")
	_, err = f.hooks.OnPaymentPosted(ctx, changed, 1)
	require.ErrorIs(t, err, shared.ErrEntryPosted)
	require.Equal(t, "600.00", f.balance(t, "11030001"))
}

func TestUnpostPaymentAndRepost(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c := f.customer(t, "عميل")
	sale := f.creditSale(t, c.ID, item("1", "1000", "600"))
	first := f.pay(t, documents.KindSale, sale.Invoice.ID, "REC-1", "400")

	res, err := f.hooks.OnPaymentUnposted(ctx, first.Payment.ID, 1)
	require.NoError(t, err)
	require.Equal(t, first.Entry.ID, res.Entry.ID)
	require.Equal(t, documents.PaymentDraft, res.Payment.Status)
	require.Zero(t, res.Payment.JournalEntryID)
	require.Equal(t, "1000.00", f.balance(t, "11030001"))
	_, err = f.journals.Get(ctx, first.Entry.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)

	_, err = f.hooks.OnPaymentUnposted(ctx, first.Payment.ID, 1)
	require.ErrorIs(t, err, shared.ErrEntryNotPosted)

	// a draft payment may be edited and posted again
	draft := res.Payment
	draft.Amount = d("350")
	reposted, err := f.hooks.OnPaymentPosted(ctx, draft, 1)
	require.NoError(t, err)
	require.False(t, reposted.Replayed)
	require.Equal(t, "650.00", f.balance(t, "11030001"))

	// the invoice is no longer blocked once its payment is a draft again
	_, err = f.hooks.OnPaymentUnposted(ctx, reposted.Payment.ID, 1)
	require.NoError(t, err)
	_, err = f.hooks.OnSaleUnconfirmed(ctx, sale.Invoice.ID, 1)
	require.NoError(t, err)
}

func TestPaymentInClosedPeriodRollsBack(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c := f.customer(t, "عميل")
	sale := f.creditSale(t, c.ID, item("1", "1000", "600"))
	require.NoError(t, f.periods.Close(ctx, f.chart.Period.ID, 1))

	_, err := f.hooks.OnPaymentPosted(ctx, documents.Payment{Number: "REC-LATE", InvoiceKind: documents.KindSale,
		InvoiceID: sale.Invoice.ID, Amount: d("100"), Date: ledgertest.Date(2024, 6, 1)}, 1)
	require.ErrorIs(t, err, shared.ErrPeriodClosed)

	payments, err := f.docs.PaymentsForInvoice(ctx, documents.KindSale, sale.Invoice.ID)
	require.NoError(t, err)
	require.Empty(t, payments)
}
