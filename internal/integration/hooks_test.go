package integration_test

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/balances"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/odyssey-ledger/internal/documents"
	"github.com/odyssey-erp/odyssey-ledger/internal/integration"
	"github.com/odyssey-erp/odyssey-ledger/internal/ledger/ledgertest"
	"github.com/odyssey-erp/odyssey-ledger/internal/parties"

	_ "github.com/odyssey-erp/odyssey-ledger/testing"
)

var clock = time.Date(2024, 5, 20, 9, 30, 0, 0, time.UTC)

type outcomes struct {
	mu   sync.Mutex
	seen []string
}

func (o *outcomes) Integration(event, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seen = append(o.seen, event+":"+outcome)
}

type fixture struct {
	store    *ledgertest.Store
	chart    ledgertest.Chart
	periods  *periods.Service
	journals *journals.Service
	balances *balances.Service
	parties  *parties.Service
	docs     documents.Repository
	hooks    *integration.Hooks
	observed *outcomes
	logs     *bytes.Buffer
}

func setupWith(t *testing.T, codes accounts.WellKnownCodes) fixture {
	t.Helper()
	store := ledgertest.NewStore()
	chart := ledgertest.SeedChart(t, store)
	accountSvc := accounts.NewService(store.Accounts(), store, codes)
	periodSvc := periods.NewService(store.Periods(), store, nil, nil)
	journalSvc := journals.NewService(store.Journals(), store, accountSvc, periodSvc, nil)
	journalSvc.WithNow(func() time.Time { return clock })
	balanceSvc := balances.NewService(store.Balances(), accountSvc)
	balanceSvc.WithNow(func() time.Time { return clock })
	partySvc := parties.NewService(store.Parties(), store, accountSvc, store.Documents(), parties.DefaultCodeWidth)
	logs := &bytes.Buffer{}
	hooks := integration.NewHooks(store, journalSvc, accountSvc, partySvc, store.Documents(), slog.New(slog.NewJSONHandler(logs, nil)))
	hooks.WithNow(func() time.Time { return clock })
	observed := &outcomes{}
	hooks.Observe(observed)
	return fixture{store: store, chart: chart, periods: periodSvc, journals: journalSvc, balances: balanceSvc,
		parties: partySvc, docs: store.Documents(), hooks: hooks, observed: observed, logs: logs}
}

func setup(t *testing.T) fixture {
	return setupWith(t, ledgertest.Codes())
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func item(qty, price, cost string) documents.Item {
	return documents.Item{ProductID: 1, Quantity: d(qty), UnitPrice: d(price), CostPrice: d(cost)}
}

func (f fixture) customer(t *testing.T, name string) parties.Party {
	t.Helper()
	p, err := f.parties.Create(context.Background(), parties.KindCustomer, name)
	require.NoError(t, err)
	return p
}

func (f fixture) supplier(t *testing.T, name string) parties.Party {
	t.Helper()
	p, err := f.parties.Create(context.Background(), parties.KindSupplier, name)
	require.NoError(t, err)
	return p
}

func (f fixture) balance(t *testing.T, code string) string {
	t.Helper()
	bal, err := f.balances.BalanceByCode(context.Background(), code, nil)
	require.NoError(t, err)
	return bal.StringFixed(2)
}

// amounts maps account codes to signed debit-minus-credit amounts.
func amounts(e journals.Entry) map[string]string {
	out := make(map[string]string)
	for _, l := range e.Lines {
		out[l.AccountCode] = l.Debit.Sub(l.Credit).StringFixed(2)
	}
	return out
}

func (f fixture) entry(t *testing.T, id int64) journals.Entry {
	t.Helper()
	e, err := f.journals.Get(context.Background(), id)
	require.NoError(t, err)
	return e
}

func (f fixture) creditSale(t *testing.T, customerID int64, items ...documents.Item) integration.Result {
	t.Helper()
	res, err := f.hooks.OnSaleConfirmed(context.Background(), documents.Invoice{
		Number:      "S-100",
		Date:        ledgertest.Date(2024, 5, 10),
		PartyID:     customerID,
		PaymentType: documents.PaymentCredit,
		Items:       items,
	}, 9)
	require.NoError(t, err)
	require.False(t, res.Replayed)
	return res
}

func (f fixture) creditPurchase(t *testing.T, supplierID int64, items ...documents.Item) integration.Result {
	t.Helper()
	res, err := f.hooks.OnPurchaseConfirmed(context.Background(), documents.Invoice{
		Number:      "P-200",
		Date:        ledgertest.Date(2024, 5, 8),
		PartyID:     supplierID,
		PaymentType: documents.PaymentCredit,
		Items:       items,
	}, 9)
	require.NoError(t, err)
	return res
}

func (f fixture) pay(t *testing.T, kind documents.Kind, invoiceID int64, number, amount string) integration.Result {
	t.Helper()
	res, err := f.hooks.OnPaymentPosted(context.Background(), documents.Payment{
		Number:      number,
		InvoiceKind: kind,
		InvoiceID:   invoiceID,
		Amount:      d(amount),
		Date:        ledgertest.Date(2024, 5, 25),
	}, 9)
	require.NoError(t, err)
	return res
}
