package ledger_test

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/documents"
	"github.com/odyssey-erp/odyssey-ledger/internal/ledger"
	"github.com/odyssey-erp/odyssey-ledger/internal/ledger/ledgertest"
	"github.com/odyssey-erp/odyssey-ledger/internal/parties"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/cache"

	_ "github.com/odyssey-erp/odyssey-ledger/testing"
)

var clock = time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC)

type env struct {
	store  *ledgertest.Store
	chart  ledgertest.Chart
	audit  *ledgertest.Audit
	ledger *ledger.Ledger
}

func newEnv(t *testing.T) env {
	t.Helper()
	store := ledgertest.NewStore()
	chart := ledgertest.SeedChart(t, store)
	audit := &ledgertest.Audit{}
	l := ledger.New(ledger.Repositories{
		Accounts:  store.Accounts(),
		Periods:   store.Periods(),
		Journals:  store.Journals(),
		Balances:  store.Balances(),
		Documents: store.Documents(),
		Parties:   store.Parties(),
	}, store, ledger.Config{
		WellKnown: ledgertest.Codes(),
		Audit:     audit,
		Now:       func() time.Time { return clock },
	})
	require.NoError(t, l.Validate(context.Background()))
	return env{store: store, chart: chart, audit: audit, ledger: l}
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func line(qty, price, cost string) documents.Item {
	return documents.Item{ProductID: 7, Quantity: d(qty), UnitPrice: d(price), CostPrice: d(cost)}
}

func (e env) party(t *testing.T, kind parties.Kind, name string) parties.Party {
	t.Helper()
	p, err := e.ledger.Parties.Create(context.Background(), kind, name)
	require.NoError(t, err)
	return p
}

func (e env) sale(t *testing.T, number string, partyID int64, items ...documents.Item) documents.Invoice {
	t.Helper()
	payment := documents.PaymentCredit
	if partyID == 0 {
		payment = documents.PaymentCash
	}
	res, err := e.ledger.OnSaleConfirmed(context.Background(), documents.Invoice{Number: number, Date: ledgertest.Date(2024, 3, 15),
		PartyID: partyID, PaymentType: payment, Items: items}, 1)
	require.NoError(t, err)
	return res.Invoice
}

func (e env) partyBalance(t *testing.T, kind parties.Kind, id int64) string {
	t.Helper()
	bal, err := e.ledger.PartyBalance(context.Background(), kind, id)
	require.NoError(t, err)
	return bal.StringFixed(2)
}

func (e env) balance(t *testing.T, code string) string {
	t.Helper()
	bal, err := e.ledger.AccountBalance(context.Background(), code, nil)
	require.NoError(t, err)
	return bal.StringFixed(2)
}

// requireInvariants checks every posted entry and the trial balance.
func requireInvariants(t *testing.T, l *ledger.Ledger) {
	t.Helper()
	ctx := context.Background()
	entries, err := l.ListEntries(ctx, journals.ListFilter{Status: journals.StatusPosted})
	require.NoError(t, err)
	for _, header := range entries {
		entry, err := l.EntryDetail(ctx, header.ID)
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(entry.Lines), 2, entry.Number)
		debit, credit := entry.Totals()
		require.True(t, debit.Equal(credit), "%s: %s != %s", entry.Number, debit, credit)
		for _, l := range entry.Lines {
			require.True(t, shared.Side(l.Debit, l.Credit), "%s line %d", entry.Number, l.ID)
		}
	}
	for _, asOf := range []time.Time{ledgertest.Date(2024, 1, 31), ledgertest.Date(2024, 4, 30), clock} {
		tb, err := l.TrialBalance(ctx, &asOf)
		require.NoError(t, err)
		require.True(t, tb.Balanced(), "trial balance as of %s", asOf.Format(time.DateOnly))
	}
	report, err := l.CheckIntegrity(ctx, nil)
	require.NoError(t, err)
	require.True(t, report.OK(), "%+v", report.Violations)
}

// signature lists an entry's lines independent of ids and order.
func signature(e journals.Entry) []string {
	out := make([]string, 0, len(e.Lines))
	for _, l := range e.Lines {
		out = append(out, fmt.Sprintf("%s %s %s", l.AccountCode, l.Debit.StringFixed(2), l.Credit.StringFixed(2)))
	}
	sort.Strings(out)
	return out
}

func TestScenarioCashSale(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	before, err := e.ledger.TrialBalance(ctx, nil)
	require.NoError(t, err)
	require.True(t, before.TotalDebit.IsZero())

	inv := e.sale(t, "S1", 0, line("1", "100", "40"))
	entry, err := e.ledger.EntryDetail(ctx, inv.JournalEntryID)
	require.NoError(t, err)
	require.Equal(t, journals.StatusPosted, entry.Status)
	require.Equal(t, []string{
		"1001 100.00 0.00",
		"1301 0.00 40.00",
		"4001 0.00 100.00",
		"5001 40.00 0.00",
	}, signature(entry))

	require.Equal(t, "100.00", e.balance(t, "1001"))
	require.Equal(t, "-40.00", e.balance(t, "1301"))
	require.Equal(t, "100.00", e.balance(t, "4001"))
	require.Equal(t, "40.00", e.balance(t, "5001"))
	requireInvariants(t, e.ledger)
}

func TestScenarioCreditSaleWithPartialPayment(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.party(t, parties.KindCustomer, "مؤسسة الرياض")

	inv := e.sale(t, "S2", c.ID, line("2", "100", "0"))
	acc, err := e.ledger.PartyAccount(ctx, parties.KindCustomer, c.ID)
	require.NoError(t, err)
	require.Equal(t, "11030001", acc.Code)
	require.Equal(t, "عميل - مؤسسة الرياض", acc.Name)
	e1, err := e.ledger.EntryDetail(ctx, inv.JournalEntryID)
	require.NoError(t, err)
	require.Equal(t, []string{"11030001 200.00 0.00", "4001 0.00 200.00"}, signature(e1))

	pay, err := e.ledger.OnPaymentPosted(ctx, documents.Payment{Number: "R-1", InvoiceKind: documents.KindSale, InvoiceID: inv.ID,
		Amount: d("80"), Date: ledgertest.Date(2024, 3, 20)}, 1)
	require.NoError(t, err)
	require.Equal(t, []string{"1001 80.00 0.00", "11030001 0.00 80.00"}, signature(pay.Entry))
	require.Equal(t, "120.00", e.partyBalance(t, parties.KindCustomer, c.ID))

	st, err := e.ledger.PartyStatement(ctx, parties.KindCustomer, c.ID, ledgertest.Date(2024, 1, 1), ledgertest.Date(2024, 12, 31))
	require.NoError(t, err)
	require.Len(t, st.Lines, 2)
	require.Equal(t, "200.00", st.Lines[0].RunningBalance.StringFixed(2))
	require.Equal(t, "120.00", st.Closing.StringFixed(2))
	requireInvariants(t, e.ledger)
}

func TestScenarioEditOfPostedSale(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.party(t, parties.KindCustomer, "عميل")
	inv := e.sale(t, "S3", c.ID, line("5", "100", "0"))
	original, err := e.ledger.EntryDetail(ctx, inv.JournalEntryID)
	require.NoError(t, err)

	inv.Items = []documents.Item{line("6.5", "100", "0")}
	res, err := e.ledger.OnSaleEdited(ctx, inv, "quantity corrected", 1)
	require.NoError(t, err)
	require.Equal(t, journals.EntryTypeAdjustment, res.Entry.EntryType)
	require.True(t, strings.HasPrefix(res.Entry.Reference, original.Reference+"-ADJ-"))
	require.Contains(t, res.Entry.Reference, "S3")
	require.Equal(t, []string{"11030001 150.00 0.00", "4001 0.00 150.00"}, signature(res.Entry))

	logs, err := e.ledger.AuditLogs(ctx, documents.KindSale, inv.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, "500.00", logs[0].OldTotal.StringFixed(2))
	require.Equal(t, "650.00", logs[0].NewTotal.StringFixed(2))
	require.Equal(t, "150.00", logs[0].TotalDifference.StringFixed(2))
	require.Equal(t, res.Entry.ID, logs[0].AdjustmentEntryID)
	require.Equal(t, "650.00", e.partyBalance(t, parties.KindCustomer, c.ID))
	requireInvariants(t, e.ledger)
}

func TestScenarioUnpostBlockedByPayment(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	s := e.party(t, parties.KindSupplier, "مورد")
	p1, err := e.ledger.OnPurchaseConfirmed(ctx, documents.Invoice{Number: "P1", Date: ledgertest.Date(2024, 2, 1), PartyID: s.ID,
		PaymentType: documents.PaymentCredit, Items: []documents.Item{line("10", "100", "0")}}, 1)
	require.NoError(t, err)
	pay1, err := e.ledger.OnPaymentPosted(ctx, documents.Payment{Number: "Pay1", InvoiceKind: documents.KindPurchase,
		InvoiceID: p1.Invoice.ID, Amount: d("600"), Date: ledgertest.Date(2024, 2, 10)}, 1)
	require.NoError(t, err)
	require.Equal(t, "400.00", e.partyBalance(t, parties.KindSupplier, s.ID))

	_, err = e.ledger.OnPurchaseUnconfirmed(ctx, p1.Invoice.ID, 1)
	var conflict *shared.ConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, []string{"Pay1"}, conflict.Blockers)

	_, err = e.ledger.OnPaymentUnposted(ctx, pay1.Payment.ID, 1)
	require.NoError(t, err)
	_, err = e.ledger.OnPurchaseUnconfirmed(ctx, p1.Invoice.ID, 1)
	require.NoError(t, err)

	for _, id := range []int64{p1.Entry.ID, pay1.Entry.ID} {
		_, err := e.ledger.EntryDetail(ctx, id)
		require.ErrorIs(t, err, shared.ErrNotFound)
	}
	require.Equal(t, "0.00", e.partyBalance(t, parties.KindSupplier, s.ID))
	requireInvariants(t, e.ledger)
}

func TestScenarioClosedPeriod(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	periodID := e.chart.Period.ID
	require.NoError(t, e.ledger.Periods.Close(ctx, periodID, 1))

	draft, err := e.ledger.CreateManualEntry(ctx, journals.ManualEntryInput{
		Date:      ledgertest.Date(2024, 6, 10),
		Reference: "capital",
		Lines: []journals.ManualLineInput{
			{AccountCode: "1001", Debit: d("1000")},
			{AccountCode: "3001", Credit: d("1000")},
		},
	})
	require.NoError(t, err)
	_, err = e.ledger.Journals.Post(ctx, draft.ID, 1)
	require.ErrorIs(t, err, shared.ErrPeriodClosed)
	require.Equal(t, "0.00", e.balance(t, "1001"))

	require.NoError(t, e.ledger.Periods.Reopen(ctx, periodID, 1))
	posted, err := e.ledger.Journals.Post(ctx, draft.ID, 1)
	require.NoError(t, err)
	require.Equal(t, "JE-2024-0001", posted.Number, "the failed post allocates no number")
	require.Equal(t, "1000.00", e.balance(t, "1001"))
	require.Equal(t, []string{"period.close", "period.reopen", journals.ActionPost}, e.audit.Actions())
	requireInvariants(t, e.ledger)
}

func TestJournalUnpostOnlyTouchesManualEntries(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.party(t, parties.KindCustomer, "عميل")
	inv := e.sale(t, "S6", c.ID, line("1", "100", "0"))

	_, err := e.ledger.Journals.Unpost(ctx, inv.JournalEntryID, 1, "bypass")
	require.ErrorIs(t, err, shared.ErrConflict)
	_, err = e.ledger.Journals.Post(ctx, inv.JournalEntryID, 1)
	require.ErrorIs(t, err, shared.ErrConflict)
	entry, err := e.ledger.EntryDetail(ctx, inv.JournalEntryID)
	require.NoError(t, err)
	require.Equal(t, journals.StatusPosted, entry.Status)
	stored, err := e.ledger.Invoice(ctx, documents.KindSale, inv.ID)
	require.NoError(t, err)
	require.Equal(t, documents.FinancialPosted, stored.FinancialStatus)
	require.Equal(t, entry.ID, stored.JournalEntryID)
	require.Equal(t, "100.00", e.partyBalance(t, parties.KindCustomer, c.ID))

	draft, err := e.ledger.CreateManualEntry(ctx, journals.ManualEntryInput{
		Date: ledgertest.Date(2024, 3, 20),
		Lines: []journals.ManualLineInput{
			{AccountCode: "1001", Debit: d("50")},
			{AccountCode: "3001", Credit: d("50")},
		},
	})
	require.NoError(t, err)
	posted, err := e.ledger.Journals.Post(ctx, draft.ID, 1)
	require.NoError(t, err)
	unposted, err := e.ledger.Journals.Unpost(ctx, draft.ID, 1, "wrong date")
	require.NoError(t, err)
	require.Equal(t, journals.StatusDraft, unposted.Status)
	require.Equal(t, posted.Number, unposted.Number)
	requireInvariants(t, e.ledger)
}

func TestScenarioSaleWithoutCost(t *testing.T) {
	e := newEnv(t)
	c := e.party(t, parties.KindCustomer, "عميل")
	res, err := e.ledger.OnSaleConfirmed(context.Background(), documents.Invoice{Number: "S4", Date: ledgertest.Date(2024, 3, 1),
		PartyID: c.ID, PaymentType: documents.PaymentCredit, Items: []documents.Item{line("3", "25", "0")}}, 1)
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	require.ErrorIs(t, res.Warnings[0], shared.ErrCostUnknown)
	require.Equal(t, []string{"11030001 75.00 0.00", "4001 0.00 75.00"}, signature(res.Entry))
	requireInvariants(t, e.ledger)
}

func TestPostUnpostPostKeepsContent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.party(t, parties.KindCustomer, "عميل")
	inv := e.sale(t, "S5", c.ID, line("4", "62.5", "30"), line("1", "10", "0"))
	first, err := e.ledger.EntryDetail(ctx, inv.JournalEntryID)
	require.NoError(t, err)
	balance := e.partyBalance(t, parties.KindCustomer, c.ID)

	unposted, err := e.ledger.OnSaleUnconfirmed(ctx, inv.ID, 1)
	require.NoError(t, err)
	require.Equal(t, "0.00", e.partyBalance(t, parties.KindCustomer, c.ID))

	again, err := e.ledger.OnSaleConfirmed(ctx, unposted.Invoice, 1)
	require.NoError(t, err)
	require.Equal(t, signature(first), signature(again.Entry))
	require.NotEqual(t, first.Number, again.Entry.Number)
	require.Equal(t, "JE-2024-0002", again.Entry.Number)
	require.Equal(t, balance, e.partyBalance(t, parties.KindCustomer, c.ID))
	requireInvariants(t, e.ledger)
}

func TestEditMatchesPostingNewTotalFromStart(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	edited := e.party(t, parties.KindCustomer, "أ")
	direct := e.party(t, parties.KindCustomer, "ب")

	inv := e.sale(t, "S6", edited.ID, line("3", "99.99", "50"))
	for _, qty := range []string{"7", "2", "5"} {
		inv.Items = []documents.Item{line(qty, "99.99", "50")}
		_, err := e.ledger.OnSaleEdited(ctx, inv, "revised", 1)
		require.NoError(t, err)
	}
	e.sale(t, "S7", direct.ID, line("5", "99.99", "50"))

	require.Equal(t, "499.95", e.partyBalance(t, parties.KindCustomer, edited.ID))
	require.Equal(t, e.partyBalance(t, parties.KindCustomer, direct.ID), e.partyBalance(t, parties.KindCustomer, edited.ID))

	acc, err := e.ledger.PartyAccount(ctx, parties.KindCustomer, edited.ID)
	require.NoError(t, err)
	st, err := e.ledger.PartyStatement(ctx, parties.KindCustomer, edited.ID, ledgertest.Date(2024, 1, 1), ledgertest.Date(2024, 12, 31))
	require.NoError(t, err)
	require.Equal(t, acc.ID, st.Account.ID)
	require.Len(t, st.Lines, 4)
	requireInvariants(t, e.ledger)
}

func TestClosedPeriodWritesNoRows(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.party(t, parties.KindCustomer, "عميل")
	e.sale(t, "S8", c.ID, line("1", "10", "4"))
	entries, lines := e.store.Counts()
	require.NoError(t, e.ledger.Periods.Close(ctx, e.chart.Period.ID, 1))

	_, err := e.ledger.Journals.PostComposed(ctx, journals.ComposedInput{
		DraftInput: journals.DraftInput{Date: ledgertest.Date(2024, 8, 1), Reference: "late"},
		Lines: []journals.LineInput{
			{AccountID: e.chart.Account("1001").ID, Debit: d("5")},
			{AccountID: e.chart.Account("4001").ID, Credit: d("5")},
		},
	})
	require.ErrorIs(t, err, shared.ErrPeriodClosed)
	_, err = e.ledger.OnSaleConfirmed(ctx, documents.Invoice{Number: "S9", Date: ledgertest.Date(2024, 8, 1), PartyID: c.ID,
		PaymentType: documents.PaymentCredit, Items: []documents.Item{line("1", "10", "4")}}, 1)
	require.ErrorIs(t, err, shared.ErrPeriodClosed)

	afterEntries, afterLines := e.store.Counts()
	require.Equal(t, entries, afterEntries)
	require.Equal(t, lines, afterLines)
}

func TestOpeningBackfillMatchesDocuments(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.party(t, parties.KindCustomer, "عميل قديم")
	historical := func(number, qty, price string) documents.Invoice {
		return e.store.SeedInvoice(documents.Invoice{Kind: documents.KindSale, Number: number, Date: ledgertest.Date(2023, 11, 1),
			PartyID: c.ID, PaymentType: documents.PaymentCredit, FinancialStatus: documents.FinancialPosted,
			Items: []documents.Item{line(qty, price, "0")}})
	}
	a := historical("H-1", "3", "100")
	historical("H-2", "1", "450.50")
	e.store.SeedPayment(documents.Payment{Number: "HP-1", InvoiceKind: documents.KindSale, InvoiceID: a.ID, Amount: d("200"),
		Status: documents.PaymentPosted})
	e.store.SeedPayment(documents.Payment{Number: "HP-2", InvoiceKind: documents.KindSale, InvoiceID: a.ID, Amount: d("50"),
		Status: documents.PaymentDraft})

	acc, err := e.ledger.Parties.EnsureCustomerAccount(ctx, c.ID)
	require.NoError(t, err)
	// 300 + 450.50 invoiced, 200 paid
	require.Equal(t, "550.50", acc.OpeningBalance.StringFixed(2))
	require.Equal(t, "550.50", e.partyBalance(t, parties.KindCustomer, c.ID))
	requireInvariants(t, e.ledger)
}

func TestTrialBalanceCacheFollowsPostings(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	e.ledger.UseCache(cache.NewReportCache(client, time.Hour, nil))

	e.sale(t, "S10", 0, line("2", "10", "6"))
	tb, err := e.ledger.TrialBalance(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, "32.00", tb.TotalDebit.StringFixed(2))
	require.Equal(t, clock.Format(time.DateOnly), tb.AsOf.Format(time.DateOnly))
	require.True(t, mr.Exists("ledger:reports:trial_balance:2024-07-01:v1"))

	e.sale(t, "S11", 0, line("1", "5", "0"))
	tb, err = e.ledger.TrialBalance(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, "37.00", tb.TotalDebit.StringFixed(2), "posting bumps the cache version")
	require.True(t, mr.Exists("ledger:reports:trial_balance:2024-07-01:v2"))
}

func TestTrialBalanceCacheFollowsChart(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	e.ledger.UseCache(cache.NewReportCache(client, time.Hour, nil))

	c := e.party(t, parties.KindCustomer, "عميل قديم")
	e.store.SeedInvoice(documents.Invoice{Kind: documents.KindSale, Number: "H-9", Date: ledgertest.Date(2023, 11, 1),
		PartyID: c.ID, PaymentType: documents.PaymentCredit, FinancialStatus: documents.FinancialPosted,
		Items: []documents.Item{line("3", "100", "0")}})

	warm, err := e.ledger.TrialBalance(ctx, nil)
	require.NoError(t, err)
	require.True(t, mr.Exists("ledger:reports:trial_balance:2024-07-01:v1"))

	acc, err := e.ledger.Parties.EnsureCustomerAccount(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, "300.00", acc.OpeningBalance.StringFixed(2))

	cached, err := e.ledger.TrialBalance(ctx, nil)
	require.NoError(t, err)
	fresh, err := e.ledger.Balances.TrialBalance(ctx, nil)
	require.NoError(t, err)
	require.Len(t, cached.Lines, len(warm.Lines)+1, "provisioning a party account bumps the cache version")
	require.Equal(t, len(fresh.Lines), len(cached.Lines))
	require.True(t, mr.Exists("ledger:reports:trial_balance:2024-07-01:v2"))

	since := ledgertest.Date(2024, 1, 1)
	require.NoError(t, e.ledger.Accounts.SetOpeningBalance(ctx, acc.ID, d("120"), &since))
	require.True(t, mr.Exists("ledger:reports:trial_balance:2024-07-01:v2"))
	_, err = e.ledger.TrialBalance(ctx, nil)
	require.NoError(t, err)
	require.True(t, mr.Exists("ledger:reports:trial_balance:2024-07-01:v3"))

	require.NoError(t, e.ledger.Accounts.Deactivate(ctx, acc.ID))
	_, err = e.ledger.TrialBalance(ctx, nil)
	require.NoError(t, err)
	require.True(t, mr.Exists("ledger:reports:trial_balance:2024-07-01:v4"))
}

func TestSeedBootstrapsEmptyLedger(t *testing.T) {
	store := ledgertest.NewStore()
	l := ledger.New(ledger.Repositories{
		Accounts:  store.Accounts(),
		Periods:   store.Periods(),
		Journals:  store.Journals(),
		Balances:  store.Balances(),
		Documents: store.Documents(),
		Parties:   store.Parties(),
	}, store, ledger.Config{WellKnown: ledgertest.Codes(), Now: func() time.Time { return clock }})
	ctx := context.Background()
	require.Error(t, l.Validate(ctx))

	res, err := l.Seed(ctx, 2025)
	require.NoError(t, err)
	require.Equal(t, len(accounts.DefaultChart), res.AccountsCreated)
	require.True(t, res.PeriodCreated)
	require.Equal(t, "FY2025", res.Period.Name)
	require.Equal(t, "2025-12-31", res.Period.EndDate.Format(time.DateOnly))
	require.NoError(t, l.Validate(ctx))

	again, err := l.Seed(ctx, 2025)
	require.NoError(t, err)
	require.Zero(t, again.AccountsCreated)
	require.False(t, again.PeriodCreated)
	require.Equal(t, res.Period.ID, again.Period.ID)
}
