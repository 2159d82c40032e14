package balances_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/balances"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/odyssey-ledger/internal/ledger/ledgertest"

	_ "github.com/odyssey-erp/odyssey-ledger/testing"
)

type fixture struct {
	store    *ledgertest.Store
	chart    ledgertest.Chart
	accounts *accounts.Service
	journals *journals.Service
	svc      *balances.Service
}

func setup(t *testing.T) fixture {
	t.Helper()
	store := ledgertest.NewStore()
	chart := ledgertest.SeedChart(t, store)
	accountSvc := accounts.NewService(store.Accounts(), store, ledgertest.Codes())
	periodSvc := periods.NewService(store.Periods(), store, nil, nil)
	journalSvc := journals.NewService(store.Journals(), store, accountSvc, periodSvc, nil)
	svc := balances.NewService(store.Balances(), accountSvc)
	svc.WithNow(func() time.Time { return time.Date(2024, 12, 31, 18, 0, 0, 0, time.UTC) })
	return fixture{store: store, chart: chart, accounts: accountSvc, journals: journalSvc, svc: svc}
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// post books debit against credit for amount on date.
func (f fixture) post(t *testing.T, date time.Time, debit, credit, amount string) journals.Entry {
	t.Helper()
	entry, err := f.journals.PostComposed(context.Background(), journals.ComposedInput{
		DraftInput: journals.DraftInput{Date: date, Reference: "T-" + debit + "-" + credit, Description: "test posting"},
		Lines: []journals.LineInput{
			{AccountID: f.chart.Account(debit).ID, Debit: d(amount)},
			{AccountID: f.chart.Account(credit).ID, Credit: d(amount)},
		},
	})
	require.NoError(t, err)
	return entry
}

func TestBalanceFollowsNature(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.post(t, ledgertest.Date(2024, 1, 5), "1001", "3001", "1000")
	f.post(t, ledgertest.Date(2024, 2, 5), "5101", "1001", "150")
	f.post(t, ledgertest.Date(2024, 3, 5), "1001", "4001", "80.5")

	cash, err := f.svc.BalanceByCode(ctx, "1001", nil)
	require.NoError(t, err)
	require.Equal(t, "930.50", cash.StringFixed(2))

	equity, err := f.svc.BalanceByCode(ctx, "3001", nil)
	require.NoError(t, err)
	require.Equal(t, "1000.00", equity.StringFixed(2), "credit nature accounts grow with credits")

	feb := ledgertest.Date(2024, 2, 28)
	cashFeb, err := f.svc.Balance(ctx, f.chart.Account("1001").ID, &feb)
	require.NoError(t, err)
	require.Equal(t, "850.00", cashFeb.StringFixed(2))
}

func TestBalanceIgnoresDrafts(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	entry := f.post(t, ledgertest.Date(2024, 1, 5), "1001", "3001", "1000")
	_, err := f.journals.Unpost(ctx, entry.ID, 1, "review")
	require.NoError(t, err)

	cash, err := f.svc.BalanceByCode(ctx, "1001", nil)
	require.NoError(t, err)
	require.True(t, cash.IsZero())
}

func TestOpeningBalance(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	since := ledgertest.Date(2024, 1, 1)
	require.NoError(t, f.accounts.SetOpeningBalance(ctx, f.chart.Account("1002").ID, d("250"), &since))
	f.post(t, ledgertest.Date(2024, 1, 10), "1002", "3001", "50")

	before := ledgertest.Date(2023, 12, 31)
	bal, err := f.svc.BalanceByCode(ctx, "1002", &before)
	require.NoError(t, err)
	require.True(t, bal.IsZero())

	bal, err = f.svc.BalanceByCode(ctx, "1002", nil)
	require.NoError(t, err)
	require.Equal(t, "300.00", bal.StringFixed(2))
}

func TestTrialBalance(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.post(t, ledgertest.Date(2024, 1, 5), "1001", "3001", "1000")
	f.post(t, ledgertest.Date(2024, 2, 5), "1301", "1001", "400")
	f.post(t, ledgertest.Date(2024, 3, 5), "1001", "4001", "300")
	f.post(t, ledgertest.Date(2024, 3, 5), "5001", "1301", "120")

	// an inactive account keeps its movement in the trial balance
	require.NoError(t, f.accounts.Deactivate(ctx, f.chart.Account("5001").ID))

	tb, err := f.svc.TrialBalance(ctx, nil)
	require.NoError(t, err)
	require.True(t, tb.Balanced())
	require.Equal(t, "1820.00", tb.TotalDebit.StringFixed(2))
	require.Equal(t, "1820.00", tb.TotalCredit.StringFixed(2))

	codes := make([]string, 0, len(tb.Lines))
	byCode := make(map[string]balances.TrialBalanceLine)
	for _, line := range tb.Lines {
		codes = append(codes, line.Code)
		byCode[line.Code] = line
	}
	// control accounts never appear; idle active leaves do
	require.Equal(t, []string{"1001", "1002", "1301", "1401", "3001", "4001", "5001", "5101"}, codes)
	require.Equal(t, "900.00", byCode["1001"].Balance.StringFixed(2))
	require.Equal(t, "280.00", byCode["1301"].Balance.StringFixed(2))
	require.Equal(t, "120.00", byCode["5001"].Balance.StringFixed(2))
	require.True(t, byCode["1002"].Balance.IsZero())

	jan := ledgertest.Date(2024, 1, 31)
	early, err := f.svc.TrialBalance(ctx, &jan)
	require.NoError(t, err)
	require.Equal(t, "1000.00", early.TotalDebit.StringFixed(2))
}

func TestRunningStatement(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.post(t, ledgertest.Date(2024, 1, 5), "1001", "3001", "1000")
	f.post(t, ledgertest.Date(2024, 2, 5), "5101", "1001", "150")
	f.post(t, ledgertest.Date(2024, 2, 20), "1001", "4001", "75")
	f.post(t, ledgertest.Date(2024, 3, 1), "5101", "1001", "25")

	st, err := f.svc.RunningStatement(ctx, f.chart.Account("1001").ID, ledgertest.Date(2024, 2, 1), ledgertest.Date(2024, 2, 29))
	require.NoError(t, err)
	require.Equal(t, "1000.00", st.Opening.StringFixed(2))
	require.Len(t, st.Lines, 2)
	require.Equal(t, "850.00", st.Lines[0].RunningBalance.StringFixed(2))
	require.Equal(t, "925.00", st.Lines[1].RunningBalance.StringFixed(2))
	require.Equal(t, "925.00", st.Closing.StringFixed(2))
	require.Equal(t, "test posting", st.Lines[0].Description)

	_, err = f.svc.RunningStatement(ctx, f.chart.Account("1001").ID, ledgertest.Date(2024, 3, 1), ledgertest.Date(2024, 2, 1))
	require.Error(t, err)
}

func TestCheckIntegrityClean(t *testing.T) {
	f := setup(t)
	f.post(t, ledgertest.Date(2024, 1, 5), "1001", "3001", "1000")
	f.post(t, ledgertest.Date(2024, 2, 5), "5101", "1001", "150")

	report, err := f.svc.CheckIntegrity(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, report.OK())
	require.Equal(t, 2, report.EntriesScanned)
	require.Equal(t, "1150.00", report.TotalDebit.StringFixed(2))
}

func TestCheckIntegrityFindsCorruption(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.post(t, ledgertest.Date(2024, 1, 5), "1001", "3001", "1000")

	// rows written around the service, as a faulty import would
	repo := f.store.Journals()
	raw := func(lines ...journals.Line) journals.Entry {
		e, err := repo.InsertEntry(ctx, journals.Entry{Date: ledgertest.Date(2024, 4, 1), EntryType: journals.EntryTypeManual})
		require.NoError(t, err)
		for _, l := range lines {
			l.EntryID = e.ID
			_, err := repo.InsertLine(ctx, l)
			require.NoError(t, err)
		}
		require.NoError(t, repo.MarkPosted(ctx, e.ID, "RAW", f.chart.Period.ID, time.Now(), 0))
		return e
	}
	cash, capital, receivables := f.chart.Account("1001").ID, f.chart.Account("3001").ID, f.chart.Account("11030").ID
	unbalanced := raw(journals.Line{AccountID: cash, Debit: d("10"), Credit: decimal.Zero},
		journals.Line{AccountID: capital, Debit: decimal.Zero, Credit: d("9")})
	single := raw(journals.Line{AccountID: cash, Debit: d("5"), Credit: decimal.Zero})
	nonLeaf := raw(journals.Line{AccountID: receivables, Debit: d("7"), Credit: decimal.Zero},
		journals.Line{AccountID: capital, Debit: decimal.Zero, Credit: d("7")})

	report, err := f.svc.CheckIntegrity(ctx, nil)
	require.NoError(t, err)
	require.False(t, report.OK())

	kinds := make(map[string][]int64)
	for _, v := range report.Violations {
		kinds[v.Kind] = append(kinds[v.Kind], v.EntryID)
	}
	require.ElementsMatch(t, []int64{unbalanced.ID, single.ID}, kinds[balances.ViolationUnbalanced])
	require.Equal(t, []int64{single.ID}, kinds[balances.ViolationTooFewLines])
	require.Equal(t, []int64{nonLeaf.ID}, kinds[balances.ViolationNonLeaf])
	require.Len(t, kinds[balances.ViolationTrialBalance], 1)
	require.Empty(t, kinds[balances.ViolationLineAmounts])

	march := ledgertest.Date(2024, 3, 31)
	report, err = f.svc.CheckIntegrity(ctx, &march)
	require.NoError(t, err)
	require.True(t, report.OK(), "violations dated after as_of are out of scope")
}
