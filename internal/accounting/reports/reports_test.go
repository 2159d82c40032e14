package reports

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/balances"

	_ "github.com/odyssey-erp/odyssey-ledger/testing"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func line(code string, cat accounts.Category, nature accounts.Nature, debit, credit string) balances.TrialBalanceLine {
	l := balances.TrialBalanceLine{Code: code, Name: "acct " + code, Category: cat, Nature: nature,
		DebitTotal: d(debit), CreditTotal: d(credit)}
	l.Balance = nature.Signed(l.DebitTotal, l.CreditTotal)
	return l
}

func sample() balances.TrialBalance {
	return balances.TrialBalance{
		AsOf: time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		Lines: []balances.TrialBalanceLine{
			line("1001", accounts.CategoryAsset, accounts.NatureDebit, "1550", "300"),
			line("1301", accounts.CategoryAsset, accounts.NatureDebit, "500", "300"),
			line("1401", accounts.CategoryAsset, accounts.NatureCredit, "0", "50"),
			line("21010", accounts.CategoryLiability, accounts.NatureCredit, "300", "500"),
			line("3001", accounts.CategoryEquity, accounts.NatureCredit, "0", "300"),
			line("4001", accounts.CategoryRevenue, accounts.NatureCredit, "0", "1200"),
			line("5001", accounts.CategoryExpense, accounts.NatureDebit, "300", "0"),
			line("5101", accounts.CategoryExpense, accounts.NatureDebit, "0", "0"),
		},
		TotalDebit:  d("2650"),
		TotalCredit: d("2650"),
	}
}

func TestBuildTrialBalance(t *testing.T) {
	tb := BuildTrialBalance(sample())
	require.True(t, tb.Balanced)
	require.Len(t, tb.Groups, 5)

	order := make([]accounts.Category, 0, len(tb.Groups))
	for _, g := range tb.Groups {
		order = append(order, g.Category)
	}
	require.Equal(t, categoryOrder, order)

	assets := tb.Groups[0]
	require.Len(t, assets.Lines, 3)
	require.True(t, assets.Debit.Equal(d("2050")))
	require.True(t, assets.Credit.Equal(d("650")))
	// the contra asset reduces the group balance
	require.True(t, assets.Balance.Equal(d("1400")), assets.Balance.String())
}

func TestBuildTrialBalanceFlagsImbalance(t *testing.T) {
	tb := sample()
	tb.TotalCredit = d("2600")
	require.False(t, BuildTrialBalance(tb).Balanced)
}

func TestBuildProfitAndLoss(t *testing.T) {
	pl := BuildProfitAndLoss(sample())
	require.True(t, pl.Revenue.Total.Equal(d("1200")))
	require.True(t, pl.Expense.Total.Equal(d("300")))
	require.True(t, pl.NetIncome.Equal(d("900")))
	require.Len(t, pl.Expense.Accounts, 1, "zero balances are omitted")
}

func TestBuildBalanceSheet(t *testing.T) {
	bs := BuildBalanceSheet(sample())
	require.True(t, bs.Assets.Total.Equal(d("1400")), bs.Assets.Total.String())
	require.True(t, bs.Liabilities.Total.Equal(d("200")))
	require.True(t, bs.Equity.Total.Equal(d("300")))
	require.True(t, bs.CurrentEarnings.Equal(d("900")))
	require.True(t, bs.TotalLiabilitiesAndEquity.Equal(d("1400")))
	require.True(t, bs.Balanced())
}

func TestBalanceSheetDetectsMissingEquity(t *testing.T) {
	tb := balances.TrialBalance{Lines: []balances.TrialBalanceLine{
		line("1001", accounts.CategoryAsset, accounts.NatureDebit, "1000", "0"),
		line("21010", accounts.CategoryLiability, accounts.NatureCredit, "0", "400"),
		line("4001", accounts.CategoryRevenue, accounts.NatureCredit, "0", "500"),
	}}
	bs := BuildBalanceSheet(tb)
	require.True(t, bs.CurrentEarnings.Equal(d("500")))
	require.False(t, bs.Balanced())
}

func TestWriteStatementCSV(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	st := balances.Statement{
		From:    from,
		To:      from.AddDate(0, 0, 30),
		Opening: d("100"),
		Closing: d("150.5"),
		Lines: []balances.StatementLine{{
			Posting: balances.Posting{Number: "JV-2024-000001", Date: from.AddDate(0, 0, 4), Reference: "SALE-7",
				Description: "Sale, \"cash\"", Debit: d("50.5"), Credit: d("0")},
			RunningBalance: d("150.5"),
		}},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteStatementCSV(&buf, st))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	require.Equal(t, []string{"date", "number", "reference", "description", "debit", "credit", "balance"}, rows[0])
	require.Equal(t, "100.00", rows[1][6])
	require.Equal(t, []string{"2024-01-05", "JV-2024-000001", "SALE-7", "Sale, \"cash\"", "50.50", "0.00", "150.50"}, rows[2])
	require.Equal(t, []string{"2024-01-31", "", "", "Closing balance", "", "", "150.50"}, rows[3])
}

func TestWriteTrialBalanceCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTrialBalanceCSV(&buf, sample()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 10)
	require.Equal(t, []string{"1401", "acct 1401", "asset", "credit", "0.00", "50.00", "50.00"}, rows[3])
	require.Equal(t, []string{"", "Total", "", "", "2650.00", "2650.00", ""}, rows[9])
}
