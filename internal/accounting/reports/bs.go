package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/balances"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

// BalanceSheet is the statement of financial position derived from a trial
// balance. Unclosed revenue and expense flow into CurrentEarnings.
type BalanceSheet struct {
	AsOf                      time.Time       `json:"as_of"`
	Assets                    Section         `json:"assets"`
	Liabilities               Section         `json:"liabilities"`
	Equity                    Section         `json:"equity"`
	CurrentEarnings           decimal.Decimal `json:"current_earnings"`
	TotalLiabilitiesAndEquity decimal.Decimal `json:"total_liabilities_and_equity"`
}

// Balanced reports whether assets equal liabilities plus equity.
func (bs BalanceSheet) Balanced() bool {
	return shared.Balanced(bs.Assets.Total, bs.TotalLiabilitiesAndEquity)
}

// BuildBalanceSheet aggregates balances into assets, liabilities and equity.
func BuildBalanceSheet(tb balances.TrialBalance) BalanceSheet {
	bs := BalanceSheet{
		AsOf:        tb.AsOf,
		Assets:      newSection("Assets"),
		Liabilities: newSection("Liabilities"),
		Equity:      newSection("Equity"),
	}
	for _, line := range tb.Lines {
		switch line.Category {
		case accounts.CategoryAsset:
			bs.Assets.add(line)
		case accounts.CategoryLiability:
			bs.Liabilities.add(line)
		case accounts.CategoryEquity:
			bs.Equity.add(line)
		}
	}
	bs.CurrentEarnings = BuildProfitAndLoss(tb).NetIncome
	bs.TotalLiabilitiesAndEquity = shared.Money(bs.Liabilities.Total.Add(bs.Equity.Total).Add(bs.CurrentEarnings))
	return bs
}
