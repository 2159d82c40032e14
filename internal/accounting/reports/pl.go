package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/balances"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

// StatementAccount is one account row of a financial statement section.
type StatementAccount struct {
	Code   string          `json:"code"`
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// Section groups statement accounts under a label.
type Section struct {
	Label    string             `json:"label"`
	Accounts []StatementAccount `json:"accounts"`
	Total    decimal.Decimal    `json:"total"`
}

func newSection(label string) Section {
	return Section{Label: label, Total: decimal.Zero}
}

func (s *Section) add(line balances.TrialBalanceLine) {
	amount := natural(line)
	if amount.IsZero() {
		return
	}
	s.Accounts = append(s.Accounts, StatementAccount{Code: line.Code, Name: line.Name, Amount: amount})
	s.Total = shared.Money(s.Total.Add(amount))
}

// ProfitAndLoss is the income statement derived from a trial balance.
type ProfitAndLoss struct {
	AsOf      time.Time       `json:"as_of"`
	Revenue   Section         `json:"revenue"`
	Expense   Section         `json:"expense"`
	NetIncome decimal.Decimal `json:"net_income"`
}

// BuildProfitAndLoss sums revenue and expense accounts. Lines arrive sorted
// by code so sections keep chart order.
func BuildProfitAndLoss(tb balances.TrialBalance) ProfitAndLoss {
	pl := ProfitAndLoss{AsOf: tb.AsOf, Revenue: newSection("Revenue"), Expense: newSection("Expense")}
	for _, line := range tb.Lines {
		switch line.Category {
		case accounts.CategoryRevenue:
			pl.Revenue.add(line)
		case accounts.CategoryExpense:
			pl.Expense.add(line)
		}
	}
	pl.NetIncome = shared.Money(pl.Revenue.Total.Sub(pl.Expense.Total))
	return pl
}
