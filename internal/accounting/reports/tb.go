package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/balances"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

// categoryOrder is the presentation order of trial balance groups.
var categoryOrder = []accounts.Category{
	accounts.CategoryAsset,
	accounts.CategoryLiability,
	accounts.CategoryEquity,
	accounts.CategoryRevenue,
	accounts.CategoryExpense,
}

// TrialBalanceGroup aggregates the accounts of one category.
type TrialBalanceGroup struct {
	Category accounts.Category           `json:"category"`
	Lines    []balances.TrialBalanceLine `json:"lines"`
	Debit    decimal.Decimal             `json:"debit"`
	Credit   decimal.Decimal             `json:"credit"`
	Balance  decimal.Decimal             `json:"balance"`
}

// TrialBalance is the grouped presentation of a ledger trial balance.
type TrialBalance struct {
	AsOf        time.Time           `json:"as_of"`
	Groups      []TrialBalanceGroup `json:"groups"`
	TotalDebit  decimal.Decimal     `json:"total_debit"`
	TotalCredit decimal.Decimal     `json:"total_credit"`
	Balanced    bool                `json:"balanced"`
}

// BuildTrialBalance groups trial balance lines by account category. Group
// balances are expressed in the category's natural side so contra accounts
// reduce their group.
func BuildTrialBalance(tb balances.TrialBalance) TrialBalance {
	groups := make(map[accounts.Category]*TrialBalanceGroup, len(categoryOrder))
	for _, line := range tb.Lines {
		grp, ok := groups[line.Category]
		if !ok {
			grp = &TrialBalanceGroup{Category: line.Category, Debit: decimal.Zero, Credit: decimal.Zero, Balance: decimal.Zero}
			groups[line.Category] = grp
		}
		grp.Lines = append(grp.Lines, line)
		grp.Debit = grp.Debit.Add(line.DebitTotal)
		grp.Credit = grp.Credit.Add(line.CreditTotal)
		grp.Balance = grp.Balance.Add(natural(line))
	}

	result := TrialBalance{AsOf: tb.AsOf, TotalDebit: tb.TotalDebit, TotalCredit: tb.TotalCredit, Balanced: tb.Balanced()}
	for _, cat := range categoryOrder {
		grp, ok := groups[cat]
		if !ok {
			continue
		}
		grp.Debit = shared.Money(grp.Debit)
		grp.Credit = shared.Money(grp.Credit)
		grp.Balance = shared.Money(grp.Balance)
		result.Groups = append(result.Groups, *grp)
	}
	return result
}

// natural converts a line balance to the default side of its category.
func natural(line balances.TrialBalanceLine) decimal.Decimal {
	if line.Nature != line.Category.DefaultNature() {
		return line.Balance.Neg()
	}
	return line.Balance
}
