package integration

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

// pair moves amount from the credit account to the debit account. A
// negative amount reverses the sides.
type pair struct {
	debit  int64
	credit int64
	amount decimal.Decimal
	memo   string
}

func (p pair) lines() []journals.LineInput {
	amount := shared.Money(p.amount)
	if amount.IsZero() {
		return nil
	}
	dr, cr := p.debit, p.credit
	if amount.IsNegative() {
		dr, cr = cr, dr
		amount = amount.Neg()
	}
	return []journals.LineInput{
		{AccountID: dr, Debit: amount, Credit: decimal.Zero, Description: p.memo},
		{AccountID: cr, Debit: decimal.Zero, Credit: amount, Description: p.memo},
	}
}

func compose(pairs ...pair) []journals.LineInput {
	var out []journals.LineInput
	for _, p := range pairs {
		out = append(out, p.lines()...)
	}
	return out
}

// debitNet sums debit minus credit posted to accountID across entries.
func debitNet(accountID int64, entries ...journals.Entry) decimal.Decimal {
	net := decimal.Zero
	for _, e := range entries {
		for _, line := range e.Lines {
			if line.AccountID == accountID {
				net = net.Add(line.Debit).Sub(line.Credit)
			}
		}
	}
	return net
}

// creditNet sums credit minus debit posted to accountID across entries.
func creditNet(accountID int64, entries ...journals.Entry) decimal.Decimal {
	return debitNet(accountID, entries...).Neg()
}
