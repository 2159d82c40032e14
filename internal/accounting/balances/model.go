package balances

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

// Movement sums posted debit and credit amounts.
type Movement struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// TrialBalanceLine is one account row of a trial balance.
type TrialBalanceLine struct {
	AccountID   int64             `json:"account_id"`
	Code        string            `json:"code"`
	Name        string            `json:"name"`
	Category    accounts.Category `json:"category"`
	Nature      accounts.Nature   `json:"nature"`
	DebitTotal  decimal.Decimal   `json:"debit_total"`
	CreditTotal decimal.Decimal   `json:"credit_total"`
	Balance     decimal.Decimal   `json:"balance"`
}

// TrialBalance lists every postable account with its posted totals.
type TrialBalance struct {
	AsOf        time.Time          `json:"as_of"`
	Lines       []TrialBalanceLine `json:"lines"`
	TotalDebit  decimal.Decimal    `json:"total_debit"`
	TotalCredit decimal.Decimal    `json:"total_credit"`
}

// Balanced reports whether the debit and credit totals agree.
func (tb TrialBalance) Balanced() bool {
	return shared.Balanced(tb.TotalDebit, tb.TotalCredit)
}

// Posting is a posted line affecting one account.
type Posting struct {
	EntryID     int64           `json:"entry_id"`
	LineID      int64           `json:"line_id"`
	Number      string          `json:"number"`
	Date        time.Time       `json:"date"`
	PostedAt    time.Time       `json:"posted_at"`
	Reference   string          `json:"reference"`
	Description string          `json:"description"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

// StatementLine annotates a posting with the balance after it.
type StatementLine struct {
	Posting
	RunningBalance decimal.Decimal `json:"running_balance"`
}

// Statement is the running statement of an account over a date range.
type Statement struct {
	Account accounts.Account `json:"account"`
	From    time.Time        `json:"from"`
	To      time.Time        `json:"to"`
	Opening decimal.Decimal  `json:"opening"`
	Lines   []StatementLine  `json:"lines"`
	Closing decimal.Decimal  `json:"closing"`
}

// EntryCheck aggregates the lines of one posted entry.
type EntryCheck struct {
	EntryID      int64
	Number       string
	Lines        int
	Debit        decimal.Decimal
	Credit       decimal.Decimal
	InvalidLines int
	NonLeafLines int
}

// Violation names a posted entry that breaks a ledger invariant.
type Violation struct {
	EntryID int64  `json:"entry_id"`
	Number  string `json:"number"`
	Kind    string `json:"kind"`
	Detail  string `json:"detail"`
}

const (
	ViolationUnbalanced   = "unbalanced"
	ViolationLineAmounts  = "line_amounts"
	ViolationTooFewLines  = "too_few_lines"
	ViolationNonLeaf      = "non_leaf_account"
	ViolationTrialBalance = "trial_balance"
)

// IntegrityReport is the outcome of CheckIntegrity.
type IntegrityReport struct {
	AsOf           time.Time       `json:"as_of"`
	EntriesScanned int             `json:"entries_scanned"`
	TotalDebit     decimal.Decimal `json:"total_debit"`
	TotalCredit    decimal.Decimal `json:"total_credit"`
	Violations     []Violation     `json:"violations"`
}

// OK reports whether no violation was found.
func (r IntegrityReport) OK() bool {
	return len(r.Violations) == 0
}
