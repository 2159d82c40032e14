package balances

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

// AccountLookup reads the chart of accounts.
type AccountLookup interface {
	GetAccount(ctx context.Context, id int64) (accounts.Account, error)
	Resolve(ctx context.Context, code string) (accounts.Account, error)
	List(ctx context.Context, filter accounts.ListFilter) ([]accounts.Account, error)
}

// Service computes balances on demand from posted lines.
type Service struct {
	repo     Repository
	accounts AccountLookup
	now      func() time.Time
}

// NewService constructs the balance engine.
func NewService(repo Repository, accounts AccountLookup) *Service {
	return &Service{repo: repo, accounts: accounts, now: time.Now}
}

// WithNow overrides the clock used for the default as-of date.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) asOf(asOf *time.Time) time.Time {
	if asOf == nil {
		return shared.Day(s.now())
	}
	return shared.Day(*asOf)
}

// Balance returns the nature-aware balance of an account as of asOf
// (default today), including the opening balance when it applies.
func (s *Service) Balance(ctx context.Context, accountID int64, asOf *time.Time) (decimal.Decimal, error) {
	acc, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return s.balance(ctx, acc, s.asOf(asOf))
}

// BalanceByCode is Balance addressed by account code.
func (s *Service) BalanceByCode(ctx context.Context, code string, asOf *time.Time) (decimal.Decimal, error) {
	acc, err := s.accounts.Resolve(ctx, code)
	if err != nil {
		return decimal.Zero, err
	}
	return s.balance(ctx, acc, s.asOf(asOf))
}

func (s *Service) balance(ctx context.Context, acc accounts.Account, asOf time.Time) (decimal.Decimal, error) {
	m, err := s.repo.Movement(ctx, acc.ID, nil, &asOf)
	if err != nil {
		return decimal.Zero, err
	}
	bal := acc.Nature.Signed(m.Debit, m.Credit)
	if acc.OpeningApplies(asOf) {
		bal = bal.Add(acc.OpeningBalance)
	}
	return shared.Money(bal), nil
}

// PartyBalance returns the current balance of a party sub-account. Positive
// means the customer owes us or we owe the supplier.
func (s *Service) PartyBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	return s.Balance(ctx, accountID, nil)
}

// TrialBalance lists every active leaf account, plus any account carrying
// posted lines, with its totals as of asOf.
func (s *Service) TrialBalance(ctx context.Context, asOf *time.Time) (TrialBalance, error) {
	day := s.asOf(asOf)
	all, err := s.accounts.List(ctx, accounts.ListFilter{})
	if err != nil {
		return TrialBalance{}, err
	}
	moves, err := s.repo.MovementsByAccount(ctx, day)
	if err != nil {
		return TrialBalance{}, err
	}
	tb := TrialBalance{AsOf: day, TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}
	for _, acc := range all {
		m, moved := moves[acc.ID]
		if !moved && !(acc.IsLeaf && acc.IsActive) {
			continue
		}
		if !moved {
			m = Movement{Debit: decimal.Zero, Credit: decimal.Zero}
		}
		bal := acc.Nature.Signed(m.Debit, m.Credit)
		if acc.OpeningApplies(day) {
			bal = bal.Add(acc.OpeningBalance)
		}
		tb.Lines = append(tb.Lines, TrialBalanceLine{
			AccountID:   acc.ID,
			Code:        acc.Code,
			Name:        acc.Name,
			Category:    acc.Category,
			Nature:      acc.Nature,
			DebitTotal:  shared.Money(m.Debit),
			CreditTotal: shared.Money(m.Credit),
			Balance:     shared.Money(bal),
		})
		tb.TotalDebit = tb.TotalDebit.Add(m.Debit)
		tb.TotalCredit = tb.TotalCredit.Add(m.Credit)
	}
	sort.Slice(tb.Lines, func(i, j int) bool { return tb.Lines[i].Code < tb.Lines[j].Code })
	tb.TotalDebit = shared.Money(tb.TotalDebit)
	tb.TotalCredit = shared.Money(tb.TotalCredit)
	return tb, nil
}

// RunningStatement walks the postings of an account between from and to
// inclusive, folding each into a running balance that starts from the
// balance carried into from.
func (s *Service) RunningStatement(ctx context.Context, accountID int64, from, to time.Time) (Statement, error) {
	from, to = shared.Day(from), shared.Day(to)
	if to.Before(from) {
		return Statement{}, fmt.Errorf("balances: statement end %s before start %s", to.Format("2006-01-02"), from.Format("2006-01-02"))
	}
	acc, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return Statement{}, err
	}
	before := from.AddDate(0, 0, -1)
	prior, err := s.repo.Movement(ctx, acc.ID, nil, &before)
	if err != nil {
		return Statement{}, err
	}
	opening := acc.Nature.Signed(prior.Debit, prior.Credit)
	if acc.OpeningApplies(from) {
		opening = opening.Add(acc.OpeningBalance)
	}
	postings, err := s.repo.Postings(ctx, acc.ID, from, to)
	if err != nil {
		return Statement{}, err
	}
	st := Statement{Account: acc, From: from, To: to, Opening: shared.Money(opening)}
	running := opening
	for _, p := range postings {
		running = running.Add(acc.Nature.Signed(p.Debit, p.Credit))
		st.Lines = append(st.Lines, StatementLine{Posting: p, RunningBalance: shared.Money(running)})
	}
	st.Closing = shared.Money(running)
	return st, nil
}

// CheckIntegrity scans posted entries for balance, line and leaf
// violations and verifies the trial balance totals.
func (s *Service) CheckIntegrity(ctx context.Context, asOf *time.Time) (IntegrityReport, error) {
	day := s.asOf(asOf)
	checks, err := s.repo.EntryChecks(ctx, day)
	if err != nil {
		return IntegrityReport{}, err
	}
	report := IntegrityReport{AsOf: day, EntriesScanned: len(checks), TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}
	for _, c := range checks {
		if c.Lines < 2 {
			report.Violations = append(report.Violations, Violation{EntryID: c.EntryID, Number: c.Number, Kind: ViolationTooFewLines,
				Detail: fmt.Sprintf("%d lines", c.Lines)})
		}
		if c.InvalidLines > 0 {
			report.Violations = append(report.Violations, Violation{EntryID: c.EntryID, Number: c.Number, Kind: ViolationLineAmounts,
				Detail: fmt.Sprintf("%d lines without exactly one positive side", c.InvalidLines)})
		}
		if c.NonLeafLines > 0 {
			report.Violations = append(report.Violations, Violation{EntryID: c.EntryID, Number: c.Number, Kind: ViolationNonLeaf,
				Detail: fmt.Sprintf("%d lines on non-leaf accounts", c.NonLeafLines)})
		}
		if !shared.Balanced(c.Debit, c.Credit) {
			report.Violations = append(report.Violations, Violation{EntryID: c.EntryID, Number: c.Number, Kind: ViolationUnbalanced,
				Detail: fmt.Sprintf("debit %s credit %s", c.Debit.StringFixed(2), c.Credit.StringFixed(2))})
		}
		report.TotalDebit = report.TotalDebit.Add(c.Debit)
		report.TotalCredit = report.TotalCredit.Add(c.Credit)
	}
	tb, err := s.TrialBalance(ctx, &day)
	if err != nil {
		return IntegrityReport{}, err
	}
	if !tb.Balanced() {
		report.Violations = append(report.Violations, Violation{Kind: ViolationTrialBalance,
			Detail: fmt.Sprintf("debit %s credit %s", tb.TotalDebit.StringFixed(2), tb.TotalCredit.StringFixed(2))})
	}
	report.TotalDebit = shared.Money(report.TotalDebit)
	report.TotalCredit = shared.Money(report.TotalCredit)
	return report, nil
}
