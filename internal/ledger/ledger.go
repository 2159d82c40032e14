// Package ledger assembles the accounting core and exposes its read and
// write interface to the surrounding application.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/balances"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/documents"
	"github.com/odyssey-erp/odyssey-ledger/internal/integration"
	"github.com/odyssey-erp/odyssey-ledger/internal/parties"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
	internalShared "github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// AuditPort records lifecycle events of periods and journal entries.
type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// Repositories bundles the storage of every component.
type Repositories struct {
	Accounts  accounts.Repository
	Periods   periods.Repository
	Journals  journals.Repository
	Balances  balances.Repository
	Documents documents.Repository
	Parties   parties.Repository
}

// PostgresRepositories returns the pgx backed repositories.
func PostgresRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Accounts:  accounts.NewRepository(pool),
		Periods:   periods.NewRepository(pool),
		Journals:  journals.NewRepository(pool),
		Balances:  balances.NewRepository(pool),
		Documents: documents.NewRepository(pool),
		Parties:   parties.NewRepository(pool),
	}
}

// Config carries the settings of the core.
type Config struct {
	WellKnown      accounts.WellKnownCodes
	PartyCodeWidth int
	ReopenPolicy   periods.ReopenPolicy
	Audit          AuditPort
	Logger         *slog.Logger
	// Now overrides the clock of every component when set.
	Now func() time.Time
}

// Ledger is the accounting core.
type Ledger struct {
	Accounts  *accounts.Service
	Periods   *periods.Service
	Journals  *journals.Service
	Balances  *balances.Service
	Parties   *parties.Service
	Hooks     *integration.Hooks
	documents documents.Repository
	cache     *cache.ReportCache
	now       func() time.Time
}

// New wires the components over repos and one transaction manager.
func New(repos Repositories, tx db.TxManager, cfg Config) *Ledger {
	accountSvc := accounts.NewService(repos.Accounts, tx, cfg.WellKnown)
	periodSvc := periods.NewService(repos.Periods, tx, cfg.ReopenPolicy, cfg.Audit)
	journalSvc := journals.NewService(repos.Journals, tx, accountSvc, periodSvc, cfg.Audit)
	balanceSvc := balances.NewService(repos.Balances, accountSvc)
	partySvc := parties.NewService(repos.Parties, tx, accountSvc, repos.Documents, cfg.PartyCodeWidth)
	hooks := integration.NewHooks(tx, journalSvc, accountSvc, partySvc, repos.Documents, cfg.Logger)
	now := time.Now
	if cfg.Now != nil {
		now = cfg.Now
		periodSvc.WithNow(cfg.Now)
		journalSvc.WithNow(cfg.Now)
		balanceSvc.WithNow(cfg.Now)
		partySvc.WithNow(cfg.Now)
		hooks.WithNow(cfg.Now)
	}
	return &Ledger{
		Accounts:  accountSvc,
		Periods:   periodSvc,
		Journals:  journalSvc,
		Balances:  balanceSvc,
		Parties:   partySvc,
		Hooks:     hooks,
		documents: repos.Documents,
		now:       now,
	}
}

// UseCache serves trial balances from c and bumps it on every change to
// posted state, the chart or opening balances.
func (l *Ledger) UseCache(c *cache.ReportCache) {
	if c == nil {
		return
	}
	l.cache = c
	l.Journals.Notify(c)
	l.Accounts.Notify(c)
}

// Validate checks the well-known account map against the registry.
func (l *Ledger) Validate(ctx context.Context) error {
	return l.Accounts.ValidateWellKnown(ctx)
}

// TrialBalance lists every postable account with its totals as of asOf.
func (l *Ledger) TrialBalance(ctx context.Context, asOf *time.Time) (balances.TrialBalance, error) {
	if l.cache == nil {
		return l.Balances.TrialBalance(ctx, asOf)
	}
	day := shared.Day(l.now())
	if asOf != nil {
		day = shared.Day(*asOf)
	}
	key, err := l.cache.Key(ctx, "trial_balance", day.Format(time.DateOnly))
	if err != nil {
		return l.Balances.TrialBalance(ctx, &day)
	}
	var tb balances.TrialBalance
	err = l.cache.Fetch(ctx, key, &tb, func(ctx context.Context) (any, error) {
		return l.Balances.TrialBalance(ctx, &day)
	})
	return tb, err
}

// AccountBalance returns the balance of the account with code.
func (l *Ledger) AccountBalance(ctx context.Context, code string, asOf *time.Time) (decimal.Decimal, error) {
	return l.Balances.BalanceByCode(ctx, code, asOf)
}

// PartyAccount returns the sub-account of a party.
func (l *Ledger) PartyAccount(ctx context.Context, kind parties.Kind, partyID int64) (accounts.Account, error) {
	acc, ok, err := l.Parties.AccountFor(ctx, kind, partyID)
	if err != nil {
		return accounts.Account{}, err
	}
	if !ok {
		return accounts.Account{}, fmt.Errorf("%w: %s %d has no ledger account", shared.ErrNotFound, kind, partyID)
	}
	return acc, nil
}

// PartyBalance returns the current balance of a party.
func (l *Ledger) PartyBalance(ctx context.Context, kind parties.Kind, partyID int64) (decimal.Decimal, error) {
	acc, err := l.PartyAccount(ctx, kind, partyID)
	if err != nil {
		return decimal.Zero, err
	}
	return l.Balances.PartyBalance(ctx, acc.ID)
}

// PartyStatement walks a party's postings between from and to.
func (l *Ledger) PartyStatement(ctx context.Context, kind parties.Kind, partyID int64, from, to time.Time) (balances.Statement, error) {
	acc, err := l.PartyAccount(ctx, kind, partyID)
	if err != nil {
		return balances.Statement{}, err
	}
	return l.Balances.RunningStatement(ctx, acc.ID, from, to)
}

// ListEntries returns entry headers matching filter.
func (l *Ledger) ListEntries(ctx context.Context, filter journals.ListFilter) ([]journals.Entry, error) {
	return l.Journals.List(ctx, filter)
}

// EntryDetail returns an entry with its lines.
func (l *Ledger) EntryDetail(ctx context.Context, entryID int64) (journals.Entry, error) {
	return l.Journals.Get(ctx, entryID)
}

// CreateManualEntry drafts a manual entry; the caller posts it later.
func (l *Ledger) CreateManualEntry(ctx context.Context, in journals.ManualEntryInput) (journals.Entry, error) {
	return l.Journals.CreateManualEntry(ctx, in)
}

// CheckIntegrity scans posted entries for invariant violations.
func (l *Ledger) CheckIntegrity(ctx context.Context, asOf *time.Time) (balances.IntegrityReport, error) {
	return l.Balances.CheckIntegrity(ctx, asOf)
}

// Invoice returns a stored invoice.
func (l *Ledger) Invoice(ctx context.Context, kind documents.Kind, id int64) (documents.Invoice, error) {
	return l.documents.GetInvoice(ctx, kind, id)
}

// AuditLogs returns the edit history of an invoice.
func (l *Ledger) AuditLogs(ctx context.Context, kind documents.Kind, id int64) ([]documents.InvoiceAuditLog, error) {
	return l.documents.AuditLogs(ctx, kind, id)
}

// SeedResult reports what Seed created.
type SeedResult struct {
	AccountsCreated int            `json:"accounts_created"`
	Period          periods.Period `json:"period"`
	PeriodCreated   bool           `json:"period_created"`
}

// Seed installs the default chart and opens the fiscal year when no period
// overlaps it yet. Running it twice changes nothing.
func (l *Ledger) Seed(ctx context.Context, year int) (SeedResult, error) {
	var res SeedResult
	n, err := l.Accounts.SeedChart(ctx, accounts.DefaultChart)
	if err != nil {
		return res, err
	}
	res.AccountsCreated = n
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	res.Period, err = l.Periods.Create(ctx, periods.CreateInput{
		Name:      fmt.Sprintf("FY%d", year),
		StartDate: start,
		EndDate:   start.AddDate(1, 0, -1),
	})
	switch {
	case err == nil:
		res.PeriodCreated = true
	case errors.Is(err, shared.ErrPeriodOverlap):
		p, ok, findErr := l.Periods.FindForDate(ctx, start)
		if findErr != nil {
			return res, findErr
		}
		if !ok {
			return res, err
		}
		res.Period = p
	default:
		return res, err
	}
	return res, nil
}
