package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/balances"
	jobmetrics "github.com/odyssey-erp/odyssey-ledger/internal/jobs"
)

const (
	// TaskLedgerIntegrity scans posted entries for invariant violations.
	TaskLedgerIntegrity = "ledger:integrity"
)

// ErrIntegrityViolations is returned when a scan finds violations.
var ErrIntegrityViolations = errors.New("ledger integrity: violations found")

// LedgerIntegrityPayload selects the as-of date of the scan. An empty
// AsOf scans up to today.
type LedgerIntegrityPayload struct {
	AsOf string `json:"as_of,omitempty"`
}

// IntegrityChecker runs the ledger scan.
type IntegrityChecker interface {
	CheckIntegrity(ctx context.Context, asOf *time.Time) (balances.IntegrityReport, error)
}

// LedgerIntegrityJob verifies posted entries and trial balance totals.
type LedgerIntegrityJob struct {
	Checker IntegrityChecker
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewLedgerIntegrityJob constructs the job handler.
func NewLedgerIntegrityJob(checker IntegrityChecker, logger *slog.Logger, metrics *jobmetrics.Metrics) *LedgerIntegrityJob {
	return &LedgerIntegrityJob{Checker: checker, Logger: logger, Metrics: metrics}
}

// NewLedgerIntegrityTask creates an Asynq task for the integrity scan.
func NewLedgerIntegrityTask(asOf string) (*asynq.Task, error) {
	body, err := json.Marshal(LedgerIntegrityPayload{AsOf: asOf})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrity, body, asynq.Queue(QueueDefault), asynq.MaxRetry(1)), nil
}

// Handle executes the integrity scan.
func (j *LedgerIntegrityJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Checker == nil {
		return errors.New("ledger integrity: checker not configured")
	}
	var payload LedgerIntegrityPayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("ledger integrity: decode payload: %w", asynq.SkipRetry)
		}
	}
	var asOf *time.Time
	if payload.AsOf != "" {
		d, err := time.Parse("2006-01-02", payload.AsOf)
		if err != nil {
			return fmt.Errorf("ledger integrity: as_of %q: %w", payload.AsOf, asynq.SkipRetry)
		}
		asOf = &d
	}
	_, err := j.Run(ctx, asOf)
	return err
}

// Run performs one scan and logs every violation. It fails with
// ErrIntegrityViolations when the ledger is not clean.
func (j *LedgerIntegrityJob) Run(ctx context.Context, asOf *time.Time) (balances.IntegrityReport, error) {
	tracker := j.Metrics.Track(TaskLedgerIntegrity)
	report, err := j.Checker.CheckIntegrity(ctx, asOf)
	if err != nil {
		j.log().Error("ledger integrity scan failed", slog.Any("error", err))
		return report, tracker.End(err)
	}
	counts := make(map[string]int)
	for _, v := range report.Violations {
		counts[v.Kind]++
		j.log().Error("ledger integrity violation",
			slog.Int64("entry_id", v.EntryID),
			slog.String("number", v.Number),
			slog.String("kind", v.Kind),
			slog.String("detail", v.Detail))
	}
	for kind, n := range counts {
		j.Metrics.AddViolations(kind, n)
	}
	j.log().Info("ledger integrity scan",
		slog.String("as_of", report.AsOf.Format("2006-01-02")),
		slog.Int("entries", report.EntriesScanned),
		slog.String("total_debit", report.TotalDebit.StringFixed(2)),
		slog.String("total_credit", report.TotalCredit.StringFixed(2)),
		slog.Int("violations", len(report.Violations)))
	if !report.OK() {
		return report, tracker.End(fmt.Errorf("%w: %d", ErrIntegrityViolations, len(report.Violations)))
	}
	return report, tracker.End(nil)
}

func (j *LedgerIntegrityJob) log() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
