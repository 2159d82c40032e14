package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/balances"
	jobmetrics "github.com/odyssey-erp/odyssey-ledger/internal/jobs"

	_ "github.com/odyssey-erp/odyssey-ledger/testing"
)

type stubChecker struct {
	report balances.IntegrityReport
	err    error
	asOf   *time.Time
}

func (s *stubChecker) CheckIntegrity(ctx context.Context, asOf *time.Time) (balances.IntegrityReport, error) {
	s.asOf = asOf
	return s.report, s.err
}

func counterValues(t *testing.T, reg *prometheus.Registry, name string) map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	out := make(map[string]float64)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			key := ""
			for _, l := range m.GetLabel() {
				key += l.GetValue() + "|"
			}
			out[key] = m.GetCounter().GetValue()
		}
	}
	return out
}

func TestLedgerIntegrityJobCleanLedger(t *testing.T) {
	reg := prometheus.NewRegistry()
	checker := &stubChecker{report: balances.IntegrityReport{
		AsOf:           time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
		EntriesScanned: 12,
		TotalDebit:     decimal.NewFromInt(900),
		TotalCredit:    decimal.NewFromInt(900),
	}}
	var logs bytes.Buffer
	job := NewLedgerIntegrityJob(checker, slog.New(slog.NewJSONHandler(&logs, nil)), jobmetrics.NewMetrics(reg))

	task, err := NewLedgerIntegrityTask("2024-06-30")
	require.NoError(t, err)
	require.Equal(t, TaskLedgerIntegrity, task.Type())
	require.NoError(t, job.Handle(context.Background(), task))

	require.NotNil(t, checker.asOf)
	require.Equal(t, "2024-06-30", checker.asOf.Format("2006-01-02"))
	require.Contains(t, logs.String(), `"entries":12`)
	require.Equal(t, map[string]float64{TaskLedgerIntegrity + "|success|": 1}, counterValues(t, reg, "odyssey_jobs_total"))
}

func TestLedgerIntegrityJobReportsViolations(t *testing.T) {
	reg := prometheus.NewRegistry()
	checker := &stubChecker{report: balances.IntegrityReport{Violations: []balances.Violation{
		{EntryID: 4, Number: "JE-2024-0004", Kind: balances.ViolationUnbalanced, Detail: "debit 10.00 credit 9.00"},
		{EntryID: 5, Number: "JE-2024-0005", Kind: balances.ViolationUnbalanced, Detail: "debit 3.00 credit 0.00"},
		{EntryID: 5, Number: "JE-2024-0005", Kind: balances.ViolationTooFewLines, Detail: "1 line"},
	}}}
	var logs bytes.Buffer
	job := NewLedgerIntegrityJob(checker, slog.New(slog.NewJSONHandler(&logs, nil)), jobmetrics.NewMetrics(reg))

	report, err := job.Run(context.Background(), nil)
	require.ErrorIs(t, err, ErrIntegrityViolations)
	require.Len(t, report.Violations, 3)
	require.Nil(t, checker.asOf)
	require.Contains(t, logs.String(), "JE-2024-0005")

	require.Equal(t, map[string]float64{
		balances.ViolationUnbalanced + "|":  2,
		balances.ViolationTooFewLines + "|": 1,
	}, counterValues(t, reg, "odyssey_ledger_integrity_violations_total"))
	require.Equal(t, map[string]float64{TaskLedgerIntegrity + "|": 1}, counterValues(t, reg, "odyssey_jobs_failures_total"))
}

func TestLedgerIntegrityJobRejectsBadPayload(t *testing.T) {
	job := NewLedgerIntegrityJob(&stubChecker{}, nil, nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskLedgerIntegrity, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	body, err := json.Marshal(LedgerIntegrityPayload{AsOf: "30/06/2024"})
	require.NoError(t, err)
	err = job.Handle(context.Background(), asynq.NewTask(TaskLedgerIntegrity, body))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestLedgerIntegrityJobPropagatesScanErrors(t *testing.T) {
	boom := errors.New("connection reset")
	job := NewLedgerIntegrityJob(&stubChecker{err: boom}, nil, nil)
	_, err := job.Run(context.Background(), nil)
	require.ErrorIs(t, err, boom)

	var missing *LedgerIntegrityJob
	require.Error(t, missing.Handle(context.Background(), asynq.NewTask(TaskLedgerIntegrity, nil)))
}
