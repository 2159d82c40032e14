// Package cli holds the operator commands of the ledger binary. Commands
// return process exit codes: 0 success, 1 failure, 2 usage, 10 findings.
package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/balances"
	"github.com/odyssey-erp/odyssey-ledger/internal/ledger"
)

// ExitFindings is returned when a check ran but found problems.
const ExitFindings = 10

// Core is the subset of the ledger the operator commands drive.
type Core interface {
	Validate(ctx context.Context) error
	CheckIntegrity(ctx context.Context, asOf *time.Time) (balances.IntegrityReport, error)
}

// LedgerCLI runs checks against a live ledger.
type LedgerCLI struct {
	core Core
}

// NewLedgerCLI constructs the helper.
func NewLedgerCLI(core Core) *LedgerCLI {
	return &LedgerCLI{core: core}
}

// IntegrityOptions defines the flags of the integrity commands.
type IntegrityOptions struct {
	AsOf       string
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// SeedOptions defines the flags of the seed command.
type SeedOptions struct {
	Year   int
	Stdout io.Writer
	Stderr io.Writer
}

// Seeder installs the default chart and fiscal year.
type Seeder interface {
	Seed(ctx context.Context, year int) (ledger.SeedResult, error)
}

// ValidateOptions defines the output of the validate command.
type ValidateOptions struct {
	Stdout io.Writer
	Stderr io.Writer
}

// ParseIntegrityFlags reads -as-of and -json.
func ParseIntegrityFlags(args []string) (IntegrityOptions, error) {
	var opts IntegrityOptions
	fs := flag.NewFlagSet("integrity", flag.ContinueOnError)
	fs.StringVar(&opts.AsOf, "as-of", "", "scan entries dated up to YYYY-MM-DD (default today)")
	fs.BoolVar(&opts.JSONOutput, "json", false, "print the report as JSON")
	if err := fs.Parse(args); err != nil {
		return IntegrityOptions{}, err
	}
	if opts.AsOf != "" {
		if _, err := time.Parse(time.DateOnly, opts.AsOf); err != nil {
			fmt.Fprintf(fs.Output(), "invalid -as-of %q (expected YYYY-MM-DD)\n", opts.AsOf)
			return IntegrityOptions{}, err
		}
	}
	return opts, nil
}

// ParseSeedFlags reads -year, defaulting to the current year.
func ParseSeedFlags(args []string, now time.Time) (SeedOptions, error) {
	opts := SeedOptions{Year: now.Year()}
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fs.IntVar(&opts.Year, "year", opts.Year, "fiscal year to open")
	if err := fs.Parse(args); err != nil {
		return SeedOptions{}, err
	}
	return opts, nil
}

// SeedCommand prepares an empty database for postings.
func SeedCommand(ctx context.Context, seeder Seeder, opts SeedOptions) int {
	stdout, stderr := writers(opts.Stdout, opts.Stderr)
	res, err := seeder.Seed(ctx, opts.Year)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "seed: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(stdout, "accounts created: %d\n", res.AccountsCreated)
	state := "exists"
	if res.PeriodCreated {
		state = "created"
	}
	_, _ = fmt.Fprintf(stdout, "period %s %s..%s %s\n", res.Period.Name,
		res.Period.StartDate.Format(time.DateOnly), res.Period.EndDate.Format(time.DateOnly), state)
	return 0
}

// ValidateCommand checks that every well-known account resolves.
func (c *LedgerCLI) ValidateCommand(ctx context.Context, opts ValidateOptions) int {
	stdout, stderr := writers(opts.Stdout, opts.Stderr)
	if err := c.core.Validate(ctx); err != nil {
		_, _ = fmt.Fprintf(stderr, "validate: %v\n", err)
		return ExitFindings
	}
	_, _ = fmt.Fprintln(stdout, "well-known accounts OK")
	return 0
}

// IntegrityCommand scans posted entries and prints the report.
func (c *LedgerCLI) IntegrityCommand(ctx context.Context, opts IntegrityOptions) int {
	stdout, stderr := writers(opts.Stdout, opts.Stderr)
	var asOf *time.Time
	if opts.AsOf != "" {
		d, err := time.Parse(time.DateOnly, opts.AsOf)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "integrity: invalid as-of %q\n", opts.AsOf)
			return 2
		}
		asOf = &d
	}
	report, err := c.core.CheckIntegrity(ctx, asOf)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "integrity: %v\n", err)
		return 1
	}
	if opts.JSONOutput {
		if err := json.NewEncoder(stdout).Encode(report); err != nil {
			_, _ = fmt.Fprintf(stderr, "integrity: encode json: %v\n", err)
			return 1
		}
	} else {
		renderIntegrity(stdout, report)
	}
	if !report.OK() {
		return ExitFindings
	}
	return 0
}

func renderIntegrity(out io.Writer, report balances.IntegrityReport) {
	_, _ = fmt.Fprintf(out, "Ledger integrity as of %s: %d posted entries, debit %s credit %s\n",
		report.AsOf.Format(time.DateOnly), report.EntriesScanned,
		report.TotalDebit.StringFixed(2), report.TotalCredit.StringFixed(2))
	if report.OK() {
		_, _ = fmt.Fprintln(out, "No violations.")
		return
	}
	_, _ = fmt.Fprintf(out, "%d violation(s):\n", len(report.Violations))
	for _, v := range report.Violations {
		if v.EntryID == 0 {
			_, _ = fmt.Fprintf(out, "  - %s: %s\n", v.Kind, v.Detail)
			continue
		}
		_, _ = fmt.Fprintf(out, "  - %s #%d %s: %s\n", v.Number, v.EntryID, v.Kind, v.Detail)
	}
}

func writers(stdout, stderr io.Writer) (io.Writer, io.Writer) {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return stdout, stderr
}
