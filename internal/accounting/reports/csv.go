package reports

import (
	"bufio"
	"encoding/csv"
	"io"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/balances"
)

const (
	csvFlushEvery = 200
	csvBufferSize = 32 * 1024
	dateLayout    = "2006-01-02"
)

type csvStreamer struct {
	buf          *bufio.Writer
	csv          *csv.Writer
	flushEvery   int
	pendingLines int
}

func newCSVStreamer(w io.Writer) *csvStreamer {
	buf := bufio.NewWriterSize(w, csvBufferSize)
	writer := csv.NewWriter(buf)
	writer.UseCRLF = true
	return &csvStreamer{buf: buf, csv: writer, flushEvery: csvFlushEvery}
}

func (s *csvStreamer) writeRow(row ...string) error {
	if err := s.csv.Write(row); err != nil {
		return err
	}
	s.pendingLines++
	if s.pendingLines >= s.flushEvery {
		return s.flush()
	}
	return nil
}

func (s *csvStreamer) flush() error {
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		return err
	}
	s.pendingLines = 0
	return s.buf.Flush()
}

func amount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// WriteStatementCSV streams a running account statement. The opening and
// closing balances frame the posting rows.
func WriteStatementCSV(w io.Writer, st balances.Statement) error {
	s := newCSVStreamer(w)
	if err := s.writeRow("date", "number", "reference", "description", "debit", "credit", "balance"); err != nil {
		return err
	}
	if err := s.writeRow(st.From.Format(dateLayout), "", "", "Opening balance", "", "", amount(st.Opening)); err != nil {
		return err
	}
	for _, line := range st.Lines {
		err := s.writeRow(line.Date.Format(dateLayout), line.Number, line.Reference, line.Description,
			amount(line.Debit), amount(line.Credit), amount(line.RunningBalance))
		if err != nil {
			return err
		}
	}
	if err := s.writeRow(st.To.Format(dateLayout), "", "", "Closing balance", "", "", amount(st.Closing)); err != nil {
		return err
	}
	return s.flush()
}

// WriteTrialBalanceCSV streams a trial balance with a totals footer.
func WriteTrialBalanceCSV(w io.Writer, tb balances.TrialBalance) error {
	s := newCSVStreamer(w)
	if err := s.writeRow("code", "name", "category", "nature", "debit", "credit", "balance"); err != nil {
		return err
	}
	for _, line := range tb.Lines {
		err := s.writeRow(line.Code, line.Name, string(line.Category), string(line.Nature),
			amount(line.DebitTotal), amount(line.CreditTotal), amount(line.Balance))
		if err != nil {
			return err
		}
	}
	if err := s.writeRow("", "Total", "", "", amount(tb.TotalDebit), amount(tb.TotalCredit), ""); err != nil {
		return err
	}
	return s.flush()
}
