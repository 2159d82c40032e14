package ledger_test

import (
	"encoding/csv"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/balances"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/reports"
	"github.com/odyssey-erp/odyssey-ledger/internal/ledger"
	"github.com/odyssey-erp/odyssey-ledger/internal/parties"
)

func newReportServer(t *testing.T, e env) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	r.Route("/reports", ledger.NewHandler(slog.New(slog.DiscardHandler), e.ledger).MountRoutes)
	return r
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestTrialBalanceEndpoint(t *testing.T) {
	e := newEnv(t)
	e.sale(t, "S1", 0, line("1", "100", "40"))
	srv := newReportServer(t, e)

	rr := get(t, srv, "/reports/trial-balance?as_of=2024-06-30")
	require.Equal(t, http.StatusOK, rr.Code)
	var tb reports.TrialBalance
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &tb))
	require.True(t, tb.Balanced)
	require.Equal(t, "140.00", tb.TotalDebit.StringFixed(2))

	rr = get(t, srv, "/reports/trial-balance?as_of=2024-06-30&format=csv")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	require.Contains(t, rr.Header().Get("Content-Disposition"), "trial-balance-2024-06-30.csv")
	rows, err := csv.NewReader(strings.NewReader(rr.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Equal(t, []string{"code", "name", "category", "nature", "debit", "credit", "balance"}, rows[0])

	rr = get(t, srv, "/reports/trial-balance?as_of=30-06-2024")
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestStatementEndpoints(t *testing.T) {
	e := newEnv(t)
	c := e.party(t, parties.KindCustomer, "عميل")
	e.sale(t, "S2", c.ID, line("2", "100", "0"))
	srv := newReportServer(t, e)

	rr := get(t, srv, "/reports/parties/customer/1/statement")
	require.Equal(t, http.StatusOK, rr.Code)
	var st balances.Statement
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &st))
	require.Equal(t, "2024-01-01", st.From.Format("2006-01-02"))
	require.Equal(t, "2024-07-01", st.To.Format("2006-01-02"))
	require.Equal(t, "11030001", st.Account.Code)
	require.Equal(t, "200.00", st.Closing.StringFixed(2))

	rr = get(t, srv, "/reports/parties/customer/1/statement?from=2024-01-01&to=2024-12-31&format=csv")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Header().Get("Content-Disposition"), "statement-11030001-2024-12-31.csv")
	require.Contains(t, rr.Body.String(), "Closing balance")

	rr = get(t, srv, "/reports/parties/customer/1/balance")
	require.Equal(t, http.StatusOK, rr.Code)
	var party struct {
		Account string          `json:"account"`
		Balance decimal.Decimal `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &party))
	require.Equal(t, "11030001", party.Account)
	require.Equal(t, "200.00", party.Balance.StringFixed(2))

	require.Equal(t, http.StatusBadRequest, get(t, srv, "/reports/parties/customer/1/statement?from=2024-05-01&to=2024-04-01").Code)
	require.Equal(t, http.StatusBadRequest, get(t, srv, "/reports/parties/vendor/1/balance").Code)
	require.Equal(t, http.StatusNotFound, get(t, srv, "/reports/parties/supplier/1/balance").Code)
}

func TestAccountAndStatementReports(t *testing.T) {
	e := newEnv(t)
	e.sale(t, "S3", 0, line("1", "100", "40"))
	srv := newReportServer(t, e)

	rr := get(t, srv, "/reports/accounts/4001/balance")
	require.Equal(t, http.StatusOK, rr.Code)
	var account struct {
		Code    string          `json:"code"`
		Balance decimal.Decimal `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &account))
	require.Equal(t, "4001", account.Code)
	require.Equal(t, "100.00", account.Balance.StringFixed(2))
	require.Equal(t, http.StatusNotFound, get(t, srv, "/reports/accounts/9999/balance").Code)

	rr = get(t, srv, "/reports/profit-and-loss")
	require.Equal(t, http.StatusOK, rr.Code)
	var pl reports.ProfitAndLoss
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &pl))
	require.Equal(t, "60.00", pl.NetIncome.StringFixed(2))

	rr = get(t, srv, "/reports/balance-sheet")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"balanced":true`)

	rr = get(t, srv, "/reports/integrity")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"ok":true`)
}
