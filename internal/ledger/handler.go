package ledger

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/reports"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/parties"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
)

// Handler serves the read side of the ledger under /reports.
type Handler struct {
	ledger *Ledger
	logger *slog.Logger
}

// NewHandler constructs a report Handler.
func NewHandler(logger *slog.Logger, ledger *Ledger) *Handler {
	return &Handler{ledger: ledger, logger: logger}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/trial-balance", h.trialBalance)
	r.Get("/profit-and-loss", h.profitAndLoss)
	r.Get("/balance-sheet", h.balanceSheet)
	r.Get("/accounts/{code}/balance", h.accountBalance)
	r.Get("/parties/{kind}/{id}/balance", h.partyBalance)
	r.Get("/parties/{kind}/{id}/statement", h.partyStatement)
	r.Get("/integrity", h.integrity)
}

func (h *Handler) trialBalance(w http.ResponseWriter, r *http.Request) {
	asOf, err := httpx.DateQuery(r, "as_of")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	tb, err := h.ledger.TrialBalance(r.Context(), asOf)
	if err != nil {
		h.logger.Error("trial balance", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if wantsCSV(r) {
		csvHeaders(w, fmt.Sprintf("trial-balance-%s.csv", tb.AsOf.Format(httpx.DateLayout)))
		if err := reports.WriteTrialBalanceCSV(w, tb); err != nil {
			h.logger.Error("write trial balance csv", slog.Any("error", err))
		}
		return
	}
	httpx.JSON(w, http.StatusOK, reports.BuildTrialBalance(tb))
}

func (h *Handler) profitAndLoss(w http.ResponseWriter, r *http.Request) {
	asOf, err := httpx.DateQuery(r, "as_of")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	tb, err := h.ledger.TrialBalance(r.Context(), asOf)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, reports.BuildProfitAndLoss(tb))
}

func (h *Handler) balanceSheet(w http.ResponseWriter, r *http.Request) {
	asOf, err := httpx.DateQuery(r, "as_of")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	tb, err := h.ledger.TrialBalance(r.Context(), asOf)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	bs := reports.BuildBalanceSheet(tb)
	httpx.JSON(w, http.StatusOK, map[string]any{"balance_sheet": bs, "balanced": bs.Balanced()})
}

func (h *Handler) accountBalance(w http.ResponseWriter, r *http.Request) {
	asOf, err := httpx.DateQuery(r, "as_of")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	code := chi.URLParam(r, "code")
	balance, err := h.ledger.AccountBalance(r.Context(), code, asOf)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"code": code, "balance": balance})
}

func (h *Handler) partyBalance(w http.ResponseWriter, r *http.Request) {
	kind, id, err := partyParams(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	acc, err := h.ledger.PartyAccount(r.Context(), kind, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	balance, err := h.ledger.Balances.PartyBalance(r.Context(), acc.ID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"account": acc.Code, "balance": balance})
}

// partyStatement defaults to the calendar year up to today.
func (h *Handler) partyStatement(w http.ResponseWriter, r *http.Request) {
	kind, id, err := partyParams(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	from, err := httpx.DateQuery(r, "from")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	to, err := httpx.DateQuery(r, "to")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	end := shared.Day(h.ledger.now())
	if to != nil {
		end = *to
	}
	start := time.Date(end.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	if from != nil {
		start = *from
	}
	if end.Before(start) {
		httpx.RespondError(w, fmt.Errorf("%w: to before from", httpx.ErrValidation))
		return
	}
	st, err := h.ledger.PartyStatement(r.Context(), kind, id, start, end)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if wantsCSV(r) {
		csvHeaders(w, fmt.Sprintf("statement-%s-%s.csv", st.Account.Code, end.Format(httpx.DateLayout)))
		if err := reports.WriteStatementCSV(w, st); err != nil {
			h.logger.Error("write statement csv", slog.Any("error", err))
		}
		return
	}
	httpx.JSON(w, http.StatusOK, st)
}

func (h *Handler) integrity(w http.ResponseWriter, r *http.Request) {
	asOf, err := httpx.DateQuery(r, "as_of")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	report, err := h.ledger.CheckIntegrity(r.Context(), asOf)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"report": report, "ok": report.OK()})
}

func partyParams(r *http.Request) (parties.Kind, int64, error) {
	kind := parties.Kind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		return "", 0, fmt.Errorf("%w: unknown party kind %q", httpx.ErrValidation, kind)
	}
	id, err := httpx.IDParam(r, "id")
	return kind, id, err
}

func wantsCSV(r *http.Request) bool {
	return r.URL.Query().Get("format") == "csv"
}

func csvHeaders(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
}
