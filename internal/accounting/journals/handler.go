package journals

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

const idempotencyScope = "journals.manual"

// IdempotencyKeys deduplicates manual entry submissions.
type IdempotencyKeys interface {
	Claim(ctx context.Context, scope, key string) error
	Release(ctx context.Context, scope, key string) error
}

// Handler exposes journal entries over JSON.
type Handler struct {
	service   *Service
	logger    *slog.Logger
	validator *validator.Validate
	keys      IdempotencyKeys
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// WithIdempotency makes POST / honour the Idempotency-Key header.
func (h *Handler) WithIdempotency(keys IdempotencyKeys) *Handler {
	h.keys = keys
	return h
}

type manualLineRequest struct {
	AccountCode string          `json:"account_code" validate:"required,max=32"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description" validate:"max=500"`
}

type manualEntryRequest struct {
	Date        string              `json:"date" validate:"required,datetime=2006-01-02"`
	Reference   string              `json:"reference" validate:"max=200"`
	Description string              `json:"description" validate:"max=1000"`
	Lines       []manualLineRequest `json:"lines" validate:"dive"`
}

type lineRequest struct {
	AccountID   int64           `json:"account_id" validate:"required,gt=0"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description" validate:"max=500"`
}

type unpostRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		Status:          Status(q.Get("status")),
		EntryType:       EntryType(q.Get("entry_type")),
		ReferencePrefix: q.Get("reference"),
		AccountCode:     q.Get("account_code"),
	}
	var err error
	if filter.From, err = httpx.DateQuery(r, "from"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if filter.To, err = httpx.DateQuery(r, "to"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if raw := q.Get("limit"); raw != "" {
		filter.Limit, _ = strconv.Atoi(raw)
	}
	entries, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list journals", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	entry, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req manualEntryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	date, _ := time.Parse(httpx.DateLayout, req.Date)
	in := ManualEntryInput{
		Date:        date,
		Reference:   req.Reference,
		Description: req.Description,
		CreatedBy:   shared.ActorFromContext(r.Context()),
	}
	for _, l := range req.Lines {
		in.Lines = append(in.Lines, ManualLineInput{AccountCode: l.AccountCode, Debit: l.Debit, Credit: l.Credit, Description: l.Description})
	}
	key := r.Header.Get(shared.IdempotencyHeader)
	if key != "" && h.keys != nil {
		if err := h.keys.Claim(r.Context(), idempotencyScope, key); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	entry, err := h.service.CreateManualEntry(r.Context(), in)
	if err != nil {
		if key != "" && h.keys != nil {
			if relErr := h.keys.Release(r.Context(), idempotencyScope, key); relErr != nil {
				h.logger.Warn("release idempotency key", slog.String("key", key), slog.Any("error", relErr))
			}
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id, shared.ActorFromContext(r.Context())); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AddLine(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	in, ok := h.decodeLine(w, r)
	if !ok {
		return
	}
	line, err := h.service.AddLine(r.Context(), id, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, line)
}

func (h *Handler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	lineID, err := httpx.IDParam(r, "lineID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	in, ok := h.decodeLine(w, r)
	if !ok {
		return
	}
	line, err := h.service.UpdateLine(r.Context(), lineID, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, line)
}

func (h *Handler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	lineID, err := httpx.IDParam(r, "lineID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.RemoveLine(r.Context(), lineID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	entry, err := h.service.Post(r.Context(), id, shared.ActorFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("journal posted", slog.Int64("entry_id", entry.ID), slog.String("number", entry.Number))
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) Unpost(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req unpostRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	entry, err := h.service.Unpost(r.Context(), id, shared.ActorFromContext(r.Context()), req.Reason)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("journal unposted", slog.Int64("entry_id", entry.ID), slog.String("reason", req.Reason))
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) decodeLine(w http.ResponseWriter, r *http.Request) (LineInput, bool) {
	var req lineRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return LineInput{}, false
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return LineInput{}, false
	}
	return LineInput{AccountID: req.AccountID, Debit: req.Debit, Credit: req.Credit, Description: req.Description}, true
}
