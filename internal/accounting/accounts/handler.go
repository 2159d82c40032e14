package accounts

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
)

// Handler exposes the chart of accounts over JSON.
type Handler struct {
	service   *Service
	logger    *slog.Logger
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers account routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/types", h.listTypes)
	r.Post("/types", h.createType)
	r.Get("/{code}", h.get)
	r.Post("/{code}/deactivate", h.deactivate)
	r.Post("/{code}/activate", h.activate)
	r.Delete("/{code}", h.delete)
}

type createTypeRequest struct {
	Code     string `json:"code" validate:"required,max=32"`
	Name     string `json:"name" validate:"required,max=200"`
	Category string `json:"category" validate:"required,oneof=asset liability equity revenue expense"`
	Nature   string `json:"nature" validate:"omitempty,oneof=debit credit"`
	ParentID *int64 `json:"parent_id" validate:"omitempty,gt=0"`
}

type createAccountRequest struct {
	Code               string          `json:"code" validate:"required,max=32"`
	Name               string          `json:"name" validate:"required,max=200"`
	TypeID             int64           `json:"type_id" validate:"required,gt=0"`
	ParentCode         string          `json:"parent_code" validate:"omitempty,max=32"`
	IsCash             bool            `json:"is_cash"`
	IsBank             bool            `json:"is_bank"`
	IsControl          bool            `json:"is_control"`
	IsLeaf             *bool           `json:"is_leaf"`
	OpeningBalance     decimal.Decimal `json:"opening_balance"`
	OpeningBalanceDate string          `json:"opening_balance_date" validate:"omitempty,datetime=2006-01-02"`
	Description        string          `json:"description" validate:"max=1000"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{ActiveOnly: q.Get("active") == "true", LeafOnly: q.Get("leaf") == "true"}
	accounts, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list accounts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"accounts": accounts})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	acc, err := h.service.Resolve(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, acc)
}

func (h *Handler) listTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.service.ListTypes(r.Context())
	if err != nil {
		h.logger.Error("list account types", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"types": types})
}

func (h *Handler) createType(w http.ResponseWriter, r *http.Request) {
	var req createTypeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	t, err := h.service.CreateType(r.Context(), CreateTypeInput{
		Code:     req.Code,
		Name:     req.Name,
		Category: Category(req.Category),
		Nature:   Nature(req.Nature),
		ParentID: req.ParentID,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, t)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	in := CreateAccountInput{
		Code:           req.Code,
		Name:           req.Name,
		TypeID:         req.TypeID,
		IsCash:         req.IsCash,
		IsBank:         req.IsBank,
		IsControl:      req.IsControl,
		IsLeaf:         req.IsLeaf,
		OpeningBalance: req.OpeningBalance,
		Description:    req.Description,
	}
	if req.OpeningBalanceDate != "" {
		d, _ := time.Parse(httpx.DateLayout, req.OpeningBalanceDate)
		in.OpeningBalanceDate = &d
	}
	if req.ParentCode != "" {
		parent, err := h.service.Resolve(r.Context(), req.ParentCode)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		in.ParentID = &parent.ID
	}
	acc, err := h.service.CreateAccount(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, acc)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	h.withAccount(w, r, h.service.Deactivate)
}

func (h *Handler) activate(w http.ResponseWriter, r *http.Request) {
	h.withAccount(w, r, h.service.Activate)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	h.withAccount(w, r, h.service.Delete)
}

func (h *Handler) withAccount(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id int64) error) {
	acc, err := h.service.Resolve(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := op(r.Context(), acc.ID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
