// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	internalShared "github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// ErrValidation marks malformed request payloads.
var ErrValidation = errors.New("validation failed")

// RespondError maps ledger errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var conflict *shared.ConflictError
	var invalid validator.ValidationErrors
	switch {
	case errors.As(err, &invalid):
		fields := make(map[string]string, len(invalid))
		for _, fe := range invalid {
			fields[fe.Field()] = fe.Tag()
		}
		JSON(w, http.StatusBadRequest, ProblemDetail{
			Title:  "Validation Failed",
			Status: http.StatusBadRequest,
			Detail: err.Error(),
			Fields: fields,
		})
	case errors.As(err, &conflict):
		JSON(w, http.StatusConflict, ProblemDetail{
			Title:    "Conflict",
			Status:   http.StatusConflict,
			Detail:   err.Error(),
			Blockers: conflict.Blockers,
		})
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrDuplicateCode),
		errors.Is(err, shared.ErrEntryPosted),
		errors.Is(err, shared.ErrEntryNotPosted),
		errors.Is(err, shared.ErrAlreadyClosed),
		errors.Is(err, shared.ErrAlreadyOpen),
		errors.Is(err, shared.ErrSourceAlreadyLinked),
		errors.Is(err, shared.ErrAccountInUse),
		errors.Is(err, shared.ErrHasActiveChildren),
		errors.Is(err, shared.ErrPeriodOverlap),
		errors.Is(err, shared.ErrConflict),
		errors.Is(err, internalShared.ErrIdempotencyConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrReopenDenied):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, shared.ErrConfigurationMissing):
		Problem(w, http.StatusServiceUnavailable, "Configuration Missing", err.Error())
	case errors.Is(err, shared.ErrInvalidCategory),
		errors.Is(err, shared.ErrInvalidNature),
		errors.Is(err, shared.ErrInvalidParent),
		errors.Is(err, shared.ErrInvalidLeaf),
		errors.Is(err, shared.ErrCodeSpaceExhausted),
		errors.Is(err, shared.ErrUnbalanced),
		errors.Is(err, shared.ErrInvalidLineAmounts),
		errors.Is(err, shared.ErrInsufficientLines),
		errors.Is(err, shared.ErrAccountNotLeaf),
		errors.Is(err, shared.ErrAccountInactive),
		errors.Is(err, shared.ErrNotCashAccount),
		errors.Is(err, shared.ErrPeriodClosed),
		errors.Is(err, shared.ErrPeriodMissing):
		Problem(w, http.StatusUnprocessableEntity, "Unprocessable Entity", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
