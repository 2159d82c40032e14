package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

func TestRespondErrorStatusMapping(t *testing.T) {
	cases := map[string]struct {
		err    error
		status int
	}{
		"validation":    {fmt.Errorf("%w: bad id", ErrValidation), http.StatusBadRequest},
		"not found":     {fmt.Errorf("%w: account 9", shared.ErrNotFound), http.StatusNotFound},
		"duplicate":     {shared.ErrDuplicateCode, http.StatusConflict},
		"posted":        {fmt.Errorf("%w: JE-2024-0001", shared.ErrEntryPosted), http.StatusConflict},
		"reopen denied": {shared.ErrReopenDenied, http.StatusForbidden},
		"unbalanced":    {shared.ErrUnbalanced, http.StatusUnprocessableEntity},
		"closed period": {shared.ErrPeriodClosed, http.StatusUnprocessableEntity},
		"config":        {&shared.ConfigurationError{Key: "cash"}, http.StatusServiceUnavailable},
		"unknown":       {errors.New("boom"), http.StatusInternalServerError},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			RespondError(rr, tc.err)
			require.Equal(t, tc.status, rr.Code)
			var body ProblemDetail
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			require.Equal(t, tc.status, body.Status)
		})
	}
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, errors.New("pq: password authentication failed"))
	require.NotContains(t, rr.Body.String(), "password")
}

func TestRespondErrorListsBlockers(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, &shared.ConflictError{Op: "unpost invoice S-1", Blockers: []string{"PAY-1", "PAY-2"}})
	require.Equal(t, http.StatusConflict, rr.Code)
	var body ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, []string{"PAY-1", "PAY-2"}, body.Blockers)
}

func TestRespondErrorReportsFieldErrors(t *testing.T) {
	type request struct {
		Code string `validate:"required"`
	}
	err := validator.New().Struct(request{})
	rr := httptest.NewRecorder()
	RespondError(rr, err)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	var body ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, map[string]string{"Code": "required"}, body.Fields)
}

func TestRequestParsing(t *testing.T) {
	r := chi.NewRouter()
	var (
		id    int64
		idErr error
	)
	r.Get("/items/{id}", func(w http.ResponseWriter, req *http.Request) {
		id, idErr = IDParam(req, "id")
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/42", nil))
	require.NoError(t, idErr)
	require.Equal(t, int64(42), id)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/-3", nil))
	require.ErrorIs(t, idErr, ErrValidation)

	req := httptest.NewRequest(http.MethodGet, "/?as_of=2024-03-31&bad=31-03-2024", nil)
	asOf, err := DateQuery(req, "as_of")
	require.NoError(t, err)
	require.Equal(t, "2024-03-31", asOf.Format(DateLayout))
	missing, err := DateQuery(req, "from")
	require.NoError(t, err)
	require.Nil(t, missing)
	_, err = DateQuery(req, "bad")
	require.ErrorIs(t, err, ErrValidation)
}
