package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	_ "github.com/odyssey-erp/odyssey-ledger/testing"
)

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return s.info, s.err }

type stubEnqueuer struct {
	asOf []string
	err  error
}

func (s *stubEnqueuer) EnqueueLedgerIntegrity(_ context.Context, asOf string) (*asynq.TaskInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.asOf = append(s.asOf, asOf)
	return &asynq.TaskInfo{ID: "t-1", Queue: QueueDefault, Type: TaskLedgerIntegrity}, nil
}

func serveJobs(h *Handler, method, path, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Route("/jobs", h.MountRoutes)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rr
}

func TestHealthReportsQueueInfo(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	h := NewHandler(stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3, Retry: 1}}, nil, logger)

	rr := serveJobs(h, http.MethodGet, "/jobs/health", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var body QueueHealth
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, QueueHealth{Queue: QueueDefault, Pending: 3, Retry: 1}, body)

	h = NewHandler(stubInspector{err: errors.New("redis down")}, nil, logger)
	rr = serveJobs(h, http.MethodGet, "/jobs/health", "")
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestEnqueueIntegrity(t *testing.T) {
	enqueuer := &stubEnqueuer{}
	h := NewHandler(nil, enqueuer, slog.New(slog.DiscardHandler))

	rr := serveJobs(h, http.MethodPost, "/jobs/integrity", `{"as_of":"2024-06-30"}`)
	require.Equal(t, http.StatusAccepted, rr.Code)
	require.JSONEq(t, `{"task_id":"t-1","queue":"default"}`, rr.Body.String())

	rr = serveJobs(h, http.MethodPost, "/jobs/integrity", "")
	require.Equal(t, http.StatusAccepted, rr.Code)
	require.Equal(t, []string{"2024-06-30", ""}, enqueuer.asOf)

	rr = serveJobs(h, http.MethodPost, "/jobs/integrity", `{"as_of":"30-06-2024"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	h = NewHandler(nil, &stubEnqueuer{err: errors.New("redis down")}, slog.New(slog.DiscardHandler))
	rr = serveJobs(h, http.MethodPost, "/jobs/integrity", "")
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
