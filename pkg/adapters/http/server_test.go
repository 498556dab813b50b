package http_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/recalc"
	"github.com/aretw0/recalc/internal/logging"
	httpAdapter "github.com/aretw0/recalc/pkg/adapters/http"
	"github.com/aretw0/recalc/pkg/adapters/memory"
	"github.com/aretw0/recalc/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payroll() *domain.Workbook {
	float := func(name string) domain.VariableRef {
		return domain.VariableRef{Name: name, Namespace: "Global", Type: domain.TypeFloat}
	}
	pay := float("Pay")
	return &domain.Workbook{
		ID:   "payroll",
		Name: "Payroll",
		Blueprints: []domain.Blueprint{{
			Name: "main",
			DataVariables: []domain.DataVariableBlueprint{
				{Name: "Hours", Namespace: "Global", Type: domain.TypeFloat, DefaultValue: "40"},
				{Name: "Rate", Namespace: "Global", Type: domain.TypeFloat, DefaultValue: "12.5"},
				{Name: "Pay", Namespace: "Global", Type: domain.TypeFloat},
			},
			Expressions: []domain.ExpressionBlueprint{{
				Expression: "Hours * Rate",
				Inputs:     []domain.VariableRef{float("Hours"), float("Rate")},
				Output:     &pay,
			}},
		}},
	}
}

func setup(t *testing.T, opts ...httpAdapter.Option) (http.Handler, *httpAdapter.StreamManager) {
	t.Helper()
	loader, err := memory.NewFromWorkbooks(payroll())
	require.NoError(t, err)

	streams := httpAdapter.NewStreamManager(logging.NewNop())
	eng, err := recalc.New("",
		recalc.WithLoader(loader),
		recalc.WithLifecycleHooks(streams.Hooks()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Shutdown(context.Background()) })

	opts = append([]httpAdapter.Option{httpAdapter.WithStreams(streams)}, opts...)
	return httpAdapter.NewHandler(eng, opts...), streams
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, path, r))
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func valueOf(state []domain.VariableState, name string) string {
	for _, s := range state {
		if s.Namespace == "Global" && s.Name == name {
			return s.Value
		}
	}
	return ""
}

func TestServer_Evaluate(t *testing.T) {
	h, _ := setup(t)

	w := do(t, h, http.MethodPost, "/evaluations", domain.EvaluationRequest{
		WorkbookID:    "payroll",
		DataVariables: []domain.VariableInput{{Namespace: "Global", Name: "Hours", Value: "10"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decode[domain.EvaluationResult](t, w)
	assert.Equal(t, "125", valueOf(result.State, "Pay"))

	w = do(t, h, http.MethodGet, "/results", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{result.SessionID}, decode[[]string](t, w))
}

func TestServer_EvaluateErrors(t *testing.T) {
	h, _ := setup(t)

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"MalformedBody", "{", http.StatusBadRequest},
		{"UnknownField", `{"workbook":"payroll"}`, http.StatusBadRequest},
		{"MissingWorkbookID", domain.EvaluationRequest{}, http.StatusBadRequest},
		{"UnknownWorkbook", domain.EvaluationRequest{WorkbookID: "nope"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/evaluations", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.NotEmpty(t, decode[map[string]string](t, w)["error"])
		})
	}
}

func TestServer_SessionLifecycle(t *testing.T) {
	h, _ := setup(t)

	w := do(t, h, http.MethodPost, "/sessions", httpAdapter.OpenSessionRequest{WorkbookID: "payroll", SessionID: "s-1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, httpAdapter.SessionInfo{SessionID: "s-1", WorkbookID: "payroll"}, decode[httpAdapter.SessionInfo](t, w))

	w = do(t, h, http.MethodGet, "/sessions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []httpAdapter.SessionInfo{{SessionID: "s-1", WorkbookID: "payroll"}}, decode[[]httpAdapter.SessionInfo](t, w))

	w = do(t, h, http.MethodPut, "/sessions/s-1/variables", []domain.VariableInput{{Namespace: "Global", Name: "Rate", Value: "20"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "800", valueOf(decode[[]domain.VariableState](t, w), "Pay"))

	w = do(t, h, http.MethodGet, "/sessions/s-1/state", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "20", valueOf(decode[[]domain.VariableState](t, w), "Rate"))

	w = do(t, h, http.MethodGet, "/sessions/s-1/logs", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodDelete, "/sessions/s-1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "800", valueOf(decode[domain.EvaluationResult](t, w).State, "Pay"))

	w = do(t, h, http.MethodGet, "/sessions/s-1/state", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodGet, "/results/s-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "payroll", decode[domain.EvaluationResult](t, w).WorkbookID)

	w = do(t, h, http.MethodDelete, "/results/s-1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, http.MethodGet, "/results/s-1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_OpenSessionErrors(t *testing.T) {
	h, _ := setup(t)

	w := do(t, h, http.MethodPost, "/sessions", httpAdapter.OpenSessionRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodPost, "/sessions", httpAdapter.OpenSessionRequest{WorkbookID: "payroll", SessionID: "dup"})
	require.Equal(t, http.StatusCreated, w.Code)
	w = do(t, h, http.MethodPost, "/sessions", httpAdapter.OpenSessionRequest{WorkbookID: "payroll", SessionID: "dup"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, h, http.MethodPut, "/sessions/missing/variables", []domain.VariableInput{})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_Workbooks(t *testing.T) {
	h, _ := setup(t)

	w := do(t, h, http.MethodGet, "/workbooks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"payroll"}, decode[[]string](t, w))

	w = do(t, h, http.MethodGet, "/workbooks/payroll", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Payroll", decode[domain.Workbook](t, w).Name)

	w = do(t, h, http.MethodGet, "/workbooks/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_HealthInfoMetrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "recalc_up 1")
	})
	h, _ := setup(t, httpAdapter.WithMetrics(metrics))

	w := do(t, h, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, w)["status"])

	w = do(t, h, http.MethodGet, "/info", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, recalc.Version, decode[map[string]any](t, w)["version"])

	w = do(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "recalc_up 1")

	w = do(t, h, http.MethodOptions, "/evaluations", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSubscribeEvents_Session(t *testing.T) {
	h, _ := setup(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	w := do(t, h, http.MethodPost, "/sessions", httpAdapter.OpenSessionRequest{WorkbookID: "payroll", SessionID: "live"})
	require.Equal(t, http.StatusCreated, w.Code)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events?session_id=live&watch=Global_Pay", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())
	assert.Equal(t, "event: ping", lines.Text())

	// The ping is flushed after the subscription is registered.
	w = do(t, h, http.MethodPut, "/sessions/live/variables", []domain.VariableInput{{Namespace: "Global", Name: "Hours", Value: "2"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var update domain.VariableUpdate
	for lines.Scan() {
		if data, ok := strings.CutPrefix(lines.Text(), "data: {"); ok {
			require.NoError(t, json.Unmarshal([]byte("{"+data), &update))
			break
		}
	}
	assert.Equal(t, "live", update.SessionID)
	assert.Equal(t, "Pay", update.Name)
	assert.Equal(t, "25", update.Value)
}

func TestStreamManager_DropsWhenFull(t *testing.T) {
	sm := httpAdapter.NewStreamManager(logging.NewNop())
	ch, unsubscribe := sm.Subscribe("s")

	for i := 0; i < 100; i++ {
		sm.Broadcast("s", "msg")
	}
	sm.Broadcast("other", "ignored")

	assert.Equal(t, 16, len(ch))
	unsubscribe()
	unsubscribe()
	for range ch {
	}
	_, open := <-ch
	assert.False(t, open)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("x: %w", domain.ErrInvalidArgument), http.StatusBadRequest},
		{domain.ErrUnknownType, http.StatusBadRequest},
		{domain.ErrWorkbookNotFound, http.StatusNotFound},
		{domain.ErrSessionNotFound, http.StatusNotFound},
		{domain.ErrResultNotFound, http.StatusNotFound},
		{domain.ErrSessionExists, http.StatusConflict},
		{domain.ErrUnresolvedReference, http.StatusUnprocessableEntity},
		{domain.ErrDuplicateDependant, http.StatusUnprocessableEntity},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, httpAdapter.StatusFor(tt.err), tt.err.Error())
	}
}
