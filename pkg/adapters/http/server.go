// Package http exposes an engine over a JSON API routed with chi.
//
// Sessions opened over HTTP stay live until DELETE /sessions/{id}; every
// propagation inside them is streamed to GET /events subscribers.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/recalc"
	"github.com/aretw0/recalc/internal/logging"
	"github.com/aretw0/recalc/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 1 << 20

// Engine is the part of recalc.Engine the API serves.
type Engine interface {
	Evaluate(ctx context.Context, req domain.EvaluationRequest) (*domain.EvaluationResult, error)
	Open(ctx context.Context, workbookID string, level domain.LogLevel, sessionID string) (*recalc.Session, error)
	Session(sessionID string) (*recalc.Session, error)
	Sessions() []string
	Result(ctx context.Context, sessionID string) (*domain.EvaluationResult, error)
	Results(ctx context.Context) ([]string, error)
	DeleteResult(ctx context.Context, sessionID string) error
	Workbooks(ctx context.Context) ([]string, error)
	Workbook(ctx context.Context, id string) (*domain.Workbook, error)
	Watch(ctx context.Context) (<-chan string, error)
}

var _ Engine = (*recalc.Engine)(nil)

// Server serves the API.
type Server struct {
	Engine  Engine
	Streams *StreamManager

	metrics http.Handler
	logger  *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithMetrics mounts h at GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithStreams shares a StreamManager whose Hooks were given to the engine.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) { s.Streams = sm }
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{Engine: engine}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager(s.logger)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Post("/evaluations", s.Evaluate)

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.ListSessions)
		r.Post("/", s.OpenSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/state", s.GetState)
			r.Get("/logs", s.GetLogs)
			r.Put("/variables", s.UpdateVariables)
			r.Put("/tables", s.UpdateTables)
			r.Delete("/", s.CloseSession)
		})
	})

	r.Route("/results", func(r chi.Router) {
		r.Get("/", s.ListResults)
		r.Get("/{id}", s.GetResult)
		r.Delete("/{id}", s.DeleteResult)
	})

	r.Get("/workbooks", s.ListWorkbooks)
	r.Get("/workbooks/{id}", s.GetWorkbook)
	r.Get("/events", s.SubscribeEvents)
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// OpenSessionRequest is the body of POST /sessions.
type OpenSessionRequest struct {
	WorkbookID string           `json:"workbook_id"`
	SessionID  string           `json:"session_id,omitempty"`
	LogLevel   *domain.LogLevel `json:"log_level,omitempty"`
}

// SessionInfo describes a live session.
type SessionInfo struct {
	SessionID  string `json:"session_id"`
	WorkbookID string `json:"workbook_id"`
}

// Evaluate handles POST /evaluations.
func (s *Server) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req domain.EvaluationRequest
	if !s.decode(w, r, &req) {
		return
	}
	result, err := s.Engine.Evaluate(r.Context(), req)
	if err != nil {
		s.fail(w, r, "evaluate", err)
		return
	}
	s.respond(w, http.StatusOK, result)
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids := s.Engine.Sessions()
	out := make([]SessionInfo, 0, len(ids))
	for _, id := range ids {
		sess, err := s.Engine.Session(id)
		if err != nil {
			continue
		}
		out = append(out, SessionInfo{SessionID: id, WorkbookID: sess.WorkbookID()})
	}
	s.respond(w, http.StatusOK, out)
}

// OpenSession handles POST /sessions.
func (s *Server) OpenSession(w http.ResponseWriter, r *http.Request) {
	var req OpenSessionRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.WorkbookID) == "" {
		s.fail(w, r, "open session", fmt.Errorf("%w: workbook_id is required", domain.ErrInvalidArgument))
		return
	}
	level := domain.LevelWarning
	if req.LogLevel != nil {
		level = *req.LogLevel
	}
	sess, err := s.Engine.Open(r.Context(), req.WorkbookID, level, req.SessionID)
	if err != nil {
		s.fail(w, r, "open session", err)
		return
	}
	s.respond(w, http.StatusCreated, SessionInfo{SessionID: sess.ID(), WorkbookID: sess.WorkbookID()})
}

// GetState handles GET /sessions/{id}/state.
func (s *Server) GetState(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	state, err := sess.State(r.Context())
	if err != nil {
		s.fail(w, r, "get state", err)
		return
	}
	s.respond(w, http.StatusOK, state)
}

// GetLogs handles GET /sessions/{id}/logs.
func (s *Server) GetLogs(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	logs, err := sess.Logs(r.Context())
	if err != nil {
		s.fail(w, r, "get logs", err)
		return
	}
	s.respond(w, http.StatusOK, logs)
}

// UpdateVariables handles PUT /sessions/{id}/variables. The body is a list
// of inputs applied in order; the response is the resulting state.
func (s *Server) UpdateVariables(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var inputs []domain.VariableInput
	if !s.decode(w, r, &inputs) {
		return
	}
	for _, in := range inputs {
		if err := sess.Update(r.Context(), in); err != nil {
			s.fail(w, r, "update variable", err)
			return
		}
	}
	s.writeState(w, r, sess)
}

// UpdateTables handles PUT /sessions/{id}/tables.
func (s *Server) UpdateTables(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var tables []domain.DataTable
	if !s.decode(w, r, &tables) {
		return
	}
	for _, t := range tables {
		if err := sess.UpdateTable(r.Context(), t); err != nil {
			s.fail(w, r, "update table", err)
			return
		}
	}
	s.writeState(w, r, sess)
}

// CloseSession handles DELETE /sessions/{id} and returns the final result.
func (s *Server) CloseSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	result, err := sess.Close(r.Context())
	if err != nil {
		s.fail(w, r, "close session", err)
		return
	}
	s.respond(w, http.StatusOK, result)
}

// ListResults handles GET /results.
func (s *Server) ListResults(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Engine.Results(r.Context())
	if err != nil {
		s.fail(w, r, "list results", err)
		return
	}
	s.respond(w, http.StatusOK, ids)
}

// GetResult handles GET /results/{id}.
func (s *Server) GetResult(w http.ResponseWriter, r *http.Request) {
	result, err := s.Engine.Result(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, "get result", err)
		return
	}
	s.respond(w, http.StatusOK, result)
}

// DeleteResult handles DELETE /results/{id}.
func (s *Server) DeleteResult(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.DeleteResult(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, "delete result", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListWorkbooks handles GET /workbooks.
func (s *Server) ListWorkbooks(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Engine.Workbooks(r.Context())
	if err != nil {
		s.fail(w, r, "list workbooks", err)
		return
	}
	s.respond(w, http.StatusOK, ids)
}

// GetWorkbook handles GET /workbooks/{id}.
func (s *Server) GetWorkbook(w http.ResponseWriter, r *http.Request) {
	wb, err := s.Engine.Workbook(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, "get workbook", err)
		return
	}
	s.respond(w, http.StatusOK, wb)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]any{
		"app":      "recalc-http",
		"version":  strings.TrimSpace(recalc.Version),
		"sessions": len(s.Engine.Sessions()),
	})
}

// -- Helpers --

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*recalc.Session, bool) {
	sess, err := s.Engine.Session(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, "lookup session", err)
		return nil, false
	}
	return sess, true
}

func (s *Server) writeState(w http.ResponseWriter, r *http.Request, sess *recalc.Session) {
	state, err := sess.State(r.Context())
	if err != nil {
		s.fail(w, r, "get state", err)
		return
	}
	s.respond(w, http.StatusOK, state)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.logger.Warn("invalid request body", "path", r.URL.Path, "err", err)
		s.respond(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("invalid request body: %v", err)})
		return false
	}
	return true
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", "path", r.URL.Path, "err", err)
	} else {
		s.logger.Debug(op+" rejected", "path", r.URL.Path, "status", status, "err", err)
	}
	s.respond(w, status, errorBody{Error: err.Error()})
}

func (s *Server) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

// StatusFor maps domain errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrUnknownType):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrWorkbookNotFound),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrResultNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSessionExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnresolvedReference), errors.Is(err, domain.ErrDuplicateDependant):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
