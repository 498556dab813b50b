package recalc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/aretw0/recalc/internal/actor"
	"github.com/aretw0/recalc/internal/runtime"
	loamAdapter "github.com/aretw0/recalc/pkg/adapters/loam"
	"github.com/aretw0/recalc/pkg/adapters/memory"
	"github.com/aretw0/recalc/pkg/domain"
	"github.com/aretw0/recalc/pkg/evaluator/hcl"
	"github.com/aretw0/recalc/pkg/ports"
	"github.com/aretw0/recalc/pkg/session"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/aretw0/recalc"

// Engine is the high-level entry point for the recalc library.
// It owns the actor system sessions run on and hands their results off
// to the configured store and sinks.
type Engine struct {
	loader      ports.WorkbookLoader
	evaluator   ports.Evaluator
	store       ports.ResultStore
	sinks       []ports.ResultSink
	locker      ports.DistributedLocker
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	tracer      trace.Tracer
	mailboxSize int

	system   *actor.System
	sessions *session.Manager
	Name     string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLoader injects a custom WorkbookLoader, bypassing the default Loam initialization.
func WithLoader(l ports.WorkbookLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithEvaluator sets the expression evaluator (default: HCL).
func WithEvaluator(ev ports.Evaluator) Option {
	return func(e *Engine) {
		e.evaluator = ev
	}
}

// WithStore sets where results are handed off (default: in memory).
func WithStore(s ports.ResultStore) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithSinks adds result sinks notified after the store.
func WithSinks(sinks ...ports.ResultSink) Option {
	return func(e *Engine) {
		e.sinks = append(e.sinks, sinks...)
	}
}

// WithLocker enables distributed locking of session IDs.
func WithLocker(l ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = l
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithTracer overrides the tracer obtained from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = t
	}
}

// WithMailboxSize sets the mailbox capacity of every actor.
func WithMailboxSize(n int) Option {
	return func(e *Engine) {
		e.mailboxSize = n
	}
}

// New initializes a new Engine.
// By default, it reads workbooks from a Loam repository at the given path.
// If WithLoader is provided, repoPath can be empty and Loam is skipped.
func New(repoPath string, opts ...Option) (*Engine, error) {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.loader == nil {
		if repoPath == "" {
			return nil, fmt.Errorf("repoPath is required when no custom loader is provided")
		}
		loader, err := loamAdapter.Open(repoPath)
		if err != nil {
			return nil, err
		}
		eng.loader = loader
	}
	if repoPath != "" {
		if abs, err := filepath.Abs(repoPath); err == nil {
			eng.Name = filepath.Base(abs)
		}
	}

	if eng.logger == nil {
		eng.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if eng.Name != "" {
		eng.logger = eng.logger.With("workbooks", eng.Name)
	}
	if eng.evaluator == nil {
		eng.evaluator = hcl.New()
	}
	if eng.store == nil {
		eng.store = memory.NewStore()
	}
	if eng.tracer == nil {
		eng.tracer = otel.Tracer(tracerName)
	}

	eng.system = actor.NewSystem(
		actor.WithMailboxSize(eng.mailboxSize),
		actor.WithLogger(eng.logger),
	)
	managerOpts := []session.Option{session.WithLogger(eng.logger)}
	if eng.locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(eng.locker))
	}
	eng.sessions = session.NewManager(eng.store, managerOpts...)
	return eng, nil
}

// Evaluate runs a one-shot evaluation: load the workbook, build a session,
// apply the request's inputs, hand the result off and tear the session down.
func (e *Engine) Evaluate(ctx context.Context, req domain.EvaluationRequest) (*domain.EvaluationResult, error) {
	ctx, span := e.tracer.Start(ctx, "recalc.Evaluate", trace.WithAttributes(
		attribute.String("recalc.workbook_id", req.WorkbookID),
		attribute.Int("recalc.inputs", len(req.DataVariables)),
	))
	defer span.End()

	result, err := e.evaluate(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("recalc.session_id", result.SessionID))
	return result, nil
}

func (e *Engine) evaluate(ctx context.Context, req domain.EvaluationRequest) (*domain.EvaluationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	s, err := e.Open(ctx, req.WorkbookID, req.Level(), "")
	if err != nil {
		return nil, err
	}
	for _, in := range req.DataVariables {
		if err := s.Update(ctx, in); err != nil {
			e.logger.Warn("input rejected", "session_id", s.ID(), "name", in.Name, "namespace", in.Namespace, "err", err)
		}
	}
	return s.Close(ctx)
}

// Open loads a workbook and starts a live session for it. An empty
// sessionID gets a random one.
func (e *Engine) Open(ctx context.Context, workbookID string, level domain.LogLevel, sessionID string) (*Session, error) {
	wb, err := e.loader.LoadWorkbook(ctx, workbookID)
	if err != nil {
		return nil, err
	}
	return e.Start(ctx, wb, level, sessionID)
}

// Start starts a live session for an already loaded workbook.
func (e *Engine) Start(ctx context.Context, wb *domain.Workbook, level domain.LogLevel, sessionID string) (*Session, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	workbookID := ""
	if wb != nil {
		workbookID = wb.ID
	}
	ctx, span := e.tracer.Start(ctx, "recalc.Start", trace.WithAttributes(
		attribute.String("recalc.session_id", sessionID),
		attribute.String("recalc.workbook_id", workbookID),
	))
	defer span.End()

	var s *Session
	err := e.sessions.WithLock(ctx, sessionID, func(ctx context.Context) error {
		if _, err := e.sessions.Get(sessionID); err == nil {
			return fmt.Errorf("%w: %s", domain.ErrSessionExists, sessionID)
		}
		started := time.Now()
		client, err := runtime.SpawnSession(e.env(), sessionID)
		if err != nil {
			if errors.Is(err, actor.ErrExists) {
				return fmt.Errorf("%w: %s", domain.ErrSessionExists, sessionID)
			}
			return err
		}
		if err := client.Start(ctx, level, wb); err != nil {
			if stopErr := client.Stop(ctx); stopErr != nil {
				e.logger.Warn("partial session teardown failed", "session_id", sessionID, "err", stopErr)
			}
			e.onSessionStop(ctx, &domain.SessionEvent{Timestamp: time.Now(), SessionID: sessionID, WorkbookID: workbookID, Duration: time.Since(started), Err: err})
			return err
		}
		entry := &session.Entry{Client: client, WorkbookID: workbookID, StartedAt: started}
		if err := e.sessions.Register(sessionID, entry); err != nil {
			return err
		}
		s = &Session{engine: e, entry: entry}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Error("session start failed", "session_id", sessionID, "workbook_id", workbookID, "err", err)
		return nil, err
	}

	e.logger.Info("session started", "session_id", sessionID, "workbook_id", workbookID)
	if e.hooks.OnSessionStart != nil {
		e.hooks.OnSessionStart(ctx, &domain.SessionEvent{Timestamp: s.entry.StartedAt, SessionID: sessionID, WorkbookID: workbookID})
	}
	return s, nil
}

// Session returns the live session with the given ID.
func (e *Engine) Session(sessionID string) (*Session, error) {
	entry, err := e.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return &Session{engine: e, entry: entry}, nil
}

// Sessions returns the IDs of the live sessions.
func (e *Engine) Sessions() []string {
	return e.sessions.Active()
}

// Result loads a handed-off result.
func (e *Engine) Result(ctx context.Context, sessionID string) (*domain.EvaluationResult, error) {
	return e.sessions.Load(ctx, sessionID)
}

// Results lists the IDs of the stored results.
func (e *Engine) Results(ctx context.Context) ([]string, error) {
	return e.sessions.List(ctx)
}

// DeleteResult removes a stored result.
func (e *Engine) DeleteResult(ctx context.Context, sessionID string) error {
	return e.sessions.Delete(ctx, sessionID)
}

// Workbooks lists the workbooks the loader can provide.
func (e *Engine) Workbooks(ctx context.Context) ([]string, error) {
	return e.loader.ListWorkbooks(ctx)
}

// Workbook loads a workbook definition without starting a session.
func (e *Engine) Workbook(ctx context.Context, id string) (*domain.Workbook, error) {
	return e.loader.LoadWorkbook(ctx, id)
}

// Watch returns a channel that receives the ID of every changed workbook.
// Returns an error if the loader does not support watching.
func (e *Engine) Watch(ctx context.Context) (<-chan string, error) {
	if w, ok := e.loader.(ports.Watchable); ok {
		return w.Watch(ctx)
	}
	return nil, fmt.Errorf("current loader does not support watching")
}

// Loader returns the underlying WorkbookLoader used by the engine.
func (e *Engine) Loader() ports.WorkbookLoader {
	return e.loader
}

// Evaluator returns the expression evaluator sessions compile with.
func (e *Engine) Evaluator() ports.Evaluator {
	return e.evaluator
}

// Shutdown closes every live session, handing their results off, and stops
// the actor system.
func (e *Engine) Shutdown(ctx context.Context) error {
	var errs []error
	for _, id := range e.sessions.Active() {
		s, err := e.Session(id)
		if err != nil {
			continue
		}
		if _, err := s.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := e.system.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (e *Engine) env() *runtime.Env {
	return &runtime.Env{
		System:    e.system,
		Evaluator: e.evaluator,
		Logger:    e.logger,
		Hooks:     e.hooks,
	}
}

func (e *Engine) onSessionStop(ctx context.Context, ev *domain.SessionEvent) {
	if e.hooks.OnSessionStop != nil {
		e.hooks.OnSessionStop(ctx, ev)
	}
}

// handoff persists the result and publishes it to every sink. Sink failures
// are logged only.
func (e *Engine) handoff(ctx context.Context, result *domain.EvaluationResult) error {
	if err := e.sessions.Save(ctx, result); err != nil {
		return fmt.Errorf("save result %s: %w", result.SessionID, err)
	}
	for _, sink := range e.sinks {
		if err := sink.Publish(ctx, result); err != nil {
			e.logger.Warn("result sink failed", "session_id", result.SessionID, "sink", fmt.Sprintf("%T", sink), "err", err)
		}
	}
	return nil
}
