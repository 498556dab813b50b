package recalc

import (
	"context"
	"errors"
	"time"

	"github.com/aretw0/recalc/pkg/domain"
	"github.com/aretw0/recalc/pkg/session"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Session is a live workbook session. Every call is serialized per session
// ID, across replicas when the engine has a distributed locker.
type Session struct {
	engine *Engine
	entry  *session.Entry
}

// ID returns the session ID.
func (s *Session) ID() string { return s.entry.Client.ID() }

// WorkbookID returns the ID of the workbook the session was built from.
func (s *Session) WorkbookID() string { return s.entry.WorkbookID }

// StartedAt returns when the session was started.
func (s *Session) StartedAt() time.Time { return s.entry.StartedAt }

// Update sets the value of a variable and lets it propagate. Unknown
// variables are logged in the session log and ignored.
func (s *Session) Update(ctx context.Context, in domain.VariableInput) error {
	return s.engine.sessions.WithLock(ctx, s.ID(), func(ctx context.Context) error {
		return s.entry.Client.UpdateDataVariable(ctx, in)
	})
}

// UpdateTable replaces the value of a table variable.
func (s *Session) UpdateTable(ctx context.Context, t domain.DataTable) error {
	return s.engine.sessions.WithLock(ctx, s.ID(), func(ctx context.Context) error {
		return s.entry.Client.UpdateDataTable(ctx, t)
	})
}

// State returns the latest snapshot of every variable.
func (s *Session) State(ctx context.Context) ([]domain.VariableState, error) {
	var out []domain.VariableState
	err := s.engine.sessions.WithLock(ctx, s.ID(), func(ctx context.Context) error {
		var err error
		out, err = s.entry.Client.GetState(ctx)
		return err
	})
	return out, err
}

// Logs returns the session log.
func (s *Session) Logs(ctx context.Context) ([]domain.LogLine, error) {
	var out []domain.LogLine
	err := s.engine.sessions.WithLock(ctx, s.ID(), func(ctx context.Context) error {
		var err error
		out, err = s.entry.Client.GetLogs(ctx)
		return err
	})
	return out, err
}

// Close collects the final state and log, tears the session down and hands
// the result off to the store and sinks.
func (s *Session) Close(ctx context.Context) (*domain.EvaluationResult, error) {
	e := s.engine
	id := s.ID()
	ctx, span := e.tracer.Start(ctx, "recalc.Close", trace.WithAttributes(attribute.String("recalc.session_id", id)))
	defer span.End()

	var result *domain.EvaluationResult
	err := e.sessions.WithLock(ctx, id, func(ctx context.Context) error {
		if _, err := e.sessions.Get(id); err != nil {
			return err
		}
		logs, logErr := s.entry.Client.GetLogs(ctx)
		state, stateErr := s.entry.Client.GetState(ctx)
		stopErr := s.entry.Client.Stop(ctx)
		e.sessions.Remove(id)
		if err := errors.Join(logErr, stateErr); err != nil {
			return err
		}
		if stopErr != nil {
			e.logger.Warn("session teardown incomplete", "session_id", id, "err", stopErr)
		}
		result = &domain.EvaluationResult{
			SessionID:  id,
			WorkbookID: s.entry.WorkbookID,
			State:      state,
			Logs:       logs,
			CreatedAt:  time.Now().UTC(),
		}
		return nil
	})
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil, err
	}
	if err == nil {
		err = e.handoff(ctx, result)
	}

	e.onSessionStop(ctx, &domain.SessionEvent{
		Timestamp:  time.Now(),
		SessionID:  id,
		WorkbookID: s.entry.WorkbookID,
		Duration:   time.Since(s.entry.StartedAt),
		Err:        err,
	})
	if err != nil {
		span.RecordError(err)
		e.logger.Error("session close failed", "session_id", id, "err", err)
		return nil, err
	}
	e.logger.Info("session closed", "session_id", id, "variables", len(result.State), "log_lines", len(result.Logs))
	return result, nil
}
