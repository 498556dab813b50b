package runtime

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aretw0/recalc/internal/actor"
	"github.com/aretw0/recalc/internal/logging"
	"github.com/aretw0/recalc/pkg/domain"
	"github.com/aretw0/recalc/pkg/ports"
)

// ErrUnhandledMessage is returned when an actor receives a message it does not understand.
var ErrUnhandledMessage = errors.New("unhandled message")

// Env holds what every actor of a session needs.
type Env struct {
	System    *actor.System
	Evaluator ports.Evaluator
	Logger    *slog.Logger
	Hooks     domain.LifecycleHooks
}

func (e *Env) logger() *slog.Logger {
	if e.Logger == nil {
		return logging.NewNop()
	}
	return e.Logger
}

func (e *Env) onEvaluation(ctx context.Context, ev *domain.EvaluationEvent) {
	if e.Hooks.OnEvaluation != nil {
		e.Hooks.OnEvaluation(ctx, ev)
	}
}

func (e *Env) onPropagation(ctx context.Context, u *domain.VariableUpdate) {
	if e.Hooks.OnPropagation != nil {
		e.Hooks.OnPropagation(ctx, u)
	}
}

// SessionAddress is the address of the Session actor of sessionID.
func SessionAddress(sessionID string) actor.Address {
	return actor.Address("session/" + sessionID)
}

// LoggerAddress is the address of the SessionLogger actor of sessionID.
func LoggerAddress(sessionID string) actor.Address {
	return actor.Address("logger/" + sessionID)
}

// StateAddress is the address of the SessionState actor of sessionID.
func StateAddress(sessionID string) actor.Address {
	return actor.Address("state/" + sessionID)
}
