package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/recalc/internal/actor"
	"github.com/aretw0/recalc/pkg/domain"
)

// binding ties a graph actor to its session log.
type binding struct {
	env       *Env
	self      actor.Address
	kind      string
	sessionID string
	logger    *loggerClient
}

func (b *binding) bind(ctx context.Context, m useSessionLogger) error {
	if m.SessionID == "" {
		return fmt.Errorf("%w: %s %s: session id is required", domain.ErrInvalidArgument, b.kind, b.self)
	}
	lc := newLoggerClient(b.env, m.SessionID)
	b.sessionID = m.SessionID
	b.logger = &lc
	b.logger.tracef(ctx, "%s %s now logs to session %s.", b.kind, b.self, m.SessionID)
	return nil
}

func (b *binding) requireLogger(msg any) error {
	if b.logger == nil {
		return fmt.Errorf("%w: %s %s received %T", domain.ErrMissingLogger, b.kind, b.self, msg)
	}
	return nil
}

func unhandled(kind string, msg any) error {
	return fmt.Errorf("%w: %s cannot handle %T", ErrUnhandledMessage, kind, msg)
}

func (b *binding) variable(addr actor.Address) variableClient {
	return variableClient{ref{sys: b.env.System, addr: addr}}
}
